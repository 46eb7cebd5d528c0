package service

import (
	"context"
	"fmt"

	"github.com/abgdnv/inventory/internal/inventory/events"
	"github.com/abgdnv/inventory/internal/inventory/store"
)

var sampleProducts = []store.NewProduct{
	{Name: "りんご", Quantity: 10, Barcode: "4901234567890"},
	{Name: "バナナ", Quantity: 25, Barcode: "4901234567891"},
	{Name: "オレンジ", Quantity: 5, Barcode: "4901234567892"},
	{Name: "パン", Quantity: 15, Barcode: "4901234567893"},
}

// SeedSamples adds the sample products when the inventory is empty.
func (s *Service) SeedSamples(ctx context.Context) ([]ProductDto, error) {
	added := s.store.AddProductsIfEmpty(sampleProducts)
	if len(added) == 0 {
		s.logger.InfoContext(ctx, "Inventory is not empty, samples skipped")
		return []ProductDto{}, nil
	}
	s.productsCounter.Add(ctx, int64(len(added)))
	for _, p := range added {
		s.publish(ctx, events.ProductCreated, p)
	}
	s.logger.InfoContext(ctx, "Sample products added", "count", len(added))
	return toDtos(added), nil
}

// SampleBarcode returns "49" followed by the last 11 digits of the current Unix time in milliseconds.
func (s *Service) SampleBarcode(_ context.Context) string {
	return fmt.Sprintf("49%011d", s.now().UnixMilli()%100_000_000_000)
}
