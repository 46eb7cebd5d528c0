// Package service provides the inventory use cases on top of the in-memory store.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	inverrors "github.com/abgdnv/inventory/internal/inventory/errors"
	"github.com/abgdnv/inventory/internal/inventory/events"
	"github.com/abgdnv/inventory/internal/inventory/store"
	"github.com/abgdnv/inventory/internal/platform/messaging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "inventory-service"

// InventoryService defines the inventory use cases exposed to the transports.
type InventoryService interface {
	// FindByID retrieves a single product by its identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id string) (*ProductDto, error)

	// FindAll returns all products in list order.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context) ([]ProductDto, error)

	// FindByBarcode returns the first product whose barcode equals the trimmed input.
	// Returns ErrProductNotFound if there is none.
	FindByBarcode(ctx context.Context, barcode string) (*ProductDto, error)

	// Create adds a new product.
	// Returns ErrInvalidProduct if the name or barcode is blank or the quantity is negative.
	Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error)

	// Update applies a partial update.
	// Returns ErrProductNotFound or ErrInvalidProduct.
	Update(ctx context.Context, id string, update ProductUpdateDto) (*ProductDto, error)

	// SetQuantity replaces the quantity of a product.
	// Returns ErrInvalidProduct for a negative quantity.
	SetQuantity(ctx context.Context, id string, quantity int) (*ProductDto, error)

	// AdjustQuantity adds delta to the quantity, never going below zero.
	AdjustQuantity(ctx context.Context, id string, delta int) (*ProductDto, error)

	// DeleteByID removes a product.
	// Returns ErrProductNotFound if no product exists with the given ID.
	DeleteByID(ctx context.Context, id string) error

	// Scan looks up a scanned barcode and tells the caller whether to show or create a product.
	Scan(ctx context.Context, scan ScanDto) (*ScanResultDto, error)

	// View returns the filtered and sorted products together with the view parameters.
	View(ctx context.Context) (*StateDto, error)

	// SetSearchQuery sets the view filter and returns the new view.
	SetSearchQuery(ctx context.Context, query string) (*StateDto, error)

	// SetSort sets the view ordering and returns the new view.
	SetSort(ctx context.Context, sort SortDto) (*StateDto, error)

	// ToggleSort selects field ascending, or flips to descending when field is already sorted ascending.
	ToggleSort(ctx context.Context, field string) (*StateDto, error)

	// SeedSamples adds the sample products when the inventory is empty.
	// Returns the added products, empty if the inventory already had products.
	SeedSamples(ctx context.Context) ([]ProductDto, error)

	// SampleBarcode generates a 13-digit barcode for a product typed in by hand.
	SampleBarcode(ctx context.Context) string
}

// ProductStore is the subset of store.InventoryStore the service works with.
type ProductStore interface {
	AddProduct(in store.NewProduct) store.Product
	AddProductsIfEmpty(items []store.NewProduct) []store.Product
	UpdateProduct(id string, u store.ProductUpdate) (store.Product, error)
	UpdateQuantity(id string, quantity int) (store.Product, error)
	AdjustQuantity(id string, delta int) (store.Product, error)
	DeleteProduct(id string) error
	FindProductByBarcode(barcode string) (store.Product, bool)
	FindProductByID(id string) (store.Product, bool)
	Products() []store.Product
	SetSearchQuery(query string)
	SetSortBy(field store.SortField, order store.SortOrder)
	Params() store.ViewParams
	State() store.State
}

// Service implements InventoryService.
type Service struct {
	store     ProductStore
	publisher messaging.Publisher
	logger    *slog.Logger
	now       func() time.Time

	productsCounter    metric.Int64Counter
	adjustmentsCounter metric.Int64Counter
	scansCounter       metric.Int64Counter
}

// NewService creates a new Service. A nil publisher disables change events.
func NewService(st ProductStore, publisher messaging.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	meter := otel.Meter(meterName)
	return &Service{
		store:              st,
		publisher:          publisher,
		logger:             logger.With("component", "service"),
		now:                time.Now,
		productsCounter:    mustCounter(meter, "products_created", "Total number of created products"),
		adjustmentsCounter: mustCounter(meter, "quantity_adjustments", "Total number of quantity button presses"),
		scansCounter:       mustCounter(meter, "barcode_scans", "Total number of scanned barcodes"),
	}
}

func mustCounter(meter metric.Meter, name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		panic(fmt.Sprintf("failed to create %s counter: %v", name, err))
	}
	return counter
}

// ProductCreateDto represents the data transfer object for creating a new product.
type ProductCreateDto struct {
	Name     string `json:"name"     validate:"required,max=100"`
	Quantity int    `json:"quantity" validate:"min=0"`
	Barcode  string `json:"barcode"  validate:"required,max=64"`
}

// ProductUpdateDto carries a partial update; absent fields are left unchanged.
type ProductUpdateDto struct {
	Name     *string `json:"name"     validate:"omitempty,max=100"`
	Quantity *int    `json:"quantity" validate:"omitempty,min=0"`
	Barcode  *string `json:"barcode"  validate:"omitempty,max=64"`
}

// QuantityDto sets an absolute quantity.
type QuantityDto struct {
	Quantity *int `json:"quantity" validate:"required,min=0"`
}

// AdjustDto adds a signed delta to the quantity.
type AdjustDto struct {
	Delta int `json:"delta" validate:"required"`
}

// ScanDto is what the barcode scanner reports.
type ScanDto struct {
	Barcode   string `json:"barcode"   validate:"required,max=64"`
	Symbology string `json:"symbology" validate:"max=32"`
}

// ScanResultDto tells the caller whether the scanned barcode is known.
// When Found is false, Barcode prefills the create form.
type ScanResultDto struct {
	Found   bool        `json:"found"`
	Product *ProductDto `json:"product,omitempty"`
	Barcode string      `json:"barcode"`
}

// SearchDto sets the view filter.
type SearchDto struct {
	Query string `json:"query" validate:"max=100"`
}

// SortDto sets the view ordering. An empty order means ascending.
type SortDto struct {
	SortBy    string `json:"sortBy"    validate:"required,oneof=name quantity updatedAt"`
	SortOrder string `json:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Barcode   string    `json:"barcode"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StateDto is the rendered inventory list.
type StateDto struct {
	Products    []ProductDto `json:"products"`
	SearchQuery string       `json:"searchQuery"`
	SortBy      string       `json:"sortBy"`
	SortOrder   string       `json:"sortOrder"`
	IsLoading   bool         `json:"isLoading"`
}

// FindByID retrieves a product by its ID and returns it as a ProductDto.
func (s *Service) FindByID(_ context.Context, id string) (*ProductDto, error) {
	p, ok := s.store.FindProductByID(id)
	if !ok {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, inverrors.ErrProductNotFound)
	}
	return toDto(p), nil
}

// FindAll retrieves all products in list order.
func (s *Service) FindAll(_ context.Context) ([]ProductDto, error) {
	return toDtos(s.store.Products()), nil
}

// FindByBarcode retrieves a product by its barcode.
func (s *Service) FindByBarcode(_ context.Context, barcode string) (*ProductDto, error) {
	barcode = strings.TrimSpace(barcode)
	p, ok := s.store.FindProductByBarcode(barcode)
	if !ok {
		return nil, fmt.Errorf("failed to fetch product by barcode %s: %w", barcode, inverrors.ErrProductNotFound)
	}
	return toDto(p), nil
}

// Create creates a new product and returns it as a ProductDto.
func (s *Service) Create(ctx context.Context, product ProductCreateDto) (*ProductDto, error) {
	in := store.NewProduct{
		Name:     strings.TrimSpace(product.Name),
		Quantity: product.Quantity,
		Barcode:  strings.TrimSpace(product.Barcode),
	}
	if in.Name == "" {
		return nil, fmt.Errorf("failed to create product: %w: name is blank", inverrors.ErrInvalidProduct)
	}
	if in.Barcode == "" {
		return nil, fmt.Errorf("failed to create product: %w: barcode is blank", inverrors.ErrInvalidProduct)
	}
	if in.Quantity < 0 {
		return nil, fmt.Errorf("failed to create product: %w: quantity is negative", inverrors.ErrInvalidProduct)
	}

	p := s.store.AddProduct(in)
	s.productsCounter.Add(ctx, 1)
	s.publish(ctx, events.ProductCreated, p)
	return toDto(p), nil
}

// Update applies a partial update and returns the updated product as a ProductDto.
func (s *Service) Update(ctx context.Context, id string, update ProductUpdateDto) (*ProductDto, error) {
	u := store.ProductUpdate{Quantity: update.Quantity}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, fmt.Errorf("failed to update product with ID %s: %w: name is blank", id, inverrors.ErrInvalidProduct)
		}
		u.Name = &name
	}
	if update.Barcode != nil {
		barcode := strings.TrimSpace(*update.Barcode)
		if barcode == "" {
			return nil, fmt.Errorf("failed to update product with ID %s: %w: barcode is blank", id, inverrors.ErrInvalidProduct)
		}
		u.Barcode = &barcode
	}
	if update.Quantity != nil && *update.Quantity < 0 {
		return nil, fmt.Errorf("failed to update product with ID %s: %w: quantity is negative", id, inverrors.ErrInvalidProduct)
	}

	p, err := s.store.UpdateProduct(id, u)
	if err != nil {
		return nil, fmt.Errorf("failed to update product with ID %s: %w", id, err)
	}
	s.publish(ctx, events.ProductUpdated, p)
	return toDto(p), nil
}

// SetQuantity replaces the quantity of a product.
func (s *Service) SetQuantity(ctx context.Context, id string, quantity int) (*ProductDto, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("failed to update quantity for product with ID %s: %w: quantity is negative", id, inverrors.ErrInvalidProduct)
	}
	p, err := s.store.UpdateQuantity(id, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to update quantity for product with ID %s: %w", id, err)
	}
	s.publish(ctx, events.ProductQuantityChanged, p)
	return toDto(p), nil
}

// AdjustQuantity adds delta to the quantity of a product, stopping at zero.
func (s *Service) AdjustQuantity(ctx context.Context, id string, delta int) (*ProductDto, error) {
	p, err := s.store.AdjustQuantity(id, delta)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust quantity for product with ID %s: %w", id, err)
	}
	direction := "increase"
	if delta < 0 {
		direction = "decrease"
	}
	s.adjustmentsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("direction", direction)))
	s.publish(ctx, events.ProductQuantityChanged, p)
	return toDto(p), nil
}

// DeleteByID deletes a product by its ID.
func (s *Service) DeleteByID(ctx context.Context, id string) error {
	if err := s.store.DeleteProduct(id); err != nil {
		return fmt.Errorf("failed to delete product with ID %s: %w", id, err)
	}
	s.publish(ctx, events.ProductDeleted, store.Product{ID: id, UpdatedAt: s.now().UTC()})
	return nil
}

// Scan looks up a scanned barcode.
func (s *Service) Scan(ctx context.Context, scan ScanDto) (*ScanResultDto, error) {
	barcode := strings.TrimSpace(scan.Barcode)
	if barcode == "" {
		return nil, fmt.Errorf("failed to scan: %w: barcode is blank", inverrors.ErrInvalidProduct)
	}
	s.logger.DebugContext(ctx, "Barcode scanned", "barcode", barcode, "symbology", scan.Symbology)

	result := &ScanResultDto{Barcode: barcode}
	if p, ok := s.store.FindProductByBarcode(barcode); ok {
		result.Found = true
		result.Product = toDto(p)
	}
	s.scansCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("found", result.Found)))
	return result, nil
}

// View returns the current view.
func (s *Service) View(_ context.Context) (*StateDto, error) {
	return toStateDto(s.store.State()), nil
}

// SetSearchQuery sets the view filter.
func (s *Service) SetSearchQuery(ctx context.Context, query string) (*StateDto, error) {
	s.store.SetSearchQuery(query)
	return s.View(ctx)
}

// SetSort sets the view ordering.
func (s *Service) SetSort(ctx context.Context, sort SortDto) (*StateDto, error) {
	s.store.SetSortBy(store.SortField(sort.SortBy), store.SortOrder(sort.SortOrder))
	return s.View(ctx)
}

// ToggleSort flips the ordering for the current sort field, or switches to field ascending.
func (s *Service) ToggleSort(ctx context.Context, field string) (*StateDto, error) {
	params := s.store.Params()
	order := store.Asc
	if string(params.SortBy) == field && params.SortOrder == store.Asc {
		order = store.Desc
	}
	s.store.SetSortBy(store.SortField(field), order)
	return s.View(ctx)
}

func (s *Service) publish(ctx context.Context, changeType events.ChangeType, p store.Product) {
	event := events.ProductChangedEvent{
		Type:       changeType,
		ProductID:  p.ID,
		Name:       p.Name,
		Barcode:    p.Barcode,
		Quantity:   p.Quantity,
		OccurredAt: p.UpdatedAt,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish product event",
			"type", changeType, "ID", p.ID, "error", err)
	}
}

// toDto converts a store.Product to a ProductDto.
func toDto(p store.Product) *ProductDto {
	return &ProductDto{
		ID:        p.ID,
		Name:      p.Name,
		Quantity:  p.Quantity,
		Barcode:   p.Barcode,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func toDtos(products []store.Product) []ProductDto {
	out := make([]ProductDto, len(products))
	for i, p := range products {
		out[i] = *toDto(p)
	}
	return out
}

func toStateDto(st store.State) *StateDto {
	return &StateDto{
		Products:    toDtos(st.Products),
		SearchQuery: st.SearchQuery,
		SortBy:      string(st.SortBy),
		SortOrder:   string(st.SortOrder),
		IsLoading:   st.IsLoading,
	}
}
