// Package store provides the in-memory inventory store and its persistence to a key-value backend.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	inverrors "github.com/abgdnv/inventory/internal/inventory/errors"
	"github.com/abgdnv/inventory/internal/inventory/kv"
	"github.com/google/uuid"
)

const (
	// DefaultKey is the storage key holding the product snapshot.
	DefaultKey = "inventory_products"

	defaultWriteTimeout = 5 * time.Second
)

var errWriterClosed = errors.New("inventory store writer is closed")

// State is what a UI needs to render the inventory list.
type State struct {
	Products []Product `json:"products"`
	ViewParams
	IsLoading bool `json:"isLoading"`
}

// InventoryStore owns the product list and the view parameters.
// Mutations are applied to memory synchronously; the resulting snapshot is persisted
// by a single background writer, best-effort.
type InventoryStore struct {
	loadMu    sync.RWMutex // held for writing by LoadProducts; mutations wait on it
	mu        sync.RWMutex
	products  []Product
	params    ViewParams
	isLoading bool
	version   uint64 // bumped on every change of products
	seq       uint64 // bumped on every snapshot handed to the writer
	cache     viewCache

	key    string
	kv     kv.Storage
	writer *writer
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// Option configures an InventoryStore.
type Option func(*options)

type options struct {
	key          string
	writeTimeout time.Duration
	now          func() time.Time
	newID        func() string
	logger       *slog.Logger
}

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(o *options) { o.key = key }
}

// WithWriteTimeout bounds every single snapshot write.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) { o.writeTimeout = d }
}

// WithClock overrides the time source used for createdAt/updatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithIDGenerator overrides the product ID generator.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) { o.newID = newID }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates an empty InventoryStore persisting to storage and starts its writer.
// Call Close to drain pending writes.
func New(storage kv.Storage, opts ...Option) *InventoryStore {
	o := options{
		key:          DefaultKey,
		writeTimeout: defaultWriteTimeout,
		now:          time.Now,
		newID:        newID,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With("component", "store")

	return &InventoryStore{
		products: []Product{},
		params:   ViewParams{SortBy: SortByName, SortOrder: Asc},
		key:      o.key,
		kv:       storage,
		writer:   newWriter(storage, o.key, o.writeTimeout, logger),
		now:      o.now,
		newID:    o.newID,
		logger:   logger,
	}
}

// newID returns a time-ordered UUIDv7; ids generated by one process are strictly increasing.
func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// LoadProducts replaces the product list with the persisted snapshot.
// A missing key, a read error or a malformed snapshot leaves the list untouched; nothing is returned
// to the caller. The loading flag is cleared on every path.
// Mutations issued while the snapshot is being read block until it is in memory, then apply on top of it.
func (s *InventoryStore) LoadProducts(ctx context.Context) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	s.setLoading(true)
	defer s.setLoading(false)

	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			s.logger.InfoContext(ctx, "No persisted products found", "key", s.key)
			return
		}
		s.logger.ErrorContext(ctx, "Failed to read persisted products", "key", s.key, "error", err)
		return
	}

	var loaded []Product
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.logger.ErrorContext(ctx, "Failed to decode persisted products", "key", s.key, "error", err)
		return
	}
	if loaded == nil {
		// a persisted JSON null is treated like an empty list
		loaded = []Product{}
	}
	loaded = s.dedupe(ctx, loaded)

	s.mu.Lock()
	s.products = loaded
	s.version++
	s.mu.Unlock()
	s.logger.InfoContext(ctx, "Products loaded", "count", len(loaded))
}

// dedupe drops products whose id was already seen, keeping the first occurrence.
func (s *InventoryStore) dedupe(ctx context.Context, products []Product) []Product {
	seen := make(map[string]struct{}, len(products))
	out := products[:0]
	for _, p := range products {
		if _, dup := seen[p.ID]; dup {
			s.logger.WarnContext(ctx, "Dropping product with duplicate ID", "ID", p.ID, "Name", p.Name)
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

func (s *InventoryStore) setLoading(v bool) {
	s.mu.Lock()
	s.isLoading = v
	s.mu.Unlock()
}

// IsLoading reports whether LoadProducts is in progress.
func (s *InventoryStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isLoading
}

// AddProduct appends a new product and schedules persistence.
func (s *InventoryStore) AddProduct(in NewProduct) Product {
	s.loadMu.RLock()
	defer s.loadMu.RUnlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	p := Product{
		ID:        s.newID(),
		Name:      in.Name,
		Quantity:  in.Quantity,
		Barcode:   in.Barcode,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.products = append(s.products, p)
	s.commitLocked()
	return p
}

// AddProductsIfEmpty appends items only when the list is empty, in a single persisted change.
// Returns the added products, or nil when the list already had products.
func (s *InventoryStore) AddProductsIfEmpty(items []NewProduct) []Product {
	s.loadMu.RLock()
	defer s.loadMu.RUnlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.products) > 0 || len(items) == 0 {
		return nil
	}
	added := make([]Product, 0, len(items))
	for _, in := range items {
		now := s.now().UTC()
		added = append(added, Product{
			ID:        s.newID(),
			Name:      in.Name,
			Quantity:  in.Quantity,
			Barcode:   in.Barcode,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	s.products = append(s.products, added...)
	s.commitLocked()
	return added
}

// UpdateProduct merges the non-nil fields of u into the product with the given id.
// Returns ErrProductNotFound, leaving the list unchanged, if no such product exists.
func (s *InventoryStore) UpdateProduct(id string, u ProductUpdate) (Product, error) {
	return s.mutate(id, u.apply)
}

// UpdateQuantity sets the quantity of the product with the given id.
// No lower bound is enforced here.
// Returns ErrProductNotFound, leaving the list unchanged, if no such product exists.
func (s *InventoryStore) UpdateQuantity(id string, quantity int) (Product, error) {
	return s.mutate(id, func(p *Product) { p.Quantity = quantity })
}

// AdjustQuantity adds delta to the quantity of the product with the given id, stopping at zero.
// The read and the write happen under one lock, so concurrent adjustments do not lose updates.
func (s *InventoryStore) AdjustQuantity(id string, delta int) (Product, error) {
	return s.mutate(id, func(p *Product) { p.Quantity = max(0, p.Quantity+delta) })
}

func (s *InventoryStore) mutate(id string, fn func(*Product)) (Product, error) {
	s.loadMu.RLock()
	defer s.loadMu.RUnlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return Product{}, fmt.Errorf("product %s: %w", id, inverrors.ErrProductNotFound)
	}

	p := &s.products[i]
	fn(p)
	p.UpdatedAt = s.touch(p.UpdatedAt)
	s.commitLocked()
	return *p, nil
}

// DeleteProduct removes the product with the given id.
// Returns ErrProductNotFound, leaving the list unchanged, if no such product exists.
func (s *InventoryStore) DeleteProduct(id string) error {
	s.loadMu.RLock()
	defer s.loadMu.RUnlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("product %s: %w", id, inverrors.ErrProductNotFound)
	}
	s.products = slices.Delete(s.products, i, i+1)
	s.commitLocked()
	return nil
}

// FindProductByBarcode returns the first product in list order whose barcode equals barcode exactly.
func (s *InventoryStore) FindProductByBarcode(barcode string) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.Barcode == barcode {
			return p, true
		}
	}
	return Product{}, false
}

// FindProductByID returns the product with the given id.
func (s *InventoryStore) FindProductByID(id string) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.products[i], true
	}
	return Product{}, false
}

// Products returns a copy of the list in storage order.
func (s *InventoryStore) Products() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, len(s.products))
	copy(out, s.products)
	return out
}

// SetSearchQuery sets the view filter.
func (s *InventoryStore) SetSearchQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.SearchQuery = query
}

// SetSortBy sets the view ordering. An empty order means ascending.
func (s *InventoryStore) SetSortBy(field SortField, order SortOrder) {
	if order == "" {
		order = Asc
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params.SortBy = field
	s.params.SortOrder = order
}

// Params returns the current view parameters.
func (s *InventoryStore) Params() ViewParams {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// View returns a copy of the filtered and sorted product list for the current view parameters.
func (s *InventoryStore) View() []Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.viewLocked())
}

// State returns the view together with its parameters and the loading flag.
func (s *InventoryStore) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Products:   slices.Clone(s.viewLocked()),
		ViewParams: s.params,
		IsLoading:  s.isLoading,
	}
}

func (s *InventoryStore) viewLocked() []Product {
	if cached, ok := s.cache.get(s.version, s.params); ok {
		return cached
	}
	result := FilterSort(Snapshot{Products: s.products, ViewParams: s.params})
	s.cache.put(s.version, s.params, result)
	return result
}

// Flush waits until every mutation made so far has been written (or has failed to be written)
// and returns the error of that write.
func (s *InventoryStore) Flush(ctx context.Context) error {
	s.mu.RLock()
	seq := s.seq
	s.mu.RUnlock()
	return s.writer.flush(ctx, seq)
}

// Close drains pending writes and stops the writer.
// Returns the error of the last write, so a failed final snapshot is reported.
func (s *InventoryStore) Close(ctx context.Context) error {
	return s.writer.close(ctx)
}

// commitLocked bumps the list version and hands the encoded snapshot to the writer.
// Must be called with mu held so that snapshots are enqueued in mutation order.
func (s *InventoryStore) commitLocked() {
	s.version++
	payload, err := json.Marshal(s.products)
	if err != nil {
		// Product holds only strings, ints and times; this cannot happen in practice.
		s.logger.ErrorContext(context.Background(), "Failed to encode products", "error", err)
		return
	}
	s.seq++
	s.writer.enqueue(s.seq, payload)
}

// touch returns the new updatedAt: now, but never before prev.
func (s *InventoryStore) touch(prev time.Time) time.Time {
	now := s.now().UTC()
	if now.Before(prev) {
		return prev
	}
	return now
}

func (s *InventoryStore) indexLocked(id string) int {
	for i, p := range s.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}
