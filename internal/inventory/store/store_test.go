package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	inverrors "github.com/abgdnv/inventory/internal/inventory/errors"
	"github.com/abgdnv/inventory/internal/inventory/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStorageDown = errors.New("storage down")

// failingStorage rejects every operation.
type failingStorage struct{}

func (failingStorage) Get(context.Context, string) ([]byte, error) { return nil, errStorageDown }
func (failingStorage) Set(context.Context, string, []byte) error   { return errStorageDown }

// blockingStorage blocks Get until release is closed.
type blockingStorage struct {
	kv.Storage
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStorage) Get(ctx context.Context, key string) ([]byte, error) {
	close(b.entered)
	<-b.release
	return b.Storage.Get(ctx, key)
}

// recordingStorage records every written value and sleeps on each write.
type recordingStorage struct {
	kv.Storage
	delay time.Duration

	mu     sync.Mutex
	writes [][]byte
}

func (r *recordingStorage) Set(ctx context.Context, key string, value []byte) error {
	time.Sleep(r.delay)
	r.mu.Lock()
	r.writes = append(r.writes, value)
	r.mu.Unlock()
	return r.Storage.Set(ctx, key, value)
}

// stepClock returns a time one second later on every call.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore(t *testing.T, storage kv.Storage, opts ...Option) *InventoryStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(storage, append([]Option{WithLogger(logger)}, opts...)...)
	t.Cleanup(func() {
		_ = s.Close(context.Background())
	})
	return s
}

func persisted(t *testing.T, storage kv.Storage) []Product {
	t.Helper()
	data, err := storage.Get(context.Background(), DefaultKey)
	require.NoError(t, err)
	var products []Product
	require.NoError(t, json.Unmarshal(data, &products))
	return products
}

func Test_InventoryStore_InitialState(t *testing.T) {
	// given
	s := newTestStore(t, kv.NewMemory())

	// when
	state := s.State()

	// then
	assert.Empty(t, state.Products)
	assert.Equal(t, "", state.SearchQuery)
	assert.Equal(t, SortByName, state.SortBy)
	assert.Equal(t, Asc, state.SortOrder)
	assert.False(t, state.IsLoading)
}

func Test_InventoryStore_AddProduct_UniqueIDs(t *testing.T) {
	// given
	s := newTestStore(t, kv.NewMemory())

	// when
	ids := make(map[string]struct{})
	for i := range 500 {
		p := s.AddProduct(NewProduct{Name: fmt.Sprintf("item %d", i), Quantity: i, Barcode: "490"})
		ids[p.ID] = struct{}{}
	}

	// then
	assert.Len(t, ids, 500, "all ids should be distinct")
	assert.Len(t, s.Products(), 500)
}

func Test_InventoryStore_AddProduct_Timestamps(t *testing.T) {
	// given
	clock := &stepClock{t: time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)}
	s := newTestStore(t, kv.NewMemory(), WithClock(clock.now))

	// when
	p := s.AddProduct(NewProduct{Name: "りんご", Quantity: 10, Barcode: "4901234567890"})

	// then
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "りんご", p.Name)
	assert.Equal(t, 10, p.Quantity)
	assert.Equal(t, "4901234567890", p.Barcode)
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)
	assert.Equal(t, time.Date(2025, 6, 20, 10, 0, 1, 0, time.UTC), p.CreatedAt)
}

func Test_InventoryStore_AddProduct_PersistsFullList(t *testing.T) {
	// given
	storage := kv.NewMemory()
	s := newTestStore(t, storage)

	// when
	s.AddProduct(NewProduct{Name: "りんご", Quantity: 10, Barcode: "4901234567890"})
	s.AddProduct(NewProduct{Name: "バナナ", Quantity: 25, Barcode: "4901234567891"})
	require.NoError(t, s.Flush(context.Background()))

	// then
	assert.Equal(t, s.Products(), persisted(t, storage))
}

func Test_InventoryStore_PersistedFormat(t *testing.T) {
	// given
	storage := kv.NewMemory()
	clock := &stepClock{t: time.Date(2025, 6, 20, 9, 59, 59, 0, time.UTC)}
	s := newTestStore(t, storage, WithClock(clock.now), WithIDGenerator(func() string { return "1" }))

	// when
	s.AddProduct(NewProduct{Name: "りんご", Quantity: 10, Barcode: "4901234567890"})
	require.NoError(t, s.Flush(context.Background()))

	// then
	data, err := storage.Get(context.Background(), "inventory_products")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1","name":"りんご","quantity":10,"barcode":"4901234567890","createdAt":"2025-06-20T10:00:00Z","updatedAt":"2025-06-20T10:00:00Z"}]`, string(data))
}

func Test_InventoryStore_RoundTrip(t *testing.T) {
	testCases := []struct {
		name  string
		names []string
	}{
		{name: "empty list", names: nil},
		{name: "single product", names: []string{"りんご"}},
		{name: "several products", names: []string{"りんご", "バナナ", "オレンジ", "パン"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			storage := kv.NewMemory()
			s := newTestStore(t, storage)
			for i, n := range tc.names {
				s.AddProduct(NewProduct{Name: n, Quantity: i, Barcode: fmt.Sprintf("49012345678%02d", i)})
			}
			if len(tc.names) == 0 {
				// persist an empty list explicitly through a add/delete pair
				p := s.AddProduct(NewProduct{Name: "tmp"})
				require.NoError(t, s.DeleteProduct(p.ID))
			}
			require.NoError(t, s.Flush(context.Background()))

			// when
			reloaded := newTestStore(t, storage)
			reloaded.LoadProducts(context.Background())

			// then
			assert.ElementsMatch(t, s.Products(), reloaded.Products())
			assert.False(t, reloaded.IsLoading())
		})
	}
}

func Test_InventoryStore_LoadProducts_LegacyTimestamps(t *testing.T) {
	// given
	storage := kv.NewMemory()
	payload := `[{"id":"1","name":"りんご","quantity":10,"barcode":"4901234567890","createdAt":"2025-06-20T10:00:00.000Z","updatedAt":"2025-06-25T10:00:00.000Z"}]`
	require.NoError(t, storage.Set(context.Background(), DefaultKey, []byte(payload)))
	s := newTestStore(t, storage)

	// when
	s.LoadProducts(context.Background())

	// then
	products := s.Products()
	require.Len(t, products, 1)
	assert.Equal(t, time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC), products[0].CreatedAt.UTC())
	assert.Equal(t, time.Date(2025, 6, 25, 10, 0, 0, 0, time.UTC), products[0].UpdatedAt.UTC())
}

func Test_InventoryStore_LoadProducts_Failures(t *testing.T) {
	testCases := []struct {
		name    string
		storage func(t *testing.T) kv.Storage
	}{
		{
			name:    "missing key",
			storage: func(t *testing.T) kv.Storage { return kv.NewMemory() },
		},
		{
			name: "malformed data",
			storage: func(t *testing.T) kv.Storage {
				m := kv.NewMemory()
				require.NoError(t, m.Set(context.Background(), DefaultKey, []byte(`{not json`)))
				return m
			},
		},
		{
			name: "wrong shape",
			storage: func(t *testing.T) kv.Storage {
				m := kv.NewMemory()
				require.NoError(t, m.Set(context.Background(), DefaultKey, []byte(`{"id":"1"}`)))
				return m
			},
		},
		{
			name:    "read error",
			storage: func(t *testing.T) kv.Storage { return failingStorage{} },
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			s := newTestStore(t, tc.storage(t))

			// when
			s.LoadProducts(context.Background())

			// then
			assert.Empty(t, s.Products())
			assert.False(t, s.IsLoading(), "loading flag must be cleared")
		})
	}
}

func Test_InventoryStore_LoadProducts_DropsDuplicateIDs(t *testing.T) {
	// given
	storage := kv.NewMemory()
	payload := `[{"id":"1","name":"first","quantity":1,"barcode":"a","createdAt":"2025-06-20T10:00:00Z","updatedAt":"2025-06-20T10:00:00Z"},
{"id":"1","name":"second","quantity":2,"barcode":"b","createdAt":"2025-06-20T10:00:00Z","updatedAt":"2025-06-20T10:00:00Z"}]`
	require.NoError(t, storage.Set(context.Background(), DefaultKey, []byte(payload)))
	s := newTestStore(t, storage)

	// when
	s.LoadProducts(context.Background())

	// then
	products := s.Products()
	require.Len(t, products, 1)
	assert.Equal(t, "first", products[0].Name)
}

func Test_InventoryStore_LoadProducts_LoadingFlag(t *testing.T) {
	// given
	storage := &blockingStorage{Storage: kv.NewMemory(), entered: make(chan struct{}), release: make(chan struct{})}
	s := newTestStore(t, storage)
	done := make(chan struct{})

	// when
	go func() {
		s.LoadProducts(context.Background())
		close(done)
	}()
	<-storage.entered

	// then
	assert.True(t, s.IsLoading())
	assert.True(t, s.State().IsLoading)
	close(storage.release)
	<-done
	assert.False(t, s.IsLoading())
}

func Test_InventoryStore_LoadProducts_DoesNotWrite(t *testing.T) {
	// given
	storage := &recordingStorage{Storage: kv.NewMemory()}
	s := newTestStore(t, storage)

	// when
	s.LoadProducts(context.Background())
	require.NoError(t, s.Flush(context.Background()))

	// then
	assert.Empty(t, storage.writes)
}

func Test_InventoryStore_MutationDuringLoadAppliesOnTopOfSnapshot(t *testing.T) {
	// given
	memory := kv.NewMemory()
	stored, err := json.Marshal([]Product{
		{ID: "old-1", Name: "りんご", Quantity: 10, Barcode: "4901234567890"},
		{ID: "old-2", Name: "バナナ", Quantity: 25, Barcode: "4901234567891"},
	})
	require.NoError(t, err)
	require.NoError(t, memory.Set(context.Background(), DefaultKey, stored))
	storage := &blockingStorage{Storage: memory, entered: make(chan struct{}), release: make(chan struct{})}
	s := newTestStore(t, storage)

	loaded := make(chan struct{})
	go func() {
		s.LoadProducts(context.Background())
		close(loaded)
	}()
	<-storage.entered

	// when
	added := make(chan Product, 1)
	go func() {
		added <- s.AddProduct(NewProduct{Name: "牛乳", Quantity: 3, Barcode: "4900000000000"})
	}()
	assert.Never(t, func() bool { return len(added) > 0 }, 50*time.Millisecond, 5*time.Millisecond,
		"a mutation waits until the snapshot is loaded")
	close(storage.release)
	<-loaded
	p := <-added
	require.NoError(t, s.Flush(context.Background()))

	// then
	assert.Equal(t, []string{"りんご", "バナナ", "牛乳"}, names(s.Products()))
	assert.Equal(t, []string{"りんご", "バナナ", "牛乳"}, names(persisted(t, memory)))
	assert.Equal(t, p.ID, persisted(t, memory)[2].ID)
}

func Test_InventoryStore_UpdateProduct(t *testing.T) {
	// given
	clock := &stepClock{t: time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)}
	storage := kv.NewMemory()
	s := newTestStore(t, storage, WithClock(clock.now))
	target := s.AddProduct(NewProduct{Name: "りんご", Quantity: 10, Barcode: "4901234567890"})
	other := s.AddProduct(NewProduct{Name: "バナナ", Quantity: 25, Barcode: "4901234567891"})
	name := "青りんご"

	// when
	updated, err := s.UpdateProduct(target.ID, ProductUpdate{Name: &name})

	// then
	require.NoError(t, err)
	assert.Equal(t, target.ID, updated.ID)
	assert.Equal(t, "青りんご", updated.Name)
	assert.Equal(t, 10, updated.Quantity, "untouched fields keep their value")
	assert.Equal(t, "4901234567890", updated.Barcode)
	assert.Equal(t, target.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(target.UpdatedAt))

	found, ok := s.FindProductByID(other.ID)
	require.True(t, ok)
	assert.Equal(t, other, found, "other products are unchanged")

	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, s.Products(), persisted(t, storage))
}

func Test_InventoryStore_UpdateQuantity(t *testing.T) {
	// given
	clock := &stepClock{t: time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)}
	s := newTestStore(t, kv.NewMemory(), WithClock(clock.now))
	p := s.AddProduct(NewProduct{Name: "オレンジ", Quantity: 5, Barcode: "4901234567892"})

	// when
	updated, err := s.UpdateQuantity(p.ID, -3)

	// then
	require.NoError(t, err)
	assert.Equal(t, -3, updated.Quantity, "the store does not clamp")
	assert.True(t, updated.UpdatedAt.After(p.UpdatedAt))
	assert.Equal(t, p.Name, updated.Name)
}

func Test_InventoryStore_AdjustQuantity(t *testing.T) {
	testCases := []struct {
		name     string
		start    int
		delta    int
		expected int
	}{
		{name: "increment", start: 5, delta: 1, expected: 6},
		{name: "decrement", start: 5, delta: -1, expected: 4},
		{name: "stops at zero", start: 1, delta: -3, expected: 0},
		{name: "zero stays zero", start: 0, delta: -1, expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			s := newTestStore(t, kv.NewMemory())
			p := s.AddProduct(NewProduct{Name: "オレンジ", Quantity: tc.start, Barcode: "4901234567892"})

			// when
			updated, err := s.AdjustQuantity(p.ID, tc.delta)

			// then
			require.NoError(t, err)
			assert.Equal(t, tc.expected, updated.Quantity)
		})
	}
}

func Test_InventoryStore_AdjustQuantity_Concurrent(t *testing.T) {
	// given
	s := newTestStore(t, kv.NewMemory())
	p := s.AddProduct(NewProduct{Name: "パン", Quantity: 0, Barcode: "4901234567893"})

	// when
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AdjustQuantity(p.ID, 1)
		}()
	}
	wg.Wait()

	// then
	got, ok := s.FindProductByID(p.ID)
	require.True(t, ok)
	assert.Equal(t, 50, got.Quantity)
}

func Test_InventoryStore_AddProductsIfEmpty(t *testing.T) {
	// given
	storage := &recordingStorage{Storage: kv.NewMemory()}
	s := newTestStore(t, storage)
	items := []NewProduct{
		{Name: "りんご", Quantity: 10, Barcode: "4901234567890"},
		{Name: "バナナ", Quantity: 25, Barcode: "4901234567891"},
	}

	// when
	first := s.AddProductsIfEmpty(items)
	second := s.AddProductsIfEmpty(items)
	require.NoError(t, s.Flush(context.Background()))

	// then
	assert.Len(t, first, 2)
	assert.Nil(t, second)
	assert.Equal(t, []string{"りんご", "バナナ"}, names(s.Products()))
	assert.Len(t, storage.writes, 1, "the whole batch is persisted at once")
}

func Test_InventoryStore_UpdatedAtNeverMovesBackwards(t *testing.T) {
	// given
	current := time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return current }
	s := newTestStore(t, kv.NewMemory(), WithClock(clock))
	p := s.AddProduct(NewProduct{Name: "パン", Quantity: 15, Barcode: "4901234567893"})

	// when
	current = current.Add(-time.Hour)
	updated, err := s.UpdateQuantity(p.ID, 14)

	// then
	require.NoError(t, err)
	assert.Equal(t, p.UpdatedAt, updated.UpdatedAt)
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))
}

func Test_InventoryStore_MutationsOnUnknownID(t *testing.T) {
	// given
	storage := &recordingStorage{Storage: kv.NewMemory()}
	s := newTestStore(t, storage)
	p := s.AddProduct(NewProduct{Name: "りんご", Quantity: 10, Barcode: "4901234567890"})
	require.NoError(t, s.Flush(context.Background()))
	before := s.Products()
	name := "x"

	// when
	_, errUpdate := s.UpdateProduct("missing", ProductUpdate{Name: &name})
	_, errQty := s.UpdateQuantity("missing", 1)
	errDelete := s.DeleteProduct("missing")
	require.NoError(t, s.Flush(context.Background()))

	// then
	assert.ErrorIs(t, errUpdate, inverrors.ErrProductNotFound)
	assert.ErrorIs(t, errQty, inverrors.ErrProductNotFound)
	assert.ErrorIs(t, errDelete, inverrors.ErrProductNotFound)
	assert.Equal(t, before, s.Products())
	assert.Len(t, storage.writes, 1, "no-op mutations are not persisted")
	assert.Equal(t, p.ID, s.Products()[0].ID)
}

func Test_InventoryStore_DeleteProduct_Idempotent(t *testing.T) {
	// given
	storage := kv.NewMemory()
	s := newTestStore(t, storage)
	keep := s.AddProduct(NewProduct{Name: "りんご", Quantity: 10, Barcode: "4901234567890"})
	drop := s.AddProduct(NewProduct{Name: "バナナ", Quantity: 25, Barcode: "4901234567891"})

	// when
	first := s.DeleteProduct(drop.ID)
	afterFirst := s.Products()
	second := s.DeleteProduct(drop.ID)

	// then
	require.NoError(t, first)
	assert.ErrorIs(t, second, inverrors.ErrProductNotFound)
	assert.Equal(t, afterFirst, s.Products())
	assert.Equal(t, []Product{keep}, s.Products())

	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, []Product{keep}, persisted(t, storage))
}

func Test_InventoryStore_FindProductByBarcode(t *testing.T) {
	// given
	s := newTestStore(t, kv.NewMemory())
	apple := s.AddProduct(NewProduct{Name: "りんご", Quantity: 10, Barcode: "4901234567890"})
	s.AddProduct(NewProduct{Name: "バナナ", Quantity: 25, Barcode: "4901234567891"})
	s.AddProduct(NewProduct{Name: "りんご (dup)", Quantity: 1, Barcode: "4901234567890"})
	s.AddProduct(NewProduct{Name: "Code", Quantity: 1, Barcode: "ABC"})

	testCases := []struct {
		name      string
		barcode   string
		expected  Product
		expectHit bool
	}{
		{name: "exact match returns first in list order", barcode: "4901234567890", expected: apple, expectHit: true},
		{name: "absent barcode", barcode: "0000000000000", expectHit: false},
		{name: "prefix is not a match", barcode: "490123456789", expectHit: false},
		{name: "no trimming", barcode: " 4901234567890", expectHit: false},
		{name: "case sensitive", barcode: "abc", expectHit: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			found, ok := s.FindProductByBarcode(tc.barcode)

			// then
			assert.Equal(t, tc.expectHit, ok)
			if tc.expectHit {
				assert.Equal(t, tc.expected, found)
			}
		})
	}
}

func Test_InventoryStore_PersistenceFailureKeepsMemory(t *testing.T) {
	// given
	s := newTestStore(t, failingStorage{})

	// when
	p := s.AddProduct(NewProduct{Name: "りんご", Quantity: 10, Barcode: "4901234567890"})
	err := s.Flush(context.Background())

	// then
	assert.ErrorIs(t, err, errStorageDown, "the write failure is reported by Flush")
	found, ok := s.FindProductByID(p.ID)
	require.True(t, ok, "the in-memory append is not rolled back")
	assert.Equal(t, p, found)
}

func Test_InventoryStore_MutationVisibleBeforeWrite(t *testing.T) {
	// given
	storage := &recordingStorage{Storage: kv.NewMemory(), delay: 50 * time.Millisecond}
	s := newTestStore(t, storage)

	// when
	p := s.AddProduct(NewProduct{Name: "りんご", Quantity: 10, Barcode: "4901234567890"})

	// then
	found, ok := s.FindProductByBarcode("4901234567890")
	require.True(t, ok)
	assert.Equal(t, p, found)
	assert.Len(t, s.View(), 1)
}

func Test_InventoryStore_WritesAreSerialized(t *testing.T) {
	// given
	storage := &recordingStorage{Storage: kv.NewMemory(), delay: 2 * time.Millisecond}
	s := newTestStore(t, storage)

	// when
	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 10 {
				p := s.AddProduct(NewProduct{Name: fmt.Sprintf("w%d-%d", w, i), Quantity: i})
				_, _ = s.UpdateQuantity(p.ID, i+1)
			}
		}()
	}
	wg.Wait()
	require.NoError(t, s.Flush(context.Background()))

	// then
	assert.Equal(t, s.Products(), persisted(t, storage), "last write carries the final state")
	storage.mu.Lock()
	defer storage.mu.Unlock()
	prev := -1
	for _, w := range storage.writes {
		var products []Product
		require.NoError(t, json.Unmarshal(w, &products))
		assert.GreaterOrEqual(t, len(products), prev, "snapshots reach storage in issue order")
		prev = len(products)
	}
}

func Test_InventoryStore_Close(t *testing.T) {
	// given
	storage := &recordingStorage{Storage: kv.NewMemory(), delay: 10 * time.Millisecond}
	s := New(storage, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.AddProduct(NewProduct{Name: "りんご", Quantity: 10, Barcode: "4901234567890"})

	// when
	err := s.Close(context.Background())

	// then
	require.NoError(t, err)
	assert.Len(t, persisted(t, storage), 1, "pending writes are drained on close")
}

func Test_InventoryStore_Close_ReportsFailedFinalWrite(t *testing.T) {
	// given
	s := New(failingStorage{}, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.AddProduct(NewProduct{Name: "りんご", Quantity: 10, Barcode: "4901234567890"})

	// when
	err := s.Close(context.Background())

	// then
	assert.ErrorIs(t, err, errStorageDown)
}

func Test_InventoryStore_ViewReturnsCopy(t *testing.T) {
	// given
	s := newTestStore(t, kv.NewMemory())
	s.AddProduct(NewProduct{Name: "Apple", Quantity: 10, Barcode: "1"})
	s.AddProduct(NewProduct{Name: "Banana", Quantity: 25, Barcode: "2"})

	// when
	view := s.View()
	view[0].Name = "changed"
	state := s.State()
	state.Products[1].Name = "changed"

	// then
	assert.Equal(t, []string{"Apple", "Banana"}, names(s.View()))
	assert.Equal(t, []string{"Apple", "Banana"}, names(s.State().Products))
}

func Test_InventoryStore_ViewParams(t *testing.T) {
	// given
	s := newTestStore(t, kv.NewMemory())

	// when
	s.SetSearchQuery("ban")
	s.SetSortBy(SortByQuantity, "")

	// then
	assert.Equal(t, ViewParams{SearchQuery: "ban", SortBy: SortByQuantity, SortOrder: Asc}, s.Params())

	// when
	s.SetSortBy(SortByUpdatedAt, Desc)

	// then
	assert.Equal(t, ViewParams{SearchQuery: "ban", SortBy: SortByUpdatedAt, SortOrder: Desc}, s.Params())
}

func Test_InventoryStore_ViewCacheInvalidation(t *testing.T) {
	// given
	clock := &stepClock{t: time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)}
	s := newTestStore(t, kv.NewMemory(), WithClock(clock.now))
	apple := s.AddProduct(NewProduct{Name: "Apple", Quantity: 10, Barcode: "1"})
	banana := s.AddProduct(NewProduct{Name: "Banana", Quantity: 25, Barcode: "2"})
	assert.Equal(t, []string{"Apple", "Banana"}, names(s.View()))

	// products change
	s.AddProduct(NewProduct{Name: "Avocado", Quantity: 1, Barcode: "3"})
	assert.Equal(t, []string{"Apple", "Avocado", "Banana"}, names(s.View()))

	// searchQuery changes
	s.SetSearchQuery("a")
	assert.Equal(t, []string{"Apple", "Avocado", "Banana"}, names(s.View()))
	s.SetSearchQuery("ban")
	assert.Equal(t, []string{"Banana"}, names(s.View()))
	s.SetSearchQuery("")

	// sortBy changes
	s.SetSortBy(SortByQuantity, Asc)
	assert.Equal(t, []string{"Avocado", "Apple", "Banana"}, names(s.View()))

	// sortOrder changes
	s.SetSortBy(SortByQuantity, Desc)
	assert.Equal(t, []string{"Banana", "Apple", "Avocado"}, names(s.View()))

	// in-place update changes
	_, err := s.UpdateQuantity(apple.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple", "Banana", "Avocado"}, names(s.View()))

	// delete changes
	require.NoError(t, s.DeleteProduct(banana.ID))
	assert.Equal(t, []string{"Apple", "Avocado"}, names(s.View()))
}

func names(products []Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}
	return out
}
