package cart

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/adoptipet/adoptipet-client/pkg/errors"
)

func line(id string, price int64, qty int) Line {
	return Line{
		Product:  Product{ID: id, Name: "produit " + id, Price: decimal.NewFromInt(price)},
		Quantity: qty,
	}
}

func snapshot(total int64, lines ...Line) *Cart {
	return &Cart{Items: lines, TotalPrice: decimal.NewFromInt(total)}
}

type stubAPI struct {
	mu sync.Mutex

	fetchCart *Cart
	fetchErr  error
	addCart   *Cart
	addErr    error
	updCart   *Cart
	updErr    error
	rmCart    *Cart
	rmErr     error
	clearErr  error

	fetchHook func()
}

func (s *stubAPI) Fetch(ctx context.Context) (*Cart, error) {
	if s.fetchHook != nil {
		s.fetchHook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.fetchCart, nil
}

func (s *stubAPI) Add(ctx context.Context, productID string, quantity int) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addCart, s.addErr
}

func (s *stubAPI) UpdateQuantity(ctx context.Context, productID string, quantity int) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updCart, s.updErr
}

func (s *stubAPI) Remove(ctx context.Context, productID string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rmCart, s.rmErr
}

func (s *stubAPI) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearErr
}

func newReadyStore(t *testing.T, api *stubAPI) *Store {
	t.Helper()
	store, err := NewStore(api, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store.Load(context.Background())
	if store.State() != StateReady {
		t.Fatalf("expected ready store, got %s (err=%v)", store.State(), store.Err())
	}
	return store
}

func TestCountMatchesSnapshot(t *testing.T) {
	t.Parallel()

	api := &stubAPI{fetchCart: snapshot(20, line("p1", 10, 2))}
	store := newReadyStore(t, api)

	if got := store.Count(); got != 2 {
		t.Fatalf("expected count 2, got %d", got)
	}

	cart := store.Cart()
	sum := 0
	for _, l := range cart.Items {
		sum += l.Quantity
	}
	if store.Count() != sum {
		t.Fatalf("count %d does not match snapshot sum %d", store.Count(), sum)
	}
}

func TestEmptyCartNormalization(t *testing.T) {
	t.Parallel()

	api := &stubAPI{fetchErr: pkgerrors.New(pkgerrors.CodeNotFound, "panier vide")}
	store, err := NewStore(api, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store.Load(context.Background())

	if store.State() != StateReady {
		t.Fatalf("expected ready state, got %s", store.State())
	}
	cart := store.Cart()
	if cart == nil || len(cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", cart)
	}
	if !cart.TotalPrice.IsZero() {
		t.Fatalf("expected zero total, got %s", cart.TotalPrice)
	}
	if store.Count() != 0 {
		t.Fatalf("expected count 0, got %d", store.Count())
	}
	if store.Err() != nil {
		t.Fatalf("empty cart is not an error, got %v", store.Err())
	}
}

func TestInitialLoadFailureErrorsStore(t *testing.T) {
	t.Parallel()

	api := &stubAPI{fetchErr: pkgerrors.New(pkgerrors.CodeTransport, "impossible de contacter le serveur")}
	store, err := NewStore(api, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store.Load(context.Background())

	if store.State() != StateErrored {
		t.Fatalf("expected errored state, got %s", store.State())
	}
	if store.Cart() != nil {
		t.Fatal("cart must stay nil after a failed initial load")
	}
	if store.Err() == nil {
		t.Fatal("expected load error to be recorded")
	}
	if store.Count() != 0 {
		t.Fatalf("expected count 0, got %d", store.Count())
	}
}

func TestRefreshRecoversErroredStore(t *testing.T) {
	t.Parallel()

	api := &stubAPI{fetchErr: pkgerrors.New(pkgerrors.CodeTransport, "down")}
	store, _ := NewStore(api, nil)
	store.Load(context.Background())
	if store.State() != StateErrored {
		t.Fatalf("expected errored, got %s", store.State())
	}

	api.mu.Lock()
	api.fetchErr = nil
	api.fetchCart = snapshot(10, line("p1", 10, 1))
	api.mu.Unlock()

	store.Refresh(context.Background())
	if store.State() != StateReady {
		t.Fatalf("expected ready after refresh, got %s", store.State())
	}
	if store.Count() != 1 {
		t.Fatalf("expected count 1, got %d", store.Count())
	}
	if store.Err() != nil {
		t.Fatalf("expected error cleared, got %v", store.Err())
	}
}

func TestRefreshFailureKeepsReadySnapshot(t *testing.T) {
	t.Parallel()

	api := &stubAPI{fetchCart: snapshot(20, line("p1", 10, 2))}
	store := newReadyStore(t, api)

	api.mu.Lock()
	api.fetchErr = pkgerrors.New(pkgerrors.CodeDependency, "maintenance")
	api.mu.Unlock()

	store.Refresh(context.Background())

	if store.State() != StateReady {
		t.Fatalf("refresh failure must not error a ready store, got %s", store.State())
	}
	if store.Count() != 2 {
		t.Fatalf("snapshot must be untouched, got count %d", store.Count())
	}
	if store.Err() == nil {
		t.Fatal("expected refresh error to be recorded")
	}
}

func TestMutationReplacesNeverMerges(t *testing.T) {
	t.Parallel()

	api := &stubAPI{fetchCart: snapshot(30, line("p1", 10, 3))}
	store := newReadyStore(t, api)

	// Server-side merge: adding 2 yields quantity 5 on an existing line of 3.
	api.addCart = snapshot(50, line("p1", 10, 5))

	res := store.AddItem(context.Background(), "p1", 2)
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}

	cart := store.Cart()
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 5 {
		t.Fatalf("expected server quantity 5, got %+v", cart.Items)
	}
	if store.Count() != 5 {
		t.Fatalf("expected count 5, got %d", store.Count())
	}
}

func TestMutationFailureLeavesSnapshotUntouched(t *testing.T) {
	t.Parallel()

	api := &stubAPI{fetchCart: snapshot(20, line("p1", 10, 2))}
	store := newReadyStore(t, api)
	before := store.Cart()

	api.updErr = pkgerrors.New(pkgerrors.CodeValidation, "quantite invalide")

	res := store.UpdateItemQuantity(context.Background(), "p1", 9)
	if res.Success {
		t.Fatal("expected failure result")
	}
	if res.Message != "quantite invalide" {
		t.Fatalf("expected server message, got %q", res.Message)
	}

	after := store.Cart()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("snapshot changed on failure: before=%+v after=%+v", before, after)
	}
	if store.State() != StateReady {
		t.Fatalf("mutation failure must not error the store, got %s", store.State())
	}
}

func TestRemoveAbsentProductIsDistinguished(t *testing.T) {
	t.Parallel()

	api := &stubAPI{fetchCart: snapshot(20, line("p1", 10, 2))}
	store := newReadyStore(t, api)

	api.rmErr = pkgerrors.New(pkgerrors.CodeNotInCart, "ce produit n'est pas dans votre panier")

	res := store.RemoveItem(context.Background(), "p2")
	if res.Success {
		t.Fatal("expected failure result")
	}
	if res.Message != "ce produit n'est pas dans votre panier" {
		t.Fatalf("expected not-in-cart message, got %q", res.Message)
	}
	if store.Count() != 2 {
		t.Fatalf("snapshot must be untouched, got count %d", store.Count())
	}
}

func TestClearIsIdempotent(t *testing.T) {
	t.Parallel()

	api := &stubAPI{fetchErr: pkgerrors.New(pkgerrors.CodeNotFound, "panier vide")}
	store, _ := NewStore(api, nil)
	store.Load(context.Background())

	res := store.Clear(context.Background())
	if !res.Success {
		t.Fatalf("clearing an empty cart must succeed, got %+v", res)
	}
	if store.Count() != 0 {
		t.Fatalf("expected count 0, got %d", store.Count())
	}

	res = store.Clear(context.Background())
	if !res.Success || store.Count() != 0 {
		t.Fatalf("second clear must also succeed, got %+v count=%d", res, store.Count())
	}
}

func TestEndToEndScenario(t *testing.T) {
	t.Parallel()

	api := &stubAPI{fetchCart: snapshot(20, line("p1", 10, 2))}
	store := newReadyStore(t, api)
	if store.Count() != 2 {
		t.Fatalf("expected count 2 after load, got %d", store.Count())
	}

	api.updCart = snapshot(50, line("p1", 10, 5))
	res := store.UpdateItemQuantity(context.Background(), "p1", 5)
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if store.Count() != 5 {
		t.Fatalf("expected count 5, got %d", store.Count())
	}
	if got := store.Cart().TotalPrice; !got.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected total 50, got %s", got)
	}

	res = store.Clear(context.Background())
	if !res.Success {
		t.Fatalf("expected clear success, got %+v", res)
	}
	cart := store.Cart()
	if len(cart.Items) != 0 || !cart.TotalPrice.IsZero() || store.Count() != 0 {
		t.Fatalf("expected empty cart after clear, got %+v count=%d", cart, store.Count())
	}
}

func TestStaleRefreshCannotOverwriteNewerMutation(t *testing.T) {
	t.Parallel()

	api := &stubAPI{fetchCart: snapshot(20, line("p1", 10, 2))}
	store := newReadyStore(t, api)

	// A refresh is issued, then a mutation starts and finishes while the
	// refresh response is still in flight. The refresh resolves last with a
	// stale cart and must be discarded.
	refreshStarted := make(chan struct{})
	finishRefresh := make(chan struct{})
	api.fetchHook = func() {
		close(refreshStarted)
		<-finishRefresh
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		store.Refresh(context.Background())
	}()

	<-refreshStarted
	api.mu.Lock()
	api.addCart = snapshot(30, line("p1", 10, 3))
	api.mu.Unlock()

	res := store.AddItem(context.Background(), "p1", 1)
	if !res.Success {
		t.Fatalf("expected mutation success, got %+v", res)
	}
	if store.Count() != 3 {
		t.Fatalf("expected count 3 after mutation, got %d", store.Count())
	}

	close(finishRefresh)
	<-done

	if store.Count() != 3 {
		t.Fatalf("stale refresh overwrote newer mutation: count=%d", store.Count())
	}
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	t.Parallel()

	api := &stubAPI{fetchCart: snapshot(0)}
	store := newReadyStore(t, api)

	var wg sync.WaitGroup
	for i := 1; i <= 8; i++ {
		wg.Add(1)
		go func(qty int) {
			defer wg.Done()
			api.mu.Lock()
			api.addCart = snapshot(int64(qty*10), line("p1", 10, qty))
			api.mu.Unlock()
			store.AddItem(context.Background(), "p1", 1)
		}(i)
	}
	wg.Wait()

	// With serialized mutations the final snapshot is whichever response was
	// applied last; the invariant under test is consistency, not ordering.
	cart := store.Cart()
	if cart == nil || len(cart.Items) != 1 {
		t.Fatalf("expected a single line, got %+v", cart)
	}
	if store.Count() != cart.Items[0].Quantity {
		t.Fatalf("count %d diverged from snapshot %d", store.Count(), cart.Items[0].Quantity)
	}
}
