package cart

import (
	"context"
	"fmt"
	"sync"

	pkgerrors "github.com/adoptipet/adoptipet-client/pkg/errors"
	"github.com/adoptipet/adoptipet-client/pkg/logger"
)

// State names the store's lifecycle phase.
type State string

const (
	// StateLoading covers the initial fetch; the snapshot is not yet usable.
	StateLoading State = "loading"
	// StateReady means a snapshot (possibly empty) is available. Mutation
	// failures keep the store Ready; only the initial load can error it.
	StateReady State = "ready"
	// StateErrored means the initial fetch failed for a reason other than
	// "no cart yet". Refresh re-enters Loading.
	StateErrored State = "errored"
)

// Store is the single session-local representation of the cart. It caches the
// server-authoritative snapshot and replaces it wholesale after every
// successful call. Mutations are serialized through one mutex, and every
// applied snapshot carries a sequence number taken at request start so a
// slow concurrent refresh can never overwrite a newer mutation result.
type Store struct {
	api  API
	logg *logger.Logger

	// opMu serializes mutations: at most one cart write is in flight.
	opMu sync.Mutex

	mu      sync.RWMutex
	state   State
	cart    *Cart
	loadErr error
	issued  uint64
	applied uint64
}

// NewStore builds a store in the Loading state. Call Load to run the initial
// fetch before reading the snapshot.
func NewStore(api API, logg *logger.Logger) (*Store, error) {
	if api == nil {
		return nil, fmt.Errorf("cart api required")
	}
	return &Store{api: api, logg: logg, state: StateLoading}, nil
}

// Load performs the initial fetch. A "no cart yet" condition becomes an empty
// Ready snapshot; any other failure moves the store to Errored with the cart
// left nil.
func (s *Store) Load(ctx context.Context) {
	seq := s.nextSeq()

	fetched, err := s.api.Fetch(ctx)
	if err != nil {
		if IsEmptyCart(err) {
			s.apply(seq, Empty())
			return
		}
		s.mu.Lock()
		s.state = StateErrored
		s.loadErr = err
		s.mu.Unlock()
		if s.logg != nil {
			s.logg.Error(ctx, "initial cart load failed", err)
		}
		return
	}
	s.apply(seq, fetched)
}

// Refresh re-reads the server cart. From Errored it re-runs the initial load.
// From Ready a failure only records the error; the snapshot stays as-is.
func (s *Store) Refresh(ctx context.Context) {
	s.mu.RLock()
	errored := s.state == StateErrored
	s.mu.RUnlock()

	if errored {
		s.mu.Lock()
		s.state = StateLoading
		s.loadErr = nil
		s.mu.Unlock()
		s.Load(ctx)
		return
	}

	seq := s.nextSeq()
	fetched, err := s.api.Fetch(ctx)
	if err != nil {
		if IsEmptyCart(err) {
			s.apply(seq, Empty())
			return
		}
		s.mu.Lock()
		s.loadErr = err
		s.mu.Unlock()
		if s.logg != nil {
			s.logg.Warn(ctx, "cart refresh failed: "+err.Error())
		}
		return
	}
	s.apply(seq, fetched)
}

// AddItem adds quantity units of a product; the backend merges with any
// existing line.
func (s *Store) AddItem(ctx context.Context, productID string, quantity int) Result {
	return s.mutate(ctx, func(ctx context.Context) (*Cart, error) {
		return s.api.Add(ctx, productID, quantity)
	})
}

// UpdateItemQuantity sets the quantity of an existing line.
func (s *Store) UpdateItemQuantity(ctx context.Context, productID string, quantity int) Result {
	return s.mutate(ctx, func(ctx context.Context) (*Cart, error) {
		return s.api.UpdateQuantity(ctx, productID, quantity)
	})
}

// RemoveItem deletes a line. Removing an absent product yields the
// distinguished not-in-cart message.
func (s *Store) RemoveItem(ctx context.Context, productID string) Result {
	return s.mutate(ctx, func(ctx context.Context) (*Cart, error) {
		return s.api.Remove(ctx, productID)
	})
}

// Clear empties the cart. Clearing an already-empty cart succeeds.
func (s *Store) Clear(ctx context.Context) Result {
	return s.mutate(ctx, func(ctx context.Context) (*Cart, error) {
		if err := s.api.Clear(ctx); err != nil {
			return nil, err
		}
		return Empty(), nil
	})
}

func (s *Store) mutate(ctx context.Context, call func(context.Context) (*Cart, error)) Result {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	seq := s.nextSeq()
	updated, err := call(ctx)
	if err != nil {
		return Result{Success: false, Message: failureMessage(err)}
	}
	s.apply(seq, updated)
	return Result{Success: true}
}

// apply installs a new snapshot unless a newer request already did. Stale
// responses are discarded, never merged.
func (s *Store) apply(seq uint64, snapshot *Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.applied {
		if s.logg != nil {
			s.logg.Debug(context.Background(), "discarding stale cart snapshot")
		}
		return
	}
	s.applied = seq
	s.cart = snapshot
	s.state = StateReady
	s.loadErr = nil
}

func (s *Store) nextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// Cart returns a deep copy of the current snapshot, or nil before the first
// successful load.
func (s *Store) Cart() *Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

// Count is the total unit count of the snapshot, 0 when no cart is loaded.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Count()
}

// Loading reports whether the initial fetch is still outstanding.
func (s *Store) Loading() bool {
	return s.State() == StateLoading
}

// Err returns the last load/refresh error, or nil.
func (s *Store) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func failureMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		return typed.Message()
	}
	if err != nil {
		return err.Error()
	}
	return "une erreur inattendue est survenue"
}
