package memory

import (
	"context"
	"sync"

	"github.com/felipesemedo05/parcelas-servico/internal/core"
	"github.com/felipesemedo05/parcelas-servico/internal/store"
)

// Store keeps records in process memory. Load and Save copy the slice so
// callers never share backing arrays with the store.
type Store struct {
	mu    sync.Mutex
	items []core.Installment
	saves int
	// FailSave, when set, is returned (wrapped in store.ErrWrite) by Save.
	FailSave error
}

var (
	_ store.Store    = (*Store)(nil)
	_ store.Appender = (*Store)(nil)
)

func New(seed ...core.Installment) *Store {
	return &Store{items: append([]core.Installment(nil), seed...)}
}

func (s *Store) Load(_ context.Context) ([]core.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Installment{}, s.items...), nil
}

func (s *Store) Save(_ context.Context, recs []core.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave != nil {
		return store.WriteError("memory save", s.FailSave)
	}
	s.items = append([]core.Installment{}, recs...)
	s.saves++
	return nil
}

// Append adds recs after the existing ones.
func (s *Store) Append(_ context.Context, recs []core.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, recs...)
	return nil
}

// Saves reports how many successful Save calls have happened.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
