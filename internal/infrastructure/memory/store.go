// Package memory implementa los puertos del libro en memoria. Cada transacción trabaja sobre una
// copia del estado que reemplaza al original solo si la función termina sin error.
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/jhoicas/liquid-ledger/internal/application/ledger"
	"github.com/jhoicas/liquid-ledger/internal/domain/entity"
	"github.com/jhoicas/liquid-ledger/internal/domain/repository"
)

var _ ledger.TxRunner = (*Store)(nil)

type state struct {
	parts     map[string]entity.Part
	stocks    map[entity.StockKey]entity.LocationStock
	movements []*entity.Movement // solo anexado; las entradas nunca se modifican
	seq       int64
}

func (s *state) clone() *state {
	return &state{
		parts:     maps.Clone(s.parts),
		stocks:    maps.Clone(s.stocks),
		movements: s.movements[:len(s.movements):len(s.movements)],
		seq:       s.seq,
	}
}

// Store almacenamiento en memoria con transacciones serializadas.
type Store struct {
	mu    sync.RWMutex
	state *state
	nowFn func() time.Time
}

// NewStore crea un almacenamiento vacío.
func NewStore() *Store {
	return &Store{
		state: &state{
			parts:  make(map[string]entity.Part),
			stocks: make(map[entity.StockKey]entity.LocationStock),
		},
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// Run ejecuta fn con repositorios atados a una copia del estado y la confirma si fn no falla.
func (s *Store) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	stockRepo repository.LocationStockRepository,
	partRepo repository.PartRepository,
) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := s.state.clone()
	h := handle{store: s, tx: tx}
	if err := fn(&MovementRepo{h: h}, &LocationStockRepo{h: h}, &PartRepo{h: h}); err != nil {
		return err
	}
	s.state = tx
	return nil
}

// Parts repositorio fuera de transacción.
func (s *Store) Parts() *PartRepo { return &PartRepo{h: handle{store: s}} }

// Movements repositorio fuera de transacción.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{h: handle{store: s}} }

// Stocks repositorio fuera de transacción.
func (s *Store) Stocks() *LocationStockRepo { return &LocationStockRepo{h: handle{store: s}} }

// handle da acceso al estado: el de la transacción en curso o el confirmado bajo el mutex.
type handle struct {
	store *Store
	tx    *state
}

func (h handle) read(fn func(st *state) error) error {
	if h.tx != nil {
		return fn(h.tx)
	}
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()
	return fn(h.store.state)
}

func (h handle) write(fn func(st *state) error) error {
	if h.tx != nil {
		return fn(h.tx)
	}
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	st := h.store.state.clone()
	if err := fn(st); err != nil {
		return err
	}
	h.store.state = st
	return nil
}

func (h handle) now() time.Time { return h.store.nowFn() }
