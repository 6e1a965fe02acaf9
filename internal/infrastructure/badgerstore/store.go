package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/jhoicas/liquid-ledger/internal/application/ledger"
	"github.com/jhoicas/liquid-ledger/internal/domain"
	"github.com/jhoicas/liquid-ledger/internal/domain/repository"
)

var _ ledger.TxRunner = (*Store)(nil)

// Store libro sobre una base Badger.
type Store struct {
	db          *badger.DB
	seq         *badger.Sequence
	maxAttempts int
	stopGC      chan struct{}
	gcDone      chan struct{}
}

// Open abre (o crea) la base y prepara la secuencia de inserción del libro.
func Open(cfg Config) (*Store, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	seq, err := db.GetSequence(keySequence, 100)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("badgerstore: secuencia: %w", err)
	}

	s := &Store{db: db, seq: seq, maxAttempts: cfg.MaxAttempts}
	if s.maxAttempts <= 0 {
		s.maxAttempts = 1
	}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stopGC = make(chan struct{})
		s.gcDone = make(chan struct{})
		go gcLoop(db, cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger, s.stopGC, s.gcDone)
	}
	return s, nil
}

// Close detiene el GC, libera la secuencia y cierra la base.
func (s *Store) Close() error {
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.gcDone
	}
	if err := s.seq.Release(); err != nil {
		_ = s.db.Close()
		return fmt.Errorf("badgerstore: liberar secuencia: %w", err)
	}
	return s.db.Close()
}

// Run ejecuta fn en una transacción de escritura. Si el commit choca con otra transacción
// se descarta todo y fn se vuelve a ejecutar, hasta maxAttempts veces.
func (s *Store) Run(ctx context.Context, fn func(
	movRepo repository.MovementRepository,
	stockRepo repository.LocationStockRepository,
	partRepo repository.PartRepository,
) error) error {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		txn := s.db.NewTransaction(true)
		h := handle{store: s, txn: txn}
		if err := fn(&MovementRepo{h: h}, &LocationStockRepo{h: h}, &PartRepo{h: h}); err != nil {
			txn.Discard()
			return err
		}
		err := txn.Commit()
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrConflict) {
			return fmt.Errorf("badgerstore: commit: %w", err)
		}
		if attempt >= s.maxAttempts {
			return fmt.Errorf("badgerstore: %d intentos: %w", attempt, domain.ErrConcurrencyConflict)
		}
		if err := sleepBackoff(ctx, attempt); err != nil {
			return err
		}
	}
}

func sleepBackoff(ctx context.Context, attempt int) error {
	d := time.Duration(attempt)*time.Millisecond + rand.N(time.Millisecond)
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Parts repositorio fuera de transacción.
func (s *Store) Parts() *PartRepo { return &PartRepo{h: handle{store: s}} }

// Movements repositorio fuera de transacción.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{h: handle{store: s}} }

// Stocks repositorio fuera de transacción.
func (s *Store) Stocks() *LocationStockRepo { return &LocationStockRepo{h: handle{store: s}} }

// handle usa la transacción en curso o abre una propia por operación.
type handle struct {
	store *Store
	txn   *badger.Txn
}

func (h handle) view(fn func(txn *badger.Txn) error) error {
	if h.txn != nil {
		return fn(h.txn)
	}
	return h.store.db.View(fn)
}

func (h handle) update(fn func(txn *badger.Txn) error) error {
	if h.txn != nil {
		return fn(h.txn)
	}
	err := h.store.db.Update(fn)
	if errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("badgerstore: %w", domain.ErrConcurrencyConflict)
	}
	return err
}

func (h handle) nextSeq() (int64, error) {
	n, err := h.store.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("badgerstore: siguiente seq: %w", err)
	}
	return int64(n) + 1, nil
}
