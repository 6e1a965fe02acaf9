package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/liquid-ledger/internal/domain"
	"github.com/jhoicas/liquid-ledger/internal/domain/entity"
	"github.com/jhoicas/liquid-ledger/internal/domain/ledger"
	"github.com/jhoicas/liquid-ledger/internal/domain/repository"
)

var (
	_ repository.PartRepository          = (*PartRepo)(nil)
	_ repository.LocationStockRepository = (*LocationStockRepo)(nil)
	_ repository.MovementRepository      = (*MovementRepo)(nil)
)

// PartRepo repuestos en Badger, con índice único por código.
type PartRepo struct{ h handle }

func (r *PartRepo) Create(_ context.Context, part *entity.Part) error {
	return r.h.update(func(txn *badger.Txn) error {
		for _, k := range [][]byte{partKey(part.ID), partCodeKey(part.Code)} {
			found, err := exists(txn, k)
			if err != nil {
				return err
			}
			if found {
				return domain.ErrDuplicate
			}
		}
		if err := setJSON(txn, partKey(part.ID), part); err != nil {
			return err
		}
		return txn.Set(partCodeKey(part.Code), []byte(part.ID))
	})
}

func (r *PartRepo) GetByID(_ context.Context, id string) (*entity.Part, error) {
	var out *entity.Part
	err := r.h.view(func(txn *badger.Txn) error {
		var err error
		out, err = loadPart(txn, id)
		return err
	})
	return out, err
}

func (r *PartRepo) GetByCode(_ context.Context, code string) (*entity.Part, error) {
	var out *entity.Part
	err := r.h.view(func(txn *badger.Txn) error {
		item, err := txn.Get(partCodeKey(code))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		out, err = loadPart(txn, string(id))
		return err
	})
	return out, err
}

// List recorre el índice por código, que ya viene ordenado.
func (r *PartRepo) List(_ context.Context) ([]*entity.Part, error) {
	var out []*entity.Part
	err := r.h.view(func(txn *badger.Txn) error {
		prefix := partCodeKey("")
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 32})
		defer it.Close()
		var ids []string
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			ids = append(ids, string(id))
		}
		for _, id := range ids {
			p, err := loadPart(txn, id)
			if err != nil {
				return err
			}
			if p != nil {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

// GetForUpdate lee dentro de la transacción; la lectura entra en el conjunto de conflictos,
// así que una escritura concurrente sobre el repuesto hace fallar el commit.
func (r *PartRepo) GetForUpdate(ctx context.Context, id string) (*entity.Part, error) {
	return r.GetByID(ctx, id)
}

func (r *PartRepo) UpdateCost(_ context.Context, partID string, cost decimal.Decimal) error {
	return r.modify(partID, func(p *entity.Part) {
		p.AvgCostPerBaseUnit = cost
	})
}

func (r *PartRepo) SetContainerSize(_ context.Context, partID string, size decimal.Decimal) error {
	return r.modify(partID, func(p *entity.Part) {
		if !p.UsesContainers() {
			p.ContainerSize = size
		}
	})
}

func (r *PartRepo) modify(partID string, fn func(p *entity.Part)) error {
	return r.h.update(func(txn *badger.Txn) error {
		p, err := loadPart(txn, partID)
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("%w: repuesto %s", domain.ErrNotFound, partID)
		}
		fn(p)
		p.UpdatedAt = nowUTC()
		return setJSON(txn, partKey(partID), p)
	})
}

func loadPart(txn *badger.Txn, id string) (*entity.Part, error) {
	var p entity.Part
	found, err := getJSON(txn, partKey(id), &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

// LocationStockRepo agregados por repuesto y ubicación.
type LocationStockRepo struct{ h handle }

func (r *LocationStockRepo) Get(_ context.Context, key entity.StockKey) (*entity.LocationStock, error) {
	var out *entity.LocationStock
	err := r.h.view(func(txn *badger.Txn) error {
		var err error
		out, err = loadStock(txn, key)
		return err
	})
	return out, err
}

// GetForUpdate igual que Get; el bloqueo lo da la detección de conflictos de Badger.
func (r *LocationStockRepo) GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.LocationStock, error) {
	return r.Get(ctx, key)
}

func (r *LocationStockRepo) Increment(_ context.Context, key entity.StockKey, containerDelta int64, bulkDelta decimal.Decimal, guard entity.StockGuard) (*entity.LocationStock, error) {
	var out *entity.LocationStock
	err := r.h.update(func(txn *badger.Txn) error {
		cur, err := loadStock(txn, key)
		if err != nil {
			return err
		}
		next := *cur
		next.ContainerQuantity += containerDelta
		next.BulkQuantity = cur.BulkQuantity.Add(bulkDelta)
		if guard.NonNegativeContainers && next.ContainerQuantity < 0 {
			return fmt.Errorf("%w: %s tiene %d envases", domain.ErrInsufficientStock, key.Location, cur.ContainerQuantity)
		}
		if guard.NonNegativeBulk && next.BulkQuantity.IsNegative() {
			return fmt.Errorf("%w: %s tiene %s a granel", domain.ErrInsufficientStock, key.Location, cur.BulkQuantity)
		}
		next.UpdatedAt = nowUTC()
		if err := setJSON(txn, stockKey(key), &next); err != nil {
			return err
		}
		out = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *LocationStockRepo) ListByPart(_ context.Context, partID string) ([]*entity.LocationStock, error) {
	var out []*entity.LocationStock
	err := r.h.view(func(txn *badger.Txn) error {
		prefix := stockPrefix(partID)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 16})
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var s entity.LocationStock
			if err := it.Item().Value(func(val []byte) error { return jsonUnmarshal(val, &s) }); err != nil {
				return err
			}
			out = append(out, &s)
		}
		return nil
	})
	return out, err
}

func loadStock(txn *badger.Txn, key entity.StockKey) (*entity.LocationStock, error) {
	var s entity.LocationStock
	found, err := getJSON(txn, stockKey(key), &s)
	if err != nil {
		return nil, err
	}
	if !found {
		return &entity.LocationStock{PartID: key.PartID, Location: key.Location, BulkQuantity: decimal.Zero}, nil
	}
	return &s, nil
}

// MovementRepo libro de movimientos, solo anexado.
type MovementRepo struct{ h handle }

func (r *MovementRepo) Append(_ context.Context, m *entity.Movement) (string, error) {
	if err := ledger.ValidateEntry(m); err != nil {
		return "", err
	}
	entry := m.Clone()
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	seq, err := r.h.nextSeq()
	if err != nil {
		return "", err
	}
	entry.Seq = seq

	err = r.h.update(func(txn *badger.Txn) error {
		found, err := exists(txn, movementIDKey(entry.ID))
		if err != nil {
			return err
		}
		if found {
			return domain.ErrDuplicate
		}
		key := movementKey(entry)
		if err := setJSON(txn, key, entry); err != nil {
			return err
		}
		return txn.Set(movementIDKey(entry.ID), key)
	})
	if err != nil {
		return "", err
	}
	return entry.ID, nil
}

func (r *MovementRepo) GetByID(_ context.Context, id string) (*entity.Movement, error) {
	var out *entity.Movement
	err := r.h.view(func(txn *badger.Txn) error {
		item, err := txn.Get(movementIDKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		var m entity.Movement
		found, err := getJSON(txn, key, &m)
		if err != nil || !found {
			return err
		}
		out = &m
		return nil
	})
	return out, err
}

// Query lee la selección completa en una transacción de lectura y luego la entrega.
func (r *MovementRepo) Query(_ context.Context, filter entity.MovementFilter) iter.Seq2[*entity.Movement, error] {
	return func(yield func(*entity.Movement, error) bool) {
		selected, err := r.scan(filter)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, m := range page(selected, filter) {
			if !yield(m, nil) {
				return
			}
		}
	}
}

func (r *MovementRepo) Count(_ context.Context, filter entity.MovementFilter) (int, error) {
	selected, err := r.scan(filter)
	return len(selected), err
}

func (r *MovementRepo) Update(_ context.Context, m *entity.Movement) error {
	return fmt.Errorf("%w: movimiento %s", domain.ErrProtocolViolation, m.ID)
}

func (r *MovementRepo) Delete(_ context.Context, id string) error {
	return fmt.Errorf("%w: movimiento %s", domain.ErrProtocolViolation, id)
}

// scan recorre las claves del repuesto, ya ordenadas por performed_at y seq.
func (r *MovementRepo) scan(filter entity.MovementFilter) ([]*entity.Movement, error) {
	var out []*entity.Movement
	err := r.h.view(func(txn *badger.Txn) error {
		prefix := movementPrefix(filter.PartID)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 64})
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var m entity.Movement
			if err := it.Item().Value(func(val []byte) error { return jsonUnmarshal(val, &m) }); err != nil {
				return err
			}
			if filter.Location != nil && m.Location() != *filter.Location {
				continue
			}
			out = append(out, &m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Las claves ya vienen ordenadas; el sort estable cubre marcas de tiempo previas a 1970.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PerformedAt.Equal(out[j].PerformedAt) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].PerformedAt.Before(out[j].PerformedAt)
	})
	return out, nil
}

func page(ms []*entity.Movement, filter entity.MovementFilter) []*entity.Movement {
	if filter.Offset > 0 {
		if filter.Offset >= len(ms) {
			return nil
		}
		ms = ms[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(ms) {
		ms = ms[:filter.Limit]
	}
	return ms
}
