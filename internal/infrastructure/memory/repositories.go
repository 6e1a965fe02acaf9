package memory

import (
	"context"
	"fmt"
	"iter"
	"sort"

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

// PartRepo repuestos en memoria.
type PartRepo struct{ h handle }

func (r *PartRepo) Create(_ context.Context, part *entity.Part) error {
	return r.h.write(func(st *state) error {
		if _, ok := st.parts[part.ID]; ok {
			return domain.ErrDuplicate
		}
		for _, p := range st.parts {
			if p.Code == part.Code {
				return domain.ErrDuplicate
			}
		}
		st.parts[part.ID] = *part
		return nil
	})
}

func (r *PartRepo) GetByID(_ context.Context, id string) (*entity.Part, error) {
	var out *entity.Part
	err := r.h.read(func(st *state) error {
		if p, ok := st.parts[id]; ok {
			out = &p
		}
		return nil
	})
	return out, err
}

func (r *PartRepo) GetByCode(_ context.Context, code string) (*entity.Part, error) {
	var out *entity.Part
	err := r.h.read(func(st *state) error {
		for _, p := range st.parts {
			if p.Code == code {
				out = &p
				return nil
			}
		}
		return nil
	})
	return out, err
}

// List devuelve los repuestos ordenados por código.
func (r *PartRepo) List(_ context.Context) ([]*entity.Part, error) {
	var out []*entity.Part
	err := r.h.read(func(st *state) error {
		for _, p := range st.parts {
			out = append(out, &p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, err
}

// GetForUpdate equivale a GetByID: la transacción ya tiene el estado en exclusiva.
func (r *PartRepo) GetForUpdate(ctx context.Context, id string) (*entity.Part, error) {
	return r.GetByID(ctx, id)
}

func (r *PartRepo) UpdateCost(_ context.Context, partID string, cost decimal.Decimal) error {
	return r.h.write(func(st *state) error {
		p, ok := st.parts[partID]
		if !ok {
			return fmt.Errorf("%w: repuesto %s", domain.ErrNotFound, partID)
		}
		p.AvgCostPerBaseUnit = cost
		p.UpdatedAt = r.h.now()
		st.parts[partID] = p
		return nil
	})
}

func (r *PartRepo) SetContainerSize(_ context.Context, partID string, size decimal.Decimal) error {
	return r.h.write(func(st *state) error {
		p, ok := st.parts[partID]
		if !ok {
			return fmt.Errorf("%w: repuesto %s", domain.ErrNotFound, partID)
		}
		if p.UsesContainers() {
			return nil
		}
		p.ContainerSize = size
		p.UpdatedAt = r.h.now()
		st.parts[partID] = p
		return nil
	})
}

// LocationStockRepo agregados por repuesto y ubicación en memoria.
type LocationStockRepo struct{ h handle }

func (r *LocationStockRepo) Get(_ context.Context, key entity.StockKey) (*entity.LocationStock, error) {
	var out entity.LocationStock
	err := r.h.read(func(st *state) error {
		out = stockOrZero(st, key)
		return nil
	})
	return &out, err
}

// GetForUpdate equivale a Get dentro de una transacción en memoria.
func (r *LocationStockRepo) GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.LocationStock, error) {
	return r.Get(ctx, key)
}

// Increment suma los deltas y evalúa la guarda sobre el resultado en el mismo paso.
func (r *LocationStockRepo) Increment(_ context.Context, key entity.StockKey, containerDelta int64, bulkDelta decimal.Decimal, guard entity.StockGuard) (*entity.LocationStock, error) {
	var out entity.LocationStock
	err := r.h.write(func(st *state) error {
		cur := stockOrZero(st, key)
		next := cur
		next.ContainerQuantity += containerDelta
		next.BulkQuantity = cur.BulkQuantity.Add(bulkDelta)
		if guard.NonNegativeContainers && next.ContainerQuantity < 0 {
			return fmt.Errorf("%w: %s tiene %d envases", domain.ErrInsufficientStock, key.Location, cur.ContainerQuantity)
		}
		if guard.NonNegativeBulk && next.BulkQuantity.IsNegative() {
			return fmt.Errorf("%w: %s tiene %s a granel", domain.ErrInsufficientStock, key.Location, cur.BulkQuantity)
		}
		next.UpdatedAt = r.h.now()
		st.stocks[key] = next
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *LocationStockRepo) ListByPart(_ context.Context, partID string) ([]*entity.LocationStock, error) {
	var out []*entity.LocationStock
	err := r.h.read(func(st *state) error {
		for k, v := range st.stocks {
			if k.PartID == partID {
				out = append(out, &v)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Location.String() < out[j].Location.String() })
	return out, err
}

func stockOrZero(st *state, key entity.StockKey) entity.LocationStock {
	if s, ok := st.stocks[key]; ok {
		return s
	}
	return entity.LocationStock{PartID: key.PartID, Location: key.Location, BulkQuantity: decimal.Zero}
}

// MovementRepo libro de movimientos en memoria, solo anexado.
type MovementRepo struct{ h handle }

func (r *MovementRepo) Append(_ context.Context, m *entity.Movement) (string, error) {
	if err := ledger.ValidateEntry(m); err != nil {
		return "", err
	}
	entry := m.Clone()
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	err := r.h.write(func(st *state) error {
		for _, e := range st.movements {
			if e.ID == entry.ID {
				return domain.ErrDuplicate
			}
		}
		st.seq++
		entry.Seq = st.seq
		st.movements = append(st.movements, entry)
		return nil
	})
	if err != nil {
		return "", err
	}
	return entry.ID, nil
}

func (r *MovementRepo) GetByID(_ context.Context, id string) (*entity.Movement, error) {
	var out *entity.Movement
	err := r.h.read(func(st *state) error {
		for _, e := range st.movements {
			if e.ID == id {
				out = e.Clone()
				return nil
			}
		}
		return nil
	})
	return out, err
}

// Query copia la selección bajo el bloqueo de lectura y la entrega sin retenerlo.
func (r *MovementRepo) Query(_ context.Context, filter entity.MovementFilter) iter.Seq2[*entity.Movement, error] {
	return func(yield func(*entity.Movement, error) bool) {
		var selected []*entity.Movement
		_ = r.h.read(func(st *state) error {
			selected = filterMovements(st.movements, filter)
			return nil
		})
		for _, m := range page(selected, filter) {
			if !yield(m.Clone(), nil) {
				return
			}
		}
	}
}

func (r *MovementRepo) Count(_ context.Context, filter entity.MovementFilter) (int, error) {
	var n int
	err := r.h.read(func(st *state) error {
		n = len(filterMovements(st.movements, filter))
		return nil
	})
	return n, err
}

func (r *MovementRepo) Update(_ context.Context, m *entity.Movement) error {
	return fmt.Errorf("%w: movimiento %s", domain.ErrProtocolViolation, m.ID)
}

func (r *MovementRepo) Delete(_ context.Context, id string) error {
	return fmt.Errorf("%w: movimiento %s", domain.ErrProtocolViolation, id)
}

func filterMovements(all []*entity.Movement, filter entity.MovementFilter) []*entity.Movement {
	out := make([]*entity.Movement, 0)
	for _, m := range all {
		if m.PartID != filter.PartID {
			continue
		}
		if filter.Location != nil && m.Location() != *filter.Location {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PerformedAt.Equal(out[j].PerformedAt) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].PerformedAt.Before(out[j].PerformedAt)
	})
	return out
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
