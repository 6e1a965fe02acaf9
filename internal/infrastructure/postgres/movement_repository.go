package postgres

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/liquid-ledger/internal/domain"
	"github.com/jhoicas/liquid-ledger/internal/domain/entity"
	"github.com/jhoicas/liquid-ledger/internal/domain/ledger"
	"github.com/jhoicas/liquid-ledger/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo libro de movimientos sobre PostgreSQL (usable con pool o tx).
// La tabla rechaza UPDATE y DELETE con un trigger; este adaptador ni siquiera los intenta.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador del libro. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `
	seq, id, part_id, van_stock_id, job_id, transfer_id, movement_type,
	container_qty_change, bulk_qty_change,
	store_container_qty_after, store_bulk_qty_after, van_container_qty_after, van_bulk_qty_after,
	unit_cost_at_time, total_cost, po_reference, batch_label, expires_at,
	performed_by, performed_by_name, performed_at, notes`

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var m entity.Movement
	err := row.Scan(
		&m.Seq, &m.ID, &m.PartID, &m.VanStockID, &m.JobID, &m.TransferID, &m.MovementType,
		&m.ContainerQtyChange, &m.BulkQtyChange,
		&m.StoreContainerQtyAfter, &m.StoreBulkQtyAfter, &m.VanContainerQtyAfter, &m.VanBulkQtyAfter,
		&m.UnitCostAtTime, &m.TotalCost, &m.POReference, &m.BatchLabel, &m.ExpiresAt,
		&m.PerformedBy, &m.PerformedByName, &m.PerformedAt, &m.Notes,
	)
	if err != nil {
		return nil, err
	}
	m.PerformedAt = m.PerformedAt.UTC()
	return &m, nil
}

// Append valida y persiste la entrada; seq lo asigna la base de datos.
func (r *MovementRepo) Append(ctx context.Context, m *entity.Movement) (string, error) {
	if err := ledger.ValidateEntry(m); err != nil {
		return "", err
	}
	id := m.ID
	if id == "" {
		id = uuid.New().String()
	}
	query := `
		INSERT INTO liquid_movements (
			id, part_id, van_stock_id, job_id, transfer_id, movement_type,
			container_qty_change, bulk_qty_change,
			store_container_qty_after, store_bulk_qty_after, van_container_qty_after, van_bulk_qty_after,
			unit_cost_at_time, total_cost, po_reference, batch_label, expires_at,
			performed_by, performed_by_name, performed_at, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING seq`
	var seq int64
	err := r.q.QueryRow(ctx, query,
		id, m.PartID, m.VanStockID, m.JobID, m.TransferID, m.MovementType,
		m.ContainerQtyChange, m.BulkQtyChange,
		m.StoreContainerQtyAfter, m.StoreBulkQtyAfter, m.VanContainerQtyAfter, m.VanBulkQtyAfter,
		m.UnitCostAtTime, m.TotalCost, m.POReference, m.BatchLabel, m.ExpiresAt,
		m.PerformedBy, m.PerformedByName, m.PerformedAt, m.Notes,
	).Scan(&seq)
	if err != nil {
		return "", mapError("append movement", err)
	}
	return id, nil
}

// GetByID obtiene una entrada por ID.
func (r *MovementRepo) GetByID(ctx context.Context, id string) (*entity.Movement, error) {
	m, err := scanMovement(r.q.QueryRow(ctx, `SELECT `+movementColumns+` FROM liquid_movements WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError("get movement", err)
	}
	return m, nil
}

// Query ejecuta la consulta al iterar; cada recorrido vuelve a consultar.
func (r *MovementRepo) Query(ctx context.Context, filter entity.MovementFilter) iter.Seq2[*entity.Movement, error] {
	return func(yield func(*entity.Movement, error) bool) {
		where, args := movementWhere(filter)
		query := `SELECT ` + movementColumns + ` FROM liquid_movements` + where + ` ORDER BY performed_at, seq`
		if filter.Limit > 0 {
			args = append(args, filter.Limit)
			query += fmt.Sprintf(" LIMIT $%d", len(args))
		}
		if filter.Offset > 0 {
			args = append(args, filter.Offset)
			query += fmt.Sprintf(" OFFSET $%d", len(args))
		}

		rows, err := r.q.Query(ctx, query, args...)
		if err != nil {
			yield(nil, mapError("query movements", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			m, err := scanMovement(rows)
			if err != nil {
				yield(nil, mapError("scan movement", err))
				return
			}
			if !yield(m, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, mapError("query movements", err))
		}
	}
}

// Count devuelve cuántas entradas cumplen el filtro, ignorando Limit y Offset.
func (r *MovementRepo) Count(ctx context.Context, filter entity.MovementFilter) (int, error) {
	where, args := movementWhere(filter)
	var n int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM liquid_movements`+where, args...).Scan(&n); err != nil {
		return 0, mapError("count movements", err)
	}
	return n, nil
}

// Update siempre falla: el libro es solo anexado.
func (r *MovementRepo) Update(_ context.Context, m *entity.Movement) error {
	return fmt.Errorf("update movement %s: %w", m.ID, domain.ErrProtocolViolation)
}

// Delete siempre falla: el libro es solo anexado.
func (r *MovementRepo) Delete(_ context.Context, id string) error {
	return fmt.Errorf("delete movement %s: %w", id, domain.ErrProtocolViolation)
}

func movementWhere(filter entity.MovementFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.PartID != "" {
		args = append(args, filter.PartID)
		conds = append(conds, fmt.Sprintf("part_id = $%d", len(args)))
	}
	if filter.Location != nil {
		if filter.Location.IsVan() {
			args = append(args, filter.Location.VanID)
			conds = append(conds, fmt.Sprintf("van_stock_id = $%d", len(args)))
		} else {
			conds = append(conds, "van_stock_id IS NULL")
		}
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
