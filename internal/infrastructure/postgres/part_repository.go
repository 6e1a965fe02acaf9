package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/liquid-ledger/internal/domain"
	"github.com/jhoicas/liquid-ledger/internal/domain/entity"
	"github.com/jhoicas/liquid-ledger/internal/domain/repository"
)

var _ repository.PartRepository = (*PartRepo)(nil)

// PartRepo implementación del puerto PartRepository sobre PostgreSQL (usable con pool o tx).
type PartRepo struct {
	q Querier
}

// NewPartRepository construye el adaptador de persistencia para repuestos. Pasar pool o tx (Querier).
func NewPartRepository(q Querier) *PartRepo {
	return &PartRepo{q: q}
}

const partColumns = `id, code, name, is_liquid, base_unit, container_unit, container_size, avg_cost_per_base_unit, created_at, updated_at`

func scanPart(row pgx.Row) (*entity.Part, error) {
	var p entity.Part
	err := row.Scan(
		&p.ID, &p.Code, &p.Name, &p.IsLiquid, &p.BaseUnit, &p.ContainerUnit,
		&p.ContainerSize, &p.AvgCostPerBaseUnit, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create persiste un nuevo repuesto. El costo promedio inicia en lo que traiga la entidad (normalmente 0).
func (r *PartRepo) Create(ctx context.Context, part *entity.Part) error {
	query := `
		INSERT INTO liquid_parts (` + partColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		part.ID, part.Code, part.Name, part.IsLiquid, part.BaseUnit, part.ContainerUnit,
		part.ContainerSize, part.AvgCostPerBaseUnit, part.CreatedAt, part.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return mapError("insert part", err)
	}
	return nil
}

// GetByID obtiene un repuesto por ID.
func (r *PartRepo) GetByID(ctx context.Context, id string) (*entity.Part, error) {
	return r.getOne(ctx, "get part", `SELECT `+partColumns+` FROM liquid_parts WHERE id = $1`, id)
}

// GetByCode obtiene un repuesto por código.
func (r *PartRepo) GetByCode(ctx context.Context, code string) (*entity.Part, error) {
	return r.getOne(ctx, "get part by code", `SELECT `+partColumns+` FROM liquid_parts WHERE code = $1`, code)
}

// List devuelve todos los repuestos ordenados por código.
func (r *PartRepo) List(ctx context.Context) ([]*entity.Part, error) {
	rows, err := r.q.Query(ctx, `SELECT `+partColumns+` FROM liquid_parts ORDER BY code`)
	if err != nil {
		return nil, mapError("list parts", err)
	}
	defer rows.Close()

	var list []*entity.Part
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			return nil, mapError("scan part", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list parts", err)
	}
	return list, nil
}

// GetForUpdate obtiene el repuesto y bloquea la fila hasta el fin de la transacción.
func (r *PartRepo) GetForUpdate(ctx context.Context, id string) (*entity.Part, error) {
	return r.getOne(ctx, "get part for update", `SELECT `+partColumns+` FROM liquid_parts WHERE id = $1 FOR UPDATE`, id)
}

func (r *PartRepo) getOne(ctx context.Context, op, query string, arg string) (*entity.Part, error) {
	p, err := scanPart(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapError(op, err)
	}
	return p, nil
}

// UpdateCost actualiza el costo promedio ponderado del repuesto.
func (r *PartRepo) UpdateCost(ctx context.Context, partID string, cost decimal.Decimal) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE liquid_parts SET avg_cost_per_base_unit = $2, updated_at = now() WHERE id = $1`,
		partID, cost)
	if err != nil {
		return mapError("update part cost", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update part cost %s: %w", partID, domain.ErrNotFound)
	}
	return nil
}

// SetContainerSize fija el tamaño de envase solo si el repuesto aún no tenía uno.
func (r *PartRepo) SetContainerSize(ctx context.Context, partID string, size decimal.Decimal) error {
	_, err := r.q.Exec(ctx,
		`UPDATE liquid_parts SET container_size = $2, updated_at = now() WHERE id = $1 AND container_size = 0`,
		partID, size)
	if err != nil {
		return mapError("set container size", err)
	}
	return nil
}
