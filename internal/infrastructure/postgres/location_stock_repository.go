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

var _ repository.LocationStockRepository = (*LocationStockRepo)(nil)

// LocationStockRepo implementación de LocationStockRepository sobre PostgreSQL (usable con pool o tx).
// La ubicación se guarda como texto: "store" o "van:<id>".
type LocationStockRepo struct {
	q Querier
}

// NewLocationStockRepository construye el adaptador de stock por ubicación. Pasar pool o tx (Querier).
func NewLocationStockRepository(q Querier) *LocationStockRepo {
	return &LocationStockRepo{q: q}
}

const stockColumns = `part_id, location, container_quantity, bulk_quantity, updated_at`

func scanStock(row pgx.Row) (*entity.LocationStock, error) {
	var (
		s   entity.LocationStock
		loc string
	)
	if err := row.Scan(&s.PartID, &loc, &s.ContainerQuantity, &s.BulkQuantity, &s.UpdatedAt); err != nil {
		return nil, err
	}
	parsed, err := entity.ParseLocation(loc)
	if err != nil {
		return nil, fmt.Errorf("scan location stock: %w", err)
	}
	s.Location = parsed
	return &s, nil
}

func emptyStock(key entity.StockKey) *entity.LocationStock {
	return &entity.LocationStock{PartID: key.PartID, Location: key.Location, BulkQuantity: decimal.Zero}
}

// Get obtiene el agregado; si la fila no existe devuelve uno en cero.
func (r *LocationStockRepo) Get(ctx context.Context, key entity.StockKey) (*entity.LocationStock, error) {
	query := `SELECT ` + stockColumns + ` FROM liquid_location_stock WHERE part_id = $1 AND location = $2`
	s, err := scanStock(r.q.QueryRow(ctx, query, key.PartID, key.Location.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return emptyStock(key), nil
		}
		return nil, mapError("get location stock", err)
	}
	return s, nil
}

// GetForUpdate crea la fila si falta y la bloquea (SELECT FOR UPDATE) hasta el fin de la transacción.
func (r *LocationStockRepo) GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.LocationStock, error) {
	if err := r.ensure(ctx, key); err != nil {
		return nil, err
	}
	query := `SELECT ` + stockColumns + ` FROM liquid_location_stock WHERE part_id = $1 AND location = $2 FOR UPDATE`
	s, err := scanStock(r.q.QueryRow(ctx, query, key.PartID, key.Location.String()))
	if err != nil {
		return nil, mapError("get location stock for update", err)
	}
	return s, nil
}

// Increment suma los deltas en la propia sentencia UPDATE con la guarda en el WHERE.
// Sin fila devuelta la guarda falló y nada cambió.
func (r *LocationStockRepo) Increment(ctx context.Context, key entity.StockKey, containerDelta int64, bulkDelta decimal.Decimal, guard entity.StockGuard) (*entity.LocationStock, error) {
	if err := r.ensure(ctx, key); err != nil {
		return nil, err
	}
	query := `
		UPDATE liquid_location_stock
		SET container_quantity = container_quantity + $3,
			bulk_quantity = bulk_quantity + $4,
			updated_at = now()
		WHERE part_id = $1 AND location = $2
			AND (NOT $5 OR container_quantity + $3 >= 0)
			AND (NOT $6 OR bulk_quantity + $4 >= 0)
		RETURNING ` + stockColumns
	s, err := scanStock(r.q.QueryRow(ctx, query,
		key.PartID, key.Location.String(), containerDelta, bulkDelta,
		guard.NonNegativeContainers, guard.NonNegativeBulk,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s en %s", domain.ErrInsufficientStock, key.PartID, key.Location)
		}
		return nil, mapError("increment location stock", err)
	}
	return s, nil
}

func (r *LocationStockRepo) ensure(ctx context.Context, key entity.StockKey) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO liquid_location_stock (part_id, location, container_quantity, bulk_quantity, updated_at)
		VALUES ($1, $2, 0, 0, now())
		ON CONFLICT (part_id, location) DO NOTHING`,
		key.PartID, key.Location.String())
	if err != nil {
		return mapError("ensure location stock", err)
	}
	return nil
}

// ListByPart devuelve todos los agregados del repuesto ordenados por ubicación.
func (r *LocationStockRepo) ListByPart(ctx context.Context, partID string) ([]*entity.LocationStock, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+stockColumns+` FROM liquid_location_stock WHERE part_id = $1 ORDER BY location`, partID)
	if err != nil {
		return nil, mapError("list location stock", err)
	}
	defer rows.Close()

	var list []*entity.LocationStock
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, mapError("scan location stock", err)
		}
		list = append(list, s)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("list location stock", err)
	}
	return list, nil
}
