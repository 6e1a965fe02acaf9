package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/liquid-ledger/internal/domain/entity"
)

// LocationStockRepository define el puerto para consultar/actualizar el agregado por repuesto+ubicación.
// Usado dentro de transacciones para garantizar consistencia con el libro.
type LocationStockRepository interface {
	// Get devuelve el agregado; si no existe devuelve uno en cero (se crea implícitamente al primer movimiento).
	Get(ctx context.Context, key entity.StockKey) (*entity.LocationStock, error)
	// GetForUpdate igual que Get pero bloquea la fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, key entity.StockKey) (*entity.LocationStock, error)
	// Increment suma los deltas en el propio almacenamiento (qty = qty + delta) y devuelve el estado
	// posterior. Si la guarda no se cumple devuelve domain.ErrInsufficientStock sin modificar nada.
	Increment(ctx context.Context, key entity.StockKey, containerDelta int64, bulkDelta decimal.Decimal, guard entity.StockGuard) (*entity.LocationStock, error)
	// ListByPart devuelve todos los agregados del repuesto (bodega y vans).
	ListByPart(ctx context.Context, partID string) ([]*entity.LocationStock, error)
}
