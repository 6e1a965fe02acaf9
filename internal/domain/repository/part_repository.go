package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/liquid-ledger/internal/domain/entity"
)

// PartRepository define el puerto de persistencia para Part (DIP).
type PartRepository interface {
	Create(ctx context.Context, part *entity.Part) error
	GetByID(ctx context.Context, id string) (*entity.Part, error)
	GetByCode(ctx context.Context, code string) (*entity.Part, error)
	// List devuelve los repuestos ordenados por código.
	List(ctx context.Context) ([]*entity.Part, error)
	// GetForUpdate bloquea el repuesto; lo usan las recepciones para serializar el costo promedio.
	GetForUpdate(ctx context.Context, id string) (*entity.Part, error)
	UpdateCost(ctx context.Context, partID string, cost decimal.Decimal) error
	// SetContainerSize fija el tamaño de envase solo si aún no tenía uno.
	SetContainerSize(ctx context.Context, partID string, size decimal.Decimal) error
}
