package repository

import (
	"context"
	"iter"

	"github.com/jhoicas/liquid-ledger/internal/domain/entity"
)

// MovementRepository define el puerto de persistencia del libro de movimientos (solo anexado).
type MovementRepository interface {
	// Append persiste una entrada nueva y devuelve su ID.
	Append(ctx context.Context, movement *entity.Movement) (string, error)
	GetByID(ctx context.Context, id string) (*entity.Movement, error)
	// Query devuelve una secuencia perezosa, finita y reiniciable ordenada por performed_at ascendente.
	Query(ctx context.Context, filter entity.MovementFilter) iter.Seq2[*entity.Movement, error]
	// Count devuelve el número de entradas para el filtro (sin paginar).
	Count(ctx context.Context, filter entity.MovementFilter) (int, error)
	// Update y Delete existen solo para rechazar: siempre devuelven domain.ErrProtocolViolation.
	Update(ctx context.Context, movement *entity.Movement) error
	Delete(ctx context.Context, id string) error
}
