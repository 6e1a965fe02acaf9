package ledger

import (
	"context"
	"time"

	"github.com/jhoicas/liquid-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios atados a esa tx.
// Garantiza atomicidad: las mutaciones de agregados y los anexos al libro se confirman juntos o ninguno.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.MovementRepository,
		stockRepo repository.LocationStockRepository,
		partRepo repository.PartRepository,
	) error) error
}

// Clock fuente de tiempo monotónica compartida por todos los escritores (nunca la del cliente).
type Clock interface {
	Now(ctx context.Context) (time.Time, error)
}

// Recorder recibe métricas de operaciones y avisos. Puede ser nil.
type Recorder interface {
	ObserveOperation(operation string, err error)
	ObserveWarning(kind string)
}

// ReconcileScheduler encola una conciliación del repuesto en segundo plano. Puede ser nil.
type ReconcileScheduler interface {
	EnqueueReconcile(ctx context.Context, partID string) error
}
