// Package jobs encola y procesa la conciliación del libro en segundo plano con asynq.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jhoicas/liquid-ledger/internal/application/ledger"
)

const (
	// QueueDefault cola de las tareas del libro.
	QueueDefault = "ledger"
	// TaskReconcilePart concilia un repuesto (se encola tras un saldo negativo en una van).
	TaskReconcilePart = "ledger:reconcile_part"
	// TaskReconcileAll concilia todos los repuestos (programada por cron).
	TaskReconcileAll = "ledger:reconcile_all"

	// uniqueWindow evita encolar la misma conciliación varias veces seguidas.
	uniqueWindow = 5 * time.Minute
)

// ReconcilePartPayload datos de TaskReconcilePart.
type ReconcilePartPayload struct {
	PartID string `json:"part_id"`
}

// NewReconcilePartTask construye la tarea para un repuesto.
func NewReconcilePartTask(partID string) (*asynq.Task, error) {
	if strings.TrimSpace(partID) == "" {
		return nil, errors.New("jobs: part_id requerido")
	}
	body, err := json.Marshal(ReconcilePartPayload{PartID: partID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcilePart, body,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.Unique(uniqueWindow),
	), nil
}

// NewReconcileAllTask construye la tarea periódica.
func NewReconcileAllTask() *asynq.Task {
	return asynq.NewTask(TaskReconcileAll, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(1))
}

func parseReconcilePart(t *asynq.Task) (ReconcilePartPayload, error) {
	var p ReconcilePartPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("payload inválido: %v: %w", err, asynq.SkipRetry)
	}
	if strings.TrimSpace(p.PartID) == "" {
		return p, fmt.Errorf("payload sin part_id: %w", asynq.SkipRetry)
	}
	return p, nil
}

// taskEnqueuer lo que Enqueuer necesita de *asynq.Client.
type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

var _ ledger.ReconcileScheduler = (*Enqueuer)(nil)

// Enqueuer implementa ledger.ReconcileScheduler sobre un cliente asynq.
type Enqueuer struct {
	client taskEnqueuer
}

// NewEnqueuer envuelve un cliente asynq (o cualquier tipo con EnqueueContext).
func NewEnqueuer(client taskEnqueuer) *Enqueuer {
	return &Enqueuer{client: client}
}

// EnqueueReconcile encola la conciliación del repuesto. Una tarea igual ya pendiente no es error.
func (e *Enqueuer) EnqueueReconcile(ctx context.Context, partID string) error {
	task, err := NewReconcilePartTask(partID)
	if err != nil {
		return err
	}
	if _, err := e.client.EnqueueContext(ctx, task); err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
		return fmt.Errorf("jobs: encolar conciliación de %s: %w", partID, err)
	}
	return nil
}
