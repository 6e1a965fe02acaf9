package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/jhoicas/liquid-ledger/internal/application/ledger"
	"github.com/jhoicas/liquid-ledger/internal/domain"
)

// Reconciler subconjunto de ledger.Service que usan las tareas.
type Reconciler interface {
	Reconcile(ctx context.Context, partID string) (*ledger.ReconcileReport, error)
	ReconcileAll(ctx context.Context) ([]*ledger.ReconcileReport, error)
}

// ReconcileJob procesa las tareas de conciliación.
type ReconcileJob struct {
	svc Reconciler
	log zerolog.Logger
}

// NewReconcileJob construye el job.
func NewReconcileJob(svc Reconciler, log zerolog.Logger) *ReconcileJob {
	return &ReconcileJob{svc: svc, log: log}
}

// HandlePart procesa TaskReconcilePart.
func (j *ReconcileJob) HandlePart(ctx context.Context, t *asynq.Task) error {
	p, err := parseReconcilePart(t)
	if err != nil {
		return err
	}
	report, err := j.svc.Reconcile(ctx, p.PartID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrValidation) {
			return fmt.Errorf("conciliar %s: %v: %w", p.PartID, err, asynq.SkipRetry)
		}
		return err
	}
	j.logReport(report)
	return nil
}

// HandleAll procesa TaskReconcileAll.
func (j *ReconcileJob) HandleAll(ctx context.Context, _ *asynq.Task) error {
	reports, err := j.svc.ReconcileAll(ctx)
	drifted := 0
	for _, r := range reports {
		if r.Drifted > 0 {
			drifted++
			j.logReport(r)
		}
	}
	j.log.Info().Int("parts", len(reports)).Int("drifted_parts", drifted).Msg("conciliación periódica")
	return err
}

func (j *ReconcileJob) logReport(r *ledger.ReconcileReport) {
	if r.Drifted == 0 {
		j.log.Debug().Str("part_id", r.PartID).Msg("libro en sincronía")
		return
	}
	for _, loc := range r.Locations {
		if loc.InSync {
			continue
		}
		j.log.Warn().
			Str("part_id", r.PartID).
			Str("location", loc.Location).
			Int64("cached_containers", loc.CachedContainers).
			Int64("ledger_containers", loc.LedgerContainers).
			Str("cached_bulk", loc.CachedBulk.String()).
			Str("ledger_bulk", loc.LedgerBulk.String()).
			Msg("agregado desviado del libro")
	}
}
