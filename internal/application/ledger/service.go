package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/liquid-ledger/internal/domain"
	"github.com/jhoicas/liquid-ledger/internal/domain/entity"
	"github.com/jhoicas/liquid-ledger/internal/domain/inventory"
	"github.com/jhoicas/liquid-ledger/internal/domain/repository"
)

// Nombres de operación usados en logs y métricas.
const (
	OpReceive        = "receive"
	OpBreakContainer = "break_container"
	OpUseInternal    = "use_internal"
	OpSellExternal   = "sell_external"
	OpTransferToVan  = "transfer_to_van"
	OpReturnToStore  = "return_to_store"
	OpAdjust         = "adjustment"
	OpInitialStock   = "initial_stock"
)

// Service expone los operadores de stock y las lecturas del libro de líquidos.
// Todas las dependencias se inyectan: no hay estado global.
type Service struct {
	txRunner  TxRunner
	parts     repository.PartRepository
	movements repository.MovementRepository
	stocks    repository.LocationStockRepository
	clock     Clock

	log               zerolog.Logger
	recorder          Recorder
	scheduler         ReconcileScheduler
	varianceThreshold decimal.Decimal
}

// Config opciones del servicio.
type Config struct {
	VarianceThreshold decimal.Decimal // cero = inventory.DefaultVarianceThreshold
	Logger            zerolog.Logger
	Recorder          Recorder
	Scheduler         ReconcileScheduler
}

// NewService construye el servicio del libro.
func NewService(
	txRunner TxRunner,
	parts repository.PartRepository,
	movements repository.MovementRepository,
	stocks repository.LocationStockRepository,
	clock Clock,
	cfg Config,
) *Service {
	threshold := cfg.VarianceThreshold
	if !threshold.IsPositive() {
		threshold = inventory.DefaultVarianceThreshold
	}
	return &Service{
		txRunner:          txRunner,
		parts:             parts,
		movements:         movements,
		stocks:            stocks,
		clock:             clock,
		log:               cfg.Logger,
		recorder:          cfg.Recorder,
		scheduler:         cfg.Scheduler,
		varianceThreshold: threshold,
	}
}

// Actor quién ejecuta la operación. Ambos campos son obligatorios.
type Actor struct {
	PerformedBy     string
	PerformedByName string
}

func (a Actor) validate() error {
	if strings.TrimSpace(a.PerformedBy) == "" || strings.TrimSpace(a.PerformedByName) == "" {
		return fmt.Errorf("%w: performed_by y performed_by_name son obligatorios", domain.ErrValidation)
	}
	return nil
}

// Result resultado de una operación sobre una ubicación.
type Result struct {
	MovementID string
	After      entity.LocationStock
	Warnings   []Warning
}

// TransferResult resultado de un traslado entre bodega y van (dos entradas enlazadas).
type TransferResult struct {
	TransferID      string
	StoreMovementID string
	VanMovementID   string
	StoreAfter      entity.LocationStock
	VanAfter        entity.LocationStock
	Warnings        []Warning
}

// loadLiquidPart obtiene el repuesto y verifica que sea líquido.
func loadLiquidPart(ctx context.Context, partRepo repository.PartRepository, partID string, forUpdate bool) (*entity.Part, error) {
	var (
		part *entity.Part
		err  error
	)
	if forUpdate {
		part, err = partRepo.GetForUpdate(ctx, partID)
	} else {
		part, err = partRepo.GetByID(ctx, partID)
	}
	if err != nil {
		return nil, err
	}
	if part == nil {
		return nil, fmt.Errorf("%w: repuesto %s", domain.ErrNotFound, partID)
	}
	if !part.IsLiquid {
		return nil, fmt.Errorf("%w: el repuesto %s no es líquido", domain.ErrValidation, partID)
	}
	return part, nil
}

func validLocation(loc entity.Location) error {
	if loc.IsStore() || loc.IsVan() {
		return nil
	}
	return fmt.Errorf("%w: ubicación inválida", domain.ErrValidation)
}

// setSnapshot copia el estado posterior del agregado en los campos *After de la entrada.
func setSnapshot(m *entity.Movement, after *entity.LocationStock) {
	containers := after.ContainerQuantity
	bulk := after.BulkQuantity
	if after.Location.IsVan() {
		m.VanContainerQtyAfter = &containers
		m.VanBulkQtyAfter = &bulk
		return
	}
	m.StoreContainerQtyAfter = &containers
	m.StoreBulkQtyAfter = &bulk
}

// valuation costo de la entrada al promedio vigente.
func valuation(part *entity.Part, containers int64, bulk decimal.Decimal) (unit, total decimal.Decimal) {
	qty := decimal.NewFromInt(containers).Mul(part.ContainerSize).Add(bulk).Abs()
	return part.AvgCostPerBaseUnit, qty.Mul(part.AvgCostPerBaseUnit)
}

// finish registra métricas y logs de una operación terminada.
func (s *Service) finish(op, partID string, loc entity.Location, movementIDs []string, warnings []Warning, err error) {
	if s.recorder != nil {
		s.recorder.ObserveOperation(op, err)
	}
	if err != nil {
		ev := s.log.Warn()
		if !isClientError(err) {
			ev = s.log.Error()
		}
		ev.Err(err).Str("operation", op).Str("part_id", partID).Str("location", loc.String()).Msg("operación de stock rechazada")
		return
	}
	s.log.Info().
		Str("operation", op).
		Str("part_id", partID).
		Str("location", loc.String()).
		Strs("movement_ids", movementIDs).
		Msg("movimiento registrado")
	for _, w := range warnings {
		if s.recorder != nil {
			s.recorder.ObserveWarning(w.Kind)
		}
		s.log.Warn().Str("operation", op).Str("part_id", partID).Str("kind", w.Kind).Msg(w.Message)
	}
}

// scheduleReconcile pide una conciliación tras un saldo negativo; un fallo al encolar solo se registra.
func (s *Service) scheduleReconcile(ctx context.Context, partID string) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.EnqueueReconcile(ctx, partID); err != nil {
		s.log.Error().Err(err).Str("part_id", partID).Msg("encolar conciliación")
	}
}

func isClientError(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrInsufficientStock) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrConcurrencyConflict) ||
		errors.Is(err, domain.ErrProtocolViolation) ||
		errors.Is(err, domain.ErrDuplicate)
}
