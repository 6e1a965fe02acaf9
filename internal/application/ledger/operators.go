package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/liquid-ledger/internal/domain"
	"github.com/jhoicas/liquid-ledger/internal/domain/entity"
	domainledger "github.com/jhoicas/liquid-ledger/internal/domain/ledger"
	"github.com/jhoicas/liquid-ledger/internal/domain/repository"
)

// BreakInput abre envases sellados y los pasa a granel en la misma ubicación.
type BreakInput struct {
	PartID     string
	Location   entity.Location
	Containers int64
	Notes      string
	Actor
}

// ConsumeInput consumo de granel: uso interno (con trabajo) o venta externa.
type ConsumeInput struct {
	PartID   string
	Location entity.Location
	Amount   decimal.Decimal
	JobID    string
	Notes    string
	Actor
}

// AdjustInput corrección administrativa con deltas firmados en una ubicación.
type AdjustInput struct {
	PartID         string
	Location       entity.Location
	ContainerDelta int64
	BulkDelta      decimal.Decimal
	Notes          string
	Actor
}

// InitialStockInput saldo de apertura de un repuesto en una ubicación sin movimientos.
type InitialStockInput struct {
	PartID        string
	Location      entity.Location
	Containers    int64
	Bulk          decimal.Decimal
	ContainerSize decimal.Decimal // solo si el repuesto aún no tiene tamaño de envase
	Notes         string
	Actor
}

// singlePlan describe la entrada y la mutación de un operador de una sola ubicación.
type singlePlan struct {
	movementType   string
	containerDelta int64
	bulkDelta      decimal.Decimal
	guard          entity.StockGuard
	unitCost       decimal.Decimal
	totalCost      decimal.Decimal
	jobID          *string
	notes          string
	warnNegative   bool
}

type planFunc func(ctx context.Context, part *entity.Part, movRepo repository.MovementRepository, partRepo repository.PartRepository) (singlePlan, error)

// applySingle ejecuta un operador de una ubicación: incremento atómico con guarda y una entrada con instantánea.
func (s *Service) applySingle(ctx context.Context, op, partID string, loc entity.Location, actor Actor, lockPart bool, plan planFunc) (*Result, error) {
	var res *Result
	err := actor.validate()
	if err == nil {
		err = validLocation(loc)
	}
	if err == nil {
		err = s.txRunner.Run(ctx, func(movRepo repository.MovementRepository, stockRepo repository.LocationStockRepository, partRepo repository.PartRepository) error {
			part, err := loadLiquidPart(ctx, partRepo, partID, lockPart)
			if err != nil {
				return err
			}
			p, err := plan(ctx, part, movRepo, partRepo)
			if err != nil {
				return err
			}
			after, err := stockRepo.Increment(ctx, entity.StockKey{PartID: part.ID, Location: loc}, p.containerDelta, p.bulkDelta, p.guard)
			if err != nil {
				return err
			}
			// performed_at se toma con la fila ya bloqueada: el orden del libro sigue al orden de aplicación.
			now, err := s.clock.Now(ctx)
			if err != nil {
				return err
			}
			m := &entity.Movement{
				ID:                 uuid.New().String(),
				PartID:             part.ID,
				VanStockID:         loc.VanStockID(),
				JobID:              p.jobID,
				MovementType:       p.movementType,
				ContainerQtyChange: p.containerDelta,
				BulkQtyChange:      p.bulkDelta,
				UnitCostAtTime:     p.unitCost,
				TotalCost:          p.totalCost,
				PerformedBy:        actor.PerformedBy,
				PerformedByName:    actor.PerformedByName,
				PerformedAt:        now,
				Notes:              p.notes,
			}
			if err := domainledger.ValidateBreak(m, part.ContainerSize); err != nil {
				return err
			}
			setSnapshot(m, after)
			id, err := movRepo.Append(ctx, m)
			if err != nil {
				return err
			}
			res = &Result{MovementID: id, After: *after}
			if p.warnNegative && negative(after, part) {
				res.Warnings = append(res.Warnings, negativeBalanceWarning(after, part))
			}
			return nil
		})
	}
	if err != nil {
		s.finish(op, partID, loc, nil, nil, err)
		return nil, err
	}
	s.finish(op, partID, loc, []string{res.MovementID}, res.Warnings, nil)
	if hasWarning(res.Warnings, WarningNegativeBalance) {
		s.scheduleReconcile(ctx, partID)
	}
	return res, nil
}

// BreakContainer convierte N envases sellados en granel. Es irreversible.
func (s *Service) BreakContainer(ctx context.Context, in BreakInput) (*Result, error) {
	return s.applySingle(ctx, OpBreakContainer, in.PartID, in.Location, in.Actor, false,
		func(_ context.Context, part *entity.Part, _ repository.MovementRepository, _ repository.PartRepository) (singlePlan, error) {
			if in.Containers <= 0 {
				return singlePlan{}, fmt.Errorf("%w: la cantidad de envases a abrir debe ser mayor que cero", domain.ErrValidation)
			}
			if !part.UsesContainers() {
				return singlePlan{}, fmt.Errorf("%w: el repuesto %s no tiene tamaño de envase", domain.ErrValidation, part.ID)
			}
			return singlePlan{
				movementType:   entity.MovementTypeBreakContainer,
				containerDelta: -in.Containers,
				bulkDelta:      decimal.NewFromInt(in.Containers).Mul(part.ContainerSize),
				guard:          entity.StockGuard{NonNegativeContainers: true},
				unitCost:       part.AvgCostPerBaseUnit,
				totalCost:      decimal.Zero,
				notes:          in.Notes,
			}, nil
		})
}

// UseInternal descuenta granel consumido por un trabajo.
func (s *Service) UseInternal(ctx context.Context, in ConsumeInput) (*Result, error) {
	if strings.TrimSpace(in.JobID) == "" {
		err := fmt.Errorf("%w: job_id requerido para uso interno", domain.ErrValidation)
		s.finish(OpUseInternal, in.PartID, in.Location, nil, nil, err)
		return nil, err
	}
	return s.consume(ctx, OpUseInternal, entity.MovementTypeUseInternal, in)
}

// SellExternal descuenta granel vendido fuera de la empresa.
func (s *Service) SellExternal(ctx context.Context, in ConsumeInput) (*Result, error) {
	return s.consume(ctx, OpSellExternal, entity.MovementTypeSellExternal, in)
}

// consume aplica la política de saldo negativo: la bodega nunca queda en negativo;
// una van sí, con aviso.
func (s *Service) consume(ctx context.Context, op, movementType string, in ConsumeInput) (*Result, error) {
	return s.applySingle(ctx, op, in.PartID, in.Location, in.Actor, false,
		func(_ context.Context, part *entity.Part, _ repository.MovementRepository, _ repository.PartRepository) (singlePlan, error) {
			if !in.Amount.IsPositive() {
				return singlePlan{}, fmt.Errorf("%w: la cantidad debe ser mayor que cero", domain.ErrValidation)
			}
			var jobID *string
			if id := strings.TrimSpace(in.JobID); id != "" {
				jobID = &id
			}
			unit, total := valuation(part, 0, in.Amount)
			return singlePlan{
				movementType: movementType,
				bulkDelta:    in.Amount.Neg(),
				guard:        entity.StockGuard{NonNegativeBulk: in.Location.IsStore()},
				unitCost:     unit,
				totalCost:    total,
				jobID:        jobID,
				notes:        in.Notes,
				warnNegative: in.Location.IsVan(),
			}, nil
		})
}

// Adjust corrección administrativa. Nunca suma envases sellados: solo entran por recepción o traslado.
func (s *Service) Adjust(ctx context.Context, in AdjustInput) (*Result, error) {
	return s.applySingle(ctx, OpAdjust, in.PartID, in.Location, in.Actor, false,
		func(_ context.Context, part *entity.Part, _ repository.MovementRepository, _ repository.PartRepository) (singlePlan, error) {
			notes := strings.TrimSpace(in.Notes)
			if notes == "" {
				return singlePlan{}, fmt.Errorf("%w: las notas son obligatorias en un ajuste", domain.ErrValidation)
			}
			if in.ContainerDelta == 0 && in.BulkDelta.IsZero() {
				return singlePlan{}, fmt.Errorf("%w: el ajuste no cambia ninguna cantidad", domain.ErrValidation)
			}
			if in.ContainerDelta > 0 {
				return singlePlan{}, fmt.Errorf("%w: un ajuste no puede sumar envases sellados", domain.ErrValidation)
			}
			if in.ContainerDelta != 0 && !part.UsesContainers() {
				return singlePlan{}, fmt.Errorf("%w: el repuesto %s no tiene tamaño de envase", domain.ErrValidation, part.ID)
			}
			unit, total := valuation(part, in.ContainerDelta, in.BulkDelta)
			return singlePlan{
				movementType:   entity.MovementTypeAdjustment,
				containerDelta: in.ContainerDelta,
				bulkDelta:      in.BulkDelta,
				unitCost:       unit,
				totalCost:      total,
				notes:          notes,
				warnNegative:   true,
			}, nil
		})
}

// InitialStock registra el saldo de apertura. El bloqueo del repuesto serializa la comprobación
// de que la ubicación aún no tiene movimientos.
func (s *Service) InitialStock(ctx context.Context, in InitialStockInput) (*Result, error) {
	return s.applySingle(ctx, OpInitialStock, in.PartID, in.Location, in.Actor, true,
		func(ctx context.Context, part *entity.Part, movRepo repository.MovementRepository, partRepo repository.PartRepository) (singlePlan, error) {
			if in.Containers < 0 || in.Bulk.IsNegative() {
				return singlePlan{}, fmt.Errorf("%w: el saldo inicial no puede ser negativo", domain.ErrValidation)
			}
			if in.Containers == 0 && in.Bulk.IsZero() {
				return singlePlan{}, fmt.Errorf("%w: el saldo inicial está vacío", domain.ErrValidation)
			}
			if in.Containers > 0 && !part.UsesContainers() {
				if !in.ContainerSize.IsPositive() {
					return singlePlan{}, fmt.Errorf("%w: container_size requerido para registrar envases", domain.ErrValidation)
				}
				if err := partRepo.SetContainerSize(ctx, part.ID, in.ContainerSize); err != nil {
					return singlePlan{}, err
				}
				part.ContainerSize = in.ContainerSize
			}
			loc := in.Location
			n, err := movRepo.Count(ctx, entity.MovementFilter{PartID: part.ID, Location: &loc})
			if err != nil {
				return singlePlan{}, err
			}
			if n > 0 {
				return singlePlan{}, fmt.Errorf("%w: %s ya tiene movimientos registrados", domain.ErrValidation, loc.String())
			}
			unit, total := valuation(part, in.Containers, in.Bulk)
			return singlePlan{
				movementType:   entity.MovementTypeInitialStock,
				containerDelta: in.Containers,
				bulkDelta:      in.Bulk,
				unitCost:       unit,
				totalCost:      total,
				notes:          in.Notes,
			}, nil
		})
}

func hasWarning(ws []Warning, kind string) bool {
	for _, w := range ws {
		if w.Kind == kind {
			return true
		}
	}
	return false
}
