package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/liquid-ledger/internal/domain"
	"github.com/jhoicas/liquid-ledger/internal/domain/entity"
	"github.com/jhoicas/liquid-ledger/internal/domain/inventory"
	"github.com/jhoicas/liquid-ledger/internal/domain/quantity"
	"github.com/jhoicas/liquid-ledger/internal/domain/repository"
)

// ReceiveInput recepción de una compra en bodega.
// Con ContainerQty > 0 entran envases sellados de ContainerSize; con ContainerQty = 0
// entra TotalBaseUnits como granel. CostPerBaseUnit cero se deriva de TotalPrice.
type ReceiveInput struct {
	PartID          string
	ContainerQty    int64
	ContainerSize   decimal.Decimal
	TotalBaseUnits  decimal.Decimal
	TotalPrice      decimal.Decimal
	CostPerBaseUnit decimal.Decimal
	POReference     *string
	BatchLabel      *string
	ExpiresAt       *time.Time
	Notes           string
	Actor
}

// ReceiveResult incluye el nuevo costo promedio y el aviso de variación, si lo hubo.
type ReceiveResult struct {
	Result
	AvgCostPerBaseUnit decimal.Decimal
	Variance           *inventory.Variance
}

// Receive registra una compra: suma a bodega, anexa `purchase` y actualiza el costo promedio.
func (s *Service) Receive(ctx context.Context, in ReceiveInput) (*ReceiveResult, error) {
	var res *ReceiveResult
	err := s.validateReceive(in)
	if err == nil {
		err = s.txRunner.Run(ctx, func(movRepo repository.MovementRepository, stockRepo repository.LocationStockRepository, partRepo repository.PartRepository) error {
			var txErr error
			res, txErr = s.receive(ctx, movRepo, stockRepo, partRepo, in)
			return txErr
		})
	}
	var (
		ids      []string
		warnings []Warning
	)
	if err == nil {
		ids, warnings = []string{res.MovementID}, res.Warnings
	}
	s.finish(OpReceive, in.PartID, entity.Store(), ids, warnings, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) validateReceive(in ReceiveInput) error {
	if err := in.Actor.validate(); err != nil {
		return err
	}
	if in.ContainerQty < 0 {
		return fmt.Errorf("%w: container_qty no puede ser negativo", domain.ErrValidation)
	}
	if in.ContainerSize.IsNegative() {
		return fmt.Errorf("%w: container_size debe ser mayor que cero", domain.ErrValidation)
	}
	if in.TotalPrice.IsNegative() {
		return fmt.Errorf("%w: total_price no puede ser negativo", domain.ErrValidation)
	}
	if in.CostPerBaseUnit.IsNegative() {
		return fmt.Errorf("%w: cost_per_base_unit no puede ser negativo", domain.ErrValidation)
	}
	if in.TotalBaseUnits.IsNegative() {
		return fmt.Errorf("%w: total_base_units no puede ser negativo", domain.ErrValidation)
	}
	return nil
}

func (s *Service) receive(ctx context.Context, movRepo repository.MovementRepository, stockRepo repository.LocationStockRepository, partRepo repository.PartRepository, in ReceiveInput) (*ReceiveResult, error) {
	// El bloqueo del repuesto serializa las recepciones concurrentes sobre el costo promedio.
	part, err := loadLiquidPart(ctx, partRepo, in.PartID, true)
	if err != nil {
		return nil, err
	}

	containerDelta, bulkDelta := int64(0), decimal.Zero
	var total decimal.Decimal
	if in.ContainerQty > 0 {
		size := in.ContainerSize
		if size.IsZero() {
			size = part.ContainerSize
		}
		if !size.IsPositive() {
			return nil, fmt.Errorf("%w: container_size requerido para recibir envases", domain.ErrValidation)
		}
		if part.UsesContainers() && !quantity.Equal(part.ContainerSize, size) {
			return nil, fmt.Errorf("%w: container_size %s distinto del registrado %s", domain.ErrValidation, size, part.ContainerSize)
		}
		if !part.UsesContainers() {
			if err := partRepo.SetContainerSize(ctx, part.ID, size); err != nil {
				return nil, err
			}
			part.ContainerSize = size
		}
		total = quantity.ToBaseUnits(in.ContainerQty, decimal.Zero, size)
		if in.TotalBaseUnits.IsPositive() && !quantity.Equal(in.TotalBaseUnits, total) {
			return nil, fmt.Errorf("%w: total_base_units %s no coincide con %d × %s", domain.ErrValidation, in.TotalBaseUnits, in.ContainerQty, size)
		}
		containerDelta = in.ContainerQty
	} else {
		total = in.TotalBaseUnits
		bulkDelta = total
	}
	if !total.GreaterThan(quantity.Epsilon) {
		return nil, fmt.Errorf("%w: la cantidad recibida debe ser mayor que cero", domain.ErrValidation)
	}

	cost := in.CostPerBaseUnit
	if cost.IsZero() {
		cost = in.TotalPrice.Div(total)
	}
	totalCost := in.TotalPrice
	if totalCost.IsZero() {
		totalCost = cost.Mul(total)
	}

	// Existencias previas de todo el repuesto (bodega y vans) para ponderar el promedio.
	stocks, err := stockRepo.ListByPart(ctx, part.ID)
	if err != nil {
		return nil, err
	}
	onHand := decimal.Zero
	for _, st := range stocks {
		onHand = onHand.Add(st.TotalBaseUnits(part.ContainerSize))
	}

	variance := inventory.CheckVariance(cost, part.AvgCostPerBaseUnit, s.varianceThreshold)
	newAvg := inventory.CostCalculator(onHand, part.AvgCostPerBaseUnit, total, cost)
	if err := partRepo.UpdateCost(ctx, part.ID, newAvg); err != nil {
		return nil, err
	}

	after, err := stockRepo.Increment(ctx, entity.StockKey{PartID: part.ID, Location: entity.Store()}, containerDelta, bulkDelta, entity.StockGuard{})
	if err != nil {
		return nil, err
	}
	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, err
	}

	m := &entity.Movement{
		ID:                 uuid.New().String(),
		PartID:             part.ID,
		MovementType:       entity.MovementTypePurchase,
		ContainerQtyChange: containerDelta,
		BulkQtyChange:      bulkDelta,
		UnitCostAtTime:     cost,
		TotalCost:          totalCost,
		POReference:        in.POReference,
		BatchLabel:         in.BatchLabel,
		ExpiresAt:          in.ExpiresAt,
		PerformedBy:        in.PerformedBy,
		PerformedByName:    in.PerformedByName,
		PerformedAt:        now,
		Notes:              in.Notes,
	}
	setSnapshot(m, after)
	id, err := movRepo.Append(ctx, m)
	if err != nil {
		return nil, err
	}

	res := &ReceiveResult{
		Result:             Result{MovementID: id, After: *after},
		AvgCostPerBaseUnit: newAvg,
		Variance:           variance,
	}
	if variance != nil {
		res.Warnings = append(res.Warnings, varianceWarning(variance, part.BaseUnit))
	}
	return res, nil
}
