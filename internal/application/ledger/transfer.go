package ledger

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/liquid-ledger/internal/domain"
	"github.com/jhoicas/liquid-ledger/internal/domain/entity"
	"github.com/jhoicas/liquid-ledger/internal/domain/quantity"
	"github.com/jhoicas/liquid-ledger/internal/domain/repository"
)

// Unidades en que se expresa la cantidad de un traslado.
const (
	TransferUnitBulk       = "bulk"
	TransferUnitContainers = "containers"
)

// maxContainers mayor cantidad de envases representable en un delta.
var maxContainers = decimal.NewFromInt(math.MaxInt64)

// TransferInput traslado de bodega a una van.
type TransferInput struct {
	PartID      string
	FromStoreID string // vacío o "store"
	ToVanID     string
	Amount      decimal.Decimal
	Unit        string // bulk (por defecto) o containers
	Notes       string
	Actor
}

// ReturnInput devolución de una van a bodega. Sin cantidades se devuelve todo lo positivo en la van.
type ReturnInput struct {
	PartID     string
	FromVanID  string
	Containers *int64
	Bulk       *decimal.Decimal
	Notes      string
	Actor
}

// linkedMove dos entradas enlazadas: débito en origen y crédito en destino.
type linkedMove struct {
	movementType string
	from, to     entity.Location
	containers   int64
	bulk         decimal.Decimal
	fromGuard    entity.StockGuard
	notes        string
}

// TransferToVan mueve granel o envases completos de bodega a una van. La bodega nunca queda en negativo
// en la unidad trasladada.
func (s *Service) TransferToVan(ctx context.Context, in TransferInput) (*TransferResult, error) {
	van := entity.Van(strings.TrimSpace(in.ToVanID))
	var res *TransferResult
	err := s.validateTransfer(in)
	if err == nil {
		err = s.txRunner.Run(ctx, func(movRepo repository.MovementRepository, stockRepo repository.LocationStockRepository, partRepo repository.PartRepository) error {
			part, err := loadLiquidPart(ctx, partRepo, in.PartID, false)
			if err != nil {
				return err
			}
			mv := linkedMove{movementType: entity.MovementTypeTransferToVan, from: entity.Store(), to: van, notes: in.Notes}
			if in.Unit == TransferUnitContainers {
				if !part.UsesContainers() {
					return fmt.Errorf("%w: el repuesto %s no tiene tamaño de envase", domain.ErrValidation, part.ID)
				}
				mv.containers = in.Amount.IntPart()
				mv.fromGuard = entity.StockGuard{NonNegativeContainers: true}
			} else {
				mv.bulk = in.Amount
				mv.fromGuard = entity.StockGuard{NonNegativeBulk: true}
			}
			if mv.notes == "" {
				mv.notes = "Traslado a van " + van.VanID
			}
			res, err = s.applyLinked(ctx, movRepo, stockRepo, part, mv, in.Actor)
			return err
		})
	}
	return s.finishLinked(ctx, OpTransferToVan, in.PartID, van, res, err)
}

func (s *Service) validateTransfer(in TransferInput) error {
	if err := in.Actor.validate(); err != nil {
		return err
	}
	if from := strings.TrimSpace(in.FromStoreID); from != "" && from != entity.StoreLocationID {
		return fmt.Errorf("%w: origen %q desconocido", domain.ErrValidation, in.FromStoreID)
	}
	if strings.TrimSpace(in.ToVanID) == "" {
		return fmt.Errorf("%w: van destino requerida", domain.ErrValidation)
	}
	if !in.Amount.IsPositive() {
		return fmt.Errorf("%w: la cantidad debe ser mayor que cero", domain.ErrValidation)
	}
	switch in.Unit {
	case "", TransferUnitBulk:
	case TransferUnitContainers:
		if !in.Amount.Equal(in.Amount.Truncate(0)) {
			return fmt.Errorf("%w: los envases se trasladan completos", domain.ErrValidation)
		}
		if in.Amount.GreaterThan(maxContainers) {
			return fmt.Errorf("%w: cantidad de envases fuera de rango", domain.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unidad de traslado %q desconocida", domain.ErrValidation, in.Unit)
	}
	return nil
}

// ReturnToStore devuelve stock de una van a bodega, validado contra lo que la van tiene registrado.
func (s *Service) ReturnToStore(ctx context.Context, in ReturnInput) (*TransferResult, error) {
	van := entity.Van(strings.TrimSpace(in.FromVanID))
	var res *TransferResult
	err := in.Actor.validate()
	if err == nil && !van.IsVan() {
		err = fmt.Errorf("%w: van origen requerida", domain.ErrValidation)
	}
	if err == nil {
		err = s.txRunner.Run(ctx, func(movRepo repository.MovementRepository, stockRepo repository.LocationStockRepository, partRepo repository.PartRepository) error {
			part, err := loadLiquidPart(ctx, partRepo, in.PartID, false)
			if err != nil {
				return err
			}
			onHand, err := stockRepo.GetForUpdate(ctx, entity.StockKey{PartID: part.ID, Location: van})
			if err != nil {
				return err
			}
			containers, bulk, err := returnAmounts(in, onHand)
			if err != nil {
				return err
			}
			mv := linkedMove{
				movementType: entity.MovementTypeReturnToStore,
				from:         van,
				to:           entity.Store(),
				containers:   containers,
				bulk:         bulk,
				fromGuard:    entity.StockGuard{NonNegativeContainers: containers > 0, NonNegativeBulk: bulk.IsPositive()},
				notes:        in.Notes,
			}
			if mv.containers > 0 && !part.UsesContainers() {
				return fmt.Errorf("%w: el repuesto %s no tiene tamaño de envase", domain.ErrValidation, part.ID)
			}
			if mv.notes == "" {
				mv.notes = "Devolución de van " + van.VanID
			}
			res, err = s.applyLinked(ctx, movRepo, stockRepo, part, mv, in.Actor)
			return err
		})
	}
	return s.finishLinked(ctx, OpReturnToStore, in.PartID, van, res, err)
}

// returnAmounts resuelve las cantidades a devolver: las explícitas no pueden superar lo registrado
// en la van; sin cantidades se devuelve lo positivo.
func returnAmounts(in ReturnInput, onHand *entity.LocationStock) (int64, decimal.Decimal, error) {
	containers, bulk := int64(0), decimal.Zero
	if in.Containers == nil && in.Bulk == nil {
		if onHand.ContainerQuantity > 0 {
			containers = onHand.ContainerQuantity
		}
		if onHand.BulkQuantity.GreaterThan(quantity.Epsilon) {
			bulk = onHand.BulkQuantity
		}
	} else {
		if in.Containers != nil {
			containers = *in.Containers
		}
		if in.Bulk != nil {
			bulk = *in.Bulk
		}
		if containers < 0 || bulk.IsNegative() {
			return 0, decimal.Zero, fmt.Errorf("%w: las cantidades a devolver no pueden ser negativas", domain.ErrValidation)
		}
		if containers > onHand.ContainerQuantity {
			return 0, decimal.Zero, fmt.Errorf("%w: la van tiene %d envases, se pidió devolver %d", domain.ErrInsufficientStock, onHand.ContainerQuantity, containers)
		}
		if bulk.Sub(onHand.BulkQuantity).GreaterThan(quantity.Epsilon) {
			return 0, decimal.Zero, fmt.Errorf("%w: la van tiene %s a granel, se pidió devolver %s", domain.ErrInsufficientStock, onHand.BulkQuantity, bulk)
		}
	}
	if containers == 0 && quantity.IsZero(bulk) {
		return 0, decimal.Zero, fmt.Errorf("%w: la van no tiene stock para devolver", domain.ErrValidation)
	}
	return containers, bulk, nil
}

// applyLinked aplica ambos incrementos en la misma transacción y anexa las dos entradas.
// Cada entrada lleva las instantáneas de bodega y van; la de origen lleva los deltas negativos.
func (s *Service) applyLinked(ctx context.Context, movRepo repository.MovementRepository, stockRepo repository.LocationStockRepository, part *entity.Part, mv linkedMove, actor Actor) (*TransferResult, error) {
	fromAfter, err := stockRepo.Increment(ctx, entity.StockKey{PartID: part.ID, Location: mv.from}, -mv.containers, mv.bulk.Neg(), mv.fromGuard)
	if err != nil {
		return nil, err
	}
	toAfter, err := stockRepo.Increment(ctx, entity.StockKey{PartID: part.ID, Location: mv.to}, mv.containers, mv.bulk, entity.StockGuard{})
	if err != nil {
		return nil, err
	}

	transferID := uuid.New().String()
	unit, total := valuation(part, mv.containers, mv.bulk)
	entry := func(loc entity.Location, sign int64) (string, error) {
		now, err := s.clock.Now(ctx)
		if err != nil {
			return "", err
		}
		tid := transferID
		m := &entity.Movement{
			ID:                 uuid.New().String(),
			PartID:             part.ID,
			VanStockID:         loc.VanStockID(),
			TransferID:         &tid,
			MovementType:       mv.movementType,
			ContainerQtyChange: sign * mv.containers,
			BulkQtyChange:      mv.bulk.Mul(decimal.NewFromInt(sign)),
			UnitCostAtTime:     unit,
			TotalCost:          total,
			PerformedBy:        actor.PerformedBy,
			PerformedByName:    actor.PerformedByName,
			PerformedAt:        now,
			Notes:              mv.notes,
		}
		setSnapshot(m, fromAfter)
		setSnapshot(m, toAfter)
		return movRepo.Append(ctx, m)
	}
	fromID, err := entry(mv.from, -1)
	if err != nil {
		return nil, err
	}
	toID, err := entry(mv.to, 1)
	if err != nil {
		return nil, err
	}

	res := &TransferResult{TransferID: transferID}
	if mv.from.IsStore() {
		res.StoreMovementID, res.VanMovementID = fromID, toID
		res.StoreAfter, res.VanAfter = *fromAfter, *toAfter
	} else {
		res.StoreMovementID, res.VanMovementID = toID, fromID
		res.StoreAfter, res.VanAfter = *toAfter, *fromAfter
	}
	if negative(&res.VanAfter, part) {
		res.Warnings = append(res.Warnings, negativeBalanceWarning(&res.VanAfter, part))
	}
	return res, nil
}

func (s *Service) finishLinked(ctx context.Context, op, partID string, van entity.Location, res *TransferResult, err error) (*TransferResult, error) {
	if err != nil {
		s.finish(op, partID, van, nil, nil, err)
		return nil, err
	}
	s.finish(op, partID, van, []string{res.StoreMovementID, res.VanMovementID}, res.Warnings, nil)
	if hasWarning(res.Warnings, WarningNegativeBalance) {
		s.scheduleReconcile(ctx, partID)
	}
	return res, nil
}
