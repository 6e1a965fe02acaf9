// Package ledger contiene las reglas del libro de movimientos de líquidos: validación de
// entradas anexadas y reconstrucción de saldos para auditoría.
package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/liquid-ledger/internal/domain"
	"github.com/jhoicas/liquid-ledger/internal/domain/entity"
	"github.com/jhoicas/liquid-ledger/internal/domain/quantity"
)

// ValidateEntry verifica una entrada antes de anexarla. Todas las implementaciones de
// repository.MovementRepository la invocan en Append.
func ValidateEntry(m *entity.Movement) error {
	if m == nil {
		return fmt.Errorf("%w: movimiento nulo", domain.ErrValidation)
	}
	if strings.TrimSpace(m.PartID) == "" {
		return fmt.Errorf("%w: part_id requerido", domain.ErrValidation)
	}
	if !entity.ValidMovementType(m.MovementType) {
		return fmt.Errorf("%w: tipo de movimiento desconocido %q", domain.ErrValidation, m.MovementType)
	}
	if m.ContainerQtyChange == 0 && quantity.IsZero(m.BulkQtyChange) {
		return fmt.Errorf("%w: movimiento sin cambio de cantidad", domain.ErrValidation)
	}
	if strings.TrimSpace(m.PerformedBy) == "" || strings.TrimSpace(m.PerformedByName) == "" {
		return fmt.Errorf("%w: performed_by y performed_by_name son obligatorios", domain.ErrValidation)
	}
	if m.PerformedAt.IsZero() {
		return fmt.Errorf("%w: performed_at obligatorio", domain.ErrValidation)
	}
	if m.VanStockID != nil && strings.TrimSpace(*m.VanStockID) == "" {
		return fmt.Errorf("%w: van_stock_id vacío", domain.ErrValidation)
	}
	switch m.MovementType {
	case entity.MovementTypeBreakContainer:
		if m.ContainerQtyChange >= 0 || !m.BulkQtyChange.IsPositive() {
			return fmt.Errorf("%w: break_container debe restar envases y sumar granel", domain.ErrValidation)
		}
	case entity.MovementTypeTransferToVan, entity.MovementTypeReturnToStore:
		if m.TransferID == nil || strings.TrimSpace(*m.TransferID) == "" {
			return fmt.Errorf("%w: %s requiere transfer_id", domain.ErrValidation, m.MovementType)
		}
	}
	return nil
}

// ValidateBreak verifica que el granel de un break_container equivalga exactamente a los envases
// abiertos: bulk = -containers × containerSize.
func ValidateBreak(m *entity.Movement, containerSize decimal.Decimal) error {
	if m.MovementType != entity.MovementTypeBreakContainer {
		return nil
	}
	want := quantity.ToBaseUnits(-m.ContainerQtyChange, decimal.Zero, containerSize)
	if !containerSize.IsPositive() || !quantity.Equal(m.BulkQtyChange, want) {
		return fmt.Errorf("%w: break_container de %d envases de %s debe sumar %s a granel, no %s",
			domain.ErrValidation, -m.ContainerQtyChange, containerSize, want, m.BulkQtyChange)
	}
	return nil
}
