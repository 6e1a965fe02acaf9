package ledger

import (
	"iter"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/liquid-ledger/internal/domain/entity"
	"github.com/jhoicas/liquid-ledger/internal/domain/quantity"
)

// Row fila de auditoría: la entrada con su cambio firmado y el saldo corrido posterior.
type Row struct {
	Movement     *entity.Movement
	Change       decimal.Decimal // unidades base, con signo
	Balance      decimal.Decimal // saldo en unidades base después de la entrada
	IsPositive   bool
	Reference    string
	FromSnapshot bool // el saldo salió de la instantánea de la entrada
}

// Reconstructor deriva saldos corridos a partir del libro. Solo lectura, no bloquea escritores.
// View nil = vista de todo el repuesto (suma de deltas de todas las ubicaciones).
type Reconstructor struct {
	ContainerSize decimal.Decimal
	View          *entity.Location
}

// Rows recorre las entradas en orden y produce una fila por entrada de la vista.
// Es determinista: la misma secuencia produce siempre los mismos saldos.
func (r Reconstructor) Rows(entries iter.Seq2[*entity.Movement, error]) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		balance := decimal.Zero
		for m, err := range entries {
			if err != nil {
				yield(Row{}, err)
				return
			}
			if r.View != nil && m.Location() != *r.View {
				continue
			}
			change := quantity.ToBaseUnits(m.ContainerQtyChange, m.BulkQtyChange, r.ContainerSize)
			row := Row{Movement: m, Change: change, Reference: Reference(m)}
			if snap, ok := r.snapshot(m); ok {
				balance = snap
				row.FromSnapshot = true
			} else {
				balance = balance.Add(change)
			}
			row.Balance = balance
			row.IsPositive = r.classify(m, change)
			if !yield(row, nil) {
				return
			}
		}
	}
}

// Reconstruct materializa Rows.
func (r Reconstructor) Reconstruct(entries iter.Seq2[*entity.Movement, error]) ([]Row, error) {
	rows := make([]Row, 0)
	for row, err := range r.Rows(entries) {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// snapshot devuelve el saldo posterior guardado en la entrada para la ubicación de la vista.
func (r Reconstructor) snapshot(m *entity.Movement) (decimal.Decimal, bool) {
	if r.View == nil {
		return decimal.Zero, false
	}
	if r.View.IsStore() {
		if m.StoreContainerQtyAfter == nil || m.StoreBulkQtyAfter == nil {
			return decimal.Zero, false
		}
		return quantity.ToBaseUnits(*m.StoreContainerQtyAfter, *m.StoreBulkQtyAfter, r.ContainerSize), true
	}
	if m.VanContainerQtyAfter == nil || m.VanBulkQtyAfter == nil {
		return decimal.Zero, false
	}
	return quantity.ToBaseUnits(*m.VanContainerQtyAfter, *m.VanBulkQtyAfter, r.ContainerSize), true
}

func (r Reconstructor) classify(m *entity.Movement, change decimal.Decimal) bool {
	positive := false
	switch m.MovementType {
	case entity.MovementTypePurchase, entity.MovementTypeReturnToStore, entity.MovementTypeInitialStock:
		positive = true
	case entity.MovementTypeBreakContainer:
		positive = r.View != nil && r.View.IsStore()
	}
	if quantity.IsZero(change) {
		return positive
	}
	return change.IsPositive()
}

// Reference texto legible de la entrada: trabajo, van o notas.
func Reference(m *entity.Movement) string {
	if m.JobID != nil && *m.JobID != "" {
		return "Job #" + *m.JobID
	}
	if m.VanStockID != nil && *m.VanStockID != "" {
		return "Van #" + *m.VanStockID
	}
	return m.Notes
}
