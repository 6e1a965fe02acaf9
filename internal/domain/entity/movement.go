package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento del libro de líquidos.
const (
	MovementTypePurchase       = "purchase"
	MovementTypeBreakContainer = "break_container"
	MovementTypeUseInternal    = "use_internal"
	MovementTypeSellExternal   = "sell_external"
	MovementTypeTransferToVan  = "transfer_to_van"
	MovementTypeReturnToStore  = "return_to_store"
	MovementTypeAdjustment     = "adjustment"
	MovementTypeInitialStock   = "initial_stock"
)

// MovementTypes lista los tipos reconocidos, en el orden del enum de la BD.
var MovementTypes = []string{
	MovementTypePurchase,
	MovementTypeBreakContainer,
	MovementTypeUseInternal,
	MovementTypeSellExternal,
	MovementTypeTransferToVan,
	MovementTypeReturnToStore,
	MovementTypeAdjustment,
	MovementTypeInitialStock,
}

// ValidMovementType indica si t es un tipo de movimiento reconocido.
func ValidMovementType(t string) bool {
	for _, mt := range MovementTypes {
		if mt == t {
			return true
		}
	}
	return false
}

// Movement entrada inmutable del libro: un evento que cambia cantidad en una ubicación.
// Los campos *After son instantáneas del saldo posterior, escritas cuando el operador
// conoce el estado resultante.
type Movement struct {
	ID                     string
	Seq                    int64 // orden de inserción, desempata performed_at
	PartID                 string
	VanStockID             *string // nil = bodega
	JobID                  *string
	TransferID             *string // enlaza las dos entradas de un traslado/devolución
	MovementType           string
	ContainerQtyChange     int64
	BulkQtyChange          decimal.Decimal
	StoreContainerQtyAfter *int64
	StoreBulkQtyAfter      *decimal.Decimal
	VanContainerQtyAfter   *int64
	VanBulkQtyAfter        *decimal.Decimal
	UnitCostAtTime         decimal.Decimal
	TotalCost              decimal.Decimal
	POReference            *string
	BatchLabel             *string
	ExpiresAt              *time.Time
	PerformedBy            string
	PerformedByName        string
	PerformedAt            time.Time
	Notes                  string
}

// Location devuelve la ubicación a la que aplica la entrada.
func (m *Movement) Location() Location {
	if m.VanStockID != nil && *m.VanStockID != "" {
		return Van(*m.VanStockID)
	}
	return Store()
}

// Clone copia la entrada, incluidos los punteros, para que el llamador no pueda mutar el original.
func (m *Movement) Clone() *Movement {
	c := *m
	c.VanStockID = clonePtr(m.VanStockID)
	c.JobID = clonePtr(m.JobID)
	c.TransferID = clonePtr(m.TransferID)
	c.StoreContainerQtyAfter = clonePtr(m.StoreContainerQtyAfter)
	c.StoreBulkQtyAfter = clonePtr(m.StoreBulkQtyAfter)
	c.VanContainerQtyAfter = clonePtr(m.VanContainerQtyAfter)
	c.VanBulkQtyAfter = clonePtr(m.VanBulkQtyAfter)
	c.POReference = clonePtr(m.POReference)
	c.BatchLabel = clonePtr(m.BatchLabel)
	c.ExpiresAt = clonePtr(m.ExpiresAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// MovementFilter selecciona entradas de un repuesto, opcionalmente por ubicación y paginadas.
// Sin Limit no hay tope implícito.
type MovementFilter struct {
	PartID   string
	Location *Location
	Limit    int
	Offset   int
}
