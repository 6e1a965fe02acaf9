package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/liquid-ledger/internal/application/ledger"
)

// RegisterPartRequest alta de un repuesto líquido.
type RegisterPartRequest struct {
	Code          string          `json:"code" validate:"required,max=64"`
	Name          string          `json:"name" validate:"required,max=200"`
	BaseUnit      string          `json:"base_unit" validate:"required,oneof=liter milliliter kilogram gram"`
	ContainerUnit string          `json:"container_unit" validate:"omitempty,oneof=bottle drum jerry_can pail box"`
	ContainerSize decimal.Decimal `json:"container_size" validate:"gte=0"`
}

// PartResponse repuesto líquido.
type PartResponse struct {
	ID                 string          `json:"id"`
	Code               string          `json:"code"`
	Name               string          `json:"name"`
	BaseUnit           string          `json:"base_unit"`
	ContainerUnit      string          `json:"container_unit,omitempty"`
	ContainerSize      decimal.Decimal `json:"container_size"`
	AvgCostPerBaseUnit decimal.Decimal `json:"avg_cost_per_base_unit"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ReceiveRequest recepción de compra en bodega: envases sellados (container_qty + container_size)
// o granel (total_base_units). El costo sale de total_price o de cost_per_base_unit.
type ReceiveRequest struct {
	ContainerQty    int64           `json:"container_qty" validate:"gte=0"`
	ContainerSize   decimal.Decimal `json:"container_size" validate:"gte=0"`
	TotalBaseUnits  decimal.Decimal `json:"total_base_units" validate:"gte=0"`
	TotalPrice      decimal.Decimal `json:"total_price" validate:"gte=0"`
	CostPerBaseUnit decimal.Decimal `json:"cost_per_base_unit" validate:"gte=0"`
	POReference     *string         `json:"po_reference,omitempty" validate:"omitempty,max=100"`
	BatchLabel      *string         `json:"batch_label,omitempty" validate:"omitempty,max=100"`
	ExpiresAt       *time.Time      `json:"expires_at,omitempty"`
	Notes           string          `json:"notes" validate:"max=500"`
}

// BreakRequest abrir envases sellados.
type BreakRequest struct {
	Location   string `json:"location" validate:"required,location"`
	Containers int64  `json:"containers" validate:"gt=0"`
	Notes      string `json:"notes" validate:"max=500"`
}

// UsageRequest consumo interno asociado a un trabajo.
type UsageRequest struct {
	Location string          `json:"location" validate:"required,location"`
	Amount   decimal.Decimal `json:"amount" validate:"gt=0"`
	JobID    string          `json:"job_id" validate:"required,max=64"`
	Notes    string          `json:"notes" validate:"max=500"`
}

// SaleRequest venta a un tercero.
type SaleRequest struct {
	Location string          `json:"location" validate:"required,location"`
	Amount   decimal.Decimal `json:"amount" validate:"gt=0"`
	Notes    string          `json:"notes" validate:"max=500"`
}

// TransferRequest traslado de bodega a una van. unit: bulk (por defecto) o containers.
type TransferRequest struct {
	ToVanID string          `json:"to_van_id" validate:"required,max=64"`
	Amount  decimal.Decimal `json:"amount" validate:"gt=0"`
	Unit    string          `json:"unit" validate:"omitempty,oneof=bulk containers"`
	Notes   string          `json:"notes" validate:"max=500"`
}

// ReturnRequest devolución de una van. Sin cantidades se devuelve todo lo positivo.
type ReturnRequest struct {
	FromVanID  string           `json:"from_van_id" validate:"required,max=64"`
	Containers *int64           `json:"containers,omitempty" validate:"omitempty,gte=0"`
	Bulk       *decimal.Decimal `json:"bulk,omitempty" validate:"omitempty,gte=0"`
	Notes      string           `json:"notes" validate:"max=500"`
}

// AdjustRequest corrección administrativa. Las notas son obligatorias.
type AdjustRequest struct {
	Location       string          `json:"location" validate:"required,location"`
	ContainerDelta int64           `json:"container_delta"`
	BulkDelta      decimal.Decimal `json:"bulk_delta"`
	Notes          string          `json:"notes" validate:"required,max=500"`
}

// InitialStockRequest saldo de apertura.
type InitialStockRequest struct {
	Location      string          `json:"location" validate:"required,location"`
	Containers    int64           `json:"containers" validate:"gte=0"`
	Bulk          decimal.Decimal `json:"bulk" validate:"gte=0"`
	ContainerSize decimal.Decimal `json:"container_size" validate:"gte=0"`
	Notes         string          `json:"notes" validate:"max=500"`
}

// StockResponse agregado de una ubicación.
type StockResponse struct {
	Location          string          `json:"location"`
	ContainerQuantity int64           `json:"container_quantity"`
	BulkQuantity      decimal.Decimal `json:"bulk_quantity"`
}

// MovementResponse resultado de una operación de una sola ubicación.
type MovementResponse struct {
	MovementID string           `json:"movement_id"`
	Stock      StockResponse    `json:"stock"`
	Warnings   []ledger.Warning `json:"warnings"`
}

// ReceiveResponse incluye el costo promedio resultante.
type ReceiveResponse struct {
	MovementResponse
	AvgCostPerBaseUnit decimal.Decimal `json:"avg_cost_per_base_unit"`
}

// TransferResponse resultado de un traslado o devolución.
type TransferResponse struct {
	TransferID      string           `json:"transfer_id"`
	StoreMovementID string           `json:"store_movement_id"`
	VanMovementID   string           `json:"van_movement_id"`
	Store           StockResponse    `json:"store"`
	Van             StockResponse    `json:"van"`
	Warnings        []ledger.Warning `json:"warnings"`
}

// LedgerRowResponse fila del libro con saldo corrido.
type LedgerRowResponse struct {
	MovementID         string          `json:"movement_id"`
	MovementType       string          `json:"movement_type"`
	Location           string          `json:"location"`
	PerformedAt        time.Time       `json:"performed_at"`
	PerformedBy        string          `json:"performed_by"`
	PerformedByName    string          `json:"performed_by_name"`
	ContainerQtyChange int64           `json:"container_qty_change"`
	BulkQtyChange      decimal.Decimal `json:"bulk_qty_change"`
	Change             decimal.Decimal `json:"change"`
	Balance            decimal.Decimal `json:"balance"`
	IsPositive         bool            `json:"is_positive"`
	Reference          string          `json:"reference"`
	JobID              *string         `json:"job_id,omitempty"`
	TransferID         *string         `json:"transfer_id,omitempty"`
	UnitCostAtTime     decimal.Decimal `json:"unit_cost_at_time"`
	TotalCost          decimal.Decimal `json:"total_cost"`
	Notes              string          `json:"notes,omitempty"`
}

// LedgerResponse página del libro de un repuesto.
type LedgerResponse struct {
	PartID   string              `json:"part_id"`
	BaseUnit string              `json:"base_unit"`
	Location string              `json:"location,omitempty"`
	Rows     []LedgerRowResponse `json:"rows"`
	Page     PageResponse        `json:"page"`
}
