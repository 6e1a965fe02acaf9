package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/liquid-ledger/internal/domain/quantity"
)

// Tipos de ubicación.
const (
	LocationKindStore = "store"
	LocationKindVan   = "van"
)

// StoreLocationID identificador de la bodega central.
const StoreLocationID = "store"

// Location identifica dónde se encuentra el stock: la bodega central o una van.
type Location struct {
	Kind  string
	VanID string // vacío para la bodega
}

// Store devuelve la ubicación de la bodega central.
func Store() Location { return Location{Kind: LocationKindStore} }

// Van devuelve la ubicación de una van por su van_stock_id.
func Van(id string) Location { return Location{Kind: LocationKindVan, VanID: id} }

// IsStore indica si la ubicación es la bodega central.
func (l Location) IsStore() bool { return l.Kind == LocationKindStore }

// IsVan indica si la ubicación es una van.
func (l Location) IsVan() bool { return l.Kind == LocationKindVan && l.VanID != "" }

// String serializa la ubicación como "store" o "van:<id>".
func (l Location) String() string {
	if l.IsVan() {
		return LocationKindVan + ":" + l.VanID
	}
	return StoreLocationID
}

// VanStockID devuelve el puntero que se persiste en los movimientos (nil para bodega).
func (l Location) VanStockID() *string {
	if !l.IsVan() {
		return nil
	}
	id := l.VanID
	return &id
}

// ParseLocation interpreta "store" o "van:<id>".
func ParseLocation(s string) (Location, error) {
	s = strings.TrimSpace(s)
	if s == StoreLocationID {
		return Store(), nil
	}
	if id, ok := strings.CutPrefix(s, LocationKindVan+":"); ok && strings.TrimSpace(id) != "" {
		return Van(strings.TrimSpace(id)), nil
	}
	return Location{}, fmt.Errorf("ubicación desconocida %q", s)
}

// StockKey identifica un agregado por repuesto y ubicación.
type StockKey struct {
	PartID   string
	Location Location
}

// LocationStock agregado cacheado de un repuesto en una ubicación.
// Solo lo modifican los operadores de stock; nunca se borra.
type LocationStock struct {
	PartID            string
	Location          Location
	ContainerQuantity int64
	BulkQuantity      decimal.Decimal
	UpdatedAt         time.Time
}

// Aggregate devuelve la cantidad como valor del modelo de cantidad.
func (s *LocationStock) Aggregate() quantity.Aggregate {
	return quantity.Aggregate{Containers: s.ContainerQuantity, Bulk: s.BulkQuantity}
}

// TotalBaseUnits containers × size + bulk.
func (s *LocationStock) TotalBaseUnits(containerSize decimal.Decimal) decimal.Decimal {
	return quantity.ToBaseUnits(s.ContainerQuantity, s.BulkQuantity, containerSize)
}

// StockGuard restricciones evaluadas atómicamente junto con el incremento.
type StockGuard struct {
	NonNegativeContainers bool
	NonNegativeBulk       bool
}

// NonNegative guarda para ubicaciones que no pueden quedar en negativo.
func NonNegative() StockGuard {
	return StockGuard{NonNegativeContainers: true, NonNegativeBulk: true}
}
