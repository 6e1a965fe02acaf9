package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unidades base: toda cantidad a granel y del libro se expresa en ellas.
const (
	BaseUnitLiter      = "liter"
	BaseUnitMilliliter = "milliliter"
	BaseUnitKilogram   = "kilogram"
	BaseUnitGram       = "gram"
)

// Unidades de envase: solo etiqueta, no participan en la aritmética.
const (
	ContainerUnitBottle   = "bottle"
	ContainerUnitDrum     = "drum"
	ContainerUnitJerryCan = "jerry_can"
	ContainerUnitPail     = "pail"
	ContainerUnitBox      = "box"
)

// ValidBaseUnit indica si u es una unidad base reconocida.
func ValidBaseUnit(u string) bool {
	switch u {
	case BaseUnitLiter, BaseUnitMilliliter, BaseUnitKilogram, BaseUnitGram:
		return true
	}
	return false
}

// ValidContainerUnit indica si u es una unidad de envase reconocida.
func ValidContainerUnit(u string) bool {
	switch u {
	case ContainerUnitBottle, ContainerUnitDrum, ContainerUnitJerryCan, ContainerUnitPail, ContainerUnitBox:
		return true
	}
	return false
}

// Part representa un repuesto del catálogo (subconjunto líquido).
// AvgCostPerBaseUnit es promedio ponderado por volumen, mantenido solo por las recepciones.
type Part struct {
	ID                 string
	Code               string
	Name               string
	IsLiquid           bool
	BaseUnit           string
	ContainerUnit      string
	ContainerSize      decimal.Decimal // unidades base por envase sellado; cero = aún sin envases
	AvgCostPerBaseUnit decimal.Decimal
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// UsesContainers indica si el repuesto ya tiene un tamaño de envase fijado.
func (p *Part) UsesContainers() bool {
	return p.ContainerSize.GreaterThan(decimal.Zero)
}
