// Package quantity contiene el modelo de cantidad de doble unidad (envases sellados + granel)
// de los repuestos líquidos. Funciones puras, sin I/O.
package quantity

import "github.com/shopspring/decimal"

// Epsilon tolerancia en unidades base para comparar cantidades. Nunca se usa para almacenar.
var Epsilon = decimal.New(1, -6)

// Aggregate cantidad en una ubicación: envases sellados y volumen suelto en unidades base.
type Aggregate struct {
	Containers int64
	Bulk       decimal.Decimal
}

// ToBaseUnits convierte envases + granel a unidades base: containers × size + bulk.
func ToBaseUnits(containers int64, bulk, containerSize decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(containers).Mul(containerSize).Add(bulk)
}

// Total devuelve las unidades base del agregado para un tamaño de envase dado.
func (a Aggregate) Total(containerSize decimal.Decimal) decimal.Decimal {
	return ToBaseUnits(a.Containers, a.Bulk, containerSize)
}

// ApplyDelta suma los deltas al agregado. No limita ni valida: eso es tarea del operador.
func ApplyDelta(a Aggregate, containerDelta int64, bulkDelta decimal.Decimal) Aggregate {
	return Aggregate{
		Containers: a.Containers + containerDelta,
		Bulk:       a.Bulk.Add(bulkDelta),
	}
}

// Equal compara dos cantidades con tolerancia Epsilon.
func Equal(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Epsilon)
}

// IsNegative indica si la cantidad está por debajo de cero más allá de la tolerancia.
func IsNegative(q decimal.Decimal) bool {
	return q.LessThan(Epsilon.Neg())
}

// IsZero indica si la cantidad es cero dentro de la tolerancia.
func IsZero(q decimal.Decimal) bool {
	return Equal(q, decimal.Zero)
}
