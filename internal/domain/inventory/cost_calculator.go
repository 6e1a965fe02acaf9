package inventory

import "github.com/shopspring/decimal"

// DefaultVarianceThreshold desviación relativa (10%) a partir de la cual se avisa de un precio anormal.
var DefaultVarianceThreshold = decimal.RequireFromString("0.10")

// Direcciones de la desviación de costo.
const (
	VarianceAbove = "above"
	VarianceBelow = "below"
)

// CostCalculator implementa la lógica de costo promedio ponderado por volumen (servicio de dominio).
// NuevoCosto = ((StockActual * CostoActual) + (CantEntrada * CostoEntrada)) / (StockActual + CantEntrada)
// Un stock previo negativo se toma como cero; sin stock previo el nuevo costo es el de la entrada.
func CostCalculator(stockActual, costoActual, cantEntrada, costoEntrada decimal.Decimal) decimal.Decimal {
	if stockActual.LessThan(decimal.Zero) {
		stockActual = decimal.Zero
	}
	if stockActual.IsZero() {
		return costoEntrada
	}
	sum := stockActual.Add(cantEntrada)
	if sum.LessThanOrEqual(decimal.Zero) {
		return costoEntrada
	}
	num := stockActual.Mul(costoActual).Add(cantEntrada.Mul(costoEntrada))
	return num.Div(sum)
}

// Variance aviso no bloqueante de costo de entrada anormal frente al promedio.
type Variance struct {
	Direction    string          `json:"direction"`
	Ratio        decimal.Decimal `json:"ratio"` // |costo − promedio| / promedio
	IncomingCost decimal.Decimal `json:"incoming_cost"`
	AverageCost  decimal.Decimal `json:"average_cost"`
}

// CheckVariance compara el costo por unidad base entrante con el promedio vigente.
// Devuelve nil si el promedio es cero o la desviación no supera el umbral.
func CheckVariance(incoming, average, threshold decimal.Decimal) *Variance {
	if !average.GreaterThan(decimal.Zero) {
		return nil
	}
	ratio := incoming.Sub(average).Abs().Div(average)
	if !ratio.GreaterThan(threshold) {
		return nil
	}
	dir := VarianceAbove
	if incoming.LessThan(average) {
		dir = VarianceBelow
	}
	return &Variance{Direction: dir, Ratio: ratio, IncomingCost: incoming, AverageCost: average}
}
