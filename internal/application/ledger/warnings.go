package ledger

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jhoicas/liquid-ledger/internal/domain/entity"
	"github.com/jhoicas/liquid-ledger/internal/domain/inventory"
	"github.com/jhoicas/liquid-ledger/internal/domain/quantity"
)

// Tipos de aviso. Los avisos nunca bloquean la escritura.
const (
	WarningCostVariance    = "cost_variance"
	WarningNegativeBalance = "negative_balance"
)

// Warning señal no bloqueante para que el llamador la muestre.
type Warning struct {
	Kind     string              `json:"kind"`
	Message  string              `json:"message"`
	Location string              `json:"location,omitempty"`
	Balance  *decimal.Decimal    `json:"balance,omitempty"`
	Variance *inventory.Variance `json:"variance,omitempty"`
}

var printer = message.NewPrinter(language.Spanish)

func varianceWarning(v *inventory.Variance, baseUnit string) Warning {
	pct, _ := v.Ratio.Mul(decimal.NewFromInt(100)).Round(1).Float64()
	dir := "por encima"
	if v.Direction == inventory.VarianceBelow {
		dir = "por debajo"
	}
	return Warning{
		Kind: WarningCostVariance,
		Message: printer.Sprintf("costo de compra %s/%s está %.1f%% %s del promedio %s",
			v.IncomingCost.StringFixed(4), baseUnit, pct, dir, v.AverageCost.StringFixed(4)),
		Location: entity.StoreLocationID,
		Variance: v,
	}
}

func negativeBalanceWarning(after *entity.LocationStock, part *entity.Part) Warning {
	total := after.TotalBaseUnits(part.ContainerSize)
	return Warning{
		Kind: WarningNegativeBalance,
		Message: printer.Sprintf("saldo negativo en %s: %s %s (envases %d, granel %s)",
			after.Location.String(), total.String(), part.BaseUnit, after.ContainerQuantity, after.BulkQuantity.String()),
		Location: after.Location.String(),
		Balance:  &total,
	}
}

// negative indica si el total en unidades base de la ubicación quedó bajo cero. Granel negativo
// cubierto por envases sellados no cuenta.
func negative(after *entity.LocationStock, part *entity.Part) bool {
	return quantity.IsNegative(after.TotalBaseUnits(part.ContainerSize))
}
