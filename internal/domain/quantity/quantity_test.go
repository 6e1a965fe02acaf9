package quantity_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/liquid-ledger/internal/domain/quantity"
)

func TestToBaseUnits(t *testing.T) {
	got := quantity.ToBaseUnits(2, decimal.NewFromInt(15), decimal.NewFromInt(200))
	assert.True(t, got.Equal(decimal.NewFromInt(415)), "2×200 + 15 = 415, obtenido %s", got)

	got = quantity.ToBaseUnits(-1, decimal.RequireFromString("0.5"), decimal.RequireFromString("4"))
	assert.True(t, got.Equal(decimal.RequireFromString("-3.5")))
}

func TestApplyDelta_NoClamping(t *testing.T) {
	agg := quantity.Aggregate{Containers: 1, Bulk: decimal.NewFromInt(30)}
	out := quantity.ApplyDelta(agg, -2, decimal.NewFromInt(-50))

	assert.Equal(t, int64(-1), out.Containers)
	assert.True(t, out.Bulk.Equal(decimal.NewFromInt(-20)))
	// El original no se modifica
	assert.Equal(t, int64(1), agg.Containers)
}

func TestEqual_Epsilon(t *testing.T) {
	a := decimal.RequireFromString("10.0000001")
	b := decimal.RequireFromString("10")
	assert.True(t, quantity.Equal(a, b))
	assert.False(t, quantity.Equal(decimal.RequireFromString("10.00001"), b))
	assert.True(t, quantity.IsZero(decimal.RequireFromString("-0.0000005")))
	assert.False(t, quantity.IsNegative(decimal.RequireFromString("-0.0000005")))
	assert.True(t, quantity.IsNegative(decimal.RequireFromString("-0.01")))
}

func TestAggregateTotal(t *testing.T) {
	agg := quantity.Aggregate{Containers: 1, Bulk: decimal.NewFromInt(200)}
	assert.True(t, agg.Total(decimal.NewFromInt(200)).Equal(decimal.NewFromInt(400)))
}
