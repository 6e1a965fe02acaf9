package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/liquid-ledger/internal/application/ledger"
	"github.com/jhoicas/liquid-ledger/internal/domain"
	"github.com/jhoicas/liquid-ledger/internal/domain/entity"
	"github.com/jhoicas/liquid-ledger/internal/domain/repository"
	"github.com/jhoicas/liquid-ledger/internal/infrastructure/clock"
	"github.com/jhoicas/liquid-ledger/internal/infrastructure/memory"
)

var actor = ledger.Actor{PerformedBy: "u-1", PerformedByName: "Aina Rahman"}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeScheduler struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeScheduler) EnqueueReconcile(_ context.Context, partID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, partID)
	return nil
}

type fixture struct {
	svc   *ledger.Service
	store *memory.Store
	part  *entity.Part
	sched *fakeScheduler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	sched := &fakeScheduler{}
	svc := ledger.NewService(store, store.Parts(), store.Movements(), store.Stocks(), clock.NewLocal(), ledger.Config{
		Logger:    zerolog.Nop(),
		Scheduler: sched,
	})
	part, err := svc.RegisterPart(context.Background(), ledger.RegisterPartInput{
		Code:          "OIL-15W40",
		Name:          "Aceite motor 15W40",
		BaseUnit:      entity.BaseUnitLiter,
		ContainerUnit: entity.ContainerUnitDrum,
	})
	require.NoError(t, err)
	return &fixture{svc: svc, store: store, part: part, sched: sched}
}

func (f *fixture) balance(t *testing.T, loc entity.Location) *ledger.Balance {
	t.Helper()
	b, err := f.svc.GetCurrentBalance(context.Background(), f.part.ID, loc)
	require.NoError(t, err)
	return b
}

func (f *fixture) receiveBulk(t *testing.T, qty, cost string) *ledger.ReceiveResult {
	t.Helper()
	res, err := f.svc.Receive(context.Background(), ledger.ReceiveInput{
		PartID:          f.part.ID,
		TotalBaseUnits:  dec(qty),
		CostPerBaseUnit: dec(cost),
		TotalPrice:      dec(qty).Mul(dec(cost)),
		Actor:           actor,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) openingBulk(t *testing.T, loc entity.Location, qty string) {
	t.Helper()
	_, err := f.svc.InitialStock(context.Background(), ledger.InitialStockInput{
		PartID:   f.part.ID,
		Location: loc,
		Bulk:     dec(qty),
		Actor:    actor,
	})
	require.NoError(t, err)
}

func (f *fixture) entries(t *testing.T, loc *entity.Location) int {
	t.Helper()
	n, err := f.store.Movements().Count(context.Background(), entity.MovementFilter{PartID: f.part.ID, Location: loc})
	require.NoError(t, err)
	return n
}

func assertBalance(t *testing.T, b *ledger.Balance, containers int64, bulk, total string) {
	t.Helper()
	assert.Equal(t, containers, b.ContainerQuantity, "envases en %s", b.Location)
	assert.True(t, b.BulkQuantity.Equal(dec(bulk)), "granel en %s: %s, esperado %s", b.Location, b.BulkQuantity, bulk)
	assert.True(t, b.TotalBaseUnits.Equal(dec(total)), "total en %s: %s, esperado %s", b.Location, b.TotalBaseUnits, total)
}

func TestService_EndToEndScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	store, van := entity.Store(), entity.Van("van-a")

	rec, err := f.svc.Receive(ctx, ledger.ReceiveInput{
		PartID:        f.part.ID,
		ContainerQty:  2,
		ContainerSize: dec("200"),
		TotalPrice:    dec("1000"),
		Actor:         actor,
	})
	require.NoError(t, err)
	assert.Empty(t, rec.Warnings)
	assert.True(t, rec.AvgCostPerBaseUnit.Equal(dec("2.5")), "costo promedio %s", rec.AvgCostPerBaseUnit)
	assertBalance(t, f.balance(t, store), 2, "0", "400")

	_, err = f.svc.BreakContainer(ctx, ledger.BreakInput{PartID: f.part.ID, Location: store, Containers: 1, Actor: actor})
	require.NoError(t, err)
	assertBalance(t, f.balance(t, store), 1, "200", "400")

	tr, err := f.svc.TransferToVan(ctx, ledger.TransferInput{PartID: f.part.ID, ToVanID: "van-a", Amount: dec("150"), Actor: actor})
	require.NoError(t, err)
	assert.NotEmpty(t, tr.TransferID)
	assertBalance(t, f.balance(t, store), 1, "50", "250")
	assertBalance(t, f.balance(t, van), 0, "150", "150")

	use, err := f.svc.UseInternal(ctx, ledger.ConsumeInput{PartID: f.part.ID, Location: van, Amount: dec("160"), JobID: "Job-9", Actor: actor})
	require.NoError(t, err)
	require.Len(t, use.Warnings, 1)
	assert.Equal(t, ledger.WarningNegativeBalance, use.Warnings[0].Kind)
	assert.True(t, use.Warnings[0].Balance.Equal(dec("-10")))
	assertBalance(t, f.balance(t, van), 0, "-10", "-10")
	assert.Equal(t, []string{f.part.ID}, f.sched.calls, "un saldo negativo en van pide conciliación")

	page, err := f.svc.GetLedger(ctx, f.part.ID, &van, ledger.Page{})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	last := page.Rows[1]
	require.NotNil(t, last.Movement.JobID)
	assert.Equal(t, "Job-9", *last.Movement.JobID)
	assert.Equal(t, "Job #Job-9", last.Reference)
	assert.True(t, last.Balance.Equal(dec("-10")))
	assert.False(t, last.IsPositive)

	storePage, err := f.svc.GetLedger(ctx, f.part.ID, &store, ledger.Page{})
	require.NoError(t, err)
	balances := make([]string, 0, len(storePage.Rows))
	for _, r := range storePage.Rows {
		balances = append(balances, r.Balance.String())
	}
	assert.Equal(t, []string{"400", "400", "250"}, balances)

	report, err := f.svc.Reconcile(ctx, f.part.ID)
	require.NoError(t, err)
	assert.Zero(t, report.Drifted)
	assert.Len(t, report.Locations, 2)
}

func TestService_WeightedAverage(t *testing.T) {
	f := newFixture(t)
	f.receiveBulk(t, "10", "5")
	res := f.receiveBulk(t, "10", "7")
	assert.True(t, res.AvgCostPerBaseUnit.Equal(dec("6")), "promedio %s", res.AvgCostPerBaseUnit)

	part, err := f.svc.GetPart(context.Background(), f.part.ID)
	require.NoError(t, err)
	assert.True(t, part.AvgCostPerBaseUnit.Equal(dec("6")))
}

func TestService_VarianceFlagging(t *testing.T) {
	t.Run("15% por encima avisa", func(t *testing.T) {
		f := newFixture(t)
		f.receiveBulk(t, "100", "10")
		res := f.receiveBulk(t, "10", "11.5")
		require.NotNil(t, res.Variance)
		assert.Equal(t, "above", res.Variance.Direction)
		assert.True(t, res.Variance.Ratio.Equal(dec("0.15")))
		require.Len(t, res.Warnings, 1)
		assert.Equal(t, ledger.WarningCostVariance, res.Warnings[0].Kind)
		assert.True(t, f.balance(t, entity.Store()).TotalBaseUnits.Equal(dec("110")), "el aviso no bloquea la recepción")
	})
	t.Run("5% por encima no avisa", func(t *testing.T) {
		f := newFixture(t)
		f.receiveBulk(t, "100", "10")
		res := f.receiveBulk(t, "10", "10.5")
		assert.Nil(t, res.Variance)
		assert.Empty(t, res.Warnings)
	})
}

func TestService_NegativeBalancePolicy(t *testing.T) {
	ctx := context.Background()

	t.Run("van queda en negativo con aviso", func(t *testing.T) {
		f := newFixture(t)
		van := entity.Van("van-a")
		f.openingBulk(t, van, "30")

		res, err := f.svc.UseInternal(ctx, ledger.ConsumeInput{PartID: f.part.ID, Location: van, Amount: dec("50"), JobID: "J-1", Actor: actor})
		require.NoError(t, err)
		require.Len(t, res.Warnings, 1)
		assertBalance(t, f.balance(t, van), 0, "-20", "-20")
	})

	t.Run("bodega rechaza y no cambia", func(t *testing.T) {
		f := newFixture(t)
		store := entity.Store()
		f.openingBulk(t, store, "30")
		before := f.entries(t, &store)

		_, err := f.svc.UseInternal(ctx, ledger.ConsumeInput{PartID: f.part.ID, Location: store, Amount: dec("50"), JobID: "J-1", Actor: actor})
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
		assertBalance(t, f.balance(t, store), 0, "30", "30")
		assert.Equal(t, before, f.entries(t, &store), "sin entrada parcial en el libro")

		_, err = f.svc.SellExternal(ctx, ledger.ConsumeInput{PartID: f.part.ID, Location: store, Amount: dec("50"), Actor: actor})
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
		assert.Empty(t, f.sched.calls)
	})

	t.Run("granel negativo cubierto por envases no avisa", func(t *testing.T) {
		f := newFixture(t)
		van := entity.Van("van-a")
		_, err := f.svc.Receive(ctx, ledger.ReceiveInput{PartID: f.part.ID, ContainerQty: 1, ContainerSize: dec("200"), TotalPrice: dec("400"), Actor: actor})
		require.NoError(t, err)
		_, err = f.svc.TransferToVan(ctx, ledger.TransferInput{PartID: f.part.ID, ToVanID: "van-a", Amount: dec("1"), Unit: ledger.TransferUnitContainers, Actor: actor})
		require.NoError(t, err)

		res, err := f.svc.UseInternal(ctx, ledger.ConsumeInput{PartID: f.part.ID, Location: van, Amount: dec("50"), JobID: "J-2", Actor: actor})
		require.NoError(t, err)
		assert.Empty(t, res.Warnings)
		assert.Empty(t, f.sched.calls)
		assertBalance(t, f.balance(t, van), 1, "-50", "150")
	})
}

func TestService_TransferConservation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	store, van := entity.Store(), entity.Van("van-b")
	_, err := f.svc.Receive(ctx, ledger.ReceiveInput{PartID: f.part.ID, ContainerQty: 3, ContainerSize: dec("20"), TotalPrice: dec("300"), Actor: actor})
	require.NoError(t, err)
	_, err = f.svc.BreakContainer(ctx, ledger.BreakInput{PartID: f.part.ID, Location: store, Containers: 1, Actor: actor})
	require.NoError(t, err)

	check := func(storeBefore, vanBefore *ledger.Balance) {
		t.Helper()
		dStore := f.balance(t, store).TotalBaseUnits.Sub(storeBefore.TotalBaseUnits)
		dVan := f.balance(t, van).TotalBaseUnits.Sub(vanBefore.TotalBaseUnits)
		assert.True(t, dStore.Equal(dVan.Neg()), "Δbodega %s, Δvan %s", dStore, dVan)
		assert.False(t, dStore.IsZero())
	}

	s0, v0 := f.balance(t, store), f.balance(t, van)
	tr, err := f.svc.TransferToVan(ctx, ledger.TransferInput{PartID: f.part.ID, ToVanID: "van-b", Amount: dec("1"), Unit: ledger.TransferUnitContainers, Actor: actor})
	require.NoError(t, err)
	check(s0, v0)
	assertBalance(t, f.balance(t, van), 1, "0", "20")

	// las dos entradas comparten transfer_id y tienen magnitudes opuestas
	storeEntry, err := f.store.Movements().GetByID(ctx, tr.StoreMovementID)
	require.NoError(t, err)
	vanEntry, err := f.store.Movements().GetByID(ctx, tr.VanMovementID)
	require.NoError(t, err)
	assert.Equal(t, *storeEntry.TransferID, *vanEntry.TransferID)
	assert.Equal(t, -storeEntry.ContainerQtyChange, vanEntry.ContainerQtyChange)
	assert.Nil(t, storeEntry.VanStockID)
	assert.True(t, vanEntry.PerformedAt.After(storeEntry.PerformedAt))

	s1, v1 := f.balance(t, store), f.balance(t, van)
	_, err = f.svc.TransferToVan(ctx, ledger.TransferInput{PartID: f.part.ID, ToVanID: "van-b", Amount: dec("12.5"), Actor: actor})
	require.NoError(t, err)
	check(s1, v1)

	s2, v2 := f.balance(t, store), f.balance(t, van)
	ret, err := f.svc.ReturnToStore(ctx, ledger.ReturnInput{PartID: f.part.ID, FromVanID: "van-b", Actor: actor})
	require.NoError(t, err)
	check(s2, v2)
	assertBalance(t, f.balance(t, van), 0, "0", "0")
	assert.Equal(t, ret.VanAfter.ContainerQuantity, int64(0))
}

func TestService_TransferInsufficientLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	store, van := entity.Store(), entity.Van("van-a")
	f.openingBulk(t, store, "100")

	_, err := f.svc.TransferToVan(ctx, ledger.TransferInput{PartID: f.part.ID, ToVanID: "van-a", Amount: dec("150"), Actor: actor})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assertBalance(t, f.balance(t, store), 0, "100", "100")
	assertBalance(t, f.balance(t, van), 0, "0", "0")
	assert.Equal(t, 1, f.entries(t, nil))

	_, err = f.svc.TransferToVan(ctx, ledger.TransferInput{PartID: f.part.ID, ToVanID: "van-a", Amount: dec("1"), Unit: ledger.TransferUnitContainers, Actor: actor})
	assert.ErrorIs(t, err, domain.ErrValidation, "el repuesto aún no tiene tamaño de envase")

	_, err = f.svc.TransferToVan(ctx, ledger.TransferInput{PartID: f.part.ID, ToVanID: "van-a", Amount: dec("1.5"), Unit: ledger.TransferUnitContainers, Actor: actor})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestService_TransferRejectsContainerCountOutOfRange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	store, van := entity.Store(), entity.Van("van-a")
	_, err := f.svc.Receive(ctx, ledger.ReceiveInput{PartID: f.part.ID, ContainerQty: 2, ContainerSize: dec("200"), TotalPrice: dec("800"), Actor: actor})
	require.NoError(t, err)
	_, err = f.svc.TransferToVan(ctx, ledger.TransferInput{PartID: f.part.ID, ToVanID: "van-a", Amount: dec("2"), Unit: ledger.TransferUnitContainers, Actor: actor})
	require.NoError(t, err)
	entries := f.entries(t, nil)

	for _, amount := range []string{"18446744073709551615", "9223372036854775808"} {
		_, err = f.svc.TransferToVan(ctx, ledger.TransferInput{PartID: f.part.ID, ToVanID: "van-a", Amount: dec(amount), Unit: ledger.TransferUnitContainers, Actor: actor})
		assert.ErrorIs(t, err, domain.ErrValidation, amount)
	}

	assertBalance(t, f.balance(t, store), 0, "0", "0")
	assertBalance(t, f.balance(t, van), 2, "0", "400")
	assert.Equal(t, entries, f.entries(t, nil))
}

func TestService_ReturnToStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	van := entity.Van("van-a")

	_, err := f.svc.ReturnToStore(ctx, ledger.ReturnInput{PartID: f.part.ID, FromVanID: "van-a", Actor: actor})
	assert.ErrorIs(t, err, domain.ErrValidation, "nada que devolver")

	f.openingBulk(t, van, "40")
	tooMuch := dec("41")
	_, err = f.svc.ReturnToStore(ctx, ledger.ReturnInput{PartID: f.part.ID, FromVanID: "van-a", Bulk: &tooMuch, Actor: actor})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	some := dec("15")
	res, err := f.svc.ReturnToStore(ctx, ledger.ReturnInput{PartID: f.part.ID, FromVanID: "van-a", Bulk: &some, Actor: actor})
	require.NoError(t, err)
	assertBalance(t, f.balance(t, van), 0, "25", "25")
	assertBalance(t, f.balance(t, entity.Store()), 0, "15", "15")

	entry, err := f.store.Movements().GetByID(ctx, res.StoreMovementID)
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeReturnToStore, entry.MovementType)
	require.NotNil(t, entry.StoreBulkQtyAfter)
	require.NotNil(t, entry.VanBulkQtyAfter)
	assert.True(t, entry.StoreBulkQtyAfter.Equal(dec("15")))
	assert.True(t, entry.VanBulkQtyAfter.Equal(dec("25")))
}

func TestService_BreakIsIrreversible(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	store := entity.Store()
	_, err := f.svc.Receive(ctx, ledger.ReceiveInput{PartID: f.part.ID, ContainerQty: 2, ContainerSize: dec("5"), TotalPrice: dec("50"), Actor: actor})
	require.NoError(t, err)

	_, err = f.svc.BreakContainer(ctx, ledger.BreakInput{PartID: f.part.ID, Location: store, Containers: 3, Actor: actor})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = f.svc.BreakContainer(ctx, ledger.BreakInput{PartID: f.part.ID, Location: store, Containers: 1, Actor: actor})
	require.NoError(t, err)
	assertBalance(t, f.balance(t, store), 1, "5", "10")

	_, err = f.svc.Adjust(ctx, ledger.AdjustInput{PartID: f.part.ID, Location: store, ContainerDelta: 1, BulkDelta: dec("-5"), Notes: "recombinar", Actor: actor})
	assert.ErrorIs(t, err, domain.ErrValidation)

	// ninguna operación sin recepción aumenta el total de envases del repuesto
	totalContainers := func() int64 {
		stocks, err := f.store.Stocks().ListByPart(ctx, f.part.ID)
		require.NoError(t, err)
		var n int64
		for _, s := range stocks {
			n += s.ContainerQuantity
		}
		return n
	}
	before := totalContainers()
	_, err = f.svc.TransferToVan(ctx, ledger.TransferInput{PartID: f.part.ID, ToVanID: "van-a", Amount: dec("5"), Actor: actor})
	require.NoError(t, err)
	_, err = f.svc.ReturnToStore(ctx, ledger.ReturnInput{PartID: f.part.ID, FromVanID: "van-a", Actor: actor})
	require.NoError(t, err)
	_, err = f.svc.Adjust(ctx, ledger.AdjustInput{PartID: f.part.ID, Location: store, BulkDelta: dec("2"), Notes: "conteo físico", Actor: actor})
	require.NoError(t, err)
	assert.LessOrEqual(t, totalContainers(), before)
	assertBalance(t, f.balance(t, store), 1, "7", "12")
}

func TestService_AdjustRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	store := entity.Store()
	f.openingBulk(t, store, "10")

	_, err := f.svc.Adjust(ctx, ledger.AdjustInput{PartID: f.part.ID, Location: store, BulkDelta: dec("-1"), Notes: "  ", Actor: actor})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.Adjust(ctx, ledger.AdjustInput{PartID: f.part.ID, Location: store, Notes: "nada", Actor: actor})
	assert.ErrorIs(t, err, domain.ErrValidation)

	res, err := f.svc.Adjust(ctx, ledger.AdjustInput{PartID: f.part.ID, Location: store, BulkDelta: dec("-12"), Notes: "derrame en bodega", Actor: actor})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1, "un ajuste administrativo puede dejar saldo negativo, con aviso")
	assertBalance(t, f.balance(t, store), 0, "-2", "-2")

	page, err := f.svc.GetLedger(ctx, f.part.ID, &store, ledger.Page{})
	require.NoError(t, err)
	assert.Equal(t, "derrame en bodega", page.Rows[1].Reference)
}

func TestService_InitialStockOnlyOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	van := entity.Van("van-c")

	res, err := f.svc.InitialStock(ctx, ledger.InitialStockInput{PartID: f.part.ID, Location: van, Containers: 2, Bulk: dec("3"), ContainerSize: dec("4"), Actor: actor})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.After.ContainerQuantity)
	assertBalance(t, f.balance(t, van), 2, "3", "11")

	_, err = f.svc.InitialStock(ctx, ledger.InitialStockInput{PartID: f.part.ID, Location: van, Bulk: dec("1"), Actor: actor})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.InitialStock(ctx, ledger.InitialStockInput{PartID: f.part.ID, Location: entity.Store(), Actor: actor})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestService_ReceiveValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cases := map[string]ledger.ReceiveInput{
		"sin cantidad":        {PartID: f.part.ID, TotalPrice: dec("10"), Actor: actor},
		"envases sin tamaño":  {PartID: f.part.ID, ContainerQty: 1, TotalPrice: dec("10"), Actor: actor},
		"precio negativo":     {PartID: f.part.ID, TotalBaseUnits: dec("1"), TotalPrice: dec("-1"), Actor: actor},
		"total inconsistente": {PartID: f.part.ID, ContainerQty: 2, ContainerSize: dec("5"), TotalBaseUnits: dec("11"), Actor: actor},
		"sin autor":           {PartID: f.part.ID, TotalBaseUnits: dec("1")},
		"envases negativos":   {PartID: f.part.ID, ContainerQty: -1, ContainerSize: dec("5"), Actor: actor},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Receive(ctx, in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	assert.Zero(t, f.entries(t, nil))

	_, err := f.svc.Receive(ctx, ledger.ReceiveInput{PartID: f.part.ID, ContainerQty: 1, ContainerSize: dec("20"), TotalPrice: dec("40"), Actor: actor})
	require.NoError(t, err)
	_, err = f.svc.Receive(ctx, ledger.ReceiveInput{PartID: f.part.ID, ContainerQty: 1, ContainerSize: dec("25"), TotalPrice: dec("40"), Actor: actor})
	assert.ErrorIs(t, err, domain.ErrValidation, "el tamaño de envase queda fijado por la primera recepción")

	_, err = f.svc.Receive(ctx, ledger.ReceiveInput{PartID: "missing", TotalBaseUnits: dec("1"), Actor: actor})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_LedgerIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.receiveBulk(t, "10", "2")
	res := f.receiveBulk(t, "5", "2")

	repo := f.store.Movements()
	first, err := repo.GetByID(ctx, res.MovementID)
	require.NoError(t, err)

	first.Notes = "reescrito"
	assert.ErrorIs(t, repo.Update(ctx, first), domain.ErrProtocolViolation)
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), domain.ErrProtocolViolation)

	again, err := repo.GetByID(ctx, res.MovementID)
	require.NoError(t, err)
	assert.Empty(t, again.Notes, "la copia devuelta no comparte memoria con el libro")

	n := f.entries(t, nil)
	_, err = f.svc.SellExternal(ctx, ledger.ConsumeInput{PartID: f.part.ID, Location: entity.Store(), Amount: dec("1"), Actor: actor})
	require.NoError(t, err)
	assert.Equal(t, n+1, f.entries(t, nil))
}

func TestService_GetLedgerPagination(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	store := entity.Store()
	f.openingBulk(t, store, "100")
	for i := 0; i < 4; i++ {
		_, err := f.svc.SellExternal(ctx, ledger.ConsumeInput{PartID: f.part.ID, Location: store, Amount: dec("10"), Actor: actor})
		require.NoError(t, err)
	}

	page, err := f.svc.GetLedger(ctx, f.part.ID, &store, ledger.Page{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Rows, 2)
	assert.True(t, page.Rows[0].Balance.Equal(dec("80")))
	assert.True(t, page.Rows[1].Balance.Equal(dec("70")))
}

func TestService_ReconcileDetectsDrift(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	store := entity.Store()
	f.openingBulk(t, store, "10")

	// mutación del agregado sin entrada en el libro
	err := f.store.Run(ctx, func(_ repository.MovementRepository, stockRepo repository.LocationStockRepository, _ repository.PartRepository) error {
		_, err := stockRepo.Increment(ctx, entity.StockKey{PartID: f.part.ID, Location: store}, 0, dec("1"), entity.StockGuard{})
		return err
	})
	require.NoError(t, err)

	report, err := f.svc.Reconcile(ctx, f.part.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Drifted)
	require.Len(t, report.Locations, 1)
	assert.False(t, report.Locations[0].InSync)
	assert.True(t, report.Locations[0].CachedBulk.Equal(dec("11")))
	assert.True(t, report.Locations[0].LedgerBulk.Equal(dec("10")))
}

func TestService_RegisterPart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.RegisterPart(ctx, ledger.RegisterPartInput{Code: "OIL-15W40", Name: "Otro", BaseUnit: entity.BaseUnitLiter})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = f.svc.RegisterPart(ctx, ledger.RegisterPartInput{Code: "X", Name: "X", BaseUnit: "gallon"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.GetPart(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_ListPartsAndReconcileAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.openingBulk(t, entity.Store(), "5")

	other, err := f.svc.RegisterPart(ctx, ledger.RegisterPartInput{Code: "BRAKE-DOT4", Name: "Líquido de frenos", BaseUnit: entity.BaseUnitMilliliter})
	require.NoError(t, err)
	_, err = f.svc.InitialStock(ctx, ledger.InitialStockInput{PartID: other.ID, Location: entity.Van("van-b"), Bulk: dec("750"), Actor: actor})
	require.NoError(t, err)

	parts, err := f.svc.ListParts(ctx)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, "BRAKE-DOT4", parts[0].Code)
	assert.Equal(t, "OIL-15W40", parts[1].Code)

	reports, err := f.svc.ReconcileAll(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.Zero(t, r.Drifted, "repuesto %s", r.PartID)
		assert.Len(t, r.Locations, 1)
	}
}
