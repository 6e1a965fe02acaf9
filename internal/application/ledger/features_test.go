package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
	"github.com/rs/zerolog"

	"github.com/jhoicas/liquid-ledger/internal/application/ledger"
	"github.com/jhoicas/liquid-ledger/internal/domain"
	"github.com/jhoicas/liquid-ledger/internal/domain/entity"
	"github.com/jhoicas/liquid-ledger/internal/infrastructure/clock"
	"github.com/jhoicas/liquid-ledger/internal/infrastructure/memory"
)

type ledgerWorld struct {
	svc      *ledger.Service
	part     *entity.Part
	warnings []ledger.Warning
	err      error
	receipt  *ledger.ReceiveResult
}

func (w *ledgerWorld) reset() {
	store := memory.NewStore()
	w.svc = ledger.NewService(store, store.Parts(), store.Movements(), store.Stocks(), clock.NewLocal(), ledger.Config{Logger: zerolog.Nop()})
	w.part = nil
	w.warnings = nil
	w.err = nil
	w.receipt = nil
}

func (w *ledgerWorld) record(res *ledger.Result, err error) error {
	w.err = err
	if res != nil {
		w.warnings = append(w.warnings, res.Warnings...)
	}
	return nil
}

func (w *ledgerWorld) aLiquidPart(code, unit string) error {
	part, err := w.svc.RegisterPart(context.Background(), ledger.RegisterPartInput{Code: code, Name: code, BaseUnit: unit})
	w.part = part
	return err
}

func (w *ledgerWorld) iReceiveContainers(n int, size, price string) error {
	res, err := w.svc.Receive(context.Background(), ledger.ReceiveInput{
		PartID:        w.part.ID,
		ContainerQty:  int64(n),
		ContainerSize: dec(size),
		TotalPrice:    dec(price),
		Actor:         actor,
	})
	if err != nil {
		return err
	}
	w.receipt = res
	w.warnings = append(w.warnings, res.Warnings...)
	return nil
}

func (w *ledgerWorld) iReceiveBulk(qty, cost string) error {
	res, err := w.svc.Receive(context.Background(), ledger.ReceiveInput{
		PartID:          w.part.ID,
		TotalBaseUnits:  dec(qty),
		CostPerBaseUnit: dec(cost),
		Actor:           actor,
	})
	if err != nil {
		return err
	}
	w.receipt = res
	w.warnings = append(w.warnings, res.Warnings...)
	return nil
}

func (w *ledgerWorld) openingBalance(qty string, loc entity.Location) error {
	_, err := w.svc.InitialStock(context.Background(), ledger.InitialStockInput{PartID: w.part.ID, Location: loc, Bulk: dec(qty), Actor: actor})
	return err
}

func (w *ledgerWorld) iBreakAtStore(n int) error {
	res, err := w.svc.BreakContainer(context.Background(), ledger.BreakInput{PartID: w.part.ID, Location: entity.Store(), Containers: int64(n), Actor: actor})
	if err != nil {
		return err
	}
	return w.record(res, nil)
}

func (w *ledgerWorld) iTransferBulk(qty, vanID string) error {
	res, err := w.svc.TransferToVan(context.Background(), ledger.TransferInput{PartID: w.part.ID, ToVanID: vanID, Amount: dec(qty), Actor: actor})
	if err != nil {
		return err
	}
	w.warnings = append(w.warnings, res.Warnings...)
	return nil
}

func (w *ledgerWorld) uses(loc entity.Location, qty, job string) error {
	return w.record(w.svc.UseInternal(context.Background(), ledger.ConsumeInput{PartID: w.part.ID, Location: loc, Amount: dec(qty), JobID: job, Actor: actor}))
}

func (w *ledgerWorld) balanceIs(loc entity.Location, containers int, bulk, total string) error {
	b, err := w.svc.GetCurrentBalance(context.Background(), w.part.ID, loc)
	if err != nil {
		return err
	}
	if b.ContainerQuantity != int64(containers) || !b.BulkQuantity.Equal(dec(bulk)) || !b.TotalBaseUnits.Equal(dec(total)) {
		return fmt.Errorf("saldo en %s: (%d, %s) = %s; esperado (%d, %s) = %s",
			b.Location, b.ContainerQuantity, b.BulkQuantity, b.TotalBaseUnits, containers, bulk, total)
	}
	return nil
}

func (w *ledgerWorld) averageCostIs(avg string) error {
	if w.receipt == nil || !w.receipt.AvgCostPerBaseUnit.Equal(dec(avg)) {
		return fmt.Errorf("costo promedio distinto de %s", avg)
	}
	return nil
}

func (w *ledgerWorld) warningEmitted(kind string) error {
	for _, wr := range w.warnings {
		if wr.Kind == kind {
			return nil
		}
	}
	return fmt.Errorf("no se emitió aviso %q (avisos: %v)", kind, w.warnings)
}

func (w *ledgerWorld) failsWithInsufficientStock() error {
	if !errors.Is(w.err, domain.ErrInsufficientStock) {
		return fmt.Errorf("se esperaba stock insuficiente, obtenido %v", w.err)
	}
	return nil
}

func (w *ledgerWorld) lastRowReferences(vanID, ref, balance string) error {
	van := entity.Van(vanID)
	page, err := w.svc.GetLedger(context.Background(), w.part.ID, &van, ledger.Page{})
	if err != nil {
		return err
	}
	if len(page.Rows) == 0 {
		return fmt.Errorf("libro vacío para %s", van)
	}
	last := page.Rows[len(page.Rows)-1]
	if last.Reference != ref || !last.Balance.Equal(dec(balance)) {
		return fmt.Errorf("última fila: %q saldo %s", last.Reference, last.Balance)
	}
	return nil
}

func initializeLedgerScenario(sc *godog.ScenarioContext) {
	w := &ledgerWorld{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		w.reset()
		return ctx, nil
	})

	const num = `(-?\d+(?:\.\d+)?)`

	sc.Step(`^a liquid part "([^"]*)" measured in "([^"]*)"$`, w.aLiquidPart)
	sc.Step(`^an opening balance of `+num+` at the store$`, func(qty string) error {
		return w.openingBalance(qty, entity.Store())
	})
	sc.Step(`^an opening balance of `+num+` at van "([^"]*)"$`, func(qty, van string) error {
		return w.openingBalance(qty, entity.Van(van))
	})

	sc.Step(`^I receive (\d+) containers of `+num+` for a total price of `+num+`$`, w.iReceiveContainers)
	sc.Step(`^I receive `+num+` bulk at `+num+` per base unit$`, w.iReceiveBulk)
	sc.Step(`^I break (\d+) container at the store$`, w.iBreakAtStore)
	sc.Step(`^I transfer `+num+` bulk to van "([^"]*)"$`, w.iTransferBulk)
	sc.Step(`^van "([^"]*)" uses `+num+` for job "([^"]*)"$`, func(van, qty, job string) error {
		return w.uses(entity.Van(van), qty, job)
	})
	sc.Step(`^the store uses `+num+` for job "([^"]*)"$`, func(qty, job string) error {
		return w.uses(entity.Store(), qty, job)
	})

	sc.Step(`^the store balance is (-?\d+) containers and `+num+` bulk totalling `+num+`$`, func(c int, bulk, total string) error {
		return w.balanceIs(entity.Store(), c, bulk, total)
	})
	sc.Step(`^the van "([^"]*)" balance is (-?\d+) containers and `+num+` bulk totalling `+num+`$`, func(van string, c int, bulk, total string) error {
		return w.balanceIs(entity.Van(van), c, bulk, total)
	})
	sc.Step(`^the average cost per base unit is `+num+`$`, w.averageCostIs)
	sc.Step(`^a "([^"]*)" warning was emitted$`, w.warningEmitted)
	sc.Step(`^the operation fails with insufficient stock$`, w.failsWithInsufficientStock)
	sc.Step(`^the last ledger row for van "([^"]*)" references "([^"]*)" with balance `+num+`$`, w.lastRowReferences)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeLedgerScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
