package ledger_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/liquid-ledger/internal/application/ledger"
	"github.com/jhoicas/liquid-ledger/internal/domain"
	"github.com/jhoicas/liquid-ledger/internal/domain/entity"
)

func TestService_ConcurrentReceiptsAreNotLost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var g errgroup.Group
	for i := 0; i < 40; i++ {
		g.Go(func() error {
			_, err := f.svc.Receive(ctx, ledger.ReceiveInput{
				PartID:        f.part.ID,
				ContainerQty:  1,
				ContainerSize: dec("10"),
				TotalPrice:    dec("30"),
				Actor:         actor,
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	assertBalance(t, f.balance(t, entity.Store()), 40, "0", "400")
	assert.Equal(t, 40, f.entries(t, nil))

	part, err := f.svc.GetPart(ctx, f.part.ID)
	require.NoError(t, err)
	assert.True(t, part.AvgCostPerBaseUnit.Equal(dec("3")), "promedio %s", part.AvgCostPerBaseUnit)
}

func TestService_ConcurrentTransfersAndUsage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.openingBulk(t, entity.Store(), "100")
	van := entity.Van("van-a")

	var g errgroup.Group
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			_, err := f.svc.TransferToVan(ctx, ledger.TransferInput{PartID: f.part.ID, ToVanID: "van-a", Amount: dec("1"), Actor: actor})
			return err
		})
		g.Go(func() error {
			_, err := f.svc.UseInternal(ctx, ledger.ConsumeInput{PartID: f.part.ID, Location: van, Amount: dec("1"), JobID: "J-7", Actor: actor})
			return err
		})
	}
	require.NoError(t, g.Wait())

	assertBalance(t, f.balance(t, entity.Store()), 0, "80", "80")
	assertBalance(t, f.balance(t, van), 0, "0", "0")

	report, err := f.svc.Reconcile(ctx, f.part.ID)
	require.NoError(t, err)
	assert.Zero(t, report.Drifted)
}

func TestService_ConcurrentStoreSalesNeverOversell(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	store := entity.Store()
	f.openingBulk(t, store, "10")

	var ok, rejected atomic.Int32
	var g errgroup.Group
	for i := 0; i < 25; i++ {
		g.Go(func() error {
			_, err := f.svc.SellExternal(ctx, ledger.ConsumeInput{PartID: f.part.ID, Location: store, Amount: dec("1"), Actor: actor})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				rejected.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(10), ok.Load())
	assert.Equal(t, int32(15), rejected.Load())
	assertBalance(t, f.balance(t, store), 0, "0", "0")
	assert.Equal(t, 11, f.entries(t, &store))
}
