package ledger

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/liquid-ledger/internal/domain/entity"
	"github.com/jhoicas/liquid-ledger/internal/domain/ledger"
	"github.com/jhoicas/liquid-ledger/internal/domain/quantity"
)

// Page ventana explícita sobre las filas del libro. Limit 0 = sin tope.
type Page struct {
	Limit  int
	Offset int
}

// LedgerPage filas reconstruidas de la ventana pedida más el total de filas de la vista.
type LedgerPage struct {
	Part  *entity.Part
	Rows  []ledger.Row
	Total int
}

// Balance saldo actual de un repuesto en una ubicación.
type Balance struct {
	PartID            string          `json:"part_id"`
	Location          string          `json:"location"`
	ContainerQuantity int64           `json:"container_quantity"`
	BulkQuantity      decimal.Decimal `json:"bulk_quantity"`
	TotalBaseUnits    decimal.Decimal `json:"total_base_units"`
	BaseUnit          string          `json:"base_unit"`
}

// LedgerRows devuelve la secuencia perezosa de filas reconstruidas. loc nil = todo el repuesto.
// Cada recorrido vuelve a leer el libro.
func (s *Service) LedgerRows(ctx context.Context, partID string, loc *entity.Location) (*entity.Part, iter.Seq2[ledger.Row, error], error) {
	part, err := loadLiquidPart(ctx, s.parts, partID, false)
	if err != nil {
		return nil, nil, err
	}
	if loc != nil {
		if err := validLocation(*loc); err != nil {
			return nil, nil, err
		}
	}
	rec := ledger.Reconstructor{ContainerSize: part.ContainerSize, View: loc}
	entries := s.movements.Query(ctx, entity.MovementFilter{PartID: part.ID, Location: loc})
	return part, rec.Rows(entries), nil
}

// GetLedger reconstruye la vista completa y devuelve la ventana pedida. La paginación se aplica
// sobre las filas ya reconstruidas para que los saldos no dependan de la página.
func (s *Service) GetLedger(ctx context.Context, partID string, loc *entity.Location, page Page) (*LedgerPage, error) {
	part, rows, err := s.LedgerRows(ctx, partID, loc)
	if err != nil {
		return nil, err
	}
	out := &LedgerPage{Part: part, Rows: make([]ledger.Row, 0)}
	for row, err := range rows {
		if err != nil {
			return nil, err
		}
		if out.Total >= page.Offset && (page.Limit <= 0 || len(out.Rows) < page.Limit) {
			out.Rows = append(out.Rows, row)
		}
		out.Total++
	}
	return out, nil
}

// GetCurrentBalance lee el agregado cacheado de la ubicación.
func (s *Service) GetCurrentBalance(ctx context.Context, partID string, loc entity.Location) (*Balance, error) {
	if err := validLocation(loc); err != nil {
		return nil, err
	}
	part, err := loadLiquidPart(ctx, s.parts, partID, false)
	if err != nil {
		return nil, err
	}
	st, err := s.stocks.Get(ctx, entity.StockKey{PartID: part.ID, Location: loc})
	if err != nil {
		return nil, err
	}
	return &Balance{
		PartID:            part.ID,
		Location:          loc.String(),
		ContainerQuantity: st.ContainerQuantity,
		BulkQuantity:      st.BulkQuantity,
		TotalBaseUnits:    st.TotalBaseUnits(part.ContainerSize),
		BaseUnit:          part.BaseUnit,
	}, nil
}

// LocationDrift comparación del agregado cacheado con la suma de deltas del libro.
type LocationDrift struct {
	Location         string          `json:"location"`
	CachedContainers int64           `json:"cached_containers"`
	CachedBulk       decimal.Decimal `json:"cached_bulk"`
	LedgerContainers int64           `json:"ledger_containers"`
	LedgerBulk       decimal.Decimal `json:"ledger_bulk"`
	Entries          int             `json:"entries"`
	InSync           bool            `json:"in_sync"`
}

// ReconcileReport resultado de conciliar un repuesto.
type ReconcileReport struct {
	PartID    string          `json:"part_id"`
	CheckedAt time.Time       `json:"checked_at"`
	Locations []LocationDrift `json:"locations"`
	Drifted   int             `json:"drifted"`
}

// Reconcile compara, por ubicación, el agregado cacheado con la suma de los deltas del libro.
// Solo lee: informa desviaciones, no las corrige.
func (s *Service) Reconcile(ctx context.Context, partID string) (*ReconcileReport, error) {
	part, err := loadLiquidPart(ctx, s.parts, partID, false)
	if err != nil {
		return nil, err
	}
	sums := make(map[entity.Location]*LocationDrift)
	slot := func(loc entity.Location) *LocationDrift {
		d, ok := sums[loc]
		if !ok {
			d = &LocationDrift{Location: loc.String()}
			sums[loc] = d
		}
		return d
	}
	for m, err := range s.movements.Query(ctx, entity.MovementFilter{PartID: part.ID}) {
		if err != nil {
			return nil, err
		}
		d := slot(m.Location())
		d.LedgerContainers += m.ContainerQtyChange
		d.LedgerBulk = d.LedgerBulk.Add(m.BulkQtyChange)
		d.Entries++
	}
	stocks, err := s.stocks.ListByPart(ctx, part.ID)
	if err != nil {
		return nil, err
	}
	for _, st := range stocks {
		d := slot(st.Location)
		d.CachedContainers = st.ContainerQuantity
		d.CachedBulk = st.BulkQuantity
	}

	report := &ReconcileReport{PartID: part.ID, Locations: make([]LocationDrift, 0, len(sums))}
	for _, d := range sums {
		d.InSync = d.CachedContainers == d.LedgerContainers && quantity.Equal(d.CachedBulk, d.LedgerBulk)
		if !d.InSync {
			report.Drifted++
		}
		report.Locations = append(report.Locations, *d)
	}
	sort.Slice(report.Locations, func(i, j int) bool {
		return report.Locations[i].Location < report.Locations[j].Location
	})
	if report.CheckedAt, err = s.clock.Now(ctx); err != nil {
		return nil, err
	}

	ev := s.log.Info()
	if report.Drifted > 0 {
		ev = s.log.Warn()
		if s.recorder != nil {
			for i := 0; i < report.Drifted; i++ {
				s.recorder.ObserveWarning("reconcile_drift")
			}
		}
	}
	ev.Str("part_id", part.ID).Int("locations", len(report.Locations)).Int("drifted", report.Drifted).Msg("conciliación del libro")
	return report, nil
}

// ReconcileAll concilia cada repuesto líquido. Un fallo en un repuesto no detiene el resto;
// los errores se devuelven juntos.
func (s *Service) ReconcileAll(ctx context.Context) ([]*ReconcileReport, error) {
	parts, err := s.ListParts(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]*ReconcileReport, 0, len(parts))
	var errs []error
	for _, p := range parts {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		r, err := s.Reconcile(ctx, p.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("conciliar %s: %w", p.Code, err))
			continue
		}
		reports = append(reports, r)
	}
	return reports, errors.Join(errs...)
}
