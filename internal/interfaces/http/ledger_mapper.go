package http

import (
	"github.com/jhoicas/liquid-ledger/internal/application/dto"
	"github.com/jhoicas/liquid-ledger/internal/application/ledger"
	"github.com/jhoicas/liquid-ledger/internal/domain/entity"
	domainledger "github.com/jhoicas/liquid-ledger/internal/domain/ledger"
)

func toPartResponse(p *entity.Part) dto.PartResponse {
	return dto.PartResponse{
		ID:                 p.ID,
		Code:               p.Code,
		Name:               p.Name,
		BaseUnit:           p.BaseUnit,
		ContainerUnit:      p.ContainerUnit,
		ContainerSize:      p.ContainerSize,
		AvgCostPerBaseUnit: p.AvgCostPerBaseUnit,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}

func toStockResponse(st entity.LocationStock) dto.StockResponse {
	return dto.StockResponse{
		Location:          st.Location.String(),
		ContainerQuantity: st.ContainerQuantity,
		BulkQuantity:      st.BulkQuantity,
	}
}

func warningsOrEmpty(ws []ledger.Warning) []ledger.Warning {
	if ws == nil {
		return []ledger.Warning{}
	}
	return ws
}

func toMovementResponse(r *ledger.Result) dto.MovementResponse {
	return dto.MovementResponse{
		MovementID: r.MovementID,
		Stock:      toStockResponse(r.After),
		Warnings:   warningsOrEmpty(r.Warnings),
	}
}

func toTransferResponse(r *ledger.TransferResult) dto.TransferResponse {
	return dto.TransferResponse{
		TransferID:      r.TransferID,
		StoreMovementID: r.StoreMovementID,
		VanMovementID:   r.VanMovementID,
		Store:           toStockResponse(r.StoreAfter),
		Van:             toStockResponse(r.VanAfter),
		Warnings:        warningsOrEmpty(r.Warnings),
	}
}

func toLedgerRowResponse(row domainledger.Row) dto.LedgerRowResponse {
	m := row.Movement
	return dto.LedgerRowResponse{
		MovementID:         m.ID,
		MovementType:       m.MovementType,
		Location:           m.Location().String(),
		PerformedAt:        m.PerformedAt,
		PerformedBy:        m.PerformedBy,
		PerformedByName:    m.PerformedByName,
		ContainerQtyChange: m.ContainerQtyChange,
		BulkQtyChange:      m.BulkQtyChange,
		Change:             row.Change,
		Balance:            row.Balance,
		IsPositive:         row.IsPositive,
		Reference:          row.Reference,
		JobID:              m.JobID,
		TransferID:         m.TransferID,
		UnitCostAtTime:     m.UnitCostAtTime,
		TotalCost:          m.TotalCost,
		Notes:              m.Notes,
	}
}

func toLedgerResponse(page *ledger.LedgerPage, loc *entity.Location, req dto.PageRequest) dto.LedgerResponse {
	out := dto.LedgerResponse{
		PartID:   page.Part.ID,
		BaseUnit: page.Part.BaseUnit,
		Rows:     make([]dto.LedgerRowResponse, 0, len(page.Rows)),
		Page:     dto.PageResponse{Limit: req.Limit, Offset: req.Offset, Total: page.Total},
	}
	if loc != nil {
		out.Location = loc.String()
	}
	for _, row := range page.Rows {
		out.Rows = append(out.Rows, toLedgerRowResponse(row))
	}
	return out
}
