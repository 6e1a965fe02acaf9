package http

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/liquid-ledger/internal/application/dto"
	"github.com/jhoicas/liquid-ledger/internal/application/ledger"
	"github.com/jhoicas/liquid-ledger/internal/domain/entity"
)

// maxLedgerPage tope de filas cuando el llamador pide un limit.
const maxLedgerPage = 500

// LedgerHandler maneja los operadores de stock y las consultas del libro de líquidos (protegido).
type LedgerHandler struct {
	svc      *ledger.Service
	validate *validator.Validate
	log      zerolog.Logger
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(svc *ledger.Service, log zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{svc: svc, validate: newValidator(), log: log}
}

func partIDParam(c *fiber.Ctx) string {
	return strings.TrimSpace(c.Params("partId"))
}

// mustLocation la regla "location" del validador ya aceptó el valor.
func mustLocation(s string) entity.Location {
	loc, _ := entity.ParseLocation(s)
	return loc
}

// Receive godoc
// @Summary      Recepción de compra en bodega
// @Description  Envases sellados (container_qty + container_size) o granel (total_base_units).
//
//	Actualiza el costo promedio ponderado; una variación mayor al umbral solo genera aviso.
//
// @Tags         liquids
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        partId  path  string              true  "ID del repuesto"
// @Param        body    body  dto.ReceiveRequest  true  "cantidades y costo"
// @Success      201     {object}  dto.ReceiveResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      403     {object}  dto.ErrorResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/liquids/{partId}/receipts [post]
func (h *LedgerHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceiveRequest
	if ok, err := bindJSON(c, h.validate, &in); !ok {
		return err
	}
	res, err := h.svc.Receive(c.UserContext(), ledger.ReceiveInput{
		PartID:          partIDParam(c),
		ContainerQty:    in.ContainerQty,
		ContainerSize:   in.ContainerSize,
		TotalBaseUnits:  in.TotalBaseUnits,
		TotalPrice:      in.TotalPrice,
		CostPerBaseUnit: in.CostPerBaseUnit,
		POReference:     in.POReference,
		BatchLabel:      in.BatchLabel,
		ExpiresAt:       in.ExpiresAt,
		Notes:           in.Notes,
		Actor:           actorFrom(c),
	})
	if err != nil {
		return writeLedgerError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ReceiveResponse{
		MovementResponse:   toMovementResponse(&res.Result),
		AvgCostPerBaseUnit: res.AvgCostPerBaseUnit,
	})
}

// BreakContainer godoc
// @Summary      Abrir envases sellados
// @Tags         liquids
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        partId  path  string            true  "ID del repuesto"
// @Param        body    body  dto.BreakRequest  true  "ubicación (store o van:<id>) y envases"
// @Success      201     {object}  dto.MovementResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Failure      409     {object}  dto.ErrorResponse
// @Router       /api/liquids/{partId}/breaks [post]
func (h *LedgerHandler) BreakContainer(c *fiber.Ctx) error {
	var in dto.BreakRequest
	if ok, err := bindJSON(c, h.validate, &in); !ok {
		return err
	}
	res, err := h.svc.BreakContainer(c.UserContext(), ledger.BreakInput{
		PartID:     partIDParam(c),
		Location:   mustLocation(in.Location),
		Containers: in.Containers,
		Notes:      in.Notes,
		Actor:      actorFrom(c),
	})
	if err != nil {
		return writeLedgerError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(res))
}

// UseInternal godoc
// @Summary      Consumo interno en un trabajo
// @Description  En bodega nunca deja saldo negativo; en una van puede quedar negativo con aviso.
// @Tags         liquids
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        partId  path  string            true  "ID del repuesto"
// @Param        body    body  dto.UsageRequest  true  "ubicación, cantidad y trabajo"
// @Success      201     {object}  dto.MovementResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Failure      409     {object}  dto.ErrorResponse
// @Router       /api/liquids/{partId}/usages [post]
func (h *LedgerHandler) UseInternal(c *fiber.Ctx) error {
	var in dto.UsageRequest
	if ok, err := bindJSON(c, h.validate, &in); !ok {
		return err
	}
	res, err := h.svc.UseInternal(c.UserContext(), ledger.ConsumeInput{
		PartID:   partIDParam(c),
		Location: mustLocation(in.Location),
		Amount:   in.Amount,
		JobID:    in.JobID,
		Notes:    in.Notes,
		Actor:    actorFrom(c),
	})
	if err != nil {
		return writeLedgerError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(res))
}

// SellExternal godoc
// @Summary      Venta a un tercero
// @Tags         liquids
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        partId  path  string           true  "ID del repuesto"
// @Param        body    body  dto.SaleRequest  true  "ubicación y cantidad"
// @Success      201     {object}  dto.MovementResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      403     {object}  dto.ErrorResponse
// @Failure      409     {object}  dto.ErrorResponse
// @Router       /api/liquids/{partId}/sales [post]
func (h *LedgerHandler) SellExternal(c *fiber.Ctx) error {
	var in dto.SaleRequest
	if ok, err := bindJSON(c, h.validate, &in); !ok {
		return err
	}
	res, err := h.svc.SellExternal(c.UserContext(), ledger.ConsumeInput{
		PartID:   partIDParam(c),
		Location: mustLocation(in.Location),
		Amount:   in.Amount,
		Notes:    in.Notes,
		Actor:    actorFrom(c),
	})
	if err != nil {
		return writeLedgerError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(res))
}

// TransferToVan godoc
// @Summary      Traslado de bodega a van
// @Description  Dos entradas enlazadas por transfer_id. La bodega nunca queda negativa en la unidad trasladada.
// @Tags         liquids
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        partId  path  string               true  "ID del repuesto"
// @Param        body    body  dto.TransferRequest  true  "van destino, cantidad y unidad"
// @Success      201     {object}  dto.TransferResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      403     {object}  dto.ErrorResponse
// @Failure      409     {object}  dto.ErrorResponse
// @Router       /api/liquids/{partId}/transfers [post]
func (h *LedgerHandler) TransferToVan(c *fiber.Ctx) error {
	var in dto.TransferRequest
	if ok, err := bindJSON(c, h.validate, &in); !ok {
		return err
	}
	res, err := h.svc.TransferToVan(c.UserContext(), ledger.TransferInput{
		PartID:  partIDParam(c),
		ToVanID: in.ToVanID,
		Amount:  in.Amount,
		Unit:    in.Unit,
		Notes:   in.Notes,
		Actor:   actorFrom(c),
	})
	if err != nil {
		return writeLedgerError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toTransferResponse(res))
}

// ReturnToStore godoc
// @Summary      Devolución de van a bodega
// @Description  Sin cantidades devuelve todo el saldo positivo de la van.
// @Tags         liquids
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        partId  path  string             true  "ID del repuesto"
// @Param        body    body  dto.ReturnRequest  true  "van origen y cantidades opcionales"
// @Success      201     {object}  dto.TransferResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      409     {object}  dto.ErrorResponse
// @Router       /api/liquids/{partId}/returns [post]
func (h *LedgerHandler) ReturnToStore(c *fiber.Ctx) error {
	var in dto.ReturnRequest
	if ok, err := bindJSON(c, h.validate, &in); !ok {
		return err
	}
	res, err := h.svc.ReturnToStore(c.UserContext(), ledger.ReturnInput{
		PartID:     partIDParam(c),
		FromVanID:  in.FromVanID,
		Containers: in.Containers,
		Bulk:       in.Bulk,
		Notes:      in.Notes,
		Actor:      actorFrom(c),
	})
	if err != nil {
		return writeLedgerError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toTransferResponse(res))
}

// Adjust godoc
// @Summary      Ajuste administrativo
// @Tags         liquids
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        partId  path  string             true  "ID del repuesto"
// @Param        body    body  dto.AdjustRequest  true  "deltas firmados y notas"
// @Success      201     {object}  dto.MovementResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      403     {object}  dto.ErrorResponse
// @Router       /api/liquids/{partId}/adjustments [post]
func (h *LedgerHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustRequest
	if ok, err := bindJSON(c, h.validate, &in); !ok {
		return err
	}
	res, err := h.svc.Adjust(c.UserContext(), ledger.AdjustInput{
		PartID:         partIDParam(c),
		Location:       mustLocation(in.Location),
		ContainerDelta: in.ContainerDelta,
		BulkDelta:      in.BulkDelta,
		Notes:          in.Notes,
		Actor:          actorFrom(c),
	})
	if err != nil {
		return writeLedgerError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(res))
}

// InitialStock godoc
// @Summary      Saldo de apertura
// @Description  Solo en una ubicación sin movimientos previos.
// @Tags         liquids
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        partId  path  string                   true  "ID del repuesto"
// @Param        body    body  dto.InitialStockRequest  true  "ubicación y cantidades"
// @Success      201     {object}  dto.MovementResponse
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      403     {object}  dto.ErrorResponse
// @Router       /api/liquids/{partId}/initial-stock [post]
func (h *LedgerHandler) InitialStock(c *fiber.Ctx) error {
	var in dto.InitialStockRequest
	if ok, err := bindJSON(c, h.validate, &in); !ok {
		return err
	}
	res, err := h.svc.InitialStock(c.UserContext(), ledger.InitialStockInput{
		PartID:        partIDParam(c),
		Location:      mustLocation(in.Location),
		Containers:    in.Containers,
		Bulk:          in.Bulk,
		ContainerSize: in.ContainerSize,
		Notes:         in.Notes,
		Actor:         actorFrom(c),
	})
	if err != nil {
		return writeLedgerError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(res))
}

// GetLedger godoc
// @Summary      Libro de movimientos con saldo corrido
// @Tags         liquids
// @Security     Bearer
// @Produce      json
// @Param        partId    path   string  true   "ID del repuesto"
// @Param        location  query  string  false  "store o van:<id>. Vacío = todo el repuesto."
// @Param        limit     query  int     false  "filas por página (sin limit = todas, máximo 500)"
// @Param        offset    query  int     false  "desplazamiento"
// @Success      200       {object}  dto.LedgerResponse
// @Failure      400       {object}  dto.ErrorResponse
// @Failure      404       {object}  dto.ErrorResponse
// @Router       /api/liquids/{partId}/ledger [get]
func (h *LedgerHandler) GetLedger(c *fiber.Ctx) error {
	loc, err := parseLocationQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	// Sin limit se devuelve la vista completa; el tope solo aplica a límites explícitos.
	page := dto.PageRequest{Limit: max(c.QueryInt("limit", 0), 0), Offset: max(c.QueryInt("offset", 0), 0)}
	if page.Limit > maxLedgerPage {
		page.Limit = maxLedgerPage
	}
	res, err := h.svc.GetLedger(c.UserContext(), partIDParam(c), loc, ledger.Page{Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		return writeLedgerError(c, h.log, err)
	}
	return c.JSON(toLedgerResponse(res, loc, page))
}

// GetBalance godoc
// @Summary      Saldo actual de una ubicación
// @Tags         liquids
// @Security     Bearer
// @Produce      json
// @Param        partId    path   string  true   "ID del repuesto"
// @Param        location  query  string  false  "store (por defecto) o van:<id>"
// @Success      200       {object}  ledger.Balance
// @Failure      400       {object}  dto.ErrorResponse
// @Failure      404       {object}  dto.ErrorResponse
// @Router       /api/liquids/{partId}/balance [get]
func (h *LedgerHandler) GetBalance(c *fiber.Ctx) error {
	loc, err := parseLocationQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	if loc == nil {
		store := entity.Store()
		loc = &store
	}
	b, err := h.svc.GetCurrentBalance(c.UserContext(), partIDParam(c), *loc)
	if err != nil {
		return writeLedgerError(c, h.log, err)
	}
	return c.JSON(b)
}

// Reconcile godoc
// @Summary      Conciliación del agregado contra el libro
// @Description  Solo lectura: informa desviaciones por ubicación, no las corrige.
// @Tags         liquids
// @Security     Bearer
// @Produce      json
// @Param        partId  path  string  true  "ID del repuesto"
// @Success      200     {object}  ledger.ReconcileReport
// @Failure      403     {object}  dto.ErrorResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/liquids/{partId}/reconciliation [get]
func (h *LedgerHandler) Reconcile(c *fiber.Ctx) error {
	report, err := h.svc.Reconcile(c.UserContext(), partIDParam(c))
	if err != nil {
		return writeLedgerError(c, h.log, err)
	}
	return c.JSON(report)
}
