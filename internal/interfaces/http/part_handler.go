package http

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/liquid-ledger/internal/application/dto"
	"github.com/jhoicas/liquid-ledger/internal/application/ledger"
)

// PartHandler maneja el catálogo de repuestos líquidos (protegido).
type PartHandler struct {
	svc      *ledger.Service
	validate *validator.Validate
	log      zerolog.Logger
}

// NewPartHandler construye el handler.
func NewPartHandler(svc *ledger.Service, log zerolog.Logger) *PartHandler {
	return &PartHandler{svc: svc, validate: newValidator(), log: log}
}

// Create godoc
// @Summary      Registrar repuesto líquido
// @Tags         parts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterPartRequest  true  "código, nombre, unidad base y envase"
// @Success      201   {object}  dto.PartResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/parts [post]
func (h *PartHandler) Create(c *fiber.Ctx) error {
	var in dto.RegisterPartRequest
	if ok, err := bindJSON(c, h.validate, &in); !ok {
		return err
	}
	part, err := h.svc.RegisterPart(c.UserContext(), ledger.RegisterPartInput{
		Code:          in.Code,
		Name:          in.Name,
		BaseUnit:      in.BaseUnit,
		ContainerUnit: in.ContainerUnit,
		ContainerSize: in.ContainerSize,
	})
	if err != nil {
		return writeLedgerError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toPartResponse(part))
}

// GetByID godoc
// @Summary      Obtener repuesto líquido
// @Tags         parts
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del repuesto"
// @Success      200  {object}  dto.PartResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/parts/{id} [get]
func (h *PartHandler) GetByID(c *fiber.Ctx) error {
	part, err := h.svc.GetPart(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeLedgerError(c, h.log, err)
	}
	return c.JSON(toPartResponse(part))
}

// List godoc
// @Summary      Listar repuestos líquidos
// @Tags         parts
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.PartResponse
// @Router       /api/parts [get]
func (h *PartHandler) List(c *fiber.Ctx) error {
	parts, err := h.svc.ListParts(c.UserContext())
	if err != nil {
		return writeLedgerError(c, h.log, err)
	}
	out := make([]dto.PartResponse, 0, len(parts))
	for _, p := range parts {
		out = append(out, toPartResponse(p))
	}
	return c.JSON(out)
}
