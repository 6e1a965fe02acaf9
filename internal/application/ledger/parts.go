package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/liquid-ledger/internal/domain"
	"github.com/jhoicas/liquid-ledger/internal/domain/entity"
)

// RegisterPartInput alta de un repuesto líquido.
type RegisterPartInput struct {
	Code          string
	Name          string
	BaseUnit      string
	ContainerUnit string
	ContainerSize decimal.Decimal // opcional; si falta lo fija la primera recepción en envases
}

// RegisterPart da de alta un repuesto líquido. El código es único.
func (s *Service) RegisterPart(ctx context.Context, in RegisterPartInput) (*entity.Part, error) {
	code := strings.TrimSpace(in.Code)
	name := strings.TrimSpace(in.Name)
	if code == "" || name == "" {
		return nil, fmt.Errorf("%w: código y nombre son obligatorios", domain.ErrValidation)
	}
	if !entity.ValidBaseUnit(in.BaseUnit) {
		return nil, fmt.Errorf("%w: unidad base %q desconocida", domain.ErrValidation, in.BaseUnit)
	}
	if in.ContainerUnit != "" && !entity.ValidContainerUnit(in.ContainerUnit) {
		return nil, fmt.Errorf("%w: unidad de envase %q desconocida", domain.ErrValidation, in.ContainerUnit)
	}
	if in.ContainerSize.IsNegative() {
		return nil, fmt.Errorf("%w: container_size debe ser mayor que cero", domain.ErrValidation)
	}
	existing, err := s.parts.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: ya existe un repuesto con código %s", domain.ErrDuplicate, code)
	}
	now, err := s.clock.Now(ctx)
	if err != nil {
		return nil, err
	}
	part := &entity.Part{
		ID:                 uuid.New().String(),
		Code:               code,
		Name:               name,
		IsLiquid:           true,
		BaseUnit:           in.BaseUnit,
		ContainerUnit:      in.ContainerUnit,
		ContainerSize:      in.ContainerSize,
		AvgCostPerBaseUnit: decimal.Zero,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.parts.Create(ctx, part); err != nil {
		return nil, err
	}
	s.log.Info().Str("part_id", part.ID).Str("code", part.Code).Msg("repuesto líquido registrado")
	return part, nil
}

// GetPart obtiene un repuesto por id.
func (s *Service) GetPart(ctx context.Context, id string) (*entity.Part, error) {
	part, err := s.parts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if part == nil {
		return nil, fmt.Errorf("%w: repuesto %s", domain.ErrNotFound, id)
	}
	return part, nil
}

// ListParts devuelve los repuestos líquidos ordenados por código.
func (s *Service) ListParts(ctx context.Context) ([]*entity.Part, error) {
	all, err := s.parts.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, p := range all {
		if p.IsLiquid {
			out = append(out, p)
		}
	}
	return out, nil
}
