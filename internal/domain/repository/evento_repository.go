package repository

import (
	"context"

	"github.com/facturasv/dte-api/internal/domain/entity"
)

// EventoRepository puerto de persistencia de eventos (anulación/contingencia).
type EventoRepository interface {
	Create(ctx context.Context, e *entity.Evento) error
	Update(ctx context.Context, e *entity.Evento) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.Evento, error)
	ListByDTERef(ctx context.Context, tenantID, codigoGeneracionRef string) ([]*entity.Evento, error)
}
