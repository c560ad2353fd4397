package repository

import (
	"context"
	"time"

	"github.com/facturasv/dte-api/internal/domain/entity"
)

// PlantillaRepository puerto de persistencia de plantillas recurrentes.
type PlantillaRepository interface {
	Create(ctx context.Context, p *entity.PlantillaRecurrente) error
	Update(ctx context.Context, p *entity.PlantillaRecurrente) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.PlantillaRecurrente, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*entity.PlantillaRecurrente, error)
	// ListVencidas devuelve plantillas activas con ProximaEmision <= corte.
	ListVencidas(ctx context.Context, corte time.Time, limit int) ([]*entity.PlantillaRecurrente, error)
}
