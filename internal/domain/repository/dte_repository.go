package repository

import (
	"context"
	"time"

	"github.com/facturasv/dte-api/internal/domain/entity"
)

// DTERepository define el puerto de persistencia para documentos DTE.
type DTERepository interface {
	Create(ctx context.Context, d *entity.DTE) error
	// Update persiste los campos mutables del ciclo de vida:
	// estado, json_firmado, sello_recibido, codigo_mh, descripcion_mh,
	// observaciones, intentos_envio, ultimo_error.
	Update(ctx context.Context, d *entity.DTE) error
	GetByID(ctx context.Context, tenantID, id string) (*entity.DTE, error)
	GetByCodigoGeneracion(ctx context.Context, tenantID, codigo string) (*entity.DTE, error)
	List(ctx context.Context, tenantID string, limit, offset int) ([]*entity.DTE, error)
	// ListPorEstado devuelve documentos en un estado dado (para reconciliación).
	ListPorEstado(ctx context.Context, tenantID, estado string, limit int) ([]*entity.DTE, error)
	// ListEstancados devuelve documentos de cualquier tenant que llevan en el
	// estado dado desde antes del corte, el más viejo primero.
	ListEstancados(ctx context.Context, estado string, antesDe time.Time, limit int) ([]*entity.DTE, error)
}
