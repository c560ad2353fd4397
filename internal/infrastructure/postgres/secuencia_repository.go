package postgres

import (
	"context"
	"fmt"

	"github.com/facturasv/dte-api/internal/domain"
	"github.com/facturasv/dte-api/internal/domain/repository"
)

var _ repository.SecuenciaRepository = (*SecuenciaRepo)(nil)

// SecuenciaRepo contador monotónico de numeroControl sobre PostgreSQL.
type SecuenciaRepo struct {
	q Querier
}

// NewSecuenciaRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSecuenciaRepository(q Querier) *SecuenciaRepo {
	return &SecuenciaRepo{q: q}
}

// Next incrementa y devuelve el siguiente correlativo para la llave
// (tenant, establecimiento, puntoVenta, tipoDte). El upsert con RETURNING es
// atómico: emisiones concurrentes sobre la misma llave serializan en la fila
// y jamás comparten valor. Cualquier fallo aborta la emisión (fail-closed).
func (r *SecuenciaRepo) Next(ctx context.Context, tenantID, establecimiento, puntoVenta, tipoDte string) (int64, error) {
	query := `
		INSERT INTO secuencias_numeracion (tenant_id, establecimiento, punto_venta, tipo_dte, ultimo_valor, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 1, now(), now())
		ON CONFLICT (tenant_id, establecimiento, punto_venta, tipo_dte)
		DO UPDATE SET ultimo_valor = secuencias_numeracion.ultimo_valor + 1, updated_at = now()
		RETURNING ultimo_valor`
	var valor int64
	if err := r.q.QueryRow(ctx, query, tenantID, establecimiento, puntoVenta, tipoDte).Scan(&valor); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrSecuencia, err)
	}
	return valor, nil
}
