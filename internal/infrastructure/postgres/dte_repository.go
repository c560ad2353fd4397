package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/facturasv/dte-api/internal/domain"
	"github.com/facturasv/dte-api/internal/domain/entity"
	"github.com/facturasv/dte-api/internal/domain/repository"
)

var _ repository.DTERepository = (*DTERepo)(nil)

// DTERepo implementación de DTERepository sobre PostgreSQL (usable con pool o tx).
type DTERepo struct {
	q Querier
}

// NewDTERepository construye el adaptador. Pasar pool o tx (Querier).
func NewDTERepository(q Querier) *DTERepo {
	return &DTERepo{q: q}
}

const columnasDTE = `
	id, tenant_id, codigo_generacion, numero_control, tipo_dte, ambiente,
	establecimiento, punto_venta, estado, json_original, json_firmado,
	sello_recibido, codigo_mh, descripcion_mh, observaciones,
	intentos_envio, ultimo_error, fecha_emision, created_at, updated_at`

// Create persiste el documento recién creado. Un choque en codigo_generacion
// o numero_control se traduce a ErrCodigoDuplicado.
func (r *DTERepo) Create(ctx context.Context, d *entity.DTE) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	query := `
		INSERT INTO dtes (id, tenant_id, codigo_generacion, numero_control, tipo_dte, ambiente,
			establecimiento, punto_venta, estado, json_original, json_firmado,
			sello_recibido, codigo_mh, descripcion_mh, observaciones,
			intentos_envio, ultimo_error, fecha_emision, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	_, err := r.q.Exec(ctx, query,
		d.ID, d.TenantID, d.CodigoGeneracion, d.NumeroControl, d.TipoDte, d.Ambiente,
		d.Establecimiento, d.PuntoVenta, d.Estado, d.JSONOriginal, nullIfEmpty(d.JSONFirmado),
		nullIfEmpty(d.SelloRecibido), nullIfEmpty(d.CodigoMH), nullIfEmpty(d.DescripcionMH), nullIfEmpty(d.Observaciones),
		d.IntentosEnvio, nullIfEmpty(d.UltimoError), d.FechaEmision, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", domain.ErrCodigoDuplicado, err)
		}
		return fmt.Errorf("insert dte: %w", err)
	}
	return nil
}

// Update persiste los campos mutables del ciclo de vida del documento.
// json_original nunca se toca después del insert.
func (r *DTERepo) Update(ctx context.Context, d *entity.DTE) error {
	query := `
		UPDATE dtes
		SET estado         = $3,
		    json_firmado   = COALESCE($4, json_firmado),
		    sello_recibido = COALESCE($5, sello_recibido),
		    codigo_mh      = COALESCE($6, codigo_mh),
		    descripcion_mh = COALESCE($7, descripcion_mh),
		    observaciones  = COALESCE($8, observaciones),
		    intentos_envio = $9,
		    ultimo_error   = $10,
		    updated_at     = $11
		WHERE id = $1 AND tenant_id = $2`
	tag, err := r.q.Exec(ctx, query,
		d.ID, d.TenantID, d.Estado,
		nullIfEmpty(d.JSONFirmado),
		nullIfEmpty(d.SelloRecibido),
		nullIfEmpty(d.CodigoMH),
		nullIfEmpty(d.DescripcionMH),
		nullIfEmpty(d.Observaciones),
		d.IntentosEnvio, d.UltimoError, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update dte: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene un documento por ID, siempre acotado al tenant.
func (r *DTERepo) GetByID(ctx context.Context, tenantID, id string) (*entity.DTE, error) {
	query := `SELECT ` + columnasDTE + ` FROM dtes WHERE id = $1 AND tenant_id = $2`
	return r.escanearUno(r.q.QueryRow(ctx, query, id, tenantID))
}

// GetByCodigoGeneracion busca por el identificador universal del documento.
func (r *DTERepo) GetByCodigoGeneracion(ctx context.Context, tenantID, codigo string) (*entity.DTE, error) {
	query := `SELECT ` + columnasDTE + ` FROM dtes WHERE codigo_generacion = $1 AND tenant_id = $2`
	return r.escanearUno(r.q.QueryRow(ctx, query, codigo, tenantID))
}

// List devuelve los documentos del tenant, más reciente primero.
func (r *DTERepo) List(ctx context.Context, tenantID string, limit, offset int) ([]*entity.DTE, error) {
	query := `SELECT ` + columnasDTE + `
		FROM dtes WHERE tenant_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list dtes: %w", err)
	}
	return r.escanearLista(rows)
}

// ListPorEstado devuelve documentos en un estado dado, más antiguo primero
// (la reconciliación atiende primero lo que lleva más tiempo atascado).
func (r *DTERepo) ListPorEstado(ctx context.Context, tenantID, estado string, limit int) ([]*entity.DTE, error) {
	query := `SELECT ` + columnasDTE + `
		FROM dtes WHERE tenant_id = $1 AND estado = $2
		ORDER BY updated_at ASC LIMIT $3`
	rows, err := r.q.Query(ctx, query, tenantID, estado, limit)
	if err != nil {
		return nil, fmt.Errorf("list dtes por estado: %w", err)
	}
	return r.escanearLista(rows)
}

// ListEstancados devuelve documentos de cualquier tenant que no se mueven del
// estado dado desde antes del corte, el más viejo primero.
func (r *DTERepo) ListEstancados(ctx context.Context, estado string, antesDe time.Time, limit int) ([]*entity.DTE, error) {
	query := `SELECT ` + columnasDTE + `
		FROM dtes WHERE estado = $1 AND updated_at < $2
		ORDER BY updated_at ASC LIMIT $3`
	rows, err := r.q.Query(ctx, query, estado, antesDe, limit)
	if err != nil {
		return nil, fmt.Errorf("list dtes estancados: %w", err)
	}
	return r.escanearLista(rows)
}

func (r *DTERepo) escanearUno(row pgx.Row) (*entity.DTE, error) {
	var d entity.DTE
	var jsonFirmado, sello, codigoMH, descMH, obs, ultimoError *string
	err := row.Scan(
		&d.ID, &d.TenantID, &d.CodigoGeneracion, &d.NumeroControl, &d.TipoDte, &d.Ambiente,
		&d.Establecimiento, &d.PuntoVenta, &d.Estado, &d.JSONOriginal, &jsonFirmado,
		&sello, &codigoMH, &descMH, &obs,
		&d.IntentosEnvio, &ultimoError, &d.FechaEmision, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get dte: %w", err)
	}
	d.JSONFirmado = derefStr(jsonFirmado)
	d.SelloRecibido = derefStr(sello)
	d.CodigoMH = derefStr(codigoMH)
	d.DescripcionMH = derefStr(descMH)
	d.Observaciones = derefStr(obs)
	d.UltimoError = derefStr(ultimoError)
	return &d, nil
}

func (r *DTERepo) escanearLista(rows pgx.Rows) ([]*entity.DTE, error) {
	defer rows.Close()
	var list []*entity.DTE
	for rows.Next() {
		d, err := r.escanearUno(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, d)
	}
	return list, rows.Err()
}
