package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/facturasv/dte-api/internal/domain"
	"github.com/facturasv/dte-api/internal/domain/entity"
	"github.com/facturasv/dte-api/internal/domain/repository"
)

var _ repository.EventoRepository = (*EventoRepo)(nil)

// EventoRepo persistencia de eventos de anulación y contingencia.
type EventoRepo struct {
	q Querier
}

// NewEventoRepository construye el adaptador. Pasar pool o tx (Querier).
func NewEventoRepository(q Querier) *EventoRepo {
	return &EventoRepo{q: q}
}

const columnasEvento = `
	id, tenant_id, tipo, codigo_generacion_ref, codigo_generacion, motivo,
	estado, json_firmado, sello_recibido, codigo_mh, descripcion_mh,
	created_at, updated_at`

// Create persiste un evento nuevo.
func (r *EventoRepo) Create(ctx context.Context, e *entity.Evento) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	query := `
		INSERT INTO eventos (id, tenant_id, tipo, codigo_generacion_ref, codigo_generacion, motivo,
			estado, json_firmado, sello_recibido, codigo_mh, descripcion_mh, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		e.ID, e.TenantID, e.Tipo, e.CodigoGeneracionRef, e.CodigoGeneracion, e.Motivo,
		e.Estado, nullIfEmpty(e.JSONFirmado), nullIfEmpty(e.SelloRecibido),
		nullIfEmpty(e.CodigoMH), nullIfEmpty(e.DescripcionMH), e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", domain.ErrCodigoDuplicado, err)
		}
		return fmt.Errorf("insert evento: %w", err)
	}
	return nil
}

// Update persiste el avance del ciclo de vida del evento.
func (r *EventoRepo) Update(ctx context.Context, e *entity.Evento) error {
	query := `
		UPDATE eventos
		SET estado         = $3,
		    json_firmado   = COALESCE($4, json_firmado),
		    sello_recibido = COALESCE($5, sello_recibido),
		    codigo_mh      = COALESCE($6, codigo_mh),
		    descripcion_mh = COALESCE($7, descripcion_mh),
		    updated_at     = $8
		WHERE id = $1 AND tenant_id = $2`
	tag, err := r.q.Exec(ctx, query,
		e.ID, e.TenantID, e.Estado,
		nullIfEmpty(e.JSONFirmado), nullIfEmpty(e.SelloRecibido),
		nullIfEmpty(e.CodigoMH), nullIfEmpty(e.DescripcionMH), e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update evento: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene un evento acotado al tenant.
func (r *EventoRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.Evento, error) {
	query := `SELECT ` + columnasEvento + ` FROM eventos WHERE id = $1 AND tenant_id = $2`
	return r.escanear(r.q.QueryRow(ctx, query, id, tenantID))
}

// ListByDTERef devuelve los eventos registrados sobre un documento.
func (r *EventoRepo) ListByDTERef(ctx context.Context, tenantID, codigoGeneracionRef string) ([]*entity.Evento, error) {
	query := `SELECT ` + columnasEvento + `
		FROM eventos WHERE tenant_id = $1 AND codigo_generacion_ref = $2
		ORDER BY created_at ASC`
	rows, err := r.q.Query(ctx, query, tenantID, codigoGeneracionRef)
	if err != nil {
		return nil, fmt.Errorf("list eventos: %w", err)
	}
	defer rows.Close()
	var list []*entity.Evento
	for rows.Next() {
		e, err := r.escanear(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func (r *EventoRepo) escanear(row pgx.Row) (*entity.Evento, error) {
	var e entity.Evento
	var jsonFirmado, sello, codigoMH, descMH *string
	err := row.Scan(
		&e.ID, &e.TenantID, &e.Tipo, &e.CodigoGeneracionRef, &e.CodigoGeneracion, &e.Motivo,
		&e.Estado, &jsonFirmado, &sello, &codigoMH, &descMH,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get evento: %w", err)
	}
	e.JSONFirmado = derefStr(jsonFirmado)
	e.SelloRecibido = derefStr(sello)
	e.CodigoMH = derefStr(codigoMH)
	e.DescripcionMH = derefStr(descMH)
	return &e, nil
}
