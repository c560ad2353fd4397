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

var _ repository.PlantillaRepository = (*PlantillaRepo)(nil)

// PlantillaRepo persistencia de plantillas de facturación recurrente.
type PlantillaRepo struct {
	q Querier
}

// NewPlantillaRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPlantillaRepository(q Querier) *PlantillaRepo {
	return &PlantillaRepo{q: q}
}

// Create registra una plantilla nueva.
func (r *PlantillaRepo) Create(ctx context.Context, p *entity.PlantillaRecurrente) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	query := `
		INSERT INTO plantillas_recurrentes (id, tenant_id, tipo_dte, borrador_json,
			frecuencia_dias, proxima_emision, activa, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.TenantID, p.TipoDte, p.BorradorJSON,
		p.FrecuenciaDias, p.ProximaEmision, p.Activa, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert plantilla: %w", err)
	}
	return nil
}

// Update reprograma o desactiva una plantilla.
func (r *PlantillaRepo) Update(ctx context.Context, p *entity.PlantillaRecurrente) error {
	query := `
		UPDATE plantillas_recurrentes
		SET borrador_json = $3, frecuencia_dias = $4, proxima_emision = $5, activa = $6, updated_at = $7
		WHERE id = $1 AND tenant_id = $2`
	tag, err := r.q.Exec(ctx, query,
		p.ID, p.TenantID, p.BorradorJSON, p.FrecuenciaDias, p.ProximaEmision, p.Activa, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update plantilla: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene una plantilla del tenant.
func (r *PlantillaRepo) GetByID(ctx context.Context, tenantID, id string) (*entity.PlantillaRecurrente, error) {
	query := `
		SELECT id, tenant_id, tipo_dte, borrador_json, frecuencia_dias, proxima_emision, activa, created_at, updated_at
		FROM plantillas_recurrentes WHERE id = $1 AND tenant_id = $2`
	var p entity.PlantillaRecurrente
	err := r.q.QueryRow(ctx, query, id, tenantID).Scan(&p.ID, &p.TenantID, &p.TipoDte, &p.BorradorJSON,
		&p.FrecuenciaDias, &p.ProximaEmision, &p.Activa, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get plantilla: %w", err)
	}
	return &p, nil
}

// ListByTenant lista las plantillas de un tenant, más recientes primero.
func (r *PlantillaRepo) ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*entity.PlantillaRecurrente, error) {
	query := `
		SELECT id, tenant_id, tipo_dte, borrador_json, frecuencia_dias, proxima_emision, activa, created_at, updated_at
		FROM plantillas_recurrentes
		WHERE tenant_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list plantillas: %w", err)
	}
	defer rows.Close()
	var list []*entity.PlantillaRecurrente
	for rows.Next() {
		var p entity.PlantillaRecurrente
		if err := rows.Scan(&p.ID, &p.TenantID, &p.TipoDte, &p.BorradorJSON,
			&p.FrecuenciaDias, &p.ProximaEmision, &p.Activa, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan plantilla: %w", err)
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}

// ListVencidas devuelve plantillas activas con proxima_emision en el pasado,
// la más atrasada primero.
func (r *PlantillaRepo) ListVencidas(ctx context.Context, corte time.Time, limit int) ([]*entity.PlantillaRecurrente, error) {
	query := `
		SELECT id, tenant_id, tipo_dte, borrador_json, frecuencia_dias, proxima_emision, activa, created_at, updated_at
		FROM plantillas_recurrentes
		WHERE activa AND proxima_emision <= $1
		ORDER BY proxima_emision ASC LIMIT $2`
	rows, err := r.q.Query(ctx, query, corte, limit)
	if err != nil {
		return nil, fmt.Errorf("list plantillas vencidas: %w", err)
	}
	defer rows.Close()
	var list []*entity.PlantillaRecurrente
	for rows.Next() {
		var p entity.PlantillaRecurrente
		if err := rows.Scan(&p.ID, &p.TenantID, &p.TipoDte, &p.BorradorJSON,
			&p.FrecuenciaDias, &p.ProximaEmision, &p.Activa, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan plantilla: %w", err)
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}
