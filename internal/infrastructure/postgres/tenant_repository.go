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

var _ repository.TenantRepository = (*TenantRepo)(nil)

// TenantRepo implementación de TenantRepository sobre PostgreSQL.
type TenantRepo struct {
	q Querier
}

// NewTenantRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTenantRepository(q Querier) *TenantRepo {
	return &TenantRepo{q: q}
}

const columnasTenant = `
	id, nombre, nit, nrc, cod_actividad, desc_actividad, nombre_comercial,
	direccion, telefono, correo, establecimiento, punto_venta, ambiente,
	created_at, updated_at`

// Create registra una nueva empresa emisora.
func (r *TenantRepo) Create(ctx context.Context, t *entity.Tenant) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	query := `
		INSERT INTO tenants (id, nombre, nit, nrc, cod_actividad, desc_actividad, nombre_comercial,
			direccion, telefono, correo, establecimiento, punto_venta, ambiente, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		t.ID, t.Nombre, t.NIT, t.NRC, t.CodActividad, t.DescActividad, t.NombreComercial,
		t.Direccion, t.Telefono, t.Correo, t.Establecimiento, t.PuntoVenta, t.Ambiente,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert tenant: %w", err)
	}
	return nil
}

// GetByID obtiene un tenant por ID.
func (r *TenantRepo) GetByID(ctx context.Context, id string) (*entity.Tenant, error) {
	query := `SELECT ` + columnasTenant + ` FROM tenants WHERE id = $1`
	return r.escanear(r.q.QueryRow(ctx, query, id))
}

// GetByNIT obtiene un tenant por su NIT.
func (r *TenantRepo) GetByNIT(ctx context.Context, nit string) (*entity.Tenant, error) {
	query := `SELECT ` + columnasTenant + ` FROM tenants WHERE nit = $1`
	return r.escanear(r.q.QueryRow(ctx, query, nit))
}

// Update actualiza los datos del emisor.
func (r *TenantRepo) Update(ctx context.Context, t *entity.Tenant) error {
	query := `
		UPDATE tenants
		SET nombre = $2, nrc = $3, cod_actividad = $4, desc_actividad = $5,
		    nombre_comercial = $6, direccion = $7, telefono = $8, correo = $9,
		    establecimiento = $10, punto_venta = $11, ambiente = $12, updated_at = $13
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		t.ID, t.Nombre, t.NRC, t.CodActividad, t.DescActividad,
		t.NombreComercial, t.Direccion, t.Telefono, t.Correo,
		t.Establecimiento, t.PuntoVenta, t.Ambiente, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetCredencialMH devuelve las credenciales API del MH para el ambiente dado.
func (r *TenantRepo) GetCredencialMH(ctx context.Context, tenantID, ambiente string) (*entity.CredencialMH, error) {
	query := `
		SELECT tenant_id, ambiente, usuario, password
		FROM credenciales_mh WHERE tenant_id = $1 AND ambiente = $2`
	var c entity.CredencialMH
	err := r.q.QueryRow(ctx, query, tenantID, ambiente).Scan(&c.TenantID, &c.Ambiente, &c.Usuario, &c.Password)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get credencial mh: %w", err)
	}
	return &c, nil
}

// UpsertCredencialMH registra o reemplaza las credenciales MH de un ambiente.
func (r *TenantRepo) UpsertCredencialMH(ctx context.Context, c *entity.CredencialMH) error {
	query := `
		INSERT INTO credenciales_mh (tenant_id, ambiente, usuario, password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (tenant_id, ambiente)
		DO UPDATE SET usuario = EXCLUDED.usuario, password = EXCLUDED.password, updated_at = now()`
	if _, err := r.q.Exec(ctx, query, c.TenantID, c.Ambiente, c.Usuario, c.Password); err != nil {
		return fmt.Errorf("upsert credencial mh: %w", err)
	}
	return nil
}

func (r *TenantRepo) escanear(row pgx.Row) (*entity.Tenant, error) {
	var t entity.Tenant
	err := row.Scan(
		&t.ID, &t.Nombre, &t.NIT, &t.NRC, &t.CodActividad, &t.DescActividad, &t.NombreComercial,
		&t.Direccion, &t.Telefono, &t.Correo, &t.Establecimiento, &t.PuntoVenta, &t.Ambiente,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

// ── Certificados ──────────────────────────────────────────────────────────────

var _ repository.CertificadoRepository = (*CertificadoRepo)(nil)

// CertificadoRepo persistencia del material PKCS#12 cifrado.
type CertificadoRepo struct {
	q Querier
}

// NewCertificadoRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCertificadoRepository(q Querier) *CertificadoRepo {
	return &CertificadoRepo{q: q}
}

// Upsert registra o reemplaza el certificado del tenant para un ambiente.
func (r *CertificadoRepo) Upsert(ctx context.Context, c *entity.Certificado) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	query := `
		INSERT INTO certificados (id, tenant_id, ambiente, p12_cifrado, pass_cifrado,
			sujeto, serial, valido_desde, valido_hasta, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (tenant_id, ambiente)
		DO UPDATE SET p12_cifrado = EXCLUDED.p12_cifrado, pass_cifrado = EXCLUDED.pass_cifrado,
		              sujeto = EXCLUDED.sujeto, serial = EXCLUDED.serial,
		              valido_desde = EXCLUDED.valido_desde, valido_hasta = EXCLUDED.valido_hasta,
		              updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		c.ID, c.TenantID, c.Ambiente, c.P12Cifrado, c.PassCifrado,
		c.Sujeto, c.Serial, c.ValidoDesde, c.ValidoHasta, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert certificado: %w", err)
	}
	return nil
}

// GetVigente devuelve el certificado del tenant para el ambiente; nil, nil si no hay.
func (r *CertificadoRepo) GetVigente(ctx context.Context, tenantID, ambiente string) (*entity.Certificado, error) {
	query := `
		SELECT id, tenant_id, ambiente, p12_cifrado, pass_cifrado,
		       sujeto, serial, valido_desde, valido_hasta, created_at, updated_at
		FROM certificados WHERE tenant_id = $1 AND ambiente = $2`
	var c entity.Certificado
	err := r.q.QueryRow(ctx, query, tenantID, ambiente).Scan(
		&c.ID, &c.TenantID, &c.Ambiente, &c.P12Cifrado, &c.PassCifrado,
		&c.Sujeto, &c.Serial, &c.ValidoDesde, &c.ValidoHasta, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get certificado: %w", err)
	}
	return &c, nil
}
