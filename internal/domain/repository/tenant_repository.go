package repository

import (
	"context"

	"github.com/facturasv/dte-api/internal/domain/entity"
)

// TenantRepository define el puerto de persistencia para Tenant y sus credenciales.
type TenantRepository interface {
	Create(ctx context.Context, t *entity.Tenant) error
	GetByID(ctx context.Context, id string) (*entity.Tenant, error)
	GetByNIT(ctx context.Context, nit string) (*entity.Tenant, error)
	Update(ctx context.Context, t *entity.Tenant) error
	// GetCredencialMH devuelve las credenciales API del MH para el ambiente dado.
	GetCredencialMH(ctx context.Context, tenantID, ambiente string) (*entity.CredencialMH, error)
	UpsertCredencialMH(ctx context.Context, c *entity.CredencialMH) error
}

// CertificadoRepository puerto de persistencia del material PKCS#12 cifrado.
type CertificadoRepository interface {
	Upsert(ctx context.Context, c *entity.Certificado) error
	// GetVigente devuelve el certificado del tenant para el ambiente; nil, nil si no hay.
	GetVigente(ctx context.Context, tenantID, ambiente string) (*entity.Certificado, error)
}
