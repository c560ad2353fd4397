package repository

import (
	"context"

	"github.com/facturasv/dte-api/internal/domain/entity"
)

// UserRepository puerto de persistencia de usuarios del dashboard.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByEmailAndTenant(ctx context.Context, email, tenantID string) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
}
