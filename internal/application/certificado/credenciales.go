package certificado

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/facturasv/dte-api/internal/application/dto"
	"github.com/facturasv/dte-api/internal/domain"
	"github.com/facturasv/dte-api/internal/domain/entity"
	"github.com/facturasv/dte-api/internal/domain/repository"
	"github.com/facturasv/dte-api/pkg/cifrado"
	pkgdte "github.com/facturasv/dte-api/pkg/dte"
)

// CredencialesUseCase administra las credenciales API del MH por tenant y
// ambiente. La contraseña se cifra en reposo con la misma llave de servidor
// que el material PKCS#12.
type CredencialesUseCase struct {
	tenants  repository.TenantRepository
	cifrador *cifrado.Cifrador
}

// NewCredencialesUseCase construye el caso de uso.
func NewCredencialesUseCase(tenants repository.TenantRepository, cifrador *cifrado.Cifrador) *CredencialesUseCase {
	return &CredencialesUseCase{tenants: tenants, cifrador: cifrador}
}

// Guardar registra o reemplaza las credenciales MH de un ambiente.
func (uc *CredencialesUseCase) Guardar(ctx context.Context, tenantID string, req *dto.CredencialMHRequest) error {
	if !pkgdte.ValidAmbiente[req.Ambiente] {
		return fmt.Errorf("%w: ambiente %q no reconocido", domain.ErrInvalidInput, req.Ambiente)
	}
	if req.Usuario == "" || req.Password == "" {
		return fmt.Errorf("%w: usuario y password son obligatorios", domain.ErrInvalidInput)
	}
	cifrada, err := uc.cifrador.Cifrar([]byte(req.Password))
	if err != nil {
		return fmt.Errorf("cifrar credencial: %w", err)
	}
	return uc.tenants.UpsertCredencialMH(ctx, &entity.CredencialMH{
		TenantID: tenantID,
		Ambiente: req.Ambiente,
		Usuario:  req.Usuario,
		Password: base64.StdEncoding.EncodeToString(cifrada),
	})
}

// Obtener devuelve usuario y contraseña ya descifrados. Satisface mh.CredencialFn.
func (uc *CredencialesUseCase) Obtener(ctx context.Context, tenantID, ambiente string) (string, string, error) {
	cred, err := uc.tenants.GetCredencialMH(ctx, tenantID, ambiente)
	if err != nil {
		return "", "", err
	}
	if cred == nil {
		return "", "", fmt.Errorf("%w: sin credenciales MH para ambiente %s", domain.ErrAutenticacionMH, ambiente)
	}
	cifrada, err := base64.StdEncoding.DecodeString(cred.Password)
	if err != nil {
		return "", "", fmt.Errorf("credencial corrupta: %w", err)
	}
	clara, err := uc.cifrador.Descifrar(cifrada)
	if err != nil {
		return "", "", fmt.Errorf("descifrar credencial: %w", err)
	}
	return cred.Usuario, string(clara), nil
}
