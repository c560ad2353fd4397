// Package certificado administra el material criptográfico de los tenants:
// carga de contenedores PKCS#12, cifrado en reposo y sesiones de firma bajo
// demanda. Implementa el puerto Firmador de los pipelines de emisión y eventos.
package certificado

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/facturasv/dte-api/internal/application/dto"
	"github.com/facturasv/dte-api/internal/domain"
	"github.com/facturasv/dte-api/internal/domain/entity"
	"github.com/facturasv/dte-api/internal/domain/repository"
	"github.com/facturasv/dte-api/internal/infrastructure/firmador"
	"github.com/facturasv/dte-api/pkg/cifrado"
	pkgdte "github.com/facturasv/dte-api/pkg/dte"
)

// UseCase casos de uso de certificados.
type UseCase struct {
	certRepo repository.CertificadoRepository
	cifrador *cifrado.Cifrador
	log      zerolog.Logger
	ahora    func() time.Time
}

// NewUseCase construye el caso de uso. El cifrador protege P12 y contraseña
// en reposo; la DB nunca ve el material en claro.
func NewUseCase(certRepo repository.CertificadoRepository, cif *cifrado.Cifrador, log zerolog.Logger) *UseCase {
	return &UseCase{certRepo: certRepo, cifrador: cif, log: log, ahora: time.Now}
}

// Subir valida el contenedor PKCS#12 con su contraseña, extrae los metadatos
// del certificado y persiste ambos cifrados. Reemplaza el certificado previo
// del mismo ambiente si lo hay.
func (uc *UseCase) Subir(ctx context.Context, tenantID string, req *dto.SubirCertificadoRequest) (*dto.CertificadoResponse, error) {
	if !pkgdte.ValidAmbiente[req.Ambiente] {
		return nil, fmt.Errorf("%w: ambiente %q desconocido", domain.ErrValidacion, req.Ambiente)
	}
	p12, err := base64.StdEncoding.DecodeString(req.P12)
	if err != nil {
		return nil, fmt.Errorf("%w: el P12 no es base64 válido", domain.ErrValidacion)
	}

	// Abrir una sesión descarta contenedores corruptos o contraseñas malas
	// antes de persistir nada.
	sesion, err := firmador.CargarCertificado(p12, req.Password)
	if err != nil {
		return nil, err
	}
	info := sesion.Info()
	sesion.Cerrar()

	p12Cifrado, err := uc.cifrador.Cifrar(p12)
	if err != nil {
		return nil, fmt.Errorf("cifrar P12: %w", err)
	}
	passCifrado, err := uc.cifrador.Cifrar([]byte(req.Password))
	if err != nil {
		return nil, fmt.Errorf("cifrar contraseña: %w", err)
	}

	now := uc.ahora()
	cert := &entity.Certificado{
		TenantID:    tenantID,
		Ambiente:    req.Ambiente,
		P12Cifrado:  p12Cifrado,
		PassCifrado: passCifrado,
		Sujeto:      info.Sujeto,
		Serial:      info.Serial,
		ValidoDesde: info.ValidoDesde,
		ValidoHasta: info.ValidoHasta,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.certRepo.Upsert(ctx, cert); err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("tenant", tenantID).
		Str("ambiente", req.Ambiente).
		Str("sujeto", info.Sujeto).
		Time("validoHasta", info.ValidoHasta).
		Msg("certificado registrado")

	return &dto.CertificadoResponse{
		ID:          cert.ID,
		Ambiente:    cert.Ambiente,
		Sujeto:      cert.Sujeto,
		Serial:      cert.Serial,
		ValidoDesde: cert.ValidoDesde.Format(time.RFC3339),
		ValidoHasta: cert.ValidoHasta.Format(time.RFC3339),
	}, nil
}

// Consultar devuelve los metadatos del certificado vigente del ambiente.
func (uc *UseCase) Consultar(ctx context.Context, tenantID, ambiente string) (*dto.CertificadoResponse, error) {
	cert, err := uc.certRepo.GetVigente(ctx, tenantID, ambiente)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, domain.ErrNotFound
	}
	return &dto.CertificadoResponse{
		ID:          cert.ID,
		Ambiente:    cert.Ambiente,
		Sujeto:      cert.Sujeto,
		Serial:      cert.Serial,
		ValidoDesde: cert.ValidoDesde.Format(time.RFC3339),
		ValidoHasta: cert.ValidoHasta.Format(time.RFC3339),
	}, nil
}

// VentanaVigencia devuelve la ventana de validez del certificado actual del
// tenant. Implementa el puerto Firmador junto con Firmar.
func (uc *UseCase) VentanaVigencia(ctx context.Context, tenantID, ambiente string) (time.Time, time.Time, error) {
	cert, err := uc.certRepo.GetVigente(ctx, tenantID, ambiente)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if cert == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: el tenant no tiene certificado para el ambiente %s", domain.ErrCertificado, ambiente)
	}
	return cert.ValidoDesde, cert.ValidoHasta, nil
}

// Firmar abre una sesión efímera con el certificado del tenant, firma el
// payload y libera la llave. Implementa el puerto Firmador.
func (uc *UseCase) Firmar(ctx context.Context, tenantID, ambiente string, payload []byte) (string, error) {
	cert, err := uc.certRepo.GetVigente(ctx, tenantID, ambiente)
	if err != nil {
		return "", err
	}
	if cert == nil {
		return "", fmt.Errorf("%w: el tenant no tiene certificado para el ambiente %s", domain.ErrCertificado, ambiente)
	}

	p12, err := uc.cifrador.Descifrar(cert.P12Cifrado)
	if err != nil {
		return "", fmt.Errorf("%w: no se pudo descifrar el P12: %v", domain.ErrCertificado, err)
	}
	pass, err := uc.cifrador.Descifrar(cert.PassCifrado)
	if err != nil {
		return "", fmt.Errorf("%w: no se pudo descifrar la contraseña: %v", domain.ErrCertificado, err)
	}

	sesion, err := firmador.CargarCertificado(p12, string(pass))
	if err != nil {
		return "", err
	}
	defer sesion.Cerrar()

	return sesion.Firmar(payload, uc.ahora())
}
