package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/facturasv/dte-api/internal/application/certificado"
	"github.com/facturasv/dte-api/internal/application/dto"
	"github.com/facturasv/dte-api/internal/domain"
)

// CertificadoHandler administra el material criptográfico y las credenciales MH
// del tenant (protegido, solo admin).
type CertificadoHandler struct {
	certs *certificado.UseCase
	creds *certificado.CredencialesUseCase
}

// NewCertificadoHandler construye el handler.
func NewCertificadoHandler(certs *certificado.UseCase, creds *certificado.CredencialesUseCase) *CertificadoHandler {
	return &CertificadoHandler{certs: certs, creds: creds}
}

// Subir carga un PKCS#12; se valida abriéndolo antes de persistirlo cifrado.
// POST /api/certificados
func (h *CertificadoHandler) Subir(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.SubirCertificadoRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	resp, err := h.certs.Subir(c.Context(), tenantID, &in)
	if err != nil {
		if errors.Is(err, domain.ErrCertificadoVencido) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "CERT_VENCIDO", Message: "el certificado está fuera de su ventana de validez"})
		}
		if errors.Is(err, domain.ErrCertificado) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "CERT_INVALIDO", Message: "no se pudo abrir el PKCS#12 con la contraseña dada"})
		}
		if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrValidacion) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Consultar devuelve los metadatos del certificado vigente de un ambiente.
// GET /api/certificados?ambiente=00
func (h *CertificadoHandler) Consultar(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	ambiente := c.Query("ambiente")
	resp, err := h.certs.Consultar(c.Context(), tenantID, ambiente)
	if err != nil {
		if errors.Is(err, domain.ErrCertificado) || errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "sin certificado para el ambiente"})
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(resp)
}

// GuardarCredenciales registra las credenciales del API MH de un ambiente.
// POST /api/credenciales
func (h *CertificadoHandler) GuardarCredenciales(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.CredencialMHRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := h.creds.Guardar(c.Context(), tenantID, &in); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
