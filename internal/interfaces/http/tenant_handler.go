package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/facturasv/dte-api/internal/application/dto"
	"github.com/facturasv/dte-api/internal/domain"
	"github.com/facturasv/dte-api/internal/domain/entity"
	"github.com/facturasv/dte-api/internal/domain/repository"
	pkgdte "github.com/facturasv/dte-api/pkg/dte"
)

// TenantHandler registra empresas emisoras (onboarding).
type TenantHandler struct {
	tenants repository.TenantRepository
}

// NewTenantHandler construye el handler.
func NewTenantHandler(tenants repository.TenantRepository) *TenantHandler {
	return &TenantHandler{tenants: tenants}
}

// Create registra una empresa emisora.
// POST /api/tenants
func (h *TenantHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateTenantRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Nombre == "" || in.NIT == "" || in.Correo == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "nombre, nit y correo son requeridos"})
	}
	in.NIT = pkgdte.OnlyDigits(in.NIT)
	in.NRC = pkgdte.OnlyDigits(in.NRC)
	if in.NIT == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "nit debe ser numérico"})
	}
	if !pkgdte.ValidEmail(in.Correo) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "correo inválido"})
	}
	if in.Ambiente == "" {
		in.Ambiente = pkgdte.AmbientePruebas
	}
	if !pkgdte.ValidAmbiente[in.Ambiente] {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "ambiente debe ser 00 o 01"})
	}
	if in.Establecimiento == "" {
		in.Establecimiento = "M001"
	}
	if in.PuntoVenta == "" {
		in.PuntoVenta = "P001"
	}
	now := time.Now().UTC()
	t := &entity.Tenant{
		Nombre:          in.Nombre,
		NIT:             in.NIT,
		NRC:             in.NRC,
		CodActividad:    in.CodActividad,
		DescActividad:   in.DescActividad,
		NombreComercial: in.NombreComercial,
		Direccion:       in.Direccion,
		Telefono:        in.Telefono,
		Correo:          in.Correo,
		Establecimiento: in.Establecimiento,
		PuntoVenta:      in.PuntoVenta,
		Ambiente:        in.Ambiente,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := h.tenants.Create(c.Context(), t); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: "ya existe un tenant con ese NIT"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToTenantResponse(t))
}

// Me devuelve el tenant del token.
// GET /api/tenants/me
func (h *TenantHandler) Me(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	t, err := h.tenants.GetByID(c.Context(), tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "tenant no encontrado"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(dto.ToTenantResponse(t))
}
