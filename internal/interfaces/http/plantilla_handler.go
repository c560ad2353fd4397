package http

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/facturasv/dte-api/internal/application/dto"
	"github.com/facturasv/dte-api/internal/domain"
	"github.com/facturasv/dte-api/internal/domain/entity"
	"github.com/facturasv/dte-api/internal/domain/repository"
	pkgdte "github.com/facturasv/dte-api/pkg/dte"
)

// PlantillaHandler administra plantillas de facturación recurrente (protegido).
type PlantillaHandler struct {
	plantillas repository.PlantillaRepository
}

// NewPlantillaHandler construye el handler.
func NewPlantillaHandler(plantillas repository.PlantillaRepository) *PlantillaHandler {
	return &PlantillaHandler{plantillas: plantillas}
}

// Create registra una plantilla; la primera emisión queda programada a un ciclo.
// POST /api/plantillas
func (h *PlantillaHandler) Create(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.CreatePlantillaRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.FrecuenciaDias < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "frecuencia_dias debe ser mayor a cero"})
	}
	if !pkgdte.ValidTipoDte[in.Borrador.TipoDte] {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "tipo_dte del borrador no reconocido"})
	}
	if len(in.Borrador.Items) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "el borrador necesita al menos un ítem"})
	}
	borrador, err := json.Marshal(in.Borrador)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "borrador no serializable"})
	}
	now := time.Now().UTC()
	p := &entity.PlantillaRecurrente{
		TenantID:       tenantID,
		TipoDte:        in.Borrador.TipoDte,
		BorradorJSON:   string(borrador),
		FrecuenciaDias: in.FrecuenciaDias,
		ProximaEmision: now.AddDate(0, 0, in.FrecuenciaDias),
		Activa:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := h.plantillas.Create(c.Context(), p); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToPlantillaResponse(p))
}

// List lista las plantillas del tenant.
// GET /api/plantillas?limit=&offset=
func (h *PlantillaHandler) List(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()
	plantillas, err := h.plantillas.ListByTenant(c.Context(), tenantID, page.Limit, page.Offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	out := make([]*dto.PlantillaResponse, 0, len(plantillas))
	for _, p := range plantillas {
		out = append(out, dto.ToPlantillaResponse(p))
	}
	return c.JSON(out)
}

// Desactivar detiene la emisión recurrente de una plantilla.
// DELETE /api/plantillas/:id
func (h *PlantillaHandler) Desactivar(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	p, err := h.plantillas.GetByID(c.Context(), tenantID, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "plantilla no encontrada"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	p.Activa = false
	p.UpdatedAt = time.Now().UTC()
	if err := h.plantillas.Update(c.Context(), p); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
