package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/facturasv/dte-api/internal/application/dto"
	"github.com/facturasv/dte-api/internal/application/evento"
)

// EventoHandler maneja los eventos del ciclo de vida: anulación y contingencia (protegido).
type EventoHandler struct {
	uc *evento.UseCase
}

// NewEventoHandler construye el handler.
func NewEventoHandler(uc *evento.UseCase) *EventoHandler {
	return &EventoHandler{uc: uc}
}

// Anular solicita al MH la anulación de un DTE ya procesado.
// POST /api/eventos/anulacion
func (h *EventoHandler) Anular(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.AnulacionRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	ev, err := h.uc.Anular(c.Context(), tenantID, &in)
	if err != nil {
		return responderErrorDTE(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToEventoResponse(ev))
}

// DeclararContingencia reporta al MH documentos emitidos fuera de línea.
// POST /api/eventos/contingencia
func (h *EventoHandler) DeclararContingencia(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.ContingenciaRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	ev, err := h.uc.DeclararContingencia(c.Context(), tenantID, &in)
	if err != nil {
		return responderErrorDTE(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToEventoResponse(ev))
}

// ListarPorDTE lista los eventos asociados a un código de generación.
// GET /api/eventos/:codigoGeneracion
func (h *EventoHandler) ListarPorDTE(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	codigo := c.Params("codigoGeneracion")
	if codigo == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "codigoGeneracion requerido"})
	}
	eventos, err := h.uc.ListarPorDTE(c.Context(), tenantID, codigo)
	if err != nil {
		return responderErrorDTE(c, err)
	}
	out := make([]*dto.EventoResponse, 0, len(eventos))
	for _, ev := range eventos {
		out = append(out, dto.ToEventoResponse(ev))
	}
	return c.JSON(out)
}
