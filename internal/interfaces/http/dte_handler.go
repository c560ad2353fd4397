package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/facturasv/dte-api/internal/application/dto"
	"github.com/facturasv/dte-api/internal/application/emision"
	"github.com/facturasv/dte-api/internal/domain"
	"github.com/facturasv/dte-api/internal/domain/repository"
)

// DTEHandler maneja las peticiones HTTP de emisión y ciclo de vida de DTE (protegido).
type DTEHandler struct {
	uc   *emision.EmitterUseCase
	dtes repository.DTERepository
}

// NewDTEHandler construye el handler.
func NewDTEHandler(uc *emision.EmitterUseCase, dtes repository.DTERepository) *DTEHandler {
	return &DTEHandler{uc: uc, dtes: dtes}
}

// Emitir ejecuta el pipeline completo: numerar, validar, firmar y transmitir.
// POST /api/dte
func (h *DTEHandler) Emitir(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.EmitirDTERequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	registro, err := h.uc.Emitir(c.Context(), tenantID, &in)
	if err != nil {
		return responderErrorDTE(c, err)
	}
	// ERROR o RECHAZADO también se devuelven: el cliente necesita el estado
	// real del documento, no solo un código HTTP.
	return c.Status(fiber.StatusCreated).JSON(dto.ToDTEResponse(registro))
}

// Reintentar retoma un documento en ERROR y vuelve a firmar/transmitir.
// POST /api/dte/:id/reintentar
func (h *DTEHandler) Reintentar(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	registro, err := h.uc.Reintentar(c.Context(), tenantID, id)
	if err != nil {
		return responderErrorDTE(c, err)
	}
	return c.JSON(dto.ToDTEResponse(registro))
}

// Consultar pregunta al MH el estado real del documento y reconcilia el local.
// POST /api/dte/:id/consultar
func (h *DTEHandler) Consultar(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	registro, err := h.uc.Consultar(c.Context(), tenantID, id)
	if err != nil {
		return responderErrorDTE(c, err)
	}
	return c.JSON(dto.ToDTEResponse(registro))
}

// GetByID obtiene el detalle de un documento.
// GET /api/dte/:id
func (h *DTEHandler) GetByID(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id requerido"})
	}
	registro, err := h.dtes.GetByID(c.Context(), tenantID, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "documento no encontrado"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(dto.ToDTEResponse(registro))
}

// List lista los documentos del tenant, más recientes primero.
// GET /api/dte?limit=&offset=
func (h *DTEHandler) List(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	page.DefaultPage()
	registros, err := h.dtes.List(c.Context(), tenantID, page.Limit, page.Offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	out := make([]*dto.DTEResponse, 0, len(registros))
	for _, r := range registros {
		out = append(out, dto.ToDTEResponse(r))
	}
	return c.JSON(out)
}

// responderErrorDTE mapea la taxonomía de errores del pipeline a códigos HTTP.
func responderErrorDTE(c *fiber.Ctx, err error) error {
	var invalido *emision.ErrDocumentoInvalido
	if errors.As(err, &invalido) {
		resp := dto.ValidationErrorResponse{Code: "VALIDATION", Message: "documento inválido"}
		for _, e := range invalido.Resultado.Errors {
			resp.Errores = append(resp.Errores, dto.FieldErrorResponse{Campo: e.Path, Detalle: e.Message})
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(resp)
	}
	switch {
	case errors.Is(err, domain.ErrValidacion):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, domain.ErrTransicionEstado):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "ESTADO_INVALIDO", Message: err.Error()})
	case errors.Is(err, domain.ErrCodigoDuplicado):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICADO", Message: err.Error()})
	case errors.Is(err, domain.ErrCertificadoVencido):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CERT_VENCIDO", Message: "el certificado del tenant está vencido"})
	case errors.Is(err, domain.ErrCertificado):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CERT_INVALIDO", Message: "no hay certificado utilizable para el ambiente"})
	case errors.Is(err, domain.ErrRechazoMH):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "MH_RECHAZO", Message: err.Error()})
	case errors.Is(err, domain.ErrSecuencia):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "SECUENCIA", Message: "no se pudo asignar numeración"})
	case errors.Is(err, domain.ErrAutenticacionMH):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "MH_AUTH", Message: "autenticación rechazada por el MH"})
	case errors.Is(err, domain.ErrTransporte):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "MH_TRANSPORTE", Message: "el MH no está disponible"})
	case errors.Is(err, domain.ErrAnomaliaProtocolo):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Code: "MH_PROTOCOLO", Message: "respuesta no reconocida del MH"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}
