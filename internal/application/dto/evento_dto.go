package dto

import "github.com/facturasv/dte-api/internal/domain/entity"

// AnulacionRequest body para POST /api/eventos/anulacion.
type AnulacionRequest struct {
	CodigoGeneracion string `json:"codigo_generacion"` // del DTE a anular
	Motivo           string `json:"motivo"`
}

// ContingenciaRequest body para POST /api/eventos/contingencia.
type ContingenciaRequest struct {
	Motivo    string   `json:"motivo"`
	HoraDesde string   `json:"hora_desde"` // HH:MM:SS
	HoraHasta string   `json:"hora_hasta"`
	DTEs      []string `json:"dtes"` // codigoGeneracion de los documentos emitidos en contingencia
}

// EventoResponse evento en respuestas.
type EventoResponse struct {
	ID                  string `json:"id"`
	Tipo                string `json:"tipo"`
	CodigoGeneracionRef string `json:"codigo_generacion_ref,omitempty"`
	CodigoGeneracion    string `json:"codigo_generacion"`
	Motivo              string `json:"motivo"`
	Estado              string `json:"estado"`
	SelloRecibido       string `json:"sello_recibido,omitempty"`
	CodigoMH            string `json:"codigo_mh,omitempty"`
	DescripcionMH       string `json:"descripcion_mh,omitempty"`
}

// ToEventoResponse convierte la entidad al DTO de respuesta.
func ToEventoResponse(e *entity.Evento) *EventoResponse {
	if e == nil {
		return nil
	}
	return &EventoResponse{
		ID:                  e.ID,
		Tipo:                e.Tipo,
		CodigoGeneracionRef: e.CodigoGeneracionRef,
		CodigoGeneracion:    e.CodigoGeneracion,
		Motivo:              e.Motivo,
		Estado:              e.Estado,
		SelloRecibido:       e.SelloRecibido,
		CodigoMH:            e.CodigoMH,
		DescripcionMH:       e.DescripcionMH,
	}
}
