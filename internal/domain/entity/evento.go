package entity

import "time"

// Estados del ciclo de vida de un evento (independiente del DTE padre).
const (
	EventoPendiente = "PENDIENTE"
	EventoEnviado   = "ENVIADO"
	EventoAceptado  = "ACEPTADO"
	EventoRechazado = "RECHAZADO"
	EventoError     = "ERROR"
)

// Evento registra una anulación o contingencia sobre un DTE ya transmitido.
// Referencia al documento por codigoGeneracion y nunca muta su payload firmado.
type Evento struct {
	ID                  string
	TenantID            string
	Tipo                string // pkg/dte.EventoAnulacion | EventoContingencia
	CodigoGeneracionRef string // codigoGeneracion del DTE afectado
	CodigoGeneracion    string // identificador propio del evento ante el MH
	Motivo              string
	Estado              string
	JSONFirmado         string
	SelloRecibido       string
	CodigoMH            string
	DescripcionMH       string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
