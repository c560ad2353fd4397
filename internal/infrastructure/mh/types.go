package mh

import "time"

// ── Contratos de las APIs REST del MH ─────────────────────────────────────────

// AuthRespuesta respuesta de POST /seguridad/auth.
type AuthRespuesta struct {
	Status string   `json:"status"` // "OK" si las credenciales fueron aceptadas
	Body   AuthBody `json:"body"`
}

// AuthBody cuerpo interno de la respuesta de autenticación.
type AuthBody struct {
	Token string   `json:"token"`
	Roles []string `json:"roles"`
}

// TokenInfo token vigente para un (tenant, ambiente).
type TokenInfo struct {
	Token      string
	Roles      []string
	ObtenidoEn time.Time
}

// RecepcionRequest cuerpo de POST /fesv/recepciondte.
type RecepcionRequest struct {
	Ambiente  string `json:"ambiente"`
	IdEnvio   int    `json:"idEnvio"`
	Version   int    `json:"version"`
	TipoDte   string `json:"tipoDte"`
	Documento string `json:"documento"` // JWS compacto del DTE
}

// RecepcionRespuesta respuesta de recepción, consulta y eventos.
type RecepcionRespuesta struct {
	Version          int      `json:"version"`
	Ambiente         string   `json:"ambiente"`
	Estado           string   `json:"estado"` // PROCESADO | RECHAZADO
	CodigoGeneracion string   `json:"codigoGeneracion"`
	SelloRecibido    string   `json:"selloRecibido"`
	FhProcesamiento  string   `json:"fhProcesamiento"`
	ClasificaMsg     string   `json:"clasificaMsg"`
	CodigoMsg        string   `json:"codigoMsg"`
	DescripcionMsg   string   `json:"descripcionMsg"`
	Observaciones    []string `json:"observaciones"`
}

// ConsultaRequest cuerpo de POST /fesv/consultadte.
type ConsultaRequest struct {
	NitEmisor        string `json:"nitEmisor"`
	TipoDte          string `json:"tdte"`
	CodigoGeneracion string `json:"codigoGeneracion"`
}

// EventoRequest cuerpo de POST /fesv/anulardte y /fesv/contingencia.
type EventoRequest struct {
	Ambiente  string `json:"ambiente"`
	IdEnvio   int    `json:"idEnvio"`
	Version   int    `json:"version"`
	Documento string `json:"documento"` // JWS compacto del evento
}
