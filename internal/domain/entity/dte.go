package entity

import (
	"time"
)

// DTE representa un Documento Tributario Electrónico persistido.
// Una vez PROCESADO el documento queda sellado: jsonOriginal y jsonFirmado son
// inmutables y cualquier anulación posterior se registra como Evento vinculado.
type DTE struct {
	ID               string
	TenantID         string
	CodigoGeneracion string // UUID de 36 caracteres en mayúsculas, inmutable
	NumeroControl    string // 31 caracteres, único por tenant+establecimiento+puntoVenta
	TipoDte          string // "01" | "03" | "05" | "06"
	Ambiente         string // "00" pruebas, "01" producción
	Establecimiento  string
	PuntoVenta       string
	Estado           string // ver internal/domain/dte.Estado
	JSONOriginal     string // payload canónico sin firmar
	JSONFirmado      string // JWS compacto; se fija al firmar con éxito
	SelloRecibido    string // sello del MH, presente solo en estado PROCESADO
	CodigoMH         string // codigoMsg de la respuesta MH
	DescripcionMH    string // descripcionMsg de la respuesta MH
	Observaciones    string // observaciones[] del MH serializadas
	IntentosEnvio    int
	UltimoError      string
	FechaEmision     time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Sellado indica si el documento alcanzó estado terminal aceptado y no debe mutarse.
func (d *DTE) Sellado() bool {
	return d.Estado == "PROCESADO" && d.SelloRecibido != ""
}
