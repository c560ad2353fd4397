package dto

import (
	"github.com/shopspring/decimal"

	"github.com/facturasv/dte-api/internal/domain/entity"
)

// EmitirDTERequest body para POST /api/dte. El emisor, la numeración y la
// identificación se completan del lado del servidor; el cliente solo manda
// tipo, receptor y líneas.
type EmitirDTERequest struct {
	TipoDte            string           `json:"tipo_dte"`
	CondicionOperacion int              `json:"condicion_operacion"`
	Receptor           ReceptorRequest  `json:"receptor"`
	Items              []ItemDTERequest `json:"items"`
}

// ReceptorRequest datos del receptor del documento.
type ReceptorRequest struct {
	TipoDocumento string `json:"tipo_documento,omitempty"`
	NumDocumento  string `json:"num_documento,omitempty"`
	NIT           string `json:"nit,omitempty"`
	NRC           string `json:"nrc,omitempty"`
	Nombre        string `json:"nombre"`
	Direccion     string `json:"direccion,omitempty"`
	Telefono      string `json:"telefono,omitempty"`
	Correo        string `json:"correo,omitempty"`
}

// ItemDTERequest línea del documento (cantidad, precio, descuento).
type ItemDTERequest struct {
	TipoItem    int             `json:"tipo_item"` // 1 bien, 2 servicio
	Descripcion string          `json:"descripcion"`
	Cantidad    decimal.Decimal `json:"cantidad"`
	PrecioUni   decimal.Decimal `json:"precio_uni"`
	MontoDescu  decimal.Decimal `json:"monto_descu"`
}

// DTEResponse documento en respuestas.
type DTEResponse struct {
	ID               string `json:"id"`
	CodigoGeneracion string `json:"codigo_generacion"`
	NumeroControl    string `json:"numero_control"`
	TipoDte          string `json:"tipo_dte"`
	Ambiente         string `json:"ambiente"`
	Estado           string `json:"estado"`
	SelloRecibido    string `json:"sello_recibido,omitempty"`
	CodigoMH         string `json:"codigo_mh,omitempty"`
	DescripcionMH    string `json:"descripcion_mh,omitempty"`
	Observaciones    string `json:"observaciones,omitempty"`
	IntentosEnvio    int    `json:"intentos_envio"`
	UltimoError      string `json:"ultimo_error,omitempty"`
	FechaEmision     string `json:"fecha_emision"`
}

// ToDTEResponse convierte la entidad al DTO de respuesta.
func ToDTEResponse(d *entity.DTE) *DTEResponse {
	if d == nil {
		return nil
	}
	return &DTEResponse{
		ID:               d.ID,
		CodigoGeneracion: d.CodigoGeneracion,
		NumeroControl:    d.NumeroControl,
		TipoDte:          d.TipoDte,
		Ambiente:         d.Ambiente,
		Estado:           d.Estado,
		SelloRecibido:    d.SelloRecibido,
		CodigoMH:         d.CodigoMH,
		DescripcionMH:    d.DescripcionMH,
		Observaciones:    d.Observaciones,
		IntentosEnvio:    d.IntentosEnvio,
		UltimoError:      d.UltimoError,
		FechaEmision:     d.FechaEmision.Format("2006-01-02"),
	}
}
