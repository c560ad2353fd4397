package entity

import (
	"github.com/shopspring/decimal"
)

// Documento es el payload JSON del DTE conforme al esquema del MH.
// Los tags json siguen el nombre exacto de campo del esquema oficial: el MH
// valida el documento firmado byte a byte contra su JSON Schema.
type Documento struct {
	Identificacion  Identificacion `json:"identificacion"`
	Emisor          Emisor         `json:"emisor"`
	Receptor        Receptor       `json:"receptor"`
	CuerpoDocumento []CuerpoItem   `json:"cuerpoDocumento"`
	Resumen         Resumen        `json:"resumen"`
}

// Identificacion encabezado de identificación del DTE.
type Identificacion struct {
	Version          int    `json:"version"`
	Ambiente         string `json:"ambiente"`
	TipoDte          string `json:"tipoDte"`
	NumeroControl    string `json:"numeroControl"`
	CodigoGeneracion string `json:"codigoGeneracion"`
	TipoModelo       int    `json:"tipoModelo"`
	TipoOperacion    int    `json:"tipoOperacion"`
	FecEmi           string `json:"fecEmi"` // YYYY-MM-DD
	HorEmi           string `json:"horEmi"` // HH:MM:SS
	TipoMoneda       string `json:"tipoMoneda"`
}

// Emisor datos del emisor del documento.
type Emisor struct {
	NIT             string `json:"nit"`
	NRC             string `json:"nrc"`
	Nombre          string `json:"nombre"`
	CodActividad    string `json:"codActividad"`
	DescActividad   string `json:"descActividad"`
	NombreComercial string `json:"nombreComercial,omitempty"`
	Direccion       string `json:"direccion"`
	Telefono        string `json:"telefono,omitempty"`
	Correo          string `json:"correo"`
	CodEstable      string `json:"codEstable"`
	CodPuntoVenta   string `json:"codPuntoVenta"`
}

// Receptor datos del receptor. Para CCF (tipo 03) NIT y NRC son obligatorios.
type Receptor struct {
	TipoDocumento string `json:"tipoDocumento,omitempty"`
	NumDocumento  string `json:"numDocumento,omitempty"`
	NIT           string `json:"nit,omitempty"`
	NRC           string `json:"nrc,omitempty"`
	Nombre        string `json:"nombre"`
	Direccion     string `json:"direccion,omitempty"`
	Telefono      string `json:"telefono,omitempty"`
	Correo        string `json:"correo,omitempty"`
}

// CuerpoItem línea del cuerpo del documento.
type CuerpoItem struct {
	NumItem      int             `json:"numItem"`
	TipoItem     int             `json:"tipoItem"` // 1 bien, 2 servicio
	Descripcion  string          `json:"descripcion"`
	Cantidad     decimal.Decimal `json:"cantidad"`
	PrecioUni    decimal.Decimal `json:"precioUni"`
	MontoDescu   decimal.Decimal `json:"montoDescu"`
	VentaGravada decimal.Decimal `json:"ventaGravada"`
	IvaItem      decimal.Decimal `json:"ivaItem"`
}

// Resumen agregados del documento. Deben reconciliar con el cuerpo a ±0.01.
type Resumen struct {
	TotalGravada        decimal.Decimal `json:"totalGravada"`
	SubTotal            decimal.Decimal `json:"subTotal"`
	TotalDescu          decimal.Decimal `json:"totalDescu"`
	TotalIva            decimal.Decimal `json:"totalIva"`
	MontoTotalOperacion decimal.Decimal `json:"montoTotalOperacion"`
	TotalPagar          decimal.Decimal `json:"totalPagar"`
	CondicionOperacion  int             `json:"condicionOperacion"`
}
