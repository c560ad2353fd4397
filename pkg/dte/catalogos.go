// Package dte contiene catálogos y formatos alineados a la normativa de
// Documentos Tributarios Electrónicos del Ministerio de Hacienda (El Salvador),
// según el Manual del Contribuyente de Facturación Electrónica.
package dte

// =============================================================================
// CAT-002 - Tipo de Documento Tributario Electrónico
// =============================================================================

const (
	TipoFactura     = "01" // Factura (consumidor final)
	TipoCCF         = "03" // Comprobante de Crédito Fiscal
	TipoNotaCredito = "05" // Nota de Crédito
	TipoNotaDebito  = "06" // Nota de Débito
)

// ValidTipoDte contiene los tipos de DTE soportados por la plataforma.
var ValidTipoDte = map[string]bool{
	TipoFactura:     true,
	TipoCCF:         true,
	TipoNotaCredito: true,
	TipoNotaDebito:  true,
}

// SchemaVersion devuelve la versión del esquema JSON que el MH exige por tipo de DTE.
// Factura usa versión 1; CCF y notas usan versión 3.
func SchemaVersion(tipoDte string) int {
	if tipoDte == TipoFactura {
		return 1
	}
	return 3
}

// =============================================================================
// CAT-001 - Ambiente de destino
// =============================================================================

const (
	AmbientePruebas    = "00" // Ambiente de pruebas / certificación
	AmbienteProduccion = "01" // Ambiente de producción
)

// ValidAmbiente ambientes reconocidos por el MH.
var ValidAmbiente = map[string]bool{
	AmbientePruebas:    true,
	AmbienteProduccion: true,
}

// =============================================================================
// CAT-016 - Condición de la Operación
// =============================================================================

const (
	CondicionContado = 1
	CondicionCredito = 2
	CondicionOtro    = 3
)

// ValidCondicionOperacion condiciones de operación aceptadas en el resumen.
var ValidCondicionOperacion = map[int]bool{
	CondicionContado: true,
	CondicionCredito: true,
	CondicionOtro:    true,
}

// =============================================================================
// CAT-011 / modelo y tipo de transmisión
// =============================================================================

const (
	ModeloFacturacionPrevio    = 1 // Modelo de facturación previo (normal)
	ModeloFacturacionDiferido  = 2 // Modelo diferido (contingencia)
	TransmisionNormal          = 1
	TransmisionPorContingencia = 2
)

// Moneda única aceptada por el MH.
const Moneda = "USD"

// =============================================================================
// Estados que reporta el MH en la recepción del DTE
// =============================================================================

const (
	MHEstadoProcesado = "PROCESADO"
	MHEstadoRechazado = "RECHAZADO"
	MHEstadoRecibido  = "RECIBIDO"
)

// =============================================================================
// Tipos de evento sobre un DTE ya transmitido
// =============================================================================

const (
	EventoAnulacion    = "ANULACION"
	EventoContingencia = "CONTINGENCIA"
)
