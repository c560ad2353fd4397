package dte

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/facturasv/dte-api/internal/domain/entity"
	pkgdte "github.com/facturasv/dte-api/pkg/dte"
)

// FieldError una violación puntual con la ruta del campo en el documento.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationResult reporte completo de validación. Se devuelven todas las
// violaciones, no solo la primera, para que el tenant corrija en una pasada.
type ValidationResult struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}

// toleranciaRedondeo tolerancia de reconciliación de totales (USD).
var toleranciaRedondeo = decimal.NewFromFloat(0.01)

// Validate valida el documento contra el esquema y reglas de negocio del MH.
// No muta el documento y es determinista: dos llamadas con el mismo input
// producen el mismo reporte. Se invoca igual en pre-vuelo y dentro del pipeline.
func Validate(doc *entity.Documento) ValidationResult {
	var errs []FieldError
	add := func(path, format string, args ...interface{}) {
		errs = append(errs, FieldError{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if doc == nil {
		return ValidationResult{Valid: false, Errors: []FieldError{{Path: "", Message: "documento nulo"}}}
	}

	// ── identificacion ────────────────────────────────────────────────────────
	id := doc.Identificacion
	if !pkgdte.ValidTipoDte[id.TipoDte] {
		add("identificacion.tipoDte", "tipoDte %q no soportado", id.TipoDte)
	} else if id.Version != pkgdte.SchemaVersion(id.TipoDte) {
		add("identificacion.version", "versión %d no corresponde al tipoDte %s (esperada %d)",
			id.Version, id.TipoDte, pkgdte.SchemaVersion(id.TipoDte))
	}
	if !pkgdte.ValidAmbiente[id.Ambiente] {
		add("identificacion.ambiente", "ambiente %q inválido (00 o 01)", id.Ambiente)
	}
	if len(id.NumeroControl) != pkgdte.NumeroControlLen || !pkgdte.NumeroControlPattern.MatchString(id.NumeroControl) {
		add("identificacion.numeroControl", "numeroControl %q no cumple el formato de 31 caracteres", id.NumeroControl)
	}
	if len(id.CodigoGeneracion) != pkgdte.CodigoGeneracionLen || !pkgdte.CodigoGeneracionPattern.MatchString(id.CodigoGeneracion) {
		add("identificacion.codigoGeneracion", "codigoGeneracion %q no es un UUID de 36 caracteres en mayúsculas", id.CodigoGeneracion)
	}
	if !pkgdte.FechaPattern.MatchString(id.FecEmi) {
		add("identificacion.fecEmi", "fecha %q no cumple YYYY-MM-DD", id.FecEmi)
	}
	if !pkgdte.HoraPattern.MatchString(id.HorEmi) {
		add("identificacion.horEmi", "hora %q no cumple HH:MM:SS", id.HorEmi)
	}
	if id.TipoMoneda != pkgdte.Moneda {
		add("identificacion.tipoMoneda", "moneda %q inválida: el MH solo acepta USD", id.TipoMoneda)
	}

	// ── emisor ────────────────────────────────────────────────────────────────
	if !pkgdte.NITPattern.MatchString(doc.Emisor.NIT) {
		add("emisor.nit", "NIT %q no cumple el patrón de 9 o 14 dígitos", doc.Emisor.NIT)
	}
	if !pkgdte.NRCPattern.MatchString(doc.Emisor.NRC) {
		add("emisor.nrc", "NRC %q no cumple el patrón de 1 a 8 dígitos", doc.Emisor.NRC)
	}
	if doc.Emisor.Nombre == "" {
		add("emisor.nombre", "nombre del emisor es obligatorio")
	}
	if doc.Emisor.Correo != "" && !pkgdte.ValidEmail(doc.Emisor.Correo) {
		add("emisor.correo", "correo %q inválido", doc.Emisor.Correo)
	}

	// ── receptor ──────────────────────────────────────────────────────────────
	if doc.Receptor.Nombre == "" {
		add("receptor.nombre", "nombre del receptor es obligatorio")
	}
	if id.TipoDte == pkgdte.TipoCCF {
		// CCF es B2B: el receptor debe identificarse con NIT y NRC.
		if !pkgdte.NITPattern.MatchString(doc.Receptor.NIT) {
			add("receptor.nit", "CCF requiere NIT del receptor con 9 o 14 dígitos, recibido %q", doc.Receptor.NIT)
		}
		if !pkgdte.NRCPattern.MatchString(doc.Receptor.NRC) {
			add("receptor.nrc", "CCF requiere NRC del receptor, recibido %q", doc.Receptor.NRC)
		}
	} else if doc.Receptor.NIT != "" && !pkgdte.NITPattern.MatchString(doc.Receptor.NIT) {
		add("receptor.nit", "NIT %q no cumple el patrón de 9 o 14 dígitos", doc.Receptor.NIT)
	}
	if doc.Receptor.Correo != "" && !pkgdte.ValidEmail(doc.Receptor.Correo) {
		add("receptor.correo", "correo %q inválido", doc.Receptor.Correo)
	}

	// ── cuerpoDocumento ───────────────────────────────────────────────────────
	if len(doc.CuerpoDocumento) == 0 {
		add("cuerpoDocumento", "el documento debe tener al menos un ítem")
	}
	var sumGravada, sumIva, sumDescu decimal.Decimal
	for i, item := range doc.CuerpoDocumento {
		path := fmt.Sprintf("cuerpoDocumento[%d]", i)
		if item.Descripcion == "" {
			add(path+".descripcion", "descripción del ítem es obligatoria")
		}
		if item.Cantidad.LessThanOrEqual(decimal.Zero) {
			add(path+".cantidad", "cantidad debe ser positiva, recibida %s", item.Cantidad)
		}
		if item.PrecioUni.IsNegative() {
			add(path+".precioUni", "precio unitario no puede ser negativo")
		}
		if item.MontoDescu.IsNegative() {
			add(path+".montoDescu", "el descuento se expresa en positivo")
		}
		if item.VentaGravada.IsNegative() {
			add(path+".ventaGravada", "venta gravada no puede ser negativa")
		}
		sumGravada = sumGravada.Add(item.VentaGravada)
		sumIva = sumIva.Add(item.IvaItem)
		sumDescu = sumDescu.Add(item.MontoDescu)
	}

	// ── resumen ───────────────────────────────────────────────────────────────
	res := doc.Resumen
	if !pkgdte.ValidCondicionOperacion[res.CondicionOperacion] {
		add("resumen.condicionOperacion", "condicionOperacion %d inválida (1, 2 o 3)", res.CondicionOperacion)
	}
	if res.MontoTotalOperacion.LessThanOrEqual(decimal.Zero) {
		add("resumen.montoTotalOperacion", "montoTotalOperacion debe ser positivo, recibido %s", res.MontoTotalOperacion)
	}
	if res.TotalPagar.IsNegative() {
		add("resumen.totalPagar", "totalPagar no puede ser negativo")
	}
	if len(doc.CuerpoDocumento) > 0 {
		if !dentroDeTolerancia(res.TotalGravada, sumGravada) {
			add("resumen.totalGravada", "totalGravada (%s) no reconcilia con la suma de ítems (%s)",
				res.TotalGravada, sumGravada.Round(2))
		}
		if !dentroDeTolerancia(res.TotalIva, sumIva) {
			add("resumen.totalIva", "totalIva (%s) no reconcilia con la suma de IVA por ítem (%s)",
				res.TotalIva, sumIva.Round(2))
		}
		if !dentroDeTolerancia(res.TotalDescu, sumDescu) {
			add("resumen.totalDescu", "totalDescu (%s) no reconcilia con la suma de descuentos (%s)",
				res.TotalDescu, sumDescu.Round(2))
		}
		esperadoTotal := sumGravada.Add(sumIva).Sub(sumDescu)
		if !dentroDeTolerancia(res.MontoTotalOperacion, esperadoTotal) {
			add("resumen.montoTotalOperacion", "montoTotalOperacion (%s) no reconcilia con gravada + IVA - descuentos (%s)",
				res.MontoTotalOperacion, esperadoTotal.Round(2))
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// dentroDeTolerancia compara dos montos con la tolerancia de redondeo de ±0.01.
func dentroDeTolerancia(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(toleranciaRedondeo)
}
