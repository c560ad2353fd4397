// Formatos obligatorios de identificadores y campos del DTE.
// El MH valida estos formatos de manera estricta: un numeroControl que no mida
// exactamente 31 caracteres o un NIT fuera de patrón producen rechazo inmediato.

package dte

import (
	"fmt"
	"regexp"
	"strings"
)

// Patrones oficiales de campos del esquema MH.
var (
	// NIT: 14 dígitos (persona jurídica) o 9 dígitos (formato corto).
	NITPattern = regexp.MustCompile(`^([0-9]{14}|[0-9]{9})$`)
	// NRC: de 1 a 8 dígitos, sin guion.
	NRCPattern = regexp.MustCompile(`^[0-9]{1,8}$`)
	// numeroControl: DTE-<tipo(2)>-<estab(4)><pos(4)>-<correlativo(15)> = 31 caracteres.
	NumeroControlPattern = regexp.MustCompile(`^DTE-[0-9]{2}-[A-Z0-9]{8}-[0-9]{15}$`)
	// codigoGeneracion: UUID v4 en mayúsculas, 36 caracteres con guiones.
	CodigoGeneracionPattern = regexp.MustCompile(`^[A-F0-9]{8}-[A-F0-9]{4}-[A-F0-9]{4}-[A-F0-9]{4}-[A-F0-9]{12}$`)
	// Fecha YYYY-MM-DD y hora HH:MM:SS.
	FechaPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	HoraPattern  = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)

	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// NumeroControlLen longitud exacta exigida por el MH.
const NumeroControlLen = 31

// CodigoGeneracionLen longitud exacta del UUID con guiones.
const CodigoGeneracionLen = 36

// BuildNumeroControl arma el numeroControl de 31 caracteres:
// DTE-<tipoDte>-<establecimiento(4)><puntoVenta(4)>-<correlativo(15)>.
// establecimiento y puntoVenta se completan a 4 caracteres con ceros a la izquierda.
func BuildNumeroControl(tipoDte, establecimiento, puntoVenta string, correlativo int64) (string, error) {
	if !ValidTipoDte[tipoDte] {
		return "", fmt.Errorf("tipoDte %q no soportado", tipoDte)
	}
	if correlativo <= 0 {
		return "", fmt.Errorf("correlativo debe ser positivo, recibido %d", correlativo)
	}
	estab := padCode(establecimiento)
	pos := padCode(puntoVenta)
	if len(estab) != 4 || len(pos) != 4 {
		return "", fmt.Errorf("establecimiento (%q) y puntoVenta (%q) deben tener máximo 4 caracteres", establecimiento, puntoVenta)
	}
	nc := fmt.Sprintf("DTE-%s-%s%s-%015d", tipoDte, estab, pos, correlativo)
	if len(nc) != NumeroControlLen {
		// Correlativos de más de 15 dígitos desbordan el campo.
		return "", fmt.Errorf("numeroControl %q no mide %d caracteres", nc, NumeroControlLen)
	}
	return nc, nil
}

// padCode normaliza un código de establecimiento/punto de venta a 4 caracteres
// en mayúsculas, rellenando con ceros a la izquierda.
func padCode(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) > 4 {
		return c
	}
	return strings.Repeat("0", 4-len(c)) + c
}

// ValidEmail valida el formato básico de un correo electrónico.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// OnlyDigits deja solo dígitos 0-9 (para NIT y NRC con puntos o guiones).
func OnlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
