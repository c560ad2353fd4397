// Package dte contiene la lógica pura del ciclo de vida DTE: máquina de
// estados y validación de documentos contra el esquema y reglas del MH.
package dte

import (
	"fmt"

	"github.com/facturasv/dte-api/internal/domain"
)

// Estado del documento en la máquina de estados de transmisión.
// Cerrado: toda transición pasa por Transition; no hay strings libres.
type Estado string

const (
	// EstadoPendiente creado, aún sin firmar.
	EstadoPendiente Estado = "PENDIENTE"
	// EstadoFirmado firmado, aún sin enviar.
	EstadoFirmado Estado = "FIRMADO"
	// EstadoProcesando enviado al MH, esperando veredicto.
	EstadoProcesando Estado = "PROCESANDO"
	// EstadoProcesado aceptado por el MH; selloRecibido presente. Terminal.
	EstadoProcesado Estado = "PROCESADO"
	// EstadoRechazado rechazado por el MH con código de negocio. Terminal.
	EstadoRechazado Estado = "RECHAZADO"
	// EstadoError fallo local o de transporte antes de un veredicto determinado.
	EstadoError Estado = "ERROR"
	// EstadoAnulado anulado por evento posterior sobre un documento PROCESADO. Terminal.
	EstadoAnulado Estado = "ANULADO"
)

// transiciones legales. El estado solo avanza; los retrocesos aparentes
// (ERROR → FIRMADO para re-firmar) son pasos explícitos de reintento.
// ERROR también puede saltar directo a un veredicto terminal: la consulta
// autoritativa puede descubrir que el MH sí recibió un envío que localmente
// quedó cortado a medias.
var transiciones = map[Estado][]Estado{
	EstadoPendiente:  {EstadoFirmado, EstadoError},
	EstadoFirmado:    {EstadoProcesando, EstadoError},
	EstadoProcesando: {EstadoProcesado, EstadoRechazado, EstadoError},
	EstadoError:      {EstadoFirmado, EstadoProcesando, EstadoProcesado, EstadoRechazado, EstadoError},
	EstadoProcesado:  {EstadoAnulado},
	EstadoRechazado:  {},
	EstadoAnulado:    {},
}

// Valida indica si s es uno de los estados conocidos.
func (s Estado) Valida() bool {
	_, ok := transiciones[s]
	return ok
}

// Terminal indica si el estado no admite más transiciones del pipeline normal.
func (s Estado) Terminal() bool {
	return s == EstadoRechazado || s == EstadoAnulado
}

// CanTransition indica si from → to es una transición legal.
func CanTransition(from, to Estado) bool {
	for _, t := range transiciones[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Transition valida y devuelve el nuevo estado, o ErrTransicionEstado.
func Transition(from, to Estado) (Estado, error) {
	if !from.Valida() {
		return from, fmt.Errorf("%w: estado origen %q desconocido", domain.ErrTransicionEstado, from)
	}
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s → %s", domain.ErrTransicionEstado, from, to)
	}
	return to, nil
}
