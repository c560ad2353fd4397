package dte_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturasv/dte-api/internal/domain"
	"github.com/facturasv/dte-api/internal/domain/dte"
)

// ──────────────────────────────────────────────────────────────────────────────
// Tabla de transiciones: el estado solo avanza; los rechazos y anulaciones son
// terminales y un documento PROCESADO solo puede moverse a ANULADO vía evento.
// ──────────────────────────────────────────────────────────────────────────────

func TestTransition_FlujoNormal(t *testing.T) {
	pasos := []struct{ from, to dte.Estado }{
		{dte.EstadoPendiente, dte.EstadoFirmado},
		{dte.EstadoFirmado, dte.EstadoProcesando},
		{dte.EstadoProcesando, dte.EstadoProcesado},
	}
	for _, p := range pasos {
		got, err := dte.Transition(p.from, p.to)
		require.NoError(t, err, "%s → %s debe ser legal", p.from, p.to)
		assert.Equal(t, p.to, got)
	}
}

func TestTransition_Ilegales(t *testing.T) {
	ilegales := []struct{ from, to dte.Estado }{
		{dte.EstadoPendiente, dte.EstadoProcesado},  // saltarse la firma y el envío
		{dte.EstadoProcesado, dte.EstadoPendiente},  // retroceso silencioso
		{dte.EstadoProcesado, dte.EstadoRechazado},  // un documento aceptado no se rechaza
		{dte.EstadoRechazado, dte.EstadoProcesando}, // rechazado es terminal
		{dte.EstadoAnulado, dte.EstadoProcesado},    // anulado es terminal
		{dte.EstadoPendiente, dte.EstadoAnulado},    // solo PROCESADO se anula
	}
	for _, p := range ilegales {
		_, err := dte.Transition(p.from, p.to)
		require.Error(t, err, "%s → %s debe rechazarse", p.from, p.to)
		assert.ErrorIs(t, err, domain.ErrTransicionEstado)
	}
}

func TestTransition_ReintentosDesdeError(t *testing.T) {
	// Un documento en ERROR puede re-firmarse o reenviarse, nunca volver a PENDIENTE.
	_, err := dte.Transition(dte.EstadoError, dte.EstadoFirmado)
	assert.NoError(t, err, "ERROR → FIRMADO (re-firma) debe permitirse")

	_, err = dte.Transition(dte.EstadoError, dte.EstadoProcesando)
	assert.NoError(t, err, "ERROR → PROCESANDO (reenvío) debe permitirse")

	_, err = dte.Transition(dte.EstadoError, dte.EstadoPendiente)
	assert.Error(t, err, "ERROR → PENDIENTE debe rechazarse")
}

func TestTransition_ReconciliacionDesdeError(t *testing.T) {
	// La consulta autoritativa puede descubrir que un envío cortado a medias
	// sí llegó al MH: ERROR acepta los veredictos terminales directamente.
	_, err := dte.Transition(dte.EstadoError, dte.EstadoProcesado)
	assert.NoError(t, err, "ERROR → PROCESADO (reconciliación) debe permitirse")

	_, err = dte.Transition(dte.EstadoError, dte.EstadoRechazado)
	assert.NoError(t, err, "ERROR → RECHAZADO (reconciliación) debe permitirse")
}

func TestTransition_AnulacionSoloDesdeProcesado(t *testing.T) {
	got, err := dte.Transition(dte.EstadoProcesado, dte.EstadoAnulado)
	require.NoError(t, err)
	assert.Equal(t, dte.EstadoAnulado, got)
}

func TestTransition_EstadoDesconocido(t *testing.T) {
	_, err := dte.Transition(dte.Estado("INVENTADO"), dte.EstadoFirmado)
	assert.ErrorIs(t, err, domain.ErrTransicionEstado)
}

func TestEstado_Terminal(t *testing.T) {
	assert.True(t, dte.EstadoRechazado.Terminal())
	assert.True(t, dte.EstadoAnulado.Terminal())
	assert.False(t, dte.EstadoProcesado.Terminal(), "PROCESADO aún admite anulación")
	assert.False(t, dte.EstadoError.Terminal(), "ERROR admite reintento")
}
