// Package emision orquesta el ciclo de vida completo de un DTE:
//
//	numeración → validación → firma → autenticación MH → transmisión → persistencia
//
// El pipeline es síncrono respecto del request HTTP: el caller recibe el
// estado final que reportó el MH (o el error clasificado si no se llegó).
package emision

import (
	"context"
	"time"

	"github.com/facturasv/dte-api/internal/domain/repository"
	"github.com/facturasv/dte-api/internal/infrastructure/mh"
)

// TxRunner ejecuta una función dentro de una transacción con los repos de
// emisión. La asignación de correlativo y el insert del documento comparten
// transacción: un fallo en cualquiera revierte ambos.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		dtes repository.DTERepository,
		secuencias repository.SecuenciaRepository,
	) error) error
}

// Firmador firma un payload JSON a nombre del tenant y devuelve el JWS
// compacto. La implementación carga el certificado cifrado del tenant, abre
// una sesión de firma y la cierra al terminar; el material nunca sale de ahí.
type Firmador interface {
	Firmar(ctx context.Context, tenantID, ambiente string, payload []byte) (string, error)
	// VentanaVigencia devuelve la ventana de validez del certificado actual
	// del tenant. El reintento la usa para decidir si una firma guardada
	// sigue siendo utilizable o hay que re-firmar.
	VentanaVigencia(ctx context.Context, tenantID, ambiente string) (desde, hasta time.Time, err error)
}

// TokenProvider entrega tokens MH vigentes por (tenant, ambiente) y permite
// invalidarlos cuando el MH responde 401.
type TokenProvider interface {
	Token(ctx context.Context, tenantID, ambiente string) (string, error)
	Invalidar(tenantID, ambiente string)
}

// Transmisor re-exporta el puerto de entrega del cliente MH para que los
// tests del pipeline inyecten dobles sin tocar la red.
type Transmisor = mh.Transmisor
