package repository

import "context"

// SecuenciaRepository puerto del contador monotónico de numeroControl.
type SecuenciaRepository interface {
	// Next incrementa y devuelve el siguiente correlativo para la llave
	// (tenant, establecimiento, puntoVenta, tipoDte) de forma atómica.
	// Debe ejecutarse dentro de la misma transacción que crea el documento;
	// cualquier fallo aborta la emisión (fail-closed): un numeroControl
	// duplicado es una violación de cumplimiento, no un error recuperable.
	Next(ctx context.Context, tenantID, establecimiento, puntoVenta, tipoDte string) (int64, error)
}
