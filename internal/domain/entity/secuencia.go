package entity

import "time"

// SecuenciaNumeracion contador monotónico por (tenant, establecimiento, puntoVenta, tipoDte).
// Invariante: dos documentos de la misma llave jamás comparten correlativo;
// los huecos por intentos fallidos son aceptables, la regresión no.
type SecuenciaNumeracion struct {
	ID              string
	TenantID        string
	Establecimiento string
	PuntoVenta      string
	TipoDte         string
	UltimoValor     int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
