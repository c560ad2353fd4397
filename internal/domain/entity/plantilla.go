package entity

import "time"

// PlantillaRecurrente plantilla de emisión periódica (facturación recurrente).
// El scheduler la toma cuando ProximaEmision <= now y dispara el mismo
// pipeline de emisión que una petición manual.
type PlantillaRecurrente struct {
	ID             string
	TenantID       string
	TipoDte        string
	BorradorJSON   string // Documento serializado sin identificación (se genera al emitir)
	FrecuenciaDias int
	ProximaEmision time.Time
	Activa         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
