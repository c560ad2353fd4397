package dto

import "github.com/facturasv/dte-api/internal/domain/entity"

// CreatePlantillaRequest body para POST /api/plantillas.
// El borrador reutiliza la forma de EmitirDTERequest; el scheduler lo emite
// con la frecuencia indicada.
type CreatePlantillaRequest struct {
	Borrador       EmitirDTERequest `json:"borrador"`
	FrecuenciaDias int              `json:"frecuencia_dias"`
}

// PlantillaResponse plantilla en respuestas.
type PlantillaResponse struct {
	ID             string `json:"id"`
	TipoDte        string `json:"tipo_dte"`
	FrecuenciaDias int    `json:"frecuencia_dias"`
	ProximaEmision string `json:"proxima_emision"`
	Activa         bool   `json:"activa"`
}

// ToPlantillaResponse convierte la entidad al DTO de respuesta.
func ToPlantillaResponse(p *entity.PlantillaRecurrente) *PlantillaResponse {
	if p == nil {
		return nil
	}
	return &PlantillaResponse{
		ID:             p.ID,
		TipoDte:        p.TipoDte,
		FrecuenciaDias: p.FrecuenciaDias,
		ProximaEmision: p.ProximaEmision.Format("2006-01-02"),
		Activa:         p.Activa,
	}
}
