package dto

import "github.com/facturasv/dte-api/internal/domain/entity"

// CreateTenantRequest body para registrar una empresa emisora.
type CreateTenantRequest struct {
	Nombre          string `json:"nombre"`
	NIT             string `json:"nit"`
	NRC             string `json:"nrc"`
	CodActividad    string `json:"cod_actividad"`
	DescActividad   string `json:"desc_actividad"`
	NombreComercial string `json:"nombre_comercial,omitempty"`
	Direccion       string `json:"direccion"`
	Telefono        string `json:"telefono,omitempty"`
	Correo          string `json:"correo"`
	Establecimiento string `json:"establecimiento"`
	PuntoVenta      string `json:"punto_venta"`
	Ambiente        string `json:"ambiente"`
}

// TenantResponse empresa emisora en respuestas.
type TenantResponse struct {
	ID              string `json:"id"`
	Nombre          string `json:"nombre"`
	NIT             string `json:"nit"`
	NRC             string `json:"nrc"`
	Establecimiento string `json:"establecimiento"`
	PuntoVenta      string `json:"punto_venta"`
	Ambiente        string `json:"ambiente"`
}

// ToTenantResponse convierte la entidad al DTO de respuesta.
func ToTenantResponse(t *entity.Tenant) *TenantResponse {
	if t == nil {
		return nil
	}
	return &TenantResponse{
		ID:              t.ID,
		Nombre:          t.Nombre,
		NIT:             t.NIT,
		NRC:             t.NRC,
		Establecimiento: t.Establecimiento,
		PuntoVenta:      t.PuntoVenta,
		Ambiente:        t.Ambiente,
	}
}
