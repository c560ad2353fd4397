package entity

import "time"

// Tenant empresa emisora registrada en la plataforma. Posee sus credenciales MH
// por ambiente, sus certificados y la configuración de numeración.
type Tenant struct {
	ID              string
	Nombre          string
	NIT             string
	NRC             string
	CodActividad    string
	DescActividad   string
	NombreComercial string
	Direccion       string
	Telefono        string
	Correo          string
	Establecimiento string // código de establecimiento por defecto (ej. M001)
	PuntoVenta      string // código de punto de venta por defecto (ej. P001)
	Ambiente        string // ambiente activo: "00" pruebas, "01" producción
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CredencialMH usuario/contraseña del API del MH, por tenant y ambiente.
// La contraseña se guarda cifrada en reposo; aquí viaja ya descifrada.
type CredencialMH struct {
	TenantID string
	Ambiente string
	Usuario  string
	Password string
}

// Certificado material PKCS#12 de un tenant para un ambiente.
// P12 y Password llegan cifrados desde la DB; solo la capa de aplicación los
// descifra, y únicamente durante una sesión de firma.
type Certificado struct {
	ID          string
	TenantID    string
	Ambiente    string
	P12Cifrado  []byte
	PassCifrado []byte
	Sujeto      string
	Serial      string
	ValidoDesde time.Time
	ValidoHasta time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Vigente indica si el certificado está dentro de su ventana de validez.
func (c *Certificado) Vigente(now time.Time) bool {
	return !now.Before(c.ValidoDesde) && !now.After(c.ValidoHasta)
}
