package dto

// SubirCertificadoRequest body para POST /api/certificados.
// El archivo P12 viaja en base64; nunca se persiste en claro.
type SubirCertificadoRequest struct {
	Ambiente string `json:"ambiente"` // "00" | "01"
	P12      string `json:"p12"`      // PKCS#12 en base64
	Password string `json:"password"`
}

// CertificadoResponse metadatos del certificado (nunca el material).
type CertificadoResponse struct {
	ID          string `json:"id"`
	Ambiente    string `json:"ambiente"`
	Sujeto      string `json:"sujeto"`
	Serial      string `json:"serial"`
	ValidoDesde string `json:"valido_desde"`
	ValidoHasta string `json:"valido_hasta"`
}

// CredencialMHRequest body para registrar credenciales del API MH.
type CredencialMHRequest struct {
	Ambiente string `json:"ambiente"`
	Usuario  string `json:"usuario"`
	Password string `json:"password"`
}
