// Package firmador implementa la firma electrónica de DTE exigida por el MH:
// JWS compacto (RS512) sobre el JSON canónico del documento, con el certificado
// PKCS#12 del tenant. La llave privada vive solo dentro de una Sesion y se
// libera explícitamente con Cerrar; nunca se loguea ni se serializa.
package firmador

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/facturasv/dte-api/internal/domain"
)

// CertificadoInfo metadatos públicos del certificado cargado.
type CertificadoInfo struct {
	Sujeto      string    `json:"sujeto"`
	Emisor      string    `json:"emisor"`
	Serial      string    `json:"serial"`
	ValidoDesde time.Time `json:"validoDesde"`
	ValidoHasta time.Time `json:"validoHasta"`
}

// Sesion sesión de firma: certificado + llave privada en memoria.
// No es segura para uso tras Cerrar; el uso concurrente está serializado.
type Sesion struct {
	mu      sync.Mutex
	key     *rsa.PrivateKey
	cert    *x509.Certificate
	cerrada bool
}

// CargarCertificado decodifica un contenedor PKCS#12 en memoria y abre una
// sesión de firma. Distingue contraseña incorrecta, contenedor corrupto y
// llave no RSA como errores de certificado separados del fallo de firma.
func CargarCertificado(p12 []byte, password string) (*Sesion, error) {
	if len(p12) == 0 {
		return nil, fmt.Errorf("%w: contenedor vacío", domain.ErrCertificado)
	}
	priv, cert, _, err := pkcs12.DecodeChain(p12, password)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return nil, fmt.Errorf("%w: contraseña incorrecta", domain.ErrCertificado)
		}
		return nil, fmt.Errorf("%w: contenedor PKCS#12 corrupto: %v", domain.ErrCertificado, err)
	}
	rsaKey, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: el MH exige llave RSA, se encontró %T", domain.ErrCertificado, priv)
	}
	return &Sesion{key: rsaKey, cert: cert}, nil
}

// Info devuelve los metadatos del certificado.
func (s *Sesion) Info() CertificadoInfo {
	return CertificadoInfo{
		Sujeto:      s.cert.Subject.String(),
		Emisor:      s.cert.Issuer.String(),
		Serial:      s.cert.SerialNumber.Text(16),
		ValidoDesde: s.cert.NotBefore,
		ValidoHasta: s.cert.NotAfter,
	}
}

// Vigente compara now contra la ventana de validez del certificado.
func (s *Sesion) Vigente(now time.Time) bool {
	return !now.Before(s.cert.NotBefore) && !now.After(s.cert.NotAfter)
}

// Certificado devuelve el certificado X.509 (para verificación).
func (s *Sesion) Certificado() *x509.Certificate {
	return s.cert
}

// Firmar produce el JWS compacto RS512 sobre el payload JSON.
// Un certificado fuera de su ventana de vigencia produce ErrCertificadoVencido,
// nunca una firma silenciosa: ese error dispara el aviso de renovación al tenant.
func (s *Sesion) Firmar(payload []byte, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cerrada || s.key == nil {
		return "", fmt.Errorf("%w: sesión de firma cerrada", domain.ErrFirma)
	}
	if !s.Vigente(now) {
		return "", fmt.Errorf("%w: vigencia %s a %s", domain.ErrCertificadoVencido,
			s.cert.NotBefore.Format(time.RFC3339), s.cert.NotAfter.Format(time.RFC3339))
	}
	if !json.Valid(payload) {
		return "", fmt.Errorf("%w: el payload no es JSON válido", domain.ErrFirma)
	}

	header, err := json.Marshal(map[string]string{"alg": "RS512"})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrFirma, err)
	}
	signingInput := base64.RawURLEncoding.EncodeToString(header) + "." +
		base64.RawURLEncoding.EncodeToString(payload)

	sig, err := jwt.SigningMethodRS512.Sign(signingInput, s.key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrFirma, err)
	}
	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

// Cerrar libera la sesión: invalida la llave privada en memoria en lugar de
// esperar al recolector de basura. Idempotente.
func (s *Sesion) Cerrar() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cerrada {
		return
	}
	if s.key != nil {
		// Invalidar el material privado; la llave deja de ser utilizable.
		s.key.D.SetInt64(0)
		for _, p := range s.key.Primes {
			p.SetInt64(0)
		}
		s.key = nil
	}
	s.cerrada = true
}

// Verificar valida un JWS compacto contra el certificado dado y devuelve el
// payload decodificado. Acepta RS512 (perfil actual del MH) y RS256 (perfil
// histórico de herramientas de tenants).
func Verificar(jws string, cert *x509.Certificate) ([]byte, error) {
	partes := strings.Split(jws, ".")
	if len(partes) != 3 {
		return nil, fmt.Errorf("%w: JWS compacto debe tener 3 segmentos, tiene %d", domain.ErrFirma, len(partes))
	}
	headerRaw, err := base64.RawURLEncoding.DecodeString(partes[0])
	if err != nil {
		return nil, fmt.Errorf("%w: header ilegible: %v", domain.ErrFirma, err)
	}
	var header struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(headerRaw, &header); err != nil {
		return nil, fmt.Errorf("%w: header inválido: %v", domain.ErrFirma, err)
	}
	if header.Alg != "RS512" && header.Alg != "RS256" {
		return nil, fmt.Errorf("%w: algoritmo %q no permitido", domain.ErrFirma, header.Alg)
	}
	metodo := jwt.GetSigningMethod(header.Alg)
	if metodo == nil {
		return nil, fmt.Errorf("%w: algoritmo %q desconocido", domain.ErrFirma, header.Alg)
	}
	sig, err := base64.RawURLEncoding.DecodeString(partes[2])
	if err != nil {
		return nil, fmt.Errorf("%w: firma ilegible: %v", domain.ErrFirma, err)
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: el certificado no contiene llave pública RSA", domain.ErrFirma)
	}
	if err := metodo.Verify(partes[0]+"."+partes[1], sig, pub); err != nil {
		return nil, fmt.Errorf("%w: firma no verifica: %v", domain.ErrFirma, err)
	}
	payload, err := base64.RawURLEncoding.DecodeString(partes[1])
	if err != nil {
		return nil, fmt.Errorf("%w: payload ilegible: %v", domain.ErrFirma, err)
	}
	return payload, nil
}
