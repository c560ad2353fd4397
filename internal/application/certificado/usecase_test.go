package certificado

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/facturasv/dte-api/internal/application/dto"
	"github.com/facturasv/dte-api/internal/domain"
	"github.com/facturasv/dte-api/internal/domain/entity"
	"github.com/facturasv/dte-api/internal/infrastructure/firmador"
	"github.com/facturasv/dte-api/pkg/cifrado"
	pkgdte "github.com/facturasv/dte-api/pkg/dte"
)

const testPassword = "clave-p12"

type memCertRepo struct {
	mu    sync.Mutex
	certs map[string]*entity.Certificado
}

func newMemCertRepo() *memCertRepo {
	return &memCertRepo{certs: make(map[string]*entity.Certificado)}
}

func (r *memCertRepo) Upsert(_ context.Context, c *entity.Certificado) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == "" {
		c.ID = "cert-1"
	}
	copia := *c
	r.certs[c.TenantID+"|"+c.Ambiente] = &copia
	return nil
}

func (r *memCertRepo) GetVigente(_ context.Context, tenantID, ambiente string) (*entity.Certificado, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.certs[tenantID+"|"+ambiente]
	if !ok {
		return nil, nil
	}
	copia := *c
	return &copia, nil
}

func generarP12(t *testing.T, notBefore, notAfter time.Time) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(77),
		Subject: pkix.Name{
			CommonName:   "EMISOR DE PRUEBA S.A. DE C.V.",
			Organization: []string{"facturasv"},
		},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	p12, err := pkcs12.Modern.Encode(key, cert, nil, testPassword)
	require.NoError(t, err)
	return p12
}

func armarUseCase(t *testing.T) (*UseCase, *memCertRepo) {
	t.Helper()
	cif, err := cifrado.New("llave-de-cifrado-para-tests")
	require.NoError(t, err)
	repo := newMemCertRepo()
	return NewUseCase(repo, cif, zerolog.Nop()), repo
}

func TestSubir_PersisteCifradoConMetadatos(t *testing.T) {
	uc, repo := armarUseCase(t)
	now := time.Now()
	p12 := generarP12(t, now.Add(-time.Hour), now.Add(180*24*time.Hour))

	resp, err := uc.Subir(context.Background(), "tenant-1", &dto.SubirCertificadoRequest{
		Ambiente: pkgdte.AmbientePruebas,
		P12:      base64.StdEncoding.EncodeToString(p12),
		Password: testPassword,
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Sujeto, "EMISOR DE PRUEBA")

	guardado, err := repo.GetVigente(context.Background(), "tenant-1", pkgdte.AmbientePruebas)
	require.NoError(t, err)
	require.NotNil(t, guardado)
	assert.False(t, bytes.Contains(guardado.P12Cifrado, p12[:16]),
		"el P12 no debe persistirse en claro")
	assert.NotEqual(t, []byte(testPassword), guardado.PassCifrado)
}

func TestSubir_PasswordIncorrectaNoPeristeNada(t *testing.T) {
	uc, repo := armarUseCase(t)
	p12 := generarP12(t, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))

	_, err := uc.Subir(context.Background(), "tenant-1", &dto.SubirCertificadoRequest{
		Ambiente: pkgdte.AmbientePruebas,
		P12:      base64.StdEncoding.EncodeToString(p12),
		Password: "contraseña-mala",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCertificado)
	assert.Empty(t, repo.certs)
}

func TestSubir_AmbienteInvalido(t *testing.T) {
	uc, _ := armarUseCase(t)
	_, err := uc.Subir(context.Background(), "tenant-1", &dto.SubirCertificadoRequest{
		Ambiente: "99",
		P12:      base64.StdEncoding.EncodeToString([]byte("x")),
		Password: "p",
	})
	assert.ErrorIs(t, err, domain.ErrValidacion)
}

func TestFirmar_ProduceJWSVerificable(t *testing.T) {
	uc, _ := armarUseCase(t)
	now := time.Now()
	p12 := generarP12(t, now.Add(-time.Hour), now.Add(time.Hour))

	_, err := uc.Subir(context.Background(), "tenant-1", &dto.SubirCertificadoRequest{
		Ambiente: pkgdte.AmbientePruebas,
		P12:      base64.StdEncoding.EncodeToString(p12),
		Password: testPassword,
	})
	require.NoError(t, err)

	payload := []byte(`{"identificacion":{"tipoDte":"01"}}`)
	jws, err := uc.Firmar(context.Background(), "tenant-1", pkgdte.AmbientePruebas, payload)
	require.NoError(t, err)

	// Verificar contra el certificado original del contenedor.
	sesion, err := firmador.CargarCertificado(p12, testPassword)
	require.NoError(t, err)
	defer sesion.Cerrar()
	recuperado, err := firmador.Verificar(jws, sesion.Certificado())
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(recuperado))
}

func TestFirmar_SinCertificadoRegistrado(t *testing.T) {
	uc, _ := armarUseCase(t)
	_, err := uc.Firmar(context.Background(), "tenant-sin-cert", pkgdte.AmbientePruebas, []byte(`{}`))
	assert.ErrorIs(t, err, domain.ErrCertificado)
}

func TestFirmar_CertificadoVencido(t *testing.T) {
	p12 := generarP12(t, time.Now().Add(-48*time.Hour), time.Now().Add(-24*time.Hour))

	// Subir acepta el contenedor (la vigencia se controla al firmar, y el
	// tenant puede cargar un certificado que entra en vigor después).
	cifrador, err := cifrado.New("llave-de-cifrado-para-tests")
	require.NoError(t, err)
	p12Cifrado, err := cifrador.Cifrar(p12)
	require.NoError(t, err)
	passCifrado, err := cifrador.Cifrar([]byte(testPassword))
	require.NoError(t, err)

	repo := newMemCertRepo()
	require.NoError(t, repo.Upsert(context.Background(), &entity.Certificado{
		TenantID:    "tenant-1",
		Ambiente:    pkgdte.AmbientePruebas,
		P12Cifrado:  p12Cifrado,
		PassCifrado: passCifrado,
	}))
	uc := NewUseCase(repo, cifrador, zerolog.Nop())

	_, err = uc.Firmar(context.Background(), "tenant-1", pkgdte.AmbientePruebas, []byte(`{}`))
	assert.ErrorIs(t, err, domain.ErrCertificadoVencido)
}
