package emision

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturasv/dte-api/internal/application/dto"
	"github.com/facturasv/dte-api/internal/domain"
	dtedom "github.com/facturasv/dte-api/internal/domain/dte"
	"github.com/facturasv/dte-api/internal/domain/entity"
	"github.com/facturasv/dte-api/internal/domain/repository"
	"github.com/facturasv/dte-api/internal/infrastructure/mh"
	pkgdte "github.com/facturasv/dte-api/pkg/dte"
)

// ── dobles en memoria ─────────────────────────────────────────────────────────

type memDTERepo struct {
	mu    sync.Mutex
	porID map[string]*entity.DTE
}

func newMemDTERepo() *memDTERepo {
	return &memDTERepo{porID: make(map[string]*entity.DTE)}
}

func (r *memDTERepo) Create(_ context.Context, d *entity.DTE) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID == "" {
		d.ID = fmt.Sprintf("id-%d", len(r.porID)+1)
	}
	for _, otro := range r.porID {
		if otro.NumeroControl == d.NumeroControl || otro.CodigoGeneracion == d.CodigoGeneracion {
			return domain.ErrCodigoDuplicado
		}
	}
	copia := *d
	r.porID[d.ID] = &copia
	return nil
}

func (r *memDTERepo) Update(_ context.Context, d *entity.DTE) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.porID[d.ID]; !ok {
		return domain.ErrNotFound
	}
	copia := *d
	r.porID[d.ID] = &copia
	return nil
}

func (r *memDTERepo) GetByID(_ context.Context, tenantID, id string) (*entity.DTE, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.porID[id]
	if !ok || d.TenantID != tenantID {
		return nil, nil
	}
	copia := *d
	return &copia, nil
}

func (r *memDTERepo) GetByCodigoGeneracion(_ context.Context, tenantID, codigo string) (*entity.DTE, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.porID {
		if d.TenantID == tenantID && d.CodigoGeneracion == codigo {
			copia := *d
			return &copia, nil
		}
	}
	return nil, nil
}

func (r *memDTERepo) List(_ context.Context, tenantID string, limit, offset int) ([]*entity.DTE, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []*entity.DTE
	for _, d := range r.porID {
		if d.TenantID == tenantID {
			copia := *d
			list = append(list, &copia)
		}
	}
	return list, nil
}

func (r *memDTERepo) ListPorEstado(_ context.Context, tenantID, estado string, limit int) ([]*entity.DTE, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []*entity.DTE
	for _, d := range r.porID {
		if d.TenantID == tenantID && d.Estado == estado {
			copia := *d
			list = append(list, &copia)
		}
	}
	return list, nil
}

func (r *memDTERepo) ListEstancados(_ context.Context, estado string, antesDe time.Time, limit int) ([]*entity.DTE, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []*entity.DTE
	for _, d := range r.porID {
		if d.Estado == estado && d.UpdatedAt.Before(antesDe) {
			copia := *d
			list = append(list, &copia)
		}
	}
	return list, nil
}

type memSecuencias struct {
	mu       sync.Mutex
	contador map[string]int64
}

func newMemSecuencias() *memSecuencias {
	return &memSecuencias{contador: make(map[string]int64)}
}

func (s *memSecuencias) Next(_ context.Context, tenantID, estab, pos, tipoDte string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clave := tenantID + "|" + estab + "|" + pos + "|" + tipoDte
	s.contador[clave]++
	return s.contador[clave], nil
}

// memTxRunner corre fn con los repos en memoria. Si fn falla, restaura los
// contadores de secuencia y los documentos creados (rollback simulado).
type memTxRunner struct {
	dtes *memDTERepo
	sec  *memSecuencias
}

func (r *memTxRunner) Run(ctx context.Context, fn func(repository.DTERepository, repository.SecuenciaRepository) error) error {
	r.sec.mu.Lock()
	contadorAntes := make(map[string]int64, len(r.sec.contador))
	for k, v := range r.sec.contador {
		contadorAntes[k] = v
	}
	r.sec.mu.Unlock()

	r.dtes.mu.Lock()
	idsAntes := make(map[string]bool, len(r.dtes.porID))
	for id := range r.dtes.porID {
		idsAntes[id] = true
	}
	r.dtes.mu.Unlock()

	if err := fn(r.dtes, r.sec); err != nil {
		r.sec.mu.Lock()
		r.sec.contador = contadorAntes
		r.sec.mu.Unlock()
		r.dtes.mu.Lock()
		for id := range r.dtes.porID {
			if !idsAntes[id] {
				delete(r.dtes.porID, id)
			}
		}
		r.dtes.mu.Unlock()
		return err
	}
	return nil
}

type memTenantRepo struct {
	tenant *entity.Tenant
}

func (r *memTenantRepo) Create(context.Context, *entity.Tenant) error { return nil }
func (r *memTenantRepo) GetByID(_ context.Context, id string) (*entity.Tenant, error) {
	if r.tenant != nil && r.tenant.ID == id {
		return r.tenant, nil
	}
	return nil, nil
}
func (r *memTenantRepo) GetByNIT(context.Context, string) (*entity.Tenant, error) { return nil, nil }
func (r *memTenantRepo) Update(context.Context, *entity.Tenant) error             { return nil }
func (r *memTenantRepo) GetCredencialMH(context.Context, string, string) (*entity.CredencialMH, error) {
	return nil, nil
}
func (r *memTenantRepo) UpsertCredencialMH(context.Context, *entity.CredencialMH) error { return nil }

type firmadorFalso struct {
	mu       sync.Mutex
	llamadas int
	fallar   error
	desde    time.Time
	hasta    time.Time
}

func (f *firmadorFalso) Firmar(_ context.Context, _, _ string, payload []byte) (string, error) {
	f.mu.Lock()
	f.llamadas++
	f.mu.Unlock()
	if f.fallar != nil {
		return "", f.fallar
	}
	return fmt.Sprintf("hdr.%d.sig", len(payload)), nil
}

func (f *firmadorFalso) VentanaVigencia(context.Context, string, string) (time.Time, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.desde, f.hasta, nil
}

type tokensFalsos struct {
	mu          sync.Mutex
	emitidos    int
	invalidados int
}

func (t *tokensFalsos) Token(context.Context, string, string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.emitidos++
	return fmt.Sprintf("tok-%d", t.emitidos), nil
}

func (t *tokensFalsos) Invalidar(string, string) {
	t.mu.Lock()
	t.invalidados++
	t.mu.Unlock()
}

// transmisorGuion devuelve respuestas o errores en orden, una por llamada.
type transmisorGuion struct {
	mu        sync.Mutex
	pasos     []paso
	recibidas []*mh.RecepcionRequest
	consultas int
	consulta  *mh.RecepcionRespuesta
}

type paso struct {
	resp *mh.RecepcionRespuesta
	err  error
}

func (t *transmisorGuion) RecibirDTE(_ context.Context, _, _ string, req *mh.RecepcionRequest) (*mh.RecepcionRespuesta, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recibidas = append(t.recibidas, req)
	if len(t.pasos) == 0 {
		return &mh.RecepcionRespuesta{Estado: pkgdte.MHEstadoProcesado, SelloRecibido: "SELLO-DEFAULT"}, nil
	}
	p := t.pasos[0]
	t.pasos = t.pasos[1:]
	return p.resp, p.err
}

func (t *transmisorGuion) ConsultarDTE(context.Context, string, string, *mh.ConsultaRequest) (*mh.RecepcionRespuesta, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consultas++
	if t.consulta != nil {
		return t.consulta, nil
	}
	return nil, domain.ErrTransporte
}

func (t *transmisorGuion) EnviarAnulacion(context.Context, string, string, *mh.EventoRequest) (*mh.RecepcionRespuesta, error) {
	return nil, fmt.Errorf("no esperado en este test")
}

func (t *transmisorGuion) EnviarContingencia(context.Context, string, string, *mh.EventoRequest) (*mh.RecepcionRespuesta, error) {
	return nil, fmt.Errorf("no esperado en este test")
}

// ── armado del caso de uso ────────────────────────────────────────────────────

type banco struct {
	uc     *EmitterUseCase
	dtes   *memDTERepo
	sec    *memSecuencias
	firma  *firmadorFalso
	tokens *tokensFalsos
	mh     *transmisorGuion
}

func armarBanco(t *testing.T) *banco {
	t.Helper()
	dtes := newMemDTERepo()
	sec := newMemSecuencias()
	// Ventana amplia: el certificado de prueba cubre cualquier reintento.
	firma := &firmadorFalso{
		desde: time.Now().Add(-24 * time.Hour),
		hasta: time.Now().Add(365 * 24 * time.Hour),
	}
	tokens := &tokensFalsos{}
	trans := &transmisorGuion{}
	tenants := &memTenantRepo{tenant: tenantPrueba()}

	uc := NewEmitterUseCase(
		&memTxRunner{dtes: dtes, sec: sec},
		dtes, tenants, firma, tokens, trans,
		RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Millisecond},
		4, zerolog.Nop(),
	)
	return &banco{uc: uc, dtes: dtes, sec: sec, firma: firma, tokens: tokens, mh: trans}
}

func tenantPrueba() *entity.Tenant {
	return &entity.Tenant{
		ID:              "tenant-1",
		Nombre:          "COMERCIAL EL ROBLE S.A. DE C.V.",
		NIT:             "06140101231001",
		NRC:             "123456",
		CodActividad:    "46900",
		DescActividad:   "Venta al por mayor de otros productos",
		Direccion:       "Col. Escalón, San Salvador",
		Correo:          "facturacion@elroble.com.sv",
		Establecimiento: "M001",
		PuntoVenta:      "P001",
		Ambiente:        pkgdte.AmbientePruebas,
	}
}

func requestFactura() *dto.EmitirDTERequest {
	return &dto.EmitirDTERequest{
		TipoDte:            pkgdte.TipoFactura,
		CondicionOperacion: pkgdte.CondicionContado,
		Receptor: dto.ReceptorRequest{
			Nombre: "Cliente de Mostrador",
			Correo: "cliente@example.com",
		},
		Items: []dto.ItemDTERequest{
			{
				TipoItem:    1,
				Descripcion: "Servicio de consultoría",
				Cantidad:    decimal.NewFromInt(1),
				PrecioUni:   decimal.NewFromInt(100),
				MontoDescu:  decimal.Zero,
			},
		},
	}
}

// ── tests ─────────────────────────────────────────────────────────────────────

func TestEmitir_FacturaProcesada(t *testing.T) {
	b := armarBanco(t)
	b.mh.pasos = []paso{{resp: &mh.RecepcionRespuesta{
		Estado:        pkgdte.MHEstadoProcesado,
		SelloRecibido: "20260000000000000000000000000042",
		CodigoMsg:     "001",
	}}}

	registro, err := b.uc.Emitir(context.Background(), "tenant-1", requestFactura())
	require.NoError(t, err)

	assert.Equal(t, string(dtedom.EstadoProcesado), registro.Estado)
	assert.Equal(t, "20260000000000000000000000000042", registro.SelloRecibido)
	assert.Equal(t, "DTE-01-M001P001-000000000000001", registro.NumeroControl)
	assert.Len(t, registro.CodigoGeneracion, pkgdte.CodigoGeneracionLen)
	assert.NotEmpty(t, registro.JSONFirmado)
	assert.Equal(t, 1, registro.IntentosEnvio)

	// El veredicto debe estar persistido, no solo en memoria del pipeline.
	guardado, err := b.dtes.GetByID(context.Background(), "tenant-1", registro.ID)
	require.NoError(t, err)
	assert.Equal(t, string(dtedom.EstadoProcesado), guardado.Estado)
}

func TestEmitir_DocumentoInvalidoNoConsumeSecuenciaNiFirma(t *testing.T) {
	b := armarBanco(t)

	// CCF exige NIT y NRC del receptor.
	req := requestFactura()
	req.TipoDte = pkgdte.TipoCCF
	req.Receptor.NIT = ""
	req.Receptor.NRC = ""

	_, err := b.uc.Emitir(context.Background(), "tenant-1", req)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidacion)

	var inv *ErrDocumentoInvalido
	require.ErrorAs(t, err, &inv)
	assert.NotEmpty(t, inv.Resultado.Errors, "el reporte debe traer las violaciones")

	assert.Equal(t, 0, b.firma.llamadas, "un documento inválido jamás llega al firmador")
	assert.Empty(t, b.sec.contador, "el correlativo no debe consumirse si la emisión no valida")
	assert.Empty(t, b.dtes.porID, "no debe quedar documento persistido")
}

func TestEmitir_TransporteReintentaYProcesa(t *testing.T) {
	b := armarBanco(t)
	b.mh.pasos = []paso{
		{err: fmt.Errorf("%w: connection refused", domain.ErrTransporte)},
		{err: fmt.Errorf("%w: timeout", domain.ErrTransporte)},
		{resp: &mh.RecepcionRespuesta{Estado: pkgdte.MHEstadoProcesado, SelloRecibido: "SELLO-3"}},
	}

	registro, err := b.uc.Emitir(context.Background(), "tenant-1", requestFactura())
	require.NoError(t, err)
	assert.Equal(t, string(dtedom.EstadoProcesado), registro.Estado)
	assert.Equal(t, 3, registro.IntentosEnvio)
}

func TestEmitir_TransporteAgotadoQuedaEnError(t *testing.T) {
	b := armarBanco(t)
	b.mh.pasos = []paso{
		{err: fmt.Errorf("%w: caída 1", domain.ErrTransporte)},
		{err: fmt.Errorf("%w: caída 2", domain.ErrTransporte)},
		{err: fmt.Errorf("%w: caída 3", domain.ErrTransporte)},
	}

	registro, err := b.uc.Emitir(context.Background(), "tenant-1", requestFactura())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransporte)
	assert.Equal(t, string(dtedom.EstadoError), registro.Estado)
	assert.NotEmpty(t, registro.UltimoError)
}

func TestEmitir_RechazoEsTerminal(t *testing.T) {
	b := armarBanco(t)
	b.mh.pasos = []paso{{resp: &mh.RecepcionRespuesta{
		Estado:         pkgdte.MHEstadoRechazado,
		CodigoMsg:      "92",
		DescripcionMsg: "NIT del receptor no registrado",
	}}}

	registro, err := b.uc.Emitir(context.Background(), "tenant-1", requestFactura())
	require.NoError(t, err)
	assert.Equal(t, string(dtedom.EstadoRechazado), registro.Estado)
	assert.Equal(t, "92", registro.CodigoMH)
	assert.Len(t, b.mh.recibidas, 1, "un rechazo de negocio no se reintenta")
}

func TestEmitir_TokenRechazadoReautenticaUnaVez(t *testing.T) {
	b := armarBanco(t)
	b.mh.pasos = []paso{
		{err: mh.ErrTokenRechazado},
		{resp: &mh.RecepcionRespuesta{Estado: pkgdte.MHEstadoProcesado, SelloRecibido: "SELLO-OK"}},
	}

	registro, err := b.uc.Emitir(context.Background(), "tenant-1", requestFactura())
	require.NoError(t, err)
	assert.Equal(t, string(dtedom.EstadoProcesado), registro.Estado)
	assert.Equal(t, 1, b.tokens.invalidados, "el 401 debe invalidar el token cacheado")
	assert.Equal(t, 2, b.tokens.emitidos)
}

func TestEmitir_DuplicadoReconciliaViaConsulta(t *testing.T) {
	b := armarBanco(t)
	b.mh.pasos = []paso{{resp: &mh.RecepcionRespuesta{
		Estado:         pkgdte.MHEstadoRechazado,
		DescripcionMsg: "Identificador duplicado: el documento ya existe",
	}}}
	b.mh.consulta = &mh.RecepcionRespuesta{
		Estado:        pkgdte.MHEstadoProcesado,
		SelloRecibido: "SELLO-PREVIO",
	}

	registro, err := b.uc.Emitir(context.Background(), "tenant-1", requestFactura())
	require.NoError(t, err)
	assert.Equal(t, string(dtedom.EstadoProcesado), registro.Estado,
		"un duplicado con consulta PROCESADO debe reconciliarse, no rechazarse")
	assert.Equal(t, "SELLO-PREVIO", registro.SelloRecibido)
	assert.Equal(t, 1, b.mh.consultas)
}

func TestEmitir_FirmaFallidaQuedaEnError(t *testing.T) {
	b := armarBanco(t)
	b.firma.fallar = fmt.Errorf("%w: contraseña incorrecta", domain.ErrCertificado)

	registro, err := b.uc.Emitir(context.Background(), "tenant-1", requestFactura())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCertificado)
	assert.Equal(t, string(dtedom.EstadoError), registro.Estado)
	assert.Empty(t, b.mh.recibidas, "sin firma no hay transmisión")
}

func TestEmitir_ConcurrenciaNumeracionUnica(t *testing.T) {
	b := armarBanco(t)

	const n = 50
	var wg sync.WaitGroup
	resultados := make([]*entity.DTE, n)
	errores := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resultados[i], errores[i] = b.uc.Emitir(context.Background(), "tenant-1", requestFactura())
		}(i)
	}
	wg.Wait()

	vistos := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		require.NoError(t, errores[i], "emisión %d", i)
		nc := resultados[i].NumeroControl
		assert.False(t, vistos[nc], "numeroControl repetido: %s", nc)
		vistos[nc] = true
	}
	assert.Len(t, vistos, n)
}

func TestReintentar_ConservaCodigoGeneracionYFirma(t *testing.T) {
	b := armarBanco(t)
	b.mh.pasos = []paso{
		{err: fmt.Errorf("%w: caída", domain.ErrTransporte)},
		{err: fmt.Errorf("%w: caída", domain.ErrTransporte)},
		{err: fmt.Errorf("%w: caída", domain.ErrTransporte)},
	}

	registro, err := b.uc.Emitir(context.Background(), "tenant-1", requestFactura())
	require.Error(t, err)
	require.Equal(t, string(dtedom.EstadoError), registro.Estado)

	codigo := registro.CodigoGeneracion
	firmado := registro.JSONFirmado
	firmas := b.firma.llamadas

	// El MH vuelve en sí.
	b.mh.pasos = []paso{{resp: &mh.RecepcionRespuesta{Estado: pkgdte.MHEstadoProcesado, SelloRecibido: "SELLO-R"}}}

	reintento, err := b.uc.Reintentar(context.Background(), "tenant-1", registro.ID)
	require.NoError(t, err)

	assert.Equal(t, string(dtedom.EstadoProcesado), reintento.Estado)
	assert.Equal(t, codigo, reintento.CodigoGeneracion, "el reintento jamás cambia el codigoGeneracion")
	assert.Equal(t, firmado, reintento.JSONFirmado, "la firma vigente se reutiliza")
	assert.Equal(t, firmas, b.firma.llamadas, "no debe re-firmarse si el JWS sobrevivió")
}

func TestReintentar_SoloAplicaAError(t *testing.T) {
	b := armarBanco(t)
	b.mh.pasos = []paso{{resp: &mh.RecepcionRespuesta{Estado: pkgdte.MHEstadoProcesado, SelloRecibido: "S"}}}

	registro, err := b.uc.Emitir(context.Background(), "tenant-1", requestFactura())
	require.NoError(t, err)

	_, err = b.uc.Reintentar(context.Background(), "tenant-1", registro.ID)
	assert.ErrorIs(t, err, domain.ErrTransicionEstado)
}

func TestConsultar_ReconciliaProcesando(t *testing.T) {
	b := armarBanco(t)
	// Veredicto no concluyente: queda en PROCESANDO.
	b.mh.pasos = []paso{{resp: &mh.RecepcionRespuesta{Estado: pkgdte.MHEstadoRecibido}}}

	registro, err := b.uc.Emitir(context.Background(), "tenant-1", requestFactura())
	require.NoError(t, err)
	require.Equal(t, string(dtedom.EstadoProcesando), registro.Estado)

	b.mh.consulta = &mh.RecepcionRespuesta{Estado: pkgdte.MHEstadoProcesado, SelloRecibido: "SELLO-C"}

	consultado, err := b.uc.Consultar(context.Background(), "tenant-1", registro.ID)
	require.NoError(t, err)
	assert.Equal(t, string(dtedom.EstadoProcesado), consultado.Estado)
	assert.Equal(t, "SELLO-C", consultado.SelloRecibido)
}

func TestConsultar_ReconciliaDocumentoEnError(t *testing.T) {
	b := armarBanco(t)
	b.mh.pasos = []paso{
		{err: fmt.Errorf("%w: caída 1", domain.ErrTransporte)},
		{err: fmt.Errorf("%w: caída 2", domain.ErrTransporte)},
		{err: fmt.Errorf("%w: caída 3", domain.ErrTransporte)},
	}

	registro, err := b.uc.Emitir(context.Background(), "tenant-1", requestFactura())
	require.Error(t, err)
	require.Equal(t, string(dtedom.EstadoError), registro.Estado)

	// El MH sí recibió el envío que localmente quedó cortado.
	b.mh.consulta = &mh.RecepcionRespuesta{Estado: pkgdte.MHEstadoProcesado, SelloRecibido: "SELLO-REAL"}

	consultado, err := b.uc.Consultar(context.Background(), "tenant-1", registro.ID)
	require.NoError(t, err)
	assert.Equal(t, string(dtedom.EstadoProcesado), consultado.Estado)
	assert.Equal(t, "SELLO-REAL", consultado.SelloRecibido)

	guardado, err := b.dtes.GetByID(context.Background(), "tenant-1", registro.ID)
	require.NoError(t, err)
	assert.Equal(t, string(dtedom.EstadoProcesado), guardado.Estado, "el veredicto debe persistirse")
	assert.Equal(t, "SELLO-REAL", guardado.SelloRecibido)
}

func TestReintentar_RefirmaSiCertificadoReemplazado(t *testing.T) {
	b := armarBanco(t)
	b.mh.pasos = []paso{
		{err: fmt.Errorf("%w: caída", domain.ErrTransporte)},
		{err: fmt.Errorf("%w: caída", domain.ErrTransporte)},
		{err: fmt.Errorf("%w: caída", domain.ErrTransporte)},
	}

	registro, err := b.uc.Emitir(context.Background(), "tenant-1", requestFactura())
	require.Error(t, err)
	require.Equal(t, string(dtedom.EstadoError), registro.Estado)
	require.NotEmpty(t, registro.JSONFirmado)
	firmas := b.firma.llamadas

	// El certificado vigente entró después de la emisión: la firma guardada es de otro.
	b.firma.desde = registro.FechaEmision.Add(time.Hour)
	b.mh.pasos = []paso{{resp: &mh.RecepcionRespuesta{Estado: pkgdte.MHEstadoProcesado, SelloRecibido: "SELLO-N"}}}

	reintento, err := b.uc.Reintentar(context.Background(), "tenant-1", registro.ID)
	require.NoError(t, err)

	assert.Equal(t, string(dtedom.EstadoProcesado), reintento.Estado)
	assert.Equal(t, firmas+1, b.firma.llamadas, "debe re-firmarse con el certificado vigente")
}

func TestReintentar_RefirmaSiCertificadoVencido(t *testing.T) {
	b := armarBanco(t)
	b.mh.pasos = []paso{
		{err: fmt.Errorf("%w: caída", domain.ErrTransporte)},
		{err: fmt.Errorf("%w: caída", domain.ErrTransporte)},
		{err: fmt.Errorf("%w: caída", domain.ErrTransporte)},
	}

	registro, err := b.uc.Emitir(context.Background(), "tenant-1", requestFactura())
	require.Error(t, err)
	require.Equal(t, string(dtedom.EstadoError), registro.Estado)
	firmas := b.firma.llamadas

	b.firma.hasta = time.Now().Add(-time.Hour)
	b.mh.pasos = []paso{{resp: &mh.RecepcionRespuesta{Estado: pkgdte.MHEstadoProcesado, SelloRecibido: "SELLO-V"}}}

	reintento, err := b.uc.Reintentar(context.Background(), "tenant-1", registro.ID)
	require.NoError(t, err)

	assert.Equal(t, string(dtedom.EstadoProcesado), reintento.Estado)
	assert.Equal(t, firmas+1, b.firma.llamadas, "un certificado vencido obliga a re-firmar")
}
