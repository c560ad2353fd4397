package evento

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturasv/dte-api/internal/application/dto"
	"github.com/facturasv/dte-api/internal/domain"
	dtedom "github.com/facturasv/dte-api/internal/domain/dte"
	"github.com/facturasv/dte-api/internal/domain/entity"
	"github.com/facturasv/dte-api/internal/infrastructure/mh"
	pkgdte "github.com/facturasv/dte-api/pkg/dte"
)

// ── dobles ────────────────────────────────────────────────────────────────────

type memEventoRepo struct {
	mu    sync.Mutex
	porID map[string]*entity.Evento
}

func newMemEventoRepo() *memEventoRepo {
	return &memEventoRepo{porID: make(map[string]*entity.Evento)}
}

func (r *memEventoRepo) Create(_ context.Context, e *entity.Evento) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == "" {
		e.ID = fmt.Sprintf("ev-%d", len(r.porID)+1)
	}
	copia := *e
	r.porID[e.ID] = &copia
	return nil
}

func (r *memEventoRepo) Update(_ context.Context, e *entity.Evento) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.porID[e.ID]; !ok {
		return domain.ErrNotFound
	}
	copia := *e
	r.porID[e.ID] = &copia
	return nil
}

func (r *memEventoRepo) GetByID(_ context.Context, tenantID, id string) (*entity.Evento, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.porID[id]
	if !ok || e.TenantID != tenantID {
		return nil, nil
	}
	copia := *e
	return &copia, nil
}

func (r *memEventoRepo) ListByDTERef(_ context.Context, tenantID, ref string) ([]*entity.Evento, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []*entity.Evento
	for _, e := range r.porID {
		if e.TenantID == tenantID && e.CodigoGeneracionRef == ref {
			copia := *e
			list = append(list, &copia)
		}
	}
	return list, nil
}

type memDTEs struct {
	mu        sync.Mutex
	porCodigo map[string]*entity.DTE
}

func (r *memDTEs) Create(_ context.Context, d *entity.DTE) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.porCodigo[d.CodigoGeneracion] = d
	return nil
}
func (r *memDTEs) Update(_ context.Context, d *entity.DTE) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.porCodigo[d.CodigoGeneracion] = d
	return nil
}
func (r *memDTEs) GetByID(_ context.Context, tenantID, id string) (*entity.DTE, error) {
	return nil, nil
}
func (r *memDTEs) GetByCodigoGeneracion(_ context.Context, tenantID, codigo string) (*entity.DTE, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.porCodigo[codigo]
	if !ok || d.TenantID != tenantID {
		return nil, nil
	}
	copia := *d
	return &copia, nil
}
func (r *memDTEs) List(context.Context, string, int, int) ([]*entity.DTE, error) { return nil, nil }
func (r *memDTEs) ListPorEstado(context.Context, string, string, int) ([]*entity.DTE, error) {
	return nil, nil
}
func (r *memDTEs) ListEstancados(context.Context, string, time.Time, int) ([]*entity.DTE, error) {
	return nil, nil
}

type tenantFijo struct{ t *entity.Tenant }

func (r *tenantFijo) Create(context.Context, *entity.Tenant) error { return nil }
func (r *tenantFijo) GetByID(_ context.Context, id string) (*entity.Tenant, error) {
	if r.t.ID == id {
		return r.t, nil
	}
	return nil, nil
}
func (r *tenantFijo) GetByNIT(context.Context, string) (*entity.Tenant, error) { return nil, nil }
func (r *tenantFijo) Update(context.Context, *entity.Tenant) error             { return nil }
func (r *tenantFijo) GetCredencialMH(context.Context, string, string) (*entity.CredencialMH, error) {
	return nil, nil
}
func (r *tenantFijo) UpsertCredencialMH(context.Context, *entity.CredencialMH) error { return nil }

type firmaFalsa struct{ llamadas int }

func (f *firmaFalsa) Firmar(_ context.Context, _, _ string, payload []byte) (string, error) {
	f.llamadas++
	return fmt.Sprintf("hdr.%d.sig", len(payload)), nil
}

type tokensFalsos struct{}

func (tokensFalsos) Token(context.Context, string, string) (string, error) { return "tok", nil }
func (tokensFalsos) Invalidar(string, string)                              {}

type transmisorEventos struct {
	mu          sync.Mutex
	anulaciones []*mh.EventoRequest
	respuesta   *mh.RecepcionRespuesta
	err         error
}

func (t *transmisorEventos) RecibirDTE(context.Context, string, string, *mh.RecepcionRequest) (*mh.RecepcionRespuesta, error) {
	return nil, fmt.Errorf("no esperado")
}
func (t *transmisorEventos) ConsultarDTE(context.Context, string, string, *mh.ConsultaRequest) (*mh.RecepcionRespuesta, error) {
	return nil, fmt.Errorf("no esperado")
}
func (t *transmisorEventos) EnviarAnulacion(_ context.Context, _, _ string, req *mh.EventoRequest) (*mh.RecepcionRespuesta, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.anulaciones = append(t.anulaciones, req)
	return t.respuesta, t.err
}
func (t *transmisorEventos) EnviarContingencia(_ context.Context, _, _ string, req *mh.EventoRequest) (*mh.RecepcionRespuesta, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.anulaciones = append(t.anulaciones, req)
	return t.respuesta, t.err
}

// ── armado ────────────────────────────────────────────────────────────────────

type banco struct {
	uc      *UseCase
	eventos *memEventoRepo
	dtes    *memDTEs
	firma   *firmaFalsa
	trans   *transmisorEventos
}

func armarBanco(t *testing.T) *banco {
	t.Helper()
	eventos := newMemEventoRepo()
	dtes := &memDTEs{porCodigo: make(map[string]*entity.DTE)}
	firma := &firmaFalsa{}
	trans := &transmisorEventos{respuesta: &mh.RecepcionRespuesta{
		Estado:        pkgdte.MHEstadoProcesado,
		SelloRecibido: "SELLO-EVENTO",
	}}
	tenants := &tenantFijo{t: &entity.Tenant{
		ID:       "tenant-1",
		NIT:      "06140101231001",
		Ambiente: pkgdte.AmbientePruebas,
	}}

	uc := NewUseCase(eventos, dtes, tenants, firma, tokensFalsos{}, trans, zerolog.Nop())
	return &banco{uc: uc, eventos: eventos, dtes: dtes, firma: firma, trans: trans}
}

func dteProcesado(codigo string) *entity.DTE {
	return &entity.DTE{
		ID:               "dte-" + codigo,
		TenantID:         "tenant-1",
		CodigoGeneracion: codigo,
		NumeroControl:    "DTE-01-M001P001-000000000000001",
		TipoDte:          pkgdte.TipoFactura,
		Ambiente:         pkgdte.AmbientePruebas,
		Estado:           string(dtedom.EstadoProcesado),
		SelloRecibido:    "SELLO-ORIGINAL",
		FechaEmision:     time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
	}
}

// ── tests ─────────────────────────────────────────────────────────────────────

func TestAnular_DTEProcesado(t *testing.T) {
	b := armarBanco(t)
	codigo := "AAAAAAAA-BBBB-4CCC-8DDD-EEEEEEEEEEEE"
	require.NoError(t, b.dtes.Create(context.Background(), dteProcesado(codigo)))

	ev, err := b.uc.Anular(context.Background(), "tenant-1", &dto.AnulacionRequest{
		CodigoGeneracion: codigo,
		Motivo:           "Error en datos del receptor",
	})
	require.NoError(t, err)

	assert.Equal(t, entity.EventoAceptado, ev.Estado)
	assert.Equal(t, "SELLO-EVENTO", ev.SelloRecibido)
	assert.Equal(t, codigo, ev.CodigoGeneracionRef)
	assert.NotEqual(t, codigo, ev.CodigoGeneracion, "el evento lleva identificador propio")

	// El DTE pasa a ANULADO conservando su sello y payload.
	d, err := b.dtes.GetByCodigoGeneracion(context.Background(), "tenant-1", codigo)
	require.NoError(t, err)
	assert.Equal(t, string(dtedom.EstadoAnulado), d.Estado)
	assert.Equal(t, "SELLO-ORIGINAL", d.SelloRecibido)
}

func TestAnular_RechazaLocalmenteSiNoEstaProcesado(t *testing.T) {
	b := armarBanco(t)
	codigo := "AAAAAAAA-BBBB-4CCC-8DDD-EEEEEEEEEEEE"
	d := dteProcesado(codigo)
	d.Estado = string(dtedom.EstadoPendiente)
	d.SelloRecibido = ""
	require.NoError(t, b.dtes.Create(context.Background(), d))

	_, err := b.uc.Anular(context.Background(), "tenant-1", &dto.AnulacionRequest{
		CodigoGeneracion: codigo,
		Motivo:           "Prueba",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransicionEstado)
	assert.Empty(t, b.trans.anulaciones, "el rechazo local jamás toca el MH")
	assert.Equal(t, 0, b.firma.llamadas)
}

func TestAnular_SinMotivoFallaValidacion(t *testing.T) {
	b := armarBanco(t)
	_, err := b.uc.Anular(context.Background(), "tenant-1", &dto.AnulacionRequest{
		CodigoGeneracion: "X",
	})
	assert.ErrorIs(t, err, domain.ErrValidacion)
}

func TestAnular_RechazoMHNoAnulaElDTE(t *testing.T) {
	b := armarBanco(t)
	b.trans.respuesta = &mh.RecepcionRespuesta{
		Estado:         pkgdte.MHEstadoRechazado,
		CodigoMsg:      "50",
		DescripcionMsg: "Fuera del plazo de anulación",
	}
	codigo := "AAAAAAAA-BBBB-4CCC-8DDD-EEEEEEEEEEEE"
	require.NoError(t, b.dtes.Create(context.Background(), dteProcesado(codigo)))

	ev, err := b.uc.Anular(context.Background(), "tenant-1", &dto.AnulacionRequest{
		CodigoGeneracion: codigo,
		Motivo:           "Error en datos",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.EventoRechazado, ev.Estado)

	d, _ := b.dtes.GetByCodigoGeneracion(context.Background(), "tenant-1", codigo)
	assert.Equal(t, string(dtedom.EstadoProcesado), d.Estado, "un rechazo del evento deja el DTE como estaba")
}

func TestDeclararContingencia_ListaDocumentos(t *testing.T) {
	b := armarBanco(t)
	c1 := "AAAAAAAA-BBBB-4CCC-8DDD-EEEEEEEEEE01"
	c2 := "AAAAAAAA-BBBB-4CCC-8DDD-EEEEEEEEEE02"
	require.NoError(t, b.dtes.Create(context.Background(), dteProcesado(c1)))
	require.NoError(t, b.dtes.Create(context.Background(), dteProcesado(c2)))

	ev, err := b.uc.DeclararContingencia(context.Background(), "tenant-1", &dto.ContingenciaRequest{
		Motivo:    "Caída del servicio MH",
		HoraDesde: "08:00:00",
		HoraHasta: "10:30:00",
		DTEs:      []string{c1, c2},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.EventoAceptado, ev.Estado)
	require.Len(t, b.trans.anulaciones, 1)

	// El payload firmado enumera ambos documentos.
	var enviado mh.EventoRequest = *b.trans.anulaciones[0]
	assert.NotEmpty(t, enviado.Documento)
	assert.Equal(t, 1, b.firma.llamadas)
}

func TestDeclararContingencia_SinDTEsFalla(t *testing.T) {
	b := armarBanco(t)
	_, err := b.uc.DeclararContingencia(context.Background(), "tenant-1", &dto.ContingenciaRequest{
		Motivo: "Caída",
	})
	assert.ErrorIs(t, err, domain.ErrValidacion)
}

func TestPayloadAnulacion_FormaJSON(t *testing.T) {
	var p payloadAnulacion
	p.Identificacion.Version = 2
	p.Identificacion.Ambiente = pkgdte.AmbientePruebas
	p.Motivo.TipoAnulacion = 2
	p.Motivo.MotivoAnulacion = "motivo"

	raw, err := json.Marshal(&p)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"tipoAnulacion":2`)
	assert.Contains(t, string(raw), `"motivoAnulacion":"motivo"`)
	assert.Contains(t, string(raw), `"fecAnula"`)
}
