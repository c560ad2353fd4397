package emision

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	dtedom "github.com/facturasv/dte-api/internal/domain/dte"
	"github.com/facturasv/dte-api/internal/domain/entity"
	"github.com/facturasv/dte-api/internal/domain/repository"
)

// Consultor puerto a la consulta autoritativa. Lo implementa EmitterUseCase.
type Consultor interface {
	Consultar(ctx context.Context, tenantID, id string) (*entity.DTE, error)
}

// Reconciliador barre documentos atascados en PROCESANDO o ERROR (envío
// interrumpido, veredicto no concluyente) y les aplica el estado autoritativo
// del MH.
type Reconciliador struct {
	dtes      repository.DTERepository
	consultor Consultor
	intervalo time.Duration
	// edadMinima evita consultar documentos cuyo envío sigue en vuelo.
	edadMinima time.Duration
	lote       int
	log        zerolog.Logger
	ahora      func() time.Time
}

// NewReconciliador construye el job. intervalo es la frecuencia de barrido.
func NewReconciliador(dtes repository.DTERepository, consultor Consultor, intervalo time.Duration, log zerolog.Logger) *Reconciliador {
	return &Reconciliador{
		dtes:       dtes,
		consultor:  consultor,
		intervalo:  intervalo,
		edadMinima: 2 * time.Minute,
		lote:       50,
		log:        log,
		ahora:      time.Now,
	}
}

// Run bloquea hasta que el contexto se cancele, barriendo un lote por tick.
func (r *Reconciliador) Run(ctx context.Context) {
	ticker := time.NewTicker(r.intervalo)
	defer ticker.Stop()

	r.log.Info().Dur("intervalo", r.intervalo).Msg("reconciliador de DTE iniciado")
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("reconciliador detenido")
			return
		case <-ticker.C:
			r.BarrerEstancados(ctx)
		}
	}
}

// BarrerEstancados consulta al MH cada documento atascado y reconcilia.
func (r *Reconciliador) BarrerEstancados(ctx context.Context) {
	corte := r.ahora().Add(-r.edadMinima)
	for _, estado := range []dtedom.Estado{dtedom.EstadoProcesando, dtedom.EstadoError} {
		r.barrer(ctx, string(estado), corte)
	}
}

func (r *Reconciliador) barrer(ctx context.Context, estado string, corte time.Time) {
	estancados, err := r.dtes.ListEstancados(ctx, estado, corte, r.lote)
	if err != nil {
		r.log.Error().Err(err).Str("estado", estado).Msg("no se pudieron listar documentos estancados")
		return
	}
	for _, d := range estancados {
		if ctx.Err() != nil {
			return
		}
		actualizado, err := r.consultor.Consultar(ctx, d.TenantID, d.ID)
		if err != nil {
			// La consulta puede fallar por transporte; el siguiente barrido
			// vuelve a intentarlo.
			r.log.Warn().Err(err).
				Str("codigoGeneracion", d.CodigoGeneracion).
				Msg("consulta de reconciliación falló")
			continue
		}
		if actualizado.Estado != d.Estado {
			r.log.Info().
				Str("codigoGeneracion", d.CodigoGeneracion).
				Str("de", d.Estado).
				Str("a", actualizado.Estado).
				Msg("documento reconciliado")
		}
	}
}
