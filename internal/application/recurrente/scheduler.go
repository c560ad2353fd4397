// Package recurrente implementa la facturación recurrente: un scheduler
// escanea las plantillas vencidas y dispara el mismo pipeline de emisión que
// una petición manual.
package recurrente

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/facturasv/dte-api/internal/application/dto"
	"github.com/facturasv/dte-api/internal/domain/entity"
	"github.com/facturasv/dte-api/internal/domain/repository"
)

// Emisor puerto al pipeline de emisión. Lo implementa emision.EmitterUseCase.
type Emisor interface {
	Emitir(ctx context.Context, tenantID string, req *dto.EmitirDTERequest) (*entity.DTE, error)
}

// Scheduler recorre plantillas vencidas con un ticker y emite cada una.
type Scheduler struct {
	plantillas repository.PlantillaRepository
	emisor     Emisor
	intervalo  time.Duration
	lote       int
	log        zerolog.Logger
	ahora      func() time.Time
}

// NewScheduler construye el scheduler. intervalo es la frecuencia de escaneo.
func NewScheduler(plantillas repository.PlantillaRepository, emisor Emisor, intervalo time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		plantillas: plantillas,
		emisor:     emisor,
		intervalo:  intervalo,
		lote:       50,
		log:        log,
		ahora:      time.Now,
	}
}

// Run bloquea hasta que el contexto se cancele, procesando un lote por tick.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.intervalo)
	defer ticker.Stop()

	s.log.Info().Dur("intervalo", s.intervalo).Msg("scheduler de facturación recurrente iniciado")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler detenido")
			return
		case <-ticker.C:
			s.ProcesarVencidas(ctx)
		}
	}
}

// ProcesarVencidas emite las plantillas cuyo plazo venció y las reprograma.
// Un fallo de emisión no reprograma: la plantilla vuelve a intentarse en el
// siguiente tick, y el operador ve el documento en ERROR si llegó a crearse.
func (s *Scheduler) ProcesarVencidas(ctx context.Context) {
	vencidas, err := s.plantillas.ListVencidas(ctx, s.ahora(), s.lote)
	if err != nil {
		s.log.Error().Err(err).Msg("no se pudieron listar plantillas vencidas")
		return
	}

	for _, p := range vencidas {
		var req dto.EmitirDTERequest
		if err := json.Unmarshal([]byte(p.BorradorJSON), &req); err != nil {
			s.log.Error().Err(err).Str("plantilla", p.ID).Msg("borrador de plantilla corrupto, desactivando")
			p.Activa = false
			p.UpdatedAt = s.ahora()
			if err := s.plantillas.Update(ctx, p); err != nil {
				s.log.Error().Err(err).Str("plantilla", p.ID).Msg("no se pudo desactivar la plantilla")
			}
			continue
		}

		registro, err := s.emisor.Emitir(ctx, p.TenantID, &req)
		if err != nil {
			s.log.Error().Err(err).Str("plantilla", p.ID).Msg("emisión recurrente falló, se reintenta en el siguiente tick")
			continue
		}

		s.log.Info().
			Str("plantilla", p.ID).
			Str("codigoGeneracion", registro.CodigoGeneracion).
			Str("estado", registro.Estado).
			Msg("emisión recurrente completada")

		p.ProximaEmision = p.ProximaEmision.AddDate(0, 0, p.FrecuenciaDias)
		// Si la plantilla estuvo detenida varios períodos, no acumular atrasos.
		if !p.ProximaEmision.After(s.ahora()) {
			p.ProximaEmision = s.ahora().AddDate(0, 0, p.FrecuenciaDias)
		}
		p.UpdatedAt = s.ahora()
		if err := s.plantillas.Update(ctx, p); err != nil {
			s.log.Error().Err(err).Str("plantilla", p.ID).Msg("no se pudo reprogramar la plantilla")
		}
	}
}
