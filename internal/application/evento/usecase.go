// Package evento gestiona los eventos posteriores a la emisión: anulación de
// documentos ya procesados y declaración de contingencia. Un evento jamás
// muta el payload firmado del DTE al que refiere.
package evento

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/facturasv/dte-api/internal/application/dto"
	"github.com/facturasv/dte-api/internal/domain"
	dtedom "github.com/facturasv/dte-api/internal/domain/dte"
	"github.com/facturasv/dte-api/internal/domain/entity"
	"github.com/facturasv/dte-api/internal/domain/repository"
	"github.com/facturasv/dte-api/internal/infrastructure/mh"
	pkgdte "github.com/facturasv/dte-api/pkg/dte"
)

// Firmador y TokenProvider replican los puertos del pipeline de emisión.
type Firmador interface {
	Firmar(ctx context.Context, tenantID, ambiente string, payload []byte) (string, error)
}

type TokenProvider interface {
	Token(ctx context.Context, tenantID, ambiente string) (string, error)
	Invalidar(tenantID, ambiente string)
}

// payloadAnulacion documento del evento de invalidación según el esquema MH.
type payloadAnulacion struct {
	Identificacion struct {
		Version          int    `json:"version"`
		Ambiente         string `json:"ambiente"`
		CodigoGeneracion string `json:"codigoGeneracion"`
		FecAnula         string `json:"fecAnula"`
		HorAnula         string `json:"horAnula"`
	} `json:"identificacion"`
	Documento struct {
		TipoDte          string `json:"tipoDte"`
		CodigoGeneracion string `json:"codigoGeneracion"`
		NumeroControl    string `json:"numeroControl"`
		SelloRecibido    string `json:"selloRecibido"`
		FecEmi           string `json:"fecEmi"`
	} `json:"documento"`
	Motivo struct {
		TipoAnulacion   int    `json:"tipoAnulacion"`
		MotivoAnulacion string `json:"motivoAnulacion"`
	} `json:"motivo"`
}

// payloadContingencia documento del evento de contingencia según el esquema MH.
type payloadContingencia struct {
	Identificacion struct {
		Version          int    `json:"version"`
		Ambiente         string `json:"ambiente"`
		CodigoGeneracion string `json:"codigoGeneracion"`
		FTransmision     string `json:"fTransmision"`
	} `json:"identificacion"`
	Motivo struct {
		TipoContingencia   int    `json:"tipoContingencia"`
		MotivoContingencia string `json:"motivoContingencia"`
		FInicio            string `json:"fInicio"`
		FFin               string `json:"fFin"`
	} `json:"motivo"`
	DetalleDTE []detalleDTE `json:"detalleDTE"`
}

type detalleDTE struct {
	NoItem           int    `json:"noItem"`
	CodigoGeneracion string `json:"codigoGeneracion"`
	TipoDoc          string `json:"tipoDoc"`
}

// UseCase casos de uso de eventos.
type UseCase struct {
	eventoRepo repository.EventoRepository
	dteRepo    repository.DTERepository
	tenantRepo repository.TenantRepository
	firmador   Firmador
	tokens     TokenProvider
	transmisor mh.Transmisor
	log        zerolog.Logger
	ahora      func() time.Time
}

// NewUseCase construye el caso de uso de eventos.
func NewUseCase(
	eventoRepo repository.EventoRepository,
	dteRepo repository.DTERepository,
	tenantRepo repository.TenantRepository,
	firmador Firmador,
	tokens TokenProvider,
	transmisor mh.Transmisor,
	log zerolog.Logger,
) *UseCase {
	return &UseCase{
		eventoRepo: eventoRepo,
		dteRepo:    dteRepo,
		tenantRepo: tenantRepo,
		firmador:   firmador,
		tokens:     tokens,
		transmisor: transmisor,
		log:        log,
		ahora:      time.Now,
	}
}

// Anular registra y transmite la anulación de un DTE. Solo documentos en
// PROCESADO son anulables: cualquier otro estado se rechaza localmente sin
// tocar el MH.
func (uc *UseCase) Anular(ctx context.Context, tenantID string, req *dto.AnulacionRequest) (*entity.Evento, error) {
	if req.Motivo == "" {
		return nil, fmt.Errorf("%w: el motivo de anulación es obligatorio", domain.ErrValidacion)
	}

	registro, err := uc.dteRepo.GetByCodigoGeneracion(ctx, tenantID, req.CodigoGeneracion)
	if err != nil {
		return nil, err
	}
	if registro == nil {
		return nil, domain.ErrNotFound
	}
	if registro.Estado != string(dtedom.EstadoProcesado) {
		return nil, fmt.Errorf("%w: solo un DTE PROCESADO puede anularse (estado actual %s)",
			domain.ErrTransicionEstado, registro.Estado)
	}

	tenant, err := uc.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, domain.ErrNotFound
	}

	now := uc.ahora()
	ev := &entity.Evento{
		TenantID:            tenantID,
		Tipo:                pkgdte.EventoAnulacion,
		CodigoGeneracionRef: registro.CodigoGeneracion,
		CodigoGeneracion:    nuevoCodigoEvento(),
		Motivo:              req.Motivo,
		Estado:              entity.EventoPendiente,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := uc.eventoRepo.Create(ctx, ev); err != nil {
		return nil, err
	}

	var p payloadAnulacion
	p.Identificacion.Version = 2
	p.Identificacion.Ambiente = registro.Ambiente
	p.Identificacion.CodigoGeneracion = ev.CodigoGeneracion
	p.Identificacion.FecAnula = now.Format("2006-01-02")
	p.Identificacion.HorAnula = now.Format("15:04:05")
	p.Documento.TipoDte = registro.TipoDte
	p.Documento.CodigoGeneracion = registro.CodigoGeneracion
	p.Documento.NumeroControl = registro.NumeroControl
	p.Documento.SelloRecibido = registro.SelloRecibido
	p.Documento.FecEmi = registro.FechaEmision.Format("2006-01-02")
	p.Motivo.TipoAnulacion = 2 // rescindir la operación
	p.Motivo.MotivoAnulacion = req.Motivo

	resp, err := uc.firmarYEnviar(ctx, tenant, registro.Ambiente, ev, &p, uc.transmisor.EnviarAnulacion)
	if err != nil {
		return ev, err
	}

	if resp.Estado == pkgdte.MHEstadoProcesado {
		// El documento pasa a ANULADO; su payload firmado queda intacto.
		registro.Estado = string(dtedom.EstadoAnulado)
		registro.UpdatedAt = uc.ahora()
		if err := uc.dteRepo.Update(ctx, registro); err != nil {
			uc.log.Error().Err(err).
				Str("codigoGeneracion", registro.CodigoGeneracion).
				Msg("anulación aceptada pero no se pudo persistir ANULADO")
		}
	}
	return ev, nil
}

// DeclararContingencia firma y transmite el evento de contingencia que
// regulariza documentos emitidos mientras el MH no estaba disponible.
func (uc *UseCase) DeclararContingencia(ctx context.Context, tenantID string, req *dto.ContingenciaRequest) (*entity.Evento, error) {
	if req.Motivo == "" {
		return nil, fmt.Errorf("%w: el motivo de contingencia es obligatorio", domain.ErrValidacion)
	}
	if len(req.DTEs) == 0 {
		return nil, fmt.Errorf("%w: la contingencia debe listar al menos un documento", domain.ErrValidacion)
	}

	tenant, err := uc.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, domain.ErrNotFound
	}

	now := uc.ahora()
	ev := &entity.Evento{
		TenantID:         tenantID,
		Tipo:             pkgdte.EventoContingencia,
		CodigoGeneracion: nuevoCodigoEvento(),
		Motivo:           req.Motivo,
		Estado:           entity.EventoPendiente,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := uc.eventoRepo.Create(ctx, ev); err != nil {
		return nil, err
	}

	var p payloadContingencia
	p.Identificacion.Version = 3
	p.Identificacion.Ambiente = tenant.Ambiente
	p.Identificacion.CodigoGeneracion = ev.CodigoGeneracion
	p.Identificacion.FTransmision = now.Format("2006-01-02")
	p.Motivo.TipoContingencia = 1 // no disponibilidad del sistema MH
	p.Motivo.MotivoContingencia = req.Motivo
	p.Motivo.FInicio = req.HoraDesde
	p.Motivo.FFin = req.HoraHasta

	for i, codigo := range req.DTEs {
		registro, err := uc.dteRepo.GetByCodigoGeneracion(ctx, tenantID, codigo)
		if err != nil {
			return ev, err
		}
		if registro == nil {
			return ev, fmt.Errorf("%w: DTE %s no existe", domain.ErrValidacion, codigo)
		}
		p.DetalleDTE = append(p.DetalleDTE, detalleDTE{
			NoItem:           i + 1,
			CodigoGeneracion: registro.CodigoGeneracion,
			TipoDoc:          registro.TipoDte,
		})
	}

	_, err = uc.firmarYEnviar(ctx, tenant, tenant.Ambiente, ev, &p, uc.transmisor.EnviarContingencia)
	return ev, err
}

// ListarPorDTE devuelve los eventos registrados sobre un documento.
func (uc *UseCase) ListarPorDTE(ctx context.Context, tenantID, codigoGeneracion string) ([]*entity.Evento, error) {
	return uc.eventoRepo.ListByDTERef(ctx, tenantID, codigoGeneracion)
}

// firmarYEnviar firma el payload del evento, lo entrega al MH con la misma
// política de token que la emisión y persiste el resultado en el evento.
func (uc *UseCase) firmarYEnviar(ctx context.Context, tenant *entity.Tenant, ambiente string,
	ev *entity.Evento, payload interface{},
	enviar func(ctx context.Context, ambiente, token string, req *mh.EventoRequest) (*mh.RecepcionRespuesta, error),
) (*mh.RecepcionRespuesta, error) {

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("serializar evento: %w", err)
	}

	jws, err := uc.firmador.Firmar(ctx, tenant.ID, ambiente, raw)
	if err != nil {
		uc.marcarError(ctx, ev, err)
		return nil, err
	}
	ev.JSONFirmado = jws
	ev.Estado = entity.EventoEnviado
	ev.UpdatedAt = uc.ahora()
	if err := uc.eventoRepo.Update(ctx, ev); err != nil {
		return nil, err
	}

	resp, err := uc.llamarMH(ctx, tenant, ambiente, func(token string) (*mh.RecepcionRespuesta, error) {
		return enviar(ctx, ambiente, token, &mh.EventoRequest{
			Ambiente:  ambiente,
			IdEnvio:   1,
			Version:   2,
			Documento: jws,
		})
	})
	if err != nil {
		uc.marcarError(ctx, ev, err)
		return nil, err
	}

	ev.CodigoMH = resp.CodigoMsg
	ev.DescripcionMH = resp.DescripcionMsg
	if resp.Estado == pkgdte.MHEstadoProcesado {
		ev.Estado = entity.EventoAceptado
		ev.SelloRecibido = resp.SelloRecibido
	} else {
		ev.Estado = entity.EventoRechazado
	}
	ev.UpdatedAt = uc.ahora()
	if err := uc.eventoRepo.Update(ctx, ev); err != nil {
		uc.log.Error().Err(err).Str("evento", ev.ID).Msg("no se pudo persistir veredicto del evento")
	}
	return resp, nil
}

func (uc *UseCase) llamarMH(ctx context.Context, tenant *entity.Tenant, ambiente string,
	fn func(token string) (*mh.RecepcionRespuesta, error)) (*mh.RecepcionRespuesta, error) {

	token, err := uc.tokens.Token(ctx, tenant.ID, ambiente)
	if err != nil {
		return nil, err
	}
	resp, err := fn(token)
	if !errors.Is(err, mh.ErrTokenRechazado) {
		return resp, err
	}
	uc.tokens.Invalidar(tenant.ID, ambiente)
	token, err = uc.tokens.Token(ctx, tenant.ID, ambiente)
	if err != nil {
		return nil, err
	}
	resp, err = fn(token)
	if errors.Is(err, mh.ErrTokenRechazado) {
		return nil, fmt.Errorf("%w: token rechazado dos veces seguidas", domain.ErrAutenticacionMH)
	}
	return resp, err
}

// nuevoCodigoEvento identificador del evento ante el MH: UUID v4 en mayúsculas.
func nuevoCodigoEvento() string {
	return strings.ToUpper(uuid.New().String())
}

func (uc *UseCase) marcarError(ctx context.Context, ev *entity.Evento, causa error) {
	ev.Estado = entity.EventoError
	ev.DescripcionMH = causa.Error()
	ev.UpdatedAt = uc.ahora()
	if err := uc.eventoRepo.Update(ctx, ev); err != nil {
		uc.log.Error().Err(err).Str("evento", ev.ID).Msg("no se pudo persistir ERROR del evento")
	}
}
