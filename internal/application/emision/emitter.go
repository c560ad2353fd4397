package emision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/facturasv/dte-api/internal/application/dto"
	"github.com/facturasv/dte-api/internal/domain"
	dtedom "github.com/facturasv/dte-api/internal/domain/dte"
	"github.com/facturasv/dte-api/internal/domain/entity"
	"github.com/facturasv/dte-api/internal/domain/repository"
	"github.com/facturasv/dte-api/internal/infrastructure/mh"
	pkgdte "github.com/facturasv/dte-api/pkg/dte"
)

// ErrDocumentoInvalido error de validación con el reporte completo adjunto.
type ErrDocumentoInvalido struct {
	Resultado dtedom.ValidationResult
}

func (e *ErrDocumentoInvalido) Error() string {
	return fmt.Sprintf("documento inválido: %d violaciones", len(e.Resultado.Errors))
}

// Unwrap lo hace reconocible vía errors.Is(err, domain.ErrValidacion).
func (e *ErrDocumentoInvalido) Unwrap() error { return domain.ErrValidacion }

// EmitterUseCase orquesta la emisión de DTE de punta a punta.
type EmitterUseCase struct {
	txRunner   TxRunner
	dteRepo    repository.DTERepository
	tenantRepo repository.TenantRepository
	firmador   Firmador
	tokens     TokenProvider
	transmisor Transmisor
	retry      RetryPolicy
	// sem acota los envíos simultáneos al MH en todo el proceso.
	sem   *semaphore.Weighted
	log   zerolog.Logger
	ahora func() time.Time
}

// NewEmitterUseCase construye el caso de uso con todas sus dependencias.
func NewEmitterUseCase(
	txRunner TxRunner,
	dteRepo repository.DTERepository,
	tenantRepo repository.TenantRepository,
	firmador Firmador,
	tokens TokenProvider,
	transmisor Transmisor,
	retry RetryPolicy,
	maxEnviosConcurrentes int64,
	log zerolog.Logger,
) *EmitterUseCase {
	if maxEnviosConcurrentes < 1 {
		maxEnviosConcurrentes = 1
	}
	return &EmitterUseCase{
		txRunner:   txRunner,
		dteRepo:    dteRepo,
		tenantRepo: tenantRepo,
		firmador:   firmador,
		tokens:     tokens,
		transmisor: transmisor,
		retry:      retry,
		sem:        semaphore.NewWeighted(maxEnviosConcurrentes),
		log:        log,
		ahora:      time.Now,
	}
}

// Emitir ejecuta el pipeline completo y devuelve el documento con su estado
// final. La numeración, la validación y el insert comparten transacción: si
// el documento no valida, el correlativo no se consume.
func (uc *EmitterUseCase) Emitir(ctx context.Context, tenantID string, req *dto.EmitirDTERequest) (*entity.DTE, error) {
	tenant, err := uc.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, domain.ErrNotFound
	}

	emitidoEn := uc.ahora()
	doc, err := ConstruirDocumento(tenant, req, emitidoEn)
	if err != nil {
		return nil, err
	}

	var registro *entity.DTE
	err = uc.txRunner.Run(ctx, func(dtes repository.DTERepository, secuencias repository.SecuenciaRepository) error {
		correlativo, err := secuencias.Next(ctx, tenant.ID, tenant.Establecimiento, tenant.PuntoVenta, req.TipoDte)
		if err != nil {
			return err
		}
		numeroControl, err := pkgdte.BuildNumeroControl(req.TipoDte, tenant.Establecimiento, tenant.PuntoVenta, correlativo)
		if err != nil {
			return err
		}

		doc.Identificacion.NumeroControl = numeroControl
		doc.Identificacion.CodigoGeneracion = NuevoCodigoGeneracion()

		if res := dtedom.Validate(doc); !res.Valid {
			return &ErrDocumentoInvalido{Resultado: res}
		}

		payload, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("serializar documento: %w", err)
		}

		now := uc.ahora()
		registro = &entity.DTE{
			TenantID:         tenant.ID,
			CodigoGeneracion: doc.Identificacion.CodigoGeneracion,
			NumeroControl:    numeroControl,
			TipoDte:          req.TipoDte,
			Ambiente:         tenant.Ambiente,
			Establecimiento:  tenant.Establecimiento,
			PuntoVenta:       tenant.PuntoVenta,
			Estado:           string(dtedom.EstadoPendiente),
			JSONOriginal:     string(payload),
			FechaEmision:     emitidoEn,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		return dtes.Create(ctx, registro)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("tenant", tenant.ID).
		Str("codigoGeneracion", registro.CodigoGeneracion).
		Str("numeroControl", registro.NumeroControl).
		Msg("DTE creado, iniciando firma y transmisión")

	// Firma. Un fallo aquí deja el documento en ERROR reintentable.
	jws, err := uc.firmador.Firmar(ctx, tenant.ID, tenant.Ambiente, []byte(registro.JSONOriginal))
	if err != nil {
		uc.marcarError(ctx, registro, "firma", err)
		return registro, err
	}
	registro.JSONFirmado = jws
	if err := uc.avanzar(ctx, registro, dtedom.EstadoFirmado); err != nil {
		return registro, err
	}

	return uc.transmitir(ctx, tenant, registro)
}

// Reintentar retoma un documento en ERROR. Si la firma sobrevivió se
// retransmite el mismo jsonFirmado; si no, se vuelve a firmar el payload
// original. El codigoGeneracion jamás cambia en un reintento.
func (uc *EmitterUseCase) Reintentar(ctx context.Context, tenantID, id string) (*entity.DTE, error) {
	registro, err := uc.dteRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if registro == nil {
		return nil, domain.ErrNotFound
	}
	if registro.Estado != string(dtedom.EstadoError) {
		return nil, fmt.Errorf("%w: reintento solo aplica a documentos en ERROR (estado actual %s)",
			domain.ErrTransicionEstado, registro.Estado)
	}

	tenant, err := uc.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, domain.ErrNotFound
	}

	refirmar := registro.JSONFirmado == ""
	if !refirmar {
		obsoleta, err := uc.firmaObsoleta(ctx, tenant.ID, registro)
		if err != nil {
			uc.marcarError(ctx, registro, "vigencia-certificado", err)
			return registro, err
		}
		refirmar = obsoleta
	}
	if refirmar {
		jws, err := uc.firmador.Firmar(ctx, tenant.ID, registro.Ambiente, []byte(registro.JSONOriginal))
		if err != nil {
			uc.marcarError(ctx, registro, "re-firma", err)
			return registro, err
		}
		registro.JSONFirmado = jws
	}
	if err := uc.avanzar(ctx, registro, dtedom.EstadoFirmado); err != nil {
		return registro, err
	}
	return uc.transmitir(ctx, tenant, registro)
}

// firmaObsoleta indica si la firma guardada ya no sirve para retransmitir:
// el certificado vigente del tenant venció, o fue reemplazado después de la
// emisión (una firma hecha con el certificado anterior no verificaría).
func (uc *EmitterUseCase) firmaObsoleta(ctx context.Context, tenantID string, registro *entity.DTE) (bool, error) {
	desde, hasta, err := uc.firmador.VentanaVigencia(ctx, tenantID, registro.Ambiente)
	if err != nil {
		return false, err
	}
	now := uc.ahora()
	if now.After(hasta) {
		return true, nil
	}
	if desde.After(registro.FechaEmision) {
		return true, nil
	}
	return false, nil
}

// Consultar pregunta al MH el estado autoritativo del documento y reconcilia
// el registro local si difieren (típico tras un corte a mitad de envío).
func (uc *EmitterUseCase) Consultar(ctx context.Context, tenantID, id string) (*entity.DTE, error) {
	registro, err := uc.dteRepo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if registro == nil {
		return nil, domain.ErrNotFound
	}
	tenant, err := uc.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, domain.ErrNotFound
	}

	resp, err := uc.llamarMH(ctx, tenant, registro.Ambiente, func(token string) (*mh.RecepcionRespuesta, error) {
		return uc.transmisor.ConsultarDTE(ctx, registro.Ambiente, token, &mh.ConsultaRequest{
			NitEmisor:        pkgdte.OnlyDigits(tenant.NIT),
			TipoDte:          registro.TipoDte,
			CodigoGeneracion: registro.CodigoGeneracion,
		})
	})
	if err != nil {
		return registro, err
	}

	uc.reconciliar(ctx, registro, resp)
	return registro, nil
}

// ── núcleo de transmisión ─────────────────────────────────────────────────────

// transmitir envía el documento firmado al MH bajo el semáforo global, con
// reintentos de transporte, y persiste el veredicto.
func (uc *EmitterUseCase) transmitir(ctx context.Context, tenant *entity.Tenant, registro *entity.DTE) (*entity.DTE, error) {
	if err := uc.sem.Acquire(ctx, 1); err != nil {
		uc.marcarError(ctx, registro, "semaforo", fmt.Errorf("%w: %v", domain.ErrTransporte, err))
		return registro, err
	}
	defer uc.sem.Release(1)

	if err := uc.avanzar(ctx, registro, dtedom.EstadoProcesando); err != nil {
		return registro, err
	}

	var resp *mh.RecepcionRespuesta
	err := uc.retry.Do(ctx, func(intento int) error {
		registro.IntentosEnvio++
		r, err := uc.llamarMH(ctx, tenant, registro.Ambiente, func(token string) (*mh.RecepcionRespuesta, error) {
			return uc.transmisor.RecibirDTE(ctx, registro.Ambiente, token, &mh.RecepcionRequest{
				Ambiente:  registro.Ambiente,
				IdEnvio:   registro.IntentosEnvio,
				Version:   pkgdte.SchemaVersion(registro.TipoDte),
				TipoDte:   registro.TipoDte,
				Documento: registro.JSONFirmado,
			})
		})
		if err != nil {
			uc.log.Warn().Err(err).
				Str("codigoGeneracion", registro.CodigoGeneracion).
				Int("intento", intento).
				Msg("envío al MH falló")
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		uc.marcarError(ctx, registro, "transmision", err)
		return registro, err
	}

	uc.interpretarVeredicto(ctx, tenant, registro, resp)
	return registro, nil
}

// llamarMH ejecuta una llamada autenticada. Si el MH rechaza el token se
// invalida la entrada de caché y se reintenta exactamente una vez con un
// token fresco; un segundo 401 se reporta como fallo de autenticación.
func (uc *EmitterUseCase) llamarMH(ctx context.Context, tenant *entity.Tenant, ambiente string,
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

// interpretarVeredicto traduce la respuesta del MH al estado final del documento.
func (uc *EmitterUseCase) interpretarVeredicto(ctx context.Context, tenant *entity.Tenant, registro *entity.DTE, resp *mh.RecepcionRespuesta) {
	registro.CodigoMH = resp.CodigoMsg
	registro.DescripcionMH = resp.DescripcionMsg
	registro.Observaciones = serializarObservaciones(resp.Observaciones)

	switch resp.Estado {
	case pkgdte.MHEstadoProcesado:
		registro.SelloRecibido = resp.SelloRecibido
		uc.actualizar(ctx, registro, dtedom.EstadoProcesado)
		uc.log.Info().
			Str("codigoGeneracion", registro.CodigoGeneracion).
			Str("sello", resp.SelloRecibido).
			Msg("DTE procesado por el MH")

	case pkgdte.MHEstadoRechazado:
		if esDuplicado(resp) {
			// El MH ya conoce este codigoGeneracion: consultar el estado
			// autoritativo en lugar de dar el rechazo por definitivo.
			uc.log.Warn().
				Str("codigoGeneracion", registro.CodigoGeneracion).
				Msg("MH reporta codigoGeneracion duplicado, reconciliando vía consulta")
			consulta, err := uc.llamarMH(ctx, tenant, registro.Ambiente, func(token string) (*mh.RecepcionRespuesta, error) {
				return uc.transmisor.ConsultarDTE(ctx, registro.Ambiente, token, &mh.ConsultaRequest{
					NitEmisor:        pkgdte.OnlyDigits(tenant.NIT),
					TipoDte:          registro.TipoDte,
					CodigoGeneracion: registro.CodigoGeneracion,
				})
			})
			if err == nil {
				uc.reconciliar(ctx, registro, consulta)
				return
			}
			uc.marcarError(ctx, registro, "reconciliacion", err)
			return
		}
		uc.actualizar(ctx, registro, dtedom.EstadoRechazado)
		uc.log.Warn().
			Str("codigoGeneracion", registro.CodigoGeneracion).
			Str("codigoMsg", resp.CodigoMsg).
			Str("descripcion", resp.DescripcionMsg).
			Msg("DTE rechazado por el MH")

	default:
		// Estado intermedio o desconocido: queda en PROCESANDO para que la
		// consulta posterior resuelva. Se persisten los metadatos del MH.
		registro.UpdatedAt = uc.ahora()
		if err := uc.dteRepo.Update(ctx, registro); err != nil {
			uc.log.Error().Err(err).
				Str("codigoGeneracion", registro.CodigoGeneracion).
				Msg("no se pudo persistir metadatos MH")
		}
		uc.log.Warn().
			Str("codigoGeneracion", registro.CodigoGeneracion).
			Str("estadoMH", resp.Estado).
			Msg("veredicto MH no concluyente")
	}
}

// reconciliar aplica a un registro local el estado que reporta la consulta MH.
func (uc *EmitterUseCase) reconciliar(ctx context.Context, registro *entity.DTE, resp *mh.RecepcionRespuesta) {
	switch resp.Estado {
	case pkgdte.MHEstadoProcesado:
		if registro.Estado == string(dtedom.EstadoProcesado) {
			return
		}
		registro.SelloRecibido = resp.SelloRecibido
		registro.CodigoMH = resp.CodigoMsg
		registro.DescripcionMH = resp.DescripcionMsg
		uc.actualizar(ctx, registro, dtedom.EstadoProcesado)
	case pkgdte.MHEstadoRechazado:
		if registro.Estado == string(dtedom.EstadoRechazado) {
			return
		}
		registro.CodigoMH = resp.CodigoMsg
		registro.DescripcionMH = resp.DescripcionMsg
		uc.actualizar(ctx, registro, dtedom.EstadoRechazado)
	}
}

// avanzar valida la transición contra la máquina de estados y persiste.
func (uc *EmitterUseCase) avanzar(ctx context.Context, registro *entity.DTE, destino dtedom.Estado) error {
	siguiente, err := dtedom.Transition(dtedom.Estado(registro.Estado), destino)
	if err != nil {
		return err
	}
	registro.Estado = string(siguiente)
	registro.UpdatedAt = uc.ahora()
	return uc.dteRepo.Update(ctx, registro)
}

// actualizar como avanzar, pero un fallo de transición o de DB solo se loguea:
// se usa al persistir veredictos, donde ya no hay a quién devolver el error.
func (uc *EmitterUseCase) actualizar(ctx context.Context, registro *entity.DTE, destino dtedom.Estado) {
	if err := uc.avanzar(ctx, registro, destino); err != nil {
		uc.log.Error().Err(err).
			Str("codigoGeneracion", registro.CodigoGeneracion).
			Str("destino", string(destino)).
			Msg("no se pudo persistir el estado del DTE")
	}
}

// marcarError deja el documento en ERROR con la causa registrada.
func (uc *EmitterUseCase) marcarError(ctx context.Context, registro *entity.DTE, paso string, causa error) {
	registro.UltimoError = fmt.Sprintf("%s: %v", paso, causa)
	uc.actualizar(ctx, registro, dtedom.EstadoError)
	uc.log.Error().Err(causa).
		Str("codigoGeneracion", registro.CodigoGeneracion).
		Str("paso", paso).
		Msg("emisión DTE en ERROR")
}

// esDuplicado detecta el rechazo del MH por codigoGeneracion ya registrado.
func esDuplicado(resp *mh.RecepcionRespuesta) bool {
	desc := strings.ToUpper(resp.DescripcionMsg)
	return strings.Contains(desc, "DUPLICADO") || strings.Contains(desc, "YA EXISTE")
}

func serializarObservaciones(obs []string) string {
	if len(obs) == 0 {
		return ""
	}
	raw, err := json.Marshal(obs)
	if err != nil {
		return strings.Join(obs, "; ")
	}
	return string(raw)
}
