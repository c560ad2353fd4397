// Package mh implementa el cliente REST de los servicios en línea del
// Ministerio de Hacienda: autenticación, recepción de DTE, consulta y eventos.
package mh

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/facturasv/dte-api/internal/domain"
	"github.com/facturasv/dte-api/pkg/config"
)

// Rutas de los servicios MH.
const (
	rutaAuth         = "/seguridad/auth"
	rutaRecepcion    = "/fesv/recepciondte"
	rutaConsulta     = "/fesv/consultadte"
	rutaAnulacion    = "/fesv/anulardte"
	rutaContingencia = "/fesv/contingencia"
)

// ErrTokenRechazado el MH devolvió 401 en una llamada con token: el caller debe
// invalidar la entrada de caché y reautenticar exactamente una vez.
var ErrTokenRechazado = errors.New("mh: token rechazado (401)")

// ── Puertos ───────────────────────────────────────────────────────────────────

// Autenticador puerto de autenticación contra el MH.
type Autenticador interface {
	Autenticar(ctx context.Context, ambiente, usuario, password string) (*TokenInfo, error)
}

// Transmisor puerto de entrega de documentos y eventos al MH.
// Para tests se inyecta un doble; la implementación concreta es Client.
type Transmisor interface {
	RecibirDTE(ctx context.Context, ambiente, token string, req *RecepcionRequest) (*RecepcionRespuesta, error)
	ConsultarDTE(ctx context.Context, ambiente, token string, req *ConsultaRequest) (*RecepcionRespuesta, error)
	EnviarAnulacion(ctx context.Context, ambiente, token string, req *EventoRequest) (*RecepcionRespuesta, error)
	EnviarContingencia(ctx context.Context, ambiente, token string, req *EventoRequest) (*RecepcionRespuesta, error)
}

// ── Cliente concreto ──────────────────────────────────────────────────────────

// Client implementa Autenticador y Transmisor sobre net/http.
type Client struct {
	httpClient *http.Client
	cfg        config.MHConfig
	log        zerolog.Logger
}

var _ Autenticador = (*Client)(nil)
var _ Transmisor = (*Client)(nil)

// NewClient construye el cliente con el timeout configurado. El MH puede tardar
// varios segundos en validar un documento, de ahí que el timeout sea configurable
// por ambiente vía MHConfig.
func NewClient(cfg config.MHConfig, log zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		log:        log,
	}
}

// Autenticar llama a POST /seguridad/auth con user/pwd form-encoded.
// Credenciales rechazadas son fatales (ErrAutenticacionMH, no se reintenta);
// un cuerpo con forma inesperada se clasifica como anomalía de protocolo.
func (c *Client) Autenticar(ctx context.Context, ambiente, usuario, password string) (*TokenInfo, error) {
	form := url.Values{}
	form.Set("user", usuario)
	form.Set("pwd", password)

	endpoint := c.cfg.URLPorAmbiente(ambiente) + rutaAuth
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("mh: crear request auth: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: auth: %v", domain.ErrTransporte, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // max 1 MB
	if err != nil {
		return nil, fmt.Errorf("%w: leer respuesta auth: %v", domain.ErrTransporte, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: HTTP %d", domain.ErrAutenticacionMH, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: auth HTTP %d: %s", domain.ErrTransporte, resp.StatusCode, resumen(raw))
	}

	var ar AuthRespuesta
	if err := json.Unmarshal(raw, &ar); err != nil {
		c.log.Error().Str("body", resumen(raw)).Msg("respuesta de auth MH no parseable")
		return nil, fmt.Errorf("%w: auth: %v", domain.ErrAnomaliaProtocolo, err)
	}
	if !strings.EqualFold(ar.Status, "OK") || ar.Body.Token == "" {
		return nil, fmt.Errorf("%w: status=%q", domain.ErrAutenticacionMH, ar.Status)
	}

	return &TokenInfo{
		Token:      normalizarToken(ar.Body.Token),
		Roles:      ar.Body.Roles,
		ObtenidoEn: time.Now(),
	}, nil
}

// RecibirDTE entrega el documento firmado a POST /fesv/recepciondte.
func (c *Client) RecibirDTE(ctx context.Context, ambiente, token string, req *RecepcionRequest) (*RecepcionRespuesta, error) {
	return c.postJSON(ctx, ambiente, rutaRecepcion, token, req)
}

// ConsultarDTE pregunta el estado autoritativo de un documento ya enviado.
func (c *Client) ConsultarDTE(ctx context.Context, ambiente, token string, req *ConsultaRequest) (*RecepcionRespuesta, error) {
	return c.postJSON(ctx, ambiente, rutaConsulta, token, req)
}

// EnviarAnulacion entrega un evento de anulación a POST /fesv/anulardte.
func (c *Client) EnviarAnulacion(ctx context.Context, ambiente, token string, req *EventoRequest) (*RecepcionRespuesta, error) {
	return c.postJSON(ctx, ambiente, rutaAnulacion, token, req)
}

// EnviarContingencia entrega la declaración de contingencia a POST /fesv/contingencia.
func (c *Client) EnviarContingencia(ctx context.Context, ambiente, token string, req *EventoRequest) (*RecepcionRespuesta, error) {
	return c.postJSON(ctx, ambiente, rutaContingencia, token, req)
}

// postJSON ejecuta un POST autenticado y clasifica los fallos:
// timeout/red → ErrTransporte (reintentable), 401 → ErrTokenRechazado,
// cuerpo no parseable → ErrAnomaliaProtocolo (posible incidente del lado MH).
func (c *Client) postJSON(ctx context.Context, ambiente, ruta, token string, body interface{}) (*RecepcionRespuesta, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("mh: serializar request: %w", err)
	}

	endpoint := c.cfg.URLPorAmbiente(ambiente) + ruta
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("mh: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: timeout o cancelación: %v", domain.ErrTransporte, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTransporte, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // max 1 MB
	if err != nil {
		return nil, fmt.Errorf("%w: leer respuesta: %v", domain.ErrTransporte, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrTokenRechazado
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: HTTP %d: %s", domain.ErrTransporte, resp.StatusCode, resumen(raw))
	}

	var rr RecepcionRespuesta
	if err := json.Unmarshal(raw, &rr); err != nil {
		c.log.Error().Str("ruta", ruta).Str("body", resumen(raw)).
			Msg("respuesta MH no parseable")
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrAnomaliaProtocolo, ruta, err)
	}
	if rr.Estado == "" {
		c.log.Error().Str("ruta", ruta).Str("body", resumen(raw)).
			Msg("respuesta MH sin campo estado")
		return nil, fmt.Errorf("%w: %s: respuesta sin estado", domain.ErrAnomaliaProtocolo, ruta)
	}
	return &rr, nil
}

// normalizarToken guarda el token sin el prefijo "Bearer " que el MH antepone.
func normalizarToken(t string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "Bearer "))
}

// resumen recorta un cuerpo de respuesta para log sin inundarlo.
func resumen(raw []byte) string {
	s := string(raw)
	if len(s) > 512 {
		return s[:512] + "..."
	}
	return s
}
