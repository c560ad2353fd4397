package mh

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CredencialFn resuelve las credenciales MH de un tenant al momento de
// autenticar, de modo que una rotación de contraseña surte efecto en la
// siguiente renovación sin reiniciar el servicio.
type CredencialFn func(ctx context.Context, tenantID, ambiente string) (usuario, password string, err error)

type entradaToken struct {
	token  string
	expira time.Time
}

// TokenCache cachea tokens MH por (tenant, ambiente). Autenticaciones
// concurrentes para la misma clave se colapsan en una sola llamada con
// singleflight; el TTL es un techo local porque el MH no publica la
// expiración en la respuesta de auth.
type TokenCache struct {
	auth         Autenticador
	credenciales CredencialFn
	ttl          time.Duration

	mu     sync.RWMutex
	tokens map[string]entradaToken
	vuelo  singleflight.Group
	ahora  func() time.Time
}

// NewTokenCache construye la caché con el TTL techo configurado (MHConfig.TokenTTL).
func NewTokenCache(auth Autenticador, creds CredencialFn, ttl time.Duration) *TokenCache {
	return &TokenCache{
		auth:         auth,
		credenciales: creds,
		ttl:          ttl,
		tokens:       make(map[string]entradaToken),
		ahora:        time.Now,
	}
}

func claveToken(tenantID, ambiente string) string {
	return tenantID + "|" + ambiente
}

// Token devuelve un token vigente para el tenant y ambiente, autenticando
// contra el MH solo si no hay uno cacheado. Nunca mezcla tokens entre
// tenants ni entre ambientes.
func (tc *TokenCache) Token(ctx context.Context, tenantID, ambiente string) (string, error) {
	clave := claveToken(tenantID, ambiente)

	tc.mu.RLock()
	ent, ok := tc.tokens[clave]
	tc.mu.RUnlock()
	if ok && tc.ahora().Before(ent.expira) {
		return ent.token, nil
	}

	v, err, _ := tc.vuelo.Do(clave, func() (interface{}, error) {
		// Revalidar bajo el vuelo: otro goroutine pudo renovar ya.
		tc.mu.RLock()
		ent, ok := tc.tokens[clave]
		tc.mu.RUnlock()
		if ok && tc.ahora().Before(ent.expira) {
			return ent.token, nil
		}

		usuario, password, err := tc.credenciales(ctx, tenantID, ambiente)
		if err != nil {
			return nil, err
		}
		info, err := tc.auth.Autenticar(ctx, ambiente, usuario, password)
		if err != nil {
			return nil, err
		}

		tc.mu.Lock()
		tc.tokens[clave] = entradaToken{token: info.Token, expira: tc.ahora().Add(tc.ttl)}
		tc.mu.Unlock()
		return info.Token, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidar descarta el token cacheado de un tenant y ambiente. Se llama
// cuando el MH responde 401: la siguiente llamada a Token reautentica.
func (tc *TokenCache) Invalidar(tenantID, ambiente string) {
	tc.mu.Lock()
	delete(tc.tokens, claveToken(tenantID, ambiente))
	tc.mu.Unlock()
}
