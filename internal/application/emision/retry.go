package emision

import (
	"context"
	"errors"
	"time"

	"github.com/facturasv/dte-api/internal/domain"
)

// RetryPolicy reintentos con backoff exponencial para la entrega al MH.
// Solo los errores de transporte se reintentan: un rechazo de negocio o de
// credenciales repetiría el mismo resultado.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
}

// Retryable indica si el error amerita otro intento.
func (p RetryPolicy) Retryable(err error) bool {
	return errors.Is(err, domain.ErrTransporte)
}

// Do ejecuta fn hasta MaxAttempts veces, esperando BaseBackoff·2^(i-1) entre
// intentos. Respeta la cancelación del contexto durante la espera.
func (p RetryPolicy) Do(ctx context.Context, fn func(intento int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 1; i <= attempts; i++ {
		err = fn(i)
		if err == nil || !p.Retryable(err) {
			return err
		}
		if i == attempts {
			break
		}
		espera := p.BaseBackoff << (i - 1)
		select {
		case <-time.After(espera):
		case <-ctx.Done():
			return err
		}
	}
	return err
}
