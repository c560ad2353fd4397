package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/facturasv/dte-api/internal/domain/repository"
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con los repos de emisión atados a
// la tx y hace Commit o Rollback. La asignación de correlativo y la creación
// del documento deben vivir en la misma transacción: si el insert falla, el
// incremento de secuencia se revierte junto con él.
func (r *TxRunner) Run(ctx context.Context, fn func(
	dtes repository.DTERepository,
	secuencias repository.SecuenciaRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	dteRepo := NewDTERepository(tx)
	secRepo := NewSecuenciaRepository(tx)

	if err := fn(dteRepo, secRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
