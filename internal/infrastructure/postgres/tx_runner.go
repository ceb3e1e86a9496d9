package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tu-usuario/retail-pos/internal/application/pos"
)

var _ pos.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunPOS inicia una transacción, arma los repos POS atados a la tx y hace
// Commit si fn retorna nil o Rollback en caso contrario.
func (r *TxRunner) RunPOS(ctx context.Context, fn func(repos pos.Repos) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// NewRepos arma el juego completo de repositorios sobre un Querier (pool o tx).
func NewRepos(q Querier) pos.Repos {
	return pos.Repos{
		Registers:     NewRegisterRepository(q),
		Shifts:        NewShiftRepository(q),
		CashMovements: NewCashMovementRepository(q),
		Sales:         NewSaleRepository(q),
		Returns:       NewSaleReturnRepository(q),
		Payments:      NewPaymentRepository(q),
		Counters:      NewCounterRepository(q),
		Idempotency:   NewIdempotencyRepository(q),
		Products:      NewProductRepository(q),
		Audit:         NewAuditRepository(q),
		Compliance:    NewComplianceRepository(q),
		Stock:         NewStockLedger(q),
	}
}
