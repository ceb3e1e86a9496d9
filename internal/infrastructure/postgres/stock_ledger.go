package postgres

import (
	"context"
	"fmt"

	"github.com/tu-usuario/retail-pos/internal/domain/entity"
	"github.com/tu-usuario/retail-pos/internal/domain/repository"
)

var _ repository.StockLedger = (*StockLedgerRepo)(nil)

// StockLedgerRepo aplica movimientos al ledger de stock: una fila append-only
// en stock_movements más el ajuste del acumulado en stock_levels, ambos dentro
// de la transacción del caller.
type StockLedgerRepo struct {
	q Querier
}

// NewStockLedger construye el adaptador del ledger de stock.
func NewStockLedger(q Querier) *StockLedgerRepo {
	return &StockLedgerRepo{q: q}
}

// Apply inserta el movimiento y ajusta la cantidad corriente con un upsert
// atómico (el delta se suma en el mismo statement, nunca read-then-write).
// El stock puede quedar negativo: el POS nunca bloquea una venta por stock.
func (r *StockLedgerRepo) Apply(ctx context.Context, m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (id, organization_id, store_id, product_id, variant_id,
			variant_key, qty_delta, type, reference_type, reference_id, note, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query, m.ID, m.OrganizationID, m.StoreID, m.ProductID, m.VariantID,
		m.VariantKey, m.QtyDelta, m.Type, m.ReferenceType, m.ReferenceID, nullIfEmpty(m.Note),
		m.CreatedAt, m.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}

	upsert := `
		INSERT INTO stock_levels (organization_id, store_id, product_id, variant_key, quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (store_id, product_id, variant_key)
		DO UPDATE SET quantity = stock_levels.quantity + EXCLUDED.quantity, updated_at = now()`
	_, err = r.q.Exec(ctx, upsert, m.OrganizationID, m.StoreID, m.ProductID, m.VariantKey, m.QtyDelta)
	if err != nil {
		return fmt.Errorf("upsert stock level: %w", err)
	}
	return nil
}
