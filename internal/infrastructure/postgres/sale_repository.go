package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/retail-pos/internal/domain/entity"
	"github.com/tu-usuario/retail-pos/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

// SaleRepo implementación de SaleRepository sobre PostgreSQL (usable con pool o tx).
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador de ventas. Pasar pool o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

const saleColumns = `id, organization_id, number, status, store_id, register_id, shift_id,
		customer_name, customer_phone, notes, subtotal, total, kkm_status, kkm_receipt_id,
		kkm_error, created_by, completed_at, completion_key, created_at, updated_at`

// Create inserta la cabecera del borrador. El índice único parcial sobre
// (shift_id, register_id, created_by) WHERE status = 'DRAFT' hace insalvable
// la carrera de dos creaciones concurrentes del mismo actor.
func (r *SaleRepo) Create(ctx context.Context, s *entity.SaleOrder) error {
	query := `
		INSERT INTO sale_orders (id, organization_id, number, status, store_id, register_id,
			shift_id, customer_name, customer_phone, notes, subtotal, total, kkm_status,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.q.Exec(ctx, query, s.ID, s.OrganizationID, s.Number, s.Status, s.StoreID,
		s.RegisterID, s.ShiftID, s.CustomerName, s.CustomerPhone, s.Notes, s.Subtotal,
		s.Total, s.KKMStatus, s.CreatedBy, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrUniqueViolation
		}
		return fmt.Errorf("create sale: %w", err)
	}
	return nil
}

// GetByID obtiene una venta por id; (nil, nil) si no existe.
func (r *SaleRepo) GetByID(ctx context.Context, orgID, id string) (*entity.SaleOrder, error) {
	query := `SELECT ` + saleColumns + ` FROM sale_orders WHERE organization_id = $1 AND id = $2`
	return r.scanOne(ctx, query, orgID, id)
}

// GetByIDForUpdate obtiene la venta y bloquea la fila para serializar la completación.
func (r *SaleRepo) GetByIDForUpdate(ctx context.Context, orgID, id string) (*entity.SaleOrder, error) {
	query := `SELECT ` + saleColumns + ` FROM sale_orders WHERE organization_id = $1 AND id = $2 FOR UPDATE`
	return r.scanOne(ctx, query, orgID, id)
}

// FindDraft busca el borrador del mismo actor en el mismo turno y caja.
func (r *SaleRepo) FindDraft(ctx context.Context, orgID, shiftID, registerID, createdBy string) (*entity.SaleOrder, error) {
	query := `SELECT ` + saleColumns + `
		FROM sale_orders
		WHERE organization_id = $1 AND shift_id = $2 AND register_id = $3
			AND created_by = $4 AND status = 'DRAFT'`
	return r.scanOne(ctx, query, orgID, shiftID, registerID, createdBy)
}

// UpdateTotals refresca subtotal y total tras cada mutación de líneas.
func (r *SaleRepo) UpdateTotals(ctx context.Context, saleID string, subtotal, total decimal.Decimal) error {
	query := `UPDATE sale_orders SET subtotal = $2, total = $3, updated_at = now() WHERE id = $1`
	if _, err := r.q.Exec(ctx, query, saleID, subtotal, total); err != nil {
		return fmt.Errorf("update sale totals: %w", err)
	}
	return nil
}

// UpdateStatus cambia el estado (usado para CANCELED).
func (r *SaleRepo) UpdateStatus(ctx context.Context, saleID, status string) error {
	query := `UPDATE sale_orders SET status = $2, updated_at = now() WHERE id = $1`
	if _, err := r.q.Exec(ctx, query, saleID, status); err != nil {
		return fmt.Errorf("update sale status: %w", err)
	}
	return nil
}

// MarkCompleted persiste la transición terminal a COMPLETED.
func (r *SaleRepo) MarkCompleted(ctx context.Context, s *entity.SaleOrder) error {
	query := `
		UPDATE sale_orders
		SET status = $2, completed_at = $3, completion_key = $4, kkm_status = $5, updated_at = $6
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query, s.ID, s.Status, s.CompletedAt, s.CompletionKey, s.KKMStatus, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("mark sale completed: %w", err)
	}
	return nil
}

// UpdateKKM persiste el resultado de un intento de fiscalización.
func (r *SaleRepo) UpdateKKM(ctx context.Context, saleID, status string, receiptID, rawError *string) error {
	query := `UPDATE sale_orders SET kkm_status = $2, kkm_receipt_id = $3, kkm_error = $4, updated_at = now() WHERE id = $1`
	if _, err := r.q.Exec(ctx, query, saleID, status, receiptID, rawError); err != nil {
		return fmt.Errorf("update sale kkm: %w", err)
	}
	return nil
}

const saleLineColumns = `id, sale_id, line_no, product_id, variant_id, variant_key, qty,
		unit_price, line_total, unit_cost, line_cost_total`

// CreateLine inserta una línea asignándole el siguiente line_no de la venta;
// line_no persiste el orden de captura (el timestamp no sirve de desempate
// dentro de una misma transacción). Índice único (sale_id, product_id, variant_key).
func (r *SaleRepo) CreateLine(ctx context.Context, l *entity.SaleLine) error {
	query := `
		INSERT INTO sale_lines (id, sale_id, line_no, product_id, variant_id, variant_key,
			qty, unit_price, line_total, unit_cost, line_cost_total)
		VALUES ($1, $2,
			(SELECT COALESCE(MAX(line_no), 0) + 1 FROM sale_lines WHERE sale_id = $2),
			$3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query, l.ID, l.SaleID, l.ProductID, l.VariantID, l.VariantKey,
		l.Qty, l.UnitPrice, l.LineTotal, l.UnitCost, l.LineCostTotal)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrUniqueViolation
		}
		return fmt.Errorf("create sale line: %w", err)
	}
	return nil
}

// UpdateLineQty fija cantidad y totales de una línea.
func (r *SaleRepo) UpdateLineQty(ctx context.Context, lineID string, qty, lineTotal decimal.Decimal, lineCostTotal *decimal.Decimal) error {
	query := `UPDATE sale_lines SET qty = $2, line_total = $3, line_cost_total = $4 WHERE id = $1`
	if _, err := r.q.Exec(ctx, query, lineID, qty, lineTotal, lineCostTotal); err != nil {
		return fmt.Errorf("update sale line: %w", err)
	}
	return nil
}

// DeleteLine elimina una línea del borrador.
func (r *SaleRepo) DeleteLine(ctx context.Context, lineID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM sale_lines WHERE id = $1`, lineID); err != nil {
		return fmt.Errorf("delete sale line: %w", err)
	}
	return nil
}

// GetLine obtiene una línea por id dentro de una venta; (nil, nil) si no existe.
func (r *SaleRepo) GetLine(ctx context.Context, saleID, lineID string) (*entity.SaleLine, error) {
	query := `SELECT ` + saleLineColumns + ` FROM sale_lines WHERE sale_id = $1 AND id = $2`
	return r.scanLine(ctx, query, saleID, lineID)
}

// FindLineByProduct busca la línea de un (product, variant_key); (nil, nil) si no hay.
func (r *SaleRepo) FindLineByProduct(ctx context.Context, saleID, productID, variantKey string) (*entity.SaleLine, error) {
	query := `SELECT ` + saleLineColumns + ` FROM sale_lines WHERE sale_id = $1 AND product_id = $2 AND variant_key = $3`
	return r.scanLine(ctx, query, saleID, productID, variantKey)
}

// ListLines lista las líneas en orden de captura.
func (r *SaleRepo) ListLines(ctx context.Context, saleID string) ([]*entity.SaleLine, error) {
	query := `SELECT ` + saleLineColumns + ` FROM sale_lines WHERE sale_id = $1 ORDER BY line_no`
	rows, err := r.q.Query(ctx, query, saleID)
	if err != nil {
		return nil, fmt.Errorf("list sale lines: %w", err)
	}
	defer rows.Close()

	var lines []*entity.SaleLine
	for rows.Next() {
		var l entity.SaleLine
		if err := rows.Scan(&l.ID, &l.SaleID, &l.LineNo, &l.ProductID, &l.VariantID, &l.VariantKey,
			&l.Qty, &l.UnitPrice, &l.LineTotal, &l.UnitCost, &l.LineCostTotal); err != nil {
			return nil, fmt.Errorf("scan sale line: %w", err)
		}
		lines = append(lines, &l)
	}
	return lines, rows.Err()
}

// CompletedStatsByShift cuenta y suma las ventas COMPLETED del turno.
func (r *SaleRepo) CompletedStatsByShift(ctx context.Context, shiftID string) (int64, decimal.Decimal, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(total), 0)
		FROM sale_orders WHERE shift_id = $1 AND status = 'COMPLETED'`
	var count int64
	var total decimal.Decimal
	if err := r.q.QueryRow(ctx, query, shiftID).Scan(&count, &total); err != nil {
		return 0, decimal.Zero, fmt.Errorf("sale stats by shift: %w", err)
	}
	return count, total, nil
}

func (r *SaleRepo) scanOne(ctx context.Context, query string, args ...any) (*entity.SaleOrder, error) {
	var s entity.SaleOrder
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&s.ID, &s.OrganizationID, &s.Number, &s.Status, &s.StoreID, &s.RegisterID, &s.ShiftID,
		&s.CustomerName, &s.CustomerPhone, &s.Notes, &s.Subtotal, &s.Total, &s.KKMStatus,
		&s.KKMReceiptID, &s.KKMError, &s.CreatedBy, &s.CompletedAt, &s.CompletionKey,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	return &s, nil
}

func (r *SaleRepo) scanLine(ctx context.Context, query string, args ...any) (*entity.SaleLine, error) {
	var l entity.SaleLine
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&l.ID, &l.SaleID, &l.LineNo, &l.ProductID, &l.VariantID, &l.VariantKey,
		&l.Qty, &l.UnitPrice, &l.LineTotal, &l.UnitCost, &l.LineCostTotal,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale line: %w", err)
	}
	return &l, nil
}
