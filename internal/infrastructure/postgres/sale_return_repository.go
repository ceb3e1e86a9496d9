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

var _ repository.SaleReturnRepository = (*SaleReturnRepo)(nil)

// SaleReturnRepo implementación de SaleReturnRepository sobre PostgreSQL.
type SaleReturnRepo struct {
	q Querier
}

// NewSaleReturnRepository construye el adaptador de devoluciones.
func NewSaleReturnRepository(q Querier) *SaleReturnRepo {
	return &SaleReturnRepo{q: q}
}

const returnColumns = `id, organization_id, number, status, store_id, register_id, shift_id,
		original_sale_id, subtotal, total, created_by, completed_at, completion_key, created_at, updated_at`

// Create inserta la cabecera del borrador de devolución.
func (r *SaleReturnRepo) Create(ctx context.Context, ret *entity.SaleReturn) error {
	query := `
		INSERT INTO sale_returns (id, organization_id, number, status, store_id, register_id,
			shift_id, original_sale_id, subtotal, total, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query, ret.ID, ret.OrganizationID, ret.Number, ret.Status,
		ret.StoreID, ret.RegisterID, ret.ShiftID, ret.OriginalSaleID, ret.Subtotal,
		ret.Total, ret.CreatedBy, ret.CreatedAt, ret.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrUniqueViolation
		}
		return fmt.Errorf("create sale return: %w", err)
	}
	return nil
}

// GetByID obtiene una devolución por id; (nil, nil) si no existe.
func (r *SaleReturnRepo) GetByID(ctx context.Context, orgID, id string) (*entity.SaleReturn, error) {
	query := `SELECT ` + returnColumns + ` FROM sale_returns WHERE organization_id = $1 AND id = $2`
	return r.scanOne(ctx, query, orgID, id)
}

// GetByIDForUpdate obtiene la devolución y bloquea la fila para la completación.
func (r *SaleReturnRepo) GetByIDForUpdate(ctx context.Context, orgID, id string) (*entity.SaleReturn, error) {
	query := `SELECT ` + returnColumns + ` FROM sale_returns WHERE organization_id = $1 AND id = $2 FOR UPDATE`
	return r.scanOne(ctx, query, orgID, id)
}

// UpdateTotals refresca subtotal y total tras cada mutación de líneas.
func (r *SaleReturnRepo) UpdateTotals(ctx context.Context, returnID string, subtotal, total decimal.Decimal) error {
	query := `UPDATE sale_returns SET subtotal = $2, total = $3, updated_at = now() WHERE id = $1`
	if _, err := r.q.Exec(ctx, query, returnID, subtotal, total); err != nil {
		return fmt.Errorf("update return totals: %w", err)
	}
	return nil
}

// MarkCompleted persiste la transición terminal a COMPLETED.
func (r *SaleReturnRepo) MarkCompleted(ctx context.Context, ret *entity.SaleReturn) error {
	query := `
		UPDATE sale_returns
		SET status = $2, completed_at = $3, completion_key = $4, updated_at = $5
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query, ret.ID, ret.Status, ret.CompletedAt, ret.CompletionKey, ret.UpdatedAt)
	if err != nil {
		return fmt.Errorf("mark return completed: %w", err)
	}
	return nil
}

const returnLineColumns = `id, sale_return_id, line_no, sale_line_id, product_id, variant_id,
		variant_key, qty, unit_price, line_total, unit_cost, line_cost_total`

// CreateLine inserta una línea asignándole el siguiente line_no de la
// devolución (persiste el orden de captura). Índice único (sale_return_id, sale_line_id).
func (r *SaleReturnRepo) CreateLine(ctx context.Context, l *entity.SaleReturnLine) error {
	query := `
		INSERT INTO sale_return_lines (id, sale_return_id, line_no, sale_line_id, product_id,
			variant_id, variant_key, qty, unit_price, line_total, unit_cost, line_cost_total)
		VALUES ($1, $2,
			(SELECT COALESCE(MAX(line_no), 0) + 1 FROM sale_return_lines WHERE sale_return_id = $2),
			$3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query, l.ID, l.SaleReturnID, l.SaleLineID, l.ProductID, l.VariantID,
		l.VariantKey, l.Qty, l.UnitPrice, l.LineTotal, l.UnitCost, l.LineCostTotal)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrUniqueViolation
		}
		return fmt.Errorf("create return line: %w", err)
	}
	return nil
}

// UpdateLineQty fija cantidad y totales de una línea.
func (r *SaleReturnRepo) UpdateLineQty(ctx context.Context, lineID string, qty, lineTotal decimal.Decimal, lineCostTotal *decimal.Decimal) error {
	query := `UPDATE sale_return_lines SET qty = $2, line_total = $3, line_cost_total = $4 WHERE id = $1`
	if _, err := r.q.Exec(ctx, query, lineID, qty, lineTotal, lineCostTotal); err != nil {
		return fmt.Errorf("update return line: %w", err)
	}
	return nil
}

// DeleteLine elimina una línea del borrador.
func (r *SaleReturnRepo) DeleteLine(ctx context.Context, lineID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM sale_return_lines WHERE id = $1`, lineID); err != nil {
		return fmt.Errorf("delete return line: %w", err)
	}
	return nil
}

// GetLine obtiene una línea por id dentro de una devolución; (nil, nil) si no existe.
func (r *SaleReturnRepo) GetLine(ctx context.Context, returnID, lineID string) (*entity.SaleReturnLine, error) {
	query := `SELECT ` + returnLineColumns + ` FROM sale_return_lines WHERE sale_return_id = $1 AND id = $2`
	return r.scanLine(ctx, query, returnID, lineID)
}

// FindLineBySaleLine busca la línea que referencia una línea de venta original.
func (r *SaleReturnRepo) FindLineBySaleLine(ctx context.Context, returnID, saleLineID string) (*entity.SaleReturnLine, error) {
	query := `SELECT ` + returnLineColumns + ` FROM sale_return_lines WHERE sale_return_id = $1 AND sale_line_id = $2`
	return r.scanLine(ctx, query, returnID, saleLineID)
}

// ListLines lista las líneas en orden de captura.
func (r *SaleReturnRepo) ListLines(ctx context.Context, returnID string) ([]*entity.SaleReturnLine, error) {
	query := `SELECT ` + returnLineColumns + ` FROM sale_return_lines WHERE sale_return_id = $1 ORDER BY line_no`
	rows, err := r.q.Query(ctx, query, returnID)
	if err != nil {
		return nil, fmt.Errorf("list return lines: %w", err)
	}
	defer rows.Close()

	var lines []*entity.SaleReturnLine
	for rows.Next() {
		var l entity.SaleReturnLine
		if err := rows.Scan(&l.ID, &l.SaleReturnID, &l.LineNo, &l.SaleLineID, &l.ProductID, &l.VariantID,
			&l.VariantKey, &l.Qty, &l.UnitPrice, &l.LineTotal, &l.UnitCost, &l.LineCostTotal); err != nil {
			return nil, fmt.Errorf("scan return line: %w", err)
		}
		lines = append(lines, &l)
	}
	return lines, rows.Err()
}

// SumReturnedQty suma la cantidad ya devuelta de una línea de venta en
// devoluciones COMPLETED, excluyendo la devolución que se está editando.
func (r *SaleReturnRepo) SumReturnedQty(ctx context.Context, saleLineID, excludeReturnID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(l.qty), 0)
		FROM sale_return_lines l
		JOIN sale_returns sr ON sr.id = l.sale_return_id
		WHERE l.sale_line_id = $1 AND sr.status = 'COMPLETED' AND sr.id <> $2`
	var total decimal.Decimal
	if err := r.q.QueryRow(ctx, query, saleLineID, excludeReturnID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum returned qty: %w", err)
	}
	return total, nil
}

// CompletedStatsByShift cuenta y suma las devoluciones COMPLETED del turno.
func (r *SaleReturnRepo) CompletedStatsByShift(ctx context.Context, shiftID string) (int64, decimal.Decimal, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(total), 0)
		FROM sale_returns WHERE shift_id = $1 AND status = 'COMPLETED'`
	var count int64
	var total decimal.Decimal
	if err := r.q.QueryRow(ctx, query, shiftID).Scan(&count, &total); err != nil {
		return 0, decimal.Zero, fmt.Errorf("return stats by shift: %w", err)
	}
	return count, total, nil
}

func (r *SaleReturnRepo) scanOne(ctx context.Context, query string, args ...any) (*entity.SaleReturn, error) {
	var ret entity.SaleReturn
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&ret.ID, &ret.OrganizationID, &ret.Number, &ret.Status, &ret.StoreID, &ret.RegisterID,
		&ret.ShiftID, &ret.OriginalSaleID, &ret.Subtotal, &ret.Total, &ret.CreatedBy,
		&ret.CompletedAt, &ret.CompletionKey, &ret.CreatedAt, &ret.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale return: %w", err)
	}
	return &ret, nil
}

func (r *SaleReturnRepo) scanLine(ctx context.Context, query string, args ...any) (*entity.SaleReturnLine, error) {
	var l entity.SaleReturnLine
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&l.ID, &l.SaleReturnID, &l.LineNo, &l.SaleLineID, &l.ProductID, &l.VariantID,
		&l.VariantKey, &l.Qty, &l.UnitPrice, &l.LineTotal, &l.UnitCost, &l.LineCostTotal,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get return line: %w", err)
	}
	return &l, nil
}
