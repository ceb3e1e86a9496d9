package postgres

import (
	"context"
	"fmt"

	"github.com/tu-usuario/retail-pos/internal/domain/entity"
	"github.com/tu-usuario/retail-pos/internal/domain/repository"
)

var _ repository.PaymentRepository = (*PaymentRepo)(nil)

// PaymentRepo pagos y reembolsos (append-only: nunca update ni delete).
type PaymentRepo struct {
	q Querier
}

// NewPaymentRepository construye el adaptador de pagos.
func NewPaymentRepository(q Querier) *PaymentRepo {
	return &PaymentRepo{q: q}
}

// Create inserta un pago o reembolso capturado en una completación.
func (r *PaymentRepo) Create(ctx context.Context, p *entity.Payment) error {
	query := `
		INSERT INTO payments (id, organization_id, shift_id, sale_id, sale_return_id,
			method, amount, is_refund, provider_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query, p.ID, p.OrganizationID, p.ShiftID, p.SaleID, p.SaleReturnID,
		p.Method, p.Amount, p.IsRefund, p.ProviderRef, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// TotalsByShift agrega los pagos del turno por método y signo para el X-report.
func (r *PaymentRepo) TotalsByShift(ctx context.Context, shiftID string) ([]repository.PaymentMethodTotal, error) {
	query := `
		SELECT method, is_refund, COALESCE(SUM(amount), 0)
		FROM payments WHERE shift_id = $1
		GROUP BY method, is_refund`
	rows, err := r.q.Query(ctx, query, shiftID)
	if err != nil {
		return nil, fmt.Errorf("payment totals by shift: %w", err)
	}
	defer rows.Close()

	var totals []repository.PaymentMethodTotal
	for rows.Next() {
		var t repository.PaymentMethodTotal
		if err := rows.Scan(&t.Method, &t.IsRefund, &t.Total); err != nil {
			return nil, fmt.Errorf("scan payment total: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}
