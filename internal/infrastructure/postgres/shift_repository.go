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

var _ repository.ShiftRepository = (*ShiftRepo)(nil)

// ShiftRepo implementación de ShiftRepository sobre PostgreSQL (usable con pool o tx).
type ShiftRepo struct {
	q Querier
}

// NewShiftRepository construye el adaptador de turnos. Pasar pool o tx (Querier).
func NewShiftRepository(q Querier) *ShiftRepo {
	return &ShiftRepo{q: q}
}

const shiftColumns = `id, organization_id, store_id, register_id, status, opened_at, opened_by,
		closed_at, closed_by, opening_cash, closing_cash_counted, expected_cash, discrepancy, notes`

// Create inserta un turno nuevo. El índice único parcial sobre
// (organization_id, register_id) WHERE status = 'OPEN' es la última defensa
// contra dos aperturas concurrentes.
func (r *ShiftRepo) Create(ctx context.Context, s *entity.RegisterShift) error {
	query := `
		INSERT INTO register_shifts (id, organization_id, store_id, register_id, status,
			opened_at, opened_by, opening_cash, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query, s.ID, s.OrganizationID, s.StoreID, s.RegisterID,
		s.Status, s.OpenedAt, s.OpenedBy, s.OpeningCash, s.Notes)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrUniqueViolation
		}
		return fmt.Errorf("create shift: %w", err)
	}
	return nil
}

// GetByID obtiene un turno por id; (nil, nil) si no existe.
func (r *ShiftRepo) GetByID(ctx context.Context, orgID, id string) (*entity.RegisterShift, error) {
	query := `SELECT ` + shiftColumns + ` FROM register_shifts WHERE organization_id = $1 AND id = $2`
	return r.scanOne(ctx, query, orgID, id)
}

// GetByIDForUpdate obtiene el turno y bloquea la fila (SELECT FOR UPDATE).
func (r *ShiftRepo) GetByIDForUpdate(ctx context.Context, orgID, id string) (*entity.RegisterShift, error) {
	query := `SELECT ` + shiftColumns + ` FROM register_shifts WHERE organization_id = $1 AND id = $2 FOR UPDATE`
	return r.scanOne(ctx, query, orgID, id)
}

// GetOpenByRegister obtiene el turno OPEN de una caja; (nil, nil) si no hay.
func (r *ShiftRepo) GetOpenByRegister(ctx context.Context, orgID, registerID string) (*entity.RegisterShift, error) {
	query := `SELECT ` + shiftColumns + `
		FROM register_shifts
		WHERE organization_id = $1 AND register_id = $2 AND status = 'OPEN'`
	return r.scanOne(ctx, query, orgID, registerID)
}

// Close persiste la transición a CLOSED con los resultados del arqueo.
func (r *ShiftRepo) Close(ctx context.Context, s *entity.RegisterShift) error {
	query := `
		UPDATE register_shifts
		SET status = $2, closed_at = $3, closed_by = $4, closing_cash_counted = $5,
			expected_cash = $6, discrepancy = $7, notes = $8
		WHERE id = $1`
	_, err := r.q.Exec(ctx, query, s.ID, s.Status, s.ClosedAt, s.ClosedBy,
		s.ClosingCashCounted, s.ExpectedCash, s.Discrepancy, s.Notes)
	if err != nil {
		return fmt.Errorf("close shift: %w", err)
	}
	return nil
}

func (r *ShiftRepo) scanOne(ctx context.Context, query string, args ...any) (*entity.RegisterShift, error) {
	var s entity.RegisterShift
	err := r.q.QueryRow(ctx, query, args...).Scan(
		&s.ID, &s.OrganizationID, &s.StoreID, &s.RegisterID, &s.Status, &s.OpenedAt, &s.OpenedBy,
		&s.ClosedAt, &s.ClosedBy, &s.OpeningCash, &s.ClosingCashCounted, &s.ExpectedCash, &s.Discrepancy, &s.Notes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get shift: %w", err)
	}
	return &s, nil
}

var _ repository.RegisterRepository = (*RegisterRepo)(nil)

// RegisterRepo lectura de cajas registradoras.
type RegisterRepo struct {
	q Querier
}

// NewRegisterRepository construye el adaptador de cajas.
func NewRegisterRepository(q Querier) *RegisterRepo {
	return &RegisterRepo{q: q}
}

// GetByID obtiene una caja por id; (nil, nil) si no existe.
func (r *RegisterRepo) GetByID(ctx context.Context, orgID, id string) (*entity.Register, error) {
	query := `
		SELECT id, organization_id, store_id, code, name, is_active, created_at, updated_at
		FROM registers WHERE organization_id = $1 AND id = $2`
	var reg entity.Register
	err := r.q.QueryRow(ctx, query, orgID, id).Scan(
		&reg.ID, &reg.OrganizationID, &reg.StoreID, &reg.Code, &reg.Name,
		&reg.IsActive, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get register: %w", err)
	}
	return &reg, nil
}

var _ repository.CashMovementRepository = (*CashMovementRepo)(nil)

// CashMovementRepo ledger append-only de movimientos de efectivo del turno.
type CashMovementRepo struct {
	q Querier
}

// NewCashMovementRepository construye el adaptador de movimientos de efectivo.
func NewCashMovementRepository(q Querier) *CashMovementRepo {
	return &CashMovementRepo{q: q}
}

// Create inserta un movimiento del cajón (nunca update ni delete).
func (r *CashMovementRepo) Create(ctx context.Context, m *entity.CashDrawerMovement) error {
	query := `
		INSERT INTO cash_drawer_movements (id, organization_id, shift_id, type, amount, reason, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query, m.ID, m.OrganizationID, m.ShiftID, m.Type, m.Amount, m.Reason, m.CreatedAt, m.CreatedBy)
	if err != nil {
		return fmt.Errorf("create cash movement: %w", err)
	}
	return nil
}

// TotalsByShift agrega PAY_IN y PAY_OUT del turno en un solo statement.
func (r *CashMovementRepo) TotalsByShift(ctx context.Context, shiftID string) (payIn, payOut decimal.Decimal, err error) {
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'PAY_IN'), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'PAY_OUT'), 0)
		FROM cash_drawer_movements WHERE shift_id = $1`
	err = r.q.QueryRow(ctx, query, shiftID).Scan(&payIn, &payOut)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("cash movement totals: %w", err)
	}
	return payIn, payOut, nil
}
