package pos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/retail-pos/internal/application/dto"
	"github.com/tu-usuario/retail-pos/internal/domain"
	"github.com/tu-usuario/retail-pos/internal/domain/entity"
	"github.com/tu-usuario/retail-pos/internal/domain/money"
	"github.com/tu-usuario/retail-pos/internal/domain/repository"
	"github.com/tu-usuario/retail-pos/pkg/logger"
)

// Rutas de idempotencia del ciclo de vida de turnos.
const (
	routeShiftOpen    = "pos.shift.open"
	routeShiftClose   = "pos.shift.close"
	routeCashMovement = "pos.shift.cash_movement"
)

// ShiftUseCase abre, cierra y reporta turnos de caja, y registra movimientos
// del cajón. Garantiza a lo sumo un turno OPEN por caja.
type ShiftUseCase struct {
	tx   TxRunner
	idem repository.IdempotencyRepository // atado al pool; resuelve carreras de clave
	bus  EventBus
	log  *logger.Logger
}

// NewShiftUseCase construye el caso de uso.
func NewShiftUseCase(tx TxRunner, idem repository.IdempotencyRepository, bus EventBus, log *logger.Logger) *ShiftUseCase {
	return &ShiftUseCase{tx: tx, idem: idem, bus: bus, log: log}
}

// OpenShiftInput entrada para abrir un turno.
type OpenShiftInput struct {
	OrgID       string
	ActorID     string
	RegisterID  string
	OpeningCash decimal.Decimal
	Notes       *string
	IdemKey     string
}

// OpenShift abre un turno contra una caja activa sin turno OPEN previo.
// Repetir la request con la misma clave de idempotencia es seguro.
func (uc *ShiftUseCase) OpenShift(ctx context.Context, in OpenShiftInput) (*dto.ShiftResponse, error) {
	if in.RegisterID == "" {
		return nil, domain.BadRequest("posRegisterRequired")
	}
	if in.OpeningCash.IsNegative() {
		return nil, domain.BadRequest("posInvalidOpeningCash")
	}

	var resp *dto.ShiftResponse
	var replayed bool
	err := uc.tx.RunPOS(ctx, func(r Repos) error {
		var err error
		resp, replayed, err = RunIdempotent(ctx, r.Idempotency, in.IdemKey, routeShiftOpen, in.ActorID, func() (*dto.ShiftResponse, error) {
			reg, err := r.Registers.GetByID(ctx, in.OrgID, in.RegisterID)
			if err != nil {
				return nil, err
			}
			if reg == nil {
				return nil, domain.NotFound("posRegisterNotFound")
			}
			if !reg.IsActive {
				return nil, domain.Conflict("posRegisterInactive")
			}
			open, err := r.Shifts.GetOpenByRegister(ctx, in.OrgID, in.RegisterID)
			if err != nil {
				return nil, err
			}
			if open != nil {
				return nil, domain.Conflict("posShiftAlreadyOpen")
			}

			shift := &entity.RegisterShift{
				ID:             uuid.New().String(),
				OrganizationID: in.OrgID,
				StoreID:        reg.StoreID,
				RegisterID:     reg.ID,
				Status:         entity.ShiftStatusOpen,
				OpenedAt:       time.Now(),
				OpenedBy:       in.ActorID,
				OpeningCash:    money.Round2(in.OpeningCash),
				Notes:          in.Notes,
			}
			if err := r.Shifts.Create(ctx, shift); err != nil {
				return nil, err
			}
			if err := writeAudit(ctx, r.Audit, in.OrgID, in.ActorID, entity.AuditShiftOpen, "register_shift", shift.ID, nil, shift); err != nil {
				return nil, err
			}
			return shiftToResponse(shift), nil
		})
		return err
	})
	if errors.Is(err, ErrIdempotencyRace) {
		return ResolveIdempotencyRace[*dto.ShiftResponse](ctx, uc.idem, in.IdemKey, routeShiftOpen)
	}
	if errors.Is(err, repository.ErrUniqueViolation) {
		// Dos aperturas concurrentes sobre la misma caja: el índice único
		// parcial de turno OPEN decide al ganador; el perdedor recibe conflicto.
		return nil, domain.Conflict("posShiftAlreadyOpen")
	}
	if err != nil {
		return nil, err
	}
	if !replayed {
		uc.bus.Publish(ctx, EventShiftOpened, resp)
	}
	return resp, nil
}

// CloseShiftInput entrada para cerrar un turno.
type CloseShiftInput struct {
	OrgID              string
	ActorID            string
	ShiftID            string
	ClosingCashCounted decimal.Decimal
	Notes              *string
	IdemKey            string
}

// CloseShift cierra el turno bajo bloqueo de fila. Un turno ya CLOSED devuelve
// el snapshot almacenado (idempotencia por estado, independiente de la tabla
// de claves). El cierre calcula expected, guarda counted y discrepancy
// (counted - expected) con la misma fórmula que el X-report.
func (uc *ShiftUseCase) CloseShift(ctx context.Context, in CloseShiftInput) (*dto.ShiftResponse, error) {
	var resp *dto.ShiftResponse
	var replayed, closedNow bool
	err := uc.tx.RunPOS(ctx, func(r Repos) error {
		var err error
		resp, replayed, err = RunIdempotent(ctx, r.Idempotency, in.IdemKey, routeShiftClose, in.ActorID, func() (*dto.ShiftResponse, error) {
			shift, err := r.Shifts.GetByIDForUpdate(ctx, in.OrgID, in.ShiftID)
			if err != nil {
				return nil, err
			}
			if shift == nil {
				return nil, domain.NotFound("posShiftNotFound")
			}
			if shift.Status == entity.ShiftStatusClosed {
				return shiftToResponse(shift), nil
			}

			report, err := buildShiftReport(ctx, r, shift)
			if err != nil {
				return nil, err
			}
			before := *shift

			now := time.Now()
			counted := money.Round2(in.ClosingCashCounted)
			discrepancy := counted.Sub(report.ExpectedCash)
			shift.Status = entity.ShiftStatusClosed
			shift.ClosedAt = &now
			shift.ClosedBy = &in.ActorID
			shift.ExpectedCash = money.Ptr(report.ExpectedCash)
			shift.ClosingCashCounted = &counted
			shift.Discrepancy = &discrepancy
			if in.Notes != nil {
				shift.Notes = in.Notes
			}
			if err := r.Shifts.Close(ctx, shift); err != nil {
				return nil, err
			}
			if err := writeAudit(ctx, r.Audit, in.OrgID, in.ActorID, entity.AuditShiftClose, "register_shift", shift.ID, &before, shift); err != nil {
				return nil, err
			}
			closedNow = true
			return shiftToResponse(shift), nil
		})
		return err
	})
	if errors.Is(err, ErrIdempotencyRace) {
		return ResolveIdempotencyRace[*dto.ShiftResponse](ctx, uc.idem, in.IdemKey, routeShiftClose)
	}
	if err != nil {
		return nil, err
	}
	if closedNow && !replayed {
		uc.bus.Publish(ctx, EventShiftClosed, resp)
	}
	return resp, nil
}

// ShiftReport genera el X-report en vivo del turno (lecturas snapshot, sin locks).
func (uc *ShiftUseCase) ShiftReport(ctx context.Context, orgID, shiftID string) (*dto.ShiftReportResponse, error) {
	var resp *dto.ShiftReportResponse
	err := uc.tx.RunPOS(ctx, func(r Repos) error {
		shift, err := r.Shifts.GetByID(ctx, orgID, shiftID)
		if err != nil {
			return err
		}
		if shift == nil {
			return domain.NotFound("posShiftNotFound")
		}
		resp, err = buildShiftReport(ctx, r, shift)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// CurrentShift devuelve el turno OPEN de una caja, o NOT_FOUND si no hay.
func (uc *ShiftUseCase) CurrentShift(ctx context.Context, orgID, registerID string) (*dto.ShiftResponse, error) {
	var resp *dto.ShiftResponse
	err := uc.tx.RunPOS(ctx, func(r Repos) error {
		shift, err := r.Shifts.GetOpenByRegister(ctx, orgID, registerID)
		if err != nil {
			return err
		}
		if shift == nil {
			return domain.NotFound("posShiftNotFound")
		}
		resp = shiftToResponse(shift)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// CashMovementInput entrada para registrar un PAY_IN/PAY_OUT.
type CashMovementInput struct {
	OrgID   string
	ActorID string
	ShiftID string
	Type    string
	Amount  decimal.Decimal
	Reason  string
	IdemKey string
}

// RecordCashMovement agrega una entrada al ledger de efectivo de un turno OPEN.
// Bloquea la fila del turno para no competir con un cierre concurrente.
func (uc *ShiftUseCase) RecordCashMovement(ctx context.Context, in CashMovementInput) (*dto.CashMovementResponse, error) {
	if in.Type != entity.CashMovementPayIn && in.Type != entity.CashMovementPayOut {
		return nil, domain.BadRequest("posInvalidCashMovementType")
	}
	if !in.Amount.IsPositive() {
		return nil, domain.BadRequest("posInvalidAmount")
	}

	var resp *dto.CashMovementResponse
	err := uc.tx.RunPOS(ctx, func(r Repos) error {
		var err error
		resp, _, err = RunIdempotent(ctx, r.Idempotency, in.IdemKey, routeCashMovement, in.ActorID, func() (*dto.CashMovementResponse, error) {
			shift, err := r.Shifts.GetByIDForUpdate(ctx, in.OrgID, in.ShiftID)
			if err != nil {
				return nil, err
			}
			if shift == nil {
				return nil, domain.NotFound("posShiftNotFound")
			}
			if !shift.IsOpen() {
				return nil, domain.Conflict("posShiftNotOpen")
			}
			mov := &entity.CashDrawerMovement{
				ID:             uuid.New().String(),
				OrganizationID: in.OrgID,
				ShiftID:        shift.ID,
				Type:           in.Type,
				Amount:         money.Round2(in.Amount),
				Reason:         in.Reason,
				CreatedAt:      time.Now(),
				CreatedBy:      in.ActorID,
			}
			if err := r.CashMovements.Create(ctx, mov); err != nil {
				return nil, err
			}
			if err := writeAudit(ctx, r.Audit, in.OrgID, in.ActorID, entity.AuditCashMovement, "cash_drawer_movement", mov.ID, nil, mov); err != nil {
				return nil, err
			}
			return &dto.CashMovementResponse{
				ID: mov.ID, ShiftID: mov.ShiftID, Type: mov.Type,
				Amount: mov.Amount, Reason: mov.Reason, CreatedAt: mov.CreatedAt,
			}, nil
		})
		return err
	})
	if errors.Is(err, ErrIdempotencyRace) {
		return ResolveIdempotencyRace[*dto.CashMovementResponse](ctx, uc.idem, in.IdemKey, routeCashMovement)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// buildShiftReport agrega ventas, devoluciones, pagos por método y movimientos
// del cajón. Es la única fuente de la fórmula de arqueo:
//
//	expectedCash = openingCash + payIn - payOut + cashSales - cashRefunds
//
// El cierre y el reporte en vivo deben usar exactamente esta función.
func buildShiftReport(ctx context.Context, r Repos, shift *entity.RegisterShift) (*dto.ShiftReportResponse, error) {
	salesCount, salesTotal, err := r.Sales.CompletedStatsByShift(ctx, shift.ID)
	if err != nil {
		return nil, err
	}
	returnsCount, returnsTotal, err := r.Returns.CompletedStatsByShift(ctx, shift.ID)
	if err != nil {
		return nil, err
	}
	payIn, payOut, err := r.CashMovements.TotalsByShift(ctx, shift.ID)
	if err != nil {
		return nil, err
	}
	totals, err := r.Payments.TotalsByShift(ctx, shift.ID)
	if err != nil {
		return nil, err
	}

	type bucket struct{ sales, refunds decimal.Decimal }
	byMethod := map[string]*bucket{}
	for _, t := range totals {
		b := byMethod[t.Method]
		if b == nil {
			b = &bucket{sales: decimal.Zero, refunds: decimal.Zero}
			byMethod[t.Method] = b
		}
		if t.IsRefund {
			b.refunds = b.refunds.Add(t.Total)
		} else {
			b.sales = b.sales.Add(t.Total)
		}
	}

	// Orden estable sobre la enumeración cerrada de métodos.
	methods := make([]dto.PaymentMethodReport, 0, len(byMethod))
	for _, m := range []string{entity.PaymentMethodCash, entity.PaymentMethodCard, entity.PaymentMethodTransfer, entity.PaymentMethodOther} {
		b := byMethod[m]
		if b == nil {
			continue
		}
		methods = append(methods, dto.PaymentMethodReport{
			Method:     m,
			SalesKgs:   b.sales,
			RefundsKgs: b.refunds,
			NetKgs:     b.sales.Sub(b.refunds),
		})
	}

	cashSales, cashRefunds := decimal.Zero, decimal.Zero
	if b := byMethod[entity.PaymentMethodCash]; b != nil {
		cashSales, cashRefunds = b.sales, b.refunds
	}
	expected := shift.OpeningCash.Add(payIn).Sub(payOut).Add(cashSales).Sub(cashRefunds)

	return &dto.ShiftReportResponse{
		ShiftID:      shift.ID,
		OpeningCash:  shift.OpeningCash,
		SalesCount:   salesCount,
		SalesTotal:   salesTotal,
		ReturnsCount: returnsCount,
		ReturnsTotal: returnsTotal,
		PayIn:        payIn,
		PayOut:       payOut,
		CashSales:    cashSales,
		CashRefunds:  cashRefunds,
		ExpectedCash: expected,
		Methods:      methods,
	}, nil
}

func shiftToResponse(s *entity.RegisterShift) *dto.ShiftResponse {
	return &dto.ShiftResponse{
		ID:                 s.ID,
		StoreID:            s.StoreID,
		RegisterID:         s.RegisterID,
		Status:             s.Status,
		OpenedAt:           s.OpenedAt,
		OpenedBy:           s.OpenedBy,
		ClosedAt:           s.ClosedAt,
		ClosedBy:           s.ClosedBy,
		OpeningCash:        s.OpeningCash,
		ClosingCashCounted: s.ClosingCashCounted,
		ExpectedCash:       s.ExpectedCash,
		Discrepancy:        s.Discrepancy,
		Notes:              s.Notes,
	}
}
