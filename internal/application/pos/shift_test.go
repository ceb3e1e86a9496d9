package pos_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/retail-pos/internal/application/pos"
	"github.com/tu-usuario/retail-pos/internal/domain"
	"github.com/tu-usuario/retail-pos/internal/domain/entity"
	"github.com/tu-usuario/retail-pos/internal/domain/repository"
	"github.com/tu-usuario/retail-pos/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Tests del ciclo de vida de turnos: apertura, unicidad, cierre con arqueo y
// ledger de efectivo.
// ──────────────────────────────────────────────────────────────────────────────

func TestOpenShift_abre_turno_contra_caja_activa(t *testing.T) {
	e := newEnv()
	e.seedRegister()

	resp, err := e.shifts.OpenShift(context.Background(), pos.OpenShiftInput{
		OrgID:       testOrg,
		ActorID:     testUser,
		RegisterID:  testRegister,
		OpeningCash: dec("1000"),
	})

	require.NoError(t, err)
	assert.Equal(t, entity.ShiftStatusOpen, resp.Status, "el turno debe nacer OPEN")
	assert.Equal(t, testStore, resp.StoreID, "la tienda se hereda de la caja")
	assert.True(t, resp.OpeningCash.Equal(dec("1000")))
	assert.Contains(t, e.bus.names(), pos.EventShiftOpened, "debe publicarse shift.opened")
	assert.Len(t, e.store.audits, 1, "la apertura deja entrada de auditoría")
}

func TestOpenShift_rechaza_segundo_turno_abierto_en_la_misma_caja(t *testing.T) {
	e := newEnv()
	e.seedRegister()
	e.openShift(t, "500")

	_, err := e.shifts.OpenShift(context.Background(), pos.OpenShiftInput{
		OrgID:       testOrg,
		ActorID:     "cajero-2",
		RegisterID:  testRegister,
		OpeningCash: dec("0"),
	})

	require.Error(t, err)
	assert.True(t, domain.HasKind(err, domain.KindConflict))
	assert.Equal(t, "posShiftAlreadyOpen", domain.KeyOf(err))
}

// blindShifts reproduce la ventana entre dos aperturas concurrentes: la
// verificación previa no ve turno abierto, pero el INSERT choca contra el
// índice único parcial de turno OPEN por caja.
type blindShifts struct {
	repository.ShiftRepository
}

func (b *blindShifts) GetOpenByRegister(context.Context, string, string) (*entity.RegisterShift, error) {
	return nil, nil
}

func (b *blindShifts) Create(context.Context, *entity.RegisterShift) error {
	return repository.ErrUniqueViolation
}

type blindShiftsTx struct{ inner *memTx }

func (t *blindShiftsTx) RunPOS(ctx context.Context, fn func(r pos.Repos) error) error {
	return t.inner.RunPOS(ctx, func(r pos.Repos) error {
		r.Shifts = &blindShifts{ShiftRepository: r.Shifts}
		return fn(r)
	})
}

func TestOpenShift_perdedor_de_apertura_concurrente_recibe_conflicto(t *testing.T) {
	e := newEnv()
	e.seedRegister()
	shifts := pos.NewShiftUseCase(&blindShiftsTx{inner: e.tx}, &memIdempotency{e.store}, e.bus, logger.NewNop())

	_, err := shifts.OpenShift(context.Background(), pos.OpenShiftInput{
		OrgID:       testOrg,
		ActorID:     "cajero-2",
		RegisterID:  testRegister,
		OpeningCash: dec("0"),
	})

	require.Error(t, err)
	assert.True(t, domain.HasKind(err, domain.KindConflict), "perder la carrera del índice único es CONFLICT, no INTERNAL")
	assert.Equal(t, "posShiftAlreadyOpen", domain.KeyOf(err))
}

func TestOpenShift_rechaza_caja_inexistente_e_inactiva(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	_, err := e.shifts.OpenShift(ctx, pos.OpenShiftInput{
		OrgID: testOrg, ActorID: testUser, RegisterID: "no-existe", OpeningCash: dec("0"),
	})
	assert.True(t, domain.HasKind(err, domain.KindNotFound), "caja inexistente es NOT_FOUND")

	e.seedRegister()
	e.store.registers[testRegister].IsActive = false
	_, err = e.shifts.OpenShift(ctx, pos.OpenShiftInput{
		OrgID: testOrg, ActorID: testUser, RegisterID: testRegister, OpeningCash: dec("0"),
	})
	assert.Equal(t, "posRegisterInactive", domain.KeyOf(err), "caja inactiva es CONFLICT")
}

func TestOpenShift_rechaza_fondo_inicial_negativo(t *testing.T) {
	e := newEnv()
	e.seedRegister()

	_, err := e.shifts.OpenShift(context.Background(), pos.OpenShiftInput{
		OrgID: testOrg, ActorID: testUser, RegisterID: testRegister, OpeningCash: dec("-1"),
	})

	assert.True(t, domain.HasKind(err, domain.KindBadRequest))
	assert.Equal(t, "posInvalidOpeningCash", domain.KeyOf(err))
}

func TestOpenShift_replay_idempotente_no_duplica_turnos(t *testing.T) {
	e := newEnv()
	e.seedRegister()
	in := pos.OpenShiftInput{
		OrgID:       testOrg,
		ActorID:     testUser,
		RegisterID:  testRegister,
		OpeningCash: dec("250"),
		IdemKey:     "open-abc",
	}

	first, err := e.shifts.OpenShift(context.Background(), in)
	require.NoError(t, err)
	second, err := e.shifts.OpenShift(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "el replay devuelve el mismo turno")
	assert.Len(t, e.store.shifts, 1, "no debe crearse un segundo turno")
	assert.Equal(t, []string{pos.EventShiftOpened}, e.bus.names(), "el evento se publica una sola vez")
}

func TestCloseShift_calcula_esperado_y_discrepancia(t *testing.T) {
	e := newEnv()
	e.seedRegister()
	e.seedProduct("prod-1", "150")
	shift := e.openShift(t, "1000")
	ctx := context.Background()

	// Dos ventas en efectivo de 150 y un retiro de 200.
	e.completeCashSale(t, "prod-1", "1")
	e.completeCashSale(t, "prod-1", "1")
	_, err := e.shifts.RecordCashMovement(ctx, pos.CashMovementInput{
		OrgID: testOrg, ActorID: testUser, ShiftID: shift.ID,
		Type: entity.CashMovementPayOut, Amount: dec("200"), Reason: "retiro a bóveda",
	})
	require.NoError(t, err)

	// expected = 1000 + 0 - 200 + 300 - 0 = 1100; contado 1090 => discrepancia -10.
	resp, err := e.shifts.CloseShift(ctx, pos.CloseShiftInput{
		OrgID:              testOrg,
		ActorID:            testUser,
		ShiftID:            shift.ID,
		ClosingCashCounted: dec("1090"),
	})

	require.NoError(t, err)
	assert.Equal(t, entity.ShiftStatusClosed, resp.Status)
	require.NotNil(t, resp.ExpectedCash)
	assert.True(t, resp.ExpectedCash.Equal(dec("1100")), "esperado = apertura - retiro + ventas cash")
	require.NotNil(t, resp.Discrepancy)
	assert.True(t, resp.Discrepancy.Equal(dec("-10")), "discrepancia = contado - esperado")
	assert.Contains(t, e.bus.names(), pos.EventShiftClosed)
}

func TestCloseShift_turno_cerrado_devuelve_snapshot_sin_reefectos(t *testing.T) {
	e := newEnv()
	e.seedRegister()
	shift := e.openShift(t, "100")
	ctx := context.Background()

	first, err := e.shifts.CloseShift(ctx, pos.CloseShiftInput{
		OrgID: testOrg, ActorID: testUser, ShiftID: shift.ID, ClosingCashCounted: dec("100"),
	})
	require.NoError(t, err)
	eventsAfterClose := len(e.bus.names())

	second, err := e.shifts.CloseShift(ctx, pos.CloseShiftInput{
		OrgID: testOrg, ActorID: testUser, ShiftID: shift.ID, ClosingCashCounted: dec("999"),
	})
	require.NoError(t, err)

	assert.Equal(t, first.ClosedAt, second.ClosedAt, "el segundo cierre devuelve el snapshot original")
	require.NotNil(t, second.ClosingCashCounted)
	assert.True(t, second.ClosingCashCounted.Equal(dec("100")), "el contado original no se sobreescribe")
	assert.Len(t, e.bus.names(), eventsAfterClose, "shift.closed no se publica de nuevo")
}

func TestRecordCashMovement_rechaza_turno_cerrado(t *testing.T) {
	e := newEnv()
	e.seedRegister()
	shift := e.openShift(t, "0")
	ctx := context.Background()
	_, err := e.shifts.CloseShift(ctx, pos.CloseShiftInput{
		OrgID: testOrg, ActorID: testUser, ShiftID: shift.ID, ClosingCashCounted: dec("0"),
	})
	require.NoError(t, err)

	_, err = e.shifts.RecordCashMovement(ctx, pos.CashMovementInput{
		OrgID: testOrg, ActorID: testUser, ShiftID: shift.ID,
		Type: entity.CashMovementPayIn, Amount: dec("50"), Reason: "cambio",
	})

	assert.Equal(t, "posShiftNotOpen", domain.KeyOf(err))
	assert.Empty(t, e.store.cashMovs, "el rollback no deja movimiento registrado")
}

func TestRecordCashMovement_valida_tipo_y_monto(t *testing.T) {
	e := newEnv()
	e.seedRegister()
	shift := e.openShift(t, "0")
	ctx := context.Background()

	_, err := e.shifts.RecordCashMovement(ctx, pos.CashMovementInput{
		OrgID: testOrg, ActorID: testUser, ShiftID: shift.ID, Type: "DEPOSIT", Amount: dec("10"),
	})
	assert.Equal(t, "posInvalidCashMovementType", domain.KeyOf(err))

	_, err = e.shifts.RecordCashMovement(ctx, pos.CashMovementInput{
		OrgID: testOrg, ActorID: testUser, ShiftID: shift.ID,
		Type: entity.CashMovementPayIn, Amount: dec("0"),
	})
	assert.Equal(t, "posInvalidAmount", domain.KeyOf(err))
}

func TestCurrentShift_devuelve_abierto_o_not_found(t *testing.T) {
	e := newEnv()
	e.seedRegister()
	ctx := context.Background()

	_, err := e.shifts.CurrentShift(ctx, testOrg, testRegister)
	assert.True(t, domain.HasKind(err, domain.KindNotFound), "sin turno abierto es NOT_FOUND")

	opened := e.openShift(t, "300")
	resp, err := e.shifts.CurrentShift(ctx, testOrg, testRegister)
	require.NoError(t, err)
	assert.Equal(t, opened.ID, resp.ID)
}

func TestShiftReport_refleja_ventas_devoluciones_y_metodos(t *testing.T) {
	e := newEnv()
	e.seedRegister()
	e.seedProduct("prod-1", "100")
	shift := e.openShift(t, "500")
	ctx := context.Background()

	sale := e.completeCashSale(t, "prod-1", "3") // 300 CASH

	ret, err := e.returns.CreateDraft(ctx, pos.CreateReturnDraftInput{
		OrgID: testOrg, ActorID: testUser, RegisterID: testRegister,
		OriginalSaleID: sale.ID,
		Lines:          []pos.ReturnLineInput{{SaleLineID: sale.Lines[0].ID, Qty: dec("1")}},
	})
	require.NoError(t, err)
	_, err = e.returns.Complete(ctx, pos.CompleteReturnInput{
		OrgID: testOrg, ActorID: testUser, ReturnID: ret.ID,
		Payments: []pos.PaymentInput{{Method: entity.PaymentMethodCash, Amount: dec("100")}},
	})
	require.NoError(t, err)

	report, err := e.shifts.ShiftReport(ctx, testOrg, shift.ID)
	require.NoError(t, err)

	assert.EqualValues(t, 1, report.SalesCount)
	assert.True(t, report.SalesTotal.Equal(dec("300")))
	assert.EqualValues(t, 1, report.ReturnsCount)
	assert.True(t, report.ReturnsTotal.Equal(dec("100")))
	assert.True(t, report.CashSales.Equal(dec("300")))
	assert.True(t, report.CashRefunds.Equal(dec("100")))
	// expected = 500 + 0 - 0 + 300 - 100
	assert.True(t, report.ExpectedCash.Equal(dec("700")), "fórmula de arqueo del turno")

	require.NotEmpty(t, report.Methods)
	cash := report.Methods[0]
	assert.Equal(t, entity.PaymentMethodCash, cash.Method, "CASH va primero en el orden estable")
	assert.True(t, cash.SalesKgs.Equal(dec("300")))
	assert.True(t, cash.RefundsKgs.Equal(dec("100")))
	assert.True(t, cash.NetKgs.Equal(dec("200")))
}
