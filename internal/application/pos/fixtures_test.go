package pos_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/retail-pos/internal/application/dto"
	"github.com/tu-usuario/retail-pos/internal/application/pos"
	"github.com/tu-usuario/retail-pos/internal/domain/entity"
	"github.com/tu-usuario/retail-pos/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Entorno de prueba: casos de uso cableados sobre los fakes en memoria.
// ──────────────────────────────────────────────────────────────────────────────

const (
	testOrg      = "org-1"
	testStore    = "store-1"
	testRegister = "reg-1"
	testUser     = "cajero-1"
)

type stubAdapter struct {
	calls int
	fail  bool
}

func (a *stubAdapter) Fiscalize(_ context.Context, _ *entity.FiscalReceiptDraft) (*entity.FiscalReceiptResult, error) {
	a.calls++
	if a.fail {
		return nil, errors.New(`{"error":"kkm offline"}`)
	}
	return &entity.FiscalReceiptResult{
		ProviderReceiptID: fmt.Sprintf("FR-%d", a.calls),
		RawJSON:           "{}",
	}, nil
}

type stubRegistry struct{ adapter pos.FiscalAdapter }

func (r *stubRegistry) Resolve(_ string) (pos.FiscalAdapter, error) {
	if r.adapter == nil {
		return nil, errors.New("proveedor KKM no registrado")
	}
	return r.adapter, nil
}

type env struct {
	store   *memStore
	tx      *memTx
	bus     *recordBus
	adapter *stubAdapter
	shifts  *pos.ShiftUseCase
	sales   *pos.SaleUseCase
	returns *pos.ReturnUseCase
}

func newEnv() *env {
	s := newMemStore()
	tx := newMemTx(s)
	bus := &recordBus{}
	log := logger.NewNop()
	adapter := &stubAdapter{}
	idem := &memIdempotency{s}
	fiscal := pos.NewFiscalizer(&stubRegistry{adapter: adapter}, &memSales{s}, log)
	return &env{
		store:   s,
		tx:      tx,
		bus:     bus,
		adapter: adapter,
		shifts:  pos.NewShiftUseCase(tx, idem, bus, log),
		sales:   pos.NewSaleUseCase(tx, idem, fiscal, bus, log),
		returns: pos.NewReturnUseCase(tx, idem, bus, log),
	}
}

func (e *env) seedRegister() {
	e.store.registers[testRegister] = &entity.Register{
		ID:             testRegister,
		OrganizationID: testOrg,
		StoreID:        testStore,
		Code:           "CAJA-1",
		Name:           "Caja principal",
		IsActive:       true,
	}
}

func (e *env) seedProduct(id, basePrice string) {
	e.store.products[id] = &entity.Product{
		ID:             id,
		OrganizationID: testOrg,
		SKU:            "SKU-" + id,
		Name:           "Producto " + id,
		BasePrice:      dec(basePrice),
	}
}

func (e *env) seedCost(productID, variantKey, cost string) {
	e.store.costs[testOrg+"|"+productID+"|"+variantKey] = dec(cost)
}

func (e *env) openShift(t *testing.T, openingCash string) *dto.ShiftResponse {
	t.Helper()
	resp, err := e.shifts.OpenShift(context.Background(), pos.OpenShiftInput{
		OrgID:       testOrg,
		ActorID:     testUser,
		RegisterID:  testRegister,
		OpeningCash: dec(openingCash),
	})
	require.NoError(t, err, "la apertura de turno semilla no debe fallar")
	return resp
}

// completeCashSale crea un borrador con una línea y lo completa con pago CASH.
func (e *env) completeCashSale(t *testing.T, productID, qty string) *dto.SaleResponse {
	t.Helper()
	ctx := context.Background()
	draft, err := e.sales.CreateDraft(ctx, pos.CreateSaleDraftInput{
		OrgID:      testOrg,
		ActorID:    testUser,
		RegisterID: testRegister,
		Lines:      []pos.DraftLineInput{{ProductID: productID, Qty: dec(qty)}},
	})
	require.NoError(t, err, "el borrador semilla no debe fallar")
	done, err := e.sales.Complete(ctx, pos.CompleteSaleInput{
		OrgID:   testOrg,
		ActorID: testUser,
		SaleID:  draft.ID,
		Payments: []pos.PaymentInput{
			{Method: entity.PaymentMethodCash, Amount: draft.Total},
		},
	})
	require.NoError(t, err, "la completación semilla no debe fallar")
	return done
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }
