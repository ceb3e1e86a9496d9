package pos_test

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/retail-pos/internal/application/pos"
	"github.com/tu-usuario/retail-pos/internal/domain/entity"
	"github.com/tu-usuario/retail-pos/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria para los casos de uso POS.
//
// memStore simula la base de datos completa; memTx simula la transacción
// haciendo snapshot antes del callback y restaurando si retorna error, para
// que los tests puedan afirmar "ninguna mutación quedó" en caminos de fallo.
// Los fakes guardan y devuelven copias, nunca los punteros del caller.
// ──────────────────────────────────────────────────────────────────────────────

type memStore struct {
	registers   map[string]*entity.Register
	shifts      map[string]*entity.RegisterShift
	cashMovs    []entity.CashDrawerMovement
	sales       map[string]*entity.SaleOrder
	saleLines   []entity.SaleLine
	returns     map[string]*entity.SaleReturn
	returnLines []entity.SaleReturnLine
	payments    []entity.Payment
	counters    map[string]int64
	idem        map[string]entity.IdempotencyRecord
	products    map[string]*entity.Product
	variants    map[string]*entity.Variant
	storePrices map[string]decimal.Decimal
	costs       map[string]decimal.Decimal
	bundles     map[string][]entity.BundleComponent
	profiles    map[string]*entity.StoreComplianceProfile
	audits      []entity.AuditEntry
	stockMovs   []entity.StockMovement
	stockLevels map[string]decimal.Decimal
}

func newMemStore() *memStore {
	return &memStore{
		registers:   map[string]*entity.Register{},
		shifts:      map[string]*entity.RegisterShift{},
		sales:       map[string]*entity.SaleOrder{},
		returns:     map[string]*entity.SaleReturn{},
		counters:    map[string]int64{},
		idem:        map[string]entity.IdempotencyRecord{},
		products:    map[string]*entity.Product{},
		variants:    map[string]*entity.Variant{},
		storePrices: map[string]decimal.Decimal{},
		costs:       map[string]decimal.Decimal{},
		bundles:     map[string][]entity.BundleComponent{},
		profiles:    map[string]*entity.StoreComplianceProfile{},
		stockLevels: map[string]decimal.Decimal{},
	}
}

func (s *memStore) clone() *memStore {
	c := newMemStore()
	for k, v := range s.registers {
		cp := *v
		c.registers[k] = &cp
	}
	for k, v := range s.shifts {
		cp := *v
		c.shifts[k] = &cp
	}
	for k, v := range s.sales {
		cp := *v
		c.sales[k] = &cp
	}
	for k, v := range s.returns {
		cp := *v
		c.returns[k] = &cp
	}
	for k, v := range s.products {
		cp := *v
		c.products[k] = &cp
	}
	for k, v := range s.variants {
		cp := *v
		c.variants[k] = &cp
	}
	for k, v := range s.profiles {
		cp := *v
		c.profiles[k] = &cp
	}
	for k, v := range s.counters {
		c.counters[k] = v
	}
	for k, v := range s.idem {
		c.idem[k] = v
	}
	for k, v := range s.storePrices {
		c.storePrices[k] = v
	}
	for k, v := range s.costs {
		c.costs[k] = v
	}
	for k, v := range s.bundles {
		c.bundles[k] = append([]entity.BundleComponent(nil), v...)
	}
	for k, v := range s.stockLevels {
		c.stockLevels[k] = v
	}
	c.cashMovs = append([]entity.CashDrawerMovement(nil), s.cashMovs...)
	c.saleLines = append([]entity.SaleLine(nil), s.saleLines...)
	c.returnLines = append([]entity.SaleReturnLine(nil), s.returnLines...)
	c.payments = append([]entity.Payment(nil), s.payments...)
	c.audits = append([]entity.AuditEntry(nil), s.audits...)
	c.stockMovs = append([]entity.StockMovement(nil), s.stockMovs...)
	return c
}

func (s *memStore) repos() pos.Repos {
	return pos.Repos{
		Registers:     &memRegisters{s},
		Shifts:        &memShifts{s},
		CashMovements: &memCashMovements{s},
		Sales:         &memSales{s},
		Returns:       &memReturns{s},
		Payments:      &memPayments{s},
		Counters:      &memCounters{s},
		Idempotency:   &memIdempotency{s},
		Products:      &memProducts{s},
		Audit:         &memAudit{s},
		Compliance:    &memCompliance{s},
		Stock:         &memStock{s},
	}
}

// memTx simula RunPOS: snapshot + callback + restore si hay error.
type memTx struct {
	mu sync.Mutex
	s  *memStore
}

func newMemTx(s *memStore) *memTx { return &memTx{s: s} }

func (t *memTx) RunPOS(ctx context.Context, fn func(r pos.Repos) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := t.s.clone()
	if err := fn(t.s.repos()); err != nil {
		*t.s = *snap
		return err
	}
	return nil
}

// ── Cajas y turnos ────────────────────────────────────────────────────────────

type memRegisters struct{ s *memStore }

func (m *memRegisters) GetByID(_ context.Context, orgID, id string) (*entity.Register, error) {
	r, ok := m.s.registers[id]
	if !ok || r.OrganizationID != orgID {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

type memShifts struct{ s *memStore }

func (m *memShifts) Create(_ context.Context, shift *entity.RegisterShift) error {
	for _, existing := range m.s.shifts {
		if existing.OrganizationID == shift.OrganizationID &&
			existing.RegisterID == shift.RegisterID && existing.IsOpen() {
			return repository.ErrUniqueViolation
		}
	}
	cp := *shift
	m.s.shifts[shift.ID] = &cp
	return nil
}

func (m *memShifts) GetByID(_ context.Context, orgID, id string) (*entity.RegisterShift, error) {
	sh, ok := m.s.shifts[id]
	if !ok || sh.OrganizationID != orgID {
		return nil, nil
	}
	cp := *sh
	return &cp, nil
}

func (m *memShifts) GetByIDForUpdate(ctx context.Context, orgID, id string) (*entity.RegisterShift, error) {
	return m.GetByID(ctx, orgID, id)
}

func (m *memShifts) GetOpenByRegister(_ context.Context, orgID, registerID string) (*entity.RegisterShift, error) {
	for _, sh := range m.s.shifts {
		if sh.OrganizationID == orgID && sh.RegisterID == registerID && sh.IsOpen() {
			cp := *sh
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memShifts) Close(_ context.Context, shift *entity.RegisterShift) error {
	cp := *shift
	m.s.shifts[shift.ID] = &cp
	return nil
}

type memCashMovements struct{ s *memStore }

func (m *memCashMovements) Create(_ context.Context, mov *entity.CashDrawerMovement) error {
	m.s.cashMovs = append(m.s.cashMovs, *mov)
	return nil
}

func (m *memCashMovements) TotalsByShift(_ context.Context, shiftID string) (decimal.Decimal, decimal.Decimal, error) {
	payIn, payOut := decimal.Zero, decimal.Zero
	for _, mov := range m.s.cashMovs {
		if mov.ShiftID != shiftID {
			continue
		}
		if mov.Type == entity.CashMovementPayIn {
			payIn = payIn.Add(mov.Amount)
		} else {
			payOut = payOut.Add(mov.Amount)
		}
	}
	return payIn, payOut, nil
}

// ── Ventas ────────────────────────────────────────────────────────────────────

type memSales struct{ s *memStore }

func (m *memSales) Create(_ context.Context, sale *entity.SaleOrder) error {
	for _, existing := range m.s.sales {
		if existing.ShiftID == sale.ShiftID && existing.RegisterID == sale.RegisterID &&
			existing.CreatedBy == sale.CreatedBy && existing.Status == entity.SaleStatusDraft {
			return repository.ErrUniqueViolation
		}
	}
	cp := *sale
	m.s.sales[sale.ID] = &cp
	return nil
}

func (m *memSales) GetByID(_ context.Context, orgID, id string) (*entity.SaleOrder, error) {
	sale, ok := m.s.sales[id]
	if !ok || sale.OrganizationID != orgID {
		return nil, nil
	}
	cp := *sale
	return &cp, nil
}

func (m *memSales) GetByIDForUpdate(ctx context.Context, orgID, id string) (*entity.SaleOrder, error) {
	return m.GetByID(ctx, orgID, id)
}

func (m *memSales) FindDraft(_ context.Context, orgID, shiftID, registerID, createdBy string) (*entity.SaleOrder, error) {
	for _, sale := range m.s.sales {
		if sale.OrganizationID == orgID && sale.ShiftID == shiftID &&
			sale.RegisterID == registerID && sale.CreatedBy == createdBy &&
			sale.Status == entity.SaleStatusDraft {
			cp := *sale
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memSales) UpdateTotals(_ context.Context, saleID string, subtotal, total decimal.Decimal) error {
	sale := m.s.sales[saleID]
	cp := *sale
	cp.Subtotal, cp.Total = subtotal, total
	m.s.sales[saleID] = &cp
	return nil
}

func (m *memSales) UpdateStatus(_ context.Context, saleID, status string) error {
	sale := m.s.sales[saleID]
	cp := *sale
	cp.Status = status
	m.s.sales[saleID] = &cp
	return nil
}

func (m *memSales) MarkCompleted(_ context.Context, sale *entity.SaleOrder) error {
	cp := *sale
	m.s.sales[sale.ID] = &cp
	return nil
}

func (m *memSales) UpdateKKM(_ context.Context, saleID, status string, receiptID, rawError *string) error {
	sale, ok := m.s.sales[saleID]
	if !ok {
		return nil
	}
	cp := *sale
	cp.KKMStatus = status
	cp.KKMReceiptID = receiptID
	cp.KKMError = rawError
	m.s.sales[saleID] = &cp
	return nil
}

func (m *memSales) CreateLine(_ context.Context, line *entity.SaleLine) error {
	var maxNo int32
	for _, l := range m.s.saleLines {
		if l.SaleID == line.SaleID && l.ProductID == line.ProductID && l.VariantKey == line.VariantKey {
			return repository.ErrUniqueViolation
		}
		if l.SaleID == line.SaleID && l.LineNo > maxNo {
			maxNo = l.LineNo
		}
	}
	cp := *line
	cp.LineNo = maxNo + 1
	m.s.saleLines = append(m.s.saleLines, cp)
	return nil
}

func (m *memSales) UpdateLineQty(_ context.Context, lineID string, qty, lineTotal decimal.Decimal, lineCostTotal *decimal.Decimal) error {
	for i, l := range m.s.saleLines {
		if l.ID == lineID {
			m.s.saleLines[i].Qty = qty
			m.s.saleLines[i].LineTotal = lineTotal
			m.s.saleLines[i].LineCostTotal = lineCostTotal
			return nil
		}
	}
	return nil
}

func (m *memSales) DeleteLine(_ context.Context, lineID string) error {
	for i, l := range m.s.saleLines {
		if l.ID == lineID {
			m.s.saleLines = append(m.s.saleLines[:i], m.s.saleLines[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memSales) GetLine(_ context.Context, saleID, lineID string) (*entity.SaleLine, error) {
	for _, l := range m.s.saleLines {
		if l.SaleID == saleID && l.ID == lineID {
			cp := l
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memSales) FindLineByProduct(_ context.Context, saleID, productID, variantKey string) (*entity.SaleLine, error) {
	for _, l := range m.s.saleLines {
		if l.SaleID == saleID && l.ProductID == productID && l.VariantKey == variantKey {
			cp := l
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memSales) ListLines(_ context.Context, saleID string) ([]*entity.SaleLine, error) {
	var lines []*entity.SaleLine
	for _, l := range m.s.saleLines {
		if l.SaleID == saleID {
			cp := l
			lines = append(lines, &cp)
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].LineNo < lines[j].LineNo })
	return lines, nil
}

func (m *memSales) CompletedStatsByShift(_ context.Context, shiftID string) (int64, decimal.Decimal, error) {
	var count int64
	total := decimal.Zero
	for _, sale := range m.s.sales {
		if sale.ShiftID == shiftID && sale.Status == entity.SaleStatusCompleted {
			count++
			total = total.Add(sale.Total)
		}
	}
	return count, total, nil
}

// ── Devoluciones ──────────────────────────────────────────────────────────────

type memReturns struct{ s *memStore }

func (m *memReturns) Create(_ context.Context, ret *entity.SaleReturn) error {
	cp := *ret
	m.s.returns[ret.ID] = &cp
	return nil
}

func (m *memReturns) GetByID(_ context.Context, orgID, id string) (*entity.SaleReturn, error) {
	ret, ok := m.s.returns[id]
	if !ok || ret.OrganizationID != orgID {
		return nil, nil
	}
	cp := *ret
	return &cp, nil
}

func (m *memReturns) GetByIDForUpdate(ctx context.Context, orgID, id string) (*entity.SaleReturn, error) {
	return m.GetByID(ctx, orgID, id)
}

func (m *memReturns) UpdateTotals(_ context.Context, returnID string, subtotal, total decimal.Decimal) error {
	ret := m.s.returns[returnID]
	cp := *ret
	cp.Subtotal, cp.Total = subtotal, total
	m.s.returns[returnID] = &cp
	return nil
}

func (m *memReturns) MarkCompleted(_ context.Context, ret *entity.SaleReturn) error {
	cp := *ret
	m.s.returns[ret.ID] = &cp
	return nil
}

func (m *memReturns) CreateLine(_ context.Context, line *entity.SaleReturnLine) error {
	var maxNo int32
	for _, l := range m.s.returnLines {
		if l.SaleReturnID == line.SaleReturnID && l.SaleLineID == line.SaleLineID {
			return repository.ErrUniqueViolation
		}
		if l.SaleReturnID == line.SaleReturnID && l.LineNo > maxNo {
			maxNo = l.LineNo
		}
	}
	cp := *line
	cp.LineNo = maxNo + 1
	m.s.returnLines = append(m.s.returnLines, cp)
	return nil
}

func (m *memReturns) UpdateLineQty(_ context.Context, lineID string, qty, lineTotal decimal.Decimal, lineCostTotal *decimal.Decimal) error {
	for i, l := range m.s.returnLines {
		if l.ID == lineID {
			m.s.returnLines[i].Qty = qty
			m.s.returnLines[i].LineTotal = lineTotal
			m.s.returnLines[i].LineCostTotal = lineCostTotal
			return nil
		}
	}
	return nil
}

func (m *memReturns) DeleteLine(_ context.Context, lineID string) error {
	for i, l := range m.s.returnLines {
		if l.ID == lineID {
			m.s.returnLines = append(m.s.returnLines[:i], m.s.returnLines[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memReturns) GetLine(_ context.Context, returnID, lineID string) (*entity.SaleReturnLine, error) {
	for _, l := range m.s.returnLines {
		if l.SaleReturnID == returnID && l.ID == lineID {
			cp := l
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memReturns) FindLineBySaleLine(_ context.Context, returnID, saleLineID string) (*entity.SaleReturnLine, error) {
	for _, l := range m.s.returnLines {
		if l.SaleReturnID == returnID && l.SaleLineID == saleLineID {
			cp := l
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memReturns) ListLines(_ context.Context, returnID string) ([]*entity.SaleReturnLine, error) {
	var lines []*entity.SaleReturnLine
	for _, l := range m.s.returnLines {
		if l.SaleReturnID == returnID {
			cp := l
			lines = append(lines, &cp)
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].LineNo < lines[j].LineNo })
	return lines, nil
}

func (m *memReturns) SumReturnedQty(_ context.Context, saleLineID, excludeReturnID string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, l := range m.s.returnLines {
		if l.SaleLineID != saleLineID || l.SaleReturnID == excludeReturnID {
			continue
		}
		ret := m.s.returns[l.SaleReturnID]
		if ret != nil && ret.Status == entity.ReturnStatusCompleted {
			total = total.Add(l.Qty)
		}
	}
	return total, nil
}

func (m *memReturns) CompletedStatsByShift(_ context.Context, shiftID string) (int64, decimal.Decimal, error) {
	var count int64
	total := decimal.Zero
	for _, ret := range m.s.returns {
		if ret.ShiftID == shiftID && ret.Status == entity.ReturnStatusCompleted {
			count++
			total = total.Add(ret.Total)
		}
	}
	return count, total, nil
}

// ── Pagos, contadores, idempotencia ──────────────────────────────────────────

type memPayments struct{ s *memStore }

func (m *memPayments) Create(_ context.Context, p *entity.Payment) error {
	m.s.payments = append(m.s.payments, *p)
	return nil
}

func (m *memPayments) TotalsByShift(_ context.Context, shiftID string) ([]repository.PaymentMethodTotal, error) {
	type key struct {
		method   string
		isRefund bool
	}
	agg := map[key]decimal.Decimal{}
	for _, p := range m.s.payments {
		if p.ShiftID != shiftID {
			continue
		}
		k := key{p.Method, p.IsRefund}
		agg[k] = agg[k].Add(p.Amount)
	}
	var out []repository.PaymentMethodTotal
	for k, total := range agg {
		out = append(out, repository.PaymentMethodTotal{Method: k.method, IsRefund: k.isRefund, Total: total})
	}
	return out, nil
}

type memCounters struct{ s *memStore }

func (m *memCounters) NextPosSaleNumber(_ context.Context, orgID string) (int64, error) {
	m.s.counters[orgID+"|sale"]++
	return m.s.counters[orgID+"|sale"], nil
}

func (m *memCounters) NextPosReturnNumber(_ context.Context, orgID string) (int64, error) {
	m.s.counters[orgID+"|return"]++
	return m.s.counters[orgID+"|return"], nil
}

type memIdempotency struct{ s *memStore }

func (m *memIdempotency) Get(_ context.Context, key, route string) (*entity.IdempotencyRecord, error) {
	rec, ok := m.s.idem[key+"|"+route]
	if !ok {
		return nil, nil
	}
	cp := rec
	return &cp, nil
}

func (m *memIdempotency) Create(_ context.Context, rec *entity.IdempotencyRecord) error {
	k := rec.Key + "|" + rec.Route
	if _, exists := m.s.idem[k]; exists {
		return repository.ErrUniqueViolation
	}
	m.s.idem[k] = *rec
	return nil
}

// ── Catálogo, auditoría, cumplimiento, stock ─────────────────────────────────

type memProducts struct{ s *memStore }

func (m *memProducts) GetByID(_ context.Context, orgID, id string) (*entity.Product, error) {
	p, ok := m.s.products[id]
	if !ok || p.OrganizationID != orgID {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memProducts) GetVariant(_ context.Context, productID, variantID string) (*entity.Variant, error) {
	v, ok := m.s.variants[productID+"|"+variantID]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (m *memProducts) GetStorePrice(_ context.Context, orgID, storeID, productID, variantKey string) (*decimal.Decimal, error) {
	price, ok := m.s.storePrices[orgID+"|"+storeID+"|"+productID+"|"+variantKey]
	if !ok {
		return nil, nil
	}
	return &price, nil
}

func (m *memProducts) GetVariantCost(_ context.Context, orgID, productID, variantKey string) (*decimal.Decimal, error) {
	cost, ok := m.s.costs[orgID+"|"+productID+"|"+variantKey]
	if !ok {
		return nil, nil
	}
	return &cost, nil
}

func (m *memProducts) ListBundleComponents(_ context.Context, productID string) ([]*entity.BundleComponent, error) {
	var out []*entity.BundleComponent
	for _, c := range m.s.bundles[productID] {
		cp := c
		out = append(out, &cp)
	}
	return out, nil
}

type memAudit struct{ s *memStore }

func (m *memAudit) Write(_ context.Context, e *entity.AuditEntry) error {
	m.s.audits = append(m.s.audits, *e)
	return nil
}

type memCompliance struct{ s *memStore }

func (m *memCompliance) GetByStore(_ context.Context, orgID, storeID string) (*entity.StoreComplianceProfile, error) {
	p, ok := m.s.profiles[orgID+"|"+storeID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

type memStock struct{ s *memStore }

func (m *memStock) Apply(_ context.Context, mov *entity.StockMovement) error {
	m.s.stockMovs = append(m.s.stockMovs, *mov)
	k := mov.StoreID + "|" + mov.ProductID + "|" + mov.VariantKey
	m.s.stockLevels[k] = m.s.stockLevels[k].Add(mov.QtyDelta)
	return nil
}

// ── Bus de eventos de prueba ─────────────────────────────────────────────────

type recordedEvent struct {
	Name    string
	Payload any
}

type recordBus struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *recordBus) Publish(_ context.Context, event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{Name: event, Payload: payload})
}

func (b *recordBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, e := range b.events {
		out = append(out, e.Name)
	}
	return out
}
