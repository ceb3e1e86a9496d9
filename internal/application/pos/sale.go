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

// Rutas de idempotencia del motor de ventas.
const (
	routeSaleCreate   = "pos.sale.create"
	routeSaleComplete = "pos.sale.complete"
)

// SaleUseCase es el motor de borradores y completación de ventas POS.
// Toda mutación corre dentro de una sola transacción; la completación toma un
// bloqueo de fila sobre la venta para serializar intentos concurrentes sobre
// la misma entidad (ventas distintas avanzan en paralelo).
type SaleUseCase struct {
	tx     TxRunner
	idem   repository.IdempotencyRepository // atado al pool
	fiscal *Fiscalizer
	bus    EventBus
	log    *logger.Logger
}

// NewSaleUseCase construye el motor de ventas.
func NewSaleUseCase(tx TxRunner, idem repository.IdempotencyRepository, fiscal *Fiscalizer, bus EventBus, log *logger.Logger) *SaleUseCase {
	return &SaleUseCase{tx: tx, idem: idem, fiscal: fiscal, bus: bus, log: log}
}

// DraftLineInput línea semilla de un borrador.
type DraftLineInput struct {
	ProductID string
	VariantID *string
	Qty       decimal.Decimal
}

// CreateSaleDraftInput entrada para crear (o reutilizar) un borrador.
type CreateSaleDraftInput struct {
	OrgID         string
	ActorID       string
	RegisterID    string
	CustomerName  *string
	CustomerPhone *string
	Notes         *string
	Lines         []DraftLineInput
	IdemKey       string
}

// CreateDraft crea un borrador bajo un turno OPEN. Si el mismo actor ya tiene
// un borrador en ese turno y caja, se reutiliza en lugar de duplicar — se
// verifica antes de insertar y otra vez si el constraint único detecta una
// carrera, devolviendo el ganador concurrente.
func (uc *SaleUseCase) CreateDraft(ctx context.Context, in CreateSaleDraftInput) (*dto.SaleResponse, error) {
	if in.RegisterID == "" {
		return nil, domain.BadRequest("posRegisterRequired")
	}

	var resp *dto.SaleResponse
	err := uc.tx.RunPOS(ctx, func(r Repos) error {
		var err error
		resp, _, err = RunIdempotent(ctx, r.Idempotency, in.IdemKey, routeSaleCreate, in.ActorID, func() (*dto.SaleResponse, error) {
			return uc.createDraftInTx(ctx, r, in)
		})
		return err
	})
	if errors.Is(err, ErrIdempotencyRace) {
		return ResolveIdempotencyRace[*dto.SaleResponse](ctx, uc.idem, in.IdemKey, routeSaleCreate)
	}
	if errors.Is(err, repository.ErrUniqueViolation) {
		// Carrera del borrador único: la tx del perdedor se revierte; se relee
		// el borrador del ganador en una transacción nueva.
		return uc.findExistingDraft(ctx, in)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (uc *SaleUseCase) createDraftInTx(ctx context.Context, r Repos, in CreateSaleDraftInput) (*dto.SaleResponse, error) {
	shift, err := requireOpenShift(ctx, r, in.OrgID, in.RegisterID)
	if err != nil {
		return nil, err
	}
	existing, err := r.Sales.FindDraft(ctx, in.OrgID, shift.ID, in.RegisterID, in.ActorID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return uc.saleResponse(ctx, r, existing)
	}

	number, err := nextSaleNumber(ctx, r.Counters, in.OrgID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	sale := &entity.SaleOrder{
		ID:             uuid.New().String(),
		OrganizationID: in.OrgID,
		Number:         number,
		Status:         entity.SaleStatusDraft,
		StoreID:        shift.StoreID,
		RegisterID:     in.RegisterID,
		ShiftID:        shift.ID,
		CustomerName:   in.CustomerName,
		CustomerPhone:  in.CustomerPhone,
		Notes:          in.Notes,
		Subtotal:       decimal.Zero,
		Total:          decimal.Zero,
		KKMStatus:      entity.KKMStatusNotSent,
		CreatedBy:      in.ActorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := r.Sales.Create(ctx, sale); err != nil {
		return nil, err
	}

	pricing := NewPricingResolver(r.Products)
	for _, l := range in.Lines {
		if _, err := uc.addLineInTx(ctx, r, pricing, sale, l.ProductID, l.VariantID, l.Qty); err != nil {
			return nil, err
		}
	}
	if _, err := uc.recomputeTotals(ctx, r, sale); err != nil {
		return nil, err
	}
	if err := writeAudit(ctx, r.Audit, in.OrgID, in.ActorID, entity.AuditSaleDraftCreate, "sale_order", sale.ID, nil, sale); err != nil {
		return nil, err
	}
	return uc.saleResponse(ctx, r, sale)
}

// findExistingDraft relee el borrador ganador tras perder la carrera del insert.
func (uc *SaleUseCase) findExistingDraft(ctx context.Context, in CreateSaleDraftInput) (*dto.SaleResponse, error) {
	var resp *dto.SaleResponse
	err := uc.tx.RunPOS(ctx, func(r Repos) error {
		shift, err := requireOpenShift(ctx, r, in.OrgID, in.RegisterID)
		if err != nil {
			return err
		}
		winner, err := r.Sales.FindDraft(ctx, in.OrgID, shift.ID, in.RegisterID, in.ActorID)
		if err != nil {
			return err
		}
		if winner == nil {
			return domain.Conflict("posDraftRace")
		}
		resp, err = uc.saleResponse(ctx, r, winner)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// addLineInTx resuelve precio y costo y agrega la línea al borrador.
// Si ya existe una línea para (product, variant_key) incrementa su cantidad;
// nunca duplica.
func (uc *SaleUseCase) addLineInTx(ctx context.Context, r Repos, pricing *PricingResolver, sale *entity.SaleOrder, productID string, variantID *string, qty decimal.Decimal) (*entity.SaleLine, error) {
	if !qty.IsPositive() {
		return nil, domain.BadRequest("posInvalidQty")
	}
	price, err := pricing.ResolveUnitPrice(ctx, sale.OrganizationID, sale.StoreID, productID, variantID)
	if err != nil {
		return nil, err
	}
	existing, err := r.Sales.FindLineByProduct(ctx, sale.ID, productID, price.VariantKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		newQty := existing.Qty.Add(qty)
		lineTotal := money.Round2(newQty.Mul(existing.UnitPrice))
		var lineCostTotal *decimal.Decimal
		if existing.UnitCost != nil {
			lineCostTotal = money.Ptr(existing.UnitCost.Mul(newQty))
		}
		if err := r.Sales.UpdateLineQty(ctx, existing.ID, newQty, lineTotal, lineCostTotal); err != nil {
			return nil, err
		}
		existing.Qty = newQty
		existing.LineTotal = lineTotal
		existing.LineCostTotal = lineCostTotal
		return existing, nil
	}

	unitCost, err := pricing.ResolveUnitCost(ctx, sale.OrganizationID, productID, price.VariantKey, price.IsBundle)
	if err != nil {
		return nil, err
	}
	line := &entity.SaleLine{
		ID:         uuid.New().String(),
		SaleID:     sale.ID,
		ProductID:  productID,
		VariantID:  price.VariantID,
		VariantKey: price.VariantKey,
		Qty:        qty,
		UnitPrice:  price.UnitPrice,
		LineTotal:  money.Round2(qty.Mul(price.UnitPrice)),
		UnitCost:   unitCost,
	}
	if unitCost != nil {
		line.LineCostTotal = money.Ptr(unitCost.Mul(qty))
	}
	if err := r.Sales.CreateLine(ctx, line); err != nil {
		return nil, err
	}
	return line, nil
}

// AddLineInput entrada para agregar una línea a un borrador existente.
type AddLineInput struct {
	OrgID     string
	ActorID   string
	SaleID    string
	ProductID string
	VariantID *string
	Qty       decimal.Decimal
}

// AddLine agrega una línea a un borrador. Un (product, variant_key) repetido es
// CONFLICT: el caller debe actualizar la cantidad de la línea existente.
func (uc *SaleUseCase) AddLine(ctx context.Context, in AddLineInput) (*dto.SaleResponse, error) {
	var resp *dto.SaleResponse
	err := uc.tx.RunPOS(ctx, func(r Repos) error {
		sale, err := uc.lockDraft(ctx, r, in.OrgID, in.SaleID)
		if err != nil {
			return err
		}
		if !in.Qty.IsPositive() {
			return domain.BadRequest("posInvalidQty")
		}
		pricing := NewPricingResolver(r.Products)
		price, err := pricing.ResolveUnitPrice(ctx, in.OrgID, sale.StoreID, in.ProductID, in.VariantID)
		if err != nil {
			return err
		}
		dup, err := r.Sales.FindLineByProduct(ctx, sale.ID, in.ProductID, price.VariantKey)
		if err != nil {
			return err
		}
		if dup != nil {
			return domain.Conflict("posDuplicateLine")
		}
		unitCost, err := pricing.ResolveUnitCost(ctx, in.OrgID, in.ProductID, price.VariantKey, price.IsBundle)
		if err != nil {
			return err
		}
		line := &entity.SaleLine{
			ID:         uuid.New().String(),
			SaleID:     sale.ID,
			ProductID:  in.ProductID,
			VariantID:  price.VariantID,
			VariantKey: price.VariantKey,
			Qty:        in.Qty,
			UnitPrice:  price.UnitPrice,
			LineTotal:  money.Round2(in.Qty.Mul(price.UnitPrice)),
			UnitCost:   unitCost,
		}
		if unitCost != nil {
			line.LineCostTotal = money.Ptr(unitCost.Mul(in.Qty))
		}
		if err := r.Sales.CreateLine(ctx, line); err != nil {
			return err
		}
		if _, err := uc.recomputeTotals(ctx, r, sale); err != nil {
			return err
		}
		if err := writeAudit(ctx, r.Audit, in.OrgID, in.ActorID, entity.AuditSaleLineAdd, "sale_line", line.ID, nil, line); err != nil {
			return err
		}
		resp, err = uc.saleResponse(ctx, r, sale)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// UpdateLineQty cambia la cantidad de una línea del borrador y recalcula totales.
func (uc *SaleUseCase) UpdateLineQty(ctx context.Context, orgID, actorID, saleID, lineID string, qty decimal.Decimal) (*dto.SaleResponse, error) {
	var resp *dto.SaleResponse
	err := uc.tx.RunPOS(ctx, func(r Repos) error {
		sale, err := uc.lockDraft(ctx, r, orgID, saleID)
		if err != nil {
			return err
		}
		if !qty.IsPositive() {
			return domain.BadRequest("posInvalidQty")
		}
		line, err := r.Sales.GetLine(ctx, sale.ID, lineID)
		if err != nil {
			return err
		}
		if line == nil {
			return domain.NotFound("posSaleLineNotFound")
		}
		before := *line
		lineTotal := money.Round2(qty.Mul(line.UnitPrice))
		var lineCostTotal *decimal.Decimal
		if line.UnitCost != nil {
			lineCostTotal = money.Ptr(line.UnitCost.Mul(qty))
		}
		if err := r.Sales.UpdateLineQty(ctx, line.ID, qty, lineTotal, lineCostTotal); err != nil {
			return err
		}
		line.Qty, line.LineTotal, line.LineCostTotal = qty, lineTotal, lineCostTotal
		if _, err := uc.recomputeTotals(ctx, r, sale); err != nil {
			return err
		}
		if err := writeAudit(ctx, r.Audit, orgID, actorID, entity.AuditSaleLineUpdate, "sale_line", line.ID, &before, line); err != nil {
			return err
		}
		resp, err = uc.saleResponse(ctx, r, sale)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// RemoveLine elimina una línea del borrador y recalcula totales.
func (uc *SaleUseCase) RemoveLine(ctx context.Context, orgID, actorID, saleID, lineID string) (*dto.SaleResponse, error) {
	var resp *dto.SaleResponse
	err := uc.tx.RunPOS(ctx, func(r Repos) error {
		sale, err := uc.lockDraft(ctx, r, orgID, saleID)
		if err != nil {
			return err
		}
		line, err := r.Sales.GetLine(ctx, sale.ID, lineID)
		if err != nil {
			return err
		}
		if line == nil {
			return domain.NotFound("posSaleLineNotFound")
		}
		if err := r.Sales.DeleteLine(ctx, line.ID); err != nil {
			return err
		}
		if _, err := uc.recomputeTotals(ctx, r, sale); err != nil {
			return err
		}
		if err := writeAudit(ctx, r.Audit, orgID, actorID, entity.AuditSaleLineRemove, "sale_line", line.ID, line, nil); err != nil {
			return err
		}
		resp, err = uc.saleResponse(ctx, r, sale)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Cancel anula un borrador (solo desde DRAFT; la anulación es terminal).
func (uc *SaleUseCase) Cancel(ctx context.Context, orgID, actorID, saleID string) (*dto.SaleResponse, error) {
	var resp *dto.SaleResponse
	err := uc.tx.RunPOS(ctx, func(r Repos) error {
		sale, err := uc.lockDraft(ctx, r, orgID, saleID)
		if err != nil {
			return err
		}
		before := *sale
		sale.Status = entity.SaleStatusCanceled
		sale.UpdatedAt = time.Now()
		if err := r.Sales.UpdateStatus(ctx, sale.ID, entity.SaleStatusCanceled); err != nil {
			return err
		}
		if err := writeAudit(ctx, r.Audit, orgID, actorID, entity.AuditSaleCancel, "sale_order", sale.ID, &before, sale); err != nil {
			return err
		}
		resp, err = uc.saleResponse(ctx, r, sale)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// PaymentInput pago capturado al completar una venta o devolución.
type PaymentInput struct {
	Method      string
	Amount      decimal.Decimal
	ProviderRef *string
}

// CompleteSaleInput entrada de la ruta crítica.
type CompleteSaleInput struct {
	OrgID    string
	ActorID  string
	SaleID   string
	Payments []PaymentInput
	IdemKey  string
}

// saleSideEffects acumula lo que debe ocurrir estrictamente después del commit.
type saleSideEffects struct {
	completedNow bool
	fiscalDraft  *entity.FiscalReceiptDraft
	productIDs   []string
	storeID      string
}

// Complete ejecuta la ruta crítica de la venta bajo bloqueo de fila:
// valida turno y pagos, descuenta stock línea a línea, inserta pagos y
// transiciona a COMPLETED en una sola transacción. Una venta ya COMPLETED
// devuelve el resultado almacenado sin repetir efectos (idempotencia por
// estado, además de la tabla de claves). La fiscalización y los eventos se
// despachan después del commit y jamás bloquean ni revierten la venta.
// Por eso el snapshot de idempotencia refleja el estado fiscal previo al
// despacho: un replay puede reportar kkmStatus NOT_SENT para una venta ya
// SENT; el estado vigente se relee con GetSale.
func (uc *SaleUseCase) Complete(ctx context.Context, in CompleteSaleInput) (*dto.SaleResponse, error) {
	var resp *dto.SaleResponse
	var replayed bool
	var side saleSideEffects
	err := uc.tx.RunPOS(ctx, func(r Repos) error {
		var err error
		resp, replayed, err = RunIdempotent(ctx, r.Idempotency, in.IdemKey, routeSaleComplete, in.ActorID, func() (*dto.SaleResponse, error) {
			return uc.completeInTx(ctx, r, in, &side)
		})
		return err
	})
	if errors.Is(err, ErrIdempotencyRace) {
		return ResolveIdempotencyRace[*dto.SaleResponse](ctx, uc.idem, in.IdemKey, routeSaleComplete)
	}
	if err != nil {
		return nil, err
	}

	if side.completedNow && !replayed {
		if side.fiscalDraft != nil {
			status, receiptID := uc.fiscal.Dispatch(ctx, side.fiscalDraft)
			resp.KKMStatus = status
			resp.KKMReceiptID = receiptID
		}
		uc.bus.Publish(ctx, EventInventoryUpdated, map[string]any{
			"store_id":    side.storeID,
			"product_ids": side.productIDs,
		})
		uc.bus.Publish(ctx, EventSaleCompleted, resp)
		uc.log.Info().Str("sale_id", resp.ID).Str("number", resp.Number).Msg("venta completada")
	}
	return resp, nil
}

func (uc *SaleUseCase) completeInTx(ctx context.Context, r Repos, in CompleteSaleInput, side *saleSideEffects) (*dto.SaleResponse, error) {
	sale, err := r.Sales.GetByIDForUpdate(ctx, in.OrgID, in.SaleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, domain.NotFound("posSaleNotFound")
	}
	// Idempotencia por estado: una venta ya completada devuelve su resultado
	// sin tocar stock, pagos ni turno.
	if sale.Status == entity.SaleStatusCompleted {
		return uc.saleResponse(ctx, r, sale)
	}
	if sale.Status != entity.SaleStatusDraft {
		return nil, domain.Conflict("posSaleNotDraft")
	}

	// El turno almacenado debe seguir OPEN y coincidir con la caja del borrador
	// (defensa contra reasignación de caja a mitad de borrador).
	shift, err := r.Shifts.GetByID(ctx, in.OrgID, sale.ShiftID)
	if err != nil {
		return nil, err
	}
	if shift == nil || !shift.IsOpen() {
		return nil, domain.Conflict("posShiftNotOpen")
	}
	if shift.RegisterID != sale.RegisterID {
		return nil, domain.Conflict("posShiftMismatch")
	}

	lines, err := r.Sales.ListLines(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domain.BadRequest("posEmptyOrder")
	}

	payments, err := normalizePayments(in.Payments, sale.Total)
	if err != nil {
		return nil, err
	}

	before := *sale
	now := time.Now()

	// Stock: un movimiento por línea, en el orden de captura, misma transacción.
	productSet := map[string]bool{}
	for _, line := range lines {
		if err := r.Stock.Apply(ctx, &entity.StockMovement{
			ID:             uuid.New().String(),
			OrganizationID: in.OrgID,
			StoreID:        sale.StoreID,
			ProductID:      line.ProductID,
			VariantID:      line.VariantID,
			VariantKey:     line.VariantKey,
			QtyDelta:       line.Qty.Neg(),
			Type:           entity.StockMovementSale,
			ReferenceType:  entity.StockRefSale,
			ReferenceID:    sale.ID,
			CreatedAt:      now,
			CreatedBy:      in.ActorID,
		}); err != nil {
			return nil, err
		}
		if !productSet[line.ProductID] {
			productSet[line.ProductID] = true
			side.productIDs = append(side.productIDs, line.ProductID)
		}
	}

	// Pagos: una fila por pago normalizado, en el orden del caller.
	for _, p := range payments {
		if err := r.Payments.Create(ctx, &entity.Payment{
			ID:             uuid.New().String(),
			OrganizationID: in.OrgID,
			ShiftID:        sale.ShiftID,
			SaleID:         &sale.ID,
			Method:         p.Method,
			Amount:         p.Amount,
			IsRefund:       false,
			ProviderRef:    p.ProviderRef,
			CreatedAt:      now,
		}); err != nil {
			return nil, err
		}
	}

	sale.Status = entity.SaleStatusCompleted
	sale.CompletedAt = &now
	sale.UpdatedAt = now
	if in.IdemKey != "" {
		sale.CompletionKey = &in.IdemKey
	}
	if err := r.Sales.MarkCompleted(ctx, sale); err != nil {
		return nil, err
	}

	// Perfil de cumplimiento: construir el borrador fiscal dentro de la tx,
	// pero no invocar el adaptador hasta después del commit.
	profile, err := r.Compliance.GetByStore(ctx, in.OrgID, sale.StoreID)
	if err != nil {
		return nil, err
	}
	if profile.ShouldFiscalize() {
		draft, err := buildFiscalDraft(ctx, r, sale, lines, payments, profile.KKMProviderKey)
		if err != nil {
			return nil, err
		}
		side.fiscalDraft = draft
	}

	if err := writeAudit(ctx, r.Audit, in.OrgID, in.ActorID, entity.AuditSaleComplete, "sale_order", sale.ID, &before, sale); err != nil {
		return nil, err
	}
	side.completedNow = true
	side.storeID = sale.StoreID
	return uc.saleResponse(ctx, r, sale)
}

// RetryFiscalization reintenta el envío al proveedor de una venta COMPLETED
// con kkmStatus distinto de SENT. Si ya está SENT devuelve el estado actual.
// El intento y su resultado se auditan siempre, con éxito o sin él.
func (uc *SaleUseCase) RetryFiscalization(ctx context.Context, orgID, actorID, saleID string) (*dto.SaleResponse, error) {
	var draft *entity.FiscalReceiptDraft
	var resp *dto.SaleResponse
	err := uc.tx.RunPOS(ctx, func(r Repos) error {
		sale, err := r.Sales.GetByID(ctx, orgID, saleID)
		if err != nil {
			return err
		}
		if sale == nil {
			return domain.NotFound("posSaleNotFound")
		}
		if sale.Status != entity.SaleStatusCompleted {
			return domain.Conflict("posSaleNotCompleted")
		}
		resp, err = uc.saleResponse(ctx, r, sale)
		if err != nil {
			return err
		}
		if sale.KKMStatus == entity.KKMStatusSent {
			return nil
		}
		profile, err := r.Compliance.GetByStore(ctx, orgID, sale.StoreID)
		if err != nil {
			return err
		}
		if !profile.ShouldFiscalize() {
			return domain.Conflict("posFiscalizationDisabled")
		}
		lines, err := r.Sales.ListLines(ctx, sale.ID)
		if err != nil {
			return err
		}
		draft, err = buildFiscalDraft(ctx, r, sale, lines, nil, profile.KKMProviderKey)
		return err
	})
	if err != nil {
		return nil, err
	}
	if draft == nil {
		// Ya estaba SENT: no-op.
		return resp, nil
	}

	before := map[string]any{"kkm_status": resp.KKMStatus, "kkm_receipt_id": resp.KKMReceiptID}
	status, receiptID := uc.fiscal.Dispatch(ctx, draft)
	resp.KKMStatus = status
	resp.KKMReceiptID = receiptID

	auditErr := uc.tx.RunPOS(ctx, func(r Repos) error {
		return writeAudit(ctx, r.Audit, orgID, actorID, entity.AuditSaleKKMRetry, "sale_order", saleID,
			before, map[string]any{"kkm_status": status, "kkm_receipt_id": receiptID})
	})
	if auditErr != nil {
		uc.log.Error().Err(auditErr).Str("sale_id", saleID).Msg("auditoría de reintento KKM")
	}
	return resp, nil
}

// GetSale devuelve el snapshot completo de una venta con sus líneas.
func (uc *SaleUseCase) GetSale(ctx context.Context, orgID, saleID string) (*dto.SaleResponse, error) {
	var resp *dto.SaleResponse
	err := uc.tx.RunPOS(ctx, func(r Repos) error {
		sale, err := r.Sales.GetByID(ctx, orgID, saleID)
		if err != nil {
			return err
		}
		if sale == nil {
			return domain.NotFound("posSaleNotFound")
		}
		resp, err = uc.saleResponse(ctx, r, sale)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// lockDraft toma el bloqueo de fila y exige estado DRAFT.
func (uc *SaleUseCase) lockDraft(ctx context.Context, r Repos, orgID, saleID string) (*entity.SaleOrder, error) {
	sale, err := r.Sales.GetByIDForUpdate(ctx, orgID, saleID)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, domain.NotFound("posSaleNotFound")
	}
	if !sale.IsDraft() {
		return nil, domain.Conflict("posSaleNotDraft")
	}
	return sale, nil
}

// recomputeTotals fija subtotal = total = suma de line_total tras cada mutación.
func (uc *SaleUseCase) recomputeTotals(ctx context.Context, r Repos, sale *entity.SaleOrder) ([]*entity.SaleLine, error) {
	lines, err := r.Sales.ListLines(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal)
	}
	subtotal = money.Round2(subtotal)
	sale.Subtotal, sale.Total = subtotal, subtotal
	if err := r.Sales.UpdateTotals(ctx, sale.ID, subtotal, subtotal); err != nil {
		return nil, err
	}
	return lines, nil
}

func (uc *SaleUseCase) saleResponse(ctx context.Context, r Repos, sale *entity.SaleOrder) (*dto.SaleResponse, error) {
	lines, err := r.Sales.ListLines(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	resp := &dto.SaleResponse{
		ID:            sale.ID,
		Number:        sale.Number,
		Status:        sale.Status,
		StoreID:       sale.StoreID,
		RegisterID:    sale.RegisterID,
		ShiftID:       sale.ShiftID,
		CustomerName:  sale.CustomerName,
		CustomerPhone: sale.CustomerPhone,
		Notes:         sale.Notes,
		Subtotal:      sale.Subtotal,
		Total:         sale.Total,
		KKMStatus:     sale.KKMStatus,
		KKMReceiptID:  sale.KKMReceiptID,
		CompletedAt:   sale.CompletedAt,
		Lines:         make([]dto.SaleLineResponse, 0, len(lines)),
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, dto.SaleLineResponse{
			ID:            l.ID,
			ProductID:     l.ProductID,
			VariantID:     l.VariantID,
			VariantKey:    l.VariantKey,
			Qty:           l.Qty,
			UnitPrice:     l.UnitPrice,
			LineTotal:     l.LineTotal,
			UnitCost:      l.UnitCost,
			LineCostTotal: l.LineCostTotal,
		})
	}
	return resp, nil
}

// normalizePayments redondea a 2 decimales, descarta montos cero, valida el
// método contra la enumeración cerrada y exige que la suma case con el total
// dentro de la tolerancia de 0.01.
func normalizePayments(in []PaymentInput, total decimal.Decimal) ([]PaymentInput, error) {
	out := make([]PaymentInput, 0, len(in))
	sum := decimal.Zero
	for _, p := range in {
		if !entity.ValidPaymentMethod(p.Method) {
			return nil, domain.BadRequest("posInvalidPaymentMethod")
		}
		amount := money.Round2(p.Amount)
		if amount.IsZero() {
			continue
		}
		if amount.IsNegative() {
			return nil, domain.BadRequest("posInvalidAmount")
		}
		sum = sum.Add(amount)
		out = append(out, PaymentInput{Method: p.Method, Amount: amount, ProviderRef: p.ProviderRef})
	}
	if len(out) == 0 {
		return nil, domain.BadRequest("posPaymentRequired")
	}
	if !money.WithinTolerance(sum, total) {
		return nil, domain.BadRequest("posPaymentMismatch")
	}
	return out, nil
}

// buildFiscalDraft arma el recibo para el proveedor KKM con nombres de producto
// resueltos dentro de la misma transacción.
func buildFiscalDraft(ctx context.Context, r Repos, sale *entity.SaleOrder, lines []*entity.SaleLine, payments []PaymentInput, providerKey string) (*entity.FiscalReceiptDraft, error) {
	draft := &entity.FiscalReceiptDraft{
		SaleID:      sale.ID,
		Number:      sale.Number,
		StoreID:     sale.StoreID,
		ProviderKey: providerKey,
		Total:       sale.Total,
	}
	for _, l := range lines {
		name := l.ProductID
		if product, err := r.Products.GetByID(ctx, sale.OrganizationID, l.ProductID); err == nil && product != nil {
			name = product.Name
		}
		draft.Lines = append(draft.Lines, entity.FiscalReceiptLine{
			ProductID:  l.ProductID,
			Name:       name,
			VariantKey: l.VariantKey,
			Qty:        l.Qty,
			UnitPrice:  l.UnitPrice,
			LineTotal:  l.LineTotal,
		})
	}
	for _, p := range payments {
		draft.Payments = append(draft.Payments, entity.FiscalReceiptPayment{Method: p.Method, Amount: p.Amount})
	}
	return draft, nil
}
