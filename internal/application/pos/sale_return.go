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

const (
	routeReturnCreate   = "pos.return.create"
	routeReturnComplete = "pos.return.complete"
)

// ReturnUseCase gestiona devoluciones contra ventas COMPLETED. La cota dura:
// la cantidad devuelta acumulada por línea original nunca excede la vendida,
// validada al editar y revalidada bajo bloqueo al completar.
type ReturnUseCase struct {
	tx   TxRunner
	idem repository.IdempotencyRepository // atado al pool
	bus  EventBus
	log  *logger.Logger
}

// NewReturnUseCase construye el motor de devoluciones.
func NewReturnUseCase(tx TxRunner, idem repository.IdempotencyRepository, bus EventBus, log *logger.Logger) *ReturnUseCase {
	return &ReturnUseCase{tx: tx, idem: idem, bus: bus, log: log}
}

// ReturnLineInput línea semilla de una devolución: referencia la línea original.
type ReturnLineInput struct {
	SaleLineID string
	Qty        decimal.Decimal
}

// CreateReturnDraftInput entrada para abrir un borrador de devolución.
type CreateReturnDraftInput struct {
	OrgID          string
	ActorID        string
	RegisterID     string
	OriginalSaleID string
	Lines          []ReturnLineInput
	IdemKey        string
}

// CreateDraft abre un borrador de devolución bajo un turno OPEN. La venta
// original debe estar COMPLETED y pertenecer a la misma tienda que el turno.
func (uc *ReturnUseCase) CreateDraft(ctx context.Context, in CreateReturnDraftInput) (*dto.ReturnResponse, error) {
	if in.RegisterID == "" {
		return nil, domain.BadRequest("posRegisterRequired")
	}
	var resp *dto.ReturnResponse
	err := uc.tx.RunPOS(ctx, func(r Repos) error {
		var err error
		resp, _, err = RunIdempotent(ctx, r.Idempotency, in.IdemKey, routeReturnCreate, in.ActorID, func() (*dto.ReturnResponse, error) {
			return uc.createDraftInTx(ctx, r, in)
		})
		return err
	})
	if errors.Is(err, ErrIdempotencyRace) {
		return ResolveIdempotencyRace[*dto.ReturnResponse](ctx, uc.idem, in.IdemKey, routeReturnCreate)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (uc *ReturnUseCase) createDraftInTx(ctx context.Context, r Repos, in CreateReturnDraftInput) (*dto.ReturnResponse, error) {
	shift, err := requireOpenShift(ctx, r, in.OrgID, in.RegisterID)
	if err != nil {
		return nil, err
	}
	original, err := r.Sales.GetByID(ctx, in.OrgID, in.OriginalSaleID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, domain.NotFound("posSaleNotFound")
	}
	if original.Status != entity.SaleStatusCompleted {
		return nil, domain.Conflict("posSaleNotCompleted")
	}
	if original.StoreID != shift.StoreID {
		return nil, domain.Conflict("posReturnStoreMismatch")
	}

	number, err := nextReturnNumber(ctx, r.Counters, in.OrgID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	ret := &entity.SaleReturn{
		ID:             uuid.New().String(),
		OrganizationID: in.OrgID,
		Number:         number,
		Status:         entity.ReturnStatusDraft,
		StoreID:        shift.StoreID,
		RegisterID:     in.RegisterID,
		ShiftID:        shift.ID,
		OriginalSaleID: original.ID,
		Subtotal:       decimal.Zero,
		Total:          decimal.Zero,
		CreatedBy:      in.ActorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := r.Returns.Create(ctx, ret); err != nil {
		return nil, err
	}
	for _, l := range in.Lines {
		if _, err := uc.addLineInTx(ctx, r, ret, l.SaleLineID, l.Qty); err != nil {
			return nil, err
		}
	}
	if err := uc.recomputeTotals(ctx, r, ret); err != nil {
		return nil, err
	}
	if err := writeAudit(ctx, r.Audit, in.OrgID, in.ActorID, entity.AuditReturnCreate, "sale_return", ret.ID, nil, ret); err != nil {
		return nil, err
	}
	return uc.returnResponse(ctx, r, ret)
}

// addLineInTx agrega una línea de devolución validando la cota de cantidad.
// La línea toma precio y costo de la línea original; repetir la misma línea
// de venta incrementa la existente.
func (uc *ReturnUseCase) addLineInTx(ctx context.Context, r Repos, ret *entity.SaleReturn, saleLineID string, qty decimal.Decimal) (*entity.SaleReturnLine, error) {
	if !qty.IsPositive() {
		return nil, domain.BadRequest("posInvalidQty")
	}
	origLine, err := r.Sales.GetLine(ctx, ret.OriginalSaleID, saleLineID)
	if err != nil {
		return nil, err
	}
	if origLine == nil {
		return nil, domain.NotFound("posSaleLineNotFound")
	}

	existing, err := r.Returns.FindLineBySaleLine(ctx, ret.ID, saleLineID)
	if err != nil {
		return nil, err
	}
	newQty := qty
	if existing != nil {
		newQty = existing.Qty.Add(qty)
	}
	if err := uc.checkAvailability(ctx, r, ret.ID, origLine, newQty); err != nil {
		return nil, err
	}

	if existing != nil {
		lineTotal := money.Round2(newQty.Mul(existing.UnitPrice))
		var lineCostTotal *decimal.Decimal
		if existing.UnitCost != nil {
			lineCostTotal = money.Ptr(existing.UnitCost.Mul(newQty))
		}
		if err := r.Returns.UpdateLineQty(ctx, existing.ID, newQty, lineTotal, lineCostTotal); err != nil {
			return nil, err
		}
		existing.Qty, existing.LineTotal, existing.LineCostTotal = newQty, lineTotal, lineCostTotal
		return existing, nil
	}

	line := &entity.SaleReturnLine{
		ID:           uuid.New().String(),
		SaleReturnID: ret.ID,
		SaleLineID:   saleLineID,
		ProductID:    origLine.ProductID,
		VariantID:    origLine.VariantID,
		VariantKey:   origLine.VariantKey,
		Qty:          qty,
		UnitPrice:    origLine.UnitPrice,
		LineTotal:    money.Round2(qty.Mul(origLine.UnitPrice)),
		UnitCost:     origLine.UnitCost,
	}
	if origLine.UnitCost != nil {
		line.LineCostTotal = money.Ptr(origLine.UnitCost.Mul(qty))
	}
	if err := r.Returns.CreateLine(ctx, line); err != nil {
		return nil, err
	}
	return line, nil
}

// checkAvailability exige qty <= vendida - ya devuelta (COMPLETED, excluyendo
// el borrador que se edita).
func (uc *ReturnUseCase) checkAvailability(ctx context.Context, r Repos, returnID string, origLine *entity.SaleLine, qty decimal.Decimal) error {
	returned, err := r.Returns.SumReturnedQty(ctx, origLine.ID, returnID)
	if err != nil {
		return err
	}
	if qty.GreaterThan(origLine.Qty.Sub(returned)) {
		return domain.Conflict("posReturnQtyExceeded")
	}
	return nil
}

// AddLine agrega (o incrementa) una línea sobre un borrador de devolución.
func (uc *ReturnUseCase) AddLine(ctx context.Context, orgID, actorID, returnID, saleLineID string, qty decimal.Decimal) (*dto.ReturnResponse, error) {
	var resp *dto.ReturnResponse
	err := uc.tx.RunPOS(ctx, func(r Repos) error {
		ret, err := uc.lockDraft(ctx, r, orgID, returnID)
		if err != nil {
			return err
		}
		line, err := uc.addLineInTx(ctx, r, ret, saleLineID, qty)
		if err != nil {
			return err
		}
		if err := uc.recomputeTotals(ctx, r, ret); err != nil {
			return err
		}
		if err := writeAudit(ctx, r.Audit, orgID, actorID, entity.AuditReturnLineAdd, "sale_return_line", line.ID, nil, line); err != nil {
			return err
		}
		resp, err = uc.returnResponse(ctx, r, ret)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// UpdateLineQty fija la cantidad de una línea de devolución (no incrementa).
func (uc *ReturnUseCase) UpdateLineQty(ctx context.Context, orgID, actorID, returnID, lineID string, qty decimal.Decimal) (*dto.ReturnResponse, error) {
	var resp *dto.ReturnResponse
	err := uc.tx.RunPOS(ctx, func(r Repos) error {
		ret, err := uc.lockDraft(ctx, r, orgID, returnID)
		if err != nil {
			return err
		}
		if !qty.IsPositive() {
			return domain.BadRequest("posInvalidQty")
		}
		line, err := r.Returns.GetLine(ctx, ret.ID, lineID)
		if err != nil {
			return err
		}
		if line == nil {
			return domain.NotFound("posReturnLineNotFound")
		}
		origLine, err := r.Sales.GetLine(ctx, ret.OriginalSaleID, line.SaleLineID)
		if err != nil {
			return err
		}
		if origLine == nil {
			return domain.NotFound("posSaleLineNotFound")
		}
		if err := uc.checkAvailability(ctx, r, ret.ID, origLine, qty); err != nil {
			return err
		}
		before := *line
		lineTotal := money.Round2(qty.Mul(line.UnitPrice))
		var lineCostTotal *decimal.Decimal
		if line.UnitCost != nil {
			lineCostTotal = money.Ptr(line.UnitCost.Mul(qty))
		}
		if err := r.Returns.UpdateLineQty(ctx, line.ID, qty, lineTotal, lineCostTotal); err != nil {
			return err
		}
		line.Qty, line.LineTotal, line.LineCostTotal = qty, lineTotal, lineCostTotal
		if err := uc.recomputeTotals(ctx, r, ret); err != nil {
			return err
		}
		if err := writeAudit(ctx, r.Audit, orgID, actorID, entity.AuditReturnLineUpd, "sale_return_line", line.ID, &before, line); err != nil {
			return err
		}
		resp, err = uc.returnResponse(ctx, r, ret)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// RemoveLine elimina una línea del borrador de devolución.
func (uc *ReturnUseCase) RemoveLine(ctx context.Context, orgID, actorID, returnID, lineID string) (*dto.ReturnResponse, error) {
	var resp *dto.ReturnResponse
	err := uc.tx.RunPOS(ctx, func(r Repos) error {
		ret, err := uc.lockDraft(ctx, r, orgID, returnID)
		if err != nil {
			return err
		}
		line, err := r.Returns.GetLine(ctx, ret.ID, lineID)
		if err != nil {
			return err
		}
		if line == nil {
			return domain.NotFound("posReturnLineNotFound")
		}
		if err := r.Returns.DeleteLine(ctx, line.ID); err != nil {
			return err
		}
		if err := uc.recomputeTotals(ctx, r, ret); err != nil {
			return err
		}
		if err := writeAudit(ctx, r.Audit, orgID, actorID, entity.AuditReturnLineDel, "sale_return_line", line.ID, line, nil); err != nil {
			return err
		}
		resp, err = uc.returnResponse(ctx, r, ret)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// CompleteReturnInput entrada de la completación de devolución.
type CompleteReturnInput struct {
	OrgID    string
	ActorID  string
	ReturnID string
	Payments []PaymentInput
	IdemKey  string
}

// returnSideEffects efectos diferidos a después del commit.
type returnSideEffects struct {
	completedNow bool
	productIDs   []string
	storeID      string
}

// Complete ejecuta la ruta crítica de la devolución bajo bloqueo de fila:
// revalida la cota de cantidades contra la venta original, repone stock línea
// a línea, registra los reembolsos y transiciona a COMPLETED en una sola
// transacción. Una devolución ya COMPLETED devuelve su resultado almacenado.
func (uc *ReturnUseCase) Complete(ctx context.Context, in CompleteReturnInput) (*dto.ReturnResponse, error) {
	var resp *dto.ReturnResponse
	var replayed bool
	var side returnSideEffects
	err := uc.tx.RunPOS(ctx, func(r Repos) error {
		var err error
		resp, replayed, err = RunIdempotent(ctx, r.Idempotency, in.IdemKey, routeReturnComplete, in.ActorID, func() (*dto.ReturnResponse, error) {
			return uc.completeInTx(ctx, r, in, &side)
		})
		return err
	})
	if errors.Is(err, ErrIdempotencyRace) {
		return ResolveIdempotencyRace[*dto.ReturnResponse](ctx, uc.idem, in.IdemKey, routeReturnComplete)
	}
	if err != nil {
		return nil, err
	}

	if side.completedNow && !replayed {
		uc.bus.Publish(ctx, EventInventoryUpdated, map[string]any{
			"store_id":    side.storeID,
			"product_ids": side.productIDs,
		})
		uc.bus.Publish(ctx, EventSaleRefunded, resp)
		uc.log.Info().Str("return_id", resp.ID).Str("number", resp.Number).Msg("devolución completada")
	}
	return resp, nil
}

func (uc *ReturnUseCase) completeInTx(ctx context.Context, r Repos, in CompleteReturnInput, side *returnSideEffects) (*dto.ReturnResponse, error) {
	ret, err := r.Returns.GetByIDForUpdate(ctx, in.OrgID, in.ReturnID)
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, domain.NotFound("posReturnNotFound")
	}
	if ret.Status == entity.ReturnStatusCompleted {
		return uc.returnResponse(ctx, r, ret)
	}

	shift, err := r.Shifts.GetByID(ctx, in.OrgID, ret.ShiftID)
	if err != nil {
		return nil, err
	}
	if shift == nil || !shift.IsOpen() {
		return nil, domain.Conflict("posShiftNotOpen")
	}
	if shift.RegisterID != ret.RegisterID {
		return nil, domain.Conflict("posShiftMismatch")
	}

	lines, err := r.Returns.ListLines(ctx, ret.ID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domain.BadRequest("posEmptyOrder")
	}

	// Revalidación bajo bloqueo: otra devolución pudo completarse entre la
	// edición del borrador y este punto.
	for _, line := range lines {
		origLine, err := r.Sales.GetLine(ctx, ret.OriginalSaleID, line.SaleLineID)
		if err != nil {
			return nil, err
		}
		if origLine == nil {
			return nil, domain.NotFound("posSaleLineNotFound")
		}
		if err := uc.checkAvailability(ctx, r, ret.ID, origLine, line.Qty); err != nil {
			return nil, err
		}
	}

	payments, err := normalizePayments(in.Payments, ret.Total)
	if err != nil {
		return nil, err
	}

	before := *ret
	now := time.Now()

	// Reposición de stock: un movimiento positivo por línea, en orden.
	productSet := map[string]bool{}
	for _, line := range lines {
		if err := r.Stock.Apply(ctx, &entity.StockMovement{
			ID:             uuid.New().String(),
			OrganizationID: in.OrgID,
			StoreID:        ret.StoreID,
			ProductID:      line.ProductID,
			VariantID:      line.VariantID,
			VariantKey:     line.VariantKey,
			QtyDelta:       line.Qty,
			Type:           entity.StockMovementReturn,
			ReferenceType:  entity.StockRefReturn,
			ReferenceID:    ret.ID,
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

	// Reembolsos: filas de pago con is_refund = true, inmutables.
	for _, p := range payments {
		if err := r.Payments.Create(ctx, &entity.Payment{
			ID:             uuid.New().String(),
			OrganizationID: in.OrgID,
			ShiftID:        ret.ShiftID,
			SaleReturnID:   &ret.ID,
			Method:         p.Method,
			Amount:         p.Amount,
			IsRefund:       true,
			ProviderRef:    p.ProviderRef,
			CreatedAt:      now,
		}); err != nil {
			return nil, err
		}
	}

	ret.Status = entity.ReturnStatusCompleted
	ret.CompletedAt = &now
	ret.UpdatedAt = now
	if in.IdemKey != "" {
		ret.CompletionKey = &in.IdemKey
	}
	if err := r.Returns.MarkCompleted(ctx, ret); err != nil {
		return nil, err
	}
	if err := writeAudit(ctx, r.Audit, in.OrgID, in.ActorID, entity.AuditReturnComplete, "sale_return", ret.ID, &before, ret); err != nil {
		return nil, err
	}
	side.completedNow = true
	side.storeID = ret.StoreID
	return uc.returnResponse(ctx, r, ret)
}

// GetReturn devuelve el snapshot completo de una devolución con sus líneas.
func (uc *ReturnUseCase) GetReturn(ctx context.Context, orgID, returnID string) (*dto.ReturnResponse, error) {
	var resp *dto.ReturnResponse
	err := uc.tx.RunPOS(ctx, func(r Repos) error {
		ret, err := r.Returns.GetByID(ctx, orgID, returnID)
		if err != nil {
			return err
		}
		if ret == nil {
			return domain.NotFound("posReturnNotFound")
		}
		resp, err = uc.returnResponse(ctx, r, ret)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (uc *ReturnUseCase) lockDraft(ctx context.Context, r Repos, orgID, returnID string) (*entity.SaleReturn, error) {
	ret, err := r.Returns.GetByIDForUpdate(ctx, orgID, returnID)
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, domain.NotFound("posReturnNotFound")
	}
	if !ret.IsDraft() {
		return nil, domain.Conflict("posReturnNotDraft")
	}
	return ret, nil
}

func (uc *ReturnUseCase) recomputeTotals(ctx context.Context, r Repos, ret *entity.SaleReturn) error {
	lines, err := r.Returns.ListLines(ctx, ret.ID)
	if err != nil {
		return err
	}
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal)
	}
	subtotal = money.Round2(subtotal)
	ret.Subtotal, ret.Total = subtotal, subtotal
	return r.Returns.UpdateTotals(ctx, ret.ID, subtotal, subtotal)
}

func (uc *ReturnUseCase) returnResponse(ctx context.Context, r Repos, ret *entity.SaleReturn) (*dto.ReturnResponse, error) {
	lines, err := r.Returns.ListLines(ctx, ret.ID)
	if err != nil {
		return nil, err
	}
	resp := &dto.ReturnResponse{
		ID:             ret.ID,
		Number:         ret.Number,
		Status:         ret.Status,
		StoreID:        ret.StoreID,
		RegisterID:     ret.RegisterID,
		ShiftID:        ret.ShiftID,
		OriginalSaleID: ret.OriginalSaleID,
		Subtotal:       ret.Subtotal,
		Total:          ret.Total,
		CompletedAt:    ret.CompletedAt,
		Lines:          make([]dto.ReturnLineResponse, 0, len(lines)),
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, dto.ReturnLineResponse{
			ID:         l.ID,
			SaleLineID: l.SaleLineID,
			ProductID:  l.ProductID,
			VariantID:  l.VariantID,
			VariantKey: l.VariantKey,
			Qty:        l.Qty,
			UnitPrice:  l.UnitPrice,
			LineTotal:  l.LineTotal,
		})
	}
	return resp, nil
}
