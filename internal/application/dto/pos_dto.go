package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ErrorResponse cuerpo de error HTTP: Code es el Kind y Message la clave de
// localización estable (ej. posReturnQtyExceeded).
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ─── Turnos ──────────────────────────────────────────────────────────────────

// OpenShiftRequest body para POST /api/pos/shifts/open.
type OpenShiftRequest struct {
	RegisterID  string          `json:"register_id"`
	OpeningCash decimal.Decimal `json:"opening_cash"`
	Notes       *string         `json:"notes,omitempty"`
}

// CloseShiftRequest body para POST /api/pos/shifts/:id/close.
type CloseShiftRequest struct {
	ClosingCashCounted decimal.Decimal `json:"closing_cash_counted"`
	Notes              *string         `json:"notes,omitempty"`
}

// CashMovementRequest body para POST /api/pos/shifts/:id/cash-movements.
type CashMovementRequest struct {
	Type   string          `json:"type"` // PAY_IN | PAY_OUT
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

// ShiftResponse snapshot de un turno de caja.
type ShiftResponse struct {
	ID                 string           `json:"id"`
	StoreID            string           `json:"store_id"`
	RegisterID         string           `json:"register_id"`
	Status             string           `json:"status"`
	OpenedAt           time.Time        `json:"opened_at"`
	OpenedBy           string           `json:"opened_by"`
	ClosedAt           *time.Time       `json:"closed_at,omitempty"`
	ClosedBy           *string          `json:"closed_by,omitempty"`
	OpeningCash        decimal.Decimal  `json:"opening_cash"`
	ClosingCashCounted *decimal.Decimal `json:"closing_cash_counted,omitempty"`
	ExpectedCash       *decimal.Decimal `json:"expected_cash,omitempty"`
	Discrepancy        *decimal.Decimal `json:"discrepancy,omitempty"`
	Notes              *string          `json:"notes,omitempty"`
}

// PaymentMethodReport totales del turno por método de pago.
type PaymentMethodReport struct {
	Method     string          `json:"method"`
	SalesKgs   decimal.Decimal `json:"salesKgs"`
	RefundsKgs decimal.Decimal `json:"refundsKgs"`
	NetKgs     decimal.Decimal `json:"netKgs"`
}

// ShiftReportResponse es el X-report del turno. ExpectedCash usa la fórmula
// única de arqueo: opening + payIn - payOut + cashSales - cashRefunds.
type ShiftReportResponse struct {
	ShiftID      string                `json:"shift_id"`
	OpeningCash  decimal.Decimal       `json:"opening_cash"`
	SalesCount   int64                 `json:"sales_count"`
	SalesTotal   decimal.Decimal       `json:"sales_total"`
	ReturnsCount int64                 `json:"returns_count"`
	ReturnsTotal decimal.Decimal       `json:"returns_total"`
	PayIn        decimal.Decimal       `json:"pay_in"`
	PayOut       decimal.Decimal       `json:"pay_out"`
	CashSales    decimal.Decimal       `json:"cash_sales"`
	CashRefunds  decimal.Decimal       `json:"cash_refunds"`
	ExpectedCash decimal.Decimal       `json:"expected_cash"`
	Methods      []PaymentMethodReport `json:"methods"`
}

// CashMovementResponse entrada registrada en el cajón.
type CashMovementResponse struct {
	ID        string          `json:"id"`
	ShiftID   string          `json:"shift_id"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	CreatedAt time.Time       `json:"created_at"`
}

// ─── Ventas ──────────────────────────────────────────────────────────────────

// SaleDraftLineRequest línea semilla al crear un borrador.
type SaleDraftLineRequest struct {
	ProductID string          `json:"product_id"`
	VariantID *string         `json:"variant_id,omitempty"`
	Qty       decimal.Decimal `json:"qty"`
}

// CreateSaleDraftRequest body para POST /api/pos/sales.
type CreateSaleDraftRequest struct {
	RegisterID    string                 `json:"register_id"`
	CustomerName  *string                `json:"customer_name,omitempty"`
	CustomerPhone *string                `json:"customer_phone,omitempty"`
	Notes         *string                `json:"notes,omitempty"`
	Lines         []SaleDraftLineRequest `json:"lines,omitempty"`
}

// AddSaleLineRequest body para POST /api/pos/sales/:id/lines.
type AddSaleLineRequest struct {
	ProductID string          `json:"product_id"`
	VariantID *string         `json:"variant_id,omitempty"`
	Qty       decimal.Decimal `json:"qty"`
}

// UpdateLineQtyRequest body para PUT .../lines/:lineId.
type UpdateLineQtyRequest struct {
	Qty decimal.Decimal `json:"qty"`
}

// PaymentRequest pago capturado al completar.
type PaymentRequest struct {
	Method      string          `json:"method"` // CASH | CARD | TRANSFER | OTHER
	Amount      decimal.Decimal `json:"amount"`
	ProviderRef *string         `json:"provider_ref,omitempty"`
}

// CompleteSaleRequest body para POST /api/pos/sales/:id/complete.
type CompleteSaleRequest struct {
	Payments []PaymentRequest `json:"payments"`
}

// SaleLineResponse línea de venta.
type SaleLineResponse struct {
	ID            string           `json:"id"`
	ProductID     string           `json:"product_id"`
	VariantID     *string          `json:"variant_id,omitempty"`
	VariantKey    string           `json:"variant_key"`
	Qty           decimal.Decimal  `json:"qty"`
	UnitPrice     decimal.Decimal  `json:"unit_price"`
	LineTotal     decimal.Decimal  `json:"line_total"`
	UnitCost      *decimal.Decimal `json:"unit_cost,omitempty"`
	LineCostTotal *decimal.Decimal `json:"line_cost_total,omitempty"`
}

// SaleResponse snapshot completo de una venta.
type SaleResponse struct {
	ID            string             `json:"id"`
	Number        string             `json:"number"`
	Status        string             `json:"status"`
	StoreID       string             `json:"store_id"`
	RegisterID    string             `json:"register_id"`
	ShiftID       string             `json:"shift_id"`
	CustomerName  *string            `json:"customer_name,omitempty"`
	CustomerPhone *string            `json:"customer_phone,omitempty"`
	Notes         *string            `json:"notes,omitempty"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	Total         decimal.Decimal    `json:"total"`
	KKMStatus     string             `json:"kkm_status"`
	KKMReceiptID  *string            `json:"kkm_receipt_id,omitempty"`
	CompletedAt   *time.Time         `json:"completed_at,omitempty"`
	Lines         []SaleLineResponse `json:"lines"`
}

// ─── Devoluciones ────────────────────────────────────────────────────────────

// ReturnLineRequest línea de devolución referenciando una línea de la venta original.
type ReturnLineRequest struct {
	SaleLineID string          `json:"sale_line_id"`
	Qty        decimal.Decimal `json:"qty"`
}

// CreateReturnDraftRequest body para POST /api/pos/returns.
type CreateReturnDraftRequest struct {
	RegisterID     string              `json:"register_id"`
	OriginalSaleID string              `json:"original_sale_id"`
	Lines          []ReturnLineRequest `json:"lines,omitempty"`
}

// CompleteReturnRequest body para POST /api/pos/returns/:id/complete.
type CompleteReturnRequest struct {
	Payments []PaymentRequest `json:"payments"`
}

// ReturnLineResponse línea de devolución.
type ReturnLineResponse struct {
	ID            string           `json:"id"`
	SaleLineID    string           `json:"sale_line_id"`
	ProductID     string           `json:"product_id"`
	VariantID     *string          `json:"variant_id,omitempty"`
	VariantKey    string           `json:"variant_key"`
	Qty           decimal.Decimal  `json:"qty"`
	UnitPrice     decimal.Decimal  `json:"unit_price"`
	LineTotal     decimal.Decimal  `json:"line_total"`
	UnitCost      *decimal.Decimal `json:"unit_cost,omitempty"`
	LineCostTotal *decimal.Decimal `json:"line_cost_total,omitempty"`
}

// ReturnResponse snapshot completo de una devolución.
type ReturnResponse struct {
	ID             string               `json:"id"`
	Number         string               `json:"number"`
	Status         string               `json:"status"`
	StoreID        string               `json:"store_id"`
	RegisterID     string               `json:"register_id"`
	ShiftID        string               `json:"shift_id"`
	OriginalSaleID string               `json:"original_sale_id"`
	Subtotal       decimal.Decimal      `json:"subtotal"`
	Total          decimal.Decimal      `json:"total"`
	CompletedAt    *time.Time           `json:"completed_at,omitempty"`
	Lines          []ReturnLineResponse `json:"lines"`
}
