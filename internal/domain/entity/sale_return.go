package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una devolución POS. DRAFT -> COMPLETED (terminal).
const (
	ReturnStatusDraft     = "DRAFT"
	ReturnStatusCompleted = "COMPLETED"
)

// SaleReturn es una devolución contra exactamente una venta COMPLETED original,
// en la misma tienda que el turno bajo el que se registra.
type SaleReturn struct {
	ID             string
	OrganizationID string
	Number         string // consecutivo humano: SR-000123
	Status         string
	StoreID        string
	RegisterID     string
	ShiftID        string
	OriginalSaleID string
	Subtotal       decimal.Decimal
	Total          decimal.Decimal
	CreatedBy      string
	CompletedAt    *time.Time
	CompletionKey  *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsDraft indica si la devolución sigue editable.
func (r *SaleReturn) IsDraft() bool { return r.Status == ReturnStatusDraft }

// SaleReturnLine referencia una línea específica de la venta original.
// Invariante: sum(qty devuelta en devoluciones COMPLETED de esa línea) <= línea.Qty.
// Unicidad: una línea de devolución por (sale_return_id, sale_line_id).
type SaleReturnLine struct {
	ID            string
	SaleReturnID  string
	LineNo        int32  // orden de captura dentro de la devolución, 1-based
	SaleLineID    string // línea de la venta original (customerOrderLineId)
	ProductID     string
	VariantID     *string
	VariantKey    string
	Qty           decimal.Decimal
	UnitPrice     decimal.Decimal
	LineTotal     decimal.Decimal
	UnitCost      *decimal.Decimal
	LineCostTotal *decimal.Decimal
}
