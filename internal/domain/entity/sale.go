package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una venta POS. DRAFT -> COMPLETED o DRAFT -> CANCELED; ambos terminales.
const (
	SaleStatusDraft     = "DRAFT"
	SaleStatusCompleted = "COMPLETED"
	SaleStatusCanceled  = "CANCELED"
)

// Estados de fiscalización (KKM) de una venta completada.
const (
	KKMStatusNotSent = "NOT_SENT"
	KKMStatusSent    = "SENT"
	KKMStatusFailed  = "FAILED"
)

// SaleOrder es la cabecera de una venta POS. Pertenece a exactamente un turno.
// Las líneas solo son mutables mientras Status = DRAFT; la completación es
// una transición de un solo sentido.
type SaleOrder struct {
	ID             string
	OrganizationID string
	Number         string // consecutivo humano: S-000123
	Status         string
	StoreID        string
	RegisterID     string
	ShiftID        string
	CustomerName   *string
	CustomerPhone  *string
	Notes          *string
	Subtotal       decimal.Decimal
	Total          decimal.Decimal
	KKMStatus      string
	KKMReceiptID   *string
	KKMError       *string // payload crudo del último fallo de fiscalización
	CreatedBy      string
	CompletedAt    *time.Time
	CompletionKey  *string // clave de idempotencia con la que se completó
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsDraft indica si la venta sigue editable.
func (s *SaleOrder) IsDraft() bool { return s.Status == SaleStatusDraft }

// SaleLine es una línea de venta. Unicidad: a lo sumo una línea por
// (sale_id, product_id, variant_key); repetir el producto incrementa la existente.
type SaleLine struct {
	ID            string
	SaleID        string
	LineNo        int32 // orden de captura dentro de la venta, 1-based
	ProductID     string
	VariantID     *string
	VariantKey    string
	Qty           decimal.Decimal
	UnitPrice     decimal.Decimal
	LineTotal     decimal.Decimal
	UnitCost      *decimal.Decimal // nil = costo desconocido (nunca cero implícito)
	LineCostTotal *decimal.Decimal
}
