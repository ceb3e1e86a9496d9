package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de stock emitidos por el motor POS (enumeración cerrada).
const (
	StockMovementSale   = "SALE"   // delta negativo al completar una venta
	StockMovementReturn = "RETURN" // delta positivo al completar una devolución
)

// Tipos de referencia de los movimientos de stock.
const (
	StockRefSale   = "SALE"
	StockRefReturn = "SALE_RETURN"
)

// StockMovement es una entrada append-only del ledger de stock. Se aplica dentro
// de la misma transacción que la operación que lo origina, línea por línea en el
// orden en que fueron capturadas.
type StockMovement struct {
	ID             string
	OrganizationID string
	StoreID        string
	ProductID      string
	VariantID      *string
	VariantKey     string
	QtyDelta       decimal.Decimal
	Type           string
	ReferenceType  string
	ReferenceID    string
	Note           string
	CreatedAt      time.Time
	CreatedBy      string
}

// StockLevel es la cantidad corriente por (store, product, variant_key).
type StockLevel struct {
	OrganizationID string
	StoreID        string
	ProductID      string
	VariantKey     string
	Quantity       decimal.Decimal
	UpdatedAt      time.Time
}
