package entity

import "github.com/shopspring/decimal"

// FiscalReceiptDraft es el recibo que se envía al proveedor KKM después del
// commit de la venta; se construye dentro de la transacción pero el adaptador
// nunca se invoca dentro de ella.
type FiscalReceiptDraft struct {
	SaleID      string
	Number      string
	StoreID     string
	ProviderKey string
	Total       decimal.Decimal
	Lines       []FiscalReceiptLine
	Payments    []FiscalReceiptPayment
}

// FiscalReceiptLine es una línea del recibo fiscal.
type FiscalReceiptLine struct {
	ProductID  string
	Name       string
	VariantKey string
	Qty        decimal.Decimal
	UnitPrice  decimal.Decimal
	LineTotal  decimal.Decimal
}

// FiscalReceiptPayment es un pago del recibo fiscal.
type FiscalReceiptPayment struct {
	Method string
	Amount decimal.Decimal
}

// FiscalReceiptResult es la respuesta del proveedor KKM.
type FiscalReceiptResult struct {
	ProviderReceiptID string
	RawJSON           string
}
