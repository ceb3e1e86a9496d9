package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Métodos de pago (enumeración cerrada, no strings abiertos).
const (
	PaymentMethodCash     = "CASH"
	PaymentMethodCard     = "CARD"
	PaymentMethodTransfer = "TRANSFER"
	PaymentMethodOther    = "OTHER"
)

// ValidPaymentMethod verifica pertenencia a la enumeración.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer, PaymentMethodOther:
		return true
	}
	return false
}

// Payment se escribe solo al completar una venta o devolución y nunca se muta.
// IsRefund = true para pagos de devoluciones.
type Payment struct {
	ID             string
	OrganizationID string
	ShiftID        string
	SaleID         *string
	SaleReturnID   *string
	Method         string
	Amount         decimal.Decimal
	IsRefund       bool
	ProviderRef    *string
	CreatedAt      time.Time
}
