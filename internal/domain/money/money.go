// Package money concentra el redondeo y las comparaciones de dinero del motor POS.
// Toda la aritmética es decimal exacta; la única tolerancia admitida es la de
// comparación pago-vs-total (0.01) que exige el flujo de completación.
package money

import "github.com/shopspring/decimal"

// PaymentTolerance es la holgura máxima admitida entre la suma de pagos y el
// total de la orden.
var PaymentTolerance = decimal.RequireFromString("0.01")

// Round2 redondea a 2 decimales (half-up), el grano de la moneda del ledger.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Coalesce devuelve el valor apuntado o cero si el puntero es nil
// (coerción de NUMERIC nullable leído de la base).
func Coalesce(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// WithinTolerance indica si |a - b| <= PaymentTolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(PaymentTolerance)
}

// Ptr devuelve un puntero al decimal (para campos nullable).
func Ptr(d decimal.Decimal) *decimal.Decimal { return &d }
