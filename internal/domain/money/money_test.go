package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/tu-usuario/retail-pos/internal/domain/money"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRound2_redondea_half_up(t *testing.T) {
	assert.True(t, money.Round2(dec("10.005")).Equal(dec("10.01")))
	assert.True(t, money.Round2(dec("10.004")).Equal(dec("10")))
	assert.True(t, money.Round2(dec("-10.005")).Equal(dec("-10.01")))
	assert.True(t, money.Round2(dec("7")).Equal(dec("7")), "los enteros no cambian")
}

func TestWithinTolerance_acepta_hasta_un_centavo(t *testing.T) {
	assert.True(t, money.WithinTolerance(dec("100"), dec("100")))
	assert.True(t, money.WithinTolerance(dec("100"), dec("100.01")), "la tolerancia es inclusiva")
	assert.True(t, money.WithinTolerance(dec("100.01"), dec("100")))
	assert.False(t, money.WithinTolerance(dec("100"), dec("100.02")))
	assert.False(t, money.WithinTolerance(dec("100"), dec("99.98")))
}

func TestCoalesce_y_Ptr(t *testing.T) {
	assert.True(t, money.Coalesce(nil).IsZero(), "nil coalesce a cero")

	v := dec("12.34")
	assert.True(t, money.Coalesce(&v).Equal(v))

	p := money.Ptr(dec("5"))
	assert.True(t, p.Equal(dec("5")))
}
