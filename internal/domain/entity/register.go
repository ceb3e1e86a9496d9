package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de un turno de caja.
const (
	ShiftStatusOpen   = "OPEN"
	ShiftStatusClosed = "CLOSED"
)

// Register es una caja registradora física de una tienda.
// Debe estar activa para poder abrir un turno contra ella.
type Register struct {
	ID             string
	OrganizationID string
	StoreID        string
	Code           string
	Name           string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RegisterShift es el turno de caja: acota todas las ventas, devoluciones y
// movimientos de efectivo entre la apertura y el cierre.
// Invariante: a lo sumo un turno OPEN por (organization_id, register_id).
// El cierre es terminal; para seguir vendiendo se abre un turno nuevo.
type RegisterShift struct {
	ID                 string
	OrganizationID     string
	StoreID            string
	RegisterID         string
	Status             string
	OpenedAt           time.Time
	OpenedBy           string
	ClosedAt           *time.Time
	ClosedBy           *string
	OpeningCash        decimal.Decimal
	ClosingCashCounted *decimal.Decimal
	ExpectedCash       *decimal.Decimal
	Discrepancy        *decimal.Decimal // counted - expected
	Notes              *string
}

// IsOpen indica si el turno sigue abierto.
func (s *RegisterShift) IsOpen() bool { return s.Status == ShiftStatusOpen }

// Tipos de movimiento del cajón de efectivo (ledger append-only).
const (
	CashMovementPayIn  = "PAY_IN"
	CashMovementPayOut = "PAY_OUT"
)

// CashDrawerMovement es una entrada inmutable del ledger de efectivo del turno.
// Afecta la fórmula de arqueo: expected = opening + payIn - payOut + cashSales - cashRefunds.
type CashDrawerMovement struct {
	ID             string
	OrganizationID string
	ShiftID        string
	Type           string
	Amount         decimal.Decimal
	Reason         string
	CreatedAt      time.Time
	CreatedBy      string
}
