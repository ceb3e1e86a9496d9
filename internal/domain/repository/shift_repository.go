package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/retail-pos/internal/domain/entity"
)

// ShiftRepository puerto de persistencia de turnos de caja.
// Los Get devuelven (nil, nil) cuando la fila no existe.
type ShiftRepository interface {
	Create(ctx context.Context, shift *entity.RegisterShift) error
	GetByID(ctx context.Context, orgID, id string) (*entity.RegisterShift, error)
	// GetByIDForUpdate bloquea la fila (SELECT ... FOR UPDATE) para serializar
	// intentos concurrentes de cierre.
	GetByIDForUpdate(ctx context.Context, orgID, id string) (*entity.RegisterShift, error)
	GetOpenByRegister(ctx context.Context, orgID, registerID string) (*entity.RegisterShift, error)
	// Close persiste la transición a CLOSED con expected/counted/discrepancy.
	Close(ctx context.Context, shift *entity.RegisterShift) error
}

// RegisterRepository puerto de lectura de cajas registradoras.
type RegisterRepository interface {
	GetByID(ctx context.Context, orgID, id string) (*entity.Register, error)
}

// CashMovementRepository puerto del ledger de efectivo del turno (append-only).
type CashMovementRepository interface {
	Create(ctx context.Context, mov *entity.CashDrawerMovement) error
	// TotalsByShift agrega PAY_IN y PAY_OUT del turno.
	TotalsByShift(ctx context.Context, shiftID string) (payIn, payOut decimal.Decimal, err error)
}
