package pos

import (
	"context"

	"github.com/tu-usuario/retail-pos/internal/domain/entity"
	"github.com/tu-usuario/retail-pos/internal/domain/repository"
)

// Repos agrupa los repositorios atados a una misma transacción SQL.
// El TxRunner los construye sobre la tx y los pasa al callback.
type Repos struct {
	Registers     repository.RegisterRepository
	Shifts        repository.ShiftRepository
	CashMovements repository.CashMovementRepository
	Sales         repository.SaleRepository
	Returns       repository.SaleReturnRepository
	Payments      repository.PaymentRepository
	Counters      repository.CounterRepository
	Idempotency   repository.IdempotencyRepository
	Products      repository.ProductRepository
	Audit         repository.AuditRepository
	Compliance    repository.ComplianceRepository
	Stock         repository.StockLedger
}

// TxRunner ejecuta fn dentro de una transacción de BD con repos atados a esa tx.
// Commit si fn retorna nil; Rollback en caso contrario. La atomicidad de la
// transacción es la frontera de cancelación: un timeout del caller aborta antes
// del commit sin dejar estado parcial.
type TxRunner interface {
	RunPOS(ctx context.Context, fn func(r Repos) error) error
}

// Eventos publicados tras el commit (fire-and-forget).
const (
	EventShiftOpened      = "shift.opened"
	EventShiftClosed      = "shift.closed"
	EventSaleCompleted    = "sale.completed"
	EventSaleRefunded     = "sale.refunded"
	EventInventoryUpdated = "inventory.updated"
)

// EventBus publica notificaciones post-commit. Las implementaciones no deben
// devolver el error al flujo de negocio: la venta ya está confirmada.
type EventBus interface {
	Publish(ctx context.Context, event string, payload any)
}

// FiscalAdapter es el dispositivo/servicio fiscal externo (KKM). Se invoca
// estrictamente después del commit de la transacción dueña.
type FiscalAdapter interface {
	Fiscalize(ctx context.Context, draft *entity.FiscalReceiptDraft) (*entity.FiscalReceiptResult, error)
}

// FiscalRegistry resuelve el adaptador por la clave de proveedor del perfil de
// cumplimiento de la tienda.
type FiscalRegistry interface {
	Resolve(providerKey string) (FiscalAdapter, error)
}
