package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/retail-pos/internal/domain/entity"
)

// SaleRepository puerto de persistencia de ventas POS y sus líneas.
// Los Get devuelven (nil, nil) cuando la fila no existe.
type SaleRepository interface {
	// Create inserta la cabecera; devuelve ErrUniqueViolation si otro request
	// ganó la carrera del borrador único por (shift, register, created_by).
	Create(ctx context.Context, sale *entity.SaleOrder) error
	GetByID(ctx context.Context, orgID, id string) (*entity.SaleOrder, error)
	// GetByIDForUpdate bloquea la fila para serializar la completación.
	GetByIDForUpdate(ctx context.Context, orgID, id string) (*entity.SaleOrder, error)
	// FindDraft busca el borrador del mismo actor en el mismo turno y caja.
	FindDraft(ctx context.Context, orgID, shiftID, registerID, createdBy string) (*entity.SaleOrder, error)
	UpdateTotals(ctx context.Context, saleID string, subtotal, total decimal.Decimal) error
	UpdateStatus(ctx context.Context, saleID, status string) error
	// MarkCompleted persiste status, completed_at, completion_key y kkm_status.
	MarkCompleted(ctx context.Context, sale *entity.SaleOrder) error
	UpdateKKM(ctx context.Context, saleID, status string, receiptID, rawError *string) error

	CreateLine(ctx context.Context, line *entity.SaleLine) error
	UpdateLineQty(ctx context.Context, lineID string, qty, lineTotal decimal.Decimal, lineCostTotal *decimal.Decimal) error
	DeleteLine(ctx context.Context, lineID string) error
	GetLine(ctx context.Context, saleID, lineID string) (*entity.SaleLine, error)
	FindLineByProduct(ctx context.Context, saleID, productID, variantKey string) (*entity.SaleLine, error)
	ListLines(ctx context.Context, saleID string) ([]*entity.SaleLine, error)

	// CompletedStatsByShift cuenta y suma las ventas COMPLETED del turno (X-report).
	CompletedStatsByShift(ctx context.Context, shiftID string) (count int64, total decimal.Decimal, err error)
}

// SaleReturnRepository puerto de persistencia de devoluciones POS.
type SaleReturnRepository interface {
	Create(ctx context.Context, ret *entity.SaleReturn) error
	GetByID(ctx context.Context, orgID, id string) (*entity.SaleReturn, error)
	GetByIDForUpdate(ctx context.Context, orgID, id string) (*entity.SaleReturn, error)
	UpdateTotals(ctx context.Context, returnID string, subtotal, total decimal.Decimal) error
	MarkCompleted(ctx context.Context, ret *entity.SaleReturn) error

	CreateLine(ctx context.Context, line *entity.SaleReturnLine) error
	UpdateLineQty(ctx context.Context, lineID string, qty, lineTotal decimal.Decimal, lineCostTotal *decimal.Decimal) error
	DeleteLine(ctx context.Context, lineID string) error
	GetLine(ctx context.Context, returnID, lineID string) (*entity.SaleReturnLine, error)
	FindLineBySaleLine(ctx context.Context, returnID, saleLineID string) (*entity.SaleReturnLine, error)
	ListLines(ctx context.Context, returnID string) ([]*entity.SaleReturnLine, error)

	// SumReturnedQty suma la cantidad ya devuelta de una línea de venta en
	// devoluciones COMPLETED, excluyendo excludeReturnID (la que se edita).
	SumReturnedQty(ctx context.Context, saleLineID, excludeReturnID string) (decimal.Decimal, error)
	CompletedStatsByShift(ctx context.Context, shiftID string) (count int64, total decimal.Decimal, err error)
}

// PaymentMethodTotal agregado de pagos por método y signo para el X-report.
type PaymentMethodTotal struct {
	Method   string
	IsRefund bool
	Total    decimal.Decimal
}

// PaymentRepository puerto de pagos (escritura solo en completación, nunca update).
type PaymentRepository interface {
	Create(ctx context.Context, p *entity.Payment) error
	TotalsByShift(ctx context.Context, shiftID string) ([]PaymentMethodTotal, error)
}
