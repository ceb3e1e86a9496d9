package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/retail-pos/internal/domain/entity"
)

// CounterRepository acuña consecutivos de documentos con un único statement
// atómico de upsert-incremento (nunca read-then-write).
type CounterRepository interface {
	NextPosSaleNumber(ctx context.Context, orgID string) (int64, error)
	NextPosReturnNumber(ctx context.Context, orgID string) (int64, error)
}

// IdempotencyRepository puerto de la tabla de claves de idempotencia.
type IdempotencyRepository interface {
	Get(ctx context.Context, key, route string) (*entity.IdempotencyRecord, error)
	// Create devuelve ErrUniqueViolation si dos requests corren sobre la misma clave nueva.
	Create(ctx context.Context, rec *entity.IdempotencyRecord) error
}

// ProductRepository modelo de lectura de catálogo para el resolutor de precios y costos.
type ProductRepository interface {
	GetByID(ctx context.Context, orgID, id string) (*entity.Product, error)
	GetVariant(ctx context.Context, productID, variantID string) (*entity.Variant, error)
	// GetStorePrice devuelve nil si no hay override para la tienda.
	GetStorePrice(ctx context.Context, orgID, storeID, productID, variantKey string) (*decimal.Decimal, error)
	// GetVariantCost devuelve nil si la variante no tiene fila de costo.
	GetVariantCost(ctx context.Context, orgID, productID, variantKey string) (*decimal.Decimal, error)
	ListBundleComponents(ctx context.Context, productID string) ([]*entity.BundleComponent, error)
}

// AuditRepository escribe snapshots antes/después en la transacción del caller.
type AuditRepository interface {
	Write(ctx context.Context, e *entity.AuditEntry) error
}

// ComplianceRepository lee el perfil fiscal de la tienda; (nil, nil) si no hay perfil.
type ComplianceRepository interface {
	GetByStore(ctx context.Context, orgID, storeID string) (*entity.StoreComplianceProfile, error)
}

// StockLedger aplica un movimiento al ledger de stock dentro de la transacción
// del caller; seguro de llamar varias veces por completación (una por línea).
type StockLedger interface {
	Apply(ctx context.Context, mov *entity.StockMovement) error
}
