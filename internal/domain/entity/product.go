package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// VariantKeyBase identifica la forma base de un producto sin variante.
const VariantKeyBase = "BASE"

// Product es la referencia de catálogo que el motor POS consume en modo lectura
// (el CRUD de catálogo vive fuera de este módulo).
type Product struct {
	ID             string
	OrganizationID string
	SKU            string
	Name           string
	IsBundle       bool
	BasePrice      decimal.Decimal
	DeletedAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Variant es una variante de producto; debe pertenecer al producto y estar activa
// para poder venderse.
type Variant struct {
	ID        string
	ProductID string
	Name      string
	IsActive  bool
}

// StorePrice es el override de precio por tienda; tiene prioridad sobre BasePrice.
type StorePrice struct {
	OrganizationID string
	StoreID        string
	ProductID      string
	VariantKey     string
	Price          decimal.Decimal
}

// VariantCost es el costo promedio por variante. La clave BASE actúa de fallback
// cuando la variante específica no tiene fila de costo.
type VariantCost struct {
	OrganizationID string
	ProductID      string
	VariantKey     string
	AvgCost        decimal.Decimal
}

// BundleComponent es un componente de un bundle (un nivel de profundidad:
// los componentes son productos simples).
type BundleComponent struct {
	BundleProductID     string
	ComponentProductID  string
	ComponentVariantKey string
	Qty                 decimal.Decimal
}
