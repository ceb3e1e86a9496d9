package pos

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/tu-usuario/retail-pos/internal/domain"
	"github.com/tu-usuario/retail-pos/internal/domain/entity"
	"github.com/tu-usuario/retail-pos/internal/domain/money"
	"github.com/tu-usuario/retail-pos/internal/domain/repository"
)

// PriceResolution resultado de resolver el precio unitario de un producto/variante.
type PriceResolution struct {
	VariantKey string
	VariantID  *string
	UnitPrice  decimal.Decimal
	IsBundle   bool
	Product    *entity.Product
}

// PricingResolver resuelve precio de venta y costo unitario al momento de
// agregar una línea. Precio: override de tienda > precio base > 0.
// Costo: costo directo por variante > fallback BASE > agregación de componentes
// del bundle; desconocido se propaga como nil, nunca como cero.
type PricingResolver struct {
	products repository.ProductRepository
}

// NewPricingResolver construye el resolutor sobre el modelo de lectura de catálogo.
func NewPricingResolver(products repository.ProductRepository) *PricingResolver {
	return &PricingResolver{products: products}
}

// ResolveUnitPrice valida producto y variante y resuelve el precio unitario.
func (p *PricingResolver) ResolveUnitPrice(ctx context.Context, orgID, storeID, productID string, variantID *string) (*PriceResolution, error) {
	product, err := p.products.GetByID(ctx, orgID, productID)
	if err != nil {
		return nil, err
	}
	if product == nil || product.DeletedAt != nil {
		return nil, domain.NotFound("posProductNotFound")
	}
	if product.OrganizationID != orgID {
		return nil, domain.Forbidden("posProductForbidden")
	}

	variantKey := entity.VariantKeyBase
	if variantID != nil && *variantID != "" {
		variant, err := p.products.GetVariant(ctx, productID, *variantID)
		if err != nil {
			return nil, err
		}
		if variant == nil {
			return nil, domain.NotFound("posVariantNotFound")
		}
		if !variant.IsActive {
			return nil, domain.Conflict("posVariantInactive")
		}
		variantKey = variant.ID
	}

	unitPrice := product.BasePrice
	override, err := p.products.GetStorePrice(ctx, orgID, storeID, productID, variantKey)
	if err != nil {
		return nil, err
	}
	if override != nil {
		unitPrice = *override
	}

	return &PriceResolution{
		VariantKey: variantKey,
		VariantID:  variantID,
		UnitPrice:  money.Round2(unitPrice),
		IsBundle:   product.IsBundle,
		Product:    product,
	}, nil
}

// ResolveUnitCost resuelve el costo unitario, o nil si es desconocido.
// Para bundles suma componentCost * componentQty; si cualquier componente carece
// de costo resoluble, el bundle completo queda con costo desconocido (política
// conservadora: costo desconocido nunca se trata como utilidad cero).
func (p *PricingResolver) ResolveUnitCost(ctx context.Context, orgID, productID, variantKey string, isBundle bool) (*decimal.Decimal, error) {
	if isBundle {
		return p.resolveBundleCost(ctx, orgID, productID)
	}
	return p.resolveSimpleCost(ctx, orgID, productID, variantKey)
}

func (p *PricingResolver) resolveSimpleCost(ctx context.Context, orgID, productID, variantKey string) (*decimal.Decimal, error) {
	cost, err := p.products.GetVariantCost(ctx, orgID, productID, variantKey)
	if err != nil {
		return nil, err
	}
	if cost == nil && variantKey != entity.VariantKeyBase {
		cost, err = p.products.GetVariantCost(ctx, orgID, productID, entity.VariantKeyBase)
		if err != nil {
			return nil, err
		}
	}
	return cost, nil
}

// resolveBundleCost asume bundles de un nivel (componentes simples); si se
// anidaran bundles habría que hacer la recursión explícita con guarda de
// profundidad para evitar ciclos.
func (p *PricingResolver) resolveBundleCost(ctx context.Context, orgID, bundleID string) (*decimal.Decimal, error) {
	components, err := p.products.ListBundleComponents(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	if len(components) == 0 {
		return nil, nil
	}
	total := decimal.Zero
	for _, c := range components {
		cost, err := p.resolveSimpleCost(ctx, orgID, c.ComponentProductID, c.ComponentVariantKey)
		if err != nil {
			return nil, err
		}
		if cost == nil {
			return nil, nil // un componente sin costo => bundle con costo desconocido
		}
		total = total.Add(cost.Mul(c.Qty))
	}
	return &total, nil
}
