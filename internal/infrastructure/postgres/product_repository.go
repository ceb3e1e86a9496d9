package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/retail-pos/internal/domain/entity"
	"github.com/tu-usuario/retail-pos/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo modelo de lectura de catálogo para el resolutor de precios y
// costos. El CRUD de catálogo vive fuera de este módulo.
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de catálogo.
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// GetByID obtiene un producto por id; (nil, nil) si no existe.
func (r *ProductRepo) GetByID(ctx context.Context, orgID, id string) (*entity.Product, error) {
	query := `
		SELECT id, organization_id, sku, name, is_bundle, base_price, deleted_at, created_at, updated_at
		FROM products WHERE organization_id = $1 AND id = $2`
	var p entity.Product
	err := r.q.QueryRow(ctx, query, orgID, id).Scan(
		&p.ID, &p.OrganizationID, &p.SKU, &p.Name, &p.IsBundle, &p.BasePrice,
		&p.DeletedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// GetVariant obtiene una variante de un producto; (nil, nil) si no existe.
func (r *ProductRepo) GetVariant(ctx context.Context, productID, variantID string) (*entity.Variant, error) {
	query := `
		SELECT id, product_id, name, is_active
		FROM product_variants WHERE product_id = $1 AND id = $2`
	var v entity.Variant
	err := r.q.QueryRow(ctx, query, productID, variantID).Scan(&v.ID, &v.ProductID, &v.Name, &v.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get variant: %w", err)
	}
	return &v, nil
}

// GetStorePrice devuelve el override de precio por tienda; nil si no hay.
func (r *ProductRepo) GetStorePrice(ctx context.Context, orgID, storeID, productID, variantKey string) (*decimal.Decimal, error) {
	query := `
		SELECT price FROM store_prices
		WHERE organization_id = $1 AND store_id = $2 AND product_id = $3 AND variant_key = $4`
	var price decimal.Decimal
	err := r.q.QueryRow(ctx, query, orgID, storeID, productID, variantKey).Scan(&price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get store price: %w", err)
	}
	return &price, nil
}

// GetVariantCost devuelve el costo promedio de una variante; nil si no hay fila.
func (r *ProductRepo) GetVariantCost(ctx context.Context, orgID, productID, variantKey string) (*decimal.Decimal, error) {
	query := `
		SELECT avg_cost FROM variant_costs
		WHERE organization_id = $1 AND product_id = $2 AND variant_key = $3`
	var cost decimal.Decimal
	err := r.q.QueryRow(ctx, query, orgID, productID, variantKey).Scan(&cost)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get variant cost: %w", err)
	}
	return &cost, nil
}

// ListBundleComponents lista los componentes de un bundle (un nivel).
func (r *ProductRepo) ListBundleComponents(ctx context.Context, productID string) ([]*entity.BundleComponent, error) {
	query := `
		SELECT bundle_product_id, component_product_id, component_variant_key, qty
		FROM bundle_components WHERE bundle_product_id = $1`
	rows, err := r.q.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list bundle components: %w", err)
	}
	defer rows.Close()

	var comps []*entity.BundleComponent
	for rows.Next() {
		var c entity.BundleComponent
		if err := rows.Scan(&c.BundleProductID, &c.ComponentProductID, &c.ComponentVariantKey, &c.Qty); err != nil {
			return nil, fmt.Errorf("scan bundle component: %w", err)
		}
		comps = append(comps, &c)
	}
	return comps, rows.Err()
}
