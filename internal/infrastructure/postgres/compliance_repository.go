package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/retail-pos/internal/domain/entity"
	"github.com/tu-usuario/retail-pos/internal/domain/repository"
)

var _ repository.ComplianceRepository = (*ComplianceRepo)(nil)

// ComplianceRepo lee el perfil fiscal por tienda.
type ComplianceRepo struct {
	q Querier
}

// NewComplianceRepository construye el adaptador de cumplimiento.
func NewComplianceRepository(q Querier) *ComplianceRepo {
	return &ComplianceRepo{q: q}
}

// GetByStore obtiene el perfil de la tienda; (nil, nil) si no hay perfil
// (sin perfil no se fiscaliza).
func (r *ComplianceRepo) GetByStore(ctx context.Context, orgID, storeID string) (*entity.StoreComplianceProfile, error) {
	query := `
		SELECT organization_id, store_id, enable_kkm, kkm_mode, kkm_provider_key
		FROM store_compliance_profiles WHERE organization_id = $1 AND store_id = $2`
	var p entity.StoreComplianceProfile
	err := r.q.QueryRow(ctx, query, orgID, storeID).Scan(
		&p.OrganizationID, &p.StoreID, &p.EnableKKM, &p.KKMMode, &p.KKMProviderKey,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get compliance profile: %w", err)
	}
	return &p, nil
}
