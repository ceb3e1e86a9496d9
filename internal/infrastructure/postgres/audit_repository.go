package postgres

import (
	"context"
	"fmt"

	"github.com/tu-usuario/retail-pos/internal/domain/entity"
	"github.com/tu-usuario/retail-pos/internal/domain/repository"
)

var _ repository.AuditRepository = (*AuditRepo)(nil)

// AuditRepo escribe entradas de auditoría en la transacción del caller.
type AuditRepo struct {
	q Querier
}

// NewAuditRepository construye el adaptador de auditoría.
func NewAuditRepository(q Querier) *AuditRepo {
	return &AuditRepo{q: q}
}

// Write inserta una entrada (append-only, el motor nunca la lee de vuelta).
func (r *AuditRepo) Write(ctx context.Context, e *entity.AuditEntry) error {
	query := `
		INSERT INTO audit_entries (id, organization_id, actor_id, action, entity, entity_id,
			before, after, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query, e.ID, e.OrganizationID, e.ActorID, e.Action, e.Entity,
		e.EntityID, e.Before, e.After, nullIfEmpty(e.RequestID), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("write audit entry: %w", err)
	}
	return nil
}
