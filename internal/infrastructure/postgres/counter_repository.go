package postgres

import (
	"context"
	"fmt"

	"github.com/tu-usuario/retail-pos/internal/domain/repository"
)

var _ repository.CounterRepository = (*CounterRepo)(nil)

// CounterRepo acuña consecutivos de documentos. Cada Next* es un único upsert
// atómico: la fila de contadores de la organización se crea en el primer uso y
// el incremento nunca es read-then-write.
type CounterRepo struct {
	q Querier
}

// NewCounterRepository construye el adaptador de contadores.
func NewCounterRepository(q Querier) *CounterRepo {
	return &CounterRepo{q: q}
}

// NextPosSaleNumber devuelve el siguiente consecutivo de venta POS.
func (r *CounterRepo) NextPosSaleNumber(ctx context.Context, orgID string) (int64, error) {
	return r.next(ctx, orgID, "pos_sale_number")
}

// NextPosReturnNumber devuelve el siguiente consecutivo de devolución POS.
func (r *CounterRepo) NextPosReturnNumber(ctx context.Context, orgID string) (int64, error) {
	return r.next(ctx, orgID, "pos_return_number")
}

func (r *CounterRepo) next(ctx context.Context, orgID, column string) (int64, error) {
	// column viene de un conjunto cerrado interno, nunca de input del usuario.
	query := fmt.Sprintf(`
		INSERT INTO organization_counters (organization_id, %[1]s)
		VALUES ($1, 1)
		ON CONFLICT (organization_id)
		DO UPDATE SET %[1]s = organization_counters.%[1]s + 1
		RETURNING %[1]s`, column)
	var n int64
	if err := r.q.QueryRow(ctx, query, orgID).Scan(&n); err != nil {
		return 0, fmt.Errorf("next %s: %w", column, err)
	}
	return n, nil
}
