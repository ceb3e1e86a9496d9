package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/tu-usuario/retail-pos/internal/domain/entity"
	"github.com/tu-usuario/retail-pos/internal/domain/repository"
)

var _ repository.IdempotencyRepository = (*IdempotencyRepo)(nil)

// IdempotencyRepo tabla de claves de idempotencia. La PK compuesta (key, route)
// es el árbitro de las carreras: el perdedor recibe ErrUniqueViolation.
type IdempotencyRepo struct {
	q Querier
}

// NewIdempotencyRepository construye el adaptador de idempotencia.
func NewIdempotencyRepository(q Querier) *IdempotencyRepo {
	return &IdempotencyRepo{q: q}
}

// Get obtiene el registro de una clave; (nil, nil) si no existe.
func (r *IdempotencyRepo) Get(ctx context.Context, key, route string) (*entity.IdempotencyRecord, error) {
	query := `
		SELECT key, route, user_id, result, created_at
		FROM idempotency_keys WHERE key = $1 AND route = $2`
	var rec entity.IdempotencyRecord
	err := r.q.QueryRow(ctx, query, key, route).Scan(
		&rec.Key, &rec.Route, &rec.UserID, &rec.Result, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}
	return &rec, nil
}

// Create inserta el registro; ErrUniqueViolation si otro request ganó la clave.
func (r *IdempotencyRepo) Create(ctx context.Context, rec *entity.IdempotencyRecord) error {
	query := `
		INSERT INTO idempotency_keys (key, route, user_id, result, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.q.Exec(ctx, query, rec.Key, rec.Route, rec.UserID, rec.Result, rec.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrUniqueViolation
		}
		return fmt.Errorf("create idempotency key: %w", err)
	}
	return nil
}
