package pos

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/tu-usuario/retail-pos/internal/domain"
	"github.com/tu-usuario/retail-pos/internal/domain/entity"
	"github.com/tu-usuario/retail-pos/internal/domain/repository"
)

// ErrIdempotencyRace señala que dos requests concurrentes corrieron sobre la
// misma clave nueva y este perdió. La transacción del perdedor hace rollback
// completo; el caso de uso debe "volverse replay" releyendo el resultado del
// ganador fuera de esa transacción (ResolveIdempotencyRace).
var ErrIdempotencyRace = errors.New("idempotency key race lost")

// RunIdempotent ejecuta fn a lo sumo una vez por (key, route).
//
// Primera llamada: ejecuta fn dentro de la transacción del caller y persiste el
// resultado serializado. Replay (clave ya registrada antes de correr fn): no
// ejecuta fn y devuelve el resultado almacenado con replayed = true.
// Con key vacía no hay protección: fn se ejecuta directamente.
func RunIdempotent[T any](
	ctx context.Context,
	repo repository.IdempotencyRepository,
	key, route, userID string,
	fn func() (T, error),
) (result T, replayed bool, err error) {
	if key == "" {
		result, err = fn()
		return result, false, err
	}

	prev, err := repo.Get(ctx, key, route)
	if err != nil {
		return result, false, err
	}
	if prev != nil {
		if err := json.Unmarshal(prev.Result, &result); err != nil {
			return result, false, domain.Internal("posIdempotencyDecode", err)
		}
		return result, true, nil
	}

	result, err = fn()
	if err != nil {
		return result, false, err
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return result, false, domain.Internal("posIdempotencyEncode", err)
	}
	rec := &entity.IdempotencyRecord{
		Key:       key,
		Route:     route,
		UserID:    userID,
		Result:    raw,
		CreatedAt: time.Now(),
	}
	if err := repo.Create(ctx, rec); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			// En PostgreSQL el 23505 aborta la transacción entera; no se puede
			// releer aquí. Se propaga para que el caso de uso resuelva el
			// replay fuera de la tx.
			return result, false, ErrIdempotencyRace
		}
		return result, false, err
	}
	return result, false, nil
}

// ResolveIdempotencyRace relee el resultado del ganador tras el rollback del
// perdedor. repo debe estar atado al pool, no a la transacción abortada.
func ResolveIdempotencyRace[T any](
	ctx context.Context,
	repo repository.IdempotencyRepository,
	key, route string,
) (result T, err error) {
	winner, err := repo.Get(ctx, key, route)
	if err != nil {
		return result, err
	}
	if winner == nil {
		// El ganador también falló: no hay resultado que devolver.
		return result, domain.Conflict("posIdempotencyRace")
	}
	if err := json.Unmarshal(winner.Result, &result); err != nil {
		return result, domain.Internal("posIdempotencyDecode", err)
	}
	return result, nil
}
