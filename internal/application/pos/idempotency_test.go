package pos_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tu-usuario/retail-pos/internal/application/pos"
	"github.com/tu-usuario/retail-pos/internal/domain"
	"github.com/tu-usuario/retail-pos/internal/domain/entity"
	"github.com/tu-usuario/retail-pos/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Tests de la guarda de idempotencia por (key, route).
// ──────────────────────────────────────────────────────────────────────────────

type opResult struct {
	Value string `json:"value"`
}

func TestRunIdempotent_primera_llamada_ejecuta_y_persiste(t *testing.T) {
	s := newMemStore()
	repo := &memIdempotency{s}
	calls := 0

	result, replayed, err := pos.RunIdempotent(context.Background(), repo, "k-1", "pos.test", "user-1",
		func() (opResult, error) {
			calls++
			return opResult{Value: "hecho"}, nil
		})

	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "hecho", result.Value)
	assert.Len(t, s.idem, 1, "el resultado queda persistido bajo (key, route)")
}

func TestRunIdempotent_replay_devuelve_resultado_sin_reejecutar(t *testing.T) {
	s := newMemStore()
	repo := &memIdempotency{s}
	ctx := context.Background()
	calls := 0
	fn := func() (opResult, error) {
		calls++
		return opResult{Value: "hecho"}, nil
	}

	_, _, err := pos.RunIdempotent(ctx, repo, "k-1", "pos.test", "user-1", fn)
	require.NoError(t, err)
	result, replayed, err := pos.RunIdempotent(ctx, repo, "k-1", "pos.test", "user-1", fn)
	require.NoError(t, err)

	assert.True(t, replayed)
	assert.Equal(t, 1, calls, "el replay no reejecuta la operación")
	assert.Equal(t, "hecho", result.Value)
}

func TestRunIdempotent_misma_clave_otra_ruta_si_ejecuta(t *testing.T) {
	s := newMemStore()
	repo := &memIdempotency{s}
	ctx := context.Background()
	calls := 0
	fn := func() (opResult, error) {
		calls++
		return opResult{}, nil
	}

	_, _, err := pos.RunIdempotent(ctx, repo, "k-1", "pos.sale.create", "user-1", fn)
	require.NoError(t, err)
	_, replayed, err := pos.RunIdempotent(ctx, repo, "k-1", "pos.sale.complete", "user-1", fn)
	require.NoError(t, err)

	assert.False(t, replayed, "la clave se acota por ruta")
	assert.Equal(t, 2, calls)
}

func TestRunIdempotent_clave_vacia_no_protege(t *testing.T) {
	s := newMemStore()
	repo := &memIdempotency{s}
	ctx := context.Background()
	calls := 0
	fn := func() (opResult, error) {
		calls++
		return opResult{}, nil
	}

	_, _, err := pos.RunIdempotent(ctx, repo, "", "pos.test", "user-1", fn)
	require.NoError(t, err)
	_, _, err = pos.RunIdempotent(ctx, repo, "", "pos.test", "user-1", fn)
	require.NoError(t, err)

	assert.Equal(t, 2, calls, "sin clave cada llamada ejecuta")
	assert.Empty(t, s.idem)
}

func TestRunIdempotent_error_de_fn_no_persiste_la_clave(t *testing.T) {
	s := newMemStore()
	repo := &memIdempotency{s}

	_, _, err := pos.RunIdempotent(context.Background(), repo, "k-1", "pos.test", "user-1",
		func() (opResult, error) {
			return opResult{}, domain.Conflict("posShiftAlreadyOpen")
		})

	require.Error(t, err)
	assert.Empty(t, s.idem, "una operación fallida deja la clave libre para reintentar")
}

// raceIdem simula al perdedor: Get no ve nada pero el insert choca con el ganador.
type raceIdem struct{ winner *memIdempotency }

func (r *raceIdem) Get(_ context.Context, _, _ string) (*entity.IdempotencyRecord, error) {
	return nil, nil
}

func (r *raceIdem) Create(_ context.Context, _ *entity.IdempotencyRecord) error {
	return repository.ErrUniqueViolation
}

func TestRunIdempotent_carrera_perdida_se_resuelve_con_el_ganador(t *testing.T) {
	s := newMemStore()
	winner := &memIdempotency{s}
	ctx := context.Background()

	// El ganador ya dejó su resultado comprometido.
	_, _, err := pos.RunIdempotent(ctx, winner, "k-1", "pos.test", "ganador",
		func() (opResult, error) { return opResult{Value: "del ganador"}, nil })
	require.NoError(t, err)

	// El perdedor ejecutó su fn pero su insert chocó: su tx hace rollback.
	_, _, err = pos.RunIdempotent(ctx, &raceIdem{winner}, "k-1", "pos.test", "perdedor",
		func() (opResult, error) { return opResult{Value: "del perdedor"}, nil })
	require.ErrorIs(t, err, pos.ErrIdempotencyRace)

	// Fuera de la tx abortada se relee el resultado del ganador.
	result, err := pos.ResolveIdempotencyRace[opResult](ctx, winner, "k-1", "pos.test")
	require.NoError(t, err)
	assert.Equal(t, "del ganador", result.Value)
}

func TestResolveIdempotencyRace_sin_ganador_es_conflicto(t *testing.T) {
	s := newMemStore()

	_, err := pos.ResolveIdempotencyRace[opResult](context.Background(), &memIdempotency{s}, "k-1", "pos.test")

	assert.True(t, domain.HasKind(err, domain.KindConflict))
	assert.Equal(t, "posIdempotencyRace", domain.KeyOf(err))
}
