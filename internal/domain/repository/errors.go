package repository

import "errors"

// ErrUniqueViolation lo devuelven los adaptadores cuando un INSERT choca con un
// constraint único (23505). Los casos de uso lo convierten en "volverse replay"
// (idempotencia) o en reuso del ganador concurrente (borradores).
var ErrUniqueViolation = errors.New("unique constraint violation")
