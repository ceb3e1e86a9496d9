package entity

import (
	"encoding/json"
	"time"
)

// IdempotencyRecord se crea una sola vez por (key, route); las repeticiones
// con la misma clave devuelven Result almacenado sin re-ejecutar la operación.
type IdempotencyRecord struct {
	Key       string
	Route     string
	UserID    string
	Result    json.RawMessage
	CreatedAt time.Time
}
