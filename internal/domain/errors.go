package domain

import (
	"errors"
	"fmt"
)

// Kind clasifica los errores de dominio (se mapea a códigos HTTP en la capa de interfaces).
type Kind string

const (
	KindNotFound     Kind = "NOT_FOUND"
	KindConflict     Kind = "CONFLICT"
	KindBadRequest   Kind = "BAD_REQUEST"
	KindForbidden    Kind = "FORBIDDEN"
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindInternal     Kind = "INTERNAL"
)

// Error es el error de dominio: un Kind más una clave de mensaje estable
// (ej. "posReturnQtyExceeded") que el frontend usa para localización.
type Error struct {
	Kind Kind
	Key  string
	Err  error // causa opcional (solo para INTERNAL)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Key, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Key, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound, Conflict, BadRequest, Forbidden, Unauthorized construyen errores tipados.
func NotFound(key string) *Error     { return &Error{Kind: KindNotFound, Key: key} }
func Conflict(key string) *Error     { return &Error{Kind: KindConflict, Key: key} }
func BadRequest(key string) *Error   { return &Error{Kind: KindBadRequest, Key: key} }
func Forbidden(key string) *Error    { return &Error{Kind: KindForbidden, Key: key} }
func Unauthorized(key string) *Error { return &Error{Kind: KindUnauthorized, Key: key} }

// Internal envuelve una causa infraestructural (contador sin fila, codec, etc.).
func Internal(key string, cause error) *Error {
	return &Error{Kind: KindInternal, Key: key, Err: cause}
}

// KindOf devuelve el Kind de un error; los errores no tipados cuentan como INTERNAL.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// HasKind verifica si un error pertenece a un Kind.
func HasKind(err error, kind Kind) bool { return KindOf(err) == kind }

// KeyOf devuelve la clave de mensaje, o "" si el error no es de dominio.
func KeyOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Key
	}
	return ""
}
