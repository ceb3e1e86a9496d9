package events

import (
	"context"

	"github.com/tu-usuario/retail-pos/internal/application/pos"
)

var _ pos.EventBus = (*NoopBus)(nil)

// NoopBus descarta todos los eventos; se usa cuando Redis no está configurado.
type NoopBus struct{}

// NewNoopBus construye el bus nulo.
func NewNoopBus() *NoopBus { return &NoopBus{} }

// Publish no hace nada.
func (b *NoopBus) Publish(ctx context.Context, event string, payload any) {}
