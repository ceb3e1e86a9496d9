package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/tu-usuario/retail-pos/internal/application/pos"
	"github.com/tu-usuario/retail-pos/pkg/logger"
)

var _ pos.EventBus = (*RedisBus)(nil)

// RedisBus publica eventos post-commit por pub/sub de Redis. Los fallos se
// registran y se descartan: la transacción que originó el evento ya confirmó.
type RedisBus struct {
	client *redis.Client
	prefix string
	log    *logger.Logger
}

// NewRedisBus construye el bus con un prefijo de canal (ej. "pos").
func NewRedisBus(client *redis.Client, prefix string, log *logger.Logger) *RedisBus {
	return &RedisBus{client: client, prefix: prefix, log: log}
}

// Publish serializa el payload y lo publica en <prefix>.<event>.
func (b *RedisBus) Publish(ctx context.Context, event string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		b.log.Error().Err(err).Str("event", event).Msg("serializando evento")
		return
	}
	channel := b.prefix + "." + event
	if err := b.client.Publish(ctx, channel, body).Err(); err != nil {
		b.log.Warn().Err(err).Str("channel", channel).Msg("publicando evento")
	}
}
