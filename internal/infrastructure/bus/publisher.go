package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-eventos/internal/application/ports"
	"github.com/jhoicas/inventario-eventos/pkg/logger"
)

var _ ports.EventPublisher = (*Publisher)(nil)

// Publisher envoltura usada por todos los servicios productores. Serializa a JSON, marca el
// mensaje como persistente y le asigna un MessageID. Los errores se registran y se retornan.
type Publisher struct {
	broker Broker
	log    *logger.Logger
	now    func() time.Time
}

// NewPublisher construye el publicador.
func NewPublisher(broker Broker, log *logger.Logger) *Publisher {
	return &Publisher{broker: broker, log: log.Component("publisher"), now: time.Now}
}

// Publish serializa payload y lo publica con la clave indicada.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		p.log.Error().Err(err).Str("routing_key", routingKey).Msg("no se pudo serializar el evento")
		return fmt.Errorf("publicar %s: serializar: %w", routingKey, err)
	}
	env := Envelope{
		RoutingKey:  routingKey,
		Payload:     body,
		Persistent:  true,
		MessageID:   uuid.NewString(),
		ContentType: ContentTypeJSON,
		Timestamp:   p.now().UTC(),
		Headers:     map[string]string{},
	}
	injectTrace(ctx, env.Headers)

	if err := p.broker.Publish(ctx, env); err != nil {
		p.log.Error().Err(err).
			Str("routing_key", routingKey).
			Str("message_id", env.MessageID).
			Msg("falló la publicación del evento")
		return fmt.Errorf("publicar %s: %w", routingKey, err)
	}
	p.log.Debug().Str("routing_key", routingKey).Str("message_id", env.MessageID).Msg("evento publicado")
	return nil
}
