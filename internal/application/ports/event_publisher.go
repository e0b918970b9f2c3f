package ports

import "context"

// EventPublisher puerto de salida hacia el bus de eventos.
// Un error significa que el evento NO salió; el caller decide si compensa o reintenta.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}
