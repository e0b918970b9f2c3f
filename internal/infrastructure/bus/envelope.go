package bus

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotConnected se retorna al publicar mientras la conexión está caída. No hay buffer interno.
	ErrNotConnected = errors.New("bus: sin conexión con el broker")
	// ErrClosed el broker ya fue cerrado.
	ErrClosed = errors.New("bus: broker cerrado")
	// ErrNonRetriable marca un fallo de handler que no debe reintentarse (nack sin requeue).
	ErrNonRetriable = errors.New("bus: error no reintentable")
)

// ContentTypeJSON formato canónico del payload.
const ContentTypeJSON = "application/json"

// Envelope mensaje tal como viaja por el exchange de tópicos.
type Envelope struct {
	RoutingKey  string
	Payload     []byte
	Persistent  bool
	MessageID   string // clave de idempotencia del lado consumidor
	ContentType string
	Timestamp   time.Time
	Headers     map[string]string
}

// Delivery mensaje recibido con su manejador de confirmación. Exactamente una de
// Ack o Nack debe llamarse por entrega.
type Delivery struct {
	Envelope
	Redelivered bool
	ack         func() error
	nack        func(requeue bool) error
}

// NewDelivery construye una entrega con sus callbacks de confirmación (usado por los drivers y tests).
func NewDelivery(env Envelope, redelivered bool, ack func() error, nack func(requeue bool) error) Delivery {
	return Delivery{Envelope: env, Redelivered: redelivered, ack: ack, nack: nack}
}

// Ack confirma el procesamiento.
func (d Delivery) Ack() error {
	if d.ack == nil {
		return nil
	}
	return d.ack()
}

// Nack rechaza el mensaje; con requeue=false el broker lo descarta (no hay dead-letter).
func (d Delivery) Nack(requeue bool) error {
	if d.nack == nil {
		return nil
	}
	return d.nack(requeue)
}

// Broker cliente del bus. Publish es síncrono y seguro para uso concurrente.
// Consume declara la cola durable, la enlaza a cada clave y entrega los mensajes
// hasta que ctx se cancela o el broker se cierra (entonces el canal se cierra).
type Broker interface {
	Publish(ctx context.Context, env Envelope) error
	Consume(ctx context.Context, queue string, keys []string) (<-chan Delivery, error)
	Close() error
}
