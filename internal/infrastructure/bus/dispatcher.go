package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"

	"github.com/jhoicas/inventario-eventos/internal/domain"
	"github.com/jhoicas/inventario-eventos/pkg/logger"
)

// HandlerFunc procesa una entrega. nil = ack; error no reintentable = nack sin requeue;
// cualquier otro error = nack con requeue.
type HandlerFunc func(ctx context.Context, d Delivery) error

// Stats contadores de resultado por mensaje.
type Stats struct {
	Acked     uint64
	Requeued  uint64
	Discarded uint64
	Dropped   uint64 // clave sin handler (se confirma y se descarta)
	Panics    uint64
}

// Dispatcher consumidor de una cola: enruta por clave a su handler y aplica la política
// de confirmación. Los handlers corren secuencialmente en el loop de Run.
type Dispatcher struct {
	broker  Broker
	queue   string
	log     *logger.Logger
	timeout time.Duration

	mu       sync.RWMutex
	keys     []string
	handlers map[string]HandlerFunc

	acked, requeued, discarded, dropped, panics atomic.Uint64
}

// Option configura el dispatcher.
type Option func(*Dispatcher)

// WithHandlerTimeout limita la duración de cada handler. 0 = sin límite.
func WithHandlerTimeout(d time.Duration) Option {
	return func(ds *Dispatcher) { ds.timeout = d }
}

// NewDispatcher crea el dispatcher para la cola indicada.
func NewDispatcher(broker Broker, queue string, log *logger.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		broker:   broker,
		queue:    queue,
		log:      log.Component("dispatcher").WithField("queue", queue),
		handlers: make(map[string]HandlerFunc),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Handle registra el handler de una clave (admite patrones * y #). Debe llamarse antes de Run.
func (d *Dispatcher) Handle(routingKey string, h HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.handlers[routingKey]; !ok {
		d.keys = append(d.keys, routingKey)
	}
	d.handlers[routingKey] = h
}

// Keys claves enlazadas a la cola, en orden de registro.
func (d *Dispatcher) Keys() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.keys...)
}

// Stats instantánea de los contadores.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Acked:     d.acked.Load(),
		Requeued:  d.requeued.Load(),
		Discarded: d.discarded.Load(),
		Dropped:   d.dropped.Load(),
		Panics:    d.panics.Load(),
	}
}

// Run consume la cola hasta que ctx se cancele o el broker cierre el canal de entregas.
func (d *Dispatcher) Run(ctx context.Context) error {
	keys := d.Keys()
	if len(keys) == 0 {
		return fmt.Errorf("dispatcher %s: sin handlers registrados", d.queue)
	}
	deliveries, err := d.broker.Consume(ctx, d.queue, keys)
	if err != nil {
		return fmt.Errorf("dispatcher %s: %w", d.queue, err)
	}
	d.log.Info().Strs("keys", keys).Msg("consumidor iniciado")
	for msg := range deliveries {
		d.dispatch(ctx, msg)
	}
	d.log.Info().Msg("consumidor detenido")
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

func (d *Dispatcher) lookup(key string) HandlerFunc {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if h, ok := d.handlers[key]; ok {
		return h
	}
	for _, pattern := range d.keys {
		if MatchTopic(pattern, key) {
			return d.handlers[pattern]
		}
	}
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, msg Delivery) {
	log := d.log.With().Str("routing_key", msg.RoutingKey).Str("message_id", msg.MessageID).Logger()

	h := d.lookup(msg.RoutingKey)
	if h == nil {
		log.Warn().Msg("clave sin handler; mensaje descartado")
		d.settle(msg, nil, &log)
		d.dropped.Add(1)
		return
	}

	hctx, span := startConsumeSpan(ctx, msg, d.queue)
	defer span.End()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		hctx, cancel = context.WithTimeout(hctx, d.timeout)
		defer cancel()
	}

	err := d.call(hctx, h, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	switch d.settle(msg, err, &log) {
	case outcomeAcked:
		d.acked.Add(1)
	case outcomeRequeued:
		d.requeued.Add(1)
	case outcomeDiscarded:
		d.discarded.Add(1)
	}
}

type outcome int

const (
	outcomeAcked outcome = iota
	outcomeRequeued
	outcomeDiscarded
)

// settle aplica la política: ok -> ack; no reintentable -> nack sin requeue; resto -> requeue.
func (d *Dispatcher) settle(msg Delivery, err error, log *zerolog.Logger) outcome {
	switch {
	case err == nil:
		if aerr := msg.Ack(); aerr != nil {
			log.Error().Err(aerr).Msg("no se pudo confirmar el mensaje")
		}
		return outcomeAcked
	case IsNonRetriable(err):
		log.Error().Err(err).Msg("mensaje rechazado sin reintento")
		if nerr := msg.Nack(false); nerr != nil {
			log.Error().Err(nerr).Msg("no se pudo rechazar el mensaje")
		}
		return outcomeDiscarded
	default:
		log.Warn().Err(err).Bool("redelivered", msg.Redelivered).Msg("fallo transitorio; mensaje reencolado")
		if nerr := msg.Nack(true); nerr != nil {
			log.Error().Err(nerr).Msg("no se pudo reencolar el mensaje")
		}
		return outcomeRequeued
	}
}

// call ejecuta el handler convirtiendo un panic en error no reintentable.
func (d *Dispatcher) call(ctx context.Context, h HandlerFunc, msg Delivery) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.panics.Add(1)
			d.log.Error().
				Str("routing_key", msg.RoutingKey).
				Str("message_id", msg.MessageID).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("panic en handler")
			err = fmt.Errorf("%w: panic: %v", ErrNonRetriable, r)
		}
	}()
	return h(ctx, msg)
}

// IsNonRetriable indica si el error de un handler debe descartar el mensaje.
func IsNonRetriable(err error) bool {
	return errors.Is(err, ErrNonRetriable) || domain.IsBusinessRule(err)
}

// JSON adapta un handler tipado: decodifica el payload y lo valida con validator.
// Un payload que no decodifica o no valida es domain.ErrMalformedEvent (no reintentable).
func JSON[T any](v *validator.Validate, fn func(ctx context.Context, msg T, d Delivery) error) HandlerFunc {
	return func(ctx context.Context, d Delivery) error {
		var msg T
		if err := json.Unmarshal(d.Payload, &msg); err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrMalformedEvent, d.RoutingKey, err)
		}
		if v != nil {
			if err := v.StructCtx(ctx, msg); err != nil {
				return fmt.Errorf("%w: %s: %v", domain.ErrMalformedEvent, d.RoutingKey, err)
			}
		}
		return fn(ctx, msg, d)
	}
}
