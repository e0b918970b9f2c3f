package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jhoicas/inventario-eventos/pkg/logger"
)

var _ Broker = (*AMQPBroker)(nil)

// AMQPOptions parámetros de conexión a RabbitMQ.
type AMQPOptions struct {
	URL            string
	Exchange       string
	Prefetch       int
	ReconnectDelay time.Duration
}

// AMQPBroker cliente RabbitMQ con canales separados para publicar y consumir.
// Ante la caída de la conexión reintenta cada ReconnectDelay; mientras tanto Publish
// falla con ErrNotConnected y los consumidores esperan para volver a declarar su cola.
type AMQPBroker struct {
	opts AMQPOptions
	log  *logger.Logger

	mu        sync.RWMutex
	conn      *amqp.Connection
	pubCh     *amqp.Channel
	connected chan struct{} // cerrado mientras hay conexión

	pubMu     sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// DialAMQP abre la conexión inicial y arranca la supervisión de reconexión.
func DialAMQP(opts AMQPOptions, log *logger.Logger) (*AMQPBroker, error) {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 10 * time.Second
	}
	if opts.Prefetch <= 0 {
		opts.Prefetch = 1
	}
	b := &AMQPBroker{
		opts:      opts,
		log:       log.Component("bus.amqp"),
		connected: make(chan struct{}),
		done:      make(chan struct{}),
	}
	if err := b.connect(); err != nil {
		return nil, err
	}
	b.wg.Add(1)
	go b.supervise()
	return b, nil
}

func (b *AMQPBroker) connect() error {
	conn, err := amqp.Dial(b.opts.URL)
	if err != nil {
		return fmt.Errorf("bus: conectar: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("bus: abrir canal de publicación: %w", err)
	}
	if err := ch.ExchangeDeclare(b.opts.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return fmt.Errorf("bus: declarar exchange %s: %w", b.opts.Exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return fmt.Errorf("bus: modo confirmación: %w", err)
	}

	b.mu.Lock()
	b.conn = conn
	b.pubCh = ch
	close(b.connected)
	b.mu.Unlock()
	return nil
}

// supervise espera la caída de la conexión y reconecta con espera fija.
func (b *AMQPBroker) supervise() {
	defer b.wg.Done()
	for {
		b.mu.RLock()
		conn := b.conn
		b.mu.RUnlock()

		closed := conn.NotifyClose(make(chan *amqp.Error, 1))
		select {
		case <-b.done:
			return
		case amqpErr := <-closed:
			b.log.Warn().Interface("reason", amqpErr).Dur("retry_in", b.opts.ReconnectDelay).Msg("conexión con el broker perdida")
		}

		b.mu.Lock()
		b.conn = nil
		b.pubCh = nil
		b.connected = make(chan struct{})
		b.mu.Unlock()

		for {
			select {
			case <-b.done:
				return
			case <-time.After(b.opts.ReconnectDelay):
			}
			if err := b.connect(); err != nil {
				b.log.Error().Err(err).Msg("reconexión fallida")
				continue
			}
			b.log.Info().Msg("reconectado al broker")
			break
		}
	}
}

// Publish publica con confirmación del broker. No encola si no hay conexión.
func (b *AMQPBroker) Publish(ctx context.Context, env Envelope) error {
	select {
	case <-b.done:
		return ErrClosed
	default:
	}
	b.mu.RLock()
	ch := b.pubCh
	b.mu.RUnlock()
	if ch == nil {
		return ErrNotConnected
	}

	mode := amqp.Transient
	if env.Persistent {
		mode = amqp.Persistent
	}
	headers := amqp.Table{}
	for k, v := range env.Headers {
		headers[k] = v
	}

	b.pubMu.Lock()
	defer b.pubMu.Unlock()
	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, b.opts.Exchange, env.RoutingKey, false, false, amqp.Publishing{
		ContentType:  env.ContentType,
		DeliveryMode: mode,
		MessageId:    env.MessageID,
		Timestamp:    env.Timestamp,
		Headers:      headers,
		Body:         env.Payload,
	})
	if err != nil {
		if errors.Is(err, amqp.ErrClosed) {
			return ErrNotConnected
		}
		return fmt.Errorf("bus: publicar %s: %w", env.RoutingKey, err)
	}
	if confirm == nil {
		return nil
	}
	ok, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("bus: esperar confirmación %s: %w", env.RoutingKey, err)
	}
	if !ok {
		return fmt.Errorf("bus: el broker rechazó %s", env.RoutingKey)
	}
	return nil
}

// Consume declara la cola durable (no exclusiva, sin auto-delete), la enlaza y entrega
// mensajes con ack manual. Tras una reconexión vuelve a declarar y sigue en el mismo canal.
func (b *AMQPBroker) Consume(ctx context.Context, queue string, keys []string) (<-chan Delivery, error) {
	ch, msgs, err := b.openConsumer(queue, keys)
	if err != nil {
		return nil, err
	}
	out := make(chan Delivery)
	b.wg.Add(1)
	go b.consumeLoop(ctx, queue, keys, ch, msgs, out)
	return out, nil
}

func (b *AMQPBroker) openConsumer(queue string, keys []string) (*amqp.Channel, <-chan amqp.Delivery, error) {
	b.mu.RLock()
	conn := b.conn
	b.mu.RUnlock()
	if conn == nil {
		return nil, nil, ErrNotConnected
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("bus: abrir canal de consumo: %w", err)
	}
	if err := ch.Qos(b.opts.Prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("bus: qos: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("bus: declarar cola %s: %w", queue, err)
	}
	for _, key := range keys {
		if err := ch.QueueBind(queue, key, b.opts.Exchange, false, nil); err != nil {
			_ = ch.Close()
			return nil, nil, fmt.Errorf("bus: enlazar %s a %s: %w", key, queue, err)
		}
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("bus: consumir %s: %w", queue, err)
	}
	return ch, msgs, nil
}

func (b *AMQPBroker) consumeLoop(ctx context.Context, queue string, keys []string, ch *amqp.Channel, msgs <-chan amqp.Delivery, out chan<- Delivery) {
	defer b.wg.Done()
	defer close(out)
	log := b.log.With().Str("queue", queue).Logger()

	for {
		if forward(ctx, b.done, msgs, out) {
			_ = ch.Close()
			return
		}
		// el canal de entregas se cerró: esperar reconexión y volver a declarar
		for {
			if !b.waitConnected(ctx) {
				return
			}
			var err error
			ch, msgs, err = b.openConsumer(queue, keys)
			if err == nil {
				log.Info().Msg("consumidor restablecido")
				break
			}
			log.Error().Err(err).Msg("no se pudo restablecer el consumidor")
			select {
			case <-ctx.Done():
				return
			case <-b.done:
				return
			case <-time.After(b.opts.ReconnectDelay):
			}
		}
	}
}

// forward reenvía entregas hasta que se cierren (false) o se pida terminar (true).
func forward(ctx context.Context, done <-chan struct{}, msgs <-chan amqp.Delivery, out chan<- Delivery) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case <-done:
			return true
		case m, ok := <-msgs:
			if !ok {
				return false
			}
			d := fromAMQP(m)
			select {
			case out <- d:
			case <-ctx.Done():
				_ = m.Nack(false, true)
				return true
			case <-done:
				return true
			}
		}
	}
}

func fromAMQP(m amqp.Delivery) Delivery {
	headers := make(map[string]string, len(m.Headers))
	for k, v := range m.Headers {
		if s, ok := v.(string); ok {
			headers[k] = s
		} else {
			headers[k] = fmt.Sprint(v)
		}
	}
	env := Envelope{
		RoutingKey:  m.RoutingKey,
		Payload:     m.Body,
		Persistent:  m.DeliveryMode == amqp.Persistent,
		MessageID:   m.MessageId,
		ContentType: m.ContentType,
		Timestamp:   m.Timestamp,
		Headers:     headers,
	}
	return NewDelivery(env, m.Redelivered,
		func() error { return m.Ack(false) },
		func(requeue bool) error { return m.Nack(false, requeue) },
	)
}

func (b *AMQPBroker) waitConnected(ctx context.Context) bool {
	b.mu.RLock()
	c := b.connected
	b.mu.RUnlock()
	select {
	case <-c:
		return true
	case <-ctx.Done():
		return false
	case <-b.done:
		return false
	}
}

// Close cierra canales y conexión; los consumidores cierran su canal de entregas.
func (b *AMQPBroker) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		b.mu.Lock()
		if b.pubCh != nil {
			_ = b.pubCh.Close()
		}
		if b.conn != nil {
			err = b.conn.Close()
		}
		b.mu.Unlock()
		b.wg.Wait()
	})
	return err
}
