package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/jhoicas/inventario-eventos/pkg/logger"
)

var _ Broker = (*KafkaBroker)(nil)

const (
	headerRoutingKey  = "routing-key"
	headerMessageID   = "message-id"
	headerContentType = "content-type"
	headerRedelivered = "x-redelivered"
)

// KafkaOptions parámetros del driver Kafka. El exchange se mapea a un tópico y cada
// cola a un consumer group, de modo que cada servicio recibe su propia copia.
type KafkaOptions struct {
	Brokers    []string
	Topic      string
	RetryDelay time.Duration
}

// KafkaBroker driver alternativo sobre sarama.
type KafkaBroker struct {
	opts     KafkaOptions
	cfg      *sarama.Config
	producer sarama.SyncProducer
	log      *logger.Logger

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// DialKafka crea el productor síncrono; los consumer groups se crean en Consume.
func DialKafka(opts KafkaOptions, log *logger.Logger) (*KafkaBroker, error) {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 10 * time.Second
	}
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_0_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Consumer.Return.Errors = true
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}

	producer, err := sarama.NewSyncProducer(opts.Brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("bus: crear productor kafka: %w", err)
	}
	return &KafkaBroker{
		opts:     opts,
		cfg:      cfg,
		producer: producer,
		log:      log.Component("bus.kafka"),
		done:     make(chan struct{}),
	}, nil
}

// Publish envía el mensaje al tópico con la clave de enrutamiento como key y cabecera.
func (b *KafkaBroker) Publish(_ context.Context, env Envelope) error {
	select {
	case <-b.done:
		return ErrClosed
	default:
	}
	if _, _, err := b.producer.SendMessage(b.toProducerMessage(env, false)); err != nil {
		return fmt.Errorf("bus: publicar %s: %w", env.RoutingKey, err)
	}
	return nil
}

func (b *KafkaBroker) toProducerMessage(env Envelope, redelivered bool) *sarama.ProducerMessage {
	headers := []sarama.RecordHeader{
		{Key: []byte(headerRoutingKey), Value: []byte(env.RoutingKey)},
		{Key: []byte(headerMessageID), Value: []byte(env.MessageID)},
		{Key: []byte(headerContentType), Value: []byte(env.ContentType)},
	}
	if redelivered {
		headers = append(headers, sarama.RecordHeader{Key: []byte(headerRedelivered), Value: []byte("true")})
	}
	for k, v := range env.Headers {
		switch k {
		case headerRoutingKey, headerMessageID, headerContentType, headerRedelivered:
			continue
		}
		headers = append(headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}
	return &sarama.ProducerMessage{
		Topic:     b.opts.Topic,
		Key:       sarama.StringEncoder(env.RoutingKey),
		Value:     sarama.ByteEncoder(env.Payload),
		Headers:   headers,
		Timestamp: env.Timestamp,
	}
}

// Consume une el consumer group queue al tópico. Los mensajes cuya clave no coincide
// con ningún binding se marcan y se saltan.
func (b *KafkaBroker) Consume(ctx context.Context, queue string, keys []string) (<-chan Delivery, error) {
	group, err := sarama.NewConsumerGroup(b.opts.Brokers, queue, b.cfg)
	if err != nil {
		return nil, fmt.Errorf("bus: crear consumer group %s: %w", queue, err)
	}
	out := make(chan Delivery)
	h := &claimHandler{broker: b, keys: keys, out: out}
	log := b.log.With().Str("queue", queue).Logger()

	b.wg.Add(2)
	go func() {
		defer b.wg.Done()
		for err := range group.Errors() {
			log.Error().Err(err).Msg("error del consumer group")
		}
	}()
	go func() {
		defer b.wg.Done()
		defer close(out)
		defer func() { _ = group.Close() }()
		for {
			if err := group.Consume(ctx, []string{b.opts.Topic}, h); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				log.Error().Err(err).Dur("retry_in", b.opts.RetryDelay).Msg("error consumiendo")
				select {
				case <-ctx.Done():
					return
				case <-b.done:
					return
				case <-time.After(b.opts.RetryDelay):
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-b.done:
				return
			default:
			}
		}
	}()
	return out, nil
}

// Close cierra el productor y espera a los consumidores.
func (b *KafkaBroker) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		b.wg.Wait()
		err = b.producer.Close()
	})
	return err
}

type claimHandler struct {
	broker *KafkaBroker
	keys   []string
	out    chan<- Delivery
}

func (h *claimHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *claimHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim entrega en orden y espera la confirmación de cada mensaje antes del siguiente.
func (h *claimHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		env, redelivered := fromRecord(msg)
		if !matchAny(h.keys, env.RoutingKey) {
			session.MarkMessage(msg, "")
			continue
		}
		for {
			settled := make(chan bool, 1)
			d := NewDelivery(env, redelivered,
				func() error {
					session.MarkMessage(msg, "")
					settled <- true
					return nil
				},
				func(requeue bool) error {
					if requeue {
						// al final del tópico, como una nueva entrega
						if _, _, err := h.broker.producer.SendMessage(h.broker.toProducerMessage(env, true)); err != nil {
							settled <- false
							return fmt.Errorf("bus: reencolar %s: %w", env.RoutingKey, err)
						}
					}
					session.MarkMessage(msg, "")
					settled <- true
					return nil
				},
			)
			select {
			case h.out <- d:
			case <-session.Context().Done():
				return nil
			}
			var ok bool
			select {
			case ok = <-settled:
			case <-session.Context().Done():
				return nil
			}
			if ok {
				break
			}
			select {
			case <-time.After(h.broker.opts.RetryDelay):
			case <-session.Context().Done():
				return nil
			}
		}
	}
	return nil
}

func fromRecord(msg *sarama.ConsumerMessage) (Envelope, bool) {
	env := Envelope{
		RoutingKey: string(msg.Key),
		Payload:    msg.Value,
		Persistent: true,
		Timestamp:  msg.Timestamp,
		Headers:    make(map[string]string, len(msg.Headers)),
	}
	redelivered := false
	for _, rh := range msg.Headers {
		if rh == nil {
			continue
		}
		k, v := string(rh.Key), string(rh.Value)
		switch k {
		case headerRoutingKey:
			env.RoutingKey = v
		case headerMessageID:
			env.MessageID = v
		case headerContentType:
			env.ContentType = v
		case headerRedelivered:
			redelivered = v == "true"
		default:
			env.Headers[k] = v
		}
	}
	return env, redelivered
}
