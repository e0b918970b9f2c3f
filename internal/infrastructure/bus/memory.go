package bus

import (
	"context"
	"sync"
	"time"
)

var _ Broker = (*MemoryBroker)(nil)

// MemoryBroker broker en proceso con la misma semántica de tópicos: cada cola enlazada
// recibe su propia copia; un nack con requeue devuelve el mensaje al frente de la cola.
// Se usa en tests y en ejecuciones locales sin RabbitMQ.
type MemoryBroker struct {
	mu        sync.Mutex
	queues    map[string]*memQueue
	done      chan struct{}
	closeOnce sync.Once
}

type memItem struct {
	env         Envelope
	redelivered bool
}

type memQueue struct {
	mu     sync.Mutex
	keys   []string
	items  []memItem
	notify chan struct{}
}

// NewMemoryBroker crea un broker vacío.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{queues: make(map[string]*memQueue), done: make(chan struct{})}
}

func (q *memQueue) push(it memItem, front bool) {
	q.mu.Lock()
	if front {
		q.items = append([]memItem{it}, q.items...)
	} else {
		q.items = append(q.items, it)
	}
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *memQueue) pop() (memItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return memItem{}, false
	}
	it := q.items[0]
	q.items = q.items[1:]
	return it, true
}

func (q *memQueue) bind(keys []string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, k := range keys {
		if !contains(q.keys, k) {
			q.keys = append(q.keys, k)
		}
	}
}

func (q *memQueue) matches(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return matchAny(q.keys, key)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Publish copia el mensaje a cada cola cuyo binding coincide. Sin colas enlazadas se pierde,
// igual que en un exchange de tópicos.
func (b *MemoryBroker) Publish(_ context.Context, env Envelope) error {
	select {
	case <-b.done:
		return ErrClosed
	default:
	}
	if env.Timestamp.IsZero() {
		env.Timestamp = time.Now().UTC()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, q := range b.queues {
		if q.matches(env.RoutingKey) {
			q.push(memItem{env: cloneEnvelope(env)}, false)
		}
	}
	return nil
}

// Declare crea la cola y sus bindings sin consumir (los mensajes se acumulan).
func (b *MemoryBroker) Declare(queue string, keys []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.queues[queue]
	if !ok {
		q = &memQueue{notify: make(chan struct{}, 1)}
		b.queues[queue] = q
	}
	q.bind(keys)
}

// Pending cantidad de mensajes sin entregar en la cola.
func (b *MemoryBroker) Pending(queue string) int {
	b.mu.Lock()
	q, ok := b.queues[queue]
	b.mu.Unlock()
	if !ok {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Consume entrega un mensaje a la vez: el siguiente sale cuando el anterior fue confirmado.
func (b *MemoryBroker) Consume(ctx context.Context, queue string, keys []string) (<-chan Delivery, error) {
	select {
	case <-b.done:
		return nil, ErrClosed
	default:
	}
	b.Declare(queue, keys)
	b.mu.Lock()
	q := b.queues[queue]
	b.mu.Unlock()

	out := make(chan Delivery)
	go b.pump(ctx, q, out)
	return out, nil
}

func (b *MemoryBroker) pump(ctx context.Context, q *memQueue, out chan<- Delivery) {
	defer close(out)
	for {
		it, ok := q.pop()
		if !ok {
			select {
			case <-q.notify:
				continue
			case <-ctx.Done():
				return
			case <-b.done:
				return
			}
		}

		var once sync.Once
		settled := make(chan struct{})
		requeue := func() { q.push(memItem{env: it.env, redelivered: true}, true) }
		d := NewDelivery(it.env, it.redelivered,
			func() error {
				once.Do(func() { close(settled) })
				return nil
			},
			func(again bool) error {
				once.Do(func() {
					if again {
						requeue()
					}
					close(settled)
				})
				return nil
			},
		)

		select {
		case out <- d:
		case <-ctx.Done():
			q.push(it, true)
			return
		case <-b.done:
			return
		}

		select {
		case <-settled:
		case <-ctx.Done():
			// sin confirmar al cerrar: vuelve a la cola como en AMQP
			once.Do(func() { requeue(); close(settled) })
			return
		case <-b.done:
			return
		}
	}
}

// Close detiene todos los consumidores.
func (b *MemoryBroker) Close() error {
	b.closeOnce.Do(func() { close(b.done) })
	return nil
}

func cloneEnvelope(env Envelope) Envelope {
	out := env
	out.Payload = append([]byte(nil), env.Payload...)
	if env.Headers != nil {
		out.Headers = make(map[string]string, len(env.Headers))
		for k, v := range env.Headers {
			out.Headers[k] = v
		}
	}
	return out
}
