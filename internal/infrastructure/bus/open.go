package bus

import (
	"fmt"

	"github.com/jhoicas/inventario-eventos/pkg/config"
	"github.com/jhoicas/inventario-eventos/pkg/logger"
)

// Open crea el broker según BUS_DRIVER.
func Open(cfg config.BusConfig, log *logger.Logger) (Broker, error) {
	switch cfg.Driver {
	case "amqp", "":
		return DialAMQP(AMQPOptions{
			URL:            cfg.URL,
			Exchange:       cfg.Exchange,
			Prefetch:       cfg.Prefetch,
			ReconnectDelay: cfg.ReconnectDelay,
		}, log)
	case "kafka":
		return DialKafka(KafkaOptions{
			Brokers:    cfg.KafkaBrokers,
			Topic:      cfg.Exchange,
			RetryDelay: cfg.ReconnectDelay,
		}, log)
	case "memory":
		return NewMemoryBroker(), nil
	default:
		return nil, fmt.Errorf("bus: driver desconocido %q", cfg.Driver)
	}
}
