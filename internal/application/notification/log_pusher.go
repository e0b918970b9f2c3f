package notification

import (
	"context"

	"github.com/jhoicas/inventario-eventos/internal/application/ports"
	"github.com/jhoicas/inventario-eventos/pkg/logger"
)

var _ ports.Pusher = (*LogPusher)(nil)

// LogPusher escribe la notificación en el log. Se usa cuando no hay redis configurado.
type LogPusher struct {
	log *logger.Logger
}

func NewLogPusher(log *logger.Logger) *LogPusher {
	return &LogPusher{log: log.Component("notification.log")}
}

func (p *LogPusher) Push(_ context.Context, n ports.Notification) error {
	p.log.Info().
		Str("user_id", n.UserID).
		Str("kind", n.Kind).
		Str("reference", n.Reference).
		Str("title", n.Title).
		Msg(n.Message)
	return nil
}
