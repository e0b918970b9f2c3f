package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-eventos/internal/application/ports"
	"github.com/jhoicas/inventario-eventos/internal/domain/event"
	"github.com/jhoicas/inventario-eventos/pkg/logger"
)

// Service arma notificaciones por usuario a partir de los eventos del bus.
type Service struct {
	pusher ports.Pusher
	dedup  ports.Deduplicator
	log    *logger.Logger
	now    func() time.Time
}

// NewService construye el servicio. dedup nil desactiva la deduplicación.
func NewService(pusher ports.Pusher, dedup ports.Deduplicator, log *logger.Logger) *Service {
	return &Service{pusher: pusher, dedup: dedup, log: log.Component("notification"), now: time.Now}
}

// HandleRoute avisa al solicitante de la ruta y al actor que la originó.
func (s *Service) HandleRoute(ctx context.Context, key string, n event.RouteNotice, messageID string) error {
	title, msg := routeMessage(key, n)
	return s.deliver(ctx, messageID, key, title, msg, fmt.Sprintf("route:%d", n.RouteID), n.RequestedByID, n.ActorID)
}

// HandleApproval avisa a quien pidió la operación.
func (s *Service) HandleApproval(ctx context.Context, key string, n event.ApprovalNotice, messageID string) error {
	title, msg := approvalMessage(key, n)
	return s.deliver(ctx, messageID, key, title, msg, "approval:"+n.RequestID, n.RequestedByID)
}

// HandleProductCreated avisa a quien creó el producto.
func (s *Service) HandleProductCreated(ctx context.Context, e event.ProductCreated, messageID string) error {
	msg := fmt.Sprintf("El producto %s quedó registrado en el catálogo.", productLabel(e.InventoryCode, e.Model))
	return s.deliver(ctx, messageID, event.KeyProductCreated, "Producto creado", msg,
		fmt.Sprintf("product:%d", e.ProductID), e.CreatedByID)
}

// HandleProductDeleted avisa a quien dio de baja el producto.
func (s *Service) HandleProductDeleted(ctx context.Context, e event.ProductDeleted, messageID string) error {
	msg := fmt.Sprintf("El producto %s fue eliminado del catálogo.", productLabel(e.InventoryCode, e.Model))
	return s.deliver(ctx, messageID, event.KeyProductDeleted, "Producto eliminado", msg,
		fmt.Sprintf("product:%d", e.ProductID), e.DeletedByID)
}

func (s *Service) deliver(ctx context.Context, messageID, kind, title, msg, ref string, users ...string) error {
	sent := make(map[string]bool, len(users))
	for _, user := range users {
		if user == "" || sent[user] {
			continue
		}
		sent[user] = true

		key := messageID + ":" + user
		if s.dedup != nil && messageID != "" {
			fresh, err := s.dedup.Claim(ctx, key)
			if err != nil {
				return err
			}
			if !fresh {
				s.log.Debug().Str("message_id", messageID).Str("user_id", user).Msg("notificación ya entregada")
				continue
			}
		}
		n := ports.Notification{
			ID:         uuid.NewString(),
			UserID:     user,
			Kind:       kind,
			Title:      title,
			Message:    msg,
			Reference:  ref,
			OccurredAt: s.now().UTC(),
		}
		if err := s.pusher.Push(ctx, n); err != nil {
			if s.dedup != nil && messageID != "" {
				if ferr := s.dedup.Forget(context.WithoutCancel(ctx), key); ferr != nil {
					s.log.Warn().Err(ferr).Str("key", key).Msg("no se pudo liberar la clave de deduplicación")
				}
			}
			return fmt.Errorf("notificar a %s: %w", user, err)
		}
		s.log.Debug().Str("user_id", user).Str("kind", kind).Msg("notificación enviada")
	}
	return nil
}
