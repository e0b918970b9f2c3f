package approval

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-eventos/internal/application/ports"
	"github.com/jhoicas/inventario-eventos/internal/domain"
	"github.com/jhoicas/inventario-eventos/internal/domain/event"
	"github.com/jhoicas/inventario-eventos/pkg/logger"
)

var _ ports.ApprovalGate = (*Gate)(nil)

// Gate decide si una operación privilegiada se ejecuta directo o queda como solicitud.
type Gate struct {
	gateway   ports.ApprovalGateway
	publisher ports.EventPublisher
	log       *logger.Logger
	now       func() time.Time
}

// NewGate construye el gate. publisher puede ser nil si el proceso no avisa la creación.
func NewGate(gateway ports.ApprovalGateway, publisher ports.EventPublisher, log *logger.Logger) *Gate {
	return &Gate{gateway: gateway, publisher: publisher, log: log.Component("approval_gate"), now: time.Now}
}

// Require retorna nil si el actor tiene el permiso directo. Si no, registra la solicitud con el
// payload serializado (más id e imagen en base64) y retorna *domain.ApprovalRequiredError.
func (g *Gate) Require(ctx context.Context, req ports.GateRequest) error {
	if req.Actor.Can(req.Permission) {
		return nil
	}
	data, err := BuildActionData(req.Payload, req.ResourceID, req.Image)
	if err != nil {
		return err
	}
	id, err := g.gateway.Submit(ctx, ports.SubmitApproval{
		RequestType:     req.RequestType,
		ActionData:      data,
		RequestedByID:   req.Actor.ID,
		RequestedByName: req.Actor.Name,
	})
	if err != nil {
		return fmt.Errorf("registrar solicitud de aprobación: %w", err)
	}
	g.log.Info().
		Str("request_id", id).
		Str("request_type", req.RequestType).
		Str("requested_by", req.Actor.ID).
		Msg("operación enviada a aprobación")

	if g.publisher != nil {
		notice := event.ApprovalNotice{
			RequestID:       id,
			RequestType:     req.RequestType,
			RequestedByID:   req.Actor.ID,
			RequestedByName: req.Actor.Name,
			OccurredAt:      g.now().UTC(),
		}
		if err := g.publisher.Publish(ctx, event.KeyApprovalCreated, notice); err != nil {
			// La solicitud ya existe; el aviso se pierde pero la operación sigue su curso.
			g.log.Warn().Err(err).Str("request_id", id).Msg("no se pudo publicar approval.request.created")
		}
	}
	return &domain.ApprovalRequiredError{RequestID: id, RequestType: req.RequestType}
}

// BuildActionData serializa el payload como objeto JSON plano con id e imagen opcionales.
func BuildActionData(payload any, resourceID int64, img *ports.Image) ([]byte, error) {
	obj := map[string]any{}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("serializar action data: %w", err)
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("%w: el payload debe ser un objeto", domain.ErrInvalidInput)
		}
		if obj == nil {
			obj = map[string]any{}
		}
	}
	if resourceID > 0 {
		obj["id"] = resourceID
	}
	if !img.Empty() {
		obj["image_base64"] = base64.StdEncoding.EncodeToString(img.Data)
		obj["image_file_name"] = img.Filename
		obj["image_content_type"] = img.ContentType
	}
	return json.Marshal(obj)
}
