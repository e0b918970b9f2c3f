package ports

import (
	"context"

	"github.com/jhoicas/inventario-eventos/internal/domain/entity"
)

// SubmitApproval datos para registrar una solicitud de aprobación.
type SubmitApproval struct {
	RequestType     string
	ActionData      []byte
	RequestedByID   string
	RequestedByName string
}

// ApprovalGateway colaborador externo que almacena las solicitudes de aprobación.
type ApprovalGateway interface {
	Submit(ctx context.Context, req SubmitApproval) (requestID string, err error)
	// GetApproved retorna la solicitud; el caller verifica el estado.
	GetApproved(ctx context.Context, requestID string) (*entity.ApprovalRequest, error)
	ReportOutcome(ctx context.Context, requestID string, status entity.ApprovalStatus, reason string) error
}
