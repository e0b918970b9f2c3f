package ports

import "context"

// GateRequest operación privilegiada que puede requerir aprobación.
type GateRequest struct {
	Actor       Actor
	Permission  string // permiso de ejecución directa
	RequestType string // entity.Request*
	ResourceID  int64  // 0 en creaciones
	Payload     any    // DTO de entrada; se serializa como action data
	Image       *Image
}

// ApprovalGate deja pasar la operación si el actor tiene el permiso directo; si no,
// registra la solicitud y retorna *domain.ApprovalRequiredError.
type ApprovalGate interface {
	Require(ctx context.Context, req GateRequest) error
}
