package entity

import (
	"encoding/json"
	"time"
)

// ApprovalStatus estado de una solicitud de aprobación (propiedad del servicio de aprobaciones).
type ApprovalStatus string

const (
	ApprovalPending   ApprovalStatus = "Pending"
	ApprovalApproved  ApprovalStatus = "Approved"
	ApprovalRejected  ApprovalStatus = "Rejected"
	ApprovalExecuted  ApprovalStatus = "Executed"
	ApprovalFailed    ApprovalStatus = "Failed"
	ApprovalCancelled ApprovalStatus = "Cancelled"
)

// Final indica si la solicitud ya no admite transiciones.
func (s ApprovalStatus) Final() bool {
	switch s {
	case ApprovalRejected, ApprovalExecuted, ApprovalFailed, ApprovalCancelled:
		return true
	}
	return false
}

// Tipos de solicitud que el ejecutor sabe reproducir.
const (
	RequestProductCreate   = "product.create"
	RequestProductUpdate   = "product.update"
	RequestProductDelete   = "product.delete"
	RequestProductTransfer = "product.transfer"
	RequestRouteUpdate     = "route.update"
	RequestRouteDelete     = "route.delete"
)

// ApprovalRequest referencia a una solicitud externa. Aquí solo se lee y se reporta su resultado.
type ApprovalRequest struct {
	ID              string
	RequestType     string
	ActionData      json.RawMessage
	RequestedByID   string
	RequestedByName string
	ApprovedByID    string
	ApprovedByName  string
	Status          ApprovalStatus
	ProcessedAt     *time.Time
	RejectionReason string
}
