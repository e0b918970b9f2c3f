package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jhoicas/inventario-eventos/internal/application/ports"
	"github.com/jhoicas/inventario-eventos/internal/domain"
	"github.com/jhoicas/inventario-eventos/internal/domain/entity"
)

var _ ports.ApprovalGateway = (*ApprovalClient)(nil)

// ApprovalClient cliente del servicio de aprobaciones.
type ApprovalClient struct {
	c serviceClient
}

// NewApprovalClient baseURL es la raíz del servicio (sin /api).
func NewApprovalClient(baseURL string, httpClient *http.Client, tokens TokenProvider) *ApprovalClient {
	return &ApprovalClient{c: newServiceClient("approvals", baseURL, httpClient, tokens)}
}

type submitRequest struct {
	RequestType     string          `json:"request_type"`
	ActionData      json.RawMessage `json:"action_data"`
	RequestedByID   string          `json:"requested_by_id"`
	RequestedByName string          `json:"requested_by_name"`
}

type submitResponse struct {
	ID string `json:"id"`
}

type approvalResponse struct {
	ID              string          `json:"id"`
	RequestType     string          `json:"request_type"`
	ActionData      json.RawMessage `json:"action_data"`
	RequestedByID   string          `json:"requested_by_id"`
	RequestedByName string          `json:"requested_by_name"`
	ApprovedByID    string          `json:"approved_by_id"`
	ApprovedByName  string          `json:"approved_by_name"`
	Status          string          `json:"status"`
	ProcessedAt     *time.Time      `json:"processed_at"`
	RejectionReason string          `json:"rejection_reason"`
}

type outcomeRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Submit registra la solicitud y retorna su ID.
func (a *ApprovalClient) Submit(ctx context.Context, req ports.SubmitApproval) (string, error) {
	var out submitResponse
	err := a.c.doJSON(ctx, http.MethodPost, "/api/approvals", submitRequest{
		RequestType:     req.RequestType,
		ActionData:      req.ActionData,
		RequestedByID:   req.RequestedByID,
		RequestedByName: req.RequestedByName,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("approvals: respuesta sin id")
	}
	return out.ID, nil
}

// GetApproved obtiene la solicitud. El estado lo verifica el caller.
func (a *ApprovalClient) GetApproved(ctx context.Context, requestID string) (*entity.ApprovalRequest, error) {
	var out approvalResponse
	if err := a.c.doJSON(ctx, http.MethodGet, "/api/approvals/"+url.PathEscape(requestID), nil, &out); err != nil {
		return nil, notFound(err)
	}
	return &entity.ApprovalRequest{
		ID:              out.ID,
		RequestType:     out.RequestType,
		ActionData:      out.ActionData,
		RequestedByID:   out.RequestedByID,
		RequestedByName: out.RequestedByName,
		ApprovedByID:    out.ApprovedByID,
		ApprovedByName:  out.ApprovedByName,
		Status:          entity.ApprovalStatus(out.Status),
		ProcessedAt:     out.ProcessedAt,
		RejectionReason: out.RejectionReason,
	}, nil
}

// ReportOutcome informa el resultado de la ejecución (Executed o Failed).
func (a *ApprovalClient) ReportOutcome(ctx context.Context, requestID string, status entity.ApprovalStatus, reason string) error {
	path := "/api/approvals/" + url.PathEscape(requestID) + "/outcome"
	return notFound(a.c.doJSON(ctx, http.MethodPut, path, outcomeRequest{Status: string(status), Reason: reason}, nil))
}

func notFound(err error) error {
	var se *StatusError
	if errors.As(err, &se) && se.Status == http.StatusNotFound {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, se.Error())
	}
	return err
}
