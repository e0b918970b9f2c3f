package dto

// ApprovalRequiredResponse cuerpo del 202 cuando la operación quedó pendiente de aprobación.
type ApprovalRequiredResponse struct {
	RequestID   string `json:"request_id"`
	RequestType string `json:"request_type"`
	Message     string `json:"message"`
}
