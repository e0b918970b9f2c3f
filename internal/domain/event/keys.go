package event

// Claves de enrutamiento sobre el exchange de tópicos. Formato <entidad>.<verbo>.
const (
	KeyProductCreated     = "product.created"
	KeyProductUpdated     = "product.updated"
	KeyProductDeleted     = "product.deleted"
	KeyProductTransferred = "product.transferred"

	KeyRouteCreated   = "route.created"
	KeyRouteCompleted = "route.completed"
	KeyRouteDeleted   = "route.deleted"

	KeyApprovalCreated  = "approval.request.created"
	KeyApprovalApproved = "approval.request.approved"
	KeyApprovalRejected = "approval.request.rejected"
	KeyApprovalExecuted = "approval.request.executed"
	KeyApprovalFailed   = "approval.request.failed"
)
