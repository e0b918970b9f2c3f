package dto

import (
	"time"

	"github.com/jhoicas/inventario-eventos/internal/domain/entity"
)

// TransferRequest body para POST /api/routes/transfer. El origen se lee del catálogo.
type TransferRequest struct {
	ProductID        int64  `json:"product_id" form:"ProductId" validate:"required,gt=0"`
	ToDepartmentID   int64  `json:"to_department_id" form:"ToDepartmentId" validate:"required,gt=0"`
	ToDepartmentName string `json:"to_department_name" form:"ToDepartmentName"`
	ToWorker         string `json:"to_worker" form:"ToWorker"`
	Notes            string `json:"notes" form:"Notes"`
}

// UpdateRouteRequest edición de una ruta. Sobre rutas completadas solo se admite la imagen.
type UpdateRouteRequest struct {
	ToDepartmentID   *int64  `json:"to_department_id" form:"ToDepartmentId" validate:"omitempty,gt=0"`
	ToDepartmentName *string `json:"to_department_name" form:"ToDepartmentName"`
	ToWorker         *string `json:"to_worker" form:"ToWorker"`
	Notes            *string `json:"notes" form:"Notes"`
}

// RouteResponse salida de una entrada del ledger.
type RouteResponse struct {
	ID                 int64                `json:"id"`
	RouteType          entity.RouteType     `json:"route_type"`
	ProductID          int64                `json:"product_id"`
	InventoryCode      int                  `json:"inventory_code"`
	Model              string               `json:"model"`
	Vendor             string               `json:"vendor,omitempty"`
	CategoryName       string               `json:"category_name,omitempty"`
	IsWorking          bool                 `json:"is_working"`
	FromDepartmentID   *int64               `json:"from_department_id,omitempty"`
	FromDepartmentName string               `json:"from_department_name,omitempty"`
	FromWorker         string               `json:"from_worker,omitempty"`
	ToDepartmentID     int64                `json:"to_department_id"`
	ToDepartmentName   string               `json:"to_department_name,omitempty"`
	ToWorker           string               `json:"to_worker,omitempty"`
	ImageURL           string               `json:"image_url,omitempty"`
	Notes              string               `json:"notes,omitempty"`
	Changes            []entity.FieldChange `json:"changes,omitempty"`
	RemovedBy          string               `json:"removed_by,omitempty"`
	IsCompleted        bool                 `json:"is_completed"`
	CreatedAt          time.Time            `json:"created_at"`
	CompletedAt        *time.Time           `json:"completed_at,omitempty"`
}

// RouteHistoryResponse historial cronológico de un producto.
type RouteHistoryResponse struct {
	ProductID int64           `json:"product_id"`
	Items     []RouteResponse `json:"items"`
}

// RouteListResponse lista paginada de rutas.
type RouteListResponse struct {
	Items []RouteResponse `json:"items"`
	Page  PageResponse    `json:"page"`
}

// ToRouteResponse mapea la entidad a su representación HTTP.
func ToRouteResponse(r *entity.InventoryRoute) RouteResponse {
	return RouteResponse{
		ID:                 r.ID,
		RouteType:          r.Type,
		ProductID:          r.Snapshot.ProductID(),
		InventoryCode:      r.Snapshot.InventoryCode(),
		Model:              r.Snapshot.Model(),
		Vendor:             r.Snapshot.Vendor(),
		CategoryName:       r.Snapshot.CategoryName(),
		IsWorking:          r.Snapshot.IsWorking(),
		FromDepartmentID:   r.FromDepartmentID,
		FromDepartmentName: r.FromDepartmentName,
		FromWorker:         r.FromWorker,
		ToDepartmentID:     r.ToDepartmentID,
		ToDepartmentName:   r.ToDepartmentName,
		ToWorker:           r.ToWorker,
		ImageURL:           r.ImageURL,
		Notes:              r.Notes,
		Changes:            r.Changes,
		RemovedBy:          r.RemovedBy,
		IsCompleted:        r.IsCompleted,
		CreatedAt:          r.CreatedAt,
		CompletedAt:        r.CompletedAt,
	}
}
