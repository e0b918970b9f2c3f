package event

import (
	"time"

	"github.com/jhoicas/inventario-eventos/internal/domain/entity"
)

// ProductData campos auditables del producto tal como viajan en los eventos.
// Las etiquetas json aceptan también PascalCase (encoding/json compara sin mayúsculas).
type ProductData struct {
	ProductID     int64  `json:"productId" validate:"required,gt=0"`
	InventoryCode int    `json:"inventoryCode" validate:"required,gt=0"`
	Model         string `json:"model"`
	Vendor        string `json:"vendor,omitempty"`
	CategoryName  string `json:"categoryName,omitempty"`
	IsWorking     bool   `json:"isWorking"`
}

// Snapshot convierte el payload en el value object inmutable.
func (d ProductData) Snapshot() entity.ProductSnapshot {
	return entity.NewProductSnapshot(d.ProductID, d.InventoryCode, d.Model, d.Vendor, d.CategoryName, d.IsWorking)
}

// DataFromSnapshot operación inversa, usada por los publicadores.
func DataFromSnapshot(s entity.ProductSnapshot) ProductData {
	return ProductData{
		ProductID:     s.ProductID(),
		InventoryCode: s.InventoryCode(),
		Model:         s.Model(),
		Vendor:        s.Vendor(),
		CategoryName:  s.CategoryName(),
		IsWorking:     s.IsWorking(),
	}
}

// ProductCreated payload de product.created.
type ProductCreated struct {
	ProductData
	DepartmentID   int64     `json:"departmentId" validate:"required,gt=0"`
	DepartmentName string    `json:"departmentName,omitempty"`
	Worker         string    `json:"worker,omitempty"`
	IsNewItem      bool      `json:"isNewItem"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	CreatedByID    string    `json:"createdById,omitempty"`
	CreatedByName  string    `json:"createdByName,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// ProductUpdated payload de product.updated. Changes son las diferencias que calculó el catálogo.
// Before puede faltar y After puede omitir productId (se toma del nivel superior), por eso
// no se validan anidados; NewUpdateRoute exige el producto del estado final.
type ProductUpdated struct {
	ProductID        int64                `json:"productId" validate:"required,gt=0"`
	Before           ProductData          `json:"before" validate:"-"`
	After            ProductData          `json:"after" validate:"-"`
	FromDepartmentID *int64               `json:"fromDepartmentId,omitempty"`
	DepartmentID     int64                `json:"departmentId" validate:"required,gt=0"`
	DepartmentName   string               `json:"departmentName,omitempty"`
	Worker           string               `json:"worker,omitempty"`
	ImageURL         string               `json:"imageUrl,omitempty"`
	Notes            string               `json:"notes,omitempty"`
	Changes          []entity.FieldChange `json:"changes,omitempty" validate:"dive"`
	UpdatedByID      string               `json:"updatedById,omitempty"`
	UpdatedByName    string               `json:"updatedByName,omitempty"`
	OccurredAt       time.Time            `json:"occurredAt"`
}

// ProductDeleted payload de product.deleted.
type ProductDeleted struct {
	ProductData
	DepartmentID   int64     `json:"departmentId" validate:"required,gt=0"`
	DepartmentName string    `json:"departmentName,omitempty"`
	Worker         string    `json:"worker,omitempty"`
	RemovedBy      string    `json:"removedBy,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	DeletedByID    string    `json:"deletedById,omitempty"`
	DeletedByName  string    `json:"deletedByName,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// ProductTransferred payload de product.transferred: mueve el producto vivo al departamento destino.
type ProductTransferred struct {
	ProductID        int64     `json:"productId" validate:"required,gt=0"`
	RouteID          int64     `json:"routeId" validate:"required,gt=0"`
	FromDepartmentID int64     `json:"fromDepartmentId"`
	ToDepartmentID   int64     `json:"toDepartmentId" validate:"required,gt=0"`
	ToDepartmentName string    `json:"toDepartmentName,omitempty"`
	ToWorker         string    `json:"toWorker,omitempty"`
	CompletedByID    string    `json:"completedById,omitempty"`
	OccurredAt       time.Time `json:"occurredAt"`
}

// RouteNotice payload de route.created, route.completed y route.deleted.
type RouteNotice struct {
	RouteID          int64            `json:"routeId" validate:"required,gt=0"`
	RouteType        entity.RouteType `json:"routeType" validate:"required"`
	ProductID        int64            `json:"productId" validate:"required,gt=0"`
	InventoryCode    int              `json:"inventoryCode"`
	Model            string           `json:"model,omitempty"`
	FromDepartmentID *int64           `json:"fromDepartmentId,omitempty"`
	ToDepartmentID   int64            `json:"toDepartmentId"`
	ToDepartmentName string           `json:"toDepartmentName,omitempty"`
	RequestedByID    string           `json:"requestedById,omitempty"`
	RequestedByName  string           `json:"requestedByName,omitempty"`
	ActorID          string           `json:"actorId,omitempty"`
	OccurredAt       time.Time        `json:"occurredAt"`
}

// NewRouteNotice arma el aviso a partir de la ruta persistida.
func NewRouteNotice(r *entity.InventoryRoute, actorID string, now time.Time) RouteNotice {
	return RouteNotice{
		RouteID:          r.ID,
		RouteType:        r.Type,
		ProductID:        r.Snapshot.ProductID(),
		InventoryCode:    r.Snapshot.InventoryCode(),
		Model:            r.Snapshot.Model(),
		FromDepartmentID: r.FromDepartmentID,
		ToDepartmentID:   r.ToDepartmentID,
		ToDepartmentName: r.ToDepartmentName,
		RequestedByID:    r.RequestedByID,
		RequestedByName:  r.RequestedByName,
		ActorID:          actorID,
		OccurredAt:       now.UTC(),
	}
}

// ApprovalNotice payload de approval.request.*.
type ApprovalNotice struct {
	RequestID       string                `json:"requestId" validate:"required"`
	RequestType     string                `json:"requestType,omitempty"`
	Status          entity.ApprovalStatus `json:"status,omitempty"`
	RequestedByID   string                `json:"requestedById,omitempty"`
	RequestedByName string                `json:"requestedByName,omitempty"`
	ApprovedByID    string                `json:"approvedById,omitempty"`
	ApprovedByName  string                `json:"approvedByName,omitempty"`
	Reason          string                `json:"reason,omitempty"`
	OccurredAt      time.Time             `json:"occurredAt"`
}
