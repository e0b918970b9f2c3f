package event

import (
	"time"

	"github.com/jhoicas/inventario-eventos/internal/domain/entity"
)

// LedgerEvent conjunto cerrado de hechos que producen una entrada del ledger.
// El método no exportado impide implementaciones fuera de este paquete; cada variante
// está obligada a declarar su fábrica vía Route.
type LedgerEvent interface {
	// Route construye la ruta que corresponde al hecho. sourceEventID puede ser vacío.
	Route(sourceEventID string, now time.Time) (*entity.InventoryRoute, error)
	Kind() entity.RouteType
	ledgerEvent()
}

var (
	_ LedgerEvent = ProductCreated{}
	_ LedgerEvent = ProductUpdated{}
	_ LedgerEvent = ProductDeleted{}
	_ LedgerEvent = TransferRequested{}
)

func (ProductCreated) ledgerEvent()    {}
func (ProductUpdated) ledgerEvent()    {}
func (ProductDeleted) ledgerEvent()    {}
func (TransferRequested) ledgerEvent() {}

func (ProductCreated) Kind() entity.RouteType    { return entity.RouteTypeNewInventory }
func (ProductUpdated) Kind() entity.RouteType    { return entity.RouteTypeUpdate }
func (ProductDeleted) Kind() entity.RouteType    { return entity.RouteTypeRemoval }
func (TransferRequested) Kind() entity.RouteType { return entity.RouteTypeTransfer }

func (e ProductCreated) Route(sourceEventID string, now time.Time) (*entity.InventoryRoute, error) {
	return entity.NewInventoryRouteFromCreation(entity.CreationParams{
		Snapshot:         e.Snapshot(),
		ToDepartmentID:   e.DepartmentID,
		ToDepartmentName: e.DepartmentName,
		Worker:           e.Worker,
		IsNewItem:        e.IsNewItem,
		ImageURL:         e.ImageURL,
		Notes:            e.Notes,
		RequestedByID:    e.CreatedByID,
		RequestedByName:  e.CreatedByName,
		SourceEventID:    sourceEventID,
	}, now)
}

func (e ProductUpdated) Route(sourceEventID string, now time.Time) (*entity.InventoryRoute, error) {
	after := e.After
	if after.ProductID == 0 {
		after.ProductID = e.ProductID
	}
	var before entity.ProductSnapshot
	if e.Before.ProductID != 0 {
		before = e.Before.Snapshot()
	}
	return entity.NewUpdateRoute(entity.UpdateParams{
		Before:           before,
		After:            after.Snapshot(),
		FromDepartmentID: e.FromDepartmentID,
		DepartmentID:     e.DepartmentID,
		DepartmentName:   e.DepartmentName,
		Worker:           e.Worker,
		ImageURL:         e.ImageURL,
		Notes:            e.Notes,
		Changes:          e.Changes,
		RequestedByID:    e.UpdatedByID,
		RequestedByName:  e.UpdatedByName,
		SourceEventID:    sourceEventID,
	}, now)
}

func (e ProductDeleted) Route(sourceEventID string, now time.Time) (*entity.InventoryRoute, error) {
	return entity.NewRemovalRoute(entity.RemovalParams{
		Snapshot:        e.Snapshot(),
		DepartmentID:    e.DepartmentID,
		DepartmentName:  e.DepartmentName,
		Worker:          e.Worker,
		RemovedBy:       e.RemovedBy,
		Notes:           e.Notes,
		RequestedByID:   e.DeletedByID,
		RequestedByName: e.DeletedByName,
		SourceEventID:   sourceEventID,
	}, now)
}

// TransferRequested solicitud de traslado iniciada por un usuario. No viaja por el bus:
// la arma el servicio de rutas con el snapshot leído del catálogo.
type TransferRequested struct {
	Product            ProductData
	FromDepartmentID   int64
	FromDepartmentName string
	ToDepartmentID     int64
	ToDepartmentName   string
	FromWorker         string
	ToWorker           string
	ImageURL           string
	Notes              string
	RequestedByID      string
	RequestedByName    string
}

func (e TransferRequested) Route(_ string, now time.Time) (*entity.InventoryRoute, error) {
	return entity.NewTransferRoute(entity.TransferParams{
		Snapshot:           e.Product.Snapshot(),
		FromDepartmentID:   e.FromDepartmentID,
		FromDepartmentName: e.FromDepartmentName,
		ToDepartmentID:     e.ToDepartmentID,
		ToDepartmentName:   e.ToDepartmentName,
		FromWorker:         e.FromWorker,
		ToWorker:           e.ToWorker,
		ImageURL:           e.ImageURL,
		Notes:              e.Notes,
		RequestedByID:      e.RequestedByID,
		RequestedByName:    e.RequestedByName,
	}, now)
}
