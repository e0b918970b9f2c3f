package entity

import (
	"fmt"
	"time"

	"github.com/jhoicas/inventario-eventos/internal/domain"
)

// RouteType tipo de entrada del ledger de auditoría.
type RouteType string

const (
	RouteTypeNewInventory RouteType = "NewInventory"
	RouteTypeUpdate       RouteType = "Update"
	RouteTypeRemoval      RouteType = "Removal"
	RouteTypeTransfer     RouteType = "Transfer"
)

// Valid indica si el tipo es uno de los cuatro conocidos.
func (t RouteType) Valid() bool {
	switch t {
	case RouteTypeNewInventory, RouteTypeUpdate, RouteTypeRemoval, RouteTypeTransfer:
		return true
	}
	return false
}

// InventoryRoute entrada del historial de un producto. Se construye solo con las
// fábricas New*Route; una ruta completada es inmutable salvo su imagen.
type InventoryRoute struct {
	ID                 int64
	Type               RouteType
	Snapshot           ProductSnapshot
	FromDepartmentID   *int64
	FromDepartmentName string
	FromWorker         string
	ToDepartmentID     int64
	ToDepartmentName   string
	ToWorker           string
	ImageURL           string
	Notes              string
	Changes            []FieldChange // solo en rutas Update
	IsNewItem          bool
	RemovedBy          string
	RequestedByID      string
	RequestedByName    string
	SourceEventID      string // id del mensaje de origen; único cuando está presente
	IsCompleted        bool
	CreatedAt          time.Time
	CompletedAt        *time.Time
}

// CreationParams datos de product.created.
type CreationParams struct {
	Snapshot         ProductSnapshot
	ToDepartmentID   int64
	ToDepartmentName string
	Worker           string
	IsNewItem        bool
	ImageURL         string
	Notes            string
	RequestedByID    string
	RequestedByName  string
	SourceEventID    string
}

// UpdateParams datos de product.updated.
type UpdateParams struct {
	Before           ProductSnapshot
	After            ProductSnapshot
	FromDepartmentID *int64
	DepartmentID     int64
	DepartmentName   string
	Worker           string
	ImageURL         string
	Notes            string
	Changes          []FieldChange // diferencias informadas por el publicador
	RequestedByID    string
	RequestedByName  string
	SourceEventID    string
}

// RemovalParams datos de product.deleted.
type RemovalParams struct {
	Snapshot        ProductSnapshot
	DepartmentID    int64
	DepartmentName  string
	Worker          string
	RemovedBy       string
	Notes           string
	RequestedByID   string
	RequestedByName string
	SourceEventID   string
}

// TransferParams datos de una solicitud de traslado.
type TransferParams struct {
	Snapshot           ProductSnapshot
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

func validSnapshot(s ProductSnapshot) error {
	if s.ProductID() <= 0 {
		return fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	}
	return nil
}

// NewInventoryRouteFromCreation registra el ingreso de un producto. Nace completada.
func NewInventoryRouteFromCreation(p CreationParams, now time.Time) (*InventoryRoute, error) {
	if err := validSnapshot(p.Snapshot); err != nil {
		return nil, err
	}
	if p.ToDepartmentID <= 0 {
		return nil, fmt.Errorf("%w: departamento destino requerido", domain.ErrInvalidInput)
	}
	notes := p.Notes
	if notes == "" {
		if p.IsNewItem {
			notes = "Ingreso de artículo nuevo al inventario"
		} else {
			notes = "Ingreso de artículo existente al inventario"
		}
	}
	return completed(&InventoryRoute{
		Type:             RouteTypeNewInventory,
		Snapshot:         p.Snapshot,
		ToDepartmentID:   p.ToDepartmentID,
		ToDepartmentName: p.ToDepartmentName,
		ToWorker:         p.Worker,
		ImageURL:         p.ImageURL,
		Notes:            notes,
		IsNewItem:        p.IsNewItem,
		RequestedByID:    p.RequestedByID,
		RequestedByName:  p.RequestedByName,
		SourceEventID:    p.SourceEventID,
	}, now), nil
}

// NewUpdateRoute registra un cambio del producto. Retorna domain.ErrNoChanges si no hay
// diferencias semánticas entre Before y After ni cambios informados por el publicador.
func NewUpdateRoute(p UpdateParams, now time.Time) (*InventoryRoute, error) {
	if err := validSnapshot(p.After); err != nil {
		return nil, err
	}
	if !p.Before.IsZero() && p.Before.ProductID() != p.After.ProductID() {
		return nil, fmt.Errorf("%w: before y after pertenecen a productos distintos", domain.ErrInvalidInput)
	}
	changes := mergeChanges(p.Before.Diff(p.After), p.Changes)
	if p.Before.IsZero() {
		changes = p.Changes
	}
	if len(changes) == 0 {
		return nil, domain.ErrNoChanges
	}
	r := &InventoryRoute{
		Type:             RouteTypeUpdate,
		Snapshot:         p.After,
		ToDepartmentID:   p.DepartmentID,
		ToDepartmentName: p.DepartmentName,
		ToWorker:         p.Worker,
		ImageURL:         p.ImageURL,
		Notes:            p.Notes,
		Changes:          changes,
		RequestedByID:    p.RequestedByID,
		RequestedByName:  p.RequestedByName,
		SourceEventID:    p.SourceEventID,
	}
	if p.FromDepartmentID != nil && *p.FromDepartmentID != p.DepartmentID {
		from := *p.FromDepartmentID
		r.FromDepartmentID = &from
	}
	return completed(r, now), nil
}

// NewRemovalRoute registra la baja de un producto. Nace completada.
func NewRemovalRoute(p RemovalParams, now time.Time) (*InventoryRoute, error) {
	if err := validSnapshot(p.Snapshot); err != nil {
		return nil, err
	}
	from := p.DepartmentID
	return completed(&InventoryRoute{
		Type:               RouteTypeRemoval,
		Snapshot:           p.Snapshot,
		FromDepartmentID:   &from,
		FromDepartmentName: p.DepartmentName,
		FromWorker:         p.Worker,
		ToDepartmentID:     p.DepartmentID,
		ToDepartmentName:   p.DepartmentName,
		Notes:              p.Notes,
		RemovedBy:          p.RemovedBy,
		RequestedByID:      p.RequestedByID,
		RequestedByName:    p.RequestedByName,
		SourceEventID:      p.SourceEventID,
	}, now), nil
}

// NewTransferRoute registra un traslado pendiente de confirmación física.
func NewTransferRoute(p TransferParams, now time.Time) (*InventoryRoute, error) {
	if err := validSnapshot(p.Snapshot); err != nil {
		return nil, err
	}
	if p.ToDepartmentID <= 0 || p.FromDepartmentID <= 0 {
		return nil, fmt.Errorf("%w: departamentos de origen y destino requeridos", domain.ErrInvalidInput)
	}
	if p.FromDepartmentID == p.ToDepartmentID && p.FromWorker == p.ToWorker {
		return nil, fmt.Errorf("%w: el traslado no cambia de departamento ni de responsable", domain.ErrInvalidInput)
	}
	from := p.FromDepartmentID
	return &InventoryRoute{
		Type:               RouteTypeTransfer,
		Snapshot:           p.Snapshot,
		FromDepartmentID:   &from,
		FromDepartmentName: p.FromDepartmentName,
		FromWorker:         p.FromWorker,
		ToDepartmentID:     p.ToDepartmentID,
		ToDepartmentName:   p.ToDepartmentName,
		ToWorker:           p.ToWorker,
		ImageURL:           p.ImageURL,
		Notes:              p.Notes,
		RequestedByID:      p.RequestedByID,
		RequestedByName:    p.RequestedByName,
		CreatedAt:          now.UTC(),
	}, nil
}

func completed(r *InventoryRoute, now time.Time) *InventoryRoute {
	t := now.UTC()
	r.CreatedAt = t
	r.IsCompleted = true
	r.CompletedAt = &t
	return r
}

func mergeChanges(computed, reported []FieldChange) []FieldChange {
	seen := make(map[string]bool, len(computed))
	out := append([]FieldChange(nil), computed...)
	for _, c := range computed {
		seen[c.Field] = true
	}
	for _, c := range reported {
		if !seen[c.Field] && c.Before != c.After {
			seen[c.Field] = true
			out = append(out, c)
		}
	}
	return out
}

// Complete confirma el traslado. Falla si la ruta ya estaba completada.
func (r *InventoryRoute) Complete(now time.Time) error {
	if r.IsCompleted {
		return domain.ErrRouteAlreadyCompleted
	}
	t := now.UTC()
	r.IsCompleted = true
	r.CompletedAt = &t
	return nil
}

// EnsureDeletable retorna ErrRouteCompleted si la ruta ya forma parte del historial definitivo.
func (r *InventoryRoute) EnsureDeletable() error {
	if r.IsCompleted {
		return domain.ErrRouteCompleted
	}
	return nil
}

// RouteEdit cambios permitidos sobre una ruta. Campos nil no se tocan.
type RouteEdit struct {
	ToDepartmentID   *int64
	ToDepartmentName *string
	ToWorker         *string
	Notes            *string
	ImageURL         *string
}

func (e RouteEdit) onlyImage() bool {
	return e.ToDepartmentID == nil && e.ToDepartmentName == nil && e.ToWorker == nil && e.Notes == nil
}

// ApplyEdit aplica la edición. Sobre una ruta completada solo se acepta cambiar la imagen.
func (r *InventoryRoute) ApplyEdit(e RouteEdit) error {
	if r.IsCompleted && !e.onlyImage() {
		return domain.ErrRouteCompleted
	}
	if e.ToDepartmentID != nil {
		if *e.ToDepartmentID <= 0 {
			return fmt.Errorf("%w: departamento destino inválido", domain.ErrInvalidInput)
		}
		r.ToDepartmentID = *e.ToDepartmentID
	}
	if e.ToDepartmentName != nil {
		r.ToDepartmentName = *e.ToDepartmentName
	}
	if e.ToWorker != nil {
		r.ToWorker = *e.ToWorker
	}
	if e.Notes != nil {
		r.Notes = *e.Notes
	}
	if e.ImageURL != nil {
		r.ImageURL = *e.ImageURL
	}
	return nil
}
