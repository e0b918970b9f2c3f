package entity

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un artículo físico del inventario asignado a un departamento.
// InventoryCode es la etiqueta física; es única en todo el catálogo.
type Product struct {
	ID             int64
	InventoryCode  int
	Model          string
	Vendor         string
	CategoryID     int64
	CategoryName   string
	Description    string
	Price          decimal.Decimal // precio de compra
	DepartmentID   int64
	DepartmentName string
	Worker         string // persona a cargo, opcional
	IsWorking      bool
	IsNewItem      bool
	ImageURL       string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Snapshot captura los campos auditables del producto en este instante.
func (p *Product) Snapshot() ProductSnapshot {
	return NewProductSnapshot(p.ID, p.InventoryCode, p.Model, p.Vendor, p.CategoryName, p.IsWorking)
}

// ChangesTo calcula las diferencias semánticas entre p y next: los campos del snapshot
// más la ubicación, el responsable, el precio, la descripción y la imagen.
func (p *Product) ChangesTo(next *Product) []FieldChange {
	changes := p.Snapshot().Diff(next.Snapshot())
	add := func(field, before, after string) {
		if before != after {
			changes = append(changes, FieldChange{Field: field, Before: before, After: after})
		}
	}
	add("departmentId", strconv.FormatInt(p.DepartmentID, 10), strconv.FormatInt(next.DepartmentID, 10))
	add("worker", p.Worker, next.Worker)
	add("description", p.Description, next.Description)
	if !p.Price.Equal(next.Price) {
		changes = append(changes, FieldChange{Field: "price", Before: p.Price.String(), After: next.Price.String()})
	}
	add("imageUrl", p.ImageURL, next.ImageURL)
	return changes
}
