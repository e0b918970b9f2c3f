package entity

import "strconv"

// FieldChange describe la diferencia de un campo entre dos estados de un producto.
type FieldChange struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// ProductSnapshot copia inmutable de los campos de un producto tomada al momento del evento.
// Los campos no se exportan: una vez construido no hay forma de mutarlo.
type ProductSnapshot struct {
	productID     int64
	inventoryCode int
	model         string
	vendor        string
	categoryName  string
	isWorking     bool
}

// NewProductSnapshot construye el snapshot.
func NewProductSnapshot(productID int64, inventoryCode int, model, vendor, categoryName string, isWorking bool) ProductSnapshot {
	return ProductSnapshot{
		productID:     productID,
		inventoryCode: inventoryCode,
		model:         model,
		vendor:        vendor,
		categoryName:  categoryName,
		isWorking:     isWorking,
	}
}

func (s ProductSnapshot) ProductID() int64 { return s.productID }
func (s ProductSnapshot) InventoryCode() int { return s.inventoryCode }
func (s ProductSnapshot) Model() string { return s.model }
func (s ProductSnapshot) Vendor() string { return s.vendor }
func (s ProductSnapshot) CategoryName() string { return s.categoryName }
func (s ProductSnapshot) IsWorking() bool { return s.isWorking }
func (s ProductSnapshot) IsZero() bool { return s == ProductSnapshot{} }
func (s ProductSnapshot) Equal(o ProductSnapshot) bool { return s == o }

// Diff devuelve los campos semánticos que cambian de s a after (vacío si son iguales).
func (s ProductSnapshot) Diff(after ProductSnapshot) []FieldChange {
	var out []FieldChange
	add := func(field, before, next string) {
		if before != next {
			out = append(out, FieldChange{Field: field, Before: before, After: next})
		}
	}
	add("inventoryCode", strconv.Itoa(s.inventoryCode), strconv.Itoa(after.inventoryCode))
	add("model", s.model, after.model)
	add("vendor", s.vendor, after.vendor)
	add("categoryName", s.categoryName, after.categoryName)
	add("isWorking", strconv.FormatBool(s.isWorking), strconv.FormatBool(after.isWorking))
	return out
}
