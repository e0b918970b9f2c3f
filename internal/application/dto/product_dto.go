package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para crear un producto.
// Las etiquetas form son los nombres de las partes en la variante multipart.
type CreateProductRequest struct {
	InventoryCode  int             `json:"inventory_code" form:"InventoryCode" validate:"required,gt=0"`
	Model          string          `json:"model" form:"Model" validate:"required,min=1,max=200"`
	Vendor         string          `json:"vendor" form:"Vendor" validate:"max=200"`
	CategoryID     int64           `json:"category_id" form:"CategoryId" validate:"gte=0"`
	CategoryName   string          `json:"category_name" form:"CategoryName"`
	Description    string          `json:"description" form:"Description"`
	Price          decimal.Decimal `json:"price" form:"Price"`
	DepartmentID   int64           `json:"department_id" form:"DepartmentId" validate:"required,gt=0"`
	DepartmentName string          `json:"department_name" form:"DepartmentName"`
	Worker         string          `json:"worker" form:"Worker"`
	IsWorking      bool            `json:"is_working" form:"IsWorking"`
	IsNewItem      bool            `json:"is_new_item" form:"IsNewItem"`
	Notes          string          `json:"notes" form:"Notes"`
}

// UpdateProductRequest entrada para actualizar un producto. Campos nil no se tocan.
type UpdateProductRequest struct {
	InventoryCode  *int             `json:"inventory_code" form:"InventoryCode" validate:"omitempty,gt=0"`
	Model          *string          `json:"model" form:"Model" validate:"omitempty,min=1,max=200"`
	Vendor         *string          `json:"vendor" form:"Vendor"`
	CategoryID     *int64           `json:"category_id" form:"CategoryId"`
	CategoryName   *string          `json:"category_name" form:"CategoryName"`
	Description    *string          `json:"description" form:"Description"`
	Price          *decimal.Decimal `json:"price" form:"Price"`
	DepartmentID   *int64           `json:"department_id" form:"DepartmentId" validate:"omitempty,gt=0"`
	DepartmentName *string          `json:"department_name" form:"DepartmentName"`
	Worker         *string          `json:"worker" form:"Worker"`
	IsWorking      *bool            `json:"is_working" form:"IsWorking"`
	Notes          string           `json:"notes" form:"Notes"`
}

// DeleteProductRequest datos opcionales de la baja.
type DeleteProductRequest struct {
	RemovedBy string `json:"removed_by" form:"RemovedBy"`
	Notes     string `json:"notes" form:"Notes"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID             int64           `json:"id"`
	InventoryCode  int             `json:"inventory_code"`
	Model          string          `json:"model"`
	Vendor         string          `json:"vendor"`
	CategoryID     int64           `json:"category_id"`
	CategoryName   string          `json:"category_name"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	DepartmentID   int64           `json:"department_id"`
	DepartmentName string          `json:"department_name"`
	Worker         string          `json:"worker"`
	IsWorking      bool            `json:"is_working"`
	IsNewItem      bool            `json:"is_new_item"`
	ImageURL       string          `json:"image_url,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
