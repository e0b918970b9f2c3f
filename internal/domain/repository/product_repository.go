package repository

import (
	"context"

	"github.com/jhoicas/inventario-eventos/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
// Las lecturas retornan (nil, nil) cuando el producto no existe.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id int64) (*entity.Product, error)
	GetByInventoryCode(ctx context.Context, code int) (*entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	// MoveToDepartment aplica un traslado confirmado sobre el producto vivo.
	MoveToDepartment(ctx context.Context, id, departmentID int64, departmentName, worker string) error
	List(ctx context.Context, limit, offset int) ([]*entity.Product, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id int64) error
}
