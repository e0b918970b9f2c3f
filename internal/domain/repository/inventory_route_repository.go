package repository

import (
	"context"

	"github.com/jhoicas/inventario-eventos/internal/domain/entity"
)

// InventoryRouteRepository puerto de persistencia del ledger de rutas.
type InventoryRouteRepository interface {
	// Create asigna ID. Retorna domain.ErrDuplicate si SourceEventID ya fue registrado.
	Create(ctx context.Context, route *entity.InventoryRoute) error
	GetByID(ctx context.Context, id int64) (*entity.InventoryRoute, error)
	ExistsBySourceEvent(ctx context.Context, sourceEventID string) (bool, error)
	Update(ctx context.Context, route *entity.InventoryRoute) error
	Delete(ctx context.Context, id int64) error
	// ListByProduct historial cronológico (más antiguo primero).
	ListByProduct(ctx context.Context, productID int64) ([]*entity.InventoryRoute, error)
	ListPending(ctx context.Context, limit, offset int) ([]*entity.InventoryRoute, error)
	CountPending(ctx context.Context) (int, error)
}
