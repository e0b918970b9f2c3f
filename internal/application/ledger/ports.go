package ledger

import (
	"context"

	"github.com/jhoicas/inventario-eventos/internal/domain/repository"
)

// TxRunner ejecuta fn en una transacción con el repositorio de rutas atado a ella.
type TxRunner interface {
	Run(ctx context.Context, fn func(routes repository.InventoryRouteRepository) error) error
}
