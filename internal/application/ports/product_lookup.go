package ports

import (
	"context"

	"github.com/jhoicas/inventario-eventos/internal/application/dto"
)

// ProductLookup consulta el catálogo desde otro servicio. Retorna domain.ErrNotFound si no existe.
type ProductLookup interface {
	GetProduct(ctx context.Context, id int64) (*dto.ProductResponse, error)
}
