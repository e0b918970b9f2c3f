package catalog

import (
	"context"

	"github.com/jhoicas/inventario-eventos/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una transacción con el repositorio atado a ella.
// Si fn retorna error (incluido un fallo al publicar) se hace rollback.
type TxRunner interface {
	Run(ctx context.Context, fn func(products repository.ProductRepository) error) error
}
