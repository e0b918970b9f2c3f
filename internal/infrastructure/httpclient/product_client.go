package httpclient

import (
	"context"
	"net/http"
	"strconv"

	"github.com/jhoicas/inventario-eventos/internal/application/dto"
	"github.com/jhoicas/inventario-eventos/internal/application/ports"
)

var _ ports.ProductLookup = (*ProductClient)(nil)

// ProductClient consulta el catálogo desde el servicio de rutas.
type ProductClient struct {
	c serviceClient
}

func NewProductClient(baseURL string, httpClient *http.Client, tokens TokenProvider) *ProductClient {
	return &ProductClient{c: newServiceClient("catalog", baseURL, httpClient, tokens)}
}

// GetProduct retorna domain.ErrNotFound si el catálogo responde 404.
func (p *ProductClient) GetProduct(ctx context.Context, id int64) (*dto.ProductResponse, error) {
	var out dto.ProductResponse
	if err := p.c.doJSON(ctx, http.MethodGet, "/api/products/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}
