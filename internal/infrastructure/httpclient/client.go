package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseBytes = 1 << 20

// TokenProvider token de servicio para llamadas entre servicios (identity.TokenSource).
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	// Invalidate descarta el token actual tras un 401 y retorna el siguiente disponible.
	Invalidate(ctx context.Context) (string, error)
}

// StatusError respuesta no exitosa del servicio remoto.
type StatusError struct {
	Service string
	Status  int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Service, e.Status, e.Body)
}

// serviceClient base común: URL base, token Bearer y reintento único ante 401.
type serviceClient struct {
	name    string
	baseURL string
	http    *http.Client
	tokens  TokenProvider
}

func newServiceClient(name, baseURL string, httpClient *http.Client, tokens TokenProvider) serviceClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return serviceClient{name: name, baseURL: strings.TrimRight(baseURL, "/"), http: httpClient, tokens: tokens}
}

// doJSON envía in (si no es nil) y decodifica la respuesta 2xx en out (si no es nil).
func (c serviceClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("%s: serializar request: %w", c.name, err)
		}
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("%s: token de servicio: %w", c.name, err)
	}
	status, raw, err := c.send(ctx, method, path, body, token)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		if token, err = c.tokens.Invalidate(ctx); err != nil {
			return fmt.Errorf("%s: renovar token: %w", c.name, err)
		}
		if status, raw, err = c.send(ctx, method, path, body, token); err != nil {
			return err
		}
	}
	if status < 200 || status >= 300 {
		return &StatusError{Service: c.name, Status: status, Body: string(raw)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: respuesta inválida: %w", c.name, err)
	}
	return nil
}

func (c serviceClient) send(ctx context.Context, method, path string, body []byte, token string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: crear HTTP request: %w", c.name, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s: llamada HTTP fallida: %w", c.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("%s: leer respuesta: %w", c.name, err)
	}
	return resp.StatusCode, raw, nil
}
