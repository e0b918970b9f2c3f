package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrNoToken no hay token en caché y el refresco fue rechazado por el cooldown.
var ErrNoToken = errors.New("identity: token de servicio no disponible")

// expirySkew margen para renovar antes de que el token venza.
const expirySkew = 30 * time.Second

// TokenSourceConfig credenciales del proceso ante el servicio de identidad.
type TokenSourceConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Cooldown     time.Duration
}

// TokenSource mantiene en caché el token de servicio y lo renueva a través del RefreshGuard.
type TokenSource struct {
	cfg        TokenSourceConfig
	httpClient *http.Client
	guard      *RefreshGuard
	now        func() time.Time

	mu      sync.RWMutex
	token   string
	expires time.Time
}

// NewTokenSource construye la fuente. httpClient nil usa un cliente con timeout de 10 s.
func NewTokenSource(cfg TokenSourceConfig, httpClient *http.Client, opts ...GuardOption) *TokenSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	ts := &TokenSource{cfg: cfg, httpClient: httpClient, now: time.Now}
	ts.guard = NewRefreshGuard(ts.fetch, cfg.Cooldown, opts...)
	ts.now = ts.guard.now
	return ts
}

// Token retorna un token vigente, refrescándolo si hace falta.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	if tok, ok := ts.cached(); ok {
		return tok, nil
	}
	if _, err := ts.guard.TryRefresh(ctx); err != nil {
		return "", err
	}
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	if ts.token == "" {
		return "", ErrNoToken
	}
	return ts.token, nil
}

// Invalidate marca el token como vencido (tras un 401) y retorna el que quede disponible.
func (ts *TokenSource) Invalidate(ctx context.Context) (string, error) {
	ts.mu.Lock()
	ts.expires = time.Time{}
	ts.mu.Unlock()
	return ts.Token(ctx)
}

// Close libera el guard.
func (ts *TokenSource) Close() { ts.guard.Close() }

func (ts *TokenSource) cached() (string, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	if ts.token == "" || !ts.now().Before(ts.expires.Add(-expirySkew)) {
		return "", false
	}
	return ts.token, true
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"` // segundos
}

// fetch es la única llamada saliente al servicio de identidad.
func (ts *TokenSource) fetch(ctx context.Context) error {
	body, err := json.Marshal(tokenRequest{ClientID: ts.cfg.ClientID, ClientSecret: ts.cfg.ClientSecret})
	if err != nil {
		return fmt.Errorf("identity: serializar request: %w", err)
	}
	url := strings.TrimRight(ts.cfg.BaseURL, "/") + "/api/auth/service-token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("identity: crear HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("identity: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
	if err != nil {
		return fmt.Errorf("identity: leer respuesta: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("identity: status %d", resp.StatusCode)
	}
	var out tokenResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("identity: respuesta inválida: %w", err)
	}
	if out.AccessToken == "" {
		return fmt.Errorf("identity: respuesta sin access_token")
	}
	if out.ExpiresIn <= 0 {
		out.ExpiresIn = 300
	}

	ts.mu.Lock()
	ts.token = out.AccessToken
	ts.expires = ts.now().Add(time.Duration(out.ExpiresIn) * time.Second)
	ts.mu.Unlock()
	return nil
}
