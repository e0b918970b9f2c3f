package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-eventos/internal/infrastructure/identity"
)

func identityServer(t *testing.T, calls *atomic.Int32, expiresIn int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/service-token", r.URL.Path)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "routing-service", body["client_id"])
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-" + string(rune('0'+n)),
			"expires_in":   expiresIn,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTokenSource_CacheaHastaVencer(t *testing.T) {
	var calls atomic.Int32
	srv := identityServer(t, &calls, 300)
	clock := newFakeClock()
	ts := identity.NewTokenSource(identity.TokenSourceConfig{
		BaseURL:  srv.URL,
		ClientID: "routing-service",
		Cooldown: 5 * time.Second,
	}, srv.Client(), identity.WithClock(clock.Now))
	defer ts.Close()

	tok, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	tok, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	assert.Equal(t, int32(1), calls.Load())

	clock.Advance(290 * time.Second)
	tok, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok, "dentro del margen de vencimiento se renueva")
}

func TestTokenSource_InvalidateDentroDelCooldown_ConservaElToken(t *testing.T) {
	var calls atomic.Int32
	srv := identityServer(t, &calls, 300)
	clock := newFakeClock()
	ts := identity.NewTokenSource(identity.TokenSourceConfig{
		BaseURL:  srv.URL,
		ClientID: "routing-service",
		Cooldown: 5 * time.Second,
	}, srv.Client(), identity.WithClock(clock.Now))
	defer ts.Close()

	_, err := ts.Token(context.Background())
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	tok, err := ts.Invalidate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	assert.Equal(t, int32(1), calls.Load(), "un 401 dentro del cooldown no dispara otro refresco")

	clock.Advance(4 * time.Second)
	tok, err = ts.Invalidate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
}

func TestTokenSource_EndpointFalla(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	ts := identity.NewTokenSource(identity.TokenSourceConfig{BaseURL: srv.URL}, srv.Client())
	defer ts.Close()

	_, err := ts.Token(context.Background())
	assert.Error(t, err)

	_, err = ts.Token(context.Background())
	assert.ErrorIs(t, err, identity.ErrNoToken)
}
