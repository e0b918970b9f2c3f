package identity_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-eventos/internal/infrastructure/identity"
)

// fakeClock reloj manual compartido por los tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestTryRefresh_DentroDelCooldown_NoContactaIdentity(t *testing.T) {
	clock := newFakeClock()
	var calls atomic.Int32
	g := identity.NewRefreshGuard(func(context.Context) error {
		calls.Add(1)
		return nil
	}, 5*time.Second, identity.WithClock(clock.Now))
	defer g.Close()

	ok, err := g.TryRefresh(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	clock.Advance(3 * time.Second)
	ok, err = g.TryRefresh(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "el segundo intento a los 3 s debe rechazarse")
	assert.Equal(t, int32(1), calls.Load(), "una sola llamada al endpoint de identidad")

	clock.Advance(3 * time.Second)
	ok, err = g.TryRefresh(context.Background())
	require.NoError(t, err)
	assert.True(t, ok, "pasado el cooldown se permite otro refresco")
	assert.Equal(t, int32(2), calls.Load())
}

func TestTryRefresh_LlamadoresConcurrentes_UnSoloVuelo(t *testing.T) {
	clock := newFakeClock()
	release := make(chan struct{})
	var calls atomic.Int32
	g := identity.NewRefreshGuard(func(context.Context) error {
		calls.Add(1)
		<-release
		return nil
	}, 5*time.Second, identity.WithClock(clock.Now))
	defer g.Close()

	const n = 50
	var wg sync.WaitGroup
	var started sync.WaitGroup
	var succeeded atomic.Int32
	started.Add(n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			ok, err := g.TryRefresh(context.Background())
			assert.NoError(t, err)
			if ok {
				succeeded.Add(1)
			}
		}()
	}
	started.Wait()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "N llamadores concurrentes = exactamente una llamada saliente")
	assert.GreaterOrEqual(t, succeeded.Load(), int32(1))
}

func TestTryRefresh_VueloMasLargoQueElCooldown_NoSaltaElCooldown(t *testing.T) {
	clock := newFakeClock()
	release := make(chan struct{})
	var calls atomic.Int32
	g := identity.NewRefreshGuard(func(context.Context) error {
		if calls.Add(1) == 1 {
			<-release
		}
		return nil
	}, 5*time.Second, identity.WithClock(clock.Now))
	defer g.Close()

	first := make(chan bool, 1)
	go func() {
		ok, _ := g.TryRefresh(context.Background())
		first <- ok
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	// el refresco sigue en vuelo cuando vence el cooldown
	clock.Advance(6 * time.Second)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.TryRefresh(context.Background())
			assert.NoError(t, err)
		}()
	}
	close(release)
	wg.Wait()
	assert.True(t, <-first)
	assert.LessOrEqual(t, calls.Load(), int32(2), "a lo sumo un vuelo nuevo tras vencer el cooldown")

	_, err := g.TryRefresh(context.Background())
	require.NoError(t, err)
	settled := calls.Load()

	ok, err := g.TryRefresh(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "el guard no queda marcado en vuelo")
	assert.Equal(t, settled, calls.Load())
}

func TestTryRefresh_ErrorDelEndpoint_CuentaComoIntento(t *testing.T) {
	clock := newFakeClock()
	var calls atomic.Int32
	g := identity.NewRefreshGuard(func(context.Context) error {
		calls.Add(1)
		return errors.New("503")
	}, 5*time.Second, identity.WithClock(clock.Now))

	ok, err := g.TryRefresh(context.Background())
	assert.False(t, ok)
	assert.Error(t, err)

	ok, err = g.TryRefresh(context.Background())
	assert.False(t, ok)
	assert.NoError(t, err, "dentro del cooldown no se reintenta")
	assert.Equal(t, int32(1), calls.Load())
}

func TestTryRefresh_Cerrado(t *testing.T) {
	g := identity.NewRefreshGuard(func(context.Context) error { return nil }, time.Second)
	g.Close()
	ok, err := g.TryRefresh(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, identity.ErrGuardClosed)
}

func TestTryRefresh_ContextoCancelado_NoCancelaElVuelo(t *testing.T) {
	release := make(chan struct{})
	done := make(chan struct{})
	g := identity.NewRefreshGuard(func(ctx context.Context) error {
		<-release
		close(done)
		return ctx.Err()
	}, time.Second)
	defer g.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	ok, err := g.TryRefresh(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	<-done
}
