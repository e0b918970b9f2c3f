package identity

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrGuardClosed el guard fue cerrado al apagar el proceso.
var ErrGuardClosed = errors.New("identity: guard de refresco cerrado")

// RefreshFunc obtiene una credencial nueva del endpoint de identidad.
type RefreshFunc func(ctx context.Context) error

// RefreshGuard evita tormentas de refresco: dentro de la ventana de enfriamiento los
// intentos se rechazan sin llamada saliente, y los llamadores concurrentes comparten
// el único refresco en vuelo. Se construye una vez en main y se cierra al apagar.
type RefreshGuard struct {
	refresh  RefreshFunc
	cooldown time.Duration
	now      func() time.Time

	mu       sync.Mutex
	group    singleflight.Group
	last     time.Time // lectura con reloj monotónico del último intento
	gen      uint64    // número del último vuelo; cada vuelo usa su propia clave
	inFlight bool
	closed   bool
}

// GuardOption configura el guard.
type GuardOption func(*RefreshGuard)

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) GuardOption {
	return func(g *RefreshGuard) { g.now = now }
}

// NewRefreshGuard crea el guard. cooldown <= 0 usa 5 segundos.
func NewRefreshGuard(refresh RefreshFunc, cooldown time.Duration, opts ...GuardOption) *RefreshGuard {
	if cooldown <= 0 {
		cooldown = 5 * time.Second
	}
	g := &RefreshGuard{refresh: refresh, cooldown: cooldown, now: time.Now}
	for _, o := range opts {
		o(g)
	}
	return g
}

// TryRefresh intenta refrescar. Retorna false sin contactar al endpoint si el último
// intento fue hace menos que el cooldown; si hay un refresco en vuelo se une a él.
func (g *RefreshGuard) TryRefresh(ctx context.Context) (bool, error) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return false, ErrGuardClosed
	}
	if !g.inFlight {
		now := g.now()
		if !g.last.IsZero() && now.Sub(g.last) < g.cooldown {
			g.mu.Unlock()
			return false, nil
		}
		g.last = now
		g.gen++
		g.inFlight = true
	}
	// Con inFlight en true la clave del vuelo actual sigue registrada: inFlight se limpia
	// dentro del vuelo, antes de que singleflight la libere. Un vuelo nuevo usa otra clave,
	// así nadie se une a un vuelo que ya está terminando.
	gen := g.gen
	flightCtx := context.WithoutCancel(ctx)
	ch := g.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		err := g.refresh(flightCtx)
		g.mu.Lock()
		if g.gen == gen {
			g.inFlight = false
		}
		g.mu.Unlock()
		return nil, err
	})
	g.mu.Unlock()

	select {
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Close rechaza intentos posteriores. Un refresco en vuelo termina por su cuenta.
func (g *RefreshGuard) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}
