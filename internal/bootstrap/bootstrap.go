// Package bootstrap arranque común de los procesos: configuración, logger, tracing, bus y Postgres.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/inventario-eventos/internal/infrastructure/bus"
	"github.com/jhoicas/inventario-eventos/internal/infrastructure/identity"
	"github.com/jhoicas/inventario-eventos/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-eventos/pkg/config"
	"github.com/jhoicas/inventario-eventos/pkg/logger"
	"github.com/jhoicas/inventario-eventos/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

// Runtime recursos compartidos de un proceso. Shutdown los libera en orden inverso.
type Runtime struct {
	Service   string
	Cfg       *config.Config
	Log       *logger.Logger
	Broker    bus.Broker
	Publisher *bus.Publisher

	closers []func(context.Context) error
}

// Start carga la configuración, inicializa logger y tracing y abre el bus.
func Start(ctx context.Context, service string) (*Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("cargar configuración: %w", err)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel}).WithField("service", service)
	log.Info().Str("env", cfg.App.Env).Str("bus_driver", cfg.Bus.Driver).Msg("iniciando servicio")

	rt := &Runtime{Service: service, Cfg: cfg, Log: log}

	shutdownTracing, err := tracing.Init(ctx, service, cfg.App.Env, cfg.Tracing.Endpoint)
	if err != nil {
		return nil, err
	}
	rt.OnShutdown(shutdownTracing)

	broker, err := bus.Open(cfg.Bus, log)
	if err != nil {
		rt.Shutdown()
		return nil, fmt.Errorf("abrir bus: %w", err)
	}
	rt.Broker = broker
	rt.Publisher = bus.NewPublisher(broker, log)
	rt.OnShutdown(func(context.Context) error { return broker.Close() })
	return rt, nil
}

// OnShutdown registra un cierre.
func (rt *Runtime) OnShutdown(fn func(context.Context) error) {
	rt.closers = append(rt.closers, fn)
}

// Shutdown ejecuta los cierres registrados en orden inverso.
func (rt *Runtime) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			rt.Log.Error().Err(err).Msg("error al cerrar recurso")
		}
	}
	rt.Log.Info().Msg("servicio detenido")
}

// Postgres abre el pool y aplica las migraciones embebidas del servicio.
func (rt *Runtime) Postgres(ctx context.Context, schema fs.FS, dir string) (*pgxpool.Pool, error) {
	if rt.Cfg.DB.AutoMigrate {
		if err := postgres.Migrate(schema, dir, rt.Cfg.DB.ConnectionString()); err != nil {
			return nil, err
		}
		rt.Log.Info().Str("schema", dir).Msg("migraciones aplicadas")
	}
	pool, err := postgres.NewPool(ctx, rt.Cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	rt.OnShutdown(func(context.Context) error { pool.Close(); return nil })
	return pool, nil
}

// Dispatcher crea el consumidor de la cola del servicio (BUS_QUEUE o defaultQueue).
func (rt *Runtime) Dispatcher(defaultQueue string) *bus.Dispatcher {
	queue := rt.Cfg.Bus.Queue
	if queue == "" {
		queue = defaultQueue
	}
	return bus.NewDispatcher(rt.Broker, queue, rt.Log, bus.WithHandlerTimeout(rt.Cfg.Bus.HandlerTimeout))
}

// TokenSource token de servicio ante Identity, compartido por los clientes salientes.
func (rt *Runtime) TokenSource(httpClient *http.Client) *identity.TokenSource {
	ts := identity.NewTokenSource(identity.TokenSourceConfig{
		BaseURL:      rt.Cfg.Services.IdentityURL,
		ClientID:     rt.Cfg.Identity.ClientID,
		ClientSecret: rt.Cfg.Identity.ClientSecret,
		Cooldown:     rt.Cfg.Identity.RefreshCooldown,
	}, httpClient)
	rt.OnShutdown(func(context.Context) error { ts.Close(); return nil })
	return ts
}

// Run arranca el servidor HTTP y los consumidores; bloquea hasta que ctx se cancele
// o alguno termine con error.
func (rt *Runtime) Run(ctx context.Context, app *fiber.App, dispatchers ...*bus.Dispatcher) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, len(dispatchers)+1)
	for _, d := range dispatchers {
		go func(d *bus.Dispatcher) { errc <- d.Run(ctx) }(d)
	}
	if app != nil {
		go func() {
			if err := app.Listen(rt.Cfg.HTTP.Addr()); err != nil {
				errc <- fmt.Errorf("servidor HTTP: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		rt.Log.Info().Msg("señal de apagado recibida")
	case err := <-errc:
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = err
		}
	}
	cancel()
	if app != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			rt.Log.Error().Err(err).Msg("apagado del servidor")
		}
	}
	return runErr
}
