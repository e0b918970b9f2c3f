package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	_ "github.com/jhoicas/inventario-eventos/docs"
	"github.com/jhoicas/inventario-eventos/internal/application/approval"
	"github.com/jhoicas/inventario-eventos/internal/application/ledger"
	"github.com/jhoicas/inventario-eventos/internal/bootstrap"
	"github.com/jhoicas/inventario-eventos/internal/infrastructure/httpclient"
	"github.com/jhoicas/inventario-eventos/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-eventos/internal/infrastructure/storage"
	"github.com/jhoicas/inventario-eventos/internal/interfaces/consumer"
	httpRouter "github.com/jhoicas/inventario-eventos/internal/interfaces/http"
	"github.com/jhoicas/inventario-eventos/migrations"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run arma y ejecuta el proceso; los cierres registrados corren antes de salir, también ante error.
func run() (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Start(ctx, "routing-service")
	if err != nil {
		fmt.Fprintln(os.Stderr, "routing-service:", err)
		return err
	}
	defer func() {
		if err != nil {
			rt.Log.Error().Err(err).Msg("routing-service finalizó con error")
		}
		rt.Shutdown()
	}()
	cfg, log := rt.Cfg, rt.Log

	pool, err := rt.Postgres(ctx, migrations.Routing, "routing")
	if err != nil {
		return fmt.Errorf("base de datos del ledger: %w", err)
	}
	images, err := storage.NewFileStore(cfg.Storage.ImageDir, cfg.Storage.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("almacenamiento de imágenes: %w", err)
	}

	// Un solo TokenSource para catálogo y aprobaciones: un 401 refresca una vez para ambos.
	outbound := &http.Client{Timeout: 15 * time.Second}
	tokens := rt.TokenSource(outbound)
	products := httpclient.NewProductClient(cfg.Services.ProductURL, outbound, tokens)
	approvals := httpclient.NewApprovalClient(cfg.Services.ApprovalURL, outbound, tokens)
	gate := approval.NewGate(approvals, rt.Publisher, log)

	validate := validator.New()
	routeRepo := postgres.NewInventoryRouteRepository(pool)
	svc := ledger.NewService(
		postgres.NewRoutingTxRunner(pool),
		routeRepo, products, images, rt.Publisher, gate, validate, log,
	)

	disp := rt.Dispatcher("routing-service")
	consumer.Routing(disp, validate, svc)

	app := httpRouter.NewApp(httpRouter.AppConfig{
		Name:        "routing-service",
		SwaggerFile: "./docs/swagger.json",
		ImageDir:    images.Root(),
		ImagePrefix: cfg.Storage.PublicBaseURL,
	})
	httpRouter.RoutingRouter(app, httpRouter.RoutingDeps{Routes: svc, JWTSecret: cfg.JWT.Secret, Log: log})

	return rt.Run(ctx, app, disp)
}
