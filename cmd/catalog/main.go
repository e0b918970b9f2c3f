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
	"github.com/jhoicas/inventario-eventos/internal/application/catalog"
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

	rt, err := bootstrap.Start(ctx, "catalog-service")
	if err != nil {
		fmt.Fprintln(os.Stderr, "catalog-service:", err)
		return err
	}
	defer func() {
		if err != nil {
			rt.Log.Error().Err(err).Msg("catalog-service finalizó con error")
		}
		rt.Shutdown()
	}()
	cfg, log := rt.Cfg, rt.Log

	pool, err := rt.Postgres(ctx, migrations.Catalog, "catalog")
	if err != nil {
		return fmt.Errorf("base de datos del catálogo: %w", err)
	}
	images, err := storage.NewFileStore(cfg.Storage.ImageDir, cfg.Storage.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("almacenamiento de imágenes: %w", err)
	}

	outbound := &http.Client{Timeout: 15 * time.Second}
	approvals := httpclient.NewApprovalClient(cfg.Services.ApprovalURL, outbound, rt.TokenSource(outbound))
	gate := approval.NewGate(approvals, rt.Publisher, log)

	validate := validator.New()
	svc := catalog.NewService(
		postgres.NewCatalogTxRunner(pool),
		postgres.NewProductRepository(pool),
		images, rt.Publisher, gate, validate, log,
	)

	disp := rt.Dispatcher("catalog-service")
	consumer.Catalog(disp, validate, svc)

	app := httpRouter.NewApp(httpRouter.AppConfig{
		Name:        "catalog-service",
		SwaggerFile: "./docs/swagger.json",
		ImageDir:    images.Root(),
		ImagePrefix: cfg.Storage.PublicBaseURL,
	})
	httpRouter.CatalogRouter(app, httpRouter.CatalogDeps{Products: svc, JWTSecret: cfg.JWT.Secret, Log: log})

	return rt.Run(ctx, app, disp)
}
