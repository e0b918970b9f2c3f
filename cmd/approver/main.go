package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jhoicas/inventario-eventos/internal/application/approval"
	"github.com/jhoicas/inventario-eventos/internal/bootstrap"
	"github.com/jhoicas/inventario-eventos/internal/infrastructure/httpclient"
	"github.com/jhoicas/inventario-eventos/internal/interfaces/consumer"
	httpRouter "github.com/jhoicas/inventario-eventos/internal/interfaces/http"
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

	rt, err := bootstrap.Start(ctx, "approval-executor")
	if err != nil {
		fmt.Fprintln(os.Stderr, "approval-executor:", err)
		return err
	}
	defer func() {
		if err != nil {
			rt.Log.Error().Err(err).Msg("approval-executor finalizó con error")
		}
		rt.Shutdown()
	}()
	cfg, log := rt.Cfg, rt.Log

	if cfg.JWT.Secret == "" {
		return errors.New("JWT_SECRET requerido para emitir la credencial de sistema")
	}

	outbound := &http.Client{Timeout: 15 * time.Second}
	gateway := httpclient.NewApprovalClient(cfg.Services.ApprovalURL, outbound, rt.TokenSource(outbound))

	executor := approval.NewExecutor(approval.ExecutorConfig{
		ProductURL:       cfg.Services.ProductURL,
		RouteURL:         cfg.Services.RouteURL,
		JWTSecret:        cfg.JWT.Secret,
		JWTIssuer:        cfg.JWT.Issuer,
		CredentialTTL:    cfg.Executor.CredentialTTL,
		RequestTimeout:   cfg.Executor.RequestTimeout,
		BreakerFailures:  cfg.Executor.BreakerFailures,
		BreakerOpenDelay: cfg.Executor.BreakerOpenDelay,
	}, &http.Client{}, log)
	worker := approval.NewWorker(gateway, executor, rt.Publisher, log)

	disp := rt.Dispatcher("approval-executor")
	consumer.Approver(disp, validator.New(), worker)

	app := httpRouter.NewApp(httpRouter.AppConfig{Name: "approval-executor"})

	return rt.Run(ctx, app, disp)
}
