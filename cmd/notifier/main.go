package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"

	"github.com/jhoicas/inventario-eventos/internal/application/notification"
	"github.com/jhoicas/inventario-eventos/internal/application/ports"
	"github.com/jhoicas/inventario-eventos/internal/bootstrap"
	"github.com/jhoicas/inventario-eventos/internal/infrastructure/redis"
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

	rt, err := bootstrap.Start(ctx, "notifier")
	if err != nil {
		fmt.Fprintln(os.Stderr, "notifier:", err)
		return err
	}
	defer func() {
		if err != nil {
			rt.Log.Error().Err(err).Msg("notifier finalizó con error")
		}
		rt.Shutdown()
	}()
	cfg, log := rt.Cfg, rt.Log

	var (
		pusher ports.Pusher = notification.NewLogPusher(log)
		dedup  ports.Deduplicator
	)
	client, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("redis no disponible; las notificaciones solo se registran en el log")
	} else {
		rt.OnShutdown(func(context.Context) error { return client.Close() })
		pusher = redis.NewPusher(client)
		dedup = redis.NewDeduplicator(client, cfg.Redis.DedupTTL)
	}

	disp := rt.Dispatcher("notifier")
	consumer.Notifications(disp, validator.New(), notification.NewService(pusher, dedup, log))

	app := httpRouter.NewApp(httpRouter.AppConfig{Name: "notifier"})

	return rt.Run(ctx, app, disp)
}
