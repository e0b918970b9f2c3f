// Package consumer enlaza las claves del bus con los casos de uso de cada proceso.
package consumer

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/jhoicas/inventario-eventos/internal/domain/event"
	"github.com/jhoicas/inventario-eventos/internal/infrastructure/bus"
)

// TransferApplier lo implementa *catalog.Service.
type TransferApplier interface {
	ApplyTransfer(ctx context.Context, msg event.ProductTransferred) error
}

// LedgerRecorder lo implementa *ledger.Service.
type LedgerRecorder interface {
	HandleProductCreated(ctx context.Context, e event.ProductCreated, messageID string) error
	HandleProductUpdated(ctx context.Context, e event.ProductUpdated, messageID string) error
	HandleProductDeleted(ctx context.Context, e event.ProductDeleted, messageID string) error
}

// ApprovalExecutor lo implementa *approval.Worker.
type ApprovalExecutor interface {
	HandleApproved(ctx context.Context, n event.ApprovalNotice) error
}

// Notifier lo implementa *notification.Service.
type Notifier interface {
	HandleRoute(ctx context.Context, key string, n event.RouteNotice, messageID string) error
	HandleApproval(ctx context.Context, key string, n event.ApprovalNotice, messageID string) error
	HandleProductCreated(ctx context.Context, e event.ProductCreated, messageID string) error
	HandleProductDeleted(ctx context.Context, e event.ProductDeleted, messageID string) error
}

// Catalog: el catálogo solo escucha la confirmación de traslados.
func Catalog(d *bus.Dispatcher, v *validator.Validate, svc TransferApplier) {
	d.Handle(event.KeyProductTransferred, bus.JSON(v, func(ctx context.Context, msg event.ProductTransferred, _ bus.Delivery) error {
		return svc.ApplyTransfer(ctx, msg)
	}))
}

// Routing: cada hecho del catálogo produce una entrada del ledger. El MessageID es la clave de idempotencia.
func Routing(d *bus.Dispatcher, v *validator.Validate, svc LedgerRecorder) {
	d.Handle(event.KeyProductCreated, bus.JSON(v, func(ctx context.Context, e event.ProductCreated, del bus.Delivery) error {
		return svc.HandleProductCreated(ctx, e, del.MessageID)
	}))
	d.Handle(event.KeyProductUpdated, bus.JSON(v, func(ctx context.Context, e event.ProductUpdated, del bus.Delivery) error {
		return svc.HandleProductUpdated(ctx, e, del.MessageID)
	}))
	d.Handle(event.KeyProductDeleted, bus.JSON(v, func(ctx context.Context, e event.ProductDeleted, del bus.Delivery) error {
		return svc.HandleProductDeleted(ctx, e, del.MessageID)
	}))
}

// Approver: ejecuta las solicitudes aprobadas.
func Approver(d *bus.Dispatcher, v *validator.Validate, w ApprovalExecutor) {
	d.Handle(event.KeyApprovalApproved, bus.JSON(v, func(ctx context.Context, n event.ApprovalNotice, _ bus.Delivery) error {
		return w.HandleApproved(ctx, n)
	}))
}

// Notifications: avisos por usuario de rutas, aprobaciones y altas/bajas de productos.
func Notifications(d *bus.Dispatcher, v *validator.Validate, n Notifier) {
	d.Handle("route.*", bus.JSON(v, func(ctx context.Context, msg event.RouteNotice, del bus.Delivery) error {
		return n.HandleRoute(ctx, del.RoutingKey, msg, del.MessageID)
	}))
	d.Handle("approval.request.*", bus.JSON(v, func(ctx context.Context, msg event.ApprovalNotice, del bus.Delivery) error {
		return n.HandleApproval(ctx, del.RoutingKey, msg, del.MessageID)
	}))
	d.Handle(event.KeyProductCreated, bus.JSON(v, func(ctx context.Context, e event.ProductCreated, del bus.Delivery) error {
		return n.HandleProductCreated(ctx, e, del.MessageID)
	}))
	d.Handle(event.KeyProductDeleted, bus.JSON(v, func(ctx context.Context, e event.ProductDeleted, del bus.Delivery) error {
		return n.HandleProductDeleted(ctx, e, del.MessageID)
	}))
}
