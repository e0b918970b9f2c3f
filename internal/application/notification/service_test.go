package notification_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-eventos/internal/application/notification"
	"github.com/jhoicas/inventario-eventos/internal/application/ports"
	"github.com/jhoicas/inventario-eventos/internal/domain/entity"
	"github.com/jhoicas/inventario-eventos/internal/domain/event"
	"github.com/jhoicas/inventario-eventos/pkg/logger"
)

type fakePusher struct {
	sent []ports.Notification
	err  error
}

func (p *fakePusher) Push(_ context.Context, n ports.Notification) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, n)
	return nil
}

type memDedup struct {
	keys      map[string]bool
	forgotten []string
}

func newDedup() *memDedup { return &memDedup{keys: map[string]bool{}} }

func (d *memDedup) Claim(_ context.Context, key string) (bool, error) {
	if d.keys[key] {
		return false, nil
	}
	d.keys[key] = true
	return true, nil
}

func (d *memDedup) Forget(_ context.Context, key string) error {
	delete(d.keys, key)
	d.forgotten = append(d.forgotten, key)
	return nil
}

func TestHandleApproval_Fallida_IncluyeMotivo(t *testing.T) {
	p := &fakePusher{}
	svc := notification.NewService(p, newDedup(), logger.Nop())

	err := svc.HandleApproval(context.Background(), event.KeyApprovalFailed, event.ApprovalNotice{
		RequestID:     "req-1",
		RequestType:   entity.RequestProductDelete,
		RequestedByID: "u-7",
		Reason:        "el recurso ya no existe",
	}, "msg-1")
	require.NoError(t, err)
	require.Len(t, p.sent, 1)
	n := p.sent[0]
	assert.Equal(t, "u-7", n.UserID)
	assert.Equal(t, event.KeyApprovalFailed, n.Kind)
	assert.Equal(t, "approval:req-1", n.Reference)
	assert.Contains(t, n.Message, "baja de producto")
	assert.Contains(t, n.Message, "el recurso ya no existe")
}

func TestHandleApproval_RechazadaSinMotivo(t *testing.T) {
	p := &fakePusher{}
	svc := notification.NewService(p, nil, logger.Nop())

	require.NoError(t, svc.HandleApproval(context.Background(), event.KeyApprovalRejected, event.ApprovalNotice{
		RequestID: "req-2", RequestType: entity.RequestRouteUpdate, RequestedByID: "u-1",
	}, ""))
	require.Len(t, p.sent, 1)
	assert.Contains(t, p.sent[0].Message, "sin motivo informado")
}

func TestHandleRoute_SolicitanteYActor(t *testing.T) {
	p := &fakePusher{}
	svc := notification.NewService(p, newDedup(), logger.Nop())

	err := svc.HandleRoute(context.Background(), event.KeyRouteCompleted, event.RouteNotice{
		RouteID: 9, RouteType: entity.RouteTypeTransfer, ProductID: 5, InventoryCode: 1005, Model: "ThinkPad",
		ToDepartmentID: 2, ToDepartmentName: "Sistemas", RequestedByID: "u-1", ActorID: "admin-1",
	}, "msg-2")
	require.NoError(t, err)
	require.Len(t, p.sent, 2)
	assert.Equal(t, "u-1", p.sent[0].UserID)
	assert.Equal(t, "admin-1", p.sent[1].UserID)
	assert.Contains(t, p.sent[0].Message, "Sistemas")
	assert.Equal(t, "route:9", p.sent[0].Reference)
}

func TestHandleRoute_MismoUsuario_UnaVez(t *testing.T) {
	p := &fakePusher{}
	svc := notification.NewService(p, nil, logger.Nop())

	require.NoError(t, svc.HandleRoute(context.Background(), event.KeyRouteCreated, event.RouteNotice{
		RouteID: 1, RouteType: entity.RouteTypeTransfer, ProductID: 5, RequestedByID: "u-1", ActorID: "u-1",
	}, "msg-3"))
	assert.Len(t, p.sent, 1)
}

func TestHandleRoute_SinDestinatarios(t *testing.T) {
	p := &fakePusher{}
	svc := notification.NewService(p, newDedup(), logger.Nop())

	require.NoError(t, svc.HandleRoute(context.Background(), event.KeyRouteCreated, event.RouteNotice{
		RouteID: 1, RouteType: entity.RouteTypeNewInventory, ProductID: 5,
	}, "msg-4"))
	assert.Empty(t, p.sent, "rutas de sistema sin usuario no notifican")
}

func TestDeduplicacion_ReentregaSeOmite(t *testing.T) {
	p := &fakePusher{}
	svc := notification.NewService(p, newDedup(), logger.Nop())
	e := event.ProductCreated{
		ProductData: event.ProductData{ProductID: 42, InventoryCode: 1001, Model: "X1"},
		CreatedByID: "u-3",
	}

	require.NoError(t, svc.HandleProductCreated(context.Background(), e, "msg-5"))
	require.NoError(t, svc.HandleProductCreated(context.Background(), e, "msg-5"))
	assert.Len(t, p.sent, 1, "la reentrega no duplica la notificación")
}

func TestPushFallido_LiberaLaClave(t *testing.T) {
	p := &fakePusher{err: errors.New("redis caído")}
	dedup := newDedup()
	svc := notification.NewService(p, dedup, logger.Nop())
	e := event.ProductDeleted{
		ProductData: event.ProductData{ProductID: 42, InventoryCode: 1001},
		DeletedByID: "u-3",
	}

	err := svc.HandleProductDeleted(context.Background(), e, "msg-6")
	require.Error(t, err)
	assert.Equal(t, []string{"msg-6:u-3"}, dedup.forgotten)

	p.err = nil
	require.NoError(t, svc.HandleProductDeleted(context.Background(), e, "msg-6"))
	assert.Len(t, p.sent, 1, "el reintento entrega")
}

func TestLogPusher_EscribeElMensaje(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Env: "production", Level: "info", Output: &buf})

	require.NoError(t, notification.NewLogPusher(log).Push(context.Background(), ports.Notification{
		UserID: "u-1", Kind: event.KeyRouteCreated, Title: "Traslado solicitado", Message: "hola",
	}))
	assert.Contains(t, buf.String(), `"user_id":"u-1"`)
	assert.Contains(t, buf.String(), "hola")
}
