package approval_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-eventos/internal/application/approval"
	"github.com/jhoicas/inventario-eventos/internal/domain/entity"
	"github.com/jhoicas/inventario-eventos/internal/domain/event"
	"github.com/jhoicas/inventario-eventos/pkg/logger"
)

func newWorker(gw *fakeGateway, runner *fakeRunner, pub *fakePublisher) *approval.Worker {
	return approval.NewWorker(gw, runner, pub, logger.Nop(), approval.WithReportBackoff(time.Millisecond))
}

func TestWorker_ResultadoEjecutado(t *testing.T) {
	gw := &fakeGateway{requests: map[string]*entity.ApprovalRequest{
		"req-1": approved(entity.RequestProductDelete, `{"id": 7}`),
	}}
	runner := &fakeRunner{result: approval.Result{Success: true, StatusCode: http.StatusNoContent}}
	pub := &fakePublisher{}

	require.NoError(t, newWorker(gw, runner, pub).HandleApproved(context.Background(), event.ApprovalNotice{RequestID: "req-1"}))
	assert.Equal(t, 1, runner.calls)
	require.Len(t, gw.outcomes, 1)
	assert.Equal(t, entity.ApprovalExecuted, gw.outcomes[0].status)

	require.Len(t, pub.events, 1)
	assert.Equal(t, event.KeyApprovalExecuted, pub.events[0].key)
	notice := pub.events[0].payload.(event.ApprovalNotice)
	assert.Equal(t, "u-7", notice.RequestedByID, "el aviso va a quien pidió la operación")
}

func TestWorker_ResultadoFallido_IncluyeMotivo(t *testing.T) {
	gw := &fakeGateway{requests: map[string]*entity.ApprovalRequest{
		"req-1": approved(entity.RequestProductDelete, `{"id": 7}`),
	}}
	runner := &fakeRunner{result: approval.Result{StatusCode: 404, Kind: approval.KindRejected, Reason: "el recurso ya no existe"}}
	pub := &fakePublisher{}

	require.NoError(t, newWorker(gw, runner, pub).HandleApproved(context.Background(), event.ApprovalNotice{RequestID: "req-1"}))
	require.Len(t, gw.outcomes, 1)
	assert.Equal(t, entity.ApprovalFailed, gw.outcomes[0].status)
	assert.Equal(t, "el recurso ya no existe", gw.outcomes[0].reason)

	assert.Equal(t, event.KeyApprovalFailed, pub.events[0].key)
	assert.Equal(t, "el recurso ya no existe", pub.events[0].payload.(event.ApprovalNotice).Reason)
}

func TestWorker_OmiteSolicitudYaProcesada(t *testing.T) {
	req := approved(entity.RequestProductDelete, `{"id": 7}`)
	req.Status = entity.ApprovalExecuted
	gw := &fakeGateway{requests: map[string]*entity.ApprovalRequest{"req-1": req}}
	runner := &fakeRunner{}
	pub := &fakePublisher{}

	require.NoError(t, newWorker(gw, runner, pub).HandleApproved(context.Background(), event.ApprovalNotice{RequestID: "req-1"}))
	assert.Zero(t, runner.calls, "una solicitud ejecutada no se repite")
	assert.Empty(t, gw.outcomes)
	assert.Empty(t, pub.events)
}

func TestWorker_ErrorAlConsultar_SePropaga(t *testing.T) {
	gw := &fakeGateway{getErr: errors.New("timeout")}
	runner := &fakeRunner{}

	err := newWorker(gw, runner, &fakePublisher{}).HandleApproved(context.Background(), event.ApprovalNotice{RequestID: "req-1"})
	assert.Error(t, err)
	assert.Zero(t, runner.calls)
}

func TestWorker_FallaAlReportar_NoReejecuta(t *testing.T) {
	gw := &fakeGateway{
		requests:  map[string]*entity.ApprovalRequest{"req-1": approved(entity.RequestProductDelete, `{"id": 7}`)},
		reportErr: errors.New("approvals caído"),
	}
	runner := &fakeRunner{result: approval.Result{Success: true}}
	pub := &fakePublisher{}

	err := newWorker(gw, runner, pub).HandleApproved(context.Background(), event.ApprovalNotice{RequestID: "req-1"})
	assert.NoError(t, err, "se confirma el mensaje para no ejecutar dos veces")
	assert.Equal(t, 3, gw.reportCall)
	assert.Equal(t, 1, runner.calls)
	assert.Len(t, pub.events, 1)
}
