package approval

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-eventos/internal/application/ports"
	"github.com/jhoicas/inventario-eventos/internal/domain/entity"
	"github.com/jhoicas/inventario-eventos/internal/domain/event"
	"github.com/jhoicas/inventario-eventos/pkg/logger"
)

// Runner ejecuta una solicitud aprobada (Executor en producción).
type Runner interface {
	Execute(ctx context.Context, req *entity.ApprovalRequest) Result
}

const reportAttempts = 3

// Worker consume approval.request.approved, ejecuta y reporta el resultado.
type Worker struct {
	gateway   ports.ApprovalGateway
	runner    Runner
	publisher ports.EventPublisher
	log       *logger.Logger
	now       func() time.Time
	backoff   time.Duration
}

// WorkerOption ajusta el worker.
type WorkerOption func(*Worker)

// WithReportBackoff espera base entre reintentos de ReportOutcome (crece linealmente).
func WithReportBackoff(d time.Duration) WorkerOption {
	return func(w *Worker) { w.backoff = d }
}

// NewWorker construye el worker.
func NewWorker(gateway ports.ApprovalGateway, runner Runner, publisher ports.EventPublisher, log *logger.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		gateway:   gateway,
		runner:    runner,
		publisher: publisher,
		log:       log.Component("approval_worker"),
		now:       time.Now,
		backoff:   500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleApproved procesa un aviso de aprobación. Un error antes de ejecutar se propaga (el
// dispatcher decide si reintenta); una vez ejecutada la solicitud, nunca se vuelve a ejecutar
// por un fallo al reportar.
func (w *Worker) HandleApproved(ctx context.Context, notice event.ApprovalNotice) error {
	req, err := w.gateway.GetApproved(ctx, notice.RequestID)
	if err != nil {
		return err
	}
	if req.Status != entity.ApprovalApproved {
		w.log.Info().Str("request_id", req.ID).Str("status", string(req.Status)).Msg("solicitud ya procesada, se omite")
		return nil
	}

	res := w.runner.Execute(ctx, req)
	status := entity.ApprovalExecuted
	key := event.KeyApprovalExecuted
	if !res.Success {
		status = entity.ApprovalFailed
		key = event.KeyApprovalFailed
	}

	if err := w.report(ctx, req.ID, status, res.Reason); err != nil {
		w.log.Error().Err(err).
			Str("request_id", req.ID).
			Str("status", string(status)).
			Msg("no se pudo reportar el resultado; la solicitud no se reintenta")
	}

	notice = event.ApprovalNotice{
		RequestID:       req.ID,
		RequestType:     req.RequestType,
		Status:          status,
		RequestedByID:   req.RequestedByID,
		RequestedByName: req.RequestedByName,
		ApprovedByID:    req.ApprovedByID,
		ApprovedByName:  req.ApprovedByName,
		Reason:          res.Reason,
		OccurredAt:      w.now().UTC(),
	}
	if err := w.publisher.Publish(ctx, key, notice); err != nil {
		w.log.Warn().Err(err).Str("request_id", req.ID).Msg("no se pudo publicar el resultado de la solicitud")
	}
	return nil
}

func (w *Worker) report(ctx context.Context, id string, status entity.ApprovalStatus, reason string) error {
	var err error
	for attempt := 1; attempt <= reportAttempts; attempt++ {
		if err = w.gateway.ReportOutcome(ctx, id, status, reason); err == nil {
			return nil
		}
		if attempt == reportAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.backoff * time.Duration(attempt)):
		}
	}
	return err
}
