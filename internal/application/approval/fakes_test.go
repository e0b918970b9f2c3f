package approval_test

import (
	"context"
	"sync"

	"github.com/jhoicas/inventario-eventos/internal/application/approval"
	"github.com/jhoicas/inventario-eventos/internal/application/ports"
	"github.com/jhoicas/inventario-eventos/internal/domain/entity"
)

type outcome struct {
	id     string
	status entity.ApprovalStatus
	reason string
}

type fakeGateway struct {
	mu         sync.Mutex
	submitted  []ports.SubmitApproval
	submitErr  error
	requests   map[string]*entity.ApprovalRequest
	getErr     error
	outcomes   []outcome
	reportErr  error
	reportCall int
}

func (g *fakeGateway) Submit(_ context.Context, req ports.SubmitApproval) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.submitErr != nil {
		return "", g.submitErr
	}
	g.submitted = append(g.submitted, req)
	return "req-42", nil
}

func (g *fakeGateway) GetApproved(_ context.Context, id string) (*entity.ApprovalRequest, error) {
	if g.getErr != nil {
		return nil, g.getErr
	}
	return g.requests[id], nil
}

func (g *fakeGateway) ReportOutcome(_ context.Context, id string, status entity.ApprovalStatus, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reportCall++
	if g.reportErr != nil {
		return g.reportErr
	}
	g.outcomes = append(g.outcomes, outcome{id, status, reason})
	return nil
}

type published struct {
	key     string
	payload any
}

type fakePublisher struct {
	events []published
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, key string, payload any) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, published{key, payload})
	return nil
}

type fakeRunner struct {
	result approval.Result
	calls  int
}

func (r *fakeRunner) Execute(context.Context, *entity.ApprovalRequest) approval.Result {
	r.calls++
	return r.result
}
