// Package degrade wraps the gateway so that a failed generative call never
// reaches the participant: it is replaced by deterministic canned content.
package degrade

import (
	"context"
	"time"

	"github.com/PabloGalante/csr-lab/internal/app/gateway"
	"github.com/PabloGalante/csr-lab/internal/observability"
)

// Provenance says where content came from. Production treats both the same.
type Provenance string

const (
	FromBackend  Provenance = "backend"
	FromFallback Provenance = "fallback"
)

type Result struct {
	Content    gateway.Content
	Provenance Provenance

	// Cause is the failure that triggered the fallback, if any.
	Cause error
}

// Requester is the gateway contract the policy decorates.
type Requester interface {
	Request(ctx context.Context, req gateway.Request) (gateway.Content, error)
}

type Policy struct {
	next    Requester
	metrics *observability.Metrics
}

func New(next Requester, metrics *observability.Metrics) *Policy {
	return &Policy{next: next, metrics: metrics}
}

// Request never fails.
func (p *Policy) Request(ctx context.Context, req gateway.Request) Result {
	c := string(req.Capability())
	log := observability.LoggerFromContext(ctx).With("capability", c)

	start := time.Now()
	content, err := p.next.Request(ctx, req)
	if err == nil {
		p.metrics.GatewayCall(c, string(FromBackend))
		log.Debug("generated content", "duration_ms", time.Since(start).Milliseconds())
		return Result{Content: content, Provenance: FromBackend}
	}

	if gateway.IsBackendFailure(err) {
		log.Warn("backend failed, using fallback content", "error", err)
	} else {
		log.Error("unexpected gateway error, using fallback content", "error", err)
	}

	p.metrics.GatewayCall(c, string(FromFallback))
	return Result{Content: Mock(req), Provenance: FromFallback, Cause: err}
}
