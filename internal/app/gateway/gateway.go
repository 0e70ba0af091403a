// Package gateway is the single entry point to the generative backend. Every
// capability call gets a deadline, a rate-limit slot and post-processing, and
// fails with a *BackendFailure that callers can tell apart from bugs.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/PabloGalante/csr-lab/internal/adapters/llm"
	"github.com/PabloGalante/csr-lab/internal/domain"
	"github.com/PabloGalante/csr-lab/internal/observability"
)

const DefaultTimeout = 20 * time.Second

type Gateway struct {
	backend  domain.Backend
	classify domain.Classifier
	limiter  *rate.Limiter
	timeouts map[domain.Capability]time.Duration
	fallback time.Duration
	metrics  *observability.Metrics
}

type Option func(*Gateway)

// WithRateLimit caps backend calls per second across all sessions.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(g *Gateway) {
		g.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithTimeout sets the deadline of one capability.
func WithTimeout(c domain.Capability, d time.Duration) Option {
	return func(g *Gateway) {
		g.timeouts[c] = d
	}
}

// WithDefaultTimeout sets the deadline of capabilities without their own.
func WithDefaultTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.fallback = d
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

func New(backend domain.Backend, classify domain.Classifier, opts ...Option) *Gateway {
	g := &Gateway{
		backend:  backend,
		classify: classify,
		timeouts: make(map[domain.Capability]time.Duration),
		fallback: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) timeoutFor(c domain.Capability) time.Duration {
	if d, ok := g.timeouts[c]; ok && d > 0 {
		return d
	}
	return g.fallback
}

// Request runs one capability. Any error it returns is a *BackendFailure.
func (g *Gateway) Request(ctx context.Context, req Request) (Content, error) {
	c := req.Capability()

	if s, ok := req.(Sentiment); ok {
		label := g.classify(s.ClientText)
		if label == "" {
			return Content{}, failure(c, ErrMalformedOutput)
		}
		return Content{Label: label}, nil
	}

	prompt, err := promptFor(req)
	if err != nil {
		return Content{}, failure(c, err)
	}

	start := time.Now()
	raw, err := g.generate(ctx, c, prompt)
	g.metrics.ObserveGateway(string(c), time.Since(start))
	if err != nil {
		return Content{}, failure(c, err)
	}

	out, err := parse(req, raw)
	if err != nil {
		return Content{}, failure(c, err)
	}
	return out, nil
}

type generated struct {
	text string
	err  error
}

// generate enforces the capability deadline even against a backend that
// ignores its context.
func (g *Gateway) generate(ctx context.Context, c domain.Capability, p domain.Prompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeoutFor(c))
	defer cancel()

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
	}

	done := make(chan generated, 1)
	go func() {
		text, err := g.backend.Generate(ctx, p)
		done <- generated{text: text, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, r.err)
		}
		return r.text, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", ctx.Err()
	}
}

func promptFor(req Request) (domain.Prompt, error) {
	switch r := req.(type) {
	case OpeningLine:
		return llm.OpeningPrompt(r.Client), nil
	case RepresentativeReply:
		return llm.ReplyPrompt(r.Client, r.History, r.RepText), nil
	case InfoCue:
		return llm.InfoCuePrompt(r.Domain, r.History, r.ClientText), nil
	case InfoGuide:
		return llm.InfoGuidePrompt(r.Domain, r.History, r.ClientText), nil
	case EmotionReframe:
		return llm.ReframePrompt(r.History, r.ClientText), nil
	case EmotionShoes:
		return llm.ShoesPrompt(r.History, r.ClientText), nil
	default:
		return domain.Prompt{}, fmt.Errorf("no prompt for capability %s", req.Capability())
	}
}

func parse(req Request, raw string) (Content, error) {
	switch req.(type) {
	case OpeningLine, RepresentativeReply, EmotionShoes:
		text, err := cleanText(raw)
		if err != nil {
			return Content{}, err
		}
		return Content{Text: text}, nil
	case InfoCue, InfoGuide:
		items, err := parseList(raw)
		if err != nil {
			return Content{}, err
		}
		return Content{Suggestions: items}, nil
	case EmotionReframe:
		out, err := parseReframe(raw)
		if err != nil {
			return Content{}, err
		}
		return Content{Thought: out.Thought, Reframe: out.Reframe}, nil
	default:
		return Content{}, fmt.Errorf("no parser for capability %s", req.Capability())
	}
}
