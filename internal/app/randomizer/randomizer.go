// Package randomizer assigns participants to treatment arms, balanced within
// their emotion-regulation stratum and capped by a per-cell quota.
//
// Count, choose and write run inside one critical section per stratum, so
// a single process never overruns a quota. Several processes sharing one
// store can still overrun by at most (replicas - 1) per cell.
package randomizer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/PabloGalante/csr-lab/internal/domain"
	"github.com/PabloGalante/csr-lab/internal/observability"
)

const DefaultQuota = 30

// Assignment is the outcome of Assign. ScreenedOut is a result, not an error.
type Assignment struct {
	Treatment   domain.Treatment `json:"treatment,omitempty"`
	Stratum     domain.Stratum   `json:"stratum"`
	Score       float64          `json:"suppression_score"`
	ScreenedOut bool             `json:"screened_out"`
}

type Randomizer struct {
	store   domain.DocumentStore
	quota   int
	locks   map[domain.Stratum]*sync.Mutex
	intn    func(n int) int
	now     domain.Clock
	metrics *observability.Metrics
}

type Option func(*Randomizer)

// WithIntn replaces the uniform choice among open arms. intn(n) must return
// a value in [0, n).
func WithIntn(intn func(n int) int) Option {
	return func(r *Randomizer) { r.intn = intn }
}

func WithClock(now domain.Clock) Option {
	return func(r *Randomizer) { r.now = now }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(r *Randomizer) { r.metrics = m }
}

// New creates a randomizer. quota <= 0 uses DefaultQuota.
func New(store domain.DocumentStore, quota int, opts ...Option) *Randomizer {
	if quota <= 0 {
		quota = DefaultQuota
	}
	r := &Randomizer{
		store: store,
		quota: quota,
		locks: make(map[domain.Stratum]*sync.Mutex, len(domain.Strata)),
		intn:  rand.IntN,
		now:   time.Now,
	}
	for _, s := range domain.Strata {
		r.locks[s] = &sync.Mutex{}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Randomizer) Quota() int {
	return r.quota
}

func cellFilter(t domain.Treatment, s domain.Stratum) domain.Filter {
	return domain.Filter{
		domain.FieldTreatment:   string(t),
		domain.FieldStratum:     string(s),
		domain.FieldScreenedOut: false,
	}
}

// Counts returns how many non-screened-out participants each arm holds in a stratum.
func (r *Randomizer) Counts(ctx context.Context, s domain.Stratum) (map[domain.Treatment]int, error) {
	counts := make(map[domain.Treatment]int, len(domain.Treatments))
	for _, t := range domain.Treatments {
		n, err := r.store.Count(ctx, domain.CollParticipants, cellFilter(t, s))
		if err != nil {
			return nil, fmt.Errorf("count %s/%s: %w", t, s, err)
		}
		counts[t] = n
	}
	return counts, nil
}

// Assign places the participant behind token into an arm, or screens them
// out when every arm of their stratum is full. A participant that already
// has an outcome gets it back unchanged.
func (r *Randomizer) Assign(ctx context.Context, token domain.SessionToken, score float64) (Assignment, error) {
	stratum := domain.StratumFor(score)
	log := observability.LoggerFromContext(ctx).With("stratum", stratum, "suppression_score", score)

	mu := r.locks[stratum]
	mu.Lock()
	defer mu.Unlock()

	who := domain.Filter{domain.FieldSessionID: string(token)}

	doc, err := r.store.FindOne(ctx, domain.CollParticipants, who)
	if errors.Is(err, domain.ErrNotFound) {
		return Assignment{}, domain.ErrInvalidSession
	}
	if err != nil {
		return Assignment{}, fmt.Errorf("load participant: %w", err)
	}

	var p domain.Participant
	if err := doc.Decode(&p); err != nil {
		return Assignment{}, fmt.Errorf("decode participant: %w", err)
	}
	if prev, done := previous(p); done {
		log.Info("participant already randomized", "treatment", prev.Treatment, "screened_out", prev.ScreenedOut)
		return prev, nil
	}

	counts, err := r.Counts(ctx, stratum)
	if err != nil {
		return Assignment{}, err
	}

	open := make([]domain.Treatment, 0, len(domain.Treatments))
	for _, t := range domain.Treatments {
		log.Debug("quota check", "treatment", t, "count", counts[t], "quota", r.quota)
		if counts[t] < r.quota {
			open = append(open, t)
		}
	}

	now := r.now().UTC()

	if len(open) == 0 {
		_, err := r.store.UpdateOne(ctx, domain.CollParticipants, who, domain.Document{
			domain.FieldScreenedOut: true,
			domain.FieldStratum:     string(stratum),
			domain.FieldScore:       score,
			"screen_out_time":       now,
		})
		if err != nil {
			return Assignment{}, fmt.Errorf("record screen-out: %w", err)
		}
		r.metrics.ScreenedOut(string(stratum))
		log.Warn("all quotas full, participant screened out")
		return Assignment{Stratum: stratum, Score: score, ScreenedOut: true}, nil
	}

	chosen := open[r.intn(len(open))]

	_, err = r.store.UpdateOne(ctx, domain.CollParticipants, who, domain.Document{
		domain.FieldTreatment: string(chosen),
		domain.FieldStratum:   string(stratum),
		domain.FieldScore:     score,
		"assignment_time":     now,
	})
	if err != nil {
		return Assignment{}, fmt.Errorf("record assignment: %w", err)
	}

	r.metrics.Assigned(string(chosen), string(stratum))
	log.Info("treatment assigned", "treatment", chosen, "open_arms", len(open))
	return Assignment{Treatment: chosen, Stratum: stratum, Score: score}, nil
}

func previous(p domain.Participant) (Assignment, bool) {
	var score float64
	if p.SuppressionScore != nil {
		score = *p.SuppressionScore
	}
	switch {
	case p.Treatment != nil && *p.Treatment != "":
		return Assignment{Treatment: *p.Treatment, Stratum: p.Stratum, Score: score}, true
	case p.ScreenedOut:
		return Assignment{Stratum: p.Stratum, Score: score, ScreenedOut: true}, true
	}
	return Assignment{}, false
}
