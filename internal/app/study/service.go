// Package study drives a participant through the experiment: pre-survey and
// randomization, two chat rounds with their surveys, and the final survey.
// It is the only package the transport calls.
package study

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/csr-lab/internal/app/degrade"
	"github.com/PabloGalante/csr-lab/internal/app/gateway"
	"github.com/PabloGalante/csr-lab/internal/app/ledger"
	"github.com/PabloGalante/csr-lab/internal/app/randomizer"
	"github.com/PabloGalante/csr-lab/internal/app/survey"
	"github.com/PabloGalante/csr-lab/internal/domain"
	"github.com/PabloGalante/csr-lab/internal/observability"
)

// Support is the degradation-wrapped gateway. It never fails.
type Support interface {
	Request(ctx context.Context, req gateway.Request) degrade.Result
}

type Service struct {
	sessions   domain.SessionStore
	store      domain.DocumentStore
	randomizer *randomizer.Randomizer
	ledger     *ledger.Ledger
	surveys    *survey.Service
	support    Support
	queue      *QueueGenerator
	metrics    *observability.Metrics

	now   domain.Clock
	newID func() string
	locks *tokenLocks
}

// Dependencies groups what NewService needs. Queue, Metrics and Now are optional.
type Dependencies struct {
	Sessions   domain.SessionStore
	Store      domain.DocumentStore
	Randomizer *randomizer.Randomizer
	Ledger     *ledger.Ledger
	Surveys    *survey.Service
	Support    Support
	Queue      *QueueGenerator
	Metrics    *observability.Metrics
	Now        domain.Clock
}

func NewService(d Dependencies) *Service {
	s := &Service{
		sessions:   d.Sessions,
		store:      d.Store,
		randomizer: d.Randomizer,
		ledger:     d.Ledger,
		surveys:    d.Surveys,
		support:    d.Support,
		queue:      d.Queue,
		metrics:    d.Metrics,
		now:        d.Now,
		newID:      uuid.NewString,
		locks:      newTokenLocks(),
	}
	if s.queue == nil {
		s.queue = NewQueueGenerator()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// StartScenario creates a participant for a scenario (the client domain,
// e.g. "hotel" or "airlines") and pops the round-1 client.
func (s *Service) StartScenario(ctx context.Context, scenario string) (*domain.Session, error) {
	if scenario == "" {
		return nil, fmt.Errorf("%w: scenario is required", domain.ErrInvalidInput)
	}

	now := s.now().UTC()
	token := domain.SessionToken(s.newID())

	log := observability.LoggerFromContext(ctx).With("session_id", token, "scenario", scenario)

	sess := &domain.Session{
		Token:     token,
		Scenario:  scenario,
		Phase:     domain.PhasePreSurvey,
		Round:     1,
		Queue:     s.queue.Generate(scenario),
		Threads:   make(map[domain.ClientID]*domain.Thread),
		CreatedAt: now,
		UpdatedAt: now,
	}

	first, err := sess.PopClient()
	if err != nil {
		return nil, err
	}
	sess.CurrentClient = &first

	doc, err := domain.ToDocument(domain.Participant{
		SessionToken: token,
		Scenario:     scenario,
		StartTime:    now,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Insert(ctx, domain.CollParticipants, doc); err != nil {
		log.Error("failed to record participant", "error", err)
		return nil, fmt.Errorf("record participant: %w", err)
	}

	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		log.Error("failed to create session", "error", err)
		return nil, err
	}

	log.Info("scenario started", "first_client", first.Name)
	return sess, nil
}

// GetSession returns the session state, or domain.ErrInvalidSession.
func (s *Service) GetSession(ctx context.Context, token domain.SessionToken) (*domain.Session, error) {
	return s.sessions.GetSession(ctx, token)
}

// withSession loads the session under its lock and saves it when fn
// succeeds with save set.
func (s *Service) withSession(ctx context.Context, token domain.SessionToken, fn func(ctx context.Context, sess *domain.Session) (save bool, err error)) error {
	unlock := s.locks.lock(token)
	defer unlock()

	sess, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		return err
	}

	ctx = observability.WithSessionID(ctx, string(token))

	save, err := fn(ctx, sess)
	if err != nil {
		return err
	}
	if !save {
		return nil
	}

	sess.UpdatedAt = s.now().UTC()
	if err := s.sessions.UpdateSession(ctx, sess); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to save session", "error", err)
		return err
	}
	return nil
}

func (s *Service) transition(ctx context.Context, sess *domain.Session, to domain.Phase) {
	from := sess.Phase
	sess.Phase = to
	s.metrics.Transition(string(from), string(to))
	observability.LoggerFromContext(ctx).Info("phase transition", "from", from, "to", to, "round", sess.Round)
}

func requirePhase(sess *domain.Session, allowed ...domain.Phase) error {
	for _, p := range allowed {
		if sess.Phase == p {
			return nil
		}
	}
	return fmt.Errorf("%w: session is in %s", domain.ErrInvalidTransition, sess.Phase)
}

func (s *Service) markParticipant(ctx context.Context, token domain.SessionToken, updates domain.Document) error {
	matched, err := s.store.UpdateOne(ctx, domain.CollParticipants, domain.Filter{domain.FieldSessionID: string(token)}, updates)
	if err != nil {
		return fmt.Errorf("update participant: %w", err)
	}
	if matched == 0 {
		return fmt.Errorf("update participant: %w", domain.ErrNotFound)
	}
	return nil
}

// Clients lists the clients a session has talked to. It reads the durable
// log only, so it works after the session expired.
func (s *Service) Clients(ctx context.Context, token domain.SessionToken) ([]ledger.ClientInfo, error) {
	return s.ledger.Clients(ctx, token)
}

// History returns one thread's messages from the durable log.
func (s *Service) History(ctx context.Context, token domain.SessionToken, id domain.ClientID) ([]domain.Message, error) {
	return s.ledger.Replay(ctx, token, id)
}

// IsStructural reports whether err is one of the domain errors the
// transport maps to a client-facing status.
func IsStructural(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidSession,
		domain.ErrQueueExhausted,
		domain.ErrFeedbackNotFound,
		domain.ErrInvalidTransition,
		domain.ErrConversationClosed,
		domain.ErrUnknownClient,
		domain.ErrInvalidInput,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
