package study

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/PabloGalante/csr-lab/internal/app/degrade"
	"github.com/PabloGalante/csr-lab/internal/app/gateway"
	"github.com/PabloGalante/csr-lab/internal/domain"
	"github.com/PabloGalante/csr-lab/internal/observability"
)

// Conversation is the state the chat UI needs to render a thread.
type Conversation struct {
	Thread     domain.Thread
	Provenance degrade.Provenance
	Resumed    bool
}

// OpenConversation opens the current round's thread with the current client
// and records its opening complaint. A second call in the same round returns
// the already open thread.
func (s *Service) OpenConversation(ctx context.Context, token domain.SessionToken) (*Conversation, error) {
	var out *Conversation
	err := s.withSession(ctx, token, func(ctx context.Context, sess *domain.Session) (bool, error) {
		if err := requirePhase(sess, domain.ChatPhase(sess.Round)); err != nil {
			return false, err
		}
		if t, ok := sess.ActiveThread(); ok {
			out = &Conversation{Thread: cloneThread(t), Resumed: true}
			return false, nil
		}
		if sess.CurrentClient == nil {
			return false, domain.ErrQueueExhausted
		}

		t := &domain.Thread{
			ClientID: domain.ClientID(s.newID()),
			Client:   *sess.CurrentClient,
			Round:    sess.Round,
			Flags:    sess.Flags(),
			OpenedAt: s.now().UTC(),
		}
		t.Client.Round = sess.Round

		res := s.support.Request(ctx, gateway.OpeningLine{Client: t.Client})
		if _, err := s.ledger.AppendOpening(ctx, token, t, res.Content.Text); err != nil {
			return false, err
		}

		if sess.Threads == nil {
			sess.Threads = make(map[domain.ClientID]*domain.Thread)
		}
		sess.Threads[t.ClientID] = t
		sess.ActiveClient = t.ClientID

		observability.LoggerFromContext(ctx).Info("conversation opened",
			"client_id", t.ClientID, "client_name", t.Client.Name, "round", t.Round,
			"show_info", t.Flags.Info, "show_emo", t.Flags.Emo, "provenance", res.Provenance)

		out = &Conversation{Thread: cloneThread(t), Provenance: res.Provenance}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Reply is the client's answer to one representative message.
type Reply struct {
	Text       string
	Turn       int
	Finished   bool
	Provenance degrade.Provenance
}

// SendMessage records a representative message and the simulated client's
// reply as one turn. Finished is set once the client signals resolution.
func (s *Service) SendMessage(ctx context.Context, token domain.SessionToken, id domain.ClientID, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message is empty", domain.ErrInvalidInput)
	}

	var out *Reply
	err := s.withSession(ctx, token, func(ctx context.Context, sess *domain.Session) (bool, error) {
		t, err := openThread(sess, id)
		if err != nil {
			return false, err
		}

		res := s.support.Request(ctx, gateway.RepresentativeReply{
			Client:  t.Client,
			History: slices.Clone(t.History),
			RepText: text,
		})

		turn, err := s.ledger.AppendExchange(ctx, token, t, text, res.Content.Text)
		if err != nil {
			return false, err
		}

		out = &Reply{
			Text:       res.Content.Text,
			Turn:       turn,
			Finished:   strings.Contains(res.Content.Text, degrade.FinishMarker),
			Provenance: res.Provenance,
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// openThread returns a thread that still accepts writes.
func openThread(sess *domain.Session, id domain.ClientID) (*domain.Thread, error) {
	t, err := sess.Thread(id)
	if err != nil {
		return nil, err
	}
	if t.Closed || t.Round != sess.Round || !sess.Phase.Chatting() {
		return nil, domain.ErrConversationClosed
	}
	return t, nil
}

// SupportResult is the set of events one support request produced. An
// emotion reframe yields two.
type SupportResult struct {
	Events     []domain.SupportEvent
	Provenance degrade.Provenance
}

// RequestSupport generates support of the given type for the thread's
// current turn and attaches it to the ledger. clientText defaults to the
// latest client message.
func (s *Service) RequestSupport(ctx context.Context, token domain.SessionToken, id domain.ClientID, typ domain.SupportType, clientText string) (*SupportResult, error) {
	if typ == domain.SupportEmoThought {
		return nil, fmt.Errorf("%w: %s is produced by %s", domain.ErrInvalidInput, typ, domain.SupportEmoReframe)
	}
	if _, ok := domain.ParseSupportType(string(typ)); !ok {
		return nil, fmt.Errorf("%w: unknown support type %q", domain.ErrInvalidInput, typ)
	}

	var out *SupportResult
	err := s.withSession(ctx, token, func(ctx context.Context, sess *domain.Session) (bool, error) {
		t, err := openThread(sess, id)
		if err != nil {
			return false, err
		}
		if clientText == "" {
			clientText = t.LastClientMessage()
		}

		turn := t.CurrentTurn()
		res := s.support.Request(ctx, supportRequest(typ, t, clientText))

		out = &SupportResult{Provenance: res.Provenance}
		for _, p := range supportContents(typ, res.Content) {
			key := domain.SupportKey{Session: token, Client: id, Turn: turn, Type: p.typ}
			ev, err := s.ledger.AttachSupport(ctx, key, p.content)
			if err != nil {
				return false, err
			}
			out.Events = append(out.Events, ev)
		}

		observability.LoggerFromContext(ctx).Info("support attached",
			"client_id", id, "turn", turn, "support_type", typ, "provenance", res.Provenance)
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func supportRequest(typ domain.SupportType, t *domain.Thread, clientText string) gateway.Request {
	history := slices.Clone(t.History)
	switch typ {
	case domain.SupportInfoCue:
		return gateway.InfoCue{Domain: t.Client.Domain, History: history, ClientText: clientText}
	case domain.SupportInfoGuide:
		return gateway.InfoGuide{Domain: t.Client.Domain, History: history, ClientText: clientText}
	case domain.SupportEmoReframe:
		return gateway.EmotionReframe{History: history, ClientText: clientText}
	case domain.SupportEmoShoes:
		return gateway.EmotionShoes{History: history, ClientText: clientText}
	default:
		return gateway.Sentiment{ClientText: clientText}
	}
}

type typedContent struct {
	typ     domain.SupportType
	content domain.SupportContent
}

// supportContents splits gateway output into ledger events, in write order.
func supportContents(typ domain.SupportType, c gateway.Content) []typedContent {
	switch typ {
	case domain.SupportInfoCue, domain.SupportInfoGuide:
		return []typedContent{{typ, domain.SupportContent{Items: c.Suggestions}}}
	case domain.SupportEmoReframe:
		return []typedContent{
			{domain.SupportEmoThought, domain.SupportContent{Text: c.Thought}},
			{domain.SupportEmoReframe, domain.SupportContent{Text: c.Reframe}},
		}
	case domain.SupportSentiment:
		return []typedContent{{typ, domain.SupportContent{Text: c.Label}}}
	default:
		return []typedContent{{typ, domain.SupportContent{Text: c.Text}}}
	}
}

// ResolveSupportType accepts a support type code or its panel title.
func ResolveSupportType(s string) (domain.SupportType, bool) {
	if t, ok := domain.ParseSupportType(s); ok {
		return t, true
	}
	for t, label := range domain.SupportLabels() {
		if strings.EqualFold(label, strings.TrimSpace(s)) {
			return t, true
		}
	}
	return "", false
}

// SubmitFeedback rates a support event. The rating is stored sign-reversed.
// With turn nil the thread's current turn is used.
func (s *Service) SubmitFeedback(ctx context.Context, token domain.SessionToken, id domain.ClientID, typ string, rate int, turn *int) error {
	st, ok := ResolveSupportType(typ)
	if !ok {
		return fmt.Errorf("%w: unknown support type %q", domain.ErrInvalidInput, typ)
	}

	return s.withSession(ctx, token, func(ctx context.Context, sess *domain.Session) (bool, error) {
		t, err := sess.Thread(id)
		if err != nil {
			return false, err
		}

		key := domain.SupportKey{Session: token, Client: id, Type: st, Turn: t.CurrentTurn()}
		if turn != nil {
			key.Turn = *turn
		}

		if err := s.ledger.AttachFeedback(ctx, key, -rate); err != nil {
			observability.LoggerFromContext(ctx).Warn("feedback not attached",
				"client_id", id, "turn", key.Turn, "support_type", st, "error", err)
			return false, err
		}
		return false, nil
	})
}

func cloneThread(t *domain.Thread) domain.Thread {
	c := *t
	c.History = slices.Clone(t.History)
	return c
}
