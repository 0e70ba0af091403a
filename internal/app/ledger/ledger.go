// Package ledger is the durable, turn-indexed record of every conversation:
// client and representative messages, support events and their feedback.
//
// Each entry is written immediately and individually. The only update is
// AttachFeedback, which touches exactly one support event or fails.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/PabloGalante/csr-lab/internal/domain"
)

// Ledger document fields.
const (
	fieldSender     = "sender"
	fieldReceiver   = "receiver"
	fieldMessage    = "message"
	fieldTimestamp  = "timestamp"
	fieldContent    = "support_content"
	fieldArrival    = "timestamp_arrival"
	fieldFeedback   = "user_feedback"
	fieldFeedbackAt = "timestamp_feedback"
	fieldClientName = "client_name"
	fieldDomain     = "domain"
	fieldCategory   = "category"
	fieldRound      = "round"
	fieldShowInfo   = "info"
	fieldShowEmo    = "emo"
	fieldGrateful   = "grateful"
	fieldRanting    = "ranting"
	fieldExpressive = "expression"
	fieldCivil      = "civil"
	fieldAvatar     = "avatar"
)

type Ledger struct {
	store domain.DocumentStore
	now   domain.Clock
}

func New(store domain.DocumentStore, now domain.Clock) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{store: store, now: now}
}

func threadFilter(token domain.SessionToken, id domain.ClientID) domain.Filter {
	return domain.Filter{
		domain.FieldSessionID: string(token),
		domain.FieldClientID:  string(id),
	}
}

func (l *Ledger) appendMessage(ctx context.Context, token domain.SessionToken, id domain.ClientID, m domain.Message) error {
	receiver := domain.RoleRepresentative
	if m.Role == domain.RoleRepresentative {
		receiver = domain.RoleClient
	}

	_, err := l.store.Insert(ctx, domain.CollChatHistory, domain.Document{
		domain.FieldSessionID: string(token),
		domain.FieldClientID:  string(id),
		domain.FieldTurn:      m.Turn,
		fieldSender:           string(m.Role),
		fieldReceiver:         string(receiver),
		fieldMessage:          m.Text,
		fieldTimestamp:        m.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("append %s message: %w", m.Role, err)
	}
	return nil
}

// AppendOpening records the client profile and its opening complaint, which
// becomes the single-message history of a new thread. It returns turn 1.
func (l *Ledger) AppendOpening(ctx context.Context, token domain.SessionToken, t *domain.Thread, text string) (int, error) {
	if len(t.History) != 0 {
		return 0, fmt.Errorf("%w: thread %s already has an opening", domain.ErrInvalidTransition, t.ClientID)
	}

	now := l.now().UTC()
	c := t.Client

	_, err := l.store.Insert(ctx, domain.CollClientInfo, domain.Document{
		domain.FieldSessionID: string(token),
		domain.FieldClientID:  string(t.ClientID),
		fieldClientName:       c.Name,
		fieldDomain:           c.Domain,
		fieldCategory:         c.Category,
		fieldAvatar:           c.Avatar,
		fieldRound:            t.Round,
		fieldGrateful:         c.Grateful,
		fieldRanting:          c.Ranting,
		fieldExpressive:       c.Expressive,
		fieldCivil:            c.Civil,
		fieldShowInfo:         t.Flags.Info,
		fieldShowEmo:          t.Flags.Emo,
		fieldTimestamp:        now,
	})
	if err != nil {
		return 0, fmt.Errorf("record client info: %w", err)
	}

	opening := domain.Message{Role: domain.RoleClient, Text: text, Turn: 1, CreatedAt: now}
	if err := l.appendMessage(ctx, token, t.ClientID, opening); err != nil {
		return 0, err
	}

	t.History = append(t.History, opening)
	return opening.Turn, nil
}

// AppendExchange records the representative's message and the client's reply
// as one turn pair. The returned turn is len(history)/2+1 after the append;
// the representative message carries turn-1.
func (l *Ledger) AppendExchange(ctx context.Context, token domain.SessionToken, t *domain.Thread, repText, clientReply string) (int, error) {
	if t.Closed {
		return 0, domain.ErrConversationClosed
	}
	if len(t.History) == 0 {
		return 0, fmt.Errorf("%w: thread %s has no opening", domain.ErrInvalidTransition, t.ClientID)
	}

	now := l.now().UTC()
	turn := domain.TurnFor(len(t.History) + 2)

	rep := domain.Message{Role: domain.RoleRepresentative, Text: repText, Turn: turn - 1, CreatedAt: now}
	reply := domain.Message{Role: domain.RoleClient, Text: clientReply, Turn: turn, CreatedAt: now}

	if err := l.appendMessage(ctx, token, t.ClientID, rep); err != nil {
		return 0, err
	}
	if err := l.appendMessage(ctx, token, t.ClientID, reply); err != nil {
		return 0, err
	}

	t.History = append(t.History, rep, reply)
	return turn, nil
}

// AttachSupport appends a support event at key's turn.
func (l *Ledger) AttachSupport(ctx context.Context, key domain.SupportKey, content domain.SupportContent) (domain.SupportEvent, error) {
	now := l.now().UTC()

	_, err := l.store.Insert(ctx, domain.CollSupport, domain.Document{
		domain.FieldSessionID:   string(key.Session),
		domain.FieldClientID:    string(key.Client),
		domain.FieldTurn:        key.Turn,
		domain.FieldSupportType: string(key.Type),
		fieldContent:            content.Value(),
		fieldArrival:            now,
	})
	if err != nil {
		return domain.SupportEvent{}, fmt.Errorf("attach %s: %w", key.Type, err)
	}

	return domain.SupportEvent{Key: key, Content: content, ArrivedAt: now}, nil
}

func supportFilter(key domain.SupportKey) domain.Filter {
	return domain.Filter{
		domain.FieldSessionID:   string(key.Session),
		domain.FieldClientID:    string(key.Client),
		domain.FieldTurn:        key.Turn,
		domain.FieldSupportType: string(key.Type),
	}
}

// AttachFeedback stores rating on the support event matching key exactly.
// With no match it returns domain.ErrFeedbackNotFound and writes nothing.
func (l *Ledger) AttachFeedback(ctx context.Context, key domain.SupportKey, rating int) error {
	matched, err := l.store.UpdateOne(ctx, domain.CollSupport, supportFilter(key), domain.Document{
		fieldFeedback:   rating,
		fieldFeedbackAt: l.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("attach feedback: %w", err)
	}
	if matched == 0 {
		return domain.ErrFeedbackNotFound
	}
	return nil
}

type messageRecord struct {
	Turn      int       `json:"turn_number"`
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Replay rebuilds a thread's history from the durable log, in insertion order.
func (l *Ledger) Replay(ctx context.Context, token domain.SessionToken, id domain.ClientID) ([]domain.Message, error) {
	docs, err := l.store.Find(ctx, domain.CollChatHistory, threadFilter(token, id))
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", id, err)
	}

	out := make([]domain.Message, 0, len(docs))
	for _, d := range docs {
		var r messageRecord
		if err := d.Decode(&r); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		out = append(out, domain.Message{
			Role:      domain.Role(r.Sender),
			Text:      r.Message,
			Turn:      r.Turn,
			CreatedAt: r.Timestamp,
		})
	}
	return out, nil
}

// HistoryRecords returns the raw chat_history documents of one thread.
func (l *Ledger) HistoryRecords(ctx context.Context, token domain.SessionToken, id domain.ClientID) ([]domain.Document, error) {
	return l.store.Find(ctx, domain.CollChatHistory, threadFilter(token, id))
}

type supportRecord struct {
	Session    domain.SessionToken `json:"session_id"`
	Client     domain.ClientID     `json:"client_id"`
	Turn       int                 `json:"turn_number"`
	Type       domain.SupportType  `json:"support_type"`
	Content    any                 `json:"support_content"`
	ArrivedAt  time.Time           `json:"timestamp_arrival"`
	Feedback   *int                `json:"user_feedback"`
	FeedbackAt *time.Time          `json:"timestamp_feedback"`
}

// SupportEvents returns a thread's support events in insertion order.
func (l *Ledger) SupportEvents(ctx context.Context, token domain.SessionToken, id domain.ClientID) ([]domain.SupportEvent, error) {
	docs, err := l.store.Find(ctx, domain.CollSupport, threadFilter(token, id))
	if err != nil {
		return nil, fmt.Errorf("support events %s: %w", id, err)
	}

	out := make([]domain.SupportEvent, 0, len(docs))
	for _, d := range docs {
		var r supportRecord
		if err := d.Decode(&r); err != nil {
			return nil, fmt.Errorf("decode support event: %w", err)
		}

		ev := domain.SupportEvent{
			Key: domain.SupportKey{
				Session: r.Session,
				Client:  r.Client,
				Turn:    r.Turn,
				Type:    r.Type,
			},
			Content:    contentOf(r.Content),
			ArrivedAt:  r.ArrivedAt,
			Feedback:   r.Feedback,
			FeedbackAt: r.FeedbackAt,
		}
		out = append(out, ev)
	}
	return out, nil
}

func contentOf(v any) domain.SupportContent {
	switch c := v.(type) {
	case string:
		return domain.SupportContent{Text: c}
	case []any:
		items := make([]string, 0, len(c))
		for _, it := range c {
			if s, ok := it.(string); ok {
				items = append(items, s)
			}
		}
		return domain.SupportContent{Items: items}
	default:
		return domain.SupportContent{}
	}
}

// ClientInfo is one entry of a session's client list.
type ClientInfo struct {
	ClientID   domain.ClientID `json:"client_id"`
	ClientName string          `json:"client_name"`
	Category   string          `json:"category"`
	Domain     string          `json:"domain"`
	Round      int             `json:"round"`
}

// Clients lists the clients a session has talked to, in opening order.
func (l *Ledger) Clients(ctx context.Context, token domain.SessionToken) ([]ClientInfo, error) {
	docs, err := l.store.Find(ctx, domain.CollClientInfo, domain.Filter{domain.FieldSessionID: string(token)})
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}

	out := make([]ClientInfo, 0, len(docs))
	for _, d := range docs {
		var c ClientInfo
		if err := d.Decode(&c); err != nil {
			return nil, fmt.Errorf("decode client info: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}
