package domain

// Message is one entry of a thread's history.
type Message struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Turn      int       `json:"turn"`
	CreatedAt Timestamp `json:"created_at"`
}

// ClientProfile is a simulated counterpart persona from the client queue.
type ClientProfile struct {
	Name       string `json:"name"`
	Domain     string `json:"domain"`
	Category   string `json:"category"`
	Avatar     string `json:"avatar,omitempty"`
	Round      int    `json:"round"`
	Grateful   bool   `json:"grateful"`
	Ranting    bool   `json:"ranting"`
	Expressive bool   `json:"expressive"`
	Civil      bool   `json:"civil"`

	// Defaults are historical per-client visibility flags. They never decide
	// what is shown; see SupportFlagsFor.
	Defaults SupportFlags `json:"defaults"`
}

// Thread is one conversation with one client.
type Thread struct {
	ClientID ClientID      `json:"client_id"`
	Client   ClientProfile `json:"client"`
	Round    int           `json:"round"`
	Flags    SupportFlags  `json:"flags"`
	History  []Message     `json:"history"`
	Closed   bool          `json:"closed"`
	OpenedAt Timestamp     `json:"opened_at"`
}

// TurnFor is the turn number of the latest client message for a history of
// the given length. Turns count client/representative pairs.
func TurnFor(historyLen int) int {
	return historyLen/2 + 1
}

// CurrentTurn is the turn a support request issued now is attached to.
func (t *Thread) CurrentTurn() int {
	return TurnFor(len(t.History))
}

// LastClientMessage returns the most recent client text, or "".
func (t *Thread) LastClientMessage() string {
	for i := len(t.History) - 1; i >= 0; i-- {
		if t.History[i].Role == RoleClient {
			return t.History[i].Text
		}
	}
	return ""
}

// SupportKey is the de facto unique key of a support event.
type SupportKey struct {
	Session SessionToken
	Client  ClientID
	Turn    int
	Type    SupportType
}

// SupportContent is either free text or an ordered list of suggestions.
type SupportContent struct {
	Text  string
	Items []string
}

// Value is the form persisted in the ledger.
func (c SupportContent) Value() any {
	if c.Items != nil {
		return c.Items
	}
	return c.Text
}

// SupportEvent is an injected assistance artifact attached to a turn.
type SupportEvent struct {
	Key        SupportKey
	Content    SupportContent
	ArrivedAt  Timestamp
	Feedback   *int
	FeedbackAt *Timestamp
}
