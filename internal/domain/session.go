package domain

// Session is the per-participant state machine record. It is owned by its
// token for the session's lifetime and lives in a SessionStore.
type Session struct {
	Token     SessionToken `json:"token"`
	Scenario  string       `json:"scenario"`
	Phase     Phase        `json:"phase"`
	Round     int          `json:"round"`
	Treatment Treatment    `json:"treatment,omitempty"`
	Stratum   Stratum      `json:"stratum,omitempty"`

	CurrentClient *ClientProfile  `json:"current_client,omitempty"`
	Queue         []ClientProfile `json:"queue"`

	Round1Completed bool `json:"round1_completed"`
	Round2Completed bool `json:"round2_completed"`

	Threads      map[ClientID]*Thread `json:"threads"`
	ActiveClient ClientID             `json:"active_client,omitempty"`

	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}

// Thread returns the thread for a client of this session.
func (s *Session) Thread(id ClientID) (*Thread, error) {
	t, ok := s.Threads[id]
	if !ok || t == nil {
		return nil, ErrUnknownClient
	}
	return t, nil
}

// ActiveThread returns the thread opened for the current round, if any.
func (s *Session) ActiveThread() (*Thread, bool) {
	if s.ActiveClient == "" {
		return nil, false
	}
	t, ok := s.Threads[s.ActiveClient]
	if !ok || t.Round != s.Round {
		return nil, false
	}
	return t, true
}

// PopClient removes and returns the head of the client queue.
func (s *Session) PopClient() (ClientProfile, error) {
	if len(s.Queue) == 0 {
		return ClientProfile{}, ErrQueueExhausted
	}
	next := s.Queue[0]
	s.Queue = s.Queue[1:]
	return next, nil
}

// Flags is the support visibility for the current round.
func (s *Session) Flags() SupportFlags {
	return SupportFlagsFor(s.Round, s.Treatment)
}
