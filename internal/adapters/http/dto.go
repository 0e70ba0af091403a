package httpadapter

import (
	"time"

	"github.com/PabloGalante/csr-lab/internal/app/study"
	"github.com/PabloGalante/csr-lab/internal/domain"
)

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type clientResponse struct {
	Name     string `json:"name"`
	Domain   string `json:"domain"`
	Category string `json:"category"`
	Avatar   string `json:"avatar,omitempty"`
	Round    int    `json:"round"`
}

type sessionResponse struct {
	SessionID       string          `json:"session_id"`
	Scenario        string          `json:"scenario"`
	Phase           string          `json:"phase"`
	Round           int             `json:"round"`
	Treatment       string          `json:"treatment,omitempty"`
	Stratum         string          `json:"stratum,omitempty"`
	CurrentClient   *clientResponse `json:"current_client,omitempty"`
	ActiveClientID  string          `json:"active_client_id,omitempty"`
	Round1Completed bool            `json:"round1_completed"`
	Round2Completed bool            `json:"round2_completed"`
	NextURL         string          `json:"next_url"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type preSurveyResponse struct {
	Phase       string  `json:"phase"`
	Treatment   string  `json:"treatment,omitempty"`
	Stratum     string  `json:"stratum"`
	Score       float64 `json:"suppression_score"`
	ScreenedOut bool    `json:"screened_out"`
	NextURL     string  `json:"next_url"`
}

type phaseResponse struct {
	Phase   string `json:"phase"`
	NextURL string `json:"next_url"`
}

type roundSurveyResponse struct {
	phaseResponse
	Round      int             `json:"round"`
	NextClient *clientResponse `json:"next_client,omitempty"`
}

type messageResponse struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Turn      int       `json:"turn"`
	CreatedAt time.Time `json:"created_at"`
}

type conversationResponse struct {
	ClientID   string            `json:"client_id"`
	Client     clientResponse    `json:"client"`
	Round      int               `json:"round"`
	ShowInfo   bool              `json:"show_info"`
	ShowEmo    bool              `json:"show_emo"`
	History    []messageResponse `json:"history"`
	Resumed    bool              `json:"resumed"`
	Provenance string            `json:"provenance,omitempty"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type replyResponse struct {
	Reply      string `json:"reply"`
	Turn       int    `json:"turn"`
	Finished   bool   `json:"finished"`
	Provenance string `json:"provenance"`
}

// supportRequest.Type is a support type code or its panel title.
type supportRequest struct {
	Type       string `json:"support_type"`
	ClientText string `json:"client_text,omitempty"`
}

type supportEventResponse struct {
	Type      string    `json:"support_type"`
	Label     string    `json:"label"`
	Turn      int       `json:"turn"`
	Text      string    `json:"text,omitempty"`
	Items     []string  `json:"items,omitempty"`
	ArrivedAt time.Time `json:"arrived_at"`
}

type supportResponse struct {
	Events     []supportEventResponse `json:"events"`
	Provenance string                 `json:"provenance"`
}

// feedbackRequest.Turn defaults to the thread's current turn.
type feedbackRequest struct {
	Type string `json:"support_type"`
	Rate int    `json:"rate"`
	Turn *int   `json:"turn,omitempty"`
}

type historyClientResponse struct {
	ClientID string `json:"client_id"`
	Name     string `json:"client_name"`
	Domain   string `json:"domain"`
	Category string `json:"category"`
	Round    int    `json:"round"`
}

func toClientResponse(c domain.ClientProfile) clientResponse {
	return clientResponse{
		Name:     c.Name,
		Domain:   c.Domain,
		Category: c.Category,
		Avatar:   c.Avatar,
		Round:    c.Round,
	}
}

func (s *Server) toSessionResponse(sess *domain.Session) sessionResponse {
	resp := sessionResponse{
		SessionID:       string(sess.Token),
		Scenario:        sess.Scenario,
		Phase:           string(sess.Phase),
		Round:           sess.Round,
		Treatment:       string(sess.Treatment),
		Stratum:         string(sess.Stratum),
		ActiveClientID:  string(sess.ActiveClient),
		Round1Completed: sess.Round1Completed,
		Round2Completed: sess.Round2Completed,
		NextURL:         s.nextURL(sess.Token, sess.Phase),
		CreatedAt:       sess.CreatedAt,
		UpdatedAt:       sess.UpdatedAt,
	}
	if sess.CurrentClient != nil {
		c := toClientResponse(*sess.CurrentClient)
		resp.CurrentClient = &c
	}
	return resp
}

func toMessagesResponse(msgs []domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse{
			Role:      string(m.Role),
			Text:      m.Text,
			Turn:      m.Turn,
			CreatedAt: m.CreatedAt,
		})
	}
	return out
}

func toConversationResponse(c *study.Conversation) conversationResponse {
	return conversationResponse{
		ClientID:   string(c.Thread.ClientID),
		Client:     toClientResponse(c.Thread.Client),
		Round:      c.Thread.Round,
		ShowInfo:   c.Thread.Flags.Info,
		ShowEmo:    c.Thread.Flags.Emo,
		History:    toMessagesResponse(c.Thread.History),
		Resumed:    c.Resumed,
		Provenance: string(c.Provenance),
	}
}

func toSupportResponse(r *study.SupportResult) supportResponse {
	out := supportResponse{
		Events:     make([]supportEventResponse, 0, len(r.Events)),
		Provenance: string(r.Provenance),
	}
	for _, ev := range r.Events {
		out.Events = append(out.Events, supportEventResponse{
			Type:      string(ev.Key.Type),
			Label:     ev.Key.Type.Label(),
			Turn:      ev.Key.Turn,
			Text:      ev.Content.Text,
			Items:     ev.Content.Items,
			ArrivedAt: ev.ArrivedAt,
		})
	}
	return out
}
