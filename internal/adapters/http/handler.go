package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/PabloGalante/csr-lab/internal/app/study"
	"github.com/PabloGalante/csr-lab/internal/app/survey"
	"github.com/PabloGalante/csr-lab/internal/domain"
	"github.com/PabloGalante/csr-lab/internal/observability"
)

const maxBodyBytes = 1 << 20

// Options configures the transport. URLs are where finished participants go.
type Options struct {
	ScreenOutURL  string
	CompletionURL string
	Metrics       *observability.Metrics
}

type Server struct {
	svc  *study.Service
	opts Options
}

func NewServer(svc *study.Service, opts Options) http.Handler {
	s := &Server{svc: svc, opts: opts}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", opts.Metrics.Handler())

	mux.HandleFunc("POST /scenarios/{scenario}", s.handleStartScenario)

	mux.HandleFunc("GET /sessions/{token}", s.handleGetSession)
	mux.HandleFunc("POST /sessions/{token}/pre-survey", s.handlePreSurvey)
	mux.HandleFunc("POST /sessions/{token}/conversation", s.handleOpenConversation)
	mux.HandleFunc("POST /sessions/{token}/conversation/{client}/messages", s.handleSendMessage)
	mux.HandleFunc("POST /sessions/{token}/conversation/{client}/support", s.handleSupport)
	mux.HandleFunc("POST /sessions/{token}/conversation/{client}/feedback", s.handleFeedback)
	mux.HandleFunc("POST /sessions/{token}/complete-chat", s.handleCompleteChat)
	mux.HandleFunc("POST /sessions/{token}/round-survey/{round}", s.handleRoundSurvey)
	mux.HandleFunc("POST /sessions/{token}/final-survey", s.handleFinalSurvey)
	mux.HandleFunc("POST /sessions/{token}/post-task-survey", s.handlePostTaskSurvey)

	mux.HandleFunc("GET /history/{token}", s.handleClients)
	mux.HandleFunc("GET /history/{token}/{client}", s.handleHistory)

	return chainMiddlewares(mux, withCORS, withLogging(opts.Metrics), withRequestID)
}

func token(r *http.Request) domain.SessionToken {
	return domain.SessionToken(r.PathValue("token"))
}

func clientID(r *http.Request) domain.ClientID {
	return domain.ClientID(r.PathValue("client"))
}

// nextURL is where the participant's browser goes from phase.
func (s *Server) nextURL(t domain.SessionToken, phase domain.Phase) string {
	esc := url.PathEscape(string(t))
	switch phase {
	case domain.PhasePreSurvey:
		return "/pre-task-survey/" + esc + "/"
	case domain.PhaseRound1Chat, domain.PhaseRound2Chat:
		return "/index/" + esc
	case domain.PhaseRound1Survey, domain.PhaseRound2Survey:
		return "/round-survey/" + esc + "/"
	case domain.PhaseFinalSurvey:
		return "/final-survey/" + esc + "/"
	case domain.PhaseComplete:
		return s.opts.CompletionURL + "?session_id=" + url.QueryEscape(string(t))
	case domain.PhaseScreenedOut:
		return s.opts.ScreenOutURL
	default:
		return ""
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStartScenario(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.StartScenario(r.Context(), r.PathValue("scenario"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.toSessionResponse(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.GetSession(r.Context(), token(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toSessionResponse(sess))
}

func (s *Server) handlePreSurvey(w http.ResponseWriter, r *http.Request) {
	var answers survey.Answers
	if !decode(w, r, &answers) {
		return
	}

	out, err := s.svc.SubmitPreSurvey(r.Context(), token(r), answers)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, preSurveyResponse{
		Phase:       string(out.Phase),
		Treatment:   string(out.Treatment),
		Stratum:     string(out.Stratum),
		Score:       out.Score,
		ScreenedOut: out.ScreenedOut,
		NextURL:     s.nextURL(token(r), out.Phase),
	})
}

func (s *Server) handleOpenConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := s.svc.OpenConversation(r.Context(), token(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if conv.Resumed {
		status = http.StatusOK
	}
	writeJSON(w, status, toConversationResponse(conv))
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if !decode(w, r, &req) {
		return
	}

	reply, err := s.svc.SendMessage(r.Context(), token(r), clientID(r), req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, replyResponse{
		Reply:      reply.Text,
		Turn:       reply.Turn,
		Finished:   reply.Finished,
		Provenance: string(reply.Provenance),
	})
}

func (s *Server) handleSupport(w http.ResponseWriter, r *http.Request) {
	var req supportRequest
	if !decode(w, r, &req) {
		return
	}

	typ, ok := study.ResolveSupportType(req.Type)
	if !ok {
		writeError(w, r, fmt.Errorf("%w: unknown support type %q", domain.ErrInvalidInput, req.Type))
		return
	}

	out, err := s.svc.RequestSupport(r.Context(), token(r), clientID(r), typ, req.ClientText)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSupportResponse(out))
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if !decode(w, r, &req) {
		return
	}

	if err := s.svc.SubmitFeedback(r.Context(), token(r), clientID(r), req.Type, req.Rate, req.Turn); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleCompleteChat(w http.ResponseWriter, r *http.Request) {
	phase, err := s.svc.CompleteChat(r.Context(), token(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, phaseResponse{Phase: string(phase), NextURL: s.nextURL(token(r), phase)})
}

func (s *Server) handleRoundSurvey(w http.ResponseWriter, r *http.Request) {
	round, err := strconv.Atoi(r.PathValue("round"))
	if err != nil || round < 1 || round > study.Rounds {
		writeError(w, r, fmt.Errorf("%w: round must be 1 or 2", domain.ErrInvalidInput))
		return
	}

	var answers survey.Answers
	if !decode(w, r, &answers) {
		return
	}

	out, err := s.svc.SubmitRoundSurvey(r.Context(), token(r), round, answers)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := roundSurveyResponse{
		phaseResponse: phaseResponse{Phase: string(out.Phase), NextURL: s.nextURL(token(r), out.Phase)},
		Round:         out.Round,
	}
	if out.NextClient != nil {
		c := toClientResponse(*out.NextClient)
		resp.NextClient = &c
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFinalSurvey(w http.ResponseWriter, r *http.Request) {
	var answers survey.Answers
	if !decode(w, r, &answers) {
		return
	}

	phase, err := s.svc.SubmitFinalSurvey(r.Context(), token(r), answers)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, phaseResponse{Phase: string(phase), NextURL: s.nextURL(token(r), phase)})
}

func (s *Server) handlePostTaskSurvey(w http.ResponseWriter, r *http.Request) {
	var answers survey.Answers
	if !decode(w, r, &answers) {
		return
	}

	id, err := s.svc.SubmitPostTaskSurvey(r.Context(), token(r), answers)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "success", "id": id})
}

func (s *Server) handleClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.svc.Clients(r.Context(), token(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]historyClientResponse, 0, len(clients))
	for _, c := range clients {
		out = append(out, historyClientResponse{
			ClientID: string(c.ClientID),
			Name:     c.ClientName,
			Domain:   c.Domain,
			Category: c.Category,
			Round:    c.Round,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.svc.History(r.Context(), token(r), clientID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessagesResponse(msgs))
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid JSON body", domain.ErrInvalidInput))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP statuses. Anything unknown is a 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidSession):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrFeedbackNotFound), errors.Is(err, domain.ErrUnknownClient):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrConversationClosed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	log := observability.LoggerFromContext(r.Context())

	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed", "error", err, "status", status)
		if !study.IsStructural(err) {
			msg = "internal server error"
		}
	} else {
		log.Warn("request rejected", "error", err, "status", status)
	}

	writeJSON(w, status, errorResponse{Status: "error", Message: msg})
}
