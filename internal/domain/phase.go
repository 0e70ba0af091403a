package domain

// Phase is the position of a session in the study flow.
type Phase string

const (
	PhasePreSurvey    Phase = "PRE_SURVEY"
	PhaseRound1Chat   Phase = "ROUND1_CHAT"
	PhaseRound1Survey Phase = "ROUND1_SURVEY"
	PhaseRound2Chat   Phase = "ROUND2_CHAT"
	PhaseRound2Survey Phase = "ROUND2_SURVEY"
	PhaseFinalSurvey  Phase = "FINAL_SURVEY"
	PhaseComplete     Phase = "COMPLETE"
	PhaseScreenedOut  Phase = "SCREENED_OUT"
)

// Terminal reports whether no further transition can leave the phase.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseScreenedOut
}

// Chatting reports whether the phase accepts conversation writes.
func (p Phase) Chatting() bool {
	return p == PhaseRound1Chat || p == PhaseRound2Chat
}

// ChatPhase returns the chat phase of a round.
func ChatPhase(round int) Phase {
	if round == 2 {
		return PhaseRound2Chat
	}
	return PhaseRound1Chat
}

// SurveyPhase returns the end-of-round survey phase of a round.
func SurveyPhase(round int) Phase {
	if round == 2 {
		return PhaseRound2Survey
	}
	return PhaseRound1Survey
}
