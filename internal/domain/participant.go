package domain

import "time"

// Participant is the durable record in CollParticipants. It is created at
// scenario entry and never deleted.
type Participant struct {
	SessionToken SessionToken `json:"session_id"`
	Scenario     string       `json:"scenario"`

	// Treatment is nil until assignment and is never reassigned.
	Treatment        *Treatment `json:"treatment_group"`
	Stratum          Stratum    `json:"emotion_regulation_type,omitempty"`
	SuppressionScore *float64   `json:"suppression_score,omitempty"`
	ScreenedOut      bool       `json:"screened_out"`

	StartTime      time.Time  `json:"start_time"`
	AssignmentTime *time.Time `json:"assignment_time,omitempty"`
	ScreenOutTime  *time.Time `json:"screen_out_time,omitempty"`

	Round1Completed      bool       `json:"round1_completed"`
	Round1CompletionTime *time.Time `json:"round1_completion_time,omitempty"`
	Round2Completed      bool       `json:"round2_completed"`
	Round2CompletionTime *time.Time `json:"round2_completion_time,omitempty"`
	StudyCompleted       bool       `json:"study_completed"`
	CompletionTime       *time.Time `json:"completion_time,omitempty"`
}

// Participant field names used in filters and updates.
const (
	FieldSessionID   = "session_id"
	FieldClientID    = "client_id"
	FieldTreatment   = "treatment_group"
	FieldStratum     = "emotion_regulation_type"
	FieldScore       = "suppression_score"
	FieldScreenedOut = "screened_out"
	FieldTurn        = "turn_number"
	FieldSupportType = "support_type"
)
