package domain

import "time"

// SessionToken is the opaque identifier handed to a participant at scenario entry.
type SessionToken string

// ClientID identifies one conversation thread (one simulated client) within a session.
type ClientID string

type Role string

const (
	RoleClient         Role = "client"
	RoleRepresentative Role = "representative"
)

// Treatment is the experimental arm a participant is randomized into.
type Treatment string

const (
	TreatmentControl     Treatment = "control"
	TreatmentInformation Treatment = "information"
	TreatmentEmotion     Treatment = "emotion"
	TreatmentBoth        Treatment = "both"
)

// Treatments lists every arm in a stable order.
var Treatments = []Treatment{
	TreatmentControl,
	TreatmentInformation,
	TreatmentEmotion,
	TreatmentBoth,
}

func (t Treatment) Valid() bool {
	switch t {
	case TreatmentControl, TreatmentInformation, TreatmentEmotion, TreatmentBoth:
		return true
	}
	return false
}

// Stratum is the emotion-regulation sub-population used to balance assignment.
type Stratum string

const (
	StratumSuppressor    Stratum = "Suppressor"
	StratumNonSuppressor Stratum = "NonSuppressor"
)

// Strata lists both strata in a stable order.
var Strata = []Stratum{StratumSuppressor, StratumNonSuppressor}

// SuppressorThreshold is inclusive: a score equal to it is a Suppressor.
const SuppressorThreshold = 4.5

// SuppressionScore is the arithmetic mean of the three 1-7 emotion-regulation answers.
func SuppressionScore(q1, q2, q3 float64) float64 {
	return (q1 + q2 + q3) / 3.0
}

// StratumFor maps a suppression score to its stratum.
func StratumFor(score float64) Stratum {
	if score >= SuppressorThreshold {
		return StratumSuppressor
	}
	return StratumNonSuppressor
}

// SupportFlags controls which support panels the chat UI shows.
type SupportFlags struct {
	Info bool `json:"info"`
	Emo  bool `json:"emo"`
}

// SupportFlagsFor derives panel visibility from the round and the assigned arm.
// Round 1 is the no-support baseline for every arm; any persisted client
// defaults are ignored.
func SupportFlagsFor(round int, t Treatment) SupportFlags {
	if round != 2 {
		return SupportFlags{}
	}
	switch t {
	case TreatmentInformation:
		return SupportFlags{Info: true}
	case TreatmentEmotion:
		return SupportFlags{Emo: true}
	case TreatmentBoth:
		return SupportFlags{Info: true, Emo: true}
	default:
		return SupportFlags{}
	}
}

// SupportType tags a support event in the ledger.
type SupportType string

const (
	SupportInfoCue    SupportType = "TYPE_INFO_CUE"
	SupportInfoGuide  SupportType = "TYPE_INFO_GUIDE"
	SupportEmoThought SupportType = "TYPE_EMO_THOUGHT"
	SupportEmoReframe SupportType = "TYPE_EMO_REFRAME"
	SupportEmoShoes   SupportType = "TYPE_EMO_SHOES"
	SupportSentiment  SupportType = "TYPE_SENTIMENT"
)

var supportLabels = map[SupportType]string{
	SupportEmoThought: "You might be thinking",
	SupportEmoShoes:   "Put Yourself in the Client's Shoes",
	SupportEmoReframe: "Be Mindful of Your Emotions",
	SupportSentiment:  "Client's Sentiment",
	SupportInfoCue:    "Response Suggestions",
	SupportInfoGuide:  "Guidance for Complaint Resolution",
}

// Label is the panel title shown to participants.
func (s SupportType) Label() string {
	return supportLabels[s]
}

// SupportLabels returns a copy of the type → panel title table.
func SupportLabels() map[SupportType]string {
	out := make(map[SupportType]string, len(supportLabels))
	for k, v := range supportLabels {
		out[k] = v
	}
	return out
}

func ParseSupportType(s string) (SupportType, bool) {
	t := SupportType(s)
	_, ok := supportLabels[t]
	return t, ok
}

// Capability names one kind of generative request.
type Capability string

const (
	CapOpeningLine         Capability = "client-opening-line"
	CapRepresentativeReply Capability = "representative-reply"
	CapInfoCue             Capability = "info-cue"
	CapInfoGuide           Capability = "info-guide"
	CapEmotionReframe      Capability = "emotion-reframe"
	CapEmotionShoes        Capability = "emotion-shoes"
	CapSentiment           Capability = "sentiment-classify"
)

// Capabilities lists every capability in a stable order.
var Capabilities = []Capability{
	CapOpeningLine,
	CapRepresentativeReply,
	CapInfoCue,
	CapInfoGuide,
	CapEmotionReframe,
	CapEmotionShoes,
	CapSentiment,
}

type Timestamp = time.Time
