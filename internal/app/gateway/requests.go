package gateway

import "github.com/PabloGalante/csr-lab/internal/domain"

// Request is one capability call. The set is closed: only the types in this
// file implement it.
type Request interface {
	Capability() domain.Capability
	isRequest()
}

// OpeningLine asks for a client's first complaint.
type OpeningLine struct {
	Client domain.ClientProfile
}

// RepresentativeReply asks for the client's answer to the representative.
type RepresentativeReply struct {
	Client  domain.ClientProfile
	History []domain.Message
	RepText string
}

// InfoCue asks for response suggestions for the representative.
type InfoCue struct {
	Domain     string
	History    []domain.Message
	ClientText string
}

// InfoGuide asks for complaint-resolution steps.
type InfoGuide struct {
	Domain     string
	History    []domain.Message
	ClientText string
}

// EmotionReframe asks for the representative's likely thought and a reframe of it.
type EmotionReframe struct {
	History    []domain.Message
	ClientText string
}

// EmotionShoes asks for the client's perspective.
type EmotionShoes struct {
	History    []domain.Message
	ClientText string
}

// Sentiment classifies a client message.
type Sentiment struct {
	ClientText string
}

func (OpeningLine) Capability() domain.Capability         { return domain.CapOpeningLine }
func (RepresentativeReply) Capability() domain.Capability { return domain.CapRepresentativeReply }
func (InfoCue) Capability() domain.Capability             { return domain.CapInfoCue }
func (InfoGuide) Capability() domain.Capability           { return domain.CapInfoGuide }
func (EmotionReframe) Capability() domain.Capability      { return domain.CapEmotionReframe }
func (EmotionShoes) Capability() domain.Capability        { return domain.CapEmotionShoes }
func (Sentiment) Capability() domain.Capability           { return domain.CapSentiment }

func (OpeningLine) isRequest()         {}
func (RepresentativeReply) isRequest() {}
func (InfoCue) isRequest()             {}
func (InfoGuide) isRequest()           {}
func (EmotionReframe) isRequest()      {}
func (EmotionShoes) isRequest()        {}
func (Sentiment) isRequest()           {}

// Content is the structured output of a capability. Which fields are set
// depends on the capability:
//
//	client-opening-line, representative-reply, emotion-shoes: Text
//	info-cue, info-guide: Suggestions
//	emotion-reframe: Thought, Reframe
//	sentiment-classify: Label
type Content struct {
	Text        string   `json:"text,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Thought     string   `json:"thought,omitempty"`
	Reframe     string   `json:"reframe,omitempty"`
	Label       string   `json:"label,omitempty"`
}
