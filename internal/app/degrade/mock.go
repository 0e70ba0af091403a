package degrade

import (
	"strings"

	"github.com/PabloGalante/csr-lab/internal/app/gateway"
)

// FinishMarker tells the chat UI the simulated client is done.
const FinishMarker = "FINISH:999"

const defaultComplaint = "I am extremely upset with your service! This is completely unacceptable and I demand this be fixed immediately!"

var complaints = map[string]map[string]string{
	"hotel": {
		"reservation":         "I'm absolutely furious! I made a reservation at your hotel three months ago for my anniversary, and now you're telling me you have no record of it? This is completely unacceptable! I need this sorted out RIGHT NOW!",
		"Pricing and Charges": "What kind of operation are you running?! I just checked my credit card statement and you charged me TWICE for my room! And there's an extra $300 charge I never authorized! This is ridiculous!",
		"Service Quality":     "I can't believe the terrible service at your hotel! The room was dirty, nobody answered when I called the front desk, and housekeeping never showed up. For the price I'm paying, this is absolutely unacceptable!",
	},
	"airlines": {
		"reservation":         "This is unbelievable! I booked my flight two weeks ago and now you're saying my reservation doesn't exist?! I have a confirmation number and everything! I need to get on a flight TODAY!",
		"Pricing and Charges": "I am so angry right now! You charged my card three times for the same ticket! My bank account is overdrawn because of your incompetence! I want a full refund immediately!",
		"Service Quality":     "Your airline is the worst! My flight was delayed for 6 hours with no explanation, my luggage is lost, and nobody can help me! I missed my important meeting because of you!",
	},
}

// resolutionWords mark a representative message that offers a way out.
var resolutionWords = []string{"resolve", "solution", "help", "fix", "refund", "compensate"}

const (
	acceptedReply   = "Fine, I suppose that's acceptable. I'll wait to hear back from you. " + FinishMarker
	tooEarlyReply   = "Well, that's a start, but I'm still very upset about this whole situation! What else are you going to do about it?"
	giveUpReply     = "Alright, I appreciate you trying to help. I'll give this one more chance. " + FinishMarker
	resolveAtTurn   = 3
	forceFinishTurn = 5
)

var frustratedReplies = []string{
	"That's not good enough! I need a better solution than that!",
	"I'm still not satisfied with this answer. What else can you do for me?",
	"This is taking way too long. Can't you just fix this right now?",
	"I don't understand why this is so complicated. Just make it right!",
	"I've been a loyal customer for years and this is how you treat me?",
}

var infoCues = map[string][]string{
	"hotel": {
		"Apologize for the inconvenience",
		"Offer to check the reservation system immediately",
		"Suggest alternative solutions (different room, refund, compensation)",
	},
	"airlines": {
		"Express understanding of the urgency",
		"Check booking system for the confirmation",
		"Explore rebooking options on next available flight",
	},
	"": {
		"Acknowledge the issue",
		"Gather necessary details",
		"Explain steps to resolve",
	},
}

var infoGuides = map[string][]string{
	"hotel": {
		"Check reservation system for booking confirmation",
		"Verify payment processing status",
		"Review room availability for alternative options",
		"Prepare compensation offer per hotel policy",
	},
	"airlines": {
		"Check flight booking system for confirmation number",
		"Review seat availability on alternative flights",
		"Check baggage tracking system if applicable",
		"Prepare rebooking options and compensation per airline policy",
	},
	"": {
		"Verify customer account and transaction history",
		"Check system logs for any processing errors",
		"Review company policy for this type of issue",
		"Prepare resolution options and next steps",
	},
}

const (
	mockThought   = "The client seems very frustrated and upset about their situation. They're expressing legitimate concerns and want to be heard."
	mockReframe   = "Try to acknowledge their feelings first: 'I understand how frustrating this must be for you.' Show empathy before moving to solutions."
	mockShoes     = "Imagine being in their position - they've likely had to spend time and energy dealing with this issue, and now they feel let down. Try to validate their experience before offering solutions."
	mockSentiment = "Neutral"
)

// Mock returns the canned content for a request. It is a pure function of
// the request's domain, category, turn count and capability.
func Mock(req gateway.Request) gateway.Content {
	switch r := req.(type) {
	case gateway.OpeningLine:
		return gateway.Content{Text: openingFor(r.Client.Domain, r.Client.Category)}
	case gateway.RepresentativeReply:
		return gateway.Content{Text: replyFor(len(r.History)/2, r.RepText)}
	case gateway.InfoCue:
		return gateway.Content{Suggestions: listFor(infoCues, r.Domain)}
	case gateway.InfoGuide:
		return gateway.Content{Suggestions: listFor(infoGuides, r.Domain)}
	case gateway.EmotionReframe:
		return gateway.Content{Thought: mockThought, Reframe: mockReframe}
	case gateway.EmotionShoes:
		return gateway.Content{Text: mockShoes}
	case gateway.Sentiment:
		return gateway.Content{Label: mockSentiment}
	default:
		return gateway.Content{Text: defaultComplaint}
	}
}

func openingFor(domainName, category string) string {
	byCategory, ok := complaints[strings.ToLower(domainName)]
	if !ok {
		byCategory = complaints["hotel"]
	}
	if text, ok := byCategory[category]; ok {
		return text
	}
	return defaultComplaint
}

// replyFor escalates until the representative offers a resolution late
// enough in the conversation, or the conversation runs long.
func replyFor(turnCount int, repText string) string {
	lower := strings.ToLower(repText)
	for _, w := range resolutionWords {
		if strings.Contains(lower, w) {
			if turnCount >= resolveAtTurn {
				return acceptedReply
			}
			return tooEarlyReply
		}
	}
	if turnCount >= forceFinishTurn {
		return giveUpReply
	}
	return frustratedReplies[turnCount%len(frustratedReplies)]
}

func listFor(table map[string][]string, domainName string) []string {
	items, ok := table[strings.ToLower(domainName)]
	if !ok {
		items = table[""]
	}
	return append([]string(nil), items...)
}
