// Package sentiment is the rule-based classifier behind the
// "Client's Sentiment" panel. Classify is pure and safe for concurrent use.
package sentiment

import (
	"strings"
	"unicode"
)

const (
	VeryNegative = "Very Negative"
	Negative     = "Negative"
	Neutral      = "Neutral"
	Positive     = "Positive"
	VeryPositive = "Very Positive"
)

// Labels lists every label, most negative first.
var Labels = []string{VeryNegative, Negative, Neutral, Positive, VeryPositive}

var negativeWords = map[string]int{
	"angry": 2, "furious": 3, "outraged": 3, "livid": 3, "upset": 2, "annoyed": 1,
	"frustrated": 2, "frustrating": 2, "disappointed": 2, "disappointing": 2,
	"terrible": 2, "horrible": 2, "awful": 2, "worst": 3, "ridiculous": 2,
	"unacceptable": 3, "unbelievable": 1, "incompetence": 3, "incompetent": 3,
	"useless": 2, "hate": 3, "never": 1, "lost": 1, "dirty": 1, "delayed": 1,
	"rude": 2, "wrong": 1, "bad": 1, "poor": 1, "demand": 1, "scam": 3,
	"overcharged": 2, "refund": 1, "complaint": 1, "waiting": 1, "unhappy": 2,
	"not": 1, "no": 1, "can't": 1, "won't": 1, "don't": 1,
}

var positiveWords = map[string]int{
	"thanks": 2, "thank": 2, "appreciate": 2, "great": 2, "good": 1,
	"fine": 1, "okay": 1, "ok": 1, "acceptable": 1, "happy": 2, "glad": 2,
	"helpful": 2, "perfect": 3, "excellent": 3, "wonderful": 3, "pleased": 2,
	"understand": 1, "resolved": 2, "satisfied": 2, "love": 3, "kind": 1,
}

// Classify maps a client message to one of Labels.
func Classify(text string) string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	score := 0
	shouting := 0
	for _, w := range words {
		lower := strings.ToLower(w)
		score -= negativeWords[lower]
		score += positiveWords[lower]
		if len(w) > 2 && strings.ToUpper(w) == w {
			shouting++
		}
	}

	// Exclamations and shouting amplify whatever the words say.
	intensity := strings.Count(text, "!") + shouting
	switch {
	case score < 0:
		score -= intensity
	case score > 0 && intensity > 0:
		score++
	}

	switch {
	case score <= -5:
		return VeryNegative
	case score < 0:
		return Negative
	case score == 0:
		return Neutral
	case score < 4:
		return Positive
	default:
		return VeryPositive
	}
}
