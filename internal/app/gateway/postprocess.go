package gateway

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// leakMarkers end a free-text answer: anything after them is the backend
// writing the next speaker's turn.
var leakMarkers = []string{"Category:", "Representative:", "Customer:", "\n\n"}

var speakerLabels = []string{"Client:", "Customer:"}

// Truncate cuts s at the earliest leak marker.
func Truncate(s string) string {
	cut := len(s)
	for _, m := range leakMarkers {
		if i := strings.Index(s, m); i >= 0 && i < cut {
			cut = i
		}
	}
	return s[:cut]
}

// cleanText strips a leading speaker label, then truncates.
func cleanText(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	for _, l := range speakerLabels {
		if strings.HasPrefix(s, l) {
			s = strings.TrimSpace(strings.TrimPrefix(s, l))
			break
		}
	}

	s = strings.TrimSpace(Truncate(s))
	if s == "" {
		return "", ErrMalformedOutput
	}
	return s, nil
}

var (
	objectBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	objectPattern      = regexp.MustCompile(`(?s)\{.*\}`)
	arrayBlockPattern  = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\[.*\\])\\s*```")
	arrayPattern       = regexp.MustCompile(`(?s)\[.*\]`)
	trailingComma      = regexp.MustCompile(`,\s*([}\]])`)
	bulletPrefix       = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)
)

func extract(content string, block, bare *regexp.Regexp) string {
	if m := block.FindStringSubmatch(content); len(m) > 1 {
		return trailingComma.ReplaceAllString(m[1], "$1")
	}
	if m := bare.FindString(content); m != "" {
		return trailingComma.ReplaceAllString(m, "$1")
	}
	return ""
}

// parseList reads a JSON array of strings, accepting a plain bulleted list
// when the backend ignored the format.
func parseList(raw string) ([]string, error) {
	var items []string
	if js := extract(raw, arrayBlockPattern, arrayPattern); js != "" {
		if err := json.Unmarshal([]byte(js), &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
		}
	} else {
		for _, line := range strings.Split(raw, "\n") {
			items = append(items, bulletPrefix.ReplaceAllString(line, ""))
		}
	}

	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		return nil, ErrMalformedOutput
	}
	return out, nil
}

type reframeOutput struct {
	Thought string `json:"thought"`
	Reframe string `json:"reframe"`
}

func parseReframe(raw string) (reframeOutput, error) {
	js := extract(raw, objectBlockPattern, objectPattern)
	if js == "" {
		return reframeOutput{}, ErrMalformedOutput
	}

	var out reframeOutput
	if err := json.Unmarshal([]byte(js), &out); err != nil {
		return reframeOutput{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	out.Thought = strings.TrimSpace(out.Thought)
	out.Reframe = strings.TrimSpace(out.Reframe)
	if out.Thought == "" || out.Reframe == "" {
		return reframeOutput{}, ErrMalformedOutput
	}
	return out, nil
}
