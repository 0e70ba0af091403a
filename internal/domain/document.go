package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Collection names of the durable store.
const (
	CollParticipants = "participants"
	CollPreTask      = "chat_pre_task"
	CollClientInfo   = "chat_client_info"
	CollChatHistory  = "chat_history"
	CollSupport      = "chat_in_task"
	CollRoundSurveys = "round_surveys"
	CollFinalSurveys = "final_surveys"
	CollPostTask     = "chat_post_task"
)

// Document is a schemaless record. Values are restricted to what JSON can
// carry: string, float64, bool, nil, []any and map[string]any.
type Document map[string]any

// Filter is a conjunction of exact-equality matches on top-level fields.
// A missing field compares equal to nil.
type Filter map[string]any

// ToDocument converts a tagged struct (or map) into a normalized Document.
func ToDocument(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// Decode fills v (a pointer) from the document.
func (d Document) Decode(v any) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return json.Unmarshal(raw, v)
}

// Normalize returns a deep copy with every value in its JSON form, so that
// int 3 and float64 3 compare equal and times become RFC 3339 strings.
func (d Document) Normalize() (Document, error) {
	if d == nil {
		return Document{}, nil
	}
	return ToDocument(map[string]any(d))
}

// Normalize returns the filter with values in their JSON form.
func (f Filter) Normalize() (Filter, error) {
	doc, err := ToDocument(map[string]any(f))
	if err != nil {
		return nil, err
	}
	return Filter(doc), nil
}

// Matches reports whether a normalized document satisfies a normalized filter.
func (f Filter) Matches(doc Document) bool {
	for k, want := range f {
		got, ok := doc[k]
		if !ok {
			got = nil
		}
		if !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}
