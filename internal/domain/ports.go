package domain

import (
	"context"
	"time"
)

// DocumentStore is the durable substrate: named collections of documents with
// equality-filtered insert/find/update/count. UpdateOne applies to at most one
// matching document, atomically, and reports how many matched (0 or 1).
// Find returns documents in insertion order.
type DocumentStore interface {
	Insert(ctx context.Context, collection string, doc Document) (string, error)
	FindOne(ctx context.Context, collection string, filter Filter) (Document, error)
	Find(ctx context.Context, collection string, filter Filter) ([]Document, error)
	UpdateOne(ctx context.Context, collection string, filter Filter, updates Document) (int, error)
	Count(ctx context.Context, collection string, filter Filter) (int, error)
}

// SessionStore keeps the ephemeral per-participant state. GetSession returns
// ErrInvalidSession for unknown or expired tokens.
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	UpdateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, token SessionToken) (*Session, error)
}

// Prompt is what a generative backend receives.
type Prompt struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// Backend is the opaque generative service (chat/completion).
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// Classifier maps a client message to a sentiment label. Pure and synchronous.
type Classifier func(text string) string

// Clock lets services take their notion of now from tests.
type Clock func() time.Time
