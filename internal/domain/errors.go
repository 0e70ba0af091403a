package domain

import "errors"

var (
	// ErrInvalidSession: unknown or expired session token. No state was mutated.
	ErrInvalidSession = errors.New("invalid session or session expired")

	// ErrQueueExhausted: a round cannot advance because no client is left.
	ErrQueueExhausted = errors.New("no more clients in queue")

	// ErrFeedbackNotFound: no support event matched (session, client, turn, type).
	ErrFeedbackNotFound = errors.New("no existing record found to update")

	// ErrInvalidTransition: the request is not allowed in the session's current phase.
	ErrInvalidTransition = errors.New("invalid transition for current phase")

	// ErrConversationClosed: the thread's round is over; no more chat writes.
	ErrConversationClosed = errors.New("conversation closed")

	ErrUnknownClient = errors.New("unknown client")
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
)
