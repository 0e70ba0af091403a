// Package storetest holds the behavioural contract every
// domain.DocumentStore implementation must satisfy.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/csr-lab/internal/domain"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) domain.DocumentStore

// Run executes the full contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("insert and find one", func(t *testing.T) {
		testInsertFindOne(t, newStore(t))
	})
	t.Run("find preserves insertion order", func(t *testing.T) {
		testFindOrder(t, newStore(t))
	})
	t.Run("numeric and bool equality", func(t *testing.T) {
		testTypedEquality(t, newStore(t))
	})
	t.Run("missing field equals nil", func(t *testing.T) {
		testMissingField(t, newStore(t))
	})
	t.Run("update one touches a single match", func(t *testing.T) {
		testUpdateOne(t, newStore(t))
	})
	t.Run("update with no match is a no-op", func(t *testing.T) {
		testUpdateNoMatch(t, newStore(t))
	})
	t.Run("count", func(t *testing.T) {
		testCount(t, newStore(t))
	})
	t.Run("concurrent inserts", func(t *testing.T) {
		testConcurrentInserts(t, newStore(t))
	})
}

func testInsertFindOne(t *testing.T, s domain.DocumentStore) {
	ctx := context.Background()

	id, err := s.Insert(ctx, "participants", domain.Document{
		"session_id": "s-1",
		"scenario":   "hotel",
		"start_time": time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	doc, err := s.FindOne(ctx, "participants", domain.Filter{"session_id": "s-1"})
	require.NoError(t, err)
	assert.Equal(t, "hotel", doc["scenario"])
	assert.Equal(t, "2024-05-01T10:00:00Z", doc["start_time"])

	_, err = s.FindOne(ctx, "participants", domain.Filter{"session_id": "nope"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.FindOne(ctx, "other", domain.Filter{"session_id": "s-1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testFindOrder(t *testing.T, s domain.DocumentStore) {
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := s.Insert(ctx, "chat_history", domain.Document{
			"session_id":  "s-1",
			"client_id":   "c-1",
			"turn_number": i,
		})
		require.NoError(t, err)
	}
	_, err := s.Insert(ctx, "chat_history", domain.Document{"session_id": "s-2", "client_id": "c-1", "turn_number": 9})
	require.NoError(t, err)

	docs, err := s.Find(ctx, "chat_history", domain.Filter{"session_id": "s-1", "client_id": "c-1"})
	require.NoError(t, err)
	require.Len(t, docs, 5)
	for i, d := range docs {
		assert.Equal(t, float64(i+1), d["turn_number"])
	}

	none, err := s.Find(ctx, "chat_history", domain.Filter{"session_id": "s-3"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testTypedEquality(t *testing.T, s domain.DocumentStore) {
	ctx := context.Background()

	_, err := s.Insert(ctx, "chat_in_task", domain.Document{"turn_number": 2, "done": true, "support_type": "TYPE_INFO_CUE"})
	require.NoError(t, err)

	n, err := s.Count(ctx, "chat_in_task", domain.Filter{"turn_number": 2.0})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Count(ctx, "chat_in_task", domain.Filter{"turn_number": int64(2), "done": true})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = s.Count(ctx, "chat_in_task", domain.Filter{"done": false})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = s.Count(ctx, "chat_in_task", domain.Filter{"turn_number": "2"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func testMissingField(t *testing.T, s domain.DocumentStore) {
	ctx := context.Background()

	_, err := s.Insert(ctx, "participants", domain.Document{"session_id": "a", "treatment_group": nil})
	require.NoError(t, err)
	_, err = s.Insert(ctx, "participants", domain.Document{"session_id": "b"})
	require.NoError(t, err)
	_, err = s.Insert(ctx, "participants", domain.Document{"session_id": "c", "treatment_group": "control"})
	require.NoError(t, err)

	n, err := s.Count(ctx, "participants", domain.Filter{"treatment_group": nil})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func testUpdateOne(t *testing.T, s domain.DocumentStore) {
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := s.Insert(ctx, "chat_in_task", domain.Document{"session_id": "s-1", "turn_number": 1, "support_type": "TYPE_SENTIMENT"})
		require.NoError(t, err)
	}

	matched, err := s.UpdateOne(ctx, "chat_in_task",
		domain.Filter{"session_id": "s-1", "turn_number": 1, "support_type": "TYPE_SENTIMENT"},
		domain.Document{"user_feedback": -3},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, matched)

	n, err := s.Count(ctx, "chat_in_task", domain.Filter{"user_feedback": -3})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "exactly one document must be updated")

	docs, err := s.Find(ctx, "chat_in_task", domain.Filter{"session_id": "s-1"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, float64(-3), docs[0]["user_feedback"], "first match in insertion order is updated")
	assert.Equal(t, "TYPE_SENTIMENT", docs[0]["support_type"], "untouched fields survive")
}

func testUpdateNoMatch(t *testing.T, s domain.DocumentStore) {
	ctx := context.Background()

	matched, err := s.UpdateOne(ctx, "chat_in_task", domain.Filter{"session_id": "ghost"}, domain.Document{"user_feedback": 1})
	require.NoError(t, err)
	assert.Equal(t, 0, matched)

	n, err := s.Count(ctx, "chat_in_task", domain.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 0, n, "a failed update must not create a document")
}

func testCount(t *testing.T, s domain.DocumentStore) {
	ctx := context.Background()

	cells := []struct{ treatment, stratum string }{
		{"control", "Suppressor"},
		{"control", "Suppressor"},
		{"emotion", "Suppressor"},
		{"control", "NonSuppressor"},
	}
	for _, c := range cells {
		_, err := s.Insert(ctx, "participants", domain.Document{
			"treatment_group":         c.treatment,
			"emotion_regulation_type": c.stratum,
			"screened_out":            false,
		})
		require.NoError(t, err)
	}

	n, err := s.Count(ctx, "participants", domain.Filter{"treatment_group": "control", "emotion_regulation_type": "Suppressor", "screened_out": false})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := s.Count(ctx, "participants", nil)
	require.NoError(t, err)
	assert.Equal(t, 4, all)
}

func testConcurrentInserts(t *testing.T, s domain.DocumentStore) {
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Insert(ctx, "chat_history", domain.Document{"session_id": "s-1", "i": i})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	n, err := s.Count(ctx, "chat_history", domain.Filter{"session_id": "s-1"})
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}
