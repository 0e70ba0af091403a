package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/csr-lab/internal/domain"
)

func TestSessionStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(0)

	sess := &domain.Session{Token: "tok", Round: 1, Phase: domain.PhasePreSurvey}
	require.NoError(t, s.CreateSession(ctx, sess))

	got, err := s.GetSession(ctx, "tok")
	require.NoError(t, err)
	got.Phase = domain.PhaseRound1Chat

	again, err := s.GetSession(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, domain.PhasePreSurvey, again.Phase, "mutations must not leak without UpdateSession")
	assert.NotNil(t, again.Threads)

	require.NoError(t, s.UpdateSession(ctx, got))
	again, err = s.GetSession(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseRound1Chat, again.Phase)
}

func TestSessionStoreUnknownToken(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(0)

	_, err := s.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrInvalidSession)

	err = s.UpdateSession(ctx, &domain.Session{Token: "missing"})
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
}

func TestSessionStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	s := NewSessionStore(30 * time.Minute)
	s.now = func() time.Time { return now }

	require.NoError(t, s.CreateSession(ctx, &domain.Session{Token: "tok"}))

	now = now.Add(29 * time.Minute)
	_, err := s.GetSession(ctx, "tok")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.GetSession(ctx, "tok")
	assert.ErrorIs(t, err, domain.ErrInvalidSession)

	assert.NoError(t, s.CreateSession(ctx, &domain.Session{Token: "tok"}), "an expired token can be reissued")
}
