package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/csr-lab/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/csr-lab/internal/adapters/storage/storetest"
	"github.com/PabloGalante/csr-lab/internal/domain"
)

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.Open(filepath.Join(t.TempDir(), "study.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.DocumentStore {
		return openStore(t)
	})
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "study.db")

	s, err := sqlite.Open(path)
	require.NoError(t, err)
	_, err = s.Insert(ctx, domain.CollParticipants, domain.Document{"session_id": "s-1"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := sqlite.Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	n, err := reopened.Count(ctx, domain.CollParticipants, domain.Filter{"session_id": "s-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStoreRejectsUnsafeFieldNames(t *testing.T) {
	s := openStore(t)

	_, err := s.Count(context.Background(), domain.CollParticipants, domain.Filter{"a') OR 1=1 --": "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
