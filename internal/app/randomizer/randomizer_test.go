package randomizer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/csr-lab/internal/adapters/storage/memory"
	"github.com/PabloGalante/csr-lab/internal/domain"
)

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newParticipant(t *testing.T, store domain.DocumentStore, token string) {
	t.Helper()
	doc, err := domain.ToDocument(domain.Participant{
		SessionToken: domain.SessionToken(token),
		Scenario:     "hotel",
		StartTime:    fixedNow,
	})
	require.NoError(t, err)
	_, err = store.Insert(context.Background(), domain.CollParticipants, doc)
	require.NoError(t, err)
}

// fill seeds n already-assigned participants into one cell.
func fill(t *testing.T, store domain.DocumentStore, tr domain.Treatment, s domain.Stratum, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		treatment := tr
		doc, err := domain.ToDocument(domain.Participant{
			SessionToken: domain.SessionToken(fmt.Sprintf("seed-%s-%s-%d", tr, s, i)),
			Treatment:    &treatment,
			Stratum:      s,
		})
		require.NoError(t, err)
		_, err = store.Insert(context.Background(), domain.CollParticipants, doc)
		require.NoError(t, err)
	}
}

func participant(t *testing.T, store domain.DocumentStore, token string) domain.Participant {
	t.Helper()
	doc, err := store.FindOne(context.Background(), domain.CollParticipants, domain.Filter{domain.FieldSessionID: token})
	require.NoError(t, err)
	var p domain.Participant
	require.NoError(t, doc.Decode(&p))
	return p
}

func TestAssignRecordsTreatment(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	newParticipant(t, store, "p1")

	r := New(store, 30, WithClock(clock), WithIntn(func(int) int { return 2 }))

	a, err := r.Assign(ctx, "p1", domain.SuppressionScore(5, 5, 4))
	require.NoError(t, err)
	assert.Equal(t, domain.TreatmentEmotion, a.Treatment)
	assert.Equal(t, domain.StratumSuppressor, a.Stratum)
	assert.False(t, a.ScreenedOut)

	p := participant(t, store, "p1")
	require.NotNil(t, p.Treatment)
	assert.Equal(t, domain.TreatmentEmotion, *p.Treatment)
	assert.Equal(t, domain.StratumSuppressor, p.Stratum)
	require.NotNil(t, p.SuppressionScore)
	assert.InDelta(t, 14.0/3.0, *p.SuppressionScore, 1e-12)
	require.NotNil(t, p.AssignmentTime)
	assert.True(t, p.AssignmentTime.Equal(fixedNow))
}

func TestAssignNeverReassigns(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	newParticipant(t, store, "p1")

	pick := 0
	r := New(store, 30, WithIntn(func(int) int { return pick }))

	first, err := r.Assign(ctx, "p1", 6)
	require.NoError(t, err)

	pick = 3
	second, err := r.Assign(ctx, "p1", 6)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	counts, err := r.Counts(ctx, domain.StratumSuppressor)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[first.Treatment])
}

func TestAssignUnknownParticipant(t *testing.T) {
	r := New(memory.NewDocumentStore(), 30)
	_, err := r.Assign(context.Background(), "ghost", 4)
	assert.ErrorIs(t, err, domain.ErrInvalidSession)
}

func TestScreenOutWhenEveryArmIsFull(t *testing.T) {
	for _, quota := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("quota=%d", quota), func(t *testing.T) {
			ctx := context.Background()
			store := memory.NewDocumentStore()
			for _, tr := range domain.Treatments {
				fill(t, store, tr, domain.StratumNonSuppressor, quota)
			}

			r := New(store, quota, WithClock(clock))

			for i := 0; i < 3; i++ {
				token := fmt.Sprintf("late-%d", i)
				newParticipant(t, store, token)

				a, err := r.Assign(ctx, domain.SessionToken(token), 3)
				require.NoError(t, err)
				assert.True(t, a.ScreenedOut)
				assert.Empty(t, a.Treatment)

				p := participant(t, store, token)
				assert.True(t, p.ScreenedOut)
				assert.Nil(t, p.Treatment)
				assert.Equal(t, domain.StratumNonSuppressor, p.Stratum)
				require.NotNil(t, p.ScreenOutTime)
				assert.Equal(t, "hotel", p.Scenario, "provisional record is kept")
			}

			// The other stratum is unaffected.
			newParticipant(t, store, "other")
			a, err := r.Assign(ctx, "other", 7)
			require.NoError(t, err)
			assert.False(t, a.ScreenedOut)
		})
	}
}

func TestFullArmIsNeverChosen(t *testing.T) {
	// Suppressor cells at 29/30 except emotion at 30/30.
	for pick := 0; pick < 3; pick++ {
		ctx := context.Background()
		store := memory.NewDocumentStore()
		for _, tr := range domain.Treatments {
			n := 29
			if tr == domain.TreatmentEmotion {
				n = 30
			}
			fill(t, store, tr, domain.StratumSuppressor, n)
		}
		newParticipant(t, store, "p")

		var offered int
		r := New(store, 30, WithIntn(func(n int) int {
			offered = n
			return pick
		}))

		a, err := r.Assign(ctx, "p", domain.SuppressionScore(5, 4, 4.5))
		require.NoError(t, err)
		assert.Equal(t, 3, offered)
		assert.NotEqual(t, domain.TreatmentEmotion, a.Treatment)
		assert.Contains(t, []domain.Treatment{domain.TreatmentControl, domain.TreatmentInformation, domain.TreatmentBoth}, a.Treatment)
	}
}

func TestScreenedOutParticipantsDoNotCount(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	fill(t, store, domain.TreatmentControl, domain.StratumSuppressor, 1)

	_, err := store.UpdateOne(ctx, domain.CollParticipants,
		domain.Filter{domain.FieldTreatment: "control"},
		domain.Document{domain.FieldScreenedOut: true})
	require.NoError(t, err)

	r := New(store, 1)
	counts, err := r.Counts(ctx, domain.StratumSuppressor)
	require.NoError(t, err)
	assert.Equal(t, 0, counts[domain.TreatmentControl])
}

func TestConcurrentAssignmentRespectsQuota(t *testing.T) {
	const (
		quota        = 3
		participants = 40
	)

	ctx := context.Background()
	store := memory.NewDocumentStore()
	for i := 0; i < participants; i++ {
		newParticipant(t, store, fmt.Sprintf("p%d", i))
	}

	r := New(store, quota)

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		screenedOut int
	)
	for i := 0; i < participants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := r.Assign(ctx, domain.SessionToken(fmt.Sprintf("p%d", i)), 5)
			assert.NoError(t, err)
			if a.ScreenedOut {
				mu.Lock()
				screenedOut++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	counts, err := r.Counts(ctx, domain.StratumSuppressor)
	require.NoError(t, err)
	for _, tr := range domain.Treatments {
		assert.Equal(t, quota, counts[tr], "arm %s", tr)
	}
	assert.Equal(t, participants-quota*len(domain.Treatments), screenedOut)
}
