package survey

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/csr-lab/internal/adapters/storage/memory"
	"github.com/PabloGalante/csr-lab/internal/domain"
)

func clock() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }

func TestNormalizePreTask(t *testing.T) {
	got := NormalizePreTask(Answers{
		"emotion_reg_q1": "5",
		"emotion_reg_q2": " 4 ",
		"age":            "29",
		"gender":         "female",
		"client_param":   "name=Anna+Z",
		"experience":     float64(3),
	})

	assert.Equal(t, Answers{
		"emotion_reg_q1": 5,
		"emotion_reg_q2": 4,
		"age":            29,
		"gender":         "female",
		"experience":     float64(3),
	}, got)
}

func TestEmotionAnswers(t *testing.T) {
	q1, q2, q3, err := EmotionAnswers(Answers{"emotion_reg_q1": 5, "emotion_reg_q2": float64(4), "emotion_reg_q3": "4.5"})
	require.NoError(t, err)
	assert.Equal(t, 4.5, domain.SuppressionScore(q1, q2, q3))

	q1, q2, q3, err = EmotionAnswers(Answers{})
	require.NoError(t, err)
	assert.Zero(t, q1+q2+q3)

	_, _, _, err = EmotionAnswers(Answers{"emotion_reg_q2": "often"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalizePostTaskReversesSupportItems(t *testing.T) {
	got, err := NormalizePostTask(Answers{
		"client_id":         "c-1",
		"support_helpful":   "3",
		"support_caring":    float64(-2),
		"overall_satisfied": "4",
	})
	require.NoError(t, err)

	assert.Equal(t, "c-1", got["client_id"])
	assert.Equal(t, -3, got["support_helpful"])
	assert.Equal(t, 2, got["support_caring"])
	assert.Equal(t, 4, got["overall_satisfied"])

	_, err = NormalizePostTask(Answers{"support_helpful": "very"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRecordRows(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	s := NewService(store, clock)

	_, err := s.RecordPreTask(ctx, "tok", Answers{"age": 30}, 4.5, domain.StratumSuppressor)
	require.NoError(t, err)
	_, err = s.RecordRound(ctx, "tok", 1, Answers{"workload": 3})
	require.NoError(t, err)
	_, err = s.RecordFinal(ctx, "tok", Answers{"comments": "none"})
	require.NoError(t, err)
	_, err = s.RecordPostTask(ctx, "tok", Answers{"client_id": "c", "support_helpful": 2})
	require.NoError(t, err)

	_, err = s.RecordPostTask(ctx, "tok", Answers{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	pre, err := store.FindOne(ctx, domain.CollPreTask, domain.Filter{domain.FieldSessionID: "tok"})
	require.NoError(t, err)
	assert.Equal(t, 4.5, pre[domain.FieldScore])
	assert.Equal(t, "Suppressor", pre[domain.FieldStratum])
	assert.Equal(t, "2024-05-01T10:00:00Z", pre["timestamp"])

	round, err := store.FindOne(ctx, domain.CollRoundSurveys, domain.Filter{"round": 1})
	require.NoError(t, err)
	assert.Equal(t, float64(3), round["workload"])

	post, err := store.FindOne(ctx, domain.CollPostTask, domain.Filter{domain.FieldClientID: "c"})
	require.NoError(t, err)
	assert.Equal(t, float64(-2), post["support_helpful"])

	for _, coll := range []string{domain.CollPreTask, domain.CollRoundSurveys, domain.CollFinalSurveys, domain.CollPostTask} {
		n, err := store.Count(ctx, coll, domain.Filter{})
		require.NoError(t, err)
		assert.Equal(t, 1, n, coll)
	}
}
