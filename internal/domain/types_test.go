package domain

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestSuppressionScoreExamples(t *testing.T) {
	tests := []struct {
		q1, q2, q3 float64
		want       Stratum
	}{
		{5, 5, 4, StratumSuppressor},
		{3, 3, 3, StratumNonSuppressor},
		{5, 4, 4.5, StratumSuppressor},
		{4, 5, 4, StratumNonSuppressor},
		{7, 7, 7, StratumSuppressor},
		{1, 1, 1, StratumNonSuppressor},
	}

	for _, tt := range tests {
		score := SuppressionScore(tt.q1, tt.q2, tt.q3)
		assert.Equal(t, tt.want, StratumFor(score), "q=(%v,%v,%v) score=%v", tt.q1, tt.q2, tt.q3, score)
	}

	assert.Equal(t, 4.5, SuppressionScore(5, 4, 4.5))
	assert.InDelta(t, 4.67, SuppressionScore(5, 5, 4), 0.005)
	assert.Equal(t, 3.0, SuppressionScore(3, 3, 3))
}

func TestSuppressionProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	likert := gen.IntRange(1, 7)

	properties.Property("score is the exact mean", prop.ForAll(
		func(a, b, c int) bool {
			return SuppressionScore(float64(a), float64(b), float64(c)) == (float64(a)+float64(b)+float64(c))/3.0
		},
		likert, likert, likert,
	))

	properties.Property("stratum threshold is inclusive", prop.ForAll(
		func(a, b, c int) bool {
			score := SuppressionScore(float64(a), float64(b), float64(c))
			return (StratumFor(score) == StratumSuppressor) == (score >= 4.5)
		},
		likert, likert, likert,
	))

	properties.Property("score stays on the answer scale", prop.ForAll(
		func(a, b, c int) bool {
			score := SuppressionScore(float64(a), float64(b), float64(c))
			return score >= 1 && score <= 7
		},
		likert, likert, likert,
	))

	properties.TestingRun(t)
}

func TestSupportFlags(t *testing.T) {
	round2 := map[Treatment]SupportFlags{
		TreatmentControl:     {},
		TreatmentInformation: {Info: true},
		TreatmentEmotion:     {Emo: true},
		TreatmentBoth:        {Info: true, Emo: true},
		"":                   {},
		"bogus":              {},
	}

	for tr, want := range round2 {
		assert.Equal(t, SupportFlags{}, SupportFlagsFor(1, tr), "round 1 %q", tr)
		assert.Equal(t, want, SupportFlagsFor(2, tr), "round 2 %q", tr)
	}
}

func TestRoundOneFlagsIgnoreClientDefaults(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("round 1 is always (0,0)", prop.ForAll(
		func(idx int, info, emo bool) bool {
			s := &Session{
				Round:         1,
				Treatment:     Treatments[idx],
				CurrentClient: &ClientProfile{Defaults: SupportFlags{Info: info, Emo: emo}},
			}
			return s.Flags() == SupportFlags{}
		},
		gen.IntRange(0, len(Treatments)-1),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestTurnFor(t *testing.T) {
	assert.Equal(t, 1, TurnFor(0))
	assert.Equal(t, 1, TurnFor(1))
	assert.Equal(t, 2, TurnFor(3))
	assert.Equal(t, 3, TurnFor(5))
}

func TestSessionQueue(t *testing.T) {
	s := &Session{Queue: []ClientProfile{{Name: "Anna Z"}}}

	c, err := s.PopClient()
	assert.NoError(t, err)
	assert.Equal(t, "Anna Z", c.Name)

	_, err = s.PopClient()
	assert.ErrorIs(t, err, ErrQueueExhausted)
}

func TestFilterMatchesNormalizedValues(t *testing.T) {
	doc, err := ToDocument(map[string]any{"turn_number": 2, "screened_out": false})
	assert.NoError(t, err)

	f, err := Filter{"turn_number": int64(2), "screened_out": false, "missing": nil}.Normalize()
	assert.NoError(t, err)
	assert.True(t, f.Matches(doc))

	f, err = Filter{"turn_number": "2"}.Normalize()
	assert.NoError(t, err)
	assert.False(t, f.Matches(doc))
}

func TestParseSupportType(t *testing.T) {
	st, ok := ParseSupportType("TYPE_EMO_SHOES")
	assert.True(t, ok)
	assert.Equal(t, "Put Yourself in the Client's Shoes", st.Label())

	_, ok = ParseSupportType("Put Yourself in the Client's Shoes")
	assert.False(t, ok)
}
