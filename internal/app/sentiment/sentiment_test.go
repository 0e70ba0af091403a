package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"", Neutral},
		{"My booking number is 12345.", Neutral},
		{"I'm a bit annoyed.", Negative},
		{"This is completely unacceptable! I'm furious! Fix it RIGHT NOW!", VeryNegative},
		{"Your airline is the worst! My luggage is lost!", VeryNegative},
		{"Okay, that works.", Positive},
		{"Thank you so much, I really appreciate the help! Excellent service!", VeryPositive},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text))
		})
	}
}

func TestClassifyAlwaysReturnsKnownLabel(t *testing.T) {
	for _, text := range []string{"!!!", "NO NO NO", "good bad", "¿qué?", "FINISH:999"} {
		assert.Contains(t, Labels, Classify(text))
	}
}
