package study

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDrawsWithoutReplacement(t *testing.T) {
	g := NewQueueGenerator()
	for i := 0; i < 50; i++ {
		q := g.Generate("airlines")
		require.Len(t, q, Rounds)
		assert.NotEqual(t, q[0].Name, q[1].Name)
		assert.NotEqual(t, q[0].Category, q[1].Category)
		for r, c := range q {
			assert.Equal(t, "airlines", c.Domain)
			assert.Equal(t, r+1, c.Round)
			assert.True(t, c.Ranting)
			assert.False(t, c.Civil)
			assert.Contains(t, clientNames, c.Name)
			assert.Contains(t, complaintCategories, c.Category)
		}
	}
}

func TestQueueAvatar(t *testing.T) {
	g := NewQueueGeneratorWithShuffle(func(int, func(i, j int)) {})
	q := g.Generate("hotel")
	assert.Equal(t, avatarBaseURL+"Luis+H", q[0].Avatar)
	assert.Equal(t, "Service Quality", q[0].Category)
	assert.Equal(t, "Product Issues", q[1].Category)
}
