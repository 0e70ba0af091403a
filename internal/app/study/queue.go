package study

import (
	"math/rand/v2"
	"strings"

	"github.com/PabloGalante/csr-lab/internal/domain"
)

const avatarBaseURL = "https://avatar.iran.liara.run/username?username="

var (
	clientNames = []string{"Luis H", "Jamal K", "Maria N", "Elijah P", "Anna Z", "Samantha K"}

	complaintCategories = []string{
		"Service Quality",
		"Product Issues",
		"Pricing and Charges",
		"Policy",
		"Resolution",
	}
)

// Rounds is the number of chat rounds, one client each.
const Rounds = 2

// QueueGenerator draws the simulated clients of a new session. Names and
// categories are drawn without replacement, so the two rounds never share
// either.
type QueueGenerator struct {
	shuffle func(n int, swap func(i, j int))
}

func NewQueueGenerator() *QueueGenerator {
	return &QueueGenerator{shuffle: rand.Shuffle}
}

// NewQueueGeneratorWithShuffle is for tests that need a fixed draw.
func NewQueueGeneratorWithShuffle(shuffle func(n int, swap func(i, j int))) *QueueGenerator {
	return &QueueGenerator{shuffle: shuffle}
}

// Generate returns one client per round. All clients share the scenario's
// domain and the same difficulty: ungrateful, ranting, expressive, uncivil.
func (g *QueueGenerator) Generate(scenario string) []domain.ClientProfile {
	names := append([]string(nil), clientNames...)
	categories := append([]string(nil), complaintCategories...)

	g.shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })
	g.shuffle(len(categories), func(i, j int) { categories[i], categories[j] = categories[j], categories[i] })

	queue := make([]domain.ClientProfile, 0, Rounds)
	for i := 0; i < Rounds; i++ {
		name := names[i%len(names)]
		queue = append(queue, domain.ClientProfile{
			Name:       name,
			Domain:     scenario,
			Category:   categories[i%len(categories)],
			Avatar:     avatarBaseURL + strings.ReplaceAll(name, " ", "+"),
			Round:      i + 1,
			Grateful:   false,
			Ranting:    true,
			Expressive: true,
			Civil:      false,
		})
	}
	return queue
}
