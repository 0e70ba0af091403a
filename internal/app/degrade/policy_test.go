package degrade

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/csr-lab/internal/app/gateway"
	"github.com/PabloGalante/csr-lab/internal/domain"
)

type requesterFunc func(ctx context.Context, req gateway.Request) (gateway.Content, error)

func (f requesterFunc) Request(ctx context.Context, req gateway.Request) (gateway.Content, error) {
	return f(ctx, req)
}

func failing(err error) Requester {
	return requesterFunc(func(context.Context, gateway.Request) (gateway.Content, error) {
		return gateway.Content{}, err
	})
}

var backendDown = &gateway.BackendFailure{Capability: domain.CapOpeningLine, Err: errors.New("down")}

func history(n int) []domain.Message {
	h := make([]domain.Message, n)
	for i := range h {
		h[i] = domain.Message{Role: domain.RoleClient, Text: "x"}
		if i%2 == 1 {
			h[i].Role = domain.RoleRepresentative
		}
	}
	return h
}

func TestBackendContentPassesThrough(t *testing.T) {
	p := New(requesterFunc(func(context.Context, gateway.Request) (gateway.Content, error) {
		return gateway.Content{Text: "real"}, nil
	}), nil)

	res := p.Request(context.Background(), gateway.OpeningLine{})
	assert.Equal(t, FromBackend, res.Provenance)
	assert.Equal(t, "real", res.Content.Text)
	assert.NoError(t, res.Cause)
}

func TestFallbackOpening(t *testing.T) {
	p := New(failing(backendDown), nil)

	tests := []struct {
		domain, category string
		want             string
	}{
		{"hotel", "Pricing and Charges", "charged me TWICE for my room"},
		{"airlines", "Service Quality", "delayed for 6 hours"},
		{"airlines", "reservation", "booked my flight two weeks ago"},
		{"cruise", "Service Quality", "The room was dirty"},
		{"hotel", "Policy", "I am extremely upset with your service!"},
	}

	for _, tt := range tests {
		res := p.Request(context.Background(), gateway.OpeningLine{
			Client: domain.ClientProfile{Domain: tt.domain, Category: tt.category},
		})
		assert.Equal(t, FromFallback, res.Provenance)
		assert.Contains(t, res.Content.Text, tt.want, "%s/%s", tt.domain, tt.category)
		assert.ErrorIs(t, res.Cause, backendDown)
	}
}

func TestFallbackReplyThresholds(t *testing.T) {
	p := New(failing(backendDown), nil)

	reply := func(historyLen int, rep string) string {
		return p.Request(context.Background(), gateway.RepresentativeReply{
			History: history(historyLen),
			RepText: rep,
		}).Content.Text
	}

	// history of 1 (opening only) is turn count 0.
	assert.Equal(t, tooEarlyReply, reply(1, "Let me help you with that"))
	assert.Equal(t, tooEarlyReply, reply(5, "I can offer a REFUND"))
	assert.Equal(t, acceptedReply, reply(7, "I will fix it"))
	assert.True(t, strings.HasSuffix(reply(7, "We can compensate you"), FinishMarker))

	assert.Equal(t, frustratedReplies[0], reply(1, "I see."))
	assert.Equal(t, frustratedReplies[2], reply(5, "Okay."))
	assert.Equal(t, frustratedReplies[4], reply(9, "Hmm."))
	assert.Equal(t, giveUpReply, reply(11, "Okay."))
	assert.Equal(t, giveUpReply, reply(21, "Okay."))
}

func TestFallbackSupportContent(t *testing.T) {
	p := New(failing(backendDown), nil)
	ctx := context.Background()

	cue := p.Request(ctx, gateway.InfoCue{Domain: "airlines"})
	assert.Equal(t, infoCues["airlines"], cue.Content.Suggestions)

	guide := p.Request(ctx, gateway.InfoGuide{Domain: "spaceport"})
	assert.Equal(t, infoGuides[""], guide.Content.Suggestions)

	reframe := p.Request(ctx, gateway.EmotionReframe{})
	assert.Equal(t, mockThought, reframe.Content.Thought)
	assert.Equal(t, mockReframe, reframe.Content.Reframe)

	shoes := p.Request(ctx, gateway.EmotionShoes{})
	assert.Equal(t, mockShoes, shoes.Content.Text)

	sentiment := p.Request(ctx, gateway.Sentiment{ClientText: "x"})
	assert.Equal(t, "Neutral", sentiment.Content.Label)
}

func TestFallbackListsAreCopies(t *testing.T) {
	p := New(failing(backendDown), nil)
	res := p.Request(context.Background(), gateway.InfoCue{Domain: "hotel"})
	res.Content.Suggestions[0] = "mutated"

	again := p.Request(context.Background(), gateway.InfoCue{Domain: "hotel"})
	assert.Equal(t, "Apologize for the inconvenience", again.Content.Suggestions[0])
}

func TestUnexpectedErrorsStillDegrade(t *testing.T) {
	p := New(failing(errors.New("nil pointer somewhere")), nil)
	res := p.Request(context.Background(), gateway.EmotionShoes{})
	require.Equal(t, FromFallback, res.Provenance)
	assert.NotEmpty(t, res.Content.Text)
}

func TestFallbackIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	p := New(failing(backendDown), nil)
	ctx := context.Background()

	properties.Property("same inputs give the same reply", prop.ForAll(
		func(domainName, category string, historyLen int, rep string) bool {
			req := gateway.RepresentativeReply{
				Client:  domain.ClientProfile{Domain: domainName, Category: category},
				History: history(historyLen),
				RepText: rep,
			}
			a := p.Request(ctx, req)
			b := p.Request(ctx, req)
			return a.Content.Text == b.Content.Text && a.Content.Text != ""
		},
		gen.OneConstOf("hotel", "airlines", "other"),
		gen.OneConstOf("reservation", "Pricing and Charges", "Service Quality", "Policy"),
		gen.IntRange(1, 30),
		gen.AlphaString(),
	))

	properties.Property("same inputs give the same opening", prop.ForAll(
		func(domainName, category string) bool {
			req := gateway.OpeningLine{Client: domain.ClientProfile{Domain: domainName, Category: category}}
			a := p.Request(ctx, req)
			b := p.Request(ctx, req)
			return a.Content.Text == b.Content.Text && a.Content.Text != ""
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.Property("finish marker only at the documented thresholds", prop.ForAll(
		func(historyLen int, rep string) bool {
			turnCount := historyLen / 2
			text := replyFor(turnCount, rep)
			finished := strings.HasSuffix(text, FinishMarker)
			if turnCount >= forceFinishTurn {
				return finished
			}
			if turnCount < resolveAtTurn {
				return !finished
			}
			return true
		},
		gen.IntRange(1, 30),
		gen.OneConstOf("help me", "I see", "refund", "okay", "we can resolve this"),
	))

	properties.TestingRun(t)
}
