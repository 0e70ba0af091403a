// Package survey normalizes and stores questionnaire rows: the pre-task
// survey, the end-of-round survey, the final survey and the legacy
// per-client post-task survey.
package survey

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/PabloGalante/csr-lab/internal/domain"
)

// Pre-task answer keys that feed the suppression score.
const (
	KeyEmotionQ1 = "emotion_reg_q1"
	KeyEmotionQ2 = "emotion_reg_q2"
	KeyEmotionQ3 = "emotion_reg_q3"

	keyClientParam = "client_param"
	keyClientID    = "client_id"
	keyRound       = "round"
	keyTimestamp   = "timestamp"
)

// reversedLabels are post-task items whose scale is shown reversed.
var reversedLabels = map[string]bool{
	"support_effective":     true,
	"support_helpful":       true,
	"support_beneficial":    true,
	"support_adequate":      true,
	"support_sensitive":     true,
	"support_caring":        true,
	"support_understanding": true,
	"support_supportive":    true,
}

// Answers is one submitted questionnaire as decoded from JSON.
type Answers map[string]any

type Service struct {
	store domain.DocumentStore
	now   domain.Clock
}

func NewService(store domain.DocumentStore, now domain.Clock) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

// NormalizePreTask converts numeric strings to integers and drops the
// client_param pass-through. Values that are not numbers are kept as-is.
func NormalizePreTask(in Answers) Answers {
	out := make(Answers, len(in))
	for k, v := range in {
		if k == keyClientParam {
			continue
		}
		if s, ok := v.(string); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
				out[k] = n
				continue
			}
		}
		out[k] = v
	}
	return out
}

// EmotionAnswers returns the three emotion-regulation answers. A missing
// answer counts as 0.
func EmotionAnswers(a Answers) (q1, q2, q3 float64, err error) {
	if q1, err = number(a, KeyEmotionQ1); err != nil {
		return
	}
	if q2, err = number(a, KeyEmotionQ2); err != nil {
		return
	}
	q3, err = number(a, KeyEmotionQ3)
	return
}

func number(a Answers, key string) (float64, error) {
	switch v := a[key].(type) {
	case nil:
		return 0, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s is not a number", domain.ErrInvalidInput, key)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: %s is not a number", domain.ErrInvalidInput, key)
	}
}

func (s *Service) insert(ctx context.Context, coll string, token domain.SessionToken, a Answers) (string, error) {
	doc := make(domain.Document, len(a)+2)
	for k, v := range a {
		doc[k] = v
	}
	doc[domain.FieldSessionID] = string(token)
	doc[keyTimestamp] = s.now().UTC()

	id, err := s.store.Insert(ctx, coll, doc)
	if err != nil {
		return "", fmt.Errorf("store %s row: %w", coll, err)
	}
	return id, nil
}

// RecordPreTask stores a normalized pre-task row with the computed score and stratum.
func (s *Service) RecordPreTask(ctx context.Context, token domain.SessionToken, a Answers, score float64, stratum domain.Stratum) (string, error) {
	row := make(Answers, len(a)+2)
	for k, v := range a {
		row[k] = v
	}
	row[domain.FieldScore] = score
	row[domain.FieldStratum] = string(stratum)
	return s.insert(ctx, domain.CollPreTask, token, row)
}

// RecordRound stores an end-of-round row tagged with its round.
func (s *Service) RecordRound(ctx context.Context, token domain.SessionToken, round int, a Answers) (string, error) {
	row := make(Answers, len(a)+1)
	for k, v := range a {
		row[k] = v
	}
	row[keyRound] = round
	return s.insert(ctx, domain.CollRoundSurveys, token, row)
}

func (s *Service) RecordFinal(ctx context.Context, token domain.SessionToken, a Answers) (string, error) {
	return s.insert(ctx, domain.CollFinalSurveys, token, a)
}

// NormalizePostTask converts every answer except client_id to an integer
// and sign-reverses the reversed-scale support items.
func NormalizePostTask(in Answers) (Answers, error) {
	out := make(Answers, len(in))
	for k, v := range in {
		if k == keyClientID {
			out[k] = v
			continue
		}

		n, err := integer(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, k, err)
		}
		if reversedLabels[k] {
			n = -n
		}
		out[k] = n
	}
	return out, nil
}

func integer(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%v is not an integer", x)
		}
		return int(x), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(x))
	default:
		return 0, fmt.Errorf("unsupported value %v", v)
	}
}

// RecordPostTask normalizes and stores a legacy post-task row.
func (s *Service) RecordPostTask(ctx context.Context, token domain.SessionToken, a Answers) (string, error) {
	if len(a) == 0 {
		return "", fmt.Errorf("%w: no data received", domain.ErrInvalidInput)
	}
	row, err := NormalizePostTask(a)
	if err != nil {
		return "", err
	}
	return s.insert(ctx, domain.CollPostTask, token, row)
}
