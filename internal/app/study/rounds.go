package study

import (
	"context"
	"fmt"

	"github.com/PabloGalante/csr-lab/internal/app/survey"
	"github.com/PabloGalante/csr-lab/internal/domain"
	"github.com/PabloGalante/csr-lab/internal/observability"
)

// PreSurveyResult is the randomization outcome returned to the participant.
type PreSurveyResult struct {
	Phase       domain.Phase
	Treatment   domain.Treatment
	Stratum     domain.Stratum
	Score       float64
	ScreenedOut bool
}

// SubmitPreSurvey stores the pre-task answers, computes the suppression
// score and randomizes. It moves the session to ROUND1_CHAT or SCREENED_OUT.
func (s *Service) SubmitPreSurvey(ctx context.Context, token domain.SessionToken, answers survey.Answers) (*PreSurveyResult, error) {
	if len(answers) == 0 {
		return nil, fmt.Errorf("%w: no data received", domain.ErrInvalidInput)
	}

	var out *PreSurveyResult
	err := s.withSession(ctx, token, func(ctx context.Context, sess *domain.Session) (bool, error) {
		if err := requirePhase(sess, domain.PhasePreSurvey); err != nil {
			return false, err
		}
		log := observability.LoggerFromContext(ctx)

		normalized := survey.NormalizePreTask(answers)
		q1, q2, q3, err := survey.EmotionAnswers(normalized)
		if err != nil {
			return false, err
		}
		score := domain.SuppressionScore(q1, q2, q3)

		a, err := s.randomizer.Assign(ctx, token, score)
		if err != nil {
			return false, err
		}

		if _, err := s.surveys.RecordPreTask(ctx, token, normalized, score, a.Stratum); err != nil {
			log.Error("failed to store pre-task survey", "error", err)
			return false, err
		}

		sess.Stratum = a.Stratum
		if a.ScreenedOut {
			s.transition(ctx, sess, domain.PhaseScreenedOut)
		} else {
			sess.Treatment = a.Treatment
			sess.Round = 1
			s.transition(ctx, sess, domain.PhaseRound1Chat)
		}

		out = &PreSurveyResult{
			Phase:       sess.Phase,
			Treatment:   a.Treatment,
			Stratum:     a.Stratum,
			Score:       score,
			ScreenedOut: a.ScreenedOut,
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CompleteChat ends the current round's conversation: no more chat writes
// for its client. The session moves to the round survey.
func (s *Service) CompleteChat(ctx context.Context, token domain.SessionToken) (domain.Phase, error) {
	var phase domain.Phase
	err := s.withSession(ctx, token, func(ctx context.Context, sess *domain.Session) (bool, error) {
		if sess.Phase == domain.SurveyPhase(sess.Round) {
			phase = sess.Phase
			return false, nil
		}
		if err := requirePhase(sess, domain.ChatPhase(sess.Round)); err != nil {
			return false, err
		}

		closeRound(sess)
		s.transition(ctx, sess, domain.SurveyPhase(sess.Round))
		phase = sess.Phase
		return true, nil
	})
	return phase, err
}

func closeRound(sess *domain.Session) {
	for _, t := range sess.Threads {
		if t.Round == sess.Round {
			t.Closed = true
		}
	}
}

// RoundSurveyResult tells the transport where the participant goes next.
type RoundSurveyResult struct {
	Phase      domain.Phase
	Round      int
	NextClient *domain.ClientProfile
}

// SubmitRoundSurvey stores the end-of-round survey. After round 1 it pops
// the round-2 client and opens ROUND2_CHAT; after round 2 it moves to the
// final survey. An empty queue after round 1 fails with
// domain.ErrQueueExhausted before anything is written.
func (s *Service) SubmitRoundSurvey(ctx context.Context, token domain.SessionToken, round int, answers survey.Answers) (*RoundSurveyResult, error) {
	var out *RoundSurveyResult
	err := s.withSession(ctx, token, func(ctx context.Context, sess *domain.Session) (bool, error) {
		if round != sess.Round {
			return false, fmt.Errorf("%w: survey for round %d while in round %d", domain.ErrInvalidTransition, round, sess.Round)
		}
		if err := requirePhase(sess, domain.ChatPhase(round), domain.SurveyPhase(round)); err != nil {
			return false, err
		}
		if round == 1 && len(sess.Queue) == 0 {
			observability.LoggerFromContext(ctx).Error("client queue exhausted at round advance")
			return false, domain.ErrQueueExhausted
		}

		if _, err := s.surveys.RecordRound(ctx, token, round, answers); err != nil {
			return false, err
		}

		now := s.now().UTC()
		closeRound(sess)

		if round == 1 {
			if err := s.markParticipant(ctx, token, domain.Document{
				"round1_completed":       true,
				"round1_completion_time": now,
			}); err != nil {
				return false, err
			}

			next, err := sess.PopClient()
			if err != nil {
				return false, err
			}
			sess.Round1Completed = true
			sess.CurrentClient = &next
			sess.ActiveClient = ""
			sess.Round = 2
			s.transition(ctx, sess, domain.PhaseRound2Chat)

			out = &RoundSurveyResult{Phase: sess.Phase, Round: sess.Round, NextClient: &next}
			return true, nil
		}

		if err := s.markParticipant(ctx, token, domain.Document{
			"round2_completed":       true,
			"round2_completion_time": now,
		}); err != nil {
			return false, err
		}
		sess.Round2Completed = true
		s.transition(ctx, sess, domain.PhaseFinalSurvey)

		out = &RoundSurveyResult{Phase: sess.Phase, Round: sess.Round}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitFinalSurvey stores the final survey and completes the study.
func (s *Service) SubmitFinalSurvey(ctx context.Context, token domain.SessionToken, answers survey.Answers) (domain.Phase, error) {
	if len(answers) == 0 {
		return "", fmt.Errorf("%w: no data received", domain.ErrInvalidInput)
	}

	var phase domain.Phase
	err := s.withSession(ctx, token, func(ctx context.Context, sess *domain.Session) (bool, error) {
		if err := requirePhase(sess, domain.PhaseFinalSurvey); err != nil {
			return false, err
		}

		if _, err := s.surveys.RecordFinal(ctx, token, answers); err != nil {
			return false, err
		}
		if err := s.markParticipant(ctx, token, domain.Document{
			"study_completed": true,
			"completion_time": s.now().UTC(),
		}); err != nil {
			return false, err
		}

		s.transition(ctx, sess, domain.PhaseComplete)
		phase = sess.Phase
		return true, nil
	})
	return phase, err
}

// SubmitPostTaskSurvey stores the legacy per-client survey. It does not
// move the session.
func (s *Service) SubmitPostTaskSurvey(ctx context.Context, token domain.SessionToken, answers survey.Answers) (string, error) {
	var id string
	err := s.withSession(ctx, token, func(ctx context.Context, sess *domain.Session) (bool, error) {
		var err error
		id, err = s.surveys.RecordPostTask(ctx, token, answers)
		return false, err
	})
	return id, err
}
