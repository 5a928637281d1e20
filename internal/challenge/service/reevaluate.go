package service

import (
	"context"

	"github.com/flagforge/flagforge/internal/challenge/domain"
	"github.com/flagforge/flagforge/internal/challenge/storage"
)

// Reevaluate regrades every submission recorded against the problem, in
// submission order with duplicate key texts graded once. Each key is judged
// against the instance committed to the team that submitted it. A changed
// verdict is applied to every ledger entry bearing that key text, so teams
// that submitted the same key, to this or any other problem, are updated in
// the same pass.
func (s *Service) Reevaluate(ctx context.Context, pid string) error {
	if _, err := s.store.Problem(ctx, pid); err != nil {
		return notFound(err, "problem", pid)
	}

	submissions, err := s.store.Submissions(ctx, storage.SubmissionFilter{PID: pid})
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(submissions))
	changed := false
	for _, submission := range submissions {
		if _, ok := seen[submission.Key]; ok {
			continue
		}
		seen[submission.Key] = struct{}{}

		instance, err := s.ResolveInstance(ctx, pid, submission.TID)
		if err != nil {
			return err
		}
		verdict := domain.Grade(instance.Flag, submission.Key, s.cfg.DebugKey)
		if verdict == submission.Correct {
			continue
		}
		if _, err := s.store.SetCorrectByKey(ctx, submission.Key, verdict); err != nil {
			return err
		}
		changed = true
	}

	if changed {
		s.cache.InvalidateAll()
	}
	return nil
}

// ReevaluateAll regrades every problem, disabled ones included. The cache is
// dropped up front so reads issued during the sweep never serve pre-sweep
// verdicts.
func (s *Service) ReevaluateAll(ctx context.Context) error {
	s.cache.InvalidateAll()

	problems, err := s.store.Problems(ctx, storage.ProblemFilter{ShowDisabled: true})
	if err != nil {
		return err
	}
	for _, problem := range problems {
		if err := s.Reevaluate(ctx, problem.PID); err != nil {
			return err
		}
	}
	return nil
}
