package service

import (
	"context"
	"errors"

	"github.com/flagforge/flagforge/internal/challenge/domain"
	"github.com/flagforge/flagforge/internal/challenge/storage"
	apperrors "github.com/flagforge/flagforge/internal/errors"
)

// UnlockedPIDs computes the set of problems the team may currently see and
// submit to. A problem is unlocked when every bundle containing it agrees it
// is, judged against the team's full solved set. The solved set is never
// narrowed by category, so progress in one category can unlock another.
//
// As a side effect, an instance is committed for any newly unlocked problem
// the team does not hold one for yet, so the assignment is pinned from the
// moment of unlocking rather than from first view.
func (s *Service) UnlockedPIDs(ctx context.Context, tid, category string) ([]string, error) {
	if _, err := s.store.Team(ctx, tid); err != nil {
		return nil, notFound(err, "team", tid)
	}

	solved, err := s.solvedProblems(ctx, tid, "", false)
	if err != nil {
		return nil, err
	}

	problems, err := s.store.Problems(ctx, storage.ProblemFilter{Category: category})
	if err != nil {
		return nil, err
	}

	var unlocked []string
	for _, problem := range problems {
		bundles, err := s.store.BundlesForProblem(ctx, problem.SanitizedName)
		if err != nil {
			return nil, err
		}
		if domain.IsUnlocked(problem, solved, bundles) {
			unlocked = append(unlocked, problem.PID)
		}
	}

	held, err := s.store.TeamInstances(ctx, tid)
	if err != nil {
		return nil, err
	}
	for _, pid := range unlocked {
		if _, ok := held[pid]; ok {
			continue
		}
		if _, err := s.AssignInstance(ctx, pid, tid, false); err != nil {
			// A concurrent caller winning the commit is success here.
			if apperrors.IsCode(err, apperrors.CodeAlreadyAssigned) {
				continue
			}
			return nil, err
		}
	}

	return unlocked, nil
}

// solvedProblems resolves the team's correct submissions to problem records,
// deduplicated by pid in submission order. Entries whose problem has since
// been removed are skipped.
func (s *Service) solvedProblems(ctx context.Context, tid, category string, showDisabled bool) ([]domain.Problem, error) {
	correct := true
	submissions, err := s.store.Submissions(ctx, storage.SubmissionFilter{
		TID:      tid,
		Category: category,
		Correct:  &correct,
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(submissions))
	var solved []domain.Problem
	for _, submission := range submissions {
		if _, ok := seen[submission.PID]; ok {
			continue
		}
		seen[submission.PID] = struct{}{}

		problem, err := s.store.Problem(ctx, submission.PID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if problem.Disabled && !showDisabled {
			continue
		}
		solved = append(solved, problem)
	}
	return solved, nil
}
