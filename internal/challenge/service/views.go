package service

import (
	"context"
	"log"
	"slices"
	"strconv"

	"github.com/flagforge/flagforge/internal/challenge/cache"
	"github.com/flagforge/flagforge/internal/challenge/domain"
	"github.com/flagforge/flagforge/internal/challenge/storage"
	apperrors "github.com/flagforge/flagforge/internal/errors"
)

// Problem returns the full problem record, flags included. Callers expose
// this to operators only; player-facing reads go through VisibleProblems.
func (s *Service) Problem(ctx context.Context, pid string) (domain.Problem, error) {
	problem, err := s.store.Problem(ctx, pid)
	if err != nil {
		return domain.Problem{}, notFound(err, "problem", pid)
	}
	return problem, nil
}

// AllProblems lists problems sorted by score then name.
func (s *Service) AllProblems(ctx context.Context, category string, showDisabled bool) ([]domain.Problem, error) {
	return s.store.Problems(ctx, storage.ProblemFilter{
		Category:     category,
		ShowDisabled: showDisabled,
	})
}

// SolvedProblems returns the problems the team has solved, deduplicated in
// solve order. The result is memoized until the next mutating operation.
func (s *Service) SolvedProblems(ctx context.Context, tid, category string, showDisabled bool) ([]domain.Problem, error) {
	key := cache.Key("solved_problems", tid, category, strconv.FormatBool(showDisabled))
	return cache.GetOrCompute(ctx, s.cache, key, func(ctx context.Context) ([]domain.Problem, error) {
		return s.solvedProblems(ctx, tid, category, showDisabled)
	})
}

// SolvedPIDs returns the pids the team has solved.
func (s *Service) SolvedPIDs(ctx context.Context, tid string) ([]string, error) {
	solved, err := s.SolvedProblems(ctx, tid, "", false)
	if err != nil {
		return nil, err
	}
	pids := make([]string, len(solved))
	for i, problem := range solved {
		pids[i] = problem.PID
	}
	return pids, nil
}

// VisibleProblems returns the player-facing view of the problems the team
// has unlocked. Each view carries the team's committed instance details and
// never the flag. Solve counts come from the stats collaborator; a counting
// failure degrades to zero rather than failing the listing.
func (s *Service) VisibleProblems(ctx context.Context, tid, category string) ([]domain.ProblemView, error) {
	unlocked, err := cache.GetOrCompute(ctx, s.cache, cache.Key("unlocked_pids", tid, category),
		func(ctx context.Context) ([]string, error) {
			return s.UnlockedPIDs(ctx, tid, category)
		})
	if err != nil {
		return nil, err
	}
	solvedPIDs, err := s.SolvedPIDs(ctx, tid)
	if err != nil {
		return nil, err
	}
	problems, err := s.store.Problems(ctx, storage.ProblemFilter{Category: category})
	if err != nil {
		return nil, err
	}

	var views []domain.ProblemView
	for _, problem := range problems {
		if !slices.Contains(unlocked, problem.PID) {
			continue
		}
		instance, err := s.ResolveInstance(ctx, problem.PID, tid)
		if err != nil {
			return nil, err
		}
		solves := 0
		if s.stats != nil {
			solves, err = s.stats.ProblemSolves(ctx, problem.PID)
			if err != nil {
				log.Printf("solve count for problem %s failed: %v", problem.PID, err)
				solves = 0
			}
		}
		solved := slices.Contains(solvedPIDs, problem.PID)
		views = append(views, domain.UnlockedView(problem, instance, solved, solves))
	}
	return views, nil
}

// Categories lists the distinct categories of registered problems.
func (s *Service) Categories(ctx context.Context, showDisabled bool) ([]string, error) {
	return s.store.Categories(ctx, showDisabled)
}

// CountProblemsByCategory counts enabled problems per category.
func (s *Service) CountProblemsByCategory(ctx context.Context) (map[string]int, error) {
	problems, err := s.store.Problems(ctx, storage.ProblemFilter{})
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, problem := range problems {
		counts[problem.Category]++
	}
	return counts, nil
}

// Submissions lists ledger entries in insertion order.
func (s *Service) Submissions(ctx context.Context, filter storage.SubmissionFilter) ([]domain.Submission, error) {
	return s.store.Submissions(ctx, filter)
}

// CountSubmissions counts matching ledger entries.
func (s *Service) CountSubmissions(ctx context.Context, filter storage.SubmissionFilter) (int, error) {
	return s.store.CountSubmissions(ctx, filter)
}

// InvalidateSubmissions marks matching ledger entries incorrect without
// deleting them.
func (s *Service) InvalidateSubmissions(ctx context.Context, filter storage.SubmissionFilter) error {
	if err := s.store.InvalidateSubmissions(ctx, filter); err != nil {
		return err
	}
	s.cache.InvalidateAll()
	return nil
}

// ClearSubmissions deletes ledger entries matching a scoped filter. At least
// one of uid, tid, or pid must be set; wiping the whole ledger goes through
// ClearAllSubmissions instead.
func (s *Service) ClearSubmissions(ctx context.Context, filter storage.SubmissionFilter) error {
	if filter.UID == "" && filter.TID == "" && filter.PID == "" {
		return apperrors.New(apperrors.CodeValidation,
			"clearing submissions requires a uid, tid, or pid")
	}
	if err := s.store.ClearSubmissions(ctx, filter); err != nil {
		return err
	}
	s.cache.InvalidateAll()
	return nil
}

// ClearAllSubmissions wipes the entire ledger. It is refused unless a debug
// key is configured.
func (s *Service) ClearAllSubmissions(ctx context.Context) error {
	if s.cfg.DebugKey == "" {
		return apperrors.New(apperrors.CodeConfiguration,
			"wiping the submission ledger requires debug mode")
	}
	if err := s.store.ClearSubmissions(ctx, storage.SubmissionFilter{}); err != nil {
		return err
	}
	s.cache.InvalidateAll()
	return nil
}
