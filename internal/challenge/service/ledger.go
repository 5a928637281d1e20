package service

import (
	"context"
	"log"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flagforge/flagforge/internal/challenge/domain"
	"github.com/flagforge/flagforge/internal/challenge/storage"
	apperrors "github.com/flagforge/flagforge/internal/errors"
)

// SubmitRequest is one flag submission attempt.
type SubmitRequest struct {
	UID    string
	TID    string
	PID    string
	Key    string
	Method string
	IP     string
}

// SubmitResult reports the grading outcome together with what the submitter
// and their team had already achieved before this attempt.
type SubmitResult struct {
	Correct             bool
	AlreadySolvedByUser bool
	AlreadySolvedByTeam bool
}

// Submit grades a flag submission against the team's committed instance and
// appends it to the ledger. The unlock check always runs against fresh
// state, never a memoized view. The attempt is recorded only if the user has
// no prior correct submission anywhere; the grading verdict is returned
// either way.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	ctx, span := s.tracer.Start(ctx, "challenge.submit", trace.WithAttributes(
		attribute.String("challenge.pid", req.PID),
		attribute.String("challenge.tid", req.TID),
	))
	defer span.End()

	if err := domain.ValidateSubmission(req.TID, req.PID, req.Key); err != nil {
		return SubmitResult{}, err
	}

	unlocked, err := s.UnlockedPIDs(ctx, req.TID, "")
	if err != nil {
		return SubmitResult{}, err
	}
	if !slices.Contains(unlocked, req.PID) {
		return SubmitResult{}, apperrors.New(apperrors.CodeLockedProblem,
			"you can't submit flags to problems you haven't unlocked")
	}

	user, err := s.store.User(ctx, req.UID)
	if err != nil {
		return SubmitResult{}, notFound(err, "user", req.UID)
	}

	alreadyUser, err := s.store.HasCorrectSubmission(ctx, storage.SubmissionFilter{UID: user.UID})
	if err != nil {
		return SubmitResult{}, err
	}
	alreadyTeam, err := s.store.HasCorrectSubmission(ctx, storage.SubmissionFilter{TID: req.TID, PID: req.PID})
	if err != nil {
		return SubmitResult{}, err
	}

	instance, err := s.ResolveInstance(ctx, req.PID, req.TID)
	if err != nil {
		return SubmitResult{}, err
	}
	correct := domain.Grade(instance.Flag, req.Key, s.cfg.DebugKey)

	problem, err := s.store.Problem(ctx, req.PID)
	if err != nil {
		return SubmitResult{}, notFound(err, "problem", req.PID)
	}

	recorded, err := s.store.RecordIfFirst(ctx, domain.Submission{
		UID:         user.UID,
		TID:         req.TID,
		PID:         req.PID,
		Key:         req.Key,
		Method:      req.Method,
		IP:          req.IP,
		Category:    problem.Category,
		Correct:     correct,
		SubmittedAt: s.clock(),
	})
	if err != nil {
		return SubmitResult{}, err
	}

	if correct && recorded {
		s.cache.InvalidateAll()
		s.warmStats(ctx, req.TID, user.UID)
		if s.achievements != nil {
			payload := AchievementEvent{UID: user.UID, TID: req.TID, PID: req.PID}
			if err := s.achievements.Process(ctx, "submit", payload); err != nil {
				log.Printf("achievement processing for user %s failed: %v", user.UID, err)
			}
		}
	}

	return SubmitResult{
		Correct:             correct,
		AlreadySolvedByUser: alreadyUser,
		AlreadySolvedByTeam: alreadyTeam,
	}, nil
}

// warmStats recomputes the scores a correct submission changes. Failures are
// logged; scoring lag never fails a submission.
func (s *Service) warmStats(ctx context.Context, tid, uid string) {
	if s.stats == nil {
		return
	}
	if _, err := s.stats.Score(ctx, tid, uid); err != nil {
		log.Printf("score refresh for team %s failed: %v", tid, err)
	}
	if _, err := s.stats.ScoreProgression(ctx, tid, uid); err != nil {
		log.Printf("score progression refresh for team %s failed: %v", tid, err)
	}
}
