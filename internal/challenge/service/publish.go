package service

import (
	"context"
	"errors"

	"github.com/flagforge/flagforge/internal/challenge/domain"
	"github.com/flagforge/flagforge/internal/challenge/storage"
	apperrors "github.com/flagforge/flagforge/internal/errors"
)

// PublishProblem registers or updates a problem published by the shell
// server identified by sid. Identity is derived from name and author, so
// republishing the same problem lands on the same pid. On a republish the
// incoming instances replace only this shard's slice of the instance set;
// instances published by other shards are preserved. Newly created problems
// start disabled, and a republish that leaves a problem with no instances
// disables it.
func (s *Service) PublishProblem(ctx context.Context, problem domain.Problem, sid string) (string, error) {
	if err := problem.Validate(); err != nil {
		return "", err
	}
	serverNumber, err := s.servers.ServerNumber(ctx, sid)
	if err != nil {
		return "", err
	}

	pid := domain.NewProblemID(problem.Name, problem.Author)
	problem.PID = pid
	for i := range problem.Instances {
		instance := &problem.Instances[i]
		instance.IID = domain.NewInstanceID(instance.InstanceNumber, sid, pid)
		instance.SID = sid
		instance.ServerNumber = serverNumber
	}

	existing, err := s.store.Problem(ctx, pid)
	switch {
	case err == nil:
		merged := make([]domain.Instance, 0, len(existing.Instances)+len(problem.Instances))
		for _, instance := range existing.Instances {
			if instance.SID != sid {
				merged = append(merged, instance)
			}
		}
		merged = append(merged, problem.Instances...)
		problem.Instances = merged
		problem.Disabled = existing.Disabled || len(merged) == 0
	case errors.Is(err, storage.ErrNotFound):
		// A different author publishing under a taken display name gets a
		// distinct pid but would still collide on name; reject it up front.
		if _, nameErr := s.store.ProblemByName(ctx, problem.Name); nameErr == nil {
			return "", apperrors.Newf(apperrors.CodeDuplicateName,
				"problem with identical name %q already exists", problem.Name)
		} else if !errors.Is(nameErr, storage.ErrNotFound) {
			return "", nameErr
		}
		problem.Disabled = true
	default:
		return "", err
	}

	if err := s.store.PutProblem(ctx, problem); err != nil {
		if errors.Is(err, storage.ErrDuplicateName) {
			return "", apperrors.Newf(apperrors.CodeDuplicateName,
				"problem with identical name %q already exists", problem.Name)
		}
		return "", err
	}
	s.cache.InvalidateAll()
	return pid, nil
}

// PublishBundle registers or updates a bundle. Identity is derived from name
// and author. New bundles start with dependency enforcement off; a
// republish keeps the operator's current enforcement setting.
func (s *Service) PublishBundle(ctx context.Context, bundle domain.Bundle) (string, error) {
	if err := bundle.Validate(); err != nil {
		return "", err
	}

	bid := domain.NewBundleID(bundle.Name, bundle.Author)
	bundle.BID = bid

	existing, err := s.store.Bundle(ctx, bid)
	switch {
	case err == nil:
		bundle.DependenciesEnabled = existing.DependenciesEnabled
	case errors.Is(err, storage.ErrNotFound):
		bundle.DependenciesEnabled = false
	default:
		return "", err
	}

	if err := s.store.PutBundle(ctx, bundle); err != nil {
		return "", err
	}
	s.cache.InvalidateAll()
	return bid, nil
}

// SetProblemAvailability enables or disables a problem. Newly published
// problems stay disabled until an operator flips them on.
func (s *Service) SetProblemAvailability(ctx context.Context, pid string, disabled bool) error {
	problem, err := s.store.Problem(ctx, pid)
	if err != nil {
		return notFound(err, "problem", pid)
	}
	problem.Disabled = disabled
	if err := s.store.PutProblem(ctx, problem); err != nil {
		return err
	}
	s.cache.InvalidateAll()
	return nil
}

// SetBundleDependenciesEnabled toggles unlock rule enforcement for a bundle.
// With enforcement off every problem in the bundle is treated as unlocked.
func (s *Service) SetBundleDependenciesEnabled(ctx context.Context, bid string, enabled bool) error {
	bundle, err := s.store.Bundle(ctx, bid)
	if err != nil {
		return notFound(err, "bundle", bid)
	}
	bundle.DependenciesEnabled = enabled
	if err := s.store.PutBundle(ctx, bundle); err != nil {
		return err
	}
	s.cache.InvalidateAll()
	return nil
}

// PublishBlob is the payload a shell server exports: its shard id together
// with every problem and bundle it serves.
type PublishBlob struct {
	SID      string
	Problems []domain.Problem
	Bundles  []domain.Bundle
}

// LoadPublished ingests a full shell server export, publishing problems
// first so bundle member names resolve against current state.
func (s *Service) LoadPublished(ctx context.Context, blob PublishBlob) error {
	for _, problem := range blob.Problems {
		if _, err := s.PublishProblem(ctx, problem, blob.SID); err != nil {
			return err
		}
	}
	for _, bundle := range blob.Bundles {
		if _, err := s.PublishBundle(ctx, bundle); err != nil {
			return err
		}
	}
	return nil
}

// RemoveProblem deletes a problem and its instances, returning the removed
// record. Ledger entries referencing the pid are kept.
func (s *Service) RemoveProblem(ctx context.Context, pid string) (domain.Problem, error) {
	problem, err := s.store.Problem(ctx, pid)
	if err != nil {
		return domain.Problem{}, notFound(err, "problem", pid)
	}
	if err := s.store.DeleteProblem(ctx, pid); err != nil {
		return domain.Problem{}, notFound(err, "problem", pid)
	}
	s.cache.InvalidateAll()
	return problem, nil
}
