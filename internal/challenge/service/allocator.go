package service

import (
	"context"

	"github.com/flagforge/flagforge/internal/challenge/domain"
	apperrors "github.com/flagforge/flagforge/internal/errors"
)

// AssignInstance picks an instance of the problem for the team and commits
// the choice. With sharding enabled only instances on the team's shell
// server are eligible. The commit is conditional: if the team already holds
// an instance for the pid and reassign is false, CodeAlreadyAssigned is
// returned, including when a concurrent caller wins the commit.
func (s *Service) AssignInstance(ctx context.Context, pid, tid string, reassign bool) (string, error) {
	team, err := s.store.Team(ctx, tid)
	if err != nil {
		return "", notFound(err, "team", tid)
	}
	problem, err := s.store.Problem(ctx, pid)
	if err != nil {
		return "", notFound(err, "problem", pid)
	}

	if !reassign {
		held, err := s.store.TeamInstances(ctx, tid)
		if err != nil {
			return "", err
		}
		if _, ok := held[pid]; ok {
			return "", apperrors.Newf(apperrors.CodeAlreadyAssigned,
				"team %s already holds an instance of problem %s", tid, pid)
		}
	}

	candidates := problem.Instances
	if s.cfg.EnableSharding {
		candidates = problem.InstancesForShard(team.ServerNumber)
	}
	if len(candidates) == 0 {
		if len(problem.Instances) == 0 {
			return "", apperrors.Newf(apperrors.CodeNoInstancesGloballyEmpty,
				"problem %s has no instances to assign", pid)
		}
		return "", apperrors.New(apperrors.CodeNoInstancesShardDown,
			"your assigned shell server is currently down")
	}

	instance := candidates[s.pick(len(candidates))]
	committed, err := s.store.CommitInstance(ctx, tid, pid, instance.IID, reassign)
	if err != nil {
		return "", err
	}
	if !committed {
		return "", apperrors.Newf(apperrors.CodeAlreadyAssigned,
			"team %s already holds an instance of problem %s", tid, pid)
	}
	return instance.IID, nil
}

// ResolveInstance returns the concrete instance committed to the team for
// the problem, assigning one first if needed. A committed iid that no longer
// exists on the problem, which happens when a republish replaced the
// instance set, triggers a single reassignment; a second miss reports
// CodeSevereInconsistency rather than retrying forever.
func (s *Service) ResolveInstance(ctx context.Context, pid, tid string) (domain.Instance, error) {
	held, err := s.store.TeamInstances(ctx, tid)
	if err != nil {
		return domain.Instance{}, err
	}

	iid, ok := held[pid]
	if !ok {
		iid, err = s.AssignInstance(ctx, pid, tid, false)
		if apperrors.IsCode(err, apperrors.CodeAlreadyAssigned) {
			// Lost the race to a concurrent assignment; read the winner.
			held, err = s.store.TeamInstances(ctx, tid)
			if err != nil {
				return domain.Instance{}, err
			}
			iid = held[pid]
		} else if err != nil {
			return domain.Instance{}, err
		}
	}

	for attempt := 0; ; attempt++ {
		problem, err := s.store.Problem(ctx, pid)
		if err != nil {
			return domain.Instance{}, notFound(err, "problem", pid)
		}
		if instance, ok := problem.FindInstance(iid); ok {
			return instance, nil
		}
		if attempt >= 1 {
			return domain.Instance{}, apperrors.Newf(apperrors.CodeSevereInconsistency,
				"instance for problem %s and team %s is missing after reassignment", pid, tid)
		}
		iid, err = s.AssignInstance(ctx, pid, tid, true)
		if err != nil {
			return domain.Instance{}, err
		}
	}
}
