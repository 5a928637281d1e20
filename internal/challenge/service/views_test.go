package service

import (
	"context"
	"testing"

	"github.com/flagforge/flagforge/internal/challenge/domain"
	"github.com/flagforge/flagforge/internal/challenge/storage"
	apperrors "github.com/flagforge/flagforge/internal/errors"
)

func TestVisibleProblemsShowsOnlyUnlocked(t *testing.T) {
	svc, store := newTestService(t, Config{})
	ctx := context.Background()
	seedTeam(t, store, "team-1", 1, "user-1")

	pidA := publishEnabled(t, svc, publishPayload("A", "alice", "crypto", 10, 1), "shard-1")
	publishEnabled(t, svc, publishPayload("C", "alice", "crypto", 30, 1), "shard-1")

	bid, err := svc.PublishBundle(ctx, domain.Bundle{
		Name:     "intro",
		Author:   "alice",
		Problems: []string{"A", "C"},
		Dependencies: map[string]domain.DependencyRule{
			"C": {Weightmap: map[string]float64{"A": 1}, Threshold: 1},
		},
	})
	if err != nil {
		t.Fatalf("publish bundle: %v", err)
	}
	if err := svc.SetBundleDependenciesEnabled(ctx, bid, true); err != nil {
		t.Fatalf("enable dependencies: %v", err)
	}

	views, err := svc.VisibleProblems(ctx, "team-1", "")
	if err != nil {
		t.Fatalf("visible problems: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected only the unlocked problem, got %d views", len(views))
	}
	view := views[0]
	if view.PID != pidA || !view.Unlocked || view.Solved {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.Port != 4000 || view.Server != "shell-0" {
		t.Fatalf("expected committed instance connection details, got %+v", view)
	}
}

func TestVisibleProblemsReflectsSolves(t *testing.T) {
	svc, store := newTestService(t, Config{})
	ctx := context.Background()
	seedTeam(t, store, "team-1", 1, "user-1")
	pid := publishEnabled(t, svc, publishPayload("A", "alice", "crypto", 10, 1), "shard-1")

	before, err := svc.VisibleProblems(ctx, "team-1", "")
	if err != nil {
		t.Fatalf("visible problems: %v", err)
	}
	if len(before) != 1 {
		t.Fatalf("expected one view, got %d", len(before))
	}
	if before[0].Solved {
		t.Fatal("expected unsolved view before submission")
	}

	submit(t, svc, "user-1", "team-1", pid, "flag{A-0}")

	// The memoized views were dropped by the correct submission.
	after, err := svc.VisibleProblems(ctx, "team-1", "")
	if err != nil {
		t.Fatalf("visible problems: %v", err)
	}
	if !after[0].Solved {
		t.Fatal("expected solved view after submission")
	}
}

func TestSolvedPIDsTracksLedger(t *testing.T) {
	svc, store := newTestService(t, Config{})
	ctx := context.Background()
	seedTeam(t, store, "team-1", 1, "user-1")
	pid := publishEnabled(t, svc, publishPayload("A", "alice", "crypto", 10, 1), "shard-1")

	solved, err := svc.SolvedPIDs(ctx, "team-1")
	if err != nil {
		t.Fatalf("solved pids: %v", err)
	}
	if len(solved) != 0 {
		t.Fatalf("expected no solves, got %v", solved)
	}

	submit(t, svc, "user-1", "team-1", pid, "flag{A-0}")

	solved, err = svc.SolvedPIDs(ctx, "team-1")
	if err != nil {
		t.Fatalf("solved pids: %v", err)
	}
	if len(solved) != 1 || solved[0] != pid {
		t.Fatalf("expected %s solved, got %v", pid, solved)
	}
}

func TestCountProblemsByCategory(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	ctx := context.Background()

	publishEnabled(t, svc, publishPayload("A", "alice", "crypto", 10, 1), "shard-1")
	publishEnabled(t, svc, publishPayload("B", "alice", "crypto", 20, 1), "shard-1")
	publishEnabled(t, svc, publishPayload("W", "alice", "web", 10, 1), "shard-1")
	// Disabled problems are not counted.
	if _, err := svc.PublishProblem(ctx, publishPayload("D", "alice", "web", 10, 1), "shard-1"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	counts, err := svc.CountProblemsByCategory(ctx)
	if err != nil {
		t.Fatalf("count by category: %v", err)
	}
	if counts["crypto"] != 2 || counts["web"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
}

func TestClearSubmissionsRequiresScope(t *testing.T) {
	svc, _ := newTestService(t, Config{})

	err := svc.ClearSubmissions(context.Background(), storage.SubmissionFilter{})
	if !apperrors.IsCode(err, apperrors.CodeValidation) {
		t.Fatalf("expected CodeValidation for unscoped clear, got %v", err)
	}
}

func TestClearAllSubmissionsRequiresDebug(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	ctx := context.Background()

	err := svc.ClearAllSubmissions(ctx)
	if !apperrors.IsCode(err, apperrors.CodeConfiguration) {
		t.Fatalf("expected CodeConfiguration without debug key, got %v", err)
	}

	debug, debugStore := newTestService(t, Config{DebugKey: "debug-skeleton"})
	seedTeam(t, debugStore, "team-1", 1, "user-1")
	pid := publishEnabled(t, debug, publishPayload("A", "alice", "crypto", 10, 1), "shard-1")
	submit(t, debug, "user-1", "team-1", pid, "flag{A-0}")

	if err := debug.ClearAllSubmissions(ctx); err != nil {
		t.Fatalf("clear all: %v", err)
	}
	count, err := debugStore.CountSubmissions(ctx, storage.SubmissionFilter{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty ledger, got %d", count)
	}
}
