package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/flagforge/flagforge/internal/challenge/domain"
	"github.com/flagforge/flagforge/internal/challenge/storage"
)

func testSubmission(uid, tid, pid, key string, correct bool) domain.Submission {
	return domain.Submission{
		UID:         uid,
		TID:         tid,
		PID:         pid,
		Key:         key,
		Method:      "web",
		IP:          "203.0.113.9",
		Category:    "crypto",
		Correct:     correct,
		SubmittedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestRecordIfFirstGatesOnUserCorrect(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	recorded, err := store.RecordIfFirst(ctx, testSubmission("user-1", "team-1", "pid-1", "wrong", false))
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !recorded {
		t.Fatal("expected incorrect attempt to be recorded")
	}

	recorded, err = store.RecordIfFirst(ctx, testSubmission("user-1", "team-1", "pid-1", "flag{a}", true))
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !recorded {
		t.Fatal("expected first correct attempt to be recorded")
	}

	// Once the user has a correct entry anywhere, nothing further is
	// recorded, even for a different problem.
	recorded, err = store.RecordIfFirst(ctx, testSubmission("user-1", "team-1", "pid-2", "flag{b}", true))
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if recorded {
		t.Fatal("expected attempt after first correct to be skipped")
	}

	count, err := store.CountSubmissions(ctx, storage.SubmissionFilter{UID: "user-1"})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 ledger entries, got %d", count)
	}
}

func TestRecordIfFirstIgnoresOtherUsers(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if _, err := store.RecordIfFirst(ctx, testSubmission("user-1", "team-1", "pid-1", "flag{a}", true)); err != nil {
		t.Fatalf("record: %v", err)
	}
	recorded, err := store.RecordIfFirst(ctx, testSubmission("user-2", "team-1", "pid-1", "flag{a}", true))
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !recorded {
		t.Fatal("expected a different user's attempt to be recorded")
	}
}

func TestHasCorrectSubmissionScopes(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if _, err := store.RecordIfFirst(ctx, testSubmission("user-1", "team-1", "pid-1", "flag{a}", true)); err != nil {
		t.Fatalf("record: %v", err)
	}

	byUser, err := store.HasCorrectSubmission(ctx, storage.SubmissionFilter{UID: "user-1"})
	if err != nil {
		t.Fatalf("has correct: %v", err)
	}
	if !byUser {
		t.Fatal("expected user-level correct submission")
	}

	byTeamOtherPid, err := store.HasCorrectSubmission(ctx, storage.SubmissionFilter{TID: "team-1", PID: "pid-2"})
	if err != nil {
		t.Fatalf("has correct: %v", err)
	}
	if byTeamOtherPid {
		t.Fatal("expected no team correct submission for another pid")
	}
}

func TestSetCorrectByKeyCrossesProblems(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	// Same key text submitted against two different problems by different
	// users; the bulk update is scoped by key alone.
	if _, err := store.RecordIfFirst(ctx, testSubmission("user-1", "team-1", "pid-1", "flag{shared}", true)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := store.RecordIfFirst(ctx, testSubmission("user-2", "team-2", "pid-2", "flag{shared}", false)); err != nil {
		t.Fatalf("record: %v", err)
	}

	affected, err := store.SetCorrectByKey(ctx, "flag{shared}", false)
	if err != nil {
		t.Fatalf("set correct by key: %v", err)
	}
	if affected != 2 {
		t.Fatalf("expected 2 entries updated, got %d", affected)
	}

	correct := true
	count, err := store.CountSubmissions(ctx, storage.SubmissionFilter{Correct: &correct})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no correct entries, got %d", count)
	}
}

func TestInvalidateSubmissionsByProblem(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if _, err := store.RecordIfFirst(ctx, testSubmission("user-1", "team-1", "pid-1", "flag{a}", true)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := store.RecordIfFirst(ctx, testSubmission("user-2", "team-2", "pid-2", "flag{b}", true)); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := store.InvalidateSubmissions(ctx, storage.SubmissionFilter{PID: "pid-1"}); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	correct := true
	remaining, err := store.Submissions(ctx, storage.SubmissionFilter{Correct: &correct})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 1 || remaining[0].PID != "pid-2" {
		t.Fatalf("expected only pid-2 to stay correct, got %+v", remaining)
	}
}

func TestClearSubmissions(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if _, err := store.RecordIfFirst(ctx, testSubmission("user-1", "team-1", "pid-1", "flag{a}", false)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := store.RecordIfFirst(ctx, testSubmission("user-2", "team-2", "pid-2", "flag{b}", false)); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := store.ClearSubmissions(ctx, storage.SubmissionFilter{TID: "team-1"}); err != nil {
		t.Fatalf("clear: %v", err)
	}
	count, err := store.CountSubmissions(ctx, storage.SubmissionFilter{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 entry after scoped clear, got %d", count)
	}

	if err := store.ClearSubmissions(ctx, storage.SubmissionFilter{}); err != nil {
		t.Fatalf("clear all: %v", err)
	}
	count, err = store.CountSubmissions(ctx, storage.SubmissionFilter{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty ledger, got %d", count)
	}
}

func TestSubmissionsPreserveInsertionOrder(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	for _, key := range []string{"first", "second", "third"} {
		if _, err := store.RecordIfFirst(ctx, testSubmission("user-1", "team-1", "pid-1", key, false)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	submissions, err := store.Submissions(ctx, storage.SubmissionFilter{PID: "pid-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(submissions) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(submissions))
	}
	if submissions[0].Key != "first" || submissions[2].Key != "third" {
		t.Fatalf("unexpected order %+v", submissions)
	}
}
