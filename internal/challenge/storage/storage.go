// Package storage defines persistence contracts for challenge engine state.
//
// The engine assumes the backing store provides per-statement atomic
// conditional writes; CommitInstance and RecordIfFirst are the two points
// where that guarantee is load-bearing.
package storage

import (
	"context"
	"errors"

	"github.com/flagforge/flagforge/internal/challenge/domain"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateName indicates an insert collides with an existing
	// problem by display name but different identity.
	ErrDuplicateName = errors.New("display name already in use")
)

// ProblemFilter restricts problem listings.
type ProblemFilter struct {
	Category     string
	ShowDisabled bool
}

// SubmissionFilter restricts submission queries. Zero-valued fields do not
// filter; Correct filters only when set.
type SubmissionFilter struct {
	UID      string
	TID      string
	PID      string
	Category string
	Key      string
	Correct  *bool
}

// ProblemStore persists problem definitions and their instances.
type ProblemStore interface {
	// PutProblem inserts or replaces a problem together with its full
	// instance list. ErrDuplicateName is returned when the display name
	// belongs to a different pid.
	PutProblem(ctx context.Context, problem domain.Problem) error
	Problem(ctx context.Context, pid string) (domain.Problem, error)
	ProblemByName(ctx context.Context, name string) (domain.Problem, error)
	// Problems lists problems sorted by (score, name).
	Problems(ctx context.Context, filter ProblemFilter) ([]domain.Problem, error)
	DeleteProblem(ctx context.Context, pid string) error
	Categories(ctx context.Context, showDisabled bool) ([]string, error)
}

// BundleStore persists bundles, their member lists, and dependency rules.
type BundleStore interface {
	PutBundle(ctx context.Context, bundle domain.Bundle) error
	Bundle(ctx context.Context, bid string) (domain.Bundle, error)
	Bundles(ctx context.Context) ([]domain.Bundle, error)
	// BundlesForProblem returns the bundles containing the given sanitized
	// name, via the member index rather than a scan of all bundles.
	BundlesForProblem(ctx context.Context, sanitizedName string) ([]domain.Bundle, error)
}

// TeamStore persists teams, users, and per-team instance commitments.
type TeamStore interface {
	PutTeam(ctx context.Context, team domain.Team) error
	Team(ctx context.Context, tid string) (domain.Team, error)
	PutUser(ctx context.Context, user domain.User) error
	User(ctx context.Context, uid string) (domain.User, error)
	// TeamInstances returns the team's committed pid to iid mapping.
	TeamInstances(ctx context.Context, tid string) (map[string]string, error)
	// CommitInstance records the instance handed to a team for a problem.
	// The write is conditional: without reassign it lands only if the team
	// has no committed instance for the pid yet. It reports whether the
	// commit landed.
	CommitInstance(ctx context.Context, tid, pid, iid string, reassign bool) (bool, error)
}

// SubmissionStore persists the append-only submission ledger.
type SubmissionStore interface {
	// RecordIfFirst appends the submission only if the user has no prior
	// correct submission recorded anywhere. The check and the insert are a
	// single atomic write. It reports whether the row was recorded.
	RecordIfFirst(ctx context.Context, submission domain.Submission) (bool, error)
	HasCorrectSubmission(ctx context.Context, filter SubmissionFilter) (bool, error)
	// Submissions lists matching ledger entries in insertion order.
	Submissions(ctx context.Context, filter SubmissionFilter) ([]domain.Submission, error)
	CountSubmissions(ctx context.Context, filter SubmissionFilter) (int, error)
	// SetCorrectByKey bulk-applies a regraded correctness to every ledger
	// entry bearing the exact key value, across all problems and teams.
	SetCorrectByKey(ctx context.Context, key string, correct bool) (int64, error)
	// InvalidateSubmissions marks matching entries incorrect.
	InvalidateSubmissions(ctx context.Context, filter SubmissionFilter) error
	// ClearSubmissions deletes matching entries. An empty filter deletes
	// the whole ledger; callers gate that behind debug configuration.
	ClearSubmissions(ctx context.Context, filter SubmissionFilter) error
}

// Store aggregates every persistence contract the engine consumes.
type Store interface {
	ProblemStore
	BundleStore
	TeamStore
	SubmissionStore
}
