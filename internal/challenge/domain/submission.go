package domain

import (
	"strings"
	"time"

	"github.com/flagforge/flagforge/internal/errors"
)

// Submission is one recorded attempt in the append-only ledger. Correct is
// recomputed by grading, never trusted from input, and may be retroactively
// corrected by reevaluation.
type Submission struct {
	ID          int64
	UID         string
	TID         string
	PID         string
	Key         string
	Method      string
	IP          string
	Category    string
	Correct     bool
	SubmittedAt time.Time
}

// ValidateSubmission checks the shape of an incoming submission payload.
func ValidateSubmission(tid, pid, key string) error {
	if strings.TrimSpace(tid) == "" || len(tid) > maxFieldLength {
		return errors.New(errors.CodeValidation, "this does not look like a valid tid")
	}
	if strings.TrimSpace(pid) == "" || len(pid) > maxFieldLength {
		return errors.New(errors.CodeValidation, "this does not look like a valid pid")
	}
	if strings.TrimSpace(key) == "" || len(key) > maxFieldLength {
		return errors.New(errors.CodeValidation, "this does not look like a valid key")
	}
	return nil
}

// Grade reports whether the submitted key solves the instance. Grading is
// substring-based: the key is correct if it contains the instance flag. A
// non-empty debug override key is accepted for any problem.
func Grade(flag, key, debugKey string) bool {
	if flag != "" && strings.Contains(key, flag) {
		return true
	}
	return debugKey != "" && strings.Contains(key, debugKey)
}
