package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/flagforge/flagforge/internal/challenge/domain"
	"github.com/flagforge/flagforge/internal/challenge/storage"
)

// RecordIfFirst appends the submission unless the user already has a correct
// submission recorded anywhere. The existence check and the insert are one
// statement, so two concurrent first-correct submissions by the same user
// cannot both be recorded.
func (s *Store) RecordIfFirst(ctx context.Context, submission domain.Submission) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := s.ready(); err != nil {
		return false, err
	}
	if submission.UID == "" || submission.TID == "" || submission.PID == "" {
		return false, fmt.Errorf("uid, tid, and pid are required")
	}
	submittedAt := submission.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = time.Now().UTC()
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO submissions (uid, tid, pid, key, method, ip, category, correct, submitted_at)
		 SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?
		  WHERE NOT EXISTS (
		        SELECT 1 FROM submissions WHERE uid = ? AND correct = 1
		  )`,
		submission.UID,
		submission.TID,
		submission.PID,
		submission.Key,
		submission.Method,
		submission.IP,
		submission.Category,
		boolToInt(submission.Correct),
		toMillis(submittedAt),
		submission.UID,
	)
	if err != nil {
		return false, fmt.Errorf("record submission: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record submission: %w", err)
	}
	return affected > 0, nil
}

// HasCorrectSubmission reports whether any entry matches the filter with
// correct forced to true.
func (s *Store) HasCorrectSubmission(ctx context.Context, filter storage.SubmissionFilter) (bool, error) {
	correct := true
	filter.Correct = &correct
	count, err := s.CountSubmissions(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Submissions lists matching ledger entries in insertion order.
func (s *Store) Submissions(ctx context.Context, filter storage.SubmissionFilter) ([]domain.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	where, args := submissionWhere(filter)
	query := `SELECT id, uid, tid, pid, key, method, ip, category, correct, submitted_at
	            FROM submissions` + where + ` ORDER BY id ASC`

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var submissions []domain.Submission
	for rows.Next() {
		var submission domain.Submission
		var correct int
		var submittedAt int64
		if err := rows.Scan(
			&submission.ID,
			&submission.UID,
			&submission.TID,
			&submission.PID,
			&submission.Key,
			&submission.Method,
			&submission.IP,
			&submission.Category,
			&correct,
			&submittedAt,
		); err != nil {
			return nil, fmt.Errorf("list submissions: %w", err)
		}
		submission.Correct = correct != 0
		submission.SubmittedAt = fromMillis(submittedAt)
		submissions = append(submissions, submission)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// CountSubmissions counts matching ledger entries.
func (s *Store) CountSubmissions(ctx context.Context, filter storage.SubmissionFilter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}

	where, args := submissionWhere(filter)
	var count int
	row := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM submissions`+where, args...)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return count, nil
}

// SetCorrectByKey bulk-applies a regraded correctness to every entry bearing
// the exact key value, across all problems and teams.
func (s *Store) SetCorrectByKey(ctx context.Context, key string, correct bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE submissions SET correct = ? WHERE key = ?`,
		boolToInt(correct), key,
	)
	if err != nil {
		return 0, fmt.Errorf("set correct by key: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("set correct by key: %w", err)
	}
	return affected, nil
}

// InvalidateSubmissions marks matching entries incorrect.
func (s *Store) InvalidateSubmissions(ctx context.Context, filter storage.SubmissionFilter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	where, args := submissionWhere(filter)
	if _, err := s.sqlDB.ExecContext(ctx, `UPDATE submissions SET correct = 0`+where, args...); err != nil {
		return fmt.Errorf("invalidate submissions: %w", err)
	}
	return nil
}

// ClearSubmissions deletes matching entries. An empty filter deletes the
// whole ledger.
func (s *Store) ClearSubmissions(ctx context.Context, filter storage.SubmissionFilter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	where, args := submissionWhere(filter)
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM submissions`+where, args...); err != nil {
		return fmt.Errorf("clear submissions: %w", err)
	}
	return nil
}

func submissionWhere(filter storage.SubmissionFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.UID != "" {
		clauses = append(clauses, "uid = ?")
		args = append(args, filter.UID)
	}
	if filter.TID != "" {
		clauses = append(clauses, "tid = ?")
		args = append(args, filter.TID)
	}
	if filter.PID != "" {
		clauses = append(clauses, "pid = ?")
		args = append(args, filter.PID)
	}
	if filter.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Key != "" {
		clauses = append(clauses, "key = ?")
		args = append(args, filter.Key)
	}
	if filter.Correct != nil {
		clauses = append(clauses, "correct = ?")
		args = append(args, boolToInt(*filter.Correct))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
