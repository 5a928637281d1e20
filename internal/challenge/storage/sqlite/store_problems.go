package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/flagforge/flagforge/internal/challenge/domain"
	"github.com/flagforge/flagforge/internal/challenge/storage"
)

const problemColumns = `pid, name, sanitized_name, category, score, author,
       description, version, organization, disabled, hints, tags`

// PutProblem inserts or replaces a problem together with its instance list.
func (s *Store) PutProblem(ctx context.Context, problem domain.Problem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(problem.PID) == "" {
		return fmt.Errorf("problem pid is required")
	}

	hints, err := marshalStrings(problem.Hints)
	if err != nil {
		return err
	}
	tags, err := marshalStrings(problem.Tags)
	if err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put problem: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO problems (
		   pid, name, sanitized_name, category, score, author,
		   description, version, organization, disabled, hints, tags
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(pid) DO UPDATE SET
		   name = excluded.name,
		   sanitized_name = excluded.sanitized_name,
		   category = excluded.category,
		   score = excluded.score,
		   author = excluded.author,
		   description = excluded.description,
		   version = excluded.version,
		   organization = excluded.organization,
		   disabled = excluded.disabled,
		   hints = excluded.hints,
		   tags = excluded.tags`,
		problem.PID,
		problem.Name,
		problem.SanitizedName,
		problem.Category,
		problem.Score,
		problem.Author,
		problem.Description,
		problem.Version,
		problem.Organization,
		boolToInt(problem.Disabled),
		hints,
		tags,
	)
	if err != nil {
		if isUniqueViolation(err, "problems.name") {
			return storage.ErrDuplicateName
		}
		return fmt.Errorf("put problem: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM instances WHERE pid = ?`, problem.PID); err != nil {
		return fmt.Errorf("replace instances: %w", err)
	}
	for _, instance := range problem.Instances {
		_, err := tx.ExecContext(
			ctx,
			`INSERT INTO instances (
			   iid, pid, instance_number, sid, server_number,
			   flag, description, port, server
			 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			instance.IID,
			problem.PID,
			instance.InstanceNumber,
			instance.SID,
			instance.ServerNumber,
			instance.Flag,
			instance.Description,
			instance.Port,
			instance.Server,
		)
		if err != nil {
			return fmt.Errorf("put instance %s: %w", instance.IID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put problem: %w", err)
	}
	return nil
}

// Problem returns one problem by pid, including its instances.
func (s *Store) Problem(ctx context.Context, pid string) (domain.Problem, error) {
	return s.problemBy(ctx, "pid", pid)
}

// ProblemByName returns one problem by display name, including its instances.
func (s *Store) ProblemByName(ctx context.Context, name string) (domain.Problem, error) {
	return s.problemBy(ctx, "name", name)
}

func (s *Store) problemBy(ctx context.Context, column, value string) (domain.Problem, error) {
	if err := ctx.Err(); err != nil {
		return domain.Problem{}, err
	}
	if err := s.ready(); err != nil {
		return domain.Problem{}, err
	}
	if strings.TrimSpace(value) == "" {
		return domain.Problem{}, fmt.Errorf("problem %s is required", column)
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+problemColumns+` FROM problems WHERE `+column+` = ?`,
		value,
	)
	problem, err := scanProblem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Problem{}, storage.ErrNotFound
		}
		return domain.Problem{}, fmt.Errorf("get problem: %w", err)
	}

	instances, err := s.instancesFor(ctx, problem.PID)
	if err != nil {
		return domain.Problem{}, err
	}
	problem.Instances = instances
	return problem, nil
}

// Problems lists problems sorted by (score, name).
func (s *Store) Problems(ctx context.Context, filter storage.ProblemFilter) ([]domain.Problem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	query := `SELECT ` + problemColumns + ` FROM problems`
	var clauses []string
	var args []any
	if filter.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, filter.Category)
	}
	if !filter.ShowDisabled {
		clauses = append(clauses, "disabled = 0")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY score ASC, name ASC"

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	defer rows.Close()

	var problems []domain.Problem
	for rows.Next() {
		problem, err := scanProblem(rows)
		if err != nil {
			return nil, fmt.Errorf("list problems: %w", err)
		}
		problems = append(problems, problem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}

	for i := range problems {
		instances, err := s.instancesFor(ctx, problems[i].PID)
		if err != nil {
			return nil, err
		}
		problems[i].Instances = instances
	}
	return problems, nil
}

// DeleteProblem removes a problem and its instances.
func (s *Store) DeleteProblem(ctx context.Context, pid string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM problems WHERE pid = ?`, pid)
	if err != nil {
		return fmt.Errorf("delete problem: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete problem: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Categories returns the distinct problem categories.
func (s *Store) Categories(ctx context.Context, showDisabled bool) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	query := `SELECT DISTINCT category FROM problems`
	if !showDisabled {
		query += ` WHERE disabled = 0`
	}
	query += ` ORDER BY category ASC`

	rows, err := s.sqlDB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *Store) instancesFor(ctx context.Context, pid string) ([]domain.Instance, error) {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT iid, instance_number, sid, server_number, flag, description, port, server
		   FROM instances
		  WHERE pid = ?
		  ORDER BY sid ASC, instance_number ASC`,
		pid,
	)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()

	var instances []domain.Instance
	for rows.Next() {
		var instance domain.Instance
		if err := rows.Scan(
			&instance.IID,
			&instance.InstanceNumber,
			&instance.SID,
			&instance.ServerNumber,
			&instance.Flag,
			&instance.Description,
			&instance.Port,
			&instance.Server,
		); err != nil {
			return nil, fmt.Errorf("list instances: %w", err)
		}
		instances = append(instances, instance)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	return instances, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProblem(row rowScanner) (domain.Problem, error) {
	var problem domain.Problem
	var disabled int
	var hints string
	var tags string
	if err := row.Scan(
		&problem.PID,
		&problem.Name,
		&problem.SanitizedName,
		&problem.Category,
		&problem.Score,
		&problem.Author,
		&problem.Description,
		&problem.Version,
		&problem.Organization,
		&disabled,
		&hints,
		&tags,
	); err != nil {
		return domain.Problem{}, err
	}
	problem.Disabled = disabled != 0

	var err error
	if problem.Hints, err = unmarshalStrings(hints); err != nil {
		return domain.Problem{}, err
	}
	if problem.Tags, err = unmarshalStrings(tags); err != nil {
		return domain.Problem{}, err
	}
	return problem, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
