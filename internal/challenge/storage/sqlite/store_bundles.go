package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/flagforge/flagforge/internal/challenge/domain"
	"github.com/flagforge/flagforge/internal/challenge/storage"
)

// PutBundle inserts or replaces a bundle with its member list and rules.
func (s *Store) PutBundle(ctx context.Context, bundle domain.Bundle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(bundle.BID) == "" {
		return fmt.Errorf("bundle bid is required")
	}

	categories, err := marshalStrings(bundle.Categories)
	if err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put bundle: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO bundles (bid, name, author, description, categories, dependencies_enabled)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(bid) DO UPDATE SET
		   name = excluded.name,
		   author = excluded.author,
		   description = excluded.description,
		   categories = excluded.categories,
		   dependencies_enabled = excluded.dependencies_enabled`,
		bundle.BID,
		bundle.Name,
		bundle.Author,
		bundle.Description,
		categories,
		boolToInt(bundle.DependenciesEnabled),
	)
	if err != nil {
		return fmt.Errorf("put bundle: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bundle_problems WHERE bid = ?`, bundle.BID); err != nil {
		return fmt.Errorf("replace bundle problems: %w", err)
	}
	for position, name := range bundle.Problems {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO bundle_problems (bid, sanitized_name, position) VALUES (?, ?, ?)`,
			bundle.BID, name, position,
		); err != nil {
			return fmt.Errorf("put bundle problem %s: %w", name, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM bundle_dependencies WHERE bid = ?`, bundle.BID); err != nil {
		return fmt.Errorf("replace bundle dependencies: %w", err)
	}
	for name, rule := range bundle.Dependencies {
		weightmap, err := json.Marshal(rule.Weightmap)
		if err != nil {
			return fmt.Errorf("marshal weightmap for %s: %w", name, err)
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO bundle_dependencies (bid, sanitized_name, threshold, weightmap)
			 VALUES (?, ?, ?, ?)`,
			bundle.BID, name, rule.Threshold, string(weightmap),
		); err != nil {
			return fmt.Errorf("put bundle dependency %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put bundle: %w", err)
	}
	return nil
}

// Bundle returns one bundle by bid.
func (s *Store) Bundle(ctx context.Context, bid string) (domain.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return domain.Bundle{}, err
	}
	if err := s.ready(); err != nil {
		return domain.Bundle{}, err
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT bid, name, author, description, categories, dependencies_enabled
		   FROM bundles WHERE bid = ?`,
		bid,
	)
	bundle, err := scanBundle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Bundle{}, storage.ErrNotFound
		}
		return domain.Bundle{}, fmt.Errorf("get bundle: %w", err)
	}
	if err := s.loadBundleRelations(ctx, &bundle); err != nil {
		return domain.Bundle{}, err
	}
	return bundle, nil
}

// Bundles returns every bundle.
func (s *Store) Bundles(ctx context.Context) ([]domain.Bundle, error) {
	return s.bundlesWhere(ctx, "", nil)
}

// BundlesForProblem returns the bundles containing the given sanitized name,
// resolved through the bundle_problems index.
func (s *Store) BundlesForProblem(ctx context.Context, sanitizedName string) ([]domain.Bundle, error) {
	return s.bundlesWhere(
		ctx,
		`WHERE bid IN (SELECT bid FROM bundle_problems WHERE sanitized_name = ?)`,
		[]any{sanitizedName},
	)
}

func (s *Store) bundlesWhere(ctx context.Context, where string, args []any) ([]domain.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	query := `SELECT bid, name, author, description, categories, dependencies_enabled FROM bundles`
	if where != "" {
		query += " " + where
	}
	query += ` ORDER BY name ASC`

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bundles: %w", err)
	}
	defer rows.Close()

	var bundles []domain.Bundle
	for rows.Next() {
		bundle, err := scanBundle(rows)
		if err != nil {
			return nil, fmt.Errorf("list bundles: %w", err)
		}
		bundles = append(bundles, bundle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bundles: %w", err)
	}

	for i := range bundles {
		if err := s.loadBundleRelations(ctx, &bundles[i]); err != nil {
			return nil, err
		}
	}
	return bundles, nil
}

func (s *Store) loadBundleRelations(ctx context.Context, bundle *domain.Bundle) error {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT sanitized_name FROM bundle_problems WHERE bid = ? ORDER BY position ASC`,
		bundle.BID,
	)
	if err != nil {
		return fmt.Errorf("list bundle problems: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("list bundle problems: %w", err)
		}
		bundle.Problems = append(bundle.Problems, name)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list bundle problems: %w", err)
	}

	depRows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT sanitized_name, threshold, weightmap FROM bundle_dependencies WHERE bid = ?`,
		bundle.BID,
	)
	if err != nil {
		return fmt.Errorf("list bundle dependencies: %w", err)
	}
	defer depRows.Close()
	for depRows.Next() {
		var name string
		var rule domain.DependencyRule
		var weightmap string
		if err := depRows.Scan(&name, &rule.Threshold, &weightmap); err != nil {
			return fmt.Errorf("list bundle dependencies: %w", err)
		}
		if err := json.Unmarshal([]byte(weightmap), &rule.Weightmap); err != nil {
			return fmt.Errorf("unmarshal weightmap for %s: %w", name, err)
		}
		if bundle.Dependencies == nil {
			bundle.Dependencies = make(map[string]domain.DependencyRule)
		}
		bundle.Dependencies[name] = rule
	}
	if err := depRows.Err(); err != nil {
		return fmt.Errorf("list bundle dependencies: %w", err)
	}
	return nil
}

func scanBundle(row rowScanner) (domain.Bundle, error) {
	var bundle domain.Bundle
	var categories string
	var enabled int
	if err := row.Scan(
		&bundle.BID,
		&bundle.Name,
		&bundle.Author,
		&bundle.Description,
		&categories,
		&enabled,
	); err != nil {
		return domain.Bundle{}, err
	}
	bundle.DependenciesEnabled = enabled != 0

	var err error
	if bundle.Categories, err = unmarshalStrings(categories); err != nil {
		return domain.Bundle{}, err
	}
	return bundle, nil
}
