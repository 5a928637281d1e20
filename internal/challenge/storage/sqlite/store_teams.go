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

// PutTeam inserts or replaces a team record.
func (s *Store) PutTeam(ctx context.Context, team domain.Team) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(team.TID) == "" {
		return fmt.Errorf("team tid is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO teams (tid, name, server_number) VALUES (?, ?, ?)
		 ON CONFLICT(tid) DO UPDATE SET
		   name = excluded.name,
		   server_number = excluded.server_number`,
		team.TID, team.Name, team.ServerNumber,
	)
	if err != nil {
		return fmt.Errorf("put team: %w", err)
	}
	return nil
}

// Team returns one team by tid.
func (s *Store) Team(ctx context.Context, tid string) (domain.Team, error) {
	if err := ctx.Err(); err != nil {
		return domain.Team{}, err
	}
	if err := s.ready(); err != nil {
		return domain.Team{}, err
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT tid, name, server_number FROM teams WHERE tid = ?`,
		tid,
	)
	var team domain.Team
	if err := row.Scan(&team.TID, &team.Name, &team.ServerNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Team{}, storage.ErrNotFound
		}
		return domain.Team{}, fmt.Errorf("get team: %w", err)
	}
	return team, nil
}

// PutUser inserts or replaces a user record.
func (s *Store) PutUser(ctx context.Context, user domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(user.UID) == "" {
		return fmt.Errorf("user uid is required")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO users (uid, tid, name) VALUES (?, ?, ?)
		 ON CONFLICT(uid) DO UPDATE SET
		   tid = excluded.tid,
		   name = excluded.name`,
		user.UID, user.TID, user.Name,
	)
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// User returns one user by uid.
func (s *Store) User(ctx context.Context, uid string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	if err := s.ready(); err != nil {
		return domain.User{}, err
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT uid, tid, name FROM users WHERE uid = ?`,
		uid,
	)
	var user domain.User
	if err := row.Scan(&user.UID, &user.TID, &user.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, storage.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// TeamInstances returns the team's committed pid to iid mapping.
func (s *Store) TeamInstances(ctx context.Context, tid string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT pid, iid FROM team_instances WHERE tid = ?`,
		tid,
	)
	if err != nil {
		return nil, fmt.Errorf("list team instances: %w", err)
	}
	defer rows.Close()

	instances := make(map[string]string)
	for rows.Next() {
		var pid, iid string
		if err := rows.Scan(&pid, &iid); err != nil {
			return nil, fmt.Errorf("list team instances: %w", err)
		}
		instances[pid] = iid
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list team instances: %w", err)
	}
	return instances, nil
}

// CommitInstance records the instance handed to a team for a problem. The
// write is a single conditional statement so concurrent assigners cannot
// both land a commit for the same (tid, pid).
func (s *Store) CommitInstance(ctx context.Context, tid, pid, iid string, reassign bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := s.ready(); err != nil {
		return false, err
	}
	if tid == "" || pid == "" || iid == "" {
		return false, fmt.Errorf("tid, pid, and iid are required")
	}

	query := `INSERT INTO team_instances (tid, pid, iid) VALUES (?, ?, ?)
	          ON CONFLICT(tid, pid) DO NOTHING`
	if reassign {
		query = `INSERT INTO team_instances (tid, pid, iid) VALUES (?, ?, ?)
		         ON CONFLICT(tid, pid) DO UPDATE SET iid = excluded.iid`
	}

	result, err := s.sqlDB.ExecContext(ctx, query, tid, pid, iid)
	if err != nil {
		return false, fmt.Errorf("commit instance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("commit instance: %w", err)
	}
	return affected > 0, nil
}
