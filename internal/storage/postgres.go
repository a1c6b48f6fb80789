package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackfest-platform/registration-engine/internal/models"
)

// maxAllocationAttempts bounds how often one allocation cycle is re-run
// after a serialization conflict before ErrContention is reported.
const maxAllocationAttempts = 5

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresStore creates a new PostgreSQL-backed store
func NewPostgresStore(ctx context.Context, cfg PostgresConfig) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25 // default
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 5 // default
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the database connection pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Allocate runs fn inside a SERIALIZABLE transaction over groups, titles
// and teams. When a concurrent allocation committed between our read and
// write, Postgres aborts the transaction, either with a serialization
// failure or with a unique violation when the racing insert reached one
// of the teams constraints first. Both re-run the whole cycle against the
// new state, where the validation reads observe the winner's commit and
// return the precise rejection. Validation errors from fn roll the
// transaction back and are returned unchanged.
func (s *PostgresStore) Allocate(ctx context.Context, fn func(tx AllocationTx) error) error {
	var lastErr error

	for attempt := 1; attempt <= maxAllocationAttempts; attempt++ {
		err := s.runAllocation(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryableAllocation(err) {
			return err
		}

		lastErr = err
		slog.Debug("allocation conflict, retrying", "attempt", attempt)
	}

	return fmt.Errorf("%w: %v", ErrContention, lastErr)
}

func (s *PostgresStore) runAllocation(ctx context.Context, fn func(tx AllocationTx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("failed to begin allocation transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgxAllocationTx{tx: tx}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// isRetryableAllocation reports whether err means a concurrent writer
// beat this allocation cycle: a serialization failure, a deadlock, or a
// unique violation from the teams constraints. All three resolve
// deterministically on re-run, since the fresh snapshot sees the
// winner's committed state.
func isRetryableAllocation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01" || pgErr.Code == "23505"
	}
	return false
}

// pgxAllocationTx adapts one pgx transaction to the AllocationTx contract.
type pgxAllocationTx struct {
	tx pgx.Tx
}

func (a *pgxAllocationTx) GetGroup(ctx context.Context, number string) (*models.Group, error) {
	query := `
		SELECT group_number, secret_code, is_assigned, created_at
		FROM groups
		WHERE group_number = $1
	`

	var g models.Group
	err := a.tx.QueryRow(ctx, query, number).Scan(&g.Number, &g.SecretCode, &g.IsAssigned, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return &g, nil
}

func (a *pgxAllocationTx) GetTitle(ctx context.Context, title string) (*models.Title, error) {
	query := `
		SELECT title, assigned, created_at
		FROM titles
		WHERE title = $1
	`

	var t models.Title
	err := a.tx.QueryRow(ctx, query, title).Scan(&t.Title, &t.Assigned, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get title: %w", err)
	}

	return &t, nil
}

func (a *pgxAllocationTx) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	return scanTeam(a.tx.QueryRow(ctx, teamSelect+` WHERE id = $1`, id))
}

func (a *pgxAllocationTx) MarkGroupAssigned(ctx context.Context, number string) error {
	result, err := a.tx.Exec(ctx, `UPDATE groups SET is_assigned = TRUE WHERE group_number = $1`, number)
	if err != nil {
		return fmt.Errorf("failed to mark group assigned: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("group not found: %s", number)
	}

	return nil
}

func (a *pgxAllocationTx) MarkTitleAssigned(ctx context.Context, title string) error {
	result, err := a.tx.Exec(ctx, `UPDATE titles SET assigned = TRUE WHERE title = $1`, title)
	if err != nil {
		return fmt.Errorf("failed to mark title assigned: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("title not found: %s", title)
	}

	return nil
}

func (a *pgxAllocationTx) CreateTeam(ctx context.Context, team *models.Team) error {
	membersJSON, err := json.Marshal(team.Members)
	if err != nil {
		return fmt.Errorf("failed to marshal members: %w", err)
	}

	query := `
		INSERT INTO teams (id, leader_email, leader_name, college, contact, team_name, members, group_number, project_title, location_mode, confirmation_code, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = a.tx.Exec(ctx, query,
		team.ID,
		team.LeaderEmail,
		team.LeaderName,
		team.College,
		team.Contact,
		team.TeamName,
		membersJSON,
		team.GroupNumber,
		team.ProjectTitle,
		team.LocationMode,
		team.Confirmation,
		team.RegisteredAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}

	return nil
}

// --- Plain reads and seeding writes ---

const teamSelect = `
	SELECT id, leader_email, leader_name, college, contact, team_name, members, group_number, project_title, location_mode, confirmation_code, registered_at
	FROM teams`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTeam(row rowScanner) (*models.Team, error) {
	var t models.Team
	var membersJSON []byte

	err := row.Scan(
		&t.ID,
		&t.LeaderEmail,
		&t.LeaderName,
		&t.College,
		&t.Contact,
		&t.TeamName,
		&membersJSON,
		&t.GroupNumber,
		&t.ProjectTitle,
		&t.LocationMode,
		&t.Confirmation,
		&t.RegisteredAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan team: %w", err)
	}

	if err := json.Unmarshal(membersJSON, &t.Members); err != nil {
		return nil, fmt.Errorf("failed to unmarshal members: %w", err)
	}

	return &t, nil
}

// GetGroup retrieves a group by number
func (s *PostgresStore) GetGroup(ctx context.Context, number string) (*models.Group, error) {
	query := `
		SELECT group_number, secret_code, is_assigned, created_at
		FROM groups
		WHERE group_number = $1
	`

	var g models.Group
	err := s.pool.QueryRow(ctx, query, number).Scan(&g.Number, &g.SecretCode, &g.IsAssigned, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return &g, nil
}

// GetTeam retrieves a team by its normalized leader key
func (s *PostgresStore) GetTeam(ctx context.Context, id string) (*models.Team, error) {
	return scanTeam(s.pool.QueryRow(ctx, teamSelect+` WHERE id = $1`, id))
}

// ListGroups returns all groups ordered by number
func (s *PostgresStore) ListGroups(ctx context.Context) ([]*models.Group, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT group_number, secret_code, is_assigned, created_at
		FROM groups
		ORDER BY group_number
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.Number, &g.SecretCode, &g.IsAssigned, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, &g)
	}

	return groups, rows.Err()
}

// ListTitles returns all titles ordered by title text
func (s *PostgresStore) ListTitles(ctx context.Context) ([]*models.Title, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT title, assigned, created_at
		FROM titles
		ORDER BY title
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list titles: %w", err)
	}
	defer rows.Close()

	var titles []*models.Title
	for rows.Next() {
		var t models.Title
		if err := rows.Scan(&t.Title, &t.Assigned, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan title: %w", err)
		}
		titles = append(titles, &t)
	}

	return titles, rows.Err()
}

// ListTeams returns all registered teams, newest first
func (s *PostgresStore) ListTeams(ctx context.Context) ([]*models.Team, error) {
	rows, err := s.pool.Query(ctx, teamSelect+` ORDER BY registered_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []*models.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}

	return teams, rows.Err()
}

// CreateGroup inserts a new unassigned group
func (s *PostgresStore) CreateGroup(ctx context.Context, group *models.Group) error {
	query := `
		INSERT INTO groups (group_number, secret_code, is_assigned, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query, group.Number, group.SecretCode, group.IsAssigned, group.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create group: %w", err)
	}

	return nil
}

// CreateTitle inserts a new unassigned title
func (s *PostgresStore) CreateTitle(ctx context.Context, title *models.Title) error {
	query := `
		INSERT INTO titles (title, assigned, created_at)
		VALUES ($1, $2, $3)
	`

	_, err := s.pool.Exec(ctx, query, title.Title, title.Assigned, title.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create title: %w", err)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
