package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"standup_bot/internal/domain/team"

	"github.com/lib/pq" // For pq.Array
)

type PostgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) *PostgresTeamRepository {
	return &PostgresTeamRepository{db: db}
}

const teamColumns = `id, name, automation_enabled, schedule_time, timezone, participants, channel_id,
       response_timeout_minutes, last_run_date, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTeam(row rowScanner) (*team.Team, error) {
	t := &team.Team{}
	var participants pq.Int64Array
	var lastRun sql.NullTime
	err := row.Scan(&t.ID, &t.Name, &t.Automation.Enabled, &t.Automation.ScheduleTime, &t.Automation.Timezone,
		&participants, &t.Automation.ChannelID, &t.Automation.ResponseTimeoutMinutes, &lastRun,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Automation.Participants = []int64(participants)
	if lastRun.Valid {
		d := localDate(lastRun.Time)
		t.Automation.LastRunDate = &d
	}
	return t, nil
}

func (r *PostgresTeamRepository) Create(ctx context.Context, t *team.Team) error {
	query := `INSERT INTO teams (name, automation_enabled, schedule_time, timezone, participants, channel_id, response_timeout_minutes)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING id, created_at, updated_at`
	a := t.Automation
	err := r.db.QueryRowContext(ctx, query, t.Name, a.Enabled, a.ScheduleTime, a.Timezone,
		pq.Array(a.Participants), a.ChannelID, a.ResponseTimeoutMinutes).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating team: %w", err)
	}
	return nil
}

func (r *PostgresTeamRepository) GetByID(ctx context.Context, id int64) (*team.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	t, err := scanTeam(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, team.ErrNotFound
		}
		return nil, fmt.Errorf("error getting team by ID: %w", err)
	}
	return t, nil
}

func (r *PostgresTeamRepository) ListEnabled(ctx context.Context) ([]*team.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE automation_enabled = TRUE ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing enabled teams: %w", err)
	}
	defer rows.Close()

	teams := make([]*team.Team, 0)
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning enabled team: %w", err)
		}
		teams = append(teams, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating enabled teams: %w", err)
	}
	return teams, nil
}

func (r *PostgresTeamRepository) UpdateAutomation(ctx context.Context, id int64, cfg team.AutomationConfig) error {
	query := `UPDATE teams
               SET automation_enabled = $1, schedule_time = $2, timezone = $3, participants = $4,
                   channel_id = $5, response_timeout_minutes = $6, updated_at = NOW()
               WHERE id = $7`
	res, err := r.db.ExecContext(ctx, query, cfg.Enabled, cfg.ScheduleTime, cfg.Timezone,
		pq.Array(cfg.Participants), cfg.ChannelID, cfg.ResponseTimeoutMinutes, id)
	if err != nil {
		return fmt.Errorf("error updating team automation: %w", err)
	}
	return expectOneRow(res, team.ErrNotFound)
}

func (r *PostgresTeamRepository) SetLastRunDate(ctx context.Context, id int64, day time.Time) error {
	query := `UPDATE teams SET last_run_date = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, dateParam(day), id)
	if err != nil {
		return fmt.Errorf("error setting team last run date: %w", err)
	}
	return expectOneRow(res, team.ErrNotFound)
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
