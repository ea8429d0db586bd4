package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"standup_bot/internal/domain/standup"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

type PostgresResponseRepository struct {
	db *sql.DB
}

func NewPostgresResponseRepository(db *sql.DB) *PostgresResponseRepository {
	return &PostgresResponseRepository{db: db}
}

const responseColumns = `id, team_id, user_id, response_date, yesterday, today, blockers, status,
       submitted_at, edited_at, created_at, updated_at`

func scanResponses(rows *sql.Rows) ([]*standup.ResponseRecord, error) {
	records := make([]*standup.ResponseRecord, 0)
	for rows.Next() {
		rec := standup.ResponseRecord{}
		var submittedAt, editedAt sql.NullTime
		if err := rows.Scan(
			&rec.ID, &rec.TeamID, &rec.UserID, &rec.Date, &rec.Yesterday, &rec.Today, &rec.Blockers,
			&rec.Status, &submittedAt, &editedAt, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning standup response row: %w", err)
		}
		rec.Date = localDate(rec.Date)
		rec.SubmittedAt = nullTimePtr(submittedAt)
		rec.EditedAt = nullTimePtr(editedAt)
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating standup response rows: %w", err)
	}
	return records, nil
}

func (r *PostgresResponseRepository) BulkCreate(ctx context.Context, records []*standup.ResponseRecord) error {
	if len(records) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for bulk create: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	stmt, err := txn.PrepareContext(ctx, `INSERT INTO standup_responses (team_id, user_id, response_date, status)
                                         VALUES ($1, $2, $3, $4)
                                         RETURNING id, created_at, updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for bulk create: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		err := stmt.QueryRowContext(ctx, rec.TeamID, rec.UserID, dateParam(rec.Date), rec.Status).
			Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("bulk create (T:%d, U:%d): %w", rec.TeamID, rec.UserID, standup.ErrDuplicateRecord)
			}
			return fmt.Errorf("error executing statement for bulk create (T:%d, U:%d): %w", rec.TeamID, rec.UserID, err)
		}
	}

	return txn.Commit()
}

func (r *PostgresResponseRepository) ExistsForTeamDate(ctx context.Context, teamID int64, date time.Time) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM standup_responses WHERE team_id = $1 AND response_date = $2)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, teamID, dateParam(date)).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking standup responses: %w", err)
	}
	return exists, nil
}

func (r *PostgresResponseRepository) ListByTeamDate(ctx context.Context, teamID int64, date time.Time) ([]*standup.ResponseRecord, error) {
	query := `SELECT ` + responseColumns + `
               FROM standup_responses
               WHERE team_id = $1 AND response_date = $2 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, teamID, dateParam(date))
	if err != nil {
		return nil, fmt.Errorf("error querying standup responses by team and date: %w", err)
	}
	defer rows.Close()
	return scanResponses(rows)
}

func (r *PostgresResponseRepository) ListByUserDate(ctx context.Context, userID int64, date time.Time) ([]*standup.ResponseRecord, error) {
	query := `SELECT ` + responseColumns + `
               FROM standup_responses
               WHERE user_id = $1 AND response_date = $2 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, userID, dateParam(date))
	if err != nil {
		return nil, fmt.Errorf("error querying standup responses by user and date: %w", err)
	}
	defer rows.Close()
	return scanResponses(rows)
}

func (r *PostgresResponseRepository) Update(ctx context.Context, rec *standup.ResponseRecord) error {
	query := `UPDATE standup_responses
               SET yesterday = $1, today = $2, blockers = $3, status = $4,
                   submitted_at = $5, edited_at = $6, updated_at = NOW()
               WHERE id = $7
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, rec.Yesterday, rec.Today, rec.Blockers, rec.Status,
		ptrNullTime(rec.SubmittedAt), ptrNullTime(rec.EditedAt), rec.ID).Scan(&rec.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return standup.ErrRecordNotFound
		}
		return fmt.Errorf("error updating standup response: %w", err)
	}
	return nil
}

func (r *PostgresResponseRepository) UpdateStatuses(ctx context.Context, teamID int64, date time.Time, from, to standup.Status) (int64, error) {
	query := `UPDATE standup_responses
               SET status = $1, updated_at = NOW()
               WHERE team_id = $2 AND response_date = $3 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, to, teamID, dateParam(date), from)
	if err != nil {
		return 0, fmt.Errorf("error updating standup response statuses: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading affected rows: %w", err)
	}
	return n, nil
}

type PostgresSessionRepository struct {
	db *sql.DB
}

func NewPostgresSessionRepository(db *sql.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

const sessionColumns = `id, team_id, session_date, triggered_at, escalation_deadline, escalated_at`

func scanSession(row rowScanner) (*standup.Session, error) {
	s := &standup.Session{}
	var escalatedAt sql.NullTime
	if err := row.Scan(&s.ID, &s.TeamID, &s.Date, &s.TriggeredAt, &s.EscalationDeadline, &escalatedAt); err != nil {
		return nil, err
	}
	s.Date = localDate(s.Date)
	s.EscalatedAt = nullTimePtr(escalatedAt)
	return s, nil
}

func (r *PostgresSessionRepository) Create(ctx context.Context, s *standup.Session) error {
	query := `INSERT INTO standup_sessions (id, team_id, session_date, triggered_at, escalation_deadline)
               VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, s.ID, s.TeamID, dateParam(s.Date), s.TriggeredAt, s.EscalationDeadline)
	if err != nil {
		if isUniqueViolation(err) {
			return standup.ErrDuplicateSession
		}
		return fmt.Errorf("error creating standup session: %w", err)
	}
	return nil
}

func (r *PostgresSessionRepository) GetByTeamDate(ctx context.Context, teamID int64, date time.Time) (*standup.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM standup_sessions WHERE team_id = $1 AND session_date = $2`
	s, err := scanSession(r.db.QueryRowContext(ctx, query, teamID, dateParam(date)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, standup.ErrSessionNotFound
		}
		return nil, fmt.Errorf("error getting standup session: %w", err)
	}
	return s, nil
}

func (r *PostgresSessionRepository) ListDue(ctx context.Context, now time.Time) ([]*standup.Session, error) {
	query := `SELECT ` + sessionColumns + `
               FROM standup_sessions
               WHERE escalated_at IS NULL AND escalation_deadline <= $1
               ORDER BY escalation_deadline ASC`
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("error querying due standup sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*standup.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning standup session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating standup sessions: %w", err)
	}
	return sessions, nil
}

func (r *PostgresSessionRepository) MarkEscalated(ctx context.Context, id string, at time.Time) (bool, error) {
	query := `UPDATE standup_sessions SET escalated_at = $1 WHERE id = $2 AND escalated_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return false, fmt.Errorf("error marking standup session escalated: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading affected rows: %w", err)
	}
	return n == 1, nil
}
