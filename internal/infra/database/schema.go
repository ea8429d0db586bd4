package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const schema = `
CREATE TABLE IF NOT EXISTS teams (
    id                       BIGSERIAL PRIMARY KEY,
    name                     TEXT NOT NULL,
    automation_enabled       BOOLEAN NOT NULL DEFAULT FALSE,
    schedule_time            TEXT NOT NULL DEFAULT '',
    timezone                 TEXT NOT NULL DEFAULT 'UTC',
    participants             BIGINT[] NOT NULL DEFAULT '{}',
    channel_id               BIGINT NOT NULL DEFAULT 0,
    response_timeout_minutes INT NOT NULL DEFAULT 120,
    last_run_date            DATE,
    created_at               TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at               TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS members (
    id          BIGSERIAL PRIMARY KEY,
    telegram_id BIGINT NOT NULL,
    first_name  TEXT NOT NULL,
    last_name   TEXT,
    is_active   BOOLEAN NOT NULL DEFAULT TRUE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT members_telegram_id_key UNIQUE (telegram_id)
);

CREATE TABLE IF NOT EXISTS standup_responses (
    id            BIGSERIAL PRIMARY KEY,
    team_id       BIGINT NOT NULL REFERENCES teams(id),
    user_id       BIGINT NOT NULL,
    response_date DATE NOT NULL,
    yesterday     VARCHAR(500) NOT NULL DEFAULT '',
    today         VARCHAR(500) NOT NULL DEFAULT '',
    blockers      VARCHAR(500) NOT NULL DEFAULT '',
    status        TEXT NOT NULL DEFAULT 'pending',
    submitted_at  TIMESTAMPTZ,
    edited_at     TIMESTAMPTZ,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT standup_responses_team_user_date_unique UNIQUE (team_id, user_id, response_date)
);

CREATE INDEX IF NOT EXISTS standup_responses_user_date_idx ON standup_responses (user_id, response_date);

CREATE TABLE IF NOT EXISTS standup_sessions (
    id                  UUID PRIMARY KEY,
    team_id             BIGINT NOT NULL REFERENCES teams(id),
    session_date        DATE NOT NULL,
    triggered_at        TIMESTAMPTZ NOT NULL,
    escalation_deadline TIMESTAMPTZ NOT NULL,
    escalated_at        TIMESTAMPTZ,
    CONSTRAINT standup_sessions_team_date_unique UNIQUE (team_id, session_date)
);

CREATE INDEX IF NOT EXISTS standup_sessions_due_idx ON standup_sessions (escalation_deadline) WHERE escalated_at IS NULL;
`

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// dateParam formats a day for DATE columns so the server timezone cannot shift it.
func dateParam(t time.Time) string {
	return t.Format("2006-01-02")
}

// localDate turns a scanned DATE into local midnight.
func localDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func ptrNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
