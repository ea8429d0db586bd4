package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"standup_bot/internal/domain/member"

	"github.com/lib/pq"
)

type PostgresMemberRepository struct {
	db *sql.DB
}

func NewPostgresMemberRepository(db *sql.DB) *PostgresMemberRepository {
	return &PostgresMemberRepository{db: db}
}

const memberColumns = `id, telegram_id, first_name, last_name, is_active, created_at, updated_at`

func scanMember(row rowScanner) (*member.Member, error) {
	m := &member.Member{}
	err := row.Scan(&m.ID, &m.TelegramID, &m.FirstName, &m.LastName, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (r *PostgresMemberRepository) Create(ctx context.Context, m *member.Member) error {
	query := `INSERT INTO members (telegram_id, first_name, last_name, is_active)
               VALUES ($1, $2, $3, $4)
               RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, m.TelegramID, m.FirstName, m.LastName, m.IsActive).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "members_telegram_id_key") {
			return member.ErrDuplicateTelegramID
		}
		return fmt.Errorf("error creating member: %w", err)
	}
	return nil
}

func (r *PostgresMemberRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*member.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE telegram_id = $1`
	m, err := scanMember(r.db.QueryRowContext(ctx, query, telegramID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, member.ErrNotFound
		}
		return nil, fmt.Errorf("error getting member by Telegram ID: %w", err)
	}
	return m, nil
}

func (r *PostgresMemberRepository) Update(ctx context.Context, m *member.Member) error {
	query := `UPDATE members
               SET first_name = $1, last_name = $2, is_active = $3, updated_at = NOW()
               WHERE id = $4
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, m.FirstName, m.LastName, m.IsActive, m.ID).Scan(&m.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return member.ErrNotFound
		}
		return fmt.Errorf("error updating member: %w", err)
	}
	return nil
}

func (r *PostgresMemberRepository) queryMembers(ctx context.Context, query string, args ...any) ([]*member.Member, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing members: %w", err)
	}
	defer rows.Close()

	members := make([]*member.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning member: %w", err)
		}
		members = append(members, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}
	return members, nil
}

func (r *PostgresMemberRepository) ListActive(ctx context.Context) ([]*member.Member, error) {
	return r.queryMembers(ctx, `SELECT `+memberColumns+` FROM members WHERE is_active = TRUE ORDER BY first_name, last_name`)
}

func (r *PostgresMemberRepository) ListByTelegramIDs(ctx context.Context, telegramIDs []int64) ([]*member.Member, error) {
	if len(telegramIDs) == 0 {
		return []*member.Member{}, nil
	}
	return r.queryMembers(ctx, `SELECT `+memberColumns+` FROM members WHERE telegram_id = ANY($1::bigint[])`, pq.Array(telegramIDs))
}
