package member

import (
	"context"
	"errors"
)

// Repository defines the operations for persisting and retrieving Member entities.
type Repository interface {
	Create(ctx context.Context, m *Member) error
	GetByTelegramID(ctx context.Context, telegramID int64) (*Member, error)
	Update(ctx context.Context, m *Member) error // FirstName, LastName, IsActive
	ListActive(ctx context.Context) ([]*Member, error)
	ListByTelegramIDs(ctx context.Context, telegramIDs []int64) ([]*Member, error)
}

var (
	ErrNotFound            = errors.New("member not found")
	ErrDuplicateTelegramID = errors.New("member with this Telegram ID already exists")
)
