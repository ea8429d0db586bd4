package team

import (
	"context"
	"errors"
	"time"
)

// Repository is the Team Configuration Store.
type Repository interface {
	Create(ctx context.Context, t *Team) error
	GetByID(ctx context.Context, id int64) (*Team, error)
	ListEnabled(ctx context.Context) ([]*Team, error)
	UpdateAutomation(ctx context.Context, id int64, cfg AutomationConfig) error
	SetLastRunDate(ctx context.Context, id int64, day time.Time) error
}

// ErrNotFound is returned when no team matches the lookup.
var ErrNotFound = errors.New("team not found")
