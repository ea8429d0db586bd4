package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"standup_bot/internal/domain/member"
)

// Custom application-level errors for member administration
var ErrMemberAlreadyExists = fmt.Errorf("member with this Telegram ID already exists")
var ErrMemberAlreadyInactive = fmt.Errorf("member is already inactive")

// MemberService maintains the display names used in summaries.
type MemberService struct {
	memberRepo member.Repository
}

func NewMemberService(mr member.Repository) *MemberService {
	return &MemberService{memberRepo: mr}
}

// AddMember registers a new member, active by default.
func (s *MemberService) AddMember(ctx context.Context, telegramID int64, firstName string, lastNameValue string) (*member.Member, error) {
	firstName = strings.TrimSpace(firstName)
	if firstName == "" {
		return nil, ErrValidation("first name must not be empty")
	}

	_, err := s.memberRepo.GetByTelegramID(ctx, telegramID)
	if err == nil {
		return nil, ErrMemberAlreadyExists
	}
	if !errors.Is(err, member.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing member: %w", err)
	}

	var lastName sql.NullString
	if lastNameValue != "" {
		lastName.String = lastNameValue
		lastName.Valid = true
	}

	newMember := &member.Member{
		TelegramID: telegramID,
		FirstName:  firstName,
		LastName:   lastName,
		IsActive:   true,
	}

	if err := s.memberRepo.Create(ctx, newMember); err != nil {
		if errors.Is(err, member.ErrDuplicateTelegramID) {
			return nil, ErrMemberAlreadyExists
		}
		return nil, fmt.Errorf("failed to create member in repository: %w", err)
	}
	return newMember, nil
}

// RemoveMember deactivates a member. Team participant lists are not touched.
func (s *MemberService) RemoveMember(ctx context.Context, telegramID int64) (*member.Member, error) {
	target, err := s.memberRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, member.ErrNotFound) {
			return nil, ErrNotFound(err, "member %d not found", telegramID)
		}
		return nil, fmt.Errorf("failed to get member by Telegram ID for removal: %w", err)
	}

	if !target.IsActive {
		return target, ErrMemberAlreadyInactive
	}

	target.IsActive = false
	if err := s.memberRepo.Update(ctx, target); err != nil {
		return nil, fmt.Errorf("failed to update member to inactive in repository: %w", err)
	}
	return target, nil
}

func (s *MemberService) ListActive(ctx context.Context) ([]*member.Member, error) {
	members, err := s.memberRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active members: %w", err)
	}
	return members, nil
}
