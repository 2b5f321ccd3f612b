package service

import (
	"context"
	"errors"
	"strings"

	"picpal/internal/models"
	"picpal/internal/repository"

	"github.com/google/uuid"
)

// GroupService owns group creation and code-gated membership.
type GroupService struct {
	groupRepo repository.GroupRepository
}

type CreateGroupInput struct {
	UserID    uint
	Name      string
	IsPrivate bool
}

func NewGroupService(groupRepo repository.GroupRepository) *GroupService {
	return &GroupService{groupRepo: groupRepo}
}

const joinCodeLen = 6

const joinCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newJoinCode draws a 6-character uppercase alphanumeric code from UUID
// entropy. Codes are generated once per group and never rotated.
func newJoinCode() string {
	raw := uuid.New()
	code := make([]byte, joinCodeLen)
	for i := 0; i < joinCodeLen; i++ {
		code[i] = joinCodeCharset[int(raw[i])%len(joinCodeCharset)]
	}
	return string(code)
}

// Create makes a group with a fresh join code and enrolls the creator.
func (s *GroupService) Create(ctx context.Context, in CreateGroupInput) (*models.Group, error) {
	const maxNameLen = 60

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, models.NewValidationError("Group name is required")
	}
	if len(name) > maxNameLen {
		return nil, models.NewValidationError("Group name too long (max 60 characters)")
	}

	// Retry on the unlikely join-code collision.
	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		group := &models.Group{
			Name:      name,
			IsPrivate: in.IsPrivate,
			JoinCode:  newJoinCode(),
			CreatedBy: in.UserID,
		}
		err := s.groupRepo.Create(ctx, group)
		if err == nil {
			return group, nil
		}
		var appErr *models.AppError
		if !errors.As(err, &appErr) || appErr.Code != "CONFLICT" {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// Join validates a join code and enrolls the caller. Unknown codes are not
// found; joining a group twice is a conflict.
func (s *GroupService) Join(ctx context.Context, userID uint, code string) (*models.Group, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != joinCodeLen {
		return nil, models.NewValidationError("Invalid join code format")
	}

	group, err := s.groupRepo.GetByJoinCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, models.NewNotFoundError("Group", code)
	}

	added, err := s.groupRepo.AddMember(ctx, group.ID, userID)
	if err != nil {
		return nil, err
	}
	if !added {
		return nil, models.NewConflictError("Already a member of this group")
	}
	return group, nil
}

// Leave removes the caller from the group.
func (s *GroupService) Leave(ctx context.Context, userID, groupID uint) error {
	member, err := s.groupRepo.IsMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !member {
		return models.NewNotFoundError("Group membership", groupID)
	}
	return s.groupRepo.RemoveMember(ctx, groupID, userID)
}

// ListForUser returns the groups the caller belongs to.
func (s *GroupService) ListForUser(ctx context.Context, userID uint) ([]models.Group, error) {
	return s.groupRepo.ListForUser(ctx, userID)
}

// Get returns a group with its member list. Private groups are only visible
// to members.
func (s *GroupService) Get(ctx context.Context, groupID, userID uint) (*models.Group, error) {
	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.IsPrivate {
		member, err := s.groupRepo.IsMember(ctx, groupID, userID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, models.NewForbiddenError("This group is private")
		}
	}
	return group, nil
}
