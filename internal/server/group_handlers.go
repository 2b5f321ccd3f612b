package server

import (
	"picpal/internal/models"
	"picpal/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createGroupRequest struct {
	Name      string `json:"name"`
	IsPrivate bool   `json:"is_private"`
}

type joinGroupRequest struct {
	Code string `json:"code"`
}

// CreateGroup creates a group with a fresh join code; the creator becomes
// its first member.
func (s *Server) CreateGroup(c *fiber.Ctx) error {
	var req createGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondError(c, models.NewValidationError("Invalid request body"))
	}

	group, err := s.groups.Create(c.Context(), service.CreateGroupInput{
		UserID:    currentUserID(c),
		Name:      req.Name,
		IsPrivate: req.IsPrivate,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(group)
}

// JoinGroup enrolls the caller in the group matching the join code.
func (s *Server) JoinGroup(c *fiber.Ctx) error {
	var req joinGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondError(c, models.NewValidationError("Invalid request body"))
	}

	group, err := s.groups.Join(c.Context(), currentUserID(c), req.Code)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(group)
}

// GetGroups lists the groups the caller belongs to.
func (s *Server) GetGroups(c *fiber.Ctx) error {
	groups, err := s.groups.ListForUser(c.Context(), currentUserID(c))
	if err != nil {
		return models.RespondError(c, err)
	}
	if groups == nil {
		groups = []models.Group{}
	}
	return c.JSON(groups)
}

// GetGroup returns one group with its member list.
func (s *Server) GetGroup(c *fiber.Ctx) error {
	groupID, err := parseIDParam(c, "id")
	if err != nil {
		return models.RespondError(c, err)
	}

	group, err := s.groups.Get(c.Context(), groupID, currentUserID(c))
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(group)
}

// LeaveGroup removes the caller from a group's membership.
func (s *Server) LeaveGroup(c *fiber.Ctx) error {
	groupID, err := parseIDParam(c, "id")
	if err != nil {
		return models.RespondError(c, err)
	}

	if err := s.groups.Leave(c.Context(), currentUserID(c), groupID); err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Left group"})
}
