package server

import (
	"picpal/internal/middleware"
	"picpal/internal/models"
	"picpal/internal/service"

	"github.com/gofiber/fiber/v2"
)

type updateAccountRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type updateBioRequest struct {
	Bio string `json:"bio"`
}

// GetUserProfile returns a public profile with follow counts and recent posts.
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	user, posts, err := s.users.GetProfile(c.Context(), c.Params("username"), currentUserID(c))
	if err != nil {
		return models.RespondError(c, err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return c.JSON(fiber.Map{"user": user, "posts": posts})
}

// SearchUsers finds accounts whose username contains the query.
func (s *Server) SearchUsers(c *fiber.Ctx) error {
	limit, offset := parsePaging(c)
	users, err := s.users.Search(c.Context(), c.Query("q"), limit, offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	if users == nil {
		users = []models.User{}
	}
	return c.JSON(users)
}

// FollowUser adds a follow edge from the caller to the named account.
func (s *Server) FollowUser(c *fiber.Ctx) error {
	if err := s.users.Follow(c.Context(), currentUserID(c), c.Params("username")); err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Followed"})
}

// UnfollowUser removes the caller's follow edge to the named account.
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	if err := s.users.Unfollow(c.Context(), currentUserID(c), c.Params("username")); err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Unfollowed"})
}

// UpdateProfilePicture replaces the caller's avatar with an uploaded image.
func (s *Server) UpdateProfilePicture(c *fiber.Ctx) error {
	content, err := readUploadedFile(c, "image")
	if err != nil {
		return models.RespondError(c, err)
	}

	user, err := s.users.UpdateProfilePicture(c.Context(), currentUserID(c), content)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(user)
}

// UpdateAccount changes the caller's username and/or password.
func (s *Server) UpdateAccount(c *fiber.Ctx) error {
	var req updateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondError(c, models.NewValidationError("Invalid request body"))
	}

	user, err := s.users.UpdateAccount(c.Context(), service.UpdateAccountInput{
		UserID:   currentUserID(c),
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(user)
}

// UpdateBio replaces the caller's bio.
func (s *Server) UpdateBio(c *fiber.Ctx) error {
	var req updateBioRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondError(c, models.NewValidationError("Invalid request body"))
	}

	user, err := s.users.UpdateBio(c.Context(), currentUserID(c), req.Bio)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(user)
}

// DeleteAccount removes the caller's account, content, and stored assets,
// then revokes the session that made the request.
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	if err := s.users.DeleteAccount(c.Context(), currentUserID(c)); err != nil {
		return models.RespondError(c, err)
	}

	if token := middleware.BearerToken(c); token != "" {
		if err := s.sessions.Revoke(c.Context(), token); err != nil {
			middleware.Logger.Warn("failed to revoke session after account deletion")
		}
	}
	return c.JSON(fiber.Map{"message": "Account deleted"})
}
