package server

import (
	"picpal/internal/middleware"
	"picpal/internal/models"
	"picpal/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type signupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Bio      string `json:"bio"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Signup creates a local account and establishes a session for it.
func (s *Server) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondError(c, models.NewValidationError("Invalid request body"))
	}

	user, err := s.users.Signup(c.Context(), service.SignupInput{
		Username: req.Username,
		Password: req.Password,
		Bio:      req.Bio,
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	token, err := s.sessions.Create(c.Context(), user.ID)
	if err != nil {
		return models.RespondError(c, models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(authResponse{Token: token, User: user})
}

// Login verifies credentials and establishes a session.
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondError(c, models.NewValidationError("Invalid request body"))
	}

	user, err := s.users.Login(c.Context(), service.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	token, err := s.sessions.Create(c.Context(), user.ID)
	if err != nil {
		return models.RespondError(c, models.NewInternalError(err))
	}

	return c.JSON(authResponse{Token: token, User: user})
}

// Logout revokes the caller's session. Logging out twice, or with no session
// at all, succeeds the same way.
func (s *Server) Logout(c *fiber.Ctx) error {
	if token := middleware.BearerToken(c); token != "" {
		if err := s.sessions.Revoke(c.Context(), token); err != nil {
			return models.RespondError(c, models.NewInternalError(err))
		}
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// GoogleRedirect sends the caller to Google's consent page.
func (s *Server) GoogleRedirect(c *fiber.Ctx) error {
	if !s.google.Configured() {
		return models.RespondError(c, models.NewUpstreamError("Federated sign-in is not configured", nil))
	}
	return c.Redirect(s.google.ConsentURL(uuid.NewString()), fiber.StatusTemporaryRedirect)
}

// GoogleCallback finishes the federated flow: exchanges the code, upserts
// the account, and establishes a session.
func (s *Server) GoogleCallback(c *fiber.Ctx) error {
	if !s.google.Configured() {
		return models.RespondError(c, models.NewUpstreamError("Federated sign-in is not configured", nil))
	}

	identity, err := s.google.VerifyCode(c.Context(), c.Query("code"))
	if err != nil {
		return models.RespondError(c, err)
	}

	user, err := s.users.FederatedSignIn(c.Context(), service.FederatedInput{
		ProviderID: identity.ProviderID,
		Email:      identity.Email,
		Name:       identity.Name,
		Picture:    identity.Picture,
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	token, err := s.sessions.Create(c.Context(), user.ID)
	if err != nil {
		return models.RespondError(c, models.NewInternalError(err))
	}

	return c.JSON(authResponse{Token: token, User: user})
}
