// Package service implements the application's business logic on top of the
// repository and media layers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"picpal/internal/media"
	"picpal/internal/middleware"
	"picpal/internal/models"
	"picpal/internal/repository"
	"picpal/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserService owns accounts, credentials, the follow graph, and profiles.
type UserService struct {
	userRepo    repository.UserRepository
	postRepo    repository.PostRepository
	transformer *media.Transformer
	store       media.Store
}

type SignupInput struct {
	Username string
	Password string
	Bio      string
}

type LoginInput struct {
	Username string
	Password string
}

// FederatedInput carries the identity-provider profile for upsert.
type FederatedInput struct {
	ProviderID string
	Email      string
	Name       string
	Picture    string
}

type UpdateAccountInput struct {
	UserID   uint
	Username string
	Password string
}

func NewUserService(
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
	transformer *media.Transformer,
	store media.Store,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		postRepo:    postRepo,
		transformer: transformer,
		store:       store,
	}
}

// Signup creates a local-credential account. The username is trimmed and
// matched case-sensitively; the password is stored only as a bcrypt hash.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, models.NewValidationError("Username and password are required")
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Username already taken")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: username,
		Password: string(hashed),
		Bio:      strings.TrimSpace(in.Bio),
	}
	// The unique index backstops the existence check under concurrency.
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials. Every failure path returns the same message so
// callers cannot distinguish a missing account from a wrong password.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	// Federated accounts have no local password; fail the same way.
	if user == nil || user.Password == "" {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	return user, nil
}

// FederatedSignIn resolves a provider identity to an account, creating one on
// first sign-in. The upsert is keyed by the provider's stable subject ID, so
// repeated sign-ins are idempotent.
func (s *UserService) FederatedSignIn(ctx context.Context, in FederatedInput) (*models.User, error) {
	if in.ProviderID == "" {
		return nil, models.NewValidationError("Missing provider identity")
	}

	existing, err := s.userRepo.GetByGoogleID(ctx, in.ProviderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	base := federatedUsernameBase(in)
	user := &models.User{
		Username:   base,
		GoogleID:   in.ProviderID,
		ProfilePic: in.Picture,
	}

	// The username may collide with an unrelated account; retry with a
	// random suffix. A GoogleID collision means a concurrent first sign-in
	// won the race, in which case the winner's account is the answer.
	for attempt := 0; attempt < 5; attempt++ {
		err := s.userRepo.Create(ctx, user)
		if err == nil {
			return user, nil
		}
		var appErr *models.AppError
		if !errors.As(err, &appErr) || appErr.Code != "CONFLICT" {
			return nil, err
		}

		winner, lookupErr := s.userRepo.GetByGoogleID(ctx, in.ProviderID)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if winner != nil {
			return winner, nil
		}

		user.Username = fmt.Sprintf("%s-%s", base, uuid.NewString()[:4])
	}
	return nil, models.NewConflictError("Could not allocate a username")
}

// federatedUsernameBase derives a valid username from the provider profile.
func federatedUsernameBase(in FederatedInput) string {
	candidate := in.Name
	if candidate == "" {
		if at := strings.Index(in.Email, "@"); at > 0 {
			candidate = in.Email[:at]
		}
	}

	var b strings.Builder
	for _, r := range strings.ToLower(candidate) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '.', r == '_', r == '-':
			b.WriteRune('-')
		}
	}
	cleaned := strings.Trim(b.String(), "-_")
	if len(cleaned) > 24 {
		cleaned = cleaned[:24]
	}
	if len(cleaned) < 3 {
		cleaned = "user-" + uuid.NewString()[:8]
	}
	return cleaned
}

// GetProfile returns the public profile: the account with follower counts
// plus its posts newest first.
func (s *UserService) GetProfile(ctx context.Context, username string, currentUserID uint) (*models.User, []*models.Post, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, models.NewNotFoundError("User", username)
	}

	if err := s.attachFollowCounts(ctx, user); err != nil {
		return nil, nil, err
	}

	posts, err := s.postRepo.GetByUserID(ctx, user.ID, 50, 0, currentUserID)
	if err != nil {
		return nil, nil, err
	}
	return user, posts, nil
}

func (s *UserService) attachFollowCounts(ctx context.Context, user *models.User) error {
	followers, err := s.userRepo.CountFollowers(ctx, user.ID)
	if err != nil {
		return err
	}
	following, err := s.userRepo.CountFollowing(ctx, user.ID)
	if err != nil {
		return err
	}
	user.FollowersCount = int(followers)
	user.FollowingCount = int(following)
	return nil
}

// UpdateAccount changes username and/or password.
func (s *UserService) UpdateAccount(ctx context.Context, in UpdateAccountInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Username != "" {
		username := strings.TrimSpace(in.Username)
		if err := validation.ValidateUsername(username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		if username != user.Username {
			existing, err := s.userRepo.GetByUsername(ctx, username)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return nil, models.NewConflictError("Username already taken")
			}
			user.Username = username
		}
	}

	if in.Password != "" {
		if err := validation.ValidatePassword(in.Password); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		user.Password = string(hashed)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateBio sets the profile bio.
func (s *UserService) UpdateBio(ctx context.Context, userID uint, bio string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	const maxBioLen = 500
	bio = strings.TrimSpace(bio)
	if len(bio) > maxBioLen {
		return nil, models.NewValidationError("Bio too long (max 500 characters)")
	}

	user.Bio = bio
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateProfilePicture normalizes the upload at profile size and points the
// account at the stored asset. The previous asset is left in place; profile
// URLs may be shared externally.
func (s *UserService) UpdateProfilePicture(ctx context.Context, userID uint, content []byte) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	normalized, err := s.transformer.Normalize(content, media.ProfilePicSize)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("profiles/%s.jpg", uuid.NewString())
	url, err := s.store.Put(ctx, key, normalized.JPEG, "image/jpeg")
	if err != nil {
		middleware.MediaStoreFailures.WithLabelValues("put").Inc()
		return nil, models.NewUpstreamError("Could not store profile picture", err)
	}

	user.ProfilePic = url
	if err := s.userRepo.Update(ctx, user); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			middleware.MediaStoreFailures.WithLabelValues("delete").Inc()
		}
		return nil, err
	}
	return user, nil
}

// Follow adds the caller as a follower of the named account.
func (s *UserService) Follow(ctx context.Context, followerID uint, username string) error {
	followee, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return err
	}
	if followee == nil {
		return models.NewNotFoundError("User", username)
	}
	if followee.ID == followerID {
		return models.NewValidationError("You cannot follow yourself")
	}

	inserted, err := s.userRepo.Follow(ctx, followerID, followee.ID)
	if err != nil {
		return err
	}
	if !inserted {
		return models.NewConflictError("Already following this user")
	}
	return nil
}

// Unfollow removes the caller from the named account's followers.
func (s *UserService) Unfollow(ctx context.Context, followerID uint, username string) error {
	followee, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return err
	}
	if followee == nil {
		return models.NewNotFoundError("User", username)
	}

	removed, err := s.userRepo.Unfollow(ctx, followerID, followee.ID)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewNotFoundError("Follow", username)
	}
	return nil
}

// Search finds accounts whose username contains the query.
func (s *UserService) Search(ctx context.Context, query string, limit, offset int) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.userRepo.Search(ctx, query, limit, offset)
}

// DeleteAccount removes the account and everything attached to it. Stored
// media assets are released best-effort before the rows go away; a release
// failure is logged and does not block the delete.
func (s *UserService) DeleteAccount(ctx context.Context, userID uint) error {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return err
	}

	assets, err := s.postRepo.AssetKeysByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, post := range assets {
		s.releaseAsset(ctx, post.MediaKey)
		s.releaseAsset(ctx, post.PreviewKey)
	}

	return s.userRepo.Delete(ctx, userID)
}

func (s *UserService) releaseAsset(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		middleware.MediaStoreFailures.WithLabelValues("delete").Inc()
		middleware.Logger.WarnContext(ctx, "media asset release failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
