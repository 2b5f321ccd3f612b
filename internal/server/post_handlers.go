package server

import (
	"io"
	"strconv"
	"strings"

	"picpal/internal/models"
	"picpal/internal/service"

	"github.com/gofiber/fiber/v2"
)

type commentRequest struct {
	Text string `json:"text"`
}

// parseIDParam reads a positive integer route parameter.
func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	raw := c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, models.NewValidationError("Invalid " + name)
	}
	return uint(id), nil
}

func parsePaging(c *fiber.Ctx) (limit, offset int) {
	limit = c.QueryInt("limit", 20)
	offset = c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// readUploadedFile pulls the multipart file out of the request.
func readUploadedFile(c *fiber.Ctx, field string) ([]byte, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return nil, models.NewValidationError("No file uploaded")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, models.NewValidationError("Could not read uploaded file")
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, models.NewValidationError("Could not read uploaded file")
	}
	return content, nil
}

// Upload accepts a multipart photo with optional caption and hashtags.
func (s *Server) Upload(c *fiber.Ctx) error {
	content, err := readUploadedFile(c, "image")
	if err != nil {
		return models.RespondError(c, err)
	}

	var hashtags []string
	if raw := c.FormValue("hashtags"); raw != "" {
		hashtags = strings.Split(raw, ",")
	}

	post, err := s.posts.Upload(c.Context(), service.UploadInput{
		UserID:   currentUserID(c),
		Content:  content,
		Caption:  c.FormValue("caption"),
		Hashtags: hashtags,
	})
	if err != nil {
		return models.RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

// GetImages returns the global feed, newest first.
func (s *Server) GetImages(c *fiber.Ctx) error {
	limit, offset := parsePaging(c)
	posts, err := s.posts.Feed(c.Context(), limit, offset, currentUserID(c))
	if err != nil {
		return models.RespondError(c, err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return c.JSON(posts)
}

// GetMyImages returns the caller's own posts, newest first.
func (s *Server) GetMyImages(c *fiber.Ctx) error {
	limit, offset := parsePaging(c)
	posts, err := s.posts.OwnImages(c.Context(), currentUserID(c), limit, offset)
	if err != nil {
		return models.RespondError(c, err)
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	return c.JSON(posts)
}

// LikePost records a like and responds with the post's updated like count;
// liking the same post twice is a conflict.
func (s *Server) LikePost(c *fiber.Ctx) error {
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return models.RespondError(c, err)
	}
	count, err := s.posts.Like(c.Context(), currentUserID(c), postID)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"likes_count": count})
}

// UnlikePost removes the caller's like and responds with the updated count.
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return models.RespondError(c, err)
	}
	count, err := s.posts.Unlike(c.Context(), currentUserID(c), postID)
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"likes_count": count})
}

// CreateComment appends a comment to a post.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return models.RespondError(c, err)
	}

	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondError(c, models.NewValidationError("Invalid request body"))
	}

	comment, err := s.posts.Comment(c.Context(), service.CommentInput{
		UserID: currentUserID(c),
		PostID: postID,
		Text:   req.Text,
	})
	if err != nil {
		return models.RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetComments lists a post's comments in creation order.
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return models.RespondError(c, err)
	}
	comments, err := s.posts.Comments(c.Context(), postID)
	if err != nil {
		return models.RespondError(c, err)
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	return c.JSON(comments)
}

// DeletePost removes the caller's own post and releases its stored assets.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return models.RespondError(c, err)
	}
	if err := s.posts.Delete(c.Context(), currentUserID(c), postID); err != nil {
		return models.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}
