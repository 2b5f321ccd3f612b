package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"picpal/internal/cache"
	"picpal/internal/media"
	"picpal/internal/middleware"
	"picpal/internal/models"
	"picpal/internal/repository"

	"github.com/google/uuid"
)

// PostService owns the photo lifecycle: upload, listing, likes, comments,
// and deletion.
type PostService struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
	transformer *media.Transformer
	store       media.Store
}

type UploadInput struct {
	UserID   uint
	Content  []byte
	Caption  string
	Hashtags []string
}

type CommentInput struct {
	UserID uint
	PostID uint
	Text   string
}

func NewPostService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
	transformer *media.Transformer,
	store media.Store,
) *PostService {
	return &PostService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		userRepo:    userRepo,
		transformer: transformer,
		store:       store,
	}
}

// Upload runs the transform-store-record pipeline as an all-or-nothing
// operation: a store failure records nothing, and a record failure releases
// the just-stored assets before reporting the error.
func (s *PostService) Upload(ctx context.Context, in UploadInput) (*models.Post, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	normalized, err := s.transformer.Normalize(in.Content, media.PostSize)
	if err != nil {
		middleware.UploadsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	id := uuid.NewString()
	mediaKey := fmt.Sprintf("uploads/%s.jpg", id)
	previewKey := fmt.Sprintf("previews/%s.webp", id)

	mediaURL, err := s.store.Put(ctx, mediaKey, normalized.JPEG, "image/jpeg")
	if err != nil {
		middleware.MediaStoreFailures.WithLabelValues("put").Inc()
		middleware.UploadsTotal.WithLabelValues("store_failed").Inc()
		return nil, models.NewUpstreamError("Could not store uploaded photo", err)
	}

	previewURL, err := s.store.Put(ctx, previewKey, normalized.Preview, "image/webp")
	if err != nil {
		s.releaseAsset(ctx, mediaKey)
		middleware.MediaStoreFailures.WithLabelValues("put").Inc()
		middleware.UploadsTotal.WithLabelValues("store_failed").Inc()
		return nil, models.NewUpstreamError("Could not store uploaded photo", err)
	}

	post := &models.Post{
		UserID:     user.ID,
		Username:   user.Username,
		MediaURL:   mediaURL,
		MediaKey:   mediaKey,
		PreviewURL: previewURL,
		PreviewKey: previewKey,
		Caption:    strings.TrimSpace(in.Caption),
		Hashtags:   normalizeHashtags(in.Hashtags),
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		s.releaseAsset(ctx, mediaKey)
		s.releaseAsset(ctx, previewKey)
		middleware.UploadsTotal.WithLabelValues("record_failed").Inc()
		return nil, err
	}

	middleware.UploadsTotal.WithLabelValues("ok").Inc()
	return post, nil
}

// normalizeHashtags trims, lowercases, strips a leading '#', and dedupes.
func normalizeHashtags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Feed lists everyone's posts newest first. The anonymous default-limit
// first page is served cache-aside; any other page size goes straight to the
// database so the cached slice never leaks into a differently-sized request.
// Authenticated views carry per-viewer liked flags and skip the cache.
func (s *PostService) Feed(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	limit = clampLimit(limit)

	if currentUserID == 0 && offset == 0 && limit == defaultListLimit {
		var posts []*models.Post
		err := cache.Aside(ctx, cache.FeedKey(), &posts, cache.FeedTTL, func() error {
			var fetchErr error
			posts, fetchErr = s.postRepo.List(ctx, limit, 0, 0)
			return fetchErr
		})
		return posts, err
	}

	return s.postRepo.List(ctx, limit, offset, currentUserID)
}

// OwnImages lists the caller's posts newest first.
func (s *PostService) OwnImages(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	return s.postRepo.GetByUserID(ctx, userID, clampLimit(limit), offset, userID)
}

const defaultListLimit = 20

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return defaultListLimit
	}
	return limit
}

// Like records the caller's like and returns the post's updated like count.
// Liking twice is a conflict.
func (s *PostService) Like(ctx context.Context, userID, postID uint) (int, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, 0); err != nil {
		return 0, err
	}

	inserted, err := s.postRepo.Like(ctx, userID, postID)
	if err != nil {
		return 0, err
	}
	if !inserted {
		return 0, models.NewConflictError("Already liked this post")
	}
	return s.likeCount(ctx, postID)
}

// Unlike removes the caller's like if present and returns the updated count.
func (s *PostService) Unlike(ctx context.Context, userID, postID uint) (int, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, 0); err != nil {
		return 0, err
	}
	if err := s.postRepo.Unlike(ctx, userID, postID); err != nil {
		return 0, err
	}
	return s.likeCount(ctx, postID)
}

func (s *PostService) likeCount(ctx context.Context, postID uint) (int, error) {
	post, err := s.postRepo.GetByID(ctx, postID, 0)
	if err != nil {
		return 0, err
	}
	return post.LikesCount, nil
}

// Comment appends a comment to the post. The text must be non-empty after
// trimming; comments are never editable or deletable afterwards.
func (s *PostService) Comment(ctx context.Context, in CommentInput) (*models.Comment, error) {
	const maxCommentLen = 2000

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, models.NewValidationError("Comment text is required")
	}
	if len(text) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 2000 characters)")
	}

	if _, err := s.postRepo.GetByID(ctx, in.PostID, 0); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:   in.PostID,
		UserID:   user.ID,
		Username: user.Username,
		Text:     text,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// Comments lists a post's comments in creation order.
func (s *PostService) Comments(ctx context.Context, postID uint) ([]*models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, 0); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByPost(ctx, postID)
}

// Delete removes the caller's post. Ownership is checked first; the stored
// assets are released best-effort after the record is gone, so a storage
// hiccup never resurrects a deleted post.
func (s *PostService) Delete(ctx context.Context, userID, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID, 0)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return models.NewForbiddenError("You can only delete your own posts")
	}

	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return err
	}

	s.releaseAsset(ctx, post.MediaKey)
	s.releaseAsset(ctx, post.PreviewKey)
	return nil
}

func (s *PostService) releaseAsset(ctx context.Context, key string) {
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
