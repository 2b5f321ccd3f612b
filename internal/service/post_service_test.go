package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"picpal/internal/cache"
	"picpal/internal/media"
	"picpal/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostService(postRepo *postRepoStub, commentRepo *commentRepoStub, userRepo *userRepoStub, store *storeStub) *PostService {
	return NewPostService(postRepo, commentRepo, userRepo, media.NewTransformer(10), store)
}

func TestPostService_Upload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("success records master and preview", func(t *testing.T) {
		t.Parallel()
		store := &storeStub{}
		var created *models.Post
		postRepo := noopPostRepo()
		postRepo.createFn = func(_ context.Context, p *models.Post) error {
			p.ID = 1
			created = p
			return nil
		}
		svc := newPostService(postRepo, noopCommentRepo(), noopUserRepo(), store)

		post, err := svc.Upload(ctx, UploadInput{
			UserID:   1,
			Content:  testImage(t),
			Caption:  "  sunset  ",
			Hashtags: []string{"#Sunset", "beach", "sunset", "  "},
		})
		require.NoError(t, err)
		require.NotNil(t, created)

		assert.Equal(t, "sunset", post.Caption)
		assert.Equal(t, []string{"sunset", "beach"}, post.Hashtags)
		assert.Equal(t, "tester", post.Username)
		assert.Contains(t, post.MediaKey, "uploads/")
		assert.Contains(t, post.PreviewKey, "previews/")
		require.Len(t, store.puts, 2)
		assert.Empty(t, store.deletes)
	})

	t.Run("invalid image stores nothing and records nothing", func(t *testing.T) {
		t.Parallel()
		store := &storeStub{}
		postRepo := noopPostRepo()
		postRepo.createFn = func(_ context.Context, _ *models.Post) error {
			t.Fatal("create should not run for a rejected upload")
			return nil
		}
		svc := newPostService(postRepo, noopCommentRepo(), noopUserRepo(), store)

		_, err := svc.Upload(ctx, UploadInput{UserID: 1, Content: []byte("not an image at all, padding")})
		assertValidationError(t, err)
		assert.Empty(t, store.puts)
	})

	t.Run("store failure records nothing", func(t *testing.T) {
		t.Parallel()
		store := &storeStub{putFn: func(_ context.Context, _ string, _ []byte, _ string) (string, error) {
			return "", errors.New("bucket offline")
		}}
		postRepo := noopPostRepo()
		postRepo.createFn = func(_ context.Context, _ *models.Post) error {
			t.Fatal("create should not run when the store fails")
			return nil
		}
		svc := newPostService(postRepo, noopCommentRepo(), noopUserRepo(), store)

		_, err := svc.Upload(ctx, UploadInput{UserID: 1, Content: testImage(t)})
		assertUpstreamError(t, err)
	})

	t.Run("preview store failure releases the master", func(t *testing.T) {
		t.Parallel()
		store := &storeStub{}
		store.putFn = func(_ context.Context, key string, _ []byte, _ string) (string, error) {
			if strings.HasPrefix(key, "previews/") {
				return "", errors.New("bucket offline")
			}
			return "/media/" + key, nil
		}
		svc := newPostService(noopPostRepo(), noopCommentRepo(), noopUserRepo(), store)

		_, err := svc.Upload(ctx, UploadInput{UserID: 1, Content: testImage(t)})
		assertUpstreamError(t, err)
		require.Len(t, store.deletes, 1)
		assert.Contains(t, store.deletes[0], "uploads/")
	})

	t.Run("record failure releases both stored assets", func(t *testing.T) {
		t.Parallel()
		store := &storeStub{}
		postRepo := noopPostRepo()
		postRepo.createFn = func(_ context.Context, _ *models.Post) error {
			return models.NewInternalError(errors.New("db down"))
		}
		svc := newPostService(postRepo, noopCommentRepo(), noopUserRepo(), store)

		_, err := svc.Upload(ctx, UploadInput{UserID: 1, Content: testImage(t)})
		require.Error(t, err)
		require.Len(t, store.deletes, 2)
	})
}

func TestPostService_Like(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("liking a missing post is not found", func(t *testing.T) {
		t.Parallel()
		postRepo := noopPostRepo()
		postRepo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
			return nil, models.NewNotFoundError("Post", id)
		}
		svc := newPostService(postRepo, noopCommentRepo(), noopUserRepo(), &storeStub{})
		_, err := svc.Like(ctx, 1, 99)
		assertNotFoundError(t, err)
	})

	t.Run("double like is a conflict", func(t *testing.T) {
		t.Parallel()
		postRepo := noopPostRepo()
		postRepo.likeFn = func(_ context.Context, _, _ uint) (bool, error) { return false, nil }
		svc := newPostService(postRepo, noopCommentRepo(), noopUserRepo(), &storeStub{})
		_, err := svc.Like(ctx, 1, 10)
		assertConflictError(t, err)
	})

	t.Run("like returns the updated count", func(t *testing.T) {
		t.Parallel()
		liked := false
		postRepo := noopPostRepo()
		postRepo.likeFn = func(_ context.Context, _, _ uint) (bool, error) {
			liked = true
			return true, nil
		}
		postRepo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
			post := &models.Post{ID: id, LikesCount: 2}
			if liked {
				post.LikesCount = 3
			}
			return post, nil
		}
		svc := newPostService(postRepo, noopCommentRepo(), noopUserRepo(), &storeStub{})

		count, err := svc.Like(ctx, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("unlike returns the updated count", func(t *testing.T) {
		t.Parallel()
		unliked := false
		postRepo := noopPostRepo()
		postRepo.unlikeFn = func(_ context.Context, _, _ uint) error {
			unliked = true
			return nil
		}
		postRepo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
			post := &models.Post{ID: id, LikesCount: 1}
			if unliked {
				post.LikesCount = 0
			}
			return post, nil
		}
		svc := newPostService(postRepo, noopCommentRepo(), noopUserRepo(), &storeStub{})

		count, err := svc.Unlike(ctx, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestPostService_Comment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("whitespace-only text is invalid", func(t *testing.T) {
		t.Parallel()
		svc := newPostService(noopPostRepo(), noopCommentRepo(), noopUserRepo(), &storeStub{})
		_, err := svc.Comment(ctx, CommentInput{UserID: 1, PostID: 1, Text: "   \n\t "})
		assertValidationError(t, err)
	})

	t.Run("text too long", func(t *testing.T) {
		t.Parallel()
		svc := newPostService(noopPostRepo(), noopCommentRepo(), noopUserRepo(), &storeStub{})
		_, err := svc.Comment(ctx, CommentInput{UserID: 1, PostID: 1, Text: strings.Repeat("x", 2001)})
		assertValidationError(t, err)
	})

	t.Run("missing post", func(t *testing.T) {
		t.Parallel()
		postRepo := noopPostRepo()
		postRepo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
			return nil, models.NewNotFoundError("Post", id)
		}
		svc := newPostService(postRepo, noopCommentRepo(), noopUserRepo(), &storeStub{})
		_, err := svc.Comment(ctx, CommentInput{UserID: 1, PostID: 99, Text: "hello"})
		assertNotFoundError(t, err)
	})

	t.Run("text is trimmed and the author denormalized", func(t *testing.T) {
		t.Parallel()
		var created *models.Comment
		commentRepo := noopCommentRepo()
		commentRepo.createFn = func(_ context.Context, c *models.Comment) error {
			c.ID = 7
			created = c
			return nil
		}
		svc := newPostService(noopPostRepo(), commentRepo, noopUserRepo(), &storeStub{})

		comment, err := svc.Comment(ctx, CommentInput{UserID: 1, PostID: 1, Text: "  nice shot  "})
		require.NoError(t, err)
		assert.Equal(t, "nice shot", comment.Text)
		assert.Equal(t, "tester", created.Username)
	})
}

func TestPostService_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ownedPost := func() *postRepoStub {
		postRepo := noopPostRepo()
		postRepo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 1, MediaKey: "uploads/a.jpg", PreviewKey: "previews/a.webp"}, nil
		}
		return postRepo
	}

	t.Run("only the owner can delete", func(t *testing.T) {
		t.Parallel()
		svc := newPostService(ownedPost(), noopCommentRepo(), noopUserRepo(), &storeStub{})
		err := svc.Delete(ctx, 2, 10)
		assertForbiddenError(t, err)
	})

	t.Run("delete releases the stored assets", func(t *testing.T) {
		t.Parallel()
		store := &storeStub{}
		svc := newPostService(ownedPost(), noopCommentRepo(), noopUserRepo(), store)
		require.NoError(t, svc.Delete(ctx, 1, 10))
		assert.ElementsMatch(t, []string{"uploads/a.jpg", "previews/a.webp"}, store.deletes)
	})

	t.Run("asset release failure is swallowed", func(t *testing.T) {
		t.Parallel()
		store := &storeStub{deleteFn: func(_ context.Context, _ string) error {
			return errors.New("storage down")
		}}
		svc := newPostService(ownedPost(), noopCommentRepo(), noopUserRepo(), store)
		assert.NoError(t, svc.Delete(ctx, 1, 10))
	})

	t.Run("missing post is not found", func(t *testing.T) {
		t.Parallel()
		postRepo := noopPostRepo()
		postRepo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
			return nil, models.NewNotFoundError("Post", id)
		}
		svc := newPostService(postRepo, noopCommentRepo(), noopUserRepo(), &storeStub{})
		err := svc.Delete(ctx, 1, 99)
		assertNotFoundError(t, err)
	})
}

func TestPostService_Feed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("limit is clamped for unreasonable values", func(t *testing.T) {
		t.Parallel()
		var gotLimit int
		postRepo := noopPostRepo()
		postRepo.listFn = func(_ context.Context, limit, _ int, _ uint) ([]*models.Post, error) {
			gotLimit = limit
			return nil, nil
		}
		svc := newPostService(postRepo, noopCommentRepo(), noopUserRepo(), &storeStub{})

		_, err := svc.Feed(ctx, 10000, 0, 7)
		require.NoError(t, err)
		assert.Equal(t, 20, gotLimit)
	})

	t.Run("authenticated feed passes the viewer through", func(t *testing.T) {
		t.Parallel()
		var gotViewer uint
		postRepo := noopPostRepo()
		postRepo.listFn = func(_ context.Context, _, _ int, currentUserID uint) ([]*models.Post, error) {
			gotViewer = currentUserID
			return nil, nil
		}
		svc := newPostService(postRepo, noopCommentRepo(), noopUserRepo(), &storeStub{})

		_, err := svc.Feed(ctx, 20, 0, 7)
		require.NoError(t, err)
		assert.Equal(t, uint(7), gotViewer)
	})
}

// Not parallel: the cache client is process-global.
func TestPostService_FeedCaching(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
	})
	ctx := context.Background()

	all := make([]*models.Post, 10)
	for i := range all {
		all[i] = &models.Post{ID: uint(len(all) - i)}
	}

	fetches := 0
	postRepo := noopPostRepo()
	postRepo.listFn = func(_ context.Context, limit, _ int, _ uint) ([]*models.Post, error) {
		fetches++
		if limit > len(all) {
			limit = len(all)
		}
		return all[:limit], nil
	}
	svc := newPostService(postRepo, noopCommentRepo(), noopUserRepo(), &storeStub{})

	// A small anonymous page must not poison the cache for the default page.
	small, err := svc.Feed(ctx, 1, 0, 0)
	require.NoError(t, err)
	require.Len(t, small, 1)

	full, err := svc.Feed(ctx, 20, 0, 0)
	require.NoError(t, err)
	assert.Len(t, full, 10)
	assert.Equal(t, 2, fetches)

	// The default-limit anonymous first page is served from the cache.
	again, err := svc.Feed(ctx, 20, 0, 0)
	require.NoError(t, err)
	assert.Len(t, again, 10)
	assert.Equal(t, 2, fetches)

	// Viewers bypass the cache so liked flags stay per-user.
	_, err = svc.Feed(ctx, 20, 0, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, fetches)
}
