package repository

import (
	"context"
	"testing"

	"picpal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Password: "hashed"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("create and fetch by username", func(t *testing.T) {
		user := &models.User{Username: "alice", Password: "hashed"}
		require.NoError(t, repo.Create(ctx, user))
		assert.NotZero(t, user.ID)

		found, err := repo.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, user.ID, found.ID)
	})

	t.Run("missing username returns nil without error", func(t *testing.T) {
		found, err := repo.GetByUsername(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("duplicate username is a conflict", func(t *testing.T) {
		err := repo.Create(ctx, &models.User{Username: "alice", Password: "other"})
		require.Error(t, err)

		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "CONFLICT", appErr.Code)
	})

	t.Run("fetch by google id", func(t *testing.T) {
		user := &models.User{Username: "fed-user", GoogleID: "google-sub-123"}
		require.NoError(t, repo.Create(ctx, user))

		found, err := repo.GetByGoogleID(ctx, "google-sub-123")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "fed-user", found.Username)

		missing, err := repo.GetByGoogleID(ctx, "google-sub-999")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("empty google id never matches password accounts", func(t *testing.T) {
		found, err := repo.GetByGoogleID(ctx, "")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("get by id not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 99999)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "NOT_FOUND", appErr.Code)
	})
}

func TestUserRepository_FollowGraph(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	carol := createTestUser(t, db, "carol")

	t.Run("follow inserts an edge once", func(t *testing.T) {
		inserted, err := repo.Follow(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.True(t, inserted)

		again, err := repo.Follow(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.False(t, again)
	})

	t.Run("counts reflect the graph", func(t *testing.T) {
		_, err := repo.Follow(ctx, carol.ID, bob.ID)
		require.NoError(t, err)

		followers, err := repo.CountFollowers(ctx, bob.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, followers)

		following, err := repo.CountFollowing(ctx, alice.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, following)
	})

	t.Run("is following", func(t *testing.T) {
		ok, err := repo.IsFollowing(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.IsFollowing(ctx, bob.ID, alice.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unfollow reports whether an edge was removed", func(t *testing.T) {
		removed, err := repo.Unfollow(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.True(t, removed)

		ok, err := repo.IsFollowing(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		removed, err = repo.Unfollow(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.False(t, removed)
	})
}

func TestUserRepository_Search(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	createTestUser(t, db, "photofan")
	createTestUser(t, db, "PhotoPro")
	createTestUser(t, db, "unrelated")

	results, err := repo.Search(ctx, "photo", 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)

	none, err := repo.Search(ctx, "zzz", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUserRepository_Delete(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	comments := NewCommentRepository(db)
	groups := NewGroupRepository(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	other := createTestUser(t, db, "other")

	post := &models.Post{UserID: owner.ID, Username: owner.Username, MediaURL: "/media/a.jpg", MediaKey: "a.jpg"}
	require.NoError(t, posts.Create(ctx, post))

	otherPost := &models.Post{UserID: other.ID, Username: other.Username, MediaURL: "/media/b.jpg", MediaKey: "b.jpg"}
	require.NoError(t, posts.Create(ctx, otherPost))

	// Activity in both directions: likes and comments by and on the owner.
	_, err := posts.Like(ctx, other.ID, post.ID)
	require.NoError(t, err)
	_, err = posts.Like(ctx, owner.ID, otherPost.ID)
	require.NoError(t, err)
	require.NoError(t, comments.Create(ctx, &models.Comment{PostID: otherPost.ID, UserID: owner.ID, Username: owner.Username, Text: "nice"}))
	_, err = users.Follow(ctx, other.ID, owner.ID)
	require.NoError(t, err)
	require.NoError(t, groups.Create(ctx, &models.Group{Name: "g", JoinCode: "AAAAAA", CreatedBy: owner.ID}))

	require.NoError(t, users.Delete(ctx, owner.ID))

	t.Run("account is gone", func(t *testing.T) {
		_, err := users.GetByID(ctx, owner.ID)
		assert.Error(t, err)
	})

	t.Run("owned posts are gone", func(t *testing.T) {
		listed, err := posts.GetByUserID(ctx, owner.ID, 10, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, listed)
	})

	t.Run("likes and comments authored by the account are gone", func(t *testing.T) {
		remaining, err := posts.GetByID(ctx, otherPost.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, 0, remaining.LikesCount)
		assert.Equal(t, 0, remaining.CommentsCount)
	})

	t.Run("follow edges are gone", func(t *testing.T) {
		ok, err := users.IsFollowing(ctx, other.ID, owner.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("other users are untouched", func(t *testing.T) {
		survivor, err := users.GetByID(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, "other", survivor.Username)
	})
}
