package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	postKeyPrefix    = "post:%d"
	profileKeyPrefix = "profile:%s"
	// feedKey holds only the anonymous default-limit first page; callers must
	// not store differently-sized pages under it.
	feedKey = "feed:first"
)

const (
	PostTTL    = 30 * time.Minute
	ProfileTTL = 5 * time.Minute
	FeedTTL    = time.Minute
)

func PostKey(postID uint) string {
	return fmt.Sprintf(postKeyPrefix, postID)
}

func ProfileKey(username string) string {
	return fmt.Sprintf(profileKeyPrefix, username)
}

func FeedKey() string {
	return feedKey
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
	Invalidate(ctx, FeedKey())
}

func InvalidateProfile(ctx context.Context, username string) {
	Invalidate(ctx, ProfileKey(username))
}

func InvalidateFeed(ctx context.Context) {
	Invalidate(ctx, FeedKey())
}
