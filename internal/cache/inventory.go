package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	CommunityKeyPrefix     = "community:%d"
	CommunitySlugKeyPrefix = "community:slug:%s"
)

const (
	CommunityTTL = 10 * time.Minute
)

func CommunityKey(id uint) string {
	return fmt.Sprintf(CommunityKeyPrefix, id)
}

func CommunitySlugKey(slug string) string {
	return fmt.Sprintf(CommunitySlugKeyPrefix, slug)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateCommunity drops every cached form of a community.
func InvalidateCommunity(ctx context.Context, id uint, slug string) {
	Invalidate(ctx, CommunityKey(id), CommunitySlugKey(slug))
}
