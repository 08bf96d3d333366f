package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ViewTracker remembers which client addresses viewed a listing on a given day.
type ViewTracker struct {
	rdb *redis.Client
}

func NewViewTracker(rdb *redis.Client) *ViewTracker {
	return &ViewTracker{rdb: rdb}
}

// FirstToday reports whether this is ip's first view of propertyID on the UTC day of at.
func (v *ViewTracker) FirstToday(ctx context.Context, propertyID, ip string, at time.Time) (bool, error) {
	day := at.UTC().Format("2006-01-02")
	key := "views:" + propertyID + ":" + day + ":" + ip
	return v.rdb.SetNX(ctx, key, 1, 24*time.Hour).Result()
}
