package session

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidUserID = errors.New("user id is empty")
)

// LastUpdatedKey is stamped into every session on update, RFC3339 UTC.
const LastUpdatedKey = "last_updated"

// Store is the per-user state persistence contract injected into the agents.
// Update shallow-merges the partial map into the existing session and stamps
// last_updated. Get returns an empty map for unknown users.
type Store interface {
	Get(ctx context.Context, userID string) (map[string]any, error)
	Update(ctx context.Context, userID string, partial map[string]any) error
	Delete(ctx context.Context, userID string) error
	ListAll(ctx context.Context) (map[string]map[string]any, error)
	PurgeOlderThan(ctx context.Context, days int) (int, error)
}

func merge(dst, partial map[string]any, now time.Time) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(partial)+1)
	}
	for k, v := range partial {
		dst[k] = v
	}
	dst[LastUpdatedKey] = now.UTC().Format(time.RFC3339Nano)
	return dst
}

// sessionAge reports how old a session is, based on its last_updated stamp.
// Sessions without a parseable stamp report ok=false and are never purged.
func sessionAge(data map[string]any, now time.Time) (time.Duration, bool) {
	raw, _ := data[LastUpdatedKey].(string)
	if raw == "" {
		return 0, false
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return 0, false
	}
	return now.Sub(ts), true
}
