package silence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// deadlineKey is the Redis hash holding channelID -> unix deadline.
// A zero value marks an indefinite silence.
const deadlineKey = "silence:deadlines"

// RedisDeadlines implements DeadlineStore on a Redis hash.
type RedisDeadlines struct {
	rdb *redis.Client
}

func NewRedisDeadlines(rdb *redis.Client) *RedisDeadlines {
	return &RedisDeadlines{rdb: rdb}
}

func (r *RedisDeadlines) Set(ctx context.Context, channelID string, deadline time.Time) error {
	var unix int64
	if !deadline.IsZero() {
		unix = deadline.Unix()
	}
	return r.rdb.HSet(ctx, deadlineKey, channelID, unix).Err()
}

func (r *RedisDeadlines) Get(ctx context.Context, channelID string) (time.Time, bool, error) {
	value, err := r.rdb.HGet(ctx, deadlineKey, channelID).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	unix, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt silence deadline for %s: %q", channelID, value)
	}
	if unix == 0 {
		return time.Time{}, true, nil
	}
	return time.Unix(unix, 0), true, nil
}

func (r *RedisDeadlines) Delete(ctx context.Context, channelID string) error {
	return r.rdb.HDel(ctx, deadlineKey, channelID).Err()
}

func (r *RedisDeadlines) All(ctx context.Context) (map[string]time.Time, error) {
	raw, err := r.rdb.HGetAll(ctx, deadlineKey).Result()
	if err != nil {
		return nil, err
	}

	deadlines := make(map[string]time.Time, len(raw))
	for channelID, value := range raw {
		unix, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt silence deadline for %s: %q", channelID, value)
		}
		if unix == 0 {
			deadlines[channelID] = time.Time{}
		} else {
			deadlines[channelID] = time.Unix(unix, 0)
		}
	}
	return deadlines, nil
}
