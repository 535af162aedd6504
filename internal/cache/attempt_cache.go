package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when a key is absent.
var ErrCacheMiss = errors.New("cache miss")

// AttemptCache keeps hot attempt state in Redis: the deadline of a running
// attempt together with its owner (TTL'd so the key self-expires with the
// attempt; remaining time is derived from the clock at read time) and the
// active attempt id per student and quiz (so resume lookups skip the
// database).
type AttemptCache interface {
	SetAttemptDeadline(ctx context.Context, attemptID, studentID string, deadline time.Time) error
	GetAttemptDeadline(ctx context.Context, attemptID string) (studentID string, deadline time.Time, err error)

	SetActiveAttempt(ctx context.Context, studentID, quizID, attemptID string, ttl time.Duration) error
	GetActiveAttempt(ctx context.Context, studentID, quizID string) (string, error)
	ClearActiveAttempt(ctx context.Context, studentID, quizID string) error

	InvalidateAttempt(ctx context.Context, attemptID string) error
}

type redisAttemptCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewAttemptCache(client *redis.Client, logger *slog.Logger) AttemptCache {
	return &redisAttemptCache{
		client: client,
		logger: logger,
	}
}

func deadlineKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:deadline", attemptID)
}

func activeKey(studentID, quizID string) string {
	return fmt.Sprintf("student:%s:quiz:%s:active_attempt", studentID, quizID)
}

// SetAttemptDeadline stores the fixed deadline instant with a TTL equal to
// the time left until it, so the key disappears exactly when the attempt
// expires. The owning student travels in the value so reads served from the
// cache can still be permission-checked.
func (c *redisAttemptCache) SetAttemptDeadline(ctx context.Context, attemptID, studentID string, deadline time.Time) error {
	ttl := time.Until(deadline)
	if ttl <= 0 {
		return c.client.Del(ctx, deadlineKey(attemptID)).Err()
	}
	val := fmt.Sprintf("%s|%d", studentID, deadline.Unix())
	return c.client.Set(ctx, deadlineKey(attemptID), val, ttl).Err()
}

func (c *redisAttemptCache) GetAttemptDeadline(ctx context.Context, attemptID string) (string, time.Time, error) {
	val, err := c.client.Get(ctx, deadlineKey(attemptID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", time.Time{}, ErrCacheMiss
		}
		return "", time.Time{}, err
	}
	studentID, unixStr, ok := strings.Cut(val, "|")
	if !ok {
		return "", time.Time{}, ErrCacheMiss
	}
	unix, err := strconv.ParseInt(unixStr, 10, 64)
	if err != nil {
		return "", time.Time{}, ErrCacheMiss
	}
	return studentID, time.Unix(unix, 0), nil
}

func (c *redisAttemptCache) SetActiveAttempt(ctx context.Context, studentID, quizID, attemptID string, ttl time.Duration) error {
	return c.client.Set(ctx, activeKey(studentID, quizID), attemptID, ttl).Err()
}

func (c *redisAttemptCache) GetActiveAttempt(ctx context.Context, studentID, quizID string) (string, error) {
	val, err := c.client.Get(ctx, activeKey(studentID, quizID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

func (c *redisAttemptCache) ClearActiveAttempt(ctx context.Context, studentID, quizID string) error {
	return c.client.Del(ctx, activeKey(studentID, quizID)).Err()
}

func (c *redisAttemptCache) InvalidateAttempt(ctx context.Context, attemptID string) error {
	if err := c.client.Del(ctx, deadlineKey(attemptID)).Err(); err != nil {
		c.logger.Warn("failed to invalidate attempt cache",
			"attempt_id", attemptID,
			"error", err)
		return err
	}
	return nil
}

// NoopAttemptCache satisfies AttemptCache without a Redis connection, used
// in tests and when Redis is not configured.
type NoopAttemptCache struct{}

func (NoopAttemptCache) SetAttemptDeadline(ctx context.Context, attemptID, studentID string, deadline time.Time) error {
	return nil
}

func (NoopAttemptCache) GetAttemptDeadline(ctx context.Context, attemptID string) (string, time.Time, error) {
	return "", time.Time{}, ErrCacheMiss
}

func (NoopAttemptCache) SetActiveAttempt(ctx context.Context, studentID, quizID, attemptID string, ttl time.Duration) error {
	return nil
}

func (NoopAttemptCache) GetActiveAttempt(ctx context.Context, studentID, quizID string) (string, error) {
	return "", ErrCacheMiss
}

func (NoopAttemptCache) ClearActiveAttempt(ctx context.Context, studentID, quizID string) error {
	return nil
}

func (NoopAttemptCache) InvalidateAttempt(ctx context.Context, attemptID string) error {
	return nil
}
