package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"clinic-app-server/internal/models"
)

// ErrNotStaged is returned when a transaction id has no pending appointment,
// either because it never existed or because it expired.
var ErrNotStaged = errors.New("no staged appointment for transaction")

// Cache holds appointments that wait for payment confirmation.
type Cache interface {
	Stage(ctx context.Context, transactionID string, appt *models.Appointment, ttl time.Duration) error
}

// RedisCache stores staged appointments as JSON under booking:<transaction id>.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func cacheKey(transactionID string) string {
	return "booking:" + transactionID
}

func (c *RedisCache) Stage(ctx context.Context, transactionID string, appt *models.Appointment, ttl time.Duration) error {
	data, err := json.Marshal(appt)
	if err != nil {
		return fmt.Errorf("marshal staged appointment: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(transactionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("stage appointment: %w", err)
	}
	return nil
}

// load returns the staged appointment for transactionID. The payment
// callback that consumes staged bookings lives outside this service.
func (c *RedisCache) load(ctx context.Context, transactionID string) (*models.Appointment, error) {
	data, err := c.client.Get(ctx, cacheKey(transactionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotStaged
	}
	if err != nil {
		return nil, fmt.Errorf("load staged appointment: %w", err)
	}
	var appt models.Appointment
	if err := json.Unmarshal(data, &appt); err != nil {
		return nil, fmt.Errorf("decode staged appointment: %w", err)
	}
	return &appt, nil
}
