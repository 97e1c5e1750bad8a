package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/simaogato/payswarm-backend/internal/domain"
)

const keyPrefix = "payswarm:schedule:"

// NewClient connects to redis at addr and checks the connection
func NewClient(ctx context.Context, addr string) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// scheduleCache is a read-through cache in front of another PayeeScheduleRepository.
// Redis failures are logged and the underlying repository is used instead.
type scheduleCache struct {
	client *goredis.Client
	next   domain.PayeeScheduleRepository
	ttl    time.Duration
	logger *zap.Logger
}

// NewScheduleCache wraps next with a redis cache whose entries expire after ttl
func NewScheduleCache(client *goredis.Client, next domain.PayeeScheduleRepository, ttl time.Duration, logger *zap.Logger) domain.PayeeScheduleRepository {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &scheduleCache{
		client: client,
		next:   next,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *scheduleCache) GetByName(ctx context.Context, name string) (*domain.PayeeSchedule, error) {
	key := keyPrefix + name

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var schedule domain.PayeeSchedule
		if err := json.Unmarshal(data, &schedule); err == nil {
			return &schedule, nil
		}
		c.logger.Warn("dropping undecodable cached payee schedule", zap.String("key", key))
		c.client.Del(ctx, key)
	case !errors.Is(err, goredis.Nil):
		c.logger.Warn("payee schedule cache read failed", zap.String("key", key), zap.Error(err))
	}

	schedule, err := c.next.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(schedule); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("payee schedule cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return schedule, nil
}

// Save writes through to the underlying repository and evicts the cached copy
func (c *scheduleCache) Save(ctx context.Context, schedule *domain.PayeeSchedule) error {
	if err := c.next.Save(ctx, schedule); err != nil {
		return err
	}

	if err := c.client.Del(ctx, keyPrefix+schedule.Name).Err(); err != nil {
		c.logger.Warn("payee schedule cache eviction failed", zap.String("schedule", schedule.Name), zap.Error(err))
	}

	return nil
}
