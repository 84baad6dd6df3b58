package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bountyhive/bountyhive-backend/internal/marketplace/types"
	"github.com/bountyhive/bountyhive-backend/pkg/logging"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Cache is a read-through projection cache over Redis for the hot read
// paths: task snapshots and ballot progress. It is strictly best-effort;
// every miss or Redis failure falls through to the repository.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger logging.Logger
}

func NewCache(config Config, logger logging.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	ttl := config.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

func taskKey(taskID string) string     { return "task:" + taskID }
func progressKey(taskID string) string { return "ballots:" + taskID }

// GetTask returns the cached task snapshot, if present.
func (c *Cache) GetTask(ctx context.Context, taskID string) (*types.TaskData, bool) {
	raw, err := c.client.Get(ctx, taskKey(taskID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Task cache read failed", "task_id", taskID, "error", err)
		}
		return nil, false
	}
	var task types.TaskData
	if err := json.Unmarshal(raw, &task); err != nil {
		c.logger.Warn("Task cache entry corrupt", "task_id", taskID, "error", err)
		return nil, false
	}
	return &task, true
}

// SetTask stores a task snapshot with the configured TTL.
func (c *Cache) SetTask(ctx context.Context, task *types.TaskData) {
	raw, err := json.Marshal(task)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, taskKey(task.TaskID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("Task cache write failed", "task_id", task.TaskID, "error", err)
	}
}

// InvalidateTask drops the cached snapshots after a mutation.
func (c *Cache) InvalidateTask(ctx context.Context, taskID string) {
	if err := c.client.Del(ctx, taskKey(taskID), progressKey(taskID)).Err(); err != nil {
		c.logger.Warn("Task cache invalidation failed", "task_id", taskID, "error", err)
	}
}

// GetBallotProgress returns the cached "N of M voted" aggregate.
func (c *Cache) GetBallotProgress(ctx context.Context, taskID string) (*types.BallotProgress, bool) {
	raw, err := c.client.Get(ctx, progressKey(taskID)).Bytes()
	if err != nil {
		return nil, false
	}
	var progress types.BallotProgress
	if err := json.Unmarshal(raw, &progress); err != nil {
		return nil, false
	}
	return &progress, true
}

// SetBallotProgress stores the ballot progress aggregate.
func (c *Cache) SetBallotProgress(ctx context.Context, progress types.BallotProgress) {
	raw, err := json.Marshal(progress)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, progressKey(progress.TaskID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("Ballot progress cache write failed", "task_id", progress.TaskID, "error", err)
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
