// Package cache holds a short-TTL snapshot of derived project state. The
// snapshot is a read accelerator only: every mutation invalidates it, and a
// miss falls through to live derivation, so a cold or unavailable cache is
// never incorrect, just slower.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"wastetrack/internal/project/models"
	id "wastetrack/pkg/domain"
)

const keyPrefix = "project:derived:"

// DefaultTTL bounds how stale a CALENDAR percentage can get between reads.
const DefaultTTL = 30 * time.Second

// Redis caches derived project snapshots.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

type Option func(*Redis)

func WithTTL(ttl time.Duration) Option {
	return func(c *Redis) {
		c.ttl = ttl
	}
}

func NewRedis(client *redis.Client, opts ...Option) *Redis {
	c := &Redis{client: client, ttl: DefaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func key(customerID id.CustomerID, projectID id.ProjectID) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, customerID, projectID)
}

// Get returns the cached snapshot, or (nil, nil) on a miss. Errors other
// than a miss are returned so callers can decide to log and fall through.
func (c *Redis) Get(ctx context.Context, customerID id.CustomerID, projectID id.ProjectID) (*models.Project, error) {
	raw, err := c.client.Get(ctx, key(customerID, projectID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached project: %w", err)
	}
	var project models.Project
	if err := json.Unmarshal(raw, &project); err != nil {
		return nil, fmt.Errorf("decode cached project: %w", err)
	}
	return &project, nil
}

// Set stores a derived snapshot with the configured TTL.
func (c *Redis) Set(ctx context.Context, project *models.Project) error {
	raw, err := json.Marshal(project)
	if err != nil {
		return fmt.Errorf("encode project snapshot: %w", err)
	}
	if err := c.client.Set(ctx, key(project.CustomerID, project.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached project: %w", err)
	}
	return nil
}

// Invalidate drops the snapshot after a mutation.
func (c *Redis) Invalidate(ctx context.Context, customerID id.CustomerID, projectID id.ProjectID) error {
	if err := c.client.Del(ctx, key(customerID, projectID)).Err(); err != nil {
		return fmt.Errorf("invalidate cached project: %w", err)
	}
	return nil
}
