// Package review holds the transient segmentation-review requests exchanged
// with the external review UI. Requests expire on their own; nothing here is
// durable state.
package review

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrRequestNotFound = errors.New("review request not found")

// Request is one open segmentation-review exchange.
type Request struct {
	ID   string                 `json:"id"`
	Data map[string]interface{} `json:"data"`
}

type Cache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewCache(redisClient *redis.Client, ttl time.Duration) *Cache {
	return &Cache{redis: redisClient, ttl: ttl}
}

func key(id string) string { return "review:request:" + id }

// Open stores a new review request and returns its id.
func (c *Cache) Open(ctx context.Context, data map[string]interface{}) (string, error) {
	request := Request{
		ID:   uuid.New().String(),
		Data: data,
	}
	raw, err := json.Marshal(request)
	if err != nil {
		return "", err
	}
	if err := c.redis.Set(ctx, key(request.ID), raw, c.ttl).Err(); err != nil {
		return "", err
	}
	return request.ID, nil
}

func (c *Cache) Get(ctx context.Context, id string) (Request, error) {
	raw, err := c.redis.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Request{}, ErrRequestNotFound
	}
	if err != nil {
		return Request{}, err
	}
	var request Request
	if err := json.Unmarshal(raw, &request); err != nil {
		return Request{}, err
	}
	return request, nil
}

// Update replaces the request payload and refreshes its TTL.
func (c *Cache) Update(ctx context.Context, request Request) error {
	raw, err := json.Marshal(request)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, key(request.ID), raw, c.ttl).Err()
}

func (c *Cache) Close(ctx context.Context, id string) error {
	return c.redis.Del(ctx, key(id)).Err()
}
