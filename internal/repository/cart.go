package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/flicky/premium-store/internal/cart"
)

const cartTTL = 30 * 24 * time.Hour

// CartRepository keeps the customer's cart between visits. The cart is
// client state; this is only its durable copy.
type CartRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*cart.Cart, error)
	Save(ctx context.Context, userID uuid.UUID, c *cart.Cart) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

type redisCartRepo struct{ client *redis.Client }

func NewCartRepository(client *redis.Client) CartRepository {
	return &redisCartRepo{client: client}
}

func cartKey(userID uuid.UUID) string { return "cart:" + userID.String() }

func (r *redisCartRepo) Get(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	data, err := r.client.Get(ctx, cartKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &cart.Cart{}, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	c := &cart.Cart{}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return c, nil
}

func (r *redisCartRepo) Save(ctx context.Context, userID uuid.UUID, c *cart.Cart) error {
	if len(c.Items()) == 0 {
		return r.Delete(ctx, userID)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := r.client.Set(ctx, cartKey(userID), data, cartTTL).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (r *redisCartRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := r.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
