package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix = "wheel-refurb:idem:"
	// SETNX then GET is retried once if the key expires in between.
	beginAttempts = 2
)

// commands is the part of the redis client Idempotency uses.
type commands interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}

// ErrInProgress is returned when the same key is already being processed.
var ErrInProgress = errors.New("request with this idempotency key is in progress")

// Response is a finished result stored against an idempotency key.
type Response struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type entry struct {
	Pending  bool      `json:"pending"`
	Response *Response `json:"response,omitempty"`
}

// Idempotency remembers successful one-shot submissions so that a retried
// request (double click, flaky network) doesn't create a second appointment.
type Idempotency struct {
	client commands
	ttl    time.Duration
	log    *zap.Logger
}

func NewIdempotency(ctx context.Context, addr string, ttl time.Duration, log *zap.Logger) (*Idempotency, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Info("Connected to Redis", zap.String("addr", addr))
	return &Idempotency{client: client, ttl: ttl, log: log}, nil
}

// Begin claims key. It returns a stored response when the key already
// finished, ErrInProgress while another request holds it, and (nil, nil)
// when the caller now owns the key and must call Complete or Release.
func (i *Idempotency) Begin(ctx context.Context, key string) (*Response, error) {
	pending, _ := json.Marshal(entry{Pending: true})
	for attempt := 0; attempt < beginAttempts; attempt++ {
		ok, err := i.client.SetNX(ctx, keyPrefix+key, pending, i.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return nil, nil
		}

		raw, err := i.client.Get(ctx, keyPrefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			// Expired between SETNX and GET.
			continue
		}
		if err != nil {
			return nil, err
		}
		return decode(raw)
	}
	// Still flapping; treat it as held by someone else.
	return nil, ErrInProgress
}

// Complete stores the final response for key.
func (i *Idempotency) Complete(ctx context.Context, key string, resp Response) error {
	raw, err := json.Marshal(entry{Response: &resp})
	if err != nil {
		return err
	}
	return i.client.Set(ctx, keyPrefix+key, raw, i.ttl).Err()
}

// Release forgets key so the client may retry with it.
func (i *Idempotency) Release(ctx context.Context, key string) error {
	return i.client.Del(ctx, keyPrefix+key).Err()
}

func (i *Idempotency) Close() error {
	return i.client.Close()
}

func decode(raw []byte) (*Response, error) {
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("corrupt idempotency entry: %w", err)
	}
	if e.Pending || e.Response == nil {
		return nil, ErrInProgress
	}
	return e.Response, nil
}
