package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"contract-sender/pkg/logger"

	"github.com/redis/go-redis/v9"
)

type RedisBus struct {
	rdb *redis.Client
}

func NewRedisBus(rdb *redis.Client) *RedisBus { return &RedisBus{rdb: rdb} }

func (b *RedisBus) Publish(ctx context.Context, e Event) error {
	if e.UserID == "" {
		return errors.New("notify: user_id is required")
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, Channel(e.UserID), payload).Err(); err != nil {
		return fmt.Errorf("notify: publish: %w", err)
	}
	return nil
}

// Subscribe confirms the subscription before returning so no event
// published after a successful call is missed.
func (b *RedisBus) Subscribe(ctx context.Context, userID string) (<-chan Event, func(), error) {
	ps := b.rdb.Subscribe(ctx, Channel(userID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("notify: subscribe: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Event, 16)
	log := logger.From(ctx).With("channel", Channel(userID))
	go func() {
		defer close(out)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				e, err := Decode([]byte(m.Payload))
				if err != nil {
					log.Warn("dropping push payload", "error", err)
					continue
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, cancel, nil
}
