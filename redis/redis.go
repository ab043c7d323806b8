package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/edgeee/chat-backend/api"
	"github.com/redis/go-redis/v9"
)

// Redis caches the most recent messages of each conversation.
type Redis struct {
	cli *redis.Client
}

// Connect connects to the Redis server and pings the server to ensure the
// connection is working.
func Connect(ctx context.Context, addr string) (*Redis, error) {
	cli := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{
		cli: cli,
	}, nil
}

const (
	conversationPrefix = "conversation"
	maxSize            = 10
)

// pairKey builds an order independent key for the two participants, so that
// both directions of a conversation share the same cache entry.
func pairKey(userA, userB string) string {
	if strings.Compare(userA, userB) > 0 {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("%s:%s:%s", conversationPrefix, userA, userB)
}

// ListConversation returns the cached messages exchanged between userA and
// userB, oldest first.
func (r *Redis) ListConversation(ctx context.Context, userA, userB string) ([]api.Message, error) {
	vals, err := r.cli.ZRangeByScore(ctx, pairKey(userA, userB), &redis.ZRangeBy{
		Min: "-inf",
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange: %w", err)
	}

	out := make([]api.Message, len(vals))
	for i, key := range vals {
		var msg message
		if err := r.cli.HGetAll(ctx, key).Scan(&msg); err != nil {
			return nil, fmt.Errorf("hgetall: %w", err)
		}
		out[i] = msg.APIMessage()
	}

	return out, nil
}

// InsertMessage adds the message to Redis with conversation:USER_A:USER_B:msg:MESSAGE_ID
// as the key and adds the key to the conversation's sorted set, scored by the
// creation timestamp.
func (r *Redis) InsertMessage(ctx context.Context, msg api.Message) error {
	m := &message{
		ID:        msg.ID,
		Sender:    msg.Sender,
		Receiver:  msg.Receiver,
		Text:      msg.Text,
		Seen:      msg.Seen,
		CreatedAt: msg.CreatedAt,
	}
	setKey := pairKey(msg.Sender, msg.Receiver)

	err := r.cli.Watch(ctx, func(tx *redis.Tx) error {
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			key := fmt.Sprintf("%s:msg:%s", setKey, m.ID)
			pipe.HSet(ctx, key, m)
			pipe.ZAdd(ctx, setKey, redis.Z{
				Score:  float64(msg.CreatedAt.UnixNano()),
				Member: key,
			})

			return nil
		})
		return err
	}, m.ID)

	if err != nil {
		return fmt.Errorf("redis insert message: %w", err)
	}

	// Simulate an eviction strategy by removing the oldest keys in case the
	// max cache size per conversation is exceeded.
	if err := r.evictOldest(ctx, setKey); err != nil {
		return fmt.Errorf("evict oldest: %w", err)
	}
	return nil
}

// Invalidate drops everything cached for the conversation between userA and
// userB. Used after a seen-state update so stale seen flags never serve.
func (r *Redis) Invalidate(ctx context.Context, userA, userB string) error {
	setKey := pairKey(userA, userB)
	vals, err := r.cli.ZRange(ctx, setKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("zrange: %w", err)
	}

	for _, key := range vals {
		_ = r.cli.Del(ctx, key).Err()
	}
	if err := r.cli.Del(ctx, setKey).Err(); err != nil {
		return fmt.Errorf("del: %w", err)
	}
	return nil
}

func (r *Redis) evictOldest(ctx context.Context, setKey string) error {
	vals, err := r.cli.ZRange(ctx, setKey, 0, int64(-maxSize-1)).Result()
	if err != nil {
		return fmt.Errorf("zrange: %w", err)
	}

	for _, key := range vals {
		_ = r.cli.ZRem(ctx, setKey, key).Err()
		_ = r.cli.Del(ctx, key).Err()
	}

	return nil
}
