package redisbus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const digestPrefix = "classjournal:digest:"

// DigestKey is the list holding a user's buffered items for one frequency
func DigestKey(frequency string, userID int64) string {
	return digestPrefix + frequency + ":" + strconv.FormatInt(userID, 10)
}

func pendingKey(frequency string) string {
	return digestPrefix + frequency + ":pending"
}

// DigestStore buffers notifications until the next digest run
type DigestStore struct {
	client *redis.Client
}

// NewDigestStore creates a new DigestStore
func NewDigestStore(client *redis.Client) *DigestStore {
	return &DigestStore{client: client}
}

// Append buffers one item and marks the user as pending
func (s *DigestStore) Append(ctx context.Context, frequency string, userID int64, item []byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, DigestKey(frequency, userID), item)
		pipe.SAdd(ctx, pendingKey(frequency), userID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to buffer digest item: %w", err)
	}
	return nil
}

// PendingUsers lists users with buffered items for the frequency
func (s *DigestStore) PendingUsers(ctx context.Context, frequency string) ([]int64, error) {
	members, err := s.client.SMembers(ctx, pendingKey(frequency)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending digest users: %w", err)
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Drain atomically takes every buffered item of a user. Items appended afterwards stay for the next run.
func (s *DigestStore) Drain(ctx context.Context, frequency string, userID int64) ([][]byte, error) {
	key := DigestKey(frequency, userID)

	var items *redis.StringSliceCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		items = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		pipe.SRem(ctx, pendingKey(frequency), userID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to drain digest buffer: %w", err)
	}

	values := items.Val()
	out := make([][]byte, len(values))
	for i, v := range values {
		out[i] = []byte(v)
	}
	return out, nil
}

// Restore puts items back at the head of a user's buffer after a failed send
func (s *DigestStore) Restore(ctx context.Context, frequency string, userID int64, items [][]byte) error {
	if len(items) == 0 {
		return nil
	}
	values := make([]interface{}, len(items))
	// LPUSH reverses its arguments
	for i, item := range items {
		values[len(items)-1-i] = item
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, DigestKey(frequency, userID), values...)
		pipe.SAdd(ctx, pendingKey(frequency), userID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to restore digest buffer: %w", err)
	}
	return nil
}
