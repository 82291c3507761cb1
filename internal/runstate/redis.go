// Package runstate lưu cờ hủy run trên Redis để mọi instance server cùng thấy.
package runstate

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultCancelTTL cờ hủy tự hết hạn nếu không có run nào đọc tới
const DefaultCancelTTL = 6 * time.Hour

const cancelKeyPrefix = "shorts:cancel:"

// kv các lệnh Redis cần dùng, *redis.Client thỏa interface này
type kv interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisCancelSignals cờ hủy theo project lưu ở Redis
type RedisCancelSignals struct {
	client kv
	ttl    time.Duration
}

// NewRedisCancelSignals tạo store. ttl <= 0 thì dùng DefaultCancelTTL
func NewRedisCancelSignals(client kv, ttl time.Duration) *RedisCancelSignals {
	if ttl <= 0 {
		ttl = DefaultCancelTTL
	}
	return &RedisCancelSignals{client: client, ttl: ttl}
}

// Connect mở kết nối Redis và ping thử
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func cancelKey(projectID string) string {
	return cancelKeyPrefix + projectID
}

// RequestCancel đặt cờ hủy
func (r *RedisCancelSignals) RequestCancel(ctx context.Context, projectID string) error {
	return r.client.Set(ctx, cancelKey(projectID), "1", r.ttl).Err()
}

// IsCancelRequested có cờ hủy cho project không
func (r *RedisCancelSignals) IsCancelRequested(ctx context.Context, projectID string) (bool, error) {
	n, err := r.client.Exists(ctx, cancelKey(projectID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClearCancel xóa cờ hủy
func (r *RedisCancelSignals) ClearCancel(ctx context.Context, projectID string) error {
	return r.client.Del(ctx, cancelKey(projectID)).Err()
}
