package edgecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInvalidEntry 表示存储中的条目无法反序列化，视为未命中并计入错误指标。
var ErrInvalidEntry = errors.New("invalid cache entry")

// storedEntry 是写入 Redis 的序列化结构，正文以 base64 随 JSON 编码。
type storedEntry struct {
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
	StoredAt   time.Time   `json:"stored_at"`
}

// RedisStore 以 Redis 作为分布式响应缓存后端，同时充当命名存储的 Opener。
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore 构建默认命名空间的 Redis 存储。client 不能为空。
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{client: client, prefix: "edge"}
}

// Open 返回共享同一连接、键前缀隔离的命名存储。
func (s *RedisStore) Open(name string) Store {
	return &RedisStore{client: s.client, prefix: s.prefix + ":" + name}
}

// Match 读取并反序列化存储条目，redis.Nil 归一为 ErrNotFound。
func (s *RedisStore) Match(ctx context.Context, key Key) (*Response, error) {
	data, err := s.client.Get(ctx, s.entryKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		storeErrors.WithLabelValues("match").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry storedEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		storeErrors.WithLabelValues("match").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	return &Response{
		StatusCode: entry.StatusCode,
		Header:     entry.Header,
		Body:       entry.Body,
	}, nil
}

// Put 序列化响应快照写入 Redis；ttl <= 0 时不设置过期，由 max-age 语义兜底。
func (s *RedisStore) Put(ctx context.Context, key Key, resp *Response, ttl time.Duration) error {
	if resp == nil {
		return errors.New("response cannot be nil")
	}

	entry := storedEntry{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
		StoredAt:   time.Now().UTC(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		storeErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.entryKey(key), data, ttl).Err(); err != nil {
		storeErrors.WithLabelValues("put").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) entryKey(key Key) string {
	return s.prefix + ":" + key.String()
}
