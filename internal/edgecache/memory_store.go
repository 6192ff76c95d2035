package edgecache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore 是进程内的响应缓存后端，供开发环境与测试使用，
// 不具备跨节点一致性。生产部署应使用 RedisStore。
type MemoryStore struct {
	entries *gocache.Cache
	prefix  string
}

// NewMemoryStore 构建带周期清理的内存存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: gocache.New(gocache.NoExpiration, 5*time.Minute),
	}
}

// Open 返回共享底层缓存、键前缀隔离的命名存储。
func (s *MemoryStore) Open(name string) Store {
	return &MemoryStore{entries: s.entries, prefix: s.prefix + name + "/"}
}

// Match 返回存储的响应快照。快照在 Put 时已经固化，调用方不得修改。
func (s *MemoryStore) Match(ctx context.Context, key Key) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, ok := s.entries.Get(s.prefix + key.String())
	if !ok {
		return nil, ErrNotFound
	}
	resp, ok := value.(*Response)
	if !ok {
		return nil, ErrInvalidEntry
	}
	return resp, nil
}

// Put 存入响应的独立副本，避免调用方后续修改污染缓存。
func (s *MemoryStore) Put(ctx context.Context, key Key, resp *Response, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	expiration := ttl
	if expiration <= 0 {
		expiration = gocache.NoExpiration
	}
	s.entries.Set(s.prefix+key.String(), resp.Clone(), expiration)
	return nil
}
