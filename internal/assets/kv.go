package assets

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
)

// ErrKeyNotFound 表示键值命名空间中不存在对应的存储键。
var ErrKeyNotFound = errors.New("asset key not found")

// KV 抽象静态资产的字节存储，按清单解析出的存储键读取。
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Close() error
}

// LevelKV 以 LevelDB 实现资产命名空间，整站复用一份实例。
type LevelKV struct {
	db *leveldb.DB
}

// OpenKV 打开（或创建）path 处的 LevelDB 命名空间。
func OpenKV(path string) (*LevelKV, error) {
	if path == "" {
		return nil, errors.New("kv store path required")
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open kv store: %w", err)
	}
	return &LevelKV{db: db}, nil
}

// Get 读取存储键的完整字节，缺失归一为 ErrKeyNotFound。
func (kv *LevelKV) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := kv.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return data, nil
}

// Put 写入一个存储键，供构建产物导入与测试填充使用。
func (kv *LevelKV) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return kv.db.Put([]byte(key), value, nil)
}

// Close 释放底层数据库句柄。
func (kv *LevelKV) Close() error {
	return kv.db.Close()
}
