// Package storage 提供聊天记录和偏好设置使用的本地键值存储
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// 约定的键名
const (
	KeyChatHistory = "chatHistory"
	KeyTheme       = "theme"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

// Store 以字符串为键的字节存储，相当于浏览器的localStorage
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Options 选择并配置存储驱动
type Options struct {
	Driver string
	Path   string
}

// Open 按 opts.Driver 创建存储
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "file":
		return NewFileStore(opts.Path)
	case "sqlite":
		return NewSQLiteStore(ctx, opts.Path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}
