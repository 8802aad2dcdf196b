// Package preference keeps page settings next to the chat history.
package preference

import (
	"context"
	"errors"
	"fmt"

	"github.com/zhouzirui/zorey-ai/backend/internal/storage"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

var ErrInvalidTheme = errors.New("theme must be light or dark")

// Service 主题偏好服务
type Service struct {
	store storage.Store
}

func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

// Theme 返回已保存的主题，为空时页面跟随系统设置
func (s *Service) Theme(ctx context.Context) (string, error) {
	raw, ok, err := s.store.Get(ctx, storage.KeyTheme)
	if err != nil {
		return "", fmt.Errorf("read theme: %w", err)
	}
	if !ok {
		return "", nil
	}
	switch theme := string(raw); theme {
	case ThemeLight, ThemeDark:
		return theme, nil
	default:
		return "", nil
	}
}

// SetTheme 保存主题
func (s *Service) SetTheme(ctx context.Context, theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return ErrInvalidTheme
	}
	if err := s.store.Set(ctx, storage.KeyTheme, []byte(theme)); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}
