package persona

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
)

// Store persona存储接口
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
	Active() Persona
}

// MemoryStore 基于内存的persona存储，第一个元素为当前persona
type MemoryStore struct {
	items []Persona
}

// NewMemoryStore 创建预置personas的内存存储
func NewMemoryStore(items []Persona) *MemoryStore {
	return &MemoryStore{items: append([]Persona(nil), items...)}
}

// ErrNotFound 指定的人格不存在
var ErrNotFound = errors.New("persona not found")

// Activate 将 id 对应的人格设为当前人格，其余人格顺序不变
func (s *MemoryStore) Activate(id string) error {
	for i, item := range s.items {
		if item.ID != id {
			continue
		}
		rest := append(append([]Persona(nil), s.items[:i]...), s.items[i+1:]...)
		s.items = append([]Persona{item}, rest...)
		return nil
	}
	return fmt.Errorf("%w: %q", ErrNotFound, id)
}

// LoadFile 从TOML文件读取persona定义并设为当前persona
func LoadFile(path string) (*MemoryStore, error) {
	var p Persona
	if _, err := toml.DecodeFile(path, &p); err != nil {
		return nil, fmt.Errorf("decode persona file %s: %w", path, err)
	}
	return NewMemoryStore([]Persona{p.withDefaults()}), nil
}

// List 返回所有persona
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID 根据ID查找persona
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Persona{}, false
}

// Active 返回当前persona，为空时回退到内置persona
func (s *MemoryStore) Active() Persona {
	if len(s.items) == 0 {
		return Seed()[0]
	}
	return s.items[0].withDefaults()
}
