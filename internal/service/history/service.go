package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/zhouzirui/zorey-ai/backend/internal/model/chat"
	"github.com/zhouzirui/zorey-ai/backend/internal/storage"
)

// turnsSchema describes the document stored under storage.KeyChatHistory.
const turnsSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "user", "ai"],
    "properties": {
      "id":        {"type": "integer"},
      "user":      {"type": "string"},
      "ai":        {"type": "string"},
      "timestamp": {"type": "string"}
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(turnsSchema)

// Service 持久化的只追加对话历史
type Service struct {
	mu    sync.Mutex
	store storage.Store
	key   string
}

// NewService 创建历史服务，数据保存在chatHistory键下
func NewService(store storage.Store) *Service {
	return &Service{store: store, key: storage.KeyChatHistory}
}

// Load 按写入顺序返回所有对话轮次。
// 数据缺失、无法读取或格式错误时返回空历史，只记录日志。
func (s *Service) Load(ctx context.Context) []chat.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns, err := s.load(ctx)
	if err != nil {
		log.Warn().Err(err).Str("component", "history").Msg("treating stored history as empty")
		return []chat.Turn{}
	}
	return turns
}

// Append 将一轮对话追加到历史末尾
func (s *Service) Append(ctx context.Context, turn chat.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns, err := s.load(ctx)
	if err != nil {
		log.Warn().Err(err).Str("component", "history").Msg("overwriting unreadable history")
		turns = nil
	}
	turns = append(turns, turn)

	data, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := s.store.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("save history: %w", err)
	}

	log.Debug().Str("component", "history").Int64("turn", turn.ID).Int("size", len(turns)).Msg("turn appended")
	return nil
}

// Clear 清空所有历史
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Remove(ctx, s.key); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (s *Service) load(ctx context.Context) ([]chat.Turn, error) {
	raw, ok, err := s.store.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if !ok || len(raw) == 0 {
		return []chat.Turn{}, nil
	}
	if err := validate(raw); err != nil {
		return nil, err
	}

	var turns []chat.Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	if turns == nil {
		turns = []chat.Turn{}
	}
	return turns, nil
}

func validate(raw []byte) error {
	if !json.Valid(raw) {
		return fmt.Errorf("history is not valid JSON")
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validate history: %w", err)
	}
	if !result.Valid() {
		var problems []string
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return fmt.Errorf("history schema errors: %s", strings.Join(problems, "; "))
	}
	return nil
}
