package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/zorey-ai/backend/internal/config"
	"github.com/zhouzirui/zorey-ai/backend/internal/model/chat"
	"github.com/zhouzirui/zorey-ai/backend/internal/model/persona"
)

// Service AI推理服务，输入persona指令和提问，返回回复文本
type Service struct {
	persona persona.Persona
	system  string
	cfg     config.AIConfig
	chain   compose.Runnable[map[string]any, *schema.Message]
}

// NewService 为当前persona构建提示链。
// 未配置凭证时仍返回服务，之后每次 Ask 都返回 ConfigurationError。
func NewService(ctx context.Context, personas persona.Store, cfg config.AIConfig) (*Service, error) {
	svc := &Service{
		persona: personas.Active(),
		cfg:     cfg,
	}
	svc.system = NewPersonaPromptManager().BuildSystemPrompt(svc.persona)

	if !cfg.HasCredential() {
		log.Warn().Str("component", "ai").Str("provider", cfg.Provider).Msg("credential missing, requests will fail")
		return svc, nil
	}

	chatModel, err := NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	if err := svc.compile(ctx, chatModel); err != nil {
		return nil, err
	}
	return svc, nil
}

// NewServiceWithModel wires an already constructed chat model. Used by tests and
// by callers that bring their own provider.
func NewServiceWithModel(ctx context.Context, p persona.Persona, chatModel model.BaseChatModel) (*Service, error) {
	svc := &Service{
		persona: p,
		system:  NewPersonaPromptManager().BuildSystemPrompt(p),
		cfg:     config.AIConfig{Provider: "custom"},
	}
	if err := svc.compile(ctx, chatModel); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *Service) compile(ctx context.Context, chatModel model.BaseChatModel) error {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("query", false),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return fmt.Errorf("failed to compile chat chain: %w", err)
	}
	s.chain = runnable
	return nil
}

// SystemPrompt 返回每次提问前附加的固定系统指令
func (s *Service) SystemPrompt() string {
	return s.system
}

// Ask sends one prompt, optionally with an image, and returns the reply text.
// There is exactly one attempt. A reply without text yields the persona's
// no-response line instead of an error.
func (s *Service) Ask(ctx context.Context, promptText string, image *chat.Image) (string, error) {
	if s.chain == nil {
		return "", &ConfigurationError{Err: ErrCredentialUnavailable}
	}

	start := time.Now()
	response, err := s.chain.Invoke(ctx, map[string]any{
		"system": s.system,
		"query":  []*schema.Message{userMessage(promptText, image)},
	})
	if err != nil {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			return "", cfgErr
		}
		return "", asRemoteError(err)
	}

	reply := ""
	if response != nil {
		reply = response.Content
	}
	if reply == "" {
		log.Warn().Str("component", "ai").Msg("response carried no text, using fallback")
		reply = s.persona.NoResponse
	}

	log.Info().
		Str("component", "ai").
		Str("provider", s.cfg.Provider).
		Bool("image", image != nil).
		Int("length", len(reply)).
		Dur("elapsed", time.Since(start)).
		Msg("generated response")
	return reply, nil
}

func userMessage(promptText string, image *chat.Image) *schema.Message {
	if !image.Valid() {
		return schema.UserMessage(promptText)
	}
	return &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: promptText},
			{
				Type: schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{
					URL:      dataURL(image.MimeType, image.Data),
					MIMEType: image.MimeType,
				},
			},
		},
	}
}
