package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/zhouzirui/zorey-ai/backend/internal/config"
)

// NewChatModel 根据 cfg.Provider 创建聊天模型
func NewChatModel(ctx context.Context, cfg config.AIConfig) (model.BaseChatModel, error) {
	switch cfg.Provider {
	case config.ProviderArk:
		return newArkChatModel(ctx, cfg)
	case config.ProviderGemini, "":
		return NewGeminiChatModel(GeminiConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			VisionModel: cfg.VisionModel,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}

func newArkChatModel(ctx context.Context, cfg config.AIConfig) (model.BaseChatModel, error) {
	if !cfg.HasCredential() {
		return nil, &ConfigurationError{Err: ErrCredentialUnavailable}
	}

	var maxTokens *int
	if cfg.MaxTokens != nil {
		val := *cfg.MaxTokens
		maxTokens = &val
	}

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     cfg.ArkBaseURL,
		Region:      cfg.ArkRegion,
		APIKey:      cfg.ArkAPIKey,
		AccessKey:   cfg.ArkAccessKey,
		SecretKey:   cfg.ArkSecretKey,
		Model:       cfg.ArkModel,
		MaxTokens:   maxTokens,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
	})
}
