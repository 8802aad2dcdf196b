// Package app builds the process's collaborators once and hands them out.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/zorey-ai/backend/internal/config"
	"github.com/zhouzirui/zorey-ai/backend/internal/handler"
	"github.com/zhouzirui/zorey-ai/backend/internal/metrics"
	"github.com/zhouzirui/zorey-ai/backend/internal/model/persona"
	"github.com/zhouzirui/zorey-ai/backend/internal/service/ai"
	"github.com/zhouzirui/zorey-ai/backend/internal/service/conversation"
	"github.com/zhouzirui/zorey-ai/backend/internal/service/history"
	"github.com/zhouzirui/zorey-ai/backend/internal/service/preference"
	"github.com/zhouzirui/zorey-ai/backend/internal/service/render"
	"github.com/zhouzirui/zorey-ai/backend/internal/storage"
)

// App 应用上下文，所有请求共享同一组服务
type App struct {
	Store       storage.Store
	Personas    persona.Store
	AI          *ai.Service
	History     *history.Service
	Preferences *preference.Service
	Hub         *render.Hub
	Registry    *prometheus.Registry
	Controller  *conversation.Controller

	allowedOrigins []string
}

// New opens storage, builds the services and renders the stored history.
// A missing AI credential is not an error: exchanges then render the failure line.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := storage.Open(ctx, storage.Options{Driver: cfg.Storage.Driver, Path: cfg.Storage.Path})
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	personas, err := loadPersonas(cfg.AI.PersonaFile, cfg.AI.PersonaID)
	if err != nil {
		store.Close()
		return nil, err
	}

	aiService, err := ai.NewService(ctx, personas, cfg.AI)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("initialize ai service: %w", err)
	}

	a := &App{
		Store:       store,
		Personas:    personas,
		AI:          aiService,
		History:     history.NewService(store),
		Preferences: preference.NewService(store),
		Hub:         render.NewHub(),
		Registry:    metrics.NewRegistry(),

		allowedOrigins: cfg.Server.AllowedOrigins,
	}
	a.Controller = conversation.NewController(a.AI, a.History, a.Hub, personas.Active(),
		conversation.WithObserver(metrics.NewRecorder(a.Registry)))

	turns := a.Controller.Load(ctx)
	log.Info().
		Str("component", "app").
		Str("storage", cfg.Storage.Driver).
		Str("persona", personas.Active().ID).
		Int("turns", len(turns)).
		Msg("application ready")
	return a, nil
}

// Router 返回应用的HTTP处理器
func (a *App) Router() http.Handler {
	return handler.NewRouter(handler.Deps{
		Personas:    a.Personas,
		Controller:  a.Controller,
		History:     a.History,
		Hub:         a.Hub,
		Preferences: a.Preferences,
		Metrics:     a.Registry,

		AllowedOrigins: a.allowedOrigins,
	})
}

// Close 释放存储
func (a *App) Close() error {
	return a.Store.Close()
}

// loadPersonas 读取人格文件，未配置时使用内置人格；id 非空时切换当前人格
func loadPersonas(path, id string) (persona.Store, error) {
	store := persona.NewMemoryStore(persona.Seed())
	if path != "" {
		loaded, err := persona.LoadFile(path)
		if err != nil {
			return nil, err
		}
		store = loaded
	}
	if id != "" {
		if err := store.Activate(id); err != nil {
			return nil, fmt.Errorf("select persona: %w", err)
		}
	}
	return store, nil
}
