package stream

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/zorey-ai/backend/internal/service/render"
	"github.com/zhouzirui/zorey-ai/backend/pkg/utils"
)

const (
	eventRender = "render"
	eventReady  = "ready"

	defaultKeepAlive = 15 * time.Second
)

// Source 提供渲染订阅
type Source interface {
	Subscribe() ([]render.Op, *render.Subscription)
}

// Handler 通过SSE向页面推送渲染指令
type Handler struct {
	source    Source
	keepAlive time.Duration
}

// New 创建流式处理器
func New(source Source) *Handler {
	return &Handler{
		source:    source,
		keepAlive: defaultKeepAlive,
	}
}

// RegisterRoutes 注册事件流路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/events", h.handleEvents)
}

// handleEvents 先回放当前画面，再转发后续渲染指令，
// 直到客户端断开或订阅被hub丢弃
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	replay, sub := h.source.Subscribe()
	defer sub.Close()

	logger := log.With().Str("component", "sse").Str("subscriber", sub.ID).Logger()
	logger.Debug().Int("replay", len(replay)).Msg("opening event stream")

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	for _, op := range replay {
		if err := utils.SendSSEEvent(w, flusher, eventRender, op); err != nil {
			logger.Debug().Err(err).Msg("replay aborted")
			return
		}
	}
	if err := utils.SendSSEEvent(w, flusher, eventReady, map[string]int{"replayed": len(replay)}); err != nil {
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("closing event stream")
			return
		case op, ok := <-sub.C:
			if !ok {
				logger.Debug().Msg("subscription dropped")
				return
			}
			if err := utils.SendSSEEvent(w, flusher, eventRender, op); err != nil {
				logger.Debug().Err(err).Msg("write failed")
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "keep-alive"); err != nil {
				return
			}
		}
	}
}
