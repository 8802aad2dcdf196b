package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zhouzirui/zorey-ai/backend/internal/handler/chat"
	"github.com/zhouzirui/zorey-ai/backend/internal/handler/live"
	"github.com/zhouzirui/zorey-ai/backend/internal/handler/persona"
	"github.com/zhouzirui/zorey-ai/backend/internal/handler/preference"
	"github.com/zhouzirui/zorey-ai/backend/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/zorey-ai/backend/internal/middleware"
	personaModel "github.com/zhouzirui/zorey-ai/backend/internal/model/persona"
	"github.com/zhouzirui/zorey-ai/backend/internal/service/conversation"
	"github.com/zhouzirui/zorey-ai/backend/internal/service/render"
	"github.com/zhouzirui/zorey-ai/backend/internal/web"
)

// Deps are the services the HTTP layer talks to.
type Deps struct {
	Personas    personaModel.Store
	Controller  *conversation.Controller
	History     chat.HistoryReader
	Hub         *render.Hub
	Preferences preference.Themes
	Metrics     prometheus.Gatherer
	// AllowedOrigins lists cross-origin pages trusted besides the page itself.
	AllowedOrigins []string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))

	personaHandler := persona.New(deps.Personas)
	chatHandler := chat.New(deps.Controller, deps.History)
	preferenceHandler := preference.New(deps.Preferences)
	streamHandler := stream.New(deps.Hub)
	liveHandler := live.NewWebSocketHandler(deps.Controller, deps.Hub, deps.AllowedOrigins)

	r.Route("/api", func(api chi.Router) {
		personaHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		preferenceHandler.RegisterRoutes(api)

		// Render ops: SSE for read-only views, websocket for the page itself.
		streamHandler.RegisterRoutes(api)
		liveHandler.RegisterRoutes(api)
	})

	if deps.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Handle("/*", web.Handler())

	return r
}
