package preference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/zorey-ai/backend/internal/service/preference"
	"github.com/zhouzirui/zorey-ai/backend/pkg/utils"
)

// Themes 读写主题偏好
type Themes interface {
	Theme(ctx context.Context) (string, error)
	SetTheme(ctx context.Context, theme string) error
}

// Handler 页面偏好设置处理器
type Handler struct {
	themes Themes
}

func New(themes Themes) *Handler {
	return &Handler{themes: themes}
}

// RegisterRoutes 注册偏好设置路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/preferences/theme", h.handleGetTheme)
	r.Put("/preferences/theme", h.handlePutTheme)
}

type themePayload struct {
	Theme string `json:"theme"`
}

func (h *Handler) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := h.themes.Theme(r.Context())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, themePayload{Theme: theme})
}

func (h *Handler) handlePutTheme(w http.ResponseWriter, r *http.Request) {
	var payload themePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.themes.SetTheme(r.Context(), payload.Theme); err != nil {
		if errors.Is(err, preference.ErrInvalidTheme) {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, payload)
}
