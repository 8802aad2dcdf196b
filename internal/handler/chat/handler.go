package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/zorey-ai/backend/internal/model/chat"
	"github.com/zhouzirui/zorey-ai/backend/internal/service/conversation"
	"github.com/zhouzirui/zorey-ai/backend/pkg/utils"
)

const (
	userPreviewRunes = 50
	aiPreviewRunes   = 70

	// base64 in JSON grows the image by a third; leave room for the text.
	maxBodyBytes = 2 * conversation.MaxImageBytes
)

// HistoryReader 读取已保存的对话轮次
type HistoryReader interface {
	Load(ctx context.Context) []chat.Turn
}

// Handler 聊天REST接口处理器
type Handler struct {
	ctrl    *conversation.Controller
	history HistoryReader
}

// New 创建聊天处理器
func New(ctrl *conversation.Controller, history HistoryReader) *Handler {
	return &Handler{
		ctrl:    ctrl,
		history: history,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/history", h.handleListHistory)
	r.Delete("/history", h.handleNewChat)
	r.Post("/messages", h.handleSubmit)
	r.Get("/search", h.handleSearch)
	r.Post("/search/select", h.handleSelect)
}

// SearchResult 单条搜索结果，文本已截断
type SearchResult struct {
	Index     int    `json:"index"`
	ID        int64  `json:"id"`
	User      string `json:"user"`
	AI        string `json:"ai"`
	Timestamp string `json:"timestamp"`
}

// ToSearchResult 将匹配项转换为列表展示用的搜索结果
func ToSearchResult(m conversation.Match) SearchResult {
	return SearchResult{
		Index:     m.Index,
		ID:        m.Turn.ID,
		User:      conversation.Preview(m.Turn.User, userPreviewRunes),
		AI:        conversation.Preview(m.Turn.AI, aiPreviewRunes),
		Timestamp: m.Turn.Timestamp,
	}
}

func (h *Handler) handleListHistory(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.history.Load(r.Context()))
}

// handleNewChat 清空对话，页面会先让用户确认
func (h *Handler) handleNewChat(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.NewChat(r.Context()); err != nil {
		if errors.Is(err, conversation.ErrBusy) {
			utils.RespondError(w, http.StatusConflict, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSubmit 同步执行一次问答
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var payload conversation.Input
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	exchange, err := h.ctrl.Submit(r.Context(), payload)
	switch {
	case errors.Is(err, conversation.ErrImageTooLarge):
		utils.RespondError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, conversation.ErrEmptyInput), errors.Is(err, conversation.ErrImageType):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, conversation.ErrBusy):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case err != nil:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	default:
		utils.RespondJSON(w, http.StatusOK, exchange)
	}
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	results := make([]SearchResult, 0)
	for match := range h.ctrl.Search(r.Context(), query) {
		results = append(results, ToSearchResult(match))
	}
	utils.RespondJSON(w, http.StatusOK, results)
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.ctrl.Select(payload.ID); err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
