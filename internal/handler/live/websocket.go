// Package live serves the page's two-way channel: render ops go out, user
// actions come in.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	chathandler "github.com/zhouzirui/zorey-ai/backend/internal/handler/chat"
	"github.com/zhouzirui/zorey-ai/backend/internal/handler/stream"
	"github.com/zhouzirui/zorey-ai/backend/internal/middleware"
	"github.com/zhouzirui/zorey-ai/backend/internal/service/conversation"
	"github.com/zhouzirui/zorey-ai/backend/internal/service/render"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
	outboxSize   = 16

	// One submit carries a base64 image of up to MaxImageBytes.
	maxMessageBytes = 2 * conversation.MaxImageBytes
)

// 客户端发来的消息类型
const (
	TypeSubmit  = "submit"
	TypeNewChat = "new_chat"
	TypeSearch  = "search"
	TypeSelect  = "select"
)

// 发给客户端的消息类型
const (
	TypeConnected = "connected"
	TypeRender    = "render"
	TypeExchange  = "exchange"
	TypeResults   = "search_results"
	TypeError     = "error"
)

// Conversation 页面可调用的对话控制器能力
type Conversation interface {
	Submit(ctx context.Context, in conversation.Input) (conversation.Exchange, error)
	NewChat(ctx context.Context) error
	Search(ctx context.Context, query string) iter.Seq[conversation.Match]
	Select(turnID int64) error
}

// WebSocketHandler WebSocket对话处理器
type WebSocketHandler struct {
	conv     Conversation
	source   stream.Source
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(conv Conversation, source stream.Source, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		conv:   conv,
		source: source,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(r, allowedOrigins)
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type selectRequest struct {
	ID int64 `json:"id"`
}

// connection 持有一个连接的写端，只有写协程会向conn写数据
type connection struct {
	conn   *websocket.Conn
	outbox chan outgoingMessage
	logger zerolog.Logger
}

func (c *connection) send(ctx context.Context, msgType string, data any) {
	msg := outgoingMessage{Type: msgType, Data: data, Timestamp: time.Now().Unix()}
	select {
	case c.outbox <- msg:
	case <-ctx.Done():
	}
}

func (c *connection) sendError(ctx context.Context, message string) {
	c.send(ctx, TypeError, map[string]string{"message": message})
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Str("component", "websocket").Err(err).Msg("upgrade failed")
		return
	}
	defer conn.Close()

	replay, sub := h.source.Subscribe()
	defer sub.Close()

	c := &connection{
		conn:   conn,
		outbox: make(chan outgoingMessage, outboxSize),
		logger: log.With().Str("component", "websocket").Str("subscriber", sub.ID).Logger(),
	}
	c.logger.Info().Msg("new connection")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var wg conc.WaitGroup
	defer wg.Wait()

	wg.Go(func() {
		// 关闭连接以解除下面读循环的阻塞
		defer conn.Close()
		defer cancel()
		h.writeLoop(ctx, c, replay, sub.C)
	})

	conn.SetReadLimit(maxMessageBytes)
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug().Err(err).Msg("read error")
			}
			cancel()
			return
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		if ctx.Err() != nil {
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError(ctx, "invalid message")
			continue
		}
		h.handleMessage(ctx, c, &wg, &msg)
	}
}

// writeLoop sends the replay, then forwards render ops and replies until ctx
// ends or the hub drops the subscription. Pending render ops always go out
// before a reply, so the page sees an exchange's ops before its result.
func (h *WebSocketHandler) writeLoop(ctx context.Context, c *connection, replay []render.Op, ops <-chan render.Op) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	write := func(msgType string, data any) bool {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		msg := outgoingMessage{Type: msgType, Data: data, Timestamp: time.Now().Unix()}
		if err := c.conn.WriteJSON(msg); err != nil {
			c.logger.Debug().Err(err).Msg("write failed")
			return false
		}
		return true
	}
	forward := func(op render.Op, ok bool) bool {
		if !ok {
			c.logger.Debug().Msg("subscription dropped")
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"),
				time.Now().Add(writeTimeout))
			return false
		}
		return write(TypeRender, op)
	}

	if !write(TypeConnected, map[string]int{"replayed": len(replay)}) {
		return
	}
	for _, op := range replay {
		if !write(TypeRender, op) {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.outbox:
		drain:
			for {
				select {
				case op, ok := <-ops:
					if !forward(op, ok) {
						return
					}
				default:
					break drain
				}
			}
			if !write(msg.Type, msg.Data) {
				return
			}
		case op, ok := <-ops:
			if !forward(op, ok) {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, c *connection, wg *conc.WaitGroup, msg *inboundMessage) {
	switch msg.Type {
	case TypeSubmit:
		var in conversation.Input
		if err := json.Unmarshal(msg.Data, &in); err != nil {
			c.sendError(ctx, "invalid submit payload")
			return
		}
		// 提交在读循环之外执行，这样第二次提交会遇到忙碌检查
		wg.Go(func() {
			h.submit(ctx, c, in)
		})
	case TypeNewChat:
		if err := h.conv.NewChat(ctx); err != nil {
			c.sendError(ctx, err.Error())
		}
	case TypeSearch:
		var req searchRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.sendError(ctx, "invalid search payload")
			return
		}
		results := make([]chathandler.SearchResult, 0)
		for match := range h.conv.Search(ctx, req.Query) {
			results = append(results, chathandler.ToSearchResult(match))
		}
		c.send(ctx, TypeResults, map[string]any{"query": req.Query, "results": results})
	case TypeSelect:
		var req selectRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.sendError(ctx, "invalid select payload")
			return
		}
		if err := h.conv.Select(req.ID); err != nil {
			c.sendError(ctx, err.Error())
		}
	default:
		c.sendError(ctx, "unsupported message type")
	}
}

func (h *WebSocketHandler) submit(ctx context.Context, c *connection, in conversation.Input) {
	exchange, err := h.conv.Submit(ctx, in)
	switch {
	case errors.Is(err, conversation.ErrEmptyInput), errors.Is(err, conversation.ErrBusy),
		errors.Is(err, conversation.ErrImageTooLarge), errors.Is(err, conversation.ErrImageType):
		c.sendError(ctx, err.Error())
	case err != nil:
		c.logger.Error().Err(err).Msg("submit failed")
		c.sendError(ctx, err.Error())
	default:
		c.send(ctx, TypeExchange, exchange)
	}
}
