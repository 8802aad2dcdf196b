// Package render fans the controller's render calls out to connected pages.
package render

import (
	"encoding/base64"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/zorey-ai/backend/internal/model/chat"
	"github.com/zhouzirui/zorey-ai/backend/internal/service/conversation"
	"github.com/zhouzirui/zorey-ai/backend/pkg/markdown"
)

// Op types sent to the page.
const (
	OpReset      = "reset"
	OpUserText   = "user_text"
	OpUserImage  = "user_image"
	OpAssistant  = "assistant"
	OpTyping     = "typing"
	OpTypingDone = "typing_done"
	OpClearInput = "clear_input"
	OpHighlight  = "highlight"
)

// Op is one render instruction.
type Op struct {
	Type     string   `json:"type"`
	Handle   string   `json:"handle,omitempty"`
	Text     string   `json:"text,omitempty"`
	HTML     string   `json:"html,omitempty"`
	MimeType string   `json:"mimeType,omitempty"`
	Data     string   `json:"data,omitempty"`
	Handles  []string `json:"handles,omitempty"`
}

const defaultBuffer = 64

// Hub is a conversation.Renderer that remembers what is on screen since the
// last reset and streams every new op to its subscribers.
type Hub struct {
	mu          sync.Mutex
	transcript  []Op
	typing      bool
	subscribers map[string]*Subscription
	buffer      int
}

var _ conversation.Renderer = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]*Subscription),
		buffer:      defaultBuffer,
	}
}

// Subscription receives ops published after it was created.
type Subscription struct {
	ID   string
	C    <-chan Op
	ch   chan Op
	hub  *Hub
	once sync.Once
}

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.drop(s)
}

// Subscribe returns the current transcript and a subscription for what follows.
// Both are taken under one lock, so no op is missed or seen twice.
func (h *Hub) Subscribe() ([]Op, *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Op, h.buffer)
	sub := &Subscription{ID: uuid.NewString(), C: ch, ch: ch, hub: h}
	h.subscribers[sub.ID] = sub

	replay := append([]Op(nil), h.transcript...)
	if h.typing {
		replay = append(replay, Op{Type: OpTyping})
	}
	return replay, sub
}

// Transcript returns the ops that rebuild the current screen.
func (h *Hub) Transcript() []Op {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Op(nil), h.transcript...)
}

func (h *Hub) Reset(greeting string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.transcript = h.transcript[:0]
	h.typing = false
	op := Op{Type: OpReset}
	if greeting != "" {
		op.Text = greeting
		op.HTML = markdown.Render(greeting)
	}
	h.transcript = append(h.transcript, op)
	h.broadcast(op)
}

func (h *Hub) AppendUserText(handle conversation.Handle, text string) {
	h.record(Op{Type: OpUserText, Handle: string(handle), Text: text, HTML: markdown.Escape(text)})
}

func (h *Hub) AppendUserImage(handle conversation.Handle, image chat.Image) {
	h.record(Op{
		Type:     OpUserImage,
		Handle:   string(handle),
		MimeType: image.MimeType,
		Data:     base64.StdEncoding.EncodeToString(image.Data),
	})
}

func (h *Hub) AppendAssistant(handle conversation.Handle, text string) {
	h.record(Op{Type: OpAssistant, Handle: string(handle), Text: text, HTML: markdown.Render(text)})
}

func (h *Hub) ShowTyping() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.typing = true
	h.broadcast(Op{Type: OpTyping})
}

func (h *Hub) HideTyping() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.typing = false
	h.broadcast(Op{Type: OpTypingDone})
}

func (h *Hub) ClearInput() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcast(Op{Type: OpClearInput})
}

func (h *Hub) Highlight(handles ...conversation.Handle) {
	ids := make([]string, 0, len(handles))
	for _, handle := range handles {
		ids = append(ids, string(handle))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcast(Op{Type: OpHighlight, Handles: ids})
}

func (h *Hub) record(op Op) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.transcript = append(h.transcript, op)
	h.broadcast(op)
}

// broadcast never blocks: a subscriber whose buffer is full is dropped and its
// channel closed so the page reconnects and replays. Callers hold h.mu.
func (h *Hub) broadcast(op Op) {
	for _, sub := range h.subscribers {
		select {
		case sub.ch <- op:
		default:
			log.Warn().Str("component", "render").Str("subscriber", sub.ID).Msg("subscriber too slow, dropping")
			h.drop(sub)
		}
	}
}

// drop removes sub. Callers hold h.mu.
func (h *Hub) drop(sub *Subscription) {
	sub.once.Do(func() {
		delete(h.subscribers, sub.ID)
		close(sub.ch)
	})
}
