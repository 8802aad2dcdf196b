// Package conversation owns one chat session: the submit gate, optimistic
// rendering, the remote call, persistence and the search view over history.
package conversation

import (
	"context"
	"errors"
	"iter"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/zorey-ai/backend/internal/model/chat"
	"github.com/zhouzirui/zorey-ai/backend/internal/model/persona"
)

// MaxImageBytes caps the decoded size of an attached image.
const MaxImageBytes = 10 << 20

var (
	ErrEmptyInput      = errors.New("message text or image is required")
	ErrBusy            = errors.New("a reply is still pending")
	ErrTurnNotRendered = errors.New("turn is not rendered")
	ErrImageTooLarge   = errors.New("image too large")
	ErrImageType       = errors.New("image mimeType must be image/*")
)

// Asker sends a prompt to the inference backend.
type Asker interface {
	Ask(ctx context.Context, prompt string, image *chat.Image) (string, error)
}

// History is the persistent turn log.
type History interface {
	Load(ctx context.Context) []chat.Turn
	Append(ctx context.Context, turn chat.Turn) error
	Clear(ctx context.Context) error
}

// Observer is told how every exchange ended.
type Observer interface {
	ObserveExchange(outcome Outcome, elapsed time.Duration)
}

// Outcome of one exchange.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// Input is what the user submits.
type Input struct {
	Text  string      `json:"text"`
	Image *chat.Image `json:"image,omitempty"`
}

// Validate checks the attached image, if any. Every entry point goes through it
// via Submit.
func (in Input) Validate() error {
	if !in.Image.Valid() {
		return nil
	}
	if len(in.Image.Data) > MaxImageBytes {
		return ErrImageTooLarge
	}
	if !strings.HasPrefix(in.Image.MimeType, "image/") {
		return ErrImageType
	}
	return nil
}

// Exchange reports a finished submit. Turn is nil when the exchange failed.
type Exchange struct {
	Outcome Outcome    `json:"outcome"`
	Reply   string     `json:"reply"`
	Turn    *chat.Turn `json:"turn,omitempty"`
}

// Controller drives one conversation. At most one exchange is in flight.
type Controller struct {
	asker    Asker
	history  History
	renderer Renderer
	persona  persona.Persona
	observer Observer
	now      func() time.Time

	sending atomic.Bool

	mu     sync.Mutex
	views  []TurnView
	lastID int64
}

// Option customizes a Controller.
type Option func(*Controller)

// WithObserver reports exchange outcomes to o.
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController wires the collaborators of one session.
func NewController(asker Asker, history History, renderer Renderer, p persona.Persona, opts ...Option) *Controller {
	c := &Controller{
		asker:    asker,
		history:  history,
		renderer: renderer,
		persona:  p,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sending reports whether a reply is pending.
func (c *Controller) Sending() bool {
	return c.sending.Load()
}

// Load renders every stored turn in order, replacing whatever was shown.
func (c *Controller) Load(ctx context.Context) []chat.Turn {
	turns := c.history.Load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	greeting := ""
	if len(turns) == 0 {
		greeting = c.persona.OpeningLine
	}
	c.renderer.Reset(greeting)

	c.views = make([]TurnView, 0, len(turns))
	c.lastID = 0
	for _, turn := range turns {
		view := TurnView{TurnID: turn.ID, Assistant: NewHandle()}
		if turn.User != "" {
			view.User = NewHandle()
			c.renderer.AppendUserText(view.User, turn.User)
		}
		c.renderer.AppendAssistant(view.Assistant, turn.AI)
		c.views = append(c.views, view)
		if turn.ID > c.lastID {
			c.lastID = turn.ID
		}
	}

	log.Info().Str("component", "conversation").Int("turns", len(turns)).Msg("history rendered")
	return turns
}

// Submit runs one exchange. It returns ErrEmptyInput, an image validation
// error or ErrBusy without rendering anything; any failure of the remote call is rendered as the
// persona failure line and reported through Exchange, never as an error.
func (c *Controller) Submit(ctx context.Context, in Input) (Exchange, error) {
	if err := in.Validate(); err != nil {
		return Exchange{}, err
	}

	text := strings.TrimSpace(in.Text)
	image := in.Image
	if !image.Valid() {
		image = nil
	}
	if text == "" && image == nil {
		return Exchange{}, ErrEmptyInput
	}
	if !c.sending.CompareAndSwap(false, true) {
		log.Debug().Str("component", "conversation").Msg("submit ignored while sending")
		return Exchange{}, ErrBusy
	}
	defer c.sending.Store(false)

	start := c.now()
	view := TurnView{}
	if text != "" {
		view.User = NewHandle()
		c.renderer.AppendUserText(view.User, text)
	}
	if image != nil {
		view.Image = NewHandle()
		c.renderer.AppendUserImage(view.Image, *image)
	}
	c.renderer.ClearInput()
	c.renderer.ShowTyping()

	// The exchange always completes; a closed page must not cancel it.
	reply, err := c.asker.Ask(context.WithoutCancel(ctx), text, image)
	c.renderer.HideTyping()

	if err != nil {
		log.Error().Err(err).Str("component", "conversation").Msg("exchange failed")
		c.renderer.AppendAssistant(NewHandle(), c.persona.FailureLine)
		c.observe(OutcomeFailed, start)
		return Exchange{Outcome: OutcomeFailed, Reply: c.persona.FailureLine}, nil
	}

	view.Assistant = NewHandle()
	c.renderer.AppendAssistant(view.Assistant, reply)

	c.mu.Lock()
	turn := chat.NewTurn(c.nextID(start), text, reply, start)
	view.TurnID = turn.ID
	c.views = append(c.views, view)
	c.mu.Unlock()

	if err := c.history.Append(context.WithoutCancel(ctx), turn); err != nil {
		log.Error().Err(err).Str("component", "conversation").Int64("turn", turn.ID).Msg("failed to persist turn")
	}

	c.observe(OutcomeSuccess, start)
	return Exchange{Outcome: OutcomeSuccess, Reply: reply, Turn: &turn}, nil
}

// NewChat clears the display and the stored history. It cannot be undone and
// is refused while a reply is pending.
func (c *Controller) NewChat(ctx context.Context) error {
	if !c.sending.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer c.sending.Store(false)

	c.mu.Lock()
	c.renderer.Reset(c.persona.NewChatLine)
	c.views = nil
	c.mu.Unlock()

	if err := c.history.Clear(ctx); err != nil {
		log.Error().Err(err).Str("component", "conversation").Msg("failed to clear history")
	}
	c.renderer.ClearInput()

	log.Info().Str("component", "conversation").Msg("new chat started")
	return nil
}

// Search filters the stored history. It is recomputed on every call.
func (c *Controller) Search(ctx context.Context, query string) iter.Seq[Match] {
	return Search(c.history.Load(ctx), query)
}

// Select highlights the rendered elements of the turn with the given id.
func (c *Controller) Select(turnID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, view := range c.views {
		if view.TurnID == turnID {
			c.renderer.Highlight(view.handles()...)
			return nil
		}
	}
	return ErrTurnNotRendered
}

// Views returns the rendered turns in display order.
func (c *Controller) Views() []TurnView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]TurnView(nil), c.views...)
}

// nextID returns a millisecond timestamp strictly greater than any id handed out.
// Callers hold c.mu.
func (c *Controller) nextID(at time.Time) int64 {
	id := at.UnixMilli()
	if id <= c.lastID {
		id = c.lastID + 1
	}
	c.lastID = id
	return id
}

func (c *Controller) observe(outcome Outcome, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveExchange(outcome, c.now().Sub(start))
	}
}
