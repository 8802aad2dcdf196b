package conversation

import (
	"github.com/google/uuid"

	"github.com/zhouzirui/zorey-ai/backend/internal/model/chat"
)

// Handle identifies one rendered element (a bubble) independent of its position.
type Handle string

// NewHandle returns a fresh, unique handle.
func NewHandle() Handle {
	return Handle(uuid.NewString())
}

// Renderer is the display capability the controller drives. Implementations must
// keep elements in the order they are appended.
type Renderer interface {
	// Reset drops every rendered element. A non-empty greeting is shown as a static
	// assistant element that is not part of history.
	Reset(greeting string)
	AppendUserText(h Handle, text string)
	AppendUserImage(h Handle, image chat.Image)
	AppendAssistant(h Handle, text string)
	ShowTyping()
	HideTyping()
	ClearInput()
	Highlight(handles ...Handle)
}

// TurnView maps a stored turn to the elements that display it. User is empty
// when the turn was sent with an image only.
type TurnView struct {
	TurnID    int64
	User      Handle
	Image     Handle
	Assistant Handle
}

func (v TurnView) handles() []Handle {
	handles := make([]Handle, 0, 3)
	for _, h := range []Handle{v.User, v.Image, v.Assistant} {
		if h != "" {
			handles = append(handles, h)
		}
	}
	return handles
}
