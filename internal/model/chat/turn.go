package chat

import "time"

// TimestampLayout is the ISO-8601 form stored alongside each turn.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Turn is one user prompt plus its assistant reply, the unit persisted in history.
type Turn struct {
	ID        int64  `json:"id"`
	User      string `json:"user"`
	AI        string `json:"ai"`
	Timestamp string `json:"timestamp"`
}

// NewTurn stamps a turn created at t with the given id.
func NewTurn(id int64, user, ai string, t time.Time) Turn {
	return Turn{
		ID:        id,
		User:      user,
		AI:        ai,
		Timestamp: t.UTC().Format(TimestampLayout),
	}
}

// Image is an inline attachment sent with a prompt. It is never persisted.
type Image struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// Valid reports whether the image carries both a MIME type and content.
func (i *Image) Valid() bool {
	return i != nil && i.MimeType != "" && len(i.Data) > 0
}
