package conversation

import (
	"iter"
	"strings"

	"github.com/zhouzirui/zorey-ai/backend/internal/model/chat"
)

// Match is a history turn that satisfied a search query.
type Match struct {
	Index int       `json:"index"`
	Turn  chat.Turn `json:"turn"`
}

// Search lazily yields the turns whose user or assistant text contains query,
// ignoring case. An empty query yields nothing. The sequence can be ranged over
// any number of times.
func Search(turns []chat.Turn, query string) iter.Seq[Match] {
	needle := strings.ToLower(query)
	return func(yield func(Match) bool) {
		if needle == "" {
			return
		}
		for i, turn := range turns {
			if !strings.Contains(strings.ToLower(turn.User), needle) &&
				!strings.Contains(strings.ToLower(turn.AI), needle) {
				continue
			}
			if !yield(Match{Index: i, Turn: turn}) {
				return
			}
		}
	}
}

// Preview shortens text to at most limit runes, marking the cut with an ellipsis.
func Preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
