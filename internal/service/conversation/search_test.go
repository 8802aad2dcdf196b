package conversation

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/zorey-ai/backend/internal/model/chat"
)

var searchHistory = []chat.Turn{
	{ID: 1, User: "hi", AI: "hello"},
	{ID: 2, User: "explain plants", AI: "Photosynthesis converts light into chemical energy."},
	{ID: 3, User: "PHOTOSYNTHESIS again?", AI: "Sure."},
}

func TestSearchMatchesEitherSideIgnoringCase(t *testing.T) {
	matches := slices.Collect(Search(searchHistory, "photosynthesis"))

	require.Len(t, matches, 2)
	assert.Equal(t, 1, matches[0].Index)
	assert.Equal(t, int64(2), matches[0].Turn.ID)
	assert.Equal(t, 2, matches[1].Index)
}

func TestSearchEmptyQueryYieldsNothing(t *testing.T) {
	assert.Empty(t, slices.Collect(Search(searchHistory, "")))
}

func TestSearchIsRestartable(t *testing.T) {
	seq := Search(searchHistory, "h")

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
	assert.Len(t, first, 3)
}

func TestSearchStopsEarly(t *testing.T) {
	var seen int
	for range Search(searchHistory, "h") {
		seen++
		break
	}
	assert.Equal(t, 1, seen)
}

type staticHistory []chat.Turn

func (h staticHistory) Load(context.Context) []chat.Turn        { return h }
func (h staticHistory) Append(context.Context, chat.Turn) error { return nil }
func (h staticHistory) Clear(context.Context) error             { return nil }

func TestControllerSearchReadsHistory(t *testing.T) {
	c := &Controller{history: staticHistory{{ID: 7, User: "q", AI: "Photosynthesis converts light..."}}}

	matches := slices.Collect(c.Search(context.Background(), "photosynthesis"))
	require.Len(t, matches, 1)
	assert.Equal(t, int64(7), matches[0].Turn.ID)
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short", 50))
	assert.Equal(t, "abc...", Preview("abcdef", 3))
	assert.Equal(t, "héé...", Preview("héééé", 3))
}
