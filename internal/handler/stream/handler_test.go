package stream

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/zorey-ai/backend/internal/service/conversation"
	"github.com/zhouzirui/zorey-ai/backend/internal/service/render"
)

func readEvent(t *testing.T, reader *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && event != "":
			return event, data
		}
	}
}

func TestEventsReplayThenStream(t *testing.T) {
	hub := render.NewHub()
	hub.Reset("Halo!")

	r := chi.NewRouter()
	New(hub).RegisterRoutes(r)
	server := httptest.NewServer(r)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)

	event, data := readEvent(t, reader)
	assert.Equal(t, "render", event)
	assert.Contains(t, data, `"type":"reset"`)
	assert.Contains(t, data, "Halo!")

	event, data = readEvent(t, reader)
	assert.Equal(t, "ready", event)
	assert.JSONEq(t, `{"replayed":1}`, data)

	hub.AppendUserText(conversation.NewHandle(), "apa itu fotosintesis?")

	event, data = readEvent(t, reader)
	assert.Equal(t, "render", event)
	assert.Contains(t, data, `"type":"user_text"`)
	assert.Contains(t, data, "fotosintesis")
}

func TestEventsKeepAlive(t *testing.T) {
	hub := render.NewHub()
	handler := New(hub)
	handler.keepAlive = 10 * time.Millisecond

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	server := httptest.NewServer(r)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/events", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, ": keep-alive") {
			return
		}
	}
}
