package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Path  string
	Key   string
	Body  map[string]any
	Calls int32
}

func newGeminiServer(t *testing.T, status int, body string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&captured.Calls, 1)
		captured.Path = r.URL.Path
		captured.Key = r.URL.Query().Get("key")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured.Body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func testGemini(url, key string) *GeminiChatModel {
	return NewGeminiChatModel(GeminiConfig{
		APIKey:      key,
		BaseURL:     url,
		Model:       "text-model",
		VisionModel: "vision-model",
	})
}

const okBody = `{"candidates":[{"content":{"parts":[{"text":"Photosynthesis converts light..."}]}}]}`

func TestGeminiTextRequestShape(t *testing.T) {
	srv, captured := newGeminiServer(t, http.StatusOK, okBody)
	m := testGemini(srv.URL, "secret")

	msg, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("You are Zorey."),
		schema.UserMessage("what is photosynthesis?"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis converts light...", msg.Content)

	assert.Equal(t, "/models/text-model:generateContent", captured.Path)
	assert.Equal(t, "secret", captured.Key)

	contents := captured.Body["contents"].([]any)
	require.Len(t, contents, 1)
	parts := contents[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 1)
	assert.Equal(t, "You are Zorey.\n\nwhat is photosynthesis?", parts[0].(map[string]any)["text"])
}

func TestGeminiImageRequestUsesVisionModel(t *testing.T) {
	srv, captured := newGeminiServer(t, http.StatusOK, okBody)
	m := testGemini(srv.URL, "secret")

	user := userMessage("describe", imageFixture())
	_, err := m.Generate(context.Background(), []*schema.Message{schema.SystemMessage("sys"), user})
	require.NoError(t, err)

	assert.Equal(t, "/models/vision-model:generateContent", captured.Path)
	parts := captured.Body["contents"].([]any)[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "sys\n\ndescribe", parts[0].(map[string]any)["text"])

	inline := parts[1].(map[string]any)["inlineData"].(map[string]any)
	assert.Equal(t, "image/png", inline["mimeType"])
	assert.Equal(t, "iVBORw==", inline["data"])
}

func TestGeminiMissingCredentialSkipsNetwork(t *testing.T) {
	srv, captured := newGeminiServer(t, http.StatusOK, okBody)
	m := testGemini(srv.URL, "")

	_, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, ErrCredentialUnavailable)
	assert.Zero(t, atomic.LoadInt32(&captured.Calls))
}

func TestGeminiRemoteErrorMessage(t *testing.T) {
	srv, _ := newGeminiServer(t, http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid"}}`)
	m := testGemini(srv.URL, "bad")

	_, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})

	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusBadRequest, remote.StatusCode)
	assert.Equal(t, "API key not valid", remote.Message)
}

func TestGeminiRemoteErrorGenericMessage(t *testing.T) {
	srv, _ := newGeminiServer(t, http.StatusInternalServerError, `upstream exploded`)
	m := testGemini(srv.URL, "secret")

	_, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})

	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, genericRemoteMessage, remote.Message)
}

func TestGeminiTransportFailure(t *testing.T) {
	srv, _ := newGeminiServer(t, http.StatusOK, okBody)
	url := srv.URL
	srv.Close()

	_, err := testGemini(url, "secret").Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})

	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestGeminiNoCandidatesIsEmptyReply(t *testing.T) {
	srv, _ := newGeminiServer(t, http.StatusOK, `{"candidates":[]}`)

	msg, err := testGemini(srv.URL, "secret").Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	assert.Empty(t, msg.Content)
}

func TestGeminiStreamYieldsSingleChunk(t *testing.T) {
	srv, _ := newGeminiServer(t, http.StatusOK, okBody)

	stream, err := testGemini(srv.URL, "secret").Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	defer stream.Close()

	chunk, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis converts light...", chunk.Content)

	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestFlattenWithoutSystemMessage(t *testing.T) {
	text, image := flattenMessages([]*schema.Message{schema.UserMessage("just this")})
	assert.Equal(t, "just this", text)
	assert.Nil(t, image)
}

func TestInlineDataRejectsRemoteURLs(t *testing.T) {
	assert.Nil(t, inlineDataFromURL(&schema.ChatMessageImageURL{URL: "https://example.com/cat.png"}))
}
