package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tidwall/gjson"
)

// GeminiConfig configures the generateContent client.
type GeminiConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
	HTTPClient  *http.Client
}

// GeminiChatModel is an eino chat model backed by the generativelanguage
// generateContent endpoint. System messages are folded into the prompt text.
type GeminiChatModel struct {
	cfg    GeminiConfig
	client *http.Client
}

var _ model.BaseChatModel = (*GeminiChatModel)(nil)

// NewGeminiChatModel returns a model for cfg. A missing API key is not an
// error here; every call reports it instead.
func NewGeminiChatModel(cfg GeminiConfig) *GeminiChatModel {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.Model
	}
	return &GeminiChatModel{cfg: cfg, client: client}
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       *string           `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

// Generate sends one generateContent request and returns the first candidate's text.
// An answer without candidates yields an assistant message with empty content.
func (m *GeminiChatModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	if strings.TrimSpace(m.cfg.APIKey) == "" {
		return nil, &ConfigurationError{Err: ErrCredentialUnavailable}
	}

	text, image := flattenMessages(input)

	parts := []geminiPart{{Text: &text}}
	modelName := m.cfg.Model
	if image != nil {
		parts = append(parts, geminiPart{InlineData: image})
		modelName = m.cfg.VisionModel
	}

	body, err := json.Marshal(geminiRequest{Contents: []geminiContent{{Parts: parts}}})
	if err != nil {
		return nil, fmt.Errorf("encode gemini request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint(modelName), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, &RemoteError{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RemoteError{StatusCode: resp.StatusCode, Message: "read response failed", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := gjson.GetBytes(payload, "error.message").String()
		if message == "" {
			message = genericRemoteMessage
		}
		return nil, &RemoteError{StatusCode: resp.StatusCode, Message: message}
	}

	if !gjson.ValidBytes(payload) {
		return nil, &RemoteError{Message: "response is not valid JSON"}
	}

	reply := gjson.GetBytes(payload, "candidates.0.content.parts.0.text").String()
	return schema.AssistantMessage(reply, nil), nil
}

// Stream is a single-chunk stream over Generate; the endpoint is not called in streaming mode.
func (m *GeminiChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// BindTools is a no-op: the chat never offers tools to the model.
func (m *GeminiChatModel) BindTools(_ []*schema.ToolInfo) error {
	return nil
}

func (m *GeminiChatModel) endpoint(modelName string) string {
	base := strings.TrimRight(m.cfg.BaseURL, "/")
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s", base, modelName, url.QueryEscape(m.cfg.APIKey))
}

// flattenMessages joins system instructions and the user prompt into one text
// block separated by a blank line, and picks up the first inline image.
func flattenMessages(input []*schema.Message) (string, *geminiInlineData) {
	var system []string
	var user []string
	var image *geminiInlineData

	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			system = append(system, msg.Content)
		case schema.User:
			if len(msg.MultiContent) == 0 {
				user = append(user, msg.Content)
				continue
			}
			for _, part := range msg.MultiContent {
				switch part.Type {
				case schema.ChatMessagePartTypeText:
					user = append(user, part.Text)
				case schema.ChatMessagePartTypeImageURL:
					if image == nil && part.ImageURL != nil {
						image = inlineDataFromURL(part.ImageURL)
					}
				}
			}
		}
	}

	prompt := strings.Join(user, "\n")
	if len(system) == 0 {
		return prompt, image
	}
	return strings.Join(system, "\n\n") + "\n\n" + prompt, image
}

// inlineDataFromURL accepts base64 data URLs only.
func inlineDataFromURL(img *schema.ChatMessageImageURL) *geminiInlineData {
	header, data, ok := strings.Cut(img.URL, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil
	}
	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	}
	return &geminiInlineData{MimeType: mimeType, Data: data}
}

// dataURL encodes raw image bytes the way browsers do for FileReader.readAsDataURL.
func dataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
