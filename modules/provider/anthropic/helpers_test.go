package anthropic

import (
	"encoding/json"
	"net/http"
	"testing"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const testModel = "claude-sonnet-4-5-20250929"

// newTestProvider creates an Anthropic provider pointed at the given httptest server URL.
func newTestProvider(baseURL string) *Anthropic {
	client := sdkanthropic.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey("test-key"),
		option.WithMaxRetries(0),
	)
	return &Anthropic{
		config: Config{
			Model:     testModel,
			MaxTokens: 4096,
		},
		client:        &client,
		contextWindow: defaultContextWindow,
		keyFound:      true,
	}
}

// messageJSON is a complete Messages API response with one text block.
func messageJSON(text, stopReason string) string {
	return `{
		"id": "msg_123",
		"type": "message",
		"role": "assistant",
		"content": [{"type": "text", "text": ` + jsonString(text) + `}],
		"model": "` + testModel + `",
		"stop_reason": "` + stopReason + `",
		"stop_sequence": null,
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`
}

// writeSSE writes each event as a server-sent event and flushes.
func writeSSE(t *testing.T, w http.ResponseWriter, events ...string) {
	t.Helper()
	w.Header().Set("Content-Type", "text/event-stream")
	flusher, ok := w.(http.Flusher)
	if !ok {
		t.Fatal("expected http.Flusher")
	}
	for _, ev := range events {
		_, _ = w.Write([]byte(ev + "\n\n"))
		flusher.Flush()
	}
}

func sseEvent(name, data string) string {
	return "event: " + name + "\ndata: " + data
}

// textBlock creates a ContentBlockUnion that behaves like a TextBlock.
func textBlock(text string) sdkanthropic.ContentBlockUnion {
	var block sdkanthropic.ContentBlockUnion
	_ = json.Unmarshal([]byte(`{"type":"text","text":`+jsonString(text)+`}`), &block)
	return block
}

// jsonString returns a JSON-encoded string value.
func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// capturedRequest is the part of a Messages API request body the tests inspect.
type capturedRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	System    []struct {
		Text string `json:"text"`
	} `json:"system"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
	Temperature *float64 `json:"temperature"`
}
