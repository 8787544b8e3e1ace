package openai

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/catonblt/novelbuddies/internal/provider"
)

const streamBufferSize = 16

// maxSSELine bounds a single server-sent event line.
const maxSSELine = 1 << 20

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *chatUsage `json:"usage,omitempty"`
}

// Stream implements provider.Provider. HTTP and authentication errors are
// returned directly; failures once the body is being read arrive as a
// terminal chunk with Err set.
func (p *Provider) Stream(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamChunk, error) {
	resp, err := p.post(ctx, buildRequest(p.config, req, true))
	if err != nil {
		return nil, err
	}

	ch := make(chan provider.StreamChunk, streamBufferSize)
	go func() {
		defer close(ch)
		defer resp.Body.Close() //nolint:errcheck // best-effort close
		readEvents(ctx, resp.Body, ch)
	}()
	return ch, nil
}

// readEvents decodes "data:" lines until [DONE], EOF, an error, or ctx is
// done.
func readEvents(ctx context.Context, body io.Reader, ch chan<- provider.StreamChunk) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		// Some compatible servers omit the space after the colon.
		data, ok := strings.CutPrefix(scanner.Text(), "data:")
		if !ok {
			continue
		}
		data = strings.TrimPrefix(data, " ")
		if data == "[DONE]" {
			return
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			provider.Emit(ctx, ch, provider.StreamChunk{
				Err: fmt.Errorf("%w: parse stream event: %w", provider.ErrProviderDown, err),
			})
			return
		}

		var out provider.StreamChunk
		if chunk.Usage != nil {
			u := chunk.Usage.tokenUsage()
			out.Usage = &u
		}
		if len(chunk.Choices) > 0 {
			out.Content = chunk.Choices[0].Delta.Content
			if fr := chunk.Choices[0].FinishReason; fr != nil {
				out.FinishReason = mapFinishReason(*fr)
			}
		}
		if out.Content == "" && out.FinishReason == "" && out.Usage == nil {
			continue
		}
		if !provider.Emit(ctx, ch, out) {
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		provider.Emit(ctx, ch, provider.StreamChunk{
			Err: fmt.Errorf("%w: stream read: %w", provider.ErrProviderDown, err),
		})
	}
}
