package provider

import (
	"context"
	"strings"
)

// StreamResult is what a drained stream produced.
type StreamResult struct {
	// Content is every fragment received, in order, even when the stream
	// ended with an error.
	Content      string
	FinishReason FinishReason
	Usage        *TokenUsage
}

// Collect drains ch, calling onChunk (if non-nil) for each text fragment.
// It returns the accumulated result and the terminal error, if any. When ctx
// is cancelled Collect stops reading and returns ctx.Err() along with the
// partial content.
func Collect(ctx context.Context, ch <-chan StreamChunk, onChunk func(string)) (StreamResult, error) {
	var (
		buf strings.Builder
		res StreamResult
	)
	for {
		if err := ctx.Err(); err != nil {
			res.Content = buf.String()
			return res, err
		}
		select {
		case <-ctx.Done():
			res.Content = buf.String()
			return res, ctx.Err()
		case chunk, ok := <-ch:
			if !ok {
				res.Content = buf.String()
				// A producer that saw cancellation closes early.
				return res, ctx.Err()
			}
			if chunk.Err != nil {
				res.Content = buf.String()
				return res, chunk.Err
			}
			if chunk.Content != "" {
				buf.WriteString(chunk.Content)
				if onChunk != nil {
					onChunk(chunk.Content)
				}
			}
			if chunk.FinishReason != "" {
				res.FinishReason = chunk.FinishReason
			}
			if chunk.Usage != nil {
				res.Usage = chunk.Usage
			}
		}
	}
}

// Emit sends chunk on ch unless ctx is done first. It reports whether the
// chunk was delivered. Producers use it so a consumer that stops reading
// never leaves them blocked.
func Emit(ctx context.Context, ch chan<- StreamChunk, chunk StreamChunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
