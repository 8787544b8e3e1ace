package anthropic

import (
	"context"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/catonblt/novelbuddies/internal/provider"
)

const streamBufferSize = 16

// Stream sends a streaming completion request and returns a channel of
// StreamChunks. The first event is read before returning so connection and
// authentication errors surface directly; later failures arrive as a
// terminal chunk with Err set.
func (a *Anthropic) Stream(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamChunk, error) {
	stream := a.client.Messages.NewStreaming(ctx, convertRequest(req, &a.config))

	if !stream.Next() {
		err := stream.Err()
		_ = stream.Close()
		if err != nil {
			return nil, mapError(err)
		}
		ch := make(chan provider.StreamChunk)
		close(ch)
		return ch, nil
	}
	first := stream.Current()

	ch := make(chan provider.StreamChunk, streamBufferSize)
	go func() {
		defer close(ch)
		defer func() { _ = stream.Close() }()
		consume(ctx, stream, first, ch)
	}()
	return ch, nil
}

func consume(
	ctx context.Context,
	stream *ssestream.Stream[sdkanthropic.MessageStreamEventUnion],
	first sdkanthropic.MessageStreamEventUnion,
	ch chan<- provider.StreamChunk,
) {
	var inputTokens int64
	handle := func(event sdkanthropic.MessageStreamEventUnion) bool {
		switch ev := event.AsAny().(type) {
		case sdkanthropic.MessageStartEvent:
			inputTokens = ev.Message.Usage.InputTokens
		case sdkanthropic.ContentBlockDeltaEvent:
			if delta, ok := ev.Delta.AsAny().(sdkanthropic.TextDelta); ok && delta.Text != "" {
				return provider.Emit(ctx, ch, provider.StreamChunk{Content: delta.Text})
			}
		case sdkanthropic.MessageDeltaEvent:
			u := usage(inputTokens, ev.Usage.OutputTokens)
			return provider.Emit(ctx, ch, provider.StreamChunk{
				FinishReason: convertStopReason(ev.Delta.StopReason),
				Usage:        &u,
			})
		}
		return true
	}

	if !handle(first) {
		return
	}
	for stream.Next() {
		if ctx.Err() != nil || !handle(stream.Current()) {
			return
		}
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		provider.Emit(ctx, ch, provider.StreamChunk{Err: mapError(err)})
	}
}
