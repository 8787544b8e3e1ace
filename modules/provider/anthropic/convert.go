package anthropic

import (
	"strings"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/catonblt/novelbuddies/internal/provider"
)

// convertRequest transforms a CompletionRequest into Anthropic SDK parameters.
func convertRequest(req provider.CompletionRequest, cfg *Config) sdkanthropic.MessageNewParams {
	params := sdkanthropic.MessageNewParams{
		Model:     sdkanthropic.Model(cfg.Model),
		Messages:  convertMessages(normalizeTurns(req.Messages)),
		MaxTokens: int64(cfg.MaxTokens),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = int64(req.MaxTokens)
	}
	if req.System != "" {
		params.System = []sdkanthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = sdkanthropic.Float(*req.Temperature)
	}
	return params
}

// normalizeTurns shapes stored history into what the Messages API accepts:
// no empty messages, a user turn first, and strictly alternating roles.
// A user message whose reply was never stored leaves two user turns in a
// row; those are merged rather than dropped.
func normalizeTurns(msgs []provider.LLMMessage) []provider.LLMMessage {
	out := make([]provider.LLMMessage, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if m.Role != provider.MessageRoleUser && m.Role != provider.MessageRoleAssistant {
			continue
		}
		if len(out) == 0 && m.Role != provider.MessageRoleUser {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == m.Role {
			out[n-1].Content += "\n\n" + m.Content
			continue
		}
		out = append(out, m)
	}
	return out
}

func convertMessages(msgs []provider.LLMMessage) []sdkanthropic.MessageParam {
	result := make([]sdkanthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		block := sdkanthropic.NewTextBlock(m.Content)
		if m.Role == provider.MessageRoleAssistant {
			result = append(result, sdkanthropic.NewAssistantMessage(block))
		} else {
			result = append(result, sdkanthropic.NewUserMessage(block))
		}
	}
	return result
}

// convertResponse joins the text blocks of an SDK Message.
func convertResponse(msg *sdkanthropic.Message) provider.CompletionResponse {
	var content strings.Builder
	for _, block := range msg.Content {
		if v, ok := block.AsAny().(sdkanthropic.TextBlock); ok {
			if content.Len() > 0 {
				content.WriteByte('\n')
			}
			content.WriteString(v.Text)
		}
	}

	return provider.CompletionResponse{
		Content:      content.String(),
		FinishReason: convertStopReason(msg.StopReason),
		Usage:        usage(msg.Usage.InputTokens, msg.Usage.OutputTokens),
	}
}

func usage(input, output int64) provider.TokenUsage {
	return provider.TokenUsage{
		PromptTokens:     int(input),
		CompletionTokens: int(output),
		TotalTokens:      int(input + output),
	}
}

// convertStopReason maps an Anthropic stop reason to a FinishReason.
func convertStopReason(reason sdkanthropic.StopReason) provider.FinishReason {
	switch reason {
	case sdkanthropic.StopReasonMaxTokens:
		return provider.FinishReasonLength
	case sdkanthropic.StopReasonRefusal:
		return provider.FinishReasonFiltering
	default:
		return provider.FinishReasonStop
	}
}
