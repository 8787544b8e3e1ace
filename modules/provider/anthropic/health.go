package anthropic

import (
	"context"
	"errors"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"
)

// HealthCheck sends a one-token completion. The API has no dedicated
// health endpoint, and this also proves the key is accepted.
func (a *Anthropic) HealthCheck(ctx context.Context) error {
	if !a.keyFound {
		return errors.New("provider.anthropic: no API key configured")
	}
	_, err := a.client.Messages.New(ctx, sdkanthropic.MessageNewParams{
		Model:     sdkanthropic.Model(a.config.Model),
		MaxTokens: 1,
		Messages: []sdkanthropic.MessageParam{
			sdkanthropic.NewUserMessage(sdkanthropic.NewTextBlock("hi")),
		},
	})
	return mapError(err)
}
