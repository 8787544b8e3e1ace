package ctxengine

import "github.com/catonblt/novelbuddies/internal/provider"

// RecentHistory returns the last n messages of msgs. n <= 0 keeps everything.
// The returned slice never aliases msgs.
func RecentHistory(msgs []provider.LLMMessage, n int) []provider.LLMMessage {
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]provider.LLMMessage, len(msgs))
	copy(out, msgs)
	return out
}
