package memory

import "context"

// Unavailable is the Service used when no memory module is configured.
type Unavailable struct{}

// Compile-time interface check.
var _ Service = Unavailable{}

// Available implements Service.
func (Unavailable) Available() bool { return false }

// Index implements Service.
func (Unavailable) Index(context.Context, string, string, string, string) bool { return false }

// Remove implements Service.
func (Unavailable) Remove(context.Context, string, string, string) bool { return false }

// Query implements Service.
func (Unavailable) Query(context.Context, string, string, string, int) string { return MsgUnavailable }

// Reset implements Service.
func (Unavailable) Reset(context.Context, string, string) bool { return false }

// Stats implements Service.
func (Unavailable) Stats(context.Context, string, string) Stats {
	return Stats{Available: false, Error: "Memory service not available"}
}
