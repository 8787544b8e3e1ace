package ctxengine

// TokenBudget tracks how the usable window is split between conversation
// history and project files.
//
// Invariant: History + Files <= Capacity - ReservedForResponse - ReservedForSystemPrompt
// whenever the assembler admitted at least one file.
type TokenBudget struct {
	Capacity                int `json:"capacity"`
	ReservedForResponse     int `json:"reserved_for_response"`
	ReservedForSystemPrompt int `json:"reserved_for_system_prompt"`
	History                 int `json:"history"`
	Files                   int `json:"files"`
}

// Available returns the tokens left after both reserves. Never negative.
func (b TokenBudget) Available() int {
	return max(0, b.Capacity-b.ReservedForResponse-b.ReservedForSystemPrompt)
}

// FileBudget returns the tokens left for files once history is paid for.
func (b TokenBudget) FileBudget() int {
	return max(0, b.Available()-b.History)
}

// Remaining returns the file budget not yet spent.
func (b TokenBudget) Remaining() int {
	return max(0, b.FileBudget()-b.Files)
}

// Fits reports whether n more file tokens can be admitted.
func (b TokenBudget) Fits(n int) bool {
	return n <= b.Remaining()
}

// Used returns history plus file tokens.
func (b TokenBudget) Used() int {
	return b.History + b.Files
}
