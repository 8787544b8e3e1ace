package ctxengine

// Category classifies a candidate file for budgeting.
type Category string

// Category constants, in admission order.
const (
	CategoryActive     Category = "active"
	CategoryCritical   Category = "critical"
	CategoryStoryBible Category = "story_bible"
	CategoryChapter    Category = "chapter"
)

// Tier returns the admission tier of the category: 1 is admitted first.
func (c Category) Tier() int {
	switch c {
	case CategoryActive:
		return 1
	case CategoryCritical, CategoryStoryBible:
		return 2
	default:
		return 3
	}
}

// Label is the section tag used in the formatted context.
func (c Category) Label() string {
	switch c {
	case CategoryActive:
		return "[ACTIVE]"
	case CategoryCritical:
		return "[PLANNING]"
	case CategoryStoryBible:
		return "[BIBLE]"
	case CategoryChapter:
		return "[CHAPTER]"
	default:
		return ""
	}
}

// Candidate is a project file considered for inclusion in the context.
type Candidate struct {
	Path      string   `json:"path"`
	Content   string   `json:"-"`
	Tokens    int      `json:"tokens"`
	SizeBytes int      `json:"size_bytes"`
	Category  Category `json:"category"`
	Tier      int      `json:"tier"`
	Truncated bool     `json:"truncated,omitempty"`
}

// NewCandidate builds a candidate and measures it with est.
func NewCandidate(path, content string, category Category, est TokenEstimator) Candidate {
	c := Candidate{Path: path, Category: category, Tier: category.Tier()}
	c.setContent(content, est)
	return c
}

// setContent replaces the content and recomputes the derived sizes.
func (c *Candidate) setContent(content string, est TokenEstimator) {
	c.Content = content
	c.Tokens = est.Estimate(content)
	c.SizeBytes = len(content)
}

// truncated returns a copy of c cut down to maxTokens, and whether anything
// survived. c itself is left untouched.
func (c Candidate) truncated(maxTokens int, est TokenEstimator) (Candidate, bool) {
	return c.cut(maxTokens, est, Truncate)
}

// shrunk is truncated without the minimum ceiling, for the active file.
func (c Candidate) shrunk(maxTokens int, est TokenEstimator) (Candidate, bool) {
	return c.cut(maxTokens, est, Shrink)
}

func (c Candidate) cut(maxTokens int, est TokenEstimator, fn func(string, int, TokenEstimator) string) (Candidate, bool) {
	if c.Tokens <= maxTokens {
		return c, true
	}
	out := fn(c.Content, maxTokens, est)
	if out == "" {
		return Candidate{}, false
	}
	c.setContent(out, est)
	c.Truncated = true
	return c, true
}
