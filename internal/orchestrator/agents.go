// Package orchestrator turns an author's chat message into a single
// generation call: it classifies the request, assembles project context
// within the token budget, streams the Story Advocate's reply and hands any
// file operations in the finished reply to the dispatcher.
package orchestrator

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Agent names one member of the writing team.
type Agent string

// Generator agents produce content.
const (
	AgentArchitect             Agent = "architect"
	AgentProseStylist          Agent = "prose_stylist"
	AgentCharacterPsychologist Agent = "character_psychologist"
	AgentAtmosphere            Agent = "atmosphere"
	AgentResearch              Agent = "research"
)

// Reviewer agents check content.
const (
	AgentContinuity Agent = "continuity"
	AgentRedundancy Agent = "redundancy"
	AgentBetaReader Agent = "beta_reader"
)

// AgentStoryAdvocate is the only agent that speaks to the author.
const AgentStoryAdvocate Agent = "story_advocate"

// Generators lists the content-producing agents.
var Generators = []Agent{
	AgentArchitect,
	AgentProseStylist,
	AgentCharacterPsychologist,
	AgentAtmosphere,
	AgentResearch,
}

// Reviewers lists the checking agents.
var Reviewers = []Agent{AgentContinuity, AgentRedundancy, AgentBetaReader}

var personalities = map[Agent]string{
	AgentArchitect:             "thoughtful, strategic, big-picture focused",
	AgentProseStylist:          "precise, attentive to language, artistic",
	AgentCharacterPsychologist: "empathetic, insightful, depth-oriented",
	AgentAtmosphere:            "sensory, immersive, mood-focused",
	AgentResearch:              "thorough, factual, detail-oriented",
	AgentContinuity:            "logical, systematic, consistency-focused",
	AgentRedundancy:            "sharp, economical, variation-focused",
	AgentBetaReader:            "honest, reader-focused, engagement-oriented",
	AgentStoryAdvocate:         "diplomatic, communicative, balance-focused",
}

// Personality returns a short description of how the agent behaves, or ""
// for an unknown agent.
func (a Agent) Personality() string { return personalities[a] }

// Known reports whether a is one of the nine team members.
func (a Agent) Known() bool {
	_, ok := personalities[a]
	return ok
}

// DisplayName returns the agent name in title case with spaces, as shown
// to the author ("prose_stylist" becomes "Prose Stylist").
func (a Agent) DisplayName() string {
	words := strings.Split(string(a), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// ContentType is the category a request was classified into. For
// keyword-routed requests it is the keyword that matched.
type ContentType string

// ContentGeneral is the classification of a request no keyword matched.
const ContentGeneral ContentType = "general"

type route struct {
	keyword ContentType
	agents  []Agent
}

// routes is checked in order; the first keyword found wins.
var routes = []route{
	{"outline", []Agent{AgentArchitect}},
	{"structure", []Agent{AgentArchitect}},
	{"plot", []Agent{AgentArchitect}},
	{"chapter_breakdown", []Agent{AgentArchitect}},
	{"arc", []Agent{AgentArchitect}},

	{"chapter", []Agent{AgentProseStylist, AgentArchitect}},
	{"scene", []Agent{AgentProseStylist, AgentAtmosphere}},
	{"prose", []Agent{AgentProseStylist}},
	{"write", []Agent{AgentProseStylist}},
	{"dialogue", []Agent{AgentProseStylist, AgentCharacterPsychologist}},

	{"character", []Agent{AgentCharacterPsychologist}},
	{"backstory", []Agent{AgentCharacterPsychologist}},
	{"motivation", []Agent{AgentCharacterPsychologist}},
	{"relationship", []Agent{AgentCharacterPsychologist}},
	{"voice", []Agent{AgentCharacterPsychologist, AgentProseStylist}},

	{"setting", []Agent{AgentAtmosphere}},
	{"description", []Agent{AgentAtmosphere, AgentProseStylist}},
	{"mood", []Agent{AgentAtmosphere}},
	{"atmosphere", []Agent{AgentAtmosphere}},
	{"world", []Agent{AgentAtmosphere, AgentResearch}},

	{"research", []Agent{AgentResearch}},
	{"fact", []Agent{AgentResearch}},
	{"historical", []Agent{AgentResearch}},
	{"technical", []Agent{AgentResearch}},
	{"accuracy", []Agent{AgentResearch}},
}

// Classify maps a request to a content type and the generator agents whose
// guidance should shape the reply. Keywords match case-insensitively at
// the start of a word, so "chapters" routes like "chapter" but "research"
// does not route like "arc". A message nothing matches is
// (ContentGeneral, nil). Classify is a pure function of its input.
func Classify(message string) (ContentType, []Agent) {
	lower := strings.ToLower(message)
	for _, r := range routes {
		if hasWordPrefix(lower, string(r.keyword)) {
			return r.keyword, append([]Agent(nil), r.agents...)
		}
	}
	return ContentGeneral, nil
}

// ReviewersFor returns the reviewers that should check content of type ct,
// or nil when the content is not substantial enough to review.
func ReviewersFor(ct ContentType) []Agent {
	switch ct {
	case "chapter", "scene", "prose":
		return []Agent{AgentContinuity, AgentRedundancy, AgentBetaReader}
	case "outline", "structure", "plot", "character", "dialogue":
		return []Agent{AgentContinuity, AgentBetaReader}
	default:
		return nil
	}
}

// hasWordPrefix reports whether kw occurs in s at a position not preceded
// by a letter or digit.
func hasWordPrefix(s, kw string) bool {
	for offset := 0; offset <= len(s); {
		i := strings.Index(s[offset:], kw)
		if i < 0 {
			return false
		}
		at := offset + i
		if at == 0 || !isWordByte(s, at) {
			return true
		}
		offset = at + 1
	}
	return false
}

func isWordByte(s string, at int) bool {
	r, _ := utf8.DecodeLastRuneInString(s[:at])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func displayNames(agents []Agent) string {
	names := make([]string, len(agents))
	for i, a := range agents {
		names[i] = a.DisplayName()
	}
	return strings.Join(names, ", ")
}
