package orchestrator

import (
	"embed"
	"fmt"
	"strings"

	"github.com/catonblt/novelbuddies/internal/project"
)

//go:embed prompts
var promptFS embed.FS

func mustPrompt(name string) string {
	b, err := promptFS.ReadFile("prompts/" + name)
	if err != nil {
		panic(fmt.Sprintf("orchestrator: missing prompt %s: %v", name, err))
	}
	return string(b)
}

var (
	advocatePrompt       = mustPrompt("advocate.md")
	fileOpsInstructions  = mustPrompt("file_operations.md")
	reviewOutputContract = mustPrompt("review/format.md")
)

// AdvocatePrompt returns the Story Advocate's base system prompt.
func AdvocatePrompt() string { return advocatePrompt }

// FileOperationInstructions returns the instructions describing the
// <file_operation> block syntax.
func FileOperationInstructions() string { return fileOpsInstructions }

// ReviewPrompt returns the analysis prompt for agent a, including the JSON
// output contract, or "" for an unknown agent.
func ReviewPrompt(a Agent) string {
	if !a.Known() {
		return ""
	}
	b, err := promptFS.ReadFile("prompts/review/" + string(a) + ".md")
	if err != nil {
		return ""
	}
	return string(b) + reviewOutputContract
}

// hints is the guidance from each specialist that the advocate folds into
// its reply when the request is routed to them.
var hints = map[Agent]string{
	AgentArchitect: "Structure serves theme and character. Give outlines clear turning points " +
		"and chapter purposes. Save planning to planning/story-outline.md, " +
		"planning/chapter-breakdown.md, planning/themes.md or planning/character-arcs.md.",
	AgentProseStylist: "Write finished, manuscript-ready prose. Vary rhythm, pick precise words, " +
		"keep the narrative voice consistent. Save chapters to manuscript/chapters/chapter-XX.md " +
		"and scenes to manuscript/scenes/<scene-name>.md.",
	AgentCharacterPsychologist: "Give characters contradictions, blind spots and wants that differ " +
		"from their needs. Keep each voice distinct. Save profiles to characters/<name>.md and " +
		"dynamics to characters/relationships.md.",
	AgentAtmosphere: "Use every sense, not only sight. Let places carry history and reflect the " +
		"characters' state of mind. Save locations to story-bible/settings/<location>.md and " +
		"general world details to story-bible/world-building.md.",
	AgentResearch: "Be accurate and specific, and flag anything that needs verification. Serve " +
		"the story rather than the research. Save notes to research/<topic>.md, events to " +
		"story-bible/timeline.md and established facts to story-bible/continuity.md.",
}

var reviewerChecks = map[Agent]string{
	AgentContinuity: "timeline, character details and established facts must stay consistent",
	AgentRedundancy: "avoid repeated words, sentence shapes and scenes that do the same job",
	AgentBetaReader: "the piece must be clear, well paced and emotionally engaging",
}

const notDefined = "Not yet defined"

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// ProjectContext renders the project description block of the system
// prompt. Empty fields read as placeholders so the model knows they are
// still open.
func ProjectContext(meta project.Metadata, projectPath string) string {
	var b strings.Builder
	b.WriteString("## PROJECT CONTEXT\n\n")
	fmt.Fprintf(&b, "- Title: %s\n", orDefault(meta.Title, "Untitled"))
	fmt.Fprintf(&b, "- Author: %s\n", orDefault(meta.Author, "Unknown"))
	fmt.Fprintf(&b, "- Genre: %s\n", orDefault(meta.Genre, "Not specified"))
	if projectPath != "" {
		fmt.Fprintf(&b, "- Project Path: %s\n", projectPath)
	}
	if meta.TargetWordCount > 0 {
		fmt.Fprintf(&b, "- Target Word Count: %d\n", meta.TargetWordCount)
	}
	fmt.Fprintf(&b, "- Premise: %s\n", orDefault(meta.Premise, notDefined))
	fmt.Fprintf(&b, "- Themes: %s\n", orDefault(meta.Themes, notDefined))
	fmt.Fprintf(&b, "- Setting: %s\n", orDefault(meta.Setting, notDefined))
	if meta.KeyCharacters != "" {
		fmt.Fprintf(&b, "- Key Characters: %s\n", meta.KeyCharacters)
	}
	b.WriteString("\nFile paths in operations are relative to the project root.\n")
	return b.String()
}

// Routing renders the agent guidance for a classified request, or "" when
// neither generators nor reviewers apply.
func Routing(agents, reviewers []Agent) string {
	if len(agents) == 0 && len(reviewers) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## ROUTING\n")
	if len(agents) > 0 {
		fmt.Fprintf(&b, "\nFor this request, consider utilizing: %s\n\n", displayNames(agents))
		for _, a := range agents {
			if h, ok := hints[a]; ok {
				fmt.Fprintf(&b, "- %s (%s): %s\n", a.DisplayName(), a.Personality(), h)
			}
		}
	}
	if len(reviewers) > 0 {
		fmt.Fprintf(&b, "\nContent will be reviewed by: %s\n\n", displayNames(reviewers))
		for _, r := range reviewers {
			fmt.Fprintf(&b, "- %s: %s\n", r.DisplayName(), reviewerChecks[r])
		}
	}
	return b.String()
}

// systemPrompt joins the non-empty sections with blank lines.
func systemPrompt(sections ...string) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}
