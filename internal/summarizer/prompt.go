package summarizer

import (
	"fmt"
	"strings"

	"github.com/starford/amber/internal/llm"
)

const systemPromptTemplate = `You are a personal knowledge assistant. Generate a daily development note for %s.
Format the note as markdown with YAML frontmatter.

Frontmatter must include: date, topics (list), people (list).

Use these section headings (only include sections with content):
- Shipped: completed features/fixes
- Worked On: in-progress work
- Decisions: technical decisions made
- Discovered: new tools, techniques, insights
- Links: relevant URLs from commits/events
- People: collaborators and their contributions
- Events: meetings, reviews, discussions

Rules:
- Use concrete references (commit hashes, file names, branch names)
- No fluff or filler text
- Be concise but specific`

// BuildMessages returns the conversation sent to the provider for date.
// Staged lines are passed through unmodified, one per line.
func BuildMessages(date string, lines []string) []llm.Message {
	return []llm.Message{
		llm.System(fmt.Sprintf(systemPromptTemplate, date)),
		llm.User(fmt.Sprintf("Here are the raw events for %s:\n\n%s", date, strings.Join(lines, "\n"))),
	}
}
