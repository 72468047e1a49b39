package collab

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an academic research assistant. You always answer ` +
	`with a single JSON object matching the exact shape requested, with no ` +
	`surrounding prose and no markdown fences.`

func treePrompt(rootKeyword string) string {
	return fmt.Sprintf(`For the academic research topic %q, list the most important
related subtopics a researcher should explore next.

Respond with JSON of this exact shape:
{"keyword": %q, "children": [{"keyword": "...", "label": "hot|classic|niche"}, ...]}

Rules:
- 5 to 8 children, ordered from most to least central.
- "label" is optional; use "hot" for currently active areas, "classic" for
  foundational ones, "niche" for specialized ones. Omit it when unsure.`, rootKeyword, rootKeyword)
}

func expandPrompt(parentKeyword string) string {
	return fmt.Sprintf(`A researcher is drilling into the academic topic %q.
List narrower subtopics directly under it.

Respond with JSON of this exact shape:
{"expansions": [{"keyword": "...", "label": "hot|classic|niche"}, ...]}

Rules:
- 3 to 6 expansions, ordered from most to least central.
- "label" is optional with the same meaning as before.`, parentKeyword)
}

func networkPrompt(keywords []string) string {
	quoted := make([]string, len(keywords))
	for i, k := range keywords {
		quoted[i] = fmt.Sprintf("%q", k)
	}
	return fmt.Sprintf(`Describe the relationships among these academic research
keywords: %s.

Respond with JSON of this exact shape:
{"connections": [{"from": "...", "to": "...", "label": "..."}, ...]}

Rules:
- "from" and "to" must be copied verbatim from the keyword list above.
- "label" is a short phrase naming the relationship and may be omitted.
- Only include pairs with a meaningful relationship.`, strings.Join(quoted, ", "))
}

func literaturePrompt(keyword string) string {
	return fmt.Sprintf(`List influential published papers on the academic topic %q.

Respond with JSON of this exact shape:
{"papers": [{"title": "...", "authors": ["..."], "year": 2020,
"abstract": "...", "citations": 1000, "url": "https://..."}, ...]}

Rules:
- 3 to 5 papers. "title" and "url" are mandatory; the rest may be omitted.
- Prefer papers you are confident actually exist, with their real URLs.`, keyword)
}
