// Package report renders a session snapshot into a Markdown document and,
// optionally, sanitized HTML. The report covers the keyword network, every
// keyword tree, and the collected papers.
package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"

	"github.com/smallnest/topictree/store"
	"github.com/smallnest/topictree/tree"
)

// Markdown renders the snapshot as a Markdown report.
func Markdown(snapshot *store.Snapshot) string {
	var sb strings.Builder

	sb.WriteString("# Research Session Report\n\n")
	if !snapshot.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, "Exported %s.\n\n", snapshot.CreatedAt.Format("2006-01-02 15:04"))
	}

	writeNetwork(&sb, snapshot)
	writeTrees(&sb, snapshot)
	writeCollection(&sb, snapshot)

	return sb.String()
}

// HTML renders the snapshot as sanitized HTML.
func HTML(snapshot *store.Snapshot) []byte {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(Markdown(snapshot)))

	htmlFlags := html.CommonFlags | html.HrefTargetBlank
	opts := html.RendererOptions{Flags: htmlFlags}
	renderer := html.NewRenderer(opts)
	htmlBytes := markdown.Render(doc, renderer)

	sanitizer := bluemonday.UGCPolicy()
	return sanitizer.SanitizeBytes(htmlBytes)
}

func writeNetwork(sb *strings.Builder, snapshot *store.Snapshot) {
	if snapshot.Network == nil || len(snapshot.Network.Nodes) == 0 {
		return
	}

	sb.WriteString("## Keyword Network\n\n")
	keywords := make([]string, 0, len(snapshot.Network.Nodes))
	for _, n := range snapshot.Network.Nodes {
		keywords = append(keywords, n.Label)
	}
	fmt.Fprintf(sb, "Keywords: %s\n\n", strings.Join(keywords, ", "))

	if len(snapshot.Network.Edges) > 0 {
		sb.WriteString("Connections:\n\n")
		for _, e := range snapshot.Network.Edges {
			if e.Label != "" {
				fmt.Fprintf(sb, "- %s — %s (%s)\n", e.From, e.To, e.Label)
			} else {
				fmt.Fprintf(sb, "- %s — %s\n", e.From, e.To)
			}
		}
		sb.WriteString("\n")
	}
}

func writeTrees(sb *strings.Builder, snapshot *store.Snapshot) {
	if len(snapshot.Trees) == 0 {
		return
	}

	sb.WriteString("## Keyword Trees\n\n")
	for _, root := range snapshot.Trees {
		fmt.Fprintf(sb, "### %s\n\n", root.Keyword)
		for _, child := range root.Children {
			writeNode(sb, child, 0)
		}
		sb.WriteString("\n")
	}
}

func writeNode(sb *strings.Builder, node *tree.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	if node.Label != "" {
		fmt.Fprintf(sb, "%s- %s *(%s)*\n", indent, node.Keyword, node.Label)
	} else {
		fmt.Fprintf(sb, "%s- %s\n", indent, node.Keyword)
	}
	for _, child := range node.Children {
		writeNode(sb, child, depth+1)
	}
}

func writeCollection(sb *strings.Builder, snapshot *store.Snapshot) {
	if len(snapshot.Collection) == 0 {
		return
	}

	sb.WriteString("## Collected Papers\n\n")
	for _, c := range snapshot.Collection {
		fmt.Fprintf(sb, "- [%s](%s)", c.Paper.Title, c.Paper.URL)
		var details []string
		if len(c.Paper.Authors) > 0 {
			details = append(details, strings.Join(c.Paper.Authors, ", "))
		}
		if c.Paper.Year > 0 {
			details = append(details, fmt.Sprintf("%d", c.Paper.Year))
		}
		if c.SourceKeyword != "" {
			details = append(details, "found under "+c.SourceKeyword)
		}
		if len(details) > 0 {
			fmt.Fprintf(sb, " — %s", strings.Join(details, ", "))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}
