package netgraph

import (
	"fmt"
	"strings"
)

// Exporter renders a Network in formats suitable for external viewers.
type Exporter struct {
	network *Network
}

// NewExporter creates an exporter over a read-only view of the network.
func NewExporter(network *Network) *Exporter {
	return &Exporter{network: network}
}

// MermaidOptions defines configuration for Mermaid diagram generation.
type MermaidOptions struct {
	// Direction of the flowchart (e.g. "TD", "LR")
	Direction string
}

// DrawMermaid generates a Mermaid diagram of the keyword network.
func (e *Exporter) DrawMermaid() string {
	return e.DrawMermaidWithOptions(MermaidOptions{Direction: "LR"})
}

// DrawMermaidWithOptions generates a Mermaid diagram with custom options.
func (e *Exporter) DrawMermaidWithOptions(opts MermaidOptions) string {
	var sb strings.Builder

	direction := opts.Direction
	if direction == "" {
		direction = "LR"
	}
	sb.WriteString(fmt.Sprintf("flowchart %s\n", direction))

	ids := e.nodeIDs()
	for _, n := range e.network.Nodes {
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", ids[n.ID], n.Label))
	}

	for _, edge := range e.network.Edges {
		if edge.Label != "" {
			sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", ids[edge.From], edge.Label, ids[edge.To]))
		} else {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", ids[edge.From], ids[edge.To]))
		}
	}

	return sb.String()
}

// DrawDOT generates a DOT (Graphviz) representation of the network.
// Pipe it through `dot -Tpng` to get the image export.
func (e *Exporter) DrawDOT() string {
	var sb strings.Builder

	sb.WriteString("graph G {\n")
	sb.WriteString("    layout=neato;\n")
	sb.WriteString("    node [shape=ellipse, style=filled, fillcolor=lightblue];\n")

	ids := e.nodeIDs()
	for _, n := range e.network.Nodes {
		sb.WriteString(fmt.Sprintf("    %s [label=\"%s\"];\n", ids[n.ID], n.Label))
	}

	for _, edge := range e.network.Edges {
		if edge.Label != "" {
			sb.WriteString(fmt.Sprintf("    %s -- %s [label=\"%s\"];\n", ids[edge.From], ids[edge.To], edge.Label))
		} else {
			sb.WriteString(fmt.Sprintf("    %s -- %s;\n", ids[edge.From], ids[edge.To]))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

// DrawASCII generates a plain-text listing of the network.
func (e *Exporter) DrawASCII() string {
	var sb strings.Builder

	sb.WriteString("Keyword Network:\n")
	for _, n := range e.network.Nodes {
		sb.WriteString(fmt.Sprintf("├── %s\n", n.Label))
		for _, edge := range e.network.Edges {
			if edge.From != n.ID {
				continue
			}
			label := edge.Label
			if label == "" {
				label = "related to"
			}
			sb.WriteString(fmt.Sprintf("│   └── %s → %s\n", label, edge.To))
		}
	}

	return sb.String()
}

// nodeIDs maps keyword strings to identifiers safe for Mermaid/DOT syntax.
func (e *Exporter) nodeIDs() map[string]string {
	ids := make(map[string]string, len(e.network.Nodes))
	for i, n := range e.network.Nodes {
		ids[n.ID] = fmt.Sprintf("k%d", i)
	}
	return ids
}
