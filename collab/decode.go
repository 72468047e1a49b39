package collab

import (
	"encoding/json"
	"strings"

	"github.com/smallnest/topictree/netgraph"
	"github.com/smallnest/topictree/tree"
)

// extractJSON strips markdown code fences the model may wrap its JSON in.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	// Models occasionally prepend prose; cut to the outermost JSON object.
	if start := strings.Index(s, "{"); start > 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}

type keywordPayload struct {
	Keyword string     `json:"keyword"`
	Label   tree.Label `json:"label"`
}

type treePayload struct {
	Keyword  string            `json:"keyword"`
	Children *[]keywordPayload `json:"children"`
}

// decodeTree parses a GenerateTree response. A missing children array is a
// hard failure, distinct from a present-but-empty one.
func decodeTree(raw, rootKeyword string) (*TreeResult, error) {
	var payload treePayload
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		return nil, &ShapeError{Call: "GenerateTree", Field: "response", Cause: err}
	}
	if payload.Children == nil {
		return nil, &ShapeError{Call: "GenerateTree", Field: "children"}
	}
	children, err := toKeywords("GenerateTree", *payload.Children)
	if err != nil {
		return nil, err
	}
	keyword := payload.Keyword
	if keyword == "" {
		keyword = rootKeyword
	}
	return &TreeResult{Keyword: keyword, Children: children}, nil
}

type expandPayload struct {
	Expansions *[]keywordPayload `json:"expansions"`
}

func decodeExpansions(raw string) ([]Keyword, error) {
	var payload expandPayload
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		return nil, &ShapeError{Call: "ExpandNode", Field: "response", Cause: err}
	}
	if payload.Expansions == nil {
		return nil, &ShapeError{Call: "ExpandNode", Field: "expansions"}
	}
	return toKeywords("ExpandNode", *payload.Expansions)
}

func toKeywords(call string, payloads []keywordPayload) ([]Keyword, error) {
	keywords := make([]Keyword, 0, len(payloads))
	for _, p := range payloads {
		if p.Keyword == "" {
			return nil, &ShapeError{Call: call, Field: "keyword"}
		}
		if !p.Label.Valid() {
			return nil, &ShapeError{Call: call, Field: "label"}
		}
		keywords = append(keywords, Keyword{Keyword: p.Keyword, Label: p.Label})
	}
	return keywords, nil
}

type networkPayload struct {
	Connections *[]netgraph.Edge `json:"connections"`
}

func decodeConnections(raw string) ([]netgraph.Edge, error) {
	var payload networkPayload
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		return nil, &ShapeError{Call: "GenerateNetwork", Field: "response", Cause: err}
	}
	if payload.Connections == nil {
		return nil, &ShapeError{Call: "GenerateNetwork", Field: "connections"}
	}
	return *payload.Connections, nil
}

type literaturePayload struct {
	Papers *[]json.RawMessage `json:"papers"`
}

// decodePapers parses a FindLiterature response. The papers array itself is
// mandatory, but individual entries that are malformed or lack a title or
// url are dropped silently rather than failing the call.
func decodePapers(raw string) ([]tree.Paper, error) {
	var payload literaturePayload
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		return nil, &ShapeError{Call: "FindLiterature", Field: "response", Cause: err}
	}
	if payload.Papers == nil {
		return nil, &ShapeError{Call: "FindLiterature", Field: "papers"}
	}
	papers := make([]tree.Paper, 0, len(*payload.Papers))
	for _, entry := range *payload.Papers {
		var p tree.Paper
		if err := json.Unmarshal(entry, &p); err != nil {
			continue
		}
		if p.Title == "" || p.URL == "" {
			continue
		}
		papers = append(papers, p)
	}
	return papers, nil
}
