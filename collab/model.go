package collab

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/topictree/log"
	"github.com/smallnest/topictree/netgraph"
	"github.com/smallnest/topictree/tree"
)

// ModelCollaborator implements Collaborator on top of any langchaingo model.
type ModelCollaborator struct {
	model  llms.Model
	logger log.Logger
}

var _ Collaborator = (*ModelCollaborator)(nil)

// ModelOption configures a ModelCollaborator.
type ModelOption func(*ModelCollaborator)

// WithLogger sets the logger used for call tracing.
func WithLogger(logger log.Logger) ModelOption {
	return func(c *ModelCollaborator) {
		c.logger = logger
	}
}

// NewModelCollaborator creates a collaborator backed by the given model.
func NewModelCollaborator(model llms.Model, opts ...ModelOption) *ModelCollaborator {
	c := &ModelCollaborator{
		model:  model,
		logger: log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GenerateTree produces the first level of a keyword tree.
func (c *ModelCollaborator) GenerateTree(ctx context.Context, rootKeyword string) (*TreeResult, error) {
	raw, err := c.generate(ctx, treePrompt(rootKeyword))
	if err != nil {
		return nil, fmt.Errorf("generate tree for %q: %w", rootKeyword, err)
	}
	return decodeTree(raw, rootKeyword)
}

// ExpandNode produces child keywords for a node's keyword.
func (c *ModelCollaborator) ExpandNode(ctx context.Context, parentKeyword string) ([]Keyword, error) {
	raw, err := c.generate(ctx, expandPrompt(parentKeyword))
	if err != nil {
		return nil, fmt.Errorf("expand %q: %w", parentKeyword, err)
	}
	return decodeExpansions(raw)
}

// GenerateNetwork produces raw relationship edges over the given keywords.
func (c *ModelCollaborator) GenerateNetwork(ctx context.Context, keywords []string) ([]netgraph.Edge, error) {
	raw, err := c.generate(ctx, networkPrompt(keywords))
	if err != nil {
		return nil, fmt.Errorf("generate network: %w", err)
	}
	return decodeConnections(raw)
}

// FindLiterature produces literature references for a keyword.
func (c *ModelCollaborator) FindLiterature(ctx context.Context, keyword string) ([]tree.Paper, error) {
	raw, err := c.generate(ctx, literaturePrompt(keyword))
	if err != nil {
		return nil, fmt.Errorf("find literature for %q: %w", keyword, err)
	}
	return decodePapers(raw)
}

func (c *ModelCollaborator) generate(ctx context.Context, prompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	resp, err := c.model.GenerateContent(ctx, messages, llms.WithJSONMode())
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	content := resp.Choices[0].Content
	c.logger.Debug("model returned %d bytes", len(content))
	return content, nil
}
