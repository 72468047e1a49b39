package collab

import (
	"context"
	"fmt"
	"net/http"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/smallnest/topictree/netgraph"
	"github.com/smallnest/topictree/tree"
)

// OpenAICollaborator implements Collaborator directly against the OpenAI
// chat-completions API with the JSON response format enabled, for users who
// don't want the langchaingo layer in between.
type OpenAICollaborator struct {
	client *openai.Client
	model  string
}

var _ Collaborator = (*OpenAICollaborator)(nil)

// OpenAIOption configures an OpenAICollaborator.
type OpenAIOption func(*openAIOptions)

type openAIOptions struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// WithAPIKey sets the API key explicitly instead of reading OPENAI_API_KEY.
func WithAPIKey(apiKey string) OpenAIOption {
	return func(o *openAIOptions) { o.apiKey = apiKey }
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(baseURL string) OpenAIOption {
	return func(o *openAIOptions) { o.baseURL = baseURL }
}

// WithModel sets the model name. Default is gpt-4o-mini.
func WithModel(model string) OpenAIOption {
	return func(o *openAIOptions) { o.model = model }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) OpenAIOption {
	return func(o *openAIOptions) { o.httpClient = client }
}

// NewOpenAICollaborator creates a collaborator over the OpenAI API.
// If no API key is given, it reads the OPENAI_API_KEY environment variable.
func NewOpenAICollaborator(opts ...OpenAIOption) (*OpenAICollaborator, error) {
	options := &openAIOptions{
		apiKey: os.Getenv("OPENAI_API_KEY"),
		model:  openai.GPT4oMini,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	config := openai.DefaultConfig(options.apiKey)
	if options.baseURL != "" {
		config.BaseURL = options.baseURL
	}
	if options.httpClient != nil {
		config.HTTPClient = options.httpClient
	}

	return &OpenAICollaborator{
		client: openai.NewClientWithConfig(config),
		model:  options.model,
	}, nil
}

// GenerateTree produces the first level of a keyword tree.
func (c *OpenAICollaborator) GenerateTree(ctx context.Context, rootKeyword string) (*TreeResult, error) {
	raw, err := c.complete(ctx, treePrompt(rootKeyword))
	if err != nil {
		return nil, fmt.Errorf("generate tree for %q: %w", rootKeyword, err)
	}
	return decodeTree(raw, rootKeyword)
}

// ExpandNode produces child keywords for a node's keyword.
func (c *OpenAICollaborator) ExpandNode(ctx context.Context, parentKeyword string) ([]Keyword, error) {
	raw, err := c.complete(ctx, expandPrompt(parentKeyword))
	if err != nil {
		return nil, fmt.Errorf("expand %q: %w", parentKeyword, err)
	}
	return decodeExpansions(raw)
}

// GenerateNetwork produces raw relationship edges over the given keywords.
func (c *OpenAICollaborator) GenerateNetwork(ctx context.Context, keywords []string) ([]netgraph.Edge, error) {
	raw, err := c.complete(ctx, networkPrompt(keywords))
	if err != nil {
		return nil, fmt.Errorf("generate network: %w", err)
	}
	return decodeConnections(raw)
}

// FindLiterature produces literature references for a keyword.
func (c *OpenAICollaborator) FindLiterature(ctx context.Context, keyword string) ([]tree.Paper, error) {
	raw, err := c.complete(ctx, literaturePrompt(keyword))
	if err != nil {
		return nil, fmt.Errorf("find literature for %q: %w", keyword, err)
	}
	return decodePapers(raw)
}

func (c *OpenAICollaborator) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
