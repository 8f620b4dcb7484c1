package provider

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/petasbytes/research-agent/internal/transcript"
	"github.com/petasbytes/research-agent/tools"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = anthropic.ModelClaude3_7SonnetLatest

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropic returns a client with retries disabled and o.Timeout per request.
func NewAnthropic(o Options) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithRequestTimeout(o.Timeout),
		option.WithMaxRetries(0),
	}
	if o.APIKey != "" {
		opts = append(opts, option.WithAPIKey(o.APIKey))
	}
	if o.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(o.BaseURL))
	}
	if o.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(o.HTTPClient))
	}
	model := anthropic.Model(o.Model)
	if o.Model == "" {
		model = DefaultAnthropicModel
	}
	maxTokens := o.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &AnthropicClient{client: anthropic.NewClient(opts...), model: model, maxTokens: maxTokens}
}

func (c *AnthropicClient) Name() string  { return Anthropic }
func (c *AnthropicClient) Model() string { return string(c.model) }

// Complete sends msgs and folds the reply into one candidate. System messages
// are lifted into the system field in transcript order, replays included.
func (c *AnthropicClient) Complete(ctx context.Context, msgs []transcript.Message, decls []tools.Declaration) (transcript.Message, error) {
	system, conv := anthropicMessages(msgs)
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  conv,
	}
	if len(system) > 0 {
		params.System = system
	}
	if len(decls) > 0 {
		params.Tools = anthropicTools(decls)
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfAuto: &anthropic.ToolChoiceAutoParam{}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return transcript.Message{}, c.wrap(err)
	}

	out := transcript.Message{Role: transcript.RoleAssistant}
	var text []string
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			if v.Text != "" {
				text = append(text, v.Text)
			}
		case anthropic.ToolUseBlock:
			if out.ToolInvocation != nil {
				continue
			}
			out.ToolInvocation = &transcript.ToolInvocation{
				ID:        v.ID,
				Name:      v.Name,
				Arguments: v.JSON.Input.Raw(),
			}
		}
	}
	if len(text) > 0 {
		out.Content = transcript.Text(strings.Join(text, "\n"))
	}
	return out, nil
}

func (c *AnthropicClient) wrap(err error) error {
	ce := &CompletionError{Provider: Anthropic, Err: err}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		ce.StatusCode = apiErr.StatusCode
	}
	return ce
}

func anthropicMessages(msgs []transcript.Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var system []anthropic.TextBlockParam
	conv := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case transcript.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.ContentString()})
		case transcript.RoleUser:
			conv = append(conv, anthropic.NewUserMessage(anthropic.NewTextBlock(m.ContentString())))
		case transcript.RoleTool:
			conv = append(conv, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(m.ToolCallID, m.ContentString(), false),
			))
		case transcript.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			// The API rejects empty text blocks.
			if text := m.ContentString(); text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(text))
			}
			if m.HasInvocation() {
				input := m.ToolInvocation.Arguments
				if strings.TrimSpace(input) == "" {
					input = "{}"
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    m.ToolInvocation.ID,
					Name:  m.ToolInvocation.Name,
					Input: json.RawMessage(input),
				}})
			}
			if len(blocks) == 0 {
				continue
			}
			conv = append(conv, anthropic.NewAssistantMessage(blocks...))
		}
	}
	return system, conv
}

func anthropicTools(decls []tools.Declaration) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(decls))
	for _, d := range decls {
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: d.Properties(),
				Required:   d.Required,
			},
		}})
	}
	return out
}
