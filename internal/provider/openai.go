package provider

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/petasbytes/research-agent/internal/transcript"
	"github.com/petasbytes/research-agent/tools"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-3.5-turbo"

// OpenAIClient talks to an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAI returns a client with retries disabled and o.Timeout per request.
func NewOpenAI(o Options) *OpenAIClient {
	opts := []option.RequestOption{
		option.WithRequestTimeout(o.Timeout),
		option.WithMaxRetries(0),
	}
	// An empty key leaves the SDK's OPENAI_API_KEY lookup in place.
	if o.APIKey != "" {
		opts = append(opts, option.WithAPIKey(o.APIKey))
	}
	if o.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(o.BaseURL))
	}
	if o.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(o.HTTPClient))
	}
	model := o.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClient{client: openai.NewClient(opts...), model: model}
}

func (c *OpenAIClient) Name() string  { return OpenAI }
func (c *OpenAIClient) Model() string { return c.model }

// Complete sends msgs and returns the first choice. Only the first tool call
// is surfaced; the loop dispatches at most one tool per turn.
func (c *OpenAIClient) Complete(ctx context.Context, msgs []transcript.Message, decls []tools.Declaration) (transcript.Message, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: openAIMessages(msgs),
	}
	if len(decls) > 0 {
		params.Tools = openAITools(decls)
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String("auto"),
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return transcript.Message{}, c.wrap(err)
	}
	if len(resp.Choices) == 0 {
		return transcript.Message{}, c.wrap(errNoChoices)
	}

	choice := resp.Choices[0].Message
	out := transcript.Message{Role: transcript.RoleAssistant}
	if choice.Content != "" {
		out.Content = transcript.Text(choice.Content)
	}
	if len(choice.ToolCalls) > 0 {
		tc := choice.ToolCalls[0]
		out.ToolInvocation = &transcript.ToolInvocation{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}
	}
	return out, nil
}

func (c *OpenAIClient) wrap(err error) error {
	ce := &CompletionError{Provider: OpenAI, Err: err}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		ce.StatusCode = apiErr.StatusCode
	}
	return ce
}

func openAIMessages(msgs []transcript.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case transcript.RoleSystem:
			out = append(out, openai.SystemMessage(m.ContentString()))
		case transcript.RoleUser:
			out = append(out, openai.UserMessage(m.ContentString()))
		case transcript.RoleTool:
			out = append(out, openai.ToolMessage(m.ContentString(), m.ToolCallID))
		case transcript.RoleAssistant:
			if !m.HasInvocation() {
				out = append(out, openai.AssistantMessage(m.ContentString()))
				continue
			}
			inv := m.ToolInvocation
			asst := openai.ChatCompletionAssistantMessageParam{
				ToolCalls: []openai.ChatCompletionMessageToolCallParam{{
					ID: inv.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      inv.Name,
						Arguments: inv.Arguments,
					},
				}},
			}
			if m.Content != nil {
				asst.Content.OfString = openai.String(*m.Content)
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		}
	}
	return out
}

func openAITools(decls []tools.Declaration) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(decls))
	for _, d := range decls {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        d.Name,
				Description: openai.String(d.Description),
				Parameters:  openai.FunctionParameters(d.Parameters),
			},
		})
	}
	return out
}
