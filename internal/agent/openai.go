package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// OpenAIPlanner plans with an OpenAI chat model using tool calling.
type OpenAIPlanner struct {
	client *openai.Client
	model  string
}

func NewOpenAIPlanner(apiKey, baseURL, model string) *OpenAIPlanner {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &OpenAIPlanner{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (p *OpenAIPlanner) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from %s", p.model)
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIPlanner) Next(ctx context.Context, system string, history []Message, tools []Tool) (*Step, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
	}
	for _, m := range history {
		msg, err := toOpenAIMessage(m)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Tools:       openAITools(tools),
		Temperature: 0,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", p.model)
	}

	msg := resp.Choices[0].Message
	step := &Step{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("invalid arguments for %s: %w", tc.Function.Name, err)
			}
		}
		step.ToolCalls = append(step.ToolCalls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Args: args})
	}
	return step, nil
}

func toOpenAIMessage(m Message) (openai.ChatCompletionMessage, error) {
	switch m.Role {
	case RoleAssistant:
		msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content}
		for _, c := range m.ToolCalls {
			args, err := json.Marshal(c.Args)
			if err != nil {
				return msg, fmt.Errorf("encode arguments for %s: %w", c.Name, err)
			}
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:       c.ID,
				Type:     openai.ToolTypeFunction,
				Function: openai.FunctionCall{Name: c.Name, Arguments: string(args)},
			})
		}
		return msg, nil
	case RoleTool:
		return openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}, nil
	default:
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content}, nil
	}
}

func openAITools(tools []Tool) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		params := jsonschema.Definition{
			Type:       jsonschema.Object,
			Properties: make(map[string]jsonschema.Definition, len(t.Parameters)),
		}
		for _, p := range t.Parameters {
			params.Properties[p.Name] = jsonschema.Definition{Type: jsonschema.String, Description: p.Description}
			params.Required = append(params.Required, p.Name)
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return out
}
