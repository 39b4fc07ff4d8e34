package agent

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no planner model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiPlanner plans with a Gemini model using function calling.
type GeminiPlanner struct {
	client *genai.Client
	model  string
}

func NewGeminiPlanner(ctx context.Context, apiKey, baseURL, model string) (*GeminiPlanner, error) {
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiPlanner{client: client, model: model}, nil
}

func (p *GeminiPlanner) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0)},
	)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (p *GeminiPlanner) Next(ctx context.Context, system string, history []Message, tools []Tool) (*Step, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, geminiContents(history), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Tools:             []*genai.Tool{{FunctionDeclarations: geminiDeclarations(tools)}},
		Temperature:       genai.Ptr[float32](0),
	})
	if err != nil {
		return nil, err
	}

	step := &Step{}
	calls := resp.FunctionCalls()
	for i, fc := range calls {
		id := fc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", i)
		}
		step.ToolCalls = append(step.ToolCalls, ToolCall{ID: id, Name: fc.Name, Args: fc.Args})
	}
	if len(calls) == 0 {
		step.Content = resp.Text()
	}
	return step, nil
}

func geminiContents(history []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case RoleAssistant:
			var parts []*genai.Part
			if m.Content != "" {
				parts = append(parts, genai.NewPartFromText(m.Content))
			}
			for _, c := range m.ToolCalls {
				parts = append(parts, genai.NewPartFromFunctionCall(c.Name, c.Args))
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
		case RoleTool:
			contents = append(contents, genai.NewContentFromFunctionResponse(m.Name,
				map[string]any{"output": m.Content}, genai.RoleUser))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return contents
}

func geminiDeclarations(tools []Tool) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		schema := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(t.Parameters)),
		}
		for _, p := range t.Parameters {
			schema.Properties[p.Name] = &genai.Schema{Type: genai.TypeString, Description: p.Description}
			schema.Required = append(schema.Required, p.Name)
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schema,
		})
	}
	return decls
}
