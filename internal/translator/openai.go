package translator

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/valpere/doctran/internal/language"
	"github.com/valpere/doctran/internal/postprocess"
	"github.com/valpere/doctran/internal/tokenizer"
)

// OpenAIService talks to any OpenAI-compatible chat completions API. Point
// baseURL at https://openrouter.ai/api/v1 to use OpenRouter models.
type OpenAIService struct {
	apiKey  string
	client  *openai.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewOpenAIService(apiKey, baseURL string, logger *zap.Logger) *OpenAIService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIService{
		apiKey:  apiKey,
		client:  openai.NewClientWithConfig(cfg),
		breaker: newBreaker("openai"),
		logger:  logger,
	}
}

func (s *OpenAIService) Name() string {
	return "openai"
}

func (s *OpenAIService) DefaultModelTemplate() string {
	return openai.GPT4oMini
}

func (s *OpenAIService) Acquire(ctx context.Context, modelID string, target language.Entry) (Model, *tokenizer.Tokenizer, error) {
	if err := s.IsAvailable(ctx); err != nil {
		return nil, nil, err
	}
	tok := tokenizer.New(nil)
	return newServiceModel(modelID, target, s, tok, s.breaker, s.logger), tok, nil
}

func (s *OpenAIService) Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if s.apiKey == "" {
		result.Error = "OpenAI API key required"
		return result, fmt.Errorf("OpenAI API key required")
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.ModelID,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("You are a professional translator. Translate the user's text from %s to %s. "+
					"Only respond with the translation, nothing else. Keep line breaks where they are.",
					displayName(req.SourceLang), displayName(req.TargetLang)),
			},
			{Role: openai.ChatMessageRoleUser, Content: req.Text},
		},
		Temperature: 0,
	})
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		result.Error = "empty response from API"
		return result, fmt.Errorf("empty response from API")
	}

	for _, c := range resp.Choices {
		result.Candidates = append(result.Candidates, postprocess.Clean(c.Message.Content, req.Text))
	}
	result.Metadata = map[string]string{
		"model":             resp.Model,
		"prompt_tokens":     fmt.Sprintf("%d", resp.Usage.PromptTokens),
		"completion_tokens": fmt.Sprintf("%d", resp.Usage.CompletionTokens),
	}

	return result, nil
}

func (s *OpenAIService) IsAvailable(ctx context.Context) error {
	if s.apiKey == "" {
		return fmt.Errorf("OpenAI API key not configured")
	}
	return nil
}
