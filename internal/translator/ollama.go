package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/valpere/doctran/internal/language"
	"github.com/valpere/doctran/internal/postprocess"
	"github.com/valpere/doctran/internal/tokenizer"
)

const DefaultOllamaModel = "llama3.2"

type OllamaService struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewOllamaService(baseURL string, timeout time.Duration, logger *zap.Logger) *OllamaService {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OllamaService{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		breaker: newBreaker("ollama"),
		logger:  logger,
	}
}

func (s *OllamaService) Name() string {
	return "ollama"
}

func (s *OllamaService) DefaultModelTemplate() string {
	return DefaultOllamaModel
}

// Acquire checks that the Ollama server answers. Models missing from the
// server's list are pulled on first use, so they only produce a warning.
func (s *OllamaService) Acquire(ctx context.Context, modelID string, target language.Entry) (Model, *tokenizer.Tokenizer, error) {
	models, err := s.listModels(ctx)
	if err != nil {
		return nil, nil, err
	}
	if !slices.ContainsFunc(models, func(name string) bool {
		return name == modelID || strings.TrimSuffix(name, ":latest") == modelID
	}) {
		s.logger.Warn("model not pulled yet, Ollama will fetch it on first use", zap.String("model", modelID))
	}

	tok := tokenizer.New(nil)
	return newServiceModel(modelID, target, s, tok, s.breaker, s.logger), tok, nil
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system,omitempty"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response  string `json:"response"`
	Error     string `json:"error"`
	EvalCount int    `json:"eval_count"`
}

func (s *OllamaService) Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	body, err := json.Marshal(ollamaGenerateRequest{
		Model:   req.ModelID,
		System:  translatorSystemPrompt,
		Prompt:  buildPrompt(req),
		Options: map[string]any{"temperature": 0},
	})
	if err != nil {
		result.Error = fmt.Sprintf("failed to marshal request: %v", err)
		return result, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		result.Error = fmt.Sprintf("failed to create request: %v", err)
		return result, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result, err
	}
	defer resp.Body.Close()

	var out ollamaGenerateResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)

	if resp.StatusCode != http.StatusOK {
		result.Error = fmt.Sprintf("API returned status %d", resp.StatusCode)
		if out.Error != "" {
			result.Error += ": " + out.Error
		}
		return result, errors.New(result.Error)
	}
	if decodeErr != nil {
		result.Error = fmt.Sprintf("failed to decode response: %v", decodeErr)
		return result, decodeErr
	}

	result.Candidates = []string{postprocess.Clean(out.Response, req.Text)}
	result.Metadata = map[string]string{
		"model":      req.ModelID,
		"eval_count": strconv.Itoa(out.EvalCount),
	}

	return result, nil
}

func (s *OllamaService) IsAvailable(ctx context.Context) error {
	_, err := s.listModels(ctx)
	return err
}

// listModels returns the names of the models the server has pulled.
func (s *OllamaService) listModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("Ollama not available: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Ollama returned status %d", resp.StatusCode)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to decode model list: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

const translatorSystemPrompt = "You are a professional translator. Reply with the translation only. " +
	"Keep line breaks, tabs and punctuation where they are. Do not add notes or explanations."

// buildPrompt asks a general-purpose LLM for a bare translation of one chunk.
func buildPrompt(req TranslateRequest) string {
	return fmt.Sprintf("Translate the text between the markers from %s to %s.\n\n<<<\n%s\n>>>",
		displayName(req.SourceLang), displayName(req.TargetLang), req.Text)
}

func displayName(code string) string {
	if e, ok := language.ByCode(code); ok {
		return e.Title()
	}
	if code == sourceLang {
		return "English"
	}
	return code
}
