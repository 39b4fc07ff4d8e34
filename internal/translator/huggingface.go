package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/valpere/doctran/internal/language"
	"github.com/valpere/doctran/internal/tokenizer"
)

const (
	DefaultHuggingFaceURL = "https://api-inference.huggingface.co/models"
	DefaultHubURL         = "https://huggingface.co"
	DefaultMarianTemplate = "Helsinki-NLP/opus-mt-en-%s"
)

// HuggingFaceService runs Marian translation models on the Hugging Face
// inference API and fetches their vocabularies from the model hub.
type HuggingFaceService struct {
	apiKey  string
	baseURL string
	hubURL  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewHuggingFaceService(apiKey, baseURL, hubURL string, timeout time.Duration, logger *zap.Logger) *HuggingFaceService {
	if baseURL == "" {
		baseURL = DefaultHuggingFaceURL
	}
	if hubURL == "" {
		hubURL = DefaultHubURL
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HuggingFaceService{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		hubURL:  strings.TrimRight(hubURL, "/"),
		client:  &http.Client{Timeout: timeout},
		breaker: newBreaker("huggingface"),
		logger:  logger,
	}
}

func (s *HuggingFaceService) Name() string {
	return "huggingface"
}

func (s *HuggingFaceService) DefaultModelTemplate() string {
	return DefaultMarianTemplate
}

// Acquire downloads the model's vocabulary to build its tokenizer. A model
// that does not exist on the hub fails here, before any translation.
func (s *HuggingFaceService) Acquire(ctx context.Context, modelID string, target language.Entry) (Model, *tokenizer.Tokenizer, error) {
	vocab, err := s.FetchVocab(ctx, modelID)
	if err != nil {
		return nil, nil, err
	}
	tok := tokenizer.New(vocab)
	s.logger.Debug("vocabulary loaded", zap.String("model", modelID), zap.Int("pieces", vocab.Size()))
	return newServiceModel(modelID, target, s, tok, s.breaker, s.logger), tok, nil
}

// FetchVocab downloads vocab.json for modelID from the hub.
func (s *HuggingFaceService) FetchVocab(ctx context.Context, modelID string) (*tokenizer.Vocab, error) {
	url := fmt.Sprintf("%s/%s/resolve/main/vocab.json", s.hubURL, modelID)
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	s.authorize(httpReq)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vocabulary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model %s: hub returned status %d", modelID, resp.StatusCode)
	}

	return tokenizer.LoadVocab(resp.Body)
}

func (s *HuggingFaceService) Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	hfReq := map[string]interface{}{
		"inputs":  req.Text,
		"options": map[string]bool{"wait_for_model": true},
	}

	jsonData, err := json.Marshal(hfReq)
	if err != nil {
		result.Error = fmt.Sprintf("failed to marshal request: %v", err)
		return result, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/%s", s.baseURL, req.ModelID), bytes.NewBuffer(jsonData))
	if err != nil {
		result.Error = fmt.Sprintf("failed to create request: %v", err)
		return result, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	s.authorize(httpReq)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		result.Error = fmt.Sprintf("API returned status %d: %s", resp.StatusCode, errResp.Error)
		return result, fmt.Errorf("API returned status %d: %s", resp.StatusCode, errResp.Error)
	}

	var hfResp []struct {
		TranslationText string `json:"translation_text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&hfResp); err != nil {
		result.Error = fmt.Sprintf("failed to decode response: %v", err)
		return result, err
	}

	for _, r := range hfResp {
		result.Candidates = append(result.Candidates, r.TranslationText)
	}
	result.Metadata = map[string]string{"model": req.ModelID}

	return result, nil
}

func (s *HuggingFaceService) IsAvailable(ctx context.Context) error {
	req, _ := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/api/models?limit=1", s.hubURL), nil)
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("Hugging Face hub not available: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Hugging Face hub returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *HuggingFaceService) authorize(req *http.Request) {
	if s.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))
	}
}
