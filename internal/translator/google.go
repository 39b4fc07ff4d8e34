package translator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	translate "cloud.google.com/go/translate"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	xlanguage "golang.org/x/text/language"
	"google.golang.org/api/option"

	"github.com/valpere/doctran/internal/language"
	"github.com/valpere/doctran/internal/tokenizer"
)

const DefaultGoogleModel = "nmt"

// GoogleService translates with Cloud Translation. The client is created on
// first use and shared by every model the service hands out.
type GoogleService struct {
	credentials string
	breaker     *gobreaker.CircuitBreaker
	logger      *zap.Logger

	mu     sync.Mutex
	client *translate.Client
}

func NewGoogleService(credentials string, logger *zap.Logger) *GoogleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoogleService{
		credentials: credentials,
		breaker:     newBreaker("google"),
		logger:      logger,
	}
}

func (s *GoogleService) Name() string {
	return "google"
}

func (s *GoogleService) DefaultModelTemplate() string {
	return DefaultGoogleModel
}

// Acquire validates the target tag. Credentials are not checked until the
// first translation.
func (s *GoogleService) Acquire(ctx context.Context, modelID string, target language.Entry) (Model, *tokenizer.Tokenizer, error) {
	if target.Tag() == xlanguage.Und {
		return nil, nil, fmt.Errorf("invalid target language %q", target.Code)
	}
	tok := tokenizer.New(nil)
	return newServiceModel(modelID, target, s, tok, s.breaker, s.logger), tok, nil
}

func (s *GoogleService) Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	target, err := xlanguage.Parse(req.TargetLang)
	if err != nil {
		result.Error = fmt.Sprintf("invalid target language: %v", err)
		return result, errors.New(result.Error)
	}

	client, err := s.getClient(ctx)
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	translations, err := client.Translate(ctx, []string{req.Text}, target, &translate.Options{
		Source: xlanguage.Make(req.SourceLang),
		Format: translate.Text,
		Model:  req.ModelID,
	})
	if err != nil {
		result.Error = fmt.Sprintf("translation failed: %v", err)
		return result, fmt.Errorf("translation failed: %w", err)
	}
	if len(translations) == 0 {
		result.Error = "no translation returned"
		return result, errors.New(result.Error)
	}

	result.Candidates = []string{translations[0].Text}
	result.Metadata = map[string]string{"model": translations[0].Model}
	return result, nil
}

func (s *GoogleService) IsAvailable(ctx context.Context) error {
	_, err := s.getClient(ctx)
	return err
}

// Close releases the shared client, if one was created.
func (s *GoogleService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

func (s *GoogleService) getClient(ctx context.Context) (*translate.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}

	var opts []option.ClientOption
	if s.credentials != "" {
		opts = append(opts, option.WithCredentialsFile(s.credentials))
	}
	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	s.client = client
	return client, nil
}
