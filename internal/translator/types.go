package translator

import (
	"context"
	"time"

	"github.com/valpere/doctran/internal/language"
	"github.com/valpere/doctran/internal/tokenizer"
)

// BackendConfig selects and configures the service that hosts the models.
type BackendConfig struct {
	Provider      string        `mapstructure:"provider" json:"provider" toml:"provider"`
	ModelTemplate string        `mapstructure:"model_template" json:"model_template" toml:"model_template"`
	BaseURL       string        `mapstructure:"base_url" json:"base_url" toml:"base_url"`
	HubURL        string        `mapstructure:"hub_url" json:"hub_url" toml:"hub_url"`
	APIKey        string        `mapstructure:"api_key" json:"api_key" toml:"api_key"`
	Credentials   string        `mapstructure:"credentials" json:"credentials" toml:"credentials"`
	Timeout       time.Duration `mapstructure:"timeout" json:"timeout" toml:"-"`
}

type TranslateRequest struct {
	ModelID    string `json:"model_id"`
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type ServiceResult struct {
	ServiceName string            `json:"service_name"`
	Candidates  []string          `json:"candidates"`
	Metadata    map[string]string `json:"metadata"`
	Latency     time.Duration     `json:"latency"`
	Error       string            `json:"error,omitempty"`
}

// TranslationService is a remote service that translates plain text with a
// named model.
type TranslationService interface {
	Name() string
	Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error)
	IsAvailable(ctx context.Context) error
}

// Model generates output token sequences for a tokenized input. Candidates
// are ordered best first.
type Model interface {
	ID() string
	Generate(ctx context.Context, enc *tokenizer.Encoding) ([]tokenizer.Sequence, error)
}

// Backend acquires a model and its paired tokenizer for a model identifier.
type Backend interface {
	Name() string
	DefaultModelTemplate() string
	Acquire(ctx context.Context, modelID string, target language.Entry) (Model, *tokenizer.Tokenizer, error)
}
