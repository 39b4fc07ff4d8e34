package translator

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/valpere/doctran/internal"
	"github.com/valpere/doctran/internal/language"
	"github.com/valpere/doctran/internal/tokenizer"
)

// Session is a loaded model and its tokenizer for one target language. It is
// a value: changing language produces a new Session and never touches the old
// one.
type Session struct {
	Language  language.Entry
	ModelID   string
	Model     Model
	Tokenizer *tokenizer.Tokenizer
}

// Valid reports whether the session holds a model and tokenizer.
func (s Session) Valid() bool {
	return s.Model != nil && s.Tokenizer != nil && s.Language.Code != ""
}

// Switch loads the model for languageName. On failure the receiver is
// returned unchanged together with the error.
func (s Session) Switch(ctx context.Context, loader *Loader, languageName string) (Session, error) {
	next, err := loader.Load(ctx, languageName)
	if err != nil {
		return s, err
	}
	return next, nil
}

// Loader resolves language names to sessions through a Backend.
type Loader struct {
	backend  Backend
	template string
	logger   *zap.Logger
}

// NewLoader returns a loader over backend. An empty template selects the
// backend's default.
func NewLoader(backend Backend, template string, logger *zap.Logger) *Loader {
	if template == "" {
		template = backend.DefaultModelTemplate()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{backend: backend, template: template, logger: logger}
}

// Close releases backend resources, if the backend holds any.
func (l *Loader) Close() error {
	if c, ok := l.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ModelID formats the model identifier for a language code. Templates
// without a %s verb name a single multilingual model.
func (l *Loader) ModelID(code string) string {
	if strings.Contains(l.template, "%s") {
		return fmt.Sprintf(l.template, code)
	}
	return l.template
}

// Load validates languageName against the registry and acquires the model
// and tokenizer for it.
func (l *Loader) Load(ctx context.Context, languageName string) (Session, error) {
	entry, ok := language.Lookup(languageName)
	if !ok {
		return Session{}, &internal.Error{
			Kind:      internal.UnsupportedLanguage,
			Subject:   strings.ToLower(languageName),
			Supported: language.Names(),
		}
	}

	modelID := l.ModelID(entry.Code)
	l.logger.Info("loading model",
		zap.String("backend", l.backend.Name()),
		zap.String("model", modelID),
		zap.String("language", entry.Name),
	)

	model, tok, err := l.backend.Acquire(ctx, modelID, entry)
	if err != nil {
		return Session{}, internal.NewError(internal.ModelLoadFailure, entry.Name, err)
	}

	return Session{
		Language:  entry,
		ModelID:   modelID,
		Model:     model,
		Tokenizer: tok,
	}, nil
}

// SuccessMessage is the confirmation shown after a language switch.
func (s Session) SuccessMessage() string {
	return fmt.Sprintf("Successfully switched target language to %s (%s)", s.Language.Name, s.Language.Code)
}
