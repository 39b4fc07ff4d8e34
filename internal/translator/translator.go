// Package translator loads translation models and runs the chunked
// translation pipeline: fixed-size windows, each tokenized, generated and
// decoded on its own, then joined back together.
package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/valpere/doctran/internal"
	"github.com/valpere/doctran/internal/chunker"
	"github.com/valpere/doctran/internal/tokenizer"
)

const (
	// ChunkSize is the window length in characters.
	ChunkSize = 2000
	// MaxTokens is the model input limit; longer windows are truncated.
	MaxTokens = 512
)

var errInvalidSession = errors.New("no model loaded")

// Translator runs the chunked pipeline. Chunks are processed one after the
// other on the calling goroutine.
type Translator struct {
	logger *zap.Logger
	// OnChunk, if set, is called after each chunk is translated.
	OnChunk func(done, total int)
}

func New(logger *zap.Logger) *Translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Translator{logger: logger}
}

// Translate translates text with the session's model. Any tokenizer or
// model failure aborts the whole text with a TranslationFailure error; no
// partial translation is returned.
func (t *Translator) Translate(ctx context.Context, text string, s Session) (string, error) {
	if !s.Valid() {
		return "", internal.NewError(internal.TranslationFailure, "", errInvalidSession)
	}

	chunks := chunker.Split(text, ChunkSize)
	opts := tokenizer.Options{MaxLength: MaxTokens, Truncation: true, Padding: true}

	var sb strings.Builder
	for i, chunk := range chunks {
		out, err := t.translateChunk(ctx, chunk, s, opts)
		if err != nil {
			t.logger.Error("chunk failed", zap.Int("chunk", i+1), zap.Int("total", len(chunks)), zap.Error(err))
			return "", internal.NewError(internal.TranslationFailure, "", err)
		}
		sb.WriteString(out)

		if t.OnChunk != nil {
			t.OnChunk(i+1, len(chunks))
		}
	}

	return sb.String(), nil
}

func (t *Translator) translateChunk(ctx context.Context, chunk string, s Session, opts tokenizer.Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	enc, err := s.Tokenizer.Encode(chunk, opts)
	if err != nil {
		return "", fmt.Errorf("tokenize: %w", err)
	}
	if enc.Truncated {
		t.logger.Warn("chunk truncated to token limit",
			zap.Int("max_tokens", opts.MaxLength),
			zap.Int("dropped_tokens", enc.Dropped),
		)
	}

	seqs, err := s.Model.Generate(ctx, enc)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if len(seqs) == 0 {
		return "", fmt.Errorf("generate: model returned no output")
	}

	return keepEdges(chunk, s.Tokenizer.Decode(seqs[0], true)), nil
}

// keepEdges puts the chunk's leading and trailing whitespace around the
// decoded text. Decoding drops spaces and tabs at the edges, and chunks are
// joined without a separator.
func keepEdges(chunk, decoded string) string {
	core := strings.TrimSpace(decoded)
	if core == "" {
		if strings.TrimSpace(chunk) == "" {
			return chunk
		}
		return decoded
	}
	lead := chunk[:len(chunk)-len(strings.TrimLeftFunc(chunk, unicode.IsSpace))]
	trail := chunk[len(strings.TrimRightFunc(chunk, unicode.IsSpace)):]
	return lead + core + trail
}
