package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/valpere/doctran/internal/language"
	"github.com/valpere/doctran/internal/tokenizer"
)

// sourceLang is the language every supported model translates from.
const sourceLang = "en"

// serviceModel adapts a text-in/text-out TranslationService to Model. The
// service's candidates are segmented with the model's tokenizer so the
// translator decodes them like any other generated sequence.
type serviceModel struct {
	id      string
	target  language.Entry
	service TranslationService
	tok     *tokenizer.Tokenizer
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func newServiceModel(id string, target language.Entry, service TranslationService, tok *tokenizer.Tokenizer, breaker *gobreaker.CircuitBreaker, logger *zap.Logger) *serviceModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &serviceModel{
		id:      id,
		target:  target,
		service: service,
		tok:     tok,
		breaker: breaker,
		logger:  logger,
	}
}

func (m *serviceModel) ID() string {
	return m.id
}

func (m *serviceModel) Generate(ctx context.Context, enc *tokenizer.Encoding) ([]tokenizer.Sequence, error) {
	text := enc.Text()

	// Whitespace-only windows carry no translatable content.
	if strings.TrimSpace(text) == "" {
		return []tokenizer.Sequence{m.withEOS(m.tok.Segment(text))}, nil
	}

	req := TranslateRequest{
		ModelID:    m.id,
		Text:       text,
		SourceLang: sourceLang,
		TargetLang: m.target.Code,
	}

	out, err := m.breaker.Execute(func() (interface{}, error) {
		return m.service.Translate(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.service.Name(), err)
	}

	result := out.(*ServiceResult)
	m.logger.Debug("generated",
		zap.String("service", result.ServiceName),
		zap.String("model", m.id),
		zap.Int("candidates", len(result.Candidates)),
		zap.Duration("latency", result.Latency),
	)

	if len(result.Candidates) == 0 {
		return nil, fmt.Errorf("%s: no translation returned", m.service.Name())
	}

	seqs := make([]tokenizer.Sequence, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		seqs = append(seqs, m.withEOS(m.tok.Segment(c)))
	}
	return seqs, nil
}

func (m *serviceModel) withEOS(seq tokenizer.Sequence) tokenizer.Sequence {
	return append(seq, tokenizer.Token{ID: m.tok.Vocab().EOSID, Piece: tokenizer.EOSPiece})
}

// newBreaker guards one remote service. Three consecutive failures open the
// breaker for 30 seconds; cancellations do not count as failures.
func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}
