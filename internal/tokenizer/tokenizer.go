// Package tokenizer turns text windows into Marian-style token sequences and
// back. Segmentation is a greedy longest-match over the model's SentencePiece
// vocabulary; tokens outside the vocabulary carry the <unk> id but keep their
// surface text, so decoding never loses characters.
package tokenizer

import (
	"errors"
	"strings"
	"unicode"
)

// ErrTooLong is returned when truncation is disabled and the text does not
// fit in Options.MaxLength tokens.
var ErrTooLong = errors.New("input exceeds maximum token length")

// Token is a single vocabulary piece and its id.
type Token struct {
	ID    int64
	Piece string
}

// Sequence is an ordered list of tokens, as produced by a model.
type Sequence []Token

// Options control Encode.
type Options struct {
	// MaxLength caps the number of tokens including the trailing EOS.
	// Zero means unlimited.
	MaxLength int
	// Truncation drops tokens beyond MaxLength instead of failing.
	Truncation bool
	// Padding pads every encoding of a batch to the longest one.
	Padding bool
}

// Encoding is a tokenized input ready for generation.
type Encoding struct {
	Tokens        Sequence
	AttentionMask []int64
	// Truncated is set when tokens were dropped to honour MaxLength.
	Truncated bool
	// Dropped counts the tokens removed by truncation.
	Dropped int
}

// IDs returns the token ids, padding included.
func (e *Encoding) IDs() []int64 {
	ids := make([]int64, len(e.Tokens))
	for i, t := range e.Tokens {
		ids[i] = t.ID
	}
	return ids
}

// Len returns the number of non-padding tokens.
func (e *Encoding) Len() int {
	n := 0
	for _, m := range e.AttentionMask {
		n += int(m)
	}
	return n
}

// Text returns the text the encoding still covers after truncation.
func (e *Encoding) Text() string {
	seq := make(Sequence, 0, len(e.Tokens))
	for i, t := range e.Tokens {
		if e.AttentionMask[i] == 1 {
			seq = append(seq, t)
		}
	}
	return detokenize(seq, true)
}

// Tokenizer encodes and decodes text for one model.
type Tokenizer struct {
	vocab *Vocab
}

// New returns a tokenizer over vocab. A nil vocab yields a word-level
// tokenizer, used for models that take plain text.
func New(vocab *Vocab) *Tokenizer {
	if vocab == nil {
		vocab = builtinVocab()
	}
	return &Tokenizer{vocab: vocab}
}

// Vocab returns the vocabulary in use.
func (t *Tokenizer) Vocab() *Vocab {
	return t.vocab
}

// Encode tokenizes a single text and appends EOS.
func (t *Tokenizer) Encode(text string, opts Options) (*Encoding, error) {
	encs, err := t.EncodeBatch([]string{text}, opts)
	if err != nil {
		return nil, err
	}
	return encs[0], nil
}

// EncodeBatch tokenizes texts. With Options.Padding every encoding is padded
// to the longest one in the batch.
func (t *Tokenizer) EncodeBatch(texts []string, opts Options) ([]*Encoding, error) {
	encs := make([]*Encoding, len(texts))
	longest := 0

	for i, text := range texts {
		body := t.Segment(text)
		enc := &Encoding{}

		if opts.MaxLength > 0 && len(body)+1 > opts.MaxLength {
			if !opts.Truncation {
				return nil, ErrTooLong
			}
			keep := opts.MaxLength - 1
			enc.Truncated = true
			enc.Dropped = len(body) - keep
			body = body[:keep]
		}

		enc.Tokens = append(body, Token{ID: t.vocab.EOSID, Piece: EOSPiece})
		enc.AttentionMask = make([]int64, len(enc.Tokens))
		for j := range enc.AttentionMask {
			enc.AttentionMask[j] = 1
		}

		if len(enc.Tokens) > longest {
			longest = len(enc.Tokens)
		}
		encs[i] = enc
	}

	if opts.Padding {
		pad := Token{ID: t.vocab.PadID, Piece: PadPiece}
		for _, enc := range encs {
			for len(enc.Tokens) < longest {
				enc.Tokens = append(enc.Tokens, pad)
				enc.AttentionMask = append(enc.AttentionMask, 0)
			}
		}
	}

	return encs, nil
}

// Decode turns a sequence back into text. With skipSpecial, EOS, padding and
// <unk> pieces are dropped; out-of-vocabulary tokens keep their text.
func (t *Tokenizer) Decode(seq Sequence, skipSpecial bool) string {
	return detokenize(seq, skipSpecial)
}

// Segment splits text into vocabulary pieces without adding EOS. Whitespace
// separates words and is not kept, except newlines which become their own
// token.
func (t *Tokenizer) Segment(text string) Sequence {
	var out Sequence
	var word strings.Builder

	flush := func() {
		if word.Len() == 0 {
			return
		}
		out = append(out, t.pieces(WordBoundary+word.String())...)
		word.Reset()
	}

	for _, r := range text {
		switch {
		case r == '\n':
			flush()
			out = append(out, t.token("\n"))
		case unicode.IsSpace(r):
			flush()
		default:
			word.WriteRune(r)
		}
	}
	flush()

	return out
}

func (t *Tokenizer) token(piece string) Token {
	if id, ok := t.vocab.ID(piece); ok {
		return Token{ID: id, Piece: piece}
	}
	return Token{ID: t.vocab.UnkID, Piece: piece}
}

// pieces segments one word (already prefixed with WordBoundary) by greedy
// longest match.
func (t *Tokenizer) pieces(word string) Sequence {
	if t.vocab.wordLevel() {
		return Sequence{t.token(word)}
	}

	runes := []rune(word)
	var out Sequence

	for i := 0; i < len(runes); {
		end := i + t.vocab.maxPieceRunes
		if end > len(runes) {
			end = len(runes)
		}

		matched := false
		for j := end; j > i; j-- {
			piece := string(runes[i:j])
			if id, ok := t.vocab.ID(piece); ok && !isSpecial(piece) {
				out = append(out, Token{ID: id, Piece: piece})
				i = j
				matched = true
				break
			}
		}

		if !matched {
			out = append(out, Token{ID: t.vocab.UnkID, Piece: string(runes[i])})
			i++
		}
	}

	return out
}

func detokenize(seq Sequence, skipSpecial bool) string {
	var sb strings.Builder
	for _, tok := range seq {
		if skipSpecial && isSpecial(tok.Piece) {
			continue
		}
		sb.WriteString(tok.Piece)
	}

	s := strings.ReplaceAll(sb.String(), WordBoundary, " ")
	s = strings.ReplaceAll(s, "\n ", "\n")
	return strings.TrimPrefix(s, " ")
}
