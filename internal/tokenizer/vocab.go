package tokenizer

import (
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf8"
)

// Special pieces used by Marian translation models.
const (
	EOSPiece = "</s>"
	UnkPiece = "<unk>"
	PadPiece = "<pad>"

	// WordBoundary prefixes the first piece of every word.
	WordBoundary = "▁"
)

// Vocab maps SentencePiece pieces to model ids.
type Vocab struct {
	ids           map[string]int64
	maxPieceRunes int

	EOSID int64
	UnkID int64
	PadID int64
}

// builtinVocab carries only the special pieces. A tokenizer built on it works
// at word level: every word becomes one <unk>-id token that keeps its text.
func builtinVocab() *Vocab {
	v, _ := NewVocab(map[string]int64{EOSPiece: 0, UnkPiece: 1, PadPiece: 2})
	return v
}

// NewVocab builds a vocabulary from a piece→id table. The table must contain
// the three special pieces.
func NewVocab(pieces map[string]int64) (*Vocab, error) {
	v := &Vocab{ids: make(map[string]int64, len(pieces))}

	for _, special := range []string{EOSPiece, UnkPiece, PadPiece} {
		if _, ok := pieces[special]; !ok {
			return nil, fmt.Errorf("vocabulary is missing special token %s", special)
		}
	}

	for piece, id := range pieces {
		v.ids[piece] = id
		if n := utf8.RuneCountInString(piece); n > v.maxPieceRunes {
			v.maxPieceRunes = n
		}
	}

	v.EOSID = pieces[EOSPiece]
	v.UnkID = pieces[UnkPiece]
	v.PadID = pieces[PadPiece]

	return v, nil
}

// LoadVocab reads a vocab.json file as published with Marian models on the
// Hugging Face hub.
func LoadVocab(r io.Reader) (*Vocab, error) {
	var pieces map[string]int64
	if err := json.NewDecoder(r).Decode(&pieces); err != nil {
		return nil, fmt.Errorf("failed to decode vocabulary: %w", err)
	}
	return NewVocab(pieces)
}

// Size returns the number of pieces.
func (v *Vocab) Size() int {
	return len(v.ids)
}

// ID returns the id of piece.
func (v *Vocab) ID(piece string) (int64, bool) {
	id, ok := v.ids[piece]
	return id, ok
}

// wordLevel reports whether the vocabulary has no regular pieces.
func (v *Vocab) wordLevel() bool {
	return len(v.ids) <= 3
}

func isSpecial(piece string) bool {
	return piece == EOSPiece || piece == UnkPiece || piece == PadPiece
}
