// Package validator checks that a translated document reads as the target
// language.
package validator

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/valpere/doctran/internal/detector"
)

const (
	// Paragraphs shorter than this are not sampled.
	minValidationLength = 20
	maxSamples          = 9
)

var ErrEmpty = errors.New("translation is empty")

// Mismatch is returned when most sampled paragraphs read as another
// language.
type Mismatch struct {
	Expected string
	Detected string
	Votes    map[string]int
}

func (m *Mismatch) Error() string {
	return fmt.Sprintf("expected %s but detected %s", m.Expected, m.Detected)
}

// Validator samples paragraphs of a translation and lets the detector vote
// on their language. The detector is expensive to build; reuse the instance.
type Validator struct {
	det *detector.Detector
}

// New creates a Validator backed by det. A nil det builds a detector over
// all languages.
func New(det *detector.Detector) *Validator {
	if det == nil {
		det = detector.New()
	}
	return &Validator{det: det}
}

// IsValid reports whether translatedText appears to be written in
// targetLang. Texts too short to judge and texts whose language cannot be
// determined pass. A failed check returns a *Mismatch.
func (v *Validator) IsValid(translatedText, targetLang string) (bool, error) {
	if targetLang == "" {
		return true, nil
	}
	if strings.TrimSpace(translatedText) == "" {
		return false, ErrEmpty
	}

	want := strings.ToLower(targetLang)
	votes := make(map[string]int)
	for _, s := range samples(translatedText) {
		if code, ok := v.det.DetectISO(s); ok {
			votes[code]++
		}
	}
	if len(votes) == 0 {
		return true, nil
	}

	top := leader(votes)
	if votes[want] >= votes[top] {
		return true, nil
	}
	return false, &Mismatch{Expected: want, Detected: top, Votes: votes}
}

// samples picks up to maxSamples long-enough paragraphs spread across the
// text. A text with no long paragraph is judged as a whole.
func samples(text string) []string {
	var long []string
	for _, p := range strings.Split(text, "\n") {
		p = strings.TrimSpace(p)
		if utf8.RuneCountInString(p) >= minValidationLength {
			long = append(long, p)
		}
	}

	if len(long) == 0 {
		whole := strings.TrimSpace(text)
		if utf8.RuneCountInString(whole) < minValidationLength {
			return nil
		}
		return []string{whole}
	}
	if len(long) <= maxSamples {
		return long
	}

	picked := make([]string, 0, maxSamples)
	for i := 0; i < maxSamples; i++ {
		picked = append(picked, long[i*len(long)/maxSamples])
	}
	return picked
}

// leader returns the most voted code, breaking ties alphabetically.
func leader(votes map[string]int) string {
	var top string
	for code, n := range votes {
		if top == "" || n > votes[top] || (n == votes[top] && code < top) {
			top = code
		}
	}
	return top
}
