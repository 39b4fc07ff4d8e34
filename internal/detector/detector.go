// Package detector identifies the natural language of a text with lingua-go.
package detector

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"

	"github.com/valpere/doctran/internal/language"
)

type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector over all languages lingua knows.
func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromAllLanguages().
		Build()

	return &Detector{detector: detector}
}

// ForRegistry builds a smaller, faster detector limited to English and the
// supported target languages.
func ForRegistry() *Detector {
	wanted := map[string]bool{"en": true}
	for _, e := range language.Entries() {
		wanted[e.Code] = true
	}

	var langs []lingua.Language
	for _, l := range lingua.AllLanguages() {
		if wanted[strings.ToLower(l.IsoCode639_1().String())] {
			langs = append(langs, l)
		}
	}

	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(langs...).
		Build()

	return &Detector{detector: detector}
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if text == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the lower-case ISO 639-1 code of text's language, the
// same form the language registry uses.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}
