// Package language holds the fixed table of target languages a document can
// be translated into, keyed by their English name.
package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Default is the language used when none is requested.
const Default = "german"

// Entry maps an English language name to its two-letter code.
type Entry struct {
	Name string
	Code string
}

// Order is significant: it is the order used when listing supported names.
var registry = []Entry{
	{Name: "german", Code: "de"},
	{Name: "french", Code: "fr"},
	{Name: "spanish", Code: "es"},
	{Name: "italian", Code: "it"},
	{Name: "dutch", Code: "nl"},
	{Name: "polish", Code: "pl"},
	{Name: "portuguese", Code: "pt"},
	{Name: "russian", Code: "ru"},
}

// Lookup finds an entry by name, ignoring case and surrounding whitespace.
func Lookup(name string) (Entry, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, e := range registry {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// ByCode finds an entry by its two-letter code.
func ByCode(code string) (Entry, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, e := range registry {
		if e.Code == code {
			return e, true
		}
	}
	return Entry{}, false
}

// Entries returns a copy of the registry.
func Entries() []Entry {
	out := make([]Entry, len(registry))
	copy(out, registry)
	return out
}

// Names returns the supported language names in registry order.
func Names() []string {
	names := make([]string, len(registry))
	for i, e := range registry {
		names[i] = e.Name
	}
	return names
}

// Tag returns the BCP 47 tag for the entry.
func (e Entry) Tag() language.Tag {
	return language.Make(e.Code)
}

// Native returns the language's name written in that language, e.g. "Deutsch".
func (e Entry) Native() string {
	return display.Self.Name(e.Tag())
}

// Title returns the English display name, e.g. "German".
func (e Entry) Title() string {
	return display.English.Languages().Name(e.Tag())
}
