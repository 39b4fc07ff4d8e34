// Package postprocess turns raw LLM replies into clean chunk translations.
//
// LLM-backed backends (Ollama, OpenAI) wrap the translated chunk in
// reasoning blocks, preambles, code fences or quotes. Clean strips those and
// returns the trimmed translation.
package postprocess

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// rule rewrites an LLM reply. source is the untranslated chunk.
type rule func(reply, source string) string

var rules = []rule{
	normalizeNewlines,
	dropReasoning,
	unfence,
	unmark,
	dropPreamble,
	unquote,
}

// Clean applies every rule to reply. source is consulted only to avoid
// stripping quotes or labels that were already in the original text.
func Clean(reply, source string) string {
	for _, r := range rules {
		reply = r(reply, source)
	}
	return strings.TrimSpace(reply)
}

func normalizeNewlines(reply, _ string) string {
	return strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(reply)
}

// RE2 has no backreferences, so each tag pair is spelled out.
var (
	reasoningRe = regexp.MustCompile(
		`(?is)<think>.*?</think>|<thinking>.*?</thinking>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
	)
	// An opened block whose closing tag never came.
	openReasoningRe = regexp.MustCompile(`(?is)(?:<think>|<thinking>|<reasoning>|<reflection>).*$`)
)

func dropReasoning(reply, _ string) string {
	reply = reasoningRe.ReplaceAllString(reply, "")
	return openReasoningRe.ReplaceAllString(reply, "")
}

var fenceRe = regexp.MustCompile("(?s)^\\s*```[a-zA-Z]*\\n(.*?)\\n?```\\s*$")

// unfence unwraps a reply that is a single markdown code block.
func unfence(reply, _ string) string {
	if m := fenceRe.FindStringSubmatch(reply); m != nil {
		return m[1]
	}
	return reply
}

var markerRe = regexp.MustCompile(`(?s)^\s*<<<\s*\n(.*?)\n?\s*>>>\s*$`)

// unmark removes the <<< >>> delimiters a model copied from the prompt.
func unmark(reply, _ string) string {
	if m := markerRe.FindStringSubmatch(reply); m != nil {
		return m[1]
	}
	return reply
}

// Preambles must start the reply and end in a colon.
var preambleRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course|okay)[,.!]?\s+`),
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the| your)? (?:refined |polished |translated |[a-z]+ )?(?:translation|text)(?: in [a-z]+)?\s*:`),
	regexp.MustCompile(`(?i)^(?:the )?(?:[a-z]+ )?(?:translation|translated text)(?: \([a-z]+\))?\s*:`),
}

func dropPreamble(reply, source string) string {
	reply = strings.TrimLeftFunc(reply, unicode.IsSpace)
	rest := reply
	for _, re := range preambleRes {
		if loc := re.FindStringIndex(rest); loc != nil {
			rest = strings.TrimLeftFunc(rest[loc[1]:], unicode.IsSpace)
		}
	}
	// A bare courtesy word with no label after it is content.
	if rest != reply && !strings.Contains(reply[:len(reply)-len(rest)], ":") {
		return reply
	}
	// Leave the reply alone when the source itself opens with the label.
	if rest != reply && strings.HasPrefix(strings.TrimSpace(source), strings.TrimSpace(reply[:len(reply)-len(rest)])) {
		return reply
	}
	return rest
}

var quotePairs = map[rune]rune{
	'"':      '"',
	'\'':     '\'',
	'\u00AB': '\u00BB', // « »
	'\u201C': '\u201D', // “ ”
	'\u2018': '\u2019', // ‘ ’
	'\u201E': '\u201C', // „ “
}

// unquote strips one pair of outer quotes unless the source was quoted too.
func unquote(reply, source string) string {
	reply = strings.TrimSpace(reply)
	if !quoted(reply) || quoted(strings.TrimSpace(source)) {
		return reply
	}
	_, head := utf8.DecodeRuneInString(reply)
	_, tail := utf8.DecodeLastRuneInString(reply)
	return reply[head : len(reply)-tail]
}

func quoted(s string) bool {
	if utf8.RuneCountInString(s) < 2 {
		return false
	}
	first, _ := utf8.DecodeRuneInString(s)
	last, _ := utf8.DecodeLastRuneInString(s)
	closing, ok := quotePairs[first]
	return ok && last == closing
}
