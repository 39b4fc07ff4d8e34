package internal

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a pipeline failure.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	UnsupportedLanguage
	ModelLoadFailure
	DocumentReadFailure
	TranslationFailure
	DocumentWriteFailure
)

func (k ErrorKind) String() string {
	switch k {
	case UnsupportedLanguage:
		return "unsupported_language"
	case ModelLoadFailure:
		return "model_load_failure"
	case DocumentReadFailure:
		return "document_read_failure"
	case TranslationFailure:
		return "translation_failure"
	case DocumentWriteFailure:
		return "document_write_failure"
	default:
		return "unknown"
	}
}

// Error is the error type returned by every pipeline stage. Its message keeps
// the "Error ..." wording users and agents match on; callers should use
// KindOf instead of inspecting the text.
type Error struct {
	Kind ErrorKind
	// Subject is the language name for language and model errors, the path
	// for document errors and empty otherwise.
	Subject string
	// Supported lists the accepted language names for UnsupportedLanguage.
	Supported []string
	Err       error
}

func (e *Error) Error() string {
	switch e.Kind {
	case UnsupportedLanguage:
		return fmt.Sprintf("Language '%s' not supported. Supported languages: %s", e.Subject, strings.Join(e.Supported, ", "))
	case ModelLoadFailure:
		return fmt.Sprintf("Error loading model for %s: %v", e.Subject, e.Err)
	case DocumentReadFailure:
		return fmt.Sprintf("Error loading document: %v", e.Err)
	case TranslationFailure:
		return fmt.Sprintf("Error during translation: %v", e.Err)
	case DocumentWriteFailure:
		return fmt.Sprintf("Error saving document: %v", e.Err)
	default:
		return fmt.Sprintf("Error: %v", e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with kind and subject.
func NewError(kind ErrorKind, subject string, err error) *Error {
	return &Error{Kind: kind, Subject: subject, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
