package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valpere/doctran/internal"
	"github.com/valpere/doctran/internal/document"
	"github.com/valpere/doctran/internal/language"
	"github.com/valpere/doctran/internal/tokenizer"
	"github.com/valpere/doctran/internal/translator"
)

// upperModel "translates" by upper-casing the window text.
type upperModel struct {
	tok *tokenizer.Tokenizer
	err error
}

func (m *upperModel) ID() string { return "upper" }

func (m *upperModel) Generate(ctx context.Context, enc *tokenizer.Encoding) ([]tokenizer.Sequence, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []tokenizer.Sequence{m.tok.Segment(strings.ToUpper(enc.Text()))}, nil
}

type mockBackend struct {
	modelErr   error
	acquireErr error
	acquired   []string
}

func (b *mockBackend) Name() string                 { return "mock" }
func (b *mockBackend) DefaultModelTemplate() string { return "Helsinki-NLP/opus-mt-en-%s" }

func (b *mockBackend) Acquire(ctx context.Context, modelID string, target language.Entry) (translator.Model, *tokenizer.Tokenizer, error) {
	b.acquired = append(b.acquired, modelID)
	if b.acquireErr != nil {
		return nil, nil, b.acquireErr
	}
	tok := tokenizer.New(nil)
	return &upperModel{tok: tok, err: b.modelErr}, tok, nil
}

type mockHistory struct {
	runs []internal.TranslationRun
}

func (h *mockHistory) SaveRun(ctx context.Context, run internal.TranslationRun) (string, error) {
	h.runs = append(h.runs, run)
	return "run-1", nil
}

type fixedDetector string

func (d fixedDetector) DetectISO(text string) (string, bool) { return string(d), d != "" }

type rejectingValidator struct{}

func (rejectingValidator) IsValid(text, lang string) (bool, error) {
	return false, errors.New("expected " + lang + " but detected en")
}

func writeInput(t *testing.T, paragraphs ...string) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "report.docx")
	var buf bytes.Buffer
	if err := document.WriteParagraphs(&buf, paragraphs); err != nil {
		t.Fatalf("failed to build input: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}
	return dir, path
}

func newRunner(b *mockBackend, out *bytes.Buffer, h History) *Runner {
	return New(Config{
		Loader:     translator.NewLoader(b, "", nil),
		Translator: translator.New(nil),
		History:    h,
		Out:        out,
	})
}

func TestRunner_DefaultLanguage(t *testing.T) {
	dir, input := writeInput(t, "hello", "world")
	var out bytes.Buffer
	b := &mockBackend{}

	report, err := newRunner(b, &out, nil).Run(context.Background(), Job{InputPath: input, Language: "German"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := filepath.Join(dir, "report_de.docx")
	if report.OutputPath != want {
		t.Errorf("expected %s, got %s", want, report.OutputPath)
	}
	text, err := document.Load(want)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if text != "HELLO\nWORLD" {
		t.Errorf("unexpected output text %q", text)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	expected := []string{
		"Loading document: " + input,
		"Translating document to German...",
		"Translated document saved as " + want,
	}
	if len(lines) != len(expected) {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
	for i := range expected {
		if lines[i] != expected[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], expected[i])
		}
	}
	if len(b.acquired) != 1 || b.acquired[0] != "Helsinki-NLP/opus-mt-en-de" {
		t.Errorf("unexpected models acquired: %v", b.acquired)
	}
}

func TestRunner_SwitchLanguage(t *testing.T) {
	dir, input := writeInput(t, "bonjour")
	var out bytes.Buffer

	report, err := newRunner(&mockBackend{}, &out, nil).Run(context.Background(), Job{InputPath: input, Language: "french"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(out.String(), "Successfully switched target language to french (fr)\n") {
		t.Errorf("expected switch confirmation first, got:\n%s", out.String())
	}
	if report.OutputPath != filepath.Join(dir, "report_fr.docx") {
		t.Errorf("unexpected output path %s", report.OutputPath)
	}
	if report.Session.Language.Code != "fr" {
		t.Errorf("expected fr session, got %s", report.Session.Language.Code)
	}
}

func TestRunner_UnsupportedLanguageStopsRun(t *testing.T) {
	dir, input := writeInput(t, "text")
	var out bytes.Buffer
	h := &mockHistory{}
	b := &mockBackend{}

	_, err := newRunner(b, &out, h).Run(context.Background(), Job{InputPath: input, Language: "klingon"})
	if internal.KindOf(err) != internal.UnsupportedLanguage {
		t.Fatalf("expected UnsupportedLanguage, got %v", err)
	}
	if strings.Contains(out.String(), "Loading document") {
		t.Error("document must not be read after a failed switch")
	}
	if !strings.HasPrefix(out.String(), "Language 'klingon' not supported.") {
		t.Errorf("expected error message to be printed, got %q", out.String())
	}
	if len(b.acquired) != 0 {
		t.Errorf("no model should be loaded, got %v", b.acquired)
	}
	assertOnlyInput(t, dir)

	if len(h.runs) != 1 || h.runs[0].Status != internal.RunFailed || h.runs[0].ErrorKind != "unsupported_language" {
		t.Errorf("unexpected history: %+v", h.runs)
	}
}

func TestRunner_ModelLoadFailure(t *testing.T) {
	dir, input := writeInput(t, "text")
	var out bytes.Buffer

	_, err := newRunner(&mockBackend{acquireErr: errors.New("404 Not Found")}, &out, nil).
		Run(context.Background(), Job{InputPath: input, Language: "spanish"})
	if internal.KindOf(err) != internal.ModelLoadFailure {
		t.Fatalf("expected ModelLoadFailure, got %v", err)
	}
	if !strings.Contains(out.String(), "Error loading model for spanish: 404 Not Found") {
		t.Errorf("unexpected output %q", out.String())
	}
	assertOnlyInput(t, dir)
}

func TestRunner_TranslationFailureWritesNothing(t *testing.T) {
	dir, input := writeInput(t, "one", "two")
	var out bytes.Buffer
	h := &mockHistory{}

	report, err := newRunner(&mockBackend{modelErr: errors.New("tensor shape mismatch")}, &out, h).
		Run(context.Background(), Job{InputPath: input})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(err.Error(), "Error during translation:") {
		t.Errorf("unexpected message %q", err.Error())
	}
	if report.OutputPath != "" {
		t.Errorf("expected no output path, got %s", report.OutputPath)
	}
	assertOnlyInput(t, dir)

	if len(h.runs) != 1 {
		t.Fatalf("expected one recorded run, got %d", len(h.runs))
	}
	run := h.runs[0]
	if run.ErrorKind != "translation_failure" || run.Chunks != 1 || run.ModelID != "Helsinki-NLP/opus-mt-en-de" {
		t.Errorf("unexpected run record: %+v", run)
	}
}

func TestRunner_MissingDocument(t *testing.T) {
	var out bytes.Buffer

	_, err := newRunner(&mockBackend{}, &out, nil).
		Run(context.Background(), Job{InputPath: filepath.Join(t.TempDir(), "missing.docx")})
	if internal.KindOf(err) != internal.DocumentReadFailure {
		t.Fatalf("expected DocumentReadFailure, got %v", err)
	}
	if strings.Contains(out.String(), "Translating") {
		t.Error("translation must not start when the document cannot be read")
	}
}

func TestRunner_RecordsSuccess(t *testing.T) {
	_, input := writeInput(t, "alpha")
	h := &mockHistory{}

	report, err := newRunner(&mockBackend{}, &bytes.Buffer{}, h).Run(context.Background(), Job{InputPath: input, Language: "dutch"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.runs) != 1 {
		t.Fatalf("expected one recorded run, got %d", len(h.runs))
	}
	run := h.runs[0]
	if run.Status != internal.RunSucceeded || run.TargetLang != "nl" || run.OutputPath != report.OutputPath {
		t.Errorf("unexpected run record: %+v", run)
	}
	if run.FinishedAt.Before(run.StartedAt) {
		t.Error("finished_at before started_at")
	}
	if report.Run.ID != "run-1" {
		t.Errorf("expected recorded ID, got %q", report.Run.ID)
	}
}

func TestRunner_LanguageWarnings(t *testing.T) {
	_, input := writeInput(t, "Dies ist ein deutscher Text, kein englischer.")

	r := New(Config{
		Loader:     translator.NewLoader(&mockBackend{}, "", nil),
		Translator: translator.New(nil),
		Detector:   fixedDetector("de"),
		Validator:  rejectingValidator{},
	})

	report, err := r.Run(context.Background(), Job{InputPath: input, Language: "polish"})
	if err != nil {
		t.Fatalf("checks must not fail the run: %v", err)
	}
	if len(report.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", report.Warnings)
	}
	if !strings.Contains(report.Warnings[0], `"de"`) || !strings.Contains(report.Warnings[1], "expected pl") {
		t.Errorf("unexpected warnings: %v", report.Warnings)
	}
}

func TestRunner_EnglishSourceNoWarning(t *testing.T) {
	_, input := writeInput(t, "This is an English sentence that is long enough.")

	r := New(Config{
		Loader:     translator.NewLoader(&mockBackend{}, "", nil),
		Translator: translator.New(nil),
		Detector:   fixedDetector("en"),
	})

	report, err := r.Run(context.Background(), Job{InputPath: input})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", report.Warnings)
	}
}

func assertOnlyInput(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "report.docx" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only the input file, found %v", names)
	}
}
