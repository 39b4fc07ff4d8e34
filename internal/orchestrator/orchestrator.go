// Package orchestrator drives one procedural translation run: pick the
// target language, read the document, translate it and write the result,
// stopping at the first failing step.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/valpere/doctran/internal"
	"github.com/valpere/doctran/internal/chunker"
	"github.com/valpere/doctran/internal/document"
	"github.com/valpere/doctran/internal/language"
	"github.com/valpere/doctran/internal/logging"
	"github.com/valpere/doctran/internal/translator"
)

// minDetectLength is the rune count below which source detection is skipped.
const minDetectLength = 20

// SourceDetector reports the ISO 639-1 code of a text's language.
type SourceDetector interface {
	DetectISO(text string) (string, bool)
}

// OutputValidator checks that a translation is in the expected language.
type OutputValidator interface {
	IsValid(translatedText, targetLang string) (bool, error)
}

// History records finished runs.
type History interface {
	SaveRun(ctx context.Context, run internal.TranslationRun) (string, error)
}

type Config struct {
	Loader     *translator.Loader
	Translator *translator.Translator

	// Optional. Nil disables the corresponding check or record.
	Detector  SourceDetector
	Validator OutputValidator
	History   History

	// Out receives the progress lines. Nil discards them.
	Out    io.Writer
	Logger *zap.Logger
}

// Job names the document to translate and the target language.
type Job struct {
	InputPath string
	Language  string
}

// Report describes a completed run.
type Report struct {
	Run        internal.TranslationRun
	Session    translator.Session
	OutputPath string
	Warnings   []string
}

type Runner struct {
	cfg    Config
	out    io.Writer
	logger *zap.Logger
	now    func() time.Time
}

func New(cfg Config) *Runner {
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}
	return &Runner{
		cfg:    cfg,
		out:    out,
		logger: logging.OrNop(cfg.Logger),
		now:    time.Now,
	}
}

// Run executes job. Every failure is printed as its "Error ..." message and
// returned; nothing is written after a failed step. When history is
// configured the outcome is recorded either way.
func (r *Runner) Run(ctx context.Context, job Job) (*Report, error) {
	lang := strings.TrimSpace(job.Language)
	if lang == "" {
		lang = language.Default
	}

	report := &Report{
		Run: internal.TranslationRun{
			InputPath:  job.InputPath,
			TargetLang: strings.ToLower(lang),
			StartedAt:  r.now(),
		},
	}

	err := r.run(ctx, job.InputPath, lang, report)
	r.finish(ctx, report, err)
	if err != nil {
		fmt.Fprintln(r.out, err.Error())
		return report, err
	}
	return report, nil
}

func (r *Runner) run(ctx context.Context, inputPath, lang string, report *Report) error {
	session, err := r.selectLanguage(ctx, lang)
	if err != nil {
		return err
	}
	report.Session = session
	report.Run.TargetLang = session.Language.Code
	report.Run.ModelID = session.ModelID

	fmt.Fprintf(r.out, "Loading document: %s\n", inputPath)
	text, err := document.Load(inputPath)
	if err != nil {
		return err
	}
	report.Run.Chunks = chunker.Count(text, translator.ChunkSize)
	r.checkSource(text, report)

	fmt.Fprintf(r.out, "Translating document to %s...\n", lang)
	translated, err := r.cfg.Translator.Translate(ctx, text, session)
	if err != nil {
		return err
	}
	r.checkOutput(translated, session.Language.Code, report)

	newPath, err := document.Save(inputPath, session.Language.Code, translated)
	if err != nil {
		return err
	}
	report.OutputPath = newPath
	report.Run.OutputPath = newPath
	fmt.Fprintf(r.out, "Translated document saved as %s\n", newPath)

	return nil
}

// selectLanguage loads the default model, or switches to lang and prints
// the confirmation when lang differs from the default.
func (r *Runner) selectLanguage(ctx context.Context, lang string) (translator.Session, error) {
	if strings.EqualFold(lang, language.Default) {
		return r.cfg.Loader.Load(ctx, language.Default)
	}

	session, err := translator.Session{}.Switch(ctx, r.cfg.Loader, lang)
	if err != nil {
		return session, err
	}
	fmt.Fprintln(r.out, session.SuccessMessage())
	return session, nil
}

func (r *Runner) checkSource(text string, report *Report) {
	if r.cfg.Detector == nil || len([]rune(strings.TrimSpace(text))) < minDetectLength {
		return
	}
	code, ok := r.cfg.Detector.DetectISO(text)
	if !ok || code == "en" {
		return
	}
	r.warn(report, fmt.Sprintf("source document looks like %q, models translate from English", code))
}

func (r *Runner) checkOutput(text, code string, report *Report) {
	if r.cfg.Validator == nil {
		return
	}
	if ok, err := r.cfg.Validator.IsValid(text, code); !ok {
		r.warn(report, fmt.Sprintf("translation check failed: %v", err))
	}
}

func (r *Runner) warn(report *Report, msg string) {
	report.Warnings = append(report.Warnings, msg)
	r.logger.Warn(msg, zap.String("input", report.Run.InputPath))
}

func (r *Runner) finish(ctx context.Context, report *Report, runErr error) {
	report.Run.FinishedAt = r.now()
	report.Run.Status = internal.RunSucceeded
	if runErr != nil {
		report.Run.Status = internal.RunFailed
		report.Run.ErrorKind = internal.KindOf(runErr).String()
		report.Run.Error = runErr.Error()
	}

	if r.cfg.History == nil {
		return
	}
	// Recorded even when ctx was cancelled.
	id, err := r.cfg.History.SaveRun(context.WithoutCancel(ctx), report.Run)
	if err != nil {
		r.logger.Warn("failed to record run", zap.Error(err))
		return
	}
	report.Run.ID = id
}
