package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/valpere/doctran/internal/document"
	"github.com/valpere/doctran/internal/logging"
	"github.com/valpere/doctran/internal/translator"
)

// Parameter is one string argument of a tool.
type Parameter struct {
	Name        string
	Description string
}

// Tool is an operation the planner may call. Results and failures are both
// plain strings; failures carry the "Error ..." prefix.
type Tool struct {
	Name        string
	Description string
	Parameters  []Parameter

	call func(ctx context.Context, args map[string]string) (string, error)
}

// Toolbox exposes the document pipeline as tools and owns the current
// session. The session is replaced only when a language change succeeds.
type Toolbox struct {
	loader     *translator.Loader
	translator *translator.Translator
	session    translator.Session
	logger     *zap.Logger
	tools      []Tool
}

func NewToolbox(loader *translator.Loader, tr *translator.Translator, initial translator.Session, logger *zap.Logger) *Toolbox {
	tb := &Toolbox{
		loader:     loader,
		translator: tr,
		session:    initial,
		logger:     logging.OrNop(logger),
	}

	tb.tools = []Tool{
		{
			Name:        "LoadDocument",
			Description: "Load a Word document from a given file path.",
			Parameters:  []Parameter{{Name: "file_path", Description: "Path to the .docx file."}},
			call:        tb.loadDocument,
		},
		{
			Name:        "ChangeTargetLanguage",
			Description: "Change the target language for translation. Input should be the language name in English (e.g., 'german', 'french').",
			Parameters:  []Parameter{{Name: "language", Description: "Language name in English."}},
			call:        tb.changeTargetLanguage,
		},
		{
			Name:        "TranslateText",
			Description: "Translate the provided text to the current target language.",
			Parameters:  []Parameter{{Name: "text", Description: "Text to translate."}},
			call:        tb.translateText,
		},
		{
			Name:        "SaveTranslatedDocument",
			Description: "Save the translated text to a new Word document. Requires the original document path and the translated text.",
			Parameters: []Parameter{
				{Name: "original_path", Description: "Path of the document that was translated."},
				{Name: "translated_text", Description: "The translated text to save."},
			},
			call: tb.saveTranslatedDocument,
		},
	}

	return tb
}

// Tools returns the tool definitions.
func (tb *Toolbox) Tools() []Tool {
	return tb.tools
}

// Session returns the current session.
func (tb *Toolbox) Session() translator.Session {
	return tb.session
}

// Call runs the named tool. It never returns a Go error: unknown tools,
// missing arguments and pipeline failures all come back as "Error ..."
// strings for the planner to read.
func (tb *Toolbox) Call(ctx context.Context, name string, args map[string]any) string {
	var tool *Tool
	for i := range tb.tools {
		if tb.tools[i].Name == name {
			tool = &tb.tools[i]
			break
		}
	}
	if tool == nil {
		return fmt.Sprintf("Error: unknown tool %q. Available tools: %s", name, strings.Join(tb.toolNames(), ", "))
	}

	strArgs, err := stringArgs(tool, args)
	if err != nil {
		return "Error: " + err.Error()
	}

	tb.logger.Debug("tool call", zap.String("tool", name), zap.Int("args", len(strArgs)))

	out, err := tool.call(ctx, strArgs)
	if err != nil {
		tb.logger.Info("tool failed", zap.String("tool", name), zap.Error(err))
		return err.Error()
	}
	return out
}

func (tb *Toolbox) toolNames() []string {
	names := make([]string, len(tb.tools))
	for i, t := range tb.tools {
		names[i] = t.Name
	}
	return names
}

// stringArgs checks that every parameter is present and renders values as
// strings. A single-parameter tool also accepts one argument under any name.
func stringArgs(tool *Tool, args map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(tool.Parameters))

	if len(tool.Parameters) == 1 && len(args) == 1 {
		for _, v := range args {
			out[tool.Parameters[0].Name] = fmt.Sprint(v)
		}
		return out, nil
	}

	var missing []string
	for _, p := range tool.Parameters {
		v, ok := args[p.Name]
		if !ok {
			missing = append(missing, p.Name)
			continue
		}
		out[p.Name] = fmt.Sprint(v)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%s requires %s", tool.Name, strings.Join(missing, ", "))
	}
	return out, nil
}

func (tb *Toolbox) loadDocument(ctx context.Context, args map[string]string) (string, error) {
	return document.Load(strings.TrimSpace(args["file_path"]))
}

func (tb *Toolbox) changeTargetLanguage(ctx context.Context, args map[string]string) (string, error) {
	next, err := tb.session.Switch(ctx, tb.loader, strings.Trim(args["language"], " '\""))
	if err != nil {
		return "", err
	}
	tb.session = next
	return next.SuccessMessage(), nil
}

func (tb *Toolbox) translateText(ctx context.Context, args map[string]string) (string, error) {
	return tb.translator.Translate(ctx, args["text"], tb.session)
}

func (tb *Toolbox) saveTranslatedDocument(ctx context.Context, args map[string]string) (string, error) {
	newPath, err := document.Save(strings.TrimSpace(args["original_path"]), tb.session.Language.Code, args["translated_text"])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Translated document saved as %s", newPath), nil
}
