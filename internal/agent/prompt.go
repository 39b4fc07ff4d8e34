package agent

import (
	"strings"
	"text/template"
)

const taskTemplate = `
You are an AI assistant that helps with document translation.
You can:
1. Load Word documents
2. Change the target language
3. Translate text
4. Save translated documents

The user wants: {{.Instruction}}

Think step by step about how to accomplish this task.
`

const systemPrompt = `You translate Word documents by calling tools.
Use LoadDocument to read the document, ChangeTargetLanguage when the target is not German,
TranslateText on the loaded text and SaveTranslatedDocument with the original path.
A tool result starting with "Error" means the step failed.
When the task is done, or cannot be done, answer with a short final summary and no tool call.`

var taskPrompt = template.Must(template.New("task").Parse(taskTemplate))

// renderTask fills the task template with the user's instruction.
func renderTask(instruction string) (string, error) {
	var sb strings.Builder
	if err := taskPrompt.Execute(&sb, struct{ Instruction string }{instruction}); err != nil {
		return "", err
	}
	return sb.String(), nil
}
