package internal

import "time"

// RunStatus values recorded for a translation run.
const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

type TranslationRun struct {
	ID         string    `json:"id"`
	InputPath  string    `json:"input_path"`
	OutputPath string    `json:"output_path"`
	TargetLang string    `json:"target_lang"`
	ModelID    string    `json:"model_id"`
	Chunks     int       `json:"chunks"`
	Status     string    `json:"status"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
