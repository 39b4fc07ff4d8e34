/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/doctran/internal/detector"
	"github.com/valpere/doctran/internal/logging"
	"github.com/valpere/doctran/internal/orchestrator"
	"github.com/valpere/doctran/internal/translator"
	"github.com/valpere/doctran/internal/validator"
)

// runTranslate is the procedural driver: switch language, read, translate
// and write, printing each step.
func runTranslate(cmd *cobra.Command, args []string) error {
	logger := logging.New(cfg.Verbose)
	defer logger.Sync()

	loader, err := buildLoader(logger)
	if err != nil {
		return err
	}
	defer loader.Close()

	tr := translator.New(logger)
	tr.OnChunk = chunkProgress

	rc := orchestrator.Config{
		Loader:     loader,
		Translator: tr,
		Out:        cmd.OutOrStdout(),
		Logger:     logger,
	}

	if !cfg.NoChecks {
		det := detector.ForRegistry()
		rc.Detector = det
		rc.Validator = validator.New(det)
	}

	db, err := openHistory()
	if err != nil {
		logger.Warn("run history unavailable", zap.Error(err))
	} else if db != nil {
		defer db.Close()
		rc.History = db
	}

	report, err := orchestrator.New(rc).Run(cmd.Context(), orchestrator.Job{
		InputPath: args[0],
		Language:  cfg.Language,
	})
	if err != nil {
		return reportedError{err}
	}

	logger.Debug("run finished",
		zap.String("id", report.Run.ID),
		zap.String("output", report.OutputPath),
		zap.Int("chunks", report.Run.Chunks),
		zap.Int("warnings", len(report.Warnings)),
	)
	return nil
}
