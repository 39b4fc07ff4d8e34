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
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/valpere/doctran/internal/store"
	"github.com/valpere/doctran/internal/translator"
)

// buildLoader constructs the configured backend and a model loader over it.
func buildLoader(logger *zap.Logger) (*translator.Loader, error) {
	backend, err := translator.NewBackend(cfg.Backend, logger)
	if err != nil {
		return nil, err
	}
	return translator.NewLoader(backend, cfg.Backend.ModelTemplate, logger), nil
}

// openHistory opens the run history database, creating its directory. It
// returns nil when history is disabled.
func openHistory() (*store.Store, error) {
	if cfg.History.Disabled || cfg.History.DBPath == "" {
		return nil, nil
	}
	return openStore(cfg.History.DBPath)
}

func openStore(path string) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// chunkProgress prints a one-line chunk counter to stderr.
func chunkProgress(done, total int) {
	if total < 2 {
		return
	}
	fmt.Fprintf(os.Stderr, "\r  chunk %d/%d", done, total)
	if done == total {
		fmt.Fprintln(os.Stderr)
	}
}
