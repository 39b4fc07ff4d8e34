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
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/valpere/doctran/internal/config"
	"github.com/valpere/doctran/internal/language"
)

var version = "0.1.0"

var (
	cfgFile string
	v       = config.NewViper()
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "doctran <file_path>",
	Short: "Translate Word documents with neural translation models",
	Long: `Translate a Word (.docx) document from English into another language
using Helsinki-NLP MarianMT models (or another configured backend).

The text is translated in 2000-character chunks and saved next to the input
as <name>_<code>.docx.

Supported languages: german, french, spanish, italian, dutch, polish,
portuguese, russian.

Use "doctran agent" to let a language model drive the same steps.`,
	Example: `  doctran report.docx
  doctran report.docx -l french
  doctran report.docx --provider ollama --model-template llama3.2`,
	Version:       version,
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
	RunE: runTranslate,
}

// reportedError marks an error whose message was already printed.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var reported reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.doctran.toml or ./.doctran.toml)")
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.String("provider", "", "Model backend: huggingface, ollama, openai, google")
	pf.String("model-template", "", "Model id, with %s for the language code (default depends on provider)")
	pf.String("base-url", "", "Backend base URL")
	pf.String("api-key", "", "Backend API key")
	pf.String("db", "", "Run history database path")
	pf.Bool("no-history", false, "Do not record this run in the history database")

	rootCmd.Flags().StringP("language", "l", language.Default, "Target language for translation (e.g., german, french, spanish)")
	rootCmd.Flags().Bool("no-checks", false, "Skip source and output language detection")

	v.BindPFlag("verbose", pf.Lookup("verbose"))
	v.BindPFlag("backend.provider", pf.Lookup("provider"))
	v.BindPFlag("backend.model_template", pf.Lookup("model-template"))
	v.BindPFlag("backend.base_url", pf.Lookup("base-url"))
	v.BindPFlag("backend.api_key", pf.Lookup("api-key"))
	v.BindPFlag("history.db", pf.Lookup("db"))
	v.BindPFlag("history.disabled", pf.Lookup("no-history"))
	v.BindPFlag("language", rootCmd.Flags().Lookup("language"))
	v.BindPFlag("no_checks", rootCmd.Flags().Lookup("no-checks"))
}
