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
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/doctran/internal/agent"
	"github.com/valpere/doctran/internal/config"
	"github.com/valpere/doctran/internal/language"
	"github.com/valpere/doctran/internal/logging"
	"github.com/valpere/doctran/internal/translator"
)

var agentCmd = &cobra.Command{
	Use:   "agent <instruction>",
	Short: "Let a language model translate documents from a natural-language request",
	Long: `Hand a natural-language request to an LLM agent. The agent can load a
document, change the target language, translate text and save the result,
and decides the order of those steps itself.

Planners:
  - openai   OpenAI chat models with tool calling (default gpt-3.5-turbo)
  - gemini   Google Gemini with function calling`,
	Example: `  doctran agent "Please translate the document 'sample.docx' to German and save it as a new file."`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := logging.New(cfg.Verbose)
		defer logger.Sync()

		planner, err := buildPlanner(ctx, cfg.Planner)
		if err != nil {
			return err
		}

		loader, err := buildLoader(logger)
		if err != nil {
			return err
		}
		defer loader.Close()

		session, err := loader.Load(ctx, language.Default)
		if err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), err.Error())
			return reportedError{err}
		}

		tr := translator.New(logger)
		tr.OnChunk = chunkProgress

		a := agent.New(planner, agent.NewToolbox(loader, tr, session, logger), cfg.Planner.MaxSteps, logger)
		a.OnToolCall = func(call agent.ToolCall, result string) {
			logger.Debug("tool result",
				zap.String("tool", call.Name),
				zap.String("result", snippet(result, 80)),
			)
			fmt.Fprintf(cmd.ErrOrStderr(), "> %s\n", call.Name)
		}

		answer, err := a.Run(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), answer)
		return nil
	},
}

func buildPlanner(ctx context.Context, pc config.PlannerConfig) (agent.Planner, error) {
	switch pc.Provider {
	case "openai":
		if pc.APIKey == "" {
			return nil, fmt.Errorf("openai planner requires an API key (OPENAI_API_KEY or DOCTRAN_PLANNER_API_KEY)")
		}
		return agent.NewOpenAIPlanner(pc.APIKey, pc.BaseURL, pc.Model), nil
	case "gemini":
		if pc.APIKey == "" {
			return nil, fmt.Errorf("gemini planner requires an API key (GEMINI_API_KEY or DOCTRAN_PLANNER_API_KEY)")
		}
		return agent.NewGeminiPlanner(ctx, pc.APIKey, pc.BaseURL, pc.Model)
	default:
		return nil, fmt.Errorf("unknown planner %q", pc.Provider)
	}
}

func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	rootCmd.AddCommand(agentCmd)

	agentCmd.Flags().String("planner", "", "Planner: openai or gemini")
	agentCmd.Flags().String("planner-model", "", "Planner model (default depends on planner)")
	agentCmd.Flags().Int("max-steps", 0, "Maximum planner steps")

	v.BindPFlag("planner.provider", agentCmd.Flags().Lookup("planner"))
	v.BindPFlag("planner.model", agentCmd.Flags().Lookup("planner-model"))
	v.BindPFlag("planner.max_steps", agentCmd.Flags().Lookup("max-steps"))
}
