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
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/doctran/internal"
	"github.com/valpere/doctran/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the run history",
	Long:  `List, inspect, and clear the SQLite history of translation runs.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg.History.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.ListRuns(cmd.Context(), historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}

		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTARTED\tLANG\tCHUNKS\tSTATUS\tDURATION\tINPUT\tRESULT")
		for _, r := range runs {
			result := r.OutputPath
			if r.Status != internal.RunSucceeded {
				result = snippet(r.Error, 50)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
				r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.TargetLang, r.Chunks,
				r.Status, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond), r.InputPath, result)
		}
		return w.Flush()
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show run history statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg.History.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Total runs:    %d\n", stats.TotalRuns)
		fmt.Fprintf(out, "Succeeded:     %d\n", stats.Succeeded)
		fmt.Fprintf(out, "Failed:        %d\n", stats.Failed)
		fmt.Fprintf(out, "Total chunks:  %d\n", stats.TotalChunks)

		langs := make([]string, 0, len(stats.ByLanguage))
		for l := range stats.ByLanguage {
			langs = append(langs, l)
		}
		sort.Strings(langs)
		for _, l := range langs {
			fmt.Fprintf(out, "  %-12s %d\n", l, stats.ByLanguage[l])
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one run in detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg.History.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		run, err := db.GetRun(cmd.Context(), args[0])
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("run not found: %s", args[0])
			}
			return fmt.Errorf("failed to get run: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ID:        %s\n", run.ID)
		fmt.Fprintf(out, "Status:    %s\n", run.Status)
		fmt.Fprintf(out, "Language:  %s\n", run.TargetLang)
		fmt.Fprintf(out, "Model:     %s\n", run.ModelID)
		fmt.Fprintf(out, "Input:     %s\n", run.InputPath)
		if run.OutputPath != "" {
			fmt.Fprintf(out, "Output:    %s\n", run.OutputPath)
		}
		fmt.Fprintf(out, "Chunks:    %d\n", run.Chunks)
		fmt.Fprintf(out, "Started:   %s\n", run.StartedAt.Local().Format(time.DateTime))
		fmt.Fprintf(out, "Duration:  %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
		if run.Error != "" {
			fmt.Fprintf(out, "Error:     [%s] %s\n", run.ErrorKind, run.Error)
		}
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a run by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg.History.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteRun(cmd.Context(), args[0]); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("run not found: %s", args[0])
			}
			return fmt.Errorf("failed to delete run: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted run: %s\n", args[0])
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all runs from the history",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cfg.History.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ClearRuns(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d runs from history.\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyClearCmd)
}
