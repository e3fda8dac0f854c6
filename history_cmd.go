package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/tableau-refresh-go/internal/history"
)

// flagHistoryLimit bounds how many runs the history command lists.
var flagHistoryLimit int

const defaultHistoryLimit = 20

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent refresh runs",
		Long:  "List recent refresh invocations recorded in the local run history.",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}

	cmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", defaultHistoryLimit, "maximum runs to list")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	logger := buildLogger()

	if resolvedCfg.HistoryDisabled {
		return fmt.Errorf("history is disabled in the config file")
	}

	hist, err := history.Open(resolvedCfg.HistoryPath, logger)
	if err != nil {
		return err
	}
	defer hist.Close()

	runs, err := hist.Recent(cmd.Context(), flagHistoryLimit)
	if err != nil {
		return err
	}

	if flagJSON {
		out, err := json.MarshalIndent(runs, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding output: %w", err)
		}

		fmt.Println(string(out))

		return nil
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")

		return nil
	}

	headers := []string{"STARTED", "KIND", "RESOURCE", "PROJECT", "STATE", "JOB"}
	rows := make([][]string, 0, len(runs))

	for _, run := range runs {
		rows = append(rows, []string{
			formatTime(run.StartedAt.Local()),
			run.Kind,
			run.Resource,
			run.Project,
			run.State,
			run.JobID,
		})
	}

	printTable(os.Stdout, headers, rows)

	return nil
}
