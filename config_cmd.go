package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/tableau-refresh-go/internal/config"
)

// configShowOutput is the JSON shape of `config show`.
type configShowOutput struct {
	LogLevel     string                     `json:"log_level"`
	Connection   string                     `json:"connection,omitempty"`
	PollInterval string                     `json:"poll_interval"`
	Timeout      string                     `json:"timeout"`
	PollRetries  int                        `json:"poll_retries"`
	HistoryPath  string                     `json:"history_path"`
	Connections  []config.ConnectionSummary `json:"connections"`
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration (secrets redacted)",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	})

	return cmd
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	out := configShowOutput{
		LogLevel:     resolvedCfg.LogLevel,
		Connection:   resolvedCfg.Connection,
		PollInterval: resolvedCfg.PollInterval.String(),
		Timeout:      resolvedCfg.Timeout.String(),
		PollRetries:  resolvedCfg.PollRetries,
		HistoryPath:  resolvedCfg.HistoryPath,
		Connections:  resolvedCfg.ConnectionSummaries(),
	}

	// A raw descriptor URI in --conn or the environment embeds the token
	// secret. Never echo it.
	if out.Connection != "" && containsScheme(out.Connection) {
		out.Connection = "(descriptor URI, redacted)"
	}

	if flagJSON {
		encoded, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding output: %w", err)
		}

		fmt.Println(string(encoded))

		return nil
	}

	fmt.Printf("log level:     %s\n", out.LogLevel)
	fmt.Printf("connection:    %s\n", orUnset(out.Connection))
	fmt.Printf("poll interval: %s\n", out.PollInterval)
	fmt.Printf("timeout:       %s\n", out.Timeout)
	fmt.Printf("poll retries:  %d\n", out.PollRetries)
	fmt.Printf("history:       %s\n", out.HistoryPath)

	if len(out.Connections) == 0 {
		fmt.Println("\nNo connections configured.")

		return nil
	}

	fmt.Println()

	headers := []string{"NAME", "SERVER", "SITE", "TOKEN", "SECRET"}
	rows := make([][]string, 0, len(out.Connections))

	for _, conn := range out.Connections {
		rows = append(rows, []string{conn.Name, conn.ServerURL, conn.Site, conn.TokenName, conn.Secret})
	}

	printTable(os.Stdout, headers, rows)

	return nil
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}

	return s
}
