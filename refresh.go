package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/tableau-refresh-go/internal/history"
	"github.com/tonimelisma/tableau-refresh-go/internal/refresher"
	"github.com/tonimelisma/tableau-refresh-go/internal/tableau"
)

// Refresh command flags.
var (
	flagKind         string
	flagProject      string
	flagNoWait       bool
	flagPollInterval time.Duration
	flagTimeout      time.Duration
	flagPollRetries  int
)

// refreshReport is the per-resource outcome printed after all refreshes
// complete. Also the JSON output shape.
type refreshReport struct {
	Kind       string `json:"kind"`
	Resource   string `json:"resource"`
	Project    string `json:"project"`
	ResourceID string `json:"resource_id,omitempty"`
	JobID      string `json:"job_id,omitempty"`
	State      string `json:"state"`
	Reason     string `json:"reason,omitempty"`
	Polls      int    `json:"polls,omitempty"`
	Elapsed    string `json:"elapsed,omitempty"`
}

func newRefreshCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refresh RESOURCE [RESOURCE...]",
		Short: "Trigger an extract refresh and wait for it",
		Long: `Trigger a server-side extract refresh for each named workbook or
datasource in a project, and wait for the refresh jobs to finish.

Each resource runs as an independent invocation with its own API session.
With --no-wait the command returns as soon as the jobs are accepted; use
'tabrefresh job' to check on them later.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRefresh,
	}

	cmd.Flags().StringVar(&flagKind, "kind", "workbook", "resource kind: workbook or datasource")
	cmd.Flags().StringVar(&flagProject, "project", "", "project containing the resource (required)")
	cmd.Flags().BoolVar(&flagNoWait, "no-wait", false, "return after the trigger is accepted, without waiting")
	cmd.Flags().DurationVar(&flagPollInterval, "poll-interval", 0, "delay between job status polls (default from config)")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "maximum time to wait for a job (default from config)")
	cmd.Flags().IntVar(&flagPollRetries, "poll-retries", -1, "transient poll failures tolerated (default from config)")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func runRefresh(cmd *cobra.Command, args []string) error {
	logger := buildLogger()

	kind, err := tableau.ParseResourceKind(flagKind)
	if err != nil {
		return err
	}

	desc, err := resolvedCfg.Descriptor(resolvedCfg.Connection)
	if err != nil {
		return err
	}

	wait := tableau.WaitOptions{
		PollInterval: resolvedCfg.PollInterval,
		Timeout:      resolvedCfg.Timeout,
		PollRetries:  resolvedCfg.PollRetries,
	}

	if cmd.Flags().Changed("poll-interval") {
		wait.PollInterval = flagPollInterval
	}

	if cmd.Flags().Changed("timeout") {
		wait.Timeout = flagTimeout
	}

	if cmd.Flags().Changed("poll-retries") {
		wait.PollRetries = flagPollRetries
	}

	hist := openHistory(logger)
	if hist != nil {
		defer hist.Close()
	}

	creds := tableau.Credentials{
		Site:        desc.Site,
		TokenName:   desc.TokenName,
		TokenSecret: desc.TokenSecret,
	}

	// The history "connection" column must never carry a raw descriptor
	// with its embedded secret — fall back to the server URL.
	connLabel := resolvedCfg.Connection
	if strings.Contains(connLabel, "://") {
		connLabel = desc.ServerURL
	}

	ctx := cmd.Context()
	reports := make([]refreshReport, len(args))
	errs := make([]error, len(args))

	// Each resource is an independent invocation with its own session.
	// A plain errgroup (no shared context cancellation) keeps one failed
	// refresh from aborting its siblings.
	var g errgroup.Group

	for i, name := range args {
		g.Go(func() error {
			client := tableau.NewClient(desc.ServerURL, defaultHTTPClient(), logger)

			req := refresher.Request{
				Kind:     kind,
				Resource: name,
				Project:  flagProject,
				Blocking: !flagNoWait,
				Wait:     wait,
			}

			result, runErr := refresher.Run(ctx, client, creds, req, logger)

			reports[i] = buildReport(kind, name, flagProject, result, runErr)
			errs[i] = reportError(kind, name, reports[i])

			recordRun(ctx, hist, connLabel, reports[i], logger)

			return errs[i]
		})
	}

	waitErr := g.Wait()

	if err := printReports(reports); err != nil {
		return err
	}

	return waitErr
}

// buildReport flattens a runner result (or its error) into a report row.
func buildReport(kind tableau.ResourceKind, name, project string, result *refresher.Result, runErr error) refreshReport {
	report := refreshReport{
		Kind:     kind.String(),
		Resource: name,
		Project:  project,
	}

	if runErr != nil {
		report.State = "error"
		report.Reason = runErr.Error()

		return report
	}

	report.ResourceID = result.Resource.ID
	report.JobID = result.Job.ID

	if result.Outcome == nil {
		report.State = "triggered"

		return report
	}

	report.State = result.Outcome.State.String()
	report.Polls = result.Outcome.Polls
	report.Elapsed = result.Outcome.Elapsed.Round(time.Second).String()

	switch result.Outcome.State {
	case tableau.OutcomeFailed:
		report.Reason = result.Outcome.FailureReason
	case tableau.OutcomeUnknown:
		report.Reason = fmt.Sprintf("unrecognized finish code %q", result.Outcome.RawFinishCode)
	}

	return report
}

// reportError maps a report to the error the command should exit with,
// or nil for success and triggered states.
func reportError(kind tableau.ResourceKind, name string, report refreshReport) error {
	switch report.State {
	case "success", "triggered":
		return nil
	case "timed out":
		return fmt.Errorf("timed out after %s waiting for job %s of %s %q; the job is still running server-side",
			report.Elapsed, report.JobID, kind, name)
	case "error":
		return fmt.Errorf("%s", report.Reason)
	default:
		return fmt.Errorf("refresh of %s %q did not succeed: %s (%s)", kind, name, report.State, report.Reason)
	}
}

// openHistory opens the run-history store, or returns nil when disabled or
// unavailable. History is best-effort — a broken database must never fail
// a refresh.
func openHistory(logger *slog.Logger) *history.Store {
	if resolvedCfg.HistoryDisabled {
		return nil
	}

	hist, err := history.Open(resolvedCfg.HistoryPath, logger)
	if err != nil {
		logger.Warn("history unavailable", slog.String("error", err.Error()))
		return nil
	}

	return hist
}

// recordRun writes one run to the history store, best-effort.
func recordRun(ctx context.Context, hist *history.Store, connLabel string, report refreshReport, logger *slog.Logger) {
	if hist == nil {
		return
	}

	now := time.Now()

	elapsed, _ := time.ParseDuration(report.Elapsed)

	run := history.Run{
		Connection: connLabel,
		Kind:       report.Kind,
		Resource:   report.Resource,
		Project:    report.Project,
		ResourceID: report.ResourceID,
		JobID:      report.JobID,
		State:      report.State,
		Reason:     report.Reason,
		StartedAt:  now.Add(-elapsed),
		FinishedAt: now,
	}

	if err := hist.Record(ctx, run); err != nil {
		logger.Warn("recording run failed", slog.String("error", err.Error()))
	}
}

// printReports writes the per-resource outcomes to stdout.
func printReports(reports []refreshReport) error {
	if flagJSON {
		out, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding output: %w", err)
		}

		fmt.Println(string(out))

		return nil
	}

	for _, report := range reports {
		switch report.State {
		case "triggered":
			fmt.Printf("%s %q: refresh job %s triggered (not waiting)\n", report.Kind, report.Resource, report.JobID)
		case "success":
			fmt.Printf("%s %q: refresh job %s succeeded after %s (%d polls)\n",
				report.Kind, report.Resource, report.JobID, report.Elapsed, report.Polls)
		default:
			fmt.Fprintf(os.Stderr, "%s %q: %s: %s\n", report.Kind, report.Resource, report.State, report.Reason)
		}
	}

	return nil
}
