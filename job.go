package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/tableau-refresh-go/internal/tableau"
)

// jobReport is the JSON output shape of the job command.
type jobReport struct {
	JobID    string `json:"job_id"`
	State    string `json:"state"`
	Progress int    `json:"progress"`
	Reason   string `json:"reason,omitempty"`
}

func newJobCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "job JOB_ID",
		Short: "Check the status of a refresh job",
		Long: `Look up the current status of a refresh job by its id.

Pairs with 'refresh --no-wait': trigger the job, note its id, and check
on it out of band.`,
		Args: cobra.ExactArgs(1),
		RunE: runJob,
	}
}

func runJob(cmd *cobra.Command, args []string) error {
	logger := buildLogger()
	jobID := args[0]

	desc, err := resolvedCfg.Descriptor(resolvedCfg.Connection)
	if err != nil {
		return err
	}

	client := tableau.NewClient(desc.ServerURL, defaultHTTPClient(), logger)

	creds := tableau.Credentials{
		Site:        desc.Site,
		TokenName:   desc.TokenName,
		TokenSecret: desc.TokenSecret,
	}

	var report jobReport

	err = client.WithSession(cmd.Context(), creds, func(ctx context.Context, session *tableau.Session) error {
		status, err := session.JobStatus(ctx, jobID)
		if err != nil {
			return fmt.Errorf("looking up job %s: %w", jobID, err)
		}

		report = jobReport{JobID: jobID, Progress: status.Progress}

		outcome, terminal := tableau.Classify(status)
		if !terminal {
			report.State = "running"

			return nil
		}

		report.State = outcome.State.String()

		switch outcome.State {
		case tableau.OutcomeFailed:
			report.Reason = outcome.FailureReason
		case tableau.OutcomeUnknown:
			report.Reason = fmt.Sprintf("unrecognized finish code %q", outcome.RawFinishCode)
		}

		return nil
	})
	if err != nil {
		return err
	}

	if flagJSON {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding output: %w", err)
		}

		fmt.Println(string(out))

		return nil
	}

	switch report.State {
	case "running":
		fmt.Printf("job %s: running (%d%%)\n", report.JobID, report.Progress)
	case "success":
		fmt.Printf("job %s: success\n", report.JobID)
	default:
		fmt.Printf("job %s: %s: %s\n", report.JobID, report.State, report.Reason)
	}

	return nil
}
