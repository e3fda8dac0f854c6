// Package refresher wires the extract-refresh control flow: open a scoped
// session, resolve the resource by name, trigger the refresh, and
// optionally wait for the job to finish. It is the piece a scheduler or
// CLI invokes; everything Tableau-specific lives in internal/tableau.
package refresher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tonimelisma/tableau-refresh-go/internal/tableau"
)

// Request describes one refresh invocation.
type Request struct {
	Kind     tableau.ResourceKind
	Resource string
	Project  string

	// Blocking waits for the job to reach a terminal state. When false,
	// Run returns right after the trigger is accepted and the caller
	// checks job status out of band.
	Blocking bool

	Wait tableau.WaitOptions
}

// Result is what a successful invocation reports back. Outcome is nil in
// non-blocking mode. A Failed or Unknown outcome is a result, not an
// error — the transport and resolution worked; the job itself did not.
type Result struct {
	Resource tableau.Resource
	Job      *tableau.Job
	Outcome  *tableau.Outcome
	Started  time.Time
	Finished time.Time
}

// Run executes one refresh invocation against its own session. The
// session is signed out on every exit path; concurrent invocations are
// independent and never share sessions.
func Run(ctx context.Context, client *tableau.Client, creds tableau.Credentials, req Request, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if req.Resource == "" {
		return nil, fmt.Errorf("refresher: resource name is required")
	}

	if req.Project == "" {
		return nil, fmt.Errorf("refresher: project name is required")
	}

	query := tableau.ResourceQuery{Kind: req.Kind, Name: req.Resource, Project: req.Project}

	result := &Result{Started: time.Now()}

	err := client.WithSession(ctx, creds, func(ctx context.Context, session *tableau.Session) error {
		resource, err := session.Resolve(ctx, query)
		if err != nil {
			return err
		}

		result.Resource = resource

		job, err := session.Refresh(ctx, resource)
		if err != nil {
			return err
		}

		result.Job = job

		if !req.Blocking {
			logger.Info("refresh accepted, not waiting",
				slog.String("job_id", job.ID),
				slog.String("resource", resource.Name),
			)

			return nil
		}

		outcome, err := session.WaitForJob(ctx, job.ID, req.Wait)
		if err != nil {
			return err
		}

		result.Outcome = &outcome

		return nil
	})

	result.Finished = time.Now()

	if err != nil {
		return nil, fmt.Errorf("refreshing %s: %w", query, err)
	}

	return result, nil
}
