package tableau

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
)

// Default wait parameters, applied when WaitOptions fields are zero.
const (
	DefaultPollInterval = 30 * time.Second
	DefaultTimeout      = 1 * time.Hour
	DefaultPollRetries  = 3
)

// WaitOptions controls the blocking wait loop.
type WaitOptions struct {
	// PollInterval is the fixed delay between job status polls.
	PollInterval time.Duration

	// Timeout bounds the total wall-clock wait. When it elapses the wait
	// returns OutcomeTimedOut; the remote job keeps running and is never
	// canceled by this package.
	Timeout time.Duration

	// PollRetries is how many consecutive transient poll failures are
	// absorbed before the wait fails with ErrPoll. Distinguishes a flaky
	// network blip from a genuinely broken status endpoint.
	PollRetries int

	// RetryBackoff is the delay between transient-failure retries.
	// Defaults to PollInterval.
	RetryBackoff time.Duration
}

func (o WaitOptions) withDefaults() WaitOptions {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}

	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}

	if o.PollRetries <= 0 {
		o.PollRetries = DefaultPollRetries
	}

	if o.RetryBackoff <= 0 {
		o.RetryBackoff = o.PollInterval
	}

	return o
}

// refreshJobResponse mirrors the job block returned by a refresh trigger.
type refreshJobResponse struct {
	Job struct {
		ID        string    `json:"id"`
		Mode      string    `json:"mode"`
		Type      string    `json:"type"`
		CreatedAt time.Time `json:"createdAt"`
	} `json:"job"`
}

// emptyRequest is the empty JSON body the refresh endpoints require.
type emptyRequest struct{}

// Refresh issues an extract-refresh request against a resolved resource.
// On acceptance the server-tracked job is returned immediately; waiting
// for it is the caller's choice (WaitForJob). Rejection — no extract,
// missing permission, resource busy — is ErrTrigger.
func (s *Session) Refresh(ctx context.Context, res Resource) (*Job, error) {
	var endpoint string

	switch res.Kind {
	case KindWorkbook:
		endpoint = fmt.Sprintf("/workbooks/%s/refresh", res.ID)
	case KindDatasource:
		endpoint = fmt.Sprintf("/datasources/%s/refresh", res.ID)
	default:
		return nil, fmt.Errorf("unhandled resource kind %v", res.Kind)
	}

	body, err := s.client.do(ctx, http.MethodPost, s.sitePath(endpoint), s.token, emptyRequest{})
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q: %w", ErrTrigger, res.Kind, res.Name, err)
	}

	var resp refreshJobResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: parsing refresh response: %w", ErrTrigger, err)
	}

	startedAt := resp.Job.CreatedAt
	if startedAt.IsZero() {
		startedAt = s.client.nowFunc()
	}

	s.client.logger.Info("refresh triggered",
		slog.String("kind", res.Kind.String()),
		slog.String("name", res.Name),
		slog.String("resource_id", res.ID),
		slog.String("job_id", resp.Job.ID),
	)

	return &Job{ID: resp.Job.ID, Kind: res.Kind, StartedAt: startedAt}, nil
}

// jobGetResponse mirrors GET /sites/{id}/jobs/{job-id}. finishCode and
// progress are JSON strings; finishCode is absent while the job runs.
type jobGetResponse struct {
	Job struct {
		ID                string `json:"id"`
		Type              string `json:"type"`
		FinishCode        string `json:"finishCode"`
		Progress          string `json:"progress"`
		ExtractRefreshJob struct {
			Notes string `json:"notes"`
		} `json:"extractRefreshJob"`
	} `json:"job"`
}

// JobStatus fetches the current status of a job. Single-shot — retry
// policy belongs to WaitForJob.
func (s *Session) JobStatus(ctx context.Context, jobID string) (JobStatus, error) {
	var resp jobGetResponse
	if err := s.client.get(ctx, s.sitePath("/jobs/"+jobID), s.token, &resp); err != nil {
		return JobStatus{}, err
	}

	progress, _ := strconv.Atoi(resp.Job.Progress)

	return JobStatus{
		ID:         resp.Job.ID,
		FinishCode: resp.Job.FinishCode,
		Progress:   progress,
		Notes:      resp.Job.ExtractRefreshJob.Notes,
	}, nil
}

// Classify maps one observed status to a terminal outcome. The second
// return is false while the job is still in flight. Pure — the poll loop
// around it owns all the state.
func Classify(status JobStatus) (Outcome, bool) {
	switch status.FinishCode {
	case "":
		return Outcome{}, false
	case finishCodeSuccess:
		return Outcome{State: OutcomeSuccess}, true
	case finishCodeFailed:
		reason := status.Notes
		if reason == "" {
			reason = "job failed without server-provided detail"
		}

		return Outcome{State: OutcomeFailed, FailureReason: reason}, true
	case finishCodeCanceled:
		return Outcome{State: OutcomeFailed, FailureReason: "canceled on the server"}, true
	default:
		return Outcome{State: OutcomeUnknown, RawFinishCode: status.FinishCode}, true
	}
}

// WaitForJob polls a job at a fixed interval until it reaches a terminal
// state or the timeout elapses. The loop's only state is elapsed time,
// poll count, and the last observed status. A timeout is not an error —
// it is a distinct outcome meaning "still running, gave up waiting".
func (s *Session) WaitForJob(ctx context.Context, jobID string, opts WaitOptions) (Outcome, error) {
	opts = opts.withDefaults()
	start := s.client.nowFunc()
	polls := 0

	var last JobStatus

	for {
		elapsed := s.client.nowFunc().Sub(start)
		if elapsed >= opts.Timeout {
			s.client.logger.Warn("gave up waiting for job",
				slog.String("job_id", jobID),
				slog.Duration("elapsed", elapsed),
				slog.Int("polls", polls),
				slog.Int("last_progress", last.Progress),
			)

			return Outcome{State: OutcomeTimedOut, JobID: jobID, Polls: polls, Elapsed: elapsed}, nil
		}

		status, err := s.pollOnce(ctx, jobID, opts)
		if err != nil {
			return Outcome{}, fmt.Errorf("%w: job %s: %w", ErrPoll, jobID, err)
		}

		polls++
		last = status

		if outcome, terminal := Classify(status); terminal {
			outcome.JobID = jobID
			outcome.Polls = polls
			outcome.Elapsed = s.client.nowFunc().Sub(start)

			s.client.logger.Info("job reached terminal state",
				slog.String("job_id", jobID),
				slog.String("state", outcome.State.String()),
				slog.Int("polls", polls),
			)

			return outcome, nil
		}

		s.client.logger.Debug("job still running",
			slog.String("job_id", jobID),
			slog.Int("progress", status.Progress),
			slog.Int("polls", polls),
		)

		if err := s.client.sleepFunc(ctx, opts.PollInterval); err != nil {
			return Outcome{}, fmt.Errorf("%w: job %s: %w", ErrPoll, jobID, err)
		}
	}
}

// pollOnce fetches job status, absorbing up to PollRetries consecutive
// transient failures. Context cancellation is never retried.
func (s *Session) pollOnce(ctx context.Context, jobID string, opts WaitOptions) (JobStatus, error) {
	var status JobStatus

	backoff := retry.WithMaxRetries(uint64(opts.PollRetries), retry.NewConstant(opts.RetryBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		st, err := s.JobStatus(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}

			s.client.logger.Warn("transient poll failure",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)

			return retry.RetryableError(err)
		}

		status = st

		return nil
	})
	if err != nil {
		return JobStatus{}, err
	}

	return status, nil
}
