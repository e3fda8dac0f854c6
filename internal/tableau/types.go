package tableau

import (
	"fmt"
	"time"
)

// ResourceKind is a closed enum over the two refreshable resource kinds.
// Dispatch on it is an exhaustive switch — adding a kind without handling
// it everywhere is a compile-visible change, not a runtime string miss.
type ResourceKind int

const (
	KindWorkbook ResourceKind = iota
	KindDatasource
)

// String returns the singular display name of the kind.
func (k ResourceKind) String() string {
	switch k {
	case KindWorkbook:
		return "workbook"
	case KindDatasource:
		return "datasource"
	default:
		return fmt.Sprintf("ResourceKind(%d)", int(k))
	}
}

// ParseResourceKind converts user input to a ResourceKind. Accepts the
// singular and plural spellings used by the REST API endpoints.
func ParseResourceKind(s string) (ResourceKind, error) {
	switch s {
	case "workbook", "workbooks":
		return KindWorkbook, nil
	case "datasource", "datasources":
		return KindDatasource, nil
	default:
		return 0, fmt.Errorf("tableau: unknown resource kind %q (want workbook or datasource)", s)
	}
}

// Credentials open a PAT session on one site. The server URL lives on
// the Client; these three fields come from an opaque connection
// descriptor whose storage mechanism this package never sees.
type Credentials struct {
	Site        string // site contentUrl; empty means the default site
	TokenName   string
	TokenSecret string
}

// ResourceQuery identifies one resource by human-readable names.
type ResourceQuery struct {
	Kind    ResourceKind
	Name    string // exact, case-sensitive
	Project string // exact, case-sensitive
}

func (q ResourceQuery) String() string {
	return fmt.Sprintf("%s %q in project %q", q.Kind, q.Name, q.Project)
}

// Resource is a resolved server-side resource.
type Resource struct {
	ID      string
	Kind    ResourceKind
	Name    string
	Project string
}

// Job is an accepted extract-refresh job. Its lifecycle is server-tracked;
// this package only observes it via status polling.
type Job struct {
	ID        string
	Kind      ResourceKind
	StartedAt time.Time
}

// Tableau job finish codes, per the REST API jobs resource. The API
// encodes them as JSON strings; they are kept raw so an unrecognized
// code can be surfaced verbatim instead of guessed at.
const (
	finishCodeSuccess  = "0"
	finishCodeFailed   = "1"
	finishCodeCanceled = "2"
)

// JobStatus is one observed poll of a job.
type JobStatus struct {
	ID         string
	FinishCode string // empty while the job is still in flight
	Progress   int    // percent, 0-100
	Notes      string
}

// OutcomeState is the terminal classification of a blocking wait.
type OutcomeState int

const (
	OutcomeSuccess OutcomeState = iota
	OutcomeFailed
	OutcomeTimedOut
	OutcomeUnknown
)

func (s OutcomeState) String() string {
	switch s {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailed:
		return "failed"
	case OutcomeTimedOut:
		return "timed out"
	case OutcomeUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("OutcomeState(%d)", int(s))
	}
}

// Outcome is the terminal result of a blocking wait.
//
// TimedOut means the caller gave up waiting — the remote job is left
// running and is never canceled by this package. Unknown means the server
// reported a finish code this package does not recognize; RawFinishCode
// carries it verbatim rather than guessing.
type Outcome struct {
	State         OutcomeState
	JobID         string
	FailureReason string // server-provided detail, set when State == OutcomeFailed
	RawFinishCode string // set when State == OutcomeUnknown
	Polls         int
	Elapsed       time.Duration
}
