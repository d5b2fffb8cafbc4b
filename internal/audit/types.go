package audit

import (
	"errors"
	"time"

	"loadcheck/internal/crossval"
)

// ErrRunNotFound is returned when no run matches a lookup.
var ErrRunNotFound = errors.New("run not found")

// Mode records which passes a run performed.
type Mode string

const (
	ModeValidate     Mode = "validate"
	ModeVerify       Mode = "verify"
	ModeUpdate       Mode = "update"
	ModeVerifyUpdate Mode = "verify+update"
)

// ModeFor maps the command-line flags to a run mode.
func ModeFor(verify, update bool) Mode {
	switch {
	case verify && update:
		return ModeVerifyUpdate
	case verify:
		return ModeVerify
	case update:
		return ModeUpdate
	default:
		return ModeValidate
	}
}

func (m Mode) String() string {
	if m == "" {
		return string(ModeValidate)
	}
	return string(m)
}

// ParseMode converts a stored mode value.
func ParseMode(value string) Mode {
	switch Mode(value) {
	case ModeVerify, ModeUpdate, ModeVerifyUpdate:
		return Mode(value)
	default:
		return ModeValidate
	}
}

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
)

// Run is one invocation of the tool.
type Run struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    *time.Time
	Mode          Mode
	DatasetFilter int
	Status        RunStatus
	Error         string

	// Aggregates filled by ListRuns.
	Datasets      int
	Invalid       int
	Failed        int
	Discrepancies int
}

// ShortID is the leading segment of the run UUID.
func (r Run) ShortID() string {
	if len(r.ID) > 8 {
		return r.ID[:8]
	}
	return r.ID
}

// DatasetResult is the persisted summary of one dataset in a run.
type DatasetResult struct {
	Dataset       int
	Pages         int
	Documents     int
	Records       int
	ParseErrors   int
	Valid         bool
	OPTSHA256     string
	DATSHA256     string
	Error         string
	Discrepancies []crossval.Discrepancy
}

// DiscrepancyRecord is a stored discrepancy with its owning run and dataset.
type DiscrepancyRecord struct {
	RunID   string
	Dataset int
	crossval.Discrepancy
}

// ReconcileMode distinguishes verify rows from update rows.
type ReconcileMode string

const (
	ReconcileVerify ReconcileMode = "verify"
	ReconcileUpdate ReconcileMode = "update"
)

// ReconcileResult is the persisted outcome of verify or update for a dataset.
type ReconcileResult struct {
	Dataset        int
	Mode           ReconcileMode
	DatasetID      string
	Remote         *int
	Local          int
	State          string
	Rows           int
	Calls          int
	Failures       int
	SpotMismatches int
	Error          string
}
