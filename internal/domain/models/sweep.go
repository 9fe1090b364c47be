package models

import "time"

// SweepRequest describes one sweep as submitted over HTTP, Kafka or taken
// from the batch configuration. Interval bounds are minutes; clock fields
// are "HH:MM:SS".
type SweepRequest struct {
	Symbol        string      `json:"symbol"`
	Field         string      `json:"field" validate:"omitempty,oneof=open high low close volume"`
	From          string      `json:"from" validate:"omitempty,datetime=2006-01-02"`
	To            string      `json:"to" validate:"omitempty,datetime=2006-01-02"`
	IntervalMin   uint64      `json:"interval_min" default:"2" validate:"gte=1,lte=1440"`
	IntervalMax   uint64      `json:"interval_max" default:"59" validate:"gtefield=IntervalMin,lte=1440"`
	IntervalStep  uint64      `json:"interval_step" default:"1" validate:"gte=1,lte=1440"`
	StartFrom     string      `json:"start_from" default:"08:00:00" validate:"required"`
	StartTo       string      `json:"start_to" default:"10:30:00" validate:"required"`
	StartStep     uint64      `json:"start_step" default:"1" validate:"gte=1,lte=1440"`
	SessionEnd    string      `json:"session_end" default:"17:00:00" validate:"required"`
	Threads       int         `json:"threads" validate:"gte=0,lte=1024"`
	Pairing       string      `json:"pairing" default:"last_start_wins" validate:"oneof=last_start_wins first_start_wins"`
	FailurePolicy string      `json:"failure_policy" default:"fail_fast" validate:"oneof=fail_fast best_effort"`
	Events        EventWindow `json:"events"`
}

// EventWindow selects calendar events and widens each event day by
// BackDays/FwdDays business days. Mode "mask" gates entries and exits on
// window days; "filter" drops samples outside the window before the sweep.
type EventWindow struct {
	Enabled    bool     `json:"enabled"`
	Mode       string   `json:"mode" default:"mask" validate:"oneof=mask filter"`
	Impacts    []int    `json:"impacts" validate:"dive,gte=0,lte=3"`
	Currencies []string `json:"currencies"`
	BackDays   int      `json:"back_days" validate:"gte=0,lte=60"`
	FwdDays    int      `json:"fwd_days" validate:"gte=0,lte=60"`
}

// SweepReport is the outcome of a completed sweep.
type SweepReport struct {
	RunID        string           `json:"run_id"`
	Combinations int              `json:"combinations"`
	Samples      int              `json:"samples"`
	Cached       bool             `json:"cached"`
	Elapsed      time.Duration    `json:"elapsed"`
	Results      []StrategyResult `json:"results"`
}

// ProgressSnapshot is a point-in-time view of a running sweep.
type ProgressSnapshot struct {
	Done     uint64        `json:"done"`
	Total    uint64        `json:"total"`
	Percent  float64       `json:"percent"`
	Elapsed  time.Duration `json:"elapsed"`
	Expected time.Duration `json:"expected"`
}

// JobStatus is the lifecycle state of an asynchronous sweep job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Terminal reports whether the job will not change state again.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed || s == JobCancelled
}

// JobView is the externally visible state of a sweep job.
type JobView struct {
	ID         string           `json:"id"`
	Status     JobStatus        `json:"status"`
	Progress   ProgressSnapshot `json:"progress"`
	Results    int              `json:"results"`
	Cached     bool             `json:"cached"`
	Error      string           `json:"error,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
}
