// Package collector aggregates a user's GitHub contribution activity
// over a time window.
package collector

import (
	"fmt"
	"time"
)

// Window is the [since, until) time range over which activity is
// counted. Both bounds are normalized to UTC.
type Window struct {
	Since time.Time
	Until time.Time
}

// NewWindow constructs a validated collection window. A zero until
// defaults to the current time; a zero since is an error, as is a
// window whose since does not precede its until.
func NewWindow(since, until time.Time) (Window, error) {
	if since.IsZero() {
		if !until.IsZero() {
			return Window{}, fmt.Errorf("invalid window: until is set but since is absent")
		}
		return Window{}, fmt.Errorf("invalid window: since is required")
	}
	if until.IsZero() {
		until = time.Now()
	}
	since = since.UTC()
	until = until.UTC()
	if !since.Before(until) {
		return Window{}, fmt.Errorf("invalid window: since %s must be earlier than until %s", since, until)
	}
	return Window{Since: since, Until: until}, nil
}

// CommitsCount holds per-repository commit counts
type CommitsCount struct {
	Total    int `json:"total" db:"commits_total"`
	Authored int `json:"authored" db:"commits_authored"`
}

// IssuesCount holds per-repository issue counts
type IssuesCount struct {
	Total    int `json:"total" db:"issues_total"`
	Authored int `json:"authored" db:"issues_authored"`
}

// PullRequestStat splits a pull request count into open and merged
type PullRequestStat struct {
	Open   int `json:"open"`
	Merged int `json:"merged"`
}

// PullRequestCount holds per-repository pull request counts
type PullRequestCount struct {
	Total    PullRequestStat `json:"total"`
	Authored PullRequestStat `json:"authored"`
}

// Contribution is one repository's aggregated activity. Repo is the
// repository full name, or an irreversible hash of it for private
// repositories.
type Contribution struct {
	Repo             string           `json:"repo"`
	IsFork           bool             `json:"is_fork"`
	IsPrivate        bool             `json:"is_private"`
	CommitsCount     CommitsCount     `json:"commits_count"`
	IssuesCount      IssuesCount      `json:"issues_count"`
	PullRequestCount PullRequestCount `json:"pull_request_count"`
}

// Result is the outcome of one collection run. It is constructed once
// and never mutated afterwards.
type Result struct {
	User          string         `json:"user"`
	Since         time.Time      `json:"since"`
	Until         time.Time      `json:"until"`
	TookMS        float64        `json:"took_ms"`
	Contributions []Contribution `json:"contributions"`
}
