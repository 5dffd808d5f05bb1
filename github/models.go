package github

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Record is a GitHub API entity whose required fields can be checked
// after decoding.
type Record interface {
	Validate() error
}

// User represents the GitHub account a set of contributions belongs to
type User struct {
	Login    string `json:"login"`
	ReposURL string `json:"repos_url"`
}

func (u User) Validate() error {
	if u.Login == "" {
		return missingField("user", "login")
	}
	if u.ReposURL == "" {
		return missingField("user", "repos_url")
	}
	return nil
}

// Repo represents a repository as returned by the repo-listing endpoints.
// The three URL fields are RFC6570 templates, expanded by the client
// before use.
type Repo struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`

	CommitsURL string `json:"commits_url"`
	IssuesURL  string `json:"issues_url"`
	PullsURL   string `json:"pulls_url"`

	Private bool `json:"private"`
	Fork    bool `json:"fork"`
}

func (r Repo) Validate() error {
	if r.Name == "" {
		return missingField("repo", "name")
	}
	if r.FullName == "" {
		return missingField("repo", "full_name")
	}
	if r.CommitsURL == "" {
		return missingField("repo", "commits_url")
	}
	if r.IssuesURL == "" {
		return missingField("repo", "issues_url")
	}
	if r.PullsURL == "" {
		return missingField("repo", "pulls_url")
	}
	return nil
}

// Commit is an opaque record; only its existence matters for counting.
type Commit struct {
	SHA string `json:"sha"`
}

func (c Commit) Validate() error {
	return nil
}

// Issue carries only the fields aggregation cares about.
type Issue struct {
	Comments int `json:"comments"`
}

func (i Issue) Validate() error {
	return nil
}

// Branch is a pull request's head or base reference
type Branch struct {
	Ref   string `json:"ref"`
	Label string `json:"label"`
	User  User   `json:"user"`
}

func (b Branch) Validate() error {
	if b.Ref == "" {
		return missingField("branch", "ref")
	}
	if b.Label == "" {
		return missingField("branch", "label")
	}
	return b.User.Validate()
}

// PullRequest represents a pull request with the timestamps needed for
// window filtering. User and Assignee may be null upstream.
type PullRequest struct {
	State             string `json:"state"`
	User              *User  `json:"user"`
	Assignee          *User  `json:"assignee"`
	Head              Branch `json:"head"`
	Base              Branch `json:"base"`
	AuthorAssociation string `json:"author_association"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at"`
	MergedAt  *time.Time `json:"merged_at"`
}

func (p PullRequest) Validate() error {
	if p.State == "" {
		return missingField("pull_request", "state")
	}
	if p.AuthorAssociation == "" {
		return missingField("pull_request", "author_association")
	}
	if err := p.Head.Validate(); err != nil {
		return err
	}
	if err := p.Base.Validate(); err != nil {
		return err
	}
	if p.CreatedAt.IsZero() {
		return missingField("pull_request", "created_at")
	}
	if p.UpdatedAt.IsZero() {
		return missingField("pull_request", "updated_at")
	}
	return nil
}

// IsAuthoredBy reports whether the pull request was authored by the
// given login with an owner or contributor association.
func (p PullRequest) IsAuthoredBy(author string) bool {
	if p.User == nil || p.User.Login != author {
		return false
	}
	switch strings.ToLower(p.AuthorAssociation) {
	case "owner", "contributor":
		return true
	}
	return false
}

// RateLimit is the core rate object of the rate_limit endpoint
type RateLimit struct {
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// APILimit represents the response of the rate_limit endpoint
type APILimit struct {
	Rate RateLimit `json:"rate"`
}

func (l APILimit) Validate() error {
	if l.Rate.Limit == 0 && l.Rate.Remaining == 0 {
		// A zeroed rate object usually means the field was absent.
		return missingField("api_limit", "rate")
	}
	return nil
}

func missingField(entity, field string) error {
	return fmt.Errorf("%s: required field %q is missing or empty", entity, field)
}

// decodeRecord decodes a single raw record into a typed entity,
// validating its required fields.
func decodeRecord[T Record](raw json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, &DecodeError{Target: fmt.Sprintf("%T", v), Raw: raw, Reason: err}
	}
	if err := v.Validate(); err != nil {
		return v, &DecodeError{Target: fmt.Sprintf("%T", v), Raw: raw, Reason: err}
	}
	return v, nil
}
