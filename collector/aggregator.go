package collector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"contribstats/github"
	"contribstats/logger"
)

// fetchContributions aggregates one repository's activity for one
// author over the window. It fans out six paginated queries
// concurrently and composes their results positionally:
//
//	0 all commits since
//	1 commits since, authored
//	2 all issues since
//	3 issues since, created by author
//	4 open pull requests against the base branch
//	5 closed pull requests against the base branch
//
// A nil, nil return means the author had no activity in the repository.
func (c *GitHub) fetchContributions(ctx context.Context, repo github.Repo, win Window, author string) (*Contribution, error) {
	since := win.Since.Format(time.RFC3339)

	var (
		commitsAll      []github.Commit
		commitsAuthored []github.Commit
		issuesAll       []github.Issue
		issuesAuthored  []github.Issue
		prsOpen         []github.PullRequest
		prsClosed       []github.PullRequest
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		commitsAll, err = github.FetchList[github.Commit](egCtx, c.client, expandURL(repo.CommitsURL), url.Values{
			"since": {since},
		})
		return err
	})
	eg.Go(func() error {
		var err error
		commitsAuthored, err = github.FetchList[github.Commit](egCtx, c.client, expandURL(repo.CommitsURL), url.Values{
			"since":  {since},
			"author": {author},
		})
		return err
	})
	eg.Go(func() error {
		var err error
		issuesAll, err = github.FetchList[github.Issue](egCtx, c.client, expandURL(repo.IssuesURL), url.Values{
			"since": {since},
		})
		return err
	})
	eg.Go(func() error {
		var err error
		issuesAuthored, err = github.FetchList[github.Issue](egCtx, c.client, expandURL(repo.IssuesURL), url.Values{
			"since":   {since},
			"creator": {author},
		})
		return err
	})
	eg.Go(func() error {
		var err error
		prsOpen, err = github.FetchList[github.PullRequest](egCtx, c.client, expandURL(repo.PullsURL), url.Values{
			"base":  {c.baseBranch},
			"state": {"open"},
			"sort":  {"created"},
		})
		return err
	})
	eg.Go(func() error {
		var err error
		prsClosed, err = github.FetchList[github.PullRequest](egCtx, c.client, expandURL(repo.PullsURL), url.Values{
			"base":  {c.baseBranch},
			"state": {"closed"},
			"sort":  {"created"},
		})
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	prsOpen = filterPRs(prsOpen, func(pr github.PullRequest) bool {
		return !pr.CreatedAt.Before(win.Since)
	})
	prsClosed = filterPRs(prsClosed, func(pr github.PullRequest) bool {
		if pr.MergedAt != nil {
			return !pr.MergedAt.Before(win.Since)
		}
		if pr.ClosedAt != nil {
			return !pr.ClosedAt.Before(win.Since)
		}
		return false
	})

	logger.Debug("Aggregated contribution counts",
		zap.String("repo", repo.Name),
		zap.Int("commits_total", len(commitsAll)),
		zap.Int("commits_authored", len(commitsAuthored)),
		zap.Int("issues_total", len(issuesAll)),
		zap.Int("issues_authored", len(issuesAuthored)),
		zap.Int("prs_open", len(prsOpen)),
		zap.Int("prs_closed", len(prsClosed)))

	if len(commitsAll)+len(commitsAuthored)+len(issuesAll)+len(issuesAuthored)+len(prsOpen)+len(prsClosed) == 0 {
		logger.Info("No activity in repository since window start",
			zap.String("author", author),
			zap.String("repo", repo.Name),
			zap.Time("since", win.Since))
		return nil, nil
	}

	return &Contribution{
		Repo:      repoIdentity(repo),
		IsFork:    repo.Fork,
		IsPrivate: repo.Private,
		CommitsCount: CommitsCount{
			Total:    len(commitsAll),
			Authored: len(commitsAuthored),
		},
		IssuesCount: IssuesCount{
			Total:    len(issuesAll),
			Authored: len(issuesAuthored),
		},
		PullRequestCount: PullRequestCount{
			Total: PullRequestStat{
				Open:   len(prsOpen),
				Merged: len(prsClosed),
			},
			Authored: PullRequestStat{
				Open:   countAuthored(prsOpen, author),
				Merged: countAuthored(prsClosed, author),
			},
		},
	}, nil
}

// repoIdentity is the repository's persisted identifier: the full name,
// or its SHA-256 hash when the repository is private so raw private
// names never leave the aggregator.
func repoIdentity(repo github.Repo) string {
	if !repo.Private {
		return repo.FullName
	}
	sum := sha256.Sum256([]byte(repo.FullName))
	return hex.EncodeToString(sum[:])
}

// expandURL strips the RFC6570 template suffix from a repository
// endpoint URL, e.g. ".../commits{/sha}" -> ".../commits".
func expandURL(template string) string {
	if i := strings.IndexByte(template, '{'); i >= 0 {
		return template[:i]
	}
	return template
}

func filterPRs(prs []github.PullRequest, keep func(github.PullRequest) bool) []github.PullRequest {
	filtered := prs[:0]
	for _, pr := range prs {
		if keep(pr) {
			filtered = append(filtered, pr)
		}
	}
	return filtered
}

func countAuthored(prs []github.PullRequest, author string) int {
	n := 0
	for _, pr := range prs {
		if pr.IsAuthoredBy(author) {
			n++
		}
	}
	return n
}
