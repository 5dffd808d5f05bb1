package collector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"contribstats/github"
	"contribstats/logger"
)

// ErrNoLimitAvailable is returned when the upstream rate budget is
// already exhausted before collection starts.
var ErrNoLimitAvailable = errors.New("cannot start collection, there is no limit available")

// Collector collects a user's contribution activity over a window
type Collector interface {
	Collect(ctx context.Context, win Window) (*Result, error)
}

// GitHub collects contribution activity from the GitHub REST API
type GitHub struct {
	client     *github.Client
	baseBranch string
}

// NewGitHub creates a GitHub collector. baseBranch is the branch pull
// request queries are filtered against.
func NewGitHub(client *github.Client, baseBranch string) *GitHub {
	return &GitHub{client: client, baseBranch: baseBranch}
}

// Collect runs one full collection: it checks the remaining rate
// budget, resolves the authenticated user and the repository set, fans
// the per-repository aggregation out concurrently and assembles the
// final result. Repositories with no activity are excluded.
//
// A single repository's aggregation failure is logged and skipped;
// rate-limit exhaustion aborts the whole run with no partial result.
func (c *GitHub) Collect(ctx context.Context, win Window) (*Result, error) {
	start := time.Now()

	limit, err := c.client.FetchAPILimit(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch API limit: %w", err)
	}
	if limit.Rate.Remaining == 0 {
		return nil, ErrNoLimitAvailable
	}
	logger.Info("Rate budget available",
		zap.Int("remaining", limit.Rate.Remaining),
		zap.Int("limit", limit.Rate.Limit))

	user, err := c.client.FetchUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch authenticated user: %w", err)
	}

	repos, err := c.fetchRepoSet(ctx, user)
	if err != nil {
		return nil, err
	}
	logger.Info("Resolved repository set",
		zap.String("user", user.Login),
		zap.Int("repo_count", len(repos)))

	contributions, err := c.fanOut(ctx, repos, win, user.Login)
	if err != nil {
		return nil, err
	}

	return &Result{
		User:          user.Login,
		Since:         win.Since,
		Until:         win.Until,
		TookMS:        float64(time.Since(start)) / float64(time.Millisecond),
		Contributions: contributions,
	}, nil
}

// fetchRepoSet concurrently fetches the repositories owned by the user
// and all private repositories visible to the credential, deduplicated
// by full name.
func (c *GitHub) fetchRepoSet(ctx context.Context, user github.User) ([]github.Repo, error) {
	var owned, private []github.Repo

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		owned, err = c.client.FetchRepos(egCtx, user.ReposURL, nil)
		return err
	})
	eg.Go(func() error {
		var err error
		private, err = c.client.FetchRepos(egCtx, "", url.Values{"visibility": {"private"}})
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch repositories: %w", err)
	}

	seen := make(map[string]bool, len(owned)+len(private))
	repos := make([]github.Repo, 0, len(owned)+len(private))
	for _, repo := range append(owned, private...) {
		if seen[repo.FullName] {
			continue
		}
		seen[repo.FullName] = true
		repos = append(repos, repo)
	}
	return repos, nil
}

// fanOut runs the per-repository aggregator concurrently over every
// candidate repository, capturing individual failures instead of
// aborting the batch. Only rate-limit exhaustion is batch-fatal.
func (c *GitHub) fanOut(ctx context.Context, repos []github.Repo, win Window, author string) ([]Contribution, error) {
	results := make([]*Contribution, len(repos))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, repo := range repos {
		i, repo := i, repo
		eg.Go(func() error {
			contribution, err := c.fetchContributions(egCtx, repo, win, author)
			if err != nil {
				if errors.Is(err, github.ErrRateLimitExceeded) {
					return err
				}
				logger.Warn("Skipping repository after aggregation failure",
					zap.String("repo", repo.FullName),
					zap.Error(err))
				return nil
			}
			results[i] = contribution
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	contributions := make([]Contribution, 0, len(results))
	for _, contribution := range results {
		if contribution != nil {
			contributions = append(contributions, *contribution)
		}
	}
	return contributions, nil
}
