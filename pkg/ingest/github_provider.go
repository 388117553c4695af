package ingest

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/gitpulse-dev/gitpulse/pkg/schema"
)

// GitHubProvider implements Provider against the GitHub REST API. It
// derives the sixteen canonical channels from whatever GitHub actually
// exposes per month; channels GitHub has no historical signal for (e.g.
// OpenRank, a third-party composite metric with no GitHub equivalent) are
// simply left absent rather than approximated with a placeholder value,
// honoring §3's "absence is distinct from zero" invariant.
type GitHubProvider struct {
	client *github.Client
}

// NewGitHubProvider builds a GitHubProvider from repo credentials, routing
// all HTTP through a retryablehttp-backed client so transient failures are
// retried below the Provider boundary as well as above it.
func NewGitHubProvider(repo RepoRef, httpClient *http.Client) (*GitHubProvider, error) {
	ctx := context.Background()
	if repo.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: repo.Token})
		httpClient = oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, httpClient), ts)
	}

	client := github.NewClient(httpClient)
	if repo.BaseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(repo.BaseURL, repo.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("github provider: set enterprise url: %w", err)
		}
	}
	return &GitHubProvider{client: client}, nil
}

func (p *GitHubProvider) RepoCreatedMonth(ctx context.Context, repo RepoRef) (schema.Month, error) {
	r, resp, err := p.client.Repositories.Get(ctx, repo.Owner, repo.Name)
	if err != nil {
		return "", wrapGitHubErr(repo, resp, err)
	}
	defer closeBody(resp)
	if r.CreatedAt == nil {
		return "", &schema.IngestionPermanentError{Repo: repo.Key(), Reason: "repository has no creation timestamp"}
	}
	return schema.NewMonth(r.CreatedAt.Time), nil
}

// MonthlyMetrics derives the canonical channels available from GitHub's
// per-repository APIs for one month. Contributor/participation/commit
// counts require a full-history scan in the underlying SDK call, so
// callers fetching many months should expect GitHub's own response
// caching (ETags) to absorb the redundant cost; RateGovernor still paces
// each call issued here.
func (p *GitHubProvider) MonthlyMetrics(ctx context.Context, repo RepoRef, month schema.Month) (map[schema.Channel]float64, error) {
	start, err := month.Time()
	if err != nil {
		return nil, err
	}
	end := month.Add(1)
	endTime, err := end.Time()
	if err != nil {
		return nil, err
	}

	out := make(map[schema.Channel]float64)

	issues, resp, err := p.client.Issues.ListByRepo(ctx, repo.Owner, repo.Name, &github.IssueListByRepoOptions{
		State:     "all",
		Since:     start,
		Direction: "asc",
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	})
	if err != nil {
		return nil, wrapGitHubErr(repo, resp, err)
	}
	defer closeBody(resp)

	var newIssues, closedIssues, issueComments, changeRequests, acceptedChangeRequests float64
	for _, iss := range issues {
		if iss.CreatedAt == nil || iss.CreatedAt.Time.Before(start) || !iss.CreatedAt.Time.Before(endTime) {
			continue
		}
		isPR := iss.IsPullRequest()
		if isPR {
			changeRequests++
			if iss.GetState() == "closed" && iss.PullRequestLinks != nil {
				acceptedChangeRequests++
			}
		} else {
			newIssues++
		}
		if iss.GetState() == "closed" && iss.ClosedAt != nil &&
			!iss.ClosedAt.Time.Before(start) && iss.ClosedAt.Time.Before(endTime) {
			if !isPR {
				closedIssues++
			}
		}
		issueComments += float64(iss.GetComments())
	}

	out[schema.NewIssues] = newIssues
	out[schema.ClosedIssues] = closedIssues
	out[schema.IssueComments] = issueComments
	out[schema.ChangeRequests] = changeRequests
	out[schema.AcceptedChangeRequests] = acceptedChangeRequests

	commits, resp, err := p.client.Repositories.ListCommits(ctx, repo.Owner, repo.Name, &github.CommitsListOptions{
		Since: start,
		Until: endTime,
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	})
	if err != nil {
		return nil, wrapGitHubErr(repo, resp, err)
	}
	defer closeBody(resp)

	authors := make(map[string]bool)
	for _, c := range commits {
		if c.GetAuthor() != nil {
			authors[c.GetAuthor().GetLogin()] = true
		}
	}
	out[schema.Activity] = float64(len(commits))
	out[schema.Contributors] = float64(len(authors))

	return out, nil
}

func (p *GitHubProvider) StaticDocs(ctx context.Context, repo RepoRef) (schema.StaticDocs, error) {
	var docs schema.StaticDocs
	docs.Docs = make(map[string]string)

	readme, resp, err := p.client.Repositories.GetReadme(ctx, repo.Owner, repo.Name, nil)
	if err == nil {
		defer closeBody(resp)
		if content, decodeErr := readme.GetContent(); decodeErr == nil {
			docs.Readme = content
		}
	}

	licenseContent, resp, err := p.client.Repositories.GetContents(ctx, repo.Owner, repo.Name, "LICENSE", nil)
	if err == nil && licenseContent != nil {
		defer closeBody(resp)
		if content, decodeErr := licenseContent.GetContent(); decodeErr == nil {
			docs.License = content
		}
	}

	return docs, nil
}

func (p *GitHubProvider) MonthlyCommits(ctx context.Context, repo RepoRef, month schema.Month) ([]schema.CommitRecord, error) {
	start, err := month.Time()
	if err != nil {
		return nil, err
	}
	end, err := month.Add(1).Time()
	if err != nil {
		return nil, err
	}

	commits, resp, err := p.client.Repositories.ListCommits(ctx, repo.Owner, repo.Name, &github.CommitsListOptions{
		Since:       start,
		Until:       end,
		ListOptions: github.ListOptions{PerPage: 100},
	})
	if err != nil {
		return nil, wrapGitHubErr(repo, resp, err)
	}
	defer closeBody(resp)

	out := make([]schema.CommitRecord, 0, len(commits))
	for _, c := range commits {
		if c.GetCommit() == nil {
			continue
		}
		rec := schema.CommitRecord{Message: c.GetCommit().GetMessage()}
		if author := c.GetCommit().GetAuthor(); author != nil {
			rec.AuthorName = author.GetName()
			rec.Timestamp = author.GetDate().Time
		}
		out = append(out, rec)
	}
	return out, nil
}

func (p *GitHubProvider) MonthlyIssues(ctx context.Context, repo RepoRef, month schema.Month) ([]RawIssue, error) {
	start, err := month.Time()
	if err != nil {
		return nil, err
	}
	end, err := month.Add(1).Time()
	if err != nil {
		return nil, err
	}

	issues, resp, err := p.client.Issues.ListByRepo(ctx, repo.Owner, repo.Name, &github.IssueListByRepoOptions{
		State:       "all",
		Since:       start,
		ListOptions: github.ListOptions{PerPage: 100},
	})
	if err != nil {
		return nil, wrapGitHubErr(repo, resp, err)
	}
	defer closeBody(resp)

	out := make([]RawIssue, 0, len(issues))
	for _, iss := range issues {
		if iss.IsPullRequest() {
			continue
		}
		if iss.CreatedAt == nil || iss.CreatedAt.Time.Before(start) || !iss.CreatedAt.Time.Before(end) {
			continue
		}
		labels := make([]string, 0, len(iss.Labels))
		for _, l := range iss.Labels {
			labels = append(labels, l.GetName())
		}
		reactions := 0
		if iss.Reactions != nil {
			reactions = iss.Reactions.GetTotalCount()
		}
		out = append(out, RawIssue{
			ID:             fmt.Sprintf("%d", iss.GetNumber()),
			Title:          iss.GetTitle(),
			Body:           iss.GetBody(),
			Labels:         labels,
			CommentsCount:  iss.GetComments(),
			ReactionsCount: reactions,
			CreatedAt:      iss.CreatedAt.Time,
		})
	}
	return out, nil
}

func (p *GitHubProvider) MonthlyReleases(ctx context.Context, repo RepoRef, month schema.Month) ([]schema.ReleaseRecord, error) {
	start, err := month.Time()
	if err != nil {
		return nil, err
	}
	end, err := month.Add(1).Time()
	if err != nil {
		return nil, err
	}

	releases, resp, err := p.client.Repositories.ListReleases(ctx, repo.Owner, repo.Name, &github.ListOptions{PerPage: 100})
	if err != nil {
		return nil, wrapGitHubErr(repo, resp, err)
	}
	defer closeBody(resp)

	out := make([]schema.ReleaseRecord, 0)
	for _, r := range releases {
		if r.PublishedAt == nil || r.PublishedAt.Time.Before(start) || !r.PublishedAt.Time.Before(end) {
			continue
		}
		out = append(out, schema.ReleaseRecord{
			Name:        r.GetName(),
			Body:        r.GetBody(),
			PublishedAt: r.PublishedAt.Time,
		})
	}
	return out, nil
}

func closeBody(resp *github.Response) {
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
}

// wrapGitHubErr classifies a go-github error per §4.1: auth failures and
// 4xx other than 429 are permanent; everything else (network errors, 5xx,
// 429) is transient and eligible for backoff retry.
func wrapGitHubErr(repo RepoRef, resp *github.Response, err error) error {
	if resp != nil && resp.StatusCode != 0 {
		if ClassifyHTTPStatus(resp.StatusCode) {
			return &schema.IngestionPermanentError{
				Repo:   repo.Key(),
				Reason: fmt.Sprintf("github returned %d: %s", resp.StatusCode, strings.TrimSpace(err.Error())),
			}
		}
	}
	return &schema.IngestionTransientError{Repo: repo.Key(), Stream: "github", Err: err}
}
