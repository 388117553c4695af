package ingest

import (
	"context"
	"fmt"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/gitpulse-dev/gitpulse/pkg/schema"
)

// GitLabProvider implements Provider against the GitLab REST API, for
// self-hosted or gitlab.com-tracked repositories.
type GitLabProvider struct {
	client    *gitlab.Client
	projectID string
}

// NewGitLabProvider builds a GitLabProvider scoped to one project.
func NewGitLabProvider(repo RepoRef) (*GitLabProvider, error) {
	opts := []gitlab.ClientOptionFunc{}
	if repo.BaseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(repo.BaseURL))
	}
	client, err := gitlab.NewClient(repo.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("gitlab provider: %w", err)
	}
	return &GitLabProvider{
		client:    client,
		projectID: fmt.Sprintf("%s/%s", repo.Owner, repo.Name),
	}, nil
}

func (p *GitLabProvider) RepoCreatedMonth(ctx context.Context, repo RepoRef) (schema.Month, error) {
	project, resp, err := p.client.Projects.GetProject(p.projectID, nil, gitlab.WithContext(ctx))
	if err != nil {
		return "", wrapGitLabErr(repo, resp, err)
	}
	if project.CreatedAt == nil {
		return "", &schema.IngestionPermanentError{Repo: repo.Key(), Reason: "project has no creation timestamp"}
	}
	return schema.NewMonth(*project.CreatedAt), nil
}

func (p *GitLabProvider) MonthlyMetrics(ctx context.Context, repo RepoRef, month schema.Month) (map[schema.Channel]float64, error) {
	start, err := month.Time()
	if err != nil {
		return nil, err
	}
	end, err := month.Add(1).Time()
	if err != nil {
		return nil, err
	}

	out := make(map[schema.Channel]float64)

	issues, resp, err := p.client.Issues.ListProjectIssues(p.projectID, &gitlab.ListProjectIssuesOptions{
		CreatedAfter:  &start,
		CreatedBefore: &end,
		ListOptions:   gitlab.ListOptions{PerPage: 100},
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, wrapGitLabErr(repo, resp, err)
	}

	var newIssues, closedIssues, issueComments float64
	for _, iss := range issues {
		newIssues++
		issueComments += float64(iss.UserNotesCount)
		if iss.State == "closed" {
			closedIssues++
		}
	}
	out[schema.NewIssues] = newIssues
	out[schema.ClosedIssues] = closedIssues
	out[schema.IssueComments] = issueComments

	mrs, resp, err := p.client.MergeRequests.ListProjectMergeRequests(p.projectID, &gitlab.ListProjectMergeRequestsOptions{
		CreatedAfter:  &start,
		CreatedBefore: &end,
		ListOptions:   gitlab.ListOptions{PerPage: 100},
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, wrapGitLabErr(repo, resp, err)
	}
	var changeRequests, acceptedChangeRequests float64
	for _, mr := range mrs {
		changeRequests++
		if mr.State == "merged" {
			acceptedChangeRequests++
		}
	}
	out[schema.ChangeRequests] = changeRequests
	out[schema.AcceptedChangeRequests] = acceptedChangeRequests

	commits, resp, err := p.client.Commits.ListCommits(p.projectID, &gitlab.ListCommitsOptions{
		Since:       &start,
		Until:       &end,
		ListOptions: gitlab.ListOptions{PerPage: 100},
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, wrapGitLabErr(repo, resp, err)
	}
	authors := make(map[string]bool)
	for _, c := range commits {
		authors[c.AuthorName] = true
	}
	out[schema.Activity] = float64(len(commits))
	out[schema.Contributors] = float64(len(authors))

	return out, nil
}

func (p *GitLabProvider) StaticDocs(ctx context.Context, repo RepoRef) (schema.StaticDocs, error) {
	docs := schema.StaticDocs{Docs: make(map[string]string)}

	readme, resp, err := p.client.RepositoryFiles.GetFile(p.projectID, "README.md", &gitlab.GetFileOptions{Ref: gitlab.Ptr("HEAD")}, gitlab.WithContext(ctx))
	if err == nil && resp.StatusCode < 400 {
		if content, decodeErr := readme.Decode(); decodeErr == nil {
			docs.Readme = string(content)
		}
	}

	license, resp, err := p.client.RepositoryFiles.GetFile(p.projectID, "LICENSE", &gitlab.GetFileOptions{Ref: gitlab.Ptr("HEAD")}, gitlab.WithContext(ctx))
	if err == nil && resp.StatusCode < 400 {
		if content, decodeErr := license.Decode(); decodeErr == nil {
			docs.License = string(content)
		}
	}

	return docs, nil
}

func (p *GitLabProvider) MonthlyCommits(ctx context.Context, repo RepoRef, month schema.Month) ([]schema.CommitRecord, error) {
	start, err := month.Time()
	if err != nil {
		return nil, err
	}
	end, err := month.Add(1).Time()
	if err != nil {
		return nil, err
	}

	commits, resp, err := p.client.Commits.ListCommits(p.projectID, &gitlab.ListCommitsOptions{
		Since:       &start,
		Until:       &end,
		ListOptions: gitlab.ListOptions{PerPage: 100},
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, wrapGitLabErr(repo, resp, err)
	}

	out := make([]schema.CommitRecord, 0, len(commits))
	for _, c := range commits {
		out = append(out, schema.CommitRecord{
			Message:    c.Message,
			AuthorName: c.AuthorName,
			Timestamp:  *c.AuthoredDate,
		})
	}
	return out, nil
}

func (p *GitLabProvider) MonthlyIssues(ctx context.Context, repo RepoRef, month schema.Month) ([]RawIssue, error) {
	start, err := month.Time()
	if err != nil {
		return nil, err
	}
	end, err := month.Add(1).Time()
	if err != nil {
		return nil, err
	}

	issues, resp, err := p.client.Issues.ListProjectIssues(p.projectID, &gitlab.ListProjectIssuesOptions{
		CreatedAfter:  &start,
		CreatedBefore: &end,
		ListOptions:   gitlab.ListOptions{PerPage: 100},
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, wrapGitLabErr(repo, resp, err)
	}

	out := make([]RawIssue, 0, len(issues))
	for _, iss := range issues {
		if iss.CreatedAt == nil {
			continue
		}
		out = append(out, RawIssue{
			ID:             fmt.Sprintf("%d", iss.IID),
			Title:          iss.Title,
			Body:           iss.Description,
			Labels:         []string(iss.Labels),
			CommentsCount:  iss.UserNotesCount,
			ReactionsCount: iss.Upvotes + iss.Downvotes,
			CreatedAt:      *iss.CreatedAt,
		})
	}
	return out, nil
}

func (p *GitLabProvider) MonthlyReleases(ctx context.Context, repo RepoRef, month schema.Month) ([]schema.ReleaseRecord, error) {
	start, err := month.Time()
	if err != nil {
		return nil, err
	}
	end, err := month.Add(1).Time()
	if err != nil {
		return nil, err
	}

	releases, resp, err := p.client.Releases.ListReleases(p.projectID, &gitlab.ListReleasesOptions{ListOptions: gitlab.ListOptions{PerPage: 100}}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, wrapGitLabErr(repo, resp, err)
	}

	out := make([]schema.ReleaseRecord, 0)
	for _, r := range releases {
		if r.ReleasedAt == nil || r.ReleasedAt.Before(start) || !r.ReleasedAt.Before(end) {
			continue
		}
		out = append(out, schema.ReleaseRecord{
			Name:        r.Name,
			Body:        r.Description,
			PublishedAt: *r.ReleasedAt,
		})
	}
	return out, nil
}

// wrapGitLabErr classifies a GitLab SDK error per §4.1's failure table.
func wrapGitLabErr(repo RepoRef, resp *gitlab.Response, err error) error {
	if resp != nil && resp.StatusCode != 0 {
		if ClassifyHTTPStatus(resp.StatusCode) {
			return &schema.IngestionPermanentError{
				Repo:   repo.Key(),
				Reason: fmt.Sprintf("gitlab returned %d: %v", resp.StatusCode, err),
			}
		}
	}
	return &schema.IngestionTransientError{Repo: repo.Key(), Stream: "gitlab", Err: err}
}
