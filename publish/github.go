package publish

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"
	"go.uber.org/zap"
)

const commentsPerPage = 100

// GitHub publishes the report as a pull request comment.
type GitHub struct {
	Owner       string
	Repo        string
	PullRequest int
	Log         *zap.Logger

	client *github.Client
}

// NewGitHub returns a publisher for one pull request. An empty token is
// an ErrMissingCredential. baseURL points at the REST API root, e.g.
// "https://api.github.com" or a GitHub Enterprise "/api/v3" endpoint.
func NewGitHub(baseURL, token, owner, repo string, pullRequest int, log *zap.Logger) (*GitHub, error) {
	return newGitHub(baseURL, token, owner, repo, pullRequest, &http.Client{Timeout: 30 * time.Second}, log)
}

func newGitHub(baseURL, token, owner, repo string, pullRequest int, hc *http.Client, log *zap.Logger) (*GitHub, error) {
	if token == "" {
		return nil, fmt.Errorf("github token: %w", ErrMissingCredential)
	}
	if log == nil {
		log = zap.NewNop()
	}

	client := github.NewClient(hc).WithAuthToken(token)
	if baseURL != "" {
		u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("github api url: %w", err)
		}
		client.BaseURL = u
	}
	client.UserAgent = "diagcompare/0.1"

	return &GitHub{
		Owner:       owner,
		Repo:        repo,
		PullRequest: pullRequest,
		Log:         log,
		client:      client,
	}, nil
}

// Upsert edits the first comment containing the report marker or posts a
// new one.
func (g *GitHub) Upsert(ctx context.Context, body string) (Result, error) {
	existing, err := g.findReport(ctx)
	if err != nil {
		return Result{}, err
	}

	comment := &github.IssueComment{Body: github.Ptr(body)}
	if existing != nil {
		out, _, err := g.client.Issues.EditComment(ctx, g.Owner, g.Repo, existing.GetID(), comment)
		if err != nil {
			return Result{}, fmt.Errorf("update comment %d: %w", existing.GetID(), err)
		}
		g.Log.Info("report comment updated", zap.Int64("comment_id", out.GetID()), zap.Int("pr", g.PullRequest))
		return Result{ID: out.GetID(), URL: out.GetHTMLURL()}, nil
	}

	out, _, err := g.client.Issues.CreateComment(ctx, g.Owner, g.Repo, g.PullRequest, comment)
	if err != nil {
		return Result{}, fmt.Errorf("create comment: %w", err)
	}
	g.Log.Info("report comment created", zap.Int64("comment_id", out.GetID()), zap.Int("pr", g.PullRequest))
	return Result{ID: out.GetID(), Created: true, URL: out.GetHTMLURL()}, nil
}

func (g *GitHub) findReport(ctx context.Context) (*github.IssueComment, error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: commentsPerPage},
	}
	for {
		comments, resp, err := g.client.Issues.ListComments(ctx, g.Owner, g.Repo, g.PullRequest, opts)
		if err != nil {
			return nil, fmt.Errorf("list comments: %w", err)
		}
		for _, c := range comments {
			if IsReport(c.GetBody()) {
				return c, nil
			}
		}
		if resp.NextPage == 0 {
			return nil, nil
		}
		opts.Page = resp.NextPage
	}
}
