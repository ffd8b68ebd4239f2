package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v84/github"
	"github.com/rs/zerolog/log"
)

// PullRequest describes a pull request to open
type PullRequest struct {
	Owner string
	Repo  string
	Title string
	Body  string
	Head  string
	Base  string
	Draft bool
}

// Client opens pull requests on GitHub
type Client struct {
	gh *github.Client
}

// NewClient creates a client authenticated with token. A non-empty baseURL
// points it at another API endpoint, such as GitHub Enterprise.
func NewClient(token, baseURL string) (*Client, error) {
	gh := github.NewClient(nil)
	if token != "" {
		gh = gh.WithAuthToken(token)
	}
	if baseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid github api url %q: %w", baseURL, err)
		}
		gh.BaseURL = u
	}
	return &Client{gh: gh}, nil
}

// CreatePullRequest opens pr and returns its web URL
func (c *Client) CreatePullRequest(ctx context.Context, pr PullRequest) (string, error) {
	log.Info().
		Str("repo", pr.Owner+"/"+pr.Repo).
		Str("head", pr.Head).
		Str("base", pr.Base).
		Bool("draft", pr.Draft).
		Msg("Creating pull request")

	created, _, err := c.gh.PullRequests.Create(ctx, pr.Owner, pr.Repo, &github.NewPullRequest{
		Title: github.Ptr(pr.Title),
		Body:  github.Ptr(pr.Body),
		Head:  github.Ptr(pr.Head),
		Base:  github.Ptr(pr.Base),
		Draft: github.Ptr(pr.Draft),
	})
	if err != nil {
		return "", fmt.Errorf("creating pull request: %w", err)
	}
	return created.GetHTMLURL(), nil
}

// ParseRemote extracts owner and repository from a GitHub remote URL in
// scp-like (git@github.com:o/r.git), ssh:// or https:// form
func ParseRemote(remote string) (owner, repo string, err error) {
	remote = strings.TrimSpace(remote)
	var path string
	switch {
	case strings.Contains(remote, "://"):
		u, perr := url.Parse(remote)
		if perr != nil {
			return "", "", fmt.Errorf("invalid remote url %q: %w", remote, perr)
		}
		path = u.Path
	case strings.Contains(remote, ":"):
		path = remote[strings.Index(remote, ":")+1:]
	default:
		return "", "", fmt.Errorf("unrecognized remote url %q", remote)
	}

	parts := strings.Split(strings.Trim(strings.TrimSuffix(path, ".git"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("remote url %q does not name an owner/repository", remote)
	}
	return parts[0], parts[1], nil
}

// SplitDescription splits model output into a title (the first non-empty
// line) and a body (the rest)
func SplitDescription(text string) (title, body string) {
	text = strings.TrimSpace(text)
	title, body, _ = strings.Cut(text, "\n")
	title = strings.TrimSpace(strings.TrimLeft(title, "# "))
	return title, strings.TrimSpace(body)
}
