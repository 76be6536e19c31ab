// Package ghapi is the small slice of the GitHub REST API ghswitch uses:
// creating a repository for the authenticated user and checking a token.
package ghapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// DefaultTimeout bounds each API request.
const DefaultTimeout = 30 * time.Second

// API errors.
var (
	// ErrTokenRequired indicates an empty token was supplied.
	ErrTokenRequired = errors.New("GitHub token is required")

	// ErrRepoExists indicates GitHub rejected the repository (HTTP 422),
	// usually because the name is taken or invalid.
	ErrRepoExists = errors.New("repository already exists or name is invalid")

	// ErrUnauthorized indicates the token was rejected.
	ErrUnauthorized = errors.New("GitHub token rejected")
)

// APIError carries a non-success response message from GitHub.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("GitHub API returned %d", e.StatusCode)
	}
	return fmt.Sprintf("GitHub API returned %d: %s", e.StatusCode, e.Message)
}

// Repository is a created repository.
type Repository struct {
	FullName string
	HTMLURL  string
	SSHURL   string
	Private  bool
}

// User is the owner of a token.
type User struct {
	Login string
	Name  string
	Email string
}

// Client calls the GitHub API with one account's token.
type Client struct {
	client *github.Client
}

type options struct {
	baseURL string
	timeout time.Duration
}

// Option configures a Client.
type Option func(*options)

// WithBaseURL points the client at another API root, such as a test
// server or GitHub Enterprise.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// New creates a client authenticated with token.
func New(token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrTokenRequired
	}

	o := options{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = o.timeout
	client := github.NewClient(tc)

	if o.baseURL != "" {
		base := o.baseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := client.BaseURL.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse base URL: %w", err)
		}
		client.BaseURL = u
	}

	return &Client{client: client}, nil
}

// CreateRepo creates a repository owned by the token's user
// (POST /user/repos).
func (c *Client) CreateRepo(ctx context.Context, name string, private bool) (*Repository, error) {
	repo, _, err := c.client.Repositories.Create(ctx, "", &github.Repository{
		Name:    github.String(name),
		Private: github.Bool(private),
	})
	if err != nil {
		return nil, translate("create repository", err)
	}

	return &Repository{
		FullName: repo.GetFullName(),
		HTMLURL:  repo.GetHTMLURL(),
		SSHURL:   repo.GetSSHURL(),
		Private:  repo.GetPrivate(),
	}, nil
}

// ValidateToken fetches the authenticated user (GET /user).
func (c *Client) ValidateToken(ctx context.Context) (*User, error) {
	user, _, err := c.client.Users.Get(ctx, "")
	if err != nil {
		return nil, translate("validate token", err)
	}
	return &User{
		Login: user.GetLogin(),
		Name:  user.GetName(),
		Email: user.GetEmail(),
	}, nil
}

func translate(op string, err error) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusUnprocessableEntity:
			return fmt.Errorf("%s: %w", op, ErrRepoExists)
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: %w", op, ErrUnauthorized)
		}
		return fmt.Errorf("%s: %w", op, &APIError{
			StatusCode: ghErr.Response.StatusCode,
			Message:    ghErr.Message,
		})
	}
	return fmt.Errorf("%s: %w", op, err)
}
