package client

import (
	"context"
	"net/url"

	"github.com/turtacn/ChemXGen/internal/domain/project"
	"github.com/turtacn/ChemXGen/internal/domain/user"
)

type (
	User    = user.User
	Tokens  = user.Tokens
	Project = project.Project
)

// SignInResult carries the issued tokens and the signed-in user.
type SignInResult struct {
	Tokens *Tokens `json:"tokens"`
	User   *User   `json:"user"`
}

// SignIn exchanges credentials for tokens. The client does not adopt the
// token; build a new client with WithToken.
func (c *Client) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	var out SignInResult
	body := map[string]string{"email": email, "password": password}
	if err := c.post(ctx, "/auth/signin", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Session returns the user behind the client's token.
func (c *Client) Session(ctx context.Context) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	if err := c.get(ctx, "/auth/session", &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// Projects lists showcase projects, optionally filtered by tag and a
// free-text query.
func (c *Client) Projects(ctx context.Context, tag, query string) ([]*Project, error) {
	path := "/projects"
	sep := "?"
	if tag != "" {
		path += sep + "tag=" + url.QueryEscape(tag)
		sep = "&"
	}
	if query != "" {
		path += sep + "q=" + url.QueryEscape(query)
	}
	var out struct {
		Projects []*Project `json:"projects"`
	}
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}
