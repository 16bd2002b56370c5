package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"regportal/internal/domain"
)

// LoggedIn is a successful admin sign-in. ExpiresAt is epoch millis and
// zero when the backend did not say.
type LoggedIn struct {
	Token     string       `json:"token"`
	Admin     domain.Admin `json:"admin"`
	ExpiresAt int64        `json:"expiresAt"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, form domain.LoginForm) (LoggedIn, error) {
	body, err := jsonBody(form)
	if err != nil {
		return LoggedIn{}, err
	}
	var out LoggedIn
	err = c.do(ctx, request{
		endpoint:    "login",
		method:      http.MethodPost,
		path:        "/api/admin/login",
		body:        body,
		contentType: "application/json",
		timeout:     AdminTimeout,
		anonymous:   true,
	}, &out)
	if err != nil {
		return LoggedIn{}, err
	}
	if out.Token == "" {
		return LoggedIn{}, malformed("login", "response has no token")
	}
	return out, nil
}

// Admins lists every admin account.
func (c *Client) Admins(ctx context.Context) ([]domain.Admin, error) {
	var out struct {
		Admins *[]domain.Admin `json:"admins"`
	}
	err := c.do(ctx, request{
		endpoint: "admins",
		method:   http.MethodGet,
		path:     "/api/admins",
		timeout:  AdminTimeout,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Admins == nil {
		return nil, malformed("admins", `expected "admins" array`)
	}
	return *out.Admins, nil
}

// AdminStats fetches the per-role account counts.
func (c *Client) AdminStats(ctx context.Context) (domain.AdminStats, error) {
	var out struct {
		Stats *domain.AdminStats `json:"stats"`
	}
	err := c.do(ctx, request{
		endpoint: "admin_stats",
		method:   http.MethodGet,
		path:     "/api/admins/stats",
		timeout:  AdminTimeout,
	}, &out)
	if err != nil {
		return domain.AdminStats{}, err
	}
	if out.Stats == nil {
		return domain.AdminStats{}, malformed("admin_stats", `expected "stats" object`)
	}
	return *out.Stats, nil
}

// CreateAdmin adds an admin account.
func (c *Client) CreateAdmin(ctx context.Context, a domain.NewAdmin) (domain.Admin, error) {
	body, err := jsonBody(a)
	if err != nil {
		return domain.Admin{}, err
	}
	var out struct {
		Admin domain.Admin `json:"admin"`
	}
	err = c.do(ctx, request{
		endpoint:    "create_admin",
		method:      http.MethodPost,
		path:        "/api/admins",
		body:        body,
		contentType: "application/json",
		timeout:     AdminTimeout,
	}, &out)
	return out.Admin, err
}

// DeleteAdmin removes an admin account by id.
func (c *Client) DeleteAdmin(ctx context.Context, id string) error {
	return c.do(ctx, request{
		endpoint: "delete_admin",
		method:   http.MethodDelete,
		path:     "/api/admins/" + url.PathEscape(id),
		timeout:  AdminTimeout,
	}, nil)
}
