package api

import (
	"context"
	"net/http"
)

func (c *Client) AdminStats(ctx context.Context) (*AdminStats, error) {
	var out AdminStats
	if err := c.get(ctx, "/admin/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Users(ctx context.Context) (*UserList, error) {
	var out UserList
	if err := c.get(ctx, "/admin/users", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetUserActive enables or disables the account for email.
func (c *Client) SetUserActive(ctx context.Context, email string, active bool) error {
	body := map[string]bool{"is_active": active}
	return c.sendJSON(ctx, http.MethodPut, "/admin/users/"+segment(email), nil, body, nil)
}

// ResetPassword issues a temporary password for email and returns it.
func (c *Client) ResetPassword(ctx context.Context, email string) (string, error) {
	var out PasswordReset
	if err := c.sendJSON(ctx, http.MethodPost, "/admin/users/"+segment(email)+"/reset-password", nil, nil, &out); err != nil {
		return "", err
	}
	return out.TemporaryPassword, nil
}

func (c *Client) GuestSessions(ctx context.Context) (*GuestSessionList, error) {
	var out GuestSessionList
	if err := c.get(ctx, "/admin/guest-sessions", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SanityResults(ctx context.Context) (*SanityReport, error) {
	var out SanityReport
	if err := c.get(ctx, "/admin/sanity/results", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RunSanity asks the backend to execute its self-test suite and returns the report.
func (c *Client) RunSanity(ctx context.Context) (*SanityReport, error) {
	var out SanityReport
	if err := c.sendJSON(ctx, http.MethodPost, "/admin/sanity/run", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
