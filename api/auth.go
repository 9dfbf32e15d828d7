package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Login exchanges credentials for an access token. The backend expects an
// OAuth2 password form, so the email goes in the username field.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var out TokenResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", nil,
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns its first token.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	var out TokenResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/auth/register", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Guest starts an anonymous session, sending whatever device metadata was gathered.
func (c *Client) Guest(ctx context.Context, device DeviceInfo) (*TokenResponse, error) {
	var out TokenResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/auth/guest", nil, device, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the user the current token belongs to.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.get(ctx, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// OAuthURL is the page the user opens to sign in with provider. The backend
// redirects to redirectURI with a token query parameter once it is done.
func (c *Client) OAuthURL(provider, redirectURI string) string {
	u := fmt.Sprintf("%s/auth/oauth/%s", c.BaseURL, segment(provider))
	if redirectURI != "" {
		u += "?" + url.Values{"redirect_uri": {redirectURI}}.Encode()
	}
	return u
}
