package api

import (
	"context"
	"fmt"
	"net/http"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"company_name"`
	Subdomain   string `json:"subdomain,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Login: POST /auth/login, returns the access token.
func (c *Client) Login(ctx context.Context, cred Credentials) (string, error) {
	var out tokenResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: "/auth/login", body: cred}, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("login: empty access_token")
	}
	return out.AccessToken, nil
}

// Register: POST /auth/register. It does not log in.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/auth/register", body: reg}, nil)
}
