package api

import (
	"context"
	"fmt"
	"net/http"

	"client_go/internal/domain"
	"client_go/internal/session"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	JWT string `json:"jwt"`
}

// Login exchanges credentials for a session. It does not persist anything.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	var resp loginResponse
	if err := c.do(ctx, request{
		op:     "login",
		method: http.MethodPost,
		path:   "/auth/login",
		body:   loginRequest{Email: email, Password: password},
	}, &resp); err != nil {
		return nil, err
	}
	if resp.JWT == "" {
		return nil, fmt.Errorf("login: no token returned: %w", domain.ErrMalformedResponse)
	}
	sess, err := session.NewSession(resp.JWT, email)
	if err != nil {
		return nil, fmt.Errorf("login: %w: %v", domain.ErrMalformedResponse, err)
	}
	return sess, nil
}

func (c *Client) Register(ctx context.Context, p domain.Profile) error {
	return c.do(ctx, request{
		op:     "register",
		method: http.MethodPost,
		path:   "/auth/register",
		body:   p,
	}, nil)
}
