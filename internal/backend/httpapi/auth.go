package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"taskgate/internal/service"
)

type userJSON struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (u userJSON) user() service.User {
	return service.User{ID: u.ID, Email: u.Email, Name: u.Name}
}

type loginResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        userJSON `json:"user"`
}

func (r loginResponse) session() (*service.Session, error) {
	if r.AccessToken == "" {
		return nil, fmt.Errorf("%w: no access token", service.ErrMalformedSession)
	}
	sess := &service.Session{User: r.User.user(), Token: r.AccessToken}
	if err := sess.User.Validate(); err != nil {
		return nil, err
	}
	return sess, nil
}

// GetSession implements service.AuthService. A rejected token yields a nil
// session rather than an error.
func (c *Client) GetSession(ctx context.Context, token string) (*service.Session, error) {
	var u userJSON
	err := c.withBearer(ctx, token).do(ctx, http.MethodGet, "/user", nil, &u)
	if errors.Is(err, service.ErrUnauthorized) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sess := &service.Session{User: u.user()}
	if err := sess.User.Validate(); err != nil {
		return nil, err
	}
	return sess, nil
}

// SignInWithPassword implements service.AuthService.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*service.Session, error) {
	var res loginResponse
	in := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/login", in, &res); err != nil {
		return nil, err
	}
	return res.session()
}

// SignUpWithPassword implements service.AuthService.
func (c *Client) SignUpWithPassword(ctx context.Context, req service.SignUpRequest) (*service.Session, error) {
	var res loginResponse
	in := map[string]string{"email": req.Email, "name": req.Name, "password": req.Password}
	if err := c.do(ctx, http.MethodPost, "/register", in, &res); err != nil {
		return nil, err
	}
	if res.AccessToken == "" {
		return nil, nil
	}
	return res.session()
}

// SignOut implements service.AuthService. Services without a logout
// endpoint use stateless tokens, so 404 and 405 count as success.
func (c *Client) SignOut(ctx context.Context, token string) error {
	err := c.withBearer(ctx, token).do(ctx, http.MethodPost, "/logout", nil, nil)
	var re *service.RemoteError
	if errors.As(err, &re) && (re.Code == http.StatusNotFound || re.Code == http.StatusMethodNotAllowed) {
		return nil
	}
	return err
}
