package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/adoptipet/adoptipet-client/internal/httpapi"
	"github.com/adoptipet/adoptipet-client/internal/session"
	"github.com/adoptipet/adoptipet-client/internal/validate"
	pkgerrors "github.com/adoptipet/adoptipet-client/pkg/errors"
	"github.com/adoptipet/adoptipet-client/pkg/logger"
)

// User is the account payload returned by the auth endpoints.
type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Client drives the authentication endpoints and persists the resulting
// bearer token through the session store.
type Client struct {
	api   *httpapi.Client
	store session.Store
	logg  *logger.Logger
	clock clock
}

func NewClient(api *httpapi.Client, store session.Store, logg *logger.Logger) (*Client, error) {
	if api == nil {
		return nil, fmt.Errorf("http client required")
	}
	if store == nil {
		return nil, fmt.Errorf("session store required")
	}
	return &Client{api: api, store: store, logg: logg, clock: systemClock{}}, nil
}

// Login authenticates and persists the returned session.
func (c *Client) Login(ctx context.Context, creds Credentials) (*User, error) {
	if err := validate.Struct(creds); err != nil {
		return nil, err
	}

	var resp loginResponse
	if err := c.api.DoPublic(ctx, "auth.login", http.MethodPost, "/auth/login", creds, &resp); err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "le serveur n'a pas renvoye de jeton")
	}

	if err := c.store.Save(ctx, session.Session{
		Token:  resp.Token,
		UserID: resp.User.ID,
		Email:  resp.User.Email,
	}); err != nil {
		return nil, err
	}

	if c.logg != nil {
		c.logg.Info(c.logg.WithUserID(ctx, resp.User.ID), "session opened")
	}
	return &resp.User, nil
}

// Register creates an account. The backend logs the user in on signup, so the
// returned session is persisted like a login.
func (c *Client) Register(ctx context.Context, input RegisterInput) (*User, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	var resp loginResponse
	if err := c.api.DoPublic(ctx, "auth.register", http.MethodPost, "/auth/signup", input, &resp); err != nil {
		return nil, err
	}
	if resp.Token != "" {
		if err := c.store.Save(ctx, session.Session{
			Token:  resp.Token,
			UserID: resp.User.ID,
			Email:  resp.User.Email,
		}); err != nil {
			return nil, err
		}
	}
	return &resp.User, nil
}

// ForgotPassword asks the backend to mail a reset link.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	payload := struct {
		Email string `json:"email" validate:"required,email"`
	}{Email: email}
	if err := validate.Struct(payload); err != nil {
		return err
	}
	return c.api.DoPublic(ctx, "auth.forgot", http.MethodPost, "/auth/forgot-password", payload, nil)
}

// ResetPassword consumes a mailed reset token.
func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	payload := struct {
		Token    string `json:"token" validate:"required"`
		Password string `json:"password" validate:"required,min=8"`
	}{Token: token, Password: password}
	if err := validate.Struct(payload); err != nil {
		return err
	}
	return c.api.DoPublic(ctx, "auth.reset", http.MethodPost, "/auth/reset-password", payload, nil)
}

// Logout drops the persisted session. Purely local: the backend uses
// stateless bearer tokens.
func (c *Client) Logout(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// CurrentSession returns the persisted session, rejecting expired tokens
// before they cost a round trip.
func (c *Client) CurrentSession(ctx context.Context) (*session.Session, error) {
	s, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if TokenExpired(s.Token, c.clock.Now()) {
		if clearErr := c.store.Clear(ctx); clearErr != nil && c.logg != nil {
			c.logg.Warn(ctx, "failed to drop expired session: "+clearErr.Error())
		}
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "votre session a expire, veuillez vous reconnecter")
	}
	return s, nil
}

type clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
