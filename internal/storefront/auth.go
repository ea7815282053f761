package storefront

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ariefcatur/go-storefront/internal/api"
	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/session"
)

// Auth logs owners in and out. The token itself is issued by the API.
type Auth struct {
	api    *api.Client
	tokens session.TokenStore
	log    logrus.FieldLogger
}

func NewAuth(client *api.Client, tokens session.TokenStore, logger logrus.FieldLogger) *Auth {
	return &Auth{api: client, tokens: tokens, log: logger.WithField("module", "auth")}
}

// Login stores the access token and returns the owner session it grants.
func (a *Auth) Login(ctx context.Context, email, password string) (session.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return session.Session{}, apperr.Invalid("email and password are required")
	}
	token, err := a.api.Login(ctx, api.Credentials{Email: email, Password: password})
	if err != nil {
		config.LogError(a.log, "auth", "Login", "login", map[string]string{"email": email}, err)
		return session.Session{}, err
	}
	sess, err := session.Resolve(token, 0, time.Now())
	if err != nil {
		return session.Session{}, fmt.Errorf("login: %w", err)
	}
	if err := a.tokens.Save(ctx, token); err != nil {
		return session.Session{}, fmt.Errorf("save token: %w", err)
	}
	return sess, nil
}

// Register creates an owner account and store. It does not log in.
func (a *Auth) Register(ctx context.Context, email, password, companyName string) error {
	reg := api.Registration{
		Email:       strings.TrimSpace(email),
		Password:    password,
		CompanyName: strings.TrimSpace(companyName),
	}
	if reg.Email == "" || reg.Password == "" || reg.CompanyName == "" {
		return apperr.Invalid("email, password and company name are required")
	}
	if err := a.api.Register(ctx, reg); err != nil {
		config.LogError(a.log, "auth", "Register", "register", map[string]string{"email": reg.Email}, err)
		return err
	}
	return nil
}

func (a *Auth) Logout(ctx context.Context) error {
	return a.tokens.Clear(ctx)
}
