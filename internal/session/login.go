package session

import (
	"context"
	"time"

	"regportal/internal/apiclient"
	"regportal/internal/auth"
	"regportal/internal/domain"
	"regportal/internal/validate"
)

// DefaultTTL is assumed when neither the backend nor the token says when
// the session ends.
const DefaultTTL = 24 * time.Hour

// Login signs in, starts the session and returns the admin's home route.
// Invalid input returns validate.Errors without calling the backend.
func Login(ctx context.Context, api *apiclient.Client, s *Session, form domain.LoginForm) (string, error) {
	if errs := validate.Login(form); len(errs) > 0 {
		return "", errs
	}
	res, err := api.Login(ctx, form)
	if err != nil {
		return "", err
	}
	if err := s.Establish(ctx, res.Token, res.Admin, expiryOf(res, s.now())); err != nil {
		return "", err
	}
	return domain.AdminHome(res.Admin), nil
}

func expiryOf(res apiclient.LoggedIn, now time.Time) time.Time {
	if res.ExpiresAt > 0 {
		return time.UnixMilli(res.ExpiresAt)
	}
	if exp, ok := auth.ExpiryFromToken(res.Token); ok {
		return exp
	}
	return now.Add(DefaultTTL)
}
