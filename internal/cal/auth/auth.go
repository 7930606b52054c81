// Package auth identifies the caller of a request from a signed session token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultCookieName = "calendar_session"

// Caller is who a request runs on behalf of. The zero value is anonymous.
type Caller struct {
	Actor string
}

// Authenticated reports whether the caller presented a valid session.
func (c Caller) Authenticated() bool {
	return c.Actor != ""
}

type callerKey struct{}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// FromContext returns the caller stored by Middleware, or an anonymous one.
func FromContext(ctx context.Context) Caller {
	c, _ := ctx.Value(callerKey{}).(Caller)
	return c
}

// Authenticator verifies HS256 session tokens carried either as a bearer
// token or in a cookie.
type Authenticator struct {
	secret     []byte
	cookieName string
	now        func() time.Time
}

func New(secret, cookieName string) *Authenticator {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if secret == "" {
		slog.Warn("No JWT secret configured, all requests will be anonymous")
	}
	return &Authenticator{
		secret:     []byte(secret),
		cookieName: cookieName,
		now:        time.Now,
	}
}

// Issue signs a session token for actor valid for ttl.
func (a *Authenticator) Issue(actor string, ttl time.Duration) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("jwt secret is not configured")
	}
	if strings.TrimSpace(actor) == "" {
		return "", errors.New("actor is required")
	}

	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   actor,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify parses a token and returns the caller it identifies.
func (a *Authenticator) Verify(token string) (Caller, error) {
	if len(a.secret) == 0 {
		return Caller{}, errors.New("jwt secret is not configured")
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil {
		return Caller{}, fmt.Errorf("invalid session token: %w", err)
	}
	if claims.Subject == "" {
		return Caller{}, errors.New("session token has no subject")
	}

	return Caller{Actor: claims.Subject}, nil
}

// Authenticate returns the request's caller. Missing or invalid tokens
// yield an anonymous caller.
func (a *Authenticator) Authenticate(r *http.Request) Caller {
	token := bearerToken(r)
	if token == "" {
		if c, err := r.Cookie(a.cookieName); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		return Caller{}
	}

	caller, err := a.Verify(token)
	if err != nil {
		slog.DebugContext(r.Context(), "Rejected session token", "error", err)
		return Caller{}
	}
	return caller
}

// Middleware stores the authenticated caller in the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := a.Authenticate(r)
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
