// Package auth resolves the seller behind a request.
//
// Upload code never reads identity from a global. It asks an Accessor, which
// looks first at the request context and then at a Fetcher (normally the
// marketplace /auth/me endpoint), caching the answer per bearer token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotAuthenticated is returned when no seller can be resolved.
var ErrNotAuthenticated = errors.New("not authenticated")

// User is the authenticated seller.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

type contextKey string

const (
	ctxKeyUser  contextKey = "auth_user"
	ctxKeyToken contextKey = "auth_token"
)

// ContextWithUser stores u in ctx.
func ContextWithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKeyUser, u)
}

// UserFromContext returns the user stored by ContextWithUser.
func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKeyUser).(User)
	return u, ok && u.ID != ""
}

// ContextWithToken stores the caller's bearer token in ctx.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxKeyToken, token)
}

// TokenFromContext returns the bearer token stored by ContextWithToken.
func TokenFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyToken).(string); ok {
		return v
	}
	return ""
}

// Fetcher loads the current user from an identity source.
type Fetcher interface {
	CurrentUser(ctx context.Context) (User, error)
}

type cachedUser struct {
	user    User
	expires time.Time
}

// Accessor resolves the current seller.
type Accessor struct {
	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	cache map[string]cachedUser
}

// NewAccessor creates an accessor. fetcher may be nil, in which case only
// users already in the context are returned. ttl bounds how long a fetched
// user is reused for the same token.
func NewAccessor(fetcher Fetcher, ttl time.Duration) *Accessor {
	return &Accessor{
		fetcher: fetcher,
		ttl:     ttl,
		now:     time.Now,
		cache:   make(map[string]cachedUser),
	}
}

// Current returns the seller for ctx. A context without a user or a bearer
// token is never resolved, even when the fetcher has a default credential.
func (a *Accessor) Current(ctx context.Context) (User, error) {
	if u, ok := UserFromContext(ctx); ok {
		return u, nil
	}
	token := TokenFromContext(ctx)
	if a.fetcher == nil || token == "" {
		return User{}, ErrNotAuthenticated
	}

	if u, ok := a.cached(token); ok {
		return u, nil
	}

	u, err := a.fetcher.CurrentUser(ctx)
	if err != nil {
		return User{}, fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
	}
	if u.ID == "" {
		return User{}, ErrNotAuthenticated
	}

	if a.ttl > 0 {
		a.mu.Lock()
		a.cache[token] = cachedUser{user: u, expires: a.now().Add(a.ttl)}
		a.mu.Unlock()
	}
	return u, nil
}

// cached returns the unexpired user for token and evicts an expired one.
func (a *Accessor) cached(token string) (User, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.cache[token]
	if !ok {
		return User{}, false
	}
	if !a.now().Before(c.expires) {
		delete(a.cache, token)
		return User{}, false
	}
	return c.user, true
}

// Sweep removes every expired entry and returns how many were dropped.
func (a *Accessor) Sweep() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	n := 0
	for token, c := range a.cache {
		if !now.Before(c.expires) {
			delete(a.cache, token)
			n++
		}
	}
	return n
}

// Forget drops the cached user for token.
func (a *Accessor) Forget(token string) {
	a.mu.Lock()
	delete(a.cache, token)
	a.mu.Unlock()
}
