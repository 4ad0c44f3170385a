package gateway

import (
	"context"
	"sync"
	"time"
)

// Token is a gateway API access token with its expiry
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// TokenProvider fetches a fresh access token from the gateway's auth endpoint
type TokenProvider interface {
	FetchToken(ctx context.Context) (Token, error)
}

// TokenSource yields a valid access token for outbound gateway calls
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenCache shares a fetched token across service replicas
type TokenCache interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string, ttl time.Duration) error
}

// expiryMargin is subtracted from the token lifetime so a token is never
// used within a minute of expiring mid-request.
const expiryMargin = time.Minute

// CachedTokenSource holds the current access token and refreshes it before
// expiry. The clock is injected so expiry behavior is testable.
type CachedTokenSource struct {
	provider TokenProvider
	cache    TokenCache // optional
	clock    func() time.Time

	mu      sync.Mutex
	current Token
}

// NewCachedTokenSource creates a token source backed by provider. cache may
// be nil; clock defaults to time.Now.
func NewCachedTokenSource(provider TokenProvider, cache TokenCache, clock func() time.Time) *CachedTokenSource {
	if clock == nil {
		clock = time.Now
	}
	return &CachedTokenSource{
		provider: provider,
		cache:    cache,
		clock:    clock,
	}
}

// AccessToken returns the cached token while it remains valid, otherwise
// fetches a new one.
func (s *CachedTokenSource) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	if s.current.Value != "" && now.Before(s.current.ExpiresAt.Add(-expiryMargin)) {
		return s.current.Value, nil
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx); err == nil && cached != "" {
			// Shared tokens carry no expiry; trust the cache TTL and
			// re-check on the next refresh cycle.
			s.current = Token{Value: cached, ExpiresAt: now.Add(expiryMargin * 2)}
			return cached, nil
		}
	}

	token, err := s.provider.FetchToken(ctx)
	if err != nil {
		return "", err
	}
	s.current = token

	if s.cache != nil {
		ttl := token.ExpiresAt.Sub(now) - expiryMargin
		if ttl > 0 {
			_ = s.cache.Set(ctx, token.Value, ttl)
		}
	}

	return token.Value, nil
}
