package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/pkg/errors"
)

type fakeProvider struct {
	token   Token
	err     error
	fetches int
}

func (p *fakeProvider) FetchToken(ctx context.Context) (Token, error) {
	p.fetches++
	if p.err != nil {
		return Token{}, p.err
	}
	return p.token, nil
}

type fakeCache struct {
	value string
	ttl   time.Duration
	sets  int
}

func (c *fakeCache) Get(ctx context.Context) (string, error) {
	return c.value, nil
}

func (c *fakeCache) Set(ctx context.Context, token string, ttl time.Duration) error {
	c.value = token
	c.ttl = ttl
	c.sets++
	return nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestAccessToken_FetchesAndReuses(t *testing.T) {
	clock := &fakeClock{now: time.Date(2023, 11, 14, 12, 0, 0, 0, time.UTC)}
	provider := &fakeProvider{token: Token{Value: "token-1", ExpiresAt: clock.now.Add(time.Hour)}}
	source := NewCachedTokenSource(provider, nil, clock.Now)

	for i := 0; i < 3; i++ {
		token, err := source.AccessToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "token-1", token)
	}

	assert.Equal(t, 1, provider.fetches, "valid token must be reused")
}

func TestAccessToken_RefreshesBeforeExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2023, 11, 14, 12, 0, 0, 0, time.UTC)}
	provider := &fakeProvider{token: Token{Value: "token-1", ExpiresAt: clock.now.Add(time.Hour)}}
	source := NewCachedTokenSource(provider, nil, clock.Now)

	_, err := source.AccessToken(context.Background())
	require.NoError(t, err)

	// Within the expiry margin the token counts as expired.
	clock.now = clock.now.Add(time.Hour - 30*time.Second)
	provider.token = Token{Value: "token-2", ExpiresAt: clock.now.Add(time.Hour)}

	token, err := source.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", token)
	assert.Equal(t, 2, provider.fetches)
}

func TestAccessToken_SharedCacheAvoidsFetch(t *testing.T) {
	clock := &fakeClock{now: time.Date(2023, 11, 14, 12, 0, 0, 0, time.UTC)}
	provider := &fakeProvider{}
	cache := &fakeCache{value: "shared-token"}
	source := NewCachedTokenSource(provider, cache, clock.Now)

	token, err := source.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "shared-token", token)
	assert.Equal(t, 0, provider.fetches, "cache hit must not hit the auth endpoint")
}

func TestAccessToken_PopulatesCacheOnFetch(t *testing.T) {
	clock := &fakeClock{now: time.Date(2023, 11, 14, 12, 0, 0, 0, time.UTC)}
	provider := &fakeProvider{token: Token{Value: "token-1", ExpiresAt: clock.now.Add(time.Hour)}}
	cache := &fakeCache{}
	source := NewCachedTokenSource(provider, cache, clock.Now)

	_, err := source.AccessToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "token-1", cache.value)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, time.Hour-expiryMargin, cache.ttl, "cache TTL must end before the token expires")
}

func TestAccessToken_ProviderFailure(t *testing.T) {
	clock := &fakeClock{now: time.Date(2023, 11, 14, 12, 0, 0, 0, time.UTC)}
	provider := &fakeProvider{err: errors.NewGateway("auth endpoint unavailable", nil)}
	source := NewCachedTokenSource(provider, nil, clock.Now)

	_, err := source.AccessToken(context.Background())
	assert.True(t, errors.Is(err, errors.CodeGateway))
}
