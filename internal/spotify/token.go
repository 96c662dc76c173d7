package spotify

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// tokenCache holds the current access token and fetches a new one when it
// expires or is invalidated.
//
// Design decision: oauth2.ReuseTokenSource cannot be told that a token was
// rejected before its expiry. The API does reject tokens early (revocation,
// clock skew), so we keep our own cache with an Invalidate hook.
type tokenCache struct {
	cfg *clientcredentials.Config

	// httpClient carries token requests, so they use the same proxy as API calls.
	httpClient *http.Client

	mu  sync.Mutex
	tok *oauth2.Token

	// refreshes counts fetched tokens.
	refreshes int
}

func newTokenCache(clientID, clientSecret, tokenURL string, httpClient *http.Client) *tokenCache {
	return &tokenCache{
		cfg: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		httpClient: httpClient,
	}
}

// Token returns a valid token, fetching a new one if needed.
func (c *tokenCache) Token(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tok.Valid() {
		return c.tok, nil
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.cfg.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrToken, err)
	}
	c.tok = tok
	c.refreshes++
	return tok, nil
}

// Invalidate drops the cached token if it is still the one given.
// A token already replaced by another worker is left alone.
func (c *tokenCache) Invalidate(tok *oauth2.Token) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tok == tok {
		c.tok = nil
	}
}

// Refreshes returns how many tokens were fetched.
func (c *tokenCache) Refreshes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshes
}
