// Package auth gates requests behind bearer tokens issued by the configured
// OIDC providers and validated against their JWKS endpoints.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"github.com/ziadkadry99/ai-runner/internal/apperr"
	"github.com/ziadkadry99/ai-runner/internal/config"
)

const jwksTimeout = 10 * time.Second

// validMethods are the signing algorithms accepted from identity providers.
var validMethods = []string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512", "PS256"}

// Client is one accepted token issuer: its expected audience and the
// function resolving signing keys for its tokens.
type Client struct {
	ClientID string
	Keyfunc  jwt.Keyfunc
}

// Verifier validates bearer tokens against a set of clients. A token is
// accepted as soon as one client validates it.
type Verifier struct {
	clients []Client
}

// NewVerifier builds a Verifier that fetches and refreshes each provider's
// JWKS in the background until ctx is cancelled. It fails when a JWKS cannot
// be fetched at startup.
func NewVerifier(ctx context.Context, providers []config.AuthProvider) (*Verifier, error) {
	clients := make([]Client, 0, len(providers))
	for _, p := range providers {
		k, err := newKeyfunc(ctx, p.JWKSURI)
		if err != nil {
			return nil, fmt.Errorf("loading JWKS from %s: %w", p.JWKSURI, err)
		}
		clients = append(clients, Client{ClientID: p.ClientID, Keyfunc: k.Keyfunc})
	}
	return NewVerifierWithClients(clients...), nil
}

func newKeyfunc(ctx context.Context, uri string) (keyfunc.Keyfunc, error) {
	remote, err := jwkset.NewStorageFromHTTP(uri, jwkset.HTTPClientStorageOptions{
		Ctx:             ctx,
		HTTPTimeout:     jwksTimeout,
		RefreshInterval: time.Hour,
		RefreshErrorHandler: func(_ context.Context, err error) {
			log.Printf("auth: refreshing JWKS from %s: %v", uri, err)
		},
	})
	if err != nil {
		return nil, err
	}
	storage, err := jwkset.NewHTTPClient(jwkset.HTTPClientOptions{
		HTTPURLs:          map[string]jwkset.Storage{uri: remote},
		RateLimitWaitMax:  time.Minute,
		RefreshUnknownKID: rate.NewLimiter(rate.Every(5*time.Minute), 1),
	})
	if err != nil {
		return nil, err
	}
	return keyfunc.New(keyfunc.Options{Ctx: ctx, Storage: storage})
}

// NewVerifierWithClients builds a Verifier from already resolved key functions.
func NewVerifierWithClients(clients ...Client) *Verifier {
	return &Verifier{clients: clients}
}

// Verify parses and validates a raw token. It returns apperr.ErrForbidden when
// the token is authentic but issued for no configured client, and
// apperr.ErrAuth for every other failure.
func (v *Verifier) Verify(raw string) (*jwt.RegisteredClaims, error) {
	if raw == "" {
		return nil, fmt.Errorf("missing bearer token: %w", apperr.ErrAuth)
	}

	var lastErr error
	forbidden := false
	for _, c := range v.clients {
		opts := []jwt.ParserOption{
			jwt.WithValidMethods(validMethods),
			jwt.WithExpirationRequired(),
		}
		if c.ClientID != "" {
			opts = append(opts, jwt.WithAudience(c.ClientID))
		}

		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, c.Keyfunc, opts...)
		if err == nil {
			return claims, nil
		}
		if errors.Is(err, jwt.ErrTokenInvalidAudience) {
			forbidden = true
		}
		lastErr = err
	}

	if forbidden {
		return nil, fmt.Errorf("token audience not accepted: %w", apperr.ErrForbidden)
	}
	if lastErr == nil {
		lastErr = errors.New("no identity provider configured")
	}
	return nil, fmt.Errorf("%v: %w", lastErr, apperr.ErrAuth)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

type claimsKey struct{}

// WithClaims returns a copy of ctx carrying validated token claims.
func WithClaims(ctx context.Context, claims *jwt.RegisteredClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims stored by the middleware, if any.
func ClaimsFromContext(ctx context.Context) (*jwt.RegisteredClaims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*jwt.RegisteredClaims)
	return c, ok
}

func logRejection(path string, err error) {
	log.Printf("auth: rejected request to %s: %v", path, err)
}
