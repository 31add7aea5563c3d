package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/ai-runner/internal/apperr"
	"github.com/ziadkadry99/ai-runner/internal/config"
)

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func staticKeyfunc(key *rsa.PrivateKey) jwt.Keyfunc {
	return func(*jwt.Token) (any, error) { return &key.PublicKey, nil }
}

func signToken(t *testing.T, key *rsa.PrivateKey, audience string, expiresIn time.Duration) string {
	t.Helper()
	return signTokenWithKID(t, key, "test-key", audience, expiresIn)
}

func signTokenWithKID(t *testing.T, key *rsa.PrivateKey, kid, audience string, expiresIn time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		Audience:  jwt.ClaimStrings{audience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestVerify_ValidToken(t *testing.T) {
	key := newKey(t)
	v := NewVerifierWithClients(Client{ClientID: "ai-runner", Keyfunc: staticKeyfunc(key)})

	claims, err := v.Verify(signToken(t, key, "ai-runner", time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
}

func TestVerify_SecondProviderAccepts(t *testing.T) {
	first, second := newKey(t), newKey(t)
	v := NewVerifierWithClients(
		Client{ClientID: "web", Keyfunc: staticKeyfunc(first)},
		Client{ClientID: "cli", Keyfunc: staticKeyfunc(second)},
	)

	_, err := v.Verify(signToken(t, second, "cli", time.Hour))
	assert.NoError(t, err)
}

func TestVerify_Missing(t *testing.T) {
	v := NewVerifierWithClients(Client{ClientID: "ai-runner", Keyfunc: staticKeyfunc(newKey(t))})
	_, err := v.Verify("")
	assert.ErrorIs(t, err, apperr.ErrAuth)
}

func TestVerify_Expired(t *testing.T) {
	key := newKey(t)
	v := NewVerifierWithClients(Client{ClientID: "ai-runner", Keyfunc: staticKeyfunc(key)})

	_, err := v.Verify(signToken(t, key, "ai-runner", -time.Minute))
	assert.ErrorIs(t, err, apperr.ErrAuth)
}

func TestVerify_WrongKey(t *testing.T) {
	v := NewVerifierWithClients(Client{ClientID: "ai-runner", Keyfunc: staticKeyfunc(newKey(t))})

	_, err := v.Verify(signToken(t, newKey(t), "ai-runner", time.Hour))
	assert.ErrorIs(t, err, apperr.ErrAuth)
}

func TestVerify_WrongAudienceIsForbidden(t *testing.T) {
	key := newKey(t)
	v := NewVerifierWithClients(Client{ClientID: "ai-runner", Keyfunc: staticKeyfunc(key)})

	_, err := v.Verify(signToken(t, key, "someone-else", time.Hour))
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestVerify_Garbage(t *testing.T) {
	v := NewVerifierWithClients(Client{ClientID: "ai-runner", Keyfunc: staticKeyfunc(newKey(t))})
	_, err := v.Verify("not-a-jwt")
	assert.ErrorIs(t, err, apperr.ErrAuth)
}

func serveJWKS(t *testing.T, key *rsa.PrivateKey) *httptest.Server {
	t.Helper()
	jwk, err := jwkset.NewJWKFromKey(&key.PublicKey, jwkset.JWKOptions{
		Metadata: jwkset.JWKMetadataOptions{ALG: jwkset.AlgRS256, KID: "test-key"},
	})
	require.NoError(t, err)
	store := jwkset.NewMemoryStorage()
	require.NoError(t, store.KeyWrite(context.Background(), jwk))
	raw, err := store.JSONPublic(context.Background())
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(raw)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewVerifier_JWKS(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	key := newKey(t)
	srv := serveJWKS(t, key)

	v, err := NewVerifier(ctx, []config.AuthProvider{{ClientID: "ai-runner", JWKSURI: srv.URL}})
	require.NoError(t, err)

	claims, err := v.Verify(signToken(t, key, "ai-runner", time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)

	_, err = v.Verify(signTokenWithKID(t, key, "rotated-away", "ai-runner", time.Hour))
	assert.ErrorIs(t, err, apperr.ErrAuth)

	_, err = v.Verify(signToken(t, newKey(t), "ai-runner", time.Hour))
	assert.ErrorIs(t, err, apperr.ErrAuth)
}

func TestNewVerifier_UnreachableJWKS(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	uri := srv.URL
	srv.Close()

	_, err := NewVerifier(context.Background(), []config.AuthProvider{{ClientID: "ai-runner", JWKSURI: uri}})
	assert.Error(t, err)
}

func TestNewVerifier_JWKSBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewVerifier(context.Background(), []config.AuthProvider{{ClientID: "ai-runner", JWKSURI: srv.URL}})
	assert.Error(t, err)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer   abc "))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken(""))
}

func TestMiddleware(t *testing.T) {
	key := newKey(t)
	v := NewVerifierWithClients(Client{ClientID: "ai-runner", Keyfunc: staticKeyfunc(key)})

	var seenSubject string
	h := Middleware(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, ok := ClaimsFromContext(r.Context()); ok {
			seenSubject = c.Subject
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/documentary_bases", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))

	req = httptest.NewRequest(http.MethodGet, "/documentary_bases", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, key, "other", time.Hour))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/documentary_bases", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, key, "ai-runner", time.Hour))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "user-1", seenSubject)
}

func TestMiddleware_NilVerifierDisablesAuth(t *testing.T) {
	h := Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
