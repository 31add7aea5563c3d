package server

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/ai-runner/internal/audit"
	"github.com/ziadkadry99/ai-runner/internal/auth"
	"github.com/ziadkadry99/ai-runner/internal/db"
	"github.com/ziadkadry99/ai-runner/internal/inference/inferencetest"
)

func newTestServer(t *testing.T, cfg Config, verifier *auth.Verifier) *Server {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return New(cfg, inferencetest.NewDispatcher(t), verifier, audit.NewStore(database))
}

func do(t *testing.T, srv *Server, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	var body map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	}
	return w, body
}

func jsonRequest(method, path string, body any) *http.Request {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, fields map[string]string, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		fw.Write([]byte(content))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/add_reference", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t, Config{Port: 0}, nil)

	w, body := do(t, srv, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])

	w, _ = do(t, srv, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestCORSHeaders(t *testing.T) {
	srv := newTestServer(t, Config{Port: 0, AllowAll: true}, nil)

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}

func TestSummarize(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)

	w, body := do(t, srv, jsonRequest("POST", "/summarize", map[string]string{"doc": "a long story"}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "short: a long story", body["summary"])

	w, body = do(t, srv, jsonRequest("POST", "/summarize", map[string]string{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "doc")
}

func TestTranslate(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)

	form := url.Values{"doc": {"Bonjour"}, "src_lang": {"fr"}, "tgt_lang": {"en"}}
	req := httptest.NewRequest("POST", "/translate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w, body := do(t, srv, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello", body["translation"])

	w, _ = do(t, srv, jsonRequest("POST", "/translate", map[string]string{"doc": "x", "src_lang": "fr", "tgt_lang": "zz"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, srv, jsonRequest("POST", "/translate", map[string]string{"doc": "x", "src_lang": "fr", "tgt_lang": "fr"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContextPredict(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)

	w, body := do(t, srv, jsonRequest("POST", "/context_predict", map[string]string{
		"context": "Paris is the capital of France.",
		"query":   "What is the capital of France?",
	}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"Paris"}, body["result"])
}

func TestReferenceLifecycle(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)

	w, body := do(t, srv, httptest.NewRequest("GET", "/documentary_bases", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"law": []any{}}, body["documentary_bases"])

	w, body = do(t, srv, uploadRequest(t, map[string]string{"db": "law", "reference": "civil-code"},
		"civil.pdf", "A contract requires consent.\n\nThe civil code governs property."))
	require.Equal(t, http.StatusOK, w.Code, body)
	assert.Contains(t, body["message"], "civil-code")

	w, body = do(t, srv, uploadRequest(t, map[string]string{"db": "law", "reference": "civil-code"},
		"civil.pdf", "again"))
	assert.Equal(t, http.StatusConflict, w.Code)

	_, body = do(t, srv, httptest.NewRequest("GET", "/documentary_bases", nil))
	assert.Equal(t, map[string]any{"law": []any{"civil-code"}}, body["documentary_bases"])

	w, body = do(t, srv, jsonRequest("POST", "/rag_predict", map[string]string{"db": "law", "query": "what governs property?"}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{inferencetest.ChatResponse}, body["result"])

	w, _ = do(t, srv, httptest.NewRequest("DELETE", "/delete_reference?db=law&reference=civil-code", nil))
	require.Equal(t, http.StatusOK, w.Code)

	_, body = do(t, srv, httptest.NewRequest("GET", "/documentary_bases", nil))
	assert.Equal(t, map[string]any{"law": []any{}}, body["documentary_bases"])

	w, _ = do(t, srv, httptest.NewRequest("DELETE", "/delete_reference?db=law&reference=civil-code", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteReferenceFormBody(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)

	w, body := do(t, srv, uploadRequest(t, map[string]string{"db": "law", "reference": "civil-code"},
		"civil.pdf", "A contract requires consent."))
	require.Equal(t, http.StatusOK, w.Code, body)

	form := url.Values{"db": {"law"}, "reference": {"civil-code"}}
	req := httptest.NewRequest("DELETE", "/delete_reference", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w, body = do(t, srv, req)
	require.Equal(t, http.StatusOK, w.Code, body)

	_, body = do(t, srv, httptest.NewRequest("GET", "/documentary_bases", nil))
	assert.Equal(t, map[string]any{"law": []any{}}, body["documentary_bases"])

	w, body = do(t, srv, uploadRequest(t, map[string]string{"db": "law", "reference": "penal-code"},
		"penal.pdf", "Theft is punished."))
	require.Equal(t, http.StatusOK, w.Code, body)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("db", "law"))
	require.NoError(t, mw.WriteField("reference", "penal-code"))
	require.NoError(t, mw.Close())
	req = httptest.NewRequest("DELETE", "/delete_reference", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w, body = do(t, srv, req)
	require.Equal(t, http.StatusOK, w.Code, body)
}

func TestAddReferenceErrors(t *testing.T) {
	srv := newTestServer(t, Config{MaxUploadBytes: 1024}, nil)

	tests := []struct {
		name     string
		fields   map[string]string
		filename string
		content  string
		want     int
	}{
		{"unknown base", map[string]string{"db": "nope", "reference": "r"}, "a.pdf", "text", http.StatusNotFound},
		{"unsupported kind", map[string]string{"db": "law", "reference": "r"}, "a.txt", "text", http.StatusUnsupportedMediaType},
		{"missing file", map[string]string{"db": "law", "reference": "r"}, "", "", http.StatusBadRequest},
		{"missing reference", map[string]string{"db": "law"}, "a.pdf", "text", http.StatusBadRequest},
		{"too large", map[string]string{"db": "law", "reference": "r"}, "a.pdf", strings.Repeat("x", 4096), http.StatusRequestEntityTooLarge},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, _ := do(t, srv, uploadRequest(t, tc.fields, tc.filename, tc.content))
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestRagPredictUnknownBase(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)

	w, body := do(t, srv, jsonRequest("POST", "/rag_predict", map[string]string{"db": "medicine", "query": "q"}))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, body["error"])
}

func TestLanguages(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)

	w, body := do(t, srv, httptest.NewRequest("GET", "/languages", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body["languages"], "fr")
	assert.Len(t, body["routes"], 1)
}

func TestAuthRequired(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	verifier := auth.NewVerifierWithClients(auth.Client{
		ClientID: "airunner",
		Keyfunc:  func(*jwt.Token) (any, error) { return &key.PublicKey, nil },
	})
	srv := newTestServer(t, Config{}, verifier)

	w, _ := do(t, srv, httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code, "health checks skip auth")

	w, _ = do(t, srv, httptest.NewRequest("GET", "/documentary_bases", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Subject:   "alice",
		Audience:  jwt.ClaimStrings{"airunner"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString(key)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/documentary_bases", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	w, _ = do(t, srv, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = uploadRequest(t, map[string]string{"db": "law", "reference": "civil-code"}, "civil.pdf", "A contract requires consent.")
	req.Header.Set("Authorization", "Bearer "+signed)
	w, _ = do(t, srv, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest("GET", "/audit/?actor=alice", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	w, body := do(t, srv, req)
	require.Equal(t, http.StatusOK, w.Code)
	entries := body["entries"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "civil-code", entries[0].(map[string]any)["reference"])
}

func TestAuditTrail(t *testing.T) {
	srv := newTestServer(t, Config{}, nil)

	w, _ := do(t, srv, uploadRequest(t, map[string]string{"db": "law", "reference": "r1"}, "r1.pdf", "Some text."))
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, srv, httptest.NewRequest("DELETE", "/delete_reference?db=law&reference=r1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, srv, httptest.NewRequest("DELETE", "/delete_reference?db=law&reference=r1", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	w, body := do(t, srv, httptest.NewRequest("GET", "/audit/?db=law", nil))
	require.Equal(t, http.StatusOK, w.Code)
	entries := body["entries"].([]any)
	require.Len(t, entries, 2, "failed operations are not recorded")

	actions := []any{entries[0].(map[string]any)["action"], entries[1].(map[string]any)["action"]}
	assert.ElementsMatch(t, []any{"reference_added", "reference_deleted"}, actions)
	assert.Equal(t, audit.Anonymous, entries[0].(map[string]any)["actor_id"])
}
