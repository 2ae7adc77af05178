package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/zhouzirui/contact-desk/backend/internal/middleware"
	"github.com/zhouzirui/contact-desk/backend/internal/model/operator"
	"github.com/zhouzirui/contact-desk/backend/internal/service/identity"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)

	ops := operator.NewMemoryStore([]operator.Operator{
		{Username: "ada", DisplayName: "Ada", PasswordHash: string(hash)},
	})
	svc, err := identity.NewService(ops, nil, identity.Config{
		Secret: []byte(strings.Repeat("k", identity.MinSecretLength)),
		TTL:    30 * time.Minute,
		Issuer: "contact-desk",
	}, zerolog.Nop())
	require.NoError(t, err)

	handler := New(svc, middleware.NewAuth(svc, zerolog.Nop()), zerolog.Nop())
	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r
}

func login(t *testing.T, r http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestLoginSuccess(t *testing.T) {
	r := setupRouter(t)

	resp := login(t, r, `{"username":"ada","password":"hunter22"}`)
	require.Equal(t, http.StatusOK, resp.Code)

	var token identity.Token
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &token))
	assert.NotEmpty(t, token.Value)
	assert.Equal(t, "ada", token.Username)
	assert.True(t, token.ExpiresAt.After(time.Now()))
}

func TestLoginRejected(t *testing.T) {
	r := setupRouter(t)

	resp := login(t, r, `{"username":"ada","password":"nope"}`)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.JSONEq(t, `{"error":"Incorrect username or password."}`, resp.Body.String())

	resp = login(t, r, `{"username":"ghost","password":"hunter22"}`)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestLoginBadBody(t *testing.T) {
	r := setupRouter(t)

	assert.Equal(t, http.StatusBadRequest, login(t, r, `{`).Code)
	assert.Equal(t, http.StatusBadRequest, login(t, r, `{"username":"ada"}`).Code)
}

func TestSessionAndLogout(t *testing.T) {
	r := setupRouter(t)

	var token identity.Token
	require.NoError(t, json.Unmarshal(login(t, r, `{"username":"ada","password":"hunter22"}`).Body.Bytes(), &token))

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.Header.Set("Authorization", token.Value)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var session SessionResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &session))
	assert.Equal(t, "ada", session.Username)
	assert.Equal(t, "Ada", session.DisplayName)
	assert.WithinDuration(t, token.ExpiresAt, session.ExpiresAt, time.Second)

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token.Value)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusNoContent, resp.Code)

	// 吊销后同一令牌不再可用。
	req = httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.Header.Set("Authorization", token.Value)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestSessionRequiresToken(t *testing.T) {
	r := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
