package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/contactbook/apiserver/internal/handlers"
	"github.com/contactbook/apiserver/internal/services"
	"github.com/contactbook/apiserver/internal/session"
	"github.com/contactbook/apiserver/internal/store/storetest"
	"github.com/contactbook/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

const testPassword = "password123"

var fixedNow = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

type memoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func (m *memoryRevoker) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tokenID] = expiresAt
	return nil
}

func (m *memoryRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[tokenID]
	return ok, nil
}

type fixture struct {
	router   http.Handler
	contacts *storetest.Contacts
	tokens   map[string]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	users := storetest.NewUsers()
	userService := services.NewUserService(users)
	for _, u := range []services.NewUser{
		{Username: "admin", Password: testPassword, Roles: []string{types.RoleAdmin}},
		{Username: "editor", Password: testPassword, Roles: []string{types.RoleEditor}},
		{Username: "viewer", Password: testPassword},
	} {
		_, err := userService.Create(ctx, u)
		require.NoError(t, err)
	}

	tokens, err := session.NewTokens("test-secret", time.Hour)
	require.NoError(t, err)
	auth := handlers.NewAuthHandler(userService, tokens, &memoryRevoker{revoked: map[string]time.Time{}})

	contacts := storetest.NewContacts()
	contactService := services.NewContactService(contacts, services.WithClock(func() time.Time { return fixedNow }))

	router := chi.NewRouter()
	router.Get("/healthz", handlers.Healthz)
	router.Route("/contacts", func(r chi.Router) {
		handlers.ContactRouter(r, contactService, time.FixedZone("CLT", -3*60*60), auth.RequireAuth)
	})
	handlers.AuthRouter(router, auth)

	f := &fixture{router: router, contacts: contacts, tokens: map[string]string{}}
	for _, name := range []string{"admin", "editor", "viewer"} {
		f.tokens[name] = f.login(t, name, testPassword)
	}
	return f
}

func (f *fixture) login(t *testing.T, username, password string) string {
	t.Helper()
	body := `{"username":"` + username + `","password":"` + password + `"}`
	rec := f.do(t, http.MethodPost, "/login", "", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handlers.LoginResponse
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (f *fixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handlers.ErrorResponse {
	t.Helper()
	var resp handlers.ErrorResponse
	decode(t, rec, &resp)
	return resp
}
