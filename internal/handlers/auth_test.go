package handlers_test

import (
	"net/http"
	"testing"

	"github.com/contactbook/apiserver/internal/handlers"
	"github.com/contactbook/apiserver/internal/services"
	"github.com/contactbook/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginResponse(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/login", "", `{"username":"editor","password":"password123"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.LoginResponse
	decode(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Equal(t, "Login successful", resp.Message)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "editor", resp.User.Username)
	assert.Equal(t, []string{types.RoleEditor, types.RoleUser}, resp.User.Roles)
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		body   string
		status int
		kind   services.Kind
	}{
		{name: "wrong password", body: `{"username":"admin","password":"nope"}`, status: http.StatusUnauthorized, kind: services.KindAuthFailure},
		{name: "unknown user", body: `{"username":"ghost","password":"password123"}`, status: http.StatusUnauthorized, kind: services.KindAuthFailure},
		{name: "missing password", body: `{"username":"admin"}`, status: http.StatusBadRequest, kind: services.KindMalformed},
		{name: "blank username", body: `{"username":"  ","password":"password123"}`, status: http.StatusBadRequest, kind: services.KindMalformed},
		{name: "not an object", body: `"admin"`, status: http.StatusBadRequest, kind: services.KindMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/login", "", tt.body)
			require.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.kind, decodeError(t, rec).Kind)
		})
	}
}

func TestMe(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/me", f.tokens["admin"], "")
	require.Equal(t, http.StatusOK, rec.Code)

	var me handlers.UserResponse
	decode(t, rec, &me)
	assert.Equal(t, "admin", me.Username)
	assert.Equal(t, []string{types.RoleAdmin, types.RoleUser}, me.Roles)

	rec = f.do(t, http.MethodGet, "/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	token := f.tokens["editor"]

	rec := f.do(t, http.MethodPost, "/logout", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"message":"Logout successful"}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/contacts", token, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, []string{"Token has been revoked"}, decodeError(t, rec).Fields[services.MessageKey])

	fresh := f.login(t, "editor", testPassword)
	rec = f.do(t, http.MethodGet, "/contacts", fresh, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
