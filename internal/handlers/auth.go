package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/contactbook/apiserver/internal/services"
	"github.com/contactbook/apiserver/internal/session"
	"github.com/contactbook/apiserver/types"
	"github.com/go-chi/chi/v5"
)

const (
	authRequiredMessage = "Authentication required"
	badTokenMessage     = "Invalid or expired token"
	revokedMessage      = "Token has been revoked"
	forbiddenMessage    = "You do not have permission to perform this action"
)

// AuthHandler provides login, logout and identity endpoints.
type AuthHandler struct {
	userService *services.UserService
	tokens      *session.Tokens
	revoker     session.Revoker
}

func NewAuthHandler(userService *services.UserService, tokens *session.Tokens, revoker session.Revoker) *AuthHandler {
	if revoker == nil {
		revoker = session.NoopRevoker{}
	}
	return &AuthHandler{
		userService: userService,
		tokens:      tokens,
		revoker:     revoker,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/login", handler.Login)
	r.With(handler.RequireAuth).Post("/logout", handler.Logout)
	r.With(handler.RequireAuth).Get("/me", handler.Me)
}

// RequireAuth verifies the bearer token, rejects revoked ones and stores the
// claims in the request context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, r, services.AuthFailure(authRequiredMessage))
			return
		}

		claims, err := h.tokens.Parse(tokenString)
		if err != nil {
			writeError(w, r, services.AuthFailure(badTokenMessage))
			return
		}

		revoked, err := h.revoker.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if revoked {
			writeError(w, r, services.AuthFailure(revokedMessage))
			return
		}

		ctx := context.WithValue(r.Context(), contextClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole admits requests whose token carries at least one of roles.
func requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := claimsFromContext(r.Context())
			if !ok {
				writeError(w, r, services.AuthFailure(authRequiredMessage))
				return
			}
			if !types.HasAnyRole(claims.Roles, roles...) {
				writeError(w, r, services.Forbidden(forbiddenMessage))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Login verifies credentials and returns a session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeObject(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, _, err := h.tokens.Issue(user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Message: "Login successful",
		Token:   token,
		User:    newUserResponse(user),
	})
}

// Logout revokes the presented token until it would have expired.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, r, services.AuthFailure(authRequiredMessage))
		return
	}

	if claims.ExpiresAt != nil {
		if err := h.revoker.Revoke(r.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
			writeError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, LogoutResponse{Success: true, Message: "Logout successful"})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, r, services.AuthFailure(authRequiredMessage))
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		writeError(w, r, services.AuthFailure(badTokenMessage))
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(user))
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

type LoginResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    UserResponse `json:"user"`
}

type LogoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func newUserResponse(user types.User) UserResponse {
	return UserResponse{
		ID:       user.ID,
		Username: user.Username,
		Roles:    types.NormalizeRoles(user.Roles),
	}
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
