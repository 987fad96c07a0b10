//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/contactbook/apiserver/config"
	"github.com/contactbook/apiserver/internal/db"
	"github.com/contactbook/apiserver/internal/server"
	"github.com/contactbook/apiserver/internal/services"
	"github.com/contactbook/apiserver/internal/storage"
	"github.com/contactbook/apiserver/internal/store"
	"github.com/contactbook/apiserver/types"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	serverPort = 18080
	password   = "testpass123!"
)

var baseURL = fmt.Sprintf("http://localhost:%d", serverPort)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	setEnv()

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown(context.Background())
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown(context.Background())
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestContactLifecycle(t *testing.T) {
	suffix := time.Now().UnixNano()
	admin := createUser(t, fmt.Sprintf("admin_%d", suffix), types.RoleAdmin)
	editor := createUser(t, fmt.Sprintf("editor_%d", suffix), types.RoleEditor)

	adminToken := login(t, admin)
	editorToken := login(t, editor)
	email := fmt.Sprintf("ana.%d@example.com", suffix)

	status, body := call(t, http.MethodPost, "/contacts", editorToken, map[string]any{
		"name":     "Ana",
		"lastname": "Pérez",
		"email":    email,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var created struct {
		Contact struct {
			ID     int64 `json:"id"`
			Active bool  `json:"active"`
		} `json:"contact"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	require.NotZero(t, created.Contact.ID)
	require.True(t, created.Contact.Active)
	path := fmt.Sprintf("/contacts/%d", created.Contact.ID)

	status, _ = call(t, http.MethodPost, "/contacts", editorToken, map[string]any{
		"name":  "Ana Again",
		"email": "ANA." + email[len("ana."):],
	})
	assert.Equal(t, http.StatusConflict, status, "unique index is case-insensitive")

	status, body = call(t, http.MethodPut, path, editorToken, map[string]any{"phone": "+56912345678"})
	assert.Equal(t, http.StatusOK, status, string(body))

	status, _ = call(t, http.MethodPut, path, editorToken, map[string]any{"phone": "12345"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, http.MethodDelete, path, editorToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = call(t, http.MethodDelete, path, adminToken, nil)
	assert.Equal(t, http.StatusOK, status, string(body))

	status, _ = call(t, http.MethodPut, path, adminToken, map[string]any{"name": "Anita"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = call(t, http.MethodDelete, path, adminToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = call(t, http.MethodPost, "/logout", adminToken, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = call(t, http.MethodGet, "/contacts", adminToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestExportSnapshot(t *testing.T) {
	ctx := context.Background()
	cfg := config.LoadConfig()

	conn, err := db.Open(ctx, cfg)
	require.NoError(t, err)
	defer conn.Close()

	objects, err := storage.Open(ctx, cfg.Storage)
	require.NoError(t, err)

	exporter := services.NewExportService(store.NewContactRepository(conn), objects)
	result, err := exporter.Export(ctx)
	require.NoError(t, err)

	snapshot, err := exporter.Read(ctx, result.Key)
	require.NoError(t, err)
	assert.Equal(t, result.Count, snapshot.Count)
	require.NoError(t, exporter.Remove(ctx, result.Key))
}

func createUser(t *testing.T, username, role string) string {
	t.Helper()
	cfg := config.LoadConfig()
	conn, err := db.Open(context.Background(), cfg)
	require.NoError(t, err)
	defer conn.Close()

	_, err = services.NewUserService(store.NewUserRepository(conn)).Create(context.Background(), services.NewUser{
		Username: username,
		Password: password,
		Roles:    []string{role},
	})
	require.NoError(t, err)
	return username
}

func login(t *testing.T, username string) string {
	t.Helper()
	status, body := call(t, http.MethodPost, "/login", "", map[string]any{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusOK, status, string(body))

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.Token
}

func call(t *testing.T, method, path, token string, payload any) (int, []byte) {
	t.Helper()
	var reader io.Reader = http.NoBody
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func setEnv() {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "contactbook")
	_ = os.Setenv("DB_PASSWORD", "contactbook")
	_ = os.Setenv("DB_NAME", "contactbook")
	_ = os.Setenv("DB_USE_SSL", "false")
	_ = os.Setenv("REDIS_ADDR", "localhost:6379")
	_ = os.Setenv("STORAGE_BACKEND", "minio")
	_ = os.Setenv("MINIO_ACCESS_KEY", "minioadmin")
	_ = os.Setenv("MINIO_SECRET_KEY", "minioadmin")
	_ = os.Setenv("MINIO_BUCKET", "contactbook")
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		conn, err := db.Open(ctx, cfg)
		if err == nil {
			return conn.Close()
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	migrationsURL := "file://" + filepath.Join(root, "internal", "db", "migrations")

	migrator, err := migrate.New(migrationsURL, db.PostgresURL(cfg.Database))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func startServer(ctx context.Context) (*server.Server, error) {
	cfg := config.LoadConfig()
	srv, err := server.New(ctx, cfg, slog.Default())
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
