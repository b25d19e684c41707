//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/TrustyKrab/Englix-Server/config"
	"github.com/TrustyKrab/Englix-Server/internal/db"
	"github.com/TrustyKrab/Englix-Server/internal/server"
)

const (
	serverPort = 18080
)

var baseURL = fmt.Sprintf("http://localhost:%d", serverPort)

// TestMain starts an in-process server. E2E_STORE selects the backend
// (memory by default; postgres and mongo read the usual DB_* / MONGO_* variables).
func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg := testConfig()

	if cfg.StoreBackend == config.StorePostgres {
		if err := waitForPostgres(ctx, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
			os.Exit(1)
		}
		if err := runMigrations(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
			os.Exit(1)
		}
	}

	srv, err := server.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		os.Exit(1)
	}
	go func() {
		_ = srv.Start()
	}()

	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown(context.Background())
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown(context.Background())
	os.Exit(code)
}

func TestUserLifecycle(t *testing.T) {
	suffix := time.Now().UnixNano()
	username := fmt.Sprintf("learner_%d", suffix)
	email := fmt.Sprintf("%s@example.com", username)
	password := "testpass123!"

	client := newClient(t)

	status, body := client.call(t, http.MethodPost, "/user/register", map[string]any{
		"email": email, "username": username, "password": password, "notlp": "08123456789",
	})
	expectStatus(t, http.StatusCreated, status, body)

	status, body = client.call(t, http.MethodPost, "/user/register", map[string]any{
		"email": email, "username": username + "_other", "password": password,
	})
	expectStatus(t, http.StatusBadRequest, status, body)

	status, body = client.call(t, http.MethodPost, "/user/login", map[string]any{
		"email": email, "password": "wrong",
	})
	expectStatus(t, http.StatusBadRequest, status, body)

	status, body = client.call(t, http.MethodPost, "/user/login", map[string]any{
		"email": email, "password": password,
	})
	expectStatus(t, http.StatusOK, status, body)
	var login struct {
		Token string `json:"token"`
	}
	decodeInto(t, body, &login)
	if login.Token == "" {
		t.Fatalf("expected token in login response")
	}

	// The cookie jar now carries the session.
	status, body = client.call(t, http.MethodGet, "/user/me", nil)
	expectStatus(t, http.StatusOK, status, body)
	var me userResponse
	decodeInto(t, body, &me)
	if me.Username != username {
		t.Fatalf("unexpected current user: %q", me.Username)
	}

	for i := 1; i <= 2; i++ {
		status, body = client.call(t, http.MethodPost, "/user/submitresult", map[string]any{
			"username": username, "score": 60 + i*10, "quizname": "tenses",
		})
		expectStatus(t, http.StatusOK, status, body)
	}

	status, body = client.call(t, http.MethodGet, "/user/getUserByUsername?username="+username, nil)
	expectStatus(t, http.StatusOK, status, body)
	var fetched userResponse
	decodeInto(t, body, &fetched)
	if len(fetched.Quiz) != 2 || fetched.Quiz[0].Attempt != 1 || fetched.Quiz[1].Attempt != 2 {
		t.Fatalf("unexpected quiz history: %+v", fetched.Quiz)
	}

	status, body = client.call(t, http.MethodPatch, "/user/"+me.ID+"/updateUser", map[string]any{"notlp": "0800"})
	expectStatus(t, http.StatusOK, status, body)

	status, body = client.call(t, http.MethodGet, "/user/"+me.ID+"/getUserByID", nil)
	expectStatus(t, http.StatusOK, status, body)
	decodeInto(t, body, &fetched)
	if fetched.Phone != "0800" || fetched.Email != email {
		t.Fatalf("update did not merge: %+v", fetched)
	}

	status, body = client.call(t, http.MethodPost, "/user/forgot-password", map[string]any{"email": email})
	expectStatus(t, http.StatusOK, status, body)

	status, body = client.call(t, http.MethodGet, "/user/logout", nil)
	expectStatus(t, http.StatusOK, status, body)

	status, body = client.call(t, http.MethodGet, "/user/me", nil)
	expectStatus(t, http.StatusUnauthorized, status, body)

	status, body = client.call(t, http.MethodDelete, "/user/"+me.ID+"/deleteUser", nil)
	expectStatus(t, http.StatusOK, status, body)

	status, body = client.call(t, http.MethodGet, "/user/"+me.ID+"/getUserByID", nil)
	expectStatus(t, http.StatusNotFound, status, body)
}

type userResponse struct {
	ID       string `json:"_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Phone    string `json:"notlp"`
	Quiz     []struct {
		Attempt  int     `json:"percoobaan"`
		Score    float64 `json:"score"`
		QuizName string  `json:"quizname"`
	} `json:"quiz"`
}

type apiClient struct {
	http *http.Client
}

func newClient(t *testing.T) *apiClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &apiClient{http: &http.Client{Jar: jar, Timeout: 10 * time.Second}}
}

func (c *apiClient) call(t *testing.T, method, path string, payload any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, body
}

func expectStatus(t *testing.T, want, got int, body []byte) {
	t.Helper()
	if want != got {
		t.Fatalf("expected status %d, got %d: %s", want, got, strings.TrimSpace(string(body)))
	}
}

func decodeInto(t *testing.T, body []byte, dst any) {
	t.Helper()
	if err := json.Unmarshal(body, dst); err != nil {
		t.Fatalf("decode %s: %v", strings.TrimSpace(string(body)), err)
	}
}

func testConfig() config.Config {
	cfg := config.LoadConfig()
	cfg.ServerPort = serverPort
	cfg.JWTSecret = "e2e-secret"
	cfg.Mail.Backend = config.MailLog
	cfg.StoreBackend = config.StoreMemory
	// The suite talks plain http, and the jar withholds Secure cookies there.
	cfg.CookieCrossSite = false
	if backend := strings.TrimSpace(os.Getenv("E2E_STORE")); backend != "" {
		cfg.StoreBackend = strings.ToLower(backend)
	}
	return cfg
}

func waitForPostgres(ctx context.Context, cfg config.Config) error {
	conn, err := sql.Open("postgres", db.PostgresURL(cfg.Database))
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
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
	ticker := time.NewTicker(200 * time.Millisecond)
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

func runMigrations(cfg config.Config) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
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
