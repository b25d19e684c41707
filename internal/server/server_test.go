package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TrustyKrab/Englix-Server/config"
)

func memoryConfig() config.Config {
	return config.Config{
		ServerPort:   0,
		StoreBackend: config.StoreMemory,
		JWTSecret:    "server-secret",
		ResetURLBase: "https://englix.test/user/reset-password",
		CORSOrigins:  []string{"https://englix.test"},
		Mail:         config.MailConfig{Backend: config.MailLog, User: "noreply@englix.test"},
	}
}

func TestNew_RequiresSecret(t *testing.T) {
	cfg := memoryConfig()
	cfg.JWTSecret = "  "

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestNew_UnknownBackends(t *testing.T) {
	cfg := memoryConfig()
	cfg.StoreBackend = "cassandra"
	_, err := New(context.Background(), cfg)
	assert.ErrorContains(t, err, "unsupported store backend")

	cfg = memoryConfig()
	cfg.Mail.Backend = "carrier-pigeon"
	_, err = New(context.Background(), cfg)
	assert.ErrorContains(t, err, "unsupported mail backend")
}

func TestServer_Routes(t *testing.T) {
	srv, err := New(context.Background(), memoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	assert.Equal(t, ":8080", srv.httpServer.Addr)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/user/getUsers", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "englix_http_requests_total"))
}

func TestServer_CORS(t *testing.T) {
	srv, err := New(context.Background(), memoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	req := httptest.NewRequest(http.MethodOptions, "/user/login", nil)
	req.Header.Set("Origin", "https://englix.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "https://englix.test", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestServer_SessionCookieFollowsConfig(t *testing.T) {
	for _, crossSite := range []bool{true, false} {
		cfg := memoryConfig()
		cfg.CookieCrossSite = crossSite
		srv, err := New(context.Background(), cfg)
		require.NoError(t, err)
		t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/user/register",
			strings.NewReader(`{"email":"a@x.com","username":"a","password":"p1"}`)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/user/login",
			strings.NewReader(`{"email":"a@x.com","password":"p1"}`)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, crossSite, cookies[0].Secure)
		if crossSite {
			assert.Equal(t, http.SameSiteNoneMode, cookies[0].SameSite)
		} else {
			assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
		}
	}
}
