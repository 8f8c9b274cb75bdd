package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localConfig(t *testing.T) *Config {
	dir := t.TempDir()
	return &Config{
		LocalDBPath:       filepath.Join(dir, "data", "catalog.db"),
		NotificationsBook: filepath.Join(dir, "data", "notificaciones.xlsx"),
		DemoCatalog:       true,
		DeleteWorkers:     2,
		Drive:             DriveConfig{Enabled: false, ProbeTimeout: time.Second},
		Admin:             AdminConfig{User: "admin", Pass: "secreto", SessionTTL: time.Hour},
	}
}

func TestNewApp_LocalMode(t *testing.T) {
	a, err := NewApp(context.Background(), localConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })

	h := a.HTTPHandler()

	login := httptest.NewRequest(http.MethodPost, "/admin/auth", strings.NewReader(`{"user":"admin","pass":"secreto"}`))
	login.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, login)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var auth struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auth))
	require.NotEmpty(t, auth.Token)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer "+auth.Token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var status struct {
		Backend   string `json:"backend"`
		Degraded  bool   `json:"degraded"`
		Productos int    `json:"productos"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "local", status.Backend)
	assert.True(t, status.Degraded)
	assert.Positive(t, status.Productos)
}

func TestNewApp_MissingCredentialsFallsBackToLocal(t *testing.T) {
	cfg := localConfig(t)
	cfg.Drive.Enabled = true
	cfg.Drive.CredentialsFile = filepath.Join(t.TempDir(), "no-existe.json")

	a, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })
	assert.Equal(t, "local", string(a.gateway.Mode()))
}
