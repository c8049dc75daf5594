package main

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goSnap "github.com/MrEthical07/goSnap"
	"github.com/MrEthical07/goSnap/session"
	"github.com/MrEthical07/goSnap/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gosnap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	fc, err := loadConfig("")
	require.NoError(t, err)

	d := goSnap.DefaultConfig()
	assert.Equal(t, d.Endpoint.Timeout, fc.Endpoint.Timeout)
	assert.Equal(t, d.Cache.RedisPrefix, fc.Cache.RedisPrefix)
	assert.Equal(t, "iphone5", fc.Screen.Idiom)

	_, err = fc.clientConfig()
	require.Error(t, err, "base url is required")
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := writeConfigFile(t, `
credentials:
  api_key: file-key
  api_secret: file-secret
endpoint:
  base_url: https://file.example.test
  timeout: 10s
session:
  default_country_code: "44"
screen:
  idiom: iphone6
cache:
  redis_addr: 127.0.0.1:6379
`)
	t.Setenv("GOSNAP_ENDPOINT_BASE_URL", "https://env.example.test")
	t.Setenv("GOSNAP_SESSION_RESTORE_FRESHNESS", "30m")

	fc, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.test", fc.Endpoint.BaseURL)
	assert.Equal(t, 10*time.Second, fc.Endpoint.Timeout)
	assert.Equal(t, "127.0.0.1:6379", fc.Cache.RedisAddr)

	cfg, err := fc.clientConfig()
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.Credentials.APIKey)
	assert.Equal(t, 30*time.Minute, cfg.Session.RestoreFreshness)
	assert.Equal(t, "44", cfg.Session.DefaultCountryCode)
	assert.Equal(t, session.ScreenIdiomIPhone6, cfg.Screen.Idiom)
	assert.Equal(t, time.Minute, cfg.Endpoint.RequestTokenTTL)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestClientConfigRejectsUnknownIdiom(t *testing.T) {
	fc := defaultFileConfig()
	fc.Endpoint.BaseURL = "https://api.example.test"
	fc.Screen.Idiom = "pager"
	_, err := fc.clientConfig()
	require.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "endpoint.base_url", envKey("GOSNAP_ENDPOINT_BASE_URL"))
	assert.Equal(t, "audit.enabled", envKey("GOSNAP_AUDIT_ENABLED"))
	assert.Equal(t, "config", envKey("GOSNAP_CONFIG"))
}

func TestRunRegistration(t *testing.T) {
	responses := map[string]string{
		goSnap.EndpointRegister:         `{"email":"new@example.test","username_suggestions":["newbie1"]}`,
		goSnap.EndpointRegisterUsername: `{"auth_token":"reg-token"}`,
		goSnap.EndpointPhoneVerify:      `{}`,
	}
	var codes []string
	tr := transport.Func(func(_ context.Context, req *transport.Request) (*transport.Response, error) {
		u, err := url.Parse(req.URL)
		if err != nil {
			return nil, err
		}
		if values, err := url.ParseQuery(string(req.Body)); err == nil && values.Get("code") != "" {
			codes = append(codes, values.Get("code"))
		}
		return &transport.Response{StatusCode: http.StatusOK, Header: http.Header{}, Body: []byte(responses[u.Path])}, nil
	})

	client, err := goSnap.New().
		WithBaseURL("https://api.example.test").
		WithCredentials("key", "secret", "").
		WithTransport(tr).
		Build()
	require.NoError(t, err)
	defer client.Close()

	var prompt bytes.Buffer
	err = runRegistration(context.Background(), client.NewRegistration(), registrationInput{
		Email:    "new@example.test",
		Password: "pw",
		Birthday: "1990-05-01",
		Username: "newbie",
		Phone:    "555 010 0123",
		ViaSMS:   true,
	}, strings.NewReader("424242\n"), &prompt)
	require.NoError(t, err)

	assert.Equal(t, []string{"424242"}, codes)
	assert.Contains(t, prompt.String(), "newbie1")
	assert.Contains(t, prompt.String(), "registration verified")
	assert.True(t, client.IsSignedIn())
}
