package cmd

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restclient/restclient/internal/config"
)

func TestAuthLogin_SavesProfile(t *testing.T) {
	useTestKeyring(t)

	stdout, _, err := runCmd(t, "", "auth", "login",
		"--profile", "staging",
		"--base-url", "https://staging.example.com/api/",
		"--token", "secret-token-1234",
		"--auth", "api-key",
		"--transport", "resty")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Profile: staging")
	assert.Contains(t, stdout, "Token: secr*********1234")

	p, err := config.LoadProfile("staging")
	require.NoError(t, err)
	assert.Equal(t, "https://staging.example.com/api", p.BaseURL)
	assert.Equal(t, "secret-token-1234", p.Token)
	assert.Equal(t, "api-key", p.Auth)
	assert.Equal(t, "resty", p.Transport)
	assert.Nil(t, p.AuthPrefix)

	current, err := config.CurrentProfile()
	require.NoError(t, err)
	assert.Equal(t, "staging", current)
}

func TestAuthLogin_EmptyAuthPrefixIsKept(t *testing.T) {
	useTestKeyring(t)

	_, _, err := runCmd(t, "", "auth", "login", "--base-url", "https://api.example.com", "--token", "t", "--auth-header", "X-Auth", "--auth-prefix", "")
	require.NoError(t, err)

	p, err := config.LoadProfile("default")
	require.NoError(t, err)
	require.NotNil(t, p.AuthPrefix)
	assert.Equal(t, "", *p.AuthPrefix)
	assert.Equal(t, "X-Auth", p.AuthHeader)
}

func TestAuthLogin_EnvFile(t *testing.T) {
	useTestKeyring(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	content := "RESTCLIENT_BASE_URL=https://env.example.com\nRESTCLIENT_TOKEN=env-token\nRESTCLIENT_PROFILE=fromenv\nRESTCLIENT_DECODE=lenient\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	_, _, err := runCmd(t, "", "auth", "login", "--env-file", envFile)
	require.NoError(t, err)

	p, err := config.LoadProfile("fromenv")
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", p.BaseURL)
	assert.Equal(t, "env-token", p.Token)
	assert.Equal(t, "lenient", p.Decode)
}

func TestAuthLogin_Validation(t *testing.T) {
	useTestKeyring(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing base url", []string{"--token", "t"}, "--base-url is required"},
		{"bad scheme", []string{"--base-url", "ftp://x.example.com"}, "invalid base URL"},
		{"query in base url", []string{"--base-url", "https://x.example.com?a=1"}, "invalid base URL"},
		{"metadata", []string{"--base-url", "http://169.254.169.254"}, "metadata"},
		{"bad auth", []string{"--base-url", "https://x.example.com", "--auth", "basic"}, "unknown auth preset"},
		{"bad codec", []string{"--base-url", "https://x.example.com", "--codec", "xml"}, "unknown codec"},
		{"bad decode", []string{"--base-url", "https://x.example.com", "--decode", "loose"}, "invalid decode policy"},
		{"missing env file", []string{"--env-file", "/nonexistent/.env"}, "failed to read --env-file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"auth", "login"}, tt.args...)
			_, _, err := runCmd(t, "", args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAuth_ListUseLogout(t *testing.T) {
	useTestKeyring(t)
	require.NoError(t, config.SaveProfile("production", config.Profile{BaseURL: "https://prod.example.com", Token: "p"}))
	require.NoError(t, config.SaveProfile("staging", config.Profile{BaseURL: "https://staging.example.com", Token: "s"}))

	stdout, _, err := runCmd(t, "", "auth", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "* staging")
	assert.Contains(t, stdout, "  production")
	assert.Contains(t, stdout, "https://prod.example.com")

	stdout, _, err = runCmd(t, "", "auth", "list", "stag")
	require.NoError(t, err)
	assert.Contains(t, stdout, "PROFILE")
	assert.Contains(t, stdout, "* staging")
	assert.NotContains(t, stdout, "production")

	stdout, _, err = runCmd(t, "", "auth", "use", "prod")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Switched to profile production")
	current, err := config.CurrentProfile()
	require.NoError(t, err)
	assert.Equal(t, "production", current)

	stdout, _, err = runCmd(t, "", "auth", "list", "--json")
	require.NoError(t, err)
	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &items))
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, item["profile"] == "production", item["current"])
	}

	_, _, err = runCmd(t, "", "auth", "use", "nothing-like-it")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrNotConfigured)

	stdout, _, err = runCmd(t, "", "auth", "logout", "stag")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Profile staging removed")
	names, err := config.ListProfiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"production"}, names)

	stdout, _, err = runCmd(t, "", "auth", "logout")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Profile production removed")
}

func TestAuthList_Empty(t *testing.T) {
	useTestKeyring(t)

	stdout, stderr, err := runCmd(t, "", "auth", "list")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "No profiles stored.")
}

func TestAuthStatus(t *testing.T) {
	useTestKeyring(t)

	stdout, _, err := runCmd(t, "", "auth", "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Not configured.")

	require.NoError(t, config.SaveProfile("work", config.Profile{BaseURL: "https://work.example.com", Token: "abcdefghijkl", Auth: "api-key"}))

	stdout, _, err = runCmd(t, "", "auth", "status", "--json")
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &payload))
	assert.Equal(t, true, payload["configured"])
	assert.Equal(t, "work", payload["profile"])
	assert.Equal(t, "https://work.example.com", payload["base_url"])
	assert.Equal(t, "abcd****ijkl", payload["token"])
	assert.Equal(t, "strict", payload["decode"])
	assert.Equal(t, "30s", payload["timeout"])
	auth, ok := payload["auth"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "x-api-key", auth["header"])
}

func TestProfileFlag_FuzzyMatchesStoredProfile(t *testing.T) {
	env := setupTestEnvWithHandler(t, newRouteHandler().
		On("GET", "/whoami", func(w http.ResponseWriter, r *http.Request) {
			jsonResponse(200, `{"key":"`+r.Header.Get("x-api-key")+`"}`)(w, r)
		}))
	t.Setenv("RESTCLIENT_BASE_URL", "")
	t.Setenv("RESTCLIENT_TOKEN", "")
	require.NoError(t, config.SaveProfile("integration", config.Profile{BaseURL: env.server.URL, Token: "int-key", Auth: "api-key"}))
	require.NoError(t, config.SaveProfile("default", config.Profile{BaseURL: "https://unused.example.com"}))

	stdout, _, err := runCmd(t, "", "get", "/whoami", "--profile", "integ")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"key": "int-key"`)

	_, _, err = runCmd(t, "", "get", "/whoami", "--profile", "absent")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrNotConfigured)
}
