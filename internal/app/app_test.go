package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gapi/internal/auth"
	"gapi/internal/cli"
	"gapi/internal/config"
	"gapi/internal/output"
)

type apiCall struct {
	method string
	path   string
	query  url.Values
	body   string
	auth   string
}

// fakeAPI serves every path with payload and records the calls.
func fakeAPI(t *testing.T, status int, payload string) (*httptest.Server, *[]apiCall) {
	t.Helper()
	var calls []apiCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, apiCall{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.Query(),
			body:   string(body),
			auth:   r.Header.Get("Authorization"),
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, payload)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

// stateDir prepares GAPI_HOME with credentials, a valid token and settings.
func stateDir(t *testing.T, settings string) config.Paths {
	t.Helper()
	paths := config.PathsIn(t.TempDir())
	t.Setenv(config.HomeEnv, paths.Dir)
	t.Setenv(VerboseEnv, "")

	require.NoError(t, config.WriteJSON(paths.Credentials, map[string]any{"installed": map[string]any{
		"client_id": "id", "client_secret": "secret", "redirect_uris": []string{"http://localhost"},
	}}))
	require.NoError(t, auth.NewStore(paths.Token, "test").Save(&auth.TokenRecord{
		Scopes: []string{"scope"},
		Tokens: auth.Tokens{
			AccessToken:  "at",
			RefreshToken: "rt",
			TokenType:    "Bearer",
			ExpiryDate:   time.Now().Add(time.Hour).UnixMilli(),
		},
	}))
	if settings != "" {
		require.NoError(t, os.WriteFile(paths.Settings, []byte(settings), 0600))
	}
	return paths
}

func invoke(t *testing.T, b Binary, stdin string, args ...string) (int, string, string) {
	t.Helper()
	input := &cli.Input{Reader: strings.NewReader(stdin), Interactive: func() bool { return stdin == "" }}
	var stdout, stderr bytes.Buffer
	code := Main(context.Background(), b, args, input, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestListPrintsRemotePayload(t *testing.T) {
	srv, calls := fakeAPI(t, http.StatusOK, `{"tag":[{"tagId":"1","name":"GA4"}]}`)
	stateDir(t, "tagmanager_base_url: "+srv.URL+"/tagmanager/v2/\n")

	code, stdout, _ := invoke(t, TagManager("test"), "",
		"tags", "list", "--accountId", "1", "--containerId", "2", "--workspaceId", "3")

	require.Equal(t, output.ExitOK, code, stdout)
	assert.JSONEq(t, `{"ok":true,"data":{"tag":[{"tagId":"1","name":"GA4"}]}}`, stdout)
	assert.Equal(t, 1, strings.Count(stdout, "\n"+"}"), "one document")

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodGet, call.method)
	assert.Equal(t, "/tagmanager/v2/accounts/1/containers/2/workspaces/3/tags", call.path)
	assert.Equal(t, "Bearer at", call.auth)
}

func TestUpdateDerivesMask(t *testing.T) {
	srv, calls := fakeAPI(t, http.StatusOK, `{"name":"properties/9"}`)
	stateDir(t, "analyticsadmin_base_url: "+srv.URL+"/v1beta\n")

	code, stdout, _ := invoke(t, AnalyticsAdmin("test"), `{"name":"x","status":"y"}`,
		"properties", "patch", "--propertyId", "9")

	require.Equal(t, output.ExitOK, code, stdout)
	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodPatch, call.method)
	assert.Equal(t, "/v1beta/properties/9", call.path)
	assert.Equal(t, "name,status", call.query.Get("updateMask"))
	assert.JSONEq(t, `{"name":"x","status":"y"}`, call.body)
}

func TestRemoteErrorDocument(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusForbidden,
		`{"error":{"code":403,"message":"The caller does not have permission","status":"PERMISSION_DENIED"}}`)
	stateDir(t, "tagmanager_base_url: "+srv.URL+"\n")

	code, stdout, _ := invoke(t, TagManager("test"), "", "accounts", "get", "--accountId", "1")

	assert.Equal(t, output.ExitError, code)
	assert.JSONEq(t, `{
		"ok": false,
		"status": 403,
		"error": {
			"message": "The caller does not have permission",
			"name": "APIError",
			"code": "PERMISSION_DENIED",
			"details": {"error": {"code": 403, "message": "The caller does not have permission", "status": "PERMISSION_DENIED"}}
		}
	}`, stdout)
}

func TestNotAuthenticated(t *testing.T) {
	paths := stateDir(t, "")
	require.NoError(t, os.Remove(paths.Token))

	code, stdout, _ := invoke(t, AnalyticsAdmin("test"), "", "accounts", "list")

	assert.Equal(t, output.ExitError, code)
	var doc output.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &doc))
	assert.Nil(t, doc.Status)
	assert.Equal(t, "NOT_AUTHENTICATED", *doc.Error.Code)
	assert.Equal(t, "Not authenticated. Run: ga auth login", doc.Error.Message)
}

func TestHelpAndUnknownCommand(t *testing.T) {
	stateDir(t, "")

	code, stdout, _ := invoke(t, TagManager("test"), "")
	require.Equal(t, output.ExitOK, code)
	var help struct {
		OK    bool              `json:"ok"`
		Usage map[string]string `json:"usage"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &help))
	assert.True(t, help.OK)
	assert.Equal(t, "gtm auth credentials set [flags]", help.Usage["auth credentials set"])
	assert.Equal(t, "gtm tags revert [flags]", help.Usage["tags revert"])

	code, stdout, _ = invoke(t, TagManager("test"), "", "tags", "explode", "--tagId", "1")
	assert.Equal(t, output.ExitError, code)
	assert.Contains(t, stdout, `"message": "Unknown command: tags explode"`)
	assert.Contains(t, stdout, `"code": "UNKNOWN_COMMAND"`)
}

func TestNilArgsPrintHelp(t *testing.T) {
	stateDir(t, "")

	var stdout, stderr bytes.Buffer
	input := &cli.Input{Reader: strings.NewReader(""), Interactive: func() bool { return true }}
	code := Main(context.Background(), AnalyticsAdmin("test"), nil, input, &stdout, &stderr)

	require.Equal(t, output.ExitOK, code, stdout.String())
	assert.Contains(t, stdout.String(), `"usage"`)
	assert.Contains(t, stdout.String(), `"ga properties list [flags]"`)
}

func TestVersion(t *testing.T) {
	stateDir(t, "")

	code, stdout, _ := invoke(t, AnalyticsAdmin("1.2.3"), "", "--version")
	require.Equal(t, output.ExitOK, code)
	assert.JSONEq(t, `{"ok":true,"version":"1.2.3"}`, stdout)
}

func TestVerboseLogsToStderr(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusOK, `{}`)
	stateDir(t, "tagmanager_base_url: "+srv.URL+"\n")

	code, stdout, stderr := invoke(t, TagManager("test"), "", "accounts", "list", "--verbose")
	require.Equal(t, output.ExitOK, code)
	assert.JSONEq(t, `{"ok":true,"data":{}}`, stdout)
	assert.Contains(t, stderr, "api call")
	assert.Contains(t, stderr, "path=accounts")
}

func TestInvalidSettings(t *testing.T) {
	stateDir(t, "login_timeout: [not a number\n")

	code, stdout, _ := invoke(t, TagManager("test"), "", "accounts", "list")
	assert.Equal(t, output.ExitError, code)
	assert.Contains(t, stdout, `"ok": false`)
}
