package tagmanager

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gapi/internal/api"
	"gapi/internal/cli"
	"gapi/internal/output"
	"gapi/internal/preset"
	"gapi/internal/resource"
)

type recorder struct {
	requests []api.Request
}

func (r *recorder) Do(ctx context.Context, req api.Request) (json.RawMessage, error) {
	r.requests = append(r.requests, req)
	return json.RawMessage(`{}`), nil
}

func newRouter(rec *recorder) *cli.Router {
	input := &cli.Input{Reader: strings.NewReader(""), Interactive: func() bool { return true }}
	f := resource.NewFactory(func(ctx context.Context) (resource.Service, error) { return rec, nil }, input)
	return cli.NewRouter(Name, Routes(f))
}

func dispatch(t *testing.T, router *cli.Router, args ...string) (int, map[string]any) {
	t.Helper()
	var out bytes.Buffer
	positional, flags := cli.Parse(args)
	code := router.Dispatch(context.Background(), &out, positional, flags)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc), out.String())
	return code, doc
}

func TestCommandTable(t *testing.T) {
	router := newRouter(&recorder{})

	commands := map[string]bool{}
	for _, line := range router.Usage() {
		commands[line.Command] = true
	}
	for _, resourceName := range []string{"tags", "triggers", "variables", "folders", "clients", "templates", "zones", "transformations"} {
		for _, verb := range []string{"list", "get", "create", "update", "delete", "revert"} {
			assert.True(t, commands[resourceName+" "+verb], resourceName+" "+verb)
		}
	}
	for _, cmd := range []string{
		"accounts list", "accounts get", "accounts update",
		"containers delete", "workspaces sync", "workspaces quick-preview", "workspaces get-status",
		"workspaces create-version", "folders move-entities", "environments reauthorize",
		"versions list", "versions publish", "versions set-latest", "versions undelete", "versions live",
		"built-in-variables list", "built-in-variables revert", "user-permissions delete",
	} {
		assert.True(t, commands[cmd], cmd)
	}
	assert.Len(t, commands, 3+5+9+8*6+1+6+8+4+5)
}

func TestRequests(t *testing.T) {
	ws := []string{"--accountId", "1", "--containerId", "2", "--workspaceId", "3"}
	with := func(extra ...string) []string { return append(append([]string{}, ws...), extra...) }

	tests := []struct {
		args   []string
		method string
		path   string
		query  url.Values
		body   string
	}{
		{[]string{"accounts", "list"}, http.MethodGet, "accounts", nil, ""},
		{[]string{"containers", "get", "--accountId", "1", "--containerId", "2"}, http.MethodGet, "accounts/1/containers/2", nil, ""},
		{append([]string{"workspaces", "sync"}, ws...), http.MethodPost, "accounts/1/containers/2/workspaces/3:sync", nil, ""},
		{append([]string{"workspaces", "get-status"}, ws...), http.MethodGet, "accounts/1/containers/2/workspaces/3/status", nil, ""},
		{append([]string{"workspaces", "create-version"}, with("--data", `{"name":"v1"}`)...), http.MethodPost,
			"accounts/1/containers/2/workspaces/3:create_version", nil, `{"name":"v1"}`},
		{append([]string{"tags", "update"}, with("--tagId", "9", "--data", `{"name":"t"}`)...), http.MethodPut,
			"accounts/1/containers/2/workspaces/3/tags/9", nil, `{"name":"t"}`},
		{append([]string{"zones", "revert"}, with("--zoneId", "5")...), http.MethodPost,
			"accounts/1/containers/2/workspaces/3/zones/5:revert", nil, ""},
		{[]string{"versions", "list", "--accountId", "1", "--containerId", "2"}, http.MethodGet,
			"accounts/1/containers/2/version_headers", nil, ""},
		{[]string{"versions", "live", "--accountId", "1", "--containerId", "2"}, http.MethodGet,
			"accounts/1/containers/2/versions:live", nil, ""},
		{[]string{"versions", "set-latest", "--accountId", "1", "--containerId", "2", "--versionId", "4"}, http.MethodPost,
			"accounts/1/containers/2/versions/4:set_latest", nil, ""},
		{append([]string{"built-in-variables", "create"}, with("--type", "pageUrl,pagePath")...), http.MethodPost,
			"accounts/1/containers/2/workspaces/3/built_in_variables", url.Values{"type": {"pageUrl", "pagePath"}}, ""},
		{append([]string{"built-in-variables", "revert"}, with("--type", "pageUrl")...), http.MethodPost,
			"accounts/1/containers/2/workspaces/3/built_in_variables:revert", url.Values{"type": {"pageUrl"}}, ""},
		{[]string{"user-permissions", "get", "--accountId", "1", "--userPermissionId", "8"}, http.MethodGet,
			"accounts/1/user_permissions/8", nil, ""},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args[:2], " "), func(t *testing.T) {
			rec := &recorder{}
			code, doc := dispatch(t, newRouter(rec), tt.args...)
			require.Equal(t, output.ExitOK, code, doc)

			require.Len(t, rec.requests, 1)
			req := rec.requests[0]
			assert.Equal(t, tt.method, req.Method)
			assert.Equal(t, tt.path, req.Path)
			assert.Equal(t, tt.query, req.Query)
			assert.Equal(t, tt.body, string(req.Body))
		})
	}
}

func TestDeleteActions(t *testing.T) {
	ws := []string{"--accountId", "1", "--containerId", "2", "--workspaceId", "3"}
	tests := []struct {
		args   []string
		action string
	}{
		{append([]string{"tags", "delete", "--tagId", "4"}, ws...), "tags.delete"},
		{[]string{"containers", "delete", "--accountId", "1", "--containerId", "2"}, "containers.delete"},
		{[]string{"versions", "delete", "--accountId", "1", "--containerId", "2", "--versionId", "3"}, "versions.delete"},
		{append([]string{"built-in-variables", "delete", "--type", "event"}, ws...), "built_in_variables.delete"},
		{[]string{"user-permissions", "delete", "--accountId", "1", "--userPermissionId", "5"}, "user_permissions.delete"},
		{append([]string{"folders", "move-entities", "--folderId", "6", "--data", `{"tagId":["1"]}`}, ws...), "folders.move_entities"},
	}
	for _, tt := range tests {
		code, doc := dispatch(t, newRouter(&recorder{}), tt.args...)
		require.Equal(t, output.ExitOK, code, doc)
		assert.Equal(t, map[string]any{"ok": true, "action": tt.action}, doc)
	}
}

func TestMissingFlagsStopBeforeNetwork(t *testing.T) {
	rec := &recorder{}
	code, doc := dispatch(t, newRouter(rec), "tags", "get", "--accountId", "1", "--containerId", "2", "--workspaceId", "3")

	assert.Equal(t, output.ExitError, code)
	assert.Equal(t, "Missing --tagId", doc["error"].(map[string]any)["message"])
	assert.Empty(t, rec.requests)
}

func TestPresets(t *testing.T) {
	assert.Equal(t, []string{
		"https://www.googleapis.com/auth/tagmanager.edit.containers",
		"https://www.googleapis.com/auth/analytics.edit",
	}, Presets.Resolve("", ""))
	assert.Equal(t, []string{"tagmanager.readonly", "analytics.readonly"},
		preset.ShortNames(Presets.Resolve("", preset.Readonly)))
	assert.Len(t, Presets.Resolve("", preset.Publish), 3)
}
