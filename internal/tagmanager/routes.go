// Package tagmanager defines the command table of the gtm binary over the Tag
// Manager v2 REST API.
package tagmanager

import (
	"net/http"
	"net/url"
	"strings"

	"gapi/internal/cli"
	"gapi/internal/preset"
	"gapi/internal/resource"
)

const (
	// Name is the binary name used in help and hints
	Name = "gtm"

	// BaseURL is the Tag Manager v2 REST root
	BaseURL = "https://tagmanager.googleapis.com/tagmanager/v2/"
)

// Presets are the scope sets offered by auth login.
var Presets = preset.Set{
	preset.Readonly: {
		preset.ScopePrefix + "tagmanager.readonly",
		preset.ScopePrefix + "analytics.readonly",
	},
	preset.Edit: {
		preset.ScopePrefix + "tagmanager.edit.containers",
		preset.ScopePrefix + "analytics.edit",
	},
	preset.Publish: {
		preset.ScopePrefix + "tagmanager.edit.containers",
		preset.ScopePrefix + "tagmanager.publish",
		preset.ScopePrefix + "analytics.edit",
	},
}

var (
	account   = resource.Segment{Collection: "accounts", Flag: "accountId"}
	container = resource.Segment{Collection: "containers", Flag: "containerId"}
	workspace = resource.Segment{Collection: "workspaces", Flag: "workspaceId"}

	inAccount   = []resource.Segment{account}
	inContainer = []resource.Segment{account, container}
	inWorkspace = []resource.Segment{account, container, workspace}
)

var (
	Accounts        = resource.Kind{Collection: "accounts", IDFlag: "accountId"}
	Containers      = resource.Kind{Collection: "containers", IDFlag: "containerId", Parent: inAccount}
	Workspaces      = resource.Kind{Collection: "workspaces", IDFlag: "workspaceId", Parent: inContainer}
	Environments    = resource.Kind{Collection: "environments", IDFlag: "environmentId", Parent: inContainer}
	Versions        = resource.Kind{Collection: "versions", IDFlag: "versionId", Parent: inContainer}
	BuiltInVars     = resource.Kind{Collection: "built_in_variables", Parent: inWorkspace}
	UserPermissions = resource.Kind{Collection: "user_permissions", IDFlag: "userPermissionId", Parent: inAccount}
)

// WorkspaceKinds are the workspace entities sharing the standard verb set,
// keyed by command resource name in table order.
var WorkspaceKinds = []struct {
	Resource string
	Kind     resource.Kind
}{
	{"tags", resource.Kind{Collection: "tags", IDFlag: "tagId", Parent: inWorkspace}},
	{"triggers", resource.Kind{Collection: "triggers", IDFlag: "triggerId", Parent: inWorkspace}},
	{"variables", resource.Kind{Collection: "variables", IDFlag: "variableId", Parent: inWorkspace}},
	{"folders", resource.Kind{Collection: "folders", IDFlag: "folderId", Parent: inWorkspace}},
	{"clients", resource.Kind{Collection: "clients", IDFlag: "clientId", Parent: inWorkspace}},
	{"templates", resource.Kind{Collection: "templates", IDFlag: "templateId", Parent: inWorkspace}},
	{"zones", resource.Kind{Collection: "zones", IDFlag: "zoneId", Parent: inWorkspace}},
	{"transformations", resource.Kind{Collection: "transformations", IDFlag: "transformationId", Parent: inWorkspace}},
}

// custom builds a verb posting to a custom method of one item.
func custom(name, method string, body bool) resource.Verb {
	return resource.Verb{Name: name, Op: resource.Op{
		Method: http.MethodPost,
		Target: resource.Item,
		Suffix: ":" + method,
		Body:   body,
	}}
}

// typeQuery sends --type as repeated type parameters.
func typeQuery(split bool) func(cli.Flags) url.Values {
	return func(flags cli.Flags) url.Values {
		v := flags.String("type")
		if v == "" {
			return nil
		}
		if !split {
			return url.Values{"type": {v}}
		}
		return url.Values{"type": strings.Split(v, ",")}
	}
}

// Routes returns the API command table. Auth commands are added by the
// caller.
func Routes(f *resource.Factory) []cli.Route {
	var routes []cli.Route
	add := func(r []cli.Route) { routes = append(routes, r...) }

	add(f.Routes("accounts", Accounts,
		Accounts.List(), Accounts.Get(), Accounts.Update()))

	add(f.Routes("containers", Containers,
		Containers.List(), Containers.Get(), Containers.Create(), Containers.Update(), Containers.Delete()))

	add(f.Routes("workspaces", Workspaces,
		Workspaces.List(), Workspaces.Get(), Workspaces.Create(), Workspaces.Update(), Workspaces.Delete(),
		custom("sync", "sync", false),
		custom("quick-preview", "quick_preview", false),
		resource.Verb{Name: "get-status", Op: resource.Op{
			Method: http.MethodGet, Target: resource.Item, Suffix: "/status",
		}},
		custom("create-version", "create_version", true),
	))

	for _, wk := range WorkspaceKinds {
		verbs := wk.Kind.Standard()
		if wk.Resource == "folders" {
			verbs = append(verbs, resource.Verb{Name: "move-entities", Op: resource.Op{
				Method: http.MethodPost,
				Target: resource.Item,
				Suffix: ":move_entities_to_folder",
				Body:   true,
				Action: "folders.move_entities",
			}})
		}
		add(f.Routes(wk.Resource, wk.Kind, verbs...))
	}

	add(f.Routes("environments", Environments,
		Environments.List(), Environments.Get(), Environments.Create(), Environments.Update(), Environments.Delete(),
		custom("reauthorize", "reauthorize", true),
	))

	add(f.Routes("versions", Versions,
		resource.Verb{Name: "list", Op: resource.Op{
			Method: http.MethodGet, Target: resource.Parent, Suffix: "/version_headers",
		}},
		Versions.Get(),
		custom("publish", "publish", false),
		custom("set-latest", "set_latest", false),
		Versions.Delete(),
		custom("undelete", "undelete", false),
		resource.Verb{Name: "live", Op: resource.Op{
			Method: http.MethodGet, Target: resource.Collection, Suffix: ":live",
		}},
		Versions.Update(),
	))

	add(f.Routes("built-in-variables", BuiltInVars,
		BuiltInVars.List(),
		resource.Verb{Name: "create", Op: resource.Op{
			Method: http.MethodPost, Target: resource.Collection, Query: typeQuery(true),
		}},
		resource.Verb{Name: "delete", Op: resource.Op{
			Method: http.MethodDelete, Target: resource.Collection, Query: typeQuery(true),
			Action: "built_in_variables.delete",
		}},
		resource.Verb{Name: "revert", Op: resource.Op{
			Method: http.MethodPost, Target: resource.Collection, Suffix: ":revert", Query: typeQuery(false),
		}},
	))

	add(f.Routes("user-permissions", UserPermissions,
		UserPermissions.List(), UserPermissions.Get(), UserPermissions.Create(), UserPermissions.Update(),
		UserPermissions.Delete(),
	))

	return routes
}
