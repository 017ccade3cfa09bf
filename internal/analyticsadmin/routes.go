// Package analyticsadmin defines the command table of the ga binary over the
// Analytics Admin v1beta REST API.
package analyticsadmin

import (
	"net/http"
	"net/url"

	"gapi/internal/cli"
	"gapi/internal/preset"
	"gapi/internal/resource"
)

const (
	Name    = "ga"
	BaseURL = "https://analyticsadmin.googleapis.com/v1beta/"
)

// Presets are the scope sets offered by auth login.
var Presets = preset.Set{
	preset.Readonly: {
		preset.ScopePrefix + "analytics.readonly",
		preset.ScopePrefix + "tagmanager.readonly",
	},
	preset.Edit: {
		preset.ScopePrefix + "analytics.edit",
		preset.ScopePrefix + "tagmanager.edit.containers",
	},
	preset.Publish: {
		preset.ScopePrefix + "analytics.edit",
		preset.ScopePrefix + "tagmanager.edit.containers",
		preset.ScopePrefix + "tagmanager.publish",
	},
}

var (
	property   = resource.Segment{Collection: "properties", Flag: "propertyId"}
	dataStream = resource.Segment{Collection: "dataStreams", Flag: "dataStreamId"}

	inProperty   = []resource.Segment{property}
	inDataStream = []resource.Segment{property, dataStream}
)

var (
	Accounts          = resource.Kind{Collection: "accounts", IDFlag: "accountId"}
	AccountSummaries  = resource.Kind{Collection: "accountSummaries"}
	Properties        = resource.Kind{Collection: "properties", IDFlag: "propertyId"}
	DataStreams       = resource.Kind{Collection: "dataStreams", IDFlag: "dataStreamId", Parent: inProperty}
	CustomDimensions  = resource.Kind{Collection: "customDimensions", IDFlag: "customDimensionId", Parent: inProperty}
	CustomMetrics     = resource.Kind{Collection: "customMetrics", IDFlag: "customMetricId", Parent: inProperty}
	KeyEvents         = resource.Kind{Collection: "keyEvents", IDFlag: "keyEventId", Parent: inProperty}
	GoogleAdsLinks    = resource.Kind{Collection: "googleAdsLinks", IDFlag: "googleAdsLinkId", Parent: inProperty}
	FirebaseLinks     = resource.Kind{Collection: "firebaseLinks", IDFlag: "firebaseLinkId", Parent: inProperty}
	MeasurementSecret = resource.Kind{Collection: "measurementProtocolSecrets", IDFlag: "secretId", Parent: inDataStream}
)

// archive hides a custom definition and reports "<collection>.archive".
func archive(k resource.Kind) resource.Verb {
	return resource.Verb{Name: "archive", Op: resource.Op{
		Method: http.MethodPost,
		Target: resource.Item,
		Suffix: ":archive",
		Action: k.Collection + ".archive",
	}}
}

// Routes returns the API command table. Auth commands are added by the
// caller.
func Routes(f *resource.Factory) []cli.Route {
	var routes []cli.Route
	add := func(r []cli.Route) { routes = append(routes, r...) }

	add(f.Routes("accounts", Accounts,
		Accounts.List(), Accounts.Get(), Accounts.Delete(), Accounts.Patch(),
		resource.Verb{Name: "search-change-history", Op: resource.Op{
			Method: http.MethodPost,
			Target: resource.Item,
			Suffix: ":searchChangeHistoryEvents",
			Body:   true,
		}},
	))

	add(f.Routes("account-summaries", AccountSummaries, AccountSummaries.List()))

	retention := resource.Op{Target: resource.Item, Suffix: "/dataRetentionSettings"}
	getRetention, updateRetention := retention, retention
	getRetention.Method = http.MethodGet
	updateRetention.Method = http.MethodPatch
	updateRetention.Body = true
	updateRetention.Mask = true

	add(f.Routes("properties", Properties,
		resource.Verb{Name: "list", Op: resource.Op{
			Method:  http.MethodGet,
			Target:  resource.Collection,
			Require: []string{"accountId"},
			Query: func(flags cli.Flags) url.Values {
				return url.Values{"filter": {"parent:accounts/" + flags.String("accountId")}}
			},
		}},
		Properties.Get(),
		Properties.Create(),
		// The deleted property is returned.
		resource.Verb{Name: "delete", Op: resource.Op{Method: http.MethodDelete, Target: resource.Item}},
		Properties.Patch(),
		resource.Verb{Name: "get-data-retention", Op: getRetention},
		resource.Verb{Name: "update-data-retention", Op: updateRetention},
	))

	add(f.Routes("data-streams", DataStreams,
		DataStreams.List(), DataStreams.Get(), DataStreams.Create(), DataStreams.Delete(), DataStreams.Patch()))

	add(f.Routes("custom-dimensions", CustomDimensions,
		CustomDimensions.List(), CustomDimensions.Get(), CustomDimensions.Create(), CustomDimensions.Patch(),
		archive(CustomDimensions)))

	add(f.Routes("custom-metrics", CustomMetrics,
		CustomMetrics.List(), CustomMetrics.Get(), CustomMetrics.Create(), CustomMetrics.Patch(),
		archive(CustomMetrics)))

	add(f.Routes("key-events", KeyEvents,
		KeyEvents.List(), KeyEvents.Get(), KeyEvents.Create(), KeyEvents.Delete(), KeyEvents.Patch()))

	add(f.Routes("google-ads-links", GoogleAdsLinks,
		GoogleAdsLinks.List(), GoogleAdsLinks.Create(), GoogleAdsLinks.Delete(), GoogleAdsLinks.Patch()))

	add(f.Routes("firebase-links", FirebaseLinks,
		FirebaseLinks.List(), FirebaseLinks.Create(), FirebaseLinks.Delete()))

	add(f.Routes("mp-secrets", MeasurementSecret,
		MeasurementSecret.List(), MeasurementSecret.Get(), MeasurementSecret.Create(), MeasurementSecret.Delete(),
		MeasurementSecret.Patch()))

	return routes
}
