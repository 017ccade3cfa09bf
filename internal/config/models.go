package config

// Paths locates the files of the state directory
type Paths struct {
	Dir         string
	Credentials string // OAuth client file as downloaded from the Cloud console
	Token       string // persisted token record
	Settings    string // optional settings.yaml
}

// Settings holds the optional operator overrides read from settings.yaml.
// Zero values mean "use the built-in default".
type Settings struct {
	DefaultPreset         string  `yaml:"default_preset,omitempty"`
	LoginTimeout          float64 `yaml:"login_timeout,omitempty"` // seconds
	OpenBrowser           *bool   `yaml:"open_browser,omitempty"`
	TagManagerBaseURL     string  `yaml:"tagmanager_base_url,omitempty"`
	AnalyticsAdminBaseURL string  `yaml:"analyticsadmin_base_url,omitempty"`
}

// BrowserEnabled reports whether login should launch a browser
func (s *Settings) BrowserEnabled() bool {
	return s.OpenBrowser == nil || *s.OpenBrowser
}

// Credentials is the OAuth client of an installed or web application
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURIs []string
}

// clientFile mirrors the downloaded client JSON. Only one of the blocks is
// expected to be present.
type clientFile struct {
	Installed *clientBlock `json:"installed"`
	Web       *clientBlock `json:"web"`
}

type clientBlock struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	RedirectURIs []string `json:"redirect_uris"`
}
