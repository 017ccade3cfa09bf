package auth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"gapi/internal/config"
	"gapi/internal/output"
)

// ClientFactory builds HTTP clients that sign requests with the stored token.
// Access tokens are renewed in memory by the oauth2 token source; renewed
// tokens are not written back.
type ClientFactory struct {
	Paths    config.Paths
	Self     string
	Endpoint oauth2.Endpoint
	Store    *Store
}

// HTTPClient returns an authorized client. Missing or malformed token and
// credentials files fail here, before any request is made.
func (f *ClientFactory) HTTPClient(ctx context.Context) (*http.Client, error) {
	exists, err := config.Exists(f.Paths.Token)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, output.NotAuthenticated("Not authenticated. Run: " + f.Self + " auth login")
	}

	creds, err := config.LoadCredentials(f.Paths.Credentials, f.Self)
	if err != nil {
		return nil, err
	}

	rec, err := f.Store.Load()
	if err != nil {
		return nil, err
	}

	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     f.Endpoint,
	}

	// Refreshes automatically once the access token expires
	tokenSource := conf.TokenSource(ctx, rec.Tokens.OAuth2())
	return oauth2.NewClient(ctx, tokenSource), nil
}
