// Package auth obtains the bearer credential attached to catalog and commerce requests.
package auth

import (
	"context"
	"net/http"
	"net/url"

	domainerrors "github.com/prospectus/catalog-source/internal/errors"
	"github.com/prospectus/catalog-source/internal/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Scheme prefixes the access token in the Authorization header.
const Scheme = "JWT"

// Options configures a credential exchange.
type Options struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	// Ignore turns exchange failures into an empty header.
	Ignore bool
	// HTTPClient is used for the exchange when set.
	HTTPClient *http.Client
	Logger     *logger.Logger
}

// Exchange runs a client-credentials grant and returns the request header
// carrying the token. Credentials travel in the form body and a JWT is requested.
func Exchange(ctx context.Context, opts Options) (http.Header, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	log = log.Component("auth")

	token, err := exchange(ctx, opts)
	if err != nil {
		if opts.Ignore {
			log.Warn("credential exchange failed, continuing without credentials", "error", err)
			return http.Header{}, nil
		}
		return nil, domainerrors.Auth("credential exchange failed").WithCause(err)
	}

	log.Debug("credential obtained", "expires", token.Expiry)
	return http.Header{"Authorization": {Scheme + " " + token.AccessToken}}, nil
}

func exchange(ctx context.Context, opts Options) (*oauth2.Token, error) {
	if opts.TokenURL == "" {
		return nil, domainerrors.Validation("no token url configured")
	}
	cfg := clientcredentials.Config{
		ClientID:       opts.ClientID,
		ClientSecret:   opts.ClientSecret,
		TokenURL:       opts.TokenURL,
		EndpointParams: url.Values{"token_type": {"jwt"}},
		AuthStyle:      oauth2.AuthStyleInParams,
	}
	if opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
	}
	return cfg.Token(ctx)
}
