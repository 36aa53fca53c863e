package msa

import (
	"fmt"
	"net/url"
	"strings"
)

// ClientConfig holds the application registration used to build the consent URL and
// the stage 1 request. Encoded values are computed once and reused verbatim.
type ClientConfig struct {
	AppID       string
	AppSecret   string
	RedirectURL string
	Scope       string

	encodedID       string
	encodedSecret   string
	encodedRedirect string
	encodedScope    string
}

// NewClientConfig validates and percent-encodes the application registration.
func NewClientConfig(appID, appSecret, redirectURL string) (*ClientConfig, error) {
	appID = strings.TrimSpace(appID)
	appSecret = strings.TrimSpace(appSecret)
	redirectURL = strings.TrimSpace(redirectURL)
	switch {
	case appID == "":
		return nil, fmt.Errorf("msa: app id is required")
	case appSecret == "":
		return nil, fmt.Errorf("msa: app secret is required")
	case redirectURL == "":
		return nil, fmt.Errorf("msa: redirect url is required")
	}
	if _, err := url.Parse(redirectURL); err != nil {
		return nil, fmt.Errorf("msa: invalid redirect url: %w", err)
	}

	return &ClientConfig{
		AppID:           appID,
		AppSecret:       appSecret,
		RedirectURL:     redirectURL,
		Scope:           Scope,
		encodedID:       percentEncode(appID),
		encodedSecret:   percentEncode(appSecret),
		encodedRedirect: percentEncode(redirectURL),
		encodedScope:    percentEncode(Scope),
	}, nil
}

// AuthorizationURL builds the user-facing consent URL against authorizeURL.
func (c *ClientConfig) AuthorizationURL(authorizeURL string) string {
	return fmt.Sprintf("%s?client_id=%s&response_type=code&redirect_uri=%s&scope=%s",
		authorizeURL, c.encodedID, c.encodedRedirect, c.encodedScope)
}

// percentEncode escapes everything except unreserved characters, spaces become %20.
func percentEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
