package msa

import (
	"time"

	"golang.org/x/oauth2/microsoft"
)

// OAuth configuration constants for Microsoft / Xbox Live / Minecraft services.
const (
	Scope = "XboxLive.signin offline_access"

	XBLAuthURL      = "https://user.auth.xboxlive.com/user/authenticate"
	XSTSAuthURL     = "https://xsts.auth.xboxlive.com/xsts/authorize"
	PlatformAuthURL = "https://api.minecraftservices.com/authentication/login_with_xbox"
	ProfileURL      = "https://api.minecraftservices.com/minecraft/profile"

	xblSiteName      = "user.auth.xboxlive.com"
	xblRelyingParty  = "http://auth.xboxlive.com"
	xstsRelyingParty = "rp://api.minecraftservices.com/"
	xstsSandbox      = "RETAIL"
	tokenTypeJWT     = "JWT"

	// DefaultRequestTimeout bounds every stage request unless overridden.
	DefaultRequestTimeout = 500 * time.Millisecond
	// DefaultCaptureTimeout bounds the wait for the consent redirect.
	DefaultCaptureTimeout = 5 * time.Minute
)

// Endpoints holds the URLs the chain talks to.
type Endpoints struct {
	AuthorizeURL string
	TokenURL     string
	XBLURL       string
	XSTSURL      string
	PlatformURL  string
	ProfileURL   string
}

// DefaultEndpoints returns the production endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		AuthorizeURL: microsoft.LiveConnectEndpoint.AuthURL,
		TokenURL:     microsoft.LiveConnectEndpoint.TokenURL,
		XBLURL:       XBLAuthURL,
		XSTSURL:      XSTSAuthURL,
		PlatformURL:  PlatformAuthURL,
		ProfileURL:   ProfileURL,
	}
}
