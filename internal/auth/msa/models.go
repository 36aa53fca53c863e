package msa

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"golang.org/x/oauth2"
)

// MicrosoftToken is the success variant of the Microsoft token endpoint response.
type MicrosoftToken struct {
	// TokenType is the token type, normally "bearer".
	TokenType string `json:"token_type"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in"`
	// Scope is the granted scope.
	Scope string `json:"scope"`
	// AccessToken is the RPS ticket payload for Xbox Live.
	AccessToken string `json:"access_token"`
	// RefreshToken can be exchanged for a new access token.
	RefreshToken string `json:"refresh_token"`
	// UserID is the Microsoft account id.
	UserID string `json:"user_id"`
	// Foci is the family-of-client-ids flag; not needed downstream.
	Foci mo.Option[string] `json:"foci,omitzero"`
	// CorrelationID identifies the request in Microsoft logs.
	CorrelationID mo.Option[string] `json:"correlation_id,omitzero"`
}

// OAuth2Token converts the token into an oauth2.Token. issuedAt anchors the expiry.
func (t *MicrosoftToken) OAuth2Token(issuedAt time.Time) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
	}
	if t.ExpiresIn > 0 {
		tok.ExpiresIn = t.ExpiresIn
		tok.Expiry = issuedAt.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return tok.WithExtra(map[string]any{"user_id": t.UserID, "scope": t.Scope})
}

// UserHash is a single entry of DisplayClaims.xui.
type UserHash struct {
	UHS string `json:"uhs"`
}

// DisplayClaims carries the user-hash list of an Xbox token.
type DisplayClaims struct {
	XUI []UserHash `json:"xui"`
}

// XboxToken is the response of both the XBL user authenticate and XSTS authorize endpoints.
type XboxToken struct {
	IssueInstant  string        `json:"IssueInstant"`
	NotAfter      string        `json:"NotAfter"`
	Token         string        `json:"Token"`
	DisplayClaims DisplayClaims `json:"DisplayClaims"`
}

// UserHash returns the first user-hash entry. An empty list is an error, never a default.
func (t *XboxToken) UserHash() (string, error) {
	if len(t.DisplayClaims.XUI) == 0 {
		return "", fmt.Errorf("DisplayClaims.xui is empty")
	}
	uhs := t.DisplayClaims.XUI[0].UHS
	if uhs == "" {
		return "", fmt.Errorf("DisplayClaims.xui[0].uhs is empty")
	}
	return uhs, nil
}

// PlatformToken is the game platform access token.
type PlatformToken struct {
	Username    string   `json:"username"`
	Roles       []string `json:"roles"`
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int64    `json:"expires_in"`
}

// Skin is a profile skin.
type Skin struct {
	ID      string `json:"id"`
	State   string `json:"state"`
	URL     string `json:"url"`
	Variant string `json:"variant"`
	Alias   string `json:"alias,omitempty"`
}

// Cape is a profile cape.
type Cape struct {
	ID    string `json:"id"`
	State string `json:"state"`
	URL   string `json:"url"`
	Alias string `json:"alias"`
}

// Profile is the terminal artifact of the chain.
type Profile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Skins []Skin `json:"skins"`
	Capes []Cape `json:"capes"`
}

// UUID parses the profile id, which the platform returns without dashes.
func (p *Profile) UUID() (uuid.UUID, error) {
	return uuid.Parse(p.ID)
}

// ActiveSkin returns the skin in the ACTIVE state, if any.
func (p *Profile) ActiveSkin() mo.Option[Skin] {
	for _, skin := range p.Skins {
		if skin.State == "ACTIVE" {
			return mo.Some(skin)
		}
	}
	return mo.None[Skin]()
}

type xblRequestProperties struct {
	AuthMethod string `json:"AuthMethod"`
	SiteName   string `json:"SiteName"`
	RpsTicket  string `json:"RpsTicket"`
}

type xblRequestBody struct {
	Properties   xblRequestProperties `json:"Properties"`
	RelyingParty string               `json:"RelyingParty"`
	TokenType    string               `json:"TokenType"`
}

type xstsRequestProperties struct {
	SandboxId  string   `json:"SandboxId"`
	UserTokens []string `json:"UserTokens"`
}

type xstsRequestBody struct {
	Properties   xstsRequestProperties `json:"Properties"`
	RelyingParty string                `json:"RelyingParty"`
	TokenType    string                `json:"TokenType"`
}
