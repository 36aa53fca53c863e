package msa

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/sjson"
)

// BuildTokenForm builds the stage 1 form body. The authorization code is sent as received.
func BuildTokenForm(client *ClientConfig, code string) []byte {
	return []byte(fmt.Sprintf("client_id=%s&client_secret=%s&code=%s&grant_type=authorization_code&redirect_uri=%s",
		client.encodedID, client.encodedSecret, code, client.encodedRedirect))
}

// BuildXBLRequest builds the stage 2 body exchanging a Microsoft access token for an XBL token.
func BuildXBLRequest(accessToken string) ([]byte, error) {
	body, err := json.Marshal(xblRequestBody{
		Properties: xblRequestProperties{
			AuthMethod: "RPS",
			SiteName:   xblSiteName,
			RpsTicket:  "d=" + accessToken,
		},
		RelyingParty: xblRelyingParty,
		TokenType:    tokenTypeJWT,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal xbl request: %w", err)
	}
	return body, nil
}

// BuildXSTSRequest builds the stage 3 body exchanging an XBL token for an XSTS token.
func BuildXSTSRequest(xblToken string) ([]byte, error) {
	body, err := json.Marshal(xstsRequestBody{
		Properties: xstsRequestProperties{
			SandboxId:  xstsSandbox,
			UserTokens: []string{xblToken},
		},
		RelyingParty: xstsRelyingParty,
		TokenType:    tokenTypeJWT,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal xsts request: %w", err)
	}
	return body, nil
}

// BuildPlatformLoginRequest builds the stage 4 identity assertion body.
func BuildPlatformLoginRequest(userHash, xstsToken string) ([]byte, error) {
	body, err := sjson.SetBytes([]byte(`{}`), "identityToken", "XBL3.0 x="+userHash+";"+xstsToken)
	if err != nil {
		return nil, fmt.Errorf("failed to build platform login request: %w", err)
	}
	return body, nil
}
