package msa

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAuthorizationURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		appID       string
		redirectURL string
	}{
		{"localhost redirect", "00000000-4c12-ae6f-0000-000000000000", "http://localhost:8080/token"},
		{"redirect with query", "client id with spaces", "http://localhost:9000/cb?x=1&y=2"},
		{"https redirect", "abc~def.ghi_jkl", "https://example.com/oauth/callback"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			auth, err := NewMicrosoftAuth(tt.appID, "secret", tt.redirectURL)
			require.NoError(t, err)

			authURL := auth.CreateAuthorizationURL()
			encodedID := percentEncode(tt.appID)
			encodedRedirect := percentEncode(tt.redirectURL)

			assert.True(t, strings.HasPrefix(authURL, "https://login.live.com/oauth20_authorize.srf?"))
			assert.Equal(t, 1, strings.Count(authURL, "client_id="+encodedID))
			assert.Equal(t, 1, strings.Count(authURL, "redirect_uri="+encodedRedirect))
			assert.Contains(t, authURL, "scope=XboxLive.signin%20offline_access")
			assert.Contains(t, authURL, "response_type=code")
			assert.Equal(t, authURL, auth.CreateAuthorizationURL())
		})
	}
}

func TestNewClientConfigRequiresAllValues(t *testing.T) {
	t.Parallel()

	_, err := NewClientConfig("", "secret", "http://localhost/")
	assert.ErrorContains(t, err, "app id")
	_, err = NewClientConfig("id", " ", "http://localhost/")
	assert.ErrorContains(t, err, "app secret")
	_, err = NewClientConfig("id", "secret", "")
	assert.ErrorContains(t, err, "redirect url")
}

func TestPercentEncode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "XboxLive.signin%20offline_access", percentEncode(Scope))
	assert.Equal(t, "http%3A%2F%2Flocalhost%3A8080%2Ftoken", percentEncode("http://localhost:8080/token"))
	assert.Equal(t, "a%2Bb%3Dc%26d", percentEncode("a+b=c&d"))
	assert.Equal(t, "-_.~", percentEncode("-_.~"))
}
