package msa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRedirect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		code  string
	}{
		{"full url", "http://localhost:8080/token?code=M.C507_BAY.2.U.abc", "M.C507_BAY.2.U.abc"},
		{"without scheme", "localhost:8080/token?code=abc", "abc"},
		{"bare query", "?code=abc&lc=1033", "abc"},
		{"key value", "code=abc", "abc"},
		{"fragment", "http://localhost/token#code=frag", "frag"},
		{"surrounding space", "  http://localhost/token?code=abc \n", "abc"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			code, err := ParseRedirect(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestParseRedirectFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"plain text", "justtext", "not a redirect URL"},
		{"no code", "http://localhost:8080/token?state=x", "no code parameter"},
		{"consent denied", "http://localhost:8080/token?error=access_denied&error_description=The+user+has+denied+access", "access_denied: The user has denied access"},
		{"description only", "?error_description=declined", "redirect carried an error: declined"},
		{"error in fragment", "http://localhost/token#error=interaction_required", "interaction_required"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseRedirect(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, KindExtraction)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestRedirectParsersAgree(t *testing.T) {
	t.Parallel()

	pasted, err := ParseRedirect("http://localhost:8080/token?code=M.C507_BAY.2.U.abc&lc=1033")
	require.NoError(t, err)
	captured, err := ExtractCode("GET /token?code=M.C507_BAY.2.U.abc&lc=1033 HTTP/1.1")
	require.NoError(t, err)
	assert.Equal(t, captured, pasted)

	_, errPasted := ParseRedirect("?error=access_denied&error_description=declined")
	_, errCaptured := ExtractCode("GET /token?error=access_denied&error_description=declined HTTP/1.1")
	require.Error(t, errPasted)
	require.Error(t, errCaptured)
	assert.Equal(t, errCaptured.Error(), errPasted.Error())
}
