package msa

import (
	"net/url"
	"strings"
)

// ParseRedirect returns the authorization code of a redirect URL pasted by the user.
// It accepts a full URL, one without a scheme, a bare query ("?code=...") or
// "code=...". The code may also sit in the fragment. Empty input yields "" and no
// error so the caller can keep waiting.
func ParseRedirect(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", nil
	}

	candidate := trimmed
	if !strings.Contains(candidate, "://") {
		switch {
		case strings.HasPrefix(candidate, "?"):
			candidate = "http://localhost" + candidate
		case strings.ContainsAny(candidate, "/?#:"):
			candidate = "http://" + candidate
		case strings.Contains(candidate, "="):
			candidate = "http://localhost/?" + candidate
		default:
			return "", newStageError(StageCapture, KindExtraction, nil, "pasted text is not a redirect URL")
		}
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", newStageError(StageCapture, KindExtraction, err, "pasted text is not a redirect URL")
	}

	values := parsed.Query()
	if parsed.Fragment != "" {
		if fragment, errFrag := url.ParseQuery(parsed.Fragment); errFrag == nil {
			for _, key := range []string{"code", "error", "error_description"} {
				if values.Get(key) == "" && fragment.Get(key) != "" {
					values.Set(key, fragment.Get(key))
				}
			}
		}
	}
	return codeFromValues(values)
}

// codeFromValues applies the redirect contract shared by the listener and the paste
// prompt: an error parameter wins over a code, and a code must be non-empty.
func codeFromValues(values url.Values) (string, error) {
	errCode := strings.TrimSpace(values.Get("error"))
	errDesc := strings.TrimSpace(values.Get("error_description"))
	switch {
	case errCode != "" && errDesc != "":
		return "", newStageError(StageCapture, KindExtraction, nil, "redirect carried an error: %s: %s", errCode, errDesc)
	case errCode != "" || errDesc != "":
		return "", newStageError(StageCapture, KindExtraction, nil, "redirect carried an error: %s", errCode+errDesc)
	}

	code := strings.TrimSpace(values.Get("code"))
	if code == "" {
		return "", newStageError(StageCapture, KindExtraction, nil, "redirect has no code parameter")
	}
	return code, nil
}
