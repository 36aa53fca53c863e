package msa

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/mo"
	"github.com/tidwall/gjson"
)

// Each decoder returns either the server's explicit error (Left) or the typed success
// payload (Right). Malformed bodies and missing required fields are returned as errors.

// DecodeMicrosoftToken decodes the stage 1 response and requires access_token.
func DecodeMicrosoftToken(status int, body []byte) (mo.Either[*ProtocolError, *MicrosoftToken], error) {
	return decodeResponse(StageMicrosoftToken, status, body, func(t *MicrosoftToken) error {
		if t.AccessToken == "" {
			return fmt.Errorf("access_token is empty")
		}
		return nil
	})
}

// DecodeXBLToken decodes the stage 2 response and requires Token and a user-hash.
func DecodeXBLToken(status int, body []byte) (mo.Either[*ProtocolError, *XboxToken], error) {
	return decodeResponse(StageXboxLive, status, body, func(t *XboxToken) error {
		if t.Token == "" {
			return fmt.Errorf("Token is empty")
		}
		_, err := t.UserHash()
		return err
	})
}

// DecodeXSTSToken decodes the stage 3 response and requires Token.
func DecodeXSTSToken(status int, body []byte) (mo.Either[*ProtocolError, *XboxToken], error) {
	return decodeResponse(StageXSTS, status, body, func(t *XboxToken) error {
		if t.Token == "" {
			return fmt.Errorf("Token is empty")
		}
		return nil
	})
}

// DecodePlatformToken decodes the stage 4 response and requires access_token.
func DecodePlatformToken(status int, body []byte) (mo.Either[*ProtocolError, *PlatformToken], error) {
	return decodeResponse(StagePlatformToken, status, body, func(t *PlatformToken) error {
		if t.AccessToken == "" {
			return fmt.Errorf("access_token is empty")
		}
		return nil
	})
}

// DecodeProfile decodes the stage 5 response and requires id and name.
func DecodeProfile(status int, body []byte) (mo.Either[*ProtocolError, *Profile], error) {
	return decodeResponse(StageProfile, status, body, func(p *Profile) error {
		if p.ID == "" {
			return fmt.Errorf("id is empty")
		}
		if p.Name == "" {
			return fmt.Errorf("name is empty")
		}
		return nil
	})
}

func decodeResponse[T any](stage Stage, status int, body []byte, validate func(*T) error) (mo.Either[*ProtocolError, *T], error) {
	if protoErr := protocolErrorFromBody(status, body); protoErr != nil {
		return mo.Left[*ProtocolError, *T](protoErr), nil
	}

	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return mo.Either[*ProtocolError, *T]{}, newStageError(stage, KindDecode, err, "failed to parse %s response", stage)
	}
	if err := validate(&out); err != nil {
		return mo.Either[*ProtocolError, *T]{}, newStageError(stage, KindMissingData, err, "%s response is missing required data", stage)
	}
	return mo.Right[*ProtocolError, *T](&out), nil
}

// protocolErrorFromBody returns the explicit error carried by a response, or nil when
// the response is a 2xx without an error payload.
func protocolErrorFromBody(status int, body []byte) *ProtocolError {
	failed := status < http.StatusOK || status >= http.StatusMultipleChoices
	protoErr := &ProtocolError{StatusCode: status}

	if gjson.ValidBytes(body) {
		root := gjson.ParseBytes(body)
		if root.IsObject() {
			if v := root.Get("error"); v.Exists() && v.String() != "" {
				protoErr.Code = v.String()
				failed = true
			}
			if v := root.Get("error_description"); v.Exists() {
				protoErr.Description = v.String()
			}
			if v := root.Get("errorMessage"); v.Exists() && v.String() != "" {
				protoErr.Description = v.String()
				failed = true
			}
			if v := root.Get("correlation_id"); v.Exists() {
				protoErr.CorrelationID = v.String()
			}
			if v := root.Get("XErr"); v.Exists() && v.Int() != 0 {
				protoErr.XErr = v.Int()
				protoErr.Redirect = root.Get("Redirect").String()
				failed = true
			}
		}
	} else if failed && protoErr.Description == "" {
		protoErr.Description = strings.TrimSpace(string(body))
	}

	if !failed {
		return nil
	}
	return protoErr
}
