package msa

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a chain failure. It implements error so callers can
// match a failure class with errors.Is(err, msa.KindProtocol).
type ErrorKind string

const (
	// KindNetwork covers connection failures and request timeouts.
	KindNetwork ErrorKind = "network_error"
	// KindDecode means the response body does not match the expected shape.
	KindDecode ErrorKind = "decode_error"
	// KindProtocol means the server answered with an explicit error.
	KindProtocol ErrorKind = "protocol_error"
	// KindMissingData means a required field was absent or an expected list was empty.
	KindMissingData ErrorKind = "missing_data"
	// KindListener covers callback port bind and accept failures.
	KindListener ErrorKind = "listener_error"
	// KindExtraction means no authorization code was found in the captured request.
	KindExtraction ErrorKind = "extraction_error"
)

func (k ErrorKind) Error() string { return string(k) }

// ErrChainUsed is returned when Run or Step is called on a chain that already
// left the NotStarted state through Run.
var ErrChainUsed = errors.New("msa: chain already used, construct a new one to retry")

// StageError is the single tagged failure surfaced by the chain and the code capture.
type StageError struct {
	// Stage is the stage that failed.
	Stage Stage
	// Kind is the failure class.
	Kind ErrorKind
	// Message describes the failure.
	Message string
	// Cause is the underlying error, if any.
	Cause error
}

// Error returns a string representation of the stage error.
func (e *StageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("stage %d (%s): %s: %s: %v", int(e.Stage), e.Stage, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("stage %d (%s): %s: %s", int(e.Stage), e.Stage, e.Kind, e.Message)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *StageError) Unwrap() error { return e.Cause }

// Is reports whether target is the ErrorKind of this failure.
func (e *StageError) Is(target error) bool {
	kind, ok := target.(ErrorKind)
	return ok && kind == e.Kind
}

func newStageError(stage Stage, kind ErrorKind, cause error, format string, args ...any) *StageError {
	return &StageError{
		Stage:   stage,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// ProtocolError is the error variant of a decoded response: an OAuth error from the
// Microsoft token endpoint, an XErr from Xbox Live, or an error object from the
// platform API.
type ProtocolError struct {
	// StatusCode is the HTTP status of the response.
	StatusCode int `json:"-"`
	// Code is the error code, e.g. "invalid_grant".
	Code string `json:"error"`
	// Description is a human-readable description of the error.
	Description string `json:"error_description,omitempty"`
	// CorrelationID is the Microsoft correlation id, when present.
	CorrelationID string `json:"correlation_id,omitempty"`
	// XErr is the Xbox Live error number, when present.
	XErr int64 `json:"XErr,omitempty"`
	// Redirect is the remediation URL Xbox Live attaches to some XErr responses.
	Redirect string `json:"Redirect,omitempty"`
}

// Error returns a string representation of the protocol error.
func (e *ProtocolError) Error() string {
	switch {
	case e.XErr != 0:
		return fmt.Sprintf("xbox error %d: %s", e.XErr, xerrDescription(e.XErr))
	case e.Code != "" && e.Description != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Description)
	case e.Code != "":
		return e.Code
	default:
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
}

// Known Xbox Live XErr values returned by the XSTS endpoint.
const (
	XErrNoXboxAccount   int64 = 2148916233
	XErrCountryBanned   int64 = 2148916235
	XErrAdultVerify     int64 = 2148916236
	XErrAdultVerifyAlt  int64 = 2148916237
	XErrChildAccount    int64 = 2148916238
	XErrUnderageConsent int64 = 2148916262
)

func xerrDescription(xerr int64) string {
	switch xerr {
	case XErrNoXboxAccount:
		return "the account has no Xbox profile"
	case XErrCountryBanned:
		return "Xbox Live is not available in the account's country"
	case XErrAdultVerify, XErrAdultVerifyAlt:
		return "the account needs adult verification"
	case XErrChildAccount:
		return "the account is a child account and must be added to a family"
	case XErrUnderageConsent:
		return "the account needs parental consent"
	default:
		return "unknown xbox error"
	}
}

// KindOf returns the failure class of err, or "" if err is not a StageError.
func KindOf(err error) ErrorKind {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Kind
	}
	return ""
}

// StageOf returns the stage that produced err and whether err is a StageError.
func StageOf(err error) (Stage, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage, true
	}
	return 0, false
}

// GetUserFriendlyMessage returns a user-friendly error message based on the error type.
func GetUserFriendlyMessage(err error) string {
	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		switch {
		case protoErr.XErr != 0:
			return "Xbox Live refused the sign-in: " + xerrDescription(protoErr.XErr) + "."
		case protoErr.Code == "invalid_grant":
			return "The authorization code was rejected or already used. Please sign in again."
		case protoErr.Code == "invalid_client" || protoErr.Code == "unauthorized_client":
			return "The application credentials were rejected. Check the app id and secret."
		case protoErr.StatusCode == http.StatusNotFound:
			return "The account does not own the game or has no profile yet."
		case protoErr.StatusCode == http.StatusTooManyRequests:
			return "Too many requests. Please wait a moment and try again."
		}
	}

	switch KindOf(err) {
	case KindNetwork:
		return "Could not reach the authentication service. Check your network connection and try again."
	case KindDecode:
		return "The authentication service returned an unexpected response."
	case KindProtocol:
		return "The authentication service rejected the request."
	case KindMissingData:
		return "The authentication service response was missing required data."
	case KindListener:
		return "Could not listen for the sign-in redirect. The callback port may already be in use."
	case KindExtraction:
		return "The sign-in redirect did not contain an authorization code."
	default:
		return "An unexpected error occurred. Please try again."
	}
}
