// Package msa implements the Microsoft account sign-in relay for Minecraft: an
// authorization code is exchanged for a Microsoft token, then an Xbox Live token,
// an XSTS token, a game platform token and finally the player profile.
package msa

import (
	"context"
	"time"
)

// MicrosoftAuth bundles the application registration with the transport and
// limits used by every sign-in.
type MicrosoftAuth struct {
	client         *ClientConfig
	transport      Transport
	endpoints      Endpoints
	requestTimeout time.Duration
	captureTimeout time.Duration
	observer       StageObserver
	requestLog     bool
}

// AuthOption configures a MicrosoftAuth.
type AuthOption func(*MicrosoftAuth)

// WithTransport replaces the default net/http transport.
func WithTransport(transport Transport) AuthOption {
	return func(a *MicrosoftAuth) {
		if transport != nil {
			a.transport = transport
		}
	}
}

// WithRequestTimeout bounds every stage request.
func WithRequestTimeout(timeout time.Duration) AuthOption {
	return func(a *MicrosoftAuth) {
		if timeout > 0 {
			a.requestTimeout = timeout
		}
	}
}

// WithCaptureTimeout bounds the wait for the consent redirect.
func WithCaptureTimeout(timeout time.Duration) AuthOption {
	return func(a *MicrosoftAuth) {
		if timeout > 0 {
			a.captureTimeout = timeout
		}
	}
}

// WithStageObserver registers an observer on every chain created by this MicrosoftAuth.
func WithStageObserver(observer StageObserver) AuthOption {
	return func(a *MicrosoftAuth) { a.observer = observer }
}

// WithRequestLogging makes every chain log its stage requests at info level.
func WithRequestLogging(enabled bool) AuthOption {
	return func(a *MicrosoftAuth) { a.requestLog = enabled }
}

// WithServiceEndpoints overrides the service URLs.
func WithServiceEndpoints(endpoints Endpoints) AuthOption {
	return func(a *MicrosoftAuth) { a.endpoints = endpoints }
}

// NewMicrosoftAuth creates a sign-in service for the given application registration.
// All three values are required.
func NewMicrosoftAuth(appID, appSecret, redirectURL string, opts ...AuthOption) (*MicrosoftAuth, error) {
	client, err := NewClientConfig(appID, appSecret, redirectURL)
	if err != nil {
		return nil, err
	}
	a := &MicrosoftAuth{
		client:         client,
		endpoints:      DefaultEndpoints(),
		requestTimeout: DefaultRequestTimeout,
		captureTimeout: DefaultCaptureTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.transport == nil {
		a.transport = NewHTTPTransport(nil)
	}
	return a, nil
}

// CreateAuthorizationURL returns the consent URL the user has to open.
func (a *MicrosoftAuth) CreateAuthorizationURL() string {
	return a.client.AuthorizationURL(a.endpoints.AuthorizeURL)
}

// CaptureCode listens on localhost:port for the consent redirect and returns its code.
func (a *MicrosoftAuth) CaptureCode(ctx context.Context, port int) (string, error) {
	capture, err := ListenForCode(port)
	if err != nil {
		return "", err
	}
	return capture.Wait(ctx, a.captureTimeout)
}

// CaptureTimeout returns the configured redirect wait bound.
func (a *MicrosoftAuth) CaptureTimeout() time.Duration { return a.captureTimeout }

// NewChain returns a fresh single-shot chain.
func (a *MicrosoftAuth) NewChain(opts ...ChainOption) *Chain {
	base := []ChainOption{
		WithTimeout(a.requestTimeout),
		WithEndpoints(a.endpoints),
		WithObserver(a.observer),
		WithRequestLog(a.requestLog),
	}
	return NewChain(a.client, a.transport, append(base, opts...)...)
}

// RunChain exchanges code for the player profile on a new chain.
func (a *MicrosoftAuth) RunChain(ctx context.Context, code string) (*Profile, error) {
	return a.NewChain().Run(ctx, code)
}
