package msa

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const (
	testTokenURL    = "https://login.test/oauth20_token.srf"
	testXBLURL      = "https://xbl.test/user/authenticate"
	testXSTSURL     = "https://xsts.test/xsts/authorize"
	testPlatformURL = "https://platform.test/authentication/login_with_xbox"
	testProfileURL  = "https://platform.test/minecraft/profile"

	msTokenBody = `{"token_type":"bearer","expires_in":86400,"scope":"XboxLive.signin offline_access",` +
		`"access_token":"EwAoA-ms-access-token","refresh_token":"M.R3_BAY.refresh","user_id":"9f1c2e","foci":"1"}`
	xblTokenBody = `{"IssueInstant":"2024-05-01T10:00:00.0000000Z","NotAfter":"2024-05-15T10:00:00.0000000Z",` +
		`"Token":"xbl-token-value","DisplayClaims":{"xui":[{"uhs":"1234567890"}]}}`
	xstsTokenBody = `{"IssueInstant":"2024-05-01T10:00:01.0000000Z","NotAfter":"2024-05-02T02:00:01.0000000Z",` +
		`"Token":"xsts-token-value","DisplayClaims":{"xui":[{"uhs":"1234567890"}]}}`
	platformTokenBody = `{"username":"2a8b0c1d-0000-0000-0000-000000000000","roles":[],` +
		`"access_token":"mc-access-token","token_type":"Bearer","expires_in":86400}`
	profileBody = `{"id":"u1","name":"Steve",` +
		`"skins":[{"id":"s1","state":"ACTIVE","url":"http://textures.test/s1","variant":"CLASSIC","alias":"STEVE"}],` +
		`"capes":[{"id":"c1","state":"INACTIVE","url":"http://textures.test/c1","alias":"Migrator"}]}`
)

func testEndpoints() Endpoints {
	return Endpoints{
		AuthorizeURL: "https://login.test/oauth20_authorize.srf",
		TokenURL:     testTokenURL,
		XBLURL:       testXBLURL,
		XSTSURL:      testXSTSURL,
		PlatformURL:  testPlatformURL,
		ProfileURL:   testProfileURL,
	}
}

type cannedResponse struct {
	status int
	body   string
	delay  time.Duration
	err    error
}

type recordedCall struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// fakeTransport replays canned responses in order and records every call.
type fakeTransport struct {
	mu        sync.Mutex
	responses []cannedResponse
	calls     []recordedCall
}

func newFakeTransport(responses ...cannedResponse) *fakeTransport {
	return &fakeTransport{responses: responses}
}

func ok(body string) cannedResponse {
	return cannedResponse{status: http.StatusOK, body: body}
}

func (f *fakeTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{
		Method: req.Method,
		URL:    req.URL,
		Header: req.Header.Clone(),
		Body:   append([]byte(nil), req.Body...),
	})
	idx := len(f.calls) - 1
	f.mu.Unlock()

	if idx >= len(f.responses) {
		return nil, fmt.Errorf("unexpected call %d to %s", idx+1, req.URL)
	}
	canned := f.responses[idx]
	if canned.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(canned.delay):
		}
	}
	if canned.err != nil {
		return nil, canned.err
	}
	return &Response{StatusCode: canned.status, Header: http.Header{}, Body: []byte(canned.body)}, nil
}

func (f *fakeTransport) Calls() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

func (f *fakeTransport) URLs() []string {
	var urls []string
	for _, call := range f.Calls() {
		urls = append(urls, call.URL)
	}
	return urls
}

type observedStage struct {
	stage Stage
	err   error
}

type recordingObserver struct {
	observed []observedStage
}

func (o *recordingObserver) ObserveStage(stage Stage, _ time.Duration, err error) {
	o.observed = append(o.observed, observedStage{stage: stage, err: err})
}
