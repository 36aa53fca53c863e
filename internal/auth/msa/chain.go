package msa

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/mo"
	log "github.com/sirupsen/logrus"
)

// Stage identifies one hop of the token relay. Capture is stage 0.
type Stage int

const (
	StageCapture Stage = iota
	StageMicrosoftToken
	StageXboxLive
	StageXSTS
	StagePlatformToken
	StageProfile
)

func (s Stage) String() string {
	switch s {
	case StageCapture:
		return "capture"
	case StageMicrosoftToken:
		return "microsoft_token"
	case StageXboxLive:
		return "xbox_live"
	case StageXSTS:
		return "xsts"
	case StagePlatformToken:
		return "platform_token"
	case StageProfile:
		return "profile"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// State is the position of a Chain in its state machine.
type State int

const (
	StateNotStarted State = iota
	StateCodeObtained
	StateTokenObtained
	StateXblObtained
	StateXstsObtained
	StatePlatformTokenObtained
	StateProfileObtained
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateCodeObtained:
		return "code_obtained"
	case StateTokenObtained:
		return "token_obtained"
	case StateXblObtained:
		return "xbl_obtained"
	case StateXstsObtained:
		return "xsts_obtained"
	case StatePlatformTokenObtained:
		return "platform_token_obtained"
	case StateProfileObtained:
		return "profile_obtained"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateProfileObtained || s == StateFailed
}

// StageObserver is notified after every network stage with its duration and outcome.
type StageObserver interface {
	ObserveStage(stage Stage, elapsed time.Duration, err error)
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithTimeout bounds every stage request. Non-positive values keep the default.
func WithTimeout(timeout time.Duration) ChainOption {
	return func(c *Chain) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithEndpoints overrides the service URLs.
func WithEndpoints(endpoints Endpoints) ChainOption {
	return func(c *Chain) { c.endpoints = endpoints }
}

// WithObserver registers a StageObserver.
func WithObserver(observer StageObserver) ChainOption {
	return func(c *Chain) { c.observer = observer }
}

// WithRequestLog logs every stage request and response status at info level instead
// of debug.
func WithRequestLog(enabled bool) ChainOption {
	return func(c *Chain) { c.requestLog = enabled }
}

// WithRunID sets the id used to correlate the log lines of one run.
func WithRunID(runID string) ChainOption {
	return func(c *Chain) {
		if runID != "" {
			c.runID = runID
		}
	}
}

// Chain is a single-shot run of the five stage token relay. A failed or finished
// chain cannot be resumed; construct a new one to start over.
type Chain struct {
	client    *ClientConfig
	transport Transport
	endpoints Endpoints
	timeout   time.Duration
	observer  StageObserver
	runID     string

	requestLog bool

	state   State
	failure *StageError

	code      string
	msToken   *MicrosoftToken
	xblToken  *XboxToken
	userHash  string
	xstsToken *XboxToken
	platform  *PlatformToken
	profile   *Profile
}

// NewChain creates a chain in the NotStarted state.
func NewChain(client *ClientConfig, transport Transport, opts ...ChainOption) *Chain {
	c := &Chain{
		client:    client,
		transport: transport,
		endpoints: DefaultEndpoints(),
		timeout:   DefaultRequestTimeout,
		runID:     ulid.Make().String(),
		state:     StateNotStarted,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state.
func (c *Chain) State() State { return c.state }

// Failure returns the failure that moved the chain to Failed, or nil.
func (c *Chain) Failure() *StageError { return c.failure }

// RunID returns the log correlation id of this run.
func (c *Chain) RunID() string { return c.runID }

// Profile returns the fetched profile once the chain reached ProfileObtained.
func (c *Chain) Profile() mo.Option[*Profile] {
	if c.state != StateProfileObtained {
		return mo.None[*Profile]()
	}
	return mo.Some(c.profile)
}

// MicrosoftToken returns the stage 1 token once it has been obtained.
func (c *Chain) MicrosoftToken() mo.Option[*MicrosoftToken] {
	if c.msToken == nil {
		return mo.None[*MicrosoftToken]()
	}
	return mo.Some(c.msToken)
}

// Run feeds code to the chain and drives it to a terminal state.
func (c *Chain) Run(ctx context.Context, code string) (*Profile, error) {
	if err := c.Start(code); err != nil {
		return nil, err
	}
	for !c.state.Terminal() {
		if err := c.Step(ctx); err != nil {
			return nil, err
		}
	}
	return c.profile, nil
}

// Start moves NotStarted to CodeObtained.
func (c *Chain) Start(code string) error {
	if c.state != StateNotStarted {
		return ErrChainUsed
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return c.fail(newStageError(StageMicrosoftToken, KindMissingData, nil, "authorization code is empty"))
	}
	c.code = code
	c.logger().Debug("authorization code obtained")
	c.state = StateCodeObtained
	return nil
}

// Step performs exactly one transition. The next stage only starts after the current
// stage's response has been received, decoded and validated.
func (c *Chain) Step(ctx context.Context) error {
	var (
		stage Stage
		next  State
		run   func(context.Context) error
	)
	switch c.state {
	case StateNotStarted:
		return fmt.Errorf("msa: chain not started, call Start or Run first")
	case StateCodeObtained:
		stage, next, run = StageMicrosoftToken, StateTokenObtained, c.exchangeCode
	case StateTokenObtained:
		stage, next, run = StageXboxLive, StateXblObtained, c.authenticateXBL
	case StateXblObtained:
		stage, next, run = StageXSTS, StateXstsObtained, c.authorizeXSTS
	case StateXstsObtained:
		stage, next, run = StagePlatformToken, StatePlatformTokenObtained, c.loginPlatform
	case StatePlatformTokenObtained:
		stage, next, run = StageProfile, StateProfileObtained, c.fetchProfile
	default:
		return ErrChainUsed
	}

	started := time.Now()
	err := run(ctx)
	elapsed := time.Since(started)
	if c.observer != nil {
		c.observer.ObserveStage(stage, elapsed, err)
	}
	if err != nil {
		return c.fail(asStageError(stage, err))
	}

	c.logger().WithFields(log.Fields{
		"stage":   stage.String(),
		"state":   next.String(),
		"elapsed": elapsed.Round(time.Millisecond),
	}).Debug("stage completed")
	c.state = next
	return nil
}

func (c *Chain) exchangeCode(ctx context.Context) error {
	if c.code == "" {
		return newStageError(StageMicrosoftToken, KindMissingData, nil, "authorization code is empty")
	}
	resp, err := c.send(ctx, StageMicrosoftToken, &Request{
		Method: http.MethodPost,
		URL:    c.endpoints.TokenURL,
		Header: http.Header{
			"Content-Type": {"application/x-www-form-urlencoded"},
			"Accept":       {"application/json"},
		},
		Body: BuildTokenForm(c.client, c.code),
	})
	if err != nil {
		return err
	}
	result, err := DecodeMicrosoftToken(resp.StatusCode, resp.Body)
	token, err := settle(StageMicrosoftToken, result, err)
	if err != nil {
		return err
	}
	c.msToken = token
	c.code = ""
	c.logger().Debugf("microsoft token received for user %s (access token %s)", token.UserID, maskToken(token.AccessToken))
	return nil
}

func (c *Chain) authenticateXBL(ctx context.Context) error {
	if c.msToken == nil || c.msToken.AccessToken == "" {
		return newStageError(StageXboxLive, KindMissingData, nil, "microsoft access token is missing")
	}
	body, err := BuildXBLRequest(c.msToken.AccessToken)
	if err != nil {
		return newStageError(StageXboxLive, KindDecode, err, "failed to build request")
	}
	resp, err := c.send(ctx, StageXboxLive, jsonRequest(c.endpoints.XBLURL, body))
	if err != nil {
		return err
	}
	result, err := DecodeXBLToken(resp.StatusCode, resp.Body)
	token, err := settle(StageXboxLive, result, err)
	if err != nil {
		return err
	}
	userHash, err := token.UserHash()
	if err != nil {
		return newStageError(StageXboxLive, KindMissingData, err, "xbox live response has no user hash")
	}
	c.xblToken = token
	c.userHash = userHash
	return nil
}

func (c *Chain) authorizeXSTS(ctx context.Context) error {
	if c.xblToken == nil || c.xblToken.Token == "" {
		return newStageError(StageXSTS, KindMissingData, nil, "xbl token is missing")
	}
	body, err := BuildXSTSRequest(c.xblToken.Token)
	if err != nil {
		return newStageError(StageXSTS, KindDecode, err, "failed to build request")
	}
	resp, err := c.send(ctx, StageXSTS, jsonRequest(c.endpoints.XSTSURL, body))
	if err != nil {
		return err
	}
	result, err := DecodeXSTSToken(resp.StatusCode, resp.Body)
	token, err := settle(StageXSTS, result, err)
	if err != nil {
		return err
	}
	c.xstsToken = token
	return nil
}

func (c *Chain) loginPlatform(ctx context.Context) error {
	if c.xstsToken == nil || c.xstsToken.Token == "" {
		return newStageError(StagePlatformToken, KindMissingData, nil, "xsts token is missing")
	}
	if c.userHash == "" {
		return newStageError(StagePlatformToken, KindMissingData, nil, "user hash is missing")
	}
	body, err := BuildPlatformLoginRequest(c.userHash, c.xstsToken.Token)
	if err != nil {
		return newStageError(StagePlatformToken, KindDecode, err, "failed to build request")
	}
	resp, err := c.send(ctx, StagePlatformToken, jsonRequest(c.endpoints.PlatformURL, body))
	if err != nil {
		return err
	}
	result, err := DecodePlatformToken(resp.StatusCode, resp.Body)
	token, err := settle(StagePlatformToken, result, err)
	if err != nil {
		return err
	}
	c.platform = token
	return nil
}

func (c *Chain) fetchProfile(ctx context.Context) error {
	if c.platform == nil || c.platform.AccessToken == "" {
		return newStageError(StageProfile, KindMissingData, nil, "platform access token is missing")
	}
	resp, err := c.send(ctx, StageProfile, &Request{
		Method: http.MethodGet,
		URL:    c.endpoints.ProfileURL,
		Header: http.Header{
			"Authorization": {"Bearer " + c.platform.AccessToken},
			"Accept":        {"application/json"},
		},
	})
	if err != nil {
		return err
	}
	result, err := DecodeProfile(resp.StatusCode, resp.Body)
	profile, err := settle(StageProfile, result, err)
	if err != nil {
		return err
	}
	c.profile = profile
	return nil
}

// send performs one bounded transport call.
func (c *Chain) send(ctx context.Context, stage Stage, req *Request) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	level := log.DebugLevel
	if c.requestLog {
		level = log.InfoLevel
	}
	c.logger().WithField("stage", stage.String()).Logf(level, "%s %s", req.Method, req.URL)
	resp, err := c.transport.Do(callCtx, req)
	if err != nil {
		return nil, newStageError(stage, KindNetwork, err, "%s %s failed", req.Method, req.URL)
	}
	if resp == nil {
		return nil, newStageError(stage, KindNetwork, nil, "%s %s returned no response", req.Method, req.URL)
	}
	c.logger().WithFields(log.Fields{"stage": stage.String(), "status": resp.StatusCode}).Log(level, "response received")
	return resp, nil
}

func (c *Chain) fail(err *StageError) error {
	c.state = StateFailed
	c.failure = err
	c.code = ""
	c.logger().WithFields(log.Fields{
		"stage": err.Stage.String(),
		"state": StateFailed.String(),
		"error": err.Kind,
	}).Warn(err.Error())
	return err
}

func (c *Chain) logger() *log.Entry {
	return log.WithField("request_id", c.runID)
}

// settle turns a decoded result into the next stage input or a tagged failure.
func settle[T any](stage Stage, result mo.Either[*ProtocolError, *T], err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	if protoErr, ok := result.Left(); ok {
		return nil, newStageError(stage, KindProtocol, protoErr, "server rejected the %s request", stage)
	}
	return result.MustRight(), nil
}

func asStageError(stage Stage, err error) *StageError {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr
	}
	return newStageError(stage, KindNetwork, err, "unexpected failure")
}

func jsonRequest(url string, body []byte) *Request {
	return &Request{
		Method: http.MethodPost,
		URL:    url,
		Header: http.Header{
			"Content-Type": {"application/json"},
			"Accept":       {"application/json"},
		},
		Body: body,
	}
}

// maskToken keeps the first and last four characters of a credential.
func maskToken(token string) string {
	if len(token) <= 12 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + "..." + token[len(token)-4:]
}
