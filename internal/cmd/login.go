package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/mcmsa/msaauth/internal/auth/msa"
	"github.com/mcmsa/msaauth/internal/browser"
	"github.com/mcmsa/msaauth/internal/config"
	"github.com/mcmsa/msaauth/internal/logging"
	"github.com/mcmsa/msaauth/internal/metrics"
	"github.com/mcmsa/msaauth/internal/util"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// ExitCodePortInUse is the process exit code when the callback port cannot be bound.
const ExitCodePortInUse = 13

// ErrPortInUse marks a failure to bind the callback listener.
var ErrPortInUse = errors.New("callback port already in use")

// manualPromptDelay is how long the listener waits before offering the paste prompt.
const manualPromptDelay = 15 * time.Second

// LoginOptions contains options for the sign-in process.
type LoginOptions struct {
	// NoBrowser skips opening the consent page automatically.
	NoBrowser bool

	// NoListener skips the localhost listener; the redirected URL is pasted instead.
	NoListener bool

	// PrintURL prints the consent URL and returns without signing in.
	PrintURL bool

	// CopyURL copies the consent URL to the clipboard.
	CopyURL bool

	// JSON prints the profile as JSON instead of the styled summary.
	JSON bool

	// Prompt allows the caller to provide interactive input when needed.
	Prompt func(prompt string) (string, error)

	// Out receives user-facing output. Defaults to os.Stdout.
	Out io.Writer

	// Transport and Endpoints replace the production HTTP stack.
	Transport msa.Transport
	Endpoints *msa.Endpoints

	// ManualPromptDelay overrides the delay before the paste prompt is offered.
	ManualPromptDelay time.Duration
}

// LoginResult is the outcome of a successful sign-in.
type LoginResult struct {
	RunID   string       `json:"run_id"`
	Profile *msa.Profile `json:"profile"`
	// Token is the Microsoft token of the sign-in; its refresh token can start a later
	// session without the consent page.
	Token *oauth2.Token `json:"token,omitempty"`
}

// DoMinecraftLogin runs the interactive sign-in, reports the result and returns the
// process exit code: ExitCodePortInUse when the callback port is taken, 1 on any
// other failure.
func DoMinecraftLogin(cfg *config.Config, options *LoginOptions) int {
	if options == nil {
		options = &LoginOptions{}
	}
	out := options.Out
	if out == nil {
		out = os.Stdout
	}

	result, err := Login(context.Background(), cfg, options)
	if err != nil {
		if errors.Is(err, ErrPortInUse) {
			log.Error(msa.GetUserFriendlyMessage(err))
			return ExitCodePortInUse
		}
		log.Debugf("sign-in failed: %v", err)
		_, _ = fmt.Fprintf(out, "Minecraft sign-in failed: %s\n", msa.GetUserFriendlyMessage(err))
		_, _ = fmt.Fprintf(out, "Details: %v\n", err)
		if logPath := logging.LogFilePath(); logPath != "" {
			_, _ = fmt.Fprintf(out, "Log file: %s\n", logPath)
		}
		return 1
	}
	if result == nil {
		return 0
	}

	if options.JSON {
		if err = RenderJSON(out, result); err != nil {
			log.Errorf("failed to write profile: %v", err)
			return 1
		}
		return 0
	}
	RenderProfile(out, result)
	return 0
}

// Login performs one sign-in: it presents the consent URL, obtains the authorization
// code and runs the token chain. A nil result with a nil error means only the URL
// was requested.
func Login(ctx context.Context, cfg *config.Config, options *LoginOptions) (*LoginResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("msa login: configuration is required")
	}
	if options == nil {
		options = &LoginOptions{}
	}
	out := options.Out
	if out == nil {
		out = os.Stdout
	}
	prompt := options.Prompt
	if prompt == nil {
		prompt = stdinPrompt(os.Stdin, out)
	}

	recorder := metrics.NewRecorder()
	auth, err := newMicrosoftAuth(cfg, options, recorder)
	if err != nil {
		return nil, err
	}
	authURL := auth.CreateAuthorizationURL()

	if options.PrintURL {
		_, _ = fmt.Fprintln(out, authURL)
		return nil, nil
	}

	var capture *msa.CodeCapture
	if !options.NoListener {
		capture, err = msa.ListenForCode(cfg.CallbackPort)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPortInUse, err)
		}
		defer func() {
			_ = capture.Close()
		}()
	}

	presentURL(out, authURL, options)

	if capture != nil {
		_, _ = fmt.Fprintf(out, "Waiting for the sign-in redirect on %s...\n", capture.Addr())
	}
	promptDelay := options.ManualPromptDelay
	if promptDelay <= 0 {
		promptDelay = manualPromptDelay
	}
	code, err := waitForCode(ctx, capture, auth.CaptureTimeout(), prompt, promptDelay)
	if err != nil {
		recorder.ObserveRun(err)
		writeMetrics(cfg, recorder)
		return nil, err
	}
	log.Debug("authorization code received; exchanging for tokens")

	chain := auth.NewChain()
	issuedAt := time.Now()
	profile, err := chain.Run(ctx, code)
	recorder.ObserveRun(err)
	writeMetrics(cfg, recorder)
	if err != nil {
		return nil, err
	}
	result := &LoginResult{RunID: chain.RunID(), Profile: profile}
	if token, ok := chain.MicrosoftToken().Get(); ok {
		result.Token = token.OAuth2Token(issuedAt)
	}
	return result, nil
}

func newMicrosoftAuth(cfg *config.Config, options *LoginOptions, observer msa.StageObserver) (*msa.MicrosoftAuth, error) {
	transport := options.Transport
	if transport == nil {
		transport = msa.NewHTTPTransport(util.NewHTTPClient(&cfg.SDKConfig))
	}
	opts := []msa.AuthOption{
		msa.WithTransport(transport),
		msa.WithRequestTimeout(cfg.RequestTimeout),
		msa.WithCaptureTimeout(cfg.CaptureTimeout),
		msa.WithStageObserver(observer),
		msa.WithRequestLogging(cfg.RequestLog),
	}
	if options.Endpoints != nil {
		opts = append(opts, msa.WithServiceEndpoints(*options.Endpoints))
	}
	return msa.NewMicrosoftAuth(cfg.AppID, cfg.AppSecret, cfg.RedirectURL, opts...)
}

func presentURL(out io.Writer, authURL string, options *LoginOptions) {
	if options.CopyURL {
		if err := clipboard.WriteAll(authURL); err != nil {
			log.Warnf("failed to copy URL to clipboard: %v", err)
		} else {
			_, _ = fmt.Fprintln(out, "Sign-in URL copied to clipboard.")
		}
	}

	if !options.NoBrowser {
		_, _ = fmt.Fprintln(out, "Opening browser for Microsoft sign-in")
		if !browser.IsAvailable() {
			log.Warn("No browser available; please open the URL manually")
		} else if err := browser.OpenURL(authURL); err != nil {
			log.Warnf("Failed to open browser automatically: %v", err)
		} else {
			return
		}
	}
	_, _ = fmt.Fprintf(out, "Visit the following URL to sign in:\n%s\n", authURL)
}

// waitForCode returns the authorization code from the listener, or from a pasted
// redirect URL once promptAfter elapsed. A nil capture prompts immediately and fails
// when the prompt does; with a listener a failed prompt only stops prompting.
func waitForCode(ctx context.Context, capture *msa.CodeCapture, timeout time.Duration, prompt func(string) (string, error), promptAfter time.Duration) (string, error) {
	if capture == nil {
		for {
			input, err := prompt("Paste the redirected URL: ")
			if err != nil {
				return "", err
			}
			code, err := msa.ParseRedirect(input)
			if err != nil {
				return "", err
			}
			if code != "" {
				return code, nil
			}
		}
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		code, errWait := capture.Wait(waitCtx, timeout)
		if errWait != nil {
			errCh <- errWait
			return
		}
		codeCh <- code
	}()

	var promptC <-chan time.Time
	if prompt != nil && promptAfter > 0 {
		promptTimer := time.NewTimer(promptAfter)
		defer promptTimer.Stop()
		promptC = promptTimer.C
	}

	for {
		select {
		case code := <-codeCh:
			return code, nil
		case err := <-errCh:
			return "", err
		case <-promptC:
			promptC = nil
			select {
			case code := <-codeCh:
				return code, nil
			case err := <-errCh:
				return "", err
			default:
			}
			input, errPrompt := prompt("Paste the redirected URL (or press Enter to keep waiting): ")
			if errPrompt != nil {
				// stdin is gone; the listener can still receive the redirect.
				log.Debugf("manual prompt unavailable, waiting for the redirect: %v", errPrompt)
				continue
			}
			code, errParse := msa.ParseRedirect(input)
			if errParse != nil {
				return "", errParse
			}
			if code == "" {
				continue
			}
			return code, nil
		}
	}
}

func writeMetrics(cfg *config.Config, recorder *metrics.Recorder) {
	path, err := util.ResolvePath(cfg.MetricsFile)
	if err != nil {
		log.Warnf("invalid metrics-file: %v", err)
		return
	}
	if path == "" {
		return
	}
	if err = recorder.WriteTextfile(path); err != nil {
		log.Warnf("failed to write metrics: %v", err)
		return
	}
	log.Debugf("metrics written to %s", path)
}

func stdinPrompt(in io.Reader, out io.Writer) func(string) (string, error) {
	reader := bufio.NewReader(in)
	return func(prompt string) (string, error) {
		_, _ = fmt.Fprint(out, prompt)
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return strings.TrimSpace(line), nil
	}
}
