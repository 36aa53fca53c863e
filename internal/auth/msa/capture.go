package msa

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	codeMarker  = "?code="
	errorMarker = "error="

	// captureReadTimeout bounds reading the redirect request once a browser connected.
	captureReadTimeout = 10 * time.Second
	maxHeaderLines     = 100
)

// CodeCapture is a one-shot rendezvous on localhost: it accepts exactly one connection,
// extracts the authorization code from its request line and stops listening.
type CodeCapture struct {
	listener  net.Listener
	closeOnce sync.Once
}

// ListenForCode binds localhost:port. Bind failures are returned, never swallowed.
func ListenForCode(port int) (*CodeCapture, error) {
	addr := net.JoinHostPort("localhost", strconv.Itoa(port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, newStageError(StageCapture, KindListener, err, "failed to listen on %s", addr)
	}
	log.Debugf("listening for authorization redirect on %s", listener.Addr())
	return &CodeCapture{listener: listener}, nil
}

// Addr returns the bound address.
func (c *CodeCapture) Addr() net.Addr { return c.listener.Addr() }

// Port returns the bound port, useful when listening on port 0.
func (c *CodeCapture) Port() int {
	if tcpAddr, ok := c.listener.Addr().(*net.TCPAddr); ok {
		return tcpAddr.Port
	}
	return 0
}

// Close stops listening. It is safe to call more than once.
func (c *CodeCapture) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.listener.Close()
	})
	return err
}

// Wait accepts a single connection within timeout and returns the authorization code.
// The listener is closed when Wait returns.
func (c *CodeCapture) Wait(ctx context.Context, timeout time.Duration) (string, error) {
	defer func() {
		_ = c.Close()
	}()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		timeout = DefaultCaptureTimeout
	}

	if tcpListener, ok := c.listener.(*net.TCPListener); ok {
		if err := tcpListener.SetDeadline(time.Now().Add(timeout)); err != nil {
			return "", newStageError(StageCapture, KindListener, err, "failed to set accept deadline")
		}
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.Close()
	})
	defer stop()

	conn, err := c.listener.Accept()
	if err != nil {
		var netErr net.Error
		switch {
		case ctx.Err() != nil:
			return "", newStageError(StageCapture, KindListener, ctx.Err(), "capture cancelled")
		case errors.As(err, &netErr) && netErr.Timeout():
			return "", newStageError(StageCapture, KindListener, err, "no redirect received within %s", timeout)
		default:
			return "", newStageError(StageCapture, KindListener, err, "failed to accept connection")
		}
	}
	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Debugf("failed to close capture connection: %v", errClose)
		}
	}()
	// The redirect has arrived; nobody else may connect.
	_ = c.Close()

	_ = conn.SetDeadline(time.Now().Add(captureReadTimeout))
	reader := bufio.NewReader(conn)
	requestLine, err := reader.ReadString('\n')
	if err != nil && requestLine == "" {
		return "", newStageError(StageCapture, KindListener, err, "failed to read redirect request")
	}
	drainHeaders(reader)

	code, errExtract := ExtractCode(requestLine)
	if errWrite := writeCaptureResponse(conn, errExtract == nil); errWrite != nil {
		log.Debugf("failed to write capture response: %v", errWrite)
	}
	if errExtract != nil {
		return "", errExtract
	}
	log.Debug("authorization code captured")
	return code, nil
}

// ExtractCode returns the code parameter of a raw HTTP request line. The value runs from
// "?code=" up to the next space (or '&').
func ExtractCode(raw string) (string, error) {
	idx := strings.Index(raw, codeMarker)
	if idx < 0 {
		if errIdx := strings.Index(raw, errorMarker); errIdx >= 0 {
			return codeFromValues(redirectQuery(raw[errIdx:]))
		}
		return "", newStageError(StageCapture, KindExtraction, nil, "request has no %q parameter", codeMarker)
	}
	code := raw[idx+len(codeMarker):]
	if end := strings.IndexAny(code, " &\r\n"); end >= 0 {
		code = code[:end]
	}
	if code == "" {
		return "", newStageError(StageCapture, KindExtraction, nil, "code parameter is empty")
	}
	return code, nil
}

// redirectQuery parses the query of a request line, starting at its first parameter.
func redirectQuery(query string) url.Values {
	if end := strings.IndexAny(query, " \r\n"); end >= 0 {
		query = query[:end]
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return url.Values{"error": {query}}
	}
	return values
}

func drainHeaders(reader *bufio.Reader) {
	for i := 0; i < maxHeaderLines; i++ {
		line, err := reader.ReadString('\n')
		if err != nil || strings.TrimSpace(line) == "" {
			return
		}
	}
}

func writeCaptureResponse(conn net.Conn, ok bool) error {
	status, page := "200 OK", captureSuccessHTML
	if !ok {
		status, page = "400 Bad Request", captureFailureHTML
	}
	_, err := fmt.Fprintf(conn, "HTTP/1.1 %s\r\nContent-Type: text/html; charset=utf-8\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s",
		status, len(page), page)
	return err
}

const captureSuccessHTML = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Sign-in complete</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4rem;">
<h1>Sign-in complete</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>`

const captureFailureHTML = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Sign-in failed</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4rem;">
<h1>Sign-in failed</h1>
<p>No authorization code was received. Return to the terminal and try again.</p>
</body>
</html>`
