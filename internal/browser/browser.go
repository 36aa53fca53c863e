// Package browser opens the consent page in the user's default web browser.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"

	log "github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
)

var linuxBrowsers = []string{"xdg-open", "x-www-browser", "www-browser", "firefox", "chromium", "google-chrome"}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// OpenURL opens url in the default web browser. It tries open-golang first and falls
// back to platform-specific commands.
func OpenURL(url string) error {
	err := open.Run(url)
	if err == nil {
		log.Debug("opened consent page using open-golang")
		return nil
	}
	log.Debugf("open-golang failed: %v, trying platform-specific commands", err)

	name, args, err := platformCommand(runtime.GOOS, url)
	if err != nil {
		return err
	}
	cmd := exec.Command(name, args...)
	log.Debugf("running command: %s %v", name, args)
	if err = cmd.Start(); err != nil {
		return fmt.Errorf("failed to start browser command: %w", err)
	}
	return nil
}

// IsAvailable reports whether a browser command exists for the current platform.
func IsAvailable() bool {
	_, _, err := platformCommand(runtime.GOOS, "about:blank")
	return err == nil
}

func platformCommand(goos, url string) (string, []string, error) {
	switch goos {
	case "darwin":
		if _, err := lookPath("open"); err != nil {
			return "", nil, fmt.Errorf("open command not found: %w", err)
		}
		return "open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	case "linux", "freebsd", "openbsd":
		for _, candidate := range linuxBrowsers {
			if _, err := lookPath(candidate); err == nil {
				return candidate, []string{url}, nil
			}
		}
		return "", nil, fmt.Errorf("no suitable browser found on %s system", goos)
	default:
		return "", nil, fmt.Errorf("unsupported operating system: %s", goos)
	}
}
