// Package browser opens the authorization URL in the user's default browser.
// Failures are reported to the caller, who treats them as non-fatal and falls
// back to printing the URL.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"

	log "github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
)

// linuxBrowsers are tried in order when open-golang fails on Linux.
var linuxBrowsers = []string{"xdg-open", "x-www-browser", "www-browser", "firefox", "chromium", "google-chrome"}

// OpenURL opens url with open-golang, falling back to platform commands.
func OpenURL(url string) error {
	err := open.Start(url)
	if err == nil {
		log.Debug("opened authorization URL with open-golang")
		return nil
	}
	log.Debugf("open-golang failed: %v, trying platform-specific commands", err)
	return openURLPlatformSpecific(url)
}

func openURLPlatformSpecific(url string) error {
	cmd, err := platformCommand(url)
	if err != nil {
		return err
	}

	log.Debugf("running browser command: %s", cmd.Path)
	if err = cmd.Start(); err != nil {
		return fmt.Errorf("failed to start browser command: %w", err)
	}
	// reap the child without blocking the login
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

func platformCommand(url string) (*exec.Cmd, error) {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		for _, browser := range linuxBrowsers {
			if _, err := exec.LookPath(browser); err == nil {
				return exec.Command(browser, url), nil
			}
		}
		return nil, fmt.Errorf("no suitable browser found")
	default:
		return nil, fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// IsAvailable reports whether a browser command exists on this system.
// It does not launch anything.
func IsAvailable() bool {
	switch runtime.GOOS {
	case "darwin":
		_, err := exec.LookPath("open")
		return err == nil
	case "windows":
		_, err := exec.LookPath("rundll32")
		return err == nil
	default:
		for _, browser := range linuxBrowsers {
			if _, err := exec.LookPath(browser); err == nil {
				return true
			}
		}
		return false
	}
}
