package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// SetLogLevel switches logrus between debug and info level.
func SetLogLevel(debug bool) {
	currentLevel := log.GetLevel()
	newLevel := log.InfoLevel
	if debug {
		newLevel = log.DebugLevel
	}

	if currentLevel != newLevel {
		log.SetLevel(newLevel)
		log.Debugf("log level changed from %s to %s (debug=%t)", currentLevel, newLevel, debug)
	}
}

// ExpandPath expands a leading tilde (~) to the user's home directory and
// returns a cleaned path. An empty path stays empty.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		remainder := strings.TrimLeft(strings.TrimPrefix(path, "~"), "/\\")
		if remainder == "" {
			return filepath.Clean(home), nil
		}
		normalized := strings.ReplaceAll(remainder, "\\", "/")
		return filepath.Clean(filepath.Join(home, filepath.FromSlash(normalized))), nil
	}
	return filepath.Clean(path), nil
}

// MaskSecret keeps the first and last four characters of a secret for log output.
func MaskSecret(secret string) string {
	if len(secret) <= 12 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}
