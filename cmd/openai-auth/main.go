// Package main provides the openai-auth command: it signs in to OpenAI with the
// Codex OAuth client, refreshes tokens, exchanges ID tokens for API keys and
// extracts account IDs from tokens.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/router-for-me/openai-auth/internal/buildinfo"
	"github.com/router-for-me/openai-auth/internal/cmd"
	"github.com/router-for-me/openai-auth/internal/config"
	"github.com/router-for-me/openai-auth/internal/logging"
	"github.com/router-for-me/openai-auth/internal/util"
	log "github.com/sirupsen/logrus"
)

var (
	Version           = "dev"
	Commit            = "none"
	BuildDate         = "unknown"
	DefaultConfigPath = ""
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath        string
		apiKey            bool
		noBrowser         bool
		oauthCallbackPort int
		timeout           time.Duration
		refreshToken      string
		accountIDToken    string
		exchangeIDToken   string
		asJSON            bool
		copyURL           bool
		debug             bool
		showVersion       bool
	)

	flag.StringVar(&configPath, "config", DefaultConfigPath, "Configure File Path")
	flag.BoolVar(&apiKey, "api-key", false, "Also exchange the ID token for an OpenAI API key")
	flag.BoolVar(&noBrowser, "no-browser", false, "Don't open browser automatically for OAuth")
	flag.IntVar(&oauthCallbackPort, "oauth-callback-port", 0, "Override OAuth callback port (defaults to 1455)")
	flag.DurationVar(&timeout, "timeout", 0, "How long to wait for the OAuth callback (default from config, 5m)")
	flag.StringVar(&refreshToken, "refresh", "", "Refresh tokens using this refresh token instead of logging in")
	flag.StringVar(&accountIDToken, "account-id", "", "Print the ChatGPT account ID of this token (not verified)")
	flag.StringVar(&exchangeIDToken, "exchange-id-token", "", "Exchange this ID token for an OpenAI API key")
	flag.BoolVar(&asJSON, "json", false, "Print results as JSON")
	flag.BoolVar(&copyURL, "copy-url", false, "Copy the authorization URL to the clipboard")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&showVersion, "version", false, "Print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("openai-auth Version: %s, Commit: %s, BuiltAt: %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)
		return cmd.ExitOK
	}

	// Load environment variables from .env if present.
	if wd, errWd := os.Getwd(); errWd == nil {
		if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil && !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}

	if configPath == "" {
		configPath = os.Getenv("OPENAI_AUTH_CONFIG")
	}
	resolvedPath, err := util.ExpandPath(configPath)
	if err != nil {
		log.Errorf("failed to resolve config path: %v", err)
		return cmd.ExitFailure
	}
	cfg, err := config.LoadConfigOptional(resolvedPath, configPath == "")
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		return cmd.ExitFailure
	}
	cfg.ApplyEnv()
	if debug {
		cfg.Debug = true
	}

	logOutput, err := cfg.LogOutput()
	if err != nil {
		log.Errorf("failed to resolve log directory: %v", err)
		return cmd.ExitFailure
	}
	if err = logging.ConfigureLogOutput(logOutput); err != nil {
		log.Errorf("failed to configure log output: %v", err)
		return cmd.ExitFailure
	}
	defer logging.Close()
	util.SetLogLevel(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	options := &cmd.LoginOptions{
		NoBrowser:    noBrowser,
		CallbackPort: oauthCallbackPort,
		APIKey:       apiKey,
		Timeout:      timeout,
		JSON:         asJSON,
		CopyURL:      copyURL,
	}

	switch {
	case accountIDToken != "":
		return cmd.DoAccountID(accountIDToken, options)
	case refreshToken != "":
		return cmd.DoRefresh(ctx, cfg, refreshToken, options)
	case exchangeIDToken != "":
		return cmd.DoAPIKeyExchange(ctx, cfg, exchangeIDToken, options)
	default:
		return cmd.DoCodexLogin(ctx, cfg, options)
	}
}
