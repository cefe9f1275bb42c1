// Package config provides the public configuration API.
//
// It re-exports the CLI configuration types and helpers so external projects can
// load an openai-auth configuration file without importing internal packages.
package config

import internalconfig "github.com/router-for-me/openai-auth/internal/config"

type Config = internalconfig.Config

const (
	DefaultCallbackTimeout = internalconfig.DefaultCallbackTimeout
	DefaultRequestTimeout  = internalconfig.DefaultRequestTimeout
)

func Default() *Config { return internalconfig.Default() }

func LoadConfig(configFile string) (*Config, error) { return internalconfig.LoadConfig(configFile) }

func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	return internalconfig.LoadConfigOptional(configFile, optional)
}
