// Package logging re-exports the logger setup for SDK consumers.
package logging

import internallogging "github.com/router-for-me/openai-auth/internal/logging"

// OutputOptions selects where logs go.
type OutputOptions = internallogging.OutputOptions

// LogFormatter is the logrus formatter used by openai-auth.
type LogFormatter = internallogging.LogFormatter

// SetupBaseLogger installs the openai-auth formatter on the standard logrus logger.
func SetupBaseLogger() { internallogging.SetupBaseLogger() }

// ConfigureLogOutput switches between stderr and a rotating log file.
func ConfigureLogOutput(opts OutputOptions) error { return internallogging.ConfigureLogOutput(opts) }
