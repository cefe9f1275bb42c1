package auth

import "errors"

// ErrConfigRequired is returned when Login or Refresh is called without a configuration.
var ErrConfigRequired = errors.New("openai auth: configuration is required")
