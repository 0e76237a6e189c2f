// Package errors provides structured CLI error types for tilepad-vtstudio.
//
// CLIError wraps errors with user-facing messages, hints, and exit codes
// so every command reports failures the same way.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Exit codes for CLI errors.
const (
	ExitGeneral   = 1  // General error
	ExitAuth      = 2  // Authentication error
	ExitNetwork   = 3  // Network/API error
	ExitConfig    = 4  // Configuration error
	ExitTimeout   = 5  // Request timeout
	ExitExecution = 6  // Plugin session failure
	ExitUsage     = 64 // Command line usage error (BSD convention)
)

// CLIError represents a user-facing CLI error with actionable guidance.
type CLIError struct {
	// Message is the primary error message shown to the user.
	Message string

	// Hint provides actionable guidance on how to fix the error.
	Hint string

	// Cause is the underlying error, if any.
	Cause error

	// Code is the exit code for the CLI.
	Code int
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}

	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// As is a convenience function for errors.As with CLIError.
func As(err error, target **CLIError) bool {
	return errors.As(err, target)
}

// NoStoredToken returns an error when no access token is stored locally.
func NoStoredToken() *CLIError {
	return &CLIError{
		Message: "No stored access token",
		Hint:    "Run 'tilepad-vtstudio authorize' to request one from VTube Studio",
		Code:    ExitAuth,
	}
}

// AuthFailed returns an error when VTube Studio rejects a token.
func AuthFailed(cause error) *CLIError {
	return &CLIError{
		Message: "Authentication failed",
		Hint:    "Run 'tilepad-vtstudio token clear' and then 'tilepad-vtstudio authorize'",
		Cause:   cause,
		Code:    ExitAuth,
	}
}

// TokenRequestFailed returns an error when VTube Studio does not grant a token.
func TokenRequestFailed(cause error) *CLIError {
	return &CLIError{
		Message: "Token request failed",
		Hint:    "Click Allow on the plugin prompt inside VTube Studio, then retry",
		Cause:   cause,
		Code:    ExitAuth,
	}
}

// CannotPrompt returns an error when interactive prompts are unavailable.
func CannotPrompt(envVar string) *CLIError {
	return &CLIError{
		Message: "Cannot prompt in non-interactive mode",
		Hint:    fmt.Sprintf("Set %s environment variable instead", envVar),
		Code:    ExitUsage,
	}
}

// VTSUnreachable returns an error when the VTube Studio API cannot be reached.
// The hint depends on how the dial failed.
func VTSUnreachable(url string, cause error) *CLIError {
	hint := "Check that VTube Studio is running and vts.url is correct"

	if cause != nil {
		switch msg := cause.Error(); {
		case containsAny(msg, "connection refused", "actively refused"):
			hint = "Start VTube Studio and turn on \"Start API\" in its settings"
		case containsAny(msg, "timeout", "deadline exceeded"):
			hint = "VTube Studio did not answer in time. Check the port, or raise vts.request_timeout"
		case containsAny(msg, "no such host", "invalid port", "malformed"):
			hint = "Fix the address with 'tilepad-vtstudio config set vts.url <url>'"
		}
	}

	return &CLIError{
		Message: fmt.Sprintf("VTube Studio not reachable at %s", url),
		Hint:    hint,
		Cause:   cause,
		Code:    ExitNetwork,
	}
}

// HostUnreachable returns an error when the Tilepad host connection fails.
func HostUnreachable(url string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Tilepad host not reachable at %s", url),
		Hint:    "Tilepad starts this plugin itself. Check --connect-url when running it by hand",
		Cause:   cause,
		Code:    ExitNetwork,
	}
}

// FlagRequired returns an error when a required flag is missing.
func FlagRequired(flag string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Missing required flag --%s", flag),
		Hint:    "Tilepad passes --plugin-id and --connect-url when it launches the plugin",
		Code:    ExitUsage,
	}
}

// ConfigFailed returns an error for configuration save failures.
func ConfigFailed(operation string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Failed to %s", operation),
		Hint:    "Check file permissions for your tilepad-vtstudio config directory or run 'tilepad-vtstudio doctor'",
		Cause:   cause,
		Code:    ExitConfig,
	}
}

// UnknownConfigKey returns an error for a config key that is not supported.
func UnknownConfigKey(key string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Unknown config key: %s", key),
		Hint:    "Run 'tilepad-vtstudio config list' to see supported keys",
		Code:    ExitUsage,
	}
}

// IconUnreadable returns an error when the plugin icon cannot be loaded.
func IconUnreadable(path string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Cannot read plugin icon: %s", path),
		Hint:    "Point plugin.icon at a 128x128 PNG file, or unset it",
		Cause:   cause,
		Code:    ExitConfig,
	}
}

// RequestTimedOut returns an error for a VTube Studio request that ran out of time.
func RequestTimedOut(request, timeout string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("%s timed out after %s", request, timeout),
		Hint:    "VTube Studio may be waiting on a dialog. Answer it and retry",
		Code:    ExitTimeout,
	}
}

// SessionFailed returns an error when the plugin session ends abnormally.
func SessionFailed(cause error) *CLIError {
	return &CLIError{
		Message: "Plugin session ended unexpectedly",
		Hint:    "Run with --log-level=debug and check the log file for details",
		Cause:   cause,
		Code:    ExitExecution,
	}
}

// containsAny checks if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrings {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}

	return false
}
