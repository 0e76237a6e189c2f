package errors

import (
	"fmt"
	"strings"
	"testing"

	"github.com/musher-dev/tilepad-vtstudio/internal/testutil"
)

func TestVTSUnreachable(t *testing.T) {
	tests := []struct {
		name     string
		cause    error
		wantHint string
	}{
		{
			name:     "no cause",
			cause:    nil,
			wantHint: "Check that VTube Studio is running",
		},
		{
			name:     "refused",
			cause:    fmt.Errorf("dial tcp 127.0.0.1:8001: connect: connection refused"),
			wantHint: "Start API",
		},
		{
			name:     "timeout",
			cause:    fmt.Errorf("context deadline exceeded"),
			wantHint: "vts.request_timeout",
		},
		{
			name:     "bad host",
			cause:    fmt.Errorf("dial tcp: lookup vts.invalid: no such host"),
			wantHint: "config set vts.url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VTSUnreachable("ws://localhost:8001", tt.cause)

			if !strings.Contains(err.Message, "ws://localhost:8001") {
				t.Errorf("message = %q, want to contain url", err.Message)
			}

			if !strings.Contains(err.Hint, tt.wantHint) {
				t.Errorf("hint = %q, want to contain %q", err.Hint, tt.wantHint)
			}

			if err.Code != ExitNetwork {
				t.Errorf("code = %d, want %d", err.Code, ExitNetwork)
			}

			if err.Cause != tt.cause { //nolint:errorlint // testing struct field identity
				t.Errorf("cause = %v, want %v", err.Cause, tt.cause)
			}
		})
	}
}

func TestRequestTimedOut(t *testing.T) {
	err := RequestTimedOut("AuthenticationTokenRequest", "2m0s")

	if err.Message != "AuthenticationTokenRequest timed out after 2m0s" {
		t.Errorf("message = %q", err.Message)
	}

	if err.Code != ExitTimeout {
		t.Errorf("code = %d, want %d", err.Code, ExitTimeout)
	}
}

func TestContainsAny(t *testing.T) {
	tests := []struct {
		s          string
		substrings []string
		want       bool
	}{
		{"connection refused", []string{"connection refused"}, true},
		{"CONNECTION REFUSED", []string{"connection refused"}, true},
		{"some error", []string{"refused", "timeout"}, false},
		{"i/o timeout", []string{"refused", "timeout"}, true},
		{"", []string{"test"}, false},
	}

	for _, tt := range tests {
		result := containsAny(tt.s, tt.substrings...)
		if result != tt.want {
			t.Errorf("containsAny(%q, %v) = %v, want %v", tt.s, tt.substrings, result, tt.want)
		}
	}
}

// constructors lists every error constructor with representative arguments.
var constructors = []struct {
	name string
	err  *CLIError
}{
	{"NoStoredToken", NoStoredToken()},
	{"AuthFailed", AuthFailed(nil)},
	{"TokenRequestFailed", TokenRequestFailed(nil)},
	{"CannotPrompt", CannotPrompt("VTSTUDIO_ACCESS_TOKEN")},
	{"VTSUnreachable", VTSUnreachable("ws://localhost:8001", nil)},
	{"HostUnreachable", HostUnreachable("ws://localhost:8000", nil)},
	{"FlagRequired", FlagRequired("plugin-id")},
	{"ConfigFailed", ConfigFailed("write config", nil)},
	{"UnknownConfigKey", UnknownConfigKey("vts.nope")},
	{"IconUnreadable", IconUnreadable("icon.png", nil)},
	{"RequestTimedOut", RequestTimedOut("AuthenticationTokenRequest", "2m0s")},
	{"SessionFailed", SessionFailed(nil)},
}

func TestConstructors_HaveMessageAndHint(t *testing.T) {
	for _, c := range constructors {
		if c.err.Message == "" || c.err.Hint == "" {
			t.Errorf("%s: message = %q, hint = %q", c.name, c.err.Message, c.err.Hint)
		}
	}
}

func TestCLIError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *CLIError
		want string
	}{
		{
			name: "message only",
			err:  &CLIError{Message: "test error"},
			want: "test error",
		},
		{
			name: "message with cause",
			err:  &CLIError{Message: "test error", Cause: fmt.Errorf("underlying")},
			want: "test error: underlying",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCLIError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := VTSUnreachable("ws://localhost:8001", cause)

	if got := err.Unwrap(); got != cause { //nolint:errorlint // testing identity
		t.Errorf("Unwrap() = %v, want %v", got, cause)
	}
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("run: %w", NoStoredToken())

	var cliErr *CLIError
	if !As(wrapped, &cliErr) {
		t.Fatal("As() = false, want true")
	}

	if cliErr.Code != ExitAuth {
		t.Errorf("code = %d, want %d", cliErr.Code, ExitAuth)
	}
}

// formatCLIError produces a deterministic string representation of a CLIError for golden file comparison.
func formatCLIError(err *CLIError) string {
	return fmt.Sprintf("Message: %s\nHint: %s\nCode: %d\n", err.Message, err.Hint, err.Code)
}

func TestErrorMessages_Golden(t *testing.T) {
	var sb strings.Builder
	for _, c := range constructors {
		fmt.Fprintf(&sb, "--- %s ---\n", c.name)
		sb.WriteString(formatCLIError(c.err))
		sb.WriteString("\n")
	}

	testutil.AssertGolden(t, sb.String(), "error_messages.golden")
}
