package doctor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/musher-dev/tilepad-vtstudio/internal/auth"
	"github.com/musher-dev/tilepad-vtstudio/internal/plugin"
	"github.com/musher-dev/tilepad-vtstudio/internal/vts"
	"github.com/musher-dev/tilepad-vtstudio/internal/vts/vtstest"
)

type fakeTokens struct {
	source auth.TokenSource
	token  string
}

func (f fakeTokens) Load() (auth.TokenSource, string) { return f.source, f.token }

func linkOptions(url string) plugin.LinkOptions {
	return plugin.LinkOptions{
		VTSURL:         url,
		Identity:       auth.Identity{Name: "Tilepad VT Studio", Developer: "Jacobtread"},
		RequestTimeout: time.Second,
		Logger:         slog.New(slog.DiscardHandler),
	}
}

func byName(results []Result) map[string]Result {
	out := make(map[string]Result, len(results))
	for _, r := range results {
		out[r.Name] = r
	}

	return out
}

func TestRun_AllChecksReported(t *testing.T) {
	srv := vtstest.NewServer(t)

	results := New(Options{
		Link:   linkOptions(srv.URL),
		Tokens: fakeTokens{},
	}).Run(context.Background())

	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}

	want := "Plugin Version,Config File,Plugin Icon,VTube Studio,Access Token"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("checks = %s, want %s", got, want)
	}
}

func TestCheckVTS(t *testing.T) {
	srv := vtstest.NewServer(t)

	got := byName(New(Options{Link: linkOptions(srv.URL), Tokens: fakeTokens{}}).Run(context.Background()))["VTube Studio"]

	if got.Status != StatusPass {
		t.Fatalf("status = %v, message = %q", got.Status, got.Message)
	}

	if !strings.Contains(got.Message, "v1.28.0") {
		t.Errorf("message = %q, want version", got.Message)
	}
}

func TestCheckVTS_Unreachable(t *testing.T) {
	r := New(Options{
		Link:    linkOptions("ws://127.0.0.1:1"),
		Tokens:  fakeTokens{source: auth.SourceKeyring, token: "T"},
		Timeout: time.Second,
	})

	results := byName(r.Run(context.Background()))

	if got := results["VTube Studio"]; got.Status != StatusFail || got.Detail == "" {
		t.Errorf("VTube Studio = %+v, want failure with detail", got)
	}

	if got := results["Access Token"]; got.Status != StatusWarn || !strings.Contains(got.Message, "not verified") {
		t.Errorf("Access Token = %+v, want unverified warning", got)
	}
}

func TestCheckToken(t *testing.T) {
	tests := []struct {
		name       string
		tokens     fakeTokens
		wantStatus Status
		wantMsg    string
	}{
		{
			name:       "none stored",
			tokens:     fakeTokens{},
			wantStatus: StatusWarn,
			wantMsg:    "No token",
		},
		{
			name:       "accepted",
			tokens:     fakeTokens{source: auth.SourceKeyring, token: "GOOD"},
			wantStatus: StatusPass,
			wantMsg:    "Valid (via keyring)",
		},
		{
			name:       "rejected",
			tokens:     fakeTokens{source: auth.SourceEnv, token: "BAD"},
			wantStatus: StatusFail,
			wantMsg:    "Rejected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := vtstest.NewServer(t)
			srv.Handle("AuthenticationRequest", func(data json.RawMessage) (any, *vts.APIError) {
				var req vts.AuthenticationRequest
				_ = json.Unmarshal(data, &req)

				return vts.AuthenticationResponse{Authenticated: req.AuthenticationToken == "GOOD"}, nil
			})

			got := byName(New(Options{Link: linkOptions(srv.URL), Tokens: tt.tokens}).Run(context.Background()))["Access Token"]

			if got.Status != tt.wantStatus {
				t.Errorf("status = %v, want %v (%q)", got.Status, tt.wantStatus, got.Message)
			}

			if !strings.Contains(got.Message, tt.wantMsg) {
				t.Errorf("message = %q, want to contain %q", got.Message, tt.wantMsg)
			}
		})
	}
}

func TestCheckConfigFile(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.yaml")
	if err := os.WriteFile(valid, []byte("vts:\n  url: ws://localhost:8001\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("vts: [unclosed\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		path       string
		wantStatus Status
		wantMsg    string
	}{
		{name: "unset", path: "", wantStatus: StatusPass, wantMsg: "Using defaults"},
		{name: "missing", path: filepath.Join(dir, "nope.yaml"), wantStatus: StatusPass, wantMsg: "Not present"},
		{name: "valid", path: valid, wantStatus: StatusPass, wantMsg: valid},
		{name: "invalid", path: invalid, wantStatus: StatusFail, wantMsg: "Invalid YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Runner{opts: Options{ConfigFile: tt.path}}

			got := r.checkConfigFile(context.Background())
			if got.Status != tt.wantStatus || !strings.Contains(got.Message, tt.wantMsg) {
				t.Errorf("checkConfigFile() = %+v, want %v %q", got, tt.wantStatus, tt.wantMsg)
			}
		})
	}
}

func TestCheckIcon(t *testing.T) {
	icon := filepath.Join(t.TempDir(), "icon.png")
	if err := os.WriteFile(icon, []byte{0x89, 'P', 'N', 'G'}, 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want Status
	}{
		{name: "unset", path: "", want: StatusPass},
		{name: "readable", path: icon, want: StatusPass},
		{name: "missing", path: icon + ".missing", want: StatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Runner{opts: Options{IconPath: tt.path}}

			if got := r.checkIcon(context.Background()); got.Status != tt.want {
				t.Errorf("checkIcon() = %+v, want %v", got, tt.want)
			}
		})
	}
}

func TestSummary(t *testing.T) {
	passed, failed, warnings := Summary([]Result{
		{Status: StatusPass},
		{Status: StatusPass},
		{Status: StatusWarn},
		{Status: StatusFail},
	})

	if passed != 2 || failed != 1 || warnings != 1 {
		t.Errorf("Summary() = %d, %d, %d", passed, failed, warnings)
	}
}

// linePrinter records each line with the name of the method that wrote it.
type linePrinter []string

func (l *linePrinter) add(kind, format string, args []any) {
	*l = append(*l, kind+":"+fmt.Sprintf(format, args...))
}

func (l *linePrinter) Success(format string, args ...any) { l.add("pass", format, args) }
func (l *linePrinter) Warning(format string, args ...any) { l.add("warn", format, args) }
func (l *linePrinter) Failure(format string, args ...any) { l.add("fail", format, args) }
func (l *linePrinter) Muted(format string, args ...any)   { l.add("muted", format, args) }

func TestRender(t *testing.T) {
	var lines linePrinter

	Render(&lines, []Result{
		{Name: "A", Status: StatusPass, Message: "ok"},
		{Name: "Token", Status: StatusWarn, Message: "not verified"},
		{Name: "Longer", Status: StatusFail, Message: "bad", Detail: "why"},
	})

	want := []string{
		"pass:A         ok",
		"warn:Token     not verified",
		"fail:Longer    bad",
		"muted:    why",
	}

	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Errorf("lines = %q, want %q", lines, want)
	}
}
