// Package doctor provides diagnostic checks for tilepad-vtstudio.
//
// This package implements a check framework that validates:
//   - Config file syntax
//   - Plugin icon readability
//   - VTube Studio reachability and version
//   - Stored access token validity
package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/musher-dev/tilepad-vtstudio/internal/auth"
	"github.com/musher-dev/tilepad-vtstudio/internal/buildinfo"
	"github.com/musher-dev/tilepad-vtstudio/internal/plugin"
	"github.com/musher-dev/tilepad-vtstudio/internal/state"
)

// DefaultTimeout bounds the VTube Studio checks.
const DefaultTimeout = 5 * time.Second

// Status represents the result of a diagnostic check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates a critical failure.
	StatusFail
)

// Result holds the outcome of a single check.
type Result struct {
	Name    string
	Status  Status
	Message string
	Detail  string // Optional additional detail
}

// Check is a diagnostic check function.
type Check func(ctx context.Context) Result

// TokenLoader returns the locally stored access token.
type TokenLoader interface {
	Load() (auth.TokenSource, string)
}

// Options configures the default checks.
type Options struct {
	Link       plugin.LinkOptions
	ConfigFile string
	IconPath   string
	Tokens     TokenLoader
	Timeout    time.Duration
}

// Runner executes diagnostic checks.
type Runner struct {
	checks []namedCheck
	opts   Options

	// link is opened by the VTube Studio check and reused by the token check.
	link *plugin.Link
}

type namedCheck struct {
	name  string
	check Check
}

// New creates a new diagnostic runner with the default checks.
func New(opts Options) *Runner {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	if opts.Tokens == nil {
		opts.Tokens = auth.TokenStore{}
	}

	r := &Runner{opts: opts}

	// Register default checks
	r.AddCheck("Plugin Version", checkVersion)
	r.AddCheck("Config File", r.checkConfigFile)
	r.AddCheck("Plugin Icon", r.checkIcon)
	r.AddCheck("VTube Studio", r.checkVTS)
	r.AddCheck("Access Token", r.checkToken)

	return r
}

// AddCheck registers a diagnostic check.
func (r *Runner) AddCheck(name string, check Check) {
	r.checks = append(r.checks, namedCheck{name: name, check: check})
}

// Run executes all registered checks and returns the results.
func (r *Runner) Run(ctx context.Context) []Result {
	defer r.closeLink()

	results := make([]Result, 0, len(r.checks))

	for _, nc := range r.checks {
		result := nc.check(ctx)
		result.Name = nc.name
		results = append(results, result)
	}

	return results
}

func (r *Runner) closeLink() {
	if r.link != nil {
		_ = r.link.Close()
		r.link = nil
	}
}

// Summary returns counts of passed, failed, and warning checks.
func Summary(results []Result) (passed, failed, warnings int) {
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			passed++
		case StatusFail:
			failed++
		case StatusWarn:
			warnings++
		}
	}

	return passed, failed, warnings
}

func checkVersion(context.Context) Result {
	if buildinfo.Version == "dev" {
		return Result{
			Status:  StatusWarn,
			Message: "Development build",
		}
	}

	return Result{
		Status:  StatusPass,
		Message: fmt.Sprintf("v%s (%s)", buildinfo.Version, buildinfo.Commit),
	}
}

// checkConfigFile verifies the optional config file parses as YAML.
func (r *Runner) checkConfigFile(context.Context) Result {
	path := r.opts.ConfigFile
	if path == "" {
		return Result{Status: StatusPass, Message: "Using defaults"}
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path is the resolved config location
	if errors.Is(err, os.ErrNotExist) {
		return Result{Status: StatusPass, Message: "Not present, using defaults", Detail: path}
	}

	if err != nil {
		return Result{Status: StatusFail, Message: "Unreadable", Detail: err.Error()}
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Result{Status: StatusFail, Message: "Invalid YAML", Detail: err.Error()}
	}

	return Result{Status: StatusPass, Message: path}
}

func (r *Runner) checkIcon(context.Context) Result {
	if r.opts.IconPath == "" {
		return Result{Status: StatusPass, Message: "None configured"}
	}

	if _, err := auth.LoadIcon(r.opts.IconPath); err != nil {
		return Result{
			Status:  StatusFail,
			Message: r.opts.IconPath,
			Detail:  err.Error(),
		}
	}

	return Result{Status: StatusPass, Message: r.opts.IconPath}
}

// checkVTS pings the VTube Studio API.
func (r *Runner) checkVTS(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	link, err := plugin.Dial(ctx, r.opts.Link)
	if err != nil {
		return Result{
			Status:  StatusFail,
			Message: fmt.Sprintf("Not reachable at %s", r.opts.Link.VTSURL),
			Detail:  err.Error(),
		}
	}

	r.link = link

	if !link.APIState.Active {
		return Result{
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s reports the API as inactive", link.URL()),
		}
	}

	return Result{
		Status: StatusPass,
		Message: fmt.Sprintf("v%s at %s (%dms)",
			link.APIState.VTubeStudioVersion, link.URL(), link.Latency.Milliseconds()),
	}
}

// checkToken reports the stored token and validates it when VTube Studio
// is reachable.
func (r *Runner) checkToken(ctx context.Context) Result {
	source, token := r.opts.Tokens.Load()
	if token == "" {
		return Result{
			Status:  StatusWarn,
			Message: "No token stored locally",
			Detail:  "Tilepad keeps the token in plugin settings. Run 'tilepad-vtstudio authorize' to store one here",
		}
	}

	if r.link == nil {
		return Result{
			Status:  StatusWarn,
			Message: fmt.Sprintf("Found via %s (not verified)", source),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	r.link.Auth.Authenticate(ctx, token)

	switch r.link.State.Phase() {
	case state.Authorized:
		return Result{Status: StatusPass, Message: fmt.Sprintf("Valid (via %s)", source)}
	case state.NotAuthorized:
		return Result{
			Status:  StatusFail,
			Message: fmt.Sprintf("Rejected by VTube Studio (via %s)", source),
			Detail:  "Run 'tilepad-vtstudio token clear' and then 'tilepad-vtstudio authorize'",
		}
	default:
		return Result{
			Status:  StatusWarn,
			Message: fmt.Sprintf("Found via %s (could not verify)", source),
		}
	}
}

// Printer writes status lines. *output.Writer satisfies it.
type Printer interface {
	Success(format string, args ...any)
	Warning(format string, args ...any)
	Failure(format string, args ...any)
	Muted(format string, args ...any)
}

// Render writes one aligned line per result, followed by its detail.
func Render(p Printer, results []Result) {
	width := 0
	for _, r := range results {
		width = max(width, len(r.Name))
	}

	width += 4

	for _, r := range results {
		line := p.Success

		switch r.Status {
		case StatusWarn:
			line = p.Warning
		case StatusFail:
			line = p.Failure
		}

		line("%-*s%s", width, r.Name, r.Message)

		if r.Detail != "" {
			p.Muted("    %s", r.Detail)
		}
	}
}
