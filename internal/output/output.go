// Package output writes command output for humans and scripts.
//
// Commands fetch the Writer from their context. Status lines carry a leading
// mark and are colored only on a color-capable TTY; structured values go out
// as JSON in --json mode and as YAML otherwise.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/musher-dev/tilepad-vtstudio/internal/terminal"
)

// Status marks.
const (
	CheckMark   = "\u2713" // ✓
	XMark       = "\u2717" // ✗
	WarningMark = "\u26A0" // ⚠
	InfoMark    = "\u2139" // ℹ
)

type contextKey struct{}

type tone int

const (
	toneSuccess tone = iota
	toneFailure
	toneWarning
	toneInfo
)

// style describes how one tone is written.
type style struct {
	mark  string
	color *color.Color
	// Failures go to Err and survive quiet mode.
	stderr bool
}

// Writer handles command output.
type Writer struct {
	Out     io.Writer
	Err     io.Writer
	JSON    bool
	Quiet   bool
	NoInput bool

	terminal *terminal.Info
	styles   map[tone]style
	muted    *color.Color
}

// Default returns a Writer on stdout and stderr.
func Default() *Writer {
	return NewWriter(os.Stdout, os.Stderr, terminal.Detect())
}

// NewWriter creates a Writer with custom writers and terminal info.
func NewWriter(out, errOut io.Writer, term *terminal.Info) *Writer {
	if !term.ColorEnabled() {
		color.NoColor = true
	}

	return &Writer{
		Out:      out,
		Err:      errOut,
		terminal: term,
		styles: map[tone]style{
			toneSuccess: {mark: CheckMark, color: color.New(color.FgGreen)},
			toneFailure: {mark: XMark, color: color.New(color.FgRed), stderr: true},
			toneWarning: {mark: WarningMark, color: color.New(color.FgYellow)},
			toneInfo:    {mark: InfoMark, color: color.New(color.FgCyan)},
		},
		muted: color.New(color.FgHiBlack),
	}
}

// WithContext stores the Writer in ctx.
func (w *Writer) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, w)
}

// FromContext returns the Writer stored in ctx, or Default().
func FromContext(ctx context.Context) *Writer {
	if w, ok := ctx.Value(contextKey{}).(*Writer); ok {
		return w
	}

	return Default()
}

// Terminal returns the terminal info.
func (w *Writer) Terminal() *terminal.Info {
	return w.terminal
}

// SetNoColor forces plain output.
func (w *Writer) SetNoColor(disabled bool) {
	w.terminal.ForceFlag = disabled
	if disabled {
		color.NoColor = true
	}
}

// Print writes to Out unless quiet.
func (w *Writer) Print(format string, args ...any) {
	if !w.Quiet {
		fmt.Fprintf(w.Out, format, args...)
	}
}

// Println writes a line to Out unless quiet.
func (w *Writer) Println(args ...any) {
	if !w.Quiet {
		fmt.Fprintln(w.Out, args...)
	}
}

// PrintJSON writes v as indented JSON. Quiet mode does not apply: scripts
// asked for the data.
func (w *Writer) PrintJSON(v any) error {
	enc := json.NewEncoder(w.Out)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// PrintYAML writes v as YAML unless quiet.
func (w *Writer) PrintYAML(v any) error {
	if w.Quiet {
		return nil
	}

	enc := yaml.NewEncoder(w.Out)
	enc.SetIndent(2)

	if err := enc.Encode(v); err != nil {
		return err
	}

	return enc.Close()
}

// PrintStructured writes v as JSON in JSON mode and as YAML otherwise.
func (w *Writer) PrintStructured(v any) error {
	if w.JSON {
		return w.PrintJSON(v)
	}

	return w.PrintYAML(v)
}

// Success writes a line marked with a check.
func (w *Writer) Success(format string, args ...any) {
	w.status(toneSuccess, format, args...)
}

// Failure writes a line marked with a cross to Err. It is never suppressed.
func (w *Writer) Failure(format string, args ...any) {
	w.status(toneFailure, format, args...)
}

// Warning writes a line marked with a warning sign.
func (w *Writer) Warning(format string, args ...any) {
	w.status(toneWarning, format, args...)
}

// Info writes a line marked with an info sign.
func (w *Writer) Info(format string, args ...any) {
	w.status(toneInfo, format, args...)
}

// Muted writes secondary text.
func (w *Writer) Muted(format string, args ...any) {
	if w.Quiet {
		return
	}

	msg := fmt.Sprintf(format, args...)
	if w.terminal.ColorEnabled() {
		w.muted.Fprintln(w.Out, msg)
		return
	}

	fmt.Fprintln(w.Out, msg)
}

func (w *Writer) status(t tone, format string, args ...any) {
	s := w.styles[t]
	if w.Quiet && !s.stderr {
		return
	}

	dst := w.Out
	if s.stderr {
		dst = w.Err
	}

	msg := fmt.Sprintf(format, args...)

	if w.terminal.ColorEnabled() {
		s.color.Fprint(dst, s.mark+" ")
		fmt.Fprintln(dst, msg)

		return
	}

	fmt.Fprintln(dst, s.mark+" "+msg)
}

// Spinner shows progress for a multi-step operation. Without a spinner
// capable terminal every step is written on its own line instead, which is
// what ends up in Tilepad's captured output.
type Spinner struct {
	spinner *spinner.Spinner
	writer  *Writer
	message string
}

// Spinner creates a spinner for message. It does nothing until Start.
func (w *Writer) Spinner(message string) *Spinner {
	s := &Spinner{writer: w, message: message}

	if !w.Quiet && w.terminal.SpinnersEnabled() {
		s.spinner = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.spinner.Writer = w.Out
		s.spinner.Suffix = " " + message
	}

	return s
}

// Start begins the animation, or writes the first step line.
func (s *Spinner) Start() {
	if s.spinner == nil {
		s.writer.Print("%s...\n", s.message)
		return
	}

	s.spinner.Start()
}

// UpdateMessage moves on to the next step.
func (s *Spinner) UpdateMessage(message string) {
	s.message = message

	if s.spinner == nil {
		s.writer.Print("%s...\n", message)
		return
	}

	s.spinner.Suffix = " " + message
}

// Stop ends the animation.
func (s *Spinner) Stop() {
	if s.spinner != nil {
		s.spinner.Stop()
	}
}

// StopWithFailure ends the animation and reports message, if any, as a
// failure.
func (s *Spinner) StopWithFailure(message string) {
	s.Stop()

	if message != "" {
		s.writer.Failure("%s", message)
	}
}
