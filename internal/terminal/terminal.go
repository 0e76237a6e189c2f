// Package terminal reports what the attached terminal can do.
//
// When Tilepad launches the plugin stdout is a pipe, so everything here
// degrades to plain, non-interactive output.
package terminal

import (
	"os"

	"golang.org/x/term"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
)

// Info holds terminal capabilities.
type Info struct {
	IsTTY   bool
	NoColor bool
	Width   int
	Height  int
	// ForceFlag is set by --no-color.
	ForceFlag bool
}

// Detect inspects stdout and the environment.
func Detect() *Info {
	return detect(os.Stdout, os.LookupEnv)
}

func detect(f *os.File, lookupEnv func(string) (string, bool)) *Info {
	info := &Info{Width: defaultWidth, Height: defaultHeight}

	fd := int(f.Fd())
	if term.IsTerminal(fd) {
		info.IsTTY = true

		if w, h, err := term.GetSize(fd); err == nil {
			info.Width, info.Height = w, h
		}
	}

	// https://no-color.org/
	if _, ok := lookupEnv("NO_COLOR"); ok {
		info.NoColor = true
	}

	if v, _ := lookupEnv("TERM"); v == "dumb" {
		info.NoColor = true
	}

	return info
}

// ColorEnabled reports whether output may be colored.
func (t *Info) ColorEnabled() bool {
	return !t.ForceFlag && t.IsTTY && !t.NoColor
}

// InteractiveEnabled reports whether prompts can be shown.
func (t *Info) InteractiveEnabled() bool {
	return t.IsTTY
}

// SpinnersEnabled reports whether animated spinners can be drawn.
func (t *Info) SpinnersEnabled() bool {
	return t.IsTTY && !t.NoColor
}
