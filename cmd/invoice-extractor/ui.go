package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// UI renders human output. In JSON mode it stays silent so stdout carries
// only the machine-readable result.
type UI struct {
	out      io.Writer
	errOut   io.Writer
	jsonMode bool
	animate  bool
}

// NewUI creates a UI writing to stdout and stderr.
func NewUI(jsonMode bool) *UI {
	return &UI{
		out:      os.Stdout,
		errOut:   os.Stderr,
		jsonMode: jsonMode,
		animate:  !jsonMode && IsTerminal(),
	}
}

// Success prints a success message.
func (ui *UI) Success(format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	color.New(color.FgGreen).Fprintf(ui.out, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (ui *UI) Error(format string, args ...interface{}) {
	if ui.jsonMode {
		return
	}
	color.New(color.FgRed).Fprintf(ui.errOut, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Field prints an aligned label and value.
func (ui *UI) Field(label, value string) {
	if ui.jsonMode {
		return
	}
	fmt.Fprintf(ui.out, "  %-18s %s\n", color.New(color.Bold).Sprint(label+":"), value)
}

// Spin starts a spinner with message and returns its stop func. Without a
// terminal it is a no-op.
func (ui *UI) Spin(message string) func() {
	if !ui.animate {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message
	s.Writer = ui.errOut
	s.Start()
	return s.Stop
}

// Progress returns a bar over total items, or nil when not animating.
func (ui *UI) Progress(total int, description string) *progressbar.ProgressBar {
	if !ui.animate {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(ui.errOut),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("invoices"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(ui.errOut, "\n")
		}),
	)
}

// IsTerminal reports whether stdout is a terminal.
func IsTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
