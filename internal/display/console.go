// Package display renders human-facing status output for interactive runs.
// Structured logs go to stderr through the logging package; this package
// owns the short colored summary a person sees when running a one-shot
// backup from a shell.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// defaultWidth is used when the output is not a terminal
const defaultWidth = 80

// Console writes status lines for one backup run
type Console struct {
	out            io.Writer
	colorSupported bool
	profile        termenv.Profile

	success *color.Color
	failure *color.Color
	info    *color.Color
	muted   *color.Color
}

// NewConsole creates a console writing to w. Colors are enabled only when
// w is the process stdout and it is an interactive terminal.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	c := &Console{
		out:            w,
		colorSupported: detectColorSupport(w),
		profile:        termenv.ColorProfile(),
		success:        color.New(color.FgHiGreen, color.Bold),
		failure:        color.New(color.FgHiRed, color.Bold),
		info:           color.New(color.FgCyan),
		muted:          color.New(color.FgWhite),
	}
	if !c.colorSupported {
		c.success.DisableColor()
		c.failure.DisableColor()
		c.info.DisableColor()
		c.muted.DisableColor()
	}
	return c
}

// detectColorSupport checks if the output supports colors
func detectColorSupport(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return false
	}
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return true
}

// width returns the terminal width, or a fixed default for pipes
func (c *Console) width() int {
	if f, ok := c.out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return defaultWidth
}

// Rule prints a horizontal separator sized to the terminal
func (c *Console) Rule() {
	fmt.Fprintln(c.out, c.muted.Sprint(strings.Repeat("-", c.width())))
}

// Infof prints an informational status line
func (c *Console) Infof(format string, args ...interface{}) {
	fmt.Fprintln(c.out, c.info.Sprintf(format, args...))
}

// PartUploaded prints progress for one acknowledged part
func (c *Console) PartUploaded(partNumber int64, size int64) {
	fmt.Fprintf(c.out, "  part %d uploaded (%s)\n", partNumber, formatBytes(size))
}

// Success prints the terminal success summary for a run
func (c *Console) Success(objectName string, parts int) {
	fmt.Fprintf(c.out, "%s %s (%d parts)\n",
		c.success.Sprint("✓ backup complete:"), objectName, parts)
}

// Failure prints the terminal failure summary for a run
func (c *Console) Failure(code string) {
	fmt.Fprintf(c.out, "%s %s\n", c.failure.Sprint("✗ backup failed:"), code)
}

// formatBytes renders a byte count in human-readable units
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
