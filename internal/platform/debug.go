package platform

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// DebugOutput writes levelled diagnostic lines. Colors are used only when the
// writer is a terminal and colors were not disabled.
//
// DebugOutput is safe for concurrent use.
type DebugOutput struct {
	mu        sync.Mutex
	writer    io.Writer
	useColors bool

	infoColor  *color.Color
	warnColor  *color.Color
	errorColor *color.Color
}

// NewDebugOutput creates a debug writer on w.
func NewDebugOutput(w io.Writer, noColor bool) *DebugOutput {
	if w == nil {
		w = io.Discard
	}

	d := &DebugOutput{
		writer:     w,
		useColors:  !noColor && isTerminal(w) && os.Getenv("NO_COLOR") == "",
		infoColor:  color.New(color.FgCyan),
		warnColor:  color.New(color.FgYellow, color.Bold),
		errorColor: color.New(color.FgRed, color.Bold),
	}

	if d.useColors {
		// color.NoColor follows stdout only; the writer may be stderr.
		d.infoColor.EnableColor()
		d.warnColor.EnableColor()
		d.errorColor.EnableColor()
	} else {
		d.infoColor.DisableColor()
		d.warnColor.DisableColor()
		d.errorColor.DisableColor()
	}

	return d
}

// Infof writes an informational line.
func (d *DebugOutput) Infof(format string, args ...interface{}) {
	d.write(d.infoColor, "INFO", format, args...)
}

// Warnf writes a warning line.
func (d *DebugOutput) Warnf(format string, args ...interface{}) {
	d.write(d.warnColor, "WARN", format, args...)
}

// Errorf writes an error line.
func (d *DebugOutput) Errorf(format string, args ...interface{}) {
	d.write(d.errorColor, "ERROR", format, args...)
}

// UsesColors reports whether output is colored.
func (d *DebugOutput) UsesColors() bool {
	return d.useColors
}

func (d *DebugOutput) write(c *color.Color, level, format string, args ...interface{}) {
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")

	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.writer, "%s %s\n", c.Sprintf("%-5s", level), msg)
}

// isTerminal checks if the writer is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
