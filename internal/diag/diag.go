// Package diag provides the ANSI-aware warning/error line formatting shared
// by internal/pp and cmd/yamlpp - lifted out of a single main package into
// its own package since the preprocessor has two consumers now (the
// library's LogSession and the CLI), not one.
package diag

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// Printer formats diagnostic lines, honoring a Color toggle so a caller can
// disable ANSI codes for CI/non-terminal output.
type Printer struct {
	Color bool
}

func (p Printer) colorize(color, text string) string {
	if !p.Color {
		return text
	}
	return color + text + colorReset
}

// Errf renders a standardized error line: [yamlpp:error:<class>] message.
func (p Printer) Errf(class, format string, a ...any) string {
	tag := p.colorize(colorRed+colorBold, fmt.Sprintf("[yamlpp:error:%s]", class))
	return fmt.Sprintf("%s %s", tag, fmt.Sprintf(format, a...))
}

// Warnf renders a standardized warning line: [yamlpp:warn:<class>] message.
func (p Printer) Warnf(class, format string, a ...any) string {
	tag := p.colorize(colorYellow, fmt.Sprintf("[yamlpp:warn:%s]", class))
	return fmt.Sprintf("%s %s", tag, fmt.Sprintf(format, a...))
}

// Location renders a "path:line:col" fragment in cyan.
func (p Printer) Location(path string, line, col int) string {
	return p.colorize(colorCyan, fmt.Sprintf("%s:%d:%d", path, line, col))
}

// Detail renders a dim "  Details: ..." fragment, for appending context
// under a primary diagnostic line.
func (p Printer) Detail(format string, a ...any) string {
	return p.colorize(colorGray, "  Details: "+fmt.Sprintf(format, a...))
}

// Summary renders a LogSession's final human-readable summary line, using
// humanize for the pluralized counts.
func (p Printer) Summary(relPath string, warnings, unique int) string {
	return fmt.Sprintf(
		"Loading YAML model %s: Preprocessing completed with %s (%s).",
		relPath,
		pluralize(warnings, "warning"),
		pluralize(unique, "unique issue"),
	)
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%s %s", humanize.Comma(int64(n)), noun)
	}
	return fmt.Sprintf("%s %ss", humanize.Comma(int64(n)), noun)
}

// DefaultPrinter honors NO_COLOR, for callers that don't have an explicit
// config. It does not check whether stderr is a terminal.
func DefaultPrinter() Printer {
	if os.Getenv("NO_COLOR") != "" {
		return Printer{Color: false}
	}
	return Printer{Color: true}
}
