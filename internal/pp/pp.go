// Package pp ties every other internal package together into the top-level
// Load pipeline (spec.md §4.8): PreprocessorContext plumbing, a
// deduplicating LogSession, and the LoadError type returned to callers.
//
// Grounded on the teacher's errf/warnf/strictErrf formatted-sink convention
// (main.go), generalized from "print to stderr and exit" into "buffer,
// dedupe, and return a structured error" since a library entry point can't
// call os.Exit on its caller's behalf.
package pp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/openhab/yamlpp/internal/diag"
)

// LoadError is returned by Load for both located parse/resolution failures
// and the plain-message cases from spec.md §6 (circular include, depth
// exceeded). load_into_openhab: false is reported as *SkipError instead.
type LoadError struct {
	RelativePath string
	Line         int
	Column       int
	Class        string
	Message      string

	plain bool // true for a bare message with no location/class
}

func (e *LoadError) Error() string {
	if e == nil {
		return ""
	}
	if e.plain {
		return e.Message
	}
	return fmt.Sprintf("[yamlpp:error:%s] %s:%d:%d: %s", e.Class, e.RelativePath, e.Line, e.Column, e.Message)
}

// newPlainError builds the "otherwise" LoadError variant from spec.md §6.
func newPlainError(msg string) *LoadError {
	return &LoadError{Message: msg, plain: true}
}

// newLocatedError builds the located-diagnostic LoadError variant.
func newLocatedError(relPath string, line, col int, class, msg string) *LoadError {
	return &LoadError{RelativePath: relPath, Line: line, Column: col, Class: class, Message: msg}
}

// LogSession is the buffered, deduplicating warning sink shared by a
// top-level Load call and every file it transitively includes (spec.md §3,
// §5). Warnings are identified, and deduplicated, by their literal message
// text.
type LogSession struct {
	ID      uuid.UUID
	Printer diag.Printer

	mu     sync.Mutex
	counts map[string]int
	order  []string
}

func newLogSession(printer diag.Printer) *LogSession {
	return &LogSession{ID: uuid.New(), Printer: printer, counts: map[string]int{}}
}

// warn records msg (already fully formatted by the caller) under relPath,
// printing it to stderr only the first time its exact text is seen.
func (s *LogSession) warn(relPath, msg string) {
	s.mu.Lock()
	first := s.counts[msg] == 0
	s.counts[msg]++
	if first {
		s.order = append(s.order, msg)
	}
	s.mu.Unlock()

	if first {
		line := s.Printer.Warnf("preprocessor", "%s", msg)
		if relPath != "" {
			line = line + " (" + relPath + ")"
		}
		fmt.Fprintln(os.Stderr, line)
	}
}

// TrackedWarnings returns the unique warning messages, in first-seen order.
func (s *LogSession) TrackedWarnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// TotalWarningCount returns the total number of warnings emitted, counting
// every repeat.
func (s *LogSession) TotalWarningCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, c := range s.counts {
		total += c
	}
	return total
}

// UniqueWarningCount returns the number of distinct warning messages seen.
func (s *LogSession) UniqueWarningCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// flush prints the load summary line (spec.md §7) if any warnings occurred.
func (s *LogSession) flush(relPath string) {
	total := s.TotalWarningCount()
	if total == 0 {
		return
	}
	fmt.Fprintln(os.Stderr, s.Printer.Summary(relPath, total, s.UniqueWarningCount()))
}

// relativeTo renders absPath relative to root for diagnostics, falling back
// to the absolute path when it isn't under root.
func relativeTo(root, absPath string) string {
	if root == "" {
		return absPath
	}
	rel, err := filepath.Rel(root, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return absPath
	}
	return rel
}
