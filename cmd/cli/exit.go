package main

import (
	"fmt"
	"os"

	"github.com/thecyberx/cyberx/pkg/finding"
	"github.com/thecyberx/cyberx/pkg/ui"
)

// exitFindings is the exit code when -fail-on is met.
const exitFindings = 2

// exitWithError prints a formatted error message and exits with code 1.
// Use this instead of ui.PrintError + os.Exit(1) for consistent CLI error handling.
func exitWithError(format string, args ...any) {
	ui.PrintError(fmt.Sprintf(format, args...))
	os.Exit(1)
}

// exitWithUsage prints an error message followed by a usage hint, then exits.
func exitWithUsage(msg, usage string) {
	ui.PrintError(msg)
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Usage:", usage)
	os.Exit(1)
}

// failOnError reports a result at or above the -fail-on threshold. The
// result itself has already been written.
type failOnError struct {
	panel     string
	severity  finding.Severity
	threshold finding.Severity
}

func (e *failOnError) Error() string {
	return fmt.Sprintf("%s reported a %s finding (fail-on %s)", e.panel, e.severity, e.threshold)
}
