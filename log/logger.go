// Package log manages the build log files for go-content.
//
// A build run writes to a small set of files under the configured logs
// directory: a combined results log, per-outcome lists (success, failure,
// skipped), and a debug log. Library packages never write these directly;
// they log through the LibraryLogger interface and the command layer
// (cmd/) translates build events into the files below.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Logger manages the per-run log files
type Logger struct {
	resultsFile *os.File
	successFile *os.File
	failureFile *os.File
	skippedFile *os.File
	debugFile   *os.File
	debug       bool
	mu          sync.Mutex
}

// NewLogger creates a logger writing under logsPath. The directory is
// created if missing. Existing files from a previous run are truncated.
func NewLogger(logsPath string, debug bool) (*Logger, error) {
	if err := os.MkdirAll(logsPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	l := &Logger{debug: debug}

	var err error
	l.resultsFile, err = os.Create(filepath.Join(logsPath, "00_last_results.log"))
	if err != nil {
		return nil, err
	}
	l.successFile, err = os.Create(filepath.Join(logsPath, "01_success_list.log"))
	if err != nil {
		return nil, err
	}
	l.failureFile, err = os.Create(filepath.Join(logsPath, "02_failure_list.log"))
	if err != nil {
		return nil, err
	}
	l.skippedFile, err = os.Create(filepath.Join(logsPath, "03_skipped_list.log"))
	if err != nil {
		return nil, err
	}
	l.debugFile, err = os.Create(filepath.Join(logsPath, "04_debug.log"))
	if err != nil {
		return nil, err
	}

	l.writeHeaders()

	return l, nil
}

// Close closes all log files
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, f := range []*os.File{l.resultsFile, l.successFile, l.failureFile, l.skippedFile, l.debugFile} {
		if f != nil {
			f.Close()
		}
	}
}

func (l *Logger) writeHeaders() {
	timestamp := time.Now().Format(time.RFC3339)

	fmt.Fprintf(l.resultsFile, "go-content build log - %s\n", timestamp)
	fmt.Fprintf(l.resultsFile, "%s\n\n", strings.Repeat("=", 70))

	fmt.Fprintf(l.successFile, "Built resources - %s\n\n", timestamp)
	fmt.Fprintf(l.failureFile, "Failed resources - %s\n\n", timestamp)
	fmt.Fprintf(l.skippedFile, "Skipped resources - %s\n\n", timestamp)
	fmt.Fprintf(l.debugFile, "Debug log - %s\n\n", timestamp)
}

// Success logs a successfully built resource
func (l *Logger) Success(sourcePath string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("15:04:05")
	l.resultsFile.WriteString(fmt.Sprintf("[%s] SUCCESS: %s\n", timestamp, sourcePath))
	l.successFile.WriteString(sourcePath + "\n")

	l.resultsFile.Sync()
	l.successFile.Sync()
}

// Failed logs a failed build with the compiler's error lines
func (l *Logger) Failed(sourcePath string, errs []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("15:04:05")
	l.resultsFile.WriteString(fmt.Sprintf("[%s] FAILED: %s\n", timestamp, sourcePath))
	l.failureFile.WriteString(sourcePath + "\n")
	for _, e := range errs {
		l.failureFile.WriteString("    " + e + "\n")
	}

	l.resultsFile.Sync()
	l.failureFile.Sync()
}

// Skipped logs a skipped resource with its reason
func (l *Logger) Skipped(sourcePath, reason string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("15:04:05")
	l.resultsFile.WriteString(fmt.Sprintf("[%s] SKIPPED: %s (%s)\n", timestamp, sourcePath, reason))
	l.skippedFile.WriteString(fmt.Sprintf("%s: %s\n", sourcePath, reason))

	l.resultsFile.Sync()
	l.skippedFile.Sync()
}

// Error logs an error message to the results and debug logs
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("15:04:05")
	errMsg := fmt.Sprintf("[%s] ERROR: %s\n", timestamp, msg)

	l.resultsFile.WriteString(errMsg)
	l.debugFile.WriteString(errMsg)

	l.resultsFile.Sync()
	l.debugFile.Sync()
}

// Info logs an informational message to the results log
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("15:04:05")
	l.resultsFile.WriteString(fmt.Sprintf("[%s] INFO: %s\n", timestamp, msg))
	l.resultsFile.Sync()
}

// Debug logs a diagnostic message if debug logging is enabled
func (l *Logger) Debug(msg string) {
	if !l.debug {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("15:04:05")
	l.debugFile.WriteString(fmt.Sprintf("[%s] %s\n", timestamp, msg))
	l.debugFile.Sync()
}

// WriteSummary writes a package build summary to the results log
func (l *Logger) WriteSummary(pkgName, platform string, total, success, failed, skipped int, duration time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fmt.Fprintf(l.resultsFile, "\n%s\n", strings.Repeat("=", 70))
	fmt.Fprintf(l.resultsFile, "BUILD SUMMARY: %s (%s)\n", pkgName, platform)
	fmt.Fprintf(l.resultsFile, "%s\n", strings.Repeat("=", 70))
	fmt.Fprintf(l.resultsFile, "Total resources:   %d\n", total)
	fmt.Fprintf(l.resultsFile, "Success:           %d\n", success)
	fmt.Fprintf(l.resultsFile, "Failed:            %d\n", failed)
	fmt.Fprintf(l.resultsFile, "Skipped:           %d\n", skipped)
	fmt.Fprintf(l.resultsFile, "Duration:          %s\n", duration)
	fmt.Fprintf(l.resultsFile, "%s\n", strings.Repeat("=", 70))

	l.resultsFile.Sync()
}
