package documents

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
)

// CommandRunner executes external commands.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// InstallInstructions explains how to get pdftotext.
func InstallInstructions() string {
	return "PDF extraction requires pdftotext (poppler).\n" +
		"  macOS:         brew install poppler\n" +
		"  Debian/Ubuntu: apt install poppler-utils"
}

// extractPDF writes data to a temporary file and reads its text back
// from pdftotext on stdout.
func extractPDF(ctx context.Context, runner CommandRunner, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "airunner-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	out, err := runner.Run(ctx, "pdftotext", "-layout", "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		if _, ok := err.(*exec.Error); ok {
			return "", fmt.Errorf("%w\n%s", err, InstallInstructions())
		}
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return normalizePDFText(string(out)), nil
}

var (
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
)

// normalizePDFText turns page breaks into paragraph breaks and drops the
// padding -layout adds at line ends.
func normalizePDFText(s string) string {
	s = strings.ReplaceAll(s, "\f", "\n\n")
	s = trailingSpace.ReplaceAllString(s, "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
