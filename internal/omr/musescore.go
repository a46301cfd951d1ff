package omr

import (
	"context"
	"log/slog"
	"os"

	"github.com/dygy/sheetplay/internal/document"
	"github.com/dygy/sheetplay/internal/exec"
)

// museScoreCandidates are probed in priority order; first found wins.
var museScoreCandidates = []string{"musescore3", "mscore", "musescore"}

// Fallback imports a vector PDF through MuseScore when OMR produced nothing.
type Fallback struct {
	runner *exec.Runner
	logger *slog.Logger
}

// NewFallback creates the alternate recognizer
func NewFallback(runner *exec.Runner, logger *slog.Logger) *Fallback {
	return &Fallback{runner: runner, logger: logger}
}

// Recover invokes MuseScore once against the original document, writing a
// single notation file at outPath. It returns empty with no side effect when
// the document is not a PDF or no MuseScore binary is installed; invocation
// errors are logged with no retry.
func (f *Fallback) Recover(ctx context.Context, docPath string, format document.Format, outPath string) []string {
	if format != document.FormatPDF {
		return nil
	}
	bin, err := exec.Find(museScoreCandidates...)
	if err != nil {
		return nil
	}

	f.logger.Info("running MuseScore fallback", "bin", bin)

	if _, err := f.runner.Run(ctx, bin, docPath, "-o", outPath); err != nil {
		f.logger.Error("MuseScore fallback failed", "error", err)
		return nil
	}
	if _, err := os.Stat(outPath); err != nil {
		return nil
	}
	return []string{outPath}
}
