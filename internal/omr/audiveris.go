package omr

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dygy/sheetplay/internal/exec"
)

// Engine invokes the Audiveris OMR engine over page images. Recognition
// failures never cross this boundary: they are logged, and the caller detects
// output by scanning the run directory for notation files.
type Engine struct {
	bin    string
	runner *exec.Runner
	logger *slog.Logger
}

// NewEngine creates a recognition runner for the engine binary at bin.
func NewEngine(bin string, runner *exec.Runner, logger *slog.Logger) *Engine {
	return &Engine{bin: bin, runner: runner, logger: logger}
}

// Recognize runs one batch invocation over all page images, falling back to
// one invocation per image when the batch exits non-zero. Batch mode is
// faster when it succeeds; per-image isolation keeps one malformed page from
// blocking recognition of the rest.
func (e *Engine) Recognize(ctx context.Context, images []string, outDir string) {
	e.logger.Info("running OMR batch", "images", len(images))

	batchLog := filepath.Join(outDir, "audiveris_batch.log")
	args := append([]string{"-batch", "-export", "-output", outDir}, images...)
	if _, err := e.runner.RunLogged(ctx, batchLog, e.bin, args...); err == nil {
		return
	}

	e.logger.Warn("batch OMR failed, falling back to per-image mode", "log", batchLog)

	for _, img := range images {
		stem := strings.TrimSuffix(filepath.Base(img), filepath.Ext(img))
		e.logger.Info("running OMR on page", "image", filepath.Base(img))

		imageLog := filepath.Join(outDir, stem+"_audiveris.log")
		_, err := e.runner.RunLogged(ctx, imageLog, e.bin, "-batch", "-export", "-output", outDir, img)
		if err != nil {
			e.logger.Warn("OMR failed for page", "image", filepath.Base(img), "log", imageLog)
		}
	}
}
