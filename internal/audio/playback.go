package audio

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/dygy/sheetplay/internal/exec"
)

// Player opens an audio file with the host's default mechanism. Playback is
// never part of the pipeline's success/failure determination.
type Player struct {
	runner *exec.Runner
	logger *slog.Logger
}

// NewPlayer creates a playback trigger
func NewPlayer(runner *exec.Runner, logger *slog.Logger) *Player {
	return &Player{runner: runner, logger: logger}
}

// Play attempts best-effort playback; any failure is logged as a warning.
func (p *Player) Play(ctx context.Context, path string) {
	name, args := openerCommand(path)
	if _, err := p.runner.Run(ctx, name, args...); err != nil {
		p.logger.Warn("could not play audio", "path", path, "error", err)
	}
}

func openerCommand(path string) (string, []string) {
	switch runtime.GOOS {
	case "darwin":
		return "afplay", []string{path}
	case "windows":
		return "cmd", []string{"/c", "start", "", path}
	default:
		return "xdg-open", []string{path}
	}
}
