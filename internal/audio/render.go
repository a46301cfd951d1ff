package audio

import (
	"context"
	"log/slog"
	"os"

	"github.com/dygy/sheetplay/internal/exec"
)

const (
	sampleRate = "44100"
	synthGain  = "1.0"
)

// Renderer synthesizes a MIDI file with FluidSynth and encodes the result to
// a loudness-normalized MP3 with ffmpeg. External-tool failures are logged
// and never raised; the caller detects success by the presence of the MP3.
type Renderer struct {
	soundfont string
	runner    *exec.Runner
	logger    *slog.Logger
}

// NewRenderer creates a renderer using the given instrument-sample bank.
func NewRenderer(soundfont string, runner *exec.Runner, logger *slog.Logger) *Renderer {
	return &Renderer{soundfont: soundfont, runner: runner, logger: logger}
}

// Render produces mp3Path from midiPath through a transient WAV at wavPath.
// The WAV is deleted after a successful encode; on failure, whatever partial
// artifacts exist are left in place.
func (r *Renderer) Render(ctx context.Context, midiPath, wavPath, mp3Path string) {
	if _, err := os.Stat(midiPath); err != nil {
		r.logger.Error("no valid MIDI to convert", "path", midiPath)
		return
	}

	r.logger.Info("converting MIDI to MP3 with normalization")

	_, err := r.runner.Run(ctx, "fluidsynth",
		"-ni", r.soundfont, midiPath,
		"-F", wavPath,
		"-r", sampleRate,
		"-g", synthGain,
	)
	if err != nil {
		r.logger.Error("synthesis failed", "error", err)
		return
	}

	_, err = r.runner.Run(ctx, "ffmpeg",
		"-y",
		"-i", wavPath,
		"-filter:a", "loudnorm",
		mp3Path,
	)
	if err != nil {
		r.logger.Error("encoding failed", "error", err)
		return
	}

	// best effort; absence is not an error
	os.Remove(wavPath)

	r.logger.Info("MP3 created", "path", mp3Path)
}
