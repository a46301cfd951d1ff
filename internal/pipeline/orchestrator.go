package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dygy/sheetplay/internal/audio"
	"github.com/dygy/sheetplay/internal/document"
	apperrors "github.com/dygy/sheetplay/internal/errors"
	"github.com/dygy/sheetplay/internal/exec"
	"github.com/dygy/sheetplay/internal/omr"
	"github.com/dygy/sheetplay/internal/pages"
	"github.com/dygy/sheetplay/internal/progress"
	"github.com/dygy/sheetplay/internal/score"
	"github.com/dygy/sheetplay/internal/workspace"
)

// Config holds one run's parameters. It is assembled before execution and
// immutable for the duration of the run.
type Config struct {
	InputPath    string
	OutputDir    string
	AudiverisBin string // path to the OMR engine binary
	Soundfont    string // path to the instrument-sample bank
	Transpose    int    // semitone offset applied before other cleanup
	LeftHand     bool   // keep only pitches <= 60
	RightHand    bool   // keep only pitches >= 61
	Strategy     score.Strategy
	NoPlay       bool // suppress the playback trigger
}

// DefaultConfig returns default pipeline configuration
func DefaultConfig() Config {
	return Config{
		OutputDir:    "output",
		AudiverisBin: "/opt/audiveris/bin/Audiveris",
		Soundfont:    "/usr/share/sounds/sf2/FluidR3_GM.sf2",
	}
}

// Result contains the artifacts of a completed run.
type Result struct {
	BaseName      string
	WorkDir       string
	PageImages    []string
	NotationFiles []string
	UsedFallback  bool
	MIDIPath      string
	MP3Path       string
}

// Orchestrator coordinates the full conversion pipeline, strictly sequential
// per input document.
type Orchestrator struct {
	runner   *exec.Runner
	progress *progress.Reporter
	logger   *slog.Logger
}

// New creates a new pipeline orchestrator
func New(out io.Writer, verbose bool, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		runner:   exec.NewRunner(),
		progress: progress.NewReporter(out, verbose),
		logger:   logger,
	}
}

// CheckEnvironment verifies required binaries and assets once at startup.
// Any absence is fatal before any run.
func CheckEnvironment(cfg Config) error {
	if _, err := os.Stat(cfg.AudiverisBin); err != nil {
		return fmt.Errorf("%w: Audiveris not found at %s", apperrors.ErrToolNotInstalled, cfg.AudiverisBin)
	}
	if _, err := os.Stat(cfg.Soundfont); err != nil {
		return fmt.Errorf("%w: SoundFont not found at %s", apperrors.ErrFileNotFound, cfg.Soundfont)
	}
	for _, binary := range []string{"fluidsynth", "ffmpeg"} {
		if _, err := exec.Find(binary); err != nil {
			return fmt.Errorf("%w: %s, please install it", apperrors.ErrToolNotInstalled, binary)
		}
	}
	return nil
}

// Execute runs the full pipeline for one input document. Mid-pipeline stage
// failures degrade to "no artifact produced"; each stage checks its
// predecessor's artifacts before proceeding.
func (o *Orchestrator) Execute(ctx context.Context, cfg Config) (*Result, error) {
	// Stage 1: Validate input
	o.progress.StartStage(progress.StageValidate)
	format, err := document.Validate(cfg.InputPath)
	if err != nil {
		return nil, err
	}
	o.progress.StageComplete("Valid %s document", format)

	ws, err := workspace.New(cfg.OutputDir, cfg.InputPath)
	if err != nil {
		return nil, err
	}
	result := &Result{BaseName: ws.BaseName, WorkDir: ws.Dir}

	// Stage 2: Page images
	o.progress.StartStage(progress.StagePrepare)
	preparer := pages.NewPreparer(o.runner, o.logger)
	images, err := preparer.Prepare(ctx, cfg.InputPath, format, ws.ImagesDir())
	if err != nil {
		return nil, fmt.Errorf("prepare pages: %w", err)
	}
	result.PageImages = images
	o.progress.StageComplete("%d page image(s) ready", len(images))

	// Stage 3: Recognition, then fallback when nothing was produced
	o.progress.StartStage(progress.StageRecognize)
	engine := omr.NewEngine(cfg.AudiverisBin, o.runner, o.logger)
	engine.Recognize(ctx, images, ws.Dir)

	notation := ws.NotationFiles()
	if len(notation) == 0 {
		fallback := omr.NewFallback(o.runner, o.logger)
		notation = fallback.Recover(ctx, cfg.InputPath, format, ws.MuseScoreXML())
		result.UsedFallback = len(notation) > 0
	}
	if len(notation) == 0 {
		return result, apperrors.ErrNoNotation
	}
	result.NotationFiles = notation
	o.progress.StageComplete("%d notation file(s) found", len(notation))

	// Stage 4: Notation cleanup and MIDI export
	o.progress.StartStage(progress.StageClean)
	cleaner := score.NewCleaner(o.logger)
	cleanCfg := score.Config{
		Transpose: cfg.Transpose,
		LeftHand:  cfg.LeftHand,
		RightHand: cfg.RightHand,
		Strategy:  cfg.Strategy,
	}
	if err := cleaner.Clean(notation, cleanCfg, ws.MIDI(), ws.NotesJSON()); err != nil {
		return result, fmt.Errorf("notation cleanup: %w", err)
	}
	result.MIDIPath = ws.MIDI()
	o.progress.StageComplete("MIDI written at %d BPM", score.UniformBPM)

	// Stage 5: Audio rendering; success is the presence of the MP3
	o.progress.StartStage(progress.StageRender)
	renderer := audio.NewRenderer(cfg.Soundfont, o.runner, o.logger)
	renderer.Render(ctx, ws.MIDI(), ws.WAV(), ws.MP3())
	if _, err := os.Stat(ws.MP3()); err != nil {
		return result, errors.New("audio rendering produced no MP3")
	}
	result.MP3Path = ws.MP3()
	o.progress.StageComplete("MP3 ready")

	if !cfg.NoPlay {
		player := audio.NewPlayer(o.runner, o.logger)
		player.Play(ctx, result.MP3Path)
	}

	o.progress.Done(result.MP3Path)
	return result, nil
}
