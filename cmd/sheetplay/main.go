package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dygy/sheetplay/internal/pipeline"
	"github.com/dygy/sheetplay/internal/score"
	"github.com/dygy/sheetplay/internal/server"
)

var (
	version = "0.1.0"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sheetplay",
	Short: "Convert sheet music scans to audible MP3",
	Long: `Sheetplay runs optical music recognition on sheet music in PDF or
image form and renders the result as an MP3.

Pipeline: document → page images → OMR → notation cleanup → MIDI → MP3`,
	Version: version,
}

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert one sheet-music document to MP3",
	Long: `Convert a scanned sheet-music PDF or image to an audible MP3.

Examples:
  sheetplay convert --input score.pdf
  sheetplay convert -i page.png -o out --transpose 2
  sheetplay convert -i score.pdf --left-hand --mono top`,
	RunE: runConvert,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP conversion API",
	Long: `Start an HTTP API for submitting sheet-music documents and
downloading the converted MIDI/MP3.

Example:
  sheetplay serve --port 8080`,
	RunE: runServe,
}

var (
	// convert flags
	inputPath    string
	outputDir    string
	audiverisBin string
	soundfont    string
	transpose    int
	leftHand     bool
	rightHand    bool
	monoStrategy string
	noPlay       bool
	verbose      bool

	// serve flags
	port int
)

func init() {
	defaults := pipeline.DefaultConfig()

	convertCmd.Flags().StringVarP(&inputPath, "input", "i", "", "input document (PDF, PNG or JPEG)")
	convertCmd.Flags().StringVarP(&outputDir, "output-dir", "o", defaults.OutputDir, "root directory for run artifacts")
	convertCmd.Flags().StringVar(&audiverisBin, "audiveris", defaults.AudiverisBin, "path to the Audiveris executable")
	convertCmd.Flags().StringVar(&soundfont, "soundfont", defaults.Soundfont, "path to a General MIDI SoundFont (.sf2)")
	convertCmd.Flags().IntVar(&transpose, "transpose", 0, "shift all notes by N semitones (positive = up)")
	convertCmd.Flags().BoolVar(&leftHand, "left-hand", false, "keep only left-hand pitches (MIDI <= 60)")
	convertCmd.Flags().BoolVar(&rightHand, "right-hand", false, "keep only right-hand pitches (MIDI >= 61)")
	convertCmd.Flags().StringVar(&monoStrategy, "mono", "", "monophonic reduction strategy: top, bottom, first or last")
	convertCmd.Flags().BoolVar(&noPlay, "no-play", false, "skip playback of the generated MP3")
	convertCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	convertCmd.MarkFlagRequired("input")

	serveCmd.Flags().IntVar(&port, "port", 8080, "port to listen on")
	serveCmd.Flags().StringVar(&outputDir, "output-dir", defaults.OutputDir, "root directory for run artifacts")
	serveCmd.Flags().StringVar(&audiverisBin, "audiveris", defaults.AudiverisBin, "path to the Audiveris executable")
	serveCmd.Flags().StringVar(&soundfont, "soundfont", defaults.Soundfont, "path to a General MIDI SoundFont (.sf2)")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(serveCmd)
}

// newLogger configures slog for the run; debug level with --verbose.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func buildConfig() (pipeline.Config, error) {
	strategy, err := score.ParseStrategy(monoStrategy)
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{
		InputPath:    inputPath,
		OutputDir:    outputDir,
		AudiverisBin: audiverisBin,
		Soundfont:    soundfont,
		Transpose:    transpose,
		LeftHand:     leftHand,
		RightHand:    rightHand,
		Strategy:     strategy,
		NoPlay:       noPlay,
	}, nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	logger := newLogger(verbose)

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	if err := pipeline.CheckEnvironment(cfg); err != nil {
		logger.Error("environment check failed", "error", err)
		os.Exit(1)
	}
	if _, err := os.Stat(cfg.InputPath); err != nil {
		logger.Error("input file not found", "path", cfg.InputPath)
		os.Exit(1)
	}

	orch := pipeline.New(os.Stdout, verbose, logger)
	if _, err := orch.Execute(context.Background(), cfg); err != nil {
		logger.Error("conversion failed", "input", cfg.InputPath, "error", err)
		return err
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	base := pipeline.DefaultConfig()
	base.OutputDir = outputDir
	base.AudiverisBin = audiverisBin
	base.Soundfont = soundfont

	if err := pipeline.CheckEnvironment(base); err != nil {
		return err
	}

	srv, err := server.New(server.Config{Port: port, Pipeline: base})
	if err != nil {
		return err
	}
	return srv.Run()
}
