package score

import (
	"fmt"
	"log/slog"
	"sort"

	apperrors "github.com/dygy/sheetplay/internal/errors"
)

// Config holds the cleanup options for one run. It is built once by the
// caller and never mutated.
type Config struct {
	Transpose int      // semitone offset, positive is up
	LeftHand  bool     // keep only pitches <= 60
	RightHand bool     // keep only pitches >= 61
	Strategy  Strategy // empty keeps polyphony
}

// Cleaner turns recognized notation files into a cleaned MIDI file plus a
// note-sequence debug sidecar.
type Cleaner struct {
	logger *slog.Logger
}

// NewCleaner creates a new notation cleaner
func NewCleaner(logger *slog.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean parses and merges the notation files, applies the cleanup transforms
// in strict sequence, and renders the result to midiPath with the sidecar at
// jsonPath. Any failure is returned to the caller, which treats it as
// pipeline failure for the current input.
func (c *Cleaner) Clean(files []string, cfg Config, midiPath, jsonPath string) error {
	if cfg.LeftHand && cfg.RightHand {
		return apperrors.ErrConflictingHands
	}
	if len(files) == 0 {
		return apperrors.ErrNoNotation
	}

	sc, err := c.load(files)
	if err != nil {
		return err
	}

	if cfg.Transpose != 0 {
		c.logger.Info("transposing all notes", "semitones", cfg.Transpose)
		sc.Transpose(cfg.Transpose)
	}

	sc.StripRepeats()
	sc.NormalizeTempo(UniformBPM)

	switch {
	case cfg.LeftHand:
		c.logger.Info("filtering for left hand")
		sc = sc.FilterPitchRange(0, 60)
	case cfg.RightHand:
		c.logger.Info("filtering for right hand")
		sc = sc.FilterPitchRange(61, 127)
	}

	if cfg.Strategy != "" {
		c.logger.Info("reducing to a single melodic line", "strategy", string(cfg.Strategy))
		sc = sc.Monophonic(cfg.Strategy)
	}

	sc.Quantize()

	if err := sc.WriteMIDI(midiPath); err != nil {
		return err
	}
	c.logger.Info("MIDI saved", "path", midiPath)

	sequence, err := ExtractNoteSequence(midiPath)
	if err != nil {
		return err
	}
	if err := WriteNoteSequence(sequence, jsonPath); err != nil {
		return err
	}
	c.logger.Info("note sequence saved", "path", jsonPath, "notes", len(sequence))
	return nil
}

// load parses one file directly, or parses several in natural name order and
// appends them into one composite score. OMR output split across pages must
// merge as part1, part2, ..., part10 — not lexically.
func (c *Cleaner) load(files []string) (*Score, error) {
	if len(files) == 1 {
		return ParseFile(files[0])
	}

	ordered := make([]string, len(files))
	copy(ordered, files)
	sort.SliceStable(ordered, func(i, j int) bool {
		return naturalLess(ordered[i], ordered[j])
	})

	composite := &Score{}
	for _, f := range ordered {
		sc, err := ParseFile(f)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		composite.Append(sc)
	}
	return composite, nil
}

// naturalLess compares strings so that embedded unpadded numbers sort
// numerically: "part2" < "part10".
func naturalLess(a, b string) bool {
	for len(a) > 0 && len(b) > 0 {
		if isDigit(a[0]) && isDigit(b[0]) {
			an, arest := takeNumber(a)
			bn, brest := takeNumber(b)
			if an != bn {
				return an < bn
			}
			a, b = arest, brest
			continue
		}
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		a, b = a[1:], b[1:]
	}
	return len(a) < len(b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func takeNumber(s string) (uint64, string) {
	var n uint64
	i := 0
	for i < len(s) && isDigit(s[i]) {
		n = n*10 + uint64(s[i]-'0')
		i++
	}
	return n, s[i:]
}
