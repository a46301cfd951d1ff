package score

import (
	"fmt"
	"math"
	"sort"
)

// UniformBPM is the single tempo imposed on every cleaned score. OMR-derived
// tempo is unreliable; a fixed tempo gives comparable output across runs.
const UniformBPM = 160

// Strategy selects which pitch survives the monophonic reduction.
type Strategy string

const (
	StrategyTop    Strategy = "top"    // highest pitch
	StrategyBottom Strategy = "bottom" // lowest pitch
	StrategyFirst  Strategy = "first"  // first pitch as listed in the chord
	StrategyLast   Strategy = "last"   // last pitch as listed
)

// ParseStrategy validates a strategy name. Empty means no reduction.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyTop, StrategyBottom, StrategyFirst, StrategyLast:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown monophonic strategy %q (want top, bottom, first or last)", s)
}

func (st Strategy) pick(pitches []int) int {
	switch st {
	case StrategyTop:
		best := pitches[0]
		for _, p := range pitches[1:] {
			if p > best {
				best = p
			}
		}
		return best
	case StrategyBottom:
		best := pitches[0]
		for _, p := range pitches[1:] {
			if p < best {
				best = p
			}
		}
		return best
	case StrategyLast:
		return pitches[len(pitches)-1]
	default: // StrategyFirst
		return pitches[0]
	}
}

// Transpose shifts every pitch in the score by the given number of semitones,
// clamped to the MIDI range.
func (s *Score) Transpose(semitones int) {
	for _, part := range s.Parts {
		for i := range part.Events {
			for j, p := range part.Events[i].Pitches {
				p += semitones
				if p < 0 {
					p = 0
				}
				if p > 127 {
					p = 127
				}
				part.Events[i].Pitches[j] = p
			}
		}
	}
}

// StripRepeats removes every repeat barline and ending bracket anywhere in
// the score. OMR misreads these frequently and retained ones produce
// incorrect playback loops.
func (s *Score) StripRepeats() {
	for _, part := range s.Parts {
		part.Repeats = nil
	}
}

// NormalizeTempo removes every tempo marking and inserts exactly one at the
// score's start.
func (s *Score) NormalizeTempo(bpm float64) {
	for _, part := range s.Parts {
		part.Tempos = nil
	}
	if len(s.Parts) == 0 {
		s.Parts = append(s.Parts, &Part{})
	}
	s.Parts[0].Tempos = []TempoMark{{Offset: 0, BPM: bpm}}
}

// FilterPitchRange reconstructs a new single-part score keeping only pitches
// in the inclusive [min, max] range. Chords are rebuilt from their surviving
// pitches at the original offset and duration, and dropped entirely when no
// pitch remains. Tempo markings carry over.
func (s *Score) FilterPitchRange(min, max int) *Score {
	part := &Part{Tempos: s.Tempos()}
	for _, ev := range s.flattened() {
		var keep []int
		for _, p := range ev.Pitches {
			if p >= min && p <= max {
				keep = append(keep, p)
			}
		}
		if len(keep) == 0 {
			continue
		}
		part.Events = append(part.Events, Event{Offset: ev.Offset, Duration: ev.Duration, Pitches: keep})
	}
	return &Score{Parts: []*Part{part}}
}

// Monophonic collapses the score to a single melodic line: for every distinct
// offset (rounded to 3 decimals to absorb floating-point jitter) exactly one
// pitch survives, chosen by the strategy. When several events land on the
// same rounded offset the later-processed one wins.
func (s *Score) Monophonic(strategy Strategy) *Score {
	selected := make(map[float64]Event)
	for _, ev := range s.flattened() {
		key := math.Round(ev.Offset*1000) / 1000
		selected[key] = Event{
			Offset:   ev.Offset,
			Duration: ev.Duration,
			Pitches:  []int{strategy.pick(ev.Pitches)},
		}
	}

	keys := make([]float64, 0, len(selected))
	for k := range selected {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	part := &Part{Tempos: s.Tempos()}
	for _, k := range keys {
		part.Events = append(part.Events, selected[k])
	}
	return &Score{Parts: []*Part{part}}
}

// Quantize snaps note offsets and durations in place to the nearest viable
// rhythmic grid (straight sixteenths or triplets, whichever is closer),
// removing recognition-induced micro-timing artifacts.
func (s *Score) Quantize() {
	const minDuration = 0.25
	for _, part := range s.Parts {
		for i := range part.Events {
			part.Events[i].Offset = snapToGrid(part.Events[i].Offset)
			d := snapToGrid(part.Events[i].Duration)
			if d < minDuration {
				d = minDuration
			}
			part.Events[i].Duration = d
		}
	}
}

// snapToGrid rounds to the nearest multiple of 1/4 or 1/3 of a quarter note.
func snapToGrid(v float64) float64 {
	straight := math.Round(v*4) / 4
	triplet := math.Round(v*3) / 3
	if math.Abs(v-straight) <= math.Abs(v-triplet) {
		return straight
	}
	return triplet
}
