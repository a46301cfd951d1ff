package score

import (
	"fmt"
	"sort"
)

// Event is a note or chord sounding at a fixed offset. Offsets and durations
// are measured in quarter lengths.
type Event struct {
	Offset   float64
	Duration float64
	Pitches  []int // MIDI pitch numbers; more than one means a chord
}

// IsChord reports whether the event holds more than one pitch.
func (e Event) IsChord() bool { return len(e.Pitches) > 1 }

// TempoMark is a metronome marking.
type TempoMark struct {
	Offset float64
	BPM    float64
}

// RepeatKind distinguishes the repeat markings OMR tends to misread.
type RepeatKind int

const (
	RepeatForward RepeatKind = iota
	RepeatBackward
	RepeatBracket
)

// RepeatMark is a repeat barline or an ending bracket.
type RepeatMark struct {
	Offset float64
	Kind   RepeatKind
}

// Part is one voice/staff of the score.
type Part struct {
	ID      string
	Name    string
	Events  []Event
	Tempos  []TempoMark
	Repeats []RepeatMark
}

// Score is the mutable in-memory representation of the music, passed by
// exclusive reference through a strict sequence of cleanup transforms.
type Score struct {
	Parts []*Part
}

// Append adds another score's parts after this score's parts.
func (s *Score) Append(other *Score) {
	s.Parts = append(s.Parts, other.Parts...)
}

// EventCount returns the total number of note/chord events.
func (s *Score) EventCount() int {
	n := 0
	for _, p := range s.Parts {
		n += len(p.Events)
	}
	return n
}

// Tempos returns every tempo marking anywhere in the score.
func (s *Score) Tempos() []TempoMark {
	var marks []TempoMark
	for _, p := range s.Parts {
		marks = append(marks, p.Tempos...)
	}
	return marks
}

// Repeats returns every repeat marking anywhere in the score.
func (s *Score) Repeats() []RepeatMark {
	var marks []RepeatMark
	for _, p := range s.Parts {
		marks = append(marks, p.Repeats...)
	}
	return marks
}

// flattened returns all events across parts sorted by offset. The sort is
// stable so that events at equal offsets keep part order, which makes the
// last-writer-wins rule of the monophonic reduction deterministic.
func (s *Score) flattened() []Event {
	var events []Event
	for _, p := range s.Parts {
		events = append(events, p.Events...)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Offset < events[j].Offset
	})
	return events
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// PitchName spells a MIDI pitch number like "C4" (middle C = 60).
func PitchName(pitch int) string {
	if pitch < 0 || pitch > 127 {
		return fmt.Sprintf("?%d", pitch)
	}
	return fmt.Sprintf("%s%d", noteNames[pitch%12], pitch/12-1)
}
