package score

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	ticksPerQuarter = 960
	noteVelocity    = 90
)

// WriteMIDI renders the score to a standard MIDI file, one track per part.
func (s *Score) WriteMIDI(path string) error {
	out := smf.New()
	out.TimeFormat = smf.MetricTicks(ticksPerQuarter)

	for _, part := range s.Parts {
		out.Add(partTrack(part))
	}
	if len(s.Parts) == 0 {
		var tr smf.Track
		tr.Close(0)
		out.Add(tr)
	}

	if err := out.WriteFile(path); err != nil {
		return fmt.Errorf("write MIDI: %w", err)
	}
	return nil
}

// timedMessage is a MIDI message at an absolute tick.
type timedMessage struct {
	tick uint32
	off  bool // note-offs sort before note-ons at the same tick
	msg  midi.Message
}

func partTrack(part *Part) smf.Track {
	var timed []timedMessage

	for _, t := range part.Tempos {
		timed = append(timed, timedMessage{tick: toTicks(t.Offset), msg: midi.Message(smf.MetaTempo(t.BPM))})
	}
	for _, ev := range part.Events {
		on := toTicks(ev.Offset)
		off := toTicks(ev.Offset + ev.Duration)
		if off <= on {
			off = on + 1
		}
		for _, p := range ev.Pitches {
			key := uint8(p)
			timed = append(timed, timedMessage{tick: on, msg: midi.NoteOn(0, key, noteVelocity)})
			timed = append(timed, timedMessage{tick: off, off: true, msg: midi.NoteOff(0, key)})
		}
	}

	sort.SliceStable(timed, func(i, j int) bool {
		if timed[i].tick != timed[j].tick {
			return timed[i].tick < timed[j].tick
		}
		return timed[i].off && !timed[j].off
	})

	var tr smf.Track
	var last uint32
	for _, tm := range timed {
		tr.Add(tm.tick-last, tm.msg)
		last = tm.tick
	}
	tr.Close(0)
	return tr
}

func toTicks(quarterLength float64) uint32 {
	if quarterLength < 0 {
		return 0
	}
	return uint32(math.Round(quarterLength * ticksPerQuarter))
}

// NoteEvent is one row of the note-sequence debug sidecar.
type NoteEvent struct {
	Offset float64 `json:"offset"`
	Pitch  string  `json:"pitch"`
}

// ExtractNoteSequence reads a rendered MIDI file back into a simplified
// (offset, pitch-name) list for comparison and debugging. Simultaneous note
// starts on a track collapse to one entry reporting the first pitch.
func ExtractNoteSequence(path string) ([]NoteEvent, error) {
	data, err := smf.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read MIDI: %w", err)
	}

	resolution := float64(ticksPerQuarter)
	if ticks, ok := data.TimeFormat.(smf.MetricTicks); ok {
		resolution = float64(ticks.Ticks4th())
	}

	var sequence []NoteEvent
	for _, tr := range data.Tracks {
		var abs uint64
		lastTick := uint64(math.MaxUint64)
		for _, ev := range tr {
			abs += uint64(ev.Delta)
			var ch, key, vel uint8
			if !ev.Message.GetNoteStart(&ch, &key, &vel) {
				continue
			}
			if abs == lastTick {
				continue // chord sibling
			}
			lastTick = abs
			sequence = append(sequence, NoteEvent{
				Offset: math.Round(float64(abs)/resolution*100) / 100,
				Pitch:  PitchName(int(key)),
			})
		}
	}
	return sequence, nil
}

// WriteNoteSequence persists the sidecar JSON next to the MIDI file.
func WriteNoteSequence(sequence []NoteEvent, path string) error {
	data, err := json.MarshalIndent(sequence, "", "  ")
	if err != nil {
		return fmt.Errorf("encode note sequence: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write note sequence: %w", err)
	}
	return nil
}
