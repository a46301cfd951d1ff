package score

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"gitlab.com/gomidi/midi/v2/smf"
)

func TestWriteMIDIRoundTrip(t *testing.T) {
	s := &Score{Parts: []*Part{{
		Tempos: []TempoMark{{Offset: 0, BPM: UniformBPM}},
		Events: []Event{
			{Offset: 0, Duration: 1, Pitches: []int{60}},
			{Offset: 1, Duration: 1, Pitches: []int{60, 64, 67}},
			{Offset: 2.5, Duration: 0.5, Pitches: []int{69}},
		},
	}}}

	path := filepath.Join(t.TempDir(), "out.mid")
	if err := s.WriteMIDI(path); err != nil {
		t.Fatalf("WriteMIDI: %v", err)
	}

	data, err := smf.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	t.Run("TimeFormat", func(t *testing.T) {
		ticks, ok := data.TimeFormat.(smf.MetricTicks)
		if !ok || ticks.Ticks4th() != ticksPerQuarter {
			t.Errorf("time format = %v, want %d metric ticks", data.TimeFormat, ticksPerQuarter)
		}
	})

	t.Run("SingleTempo", func(t *testing.T) {
		var bpms []float64
		for _, tr := range data.Tracks {
			for _, ev := range tr {
				var bpm float64
				if ev.Message.GetMetaTempo(&bpm) {
					bpms = append(bpms, bpm)
				}
			}
		}
		if len(bpms) != 1 || math.Abs(bpms[0]-UniformBPM) > 0.5 {
			t.Errorf("tempo events = %v, want exactly one at %d BPM", bpms, UniformBPM)
		}
	})

	t.Run("NoteSequence", func(t *testing.T) {
		seq, err := ExtractNoteSequence(path)
		if err != nil {
			t.Fatalf("ExtractNoteSequence: %v", err)
		}
		want := []NoteEvent{
			{Offset: 0, Pitch: "C4"},
			{Offset: 1, Pitch: "C4"}, // chord collapses to its first pitch
			{Offset: 2.5, Pitch: "A4"},
		}
		if len(seq) != len(want) {
			t.Fatalf("sequence = %+v, want %d entries", seq, len(want))
		}
		for i := range want {
			if seq[i] != want[i] {
				t.Errorf("sequence[%d] = %+v, want %+v", i, seq[i], want[i])
			}
		}
	})
}

func TestWriteMIDIZeroDuration(t *testing.T) {
	// a zero-length note must still produce an audible on/off pair
	s := &Score{Parts: []*Part{{
		Events: []Event{{Offset: 0, Duration: 0, Pitches: []int{60}}},
	}}}
	path := filepath.Join(t.TempDir(), "zero.mid")
	if err := s.WriteMIDI(path); err != nil {
		t.Fatalf("WriteMIDI: %v", err)
	}
	seq, err := ExtractNoteSequence(path)
	if err != nil {
		t.Fatalf("ExtractNoteSequence: %v", err)
	}
	if len(seq) != 1 || seq[0].Pitch != "C4" {
		t.Errorf("sequence = %+v, want single C4", seq)
	}
}

func TestWriteMIDIEmptyScore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.mid")
	if err := (&Score{}).WriteMIDI(path); err != nil {
		t.Fatalf("WriteMIDI on empty score: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file written even for empty score: %v", err)
	}
}

func TestWriteNoteSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.json")
	seq := []NoteEvent{{Offset: 0, Pitch: "C4"}, {Offset: 1.5, Pitch: "F#4"}}
	if err := WriteNoteSequence(seq, path); err != nil {
		t.Fatalf("WriteNoteSequence: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got []NoteEvent
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("sidecar is not valid JSON: %v", err)
	}
	if len(got) != 2 || got[1].Pitch != "F#4" || got[1].Offset != 1.5 {
		t.Errorf("decoded = %+v, want %+v", got, seq)
	}
}
