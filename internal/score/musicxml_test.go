package score

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleMusicXML = `<?xml version="1.0" encoding="UTF-8"?>
<score-partwise version="3.1">
  <part-list>
    <score-part id="P1"><part-name>Piano</part-name></score-part>
  </part-list>
  <part id="P1">
    <measure number="1">
      <attributes><divisions>2</divisions></attributes>
      <barline location="left"><repeat direction="forward"/></barline>
      <direction>
        <direction-type>
          <metronome><beat-unit>quarter</beat-unit><per-minute>96</per-minute></metronome>
        </direction-type>
      </direction>
      <note><pitch><step>C</step><octave>4</octave></pitch><duration>2</duration></note>
      <note><chord/><pitch><step>E</step><octave>4</octave></pitch><duration>2</duration></note>
      <note><rest/><duration>2</duration></note>
      <note><pitch><step>F</step><alter>1</alter><octave>4</octave></pitch><duration>4</duration></note>
      <barline location="right"><repeat direction="backward"/></barline>
    </measure>
    <measure number="2">
      <note><pitch><step>G</step><octave>4</octave></pitch><duration>4</duration></note>
      <backup><duration>4</duration></backup>
      <note><pitch><step>C</step><octave>3</octave></pitch><duration>4</duration></note>
    </measure>
  </part>
</score-partwise>`

func writeSampleXML(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(sampleMusicXML), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseMusicXML(t *testing.T) {
	sc, err := parseMusicXML(strings.NewReader(sampleMusicXML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(sc.Parts) != 1 {
		t.Fatalf("parts = %d, want 1", len(sc.Parts))
	}
	part := sc.Parts[0]

	t.Run("PartMetadata", func(t *testing.T) {
		if part.ID != "P1" || part.Name != "Piano" {
			t.Errorf("part = %q/%q, want P1/Piano", part.ID, part.Name)
		}
	})

	t.Run("EventsAndOffsets", func(t *testing.T) {
		if len(part.Events) != 4 {
			t.Fatalf("events = %d, want 4", len(part.Events))
		}
		first := part.Events[0]
		if first.Offset != 0 || first.Duration != 1 {
			t.Errorf("first event at %v for %v, want offset 0 duration 1", first.Offset, first.Duration)
		}
		if !first.IsChord() || first.Pitches[0] != 60 || first.Pitches[1] != 64 {
			t.Errorf("first event pitches = %v, want chord [60 64]", first.Pitches)
		}
		// rest advances the cursor without creating an event
		if got := part.Events[1]; got.Offset != 2 || got.Pitches[0] != 66 {
			t.Errorf("sharped note = %+v, want F#4 (66) at offset 2", got)
		}
	})

	t.Run("BackupVoices", func(t *testing.T) {
		// measure 2 holds two voices at the same offset via <backup>
		if got := part.Events[2]; got.Offset != 4 || got.Pitches[0] != 67 {
			t.Errorf("voice 1 = %+v, want G4 (67) at offset 4", got)
		}
		if got := part.Events[3]; got.Offset != 4 || got.Pitches[0] != 48 {
			t.Errorf("voice 2 = %+v, want C3 (48) at offset 4", got)
		}
	})

	t.Run("Markings", func(t *testing.T) {
		if len(part.Tempos) != 1 || part.Tempos[0].BPM != 96 {
			t.Errorf("tempos = %+v, want one 96 BPM mark", part.Tempos)
		}
		if len(part.Repeats) != 2 {
			t.Fatalf("repeats = %d, want 2", len(part.Repeats))
		}
		if part.Repeats[0].Kind != RepeatForward || part.Repeats[1].Kind != RepeatBackward {
			t.Errorf("repeat kinds = %+v", part.Repeats)
		}
	})
}

func TestParseFileMXL(t *testing.T) {
	dir := t.TempDir()
	mxlPath := filepath.Join(dir, "score.mxl")

	f, err := os.Create(mxlPath)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	container, _ := zw.Create("META-INF/container.xml")
	container.Write([]byte(`<?xml version="1.0"?>
<container><rootfiles><rootfile full-path="score.xml"/></rootfiles></container>`))
	root, _ := zw.Create("score.xml")
	root.Write([]byte(sampleMusicXML))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	sc, err := ParseFile(mxlPath)
	if err != nil {
		t.Fatalf("parse mxl: %v", err)
	}
	if sc.EventCount() != 4 {
		t.Errorf("events = %d, want 4", sc.EventCount())
	}
}

func TestParseFileRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.xml")
	os.WriteFile(path, []byte("not music"), 0o644)

	if _, err := ParseFile(path); err == nil {
		t.Error("expected parse error for non-XML input")
	}
}
