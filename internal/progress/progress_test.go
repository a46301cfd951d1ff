package progress

import (
	"bytes"
	"strings"
	"testing"
)

func TestStartStage(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, false)

	r.StartStage(StageRecognize)
	if got := buf.String(); !strings.HasPrefix(got, "[3/5] ") {
		t.Errorf("output = %q, want stage counter prefix", got)
	}
}

func TestUpdateOnlyWhenVerbose(t *testing.T) {
	var quiet bytes.Buffer
	NewReporter(&quiet, false).Update("detail %d", 1)
	if quiet.Len() != 0 {
		t.Errorf("quiet output = %q, want none", quiet.String())
	}

	var verbose bytes.Buffer
	NewReporter(&verbose, true).Update("detail %d", 1)
	if !strings.Contains(verbose.String(), "detail 1") {
		t.Errorf("verbose output = %q, want detail line", verbose.String())
	}
}

func TestDone(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf, false)

	r.Done("/out/score.mp3")
	got := buf.String()
	if !strings.Contains(got, "Done! MP3 generated successfully.") {
		t.Errorf("output = %q, want success banner", got)
	}
	if !strings.Contains(got, "/out/score.mp3") {
		t.Errorf("output = %q, want output path", got)
	}
}
