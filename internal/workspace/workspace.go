package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Run owns the artifact directory for one input document. All intermediate
// and final outputs live under <outputDir>/<base name of the input>.
type Run struct {
	BaseName string
	Dir      string
}

// New creates the per-input working directory (and parents) if absent.
func New(outputDir, inputPath string) (*Run, error) {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	dir := filepath.Join(outputDir, base)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Run{BaseName: base, Dir: dir}, nil
}

// Path helpers for run artifacts
func (r *Run) ImagesDir() string { return filepath.Join(r.Dir, "images") }
func (r *Run) BatchLog() string  { return filepath.Join(r.Dir, "audiveris_batch.log") }
func (r *Run) MIDI() string      { return filepath.Join(r.Dir, r.BaseName+".mid") }
func (r *Run) NotesJSON() string { return filepath.Join(r.Dir, r.BaseName+".json") }
func (r *Run) WAV() string       { return filepath.Join(r.Dir, r.BaseName+".wav") }
func (r *Run) MP3() string       { return filepath.Join(r.Dir, r.BaseName+".mp3") }

// MuseScoreXML is the fixed output path of the fallback recognizer.
func (r *Run) MuseScoreXML() string { return filepath.Join(r.Dir, r.BaseName+".mxl") }

// ImageLog returns the per-image OMR log path for a page image stem.
func (r *Run) ImageLog(stem string) string {
	return filepath.Join(r.Dir, stem+"_audiveris.log")
}

// NotationFiles scans the run directory for recognizer output: all .mxl
// files, or all .xml files when no .mxl exists. The scan is recursive because
// the OMR engine nests its exports in per-image subdirectories.
func (r *Run) NotationFiles() []string {
	mxl := r.findByExt(".mxl")
	if len(mxl) > 0 {
		return mxl
	}
	return r.findByExt(".xml")
}

func (r *Run) findByExt(ext string) []string {
	var found []string
	filepath.WalkDir(r.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ext) {
			found = append(found, path)
		}
		return nil
	})
	return found
}
