package score

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/dygy/sheetplay/internal/errors"
)

// ParseFile loads one notation file (.xml MusicXML, or compressed .mxl) into
// a Score.
func ParseFile(path string) (*Score, error) {
	if strings.EqualFold(filepath.Ext(path), ".mxl") {
		return parseMXL(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open notation file: %w", err)
	}
	defer f.Close()
	return parseMusicXML(f)
}

// parseMXL unpacks a compressed MusicXML container and parses its root file.
func parseMXL(path string) (*Score, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrCorruptedFile, err)
	}
	defer zr.Close()

	root := mxlRootFile(&zr.Reader)
	if root == nil {
		return nil, fmt.Errorf("%w: no score document in archive", apperrors.ErrCorruptedFile)
	}

	rc, err := root.Open()
	if err != nil {
		return nil, fmt.Errorf("open archive entry: %w", err)
	}
	defer rc.Close()
	return parseMusicXML(rc)
}

// mxlRootFile locates the score document inside the archive, preferring the
// META-INF/container.xml rootfile declaration over a bare directory scan.
func mxlRootFile(zr *zip.Reader) *zip.File {
	byName := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		byName[f.Name] = f
	}

	if container, ok := byName["META-INF/container.xml"]; ok {
		var c struct {
			Rootfiles []struct {
				FullPath string `xml:"full-path,attr"`
			} `xml:"rootfiles>rootfile"`
		}
		if rc, err := container.Open(); err == nil {
			err := xml.NewDecoder(rc).Decode(&c)
			rc.Close()
			if err == nil && len(c.Rootfiles) > 0 {
				if f, ok := byName[c.Rootfiles[0].FullPath]; ok {
					return f
				}
			}
		}
	}

	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "META-INF/") {
			continue
		}
		if strings.EqualFold(filepath.Ext(f.Name), ".xml") || strings.EqualFold(filepath.Ext(f.Name), ".musicxml") {
			return f
		}
	}
	return nil
}

// Raw MusicXML (score-partwise) document structure. Only the elements the
// cleanup pipeline needs are decoded; everything else is skipped.

type mxlDocument struct {
	XMLName  xml.Name  `xml:"score-partwise"`
	PartList []mxlDecl `xml:"part-list>score-part"`
	Parts    []mxlPart `xml:"part"`
}

type mxlDecl struct {
	ID   string `xml:"id,attr"`
	Name string `xml:"part-name"`
}

type mxlPart struct {
	ID       string       `xml:"id,attr"`
	Measures []mxlMeasure `xml:"measure"`
}

// mxlMeasure keeps its children in document order: offset accumulation
// depends on the interleaving of notes, backups and forwards.
type mxlMeasure struct {
	items []mxlItem
}

type mxlItem struct {
	note      *mxlNote
	backup    *mxlBackup
	forward   *mxlForward
	attrs     *mxlAttributes
	direction *mxlDirection
	barline   *mxlBarline
}

func (m *mxlMeasure) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			if err == io.EOF {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var item mxlItem
			switch t.Name.Local {
			case "note":
				item.note = &mxlNote{}
				err = d.DecodeElement(item.note, &t)
			case "backup":
				item.backup = &mxlBackup{}
				err = d.DecodeElement(item.backup, &t)
			case "forward":
				item.forward = &mxlForward{}
				err = d.DecodeElement(item.forward, &t)
			case "attributes":
				item.attrs = &mxlAttributes{}
				err = d.DecodeElement(item.attrs, &t)
			case "direction":
				item.direction = &mxlDirection{}
				err = d.DecodeElement(item.direction, &t)
			case "barline":
				item.barline = &mxlBarline{}
				err = d.DecodeElement(item.barline, &t)
			default:
				if err := d.Skip(); err != nil {
					return err
				}
				continue
			}
			if err != nil {
				return err
			}
			m.items = append(m.items, item)
		case xml.EndElement:
			if t.Name == start.Name {
				return nil
			}
		}
	}
}

type mxlNote struct {
	Pitch    *mxlPitch `xml:"pitch"`
	Rest     *struct{} `xml:"rest"`
	Chord    *struct{} `xml:"chord"`
	Grace    *struct{} `xml:"grace"`
	Duration int       `xml:"duration"`
}

type mxlPitch struct {
	Step   string `xml:"step"`
	Alter  int    `xml:"alter"`
	Octave int    `xml:"octave"`
}

type mxlBackup struct {
	Duration int `xml:"duration"`
}

type mxlForward struct {
	Duration int `xml:"duration"`
}

type mxlAttributes struct {
	Divisions int `xml:"divisions"`
}

type mxlDirection struct {
	Metronome *struct {
		PerMinute float64 `xml:"per-minute"`
	} `xml:"direction-type>metronome"`
	Sound *struct {
		Tempo float64 `xml:"tempo,attr"`
	} `xml:"sound"`
}

type mxlBarline struct {
	Repeat *struct {
		Direction string `xml:"direction,attr"`
	} `xml:"repeat"`
	Ending *struct {
		Number string `xml:"number,attr"`
		Type   string `xml:"type,attr"`
	} `xml:"ending"`
}

var stepSemitones = map[string]int{
	"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11,
}

func parseMusicXML(r io.Reader) (*Score, error) {
	var doc mxlDocument
	dec := xml.NewDecoder(r)
	// OMR exports occasionally declare a non-UTF-8 charset on UTF-8 content.
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse MusicXML: %w", err)
	}

	names := make(map[string]string, len(doc.PartList))
	for _, d := range doc.PartList {
		names[d.ID] = d.Name
	}

	sc := &Score{}
	for _, mp := range doc.Parts {
		part := convertPart(mp)
		part.Name = names[mp.ID]
		sc.Parts = append(sc.Parts, part)
	}
	return sc, nil
}

// convertPart walks one part's measures, accumulating a cursor in divisions
// units and converting it to quarter lengths.
func convertPart(mp mxlPart) *Part {
	part := &Part{ID: mp.ID}
	divisions := 1
	cursor := 0 // in divisions units, absolute from the part start

	for _, measure := range mp.Measures {
		measureStart := cursor
		for _, item := range measure.items {
			switch {
			case item.attrs != nil:
				if item.attrs.Divisions > 0 {
					divisions = item.attrs.Divisions
				}

			case item.note != nil:
				n := item.note
				if n.Grace != nil {
					continue
				}
				if n.Rest != nil || n.Pitch == nil {
					cursor += n.Duration
					continue
				}
				pitch := midiPitch(n.Pitch)
				if n.Chord != nil && len(part.Events) > 0 {
					// chord continuation: same offset as the base note
					last := &part.Events[len(part.Events)-1]
					last.Pitches = append(last.Pitches, pitch)
					continue
				}
				part.Events = append(part.Events, Event{
					Offset:   quarters(cursor, divisions),
					Duration: quarters(n.Duration, divisions),
					Pitches:  []int{pitch},
				})
				cursor += n.Duration

			case item.backup != nil:
				cursor -= item.backup.Duration
				if cursor < 0 {
					cursor = 0
				}

			case item.forward != nil:
				cursor += item.forward.Duration

			case item.direction != nil:
				d := item.direction
				offset := quarters(cursor, divisions)
				if d.Metronome != nil && d.Metronome.PerMinute > 0 {
					part.Tempos = append(part.Tempos, TempoMark{Offset: offset, BPM: d.Metronome.PerMinute})
				} else if d.Sound != nil && d.Sound.Tempo > 0 {
					part.Tempos = append(part.Tempos, TempoMark{Offset: offset, BPM: d.Sound.Tempo})
				}

			case item.barline != nil:
				offset := quarters(measureStart, divisions)
				if item.barline.Repeat != nil {
					kind := RepeatForward
					if item.barline.Repeat.Direction == "backward" {
						kind = RepeatBackward
						offset = quarters(cursor, divisions)
					}
					part.Repeats = append(part.Repeats, RepeatMark{Offset: offset, Kind: kind})
				}
				if item.barline.Ending != nil {
					part.Repeats = append(part.Repeats, RepeatMark{Offset: offset, Kind: RepeatBracket})
				}
			}
		}
	}
	return part
}

func quarters(divisionUnits, divisions int) float64 {
	return float64(divisionUnits) / float64(divisions)
}

func midiPitch(p *mxlPitch) int {
	return (p.Octave+1)*12 + stepSemitones[strings.ToUpper(p.Step)] + p.Alter
}
