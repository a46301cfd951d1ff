package pages

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/dygy/sheetplay/internal/document"
	"github.com/dygy/sheetplay/internal/exec"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTestPNG(t *testing.T, path string) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: uint8(40 * x), G: uint8(40 * y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestPageName(t *testing.T) {
	t.Run("ZeroPadded", func(t *testing.T) {
		if got := PageName("/out", 7); got != "/out/page_007.png" {
			t.Errorf("PageName = %q", got)
		}
	})

	t.Run("LexicalOrderIsPageOrder", func(t *testing.T) {
		var names []string
		for _, page := range []int{1, 2, 9, 10, 11, 99, 100, 123} {
			names = append(names, PageName("/out", page))
		}
		if !sort.StringsAreSorted(names) {
			t.Errorf("page names not lexically ordered: %v", names)
		}
	})
}

func TestPrepareSingleImage(t *testing.T) {
	dir := t.TempDir()
	// spaces in the name must survive the copy
	input := filepath.Join(dir, "my scan.png")
	original := writeTestPNG(t, input)

	imagesDir := filepath.Join(dir, "images")
	p := NewPreparer(exec.NewRunner(), testLogger())

	pages, err := p.Prepare(context.Background(), input, document.FormatPNG, imagesDir)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if len(pages) != 1 || pages[0] != filepath.Join(imagesDir, "page_001.png") {
		t.Fatalf("pages = %v, want single page_001.png", pages)
	}

	copied, err := os.ReadFile(pages[0])
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(copied, original) {
		t.Error("single-image input must be copied byte-for-byte")
	}
}

func TestPrepareKeepsJPEGExtension(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "scan.jpg")
	if err := os.WriteFile(input, []byte{0xFF, 0xD8, 0xFF, 0xE0}, 0o644); err != nil {
		t.Fatal(err)
	}

	imagesDir := filepath.Join(dir, "images")
	p := NewPreparer(exec.NewRunner(), testLogger())

	pages, err := p.Prepare(context.Background(), input, document.FormatJPEG, imagesDir)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if len(pages) != 1 || pages[0] != filepath.Join(imagesDir, "page_001.jpg") {
		t.Errorf("pages = %v, want page_001.jpg", pages)
	}
}

func TestPrepareMissingInput(t *testing.T) {
	dir := t.TempDir()
	p := NewPreparer(exec.NewRunner(), testLogger())

	_, err := p.Prepare(context.Background(), filepath.Join(dir, "gone.png"), document.FormatPNG, filepath.Join(dir, "images"))
	if err == nil {
		t.Fatal("expected error for missing input image")
	}
}

func TestToGrayscale(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "color.png")
	dst := filepath.Join(dir, "gray.png")
	writeTestPNG(t, src)

	if err := toGrayscale(src, dst); err != nil {
		t.Fatalf("toGrayscale: %v", err)
	}

	f, err := os.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if _, ok := img.(*image.Gray); !ok {
		t.Errorf("output is %T, want 8-bit grayscale", img)
	}
	if img.Bounds() != image.Rect(0, 0, 4, 4) {
		t.Errorf("bounds = %v, want original dimensions kept", img.Bounds())
	}
}

func TestToGrayscaleRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.png")
	os.WriteFile(src, []byte("not an image"), 0o644)

	if err := toGrayscale(src, filepath.Join(dir, "out.png")); err == nil {
		t.Error("expected decode error")
	}
}
