package pages

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"

	"github.com/dygy/sheetplay/internal/document"
	apperrors "github.com/dygy/sheetplay/internal/errors"
	"github.com/dygy/sheetplay/internal/exec"
)

// renderDPI is the resolution used when rasterizing multi-page documents.
const renderDPI = "400"

// Preparer turns an input document into an ordered sequence of normalized
// page images named so that lexical sort order equals page order.
type Preparer struct {
	runner *exec.Runner
	logger *slog.Logger
}

// NewPreparer creates a new page preparer
func NewPreparer(runner *exec.Runner, logger *slog.Logger) *Preparer {
	return &Preparer{runner: runner, logger: logger}
}

// Prepare writes one image per document page into imagesDir and returns the
// page image paths in page order. A decode failure is unrecoverable: the
// caller must abort before invoking recognition.
func (p *Preparer) Prepare(ctx context.Context, docPath string, format document.Format, imagesDir string) ([]string, error) {
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	if format.IsMultiPage() {
		return p.renderPDF(ctx, docPath, imagesDir)
	}
	return p.copyImage(docPath, imagesDir)
}

// renderPDF rasterizes every page at 400 DPI and normalizes it to grayscale.
func (p *Preparer) renderPDF(ctx context.Context, docPath, imagesDir string) ([]string, error) {
	bin, err := exec.Find("pdftoppm")
	if err != nil {
		return nil, fmt.Errorf("decode PDF: %w", err)
	}

	p.logger.Info("converting PDF to high-res grayscale images", "input", filepath.Base(docPath))

	prefix := filepath.Join(imagesDir, "raw")
	if res, err := p.runner.Run(ctx, bin, "-r", renderDPI, "-png", docPath, prefix); err != nil {
		return nil, apperrors.NewProcessError("pdftoppm", "prepare", res.ExitCode, res.Stderr, err)
	}

	rendered, err := filepath.Glob(prefix + "-*.png")
	if err != nil || len(rendered) == 0 {
		return nil, fmt.Errorf("%w: PDF produced no pages", apperrors.ErrCorruptedFile)
	}
	sort.Strings(rendered)

	var pageImages []string
	for i, raw := range rendered {
		page := PageName(imagesDir, i+1)
		if err := toGrayscale(raw, page); err != nil {
			return nil, fmt.Errorf("normalize page %d: %w", i+1, err)
		}
		os.Remove(raw)
		pageImages = append(pageImages, page)
	}
	return pageImages, nil
}

// copyImage copies a single-image document unchanged as the first page,
// keeping the original extension.
func (p *Preparer) copyImage(docPath, imagesDir string) ([]string, error) {
	p.logger.Info("copying input image", "input", filepath.Base(docPath))

	ext := strings.ToLower(filepath.Ext(docPath))
	dst := filepath.Join(imagesDir, "page_001"+ext)
	src, err := os.Open(docPath)
	if err != nil {
		return nil, fmt.Errorf("open input image: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("create page image: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return nil, fmt.Errorf("copy input image: %w", err)
	}
	return []string{dst}, nil
}

// PageName returns the zero-padded page image path for a 1-indexed page.
func PageName(dir string, page int) string {
	return filepath.Join(dir, fmt.Sprintf("page_%03d.png", page))
}

// toGrayscale decodes src and re-encodes it as an 8-bit grayscale PNG.
func toGrayscale(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decode page: %w", err)
	}

	gray := image.NewGray(img.Bounds())
	xdraw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, xdraw.Src)

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	return png.Encode(out, gray)
}
