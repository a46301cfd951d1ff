package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/dygy/sheetplay/internal/errors"
)

// Magic bytes for document format detection
var (
	pdfMagic  = []byte("%PDF-")
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47}
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
)

// Format represents an input document format
type Format string

const (
	FormatPDF     Format = "pdf"
	FormatPNG     Format = "png"
	FormatJPEG    Format = "jpeg"
	FormatUnknown Format = "unknown"
)

// IsMultiPage reports whether the format can hold more than one page.
func (f Format) IsMultiPage() bool { return f == FormatPDF }

// Validate checks that the input document exists and is a supported format.
func Validate(path string) (Format, error) {
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return FormatUnknown, fmt.Errorf("%w: %s", apperrors.ErrFileNotFound, path)
	}
	if err != nil {
		return FormatUnknown, fmt.Errorf("stat document: %w", err)
	}

	format, err := detectFormat(path)
	if err != nil {
		return FormatUnknown, err
	}
	if format == FormatUnknown {
		return FormatUnknown, fmt.Errorf("%w: please provide a PDF, PNG or JPEG file", apperrors.ErrUnsupportedFormat)
	}
	return format, nil
}

// detectFormat checks file magic bytes to determine the document format
func detectFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("%w: %v", apperrors.ErrCorruptedFile, err)
	}
	defer f.Close()

	header := make([]byte, 8)
	n, err := f.Read(header)
	if err != nil || n < 4 {
		return FormatUnknown, fmt.Errorf("%w: could not read file header", apperrors.ErrCorruptedFile)
	}

	if string(header[:5]) == string(pdfMagic) {
		return FormatPDF, nil
	}
	if string(header[:4]) == string(pngMagic) {
		return FormatPNG, nil
	}
	if string(header[:3]) == string(jpegMagic) {
		return FormatJPEG, nil
	}

	// Fallback: check extension
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF, nil
	case ".png":
		return FormatPNG, nil
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	}

	return FormatUnknown, nil
}
