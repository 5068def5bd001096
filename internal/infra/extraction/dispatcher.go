// Package extraction turns corpus files into plain text. Dispatch happens on
// the lower-cased extension; PDF and DOCX failures degrade to empty text while
// image and OCR failures are raised as extraction errors.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ahrav/docleaks/internal/domain/scanning"
	"github.com/ahrav/docleaks/pkg/common/logger"
)

// Extractor is the per-format extraction contract.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// OCREngine recognizes text in an encoded image.
type OCREngine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// HEICConverter re-encodes a HEIC image as JPEG.
type HEICConverter interface {
	ToJPEG(ctx context.Context, r io.Reader) ([]byte, error)
}

var (
	_ Extractor               = (*Dispatcher)(nil)
	_ scanning.TextExtractor = (*Dispatcher)(nil)
)

// Dispatcher selects an extraction strategy by file extension.
type Dispatcher struct {
	fs   afero.Fs
	ocr  OCREngine
	heic HEICConverter

	logger *logger.Logger
	tracer trace.Tracer
}

// NewDispatcher creates a Dispatcher reading from fs. ocr and heic may be nil,
// in which case image files fail with an extraction error.
func NewDispatcher(
	fs afero.Fs,
	ocr OCREngine,
	heic HEICConverter,
	log *logger.Logger,
	tracer trace.Tracer,
) *Dispatcher {
	return &Dispatcher{
		fs:     fs,
		ocr:    ocr,
		heic:   heic,
		logger: log.With("component", "text_extractor"),
		tracer: tracer,
	}
}

// Extract returns the text of the file at path. The only errors it returns are
// *scanning.FileError values of kind scanning.ErrExtraction.
func (d *Dispatcher) Extract(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	ctx, span := d.tracer.Start(ctx, "text_extractor.extract",
		trace.WithAttributes(
			attribute.String("path", path),
			attribute.String("extension", ext),
		))
	defer span.End()

	text, err := d.extract(ctx, path, ext)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction failed")
		d.logger.Error(ctx, "Error scanning file", "path", path, "error", err)
		return "", scanning.NewExtractionError(path, err)
	}
	span.SetAttributes(attribute.Int("text_length", len(text)))

	return text, nil
}

func (d *Dispatcher) extract(ctx context.Context, path, ext string) (string, error) {
	if _, err := d.fs.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("File %s does not exist", path)
		}
		return "", err
	}

	switch ext {
	case ".pdf":
		return d.extractPDF(ctx, path), nil
	case ".docx":
		return d.extractDOCX(ctx, path), nil
	case ".jpg", ".jpeg", ".png":
		return d.extractImage(ctx, path)
	case ".heic":
		return d.extractHEIC(ctx, path)
	default:
		return d.extractPlain(path)
	}
}

// extractPlain decodes the file as UTF-8. A leading BOM is dropped and invalid
// sequences become U+FFFD. The text is returned untrimmed.
func (d *Dispatcher) extractPlain(path string) (string, error) {
	f, err := d.fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	data, err := io.ReadAll(transform.NewReader(f, decoder))
	if err != nil {
		return "", err
	}

	return string(data), nil
}
