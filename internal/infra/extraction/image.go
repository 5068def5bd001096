package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	// Decoders used by image validation.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/h2non/filetype"
	"github.com/spf13/afero"
)

var errNoOCREngine = errors.New("no OCR engine configured")

// extractImage validates the image then runs OCR. Every failure is returned.
func (d *Dispatcher) extractImage(ctx context.Context, path string) (string, error) {
	data, err := afero.ReadFile(d.fs, path)
	if err != nil {
		return "", err
	}

	if err := validateImage(data); err != nil {
		d.logger.Error(ctx, "Image validation failed", "path", path, "error", err)
		return "", err
	}

	if d.ocr == nil {
		return "", errNoOCREngine
	}

	text, err := d.ocr.Recognize(ctx, data)
	if err != nil {
		d.logger.Error(ctx, "Tesseract processing failed", "path", path, "error", err)
		return "", err
	}

	return strings.TrimSpace(text), nil
}

// validateImage checks the magic bytes then decodes the image header.
func validateImage(data []byte) error {
	if !filetype.IsImage(data) {
		return errors.New("Input buffer contains unsupported image format")
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("Input buffer contains unsupported image format: %w", err)
	}
	return nil
}

// extractHEIC converts the file to a temporary JPEG and runs the image path on
// it. The temporary file is removed on every return.
func (d *Dispatcher) extractHEIC(ctx context.Context, path string) (string, error) {
	if d.heic == nil {
		return "", errors.New("no HEIC converter configured")
	}

	f, err := d.fs.Open(path)
	if err != nil {
		return "", err
	}
	jpg, err := d.heic.ToJPEG(ctx, f)
	f.Close()
	if err != nil {
		return "", fmt.Errorf("failed to convert heic: %w", err)
	}

	tmp, err := afero.TempFile(d.fs, "", "docscan-heic-*.jpg")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err := d.fs.Remove(tmpPath); err != nil {
			d.logger.Error(ctx, "Failed to clean up temporary file", "path", tmpPath, "error", err)
		}
	}()

	if _, err := tmp.Write(jpg); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	return d.extractImage(ctx, tmpPath)
}
