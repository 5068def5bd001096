// Package heic re-encodes HEIC images as JPEG so they can go through OCR.
package heic

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"io"

	"github.com/jdeng/goheif"
)

// Converter decodes HEIC with goheif and encodes the primary image as JPEG.
type Converter struct {
	quality int
}

// NewConverter returns a Converter writing JPEGs at maximum quality.
func NewConverter() *Converter { return &Converter{quality: 100} }

// ToJPEG reads a HEIC image from r and returns it JPEG encoded.
func (c *Converter) ToJPEG(ctx context.Context, r io.Reader) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := goheif.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode heic: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
