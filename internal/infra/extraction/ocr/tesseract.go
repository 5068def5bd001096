// Package ocr recognizes text in images with the tesseract engine.
package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine runs tesseract through gosseract. A client is created for
// every call and closed before it returns.
type TesseractEngine struct {
	languages      []string
	tessdataPrefix string
}

// NewTesseractEngine creates an engine for the given languages. An empty
// tessdataPrefix uses the library default.
func NewTesseractEngine(languages []string, tessdataPrefix string) *TesseractEngine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &TesseractEngine{languages: languages, tessdataPrefix: tessdataPrefix}
}

// Recognize returns the text found in the encoded image.
func (e *TesseractEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if e.tessdataPrefix != "" {
		client.TessdataPrefix = e.tessdataPrefix
	}
	if err := client.SetLanguage(e.languages...); err != nil {
		return "", fmt.Errorf("failed to set ocr languages: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to load image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", err
	}
	return text, nil
}
