package extraction

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF never fails. Parser errors and panics are logged and yield "".
func (d *Dispatcher) extractPDF(ctx context.Context, path string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error(ctx, "Error extracting text from PDF", "path", path, "error", fmt.Sprint(r))
			text = ""
		}
	}()

	text, err := d.readPDF(path)
	if err != nil {
		d.logger.Error(ctx, "Error extracting text from PDF", "path", path, "error", err)
		return ""
	}

	return text
}

func (d *Dispatcher) readPDF(path string) (string, error) {
	f, err := d.fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	r, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", err
	}

	return strings.TrimSpace(buf.String()), nil
}
