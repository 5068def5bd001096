package extraction

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
)

const docxBody = "word/document.xml"

// extractDOCX never fails. Unreadable packages are logged and yield "".
func (d *Dispatcher) extractDOCX(ctx context.Context, p string) string {
	text, err := d.readDOCX(p)
	if err != nil {
		d.logger.Error(ctx, "Error extracting text from DOCX", "path", p, "error", err)
		return ""
	}
	return text
}

func (d *Dispatcher) readDOCX(p string) (string, error) {
	f, err := d.fs.Open(p)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return "", fmt.Errorf("failed to open docx package: %w", err)
	}

	parts := make(map[string]*zip.File, len(zr.File))
	var extras []string
	for _, zf := range zr.File {
		parts[zf.Name] = zf
		base := path.Base(zf.Name)
		if path.Dir(zf.Name) == "word" &&
			(strings.HasPrefix(base, "header") || strings.HasPrefix(base, "footer")) &&
			strings.HasSuffix(base, ".xml") {
			extras = append(extras, zf.Name)
		}
	}

	body, ok := parts[docxBody]
	if !ok {
		return "", errors.New("could not find main document part " + docxBody)
	}

	var sb strings.Builder
	if err := collectRuns(body, &sb); err != nil {
		return "", err
	}

	sort.Strings(extras)
	for _, name := range extras {
		if err := collectRuns(parts[name], &sb); err != nil {
			return "", err
		}
	}

	return strings.TrimSpace(sb.String()), nil
}

// collectRuns appends the text of every <w:t> run in the part to sb. Paragraphs
// end with a blank line. Tabs and breaks inside a run map to their whitespace;
// tab-stop definitions in paragraph properties are ignored.
func collectRuns(zf *zip.File, sb *strings.Builder) error {
	rc, err := zf.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", zf.Name, err)
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	inRun, inText := false, false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", zf.Name, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "r":
				inRun = true
			case "t":
				inText = true
			case "tab":
				if inRun {
					sb.WriteByte('\t')
				}
			case "br", "cr":
				if inRun {
					sb.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "r":
				inRun = false
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
}
