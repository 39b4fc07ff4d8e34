// Package document reads and writes the paragraph text of Word (.docx)
// documents. Only body-level paragraphs are considered; tables, headers,
// text boxes and formatting are ignored on read and not produced on write.
package document

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/valpere/doctran/internal"
)

const (
	wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	documentPart  = "word/document.xml"
)

var errNoDocumentPart = errors.New("file is not a Word document: word/document.xml not found")

// Load opens the .docx at path and returns its paragraphs joined with "\n".
func Load(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", internal.NewError(internal.DocumentReadFailure, path, err)
	}
	defer zr.Close()

	paragraphs, err := readParagraphs(&zr.Reader)
	if err != nil {
		return "", internal.NewError(internal.DocumentReadFailure, path, err)
	}
	return strings.Join(paragraphs, "\n"), nil
}

// ReadParagraphs returns the body paragraphs of a .docx held in r.
func ReadParagraphs(r io.ReaderAt, size int64) ([]string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	return readParagraphs(zr)
}

func readParagraphs(zr *zip.Reader) ([]string, error) {
	for _, f := range zr.File {
		if f.Name != documentPart {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", documentPart, err)
		}
		defer rc.Close()
		return parseBody(rc)
	}
	return nil, errNoDocumentPart
}

// parseBody walks document.xml and collects the text of every paragraph that
// is a direct child of w:body. Runs contribute w:t text, w:tab becomes a tab
// and line breaks (w:br without a page or column type, w:cr) become
// newlines. Paragraphs nested in tables or text boxes are skipped.
func parseBody(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)

	var (
		paragraphs []string
		stack      []string
		current    strings.Builder
		depth      int // open w:p elements
		inBody     bool
		topLevel   bool // the outermost open w:p sits directly in w:body
		inText     bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", documentPart, err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			name := wordLocal(el.Name)
			parent := ""
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}
			stack = append(stack, name)
			// Text-bearing elements count only as direct children of a run;
			// w:tab also appears in w:pPr/w:tabs as a tab stop.
			inRun := depth == 1 && topLevel && parent == "r"

			switch name {
			case "body":
				inBody = true
			case "p":
				depth++
				if depth == 1 {
					topLevel = inBody && parent == "body"
					current.Reset()
				}
			case "t":
				inText = inRun
			case "tab":
				if inRun {
					current.WriteByte('\t')
				}
			case "br":
				if inRun && lineBreak(el) {
					current.WriteByte('\n')
				}
			case "cr":
				if inRun {
					current.WriteByte('\n')
				}
			}

		case xml.EndElement:
			name := wordLocal(el.Name)
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}

			switch name {
			case "body":
				inBody = false
			case "p":
				if depth == 1 && topLevel {
					paragraphs = append(paragraphs, norm.NFC.String(current.String()))
				}
				depth--
			case "t":
				inText = false
			}

		case xml.CharData:
			if inText {
				current.Write(el)
			}
		}
	}

	return paragraphs, nil
}

// lineBreak reports whether a w:br element is a text line break rather than
// a page or column break.
func lineBreak(el xml.StartElement) bool {
	for _, a := range el.Attr {
		if a.Name.Local == "type" {
			return a.Value == "" || a.Value == "textWrapping"
		}
	}
	return true
}

// wordLocal returns the local name of elements in the WordprocessingML
// namespace and "" for anything else.
func wordLocal(n xml.Name) string {
	if n.Space != wordNamespace {
		return ""
	}
	return n.Local
}
