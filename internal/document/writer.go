package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/valpere/doctran/internal"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// OutputPath derives the translated document's path: the language code is
// inserted before the extension and the extension becomes .docx, e.g.
// report.docx → report_fr.docx.
func OutputPath(originalPath, code string) string {
	ext := filepath.Ext(originalPath)
	if ext == filepath.Base(originalPath) {
		ext = ""
	}
	return fmt.Sprintf("%s_%s.docx", strings.TrimSuffix(originalPath, ext), code)
}

// Save writes text as a new document next to originalPath, one paragraph
// per line, and returns the new path. The file is written to a temporary
// name and renamed into place so a failed save leaves nothing behind.
func Save(originalPath, code, text string) (string, error) {
	newPath := OutputPath(originalPath, code)

	tmp, err := os.CreateTemp(filepath.Dir(newPath), ".doctran-*.docx")
	if err != nil {
		return "", internal.NewError(internal.DocumentWriteFailure, newPath, err)
	}
	tmpName := tmp.Name()

	err = WriteParagraphs(tmp, strings.Split(text, "\n"))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmpName, newPath)
	}
	if err != nil {
		os.Remove(tmpName)
		return "", internal.NewError(internal.DocumentWriteFailure, newPath, err)
	}

	return newPath, nil
}

// WriteParagraphs writes a minimal .docx package with one paragraph per
// element of paragraphs.
func WriteParagraphs(w io.Writer, paragraphs []string) error {
	zw := zip.NewWriter(w)

	parts := []struct {
		name string
		body []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(packageRelsXML)},
		{documentPart, documentXML(paragraphs)},
	}

	for _, p := range parts {
		f, err := zw.Create(p.name)
		if err != nil {
			return fmt.Errorf("create %s: %w", p.name, err)
		}
		if _, err := f.Write(p.body); err != nil {
			return fmt.Errorf("write %s: %w", p.name, err)
		}
	}

	return zw.Close()
}

func documentXML(paragraphs []string) []byte {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	buf.WriteString(`<w:document xmlns:w="` + wordNamespace + `"><w:body>`)

	for _, p := range paragraphs {
		if p == "" {
			buf.WriteString("<w:p/>")
			continue
		}
		buf.WriteString("<w:p><w:r>")
		for i, seg := range strings.Split(p, "\t") {
			if i > 0 {
				buf.WriteString("<w:tab/>")
			}
			if seg == "" {
				continue
			}
			buf.WriteString(`<w:t xml:space="preserve">`)
			xml.EscapeText(&buf, []byte(seg))
			buf.WriteString("</w:t>")
		}
		buf.WriteString("</w:r></w:p>")
	}

	buf.WriteString("<w:sectPr/></w:body></w:document>")
	return buf.Bytes()
}
