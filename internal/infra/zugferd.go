package infra

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"
)

// ZUGFeRDXMLName is the attachment name of the XML inside the hybrid PDF.
const ZUGFeRDXMLName = "zugferd-invoice.xml"

const zugferdXMLEntry = "zugferd/xml/" + ZUGFeRDXMLName

// Package is a rendered ZIP archive.
type Package struct {
	Filename string
	Content  []byte
}

// ZUGFeRDFilename is the download name of the hybrid package.
func ZUGFeRDFilename(number string) string {
	return fmt.Sprintf("invoice-%s-zugferd.zip", number)
}

// BuildZUGFeRD zips the PDF and the XML. Entries are stamped with modified, so the
// same inputs always produce the same bytes.
func BuildZUGFeRD(pdf, xmlDoc []byte, number string, modified time.Time) (*Package, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	entries := []struct {
		name string
		data []byte
	}{
		{PDFFilename(number), pdf},
		{zugferdXMLEntry, xmlDoc},
	}
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.name,
			Method:   zip.Deflate,
			Modified: modified.UTC(),
		})
		if err != nil {
			return nil, fmt.Errorf("zugferd: create %s: %w", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			return nil, fmt.Errorf("zugferd: write %s: %w", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zugferd: close: %w", err)
	}
	return &Package{Filename: ZUGFeRDFilename(number), Content: buf.Bytes()}, nil
}
