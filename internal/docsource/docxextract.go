package docsource

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// DocxZipExtractor implements MarkdownExtractor directly on the
// standard library: a DOCX file is a zip archive whose
// word/document.xml holds the body as a sequence of <w:p> paragraphs
// of <w:t> text runs. No suitable third-party DOCX/markdown library
// was found among the retrieved examples, so this walks the XML
// token stream the way the teacher's XMLXPath walks arbitrary XML,
// rather than decoding into a fixed struct (the run/paragraph nesting
// isn't a shape worth naming as a Go type).
type DocxZipExtractor struct{}

// NewDocxZipExtractor returns the default MarkdownExtractor.
func NewDocxZipExtractor() *DocxZipExtractor { return &DocxZipExtractor{} }

func (DocxZipExtractor) ExtractMarkdown(_ context.Context, docxBytes []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(docxBytes), int64(len(docxBytes)))
	if err != nil {
		return "", fmt.Errorf("not a valid docx (zip) file: %w", err)
	}

	var body io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body, err = f.Open()
			if err != nil {
				return "", fmt.Errorf("failed to open word/document.xml: %w", err)
			}
			break
		}
	}
	if body == nil {
		return "", fmt.Errorf("docx archive has no word/document.xml")
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read word/document.xml: %w", err)
	}

	return extractParagraphs(data)
}

// extractParagraphs walks the document.xml token stream, joining <w:t>
// runs within each <w:p> paragraph and separating paragraphs with a
// blank line.
func extractParagraphs(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var out strings.Builder
	var para strings.Builder
	inText := false

	flushPara := func() {
		text := strings.TrimSpace(para.String())
		if text != "" {
			if out.Len() > 0 {
				out.WriteString("\n\n")
			}
			out.WriteString(text)
		}
		para.Reset()
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			return "", fmt.Errorf("failed to parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				para.Reset()
			case "t":
				inText = true
			case "tab":
				para.WriteString("\t")
			case "br", "cr":
				para.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p":
				flushPara()
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}

	return out.String(), nil
}
