package docsource

import "context"

// MarkdownExtractor is the DOCX→markdown capability (deliberately kept
// as a narrow interface so a richer backend can be swapped in without
// touching Fetcher): given raw DOCX bytes, return extracted text.
type MarkdownExtractor interface {
	ExtractMarkdown(ctx context.Context, docxBytes []byte) (string, error)
}
