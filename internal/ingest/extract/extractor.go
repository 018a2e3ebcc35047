package extract

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jacfrist/student-support-assistant/internal/entity"
	"github.com/ledongthuc/pdf"
	"github.com/unidoc/unioffice/document"
)

// Media types the extractor understands.
const (
	MediaTypePDF      = "application/pdf"
	MediaTypeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaTypeText     = "text/plain"
	MediaTypeMarkdown = "text/markdown"
)

var mediaTypeByExtension = map[string]string{
	".pdf":  MediaTypePDF,
	".docx": MediaTypeDOCX,
	".txt":  MediaTypeText,
	".md":   MediaTypeMarkdown,
}

// MediaTypeForFile resolves the declared media type from the file
// extension. Returns entity.ErrUnsupportedFormat for anything else.
func MediaTypeForFile(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mediaType, ok := mediaTypeByExtension[ext]
	if !ok {
		return "", fmt.Errorf("%w: %s", entity.ErrUnsupportedFormat, ext)
	}
	return mediaType, nil
}

// Extract converts a raw file into plain text according to its declared
// media type. Parse failures come back wrapped in
// entity.ErrExtractionFailed; the caller decides whether to skip the file
// or abort the batch.
func Extract(path, mediaType string) (string, error) {
	switch mediaType {
	case MediaTypePDF:
		return extractPDF(path)
	case MediaTypeDOCX:
		return extractDOCX(path)
	case MediaTypeText, MediaTypeMarkdown:
		return extractPlainText(path)
	default:
		return "", fmt.Errorf("%w: %s", entity.ErrUnsupportedFormat, mediaType)
	}
}

func extractPDF(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", entity.ErrExtractionFailed, path, err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("%w: open pdf %s: %v", entity.ErrExtractionFailed, path, err)
	}

	body, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: read pdf content %s: %v", entity.ErrExtractionFailed, path, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(body); err != nil {
		return "", fmt.Errorf("%w: buffer pdf text %s: %v", entity.ErrExtractionFailed, path, err)
	}

	return buf.String(), nil
}

func extractDOCX(path string) (string, error) {
	doc, err := document.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open docx %s: %v", entity.ErrExtractionFailed, path, err)
	}
	defer doc.Close()

	var sb strings.Builder
	for _, para := range doc.Paragraphs() {
		for _, run := range para.Runs() {
			sb.WriteString(run.Text())
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

func extractPlainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %v", entity.ErrExtractionFailed, path, err)
	}
	return string(data), nil
}
