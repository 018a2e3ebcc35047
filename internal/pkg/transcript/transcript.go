package transcript

import (
	"fmt"

	"github.com/jacfrist/student-support-assistant/internal/entity"
)

// Format identifies a transcript output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatDOCX     Format = "docx"
	FormatPDF      Format = "pdf"
)

// Formatter renders a conversation transcript into a downloadable file.
type Formatter interface {
	Format(title string, conv *entity.Conversation) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(format Format) (Formatter, error) {
	switch format {
	case FormatMarkdown, "":
		return NewMarkdownFormatter(), nil
	case FormatDOCX:
		return NewDOCXFormatter(), nil
	case FormatPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported transcript format: %s", format)
	}
}

func roleLabel(role entity.MessageRole) string {
	switch role {
	case entity.MessageRoleUser:
		return "Student"
	case entity.MessageRoleAssistant:
		return "Assistant"
	default:
		return string(role)
	}
}
