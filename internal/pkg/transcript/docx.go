package transcript

import (
	"bytes"
	"fmt"

	"github.com/unidoc/unioffice/document"

	"github.com/jacfrist/student-support-assistant/internal/entity"
)

const (
	docxContentType   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	docxFileExtension = ".docx"
)

type DOCXFormatter struct{}

func NewDOCXFormatter() *DOCXFormatter {
	return &DOCXFormatter{}
}

func (df *DOCXFormatter) Format(title string, conv *entity.Conversation) ([]byte, error) {
	doc := document.New()
	defer doc.Close()

	titlePar := doc.AddParagraph()
	titlePar.SetStyle("Heading1")
	titleRun := titlePar.AddRun()
	titleRun.AddText(title)

	sessionPar := doc.AddParagraph()
	sessionRun := sessionPar.AddRun()
	sessionRun.AddText(fmt.Sprintf("Session: %s", conv.SessionID))

	doc.AddParagraph()

	for _, msg := range conv.Messages {
		par := doc.AddParagraph()
		labelRun := par.AddRun()
		labelRun.Properties().SetBold(true)
		labelRun.AddText(roleLabel(msg.Role) + ": ")
		bodyRun := par.AddRun()
		bodyRun.AddText(msg.Content)
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (df *DOCXFormatter) ContentType() string {
	return docxContentType
}

func (df *DOCXFormatter) FileExtension() string {
	return docxFileExtension
}
