package assistant

import "github.com/jacfrist/student-support-assistant/internal/entity"

const timeLayout = "2006-01-02T15:04:05Z"

// toDocumentDetail converts Document entity to DocumentDetail DTO
func toDocumentDetail(d *entity.Document) *entity.DocumentDetail {
	detail := &entity.DocumentDetail{
		ID:             d.ID,
		Filename:       d.Filename,
		MediaType:      d.MediaType,
		SizeBytes:      d.SizeBytes,
		Title:          d.Title,
		Keywords:       d.Keywords,
		Checksum:       d.Checksum,
		FileModifiedAt: d.FileModifiedAt.Format(timeLayout),
	}
	if d.ProcessedAt != nil {
		processed := d.ProcessedAt.Format(timeLayout)
		detail.ProcessedAt = &processed
	}
	return detail
}
