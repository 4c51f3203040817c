package chat

import (
	"strings"

	"github.com/xaenox/gpt-vault/internal/models"
)

const docxMimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// AcceptedTypesHint is shown to users whose files were dropped.
const AcceptedTypesHint = "PDF, CSV, DOCX, TXT"

func Accepted(mimeType string) bool {
	switch mimeType {
	case "application/pdf", "text/csv", docxMimeType:
		return true
	}
	return strings.HasPrefix(mimeType, "text/")
}

// FilterAttachments splits files into the ones the assistant accepts and the
// ones that must be dropped.
func FilterAttachments(files []models.Attachment) (accepted, rejected []models.Attachment) {
	for _, f := range files {
		if Accepted(f.MimeType) {
			accepted = append(accepted, f)
		} else {
			rejected = append(rejected, f)
		}
	}
	return accepted, rejected
}
