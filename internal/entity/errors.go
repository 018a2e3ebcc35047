package entity

import "errors"

// Domain errors
var (
	// Assistant errors
	ErrAssistantNotFound = errors.New("assistant not found")
	ErrSlugTaken         = errors.New("slug already in use")
	ErrInvalidSlug       = errors.New("invalid slug")

	// Document pipeline errors
	ErrUnsupportedFormat = errors.New("unsupported media type")
	ErrExtractionFailed  = errors.New("text extraction failed")
	ErrFolderNotFound    = errors.New("folder not found")
	ErrDocumentNotFound  = errors.New("document not found")

	// Remote service errors
	ErrUploadFailed               = errors.New("knowledge upload failed")
	ErrUploadTimeout              = errors.New("knowledge upload timed out")
	ErrRemoteResponseUnrecognized = errors.New("unrecognized completion response shape")

	// Conversation errors
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInvalidRating        = errors.New("rating must be between 1 and 5")

	// Validation errors
	ErrMissingField     = errors.New("required field is missing")
	ErrInvalidParameter = errors.New("invalid parameter")
)
