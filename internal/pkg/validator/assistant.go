package validator

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jacfrist/student-support-assistant/internal/entity"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

const (
	maxSlugLength = 64
	maxNameLength = 120

	minResponseLength = 50
	maxResponseLength = 4000
)

// Validator validates assistant and chat requests.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) ValidateCreateAssistant(req *entity.CreateAssistantRequest) error {
	if req.Name == "" {
		return fmt.Errorf("%w: name", entity.ErrMissingField)
	}
	if len(req.Name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", entity.ErrInvalidParameter, maxNameLength)
	}
	if req.FolderPath == "" {
		return fmt.Errorf("%w: folder_path", entity.ErrMissingField)
	}
	if !filepath.IsAbs(req.FolderPath) {
		return fmt.Errorf("%w: folder_path must be absolute", entity.ErrInvalidParameter)
	}
	if req.Slug != "" {
		if err := v.ValidateSlug(req.Slug); err != nil {
			return err
		}
	}
	if req.ResponseStyle != "" {
		if err := req.ResponseStyle.Validate(); err != nil {
			return fmt.Errorf("%w: %v", entity.ErrInvalidParameter, err)
		}
	}
	if req.ContextStrategy != "" {
		if err := req.ContextStrategy.Validate(); err != nil {
			return fmt.Errorf("%w: %v", entity.ErrInvalidParameter, err)
		}
	}
	if req.MaxResponseLength != 0 &&
		(req.MaxResponseLength < minResponseLength || req.MaxResponseLength > maxResponseLength) {
		return fmt.Errorf("%w: max_response_length must be between %d and %d",
			entity.ErrInvalidParameter, minResponseLength, maxResponseLength)
	}
	return nil
}

func (v *Validator) ValidateSlug(slug string) error {
	if len(slug) == 0 || len(slug) > maxSlugLength || !slugPattern.MatchString(slug) {
		return fmt.Errorf("%w: %q", entity.ErrInvalidSlug, slug)
	}
	return nil
}

func (v *Validator) ValidateChatRequest(req *entity.ChatRequest) error {
	if strings.TrimSpace(req.Message) == "" {
		return fmt.Errorf("%w: message", entity.ErrMissingField)
	}
	if req.SessionID == "" && req.ConversationID == "" {
		return fmt.Errorf("%w: session_id or conversation_id", entity.ErrMissingField)
	}
	return nil
}

func (v *Validator) ValidateRating(req *entity.RateConversationRequest) error {
	if req.Rating < 1 || req.Rating > 5 {
		return entity.ErrInvalidRating
	}
	return nil
}

// Slugify derives a URL-safe slug from a display name.
func Slugify(name string) string {
	var sb strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				sb.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(sb.String(), "-")
	if len(slug) > maxSlugLength {
		slug = strings.Trim(slug[:maxSlugLength], "-")
	}
	return slug
}
