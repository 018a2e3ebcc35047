package assistant

import (
	"context"

	"github.com/jacfrist/student-support-assistant/internal/entity"
)

// FolderSyncer performs a full scan of an assistant's document folder.
type FolderSyncer interface {
	SyncFolder(ctx context.Context, assistantID, folder string) (int, error)
}

// WatchManager controls the per-assistant filesystem subscription.
type WatchManager interface {
	StartMonitoring(assistant *entity.Assistant) error
	StopMonitoring(assistantID string)
}
