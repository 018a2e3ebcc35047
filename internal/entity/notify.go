package entity

import "time"

// DocumentEvent is the payload of the fire-and-forget notification hook
// invoked on document add/change/removal.
type DocumentEvent struct {
	AssistantID string     `json:"assistant_id"`
	FilePath    string     `json:"file_path"`
	Action      SyncAction `json:"action"`
	Timestamp   time.Time  `json:"timestamp"`
}
