package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	gosync "sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/jacfrist/student-support-assistant/internal/entity"
	"github.com/jacfrist/student-support-assistant/internal/ingest/extract"
	ingestsync "github.com/jacfrist/student-support-assistant/internal/ingest/sync"
	"github.com/jacfrist/student-support-assistant/internal/repository"
	"go.uber.org/zap"
)

// Notifier is the fire-and-forget hook invoked on document add/change/
// removal. Delivery failures must not affect the synchronization result.
type Notifier interface {
	SendDocumentEvent(ctx context.Context, event entity.DocumentEvent)
}

// Manager owns one filesystem subscription per assistant. All events for
// an assistant are consumed by a single coordinator goroutine, so handling
// for a given path is serialized and callback re-entrancy cannot occur.
type Manager struct {
	syncer     *ingestsync.Syncer
	documents  repository.DocumentRepository
	assistants repository.AssistantRepository
	notifier   Notifier
	logger     *zap.Logger

	mu      gosync.Mutex
	watches map[string]*subscription
}

type subscription struct {
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewManager(
	syncer *ingestsync.Syncer,
	documents repository.DocumentRepository,
	assistants repository.AssistantRepository,
	notifier Notifier,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		syncer:     syncer,
		documents:  documents,
		assistants: assistants,
		notifier:   notifier,
		logger:     logger,
		watches:    make(map[string]*subscription),
	}
}

// StartMonitoring subscribes to change events for the assistant's folder.
// An existing subscription for the same assistant is stopped first, so at
// most one watcher per assistant ever runs. A folder that does not exist
// yet is a warning, not an error: assistants may be created before their
// folder.
func (m *Manager) StartMonitoring(assistant *entity.Assistant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked(assistant.ID)

	info, err := os.Stat(assistant.FolderPath)
	if err != nil || !info.IsDir() {
		m.logger.Warn("folder does not exist, monitoring skipped",
			zap.String("assistant_id", assistant.ID),
			zap.String("folder", assistant.FolderPath),
		)
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := addRecursive(watcher, assistant.FolderPath); err != nil {
		watcher.Close()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxzap.ToContext(ctx, m.logger.With(
		zap.String("assistant_id", assistant.ID),
		zap.String("folder", assistant.FolderPath),
	))

	sub := &subscription{
		watcher: watcher,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	m.watches[assistant.ID] = sub

	go m.coordinate(ctx, assistant.ID, sub)

	m.logger.Info("monitoring started",
		zap.String("assistant_id", assistant.ID),
		zap.String("folder", assistant.FolderPath),
	)

	return nil
}

// StopMonitoring cancels the assistant's subscription, if any.
func (m *Manager) StopMonitoring(assistantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked(assistantID)
}

// StopAll cancels every subscription. Used during shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.watches {
		m.stopLocked(id)
	}
}

func (m *Manager) stopLocked(assistantID string) {
	sub, ok := m.watches[assistantID]
	if !ok {
		return
	}
	delete(m.watches, assistantID)

	sub.cancel()
	sub.watcher.Close()
	<-sub.done

	m.logger.Info("monitoring stopped", zap.String("assistant_id", assistantID))
}

// coordinate is the per-assistant event loop. fsnotify delivers events on
// a channel; consuming them here serializes all per-path handling.
func (m *Manager) coordinate(ctx context.Context, assistantID string, sub *subscription) {
	defer close(sub.done)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-sub.watcher.Events:
			if !ok {
				return
			}
			m.handleEvent(ctx, assistantID, sub.watcher, event)

		case err, ok := <-sub.watcher.Errors:
			if !ok {
				return
			}
			ctxzap.Warn(ctx, "watcher error", zap.Error(err))
		}
	}
}

func (m *Manager) handleEvent(ctx context.Context, assistantID string, watcher *fsnotify.Watcher, event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Create):
		// New directories must join the watch; fsnotify does not recurse.
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if watcher != nil {
				if err := addRecursive(watcher, event.Name); err != nil {
					ctxzap.Warn(ctx, "failed to watch new directory",
						zap.String("path", event.Name),
						zap.Error(err),
					)
				}
			}
			// A directory moved into the folder arrives as one Create;
			// the files inside it never get their own events.
			m.indexDirectory(ctx, assistantID, event.Name)
			return
		}
		m.processChange(ctx, assistantID, event.Name, entity.SyncActionAdded)

	case event.Op.Has(fsnotify.Write):
		m.processChange(ctx, assistantID, event.Name, entity.SyncActionChanged)

	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		m.processRemoval(ctx, assistantID, event.Name)
	}
}

// indexDirectory runs the per-file pipeline over every supported file
// under a directory that appeared as a single Create event.
func (m *Manager) indexDirectory(ctx context.Context, assistantID, root string) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		m.processChange(ctx, assistantID, path, entity.SyncActionAdded)
		return nil
	})
	if err != nil {
		ctxzap.Warn(ctx, "failed to index new directory",
			zap.String("path", root),
			zap.Error(err),
		)
	}
}

// processChange runs the shared per-file pipeline. Change events are
// debounced by checksum comparison: a notification whose bytes did not
// change produces no new upsert.
func (m *Manager) processChange(ctx context.Context, assistantID, path string, action entity.SyncAction) {
	if _, err := extract.MediaTypeForFile(path); err != nil {
		return
	}

	skipUnchanged := action == entity.SyncActionChanged
	doc, skipped, err := m.syncer.ProcessFile(ctx, assistantID, path, skipUnchanged)
	if err != nil {
		ctxzap.Warn(ctx, "failed to process changed file",
			zap.String("path", path),
			zap.Error(err),
		)
		return
	}
	if skipped {
		return
	}

	if err := m.assistants.TouchLastSynced(ctx, assistantID, time.Now()); err != nil {
		ctxzap.Warn(ctx, "failed to update last sync timestamp", zap.Error(err))
	}

	m.notifier.SendDocumentEvent(ctx, entity.DocumentEvent{
		AssistantID: assistantID,
		FilePath:    path,
		Action:      action,
		Timestamp:   time.Now().UTC(),
	})

	ctxzap.Info(ctx, "document synchronized",
		zap.String("path", path),
		zap.String("document_id", doc.ID),
		zap.String("action", string(action)),
	)
}

func (m *Manager) processRemoval(ctx context.Context, assistantID, path string) {
	deleted, err := m.documents.DeleteByPath(ctx, assistantID, path)
	if err != nil {
		if !errors.Is(err, entity.ErrDocumentNotFound) {
			ctxzap.Warn(ctx, "failed to delete removed document",
				zap.String("path", path),
				zap.Error(err),
			)
		}
		return
	}
	if !deleted {
		return
	}

	m.notifier.SendDocumentEvent(ctx, entity.DocumentEvent{
		AssistantID: assistantID,
		FilePath:    path,
		Action:      entity.SyncActionRemoved,
		Timestamp:   time.Now().UTC(),
	})

	ctxzap.Info(ctx, "document removed", zap.String("path", path))
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
