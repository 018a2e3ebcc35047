package watch

import (
	"context"
	"os"
	"path/filepath"
	gosync "sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/jacfrist/student-support-assistant/internal/entity"
	ingestsync "github.com/jacfrist/student-support-assistant/internal/ingest/sync"
)

type fakeDocumentRepo struct {
	mu      gosync.Mutex
	docs    map[string]*entity.Document
	upserts int
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: make(map[string]*entity.Document)}
}

func (f *fakeDocumentRepo) Upsert(ctx context.Context, doc entity.Document) (*entity.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	stored := doc
	if existing, ok := f.docs[doc.FilePath]; ok {
		stored.ID = existing.ID
	}
	f.docs[doc.FilePath] = &stored
	return &stored, nil
}

func (f *fakeDocumentRepo) GetByPath(ctx context.Context, assistantID, filePath string) (*entity.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[filePath]
	if !ok {
		return nil, entity.ErrDocumentNotFound
	}
	return doc, nil
}

func (f *fakeDocumentRepo) ListByAssistant(ctx context.Context, assistantID string) ([]*entity.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var docs []*entity.Document
	for _, doc := range f.docs {
		docs = append(docs, doc)
	}
	return docs, nil
}

func (f *fakeDocumentRepo) DeleteByPath(ctx context.Context, assistantID, filePath string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[filePath]; !ok {
		return false, nil
	}
	delete(f.docs, filePath)
	return true, nil
}

func (f *fakeDocumentRepo) DeleteAllForAssistant(ctx context.Context, assistantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = make(map[string]*entity.Document)
	return nil
}

func (f *fakeDocumentRepo) SetExternalID(ctx context.Context, documentID, externalID string) error {
	return nil
}

type fakeAssistantRepo struct {
	mu      gosync.Mutex
	touched int
}

func (f *fakeAssistantRepo) Create(ctx context.Context, a entity.Assistant) (*entity.Assistant, error) {
	return &a, nil
}

func (f *fakeAssistantRepo) Get(ctx context.Context, id string) (*entity.Assistant, error) {
	return nil, entity.ErrAssistantNotFound
}

func (f *fakeAssistantRepo) GetBySlug(ctx context.Context, slug string) (*entity.Assistant, error) {
	return nil, entity.ErrAssistantNotFound
}

func (f *fakeAssistantRepo) List(ctx context.Context, skip, limit int) ([]*entity.AssistantSummary, error) {
	return nil, nil
}

func (f *fakeAssistantRepo) ListActive(ctx context.Context) ([]*entity.Assistant, error) {
	return nil, nil
}

func (f *fakeAssistantRepo) Update(ctx context.Context, a entity.Assistant) (*entity.Assistant, error) {
	return &a, nil
}

func (f *fakeAssistantRepo) Delete(ctx context.Context, id string) error {
	return nil
}

func (f *fakeAssistantRepo) TouchLastSynced(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched++
	return nil
}

type fakeNotifier struct {
	mu     gosync.Mutex
	events []entity.DocumentEvent
}

func (f *fakeNotifier) SendDocumentEvent(ctx context.Context, event entity.DocumentEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeNotifier) actions() []entity.SyncAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	actions := make([]entity.SyncAction, len(f.events))
	for i, e := range f.events {
		actions[i] = e.Action
	}
	return actions
}

func newTestManager() (*Manager, *fakeDocumentRepo, *fakeAssistantRepo, *fakeNotifier) {
	docs := newFakeDocumentRepo()
	assistants := &fakeAssistantRepo{}
	notifier := &fakeNotifier{}
	syncer := ingestsync.NewSyncer(docs, zap.NewNop())
	manager := NewManager(syncer, docs, assistants, notifier, zap.NewNop())
	return manager, docs, assistants, notifier
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHandleEventCreateIndexesFile(t *testing.T) {
	manager, docs, assistants, notifier := newTestManager()
	path := writeFile(t, t.TempDir(), "policy.txt", "Refund schedule.")

	manager.handleEvent(context.Background(), "a1", nil, fsnotify.Event{
		Name: path,
		Op:   fsnotify.Create,
	})

	if _, err := docs.GetByPath(context.Background(), "a1", path); err != nil {
		t.Fatalf("document not stored: %v", err)
	}
	if got := notifier.actions(); len(got) != 1 || got[0] != entity.SyncActionAdded {
		t.Errorf("notifier actions = %v, want [added]", got)
	}
	if assistants.touched != 1 {
		t.Errorf("last_synced_at touched %d times, want 1", assistants.touched)
	}
}

func TestHandleEventCreateIndexesMovedInDirectory(t *testing.T) {
	manager, docs, _, notifier := newTestManager()

	root := t.TempDir()
	moved := filepath.Join(root, "fall-semester")
	if err := os.MkdirAll(filepath.Join(moved, "housing"), 0o755); err != nil {
		t.Fatal(err)
	}
	pathA := writeFile(t, moved, "refunds.txt", "Refund schedule.")
	pathB := writeFile(t, filepath.Join(moved, "housing"), "rules.md", "# Housing rules")
	writeFile(t, moved, ".draft.txt", "hidden")
	writeFile(t, moved, "photo.png", "binary")

	manager.handleEvent(context.Background(), "a1", nil, fsnotify.Event{
		Name: moved,
		Op:   fsnotify.Create,
	})

	for _, path := range []string{pathA, pathB} {
		if _, err := docs.GetByPath(context.Background(), "a1", path); err != nil {
			t.Errorf("file %s not indexed: %v", path, err)
		}
	}
	if docs.upserts != 2 {
		t.Errorf("upserts = %d, want 2 (dotfile and unsupported skipped)", docs.upserts)
	}
	if got := notifier.actions(); len(got) != 2 {
		t.Errorf("notifier actions = %v, want two added events", got)
	}
}

func TestHandleEventWriteUnchangedSuppressed(t *testing.T) {
	manager, docs, _, notifier := newTestManager()
	path := writeFile(t, t.TempDir(), "policy.txt", "stable content")

	manager.handleEvent(context.Background(), "a1", nil, fsnotify.Event{
		Name: path,
		Op:   fsnotify.Create,
	})
	upsertsAfterCreate := docs.upserts

	// Editors fire spurious write events; identical bytes must not
	// produce another write or another notification.
	manager.handleEvent(context.Background(), "a1", nil, fsnotify.Event{
		Name: path,
		Op:   fsnotify.Write,
	})

	if docs.upserts != upsertsAfterCreate {
		t.Errorf("unchanged write caused upsert: %d, want %d", docs.upserts, upsertsAfterCreate)
	}
	if got := notifier.actions(); len(got) != 1 {
		t.Errorf("notifier actions = %v, want single added event", got)
	}
}

func TestHandleEventWriteChangedReindexes(t *testing.T) {
	manager, docs, _, notifier := newTestManager()
	dir := t.TempDir()
	path := writeFile(t, dir, "policy.txt", "first version")

	manager.handleEvent(context.Background(), "a1", nil, fsnotify.Event{
		Name: path,
		Op:   fsnotify.Create,
	})

	writeFile(t, dir, "policy.txt", "second version")
	manager.handleEvent(context.Background(), "a1", nil, fsnotify.Event{
		Name: path,
		Op:   fsnotify.Write,
	})

	doc, err := docs.GetByPath(context.Background(), "a1", path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Content != "second version" {
		t.Errorf("Content = %q, want %q", doc.Content, "second version")
	}
	got := notifier.actions()
	if len(got) != 2 || got[1] != entity.SyncActionChanged {
		t.Errorf("notifier actions = %v, want [added changed]", got)
	}
}

func TestHandleEventRemoveDeletesDocument(t *testing.T) {
	manager, docs, _, notifier := newTestManager()
	path := writeFile(t, t.TempDir(), "policy.txt", "doomed")

	manager.handleEvent(context.Background(), "a1", nil, fsnotify.Event{
		Name: path,
		Op:   fsnotify.Create,
	})
	manager.handleEvent(context.Background(), "a1", nil, fsnotify.Event{
		Name: path,
		Op:   fsnotify.Remove,
	})

	if _, err := docs.GetByPath(context.Background(), "a1", path); err == nil {
		t.Error("document still stored after removal")
	}
	got := notifier.actions()
	if len(got) != 2 || got[1] != entity.SyncActionRemoved {
		t.Errorf("notifier actions = %v, want [added removed]", got)
	}
}

func TestHandleEventRemoveUnknownPathQuiet(t *testing.T) {
	manager, _, _, notifier := newTestManager()

	manager.handleEvent(context.Background(), "a1", nil, fsnotify.Event{
		Name: "/never/seen.txt",
		Op:   fsnotify.Remove,
	})

	if got := notifier.actions(); len(got) != 0 {
		t.Errorf("notifier actions = %v, want none", got)
	}
}

func TestHandleEventIgnoresDotfilesAndUnsupported(t *testing.T) {
	manager, docs, _, _ := newTestManager()
	dir := t.TempDir()
	hidden := writeFile(t, dir, ".swapfile.txt", "editor noise")
	image := writeFile(t, dir, "diagram.png", "binary")

	manager.handleEvent(context.Background(), "a1", nil, fsnotify.Event{Name: hidden, Op: fsnotify.Create})
	manager.handleEvent(context.Background(), "a1", nil, fsnotify.Event{Name: image, Op: fsnotify.Create})

	if docs.upserts != 0 {
		t.Errorf("upserts = %d, want 0", docs.upserts)
	}
}

func TestStartMonitoringMissingFolder(t *testing.T) {
	manager, _, _, _ := newTestManager()

	err := manager.StartMonitoring(&entity.Assistant{
		ID:         "a1",
		FolderPath: filepath.Join(t.TempDir(), "missing"),
	})
	if err != nil {
		t.Errorf("missing folder should not be an error, got %v", err)
	}

	// No subscription must have been registered.
	manager.StopMonitoring("a1")
}

func TestStartStopMonitoringLifecycle(t *testing.T) {
	manager, _, _, _ := newTestManager()
	dir := t.TempDir()

	assistant := &entity.Assistant{ID: "a1", FolderPath: dir}
	if err := manager.StartMonitoring(assistant); err != nil {
		t.Fatalf("StartMonitoring() error = %v", err)
	}

	// Restart replaces the previous subscription instead of stacking.
	if err := manager.StartMonitoring(assistant); err != nil {
		t.Fatalf("restart error = %v", err)
	}

	manager.StopMonitoring("a1")
	manager.StopMonitoring("a1") // second stop is a no-op

	manager.StopAll()
}
