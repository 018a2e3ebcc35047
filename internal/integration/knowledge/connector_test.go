package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	gosync "sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jacfrist/student-support-assistant/internal/config"
	"github.com/jacfrist/student-support-assistant/internal/entity"
	pkgRetry "github.com/jacfrist/student-support-assistant/internal/pkg/retry"
)

type fakeStore struct {
	mu  gosync.Mutex
	ids map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{ids: make(map[string]string)}
}

func (f *fakeStore) SetExternalID(ctx context.Context, documentID, externalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids[documentID] = externalID
	return nil
}

func testConfig(serverURL string) config.KnowledgeConnectorConfig {
	return config.KnowledgeConnectorConfig{
		HTTPClientConfig: config.HTTPClientConfig{
			RequestTimeout:        5 * time.Second,
			ConnTimeout:           time.Second,
			KeepAlive:             time.Second,
			IdleConnTimeout:       time.Second,
			ResponseHeaderTimeout: 5 * time.Second,
			Url:                   serverURL,
		},
		RegisterEndpoint:  "/register",
		KnowledgeBaseTag:  "assistant-documents",
		UploadConcurrency: 2,
		Retry: pkgRetry.RetryConfig{
			Attempts: 2,
			Delay:    time.Millisecond,
			MaxDelay: 5 * time.Millisecond,
		},
	}
}

func doc(id, filename, content string) *entity.Document {
	return &entity.Document{
		ID:          id,
		AssistantID: "a1",
		Filename:    filename,
		MediaType:   "text/plain",
		Content:     content,
	}
}

func TestEnsureUploadedTwoStep(t *testing.T) {
	var mu gosync.Mutex
	var putBody string

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":"ext-1","write_url":"%s/write/ext-1"}`, server.URL)
	})
	mux.HandleFunc("/write/ext-1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("write got method %s, want PUT", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		putBody = string(body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	store := newFakeStore()
	conn := NewConnector(testConfig(server.URL), store, zap.NewNop())

	ids := conn.EnsureUploaded(context.Background(), []*entity.Document{
		doc("d1", "policy.txt", "refund schedule body"),
	})

	if len(ids) != 1 || ids[0] != "ext-1" {
		t.Fatalf("ids = %v, want [ext-1]", ids)
	}
	mu.Lock()
	defer mu.Unlock()
	if putBody != "refund schedule body" {
		t.Errorf("write body = %q, want document content", putBody)
	}
	if store.ids["d1"] != "ext-1" {
		t.Errorf("external id not persisted: %v", store.ids)
	}
}

func TestEnsureUploadedPushesRawFileBytes(t *testing.T) {
	raw := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj")
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.pdf")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	var mu gosync.Mutex
	var registeredType, putType, putBody string

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		var req entity.RegisterUploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode register request: %v", err)
		}
		mu.Lock()
		registeredType = req.MediaType
		mu.Unlock()
		fmt.Fprintf(w, `{"id":"ext-pdf","write_url":"%s/write/ext-pdf"}`, server.URL)
	})
	mux.HandleFunc("/write/ext-pdf", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		putType = r.Header.Get("Content-Type")
		putBody = string(body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	store := newFakeStore()
	conn := NewConnector(testConfig(server.URL), store, zap.NewNop())

	pdfDoc := &entity.Document{
		ID:          "d-pdf",
		AssistantID: "a1",
		Filename:    "catalog.pdf",
		FilePath:    path,
		MediaType:   "application/pdf",
		Content:     "Refunds of Tuition extracted text",
	}

	ids := conn.EnsureUploaded(context.Background(), []*entity.Document{pdfDoc})
	if len(ids) != 1 || ids[0] != "ext-pdf" {
		t.Fatalf("ids = %v, want [ext-pdf]", ids)
	}

	mu.Lock()
	defer mu.Unlock()
	if registeredType != "application/pdf" {
		t.Errorf("registered media type = %q, want application/pdf", registeredType)
	}
	if putType != "application/pdf" {
		t.Errorf("write Content-Type = %q, want application/pdf", putType)
	}
	if putBody != string(raw) {
		t.Errorf("write body = %q, want the original file bytes", putBody)
	}
}

func TestEnsureUploadedMissingFileFallsBackToText(t *testing.T) {
	var mu gosync.Mutex
	var registeredType, putType, putBody string

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		var req entity.RegisterUploadRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		registeredType = req.MediaType
		mu.Unlock()
		fmt.Fprintf(w, `{"id":"ext-gone","write_url":"%s/write/ext-gone"}`, server.URL)
	})
	mux.HandleFunc("/write/ext-gone", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		putType = r.Header.Get("Content-Type")
		putBody = string(body)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	store := newFakeStore()
	conn := NewConnector(testConfig(server.URL), store, zap.NewNop())

	goneDoc := &entity.Document{
		ID:          "d-gone",
		AssistantID: "a1",
		Filename:    "catalog.pdf",
		FilePath:    filepath.Join(t.TempDir(), "deleted.pdf"),
		MediaType:   "application/pdf",
		Content:     "extracted catalog text",
	}

	ids := conn.EnsureUploaded(context.Background(), []*entity.Document{goneDoc})
	if len(ids) != 1 {
		t.Fatalf("ids = %v, want one id", ids)
	}

	mu.Lock()
	defer mu.Unlock()
	if registeredType != "text/plain; charset=utf-8" {
		t.Errorf("registered media type = %q, want text/plain fallback", registeredType)
	}
	if putType != "text/plain; charset=utf-8" {
		t.Errorf("write Content-Type = %q, must match the pushed body", putType)
	}
	if putBody != "extracted catalog text" {
		t.Errorf("write body = %q, want the extracted text", putBody)
	}
}

func TestEnsureUploadedNoWriteURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"ext-2"}`)
	}))
	defer server.Close()

	store := newFakeStore()
	conn := NewConnector(testConfig(server.URL), store, zap.NewNop())

	ids := conn.EnsureUploaded(context.Background(), []*entity.Document{
		doc("d2", "notes.txt", "body"),
	})

	if len(ids) != 1 || ids[0] != "ext-2" {
		t.Fatalf("ids = %v, want [ext-2]", ids)
	}
}

func TestEnsureUploadedReusesCachedID(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"id":"should-not-be-used"}`)
	}))
	defer server.Close()

	store := newFakeStore()
	conn := NewConnector(testConfig(server.URL), store, zap.NewNop())

	cached := "ext-cached"
	d := doc("d3", "cached.txt", "body")
	d.ExternalID = &cached

	ids := conn.EnsureUploaded(context.Background(), []*entity.Document{d})

	if len(ids) != 1 || ids[0] != "ext-cached" {
		t.Fatalf("ids = %v, want [ext-cached]", ids)
	}
	if calls != 0 {
		t.Errorf("register called %d times for a cached document, want 0", calls)
	}
}

func TestEnsureUploadedOmitsFailures(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	var nth gosync.Mutex
	seen := 0
	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		nth.Lock()
		seen++
		fail := seen%2 == 0
		nth.Unlock()
		if fail {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"id":"ext-ok"}`)
	})

	store := newFakeStore()
	cfg := testConfig(server.URL)
	cfg.UploadConcurrency = 1
	cfg.Retry.Attempts = 1
	conn := NewConnector(cfg, store, zap.NewNop())

	ids := conn.EnsureUploaded(context.Background(), []*entity.Document{
		doc("d1", "ok.txt", "a"),
		doc("d2", "fails.txt", "b"),
	})

	if len(ids) != 1 {
		t.Errorf("ids = %v, want exactly one survivor", ids)
	}
}

func TestEnsureUploadedMissingIdentifier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer server.Close()

	store := newFakeStore()
	conn := NewConnector(testConfig(server.URL), store, zap.NewNop())

	ids := conn.EnsureUploaded(context.Background(), []*entity.Document{
		doc("d1", "policy.txt", "body"),
	})

	if len(ids) != 0 {
		t.Errorf("ids = %v, want none", ids)
	}
}

func TestEnsureUploadedTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	store := newFakeStore()
	cfg := testConfig(server.URL)
	cfg.Retry.Attempts = 1
	conn := NewConnector(cfg, store, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	ids := conn.EnsureUploaded(ctx, []*entity.Document{
		doc("d1", "slow.txt", "body"),
	})

	if len(ids) != 0 {
		t.Errorf("ids = %v, want none on timeout", ids)
	}
}
