package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/longregen/creditexplain/internal/domain"
)

const maxUploadSize = 50 << 20 // 50 MiB across all files

type DocumentHandler struct {
	uploadDir string
}

func NewDocumentHandler(uploadDir string) *DocumentHandler {
	return &DocumentHandler{uploadDir: uploadDir}
}

// Upload handles POST /upload: multipart PDF files saved into the upload
// directory. A single non-PDF file fails the whole request before anything
// is written.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, "invalid multipart request: "+err.Error(), http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		respondError(w, "no files provided", http.StatusBadRequest)
		return
	}
	for _, fh := range files {
		if !strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") {
			respondError(w, "Only PDF files are supported.", http.StatusBadRequest)
			return
		}
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		slog.Error("create upload dir", "error", err)
		respondError(w, "failed to store files", http.StatusInternalServerError)
		return
	}

	var uploaded []string
	for _, fh := range files {
		name := filepath.Base(fh.Filename)
		if err := h.saveFile(fh, name); err != nil {
			slog.Error("save upload", "file", name, "error", err)
			respondError(w, "failed to store files", http.StatusInternalServerError)
			return
		}
		uploaded = append(uploaded, name)
	}

	respondJSON(w, map[string]any{"uploaded": uploaded}, http.StatusOK)
}

func (h *DocumentHandler) saveFile(fh *multipart.FileHeader, name string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(h.uploadDir, name))
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return dst.Sync()
}

// List handles GET /documents.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docs := []map[string]any{}
	entries, err := os.ReadDir(h.uploadDir)
	if err != nil && !os.IsNotExist(err) {
		slog.Error("read upload dir", "error", err)
		respondError(w, "failed to list documents", http.StatusInternalServerError)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		docs = append(docs, map[string]any{"filename": entry.Name()})
	}
	sort.Slice(docs, func(a, b int) bool {
		return docs[a]["filename"].(string) < docs[b]["filename"].(string)
	})
	respondJSON(w, map[string]any{"documents": docs}, http.StatusOK)
}

type documentMetadata struct {
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Get handles GET /documents/{name}.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	meta, err := h.metadata(chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			respondError(w, "document not found", http.StatusNotFound)
			return
		}
		slog.Error("document metadata", "error", err)
		respondError(w, "failed to read document", http.StatusInternalServerError)
		return
	}
	respondJSON(w, meta, http.StatusOK)
}

func (h *DocumentHandler) metadata(name string) (*documentMetadata, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, domain.ErrDocumentNotFound
	}
	info, err := os.Stat(filepath.Join(h.uploadDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	if info.IsDir() {
		return nil, domain.ErrDocumentNotFound
	}
	return &documentMetadata{
		Filename:   info.Name(),
		SizeBytes:  info.Size(),
		UploadedAt: info.ModTime().UTC(),
	}, nil
}
