package handler

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/SamVia/quizzz/internal/loader"
	"github.com/SamVia/quizzz/internal/topics"
)

const maxUploadSize = 10 << 20

func (h *Handler) handleRescan(w http.ResponseWriter, r *http.Request) {
	rep, err := topics.Sync(h.store, h.config.Dir)
	if err != nil {
		slog.Error("topic rescan failed", "dir", h.config.Dir, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	slog.Info("topics rescanned", "dir", h.config.Dir,
		"imported", rep.Imported, "unchanged", rep.Unchanged, "failed", rep.Failed, "removed", rep.Removed)
	h.redirectHome(w, r)
}

// handleUpload validates an uploaded question file, saves it into the topic
// directory and re-syncs. An existing file of the same name is only
// replaced when the form asks for it.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "file too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("topic_file")
	if err != nil {
		http.Error(w, "no file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !loader.Supported(name) || name == "." || name == string(filepath.Separator) {
		http.Error(w, "unsupported file type", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	recs, err := loader.Parse(name, bytes.NewReader(data))
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	dest := filepath.Join(h.config.Dir, name)
	if _, err := os.Stat(dest); err == nil && r.FormValue("replace") == "" {
		http.Error(w, "a topic file with this name already exists", http.StatusConflict)
		return
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		slog.Error("failed to save uploaded topic", "file", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	slog.Info("uploaded topic file", "filename", name, "count", len(recs))

	h.handleRescan(w, r)
}
