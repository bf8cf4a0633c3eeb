package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pellmark/folio/internal/checksum"
)

// maxUploadBytes caps attachment uploads at 50 MB.
const maxUploadBytes = 50 << 20

// AttachmentHandler serves and accepts binary attachments stored under
// the corpus attachments directory.
type AttachmentHandler struct {
	dir string
}

// NewAttachmentHandler creates a handler for <corpusRoot>/attachments.
func NewAttachmentHandler(corpusRoot string) *AttachmentHandler {
	return &AttachmentHandler{dir: filepath.Join(corpusRoot, "attachments")}
}

// resolve maps a client-supplied filename to its on-disk path. Only bare
// names are accepted; separators, dot names and absolute paths are
// rejected so nothing outside the attachments directory is reachable.
func (h *AttachmentHandler) resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	if name == "." || strings.ContainsAny(name, `/\`) || !filepath.IsLocal(name) {
		return "", fmt.Errorf("filename %q must be a bare file name", name)
	}
	return filepath.Join(h.dir, name), nil
}

// ServeFile handles GET /attachments/{filename}.
func (h *AttachmentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	abs, err := h.resolve(chi.URLParam(r, "filename"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/attachments. It expects multipart/form-data
// with the attachment in a "file" field and writes it through a temp
// file, so a failed upload never appears under its final name.
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart upload with a 'file' field is required")
		return
	}
	defer file.Close()

	abs, err := h.resolve(header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create attachments dir")
		return
	}

	cs, err := h.writeAtomic(abs, file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store attachment")
		return
	}

	writeJSON(w, http.StatusCreated, AttachmentUploadResponse{
		Filename: header.Filename,
		Size:     header.Size,
		Checksum: cs,
		URL:      "/attachments/" + header.Filename,
	})
}

// writeAtomic streams src into a temp file next to abs, digesting it on
// the way, and renames it into place. The checksum of the written bytes
// is returned.
func (h *AttachmentHandler) writeAtomic(abs string, src io.Reader) (string, error) {
	tmp, err := os.CreateTemp(h.dir, ".upload-*")
	if err != nil {
		return "", err
	}

	cs, err := checksum.SumReader(io.TeeReader(src, tmp))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), abs)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return cs, nil
}
