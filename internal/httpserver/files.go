package httpserver

import (
	"net/http"
	"strconv"
	"strings"
)

const maxUploadBytes = 10 << 20

func (h *handler) registerFileHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /actions/files", h.handleUpload)
	mux.HandleFunc("GET /files/{name}", h.handleDownload)
	mux.HandleFunc("DELETE /actions/files/{name}", h.handleDeleteFile)
}

func (h *handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireViewer(w, r); !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.invalid(w, "Please choose a file to upload")
		return
	}
	defer file.Close()

	uploaded, err := h.API.Files.Upload(r.Context(), header.Filename, file)
	if err != nil {
		h.fail(w, r, err, "Failed to upload file")
		return
	}
	h.Toasts.Success("File uploaded successfully")
	writeAction(w, http.StatusOK, actionResult{Data: newUploadView(uploaded), Toasts: h.Toasts.Drain()})
}

// handleDownload proxies a stored file so the browser never needs the
// credential itself.
func (h *handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "file name is required")
		return
	}
	data, contentType, err := h.API.Files.Download(r.Context(), name)
	if err != nil {
		h.fail(w, r, err, "Failed to download file")
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *handler) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireViewer(w, r); !ok {
		return
	}
	if err := h.API.Files.Delete(r.Context(), r.PathValue("name")); err != nil {
		h.fail(w, r, err, "Failed to delete file")
		return
	}
	h.Toasts.Success("File deleted")
	writeAction(w, http.StatusOK, actionResult{Toasts: h.Toasts.Drain()})
}
