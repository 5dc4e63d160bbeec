package upload

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
)

// multipartOverhead is the allowance for multipart framing on top of the
// file size limit.
const multipartOverhead = 1 << 20

// Handler exposes a Service over HTTP.
type Handler struct {
	service *Service
	log     *slog.Logger
}

// NewHandler creates the upload HTTP handlers.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, log: logger}
}

// Ready reports whether uploads can currently be stored and served.
func (h *Handler) Ready() bool {
	return h.service.Ready()
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ServeUpload handles POST /upload with a multipart "file" field and replies
// with the stored attachment description.
func (h *Handler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
		return
	}

	maxBytes := h.service.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(w, ErrFileTooLarge)
			return
		}
		if errors.Is(err, http.ErrNotMultipart) {
			h.fail(w, ErrNoFile)
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid upload request"})
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.fail(w, ErrNoFile)
		return
	}
	defer file.Close()

	if header.Size > maxBytes {
		h.fail(w, ErrFileTooLarge)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		h.log.Error("read upload", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Upload failed"})
		return
	}

	attachment, err := h.service.Upload(r.Context(), header.Filename, data)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attachment)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoFile):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "No file uploaded"})
	case errors.Is(err, ErrFileTypeNotAllowed):
		h.log.Info("upload rejected", "err", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "File type not allowed"})
	case errors.Is(err, ErrFileTooLarge):
		h.log.Info("upload rejected", "err", err)
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "File too large"})
	default:
		h.log.Error("upload failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Upload failed"})
	}
}

// ServeFile handles GET /uploads/{name}.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	data, info, err := h.service.Open(r.Context(), r.PathValue("name"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.log.Error("open upload", "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if !info.ModTime.IsZero() {
		w.Header().Set("Last-Modified", info.ModTime.UTC().Format(http.TimeFormat))
	}
	_, _ = w.Write(data)
}
