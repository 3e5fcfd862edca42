package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"tinypal/internal/assets"
	"tinypal/internal/service"
	"tinypal/internal/upstream"
)

const maxUploadBytes = 10 << 20

// ImageUploader stores an image and returns the bare name the upstream uses.
type ImageUploader interface {
	Upload(ctx context.Context, data []byte, fileName string) (string, error)
}

type Handler struct {
	svc      *service.Service
	images   upstream.ImageResolver
	uploader ImageUploader
	logger   *slog.Logger
}

type Options struct {
	Images   upstream.ImageResolver
	Uploader ImageUploader
	Logger   *slog.Logger
}

func NewHandler(svc *service.Service, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	images := opts.Images
	if images.BaseURL() == "" {
		images = upstream.NewImageResolver(upstream.DefaultBaseURL)
	}
	return &Handler{
		svc:      svc,
		images:   images,
		uploader: opts.Uploader,
		logger:   logger,
	}
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) home(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Home())
}

func (h *Handler) openScreen(w http.ResponseWriter, r *http.Request) {
	var req service.OpenScreenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("openScreen decode error", "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.svc.OpenScreen(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, "openScreen", err, "screen", req.Screen, "child_id", req.ChildID)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) getScreen(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	view, err := h.svc.Screen(id)
	if err != nil {
		h.writeServiceError(w, "getScreen", err, "screen_id", id)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) refreshScreen(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	view, err := h.svc.RefreshScreen(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "refreshScreen", err, "screen_id", id)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) closeScreen(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.svc.CloseScreen(id); err != nil {
		h.writeServiceError(w, "closeScreen", err, "screen_id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) openAssistant(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	view, err := h.svc.OpenAssistant(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "openAssistant", err, "screen_id", id)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) closeAssistant(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	view, err := h.svc.CloseAssistant(id)
	if err != nil {
		h.writeServiceError(w, "closeAssistant", err, "screen_id", id)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	messages, err := h.svc.Transcript(id)
	if err != nil {
		h.writeServiceError(w, "listMessages", err, "screen_id", id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"screen_id": id,
		"messages":  messages,
	})
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req service.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("sendMessage decode error", "screen_id", id, "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.svc.SendMessage(r.Context(), id, req)
	if err != nil {
		h.writeServiceError(w, "sendMessage", err, "screen_id", id)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) clearMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.svc.ClearTranscript(id); err != nil {
		h.writeServiceError(w, "clearMessages", err, "screen_id", id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// uploadImage accepts a multipart "file" field and answers with the bare
// name and the URL cards will resolve it to.
func (h *Handler) uploadImage(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		writeError(w, http.StatusServiceUnavailable, assets.ErrUploadUnavailable.Error())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.logger.Warn("uploadImage form error", "error", err)
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read upload")
		return
	}
	name, err := h.uploader.Upload(r.Context(), data, header.Filename)
	if err != nil {
		h.writeServiceError(w, "uploadImage", err, "file_name", header.Filename, "size", len(data))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"file_name": name,
		"image_url": h.images.Resolve(&name),
	})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error, attrs ...any) {
	var serverErr *upstream.ServerError
	var malformed *upstream.MalformedResponseError
	args := append([]any{"op", op, "error", err}, attrs...)

	switch {
	case errors.Is(err, service.ErrInvalidScreen),
		errors.Is(err, service.ErrMessageEmpty),
		errors.Is(err, service.ErrInvalidChip),
		errors.Is(err, assets.ErrEmptyUpload):
		h.logger.Warn("bad request", args...)
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrScreenNotFound):
		h.logger.Warn("not found", args...)
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrScreenClosed), errors.Is(err, service.ErrStaleResult):
		h.logger.Info("conflict", args...)
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &serverErr):
		h.logger.Error("upstream error", args...)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":           err.Error(),
			"upstream_status": serverErr.StatusCode,
		})
	case errors.As(err, &malformed), errors.Is(err, upstream.ErrMalformedResponse):
		h.logger.Error("upstream malformed", args...)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":           err.Error(),
			"upstream_status": nil,
		})
	case errors.Is(err, context.Canceled):
		h.logger.Info("request canceled", args...)
		writeError(w, 499, err.Error())
	default:
		h.logger.Error("internal error", args...)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": strings.TrimSpace(message),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
