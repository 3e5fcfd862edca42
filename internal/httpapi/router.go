package httpapi

import (
	"net/http"
	"time"
)

func NewRouter(handler *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handler.healthz)
	mux.HandleFunc("GET /docs", handler.swaggerUI)
	mux.HandleFunc("GET /docs/", handler.swaggerUI)
	mux.HandleFunc("GET /docs/openapi.json", handler.swaggerSpec)
	mux.HandleFunc("GET /swagger", handler.swaggerUI)
	mux.HandleFunc("GET /swagger/", handler.swaggerUI)
	mux.HandleFunc("GET /swagger/openapi.json", handler.swaggerSpec)

	mux.HandleFunc("GET /api/v1/home", handler.home)
	mux.HandleFunc("POST /api/v1/screens", handler.openScreen)
	mux.HandleFunc("GET /api/v1/screens/{id}", handler.getScreen)
	mux.HandleFunc("DELETE /api/v1/screens/{id}", handler.closeScreen)
	mux.HandleFunc("POST /api/v1/screens/{id}/refresh", handler.refreshScreen)
	mux.HandleFunc("POST /api/v1/screens/{id}/assistant", handler.openAssistant)
	mux.HandleFunc("DELETE /api/v1/screens/{id}/assistant", handler.closeAssistant)
	mux.HandleFunc("GET /api/v1/screens/{id}/messages", handler.listMessages)
	mux.HandleFunc("POST /api/v1/screens/{id}/messages", handler.sendMessage)
	mux.HandleFunc("DELETE /api/v1/screens/{id}/messages", handler.clearMessages)
	mux.HandleFunc("POST /api/v1/images", handler.uploadImage)

	return handler.withRequestLogging(withCORS(withJSONContentType(mux)))
}

func withJSONContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.Header.Get("Content-Type") == "" {
			r.Header.Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Info("http request",
			"method", r.Method,
			"uri", r.URL.RequestURI(),
			"status", rec.status,
			"duration", time.Since(start).Truncate(time.Millisecond),
			"remote", r.RemoteAddr,
		)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
