package receiver

import (
	"net/http"

	"proctor-camera/internal/api"
)

func SetupRoutes(handler *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.HealthCheck)
	mux.HandleFunc("GET /stats", handler.GetStats)

	mux.HandleFunc("POST /assessment/camera/upload-single/{sessionId}", handler.UploadSingle)
	mux.HandleFunc("POST /assessment/reset-session-on-refresh/{sessionId}", handler.ResetSession)
	mux.HandleFunc("GET /assessment/camera/captures/{sessionId}", handler.ListCaptures)

	var h http.Handler = mux
	h = api.LoggingMiddleware(h)
	h = api.RecoveryMiddleware(h)
	return h
}
