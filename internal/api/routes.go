package api

import "net/http"

func SetupRoutes(handler *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/camera/health", handler.HealthCheck)
	mux.HandleFunc("GET /api/camera/status", handler.GetStatus)

	mux.HandleFunc("POST /api/camera/capture", handler.Capture)
	mux.HandleFunc("POST /api/camera/hooks/{hook}", handler.Hook)

	mux.HandleFunc("PUT /api/camera/response-id", handler.SetResponseID)
	mux.HandleFunc("PUT /api/camera/conversation-id", handler.SetConversationID)

	// Host page event channel
	mux.HandleFunc("GET /api/camera/ws", handler.hub.HandleWebSocket)

	// WebRTC camera feed, only when the agent runs with the webrtc device
	if handler.feed != nil {
		mux.HandleFunc("POST /api/camera/webrtc/offer", handler.WebRTCOffer)
		mux.HandleFunc("POST /api/camera/webrtc/candidate", handler.WebRTCCandidate)
	}

	var h http.Handler = mux
	h = LoggingMiddleware(h)
	h = RecoveryMiddleware(h)
	h = CORSMiddleware(h)
	return h
}
