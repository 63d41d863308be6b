package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/pion/webrtc/v3"

	"proctor-camera/internal/dto"
	"proctor-camera/internal/models"
	"proctor-camera/internal/scheduler"
	"proctor-camera/internal/session"
	"proctor-camera/internal/upload"
	"proctor-camera/internal/version"
	webrtcSource "proctor-camera/internal/webrtc"
)

// CameraSession is the part of session.Session the control API drives
type CameraSession interface {
	CaptureImage(ctx context.Context, trigger models.Trigger, timing models.Timing) (*models.UploadOutcome, error)
	OnHook(ctx context.Context, hook scheduler.Hook, timing models.Timing) (*models.UploadOutcome, error)
	SetCurrentResponseID(id string)
	SetConversationID(id string)
	Status() models.SessionStatus
	SchedulerState() scheduler.State
}

// FrameFeed is the WebRTC camera feed signalling surface
type FrameFeed interface {
	HandleOffer(sdp string) (string, error)
	HandleICECandidate(candidate webrtc.ICECandidateInit) error
	Stats() map[string]interface{}
}

type Handler struct {
	session CameraSession
	feed    FrameFeed
	hub     *Hub
}

// NewHandler binds the control API to a session. feed may be nil.
func NewHandler(sess CameraSession, feed FrameFeed) *Handler {
	h := &Handler{session: sess, feed: feed}
	h.hub = NewHub(h)
	return h
}

// Hub returns the websocket hub for shutdown
func (handler *Handler) Hub() *Hub {
	return handler.hub
}

func (handler *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, dto.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   version.Version,
	})
}

func (handler *Handler) status() dto.StatusResponse {
	resp := dto.StatusResponse{
		SessionStatus: handler.session.Status(),
		Scheduler:     string(handler.session.SchedulerState()),
	}
	if handler.feed != nil {
		resp.Device = handler.feed.Stats()
	}
	return resp
}

func (handler *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, handler.status())
}

func (handler *Handler) Capture(w http.ResponseWriter, r *http.Request) {
	var req dto.CaptureRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	trigger, err := models.ParseTrigger(req.Trigger)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := handler.session.CaptureImage(r.Context(), trigger, req.Timing)
	if err != nil {
		respondCaptureError(w, outcome, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.CaptureResult{Triggered: true, Outcome: outcome})
}

func (handler *Handler) Hook(w http.ResponseWriter, r *http.Request) {
	hook, err := scheduler.ParseHook(r.PathValue("hook"))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	var req dto.HookRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	outcome, err := handler.session.OnHook(r.Context(), hook, req.Timing)
	if err != nil {
		respondCaptureError(w, outcome, err)
		return
	}
	if outcome == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, dto.CaptureResult{Triggered: true, Outcome: outcome})
}

func (handler *Handler) SetResponseID(w http.ResponseWriter, r *http.Request) {
	var req dto.SetIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	handler.session.SetCurrentResponseID(req.ID)
	status := handler.status()
	handler.hub.Broadcast(dto.TypeStatus, status)
	respondJSON(w, http.StatusOK, status)
}

func (handler *Handler) SetConversationID(w http.ResponseWriter, r *http.Request) {
	var req dto.SetIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	handler.session.SetConversationID(req.ID)
	status := handler.status()
	handler.hub.Broadcast(dto.TypeStatus, status)
	respondJSON(w, http.StatusOK, status)
}

func (handler *Handler) WebRTCOffer(w http.ResponseWriter, r *http.Request) {
	var offer webrtcSource.SessionOffer
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil || offer.SDP == "" {
		respondError(w, http.StatusBadRequest, "Invalid offer")
		return
	}

	answerSDP, err := handler.feed.HandleOffer(offer.SDP)
	if err != nil {
		log.Printf("WebRTC offer failed: %v", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, webrtcSource.SessionAnswer{SDP: answerSDP, Type: "answer"})
}

func (handler *Handler) WebRTCCandidate(w http.ResponseWriter, r *http.Request) {
	var candidate webrtc.ICECandidateInit
	if err := json.NewDecoder(r.Body).Decode(&candidate); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid candidate")
		return
	}

	if err := handler.feed.HandleICECandidate(candidate); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, webrtcSource.ErrNoPeer) {
			status = http.StatusConflict
		}
		respondError(w, status, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// captureErrorStatus maps a capture failure to an HTTP status
func captureErrorStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrNotInitialized):
		return http.StatusConflict
	case errors.Is(err, upload.ErrUpload):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondCaptureError(w http.ResponseWriter, outcome *models.UploadOutcome, err error) {
	status := captureErrorStatus(err)
	if outcome != nil {
		respondJSON(w, status, dto.CaptureResult{Triggered: true, Outcome: outcome})
		return
	}
	respondError(w, status, err.Error())
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, dto.ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
