// Package receiver is a development implementation of the assessment service's
// camera endpoints: it stores uploaded frames and acknowledges them.
package receiver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"proctor-camera/internal/dto"
	"proctor-camera/internal/models"
	"proctor-camera/internal/upload"
	"proctor-camera/internal/version"
)

// CaptureStore records capture metadata
type CaptureStore interface {
	SaveCapture(ctx context.Context, capture *models.CaptureRecord) error
	MarkSessionReset(ctx context.Context, sessionID string) error
	ListCaptures(ctx context.Context, sessionID string) ([]*models.CaptureRecord, error)
}

// EventPublisher announces stored captures
type EventPublisher interface {
	PublishCapture(ctx context.Context, event dto.CaptureEvent) error
}

type Handler struct {
	storageDir    string
	maxUploadSize int64
	store         CaptureStore
	events        EventPublisher
	now           func() time.Time

	// per-session counters served on /stats
	mu       sync.Mutex
	received map[string]int
	resets   map[string]int
}

// NewHandler creates the receiver. store and events may be nil.
func NewHandler(storageDir string, maxUploadSize int64, store CaptureStore, events EventPublisher) *Handler {
	return &Handler{
		storageDir:    storageDir,
		maxUploadSize: maxUploadSize,
		store:         store,
		events:        events,
		now:           time.Now,
		received:      make(map[string]int),
		resets:        make(map[string]int),
	}
}

func (handler *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, dto.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   version.Version,
	})
}

// UploadSingle stores one captured frame
func (handler *Handler) UploadSingle(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	if !validSessionID(sessionID) {
		respondStatus(w, http.StatusBadRequest, "Invalid session id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, handler.maxUploadSize)
	if err := r.ParseMultipartForm(handler.maxUploadSize); err != nil {
		respondStatus(w, http.StatusBadRequest, fmt.Sprintf("Failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		respondStatus(w, http.StatusBadRequest, "image is required")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !isValidImageName(filename) {
		respondStatus(w, http.StatusBadRequest, "Invalid file type. Only JPEG images are allowed")
		return
	}

	trigger, err := models.ParseTrigger(r.FormValue("trigger"))
	if err != nil {
		respondStatus(w, http.StatusBadRequest, err.Error())
		return
	}

	var timing json.RawMessage
	if raw := r.FormValue("timing"); raw != "" {
		if !json.Valid([]byte(raw)) {
			respondStatus(w, http.StatusBadRequest, "timing must be valid JSON")
			return
		}
		timing = json.RawMessage(raw)
	}

	sessionDir := filepath.Join(handler.storageDir, sessionID)
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		respondStatus(w, http.StatusInternalServerError, fmt.Sprintf("Failed to create storage directory: %v", err))
		return
	}

	// Client filenames have millisecond precision; concurrent triggers can share one.
	captureID := uuid.New().String()
	filePath := filepath.Join(sessionDir, captureID+"_"+filename)
	size, err := saveFile(filePath, file)
	if err != nil {
		respondStatus(w, http.StatusInternalServerError, err.Error())
		return
	}

	record := &models.CaptureRecord{
		ID:        captureID,
		SessionID: sessionID,
		Filename:  filename,
		FilePath:  filePath,
		Trigger:   trigger,
		Timing:    timing,
		SizeBytes: size,
		CreatedAt: handler.now().UTC(),
	}

	if handler.store != nil {
		if err := handler.store.SaveCapture(r.Context(), record); err != nil {
			log.Printf("Failed to record capture %s: %v", filename, err)
			respondStatus(w, http.StatusInternalServerError, "Failed to record capture")
			return
		}
	}

	handler.mu.Lock()
	handler.received[sessionID]++
	handler.mu.Unlock()

	log.Printf("Frame uploaded: %s for session %s (trigger: %s, %d bytes)", filename, sessionID, trigger, size)

	if handler.events != nil {
		event := dto.CaptureEvent{
			CaptureID: record.ID,
			SessionID: sessionID,
			Trigger:   string(trigger),
			Filename:  filename,
			SizeBytes: size,
			Timing:    timing,
			Received:  record.CreatedAt.Format(time.RFC3339Nano),
		}
		if err := handler.events.PublishCapture(r.Context(), event); err != nil {
			log.Printf("Failed to publish capture event: %v", err)
		}
	}

	respondJSON(w, http.StatusOK, dto.UploadResponse{Status: upload.StatusOK})
}

// ResetSession marks a session as restarted by the agent
func (handler *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	if !validSessionID(sessionID) {
		respondStatus(w, http.StatusBadRequest, "Invalid session id")
		return
	}

	if handler.store != nil {
		if err := handler.store.MarkSessionReset(r.Context(), sessionID); err != nil {
			log.Printf("Failed to mark session %s reset: %v", sessionID, err)
			respondStatus(w, http.StatusInternalServerError, "Failed to reset session")
			return
		}
	}

	handler.mu.Lock()
	handler.resets[sessionID]++
	handler.mu.Unlock()

	log.Printf("Session %s reset after refresh", sessionID)
	respondJSON(w, http.StatusOK, dto.UploadResponse{Status: upload.StatusOK})
}

// ListCaptures returns the stored capture metadata of a session
func (handler *Handler) ListCaptures(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("sessionId")
	if !validSessionID(sessionID) {
		respondStatus(w, http.StatusBadRequest, "Invalid session id")
		return
	}
	if handler.store == nil {
		respondStatus(w, http.StatusNotFound, "Capture store not configured")
		return
	}

	captures, err := handler.store.ListCaptures(r.Context(), sessionID)
	if err != nil {
		log.Printf("Failed to list captures for %s: %v", sessionID, err)
		respondStatus(w, http.StatusInternalServerError, "Failed to list captures")
		return
	}
	if captures == nil {
		captures = []*models.CaptureRecord{}
	}
	respondJSON(w, http.StatusOK, captures)
}

// GetStats returns per-session upload and reset counts
func (handler *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	handler.mu.Lock()
	stats := map[string]interface{}{
		"received": copyCounts(handler.received),
		"resets":   copyCounts(handler.resets),
	}
	handler.mu.Unlock()
	respondJSON(w, http.StatusOK, stats)
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func saveFile(path string, src io.Reader) (int64, error) {
	dest, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	size, err := io.Copy(dest, src)
	if closeErr := dest.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("failed to save file: %w", err)
	}
	return size, nil
}

func validSessionID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}

func isValidImageName(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".jpg" || ext == ".jpeg"
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondStatus answers in the upload response shape the agent understands
func respondStatus(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, dto.UploadResponse{Status: "ERROR", Error: message})
}
