// Package webrtc exposes the host page's camera as a capture device. The page
// publishes its camera as JPEG frames on a "frames" data channel and the latest
// frame becomes the render source.
package webrtc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v3"

	"proctor-camera/internal/media"
)

const framesLabel = "frames"

// ErrNoPeer is returned when ICE candidates arrive before an offer
var ErrNoPeer = errors.New("no peer connection")

// Source is a media.Device fed by a WebRTC peer
type Source struct {
	api    *webrtc.API
	config webrtc.Configuration

	maxFrameSize int

	mu         sync.RWMutex
	peer       *webrtc.PeerConnection
	latest     []byte
	width      int
	height     int
	frameCount int
	firstFrame chan struct{}
	firstOnce  sync.Once
}

// SessionOffer represents a WebRTC offer from the host page
type SessionOffer struct {
	SDP  string `json:"sdp"`
	Type string `json:"type"`
}

// SessionAnswer represents a WebRTC answer to the host page
type SessionAnswer struct {
	SDP  string `json:"sdp"`
	Type string `json:"type"`
}

// NewSource creates a WebRTC-fed camera source
func NewSource(stunURLs []string) *Source {
	config := webrtc.Configuration{}
	if len(stunURLs) > 0 {
		config.ICEServers = []webrtc.ICEServer{{URLs: stunURLs}}
	}

	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		log.Printf("Failed to register default codecs: %v", err)
	}

	return &Source{
		api:          webrtc.NewAPI(webrtc.WithMediaEngine(mediaEngine)),
		config:       config,
		maxFrameSize: 2 * 1024 * 1024, // 2MB
		firstFrame:   make(chan struct{}),
	}
}

// HandleOffer processes an offer from the host page and returns the answer SDP.
// A new offer replaces any previous peer.
func (s *Source) HandleOffer(sdp string) (string, error) {
	peerConnection, err := s.api.NewPeerConnection(s.config)
	if err != nil {
		return "", fmt.Errorf("failed to create peer connection: %w", err)
	}

	peerConnection.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Printf("WebRTC connection state changed: %s", state.String())
	})

	peerConnection.OnDataChannel(func(dataChannel *webrtc.DataChannel) {
		log.Printf("Data channel opened by host: label=%s", dataChannel.Label())
		if dataChannel.Label() == framesLabel {
			s.setupFramesChannel(dataChannel)
		}
	})

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
	if err := peerConnection.SetRemoteDescription(offer); err != nil {
		peerConnection.Close()
		return "", fmt.Errorf("failed to set remote description: %w", err)
	}

	answer, err := peerConnection.CreateAnswer(nil)
	if err != nil {
		peerConnection.Close()
		return "", fmt.Errorf("failed to create answer: %w", err)
	}

	gatherComplete := webrtc.GatheringCompletePromise(peerConnection)
	if err := peerConnection.SetLocalDescription(answer); err != nil {
		peerConnection.Close()
		return "", fmt.Errorf("failed to set local description: %w", err)
	}
	<-gatherComplete

	s.mu.Lock()
	previous := s.peer
	s.peer = peerConnection
	s.mu.Unlock()
	if previous != nil {
		previous.Close()
	}

	return peerConnection.LocalDescription().SDP, nil
}

// HandleICECandidate adds a trickled ICE candidate to the current peer
func (s *Source) HandleICECandidate(candidate webrtc.ICECandidateInit) error {
	s.mu.RLock()
	peer := s.peer
	s.mu.RUnlock()
	if peer == nil {
		return ErrNoPeer
	}
	if err := peer.AddICECandidate(candidate); err != nil {
		return fmt.Errorf("failed to add ICE candidate: %w", err)
	}
	return nil
}

func (s *Source) setupFramesChannel(channel *webrtc.DataChannel) {
	channel.OnOpen(func() {
		log.Printf("Frames data channel opened - ready to receive JPEG frames")
	})
	channel.OnClose(func() {
		log.Printf("Frames data channel closed")
	})
	channel.OnMessage(func(msg webrtc.DataChannelMessage) {
		if msg.IsString {
			log.Printf("Frames channel control message: %s", string(msg.Data))
			return
		}
		s.ingestFrame(msg.Data)
	})
}

// ingestFrame keeps the newest valid JPEG frame
func (s *Source) ingestFrame(data []byte) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		log.Printf("Invalid JPEG data received (size: %d bytes)", len(data))
		return
	}
	if len(data) > s.maxFrameSize {
		log.Printf("Frame too large, dropped (size: %d bytes)", len(data))
		return
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		log.Printf("Undecodable JPEG frame dropped: %v", err)
		return
	}

	frame := make([]byte, len(data))
	copy(frame, data)

	s.mu.Lock()
	s.latest = frame
	s.width, s.height = cfg.Width, cfg.Height
	s.frameCount++
	count := s.frameCount
	s.mu.Unlock()

	s.firstOnce.Do(func() { close(s.firstFrame) })
	if count%30 == 0 {
		log.Printf("WebRTC frames received: %d", count)
	}
}

// Open waits for the host page to start publishing frames
func (s *Source) Open(ctx context.Context, c media.Constraints) (media.Track, error) {
	select {
	case <-s.firstFrame:
	case <-ctx.Done():
		return nil, fmt.Errorf("no camera frames from host page: %w", ctx.Err())
	}
	return &track{id: uuid.New().String(), source: s}, nil
}

// Close tears down the peer connection
func (s *Source) Close() error {
	s.mu.Lock()
	peer := s.peer
	s.peer = nil
	s.latest = nil
	s.mu.Unlock()
	if peer == nil {
		return nil
	}
	return peer.Close()
}

// Stats reports the peer state for status endpoints
func (s *Source) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := map[string]interface{}{
		"frames_received": s.frameCount,
		"width":           s.width,
		"height":          s.height,
	}
	if s.peer != nil {
		stats["connection_state"] = s.peer.ConnectionState().String()
		stats["ice_state"] = s.peer.ICEConnectionState().String()
	}
	return stats
}

type track struct {
	id     string
	source *Source

	mu      sync.Mutex
	stopped bool
}

func (t *track) ID() string { return t.id }

func (t *track) Settings() media.TrackSettings {
	t.source.mu.RLock()
	defer t.source.mu.RUnlock()
	return media.TrackSettings{Width: t.source.width, Height: t.source.height}
}

// FrameGrabber is unavailable: the page only streams preview frames
func (t *track) FrameGrabber() (media.FrameGrabber, bool) {
	return nil, false
}

func (t *track) CurrentFrame(ctx context.Context) (image.Image, error) {
	t.mu.Lock()
	stopped := t.stopped
	t.mu.Unlock()
	if stopped {
		return nil, media.ErrNoFrame
	}

	t.source.mu.RLock()
	data := t.source.latest
	t.source.mu.RUnlock()
	if data == nil {
		return nil, media.ErrNoFrame
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return img, nil
}

func (t *track) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return nil
	}
	t.stopped = true
	return t.source.Close()
}
