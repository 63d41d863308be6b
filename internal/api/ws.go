package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"proctor-camera/internal/dto"
	"proctor-camera/internal/models"
	"proctor-camera/internal/scheduler"
	"proctor-camera/internal/session"
	"proctor-camera/internal/upload"
)

const (
	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // The agent listens on loopback for the host page.
	},
}

// Hub serves the host page websocket. Hook and capture messages are answered
// with a capture.result carrying the same requestId.
type Hub struct {
	handler *Handler

	mu      sync.RWMutex
	clients map[*wsClient]bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	mu     sync.Mutex
	closed bool
}

func NewHub(handler *Handler) *Hub {
	return &Hub{
		handler: handler,
		clients: make(map[*wsClient]bool),
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	c := &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
		hub:  h,
	}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go c.writePump()
	go c.readPump()
}

// Broadcast sends a message to every connected host page
func (h *Hub) Broadcast(msgType string, payload interface{}) {
	data, err := encodeMessage(msgType, "", payload)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.enqueue(data)
	}
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.conn.Close()
	}
}

func (h *Hub) removeClient(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// close ends the send channel once; later enqueues are dropped
func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// enqueue never blocks. Capture results can arrive after the client disconnected.
func (c *wsClient) enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("websocket client buffer full, message dropped")
	}
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket read error: %v", err)
			}
			return
		}
		c.hub.handleMessage(c, raw)
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var wsHooks = map[string]scheduler.Hook{
	dto.TypeHookButtonClick:   scheduler.HookButtonClick,
	dto.TypeHookMessageSend:   scheduler.HookMessageSend,
	dto.TypeHookQuestionStart: scheduler.HookQuestionStart,
}

func (h *Hub) handleMessage(c *wsClient, raw []byte) {
	var msg dto.Message
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Type == "" {
		c.sendError("", dto.ErrCodeInvalidMessage, "message must be a JSON object with a type")
		return
	}

	sess := h.handler.session

	if hook, ok := wsHooks[msg.Type]; ok {
		var req dto.HookRequest
		if !decodePayload(c, msg, &req) {
			return
		}
		// Captures can take seconds; keep reading while they run.
		go func() {
			outcome, err := sess.OnHook(context.Background(), hook, req.Timing)
			c.sendCaptureResult(msg.RequestID, outcome, err)
		}()
		return
	}

	switch msg.Type {
	case dto.TypeCaptureManual:
		var req dto.CaptureRequest
		if !decodePayload(c, msg, &req) {
			return
		}
		trigger, err := models.ParseTrigger(req.Trigger)
		if err != nil {
			c.sendError(msg.RequestID, dto.ErrCodeInvalidMessage, err.Error())
			return
		}
		go func() {
			outcome, err := sess.CaptureImage(context.Background(), trigger, req.Timing)
			c.sendCaptureResult(msg.RequestID, outcome, err)
		}()

	case dto.TypeStatusRequest:
		c.sendMessage(dto.TypeStatus, msg.RequestID, h.handler.status())

	case dto.TypeSetResponseID, dto.TypeSetConversationID:
		var req dto.SetIDRequest
		if !decodePayload(c, msg, &req) {
			return
		}
		if msg.Type == dto.TypeSetResponseID {
			sess.SetCurrentResponseID(req.ID)
		} else {
			sess.SetConversationID(req.ID)
		}
		c.sendMessage(dto.TypeAck, msg.RequestID, nil)

	default:
		c.sendError(msg.RequestID, dto.ErrCodeInvalidMessage, "unknown message type: "+msg.Type)
	}
}

func decodePayload(c *wsClient, msg dto.Message, v interface{}) bool {
	if len(msg.Payload) == 0 || string(msg.Payload) == "null" {
		return true
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		c.sendError(msg.RequestID, dto.ErrCodeInvalidMessage, "invalid payload: "+err.Error())
		return false
	}
	return true
}

func (c *wsClient) sendCaptureResult(requestID string, outcome *models.UploadOutcome, err error) {
	switch {
	case errors.Is(err, session.ErrNotInitialized):
		c.sendError(requestID, dto.ErrCodeNotInitialized, err.Error())
	case errors.Is(err, upload.ErrUpload):
		c.sendMessage(dto.TypeCaptureResult, requestID, dto.CaptureResult{Triggered: true, Outcome: outcome})
	case err != nil:
		c.sendError(requestID, dto.ErrCodeCaptureFailed, err.Error())
	default:
		c.sendMessage(dto.TypeCaptureResult, requestID, dto.CaptureResult{Triggered: outcome != nil, Outcome: outcome})
	}
}

func (c *wsClient) sendError(requestID, code, message string) {
	c.sendMessage(dto.TypeError, requestID, dto.ErrorPayload{Code: code, Message: message})
}

func (c *wsClient) sendMessage(msgType, requestID string, payload interface{}) {
	data, err := encodeMessage(msgType, requestID, payload)
	if err != nil {
		log.Printf("Failed to encode websocket message: %v", err)
		return
	}
	c.enqueue(data)
}

func encodeMessage(msgType, requestID string, payload interface{}) ([]byte, error) {
	msg := dto.Message{Type: msgType, RequestID: requestID}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = raw
	}
	return json.Marshal(msg)
}
