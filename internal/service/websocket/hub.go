package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/daverlon/KotlinYOLO/internal/labels"
	"github.com/daverlon/KotlinYOLO/internal/logger"
	"github.com/daverlon/KotlinYOLO/internal/service/pipeline"
)

const writeWait = 2 * time.Second

// OverlayBox is a display-space box with its caption and colour attached.
type OverlayBox struct {
	X          float32 `json:"x"`
	Y          float32 `json:"y"`
	W          float32 `json:"w"`
	H          float32 `json:"h"`
	Confidence float32 `json:"confidence"`
	ClassID    int     `json:"classId"`
	Label      string  `json:"label"`
	Caption    string  `json:"caption"`
	Color      string  `json:"color"`
}

// OverlayMessage is what viewers receive for every processed frame.
type OverlayMessage struct {
	Type      string       `json:"type"`
	SessionID string       `json:"sessionId"`
	Seq       uint64       `json:"seq"`
	Timestamp time.Time    `json:"timestamp"`
	Width     int          `json:"width"`
	Height    int          `json:"height"`
	LatencyMs float64      `json:"latencyMs"`
	Error     string       `json:"error,omitempty"`
	Boxes     []OverlayBox `json:"boxes"`
}

// NewOverlayMessage decorates a pipeline result for the viewer.
func NewOverlayMessage(res pipeline.Result, names *labels.Set) OverlayMessage {
	size := res.Display
	if !size.Valid() {
		size = res.Sensor
	}
	msg := OverlayMessage{
		Type:      "overlay",
		SessionID: res.SessionID,
		Seq:       res.Seq,
		Timestamp: res.Timestamp,
		Width:     size.Width,
		Height:    size.Height,
		LatencyMs: float64(res.Latency.Microseconds()) / 1000,
		Error:     res.Error,
		Boxes:     make([]OverlayBox, 0, len(res.Boxes)),
	}
	for _, b := range res.Boxes {
		msg.Boxes = append(msg.Boxes, OverlayBox{
			X: b.X, Y: b.Y, W: b.W, H: b.H,
			Confidence: b.Confidence,
			ClassID:    b.ClassID,
			Label:      names.Name(b.ClassID),
			Caption:    names.Caption(b.ClassID, b.Confidence),
			Color:      labels.Hex(b.ClassID),
		})
	}
	return msg
}

// HubService fans overlay messages out to connected viewers.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	labels     *labels.Set
	logger     *logger.Logger
}

func NewHubService(names *labels.Set, logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		labels:     names,
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer connected. Total: %d", count)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer disconnected. Total: %d", count)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Error("Error sending overlay: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			h.mutex.Unlock()
		}
	}
}

func (h *HubService) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}

// Register adds a viewer. After Run has returned the connection is closed instead.
func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
		client.Close()
	}
}

// Broadcast queues a raw message. When viewers fall behind the message is
// dropped, which only ever loses a stale overlay.
func (h *HubService) Broadcast(message []byte) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		return false
	}
}

// Publish implements pipeline.Sink.
func (h *HubService) Publish(res pipeline.Result) {
	if h.GetClientCount() == 0 {
		return
	}
	data, err := json.Marshal(NewOverlayMessage(res, h.labels))
	if err != nil {
		h.logger.Error("Failed to encode overlay: %v", err)
		return
	}
	if !h.Broadcast(data) {
		h.logger.Warning("⚠️  Overlay queue full, skipping frame %d", res.Seq)
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
