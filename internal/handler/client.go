package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/daverlon/KotlinYOLO/internal/logger"
	"github.com/daverlon/KotlinYOLO/internal/service/pipeline"
	ws "github.com/daverlon/KotlinYOLO/internal/service/websocket"
	"github.com/daverlon/KotlinYOLO/internal/vision"
)

// ViewerMessage is what a viewer may send. Type "display" reports the size of
// the surface the overlay is drawn on.
type ViewerMessage struct {
	Type   string `json:"type"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ViewWebsocketHandler registers viewers with the hub so they receive overlay
// messages, and applies the display sizes they report.
func ViewWebsocketHandler(hub *ws.HubService, worker *pipeline.Worker, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadLimit(512)
		connection.SetReadDeadline(time.Now().Add(readTimeout))
		connection.SetPongHandler(func(appData string) error {
			connection.SetReadDeadline(time.Now().Add(readTimeout))
			return nil
		})

		hub.Register(connection)
		defer hub.Unregister(connection)

		for {
			_, data, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Viewer disconnected normally")
				} else {
					logger.Warning("Viewer disconnected: %v", err)
				}
				return
			}
			connection.SetReadDeadline(time.Now().Add(readTimeout))

			var msg ViewerMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				logger.Warning("Ignoring malformed viewer message: %v", err)
				continue
			}
			if msg.Type != "display" {
				continue
			}
			display := vision.Resolution{Width: msg.Width, Height: msg.Height}
			if !display.Valid() {
				logger.Warning("Ignoring invalid display size %dx%d", msg.Width, msg.Height)
				continue
			}
			worker.SetDisplay(display)
			logger.Info("Viewer display set to %dx%d", display.Width, display.Height)
		}
	}
}
