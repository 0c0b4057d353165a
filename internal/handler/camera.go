package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/daverlon/KotlinYOLO/internal/config"
	"github.com/daverlon/KotlinYOLO/internal/logger"
	"github.com/daverlon/KotlinYOLO/internal/service/pipeline"
	"github.com/daverlon/KotlinYOLO/internal/vision"
)

const (
	readTimeout  = 60 * time.Second
	maxFrameSize = 64 << 20
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// CameraWebsocketHandler accepts one camera stream per connection. Each binary
// message is a frame in the wire format; the connection lifetime is one session.
// A newer camera connection replaces the session, and the older connection is
// closed on its next frame.
func CameraWebsocketHandler(worker *pipeline.Worker, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		defer connection.Close()

		connection.SetReadLimit(maxFrameSize)
		connection.SetReadDeadline(time.Now().Add(readTimeout))
		connection.SetPongHandler(func(appData string) error {
			connection.SetReadDeadline(time.Now().Add(readTimeout))
			return nil
		})

		sess := worker.StartSession(vision.Resolution{Width: cfg.DisplayWidth, Height: cfg.DisplayHeight})
		defer worker.EndSession(sess)
		logger.Info("📹 Camera connected from %s (session %s)", r.RemoteAddr, sess.ID)

		for {
			messageType, msg, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Camera disconnected normally")
				} else {
					logger.Warning("Camera disconnected: %v", err)
				}
				return
			}
			connection.SetReadDeadline(time.Now().Add(readTimeout))

			if messageType != websocket.BinaryMessage {
				continue
			}
			frame, err := DecodeFrame(msg)
			if err != nil {
				worker.ReportFailure(err)
				logger.Warning("⚠️  Rejected camera message: %v", err)
				continue
			}
			if !worker.Submit(sess, frame) {
				logger.Info("📹 Camera session %s replaced by a newer connection, closing %s", sess.ID, r.RemoteAddr)
				connection.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session replaced"))
				return
			}
		}
	}
}
