package route

import (
	"net/http"

	"github.com/daverlon/KotlinYOLO/internal/config"
	"github.com/daverlon/KotlinYOLO/internal/handler"
	"github.com/daverlon/KotlinYOLO/internal/logger"
	"github.com/daverlon/KotlinYOLO/internal/middleware"
	"github.com/daverlon/KotlinYOLO/internal/service/pipeline"
	"github.com/daverlon/KotlinYOLO/internal/service/storage"
	ws "github.com/daverlon/KotlinYOLO/internal/service/websocket"
)

// Services are the long-lived collaborators the routes need.
type Services struct {
	Worker  *pipeline.Worker
	Hub     *ws.HubService
	Journal *storage.JournalService
	Model   handler.ModelStatus
}

// SetupRoutes registers the camera and viewer websockets, the journal and
// stats API, log endpoints and the health check, wrapped in token auth.
func SetupRoutes(svc Services, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Websockets
	mux.HandleFunc("/api/camera", handler.CameraWebsocketHandler(svc.Worker, cfg, logger))
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(svc.Hub, svc.Worker, logger))

	// API endpoints
	mux.HandleFunc("/api/frames", handler.GetFramesHandler(svc.Journal, logger))
	mux.HandleFunc("/api/frames/{id}", handler.GetFrameHandler(svc.Journal, logger))
	mux.HandleFunc("/api/stats", handler.GetStatsHandler(svc.Worker, svc.Hub, svc.Journal, logger))

	// Log endpoints
	for _, level := range []string{"info", "warning", "error"} {
		file := level + ".log"
		mux.HandleFunc("/logs/"+level, handler.ShowLogsHandler(logger, file))
		mux.HandleFunc("/logs/"+level+"/clear", handler.ClearLogsHandler(logger, file))
	}

	mux.HandleFunc("/healthz", handler.HealthHandler(svc.Model))

	return middleware.TokenAuth(cfg.AuthToken)(mux)
}
