// Command camsim plays still images to a running server as a camera would,
// one YUV frame message per tick over /api/camera.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/daverlon/KotlinYOLO/internal/config"
	"github.com/daverlon/KotlinYOLO/internal/handler"
	"github.com/daverlon/KotlinYOLO/internal/service/render"
	"github.com/daverlon/KotlinYOLO/internal/vision"
)

func main() {
	cfg := config.Load()

	addr := flag.String("addr", fmt.Sprintf("localhost:%d", cfg.Port), "Server host:port")
	token := flag.String("token", cfg.AuthToken, "Auth token")
	imagesDir := flag.String("images", "static/images", "Directory containing images")
	fps := flag.Float64("fps", 10, "Frames per second")
	loop := flag.Bool("loop", true, "Repeat the image set")
	flag.Parse()

	if *fps <= 0 {
		log.Fatalf("fps must be positive: %v", *fps)
	}

	frames, err := loadFrames(*imagesDir)
	if err != nil {
		log.Fatalf("Failed to load images: %v", err)
	}
	if len(frames) == 0 {
		log.Fatalf("No images found in %s", *imagesDir)
	}

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/api/camera"}
	if *token != "" {
		u.RawQuery = url.Values{"token": {*token}}.Encode()
	}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", u.Redacted(), err)
	}
	defer conn.Close()
	log.Printf("📷 Streaming %d images to %s at %.1f fps", len(frames), u.Host, *fps)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(float64(time.Second) / *fps))
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-interrupt:
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			log.Printf("Sent %d frames", seq)
			return
		case <-ticker.C:
			if !*loop && seq >= uint64(len(frames)) {
				log.Printf("Sent %d frames", seq)
				return
			}
			f := frames[seq%uint64(len(frames))]
			f.Seq = seq
			f.Timestamp = time.Now()
			if err := conn.WriteMessage(websocket.BinaryMessage, handler.EncodeFrame(f)); err != nil {
				log.Fatalf("Error sending frame %d: %v", seq, err)
			}
			seq++
		}
	}
}

func loadFrames(dir string) ([]vision.RawFrame, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var frames []vision.RawFrame
	for _, file := range files {
		ext := strings.ToLower(filepath.Ext(file.Name()))
		if file.IsDir() || (ext != ".jpg" && ext != ".jpeg" && ext != ".png") {
			continue
		}
		img, err := render.LoadRaster(filepath.Join(dir, file.Name()))
		if err != nil {
			log.Printf("⚠️  Skipping %s: %v", file.Name(), err)
			continue
		}
		frames = append(frames, vision.FrameFromRaster(img))
	}
	return frames, nil
}
