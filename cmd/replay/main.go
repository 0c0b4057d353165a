// Command replay runs still images through the detection pipeline and writes
// annotated copies. With -db it also journals the detections to SQLite.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/daverlon/KotlinYOLO/internal/app"
	"github.com/daverlon/KotlinYOLO/internal/config"
	"github.com/daverlon/KotlinYOLO/internal/labels"
	"github.com/daverlon/KotlinYOLO/internal/logger"
	"github.com/daverlon/KotlinYOLO/internal/repository/sqlite"
	"github.com/daverlon/KotlinYOLO/internal/service/ai"
	"github.com/daverlon/KotlinYOLO/internal/service/pipeline"
	"github.com/daverlon/KotlinYOLO/internal/service/render"
	"github.com/daverlon/KotlinYOLO/internal/service/storage"
	"github.com/daverlon/KotlinYOLO/internal/vision"
)

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

func main() {
	cfg := config.Load()

	imagesDir := flag.String("images", "static/images", "Directory containing images")
	outDir := flag.String("out", "out", "Directory for annotated images")
	dbPath := flag.String("db", "", "Journal detections to this database (optional)")
	flag.StringVar(&cfg.ModelPath, "model", cfg.ModelPath, "ONNX model path")
	flag.StringVar(&cfg.LabelsPath, "labels", cfg.LabelsPath, "Labels file, one name per line")
	flag.Float64Var(&cfg.ConfidenceThreshold, "conf", cfg.ConfidenceThreshold, "Confidence threshold")
	flag.Float64Var(&cfg.IoUThreshold, "iou", cfg.IoUThreshold, "IoU threshold")
	flag.BoolVar(&cfg.ClassAwareNMS, "class-aware", cfg.ClassAwareNMS, "Suppress per class")
	flag.Parse()

	// Stills are upright and annotated in their own pixel space.
	cfg.Rotation = 0
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	logs := logger.NewWriterLogger(os.Stderr)
	names := labels.Default()
	if cfg.LabelsPath != "" {
		loaded, err := labels.Load(cfg.LabelsPath)
		if err != nil {
			log.Fatalf("Failed to load labels: %v", err)
		}
		names.Replace(loaded)
	}

	engine := ai.NewNetEngine(cfg, logs)
	defer engine.Close()
	if !engine.Loaded() {
		log.Fatalf("Model not loaded from %s", cfg.ModelPath)
	}

	opts, err := app.PipelineOptions(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	p := pipeline.New(engine, opts)

	var journal *storage.JournalService
	if *dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
			log.Fatalf("Failed to create database directory: %v", err)
		}
		db, err := sqlite.New(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer db.Close()
		journal = storage.NewJournalService(cfg, logs, names, sqlite.NewFrameRepository(db), sqlite.NewDetectionRepository(db))
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	files, err := os.ReadDir(*imagesDir)
	if err != nil {
		log.Fatalf("Failed to read images directory: %v", err)
	}

	fmt.Printf("Replaying images from %s (conf=%.2f iou=%.2f)\n", *imagesDir, cfg.ConfidenceThreshold, cfg.IoUThreshold)

	sess := pipeline.NewSession(vision.Resolution{})
	ctx := context.Background()
	processed, skipped, total, journaled := 0, 0, 0, 0
	for _, file := range files {
		if file.IsDir() || !imageExts[strings.ToLower(filepath.Ext(file.Name()))] {
			continue
		}

		res, err := replayOne(ctx, p, sess, names, filepath.Join(*imagesDir, file.Name()), *outDir, uint64(processed+skipped))
		if err != nil {
			log.Printf("⚠️  Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}
		processed++
		total += len(res.Boxes)

		if journal != nil {
			journal.Publish(res)
			journaled += journal.FlushIfFull()
		}
	}

	if processed == 0 && skipped == 0 {
		fmt.Println("No images found to replay")
		return
	}

	fmt.Printf("✅ Processed %d images, %d boxes\n", processed, total)
	if skipped > 0 {
		fmt.Printf("⚠️  Skipped %d files (unreadable or failed)\n", skipped)
	}

	if journal != nil {
		journaled += journal.Flush()
		fmt.Printf("💾 Journaled %d frames to %s\n", journaled, *dbPath)
		if counts, err := journal.LabelCounts(); err == nil {
			fmt.Printf("\n📊 Label counts:\n")
			for label, count := range counts {
				fmt.Printf("   - %s: %d\n", label, count)
			}
		}
	}
}

func replayOne(ctx context.Context, p *pipeline.Pipeline, sess *pipeline.Session, names *labels.Set, path, outDir string, seq uint64) (pipeline.Result, error) {
	img, err := render.LoadRaster(path)
	if err != nil {
		return pipeline.Result{}, err
	}

	frame := vision.FrameFromRaster(img)
	frame.Seq = seq
	frame.Timestamp = time.Now()

	res, err := p.Process(ctx, frame, sess)
	if err != nil {
		return res, err
	}

	name := filepath.Base(path)
	fmt.Printf("%s: %d boxes in %v\n", name, len(res.Boxes), res.Latency.Round(time.Millisecond))
	for _, b := range res.Boxes {
		fmt.Printf("   %-24s x=%.0f y=%.0f w=%.0f h=%.0f\n", names.Caption(b.ClassID, b.Confidence), b.X, b.Y, b.W, b.H)
	}

	jpeg, err := render.EncodeJPEG(img, res.Boxes, names)
	if err != nil {
		return res, err
	}
	out := filepath.Join(outDir, strings.TrimSuffix(name, filepath.Ext(name))+"_overlay.jpg")
	if err := os.WriteFile(out, jpeg, 0644); err != nil {
		return res, fmt.Errorf("failed to write %s: %w", out, err)
	}
	return res, nil
}
