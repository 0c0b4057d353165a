// Package labels maps class ids to display names and overlay colours.
package labels

import (
	"bufio"
	"fmt"
	"image/color"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// COCO is the 80-class label set used by stock YOLO exports.
var COCO = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat", "traffic light",
	"fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog", "horse", "sheep", "cow",
	"elephant", "bear", "zebra", "giraffe", "backpack", "umbrella", "handbag", "tie", "suitcase", "frisbee",
	"skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove", "skateboard", "surfboard",
	"tennis racket", "bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair", "couch",
	"potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse", "remote", "keyboard", "cell phone",
	"microwave", "oven", "toaster", "sink", "refrigerator", "book", "clock", "vase", "scissors", "teddy bear",
	"hair drier", "toothbrush",
}

// Unknown is shown for class ids outside the set.
const Unknown = "Unknown"

// Set is a replaceable, concurrency-safe list of class names.
type Set struct {
	mu    sync.RWMutex
	names []string
}

// NewSet copies names into a new Set.
func NewSet(names []string) *Set {
	s := &Set{}
	s.Replace(names)
	return s
}

// Default returns a Set holding COCO.
func Default() *Set {
	return NewSet(COCO)
}

// Replace swaps the whole name list.
func (s *Set) Replace(names []string) {
	cp := append([]string(nil), names...)
	s.mu.Lock()
	s.names = cp
	s.mu.Unlock()
}

func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.names)
}

// Name returns the label for id, or Unknown.
func (s *Set) Name(id int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 0 || id >= len(s.names) {
		return Unknown
	}
	return s.names[id]
}

// Caption is the overlay text for a box, e.g. "person 87.5%".
func (s *Set) Caption(id int, confidence float32) string {
	return fmt.Sprintf("%s %.1f%%", s.Name(id), confidence*100)
}

// Load reads one label per line. Blank lines and lines starting with # are skipped.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open labels file: %w", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return names, nil
}

// Color is the per-class overlay colour: hue (id*37) mod 360, saturation 0.6,
// value 0.9.
func Color(id int) color.RGBA {
	hue := math.Mod(float64(id)*37, 360)
	if hue < 0 {
		hue += 360
	}
	r, g, b := colorful.Hsv(hue, 0.6, 0.9).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

// Hex is Color formatted as #rrggbb.
func Hex(id int) string {
	c := Color(id)
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
