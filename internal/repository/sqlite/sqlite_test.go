package sqlite

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/daverlon/KotlinYOLO/internal/dto"
	"github.com/daverlon/KotlinYOLO/internal/model"
)

// ========================================
// Helpers
// ========================================

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertFrame(t *testing.T, repo *FrameRepository, session string, seq uint64, ts time.Time) int64 {
	t.Helper()
	id, err := repo.Insert(&model.Frame{
		SessionID:    session,
		Seq:          seq,
		Timestamp:    ts,
		SensorWidth:  1280,
		SensorHeight: 720,
		LatencyMs:    12.5,
	})
	if err != nil {
		t.Fatalf("Failed to insert frame: %v", err)
	}
	return id
}

// ========================================
// Database Tests
// ========================================

func TestDatabase_Connection(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist")
	}
}

func TestDatabase_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	insertFrame(t, NewFrameRepository(db), "s1", 1, time.Now())
	db.Close()

	db, err = New(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db.Close()

	count, err := NewFrameRepository(db).GetTotalCount(nil)
	if err != nil || count != 1 {
		t.Errorf("count after reopen = %d, %v", count, err)
	}
}

// ========================================
// Frame Repository Tests
// ========================================

func TestFrameRepository_InsertAndGet(t *testing.T) {
	repo := NewFrameRepository(openTestDB(t))
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	id := insertFrame(t, repo, "s1", 42, ts)
	got, err := repo.GetByID(id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected frame, got nil")
	}
	if got.SessionID != "s1" || got.Seq != 42 || !got.Timestamp.Equal(ts) || got.SensorWidth != 1280 || got.LatencyMs != 12.5 {
		t.Errorf("unexpected frame %+v", got)
	}

	missing, err := repo.GetByID(9999)
	if err != nil || missing != nil {
		t.Errorf("GetByID(missing) = %v, %v", missing, err)
	}
}

func TestFrameRepository_GetRecentFilters(t *testing.T) {
	db := openTestDB(t)
	frames := NewFrameRepository(db)
	dets := NewDetectionRepository(db)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var ids []int64
	for i := 0; i < 5; i++ {
		session := "a"
		if i >= 3 {
			session = "b"
		}
		ids = append(ids, insertFrame(t, frames, session, uint64(i), base.Add(time.Duration(i)*time.Second)))
	}
	if err := dets.InsertBatch([]model.Detection{
		{FrameID: ids[1], ClassID: 0, Label: "person", Confidence: 0.9},
		{FrameID: ids[4], ClassID: 16, Label: "dog", Confidence: 0.7},
		{FrameID: ids[4], ClassID: 0, Label: "person", Confidence: 0.6},
	}); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	all, err := frames.GetRecent(&dto.FrameFilter{})
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(all) != 5 || all[0].Seq != 4 || all[4].Seq != 0 {
		t.Errorf("expected newest first, got %d frames starting at seq %d", len(all), all[0].Seq)
	}

	tests := []struct {
		name     string
		filter   dto.FrameFilter
		expected []uint64
		total    int
	}{
		{"by session", dto.FrameFilter{SessionID: "a"}, []uint64{2, 1, 0}, 3},
		{"by label", dto.FrameFilter{Label: "person"}, []uint64{4, 1}, 2},
		{"since", dto.FrameFilter{Since: base.Add(3 * time.Second)}, []uint64{4, 3}, 2},
		{"limit", dto.FrameFilter{Limit: 2}, []uint64{4, 3}, 5},
		{"offset", dto.FrameFilter{Limit: 2, Offset: 2}, []uint64{2, 1}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := frames.GetRecent(&tt.filter)
			if err != nil {
				t.Fatalf("GetRecent failed: %v", err)
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("got %d frames, expected %d", len(got), len(tt.expected))
			}
			for i, f := range got {
				if f.Seq != tt.expected[i] {
					t.Errorf("frame %d has seq %d, expected %d", i, f.Seq, tt.expected[i])
				}
			}
			total, err := frames.GetTotalCount(&tt.filter)
			if err != nil || total != tt.total {
				t.Errorf("GetTotalCount = %d, %v; expected %d", total, err, tt.total)
			}
		})
	}
}

func TestFrameRepository_DeleteOlderThanCascades(t *testing.T) {
	db := openTestDB(t)
	frames := NewFrameRepository(db)
	dets := NewDetectionRepository(db)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	old := insertFrame(t, frames, "s", 1, base)
	recent := insertFrame(t, frames, "s", 2, base.Add(time.Hour))
	dets.InsertBatch([]model.Detection{
		{FrameID: old, Label: "cat"},
		{FrameID: recent, Label: "dog"},
	})

	n, err := frames.DeleteOlderThan(base.Add(time.Minute))
	if err != nil || n != 1 {
		t.Fatalf("DeleteOlderThan = %d, %v", n, err)
	}

	counts, err := dets.GetLabelCounts()
	if err != nil {
		t.Fatalf("GetLabelCounts failed: %v", err)
	}
	if counts["cat"] != 0 || counts["dog"] != 1 {
		t.Errorf("detections not cascaded: %v", counts)
	}
}

// ========================================
// Detection Repository Tests
// ========================================

func TestDetectionRepository_GetByFrameID(t *testing.T) {
	db := openTestDB(t)
	id := insertFrame(t, NewFrameRepository(db), "s", 1, time.Now())
	repo := NewDetectionRepository(db)

	if err := repo.InsertBatch([]model.Detection{
		{FrameID: id, ClassID: 2, Label: "car", X: 1.5, Y: 2.5, Width: 30, Height: 40, Confidence: 0.4},
		{FrameID: id, ClassID: 0, Label: "person", Confidence: 0.8},
	}); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	got, err := repo.GetByFrameID(id)
	if err != nil {
		t.Fatalf("GetByFrameID failed: %v", err)
	}
	if len(got) != 2 || got[0].Label != "person" || got[1].X != 1.5 || got[1].Height != 40 {
		t.Errorf("unexpected detections %+v", got)
	}

	none, err := repo.GetByFrameID(id + 100)
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v, %v", none, err)
	}
	if err := repo.InsertBatch(nil); err != nil {
		t.Errorf("InsertBatch(nil) = %v", err)
	}
}

func TestDatabase_ConcurrentAccess(t *testing.T) {
	db := openTestDB(t)
	frames := NewFrameRepository(db)

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if _, err := frames.Insert(&model.Frame{SessionID: "c", Seq: uint64(i), Timestamp: time.Now()}); err != nil {
				errs <- err
			}
		}(i)
		go func() {
			defer wg.Done()
			if _, err := frames.GetRecent(&dto.FrameFilter{Limit: 5}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent operation failed: %v", err)
	}
	if count, _ := frames.GetTotalCount(nil); count != 20 {
		t.Errorf("Expected 20 frames, got %d", count)
	}
}
