package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/daverlon/KotlinYOLO/internal/dto"
	"github.com/daverlon/KotlinYOLO/internal/model"
)

// FrameRepository implements repository.FrameRepository for SQLite.
type FrameRepository struct {
	db *DB
}

// NewFrameRepository creates a new SQLite frame repository.
func NewFrameRepository(db *DB) *FrameRepository {
	return &FrameRepository{db: db}
}

// Insert adds a new frame record to the database.
func (r *FrameRepository) Insert(f *model.Frame) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO frames (session_id, seq, timestamp, sensor_width, sensor_height,
			display_width, display_height, candidates, latency_ms, error_kind)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.SessionID, int64(f.Seq), f.Timestamp.UTC(), f.SensorWidth, f.SensorHeight,
		f.DisplayWidth, f.DisplayHeight, f.Candidates, f.LatencyMs, f.ErrorKind)
	if err != nil {
		return 0, fmt.Errorf("failed to insert frame: %w", err)
	}

	return result.LastInsertId()
}

const frameColumns = `f.id, f.session_id, f.seq, f.timestamp, f.sensor_width, f.sensor_height,
	f.display_width, f.display_height, f.candidates, f.latency_ms, f.error_kind`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanFrame(row scanner) (model.Frame, error) {
	var f model.Frame
	var seq int64
	err := row.Scan(&f.ID, &f.SessionID, &seq, &f.Timestamp, &f.SensorWidth, &f.SensorHeight,
		&f.DisplayWidth, &f.DisplayHeight, &f.Candidates, &f.LatencyMs, &f.ErrorKind)
	f.Seq = uint64(seq)
	return f, err
}

// GetByID retrieves a frame by its ID, or nil when absent.
func (r *FrameRepository) GetByID(id int64) (*model.Frame, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	f, err := scanFrame(r.db.Conn().QueryRow(`SELECT `+frameColumns+` FROM frames f WHERE f.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get frame: %w", err)
	}
	return &f, nil
}

// whereClause builds the shared filter for GetRecent and GetTotalCount.
func whereClause(filter *dto.FrameFilter) (string, []interface{}) {
	query := " WHERE 1=1"
	args := []interface{}{}
	if filter == nil {
		return query, args
	}

	if filter.SessionID != "" {
		query += " AND f.session_id = ?"
		args = append(args, filter.SessionID)
	}

	if filter.Label != "" {
		query += " AND EXISTS (SELECT 1 FROM detections d WHERE d.frame_id = f.id AND d.label = ?)"
		args = append(args, filter.Label)
	}

	if !filter.Since.IsZero() {
		query += " AND f.timestamp >= ?"
		args = append(args, filter.Since.UTC())
	}

	return query, args
}

// GetRecent retrieves frames newest first.
func (r *FrameRepository) GetRecent(filter *dto.FrameFilter) ([]model.Frame, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)
	query := `SELECT ` + frameColumns + ` FROM frames f` + where + ` ORDER BY f.timestamp DESC, f.id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query frames: %w", err)
	}
	defer rows.Close()

	frames := []model.Frame{}
	for rows.Next() {
		f, err := scanFrame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan frame: %w", err)
		}
		frames = append(frames, f)
	}

	return frames, rows.Err()
}

// GetTotalCount returns the count of frames matching the filter.
func (r *FrameRepository) GetTotalCount(filter *dto.FrameFilter) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)
	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM frames f`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count frames: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes frames (and their detections) older than cutoff.
func (r *FrameRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`DELETE FROM frames WHERE timestamp < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete frames: %w", err)
	}
	return result.RowsAffected()
}
