package settings

import (
	"database/sql"
	"fmt"

	"github.com/wkmp/ap/pkg/timing"
	"github.com/wkmp/ap/pkg/types"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a concrete Store backed by modernc.org/sqlite (a pure
// Go, cgo-free driver), used by cmd/wkmpap to give the engine a real
// persistence layer without depending on it directly.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the settings/queue
// database at path and ensures its schema exists.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("settings: open %s: %w", path, err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS queue (
			position INTEGER PRIMARY KEY,
			queue_entry_id TEXT NOT NULL,
			file_path TEXT NOT NULL,
			start_time INTEGER NOT NULL,
			end_time INTEGER NOT NULL,
			end_time_set INTEGER NOT NULL DEFAULT 1,
			fade_in_point INTEGER,
			fade_out_point INTEGER,
			lead_in_point INTEGER,
			lead_out_point INTEGER,
			fade_in_curve INTEGER NOT NULL,
			fade_out_curve INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS playback_state (
			id INTEGER PRIMARY KEY CHECK (id = 0),
			current_queue_entry_id TEXT,
			read_pos_ticks INTEGER
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("settings: migrate: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetSetting implements Store.
func (s *SQLiteStore) GetSetting(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("settings: get %s: %w", key, err)
	}
	return value, true, nil
}

// SetSetting implements Store.
func (s *SQLiteStore) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("settings: set %s: %w", key, err)
	}
	return nil
}

// LoadQueue implements Store.
func (s *SQLiteStore) LoadQueue() ([]Passage, error) {
	rows, err := s.db.Query(`
		SELECT queue_entry_id, file_path, start_time, end_time, end_time_set,
		       fade_in_point, fade_out_point, lead_in_point, lead_out_point,
		       fade_in_curve, fade_out_curve
		FROM queue ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("settings: load queue: %w", err)
	}
	defer rows.Close()

	var out []Passage
	for rows.Next() {
		var p Passage
		var start, end int64
		var endTimeSet int
		var fadeIn, fadeOut, leadIn, leadOut sql.NullInt64
		var fadeInCurve, fadeOutCurve int
		if err := rows.Scan(&p.QueueEntryID, &p.FilePath, &start, &end, &endTimeSet,
			&fadeIn, &fadeOut, &leadIn, &leadOut, &fadeInCurve, &fadeOutCurve); err != nil {
			return nil, fmt.Errorf("settings: scan queue row: %w", err)
		}
		p.StartTime = timing.Tick(start)
		p.EndTime = timing.Tick(end)
		p.EndTimeSet = endTimeSet != 0
		p.FadeInPoint = nullTick(fadeIn)
		p.FadeOutPoint = nullTick(fadeOut)
		p.LeadInPoint = nullTick(leadIn)
		p.LeadOutPoint = nullTick(leadOut)
		p.FadeInCurve = types.Curve(fadeInCurve)
		p.FadeOutCurve = types.Curve(fadeOutCurve)
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveQueue implements Store, replacing the persisted queue wholesale.
func (s *SQLiteStore) SaveQueue(passages []Passage) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("settings: save queue: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM queue`); err != nil {
		return fmt.Errorf("settings: clear queue: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO queue (position, queue_entry_id, file_path, start_time, end_time, end_time_set,
		                    fade_in_point, fade_out_point, lead_in_point, lead_out_point,
		                    fade_in_curve, fade_out_curve)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("settings: prepare queue insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range passages {
		_, err := stmt.Exec(i, p.QueueEntryID, p.FilePath, int64(p.StartTime), int64(p.EndTime), boolToInt(p.EndTimeSet),
			tickOrNull(p.FadeInPoint), tickOrNull(p.FadeOutPoint),
			tickOrNull(p.LeadInPoint), tickOrNull(p.LeadOutPoint),
			int(p.FadeInCurve), int(p.FadeOutCurve))
		if err != nil {
			return fmt.Errorf("settings: insert queue row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// SavePlaybackState implements Store.
func (s *SQLiteStore) SavePlaybackState(currentQueueEntryID string, readPosTicks timing.Tick) error {
	_, err := s.db.Exec(`
		INSERT INTO playback_state (id, current_queue_entry_id, read_pos_ticks) VALUES (0, ?, ?)
		ON CONFLICT(id) DO UPDATE SET current_queue_entry_id = excluded.current_queue_entry_id,
		                               read_pos_ticks = excluded.read_pos_ticks`,
		currentQueueEntryID, int64(readPosTicks))
	if err != nil {
		return fmt.Errorf("settings: save playback state: %w", err)
	}
	return nil
}

// LoadPlaybackState implements Store.
func (s *SQLiteStore) LoadPlaybackState() (string, timing.Tick, bool, error) {
	var qid sql.NullString
	var ticks sql.NullInt64
	err := s.db.QueryRow(`SELECT current_queue_entry_id, read_pos_ticks FROM playback_state WHERE id = 0`).
		Scan(&qid, &ticks)
	if err == sql.ErrNoRows {
		return "", 0, false, nil
	}
	if err != nil {
		return "", 0, false, fmt.Errorf("settings: load playback state: %w", err)
	}
	if !qid.Valid {
		return "", 0, false, nil
	}
	return qid.String, timing.Tick(ticks.Int64), true, nil
}

func nullTick(n sql.NullInt64) *timing.Tick {
	if !n.Valid {
		return nil
	}
	t := timing.Tick(n.Int64)
	return &t
}

func tickOrNull(t *timing.Tick) any {
	if t == nil {
		return nil
	}
	return int64(*t)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
