package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/prive/internal/domain/model"
	"github.com/okian/prive/pkg/metrics"
)

// SQLiteStore is a durable Store backed by modernc.org/sqlite.
//
// The record body is stored as JSON alongside scalar columns for querying;
// every snapshot is additionally appended to an unbounded history log
// keyed (user_id, seq), so the capped in-record window never limits
// long-term auditability.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

// OpenSQLiteStore opens or creates the reputation database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open reputation database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s := &SQLiteStore{conn: conn, path: path}
	if err := s.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initialize reputation schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS reputation (
			user_id TEXT PRIMARY KEY,
			record TEXT NOT NULL,
			total_score REAL NOT NULL DEFAULT 0,
			tier TEXT NOT NULL DEFAULT 'none',
			is_eligible INTEGER NOT NULL DEFAULT 0,
			revision INTEGER NOT NULL DEFAULT 0,
			last_calculated TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_reputation_eligible
			ON reputation(is_eligible, total_score DESC);

		CREATE TABLE IF NOT EXISTS reputation_history (
			user_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			snapshot_id TEXT NOT NULL,
			taken_at TEXT NOT NULL,
			total_score REAL NOT NULL,
			tier TEXT NOT NULL,
			pillar_scores TEXT NOT NULL,
			trigger_label TEXT NOT NULL,
			PRIMARY KEY (user_id, seq)
		);

		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);
		INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// GetOrCreate implements Store via INSERT OR IGNORE, so concurrent first
// access for the same user cannot race-create duplicates.
func (s *SQLiteStore) GetOrCreate(ctx context.Context, userID string) (*model.ReputationRecord, error) {
	fresh := model.NewRecord(userID)
	body, err := json.Marshal(fresh)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT OR IGNORE INTO reputation (user_id, record, total_score, tier, is_eligible, revision)
		VALUES (?, ?, 0, 'none', 0, 0)
	`, userID, string(body))
	if err != nil {
		return nil, fmt.Errorf("create reputation record: %w", err)
	}

	return s.Get(ctx, userID)
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, userID string) (*model.ReputationRecord, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	var body string
	var revision int64
	err := s.conn.QueryRowContext(ctx, `
		SELECT record, revision FROM reputation WHERE user_id = ?
	`, userID).Scan(&body, &revision)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read reputation record: %w", err)
	}

	var rec model.ReputationRecord
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, fmt.Errorf("decode reputation record: %w", err)
	}
	rec.Revision = revision
	return &rec, nil
}

// Save implements Store. The revision check and the history append commit
// in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, rec *model.ReputationRecord, snaps ...model.Snapshot) error {
	start := time.Now()
	defer func() {
		metrics.RecordStoreSaveLatency(float64(time.Since(start).Milliseconds()))
	}()

	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE reputation
		SET record = ?, total_score = ?, tier = ?, is_eligible = ?,
		    revision = revision + 1, last_calculated = ?
		WHERE user_id = ? AND revision = ?
	`, string(body), rec.TotalScore, string(rec.Tier), boolToInt(rec.IsEligible),
		rec.LastCalculated.UTC().Format(time.RFC3339Nano), rec.UserID, rec.Revision)
	if err != nil {
		return fmt.Errorf("save reputation record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save reputation record: %w", err)
	}
	if affected == 0 {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM reputation WHERE user_id = ?`, rec.UserID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check record existence: %w", err)
		}
		metrics.RecordSaveConflict()
		return ErrConflict
	}

	for _, snap := range snaps {
		scores, err := json.Marshal(snap.PillarScores)
		if err != nil {
			return fmt.Errorf("marshal snapshot scores: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO reputation_history
				(user_id, seq, snapshot_id, taken_at, total_score, tier, pillar_scores, trigger_label)
			VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM reputation_history WHERE user_id = ?),
				?, ?, ?, ?, ?, ?)
		`, rec.UserID, rec.UserID, snap.ID,
			snap.Date.UTC().Format(time.RFC3339Nano), snap.TotalScore,
			string(snap.Tier), string(scores), snap.Trigger)
		if err != nil {
			return fmt.Errorf("append history snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	rec.Revision++
	return nil
}

// History implements Store, reading newest-first from the durable log.
func (s *SQLiteStore) History(ctx context.Context, userID string, limit int) ([]model.Snapshot, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = model.HistoryLimit
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT snapshot_id, taken_at, total_score, tier, pillar_scores, trigger_label
		FROM reputation_history
		WHERE user_id = ?
		ORDER BY seq DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snaps []model.Snapshot
	for rows.Next() {
		var snap model.Snapshot
		var takenAt, tier, scores string
		if err := rows.Scan(&snap.ID, &takenAt, &snap.TotalScore, &tier, &scores, &snap.Trigger); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, takenAt); err == nil {
			snap.Date = t
		}
		snap.Tier = model.Tier(tier)
		if err := json.Unmarshal([]byte(scores), &snap.PillarScores); err != nil {
			return nil, fmt.Errorf("decode snapshot scores: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// ListEligible implements Store.
func (s *SQLiteStore) ListEligible(ctx context.Context, tier model.Tier, limit int) ([]*model.ReputationRecord, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT record, revision FROM reputation
		WHERE is_eligible = 1
		ORDER BY total_score DESC, user_id ASC
		LIMIT ?
	`
	args := []any{limit}
	if tier != "" {
		query = `
			SELECT record, revision FROM reputation
			WHERE is_eligible = 1 AND tier = ?
			ORDER BY total_score DESC, user_id ASC
			LIMIT ?
		`
		args = []any{string(tier), limit}
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list eligible records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*model.ReputationRecord
	for rows.Next() {
		var body string
		var revision int64
		if err := rows.Scan(&body, &revision); err != nil {
			return nil, fmt.Errorf("scan eligible row: %w", err)
		}
		var rec model.ReputationRecord
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			return nil, fmt.Errorf("decode reputation record: %w", err)
		}
		rec.Revision = revision
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM reputation`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reputation records: %w", err)
	}
	return n, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
