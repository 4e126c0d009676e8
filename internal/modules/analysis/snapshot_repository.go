package analysis

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SnapshotRepository persists the latest analysis record per symbol.
//
// The engine itself stays stateless; snapshots are a write-behind surface
// consumed by the dashboard and by report generation, one row per symbol,
// replaced on every fresh analysis.
type SnapshotRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// Snapshot is one persisted analysis record
type Snapshot struct {
	ID            string            `json:"id"`
	Symbol        string            `json:"symbol"`
	OverallSignal string            `json:"overall_signal"`
	Confidence    float64           `json:"confidence"`
	Analysis      TechnicalAnalysis `json:"analysis"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS analysis_snapshots (
	id             TEXT PRIMARY KEY,
	symbol         TEXT NOT NULL UNIQUE,
	overall_signal TEXT NOT NULL,
	confidence     REAL NOT NULL,
	payload        TEXT NOT NULL,
	updated_at     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_signal ON analysis_snapshots(overall_signal);
`

// NewSnapshotRepository creates the repository and ensures its schema exists
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) (*SnapshotRepository, error) {
	if _, err := db.Exec(snapshotSchema); err != nil {
		return nil, fmt.Errorf("failed to create snapshot schema: %w", err)
	}
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("repository", "analysis_snapshots").Logger(),
	}, nil
}

// Save inserts or replaces the snapshot for the analysis record's symbol
func (r *SnapshotRepository) Save(a *TechnicalAnalysis) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis for %s: %w", a.Symbol, err)
	}

	_, err = r.db.Exec(`
		INSERT INTO analysis_snapshots (id, symbol, overall_signal, confidence, payload, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			overall_signal = excluded.overall_signal,
			confidence = excluded.confidence,
			payload = excluded.payload,
			updated_at = excluded.updated_at
	`, uuid.NewString(), a.Symbol, string(a.OverallSignal), a.Confidence, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save snapshot for %s: %w", a.Symbol, err)
	}
	return nil
}

// GetBySymbol returns the latest snapshot for a symbol, or nil when absent
func (r *SnapshotRepository) GetBySymbol(symbol string) (*Snapshot, error) {
	row := r.db.QueryRow(`
		SELECT id, symbol, overall_signal, confidence, payload, updated_at
		FROM analysis_snapshots WHERE symbol = ?
	`, symbol)

	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot for %s: %w", symbol, err)
	}
	return snap, nil
}

// GetAll returns every stored snapshot, most recently updated first
func (r *SnapshotRepository) GetAll() ([]Snapshot, error) {
	rows, err := r.db.Query(`
		SELECT id, symbol, overall_signal, confidence, payload, updated_at
		FROM analysis_snapshots ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan snapshot row")
			continue
		}
		snapshots = append(snapshots, *snap)
	}
	return snapshots, rows.Err()
}

// DeleteOlderThan removes snapshots not refreshed since the cutoff and
// returns the number of rows removed. Used by the maintenance sweep.
func (r *SnapshotRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM analysis_snapshots WHERE updated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale snapshots: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*Snapshot, error) {
	var snap Snapshot
	var payload string
	if err := row.Scan(&snap.ID, &snap.Symbol, &snap.OverallSignal, &snap.Confidence, &payload, &snap.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &snap.Analysis); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot payload: %w", err)
	}
	return &snap, nil
}
