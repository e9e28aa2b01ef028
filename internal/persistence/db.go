// Package persistence provides SQLite storage for runs, per-tick metrics,
// agent snapshots and calibration datasets.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/talgya/polarsim/internal/agents"
	"github.com/talgya/polarsim/internal/config"
	"github.com/talgya/polarsim/internal/engine"
)

// ErrNotFound is returned when a run or dataset does not exist.
var ErrNotFound = errors.New("not found")

// DB wraps a SQLite connection.
type DB struct {
	conn    *sqlx.DB
	entropy *rand.Rand
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{
		conn:    conn,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), db.entropy).String()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		params_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tick_metrics (
		run_id TEXT NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		population INTEGER NOT NULL,
		mean_ideology REAL NOT NULL,
		sd_ideology REAL NOT NULL,
		mean_ap REAL NOT NULL,
		sd_ap REAL NOT NULL,
		social_diversity REAL NOT NULL,
		media_diversity REAL NOT NULL,
		happy_percent REAL NOT NULL,
		partisan_gap REAL NOT NULL,
		backfires INTEGER NOT NULL,
		relocations INTEGER NOT NULL,
		by_party_json TEXT NOT NULL,
		PRIMARY KEY (run_id, tick)
	);

	CREATE TABLE IF NOT EXISTS agent_snapshots (
		run_id TEXT NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		agent_id INTEGER NOT NULL,
		external_id TEXT NOT NULL DEFAULT '',
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		party TEXT NOT NULL,
		ideology REAL NOT NULL,
		affective_polarization REAL NOT NULL,
		happy INTEGER NOT NULL,
		PRIMARY KEY (run_id, tick, agent_id)
	);

	CREATE TABLE IF NOT EXISTS calibration_agents (
		dataset TEXT NOT NULL,
		seq INTEGER NOT NULL,
		external_id TEXT NOT NULL,
		party TEXT NOT NULL,
		ideology REAL NOT NULL,
		news_frequency INTEGER NOT NULL,
		discussion_frequency INTEGER NOT NULL,
		affective_polarization REAL NOT NULL,
		PRIMARY KEY (dataset, seq)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Run describes one simulation run.
type Run struct {
	ID        string `json:"id" db:"id"`
	Seed      int64  `json:"seed" db:"seed"`
	Label     string `json:"label,omitempty" db:"label"`
	StartedAt string `json:"started_at" db:"started_at"`
	Params    string `json:"params" db:"params_json"`
}

// CreateRun records a new run with its parameters and marks it as the
// latest run.
func (db *DB) CreateRun(p config.Params, label string) (Run, error) {
	paramsJSON, err := json.Marshal(p)
	if err != nil {
		return Run{}, fmt.Errorf("encode params: %w", err)
	}
	run := Run{
		ID:        db.newID(),
		Seed:      p.Seed,
		Label:     label,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
		Params:    string(paramsJSON),
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return Run{}, err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExec(`INSERT INTO runs (id, seed, label, started_at, params_json)
		VALUES (:id, :seed, :label, :started_at, :params_json)`, run); err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	if _, err := tx.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('latest_run', ?)", run.ID); err != nil {
		return Run{}, fmt.Errorf("save meta: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Run{}, err
	}

	slog.Info("run created", "run", run.ID, "seed", run.Seed, "label", label)
	return run, nil
}

// GetRun returns one run by ID.
func (db *DB) GetRun(id string) (Run, error) {
	var run Run
	err := db.conn.Get(&run, "SELECT id, seed, label, started_at, params_json FROM runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return run, err
}

// LatestRun returns the most recently created run.
func (db *DB) LatestRun() (Run, error) {
	var id string
	err := db.conn.Get(&id, "SELECT value FROM meta WHERE key = 'latest_run'")
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("latest run: %w", ErrNotFound)
	}
	if err != nil {
		return Run{}, err
	}
	return db.GetRun(id)
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs,
		"SELECT id, seed, label, started_at, params_json FROM runs ORDER BY started_at DESC, id DESC LIMIT ?",
		limit,
	)
	return runs, err
}

// metricsRow is the flattened storage form of engine.Metrics.
type metricsRow struct {
	RunID           string  `db:"run_id"`
	Tick            uint64  `db:"tick"`
	Population      int     `db:"population"`
	MeanIdeology    float64 `db:"mean_ideology"`
	SDIdeology      float64 `db:"sd_ideology"`
	MeanAP          float64 `db:"mean_ap"`
	SDAP            float64 `db:"sd_ap"`
	SocialDiversity float64 `db:"social_diversity"`
	MediaDiversity  float64 `db:"media_diversity"`
	HappyPercent    float64 `db:"happy_percent"`
	PartisanGap     float64 `db:"partisan_gap"`
	Backfires       int     `db:"backfires"`
	Relocations     int     `db:"relocations"`
	ByPartyJSON     string  `db:"by_party_json"`
}

func toRow(runID string, m engine.Metrics) (metricsRow, error) {
	byParty, err := json.Marshal(m.ByParty)
	if err != nil {
		return metricsRow{}, err
	}
	return metricsRow{
		RunID:           runID,
		Tick:            m.Tick,
		Population:      m.Population,
		MeanIdeology:    m.MeanIdeology,
		SDIdeology:      m.SDIdeology,
		MeanAP:          m.MeanAP,
		SDAP:            m.SDAP,
		SocialDiversity: m.SocialDiversity,
		MediaDiversity:  m.MediaDiversity,
		HappyPercent:    m.HappyPercent,
		PartisanGap:     m.PartisanGap,
		Backfires:       m.Backfires,
		Relocations:     m.Relocations,
		ByPartyJSON:     string(byParty),
	}, nil
}

func (r metricsRow) metrics() (engine.Metrics, error) {
	m := engine.Metrics{
		Tick:            r.Tick,
		Population:      r.Population,
		MeanIdeology:    r.MeanIdeology,
		SDIdeology:      r.SDIdeology,
		MeanAP:          r.MeanAP,
		SDAP:            r.SDAP,
		SocialDiversity: r.SocialDiversity,
		MediaDiversity:  r.MediaDiversity,
		HappyPercent:    r.HappyPercent,
		PartisanGap:     r.PartisanGap,
		Backfires:       r.Backfires,
		Relocations:     r.Relocations,
	}
	if err := json.Unmarshal([]byte(r.ByPartyJSON), &m.ByParty); err != nil {
		return engine.Metrics{}, fmt.Errorf("decode tick %d party metrics: %w", r.Tick, err)
	}
	return m, nil
}

// SaveMetrics writes a batch of tick metrics for a run. Existing rows for
// the same ticks are replaced.
func (db *DB) SaveMetrics(runID string, batch []engine.Metrics) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamed(`INSERT OR REPLACE INTO tick_metrics
		(run_id, tick, population, mean_ideology, sd_ideology, mean_ap, sd_ap,
		 social_diversity, media_diversity, happy_percent, partisan_gap,
		 backfires, relocations, by_party_json)
		VALUES (:run_id, :tick, :population, :mean_ideology, :sd_ideology, :mean_ap, :sd_ap,
		 :social_diversity, :media_diversity, :happy_percent, :partisan_gap,
		 :backfires, :relocations, :by_party_json)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range batch {
		row, err := toRow(runID, m)
		if err != nil {
			return fmt.Errorf("encode tick %d: %w", m.Tick, err)
		}
		if _, err := stmt.Exec(row); err != nil {
			return fmt.Errorf("insert tick %d: %w", m.Tick, err)
		}
	}

	return tx.Commit()
}

// History returns a run's metrics for ticks in [from, to], oldest first.
// A zero to means no upper bound.
func (db *DB) History(runID string, from, to uint64) ([]engine.Metrics, error) {
	query := "SELECT * FROM tick_metrics WHERE run_id = ? AND tick >= ?"
	args := []any{runID, from}
	if to > 0 {
		query += " AND tick <= ?"
		args = append(args, to)
	}
	query += " ORDER BY tick"

	var rows []metricsRow
	if err := db.conn.Select(&rows, query, args...); err != nil {
		return nil, err
	}

	result := make([]engine.Metrics, 0, len(rows))
	for _, r := range rows {
		m, err := r.metrics()
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, nil
}

// SaveSnapshot stores the per-agent state of a run at one tick.
func (db *DB) SaveSnapshot(runID string, tick uint64, snap []engine.AgentSnapshot) error {
	slog.Info("saving snapshot", "run", runID, "tick", tick, "agents", len(snap))

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM agent_snapshots WHERE run_id = ? AND tick = ?", runID, tick); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO agent_snapshots
		(run_id, tick, agent_id, external_id, x, y, party, ideology, affective_polarization, happy)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range snap {
		happy := 0
		if a.Happy {
			happy = 1
		}
		if _, err := stmt.Exec(runID, tick, a.ID, a.ExternalID, a.X, a.Y,
			a.Party, a.Ideology, a.AffectivePolarization, happy); err != nil {
			return fmt.Errorf("insert agent %d: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// LoadSnapshot returns the agents stored for a run at one tick, in agent order.
func (db *DB) LoadSnapshot(runID string, tick uint64) ([]engine.AgentSnapshot, error) {
	var snap []engine.AgentSnapshot
	err := db.conn.Select(&snap, `SELECT agent_id, external_id, x, y, party, ideology, affective_polarization, happy
		FROM agent_snapshots WHERE run_id = ? AND tick = ? ORDER BY agent_id`, runID, tick)
	return snap, err
}

// SnapshotTicks lists the ticks with a stored snapshot for a run.
func (db *DB) SnapshotTicks(runID string) ([]uint64, error) {
	var ticks []uint64
	err := db.conn.Select(&ticks,
		"SELECT DISTINCT tick FROM agent_snapshots WHERE run_id = ? ORDER BY tick", runID)
	return ticks, err
}

// ImportRecords replaces a calibration dataset with records, keeping their order.
func (db *DB) ImportRecords(dataset string, records []agents.Record) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM calibration_agents WHERE dataset = ?", dataset); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO calibration_agents
		(dataset, seq, external_id, party, ideology, news_frequency, discussion_frequency, affective_polarization)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.Exec(dataset, i, r.ID, r.Party, r.Ideology,
			r.NewsFrequency, r.DiscussionFrequency, r.AffectivePolarization); err != nil {
			return fmt.Errorf("insert record %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("calibration dataset imported", "dataset", dataset, "records", len(records))
	return nil
}

// LoadRecords returns a calibration dataset in import order.
func (db *DB) LoadRecords(dataset string) ([]agents.Record, error) {
	var records []agents.Record
	err := db.conn.Select(&records, `SELECT external_id, party, ideology, news_frequency, discussion_frequency, affective_polarization
		FROM calibration_agents WHERE dataset = ? ORDER BY seq`, dataset)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset %q: %w", dataset, ErrNotFound)
	}
	return records, nil
}
