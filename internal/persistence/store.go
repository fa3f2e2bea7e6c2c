package persistence

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tatianab/selma/internal/models"
)

// Store keeps runs and their events in SQLite so causal chains can be
// queried after the run.
type Store struct {
	db *sql.DB
}

// Run describes one simulation run.
type Run struct {
	ID        string
	Title     string
	Seed      uint64
	StartedAt time.Time
}

// CauseLink is one edge of a causal chain: Cause enabled Event with Weight.
// Depth is 1 for direct causes of the queried event.
type CauseLink struct {
	EventID int
	CauseID int
	Weight  float64
	Depth   int
	Card    string
	Text    string
}

// NewStore opens (or creates) the database at path and migrates it.
func NewStore(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("store: mkdir %s: %w", filepath.Dir(path), err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return err
	}
	var version int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version); err != nil {
		return err
	}

	if version < 1 {
		if _, err := s.db.Exec(`
			CREATE TABLE IF NOT EXISTS runs (
				id         TEXT PRIMARY KEY,
				title      TEXT    NOT NULL DEFAULT '',
				seed       INTEGER NOT NULL DEFAULT 0,
				started_at TEXT    NOT NULL DEFAULT (datetime('now'))
			);

			CREATE TABLE IF NOT EXISTS events (
				run_id  TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
				id      INTEGER NOT NULL,
				card    TEXT    NOT NULL,
				subject TEXT    NOT NULL DEFAULT '',
				object  TEXT    NOT NULL DEFAULT '',
				text    TEXT    NOT NULL DEFAULT '',
				PRIMARY KEY (run_id, id)
			);

			CREATE TABLE IF NOT EXISTS event_roles (
				run_id    TEXT    NOT NULL,
				event_id  INTEGER NOT NULL,
				position  INTEGER NOT NULL,
				role      TEXT    NOT NULL,
				character TEXT    NOT NULL,
				PRIMARY KEY (run_id, event_id, position),
				FOREIGN KEY (run_id, event_id) REFERENCES events(run_id, id) ON DELETE CASCADE
			);

			CREATE TABLE IF NOT EXISTS event_values (
				run_id   TEXT    NOT NULL,
				event_id INTEGER NOT NULL,
				path     TEXT    NOT NULL,
				affects  INTEGER NOT NULL,
				delta    REAL    NOT NULL DEFAULT 0,
				FOREIGN KEY (run_id, event_id) REFERENCES events(run_id, id) ON DELETE CASCADE
			);
			CREATE INDEX IF NOT EXISTS idx_event_values_path ON event_values(run_id, path);

			CREATE TABLE IF NOT EXISTS causes (
				run_id   TEXT    NOT NULL,
				event_id INTEGER NOT NULL,
				cause_id INTEGER NOT NULL,
				weight   REAL    NOT NULL,
				PRIMARY KEY (run_id, event_id, cause_id),
				FOREIGN KEY (run_id, event_id) REFERENCES events(run_id, id) ON DELETE CASCADE
			);
			CREATE INDEX IF NOT EXISTS idx_causes_cause ON causes(run_id, cause_id);
		`); err != nil {
			return err
		}
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (1)`); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun records a run and returns a sink writing its events.
func (s *Store) BeginRun(r Run) (*RunWriter, error) {
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	_, err := s.db.Exec(`INSERT INTO runs (id, title, seed, started_at) VALUES (?, ?, ?, ?)`,
		r.ID, r.Title, int64(r.Seed), r.StartedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("store: insert run: %w", err)
	}
	return &RunWriter{store: s, runID: r.ID}, nil
}

// Runs lists stored runs, most recent first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`SELECT id, title, seed, started_at FROM runs ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var seed int64
		var started string
		if err := rows.Scan(&r.ID, &r.Title, &seed, &started); err != nil {
			return nil, err
		}
		r.Seed = uint64(seed)
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunWriter writes the events of one run.
type RunWriter struct {
	store *Store
	runID string
}

func (w *RunWriter) RunID() string { return w.runID }

func (w *RunWriter) WriteEvent(ev models.Event) error {
	tx, err := w.store.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO events (run_id, id, card, subject, object, text) VALUES (?, ?, ?, ?, ?, ?)`,
		w.runID, ev.ID, ev.CardName, ev.Subject, ev.Object, ev.Text); err != nil {
		return fmt.Errorf("store: insert event %d: %w", ev.ID, err)
	}
	for i, b := range ev.Roles {
		if _, err := tx.Exec(`INSERT INTO event_roles (run_id, event_id, position, role, character) VALUES (?, ?, ?, ?, ?)`,
			w.runID, ev.ID, i, b.Role, b.Character); err != nil {
			return err
		}
	}
	for _, path := range ev.ValuesAffecting {
		if _, err := tx.Exec(`INSERT INTO event_values (run_id, event_id, path, affects) VALUES (?, ?, ?, 1)`,
			w.runID, ev.ID, path); err != nil {
			return err
		}
	}
	for path, delta := range ev.ValuesModified {
		if _, err := tx.Exec(`INSERT INTO event_values (run_id, event_id, path, affects, delta) VALUES (?, ?, ?, 0, ?)`,
			w.runID, ev.ID, path, delta); err != nil {
			return err
		}
	}
	for _, c := range ev.CausingEvents {
		if _, err := tx.Exec(`INSERT INTO causes (run_id, event_id, cause_id, weight) VALUES (?, ?, ?, ?)`,
			w.runID, ev.ID, c.EventID, c.Weight); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Events reads back every event of a run in log order.
func (s *Store) Events(runID string) ([]models.Event, error) {
	rows, err := s.db.Query(`SELECT id, card, subject, object, text FROM events WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	var events []models.Event
	index := make(map[int]int)
	for rows.Next() {
		var ev models.Event
		if err := rows.Scan(&ev.ID, &ev.CardName, &ev.Subject, &ev.Object, &ev.Text); err != nil {
			rows.Close()
			return nil, err
		}
		index[ev.ID] = len(events)
		events = append(events, ev)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.scanEach(`SELECT event_id, role, character FROM event_roles WHERE run_id = ? ORDER BY event_id, position`, runID,
		func(rows *sql.Rows) error {
			var id int
			var b models.RoleBinding
			if err := rows.Scan(&id, &b.Role, &b.Character); err != nil {
				return err
			}
			if i, ok := index[id]; ok {
				events[i].Roles = append(events[i].Roles, b)
			}
			return nil
		}); err != nil {
		return nil, err
	}

	if err := s.scanEach(`SELECT event_id, path, affects, delta FROM event_values WHERE run_id = ? ORDER BY event_id, rowid`, runID,
		func(rows *sql.Rows) error {
			var id int
			var path string
			var affects bool
			var delta float64
			if err := rows.Scan(&id, &path, &affects, &delta); err != nil {
				return err
			}
			i, ok := index[id]
			if !ok {
				return nil
			}
			if affects {
				events[i].ValuesAffecting = append(events[i].ValuesAffecting, path)
				return nil
			}
			if events[i].ValuesModified == nil {
				events[i].ValuesModified = make(map[string]float64)
			}
			events[i].ValuesModified[path] = delta
			return nil
		}); err != nil {
		return nil, err
	}

	if err := s.scanEach(`SELECT event_id, cause_id, weight FROM causes WHERE run_id = ? ORDER BY event_id, weight DESC, cause_id DESC`, runID,
		func(rows *sql.Rows) error {
			var id int
			var c models.Cause
			if err := rows.Scan(&id, &c.EventID, &c.Weight); err != nil {
				return err
			}
			if i, ok := index[id]; ok {
				events[i].CausingEvents = append(events[i].CausingEvents, c)
			}
			return nil
		}); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) scanEach(query, runID string, fn func(*sql.Rows) error) error {
	rows, err := s.db.Query(query, runID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Why walks the causal chain of an event up to depth levels, breadth first.
func (s *Store) Why(runID string, eventID, depth int) ([]CauseLink, error) {
	rows, err := s.db.Query(`
		WITH RECURSIVE chain(event_id, cause_id, weight, depth) AS (
			SELECT event_id, cause_id, weight, 1
			FROM causes WHERE run_id = ? AND event_id = ?
			UNION ALL
			SELECT c.event_id, c.cause_id, c.weight, chain.depth + 1
			FROM causes c JOIN chain ON c.event_id = chain.cause_id
			WHERE c.run_id = ? AND chain.depth < ?
		)
		SELECT chain.event_id, chain.cause_id, chain.weight, chain.depth, e.card, e.text
		FROM chain JOIN events e ON e.run_id = ? AND e.id = chain.cause_id
		ORDER BY chain.depth, chain.event_id DESC, chain.weight DESC, chain.cause_id DESC`,
		runID, eventID, runID, depth, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []CauseLink
	for rows.Next() {
		var l CauseLink
		if err := rows.Scan(&l.EventID, &l.CauseID, &l.Weight, &l.Depth, &l.Card, &l.Text); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// ModifiedBy returns the IDs of events that modified path, oldest first.
func (s *Store) ModifiedBy(runID, path string) ([]int, error) {
	rows, err := s.db.Query(`SELECT event_id FROM event_values WHERE run_id = ? AND path = ? AND affects = 0 ORDER BY event_id`, runID, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
