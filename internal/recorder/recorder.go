package recorder

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Load for an unknown record id.
var ErrNotFound = errors.New("interaction record not found")

// Interaction is one generation attempt, append-only: created at call time,
// persisted before the generation call returns, never mutated after insert.
type Interaction struct {
	ID           int64
	CreatedAt    time.Time
	BuildID      string // correlates the attempts of a single generate call
	Source       string // e.g. "web", "scheduler", "replay"
	Location     string
	Days         []string // expected forecast day names of the request
	Context      string   // exact serialized weather context sent upstream
	SystemPrompt string
	Provider     string
	Model        string
	RawResponse  string
	ParsedResult []byte // validated result JSON; nil when the attempt failed
	Success      bool
}

const schema = `CREATE TABLE IF NOT EXISTS llm_interactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TEXT NOT NULL,
	build_id TEXT,
	source TEXT,
	location_name TEXT,
	forecast_days TEXT,
	llm_context TEXT,
	system_prompt TEXT,
	provider TEXT,
	model_used TEXT,
	raw_response TEXT,
	parsed_result TEXT,
	success INTEGER NOT NULL
);`

// Store persists interactions to sqlite (pure Go driver modernc.org/sqlite).
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open interaction log: %w", err)
	}

	// WAL keeps concurrent readers from seeing partial writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply interaction log schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Record inserts a single interaction and returns its assigned id. The write
// is synchronous; when Record returns the row is durable.
func (s *Store) Record(rec Interaction) (int64, error) {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	days, err := json.Marshal(rec.Days)
	if err != nil {
		return 0, fmt.Errorf("failed to encode forecast days: %w", err)
	}

	var parsed interface{}
	if rec.ParsedResult != nil {
		parsed = string(rec.ParsedResult)
	}

	res, err := s.db.Exec(
		`INSERT INTO llm_interactions (
			created_at, build_id, source, location_name, forecast_days,
			llm_context, system_prompt, provider, model_used,
			raw_response, parsed_result, success
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		createdAt.UTC().Format(time.RFC3339),
		rec.BuildID,
		rec.Source,
		rec.Location,
		string(days),
		rec.Context,
		rec.SystemPrompt,
		rec.Provider,
		rec.Model,
		rec.RawResponse,
		parsed,
		boolToInt(rec.Success),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record interaction: %w", err)
	}
	return res.LastInsertId()
}

// Load reads a single interaction back by id.
func (s *Store) Load(id int64) (*Interaction, error) {
	row := s.db.QueryRow(
		`SELECT id, created_at, build_id, source, location_name, forecast_days,
			llm_context, system_prompt, provider, model_used,
			raw_response, parsed_result, success
		FROM llm_interactions WHERE id = ?`, id)

	var (
		rec       Interaction
		createdAt string
		days      sql.NullString
		parsed    sql.NullString
		success   int
	)
	err := row.Scan(
		&rec.ID, &createdAt, &rec.BuildID, &rec.Source, &rec.Location, &days,
		&rec.Context, &rec.SystemPrompt, &rec.Provider, &rec.Model,
		&rec.RawResponse, &parsed, &success,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("interaction %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load interaction %d: %w", id, err)
	}

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		rec.CreatedAt = t
	}
	if days.Valid && days.String != "" {
		if err := json.Unmarshal([]byte(days.String), &rec.Days); err != nil {
			return nil, fmt.Errorf("failed to decode forecast days for interaction %d: %w", id, err)
		}
	}
	if parsed.Valid {
		rec.ParsedResult = []byte(parsed.String)
	}
	rec.Success = success != 0

	return &rec, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
