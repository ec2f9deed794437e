// Package store archives queues per population and generation in SQLite.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	fq "github.com/timzifer/fragmented_queue"
	"github.com/timzifer/fragmented_queue/internal/population"
)

// ErrNotFound is returned by Get for an unknown record id.
var ErrNotFound = errors.New("store: record not found")

// Record describes one archived queue. The queue body itself is only read by
// Get.
type Record struct {
	ID               uuid.UUID
	Population       string
	Generation       int
	Member           uuid.UUID
	Length           int
	Dimension        int
	TotalStrength    float64
	FragmentStrength float64
	CreatedAt        time.Time
}

// Archive is a SQLite-backed queue archive.
type Archive struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
}

// Open creates or opens the archive at path. ":memory:" opens a private
// in-memory database.
func Open(path string) (*Archive, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	a := &Archive{db: db, path: path}
	if err := a.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS queues (
		id TEXT PRIMARY KEY,
		population TEXT NOT NULL,
		generation INTEGER NOT NULL,
		member TEXT NOT NULL,
		length INTEGER NOT NULL,
		dimension INTEGER NOT NULL,
		total_strength REAL NOT NULL,
		fragment_strength REAL NOT NULL,
		body TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_queues_population ON queues(population, generation);
	`
	if _, err := a.db.Exec(schema); err != nil {
		return fmt.Errorf("create archive schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Path returns the database path the archive was opened with.
func (a *Archive) Path() string {
	return a.path
}

// PutPopulation stores every member of p in a single transaction and returns
// the new record ids in member order.
func (a *Archive) PutPopulation(ctx context.Context, p *population.Population, generation int) ([]uuid.UUID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin archive transaction: %w", err)
	}
	ids := make([]uuid.UUID, 0, p.Len())
	for _, m := range p.Members() {
		id, err := a.put(ctx, tx, p.Name, generation, m.ID, m.Queue)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit archive transaction: %w", err)
	}
	return ids, nil
}

func (a *Archive) put(ctx context.Context, tx *sql.Tx, pop string, generation int, member uuid.UUID, q *fq.Queue) (uuid.UUID, error) {
	var body bytes.Buffer
	if err := q.Encode(&body); err != nil {
		return uuid.Nil, fmt.Errorf("encode queue: %w", err)
	}
	id := uuid.New()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO queues (id, population, generation, member, length, dimension, total_strength, fragment_strength, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), pop, generation, member.String(), q.Len(), q.Dimension(),
		q.TotalStrength(), q.FragmentStrength(), body.String(), time.Now().UTC().UnixNano())
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert queue: %w", err)
	}
	return id, nil
}

// List returns the records of a population ordered by generation and
// insertion time.
func (a *Archive) List(ctx context.Context, pop string) ([]Record, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	rows, err := a.db.QueryContext(ctx, `
		SELECT id, population, generation, member, length, dimension, total_strength, fragment_strength, created_at
		FROM queues WHERE population = ?
		ORDER BY generation, created_at, id`, pop)
	if err != nil {
		return nil, fmt.Errorf("list queues: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r            Record
			id, member   string
			createdNanos int64
		)
		if err := rows.Scan(&id, &r.Population, &r.Generation, &member, &r.Length, &r.Dimension,
			&r.TotalStrength, &r.FragmentStrength, &createdNanos); err != nil {
			return nil, fmt.Errorf("scan queue record: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("record id %q: %w", id, err)
		}
		if r.Member, err = uuid.Parse(member); err != nil {
			return nil, fmt.Errorf("record member %q: %w", member, err)
		}
		r.CreatedAt = time.Unix(0, createdNanos).UTC()
		records = append(records, r)
	}
	return records, rows.Err()
}

// Get decodes the queue stored under id. The queue is rebuilt with the
// fragment strength it was archived with.
func (a *Archive) Get(ctx context.Context, id uuid.UUID, opts ...fq.Option) (*fq.Queue, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var (
		body             string
		fragmentStrength float64
	)
	err := a.db.QueryRowContext(ctx,
		`SELECT body, fragment_strength FROM queues WHERE id = ?`, id.String()).
		Scan(&body, &fragmentStrength)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get queue %s: %w", id, err)
	}

	q := fq.NewQueue(fragmentStrength, opts...)
	if err := q.Decode(strings.NewReader(body)); err != nil {
		return nil, fmt.Errorf("decode queue %s: %w", id, err)
	}
	return q, nil
}

// Populations lists the distinct population names in the archive.
func (a *Archive) Populations(ctx context.Context) ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	rows, err := a.db.QueryContext(ctx, `SELECT DISTINCT population FROM queues ORDER BY population`)
	if err != nil {
		return nil, fmt.Errorf("list populations: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
