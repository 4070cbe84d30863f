// Package archive keeps every annotated detection frame served by the check
// server: the JPEG goes to disk and a row describing it goes to a SQLite index.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Kind classifies what a frame shows.
type Kind string

const (
	KindNoDetection Kind = "no_det"      // the model saw nothing
	KindNoExpected  Kind = "no_expected" // the expected class was absent
	KindExpected    Kind = "expected"    // the expected class was present
)

// Record is one archived frame.
type Record struct {
	ID            string
	Kind          Kind
	StepIndex     int
	ExpectedClass string
	DetectedClass string
	Confidence    float64
	Matched       bool
	ImagePath     string
	CreatedAt     time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS detections (
	id             TEXT PRIMARY KEY,
	kind           TEXT NOT NULL,
	step_index     INTEGER NOT NULL,
	expected_class TEXT NOT NULL,
	detected_class TEXT NOT NULL DEFAULT '',
	confidence     REAL NOT NULL DEFAULT 0,
	matched        INTEGER NOT NULL DEFAULT 0,
	image_path     TEXT NOT NULL,
	created_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_detections_created ON detections(created_at);
`

// Archive stores frames under a directory.
type Archive struct {
	db       *sql.DB
	imageDir string
	now      func() time.Time
	mu       sync.Mutex
}

// Option configures an Archive.
type Option func(*Archive)

// WithClock overrides the time source used for timestamps and file names.
func WithClock(now func() time.Time) Option {
	return func(a *Archive) { a.now = now }
}

// Open creates or opens an archive rooted at dir. Images are written to
// dir/images and the index to dir/index.db.
func Open(dir string, opts ...Option) (*Archive, error) {
	imageDir := filepath.Join(dir, "images")
	if err := os.MkdirAll(imageDir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: mkdir: %w", err)
	}
	return open(filepath.Join(dir, "index.db"), imageDir, opts...)
}

func open(dsn, imageDir string, opts ...Option) (*Archive, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: open: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range append(pragmas, schema) {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("archive: init: %w", err)
		}
	}

	a := &Archive{db: db, imageDir: imageDir, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Close releases the index.
func (a *Archive) Close() error {
	return a.db.Close()
}

// FileName returns the image name for a record taken at ts. The short ID
// suffix keeps two frames from the same second apart.
func FileName(rec Record, ts time.Time) string {
	stamp := ts.Format("20060102_150405")
	short := rec.ID
	if len(short) > 8 {
		short = short[:8]
	}

	var base string
	switch rec.Kind {
	case KindNoDetection:
		base = fmt.Sprintf("no_det_%s", stamp)
	case KindNoExpected:
		base = fmt.Sprintf("no_expected_step%d_%s", rec.StepIndex, stamp)
	default:
		base = fmt.Sprintf("expected_step%d_%s_%s", rec.StepIndex, sanitize(rec.DetectedClass), stamp)
	}
	return base + "_" + short + ".jpg"
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, s)
}

// Save writes the image and indexes it. The returned record carries the
// assigned ID, path and timestamp.
func (a *Archive) Save(ctx context.Context, rec Record, jpeg []byte) (Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec.ID = uuid.NewString()
	rec.CreatedAt = a.now()
	rec.ImagePath = filepath.Join(a.imageDir, FileName(rec, rec.CreatedAt))

	if err := os.WriteFile(rec.ImagePath, jpeg, 0o644); err != nil {
		return Record{}, fmt.Errorf("archive: write image: %w", err)
	}

	_, err := a.db.ExecContext(ctx,
		`INSERT INTO detections
			(id, kind, step_index, expected_class, detected_class, confidence, matched, image_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Kind), rec.StepIndex, rec.ExpectedClass, rec.DetectedClass,
		rec.Confidence, rec.Matched, rec.ImagePath, rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		_ = os.Remove(rec.ImagePath)
		return Record{}, fmt.Errorf("archive: index: %w", err)
	}
	return rec, nil
}

// List returns up to limit records, newest first. A non-positive limit returns
// everything.
func (a *Archive) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, kind, step_index, expected_class, detected_class, confidence, matched, image_path, created_at
		 FROM detections ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Record
	for rows.Next() {
		var (
			rec  Record
			kind string
			ts   int64
		)
		if err := rows.Scan(&rec.ID, &kind, &rec.StepIndex, &rec.ExpectedClass, &rec.DetectedClass,
			&rec.Confidence, &rec.Matched, &rec.ImagePath, &ts); err != nil {
			return nil, fmt.Errorf("archive: scan: %w", err)
		}
		rec.Kind = Kind(kind)
		rec.CreatedAt = time.Unix(0, ts)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns how many frames are indexed.
func (a *Archive) Count(ctx context.Context) (int, error) {
	var n int
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM detections`).Scan(&n); err != nil {
		return 0, fmt.Errorf("archive: count: %w", err)
	}
	return n, nil
}
