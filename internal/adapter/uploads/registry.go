// Package uploads is the sqlite-backed registry of CSV uploads. The CSV
// bytes live on disk under the upload directory keyed by upload id; the
// database holds the metadata and answers "latest upload of kind X"
// explicitly instead of trusting file mtimes.
package uploads

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/coalfire-prediction/internal/domain"
)

// Kind identifies which of the four datasets an upload belongs to.
type Kind string

const (
	KindFires       Kind = "fires"
	KindTemperature Kind = "temperature"
	KindSupplies    Kind = "supplies"
	KindWeather     Kind = "weather"
)

// ParseKind validates a dataset kind from request input.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindFires, KindTemperature, KindSupplies, KindWeather:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown dataset kind %q (want fires, temperature, supplies or weather)", s)
}

// Upload is one registered CSV file.
type Upload struct {
	ID         string
	Kind       Kind
	Filename   string
	Path       string
	RowCount   int
	SizeBytes  int64
	UploadedAt time.Time
}

// Registry stores upload metadata in sqlite and payloads on disk.
type Registry struct {
	db  *sql.DB
	dir string
}

// Open opens (creating if needed) the registry database and upload
// directory and applies migrations.
func Open(dbPath, dir string) (*Registry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create registry dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open registry db: %w", err)
	}

	r := &Registry{db: db, dir: dir}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Registry) Close() error { return r.db.Close() }

// Save writes the CSV payload to disk and registers it. The returned upload
// carries the generated id and storage path.
func (r *Registry) Save(kind Kind, filename string, rowCount int, data []byte) (Upload, error) {
	up := Upload{
		ID:         uuid.New().String(),
		Kind:       kind,
		Filename:   filename,
		RowCount:   rowCount,
		SizeBytes:  int64(len(data)),
		UploadedAt: domain.Clock().Now().UTC(),
	}
	up.Path = filepath.Join(r.dir, fmt.Sprintf("%s_%s.csv", kind, up.ID))

	if err := os.WriteFile(up.Path, data, 0o644); err != nil {
		return Upload{}, fmt.Errorf("write upload payload: %w", err)
	}

	_, err := r.db.Exec(`
		INSERT INTO uploads (id, kind, filename, path, row_count, size_bytes, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, up.ID, string(up.Kind), up.Filename, up.Path, up.RowCount, up.SizeBytes, up.UploadedAt)
	if err != nil {
		return Upload{}, fmt.Errorf("register upload: %w", err)
	}
	return up, nil
}

// Latest returns the most recent upload of a kind, or nil when none exists.
// Ties on uploaded_at break by id so the answer is stable.
func (r *Registry) Latest(kind Kind) (*Upload, error) {
	row := r.db.QueryRow(`
		SELECT id, kind, filename, path, row_count, size_bytes, uploaded_at
		FROM uploads
		WHERE kind = ?
		ORDER BY uploaded_at DESC, id DESC
		LIMIT 1
	`, string(kind))

	var up Upload
	err := row.Scan(&up.ID, &up.Kind, &up.Filename, &up.Path, &up.RowCount, &up.SizeBytes, &up.UploadedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest upload: %w", err)
	}
	return &up, nil
}

// All returns every upload of a kind, newest first. Weather prediction
// consumes all weather uploads, not just the latest.
func (r *Registry) All(kind Kind) ([]Upload, error) {
	rows, err := r.db.Query(`
		SELECT id, kind, filename, path, row_count, size_bytes, uploaded_at
		FROM uploads
		WHERE kind = ?
		ORDER BY uploaded_at DESC, id DESC
	`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query uploads: %w", err)
	}
	defer rows.Close()

	var ups []Upload
	for rows.Next() {
		var up Upload
		if err := rows.Scan(&up.ID, &up.Kind, &up.Filename, &up.Path, &up.RowCount, &up.SizeBytes, &up.UploadedAt); err != nil {
			return nil, err
		}
		ups = append(ups, up)
	}
	return ups, rows.Err()
}
