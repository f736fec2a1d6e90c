package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	// Bootstrap schema_migrations table so we can track applied versions.
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

func (s *SQLiteStore) SaveBackup(ctx context.Context, rec *BackupRecord) error {
	if rec == nil {
		return fmt.Errorf("backup record is nil")
	}
	createdAt := rec.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO track_backups (
			id, video_path, track_index, language, title, codec, format, artifact_path, is_default, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.VideoPath,
		rec.TrackIndex,
		rec.Language,
		rec.Title,
		rec.Codec,
		rec.Format,
		rec.ArtifactPath,
		boolToInt(rec.Default),
		createdAt,
	)
	return err
}

func (s *SQLiteStore) GetBackup(ctx context.Context, id string) (*BackupRecord, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, video_path, track_index, language, title, codec, format, artifact_path, is_default, created_at
		 FROM track_backups
		 WHERE id = ?`,
		id,
	)
	rec, err := scanBackup(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return rec, true, nil
}

// ListBackups returns backups for one video, or all backups when videoPath
// is empty, newest first.
func (s *SQLiteStore) ListBackups(ctx context.Context, videoPath string) ([]*BackupRecord, error) {
	query := `SELECT id, video_path, track_index, language, title, codec, format, artifact_path, is_default, created_at
	 FROM track_backups`
	args := []any{}
	if videoPath != "" {
		query += ` WHERE video_path = ?`
		args = append(args, videoPath)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]*BackupRecord, 0)
	for rows.Next() {
		rec, err := scanBackup(rows.Scan)
		if err != nil {
			return nil, err
		}
		ret = append(ret, rec)
	}
	return ret, rows.Err()
}

func (s *SQLiteStore) DeleteBackup(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM track_backups WHERE id = ?`, id)
	return err
}

func scanBackup(scan func(dest ...any) error) (*BackupRecord, error) {
	var rec BackupRecord
	var isDefault int
	if err := scan(
		&rec.ID,
		&rec.VideoPath,
		&rec.TrackIndex,
		&rec.Language,
		&rec.Title,
		&rec.Codec,
		&rec.Format,
		&rec.ArtifactPath,
		&isDefault,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	rec.Default = isDefault == 1
	return &rec, nil
}

func (s *SQLiteStore) RecordProcessed(ctx context.Context, entry ProcessedFile) error {
	processedAt := entry.ProcessedAt.UTC()
	if processedAt.IsZero() {
		processedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO processed_files (video_path, target_lang, status, error, output_path, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(video_path, target_lang) DO UPDATE SET
			status=excluded.status,
			error=excluded.error,
			output_path=excluded.output_path,
			processed_at=excluded.processed_at`,
		entry.VideoPath,
		entry.TargetLang,
		entry.Status,
		entry.Error,
		entry.OutputPath,
		processedAt,
	)
	return err
}

func (s *SQLiteStore) GetProcessed(ctx context.Context, videoPath, targetLang string) (ProcessedFile, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT video_path, target_lang, status, error, output_path, processed_at
		 FROM processed_files
		 WHERE video_path = ? AND target_lang = ?`,
		videoPath,
		targetLang,
	)
	var entry ProcessedFile
	if err := row.Scan(
		&entry.VideoPath,
		&entry.TargetLang,
		&entry.Status,
		&entry.Error,
		&entry.OutputPath,
		&entry.ProcessedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return ProcessedFile{}, false, nil
		}
		return ProcessedFile{}, false, err
	}
	return entry, true, nil
}

func (s *SQLiteStore) ListProcessed(ctx context.Context) ([]ProcessedFile, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT video_path, target_lang, status, error, output_path, processed_at
		 FROM processed_files
		 ORDER BY processed_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]ProcessedFile, 0)
	for rows.Next() {
		var entry ProcessedFile
		if err := rows.Scan(
			&entry.VideoPath,
			&entry.TargetLang,
			&entry.Status,
			&entry.Error,
			&entry.OutputPath,
			&entry.ProcessedAt,
		); err != nil {
			return nil, err
		}
		ret = append(ret, entry)
	}
	return ret, rows.Err()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
