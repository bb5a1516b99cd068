package store

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// StoreConfig tunes SQLiteStore's connection behavior.
type StoreConfig struct {
	// CacheSizeMB is the SQLite page cache size in megabytes. 0 uses the default.
	CacheSizeMB int
}

// DefaultStoreConfig returns the default metadata store configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{CacheSizeMB: 64}
}

// SQLiteStore implements MetadataStore on modernc.org/sqlite, using the
// same WAL + single-writer connection pool conventions as SQLiteBM25Index.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

var _ MetadataStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the metadata database at path with the
// default cache size. An empty path creates an in-memory database for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(path, DefaultStoreConfig())
}

// NewSQLiteStoreWithConfig opens the metadata database with a custom cache size.
func NewSQLiteStoreWithConfig(path string, cfg StoreConfig) (*SQLiteStore, error) {
	cacheMB := cfg.CacheSizeMB
	if cacheMB <= 0 {
		cacheMB = DefaultStoreConfig().CacheSizeMB
	}

	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA cache_size = -%d", cacheMB*1024), // negative = KB
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// DB exposes the underlying connection for callers that need raw access
// (e.g. the compact/vacuum command).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

const metadataSchemaSQL = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	root_path TEXT NOT NULL,
	project_type TEXT,
	chunk_count INTEGER DEFAULT 0,
	file_count INTEGER DEFAULT 0,
	indexed_at INTEGER,
	version TEXT
);

CREATE TABLE IF NOT EXISTS files (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	path TEXT NOT NULL,
	size INTEGER,
	mod_time INTEGER,
	content_hash TEXT,
	language TEXT,
	content_type TEXT,
	indexed_at INTEGER,
	UNIQUE(project_id, path)
);
CREATE INDEX IF NOT EXISTS idx_files_project ON files(project_id);
CREATE INDEX IF NOT EXISTS idx_files_project_path ON files(project_id, path);

CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	file_id TEXT NOT NULL,
	file_path TEXT NOT NULL,
	content TEXT,
	raw_content TEXT,
	context TEXT,
	content_type TEXT,
	language TEXT,
	start_line INTEGER,
	end_line INTEGER,
	metadata_json TEXT,
	embedding BLOB,
	embedder_model TEXT,
	created_at INTEGER,
	updated_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_chunks_file ON chunks(file_id);

CREATE TABLE IF NOT EXISTS chunk_symbols (
	chunk_id TEXT NOT NULL,
	name TEXT NOT NULL,
	type TEXT,
	start_line INTEGER,
	end_line INTEGER,
	signature TEXT,
	doc_comment TEXT
);
CREATE INDEX IF NOT EXISTS idx_chunk_symbols_name ON chunk_symbols(name);
CREATE INDEX IF NOT EXISTS idx_chunk_symbols_chunk ON chunk_symbols(chunk_id);

CREATE TABLE IF NOT EXISTS kv_state (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS index_checkpoint (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	stage TEXT NOT NULL,
	total INTEGER,
	embedded_count INTEGER,
	embedder_model TEXT,
	updated_at INTEGER
);

INSERT OR IGNORE INTO schema_version (version) VALUES (1);
`

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(metadataSchemaSQL)
	return err
}

// --- Project operations ---

func (s *SQLiteStore) SaveProject(ctx context.Context, project *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("metadata store is closed")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, root_path, project_type, chunk_count, file_count, indexed_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			root_path = excluded.root_path,
			project_type = excluded.project_type,
			chunk_count = excluded.chunk_count,
			file_count = excluded.file_count,
			indexed_at = excluded.indexed_at,
			version = excluded.version`,
		project.ID, project.Name, project.RootPath, project.ProjectType,
		project.ChunkCount, project.FileCount, timeToUnix(project.IndexedAt), project.Version)
	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, root_path, project_type, chunk_count, file_count, indexed_at, version
		FROM projects WHERE id = ?`, id)
	var p Project
	var indexedAt int64
	if err := row.Scan(&p.ID, &p.Name, &p.RootPath, &p.ProjectType, &p.ChunkCount, &p.FileCount, &indexedAt, &p.Version); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("project %q not found", id)
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	p.IndexedAt = unixToTime(indexedAt)
	return &p, nil
}

func (s *SQLiteStore) UpdateProjectStats(ctx context.Context, id string, fileCount, chunkCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		UPDATE projects SET file_count = ?, chunk_count = ?, indexed_at = ? WHERE id = ?`,
		fileCount, chunkCount, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("update project stats: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RefreshProjectStats(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var fileCount, chunkCount int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE project_id = ?`, id).Scan(&fileCount); err != nil {
		return fmt.Errorf("count files: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chunks WHERE file_id IN (SELECT id FROM files WHERE project_id = ?)`, id).Scan(&chunkCount); err != nil {
		return fmt.Errorf("count chunks: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE projects SET file_count = ?, chunk_count = ?, indexed_at = ? WHERE id = ?`,
		fileCount, chunkCount, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("refresh project stats: %w", err)
	}
	return nil
}

// --- File operations ---

func (s *SQLiteStore) SaveFiles(ctx context.Context, files []*File) error {
	if len(files) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("metadata store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO files (id, project_id, path, size, mod_time, content_hash, language, content_type, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, path) DO UPDATE SET
			id = excluded.id,
			size = excluded.size,
			mod_time = excluded.mod_time,
			content_hash = excluded.content_hash,
			language = excluded.language,
			content_type = excluded.content_type,
			indexed_at = excluded.indexed_at`)
	if err != nil {
		return fmt.Errorf("prepare file upsert: %w", err)
	}
	defer stmt.Close()

	for _, f := range files {
		if _, err := stmt.ExecContext(ctx, f.ID, f.ProjectID, f.Path, f.Size, timeToUnix(f.ModTime),
			f.ContentHash, f.Language, f.ContentType, timeToUnix(f.IndexedAt)); err != nil {
			return fmt.Errorf("save file %s: %w", f.Path, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetFileByPath(ctx context.Context, projectID, path string) (*File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `
		SELECT id, project_id, path, size, mod_time, content_hash, language, content_type, indexed_at
		FROM files WHERE project_id = ? AND path = ?`, projectID, path)
	f, err := scanFileRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file by path: %w", err)
	}
	return f, nil
}

func scanFileRow(row *sql.Row) (*File, error) {
	var f File
	var modTime, indexedAt int64
	if err := row.Scan(&f.ID, &f.ProjectID, &f.Path, &f.Size, &modTime, &f.ContentHash, &f.Language, &f.ContentType, &indexedAt); err != nil {
		return nil, err
	}
	f.ModTime = unixToTime(modTime)
	f.IndexedAt = unixToTime(indexedAt)
	return &f, nil
}

func (s *SQLiteStore) GetChangedFiles(ctx context.Context, projectID string, since time.Time) ([]*File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, path, size, mod_time, content_hash, language, content_type, indexed_at
		FROM files WHERE project_id = ? AND mod_time > ? ORDER BY mod_time`, projectID, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("get changed files: %w", err)
	}
	defer rows.Close()
	return scanFileRows(rows)
}

func scanFileRows(rows *sql.Rows) ([]*File, error) {
	var out []*File
	for rows.Next() {
		var f File
		var modTime, indexedAt int64
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.Path, &f.Size, &modTime, &f.ContentHash, &f.Language, &f.ContentType, &indexedAt); err != nil {
			return nil, fmt.Errorf("scan file row: %w", err)
		}
		f.ModTime = unixToTime(modTime)
		f.IndexedAt = unixToTime(indexedAt)
		out = append(out, &f)
	}
	return out, rows.Err()
}

// ListFiles returns a page of files for projectID. cursor is an opaque,
// base64-encoded "offset:N" token; an empty cursor starts from the beginning.
func (s *SQLiteStore) ListFiles(ctx context.Context, projectID string, cursor string, limit int) ([]*File, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	offset := 0
	if cursor != "" {
		decoded, err := base64.StdEncoding.DecodeString(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", err)
		}
		parts := strings.SplitN(string(decoded), ":", 2)
		if len(parts) != 2 || parts[0] != "offset" {
			return nil, "", fmt.Errorf("invalid cursor format")
		}
		offset, err = strconv.Atoi(parts[1])
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor offset: %w", err)
		}
		if offset < 0 {
			return nil, "", fmt.Errorf("cursor offset must be non-negative")
		}
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, path, size, mod_time, content_hash, language, content_type, indexed_at
		FROM files WHERE project_id = ? ORDER BY path LIMIT ? OFFSET ?`, projectID, limit+1, offset)
	if err != nil {
		return nil, "", fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	files, err := scanFileRows(rows)
	if err != nil {
		return nil, "", err
	}

	var nextCursor string
	if len(files) > limit {
		files = files[:limit]
		nextCursor = base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("offset:%d", offset+limit)))
	}
	return files, nextCursor, nil
}

func (s *SQLiteStore) GetFilePathsByProject(ctx context.Context, projectID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM files WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, fmt.Errorf("get file paths: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (s *SQLiteStore) GetFilesForReconciliation(ctx context.Context, projectID string) (map[string]*File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, path, size, mod_time, content_hash, language, content_type, indexed_at
		FROM files WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, fmt.Errorf("get files for reconciliation: %w", err)
	}
	defer rows.Close()
	files, err := scanFileRows(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*File, len(files))
	for _, f := range files {
		out[f.Path] = f
	}
	return out, nil
}

func (s *SQLiteStore) ListFilePathsUnder(ctx context.Context, projectID, dirPrefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dirPrefix = strings.TrimSuffix(dirPrefix, "/")
	var rows *sql.Rows
	var err error
	if dirPrefix == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT path FROM files WHERE project_id = ?`, projectID)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT path FROM files WHERE project_id = ? AND (path = ? OR path LIKE ?)`,
			projectID, dirPrefix, dirPrefix+"/%")
	}
	if err != nil {
		return nil, fmt.Errorf("list file paths under: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan string: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteFile(ctx context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteChunksByFileTx(ctx, tx, fileID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, fileID); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteFilesByProject(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM files WHERE project_id = ?`, projectID)
	if err != nil {
		return fmt.Errorf("query project files: %w", err)
	}
	var fileIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan file id: %w", err)
		}
		fileIDs = append(fileIDs, id)
	}
	rows.Close()

	for _, id := range fileIDs {
		if err := deleteChunksByFileTx(ctx, tx, id); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("delete project files: %w", err)
	}
	return tx.Commit()
}

func deleteChunksByFileTx(ctx context.Context, tx *sql.Tx, fileID string) error {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM chunks WHERE file_id = ?`, fileID)
	if err != nil {
		return fmt.Errorf("query chunks for file: %w", err)
	}
	var chunkIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan chunk id: %w", err)
		}
		chunkIDs = append(chunkIDs, id)
	}
	rows.Close()

	if len(chunkIDs) == 0 {
		return nil
	}
	placeholders := make([]string, len(chunkIDs))
	args := make([]any, len(chunkIDs))
	for i, id := range chunkIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	inClause := strings.Join(placeholders, ",")
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM chunk_symbols WHERE chunk_id IN (%s)`, inClause), args...); err != nil {
		return fmt.Errorf("cascade delete chunk symbols: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM chunks WHERE id IN (%s)`, inClause), args...); err != nil {
		return fmt.Errorf("cascade delete chunks: %w", err)
	}
	return nil
}

// --- Chunk operations ---

func (s *SQLiteStore) SaveChunks(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("metadata store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, file_id, file_path, content, raw_content, context, content_type, language,
			start_line, end_line, metadata_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_id = excluded.file_id,
			file_path = excluded.file_path,
			content = excluded.content,
			raw_content = excluded.raw_content,
			context = excluded.context,
			content_type = excluded.content_type,
			language = excluded.language,
			start_line = excluded.start_line,
			end_line = excluded.end_line,
			metadata_json = excluded.metadata_json,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare chunk upsert: %w", err)
	}
	defer chunkStmt.Close()

	symDeleteStmt, err := tx.PrepareContext(ctx, `DELETE FROM chunk_symbols WHERE chunk_id = ?`)
	if err != nil {
		return fmt.Errorf("prepare symbol delete: %w", err)
	}
	defer symDeleteStmt.Close()

	symInsertStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunk_symbols (chunk_id, name, type, start_line, end_line, signature, doc_comment)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare symbol insert: %w", err)
	}
	defer symInsertStmt.Close()

	for _, c := range chunks {
		metaJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshal chunk metadata %s: %w", c.ID, err)
		}
		if _, err := chunkStmt.ExecContext(ctx, c.ID, c.FileID, c.FilePath, c.Content, c.RawContent, c.Context,
			string(c.ContentType), c.Language, c.StartLine, c.EndLine, string(metaJSON),
			timeToUnix(c.CreatedAt), timeToUnix(c.UpdatedAt)); err != nil {
			return fmt.Errorf("save chunk %s: %w", c.ID, err)
		}

		if _, err := symDeleteStmt.ExecContext(ctx, c.ID); err != nil {
			return fmt.Errorf("clear chunk symbols %s: %w", c.ID, err)
		}
		for _, sym := range c.Symbols {
			if _, err := symInsertStmt.ExecContext(ctx, c.ID, sym.Name, string(sym.Type), sym.StartLine, sym.EndLine,
				sym.Signature, sym.DocComment); err != nil {
				return fmt.Errorf("save chunk symbol %s/%s: %w", c.ID, sym.Name, err)
			}
		}
	}
	return tx.Commit()
}

const chunkColumns = `id, file_id, file_path, content, raw_content, context, content_type, language, start_line, end_line, metadata_json, created_at, updated_at`

func (s *SQLiteStore) GetChunk(ctx context.Context, id string) (*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM chunks WHERE id = ?`, chunkColumns), id)
	c, err := scanChunkRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chunk: %w", err)
	}
	if err := s.attachSymbols(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func scanChunkRow(row *sql.Row) (*Chunk, error) {
	var c Chunk
	var contentType, metaJSON string
	var createdAt, updatedAt int64
	if err := row.Scan(&c.ID, &c.FileID, &c.FilePath, &c.Content, &c.RawContent, &c.Context,
		&contentType, &c.Language, &c.StartLine, &c.EndLine, &metaJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	c.ContentType = ContentType(contentType)
	c.CreatedAt = unixToTime(createdAt)
	c.UpdatedAt = unixToTime(updatedAt)
	if metaJSON != "" {
		_ = json.Unmarshal([]byte(metaJSON), &c.Metadata)
	}
	return &c, nil
}

func scanChunkRows(rows *sql.Rows) ([]*Chunk, error) {
	var out []*Chunk
	for rows.Next() {
		var c Chunk
		var contentType, metaJSON string
		var createdAt, updatedAt int64
		if err := rows.Scan(&c.ID, &c.FileID, &c.FilePath, &c.Content, &c.RawContent, &c.Context,
			&contentType, &c.Language, &c.StartLine, &c.EndLine, &metaJSON, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		c.ContentType = ContentType(contentType)
		c.CreatedAt = unixToTime(createdAt)
		c.UpdatedAt = unixToTime(updatedAt)
		if metaJSON != "" {
			_ = json.Unmarshal([]byte(metaJSON), &c.Metadata)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) attachSymbols(ctx context.Context, c *Chunk) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, type, start_line, end_line, signature, doc_comment FROM chunk_symbols WHERE chunk_id = ?`, c.ID)
	if err != nil {
		return fmt.Errorf("get chunk symbols: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sym Symbol
		var symType string
		if err := rows.Scan(&sym.Name, &symType, &sym.StartLine, &sym.EndLine, &sym.Signature, &sym.DocComment); err != nil {
			return fmt.Errorf("scan chunk symbol: %w", err)
		}
		sym.Type = SymbolType(symType)
		c.Symbols = append(c.Symbols, &sym)
	}
	return rows.Err()
}

func (s *SQLiteStore) GetChunks(ctx context.Context, ids []string) ([]*Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT %s FROM chunks WHERE id IN (%s)`, chunkColumns, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

func (s *SQLiteStore) GetChunksByFile(ctx context.Context, fileID string) ([]*Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	query := fmt.Sprintf(`SELECT %s FROM chunks WHERE file_id = ? ORDER BY start_line`, chunkColumns)
	rows, err := s.db.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("get chunks by file: %w", err)
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

func (s *SQLiteStore) DeleteChunks(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	inClause := strings.Join(placeholders, ",")
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM chunk_symbols WHERE chunk_id IN (%s)`, inClause), args...); err != nil {
		return fmt.Errorf("delete chunk symbols: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM chunks WHERE id IN (%s)`, inClause), args...); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteChunksByFile(ctx context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := deleteChunksByFileTx(ctx, tx, fileID); err != nil {
		return err
	}
	return tx.Commit()
}

// --- Symbol search ---

func (s *SQLiteStore) SearchSymbols(ctx context.Context, name string, limit int) ([]*Symbol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, type, start_line, end_line, signature, doc_comment
		FROM chunk_symbols WHERE name LIKE ? LIMIT ?`, "%"+name+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search symbols: %w", err)
	}
	defer rows.Close()

	var out []*Symbol
	for rows.Next() {
		var sym Symbol
		var symType string
		if err := rows.Scan(&sym.Name, &symType, &sym.StartLine, &sym.EndLine, &sym.Signature, &sym.DocComment); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		sym.Type = SymbolType(symType)
		out = append(out, &sym)
	}
	return out, rows.Err()
}

// --- State operations ---

func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get state: %w", err)
	}
	return value, nil
}

func (s *SQLiteStore) SetState(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set state: %w", err)
	}
	return nil
}

// --- Embedding operations ---

func embeddingToBytes(embedding []float32) []byte {
	if len(embedding) == 0 {
		return nil
	}
	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		bits := math.Float32bits(v)
		buf[i*4] = byte(bits)
		buf[i*4+1] = byte(bits >> 8)
		buf[i*4+2] = byte(bits >> 16)
		buf[i*4+3] = byte(bits >> 24)
	}
	return buf
}

func bytesToEmbedding(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	out := make([]float32, len(data)/4)
	for i := range out {
		bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		out[i] = math.Float32frombits(bits)
	}
	return out
}

func (s *SQLiteStore) SaveChunkEmbeddings(ctx context.Context, chunkIDs []string, embeddings [][]float32, model string) error {
	if len(chunkIDs) != len(embeddings) {
		return fmt.Errorf("chunk ids and embeddings length mismatch: %d vs %d", len(chunkIDs), len(embeddings))
	}
	if len(chunkIDs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `UPDATE chunks SET embedding = ?, embedder_model = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("prepare embedding update: %w", err)
	}
	defer stmt.Close()

	for i, id := range chunkIDs {
		if _, err := stmt.ExecContext(ctx, embeddingToBytes(embeddings[i]), model, id); err != nil {
			return fmt.Errorf("save embedding for %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetAllEmbeddings(ctx context.Context) (map[string][]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding FROM chunks WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("get all embeddings: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]float32)
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		out[id] = bytesToEmbedding(data)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetEmbeddingStats(ctx context.Context) (withEmbedding, withoutEmbedding int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE embedding IS NOT NULL`).Scan(&withEmbedding); err != nil {
		return 0, 0, fmt.Errorf("count embedded chunks: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE embedding IS NULL`).Scan(&withoutEmbedding); err != nil {
		return 0, 0, fmt.Errorf("count unembedded chunks: %w", err)
	}
	return withEmbedding, withoutEmbedding, nil
}

// --- Checkpoint operations ---

func (s *SQLiteStore) SaveIndexCheckpoint(ctx context.Context, stage string, total, embeddedCount int, embedderModel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO index_checkpoint (id, stage, total, embedded_count, embedder_model, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			stage = excluded.stage,
			total = excluded.total,
			embedded_count = excluded.embedded_count,
			embedder_model = excluded.embedder_model,
			updated_at = excluded.updated_at`,
		stage, total, embeddedCount, embedderModel, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadIndexCheckpoint(ctx context.Context) (*IndexCheckpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var cp IndexCheckpoint
	var updatedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT stage, total, embedded_count, embedder_model, updated_at FROM index_checkpoint WHERE id = 1`).
		Scan(&cp.Stage, &cp.Total, &cp.EmbeddedCount, &cp.EmbedderModel, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if cp.Stage == "complete" {
		return nil, nil
	}
	cp.Timestamp = unixToTime(updatedAt)
	return &cp, nil
}

func (s *SQLiteStore) ClearIndexCheckpoint(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM index_checkpoint WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	return nil
}

// --- Lifecycle ---

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

func timeToUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func unixToTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
