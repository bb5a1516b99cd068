package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteSymbolGraphStore implements SymbolGraphStore on top of a
// modernc.org/sqlite database, using the same WAL + single-writer
// connection-pool-of-one conventions as SQLiteBM25Index.
type SQLiteSymbolGraphStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

var _ SymbolGraphStore = (*SQLiteSymbolGraphStore)(nil)

// NewSQLiteSymbolGraphStore opens (or creates) the symbol graph database
// at path. An empty path creates an in-memory database for tests.
func NewSQLiteSymbolGraphStore(path string) (*SQLiteSymbolGraphStore, error) {
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
		return nil, fmt.Errorf("failed to open symbol graph database: %w", err)
	}

	// Single writer, per spec §4.3/§5 concurrency model.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteSymbolGraphStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSymbolGraphStore) initSchema() error {
	_, err := s.db.Exec(schemaSQL)
	return err
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sg_files (
	path TEXT NOT NULL,
	workspace_id TEXT NOT NULL,
	language TEXT,
	content_hash TEXT NOT NULL,
	size INTEGER,
	mtime INTEGER,
	last_indexed INTEGER,
	symbol_count INTEGER DEFAULT 0,
	PRIMARY KEY (workspace_id, path)
);

CREATE TABLE IF NOT EXISTS sg_symbols (
	id TEXT PRIMARY KEY,
	workspace_id TEXT NOT NULL,
	name TEXT NOT NULL,
	kind TEXT NOT NULL,
	language TEXT,
	file_path TEXT NOT NULL,
	start_line INTEGER,
	start_col INTEGER,
	start_byte INTEGER,
	end_line INTEGER,
	end_col INTEGER,
	end_byte INTEGER,
	signature TEXT,
	doc_comment TEXT,
	visibility TEXT,
	parent_symbol_id TEXT,
	code_context TEXT
);
CREATE INDEX IF NOT EXISTS idx_sg_symbols_name ON sg_symbols(workspace_id, name);
CREATE INDEX IF NOT EXISTS idx_sg_symbols_file ON sg_symbols(workspace_id, file_path);
CREATE INDEX IF NOT EXISTS idx_sg_symbols_kind ON sg_symbols(workspace_id, kind);

CREATE VIRTUAL TABLE IF NOT EXISTS sg_symbols_fts USING fts5(
	symbol_id UNINDEXED,
	workspace_id UNINDEXED,
	name,
	signature,
	doc_comment,
	tokenize='unicode61'
);

CREATE TABLE IF NOT EXISTS sg_identifiers (
	id TEXT PRIMARY KEY,
	workspace_id TEXT NOT NULL,
	name TEXT NOT NULL,
	kind TEXT NOT NULL,
	file_path TEXT NOT NULL,
	line INTEGER,
	col INTEGER,
	containing_symbol_id TEXT,
	target_symbol_id TEXT,
	confidence REAL
);
CREATE INDEX IF NOT EXISTS idx_sg_identifiers_name ON sg_identifiers(workspace_id, name);
CREATE INDEX IF NOT EXISTS idx_sg_identifiers_containing ON sg_identifiers(workspace_id, containing_symbol_id);
CREATE INDEX IF NOT EXISTS idx_sg_identifiers_target ON sg_identifiers(workspace_id, target_symbol_id);
CREATE INDEX IF NOT EXISTS idx_sg_identifiers_file ON sg_identifiers(workspace_id, file_path);

CREATE TABLE IF NOT EXISTS sg_relationships (
	id TEXT PRIMARY KEY,
	workspace_id TEXT NOT NULL,
	from_symbol_id TEXT NOT NULL,
	to_symbol_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	file_path TEXT,
	line INTEGER,
	confidence REAL
);
CREATE INDEX IF NOT EXISTS idx_sg_rel_from ON sg_relationships(workspace_id, from_symbol_id, kind);
CREATE INDEX IF NOT EXISTS idx_sg_rel_to ON sg_relationships(workspace_id, to_symbol_id, kind);

CREATE TABLE IF NOT EXISTS sg_reachability (
	workspace_id TEXT NOT NULL,
	source_id TEXT NOT NULL,
	target_id TEXT NOT NULL,
	min_distance INTEGER NOT NULL,
	PRIMARY KEY (workspace_id, source_id, target_id)
);
CREATE INDEX IF NOT EXISTS idx_sg_reach_target ON sg_reachability(workspace_id, target_id, min_distance);
CREATE INDEX IF NOT EXISTS idx_sg_reach_source ON sg_reachability(workspace_id, source_id, min_distance);
`

// AtomicReplaceFile deletes then re-inserts all derived rows for path in
// one transaction (spec §8.1 atomicity-per-file invariant).
func (s *SQLiteSymbolGraphStore) AtomicReplaceFile(ctx context.Context, workspaceID string, file *FileRow, symbols []*SymbolRow, identifiers []*IdentifierRow, relationships []*RelationshipRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("symbol graph store is closed")
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin immediate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteFileRows(ctx, tx, workspaceID, file.Path); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sg_files(path, workspace_id, language, content_hash, size, mtime, last_indexed, symbol_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		file.Path, workspaceID, file.Language, file.ContentHash, file.Size, file.ModTime, file.LastIndexed, len(symbols)); err != nil {
		return fmt.Errorf("insert file row: %w", err)
	}

	symStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sg_symbols(id, workspace_id, name, kind, language, file_path,
			start_line, start_col, start_byte, end_line, end_col, end_byte,
			signature, doc_comment, visibility, parent_symbol_id, code_context)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare symbol insert: %w", err)
	}
	defer symStmt.Close()

	ftsStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sg_symbols_fts(symbol_id, workspace_id, name, signature, doc_comment)
		VALUES (?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare fts insert: %w", err)
	}
	defer ftsStmt.Close()

	for _, sym := range symbols {
		if sym.ParentSymbolID != "" && !containsSymbolID(symbols, sym.ParentSymbolID) {
			return fmt.Errorf("consistency violation: parent_symbol_id %q for symbol %q not present in this commit", sym.ParentSymbolID, sym.ID)
		}
		if _, err := symStmt.ExecContext(ctx, sym.ID, workspaceID, sym.Name, string(sym.Kind), sym.Language, sym.FilePath,
			sym.StartLine, sym.StartCol, sym.StartByte, sym.EndLine, sym.EndCol, sym.EndByte,
			sym.Signature, sym.DocComment, sym.Visibility, nullable(sym.ParentSymbolID), sym.CodeContext); err != nil {
			return fmt.Errorf("insert symbol %s: %w", sym.ID, err)
		}
		if _, err := ftsStmt.ExecContext(ctx, sym.ID, workspaceID, sym.Name, sym.Signature, sym.DocComment); err != nil {
			return fmt.Errorf("insert symbol fts %s: %w", sym.ID, err)
		}
	}

	idStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sg_identifiers(id, workspace_id, name, kind, file_path, line, col,
			containing_symbol_id, target_symbol_id, confidence)
		VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare identifier insert: %w", err)
	}
	defer idStmt.Close()

	for _, ident := range identifiers {
		if _, err := idStmt.ExecContext(ctx, ident.ID, workspaceID, ident.Name, string(ident.Kind), ident.FilePath,
			ident.Line, ident.Col, nullable(ident.ContainingSymbolID), nullable(ident.TargetSymbolID), ident.Confidence); err != nil {
			return fmt.Errorf("insert identifier %s: %w", ident.ID, err)
		}
	}

	relStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sg_relationships(id, workspace_id, from_symbol_id, to_symbol_id, kind, file_path, line, confidence)
		VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare relationship insert: %w", err)
	}
	defer relStmt.Close()

	for _, rel := range relationships {
		if _, err := relStmt.ExecContext(ctx, rel.ID, workspaceID, rel.FromSymbolID, rel.ToSymbolID, string(rel.Kind), rel.FilePath, rel.Line, rel.Confidence); err != nil {
			return fmt.Errorf("insert relationship %s: %w", rel.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit atomic replace for %s: %w", file.Path, err)
	}
	return nil
}

func containsSymbolID(symbols []*SymbolRow, id string) bool {
	for _, s := range symbols {
		if s.ID == id {
			return true
		}
	}
	return false
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// deleteFileRows removes all rows derived from path: symbols (cascading
// to identifiers/relationships that reference them), identifiers, and
// relationships recorded against that file directly.
func deleteFileRows(ctx context.Context, tx *sql.Tx, workspaceID, path string) error {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM sg_symbols WHERE workspace_id = ? AND file_path = ?`, workspaceID, path)
	if err != nil {
		return fmt.Errorf("query existing symbols: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan existing symbol id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sg_files WHERE workspace_id = ? AND path = ?`, workspaceID, path); err != nil {
		return fmt.Errorf("delete file row: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sg_identifiers WHERE workspace_id = ? AND file_path = ?`, workspaceID, path); err != nil {
		return fmt.Errorf("delete identifiers for file: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sg_relationships WHERE workspace_id = ? AND file_path = ?`, workspaceID, path); err != nil {
		return fmt.Errorf("delete relationships for file: %w", err)
	}

	if len(ids) > 0 {
		placeholders := make([]string, len(ids))
		args := make([]any, 0, len(ids)*4+1)
		args = append(args, workspaceID)
		for i, id := range ids {
			placeholders[i] = "?"
			args = append(args, id)
		}
		inClause := strings.Join(placeholders, ",")

		// Cascade: delete edges and references that point at the symbols we're about to remove.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM sg_relationships WHERE workspace_id = ? AND (from_symbol_id IN (%s) OR to_symbol_id IN (%s))`, inClause, inClause),
			append(append([]any{}, args...), args[1:]...)...); err != nil {
			return fmt.Errorf("cascade delete relationships: %w", err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM sg_identifiers WHERE workspace_id = ? AND (containing_symbol_id IN (%s) OR target_symbol_id IN (%s))`, inClause, inClause),
			append(append([]any{}, args...), args[1:]...)...); err != nil {
			return fmt.Errorf("cascade delete identifiers: %w", err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM sg_reachability WHERE workspace_id = ? AND (source_id IN (%s) OR target_id IN (%s))`, inClause, inClause),
			append(append([]any{}, args...), args[1:]...)...); err != nil {
			return fmt.Errorf("cascade delete reachability: %w", err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM sg_symbols WHERE workspace_id = ? AND id IN (%s)`, inClause), args...); err != nil {
			return fmt.Errorf("delete symbols: %w", err)
		}
		idArgs := make([]any, len(ids))
		idPlaceholders := make([]string, len(ids))
		for i, id := range ids {
			idPlaceholders[i] = "?"
			idArgs[i] = id
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM sg_symbols_fts WHERE symbol_id IN (%s)`, strings.Join(idPlaceholders, ",")), idArgs...); err != nil {
			return fmt.Errorf("delete symbol fts rows: %w", err)
		}
	}
	return nil
}

// DeleteFilesBatch removes all derived rows for a set of paths in one transaction.
func (s *SQLiteSymbolGraphStore) DeleteFilesBatch(ctx context.Context, workspaceID string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("symbol graph store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range paths {
		if err := deleteFileRows(ctx, tx, workspaceID, p); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteSymbolGraphStore) GetFileRow(ctx context.Context, workspaceID, path string) (*FileRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRowContext(ctx, `SELECT path, workspace_id, language, content_hash, size, mtime, last_indexed, symbol_count
		FROM sg_files WHERE workspace_id = ? AND path = ?`, workspaceID, path)
	var f FileRow
	if err := row.Scan(&f.Path, &f.WorkspaceID, &f.Language, &f.ContentHash, &f.Size, &f.ModTime, &f.LastIndexed, &f.SymbolCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get file row: %w", err)
	}
	return &f, nil
}

func (s *SQLiteSymbolGraphStore) GetAllFileHashes(ctx context.Context, workspaceID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `SELECT path, content_hash FROM sg_files WHERE workspace_id = ?`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("query file hashes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, fmt.Errorf("scan file hash: %w", err)
		}
		out[path] = hash
	}
	return out, rows.Err()
}

// SearchSymbolsFTS performs BM25-ranked FTS over name/signature/doc_comment.
func (s *SQLiteSymbolGraphStore) SearchSymbolsFTS(ctx context.Context, workspaceID, query string, limit int) ([]*SymbolRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if strings.TrimSpace(query) == "" {
		return []*SymbolRow{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol_id, bm25(sg_symbols_fts) as score
		FROM sg_symbols_fts
		WHERE sg_symbols_fts MATCH ? AND workspace_id = ?
		ORDER BY score LIMIT ?`, query, workspaceID, limit)
	if err != nil {
		if strings.Contains(err.Error(), "fts5:") || strings.Contains(err.Error(), "syntax error") {
			return []*SymbolRow{}, nil
		}
		return nil, fmt.Errorf("fts search: %w", err)
	}
	defer rows.Close()

	var ids []string
	scores := make(map[string]float64)
	for rows.Next() {
		var id string
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return nil, fmt.Errorf("scan fts hit: %w", err)
		}
		ids = append(ids, id)
		scores[id] = -score // bm25() is negative; higher positive is better
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	symbols, err := s.GetSymbolsByIDs(ctx, workspaceID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*SymbolRow, len(symbols))
	for _, sym := range symbols {
		sym.Score = scores[sym.ID]
		byID[sym.ID] = sym
	}
	ordered := make([]*SymbolRow, 0, len(ids))
	for _, id := range ids {
		if sym, ok := byID[id]; ok {
			ordered = append(ordered, sym)
		}
	}
	return ordered, nil
}

// SearchSymbolsPattern is a stub retained for interface symmetry; actual
// pattern search is delegated to the PatternIndex by the search engine,
// since whitespace-punctuation tokenization lives in Bleve, not SQLite FTS5.
func (s *SQLiteSymbolGraphStore) SearchSymbolsPattern(ctx context.Context, workspaceID, pattern string, limit int) ([]*SymbolRow, error) {
	return nil, fmt.Errorf("pattern search must go through store.PatternIndex, not SymbolGraphStore")
}

func (s *SQLiteSymbolGraphStore) GetSymbolsByIDs(ctx context.Context, workspaceID string, ids []string) ([]*SymbolRow, error) {
	if len(ids) == 0 {
		return []*SymbolRow{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, workspaceID)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}
	query := fmt.Sprintf(`SELECT %s FROM sg_symbols WHERE workspace_id = ? AND id IN (%s)`, symbolColumns, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get symbols by ids: %w", err)
	}
	defer rows.Close()
	return scanSymbolRows(rows)
}

const symbolColumns = `id, workspace_id, name, kind, language, file_path, start_line, start_col, start_byte, end_line, end_col, end_byte, signature, doc_comment, visibility, parent_symbol_id, code_context`

func scanSymbolRows(rows *sql.Rows) ([]*SymbolRow, error) {
	var out []*SymbolRow
	for rows.Next() {
		var sym SymbolRow
		var kind string
		var parent sql.NullString
		if err := rows.Scan(&sym.ID, &sym.WorkspaceID, &sym.Name, &kind, &sym.Language, &sym.FilePath,
			&sym.StartLine, &sym.StartCol, &sym.StartByte, &sym.EndLine, &sym.EndCol, &sym.EndByte,
			&sym.Signature, &sym.DocComment, &sym.Visibility, &parent, &sym.CodeContext); err != nil {
			return nil, fmt.Errorf("scan symbol row: %w", err)
		}
		sym.Kind = SymbolKind(kind)
		sym.ParentSymbolID = parent.String
		out = append(out, &sym)
	}
	return out, rows.Err()
}

func (s *SQLiteSymbolGraphStore) GetSymbolsByName(ctx context.Context, workspaceID, name string, exact bool) ([]*SymbolRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := fmt.Sprintf(`SELECT %s FROM sg_symbols WHERE workspace_id = ? AND `, symbolColumns)
	var rows *sql.Rows
	var err error
	if exact {
		query += `name = ?`
		rows, err = s.db.QueryContext(ctx, query, workspaceID, name)
	} else {
		query += `LOWER(name) = LOWER(?)`
		rows, err = s.db.QueryContext(ctx, query, workspaceID, name)
	}
	if err != nil {
		return nil, fmt.Errorf("get symbols by name: %w", err)
	}
	defer rows.Close()
	return scanSymbolRows(rows)
}

func (s *SQLiteSymbolGraphStore) GetSymbolsByFile(ctx context.Context, workspaceID, path string) ([]*SymbolRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	query := fmt.Sprintf(`SELECT %s FROM sg_symbols WHERE workspace_id = ? AND file_path = ? ORDER BY start_line`, symbolColumns)
	rows, err := s.db.QueryContext(ctx, query, workspaceID, path)
	if err != nil {
		return nil, fmt.Errorf("get symbols by file: %w", err)
	}
	defer rows.Close()
	return scanSymbolRows(rows)
}

func (s *SQLiteSymbolGraphStore) GetAllSymbolNames(ctx context.Context, workspaceID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT name FROM sg_symbols WHERE workspace_id = ?`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("get all symbol names: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (s *SQLiteSymbolGraphStore) GetIdentifiersByTarget(ctx context.Context, workspaceID, targetSymbolID string) ([]*IdentifierRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, name, kind, file_path, line, col, containing_symbol_id, target_symbol_id, confidence
		FROM sg_identifiers WHERE workspace_id = ? AND target_symbol_id = ?
		ORDER BY file_path, line`, workspaceID, targetSymbolID)
	if err != nil {
		return nil, fmt.Errorf("get identifiers by target: %w", err)
	}
	defer rows.Close()
	return scanIdentifierRows(rows)
}

func (s *SQLiteSymbolGraphStore) GetIdentifiersByName(ctx context.Context, workspaceID, name string) ([]*IdentifierRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, name, kind, file_path, line, col, containing_symbol_id, target_symbol_id, confidence
		FROM sg_identifiers WHERE workspace_id = ? AND name = ?
		ORDER BY file_path, line`, workspaceID, name)
	if err != nil {
		return nil, fmt.Errorf("get identifiers by name: %w", err)
	}
	defer rows.Close()
	return scanIdentifierRows(rows)
}

func scanIdentifierRows(rows *sql.Rows) ([]*IdentifierRow, error) {
	var out []*IdentifierRow
	for rows.Next() {
		var ident IdentifierRow
		var kind string
		var containing, target sql.NullString
		if err := rows.Scan(&ident.ID, &ident.WorkspaceID, &ident.Name, &kind, &ident.FilePath, &ident.Line, &ident.Col, &containing, &target, &ident.Confidence); err != nil {
			return nil, fmt.Errorf("scan identifier row: %w", err)
		}
		ident.Kind = IdentifierKind(kind)
		ident.ContainingSymbolID = containing.String
		ident.TargetSymbolID = target.String
		out = append(out, &ident)
	}
	return out, rows.Err()
}

func (s *SQLiteSymbolGraphStore) GetRelationshipsFrom(ctx context.Context, workspaceID, fromSymbolID string, kind RelationshipKind) ([]*RelationshipRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	query := `SELECT id, workspace_id, from_symbol_id, to_symbol_id, kind, file_path, line, confidence
		FROM sg_relationships WHERE workspace_id = ? AND from_symbol_id = ?`
	args := []any{workspaceID, fromSymbolID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get relationships from: %w", err)
	}
	defer rows.Close()
	return scanRelationshipRows(rows)
}

func (s *SQLiteSymbolGraphStore) GetRelationshipsTo(ctx context.Context, workspaceID, toSymbolID string, kind RelationshipKind) ([]*RelationshipRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	query := `SELECT id, workspace_id, from_symbol_id, to_symbol_id, kind, file_path, line, confidence
		FROM sg_relationships WHERE workspace_id = ? AND to_symbol_id = ?`
	args := []any{workspaceID, toSymbolID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get relationships to: %w", err)
	}
	defer rows.Close()
	return scanRelationshipRows(rows)
}

func scanRelationshipRows(rows *sql.Rows) ([]*RelationshipRow, error) {
	var out []*RelationshipRow
	for rows.Next() {
		var r RelationshipRow
		var kind string
		if err := rows.Scan(&r.ID, &r.WorkspaceID, &r.FromSymbolID, &r.ToSymbolID, &kind, &r.FilePath, &r.Line, &r.Confidence); err != nil {
			return nil, fmt.Errorf("scan relationship row: %w", err)
		}
		r.Kind = RelationshipKind(kind)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *SQLiteSymbolGraphStore) CountRelationships(ctx context.Context, workspaceID string, kind RelationshipKind) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sg_relationships WHERE workspace_id = ? AND kind = ?`, workspaceID, string(kind)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count relationships: %w", err)
	}
	return count, nil
}

// ReplaceReachability swaps the whole reachability table for a workspace
// in one transaction (spec §4.5 "recompute").
func (s *SQLiteSymbolGraphStore) ReplaceReachability(ctx context.Context, workspaceID string, rows []*ReachabilityRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reachability replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sg_reachability WHERE workspace_id = ?`, workspaceID); err != nil {
		return fmt.Errorf("clear reachability: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO sg_reachability(workspace_id, source_id, target_id, min_distance) VALUES (?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare reachability insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, workspaceID, r.SourceID, r.TargetID, r.MinDistance); err != nil {
			return fmt.Errorf("insert reachability row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reachability replace: %w", err)
	}
	slog.Debug("reachability_recomputed", slog.String("workspace_id", workspaceID), slog.Int("rows", len(rows)))
	return nil
}

func (s *SQLiteSymbolGraphStore) ReachTo(ctx context.Context, workspaceID, targetID string, minDistanceCap int) ([]*ReachabilityRow, error) {
	return s.queryReachability(ctx, `SELECT workspace_id, source_id, target_id, min_distance FROM sg_reachability
		WHERE workspace_id = ? AND target_id = ? AND min_distance <= ?`, workspaceID, targetID, minDistanceCap)
}

func (s *SQLiteSymbolGraphStore) ReachFrom(ctx context.Context, workspaceID, sourceID string, minDistanceCap int) ([]*ReachabilityRow, error) {
	return s.queryReachability(ctx, `SELECT workspace_id, source_id, target_id, min_distance FROM sg_reachability
		WHERE workspace_id = ? AND source_id = ? AND min_distance <= ?`, workspaceID, sourceID, minDistanceCap)
}

// ReachToMany finds every (source, target) pair reaching any of targetIDs,
// in one query, so batch expansion (spec §4.8 "three batch queries total")
// never degrades to one query per hit.
func (s *SQLiteSymbolGraphStore) ReachToMany(ctx context.Context, workspaceID string, targetIDs []string, minDistanceCap int) ([]*ReachabilityRow, error) {
	if len(targetIDs) == 0 {
		return []*ReachabilityRow{}, nil
	}
	return s.queryReachabilityMany(ctx, "target_id", workspaceID, targetIDs, minDistanceCap)
}

// ReachFromMany finds every (source, target) pair reachable from any of
// sourceIDs, in one query.
func (s *SQLiteSymbolGraphStore) ReachFromMany(ctx context.Context, workspaceID string, sourceIDs []string, minDistanceCap int) ([]*ReachabilityRow, error) {
	if len(sourceIDs) == 0 {
		return []*ReachabilityRow{}, nil
	}
	return s.queryReachabilityMany(ctx, "source_id", workspaceID, sourceIDs, minDistanceCap)
}

func (s *SQLiteSymbolGraphStore) queryReachabilityMany(ctx context.Context, column, workspaceID string, ids []string, cap int) ([]*ReachabilityRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+2)
	args = append(args, workspaceID)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}
	args = append(args, cap)

	query := fmt.Sprintf(`SELECT workspace_id, source_id, target_id, min_distance FROM sg_reachability
		WHERE workspace_id = ? AND %s IN (%s) AND min_distance <= ?`, column, strings.Join(placeholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reachability many: %w", err)
	}
	defer rows.Close()

	var out []*ReachabilityRow
	for rows.Next() {
		var r ReachabilityRow
		if err := rows.Scan(&r.WorkspaceID, &r.SourceID, &r.TargetID, &r.MinDistance); err != nil {
			return nil, fmt.Errorf("scan reachability row: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *SQLiteSymbolGraphStore) queryReachability(ctx context.Context, query, workspaceID, id string, cap int) ([]*ReachabilityRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.QueryContext(ctx, query, workspaceID, id, cap)
	if err != nil {
		return nil, fmt.Errorf("query reachability: %w", err)
	}
	defer rows.Close()

	var out []*ReachabilityRow
	for rows.Next() {
		var r ReachabilityRow
		if err := rows.Scan(&r.WorkspaceID, &r.SourceID, &r.TargetID, &r.MinDistance); err != nil {
			return nil, fmt.Errorf("scan reachability row: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *SQLiteSymbolGraphStore) CanReach(ctx context.Context, workspaceID, sourceID, targetID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sg_reachability WHERE workspace_id = ? AND source_id = ? AND target_id = ?`,
		workspaceID, sourceID, targetID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("can reach: %w", err)
	}
	return count > 0, nil
}

func (s *SQLiteSymbolGraphStore) Distance(ctx context.Context, workspaceID, sourceID, targetID string) (int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var d int
	err := s.db.QueryRowContext(ctx, `SELECT min_distance FROM sg_reachability WHERE workspace_id = ? AND source_id = ? AND target_id = ?`,
		workspaceID, sourceID, targetID).Scan(&d)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("distance: %w", err)
	}
	return d, true, nil
}

func (s *SQLiteSymbolGraphStore) CountReachability(ctx context.Context, workspaceID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sg_reachability WHERE workspace_id = ?`, workspaceID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count reachability: %w", err)
	}
	return count, nil
}

// Close closes the underlying database connection.
func (s *SQLiteSymbolGraphStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
