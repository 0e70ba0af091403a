// Package sqlite is a domain.DocumentStore backed by a single SQLite table of
// JSON documents. It is the durable append log used for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/PabloGalante/csr-lab/internal/domain"
)

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Store struct {
	db *sql.DB
}

// Open creates (if needed) and opens the database file at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; UpdateOne relies on it for atomicity.
	db.SetMaxOpenConns(1)

	s, err := NewStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an already opened database and runs the migration.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		collection TEXT NOT NULL,
		body TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

func (s *Store) Insert(ctx context.Context, collection string, doc domain.Document) (string, error) {
	norm, err := doc.Normalize()
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(norm)
	if err != nil {
		return "", err
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO documents (collection, body) VALUES (?, ?)`, collection, string(body))
	if err != nil {
		return "", fmt.Errorf("sqlite insert into %s: %w", collection, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

func (s *Store) FindOne(ctx context.Context, collection string, filter domain.Filter) (domain.Document, error) {
	where, args, err := buildWhere(collection, filter)
	if err != nil {
		return nil, err
	}

	var body string
	err = s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE `+where+` ORDER BY id LIMIT 1`, args...).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite find one in %s: %w", collection, err)
	}
	return decodeBody(body)
}

func (s *Store) Find(ctx context.Context, collection string, filter domain.Filter) ([]domain.Document, error) {
	where, args, err := buildWhere(collection, filter)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT body FROM documents WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite find in %s: %w", collection, err)
	}
	defer func() { _ = rows.Close() }()

	out := []domain.Document{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		doc, err := decodeBody(body)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *Store) UpdateOne(ctx context.Context, collection string, filter domain.Filter, updates domain.Document) (int, error) {
	where, args, err := buildWhere(collection, filter)
	if err != nil {
		return 0, err
	}
	set, err := updates.Normalize()
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		id   int64
		body string
	)
	err = tx.QueryRowContext(ctx, `SELECT id, body FROM documents WHERE `+where+` ORDER BY id LIMIT 1`, args...).Scan(&id, &body)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite update select in %s: %w", collection, err)
	}

	doc, err := decodeBody(body)
	if err != nil {
		return 0, err
	}
	for k, v := range set {
		doc[k] = v
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE documents SET body = ? WHERE id = ?`, string(raw), id); err != nil {
		return 0, fmt.Errorf("sqlite update in %s: %w", collection, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return 1, nil
}

func (s *Store) Count(ctx context.Context, collection string, filter domain.Filter) (int, error) {
	where, args, err := buildWhere(collection, filter)
	if err != nil {
		return 0, err
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite count in %s: %w", collection, err)
	}
	return n, nil
}

// buildWhere translates an equality filter into JSON1 predicates. Type is
// matched explicitly so that "2" never equals 2 and true never equals 1.
func buildWhere(collection string, filter domain.Filter) (string, []any, error) {
	f, err := filter.Normalize()
	if err != nil {
		return "", nil, err
	}

	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := []string{"collection = ?"}
	args := []any{collection}

	for _, k := range keys {
		if !fieldPattern.MatchString(k) {
			return "", nil, fmt.Errorf("%w: unsupported filter field %q", domain.ErrInvalidInput, k)
		}
		path := "'$." + k + "'"
		typ := "json_type(body, " + path + ")"
		val := "json_extract(body, " + path + ")"

		switch v := f[k].(type) {
		case nil:
			clauses = append(clauses, "("+typ+" IS NULL OR "+typ+" = 'null')")
		case bool:
			if v {
				clauses = append(clauses, typ+" = 'true'")
			} else {
				clauses = append(clauses, typ+" = 'false'")
			}
		case float64:
			clauses = append(clauses, "("+typ+" IN ('integer', 'real') AND "+val+" = ?)")
			args = append(args, v)
		case string:
			clauses = append(clauses, "("+typ+" = 'text' AND "+val+" = ?)")
			args = append(args, v)
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				return "", nil, err
			}
			clauses = append(clauses, val+" = json(?)")
			args = append(args, string(raw))
		}
	}

	return strings.Join(clauses, " AND "), args, nil
}

func decodeBody(body string) (domain.Document, error) {
	var doc domain.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("decode sqlite document: %w", err)
	}
	if doc == nil {
		doc = domain.Document{}
	}
	return doc, nil
}
