package sqlstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

// Export writes every row of the table to path, one JSON object per line,
// ordered by primary key. The file is replaced atomically.
func (s *Store) Export(ctx context.Context, name, path string) (int, error) {
	s.mu.RLock()
	t, err := s.lookup(name)
	if err != nil {
		s.mu.RUnlock()
		return 0, err
	}
	names, cols := t.selectList(nil)
	rows, err := s.scanRows(ctx, s.db, t, names, "SELECT "+cols+" FROM "+quote(t.name)+t.orderBy(nil), nil)
	s.mu.RUnlock()
	if err != nil {
		return 0, err
	}

	records := make([]json.RawMessage, len(rows))
	for i, r := range rows {
		data, err := json.Marshal(r)
		if err != nil {
			return 0, fmt.Errorf("encoding row %d: %w", i, err)
		}
		records[i] = data
	}
	if err := writeJSONL(path, records); err != nil {
		return 0, err
	}
	s.logger.Info("table exported", zap.String("table", t.name), zap.String("path", path), zap.Int("rows", len(records)))
	return len(records), nil
}

// Import upserts every row in the JSONL file at path into the table, in one
// transaction. Malformed lines are skipped.
func (s *Store) Import(ctx context.Context, name, path string) (int, error) {
	records, err := readJSONL(path)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.lookup(name)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	n := 0
	for _, rec := range records {
		var r types.Row
		if err := json.Unmarshal(rec, &r); err != nil || r == nil {
			s.logger.Warn("skipping record", zap.String("table", t.name), zap.Error(err))
			continue
		}
		if missing(r[t.pk]) {
			s.logger.Warn("skipping record without key", zap.String("table", t.name))
			continue
		}
		stmt, args, err := t.upsert(s.dialect, r)
		if err != nil {
			return n, err
		}
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return n, fmt.Errorf("import %s: %w", t.name, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	s.logger.Info("table imported", zap.String("table", t.name), zap.String("path", path), zap.Int("rows", n))
	return n, nil
}

// upsert builds an INSERT that overwrites the row with the same key.
func (t *table) upsert(d dialect, r types.Row) (string, []any, error) {
	var cols []string
	for _, c := range t.columns {
		if _, ok := r[c.name]; ok {
			cols = append(cols, c.name)
		}
	}
	b := &binder{d: d}
	ph, err := t.bindValues(b, cols, r)
	if err != nil {
		return "", nil, err
	}
	var sets []string
	for _, c := range cols {
		if c != t.pk {
			sets = append(sets, quote(c)+" = excluded."+quote(c))
		}
	}
	conflict := "DO NOTHING"
	if len(sets) > 0 {
		conflict = "DO UPDATE SET " + strings.Join(sets, ", ")
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		quote(t.name), quoteAll(cols), strings.Join(ph, ", "), quote(t.pk), conflict)
	return stmt, b.args, nil
}

// readJSONL returns each non-empty, well-formed line of a JSONL file.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 || !json.Valid(line) {
			continue
		}
		records = append(records, json.RawMessage(append([]byte(nil), line...)))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL replaces path with records via temp file, fsync and rename.
func writeJSONL(path string, records []json.RawMessage) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err = w.Write(rec); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
		if err = w.WriteByte('\n'); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
