// Package csvfile stores installment records in a single CSV file that is
// read in full on Load and rewritten in full on Save.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/felipesemedo05/parcelas-servico/internal/core"
	"github.com/felipesemedo05/parcelas-servico/internal/store"
)

// DefaultPath is the file name used when none is configured.
const DefaultPath = "dados tratados.csv"

type Store struct {
	mu   sync.Mutex
	path string
}

var _ store.Store = (*Store)(nil)

func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load reads every record. A missing or empty file is an empty store.
func (s *Store) Load(ctx context.Context) ([]core.Installment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.DebugContext(ctx, "CSV store not found, starting empty", "path", s.path)
		return []core.Installment{}, nil
	}
	if err != nil {
		return nil, store.ReadError("open csv", err)
	}
	defer f.Close()

	recs, err := decode(f)
	if err != nil {
		return nil, store.ReadError(fmt.Sprintf("read %s", s.path), err)
	}
	slog.DebugContext(ctx, "CSV store loaded", "path", s.path, "records", len(recs))
	return recs, nil
}

// Save replaces the file contents with recs. The new contents are written to
// a temporary file in the same directory and renamed over the old one.
func (s *Store) Save(ctx context.Context, recs []core.Installment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return store.WriteError("create csv directory", err)
	}
	tmp, err := os.CreateTemp(dir, ".parcelas-*.csv")
	if err != nil {
		return store.WriteError("create temp file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := encode(tmp, recs); err != nil {
		tmp.Close()
		return store.WriteError("write csv", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return store.WriteError("sync csv", err)
	}
	if err := tmp.Close(); err != nil {
		return store.WriteError("close csv", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return store.WriteError("replace csv", err)
	}
	slog.InfoContext(ctx, "CSV store saved", "path", s.path, "records", len(recs))
	return nil
}

func decode(r io.Reader) ([]core.Installment, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return []core.Installment{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := store.IndexHeader(header)
	if err != nil {
		return nil, err
	}

	out := []core.Installment{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if blank(row) {
			continue
		}
		out = append(out, cols.DecodeRow(row))
	}
	return out, nil
}

func encode(w io.Writer, recs []core.Installment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(store.Header); err != nil {
		return err
	}
	for _, r := range recs {
		if err := cw.Write(store.EncodeRow(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func blank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
