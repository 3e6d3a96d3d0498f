package runlog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// CSVStore appends records to a CSV file with a Columns header.
//
// CSVStore is safe for concurrent use within one process.
type CSVStore struct {
	path string
	mu   sync.Mutex
}

var _ Store = (*CSVStore)(nil)

// NewCSVStore returns a store backed by the file at path. The file and its
// parent directory are created on the first Append.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Append writes rec as one line, preceded by the header if the file is new or empty.
func (s *CSVStore) Append(_ context.Context, rec Record) error {
	if err := checkRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("runlog: create dir: %w", err)
		}
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("runlog: open %s: %w", s.path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("runlog: stat %s: %w", s.path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Columns); err != nil {
			return fmt.Errorf("runlog: write header: %w", err)
		}
	}
	if err := w.Write(rec.values()); err != nil {
		return fmt.Errorf("runlog: write record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("runlog: flush: %w", err)
	}
	return nil
}

// List reads the whole file and applies q. A missing file is an empty log.
func (s *CSVStore) List(_ context.Context, q Query) ([]Record, error) {
	if err := checkQuery(q); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("runlog: open %s: %w", s.path, err)
	}
	defer f.Close()

	recs, err := ReadCSV(f)
	if err != nil {
		return nil, err
	}
	return apply(recs, q), nil
}

// Close is a no-op; the file is opened per call.
func (s *CSVStore) Close() error { return nil }

// ReadCSV parses a run log. Columns are matched by header name.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("runlog: read header: %w", err)
	}

	recs := []Record{}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("runlog: read line %d: %w", line, err)
		}
		var rec Record
		for i, col := range header {
			if i >= len(row) || !validColumn(col) {
				continue
			}
			if err := rec.setField(col, row[i]); err != nil {
				return nil, fmt.Errorf("runlog: line %d: %w", line, err)
			}
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// WriteCSV writes recs with the Columns header, e.g. for a filtered download.
func WriteCSV(w io.Writer, recs []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("runlog: write header: %w", err)
	}
	for _, r := range recs {
		if err := cw.Write(r.values()); err != nil {
			return fmt.Errorf("runlog: write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
