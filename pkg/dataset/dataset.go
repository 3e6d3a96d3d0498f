// Package dataset loads the per-part sensor log that feeds the engine and
// answers ground-truth label lookups for single parts.
//
// The log is a comma-separated file with a header row. Columns are located
// by name, so their order does not matter and extra columns (temp_c, shift,
// ...) are ignored. Required columns: part_id, vibration_rms, acoustic_db,
// label.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/qcsim/qcsim/pkg/compute"
	"github.com/qcsim/qcsim/pkg/types"
)

// Required column names.
const (
	ColPartID    = "part_id"
	ColVibration = "vibration_rms"
	ColAcoustic  = "acoustic_db"
	ColLabel     = "label"
)

// ErrInvalidDataset is the same sentinel the engine uses, so callers can test
// for either with one errors.Is.
var ErrInvalidDataset = compute.ErrInvalidDataset

var requiredColumns = []string{ColPartID, ColVibration, ColAcoustic, ColLabel}

// Dataset is an immutable, validated batch of parts.
type Dataset struct {
	parts []types.Part
	index map[int]int // part_id → position in parts
}

// New validates parts and builds a Dataset from them. The slice is copied.
func New(parts []types.Part) (*Dataset, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("dataset: %w: no rows", ErrInvalidDataset)
	}
	ds := &Dataset{
		parts: make([]types.Part, len(parts)),
		index: make(map[int]int, len(parts)),
	}
	for i, p := range parts {
		if !p.Label.Valid() {
			return nil, fmt.Errorf("dataset: %w: part %d: unknown label %q", ErrInvalidDataset, p.ID, p.Label)
		}
		if _, dup := ds.index[p.ID]; dup {
			return nil, fmt.Errorf("dataset: %w: duplicate part_id %d", ErrInvalidDataset, p.ID)
		}
		ds.index[p.ID] = i
		ds.parts[i] = p
	}
	return ds, nil
}

// Load reads and parses the sensor log at path.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open: %w", err)
	}
	defer f.Close()

	ds, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%w (file %s)", err, path)
	}
	return ds, nil
}

// Parse decodes a sensor log from r.
func Parse(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("dataset: %w: empty file", ErrInvalidDataset)
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: read header: %w", err)
	}

	cols, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	var parts []types.Part
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: read line %d: %w", line, err)
		}
		if isBlank(rec) {
			continue
		}
		p, err := parseRow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("dataset: %w: line %d: %v", ErrInvalidDataset, line, err)
		}
		parts = append(parts, p)
	}
	return New(parts)
}

// Parts returns a copy of the parts in file order.
func (d *Dataset) Parts() []types.Part {
	out := make([]types.Part, len(d.parts))
	copy(out, d.parts)
	return out
}

// Len returns the number of parts.
func (d *Dataset) Len() int { return len(d.parts) }

// Lookup returns the ground-truth label of the part identified by id.
//
// id is parsed as an integer, so zero-padded stems such as "007" (taken from
// image file names) resolve to part 7. An unparsable or unknown id returns
// ("", false).
func (d *Dataset) Lookup(id string) (types.Label, bool) {
	pid, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil {
		return "", false
	}
	i, ok := d.index[pid]
	if !ok {
		return "", false
	}
	return d.parts[i].Label, true
}

// columnIndex maps required column names to their positions in header.
func columnIndex(header []string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, seen := pos[name]; !seen {
			pos[name] = i
		}
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := pos[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("dataset: %w: missing column(s) %s", ErrInvalidDataset, strings.Join(missing, ", "))
	}
	return pos, nil
}

func parseRow(rec []string, cols map[string]int) (types.Part, error) {
	field := func(name string) (string, error) {
		i := cols[name]
		if i >= len(rec) {
			return "", fmt.Errorf("missing %s", name)
		}
		return strings.TrimSpace(rec[i]), nil
	}

	var p types.Part
	raw, err := field(ColPartID)
	if err != nil {
		return p, err
	}
	if p.ID, err = strconv.Atoi(raw); err != nil {
		return p, fmt.Errorf("%s %q is not an integer", ColPartID, raw)
	}

	if p.VibrationRMS, err = parseFloat(field(ColVibration)); err != nil {
		return p, fmt.Errorf("%s: %v", ColVibration, err)
	}
	if p.AcousticDB, err = parseFloat(field(ColAcoustic)); err != nil {
		return p, fmt.Errorf("%s: %v", ColAcoustic, err)
	}

	raw, err = field(ColLabel)
	if err != nil {
		return p, err
	}
	p.Label = types.Label(strings.ToUpper(raw))
	return p, nil
}

func parseFloat(s string, err error) (float64, error) {
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return v, nil
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
