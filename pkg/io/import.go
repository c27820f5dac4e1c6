package io

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/matzehuels/pointfit/pkg/constraint"
	"github.com/matzehuels/pointfit/pkg/errors"
)

// Column names recognised in CSV headers.
var (
	fromColumns     = []string{"departure_point", "from"}
	toColumns       = []string{"arrival_point", "to"}
	distanceColumns = []string{"measurement_value", "distance"}
)

// ReadConstraintsCSV decodes a CSV constraint table from r.
func ReadConstraintsCSV(r io.Reader) (*constraint.Set, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "constraint CSV is empty")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read CSV header")
	}

	from, to, dist, err := lookupColumns(header)
	if err != nil {
		return nil, err
	}
	width := max(from, to, dist) + 1

	var entries []constraint.Constraint
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "read CSV")
		}
		line, _ := cr.FieldPos(0)
		if len(rec) < width {
			return nil, errors.New(errors.ErrCodeInvalidFormat, "line %d: expected at least %d fields, got %d", line, width, len(rec))
		}
		d, err := strconv.ParseFloat(strings.TrimSpace(rec[dist]), 64)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "line %d: measurement %q", line, rec[dist])
		}
		entries = append(entries, constraint.Constraint{From: rec[from], To: rec[to], Distance: d})
	}
	return constraint.New(entries)
}

func lookupColumns(header []string) (from, to, dist int, err error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, seen := index[h]; !seen {
			index[h] = i
		}
	}
	find := func(names []string) (int, error) {
		for _, n := range names {
			if i, ok := index[n]; ok {
				return i, nil
			}
		}
		return 0, errors.New(errors.ErrCodeInvalidFormat, "CSV header has no %q column", names[0])
	}
	if from, err = find(fromColumns); err != nil {
		return
	}
	if to, err = find(toColumns); err != nil {
		return
	}
	dist, err = find(distanceColumns)
	return
}

// ReadConstraintsJSON decodes a JSON array of constraints from r.
func ReadConstraintsJSON(r io.Reader) (*constraint.Set, error) {
	var entries []constraint.Constraint
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode constraints")
	}
	return constraint.New(entries)
}

// ImportConstraints reads a constraint file, choosing the decoder by
// extension (.csv or .json).
func ImportConstraints(path string) (*constraint.Set, error) {
	read, err := readerFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open %s", path)
	}
	defer f.Close()
	return read(f)
}

func readerFor(path string) (func(io.Reader) (*constraint.Set, error), error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadConstraintsCSV, nil
	case ".json":
		return ReadConstraintsJSON, nil
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported constraint file %q (want .csv or .json)", path)
	}
}
