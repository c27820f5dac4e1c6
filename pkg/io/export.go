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
	"github.com/matzehuels/pointfit/pkg/points"
)

type point struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// WriteConstraintsCSV writes entries with the departure_point,
// arrival_point, measurement_value header.
func WriteConstraintsCSV(w io.Writer, entries []constraint.Constraint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"departure_point", "arrival_point", "measurement_value"}); err != nil {
		return err
	}
	for _, c := range entries {
		if err := cw.Write([]string{c.From, c.To, formatFloat(c.Distance)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePointsCSV writes one point,x,y,z row per point in store order.
func WritePointsCSV(w io.Writer, store *points.Store) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"point", "x", "y", "z"}); err != nil {
		return err
	}
	coords := store.Coords()
	for i, id := range store.IDs() {
		c := coords[i]
		if err := cw.Write([]string{id, formatFloat(c.X), formatFloat(c.Y), formatFloat(c.Z)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePointsJSON writes the points as an indented JSON array.
func WritePointsJSON(w io.Writer, store *points.Store) error {
	coords := store.Coords()
	out := make([]point, store.Len())
	for i, id := range store.IDs() {
		out[i] = point{ID: id, X: coords[i].X, Y: coords[i].Y, Z: coords[i].Z}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode points")
	}
	return nil
}

// ExportPoints writes store to path, choosing CSV or JSON by extension.
func ExportPoints(path string, store *points.Store) error {
	var write func(io.Writer, *points.Store) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		write = WritePointsCSV
	case ".json":
		write = WritePointsJSON
	default:
		return errors.New(errors.ErrCodeUnsupported, "unsupported points file %q (want .csv or .json)", path)
	}
	return writeFile(path, func(w io.Writer) error { return write(w, store) })
}

// ExportConstraints writes entries to a CSV file at path.
func ExportConstraints(path string, entries []constraint.Constraint) error {
	return writeFile(path, func(w io.Writer) error { return WriteConstraintsCSV(w, entries) })
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", path)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
