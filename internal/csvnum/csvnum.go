// Package csvnum encodes and decodes numeric CSV blocks: flat scalar
// sequences and row-major matrices. Values are written in their shortest
// round-trip representation so a decoded block is bit-identical to the
// encoded one.
package csvnum

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrRaggedMatrix is returned when matrix rows do not share one width.
var ErrRaggedMatrix = errors.New("csvnum: matrix rows have different widths")

// FormatFloat renders v in the shortest form that parses back to v.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteVector writes v as a single CSV record.
func WriteVector(w io.Writer, v []float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(formatRecord(v)); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteMatrix writes one CSV record per row.
func WriteMatrix(w io.Writer, rows [][]float64) error {
	cw := csv.NewWriter(w)
	for _, row := range rows {
		if err := cw.Write(formatRecord(row)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadVector parses every record in r and concatenates the values. Both a
// single row and a one-value-per-line column decode to the same vector.
func ReadVector(r io.Reader) ([]float64, error) {
	rows, err := readRecords(r)
	if err != nil {
		return nil, err
	}
	var out []float64
	for _, row := range rows {
		out = append(out, row...)
	}
	return out, nil
}

// ReadMatrix parses one row per record and rejects ragged input.
func ReadMatrix(r io.Reader) ([][]float64, error) {
	rows, err := readRecords(r)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(rows); i++ {
		if len(rows[i]) != len(rows[0]) {
			return nil, fmt.Errorf("%w: row %d has %d values, row 0 has %d", ErrRaggedMatrix, i, len(rows[i]), len(rows[0]))
		}
	}
	return rows, nil
}

// ParseVector is ReadVector over a string.
func ParseVector(s string) ([]float64, error) {
	return ReadVector(strings.NewReader(s))
}

// ParseMatrix is ReadMatrix over a string.
func ParseMatrix(s string) ([][]float64, error) {
	return ReadMatrix(strings.NewReader(s))
}

func formatRecord(v []float64) []string {
	record := make([]string, len(v))
	for i, x := range v {
		record[i] = FormatFloat(x)
	}
	return record
}

func readRecords(r io.Reader) ([][]float64, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows [][]float64
	for {
		record, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("csvnum: %w", err)
		}
		row := make([]float64, 0, len(record))
		for i, field := range record {
			field = strings.TrimSpace(field)
			if field == "" && len(record) == 1 {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				line, col := cr.FieldPos(i)
				return nil, fmt.Errorf("csvnum: line %d column %d: %w", line, col, err)
			}
			row = append(row, v)
		}
		if len(row) == 0 {
			continue
		}
		rows = append(rows, row)
	}
}
