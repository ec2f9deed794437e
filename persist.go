package fragmentedqueue

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/timzifer/fragmented_queue/internal/csvnum"
	"github.com/timzifer/fragmented_queue/internal/vecmath"
)

const (
	strengthsLabel = "(strengths)"
	vectorsLabel   = "(vectors)"
)

// InitFromData replaces the queue content with strengths[i] paired with a
// copy of vectors[i]. The inputs must have equal length and the vectors one
// shared dimension; otherwise the queue is left unchanged.
func (q *Queue) InitFromData(strengths []float64, vectors [][]float64) error {
	if len(strengths) != len(vectors) {
		return fmt.Errorf("%w: %d strengths for %d vectors", ErrDimensionMismatch, len(strengths), len(vectors))
	}
	for i := 1; i < len(vectors); i++ {
		if len(vectors[i]) != len(vectors[0]) {
			return fmt.Errorf("%w: vector %d has %d values, want %d", ErrDimensionMismatch, i, len(vectors[i]), len(vectors[0]))
		}
	}

	entries := make([]Entry, len(strengths))
	total := 0.0
	for i, s := range strengths {
		entries[i] = Entry{Vector: vecmath.Clone(vectors[i]), Strength: s}
		total += s
	}
	q.setEntries(entries, total)
	return nil
}

// Encode writes the strengths and vectors as two labelled CSV sections.
func (q *Queue) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strengthsLabel + "\n"); err != nil {
		return err
	}
	if err := csvnum.WriteVector(bw, q.Strengths()); err != nil {
		return err
	}
	if _, err := bw.WriteString(vectorsLabel + "\n"); err != nil {
		return err
	}
	if err := csvnum.WriteMatrix(bw, q.Vectors()); err != nil {
		return err
	}
	return bw.Flush()
}

// Decode replaces the queue content with the sections read from r. The input
// must start with the strengths label and contain exactly one vectors label
// after it. Any violation returns an error wrapping ErrMalformedFile and
// leaves the queue unchanged.
func (q *Queue) Decode(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	strengthBlock, vectorBlock, err := splitSections(data)
	if err != nil {
		return err
	}

	strengths, err := csvnum.ParseVector(strengthBlock)
	if err != nil {
		return fmt.Errorf("%w: strengths section: %w", ErrMalformedFile, err)
	}
	vectors, err := csvnum.ParseMatrix(vectorBlock)
	if err != nil {
		return fmt.Errorf("%w: vectors section: %w", ErrMalformedFile, err)
	}
	if len(strengths) != len(vectors) {
		return fmt.Errorf("%w: %d strengths but %d vector rows", ErrMalformedFile, len(strengths), len(vectors))
	}
	return q.InitFromData(strengths, vectors)
}

// WriteToFile encodes the queue into path. The file is written to a
// temporary sibling first and renamed into place once complete.
func (q *Queue) WriteToFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".fragq-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if err := q.Encode(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}

// InitFromFile replaces the queue content with the file at path.
func (q *Queue) InitFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := q.Decode(f); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func splitSections(data []byte) (strengthBlock, vectorBlock string, err error) {
	lines := strings.Split(string(bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))), "\n")

	first := 0
	for first < len(lines) && strings.TrimSpace(lines[first]) == "" {
		first++
	}
	if first == len(lines) || strings.TrimSpace(lines[first]) != strengthsLabel {
		return "", "", fmt.Errorf("%w: expected %s as first line", ErrMalformedFile, strengthsLabel)
	}

	split := -1
	for i := first + 1; i < len(lines); i++ {
		switch strings.TrimSpace(lines[i]) {
		case strengthsLabel:
			return "", "", fmt.Errorf("%w: duplicate %s label on line %d", ErrMalformedFile, strengthsLabel, i+1)
		case vectorsLabel:
			if split >= 0 {
				return "", "", fmt.Errorf("%w: duplicate %s label on line %d", ErrMalformedFile, vectorsLabel, i+1)
			}
			split = i
		}
	}
	if split < 0 {
		return "", "", fmt.Errorf("%w: missing %s label", ErrMalformedFile, vectorsLabel)
	}

	strengthBlock = strings.Join(lines[first+1:split], "\n")
	vectorBlock = strings.Join(lines[split+1:], "\n")
	return strengthBlock, vectorBlock, nil
}
