package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fq "github.com/timzifer/fragmented_queue"
	"github.com/timzifer/fragmented_queue/internal/config"
)

// run executes fragq with args against a config file inside dir.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cfg := filepath.Join(dir, "fragq.yaml")
	if _, err := os.Stat(cfg); os.IsNotExist(err) {
		body := "archive:\n  path: " + filepath.Join(dir, "archive.db") + "\nlogging:\n  level: error\n"
		require.NoError(t, os.WriteFile(cfg, []byte(body), 0o644))
	}

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", cfg}, args...))
	err := root.Execute()
	return out.String(), err
}

func writeQueue(t *testing.T, path string, strengths []float64, vectors [][]float64) {
	t.Helper()
	q := fq.NewQueue(1.0)
	require.NoError(t, q.InitFromData(strengths, vectors))
	require.NoError(t, q.WriteToFile(path))
}

func readQueue(t *testing.T, path string) *fq.Queue {
	t.Helper()
	q := fq.NewQueue(1.0)
	require.NoError(t, q.InitFromFile(path))
	return q
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "q.txt")
	writeQueue(t, in, []float64{0.9, 0.2, 0.8}, [][]float64{{1, 2}, {3, 4}, {5, 6}})

	out, err := run(t, dir, "inspect", in)
	require.NoError(t, err)
	assert.Contains(t, out, "entries")
	assert.Contains(t, out, "feature groups")
	assert.Contains(t, out, "step 0")
	assert.Contains(t, out, "step 2")
}

func TestInspectVerbose(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "q.txt")
	writeQueue(t, in, []float64{0.9, 0.2}, [][]float64{{1}, {2}})

	out, err := run(t, dir, "inspect", "--verbose", in)
	require.NoError(t, err)
	assert.Contains(t, out, "step 0")
}

func TestRegenFromMatrix(t *testing.T) {
	dir := t.TempDir()
	matrix := filepath.Join(dir, "m.csv")
	require.NoError(t, os.WriteFile(matrix, []byte("1,2\n3,4\n"), 0o644))
	out := filepath.Join(dir, "q.txt")

	_, err := run(t, dir, "regen", matrix, out, "--spacing", "2")
	require.NoError(t, err)

	q := readQueue(t, out)
	assert.Equal(t, []float64{0, 1, 0, 1}, q.Strengths())
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, q.FeatureMatrix())

	back := filepath.Join(dir, "back.csv")
	_, err = run(t, dir, "features", out, back)
	require.NoError(t, err)
	body, err := os.ReadFile(back)
	require.NoError(t, err)
	assert.Equal(t, "1,2\n3,4\n", string(body))
}

func TestRotate(t *testing.T) {
	dir := t.TempDir()
	in, out := filepath.Join(dir, "in.txt"), filepath.Join(dir, "out.txt")
	writeQueue(t, in, []float64{0.1, 0.2, 0.3, 0.4}, [][]float64{{0}, {1}, {2}, {3}})

	_, err := run(t, dir, "rotate", in, out)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{2}, {3}, {0}, {1}}, readQueue(t, out).Vectors())
}

func TestCrossIsReproducibleWithSeed(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt")
	writeQueue(t, a, []float64{0.9, 0.9, 0.9, 0.9}, [][]float64{{0}, {1}, {2}, {3}})
	writeQueue(t, b, []float64{0.9, 0.9, 0.9, 0.9}, [][]float64{{10}, {11}, {12}, {13}})

	outs := make([][][]float64, 2)
	for i := range outs {
		oa, ob := filepath.Join(dir, "oa.txt"), filepath.Join(dir, "ob.txt")
		_, err := run(t, dir, "--seed", "99", "cross", a, b, oa, ob, "--swaps", "2")
		require.NoError(t, err)
		outs[i] = readQueue(t, oa).Vectors()
	}
	assert.Equal(t, outs[0], outs[1])
}

func TestAverageWithWeights(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt")
	out := filepath.Join(dir, "avg.txt")
	writeQueue(t, a, []float64{0.5, 0.5}, [][]float64{{0}, {4}})
	writeQueue(t, b, []float64{0.5, 0.5}, [][]float64{{8}, {8}})

	_, err := run(t, dir, "average", out, a, b, "--weights", "0.75,0.25")
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{2}, {5}}, readQueue(t, out).Vectors())

	_, err = run(t, dir, "average", out, a, b, "--weights", "1")
	assert.Error(t, err)
}

func TestFailedOperatorWritesNothing(t *testing.T) {
	dir := t.TempDir()
	src, target := filepath.Join(dir, "src.txt"), filepath.Join(dir, "target.txt")
	out := filepath.Join(dir, "out.txt")
	writeQueue(t, src, []float64{0.9}, [][]float64{{1}})
	writeQueue(t, target, []float64{0.05}, [][]float64{{1}})

	_, err := run(t, dir, "interpolate", src, target, out)
	require.Error(t, err)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestArchiveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "q.txt")
	writeQueue(t, in, []float64{0.9, 0.3}, [][]float64{{1, 2}, {3, 4}})

	out, err := run(t, dir, "archive", "put", "herd", "0", in)
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	out, err = run(t, dir, "archive", "list", "herd")
	require.NoError(t, err)
	assert.Contains(t, out, id)

	restored := filepath.Join(dir, "restored.txt")
	_, err = run(t, dir, "archive", "get", id, restored)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, readQueue(t, restored).Vectors())

	_, err = run(t, dir, "archive", "get", "not-a-uuid", restored)
	assert.Error(t, err)
}

func TestMutateAndShuffle(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	strengths := []float64{0.9, 0.2, 0.7, 0.4}
	writeQueue(t, in, strengths, [][]float64{{0, 0}, {1, 1}, {2, 2}, {3, 3}})

	mutated := filepath.Join(dir, "mutated.txt")
	_, err := run(t, dir, "--seed", "5", "mutate", in, mutated, "--magnitude", "0.5")
	require.NoError(t, err)
	q := readQueue(t, mutated)
	assert.Equal(t, strengths, q.Strengths())
	assert.NotEqual(t, [][]float64{{0, 0}, {1, 1}, {2, 2}, {3, 3}}, q.Vectors())

	shuffled := filepath.Join(dir, "shuffled.txt")
	_, err = run(t, dir, "--seed", "5", "shuffle", in, shuffled, "--vectors-only")
	require.NoError(t, err)
	q = readQueue(t, shuffled)
	assert.Equal(t, strengths, q.Strengths())
	assert.ElementsMatch(t, [][]float64{{0, 0}, {1, 1}, {2, 2}, {3, 3}}, q.Vectors())
}

func TestInvalidConfigIsRejected(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fragq.yaml"), []byte("queue:\n  fragment_strength: -1\n"), 0o644))

	_, err := run(t, dir, "inspect", filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

// evolvedVectors returns the vectors of every queue file in dir.
func evolvedVectors(t *testing.T, dir string) [][][]float64 {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	require.NoError(t, err)
	out := make([][][]float64, 0, len(paths))
	for _, p := range paths {
		out = append(out, readQueue(t, p).Vectors())
	}
	return out
}

func TestEvolveDirectory(t *testing.T) {
	dir := t.TempDir()
	herd := filepath.Join(dir, "herd")
	require.NoError(t, os.MkdirAll(herd, 0o755))
	zeros := [][]float64{{0, 0}, {0, 0}, {0, 0}}
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		writeQueue(t, filepath.Join(herd, name), []float64{0.9, 0.9, 0.9}, zeros)
	}

	runs := make([][][][]float64, 2)
	for i := range runs {
		outDir := filepath.Join(dir, fmt.Sprintf("out%d", i))
		out, err := run(t, dir, "--seed", "7", "evolve", herd,
			"--generations", "2", "--offspring", "1", "--magnitude", "1", "--out", outDir)
		require.NoError(t, err)
		assert.Contains(t, out, "herd")
		assert.Contains(t, out, "generation")
		runs[i] = evolvedVectors(t, outDir)
	}

	// three members plus one offspring per generation
	require.Len(t, runs[0], 5)
	for i := range runs[0] {
		for j := i + 1; j < len(runs[0]); j++ {
			assert.NotEqual(t, runs[0][i], runs[0][j], "members %d and %d share noise", i, j)
		}
	}
	assert.ElementsMatch(t, runs[0], runs[1])

	out, err := run(t, dir, "archive", "populations")
	require.NoError(t, err)
	assert.Contains(t, out, "1 populations")
	assert.Contains(t, out, "herd")

	out, err = run(t, dir, "archive", "list", "herd")
	require.NoError(t, err)
	assert.Contains(t, out, "gen 1")
	assert.Contains(t, out, "gen 2")
}

func TestEvolveRejectsEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "evolve", t.TempDir())
	assert.Error(t, err)

	_, err = run(t, dir, "evolve", dir, "--generations", "0")
	assert.Error(t, err)
}

func TestEncodeAndDecode(t *testing.T) {
	dir := t.TempDir()
	steps := filepath.Join(dir, "steps.csv")
	require.NoError(t, os.WriteFile(steps, []byte("1,2,1\n3,4,1\n"), 0o644))
	q := filepath.Join(dir, "q.txt")

	_, err := run(t, dir, "encode", steps, q)
	require.NoError(t, err)
	encoded := readQueue(t, q)
	assert.Equal(t, []float64{1, 1}, encoded.Strengths())
	assert.Equal(t, [][]float64{{1, 2}, {3, 4}}, encoded.Vectors())

	decoded := filepath.Join(dir, "out.csv")
	_, err = run(t, dir, "decode", q, decoded)
	require.NoError(t, err)
	body, err := os.ReadFile(decoded)
	require.NoError(t, err)
	assert.Equal(t, "1,2\n3,4\n", string(body))

	column := filepath.Join(dir, "column.csv")
	require.NoError(t, os.WriteFile(column, []byte("1\n2\n"), 0o644))
	_, err = run(t, dir, "encode", column, q)
	assert.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf", "fragq.yaml")

	out, err := run(t, dir, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, config.DefaultConfig().Evolution, cfg.Evolution)

	_, err = run(t, dir, "--config", path, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}
