package population

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	fq "github.com/timzifer/fragmented_queue"
)

// FileExt is the extension of queue files inside a population directory.
const FileExt = ".txt"

// maxParallelFiles bounds the goroutines used by LoadDir and SaveDir.
const maxParallelFiles = 8

// LoadDir reads every queue file of dir into a new population named after
// the directory. Files named <uuid>.txt keep their id; any other file gets a
// fresh one. Members are ordered by file name, and the opts of each member
// are applied in that order.
func LoadDir(ctx context.Context, dir string, fragmentStrength float64, opts ...fq.Option) (*Population, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*"+FileExt))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	// Queues are built in file order so a seeded option hands out its
	// streams deterministically; only the file reads fan out.
	queues := make([]*fq.Queue, len(paths))
	for i := range paths {
		queues[i] = fq.NewQueue(fragmentStrength, opts...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFiles)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return queues[i].InitFromFile(path)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p := New(filepath.Base(dir))
	for i, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), FileExt)
		id, err := uuid.Parse(name)
		if err != nil {
			id = uuid.New()
		}
		if _, err := p.AddWithID(id, queues[i]); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	return p, nil
}

// SaveDir writes every member to dir as <id>.txt, creating dir if needed.
func SaveDir(ctx context.Context, p *Population, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFiles)
	for _, m := range p.Members() {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return m.Queue.WriteToFile(filepath.Join(dir, m.ID.String()+FileExt))
		})
	}
	return g.Wait()
}
