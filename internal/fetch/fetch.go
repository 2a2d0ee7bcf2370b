// Package fetch materializes the layer directory tree from object storage
// before the catalog is loaded.
package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/setanarut/nftgen/internal/ctxlog"
)

// Object is one listed storage object.
type Object struct {
	Key  string
	Size int64
}

// ObjectStore is the read side of a bucket.
type ObjectStore interface {
	List(ctx context.Context, prefix string) ([]Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Fetcher copies every object under Prefix into Dest, keeping the key's
// path below the prefix.
type Fetcher struct {
	Store  ObjectStore
	Dest   string
	Prefix string
	// Concurrent downloads; values below 1 mean 4.
	Workers int
}

// Fetch downloads all objects and returns how many files were written.
func (f *Fetcher) Fetch(ctx context.Context) (int, error) {
	logger := ctxlog.FromContext(ctx).With("dest", f.Dest, "prefix", f.Prefix)

	// A prefix names a directory, so "layers" must not match "layersX/".
	prefix := f.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	objects, err := f.Store.List(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("list objects: %w", err)
	}

	type job struct {
		key, path string
	}
	var jobs []job
	for _, o := range objects {
		rel, ok := strings.CutPrefix(o.Key, prefix)
		if !ok {
			continue
		}
		rel = strings.TrimPrefix(rel, "/")
		if rel == "" || strings.HasSuffix(rel, "/") {
			continue // directory marker
		}
		if !filepath.IsLocal(filepath.FromSlash(rel)) {
			return 0, fmt.Errorf("object key %q escapes destination", o.Key)
		}
		jobs = append(jobs, job{key: o.Key, path: filepath.Join(f.Dest, filepath.FromSlash(rel))})
	}

	workers := f.Workers
	if workers < 1 {
		workers = 4
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, j := range jobs {
		g.Go(func() error {
			logger.Debug("Downloading object.", "key", j.key)
			return f.download(gctx, j.key, j.path)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	logger.Info("Layer tree fetched.", "files", len(jobs))
	return len(jobs), nil
}

// download writes to a temp file first so an interrupted run never leaves a
// truncated image for the catalog loader to choke on.
func (f *Fetcher) download(ctx context.Context, key, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", key, err)
	}
	body, err := f.Store.Open(ctx, key)
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	defer body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".fetch-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", key, err)
	}
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("copy %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}
