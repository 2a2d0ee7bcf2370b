package fetch

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string]string
	listErr error
	opened  []string
}

func (m *memStore) List(_ context.Context, prefix string) ([]Object, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []Object
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, Object{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (m *memStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	m.opened = append(m.opened, key)
	m.mu.Unlock()
	v, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(strings.NewReader(v)), nil
}

func TestFetch(t *testing.T) {
	dest := t.TempDir()
	store := &memStore{objects: map[string]string{
		"layers/":                    "",
		"layers/Background/Blue.png": "blue",
		"layers/Hat/Cap.png":         "cap",
		"layers/Hat/weights.yaml":    "Cap: 2\n",
		"other/Ignored.png":          "nope",
	}}
	f := &Fetcher{Store: store, Dest: dest, Prefix: "layers/", Workers: 2}

	n, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for rel, want := range map[string]string{
		"Background/Blue.png": "blue",
		"Hat/Cap.png":         "cap",
		"Hat/weights.yaml":    "Cap: 2\n",
	} {
		got, err := os.ReadFile(filepath.Join(dest, filepath.FromSlash(rel)))
		require.NoError(t, err, rel)
		assert.Equal(t, want, string(got))
	}
	assert.NoFileExists(t, filepath.Join(dest, "Ignored.png"))

	leftovers, err := filepath.Glob(filepath.Join(dest, "*", ".fetch-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFetchPrefixStopsAtPathBoundary(t *testing.T) {
	for _, prefix := range []string{"layers", "layers/"} {
		t.Run(prefix, func(t *testing.T) {
			dest := t.TempDir()
			store := &memStore{objects: map[string]string{
				"layers/Hat/Cap.png":   "cap",
				"layersX/a.png":        "x",
				"layers-old/Hat/b.png": "old",
			}}
			n, err := (&Fetcher{Store: store, Dest: dest, Prefix: prefix}).Fetch(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 1, n)
			assert.FileExists(t, filepath.Join(dest, "Hat", "Cap.png"))
			assert.NoFileExists(t, filepath.Join(dest, "X", "a.png"))
			assert.NoDirExists(t, filepath.Join(dest, "-old"))
			assert.Equal(t, []string{"layers/Hat/Cap.png"}, store.opened)
		})
	}

	// Stores that ignore the prefix are filtered again on our side.
	dest := t.TempDir()
	store := &unfilteredStore{memStore{objects: map[string]string{
		"layers/Hat/Cap.png": "cap",
		"layersX/a.png":      "x",
	}}}
	n, err := (&Fetcher{Store: store, Dest: dest, Prefix: "layers"}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, filepath.Join(dest, "X", "a.png"))
}

type unfilteredStore struct{ memStore }

func (u *unfilteredStore) List(ctx context.Context, _ string) ([]Object, error) {
	return u.memStore.List(ctx, "")
}

func TestFetchRejectsEscapingKeys(t *testing.T) {
	dest := t.TempDir()
	store := &memStore{objects: map[string]string{
		"layers/../../etc/passwd": "x",
	}}
	_, err := (&Fetcher{Store: store, Dest: dest, Prefix: "layers/"}).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes destination")
	assert.Empty(t, store.opened)
}

func TestFetchErrors(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		store := &memStore{listErr: errors.New("access denied")}
		_, err := (&Fetcher{Store: store, Dest: t.TempDir()}).Fetch(context.Background())
		assert.ErrorContains(t, err, "access denied")
	})
	t.Run("open", func(t *testing.T) {
		store := &brokenStore{}
		_, err := (&Fetcher{Store: store, Dest: t.TempDir()}).Fetch(context.Background())
		assert.ErrorContains(t, err, "get Hat/Cap.png")
	})
}

type brokenStore struct{}

func (brokenStore) List(context.Context, string) ([]Object, error) {
	return []Object{{Key: "Hat/Cap.png"}}, nil
}

func (brokenStore) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("boom")
}
