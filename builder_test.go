package nftgen

import (
	"bytes"
	"context"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/setanarut/nftgen/utils"
)

func newTestBuilder(t *testing.T, opt Options) *Builder {
	t.Helper()
	c, err := LoadCatalog(context.Background(), threeGroupTree(t), threeGroupOrder)
	require.NoError(t, err)
	return NewBuilder(c, opt)
}

func TestBuildIsDeterministicForSeed(t *testing.T) {
	b := newTestBuilder(t, Options{})
	for seed := int64(1); seed <= 10; seed++ {
		r1, _ := NewRand(seed)
		r2, _ := NewRand(seed)
		a, err := b.Build(r1)
		require.NoError(t, err)
		c, err := b.Build(r2)
		require.NoError(t, err)
		assert.Equal(t, a.Traits, c.Traits)
		assert.Equal(t, a.Image.Pix, c.Image.Pix)
		assert.Nil(t, a.Palette)
	}
}

func TestBuildOneTraitPerGroup(t *testing.T) {
	b := newTestBuilder(t, Options{})
	rng, _ := NewRand(3)
	seen := map[string]bool{}
	for range 50 {
		res, err := b.Build(rng)
		require.NoError(t, err)
		require.Len(t, res.Traits, 3)
		for i, tr := range res.Traits {
			assert.Equal(t, threeGroupOrder[i], tr.Group)
			g, _ := b.Catalog.Group(tr.Group)
			assert.Contains(t, g.Traits(), tr.Name)
		}
		seen[res.Traits[2].Name] = true
	}
	assert.Len(t, seen, 3, "every hat should show up in 50 draws")
}

func TestBuildConcurrent(t *testing.T) {
	b := newTestBuilder(t, Options{})
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng, _ := NewRand(seed)
			for range 20 {
				_, err := b.Build(rng)
				assert.NoError(t, err)
			}
		}(int64(i + 1))
	}
	wg.Wait()
}

func TestBuildPalette(t *testing.T) {
	for _, method := range []utils.PaletteMethod{utils.PaletteMethodDominantColor, utils.PaletteMethodKMeans} {
		t.Run(method.String(), func(t *testing.T) {
			b := newTestBuilder(t, Options{PaletteSize: 3, PaletteMethod: method})
			rng, _ := NewRand(1)
			res, err := b.Build(rng)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(res.Palette), 3)
			for _, h := range res.HexPalette() {
				assert.Regexp(t, `^#[0-9a-f]{6}$`, h)
			}
		})
	}
}

func TestResultPNG(t *testing.T) {
	b := newTestBuilder(t, Options{})
	rng, _ := NewRand(9)
	res, err := b.Build(rng)
	require.NoError(t, err)

	data, err := res.PNG()
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, res.Image.Bounds(), img.Bounds())

	var buf bytes.Buffer
	require.NoError(t, res.EncodePNG(&buf))
	assert.Equal(t, data, buf.Bytes())
}

func TestBuildDimensionMismatch(t *testing.T) {
	groups := []LayerGroup{
		{Name: "Background", Options: []LayerOption{{Name: "Blue", Weight: 1, Image: solid(100, 100, blue)}}},
		{Name: "Hat", Options: []LayerOption{{Name: "Tiny", Weight: 1, Image: solid(50, 50, red)}}},
	}
	c, err := NewCatalog(groups, []string{"Background", "Hat"})
	require.NoError(t, err)

	res, err := NewBuilder(c, DefaultOptions()).Build(&seqRand{vals: []float64{0}})
	assert.Nil(t, res)
	assert.True(t, IsKind(err, KindDimension))
}
