package nftgen

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// writePNG writes a solid w×h PNG to root/rel, creating parent directories.
func writePNG(t *testing.T, root, rel string, w, h int, c color.RGBA) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, solid(w, h, c)))
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

var (
	red         = color.RGBA{R: 0xff, A: 0xff}
	green       = color.RGBA{G: 0xff, A: 0xff}
	blue        = color.RGBA{B: 0xff, A: 0xff}
	transparent = color.RGBA{}
)

// threeGroupTree builds a small valid tree for the order
// Background, Body, Hat, with deliberately mismatched directory casing.
func threeGroupTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writePNG(t, root, "background/Blue.png", 4, 4, blue)
	writePNG(t, root, "background/Red.png", 4, 4, red)
	writePNG(t, root, "BODY/Green.png", 4, 4, green)
	writePNG(t, root, "Hat/None.png", 4, 4, transparent)
	writePNG(t, root, "Hat/Cap.png", 4, 4, red)
	writePNG(t, root, "Hat/Crown.png", 4, 4, blue)
	return root
}

var threeGroupOrder = []string{"Background", "Body", "Hat"}

// seqRand replays fixed values.
type seqRand struct {
	vals []float64
	i    int
}

func (r *seqRand) Float64() float64 {
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}
