package nftgen

import (
	"image"
	"io"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/setanarut/nftgen/utils"
)

type Options struct {
	// Number of representative colors extracted from each composite.
	// 0 disables extraction. Extraction walks the whole canvas, so keep it
	// small (3-8) for interactive use.
	PaletteSize int
	// Palette extraction method. Dominant-color is deterministic for a given
	// image; k-means seeds itself and may vary between runs.
	PaletteMethod utils.PaletteMethod
}

func DefaultOptions() Options {
	return Options{
		PaletteSize:   5,
		PaletteMethod: utils.PaletteMethodDominantColor,
	}
}

// Builder turns a Catalog into composites. It holds no per-generation state,
// so one Builder serves concurrent callers as long as each passes its own Rand.
type Builder struct {
	Catalog *Catalog
	Options Options
}

func NewBuilder(catalog *Catalog, opt Options) *Builder {
	return &Builder{
		Catalog: catalog,
		Options: opt,
	}
}

// Result is one generated collectible. It is owned by the caller.
type Result struct {
	Image   *image.RGBA
	Traits  []Trait
	Palette []colorful.Color
}

// Select draws one option per group, bottom to top.
func (b *Builder) Select(rng Rand) []Selection {
	groups := b.Catalog.groups
	out := make([]Selection, len(groups))
	for i := range groups {
		opt := Select(&groups[i], rng)
		out[i] = Selection{Group: groups[i].Name, Trait: opt.Name, Image: opt.Image}
	}
	return out
}

// Build selects and composites one collectible.
func (b *Builder) Build(rng Rand) (*Result, error) {
	img, traits, err := Composite(b.Select(rng))
	if err != nil {
		return nil, err
	}
	res := &Result{Image: img, Traits: traits}
	if b.Options.PaletteSize > 0 {
		res.Palette = utils.ExtractPalette(img, b.Options.PaletteSize, b.Options.PaletteMethod)
	}
	return res, nil
}

func (r *Result) EncodePNG(w io.Writer) error {
	return utils.EncodePNG(w, r.Image)
}

func (r *Result) PNG() ([]byte, error) {
	return utils.PNGBytes(r.Image)
}

// HexPalette returns the palette as "#rrggbb" strings, darkest first.
func (r *Result) HexPalette() []string {
	return utils.HexPalette(r.Palette)
}
