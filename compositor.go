package nftgen

import (
	"image"
	"strings"
)

// Selection is the option chosen for one group, ready to composite.
type Selection struct {
	Group string
	Trait string
	Image image.Image
}

// Trait records which option a group contributed to a composite.
type Trait struct {
	Group string `json:"group"`
	Name  string `json:"trait"`
}

// FormatTraits renders traits as "Background: Blue, Hat: Cap".
func FormatTraits(traits []Trait) string {
	parts := make([]string, len(traits))
	for i, t := range traits {
		parts[i] = t.Group + ": " + t.Name
	}
	return strings.Join(parts, ", ")
}

// Composite stacks selections bottom to top onto a fresh canvas the size of
// the first selection. All sizes are checked before any pixel is written, so a
// mismatch never yields a partial image.
//
// Composite panics when selections is empty.
func Composite(selections []Selection) (*image.RGBA, []Trait, error) {
	if len(selections) == 0 {
		panic("nftgen: composite of zero layers")
	}
	size := selections[0].Image.Bounds().Size()
	for _, s := range selections[1:] {
		if got := s.Image.Bounds().Size(); got != size {
			return nil, nil, &DimensionMismatchError{Group: s.Group, Trait: s.Trait, Want: size, Got: got}
		}
	}

	canvas := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	traits := make([]Trait, len(selections))
	for i, s := range selections {
		over(canvas, s.Image)
		traits[i] = Trait{Group: s.Group, Name: s.Trait}
	}
	return canvas, traits, nil
}

// ============ Blending ============

// over alpha-composites src onto dst (same size, dst anchored at 0,0) with
// Porter-Duff source-over on premultiplied 16-bit channels:
//
//	out = src + dst*(1-αsrc)
//
// applied to R, G, B and A alike.
func over(dst *image.RGBA, src image.Image) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	if s, ok := src.(*image.RGBA); ok {
		for y := range h {
			so := s.PixOffset(b.Min.X, b.Min.Y+y)
			do := dst.PixOffset(0, y)
			for x := range w {
				sp := s.Pix[so+4*x : so+4*x+4 : so+4*x+4]
				blend(dst.Pix[do+4*x:do+4*x+4:do+4*x+4],
					uint32(sp[0])*0x101, uint32(sp[1])*0x101, uint32(sp[2])*0x101, uint32(sp[3])*0x101)
			}
		}
		return
	}

	for y := range h {
		do := dst.PixOffset(0, y)
		for x := range w {
			r, g, bl, a := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			blend(dst.Pix[do+4*x:do+4*x+4:do+4*x+4], r, g, bl, a)
		}
	}
}

// blend writes one source-over pixel into d (8-bit premultiplied RGBA).
// s* are 16-bit premultiplied source channels.
func blend(d []uint8, sr, sg, sb, sa uint32) {
	const m = 0xffff
	switch sa {
	case 0:
		return
	case m:
		d[0], d[1], d[2], d[3] = uint8(sr>>8), uint8(sg>>8), uint8(sb>>8), 0xff
		return
	}
	a := m - sa
	d[0] = uint8((uint32(d[0])*0x101*a/m + sr) >> 8)
	d[1] = uint8((uint32(d[1])*0x101*a/m + sg) >> 8)
	d[2] = uint8((uint32(d[2])*0x101*a/m + sb) >> 8)
	d[3] = uint8((uint32(d[3])*0x101*a/m + sa) >> 8)
}
