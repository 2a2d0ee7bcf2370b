package utils

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

type PaletteMethod int

const (
	PaletteMethodDominantColor PaletteMethod = iota
	PaletteMethodKMeans
)

func (m PaletteMethod) String() string {
	switch m {
	case PaletteMethodKMeans:
		return "kmeans"
	default:
		return "dominantcolor"
	}
}

// ParsePaletteMethod is the inverse of PaletteMethod.String.
func ParsePaletteMethod(s string) (PaletteMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "dominantcolor", "dominant":
		return PaletteMethodDominantColor, nil
	case "kmeans":
		return PaletteMethodKMeans, nil
	}
	return 0, fmt.Errorf("unknown palette method %q", s)
}

type weightedColor struct {
	Col    colorful.Color
	Weight float64
}

// ExtractPalette returns up to k representative colors of img, darkest
// first. Fully transparent pixels are ignored by the k-means method.
func ExtractPalette(img image.Image, k int, method PaletteMethod) []colorful.Color {
	if k <= 0 || img.Bounds().Empty() {
		return nil
	}
	var cands []weightedColor
	if method == PaletteMethodKMeans {
		cands = kmeansCandidates(img, max(k*4, k+2))
		if len(cands) == 0 {
			slog.Debug("kmeans palette empty, falling back to dominantcolor")
		}
	}
	if len(cands) == 0 {
		cands = dominantCandidates(img, max(24, k*8))
	}
	palette := pickDiverse(cands, k)
	SortPaletteByBrightness(palette)
	return palette
}

func dominantCandidates(img image.Image, n int) []weightedColor {
	found := dominantcolor.FindWeight(img, n)
	out := make([]weightedColor, 0, len(found))
	for _, c := range found {
		col, _ := colorful.MakeColor(c.RGBA)
		out = append(out, weightedColor{Col: col.Clamped(), Weight: max(c.Weight, 1e-6)})
	}
	return out
}

func kmeansCandidates(img image.Image, n int) []weightedColor {
	b := img.Bounds()
	const maxSamples = 12000
	step := 1
	if area := b.Dx() * b.Dy(); area > maxSamples {
		step = int(math.Sqrt(float64(area)/maxSamples)) + 1
	}

	var obs clusters.Observations
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			r, g, bl, a := img.At(x, y).RGBA()
			if a == 0 {
				continue
			}
			obs = append(obs, clusters.Coordinates{
				float64(r) / 0xffff,
				float64(g) / 0xffff,
				float64(bl) / 0xffff,
			})
		}
	}
	n = min(n, len(obs))
	if n == 0 {
		return nil
	}
	cc, err := kmeans.New().Partition(obs, n)
	if err != nil {
		return nil
	}

	out := make([]weightedColor, 0, len(cc))
	for _, c := range cc {
		if len(c.Center) < 3 || len(c.Observations) == 0 {
			continue
		}
		col := colorful.Color{R: c.Center[0], G: c.Center[1], B: c.Center[2]}.Clamped()
		out = append(out, weightedColor{Col: col, Weight: float64(len(c.Observations))})
	}
	return out
}

// pickDiverse seeds with the heaviest candidate, then repeatedly adds the
// candidate farthest (in Lab) from everything picked so far, scaled by a
// dampened weight so tiny specks do not win on distance alone.
func pickDiverse(cands []weightedColor, k int) []colorful.Color {
	if len(cands) == 0 {
		return nil
	}
	k = min(k, len(cands))
	maxW := 0.0
	for _, c := range cands {
		maxW = max(maxW, c.Weight)
	}

	picked := []int{slices.IndexFunc(cands, func(c weightedColor) bool { return c.Weight == maxW })}
	used := make([]bool, len(cands))
	used[picked[0]] = true

	for len(picked) < k {
		best, bestScore := -1, -1.0
		for i, c := range cands {
			if used[i] {
				continue
			}
			nearest := math.MaxFloat64
			for _, p := range picked {
				nearest = min(nearest, c.Col.DistanceLab(cands[p].Col))
			}
			score := nearest * (0.55 + 0.45*math.Sqrt(c.Weight/maxW))
			if score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			break
		}
		used[best] = true
		picked = append(picked, best)
	}

	out := make([]colorful.Color, len(picked))
	for i, p := range picked {
		out[i] = cands[p].Col
	}
	return out
}

// SortPaletteByBrightness orders colors by relative luminance, darkest first.
func SortPaletteByBrightness(palette []colorful.Color) {
	luma := func(c colorful.Color) float64 {
		r, g, b := c.LinearRgb()
		return 0.2126*r + 0.7152*g + 0.0722*b
	}
	slices.SortStableFunc(palette, func(a, b colorful.Color) int {
		switch la, lb := luma(a), luma(b); {
		case la < lb:
			return -1
		case la > lb:
			return 1
		}
		return 0
	})
}

// HexPalette renders the palette as "#rrggbb" strings.
func HexPalette(palette []colorful.Color) []string {
	out := make([]string, len(palette))
	for i, c := range palette {
		out[i] = c.Clamped().Hex()
	}
	return out
}
