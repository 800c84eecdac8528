// Package palette enforces the canvas's fixed, 64-entry indexed color table.
//
// Index 0 is reserved as transparent. Project targets treat index 0 as "no
// requirement here"; everywhere else it means "the canvas is blank at this
// pixel". There is exactly one palette system-wide — it is not configurable
// and not expected to change, so it is compiled in rather than loaded from a
// file.
package palette

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sort"
)

// hexColors is the official canvas color table. The first entry is the
// transparency placeholder, not a real paintable color.
var hexColors = []string{
	"FF00FF", "000000", "3C3C3C", "787878", "D2D2D2", "FFFFFF", "600018", "ED1C24",
	"FF7F27", "F6AA09", "F9DD3B", "FFFABC", "0EB968", "13E67B", "87FF5E", "0C816E",
	"10AEA6", "13E1BE", "60F7F2", "28509E", "4093E4", "6B50F6", "99B1FB", "780C99",
	"AA38B9", "E09FF9", "CB007A", "EC1F80", "F38DA9", "684634", "95682A", "F8B277",
	"AAAAAA", "A50E1E", "FA8072", "E45C1A", "9C8431", "C5AD31", "E8D45F", "4A6B3A",
	"5A944A", "84C573", "0F799F", "BBFAF2", "7DC7FF", "4D31B8", "4A4284", "7A71C4",
	"B5AEF1", "9B5249", "D18078", "FAB6A4", "DBA463", "7B6352", "9C846B", "D6B594",
	"D18051", "FFC5A5", "6D643F", "948C6B", "CDC59E", "333941", "6D758D", "B3B9D1",
}

// aliasRGB maps a color that upstream renderers sometimes report in place of
// the canonical palette entry. Reported once for a mistyped teal variant.
var aliasRGB = map[uint32]uint32{
	0x10AE82: 0x10AEA6,
}

// Violation reports that an image contained a color outside the palette.
type Violation struct {
	RGB uint32
}

func (v *Violation) Error() string {
	return fmt.Sprintf("palette: color #%06X not in palette", v.RGB)
}

// Table is an immutable, process-wide indexed color table.
type Table struct {
	colorModel color.Palette
	rgbToIndex map[uint32]uint8
	sortedRGB  []uint32
}

// New builds the fixed canvas palette.
func New() *Table {
	pal := make(color.Palette, len(hexColors))
	rgbToIndex := make(map[uint32]uint8, len(hexColors))
	sortedRGB := make([]uint32, 0, len(hexColors)-1)

	for i, hex := range hexColors {
		r, g, b := hexRGB(hex)
		if i == 0 {
			pal[i] = color.RGBA{R: r, G: g, B: b, A: 0}
			continue
		}
		pal[i] = color.RGBA{R: r, G: g, B: b, A: 255}
		rgb := rgbKey(r, g, b)
		rgbToIndex[rgb] = uint8(i)
		sortedRGB = append(sortedRGB, rgb)
	}
	for alias, canonical := range aliasRGB {
		rgbToIndex[alias] = rgbToIndex[canonical]
	}
	sort.Slice(sortedRGB, func(i, j int) bool { return sortedRGB[i] < sortedRGB[j] })

	return &Table{colorModel: pal, rgbToIndex: rgbToIndex, sortedRGB: sortedRGB}
}

func hexRGB(hex string) (r, g, b uint8) {
	var v uint32
	fmt.Sscanf(hex, "%06X", &v)
	return uint8(v >> 16), uint8(v >> 8), uint8(v)
}

func rgbKey(r, g, b uint8) uint32 {
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// Lookup returns the palette index for an RGBA color, or a *Violation error
// if the color (ignoring fully-transparent pixels, which always map to
// index 0) is not in the table.
func (t *Table) Lookup(c color.Color) (uint8, error) {
	r, g, b, a := c.RGBA()
	if a == 0 {
		return 0, nil
	}
	// RGBA() returns 16-bit premultiplied components; reduce to 8-bit.
	r8, g8, b8 := uint8(r>>8), uint8(g>>8), uint8(b>>8)
	rgb := rgbKey(r8, g8, b8)
	if idx, ok := t.rgbToIndex[rgb]; ok {
		return idx, nil
	}
	return 0, &Violation{RGB: rgb}
}

// NewImage returns a blank image.Paletted of the given size, fully transparent
// (every pixel at index 0).
func (t *Table) NewImage(w, h int) *image.Paletted {
	return image.NewPaletted(image.Rect(0, 0, w, h), t.colorModel)
}

// Ensure converts img to this palette, failing if any pixel's color is not
// in the table. If img is already a correctly-paletted image it is returned
// as-is (no copy).
func (t *Table) Ensure(img image.Image) (*image.Paletted, error) {
	if p, ok := img.(*image.Paletted); ok && t.samePalette(p.Palette) {
		return p, nil
	}

	bounds := img.Bounds()
	out := t.NewImage(bounds.Dx(), bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			idx, err := t.Lookup(img.At(x, y))
			if err != nil {
				return nil, err
			}
			out.SetColorIndex(x-bounds.Min.X, y-bounds.Min.Y, idx)
		}
	}
	return out, nil
}

func (t *Table) samePalette(p color.Palette) bool {
	if len(p) != len(t.colorModel) {
		return false
	}
	for i := range p {
		if p[i] != t.colorModel[i] {
			return false
		}
	}
	return true
}

// Decode reads a PNG and returns it conformed to the palette.
func (t *Table) Decode(r io.Reader) (*image.Paletted, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("palette: decode png: %w", err)
	}
	return t.Ensure(img)
}

// Encode writes a paletted image as PNG.
func (t *Table) Encode(w io.Writer, img *image.Paletted) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("palette: encode png: %w", err)
	}
	return nil
}

// EncodeBytes is a convenience wrapper around Encode returning the bytes.
func (t *Table) EncodeBytes(img *image.Paletted) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
