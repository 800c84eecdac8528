package palette

import (
	"bytes"
	"image"
	"image/color"
	"testing"
)

func sampleImage(t *Table) *image.Paletted {
	img := t.NewImage(4, 4)
	// Fill with a mix of transparent and real palette colors.
	img.SetColorIndex(0, 0, 0)
	img.SetColorIndex(1, 0, 6)
	img.SetColorIndex(2, 0, 33)
	img.SetColorIndex(3, 0, 63)
	for y := 1; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetColorIndex(x, y, uint8((x+y)%64))
		}
	}
	return img
}

func TestEnsureRejectsUnknownColor(t *testing.T) {
	tbl := New()
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 1, G: 2, B: 3, A: 255})

	_, err := tbl.Ensure(img)
	if err == nil {
		t.Fatal("expected palette violation for non-palette color")
	}
	var violation *Violation
	if !isViolation(err, &violation) {
		t.Fatalf("expected *Violation, got %T: %v", err, err)
	}
}

func isViolation(err error, target **Violation) bool {
	v, ok := err.(*Violation)
	if ok {
		*target = v
	}
	return ok
}

func TestEnsureAcceptsTransparentPixel(t *testing.T) {
	tbl := New()
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 0})

	out, err := tbl.Ensure(img)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ColorIndexAt(0, 0) != 0 {
		t.Fatalf("transparent pixel should map to index 0, got %d", out.ColorIndexAt(0, 0))
	}
}

func TestEnsureEncodeDecodeRoundTrip(t *testing.T) {
	tbl := New()
	original := sampleImage(tbl)

	ensured, err := tbl.Ensure(original)
	if err != nil {
		t.Fatalf("Ensure(original): %v", err)
	}

	var buf bytes.Buffer
	if err := tbl.Encode(&buf, ensured); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := tbl.Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	reEnsured, err := tbl.Ensure(decoded)
	if err != nil {
		t.Fatalf("Ensure(decoded): %v", err)
	}

	bounds := ensured.Bounds()
	if reEnsured.Bounds() != bounds {
		t.Fatalf("bounds mismatch: %v vs %v", reEnsured.Bounds(), bounds)
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if got, want := reEnsured.ColorIndexAt(x, y), ensured.ColorIndexAt(x, y); got != want {
				t.Fatalf("pixel (%d,%d): got index %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestLookupAliasColor(t *testing.T) {
	tbl := New()
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 0x10, G: 0xAE, B: 0x82, A: 255})

	idx, err := tbl.Lookup(img.At(0, 0))
	if err != nil {
		t.Fatalf("unexpected error for alias color: %v", err)
	}
	canonicalIdx, _ := tbl.Lookup(color.RGBA{R: 0x10, G: 0xAE, B: 0xA6, A: 255})
	if idx != canonicalIdx {
		t.Fatalf("alias color mapped to %d, want canonical index %d", idx, canonicalIdx)
	}
}
