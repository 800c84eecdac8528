package differ

import (
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/wplace-tools/pixelwatch/internal/config"
	"github.com/wplace-tools/pixelwatch/internal/geometry"
	"github.com/wplace-tools/pixelwatch/internal/palette"
)

// loadTargetImage reads a project's target file. A missing target is a
// configuration error, not a transient condition, so it is always reported.
func loadTargetImage(nest config.Nest, pal *palette.Table, tx, ty, px, py int, ownerID uint) (*image.Paletted, error) {
	f, err := os.Open(nest.ProjectTargetPath(ownerID, tx, ty, px, py))
	if err != nil {
		return nil, fmt.Errorf("open target: %w", err)
	}
	defer f.Close()
	return pal.Decode(f)
}

// loadOrBlankSnapshot reads a project's previous snapshot, or synthesizes an
// all-transparent one the first time a project is diffed.
func loadOrBlankSnapshot(nest config.Nest, pal *palette.Table, size geometry.Size, tx, ty, px, py int, ownerID uint) (*image.Paletted, error) {
	f, err := os.Open(nest.SnapshotPath(ownerID, tx, ty, px, py))
	if errors.Is(err, os.ErrNotExist) {
		return pal.NewImage(size.W, size.H), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return pal.Decode(f)
}

// assembleCurrentImage pastes every cached tile overlapping rect into a
// single image sized to rect, leaving tiles missing from the cache
// transparent.
func assembleCurrentImage(nest config.Nest, pal *palette.Table, rect geometry.Rectangle) (*image.Paletted, error) {
	size := rect.Size()
	out := pal.NewImage(size.W, size.H)

	for _, tile := range rect.Tiles() {
		tileImg, err := loadTileImage(nest, pal, tile)
		if err != nil {
			return nil, fmt.Errorf("tile %s: %w", tile, err)
		}
		if tileImg == nil {
			continue
		}
		pasteTile(out, tileImg, rect, tile)
	}
	return out, nil
}

// loadTileImage reads a cached tile, returning (nil, nil) on a cache miss so
// the caller can treat it as transparent rather than failing the diff.
func loadTileImage(nest config.Nest, pal *palette.Table, tile geometry.Tile) (*image.Paletted, error) {
	f, err := os.Open(nest.TilePath(tile.X, tile.Y))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return pal.Decode(f)
}

// pasteTile copies the portion of tileImg that overlaps rect into dst, which
// is addressed in rect's local frame.
func pasteTile(dst *image.Paletted, tileImg *image.Paletted, rect geometry.Rectangle, tile geometry.Tile) {
	clip := rect.ClipToTile(tile)
	if clip.Empty() {
		return
	}
	tileLeft, tileTop := tile.X*geometry.TileSize, tile.Y*geometry.TileSize
	dstOriginX := tileLeft + clip.Left - rect.Left
	dstOriginY := tileTop + clip.Top - rect.Top

	for y := clip.Top; y < clip.Bottom; y++ {
		for x := clip.Left; x < clip.Right; x++ {
			idx := tileImg.ColorIndexAt(x, y)
			dst.SetColorIndex(dstOriginX+(x-clip.Left), dstOriginY+(y-clip.Top), idx)
		}
	}
}

// writeSnapshot atomically overwrites a project's snapshot with img.
func writeSnapshot(nest config.Nest, pal *palette.Table, tx, ty, px, py int, ownerID uint, img *image.Paletted) error {
	encoded, err := pal.EncodeBytes(img)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return atomicWrite(nest.SnapshotPath(ownerID, tx, ty, px, py), encoded)
}
