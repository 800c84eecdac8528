// Package geometry provides coordinate arithmetic for the canvas tile lattice.
//
// The canvas is partitioned into a grid of tiles, each 1000x1000 pixels.
// A Point is an absolute pixel coordinate; a Tile is a lattice cell; a
// Rectangle is an axis-aligned pixel region. All values are non-negative
// integers and operations are pure — violations of that precondition are
// programmer errors and panic rather than returning an error.
package geometry

import "fmt"

// TileSize is the width and height, in pixels, of a single canvas tile.
const TileSize = 1000

// Tile identifies a cell in the tile lattice.
type Tile struct {
	X, Y int
}

// ID returns the tile's persistence-layer identifier, x*10000 + y, as used
// by the store's tile primary key.
func (t Tile) ID() int64 {
	return int64(t.X)*10000 + int64(t.Y)
}

func (t Tile) String() string {
	return fmt.Sprintf("%d_%d", t.X, t.Y)
}

// Point is an absolute pixel coordinate in canvas space.
type Point struct {
	X, Y int
}

// PointFrom4 builds a Point from the (tx, ty, px, py) tuple used in on-disk
// filenames. px and py must be in [0, TileSize).
func PointFrom4(tx, ty, px, py int) Point {
	if tx < 0 || ty < 0 || px < 0 || py < 0 {
		panic("geometry: tile and pixel coordinates must be non-negative")
	}
	if px >= TileSize || py >= TileSize {
		panic("geometry: pixel coordinates must be less than tile size")
	}
	return Point{X: tx*TileSize + px, Y: ty*TileSize + py}
}

// To4 decomposes the point into the (tx, ty, px, py) tuple used in on-disk
// filenames.
func (p Point) To4() (tx, ty, px, py int) {
	tx, px = divmod(p.X, TileSize)
	ty, py = divmod(p.Y, TileSize)
	return tx, ty, px, py
}

func (p Point) String() string {
	tx, ty, px, py := p.To4()
	return fmt.Sprintf("%d_%d_%d_%d", tx, ty, px, py)
}

// Tile returns the lattice tile this point falls within.
func (p Point) Tile() Tile {
	tx, ty, _, _ := p.To4()
	return Tile{X: tx, Y: ty}
}

func divmod(a, b int) (q, r int) {
	q = a / b
	r = a % b
	if r < 0 {
		q--
		r += b
	}
	return q, r
}

// Size is a non-negative width/height pair.
type Size struct {
	W, H int
}

// Empty reports whether the size has zero area.
func (s Size) Empty() bool {
	return s.W == 0 || s.H == 0
}

// Rectangle is an axis-aligned, half-open pixel region: [Left, Right) x
// [Top, Bottom).
type Rectangle struct {
	Left, Top, Right, Bottom int
}

// NewRectangle builds a Rectangle from a top-left Point and a Size.
func NewRectangle(p Point, s Size) Rectangle {
	if s.W < 0 || s.H < 0 {
		panic("geometry: negative size")
	}
	return Rectangle{Left: p.X, Top: p.Y, Right: p.X + s.W, Bottom: p.Y + s.H}
}

// Point returns the rectangle's top-left corner.
func (r Rectangle) Point() Point {
	return Point{X: min(r.Left, r.Right), Y: min(r.Top, r.Bottom)}
}

// Size returns the rectangle's width and height.
func (r Rectangle) Size() Size {
	return Size{W: abs(r.Right - r.Left), H: abs(r.Bottom - r.Top)}
}

// Empty reports whether the rectangle covers no area.
func (r Rectangle) Empty() bool {
	return r.Left == r.Right || r.Top == r.Bottom
}

// Offset returns the rectangle translated by -p (i.e. into p's local frame).
func (r Rectangle) Offset(p Point) Rectangle {
	return Rectangle{Left: r.Left - p.X, Top: r.Top - p.Y, Right: r.Right - p.X, Bottom: r.Bottom - p.Y}
}

// Tiles returns the set of lattice tiles this rectangle intersects.
func (r Rectangle) Tiles() []Tile {
	left := floorDiv(r.Left, TileSize)
	top := floorDiv(r.Top, TileSize)
	right := ceilDiv(r.Right, TileSize)
	bottom := ceilDiv(r.Bottom, TileSize)

	tiles := make([]Tile, 0, (right-left)*(bottom-top))
	for tx := left; tx < right; tx++ {
		for ty := top; ty < bottom; ty++ {
			tiles = append(tiles, Tile{X: tx, Y: ty})
		}
	}
	return tiles
}

// Intersects reports whether the rectangle overlaps the given tile's pixel
// extent.
func (r Rectangle) Intersects(t Tile) bool {
	tileLeft, tileTop := t.X*TileSize, t.Y*TileSize
	tileRight, tileBottom := tileLeft+TileSize, tileTop+TileSize
	return r.Left < tileRight && r.Right > tileLeft && r.Top < tileBottom && r.Bottom > tileTop
}

// ClipToTile returns the portion of r that falls within tile t, expressed in
// the tile's own local pixel coordinates ([0, TileSize) on each axis).
func (r Rectangle) ClipToTile(t Tile) Rectangle {
	tileLeft, tileTop := t.X*TileSize, t.Y*TileSize
	clipped := Rectangle{
		Left:   max(r.Left, tileLeft),
		Top:    max(r.Top, tileTop),
		Right:  min(r.Right, tileLeft+TileSize),
		Bottom: min(r.Bottom, tileTop+TileSize),
	}
	return clipped.Offset(Point{X: tileLeft, Y: tileTop})
}

func floorDiv(a, b int) int {
	q, _ := divmod(a, b)
	return q
}

func ceilDiv(a, b int) int {
	return floorDiv(a+b-1, b)
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
