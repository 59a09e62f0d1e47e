package render

import (
	"image"
	"image/color"
	"image/draw"
)

// PixmapTarget is a CPU-backed render target over an *image.RGBA. It
// implements draw.Image.
type PixmapTarget struct {
	img *image.RGBA
}

var _ draw.Image = (*PixmapTarget)(nil)

// NewPixmapTarget creates a transparent target of the given size.
func NewPixmapTarget(width, height int) *PixmapTarget {
	return &PixmapTarget{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// NewPixmapTargetFromImage wraps img without copying.
func NewPixmapTargetFromImage(img *image.RGBA) *PixmapTarget {
	return &PixmapTarget{img: img}
}

// Width returns the target width in pixels.
func (t *PixmapTarget) Width() int { return t.img.Bounds().Dx() }

// Height returns the target height in pixels.
func (t *PixmapTarget) Height() int { return t.img.Bounds().Dy() }

// Image returns the underlying image. It shares memory with the target.
func (t *PixmapTarget) Image() *image.RGBA { return t.img }

// Clear fills the target with c.
func (t *PixmapTarget) Clear(c color.Color) {
	draw.Draw(t.img, t.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// Resize replaces the pixels with a transparent image of the new size when
// the size differs. The contents are not preserved.
func (t *PixmapTarget) Resize(width, height int) {
	if t.Width() == width && t.Height() == height {
		return
	}
	t.img = image.NewRGBA(image.Rect(0, 0, width, height))
}

// ColorModel implements image.Image.
func (t *PixmapTarget) ColorModel() color.Model { return t.img.ColorModel() }

// Bounds implements image.Image.
func (t *PixmapTarget) Bounds() image.Rectangle { return t.img.Bounds() }

// At implements image.Image.
func (t *PixmapTarget) At(x, y int) color.Color { return t.img.At(x, y) }

// Set implements draw.Image.
func (t *PixmapTarget) Set(x, y int, c color.Color) { t.img.Set(x, y, c) }
